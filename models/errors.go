package models

import (
	"errors"
	"fmt"
)

// ErrSheetProtected запись в защищённую ячейку отклонена бэкендом
var ErrSheetProtected = errors.New("sheet is protected")

// ErrSheetNotFound лист или таблица не существует; не ретраится
var ErrSheetNotFound = errors.New("sheet not found")

// SheetError ошибка уровня хранилища: бэкенд недоступен, исчерпаны ретраи,
// либо в листе нет обязательной колонки
type SheetError struct {
	Op  string
	Err error
}

func (e *SheetError) Error() string {
	return fmt.Sprintf("sheets: %s: %v", e.Op, e.Err)
}

func (e *SheetError) Unwrap() error { return e.Err }

// NewSheetError оборачивает ошибку бэкенда с именем операции
func NewSheetError(op string, err error) *SheetError {
	return &SheetError{Op: op, Err: err}
}
