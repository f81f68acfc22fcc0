// Package sheetstest содержит фейковый Backend для тестов: таблица в памяти
// с применением записей по A1-диапазонам и очередями ошибок на чтение.
package sheetstest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/evn/driver_botl/internal/sheets"
)

type Fake struct {
	mu       sync.Mutex
	sheets   map[string][][]string
	getErrs  map[string][]error
	failed   map[string]error // префикс диапазона -> ошибка записи
	getCalls map[string]int
}

func New() *Fake {
	return &Fake{
		sheets:   make(map[string][][]string),
		getErrs:  make(map[string][]error),
		failed:   make(map[string]error),
		getCalls: make(map[string]int),
	}
}

// SetSheet задаёт содержимое листа (первая строка — заголовки)
func (f *Fake) SetSheet(sheet string, rows [][]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sheets[sheet] = copyRows(rows)
}

// Rows снимок содержимого листа
func (f *Fake) Rows(sheet string) [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return copyRows(f.sheets[sheet])
}

// QueueGetError ставит ошибки в очередь: каждая отдаётся одним вызовом GetValues
func (f *Fake) QueueGetError(sheet string, errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getErrs[sheet] = append(f.getErrs[sheet], errs...)
}

// FailRange все записи в диапазоны с этим префиксом возвращают err
func (f *Fake) FailRange(prefix string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed[prefix] = err
}

// GetCalls сколько раз читали лист (включая неудачные попытки)
func (f *Fake) GetCalls(sheet string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.getCalls[sheet]
}

func (f *Fake) GetValues(_ context.Context, sheet string) ([][]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls[sheet]++
	if errs := f.getErrs[sheet]; len(errs) > 0 {
		err := errs[0]
		f.getErrs[sheet] = errs[1:]
		return nil, err
	}
	return copyRows(f.sheets[sheet]), nil
}

func (f *Fake) UpdateRange(_ context.Context, rangeA1 string, values [][]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.writeErr(rangeA1); err != nil {
		return err
	}
	return f.apply(rangeA1, values)
}

func (f *Fake) AppendRow(_ context.Context, sheet string, row []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.writeErr(sheet); err != nil {
		return err
	}
	f.sheets[sheet] = append(f.sheets[sheet], append([]string(nil), row...))
	return nil
}

func (f *Fake) BatchUpdate(_ context.Context, updates []sheets.CellUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range updates {
		if err := f.writeErr(u.Range); err != nil {
			return err
		}
	}
	for _, u := range updates {
		if err := f.apply(u.Range, u.Values); err != nil {
			return err
		}
	}
	return nil
}

func (f *Fake) writeErr(target string) error {
	for prefix, err := range f.failed {
		if strings.HasPrefix(target, prefix) {
			return err
		}
	}
	return nil
}

// apply пишет значения в таблицу начиная с левой верхней ячейки диапазона
func (f *Fake) apply(rangeA1 string, values [][]string) error {
	sheet, row, col, err := parseRange(rangeA1)
	if err != nil {
		return err
	}
	grid := f.sheets[sheet]
	for i, vrow := range values {
		r := row - 1 + i
		for len(grid) <= r {
			grid = append(grid, []string{})
		}
		for j, v := range vrow {
			c := col - 1 + j
			for len(grid[r]) <= c {
				grid[r] = append(grid[r], "")
			}
			grid[r][c] = v
		}
	}
	f.sheets[sheet] = grid
	return nil
}

// parseRange разбирает "sheet!D7" или "sheet!A3:G3" в (лист, строка, колонка),
// обе координаты 1-based
func parseRange(rangeA1 string) (string, int, int, error) {
	parts := strings.SplitN(rangeA1, "!", 2)
	if len(parts) != 2 {
		return "", 0, 0, fmt.Errorf("диапазон без имени листа: %q", rangeA1)
	}
	cell := parts[1]
	if i := strings.Index(cell, ":"); i >= 0 {
		cell = cell[:i]
	}

	col, row := 0, 0
	for _, ch := range cell {
		switch {
		case ch >= 'A' && ch <= 'Z':
			col = col*26 + int(ch-'A') + 1
		case ch >= '0' && ch <= '9':
			row = row*10 + int(ch-'0')
		default:
			return "", 0, 0, fmt.Errorf("не разобрал ячейку %q", cell)
		}
	}
	if col == 0 || row == 0 {
		return "", 0, 0, fmt.Errorf("не разобрал ячейку %q", cell)
	}
	return parts[0], row, col, nil
}

func copyRows(rows [][]string) [][]string {
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = append([]string(nil), r...)
	}
	return out
}
