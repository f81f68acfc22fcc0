// internal/sheets/columns.go
package sheets

import (
	"fmt"

	"github.com/evn/driver_botl/models"
)

// ColumnMap нормализованный заголовок -> индекс колонки (0-based).
// Строится один раз на выборку листа; исторические алиасы заголовков
// резолвятся явно через Col.
type ColumnMap map[string]int

// BuildColumnMap строит карту колонок по строке заголовков
func BuildColumnMap(headers []string) ColumnMap {
	m := make(ColumnMap, len(headers))
	for i, h := range headers {
		key := models.Normalize(h)
		if _, exists := m[key]; !exists {
			m[key] = i
		}
	}
	return m
}

// Col возвращает индекс первой найденной колонки из списка алиасов
func (m ColumnMap) Col(aliases ...string) (int, bool) {
	for _, a := range aliases {
		if idx, ok := m[models.Normalize(a)]; ok {
			return idx, true
		}
	}
	return 0, false
}

// Record строит models.Record из строки данных
func (m ColumnMap) Record(row []string) models.Record {
	rec := make(models.Record, len(m))
	for key, idx := range m {
		if idx < len(row) {
			rec[key] = row[idx]
		}
	}
	return rec
}

// colLetter буква колонки для A1-нотации (0 -> A, 26 -> AA)
func colLetter(idx int) string {
	letters := ""
	idx++
	for idx > 0 {
		idx--
		letters = string(rune('A'+idx%26)) + letters
		idx /= 26
	}
	return letters
}

// cellRange диапазон одной ячейки: "employees!D7"
func cellRange(sheet string, row, col int) string {
	return fmt.Sprintf("%s!%s%d", sheet, colLetter(col), row)
}

// rowRange диапазон целой строки шириной ncols: "drivers!A3:G3"
func rowRange(sheet string, row, ncols int) string {
	return fmt.Sprintf("%s!A%d:%s%d", sheet, row, colLetter(ncols-1), row)
}
