// internal/handlers/admin/export.go
package admin

import (
	"fmt"
	"log"
	"net/http"

	"github.com/evn/driver_botl/internal/pkg/response"
	"github.com/xuri/excelize/v2"
)

var exportHeader = []string{"Name", "TGID", "Phone", "Shift", "Passenger1", "Passenger2", "Passenger3", "Passenger4"}

// ExportHandler выгружает текущие экипажи в xlsx
func (h *Handlers) ExportHandler(w http.ResponseWriter, r *http.Request) {
	manifests, err := h.tables.AllDriverPassengers(r.Context())
	if err != nil {
		log.Printf("❌ Экспорт xlsx: %v", err)
		response.RespondWithError(w, http.StatusBadGateway, "Ошибка доступа к таблице")
		return
	}

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	for i, col := range exportHeader {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, col)
	}
	for rowIdx, dp := range manifests {
		row := []interface{}{dp.DriverName, dp.DriverTg, dp.Phone, dp.Shift.Display()}
		for i := 0; i < 4; i++ {
			if i < len(dp.Passengers) {
				row = append(row, dp.Passengers[i])
			} else {
				row = append(row, "")
			}
		}
		for colIdx, v := range row {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "drivers_export.xlsx"))
	if err := f.Write(w); err != nil {
		log.Printf("❌ Отправка xlsx: %v", err)
	}
}
