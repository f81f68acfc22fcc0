// internal/sheets/tables.go
package sheets

import (
	"context"
	"errors"
	"strconv"

	"github.com/evn/driver_botl/config"
	"github.com/evn/driver_botl/models"
)

var passengerCols = []string{"Passenger1", "Passenger2", "Passenger3", "Passenger4"}

// Manager типизированные операции над тремя листами таблицы
type Manager struct {
	store      *Store
	drivers    string
	employees  string
	passengers string
}

// NewManager создает Manager поверх Store с именами листов из конфига
func NewManager(store *Store, cfg *config.Config) *Manager {
	return &Manager{
		store:      store,
		drivers:    cfg.DriversSheet,
		employees:  cfg.EmployeesSheet,
		passengers: cfg.DriversPassengersSheet,
	}
}

type row struct {
	index int // строка листа, 1-based
	rec   models.Record
}

// fetchRecords читает лист и строит записи по карте колонок.
// Пустой лист (без заголовков) — ошибка конфигурации, не данных.
func (m *Manager) fetchRecords(ctx context.Context, sheet string) (ColumnMap, []row, error) {
	values, err := m.store.FetchTable(ctx, sheet)
	if err != nil {
		return nil, nil, err
	}
	if len(values) == 0 {
		return nil, nil, models.NewSheetError("fetch "+sheet, errors.New("лист пустой (нет заголовков)"))
	}

	cmap := BuildColumnMap(values[0])
	rows := make([]row, 0, len(values)-1)
	for i, r := range values[1:] {
		rows = append(rows, row{index: i + 2, rec: cmap.Record(r)})
	}
	return cmap, rows, nil
}

// =========================
// DRIVERS
// =========================

// GetDriver ищет водителя по Telegram ID
func (m *Manager) GetDriver(ctx context.Context, tgID int64) (*models.Driver, error) {
	_, rows, err := m.fetchRecords(ctx, m.drivers)
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		d := models.DriverFromRecord(r.rec, r.index)
		if d.TgID == tgID && tgID != 0 {
			return &d, nil
		}
	}
	return nil, nil
}

// GetDriversForShift все водители заданной смены с известным Telegram ID
func (m *Manager) GetDriversForShift(ctx context.Context, shift models.Shift) ([]models.Driver, error) {
	_, rows, err := m.fetchRecords(ctx, m.drivers)
	if err != nil {
		return nil, err
	}
	var drivers []models.Driver
	for _, r := range rows {
		d := models.DriverFromRecord(r.rec, r.index)
		if d.TgID != 0 && d.Shift == shift {
			drivers = append(drivers, d)
		}
	}
	return drivers, nil
}

// UpsertDriver обновляет строку водителя по telegramID, иначе добавляет новую.
// Возвращает (создана ли строка, её номер).
func (m *Manager) UpsertDriver(ctx context.Context, d models.Driver) (bool, int, error) {
	values, err := m.store.FetchTable(ctx, m.drivers)
	if err != nil {
		return false, 0, err
	}
	if len(values) == 0 {
		return false, 0, models.NewSheetError("upsert driver", errors.New("лист drivers пустой (нет заголовков)"))
	}

	headers := values[0]
	cmap := BuildColumnMap(headers)

	cName, okName := cmap.Col("Name")
	cTg, okTg := cmap.Col("telegramID", "telegramid")
	if !okName || !okTg {
		return false, 0, models.NewSheetError("upsert driver",
			errors.New("в drivers должны быть колонки минимум: Name и telegramID"))
	}

	rowData := make([]string, len(headers))
	set := func(aliases []string, value string) {
		if col, ok := cmap.Col(aliases...); ok {
			rowData[col] = value
		}
	}
	rowData[cName] = d.Name
	rowData[cTg] = strconv.FormatInt(d.TgID, 10)
	set([]string{"Phone number", "phonenumber", "phone"}, d.Phone)
	set([]string{"Shift"}, d.Shift.Display())
	set([]string{"Car"}, d.Car)
	set([]string{"Plates"}, d.Plates)
	set([]string{"isActive", "isactive"}, "TRUE")

	for i, r := range values[1:] {
		if cTg < len(r) && models.Normalize(r[cTg]) == strconv.FormatInt(d.TgID, 10) {
			rowIdx := i + 2
			if err := m.store.WriteRow(ctx, m.drivers, rowIdx, rowData); err != nil {
				return false, 0, err
			}
			return false, rowIdx, nil
		}
	}

	if err := m.store.AppendRow(ctx, m.drivers, rowData); err != nil {
		return false, 0, err
	}
	return true, len(values) + 1, nil
}

// =========================
// EMPLOYEES
// =========================

// GetAllEmployees все сотрудники
func (m *Manager) GetAllEmployees(ctx context.Context) ([]models.Employee, error) {
	_, rows, err := m.fetchRecords(ctx, m.employees)
	if err != nil {
		return nil, err
	}
	employees := make([]models.Employee, 0, len(rows))
	for _, r := range rows {
		employees = append(employees, models.EmployeeFromRecord(r.rec, r.index))
	}
	return employees, nil
}

// GetEmployeeByName ищет сотрудника по нормализованному имени
func (m *Manager) GetEmployeeByName(ctx context.Context, name string) (*models.Employee, error) {
	_, rows, err := m.fetchRecords(ctx, m.employees)
	if err != nil {
		return nil, err
	}
	key := models.Normalize(name)
	for _, r := range rows {
		e := models.EmployeeFromRecord(r.rec, r.index)
		if models.Normalize(e.Name) == key {
			return &e, nil
		}
	}
	return nil, nil
}

// employeeRefCols колонки обратной ссылки сотрудника на водителя
func (m *Manager) employeeRefCols(cmap ColumnMap) (int, int, error) {
	cRides, okR := cmap.Col("Rides with", "rideswith")
	cTg, okT := cmap.Col("Driver's TGID", "driverstgid", "drivertgid")
	if !okR || !okT {
		return 0, 0, models.NewSheetError("employees columns",
			errors.New("в employees должны быть колонки 'Rides with' и \"Driver's TGID\""))
	}
	return cRides, cTg, nil
}

// UpdateEmployeeDriver пишет обратную ссылку сотрудника на водителя —
// только две ячейки, остальные колонки не трогаем. Отсутствующий сотрудник
// создаётся новой строкой.
func (m *Manager) UpdateEmployeeDriver(ctx context.Context, employeeName, driverName string, driverTg int64) error {
	cmap, rows, err := m.fetchRecords(ctx, m.employees)
	if err != nil {
		return err
	}
	cRides, cTg, err := m.employeeRefCols(cmap)
	if err != nil {
		return err
	}

	key := models.Normalize(employeeName)
	for _, r := range rows {
		e := models.EmployeeFromRecord(r.rec, r.index)
		if models.Normalize(e.Name) != key {
			continue
		}
		updates := []CellUpdate{
			{Range: cellRange(m.employees, r.index, cRides), Values: [][]string{{driverName}}},
			{Range: cellRange(m.employees, r.index, cTg), Values: [][]string{{strconv.FormatInt(driverTg, 10)}}},
		}
		return m.store.BatchUpdateCells(ctx, m.employees, updates)
	}

	// сотрудника нет — создаём строку, заполняя только имя и ссылку
	width := cTg + 1
	if cRides+1 > width {
		width = cRides + 1
	}
	cName, _ := cmap.Col("Employee", "Name")
	if cName+1 > width {
		width = cName + 1
	}
	rowData := make([]string, width)
	rowData[cName] = employeeName
	rowData[cRides] = driverName
	rowData[cTg] = strconv.FormatInt(driverTg, 10)
	return m.store.AppendRow(ctx, m.employees, rowData)
}

// ClearEmployeeDriver снимает обратную ссылку сотрудника. При ненулевом
// onlyIfDriverTg ссылка очищается только если закреплена именно за этим
// водителем — защита от затирания чужого более позднего закрепления.
func (m *Manager) ClearEmployeeDriver(ctx context.Context, employeeName string, onlyIfDriverTg int64) error {
	cmap, rows, err := m.fetchRecords(ctx, m.employees)
	if err != nil {
		return err
	}
	cRides, cTg, err := m.employeeRefCols(cmap)
	if err != nil {
		return err
	}

	key := models.Normalize(employeeName)
	for _, r := range rows {
		e := models.EmployeeFromRecord(r.rec, r.index)
		if models.Normalize(e.Name) != key {
			continue
		}
		if onlyIfDriverTg != 0 && e.DriverTg != onlyIfDriverTg {
			return nil
		}
		updates := []CellUpdate{
			{Range: cellRange(m.employees, r.index, cRides), Values: [][]string{{""}}},
			{Range: cellRange(m.employees, r.index, cTg), Values: [][]string{{""}}},
		}
		return m.store.BatchUpdateCells(ctx, m.employees, updates)
	}
	return nil
}

// =========================
// DRIVERS_PASSENGERS
// =========================

// GetDriverPassengers манифест пассажиров водителя
func (m *Manager) GetDriverPassengers(ctx context.Context, tgID int64) (*models.DriverPassengers, error) {
	_, rows, err := m.fetchRecords(ctx, m.passengers)
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		dp := models.DriverPassengersFromRecord(r.rec, r.index)
		if dp.DriverTg == tgID && tgID != 0 {
			return &dp, nil
		}
	}
	return nil, nil
}

// AllDriverPassengers все манифесты (для административной выгрузки)
func (m *Manager) AllDriverPassengers(ctx context.Context) ([]models.DriverPassengers, error) {
	_, rows, err := m.fetchRecords(ctx, m.passengers)
	if err != nil {
		return nil, err
	}
	manifests := make([]models.DriverPassengers, 0, len(rows))
	for _, r := range rows {
		manifests = append(manifests, models.DriverPassengersFromRecord(r.rec, r.index))
	}
	return manifests, nil
}

// UpsertDriverPassengers перезаписывает манифест водителя по TGID,
// иначе добавляет новую строку. Возвращает номер строки.
func (m *Manager) UpsertDriverPassengers(ctx context.Context, dp models.DriverPassengers) (int, error) {
	values, err := m.store.FetchTable(ctx, m.passengers)
	if err != nil {
		return 0, err
	}
	if len(values) == 0 {
		return 0, models.NewSheetError("upsert passengers", errors.New("лист drivers_passengers пустой"))
	}

	headers := values[0]
	cmap := BuildColumnMap(headers)

	cTg, ok := cmap.Col("TGID", "telegramID")
	if !ok {
		return 0, models.NewSheetError("upsert passengers", errors.New("в drivers_passengers нет колонки TGID"))
	}

	rowData := make([]string, len(headers))
	set := func(value string, aliases ...string) {
		if col, ok := cmap.Col(aliases...); ok {
			rowData[col] = value
		}
	}
	set(dp.DriverName, "Name")
	rowData[cTg] = strconv.FormatInt(dp.DriverTg, 10)
	set(dp.Phone, "Phone Number", "phonenumber", "phone")
	set(dp.Shift.Display(), "Shift")
	for i, col := range passengerCols {
		p := ""
		if i < len(dp.Passengers) {
			p = dp.Passengers[i]
		}
		set(p, col)
	}

	for i, r := range values[1:] {
		if cTg < len(r) && models.Normalize(r[cTg]) == strconv.FormatInt(dp.DriverTg, 10) {
			rowIdx := i + 2
			if err := m.store.WriteRow(ctx, m.passengers, rowIdx, rowData); err != nil {
				return 0, err
			}
			return rowIdx, nil
		}
	}

	if err := m.store.AppendRow(ctx, m.passengers, rowData); err != nil {
		return 0, err
	}
	return len(values) + 1, nil
}

// ClearDriverPassengers очищает все слоты пассажиров одной пакетной записью.
// Возвращает имена, которые там были, для каскадного открепления в employees.
func (m *Manager) ClearDriverPassengers(ctx context.Context, tgID int64) ([]string, error) {
	cmap, rows, err := m.fetchRecords(ctx, m.passengers)
	if err != nil {
		return nil, err
	}

	for _, r := range rows {
		dp := models.DriverPassengersFromRecord(r.rec, r.index)
		if dp.DriverTg != tgID || tgID == 0 {
			continue
		}
		if len(dp.Passengers) == 0 {
			return nil, nil
		}
		var updates []CellUpdate
		for _, col := range passengerCols {
			if idx, ok := cmap.Col(col); ok {
				updates = append(updates, CellUpdate{
					Range:  cellRange(m.passengers, r.index, idx),
					Values: [][]string{{""}},
				})
			}
		}
		if err := m.store.BatchUpdateCells(ctx, m.passengers, updates); err != nil {
			return nil, err
		}
		return dp.Passengers, nil
	}
	return nil, nil
}

// RemovePassenger убирает пассажира из манифеста водителя.
// Возвращает false, если пассажир не найден.
func (m *Manager) RemovePassenger(ctx context.Context, tgID int64, passengerName string) (bool, error) {
	dp, err := m.GetDriverPassengers(ctx, tgID)
	if err != nil {
		return false, err
	}
	if dp == nil {
		return false, nil
	}

	key := models.Normalize(passengerName)
	kept := dp.Passengers[:0]
	found := false
	for _, p := range dp.Passengers {
		if !found && models.Normalize(p) == key {
			found = true
			continue
		}
		kept = append(kept, p)
	}
	if !found {
		return false, nil
	}

	dp.Passengers = kept
	if _, err := m.UpsertDriverPassengers(ctx, *dp); err != nil {
		return false, err
	}
	return true, nil
}

// Invalidate прокидывает сброс кэша листа (для административных операций)
func (m *Manager) Invalidate(sheet string) {
	m.store.Invalidate(sheet)
}
