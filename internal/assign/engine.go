// internal/assign/engine.go
package assign

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/evn/driver_botl/internal/sheets"
	"github.com/evn/driver_botl/models"
)

// ErrTooManyPassengers объединённый список превысил бы лимит; ничего не записано
var ErrTooManyPassengers = errors.New("слишком много пассажиров")

// Rejection отказ по одному кандидату с причиной для пользователя
type Rejection struct {
	Name   string
	Reason string
}

// StepFailure несработавший шаг многошаговой записи. Уже выполненные шаги
// не откатываются — вызывающий получает список и объясняет, что чинить.
type StepFailure struct {
	Step string // "employee backref", "self backref"
	Name string
	Err  error
}

// Protected true, если шаг упёрся в защищённые ячейки (нужен администратор)
func (f StepFailure) Protected() bool {
	return errors.Is(f.Err, models.ErrSheetProtected)
}

// Result итог Assign: что записано и какие шаги не прошли
type Result struct {
	RowIndex int
	Merged   []string
	Failures []StepFailure
}

// Engine проверяет и выполняет закрепление пассажиров за водителями
type Engine struct {
	tables *sheets.Manager
	max    int
}

// NewEngine создает Engine; max — предел пассажиров на водителя
func NewEngine(tables *sheets.Manager, max int) *Engine {
	if max <= 0 {
		max = models.MaxPassengers
	}
	return &Engine{tables: tables, max: max}
}

// ValidatePassengers проверяет кандидатов: существование, совпадение смены,
// эксклюзивность. Отказ одного не прерывает проверку остальных — возвращается
// полное разбиение на принятых и отклонённых.
func (e *Engine) ValidatePassengers(ctx context.Context, driver models.Driver, names []string) ([]models.Employee, []Rejection, error) {
	employees, err := e.tables.GetAllEmployees(ctx)
	if err != nil {
		return nil, nil, err
	}

	byName := make(map[string]models.Employee, len(employees))
	for _, emp := range employees {
		if emp.Name != "" {
			byName[models.Normalize(emp.Name)] = emp
		}
	}

	var accepted []models.Employee
	var rejected []Rejection

	for _, name := range names {
		emp, ok := byName[models.Normalize(name)]
		if !ok {
			rejected = append(rejected, Rejection{Name: name, Reason: notFoundReason(name, employees)})
			continue
		}

		if driver.Shift != models.ShiftUnknown && emp.Shift != models.ShiftUnknown && driver.Shift != emp.Shift {
			rejected = append(rejected, Rejection{
				Name: name,
				Reason: fmt.Sprintf("⚠️ Смена пассажира '%s' (%s) не совпадает с вашей (%s)",
					name, emp.Shift.Display(), driver.Shift.Display()),
			})
			continue
		}

		if emp.DriverTg != 0 && emp.DriverTg != driver.TgID {
			rejected = append(rejected, Rejection{
				Name:   name,
				Reason: fmt.Sprintf("⛔ Пассажир '%s' уже закреплён за другим водителем.", name),
			})
			continue
		}

		// авторитетная ссылка пуста, но осталась легаси-метка на чужого водителя
		if emp.DriverTg == 0 && emp.RidesWith != "" &&
			models.Normalize(emp.RidesWith) != models.Normalize(driver.Name) {
			rejected = append(rejected, Rejection{
				Name:   name,
				Reason: fmt.Sprintf("⛔ Пассажир '%s' уже закреплён за другим водителем.", name),
			})
			continue
		}

		accepted = append(accepted, emp)
	}

	return accepted, rejected, nil
}

func notFoundReason(name string, employees []models.Employee) string {
	all := make([]string, 0, len(employees))
	for _, emp := range employees {
		if emp.Name != "" {
			all = append(all, emp.Name)
		}
	}
	similar := closeMatches(name, all, 3, 0.6)
	if len(similar) == 0 {
		return fmt.Sprintf("Пассажир '%s' не найден в employees. Проверьте написание.", name)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Пассажир '%s' не найден.\n\nВозможно, вы имели в виду:\n", name)
	for _, s := range similar {
		fmt.Fprintf(&b, "• %s\n", s)
	}
	return strings.TrimRight(b.String(), "\n")
}

// Assign добавляет принятых пассажиров в манифест водителя: слияние с
// дедупликацией и сохранением порядка, верхняя граница, upsert строки и
// точечные обратные ссылки в employees. Последовательность не атомарна;
// несработавшие обратные ссылки возвращаются в Result.Failures.
func (e *Engine) Assign(ctx context.Context, driver models.Driver, accepted []string) (*Result, error) {
	existing, err := e.tables.GetDriverPassengers(ctx, driver.TgID)
	if err != nil {
		return nil, err
	}

	var merged []string
	seen := make(map[string]bool)
	if existing != nil {
		for _, p := range existing.Passengers {
			merged = append(merged, p)
			seen[models.Normalize(p)] = true
		}
	}
	var added []string
	for _, name := range accepted {
		key := models.Normalize(name)
		if seen[key] {
			continue
		}
		seen[key] = true
		merged = append(merged, name)
		added = append(added, name)
	}

	if len(merged) > e.max {
		return nil, ErrTooManyPassengers
	}

	rowIdx, err := e.tables.UpsertDriverPassengers(ctx, models.DriverPassengers{
		DriverName: driver.Name,
		DriverTg:   driver.TgID,
		Phone:      driver.Phone,
		Shift:      driver.Shift,
		Passengers: merged,
	})
	if err != nil {
		return nil, err
	}

	result := &Result{RowIndex: rowIdx, Merged: merged}

	for _, name := range added {
		if err := e.tables.UpdateEmployeeDriver(ctx, name, driver.Name, driver.TgID); err != nil {
			log.Printf("❌ Обратная ссылка для '%s' не записана: %v", name, err)
			result.Failures = append(result.Failures, StepFailure{Step: "employee backref", Name: name, Err: err})
		}
	}

	// водитель приписан сам к себе
	if err := e.tables.UpdateEmployeeDriver(ctx, driver.Name, driver.Name, driver.TgID); err != nil {
		log.Printf("❌ Самопривязка водителя '%s' не записана: %v", driver.Name, err)
		result.Failures = append(result.Failures, StepFailure{Step: "self backref", Name: driver.Name, Err: err})
	}

	return result, nil
}

// Remove убирает пассажира из манифеста и снимает его обратную ссылку,
// но только если сотрудник всё ещё закреплён за этим водителем
func (e *Engine) Remove(ctx context.Context, driverTg int64, passengerName string) (bool, error) {
	removed, err := e.tables.RemovePassenger(ctx, driverTg, passengerName)
	if err != nil || !removed {
		return removed, err
	}
	if err := e.tables.ClearEmployeeDriver(ctx, passengerName, driverTg); err != nil {
		return true, err
	}
	return true, nil
}

// ClearAll очищает манифест водителя и каскадно открепляет сотрудников.
// Возвращает имена, которые были в манифесте.
func (e *Engine) ClearAll(ctx context.Context, driverTg int64) ([]string, error) {
	cleared, err := e.tables.ClearDriverPassengers(ctx, driverTg)
	if err != nil {
		return nil, err
	}
	for _, name := range cleared {
		if err := e.tables.ClearEmployeeDriver(ctx, name, driverTg); err != nil {
			log.Printf("❌ Открепление '%s' от водителя %d не записано: %v", name, driverTg, err)
		}
	}
	return cleared, nil
}
