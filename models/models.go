package models

import (
	"strconv"
	"strings"
)

// MaxPassengers максимум пассажиров у одного водителя
const MaxPassengers = 4

// Record строка таблицы: нормализованный заголовок -> значение ячейки
type Record map[string]string

// Get возвращает первое непустое значение по списку алиасов колонки
func (r Record) Get(keys ...string) string {
	for _, k := range keys {
		if v, ok := r[Normalize(k)]; ok && v != "" {
			return v
		}
	}
	return ""
}

// parseID разбирает числовой ID, не падая на мусоре в ячейке
func parseID(raw string) int64 {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// Driver запись листа drivers
type Driver struct {
	Name     string
	TgID     int64
	Phone    string
	Shift    Shift
	Car      string
	Plates   string
	IsActive bool
	RowIndex int // строка в таблице (1-based), 0 если не из таблицы
}

// DriverFromRecord собирает Driver из строки листа drivers
func DriverFromRecord(rec Record, rowIndex int) Driver {
	return Driver{
		Name:     strings.TrimSpace(rec.Get("Name")),
		TgID:     parseID(rec.Get("telegramID", "telegramid", "tgid")),
		Phone:    strings.TrimSpace(rec.Get("Phone number", "phonenumber", "phone")),
		Shift:    ParseShift(rec.Get("Shift")),
		Car:      strings.TrimSpace(rec.Get("Car")),
		Plates:   strings.TrimSpace(rec.Get("Plates")),
		IsActive: strings.ToUpper(strings.TrimSpace(rec.Get("isActive"))) != "FALSE",
		RowIndex: rowIndex,
	}
}

// Employee запись листа employees
type Employee struct {
	Name      string
	Phone     string
	Shift     Shift
	RidesWith string // информационная метка "с кем ездит" (имя водителя)
	DriverTg  int64  // авторитетная ссылка на водителя, 0 если не закреплён
	RowIndex  int
}

// EmployeeFromRecord собирает Employee из строки листа employees
func EmployeeFromRecord(rec Record, rowIndex int) Employee {
	return Employee{
		Name:      strings.TrimSpace(rec.Get("Employee", "Name")),
		Phone:     strings.TrimSpace(rec.Get("PhoneNumber", "Phone number", "phone")),
		Shift:     ParseShift(rec.Get("Shift")),
		RidesWith: strings.TrimSpace(rec.Get("Rides with", "rideswith")),
		DriverTg:  parseID(rec.Get("Driver's TGID", "driverstgid", "drivertgid")),
		RowIndex:  rowIndex,
	}
}

// DriverPassengers запись листа drivers_passengers: манифест пассажиров водителя
type DriverPassengers struct {
	DriverName string
	DriverTg   int64
	Phone      string
	Shift      Shift
	Passengers []string
	RowIndex   int
}

// DriverPassengersFromRecord собирает манифест из строки листа drivers_passengers
func DriverPassengersFromRecord(rec Record, rowIndex int) DriverPassengers {
	var passengers []string
	for _, col := range []string{"Passenger1", "Passenger2", "Passenger3", "Passenger4"} {
		if p := strings.TrimSpace(rec.Get(col)); p != "" {
			passengers = append(passengers, p)
		}
	}
	return DriverPassengers{
		DriverName: strings.TrimSpace(rec.Get("Name")),
		DriverTg:   parseID(rec.Get("TGID", "telegramID")),
		Phone:      strings.TrimSpace(rec.Get("Phone Number", "phonenumber", "phone")),
		Shift:      ParseShift(rec.Get("Shift")),
		Passengers: passengers,
		RowIndex:   rowIndex,
	}
}

// Has проверяет наличие пассажира в манифесте (по нормализованному имени)
func (dp DriverPassengers) Has(name string) bool {
	key := Normalize(name)
	for _, p := range dp.Passengers {
		if Normalize(p) == key {
			return true
		}
	}
	return false
}
