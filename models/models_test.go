package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecordGet_Aliases(t *testing.T) {
	rec := Record{
		"name":        "Ivan Ivanov",
		"phonenumber": "+1 555 0100",
	}
	assert.Equal(t, "Ivan Ivanov", rec.Get("Name"))
	assert.Equal(t, "+1 555 0100", rec.Get("Phone number", "phonenumber", "phone"))
	assert.Equal(t, "", rec.Get("Car"))
}

func TestDriverFromRecord(t *testing.T) {
	rec := Record{
		"name":        " Ivan Ivanov ",
		"telegramid":  "123456",
		"phonenumber": "+1 555 0100",
		"shift":       "Ночная",
		"car":         "Toyota",
		"plates":      "AB1234",
	}
	d := DriverFromRecord(rec, 3)
	assert.Equal(t, "Ivan Ivanov", d.Name)
	assert.Equal(t, int64(123456), d.TgID)
	assert.Equal(t, ShiftNight, d.Shift)
	assert.True(t, d.IsActive)
	assert.Equal(t, 3, d.RowIndex)
}

func TestDriverFromRecord_GarbageID(t *testing.T) {
	d := DriverFromRecord(Record{"name": "X", "telegramid": "нет"}, 2)
	assert.Equal(t, int64(0), d.TgID)
}

func TestEmployeeFromRecord(t *testing.T) {
	rec := Record{
		"employee":    "Petr Petrov",
		"shift":       "Day",
		"rideswith":   "Ivan Ivanov",
		"driverstgid": "123456",
	}
	e := EmployeeFromRecord(rec, 5)
	assert.Equal(t, "Petr Petrov", e.Name)
	assert.Equal(t, ShiftDay, e.Shift)
	assert.Equal(t, "Ivan Ivanov", e.RidesWith)
	assert.Equal(t, int64(123456), e.DriverTg)
}

func TestDriverPassengersFromRecord_SkipsEmptySlots(t *testing.T) {
	rec := Record{
		"name":       "Ivan Ivanov",
		"tgid":       "123456",
		"passenger1": "Petr Petrov",
		"passenger2": "",
		"passenger3": " Anna Smirnova ",
	}
	dp := DriverPassengersFromRecord(rec, 2)
	assert.Equal(t, []string{"Petr Petrov", "Anna Smirnova"}, dp.Passengers)
	assert.True(t, dp.Has("petr petrov"))
	assert.False(t, dp.Has("Nobody"))
}
