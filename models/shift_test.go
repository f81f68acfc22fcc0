package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseShift(t *testing.T) {
	cases := map[string]Shift{
		"Day":          ShiftDay,
		"day shift":    ShiftDay,
		"Дневная":      ShiftDay,
		"  дневная  ":  ShiftDay,
		"Night":        ShiftNight,
		"NIGHT":        ShiftNight,
		"Ночная смена": ShiftNight,
		"ночь":         ShiftNight,
		"":             ShiftUnknown,
		"   ":          ShiftUnknown,
		"утро":         ShiftUnknown,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseShift(in), "input %q", in)
	}
}

func TestParseShift_NightBeforeDay(t *testing.T) {
	// "ночная (дневная подмена)" содержит оба маркера; ночь приоритетнее
	assert.Equal(t, ShiftNight, ParseShift("ночная, иногда дневная"))
}

func TestShiftDisplay(t *testing.T) {
	assert.Equal(t, "Day", ShiftDay.Display())
	assert.Equal(t, "Night", ShiftNight.Display())
	assert.Equal(t, "", ShiftUnknown.Display())
}

func TestShiftMatches(t *testing.T) {
	assert.True(t, ShiftDay.Matches(ShiftDay))
	assert.False(t, ShiftDay.Matches(ShiftNight))
	assert.True(t, ShiftUnknown.Matches(ShiftNight))
	assert.True(t, ShiftDay.Matches(ShiftUnknown))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "ivan ivanov", Normalize("  Ivan IVANOV "))
}
