package models

import "strings"

// Shift тип смены
type Shift string

const (
	ShiftDay     Shift = "day"
	ShiftNight   Shift = "night"
	ShiftUnknown Shift = ""
)

// ParseShift разбирает смену из свободного текста (русский и английский).
// Поиск по подстроке: "ночь"/"night" -> Night, "днев"/"day" -> Day, иначе Unknown.
func ParseShift(value string) Shift {
	t := strings.ToLower(strings.TrimSpace(value))
	if t == "" {
		return ShiftUnknown
	}
	if strings.Contains(t, "night") || strings.Contains(t, "ноч") {
		return ShiftNight
	}
	if strings.Contains(t, "day") || strings.Contains(t, "дн") {
		return ShiftDay
	}
	return ShiftUnknown
}

// Display строка для записи в таблицу
func (s Shift) Display() string {
	switch s {
	case ShiftDay:
		return "Day"
	case ShiftNight:
		return "Night"
	default:
		return ""
	}
}

// Matches совместимость смен: Unknown совместим с любой
func (s Shift) Matches(other Shift) bool {
	if s == ShiftUnknown || other == ShiftUnknown {
		return true
	}
	return s == other
}

// Normalize ключ сравнения имён: trim + lowercase
func Normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}
