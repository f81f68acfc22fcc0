// internal/telegram/keyboard.go
package telegram

// Подписи кнопок меню
const (
	BtnAdd         = "🚗 Добавить/обновить водителя"
	BtnPassengers  = "👥 Указать пассажиров"
	BtnDelete      = "🗑 Удалить пассажира"
	BtnMyRecord    = "📄 Моя запись"
	BtnCancel      = "❌ Отмена"
	BtnForceWeekly = "📢 Запустить weekly-проверку"
	BtnShutdown    = "🛑 Shutdown"

	BtnYes   = "Да"
	BtnNo    = "Нет"
	BtnDay   = "Day"
	BtnNight = "Night"
)

type Button struct {
	Text string `json:"text"`
}

type ReplyKeyboard struct {
	Keyboard        [][]Button `json:"keyboard"`
	ResizeKeyboard  bool       `json:"resize_keyboard"`
	OneTimeKeyboard bool       `json:"one_time_keyboard,omitempty"`
}

type RemoveKeyboard struct {
	RemoveKeyboard bool `json:"remove_keyboard"`
}

// MainMenu главное меню; администраторам добавляются служебные кнопки
func MainMenu(isAdmin bool) ReplyKeyboard {
	rows := [][]Button{
		{{Text: BtnAdd}},
		{{Text: BtnPassengers}},
		{{Text: BtnDelete}},
		{{Text: BtnMyRecord}},
		{{Text: BtnCancel}},
	}
	if isAdmin {
		rows = append(rows, []Button{{Text: BtnForceWeekly}})
		rows = append(rows, []Button{{Text: BtnShutdown}})
	}
	return ReplyKeyboard{Keyboard: rows, ResizeKeyboard: true}
}

func YesNoKeyboard() ReplyKeyboard {
	return ReplyKeyboard{
		Keyboard:        [][]Button{{{Text: BtnYes}, {Text: BtnNo}}},
		ResizeKeyboard:  true,
		OneTimeKeyboard: true,
	}
}

func ShiftKeyboard() ReplyKeyboard {
	return ReplyKeyboard{
		Keyboard:        [][]Button{{{Text: BtnDay}, {Text: BtnNight}}},
		ResizeKeyboard:  true,
		OneTimeKeyboard: true,
	}
}

func NoKeyboard() RemoveKeyboard {
	return RemoveKeyboard{RemoveKeyboard: true}
}
