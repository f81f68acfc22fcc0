// internal/handlers/add_driver.go
package handlers

import (
	"context"
	"fmt"
	"log"

	"github.com/evn/driver_botl/internal/telegram"
	"github.com/evn/driver_botl/models"
)

// Диалог добавления/обновления водителя:
// имя -> подтверждение телефона -> смена -> машина -> номера.

func (b *Bot) addDriverStart(ctx context.Context, tgID int64, conv *conversation) {
	*conv = conversation{step: stepAddName}
	b.reply(ctx, tgID, "Введи СВОИ Имя и Фамилию на АНГЛИЙСКОМ ЯЗЫКЕ", telegram.NoKeyboard())
}

func (b *Bot) addDriverName(ctx context.Context, tgID int64, conv *conversation, text string) {
	employee, err := b.tables.GetEmployeeByName(ctx, text)
	if err != nil {
		b.failSheet(ctx, tgID, "add_driver_name", err)
		return
	}
	if employee == nil {
		b.endConv(tgID)
		b.reply(ctx, tgID, "Сотрудник не найден в таблице employees.\nОбратитесь к менеджеру.", nil)
		b.showMenu(ctx, tgID)
		return
	}
	if employee.Phone == "" {
		b.endConv(tgID)
		b.reply(ctx, tgID, "Телефон у сотрудника отсутствует. Обратитесь к менеджеру.", nil)
		b.showMenu(ctx, tgID)
		return
	}

	conv.name = employee.Name
	conv.phone = employee.Phone
	conv.shift = employee.Shift
	conv.step = stepConfirmPhone

	b.reply(ctx, tgID,
		fmt.Sprintf("Найден номер: %s\nЭто правильный номер?", employee.Phone),
		telegram.YesNoKeyboard())
}

func (b *Bot) confirmPhone(ctx context.Context, tgID int64, conv *conversation, text string) {
	if models.Normalize(text) != "да" {
		b.endConv(tgID)
		b.reply(ctx, tgID, "Запись не создана. Обратитесь к менеджеру.", telegram.NoKeyboard())
		b.showMenu(ctx, tgID)
		return
	}
	conv.step = stepAddShift
	b.reply(ctx, tgID, "В какой смене ты работаешь?", telegram.ShiftKeyboard())
}

func (b *Bot) addDriverShift(ctx context.Context, tgID int64, conv *conversation, text string) {
	shift := models.ParseShift(text)
	if shift == models.ShiftUnknown {
		b.reply(ctx, tgID, "Пожалуйста, выберите Shift кнопками: Day или Night.", telegram.ShiftKeyboard())
		return
	}
	conv.shift = shift
	conv.step = stepAddCar
	b.reply(ctx, tgID, "На какой машине ты ездишь? Напиши:", telegram.NoKeyboard())
}

func (b *Bot) addDriverCar(ctx context.Context, tgID int64, conv *conversation, text string) {
	if text == "" {
		b.reply(ctx, tgID, "ТЫ НЕ ВПИСАЛ МАШИНУ. Напиши название НА АНГЛИЙСКОМ:", nil)
		return
	}
	conv.car = text
	conv.step = stepAddPlates
	b.reply(ctx, tgID, "Укажи LICENCE PLATES", nil)
}

func (b *Bot) addDriverPlates(ctx context.Context, tgID int64, conv *conversation, text string) {
	if text == "" {
		b.reply(ctx, tgID, "ТЫ НЕ ВПИСАЛ LICENCE PLATES, Напиши Еще раз:", nil)
		return
	}

	driver := models.Driver{
		Name:     conv.name,
		TgID:     tgID,
		Phone:    conv.phone,
		Shift:    conv.shift,
		Car:      conv.car,
		Plates:   text,
		IsActive: true,
	}
	b.endConv(tgID)

	created, _, err := b.tables.UpsertDriver(ctx, driver)
	if err != nil {
		b.failSheet(ctx, tgID, "upsert_driver", err)
		return
	}

	// водитель приписывается сам к себе в employees
	if err := b.tables.UpdateEmployeeDriver(ctx, driver.Name, driver.Name, driver.TgID); err != nil {
		log.Printf("❌ Самопривязка водителя %s (%d): %v", driver.Name, driver.TgID, err)
		b.reply(ctx, tgID, protectedOrGeneric(failureOf(driver.Name, err)), nil)
		b.showMenu(ctx, tgID)
		return
	}

	if created {
		b.reply(ctx, tgID, "✅ Водитель добавлен", nil)
	} else {
		b.reply(ctx, tgID, "✅ Водитель обновлён", nil)
	}
	log.Printf("Водитель %s (%d): запись %s", driver.Name, driver.TgID,
		map[bool]string{true: "создана", false: "обновлена"}[created])
	b.showMenu(ctx, tgID)
}
