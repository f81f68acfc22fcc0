// internal/handlers/bot.go
package handlers

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/evn/driver_botl/config"
	"github.com/evn/driver_botl/internal/assign"
	"github.com/evn/driver_botl/internal/sheets"
	"github.com/evn/driver_botl/internal/telegram"
	"github.com/evn/driver_botl/internal/weekly"
	"github.com/evn/driver_botl/models"
)

const msgSheetUnavailable = "⚠️ Ошибка доступа к таблице. Попробуйте позже."

type step int

const (
	stepNone step = iota
	stepAddName
	stepConfirmPhone
	stepAddShift
	stepAddCar
	stepAddPlates
	stepPassInput
	stepDelInput
)

// conversation состояние многошагового диалога одного пользователя.
// Один активный шаг на пользователя; разные пользователи не мешают друг другу.
type conversation struct {
	step       step
	name       string
	phone      string
	shift      models.Shift
	car        string
	passengers []string
}

// Bot маршрутизация входящих сообщений по кнопкам, диалогам и weekly-ответам
type Bot struct {
	cfg      *config.Config
	tables   *sheets.Manager
	engine   *assign.Engine
	weekly   *weekly.Checker
	sender   telegram.Sender
	shutdown context.CancelFunc

	mu    sync.Mutex
	convs map[int64]*conversation
	locks map[int64]*sync.Mutex
}

// NewBot собирает Bot; shutdown останавливает весь процесс (админская кнопка)
func NewBot(cfg *config.Config, tables *sheets.Manager, engine *assign.Engine, wk *weekly.Checker, sender telegram.Sender, shutdown context.CancelFunc) *Bot {
	return &Bot{
		cfg:      cfg,
		tables:   tables,
		engine:   engine,
		weekly:   wk,
		sender:   sender,
		shutdown: shutdown,
		convs:    make(map[int64]*conversation),
		locks:    make(map[int64]*sync.Mutex),
	}
}

// chatLock сообщения одного чата обрабатываются строго по очереди;
// разные чаты не блокируют друг друга
func (b *Bot) chatLock(tgID int64) *sync.Mutex {
	b.mu.Lock()
	defer b.mu.Unlock()
	l, ok := b.locks[tgID]
	if !ok {
		l = &sync.Mutex{}
		b.locks[tgID] = l
	}
	return l
}

func (b *Bot) conv(tgID int64) *conversation {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.convs[tgID]
	if !ok {
		c = &conversation{}
		b.convs[tgID] = c
	}
	return c
}

func (b *Bot) endConv(tgID int64) {
	b.mu.Lock()
	delete(b.convs, tgID)
	b.mu.Unlock()
}

// HandleUpdate обрабатывает одно входящее сообщение
func (b *Bot) HandleUpdate(ctx context.Context, u telegram.Update) {
	if u.Message == nil || strings.TrimSpace(u.Message.Text) == "" {
		return
	}
	tgID := u.Message.Chat.ID
	text := strings.TrimSpace(u.Message.Text)

	lock := b.chatLock(tgID)
	lock.Lock()
	defer lock.Unlock()

	// кнопки, работающие в любом состоянии
	switch text {
	case "/start":
		b.endConv(tgID)
		b.showMenu(ctx, tgID)
		return
	case telegram.BtnCancel, "/cancel":
		b.endConv(tgID)
		b.reply(ctx, tgID, "Ок, отменил.", telegram.NoKeyboard())
		b.showMenu(ctx, tgID)
		return
	case telegram.BtnMyRecord, "/my_driver":
		b.myRecord(ctx, tgID)
		return
	case telegram.BtnShutdown, "/shutdown":
		b.shutdownCmd(ctx, tgID)
		return
	case telegram.BtnForceWeekly:
		b.forceWeekly(ctx, tgID)
		return
	}

	// активный диалог имеет приоритет над weekly-ответом: внутри
	// шага подтверждения телефона тоже ходят "Да"/"Нет"
	conv := b.conv(tgID)
	if conv.step != stepNone {
		b.handleStep(ctx, tgID, conv, text)
		return
	}

	if b.weekly.HandleReply(ctx, tgID, text) {
		b.showMenu(ctx, tgID)
		return
	}

	switch text {
	case telegram.BtnAdd:
		b.addDriverStart(ctx, tgID, conv)
	case telegram.BtnPassengers:
		b.passengersStart(ctx, tgID, conv)
	case telegram.BtnDelete:
		b.deleteStart(ctx, tgID, conv)
	default:
		b.showMenu(ctx, tgID)
	}
}

func (b *Bot) handleStep(ctx context.Context, tgID int64, conv *conversation, text string) {
	switch conv.step {
	case stepAddName:
		b.addDriverName(ctx, tgID, conv, text)
	case stepConfirmPhone:
		b.confirmPhone(ctx, tgID, conv, text)
	case stepAddShift:
		b.addDriverShift(ctx, tgID, conv, text)
	case stepAddCar:
		b.addDriverCar(ctx, tgID, conv, text)
	case stepAddPlates:
		b.addDriverPlates(ctx, tgID, conv, text)
	case stepPassInput:
		b.passengersInput(ctx, tgID, conv, text)
	case stepDelInput:
		b.deleteInput(ctx, tgID, conv, text)
	default:
		b.endConv(tgID)
		b.showMenu(ctx, tgID)
	}
}

func (b *Bot) reply(ctx context.Context, tgID int64, text string, markup interface{}) {
	if err := b.sender.Send(ctx, tgID, text, markup); err != nil {
		log.Printf("❌ Сообщение пользователю %d не доставлено: %v", tgID, err)
	}
}

func (b *Bot) showMenu(ctx context.Context, tgID int64) {
	b.reply(ctx, tgID, "Выберите действие кнопками 👇", telegram.MainMenu(b.cfg.IsAdmin(tgID)))
}

// failSheet завершает диалог при ошибке хранилища
func (b *Bot) failSheet(ctx context.Context, tgID int64, op string, err error) {
	log.Printf("❌ %s: %v", op, err)
	b.endConv(tgID)
	b.reply(ctx, tgID, msgSheetUnavailable, telegram.NoKeyboard())
	b.showMenu(ctx, tgID)
}

func (b *Bot) myRecord(ctx context.Context, tgID int64) {
	driver, err := b.tables.GetDriver(ctx, tgID)
	if err != nil {
		b.failSheet(ctx, tgID, "my_record", err)
		return
	}
	if driver == nil {
		b.reply(ctx, tgID, "Вы не найдены в drivers.", nil)
		b.showMenu(ctx, tgID)
		return
	}

	dp, err := b.tables.GetDriverPassengers(ctx, tgID)
	if err != nil {
		b.failSheet(ctx, tgID, "my_record", err)
		return
	}

	var msg strings.Builder
	msg.WriteString("🚗 Ваш водитель:\n")
	fmt.Fprintf(&msg, "Name: %s\n", driver.Name)
	fmt.Fprintf(&msg, "Shift: %s\n", driver.Shift.Display())
	fmt.Fprintf(&msg, "Phone: %s\n", driver.Phone)
	fmt.Fprintf(&msg, "Car: %s\n", driver.Car)
	fmt.Fprintf(&msg, "Plates: %s\n\n", driver.Plates)
	msg.WriteString("👥 Пассажиры:\n")
	if dp != nil && len(dp.Passengers) > 0 {
		for _, p := range dp.Passengers {
			fmt.Fprintf(&msg, "- %s\n", p)
		}
	} else {
		msg.WriteString("- (нет)\n")
	}

	b.reply(ctx, tgID, strings.TrimRight(msg.String(), "\n"), nil)
	b.showMenu(ctx, tgID)
}

func (b *Bot) shutdownCmd(ctx context.Context, tgID int64) {
	if !b.cfg.IsAdmin(tgID) {
		b.reply(ctx, tgID, "Нет доступа.", nil)
		b.showMenu(ctx, tgID)
		return
	}
	b.reply(ctx, tgID, "Останавливаюсь ✅", nil)
	log.Printf("🛑 Shutdown по команде администратора %d", tgID)
	b.shutdown()
}

func (b *Bot) forceWeekly(ctx context.Context, tgID int64) {
	if !b.cfg.IsAdmin(tgID) {
		b.reply(ctx, tgID, "Нет доступа.", nil)
		b.showMenu(ctx, tgID)
		return
	}
	if err := b.weekly.RunAll(ctx); err != nil {
		log.Printf("❌ Ручной запуск weekly-проверки: %v", err)
		b.reply(ctx, tgID, msgSheetUnavailable, nil)
		b.showMenu(ctx, tgID)
		return
	}
	b.reply(ctx, tgID, "✅ Weekly-проверка запущена вручную.", nil)
	b.showMenu(ctx, tgID)
}

// protectedOrGeneric сообщение по несработавшим обратным ссылкам
func protectedOrGeneric(failures []assign.StepFailure) string {
	for _, f := range failures {
		if f.Protected() {
			return "⚠️ Не могу обновить данные: таблица защищена от редактирования.\n" +
				"Свяжитесь с администратором для снятия защиты с листа 'employees'."
		}
	}
	var names []string
	for _, f := range failures {
		names = append(names, f.Name)
	}
	return fmt.Sprintf("❌ Ошибка при обновлении записей: %s. Обратитесь к администратору.",
		strings.Join(names, ", "))
}
