// internal/weekly/weekly.go
package weekly

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/evn/driver_botl/config"
	"github.com/evn/driver_botl/internal/assign"
	"github.com/evn/driver_botl/internal/sheets"
	"github.com/evn/driver_botl/internal/state"
	"github.com/evn/driver_botl/internal/telegram"
	"github.com/evn/driver_botl/models"
)

// Checker еженедельная сверка: рассылка "возишь ли тех же людей?" по смене,
// таймер на ответ и очистка манифеста при отказе или молчании.
// Состояние ожидания живёт в durable-хранилище; таймеры — в процессе,
// после рестарта перевзводятся из сохранённых меток времени.
type Checker struct {
	cfg    *config.Config
	tables *sheets.Manager
	engine *assign.Engine
	state  state.Store
	sender telegram.Sender

	loc *time.Location
	now func() time.Time

	mu     sync.Mutex
	timers map[int64]*time.Timer
}

// NewChecker собирает Checker; все зависимости внедряются явно
func NewChecker(cfg *config.Config, tables *sheets.Manager, engine *assign.Engine, st state.Store, sender telegram.Sender) *Checker {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Printf("⚠️ Не удалось загрузить таймзону %s, использую UTC: %v", cfg.Timezone, err)
		loc = time.UTC
	}
	return &Checker{
		cfg:    cfg,
		tables: tables,
		engine: engine,
		state:  st,
		sender: sender,
		loc:    loc,
		now:    time.Now,
		timers: make(map[int64]*time.Timer),
	}
}

// Run прогоняет сверку для одной смены. Не forced запуски выполняются
// только по воскресеньям. Ошибка по одному водителю не прерывает рассылку.
func (c *Checker) Run(ctx context.Context, kind models.Shift, forced bool) error {
	nowLocal := c.now().In(c.loc)
	if !forced && nowLocal.Weekday() != time.Sunday {
		log.Printf("Weekly-проверка (%s) пропущена: сегодня не воскресенье (%s, %s)",
			kind, nowLocal.Format("2006-01-02"), c.cfg.Timezone)
		return nil
	}

	drivers, err := c.tables.GetDriversForShift(ctx, kind)
	if err != nil {
		return err
	}

	for _, driver := range drivers {
		dp, err := c.tables.GetDriverPassengers(ctx, driver.TgID)
		if err != nil {
			log.Printf("❌ Weekly: не прочитал пассажиров водителя %d, пропускаю: %v", driver.TgID, err)
			continue
		}
		var passengers []string
		if dp != nil {
			passengers = dp.Passengers
		}

		if err := c.sender.Send(ctx, driver.TgID, c.composePrompt(passengers), telegram.YesNoKeyboard()); err != nil {
			log.Printf("❌ Weekly: не доставил водителю %s (%d): %v", driver.Name, driver.TgID, err)
			continue
		}

		if err := c.state.AddPending(ctx, driver.TgID, state.Pending{ShiftKind: kind, CreatedAt: c.now().UTC()}); err != nil {
			log.Printf("❌ Weekly: не сохранил pending для %d, таймер не взвожу: %v", driver.TgID, err)
			continue
		}
		c.armTimer(driver.TgID, c.cfg.ConfirmationTimeout)

		log.Printf("Weekly-проверка отправлена водителю %s (%d)", driver.Name, driver.TgID)
	}

	if err := c.state.SetLastWeeklyCheck(ctx, kind, c.now().UTC()); err != nil {
		log.Printf("❌ Weekly: метка последнего прогона (%s) не записана: %v", kind, err)
	}
	return nil
}

// RunAll форсированный запуск обеих смен (админская операция)
func (c *Checker) RunAll(ctx context.Context) error {
	var firstErr error
	for _, kind := range []models.Shift{models.ShiftDay, models.ShiftNight} {
		if err := c.Run(ctx, kind, true); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (c *Checker) composePrompt(passengers []string) string {
	var b strings.Builder
	b.WriteString("Еженедельная проверка 🚘\n\nТекущие пассажиры:\n")
	if len(passengers) > 0 {
		for _, p := range passengers {
			fmt.Fprintf(&b, "• %s\n", p)
		}
	} else {
		b.WriteString("— (пассажиров нет)\n")
	}
	fmt.Fprintf(&b, "\nТы всё ещё возишь этих же людей?\nОтветь: Да или Нет\n")
	fmt.Fprintf(&b, "Если не ответишь за %d минут — запись будет очищена.",
		int(c.cfg.ConfirmationTimeout.Minutes()))
	return b.String()
}

// HandleReply обрабатывает "Да"/"Нет". Возвращает true, если сообщение
// поглощено протоколом; иначе оно уходит в обычную маршрутизацию.
// Ответ после сработавшего таймаута — no-op: pending уже снят.
func (c *Checker) HandleReply(ctx context.Context, tgID int64, text string) bool {
	answer := models.Normalize(text)
	if answer != "да" && answer != "нет" {
		return false
	}

	// таймер снимается только после успешного снятия pending: если
	// хранилище недоступно, окно всё равно разрешится по таймауту
	_, ok, err := c.state.RemovePending(ctx, tgID)
	if err != nil {
		log.Printf("❌ Weekly: чтение pending для %d: %v", tgID, err)
		return false
	}
	if !ok {
		return false
	}
	c.cancelTimer(tgID)

	if answer == "да" {
		if err := c.sender.Send(ctx, tgID, "✅ Ок, ничего не меняю.", telegram.NoKeyboard()); err != nil {
			log.Printf("❌ Weekly: ответ водителю %d не доставлен: %v", tgID, err)
		}
		log.Printf("Weekly-проверка подтверждена водителем %d", tgID)
		return true
	}

	if err := c.clearAndDetach(ctx, tgID); err != nil {
		log.Printf("❌ Weekly: очистка по 'Нет' для %d: %v", tgID, err)
		if err := c.sender.Send(ctx, tgID, "⚠️ Ошибка очистки. Обратитесь к менеджеру.", telegram.NoKeyboard()); err != nil {
			log.Printf("❌ Weekly: ответ водителю %d не доставлен: %v", tgID, err)
		}
		return true
	}
	if err := c.sender.Send(ctx, tgID, "✅ Ок, запись очищена.", telegram.NoKeyboard()); err != nil {
		log.Printf("❌ Weekly: ответ водителю %d не доставлен: %v", tgID, err)
	}
	log.Printf("Weekly-проверка: водитель %d ответил 'Нет', запись очищена", tgID)
	return true
}

// timeout срабатывает по таймеру. Если водитель уже ответил (pending снят),
// ничего не делает.
func (c *Checker) timeout(tgID int64) {
	ctx := context.Background()

	c.mu.Lock()
	delete(c.timers, tgID)
	c.mu.Unlock()

	_, ok, err := c.state.RemovePending(ctx, tgID)
	if err != nil {
		log.Printf("❌ Weekly: таймаут для %d, чтение pending: %v", tgID, err)
		return
	}
	if !ok {
		return
	}

	if err := c.clearAndDetach(ctx, tgID); err != nil {
		log.Printf("❌ Weekly: таймаут для %d, очистка: %v", tgID, err)
		return
	}

	text := fmt.Sprintf("⏰ %d минут прошло — я очистил запись пассажиров. "+
		"Если нужно — укажи заново кнопкой «%s».",
		int(c.cfg.ConfirmationTimeout.Minutes()), telegram.BtnPassengers)
	if err := c.sender.Send(ctx, tgID, text, nil); err != nil {
		log.Printf("❌ Weekly: уведомление о таймауте водителю %d не доставлено: %v", tgID, err)
	}
	log.Printf("Weekly-таймаут: пассажиры водителя %d очищены", tgID)
}

func (c *Checker) clearAndDetach(ctx context.Context, tgID int64) error {
	_, err := c.engine.ClearAll(ctx, tgID)
	return err
}

// Rearm перевзводит таймеры из сохранённых pending-записей после рестарта.
// Уже истёкшие окна получают минуту форы вместо синхронной очистки на старте.
func (c *Checker) Rearm(ctx context.Context) error {
	pending, err := c.state.AllPending(ctx)
	if err != nil {
		return err
	}
	for tgID, p := range pending {
		remaining := c.cfg.ConfirmationTimeout - c.now().UTC().Sub(p.CreatedAt)
		if remaining < time.Minute {
			remaining = time.Minute
		}
		c.armTimer(tgID, remaining)
		log.Printf("Weekly: перевзвёл таймер водителя %d, осталось %s", tgID, remaining)
	}
	return nil
}

func (c *Checker) armTimer(tgID int64, d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.timers[tgID]; ok {
		t.Stop()
	}
	c.timers[tgID] = time.AfterFunc(d, func() { c.timeout(tgID) })
}

func (c *Checker) cancelTimer(tgID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.timers[tgID]; ok {
		t.Stop()
		delete(c.timers, tgID)
	}
}
