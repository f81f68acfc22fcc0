// internal/handlers/passengers.go
package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/evn/driver_botl/internal/assign"
	"github.com/evn/driver_botl/internal/telegram"
	"github.com/evn/driver_botl/models"
)

func (b *Bot) passengersStart(ctx context.Context, tgID int64, conv *conversation) {
	driver, err := b.tables.GetDriver(ctx, tgID)
	if err != nil {
		b.failSheet(ctx, tgID, "passengers_start", err)
		return
	}
	if driver == nil {
		b.reply(ctx, tgID, "Вы не водитель. Сначала добавьте себя.", nil)
		b.showMenu(ctx, tgID)
		return
	}

	*conv = conversation{step: stepPassInput}
	b.reply(ctx, tgID, fmt.Sprintf(
		"Напиши имена пассажиров НА АНГЛИЙСКОМ (до %d), каждого с новой строки:\n\n"+
			"ПРИМЕР:\nIvan Ivanov\nPetr Petrov", b.cfg.MaxPassengers),
		telegram.NoKeyboard())
}

func (b *Bot) passengersInput(ctx context.Context, tgID int64, conv *conversation, text string) {
	driver, err := b.tables.GetDriver(ctx, tgID)
	if err != nil {
		b.failSheet(ctx, tgID, "passengers_input", err)
		return
	}
	if driver == nil {
		b.endConv(tgID)
		b.reply(ctx, tgID, "Вы не водитель. Сначала добавьте себя.", nil)
		b.showMenu(ctx, tgID)
		return
	}

	names := splitNames(text)
	if len(names) == 0 {
		b.reply(ctx, tgID, "Пусто. Введите имена.", nil)
		return
	}
	if len(names) > b.cfg.MaxPassengers {
		b.reply(ctx, tgID, fmt.Sprintf("Максимум %d пассажира.", b.cfg.MaxPassengers), nil)
		return
	}

	accepted, rejected, err := b.engine.ValidatePassengers(ctx, *driver, names)
	if err != nil {
		b.failSheet(ctx, tgID, "validate_passengers", err)
		return
	}
	// партия принимается только целиком
	if len(rejected) > 0 {
		var reasons []string
		for _, r := range rejected {
			reasons = append(reasons, r.Reason)
		}
		b.reply(ctx, tgID, strings.Join(reasons, "\n\n"), nil)
		b.reply(ctx, tgID, "Попробуй снова", nil)
		return
	}

	acceptedNames := make([]string, len(accepted))
	for i, emp := range accepted {
		acceptedNames[i] = emp.Name
	}

	result, err := b.engine.Assign(ctx, *driver, acceptedNames)
	if errors.Is(err, assign.ErrTooManyPassengers) {
		b.reply(ctx, tgID, fmt.Sprintf("Максимум %d пассажира.", b.cfg.MaxPassengers), nil)
		return
	}
	if err != nil {
		b.failSheet(ctx, tgID, "assign", err)
		return
	}

	b.endConv(tgID)
	if len(result.Failures) > 0 {
		b.reply(ctx, tgID, protectedOrGeneric(result.Failures), nil)
		b.showMenu(ctx, tgID)
		return
	}

	b.reply(ctx, tgID, "✅ Пассажиры добавлены.", nil)
	log.Printf("Пассажиры водителя %s (%d) обновлены: %v", driver.Name, driver.TgID, result.Merged)
	b.showMenu(ctx, tgID)
}

// splitNames режет ввод по запятым и переводам строк, убирая дубли
// с сохранением порядка
func splitNames(raw string) []string {
	parts := strings.Split(strings.ReplaceAll(raw, "\n", ","), ",")
	seen := make(map[string]bool)
	var names []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		key := models.Normalize(p)
		if seen[key] {
			continue
		}
		seen[key] = true
		names = append(names, p)
	}
	return names
}

func failureOf(name string, err error) []assign.StepFailure {
	return []assign.StepFailure{{Step: "self backref", Name: name, Err: err}}
}
