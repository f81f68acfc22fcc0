// internal/handlers/delete.go
package handlers

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/evn/driver_botl/internal/telegram"
	"github.com/evn/driver_botl/models"
)

func (b *Bot) deleteStart(ctx context.Context, tgID int64, conv *conversation) {
	driver, err := b.tables.GetDriver(ctx, tgID)
	if err != nil {
		b.failSheet(ctx, tgID, "delete_start", err)
		return
	}
	if driver == nil {
		b.reply(ctx, tgID, "Вы не водитель. Сначала добавьте себя.", nil)
		b.showMenu(ctx, tgID)
		return
	}

	dp, err := b.tables.GetDriverPassengers(ctx, tgID)
	if err != nil {
		b.failSheet(ctx, tgID, "delete_start", err)
		return
	}
	if dp == nil || len(dp.Passengers) == 0 {
		b.reply(ctx, tgID, "У вас нет пассажиров для удаления.", nil)
		b.showMenu(ctx, tgID)
		return
	}

	*conv = conversation{step: stepDelInput, passengers: dp.Passengers}

	var msg strings.Builder
	msg.WriteString("Ваши пассажиры:\n")
	for _, p := range dp.Passengers {
		fmt.Fprintf(&msg, "- %s\n", p)
	}
	msg.WriteString("\nВведите имя пассажира для удаления:")
	b.reply(ctx, tgID, msg.String(), telegram.NoKeyboard())
}

func (b *Bot) deleteInput(ctx context.Context, tgID int64, conv *conversation, text string) {
	if text == "" {
		b.reply(ctx, tgID, "Пусто. Введите имя пассажира:", nil)
		return
	}

	key := models.Normalize(text)
	known := false
	for _, p := range conv.passengers {
		if models.Normalize(p) == key {
			known = true
			break
		}
	}
	if !known {
		b.reply(ctx, tgID, "Пассажир не найден в вашем списке. Введите точное имя ещё раз.", nil)
		return
	}

	removed, err := b.engine.Remove(ctx, tgID, text)
	if err != nil {
		b.failSheet(ctx, tgID, "delete_input", err)
		return
	}
	if !removed {
		b.reply(ctx, tgID, "Не смог найти пассажира. Попробуйте ещё раз.", nil)
		return
	}

	b.endConv(tgID)
	b.reply(ctx, tgID, "✅ Пассажир удалён.", nil)
	log.Printf("Пассажир %s откреплён от водителя %d", text, tgID)
	b.showMenu(ctx, tgID)
}
