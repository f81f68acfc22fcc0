// internal/state/state.go
package state

import (
	"context"
	"time"

	"github.com/evn/driver_botl/models"
)

// Pending ожидаемое подтверждение от водителя после weekly-рассылки
type Pending struct {
	ShiftKind models.Shift `json:"shift_kind"`
	CreatedAt time.Time    `json:"timestamp"`
}

// Store долговечное состояние протокола подтверждений. Каждая мутация
// пишется синхронно, чтобы окно подтверждения переживало рестарт процесса.
type Store interface {
	AddPending(ctx context.Context, tgID int64, p Pending) error
	// RemovePending удаляет и возвращает запись; ok=false если её не было
	RemovePending(ctx context.Context, tgID int64) (Pending, bool, error)
	HasPending(ctx context.Context, tgID int64) (bool, error)
	AllPending(ctx context.Context) (map[int64]Pending, error)

	SetLastWeeklyCheck(ctx context.Context, kind models.Shift, t time.Time) error
	LastWeeklyCheck(ctx context.Context, kind models.Shift) (time.Time, bool, error)
}
