// internal/state/memory.go
package state

import (
	"context"
	"sync"
	"time"

	"github.com/evn/driver_botl/models"
)

// MemoryStore Store в памяти: для тестов и запуска без Redis
type MemoryStore struct {
	mu      sync.Mutex
	pending map[int64]Pending
	checks  map[models.Shift]time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		pending: make(map[int64]Pending),
		checks:  make(map[models.Shift]time.Time),
	}
}

func (m *MemoryStore) AddPending(_ context.Context, tgID int64, p Pending) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending[tgID] = p
	return nil
}

func (m *MemoryStore) RemovePending(_ context.Context, tgID int64) (Pending, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pending[tgID]
	delete(m.pending, tgID)
	return p, ok, nil
}

func (m *MemoryStore) HasPending(_ context.Context, tgID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.pending[tgID]
	return ok, nil
}

func (m *MemoryStore) AllPending(_ context.Context) (map[int64]Pending, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[int64]Pending, len(m.pending))
	for k, v := range m.pending {
		out[k] = v
	}
	return out, nil
}

func (m *MemoryStore) SetLastWeeklyCheck(_ context.Context, kind models.Shift, t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checks[kind] = t
	return nil
}

func (m *MemoryStore) LastWeeklyCheck(_ context.Context, kind models.Shift) (time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.checks[kind]
	return t, ok, nil
}
