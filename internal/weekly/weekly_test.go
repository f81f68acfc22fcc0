package weekly

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/evn/driver_botl/config"
	"github.com/evn/driver_botl/internal/assign"
	"github.com/evn/driver_botl/internal/sheets"
	"github.com/evn/driver_botl/internal/sheets/sheetstest"
	"github.com/evn/driver_botl/internal/state"
	"github.com/evn/driver_botl/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	sunday = time.Date(2025, 1, 5, 12, 0, 0, 0, time.UTC)
	monday = time.Date(2025, 1, 6, 12, 0, 0, 0, time.UTC)
)

type fakeSender struct {
	mu   sync.Mutex
	msgs map[int64][]string
	fail map[int64]error
}

func newFakeSender() *fakeSender {
	return &fakeSender{msgs: make(map[int64][]string), fail: make(map[int64]error)}
}

func (f *fakeSender) Send(_ context.Context, chatID int64, text string, _ interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail[chatID]; err != nil {
		return err
	}
	f.msgs[chatID] = append(f.msgs[chatID], text)
	return nil
}

func (f *fakeSender) sent(chatID int64) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.msgs[chatID]...)
}

func newTestChecker(t *testing.T, timeout time.Duration) (*Checker, *sheets.Manager, *sheetstest.Fake, *state.MemoryStore, *fakeSender) {
	t.Helper()
	st := state.NewMemoryStore()
	c, m, fake, sender := newTestCheckerWith(t, timeout, st)
	return c, m, fake, st, sender
}

func newTestCheckerWith(t *testing.T, timeout time.Duration, st state.Store) (*Checker, *sheets.Manager, *sheetstest.Fake, *fakeSender) {
	t.Helper()
	fake := sheetstest.New()
	fake.SetSheet("drivers", [][]string{
		{"Name", "telegramID", "Phone number", "Shift", "Car", "Plates", "isActive"},
		{"Ivan Ivanov", "111", "", "Day", "", "", "TRUE"},
	})
	fake.SetSheet("employees", [][]string{
		{"Employee", "PhoneNumber", "Shift", "Rides with", "Driver's TGID"},
		{"Ivan Ivanov", "", "Day", "Ivan Ivanov", "111"},
		{"Petr Petrov", "", "Day", "Ivan Ivanov", "111"},
	})
	fake.SetSheet("drivers_passengers", [][]string{
		{"Name", "TGID", "Phone Number", "Shift", "Passenger1", "Passenger2", "Passenger3", "Passenger4"},
		{"Ivan Ivanov", "111", "", "Day", "Petr Petrov", "", "", ""},
	})

	cfg := &config.Config{
		Timezone:               "UTC",
		DriversSheet:           "drivers",
		EmployeesSheet:         "employees",
		DriversPassengersSheet: "drivers_passengers",
		ConfirmationTimeout:    timeout,
	}
	store := sheets.NewStore(fake, sheets.Options{CacheTTL: time.Minute, MaxRetries: 1, RetryDelay: time.Millisecond})
	m := sheets.NewManager(store, cfg)
	sender := newFakeSender()
	c := NewChecker(cfg, m, assign.NewEngine(m, 4), st, sender)
	c.now = func() time.Time { return sunday }
	return c, m, fake, sender
}

func (c *Checker) timerCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

func TestRun_SkipsOutsideSunday(t *testing.T) {
	c, _, _, st, sender := newTestChecker(t, time.Hour)
	c.now = func() time.Time { return monday }

	require.NoError(t, c.Run(context.Background(), models.ShiftDay, false))
	assert.Empty(t, sender.sent(111))
	pending, err := st.AllPending(context.Background())
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestRun_SendsPromptAndArmsPending(t *testing.T) {
	c, _, _, st, sender := newTestChecker(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, c.Run(ctx, models.ShiftDay, false))

	msgs := sender.sent(111)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "Petr Petrov")
	assert.Contains(t, msgs[0], "Да или Нет")

	ok, err := st.HasPending(ctx, 111)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, c.timerCount())

	_, found, err := st.LastWeeklyCheck(ctx, models.ShiftDay)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestHandleReply_IgnoresOtherText(t *testing.T) {
	c, _, _, _, _ := newTestChecker(t, time.Hour)
	assert.False(t, c.HandleReply(context.Background(), 111, "привет"))
}

func TestHandleReply_YesKeepsManifest(t *testing.T) {
	c, m, _, st, _ := newTestChecker(t, time.Hour)
	ctx := context.Background()
	require.NoError(t, c.Run(ctx, models.ShiftDay, true))

	assert.True(t, c.HandleReply(ctx, 111, " Да "))

	dp, err := m.GetDriverPassengers(ctx, 111)
	require.NoError(t, err)
	assert.Equal(t, []string{"Petr Petrov"}, dp.Passengers)

	ok, err := st.HasPending(ctx, 111)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, c.timerCount())
}

func TestHandleReply_NoClearsAndDetaches(t *testing.T) {
	c, m, _, _, _ := newTestChecker(t, time.Hour)
	ctx := context.Background()
	require.NoError(t, c.Run(ctx, models.ShiftDay, true))

	assert.True(t, c.HandleReply(ctx, 111, "нет"))

	dp, err := m.GetDriverPassengers(ctx, 111)
	require.NoError(t, err)
	assert.Empty(t, dp.Passengers)

	petr, err := m.GetEmployeeByName(ctx, "Petr Petrov")
	require.NoError(t, err)
	assert.Equal(t, int64(0), petr.DriverTg)
}

func TestTimeout_ClearsManifest(t *testing.T) {
	c, m, _, st, sender := newTestChecker(t, 30*time.Millisecond)
	ctx := context.Background()
	require.NoError(t, c.Run(ctx, models.ShiftDay, true))

	assert.Eventually(t, func() bool {
		dp, err := m.GetDriverPassengers(ctx, 111)
		return err == nil && dp != nil && len(dp.Passengers) == 0
	}, 2*time.Second, 10*time.Millisecond, "таймаут должен очистить манифест")

	assert.Eventually(t, func() bool {
		for _, msg := range sender.sent(111) {
			if strings.Contains(msg, "⏰") {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)

	ok, err := st.HasPending(ctx, 111)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHandleReply_AfterTimeoutIsNoop(t *testing.T) {
	c, m, _, st, _ := newTestChecker(t, 10*time.Millisecond)
	ctx := context.Background()
	require.NoError(t, c.Run(ctx, models.ShiftDay, true))

	assert.Eventually(t, func() bool {
		dp, err := m.GetDriverPassengers(ctx, 111)
		return err == nil && dp != nil && len(dp.Passengers) == 0
	}, 2*time.Second, 5*time.Millisecond)

	ok, err := st.HasPending(ctx, 111)
	require.NoError(t, err)
	assert.False(t, ok)

	// ответ пришёл после срабатывания таймера: протокол его уже не ждёт
	assert.False(t, c.HandleReply(ctx, 111, "Да"))

	dp, err := m.GetDriverPassengers(ctx, 111)
	require.NoError(t, err)
	assert.Empty(t, dp.Passengers, "повторной записи после таймаута нет")
}

func TestRun_DeliveryFailureSkipsDriver(t *testing.T) {
	c, _, fake, st, sender := newTestChecker(t, time.Hour)
	fake.SetSheet("drivers", [][]string{
		{"Name", "telegramID", "Phone number", "Shift", "Car", "Plates", "isActive"},
		{"Ivan Ivanov", "111", "", "Day", "", "", "TRUE"},
		{"Oleg Orlov", "222", "", "Day", "", "", "TRUE"},
	})
	sender.fail[111] = context.DeadlineExceeded

	ctx := context.Background()
	require.NoError(t, c.Run(ctx, models.ShiftDay, true))

	ok, err := st.HasPending(ctx, 111)
	require.NoError(t, err)
	assert.False(t, ok, "недоставленный prompt не взводит окно подтверждения")

	ok, err = st.HasPending(ctx, 222)
	require.NoError(t, err)
	assert.True(t, ok, "рассылка продолжается после сбоя по одному водителю")
}

// flakyStore MemoryStore, у которого RemovePending можно временно "уронить"
type flakyStore struct {
	*state.MemoryStore
	flakyMu    sync.Mutex
	failRemove bool
}

func (f *flakyStore) setFailRemove(v bool) {
	f.flakyMu.Lock()
	f.failRemove = v
	f.flakyMu.Unlock()
}

func (f *flakyStore) RemovePending(ctx context.Context, tgID int64) (state.Pending, bool, error) {
	f.flakyMu.Lock()
	fail := f.failRemove
	f.flakyMu.Unlock()
	if fail {
		return state.Pending{}, false, errors.New("redis down")
	}
	return f.MemoryStore.RemovePending(ctx, tgID)
}

func TestHandleReply_StateErrorKeepsTimerArmed(t *testing.T) {
	st := &flakyStore{MemoryStore: state.NewMemoryStore()}
	c, m, _, _ := newTestCheckerWith(t, 500*time.Millisecond, st)
	ctx := context.Background()

	require.NoError(t, c.Run(ctx, models.ShiftDay, true))
	require.Equal(t, 1, c.timerCount())

	st.setFailRemove(true)
	assert.False(t, c.HandleReply(ctx, 111, "Да"))
	assert.Equal(t, 1, c.timerCount(), "при сбое хранилища таймер остаётся взведённым")

	// хранилище ожило: зависшее окно разрешается по таймауту, а не живёт вечно
	st.setFailRemove(false)
	assert.Eventually(t, func() bool {
		dp, err := m.GetDriverPassengers(ctx, 111)
		return err == nil && dp != nil && len(dp.Passengers) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRearm_RestoresTimers(t *testing.T) {
	c, _, _, st, _ := newTestChecker(t, time.Hour)
	ctx := context.Background()

	// запись пережила рестарт: окно давно истекло
	require.NoError(t, st.AddPending(ctx, 111, state.Pending{
		ShiftKind: models.ShiftDay,
		CreatedAt: sunday.Add(-2 * time.Hour),
	}))

	require.NoError(t, c.Rearm(ctx))
	assert.Equal(t, 1, c.timerCount())
}

func TestRunAll_CoversBothShifts(t *testing.T) {
	c, _, fake, st, _ := newTestChecker(t, time.Hour)
	fake.SetSheet("drivers", [][]string{
		{"Name", "telegramID", "Phone number", "Shift", "Car", "Plates", "isActive"},
		{"Ivan Ivanov", "111", "", "Day", "", "", "TRUE"},
		{"Nika Nochnaya", "333", "", "Night", "", "", "TRUE"},
	})

	ctx := context.Background()
	require.NoError(t, c.RunAll(ctx))

	for _, id := range []int64{111, 333} {
		ok, err := st.HasPending(ctx, id)
		require.NoError(t, err)
		assert.True(t, ok, "водитель %d", id)
	}
}

func TestParseHHMM(t *testing.T) {
	h, m, err := parseHHMM("07:00")
	require.NoError(t, err)
	assert.Equal(t, 7, h)
	assert.Equal(t, 0, m)

	h, m, err = parseHHMM("19:30")
	require.NoError(t, err)
	assert.Equal(t, 19, h)
	assert.Equal(t, 30, m)

	_, _, err = parseHHMM("abc")
	assert.Error(t, err)
}

func TestNextOccurrence(t *testing.T) {
	now := time.Date(2025, 1, 5, 6, 0, 0, 0, time.UTC)
	next := nextOccurrence(now, 7, 0)
	assert.Equal(t, time.Date(2025, 1, 5, 7, 0, 0, 0, time.UTC), next)

	// время уже прошло сегодня — следующий день
	now = time.Date(2025, 1, 5, 8, 0, 0, 0, time.UTC)
	next = nextOccurrence(now, 7, 0)
	assert.Equal(t, time.Date(2025, 1, 6, 7, 0, 0, 0, time.UTC), next)
}
