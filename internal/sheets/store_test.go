package sheets_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/evn/driver_botl/internal/sheets"
	"github.com/evn/driver_botl/internal/sheets/sheetstest"
	"github.com/evn/driver_botl/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
)

func testOptions() sheets.Options {
	return sheets.Options{
		CacheTTL:       time.Minute,
		MaxRetries:     3,
		RetryDelay:     time.Millisecond,
		RateLimitDelay: time.Millisecond,
		RateLimitCap:   10 * time.Millisecond,
	}
}

func TestFetchTable_ServesFromCache(t *testing.T) {
	fake := sheetstest.New()
	fake.SetSheet("drivers", [][]string{{"Name"}, {"Ivan"}})
	store := sheets.NewStore(fake, testOptions())

	ctx := context.Background()
	rows, err := store.FetchTable(ctx, "drivers")
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	_, err = store.FetchTable(ctx, "drivers")
	require.NoError(t, err)
	assert.Equal(t, 1, fake.GetCalls("drivers"), "второе чтение идёт из кэша")
}

func TestFetchTable_ExpiredTTLRefetches(t *testing.T) {
	fake := sheetstest.New()
	fake.SetSheet("drivers", [][]string{{"Name"}, {"Ivan"}})
	opts := testOptions()
	opts.CacheTTL = 10 * time.Millisecond
	store := sheets.NewStore(fake, opts)

	ctx := context.Background()
	_, err := store.FetchTable(ctx, "drivers")
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	_, err = store.FetchTable(ctx, "drivers")
	require.NoError(t, err)
	assert.Equal(t, 2, fake.GetCalls("drivers"))
}

func TestWriteInvalidatesCacheSynchronously(t *testing.T) {
	fake := sheetstest.New()
	fake.SetSheet("drivers", [][]string{{"Name"}, {"Ivan"}})
	store := sheets.NewStore(fake, testOptions())

	ctx := context.Background()
	_, err := store.FetchTable(ctx, "drivers")
	require.NoError(t, err)

	require.NoError(t, store.WriteRow(ctx, "drivers", 2, []string{"Petr"}))

	rows, err := store.FetchTable(ctx, "drivers")
	require.NoError(t, err)
	assert.Equal(t, "Petr", rows[1][0], "чтение сразу после записи видит новое значение")
	assert.Equal(t, 2, fake.GetCalls("drivers"))
}

func TestFetchTable_RetriesRateLimit(t *testing.T) {
	fake := sheetstest.New()
	fake.SetSheet("drivers", [][]string{{"Name"}, {"Ivan"}})
	fake.QueueGetError("drivers",
		&googleapi.Error{Code: 429, Message: "rate limit"},
		&googleapi.Error{Code: 429, Message: "rate limit"},
	)
	store := sheets.NewStore(fake, testOptions())

	rows, err := store.FetchTable(context.Background(), "drivers")
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.Equal(t, 3, fake.GetCalls("drivers"))
}

func TestFetchTable_NotFoundIsNotRetried(t *testing.T) {
	fake := sheetstest.New()
	fake.QueueGetError("ghost", &googleapi.Error{Code: 404, Message: "not found"})
	store := sheets.NewStore(fake, testOptions())

	_, err := store.FetchTable(context.Background(), "ghost")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrSheetNotFound)
	assert.Equal(t, 1, fake.GetCalls("ghost"))
}

func TestFetchTable_ExhaustedRetries(t *testing.T) {
	fake := sheetstest.New()
	fake.QueueGetError("drivers",
		errors.New("boom"), errors.New("boom"), errors.New("boom"))
	store := sheets.NewStore(fake, testOptions())

	_, err := store.FetchTable(context.Background(), "drivers")
	require.Error(t, err)

	var se *models.SheetError
	assert.ErrorAs(t, err, &se)
	assert.Equal(t, 3, fake.GetCalls("drivers"))
}

func TestWriteRow_ProtectedSheet(t *testing.T) {
	fake := sheetstest.New()
	fake.SetSheet("employees", [][]string{{"Name"}, {"Ivan"}})
	fake.FailRange("employees!", &googleapi.Error{Code: 403, Message: "protected"})
	store := sheets.NewStore(fake, testOptions())

	err := store.WriteRow(context.Background(), "employees", 2, []string{"Petr"})
	assert.ErrorIs(t, err, models.ErrSheetProtected)
}

func TestBatchUpdateCells_EmptyIsNoop(t *testing.T) {
	fake := sheetstest.New()
	store := sheets.NewStore(fake, testOptions())
	assert.NoError(t, store.BatchUpdateCells(context.Background(), "drivers", nil))
}
