// internal/sheets/store.go
package sheets

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/evn/driver_botl/models"
	"google.golang.org/api/googleapi"
)

// Options параметры кэша и ретраев
type Options struct {
	CacheTTL       time.Duration
	MaxRetries     int
	RetryDelay     time.Duration // базовая задержка обычных ретраев
	RateLimitDelay time.Duration // базовая задержка при rate limit
	RateLimitCap   time.Duration
}

// DefaultOptions значения как в проде: TTL 30с, задержки 2с и 10с (cap 60с)
func DefaultOptions() Options {
	return Options{
		CacheTTL:       30 * time.Second,
		MaxRetries:     3,
		RetryDelay:     2 * time.Second,
		RateLimitDelay: 10 * time.Second,
		RateLimitCap:   60 * time.Second,
	}
}

type cacheEntry struct {
	rows      [][]string
	fetchedAt time.Time
}

// Store доступ к листам таблицы с TTL-кэшем, инвалидацией при записи и
// ретраями при временных ошибках бэкенда
type Store struct {
	backend Backend
	opts    Options

	mu    sync.Mutex
	cache map[string]cacheEntry
}

// NewStore создает Store поверх бэкенда
func NewStore(backend Backend, opts Options) *Store {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 1
	}
	return &Store{
		backend: backend,
		opts:    opts,
		cache:   make(map[string]cacheEntry),
	}
}

// FetchTable возвращает все строки листа (заголовок + данные). Если кэшу
// меньше TTL — отдаёт кэш, иначе читает бэкенд и атомарно заменяет запись.
func (s *Store) FetchTable(ctx context.Context, sheet string) ([][]string, error) {
	s.mu.Lock()
	if entry, ok := s.cache[sheet]; ok && time.Since(entry.fetchedAt) < s.opts.CacheTTL {
		rows := entry.rows
		s.mu.Unlock()
		return rows, nil
	}
	s.mu.Unlock()

	rows, err := s.fetchWithRetry(ctx, sheet)
	if err != nil {
		return nil, models.NewSheetError("fetch "+sheet, err)
	}

	s.mu.Lock()
	s.cache[sheet] = cacheEntry{rows: rows, fetchedAt: time.Now()}
	s.mu.Unlock()

	return rows, nil
}

// Invalidate сбрасывает кэш листа. Каждая запись обязана вызвать это
// синхронно до того, как читатель может рассчитывать увидеть её.
func (s *Store) Invalidate(sheet string) {
	s.mu.Lock()
	delete(s.cache, sheet)
	s.mu.Unlock()
}

// WriteRow перезаписывает строку листа целиком
func (s *Store) WriteRow(ctx context.Context, sheet string, rowIndex int, values []string) error {
	defer s.Invalidate(sheet)
	if err := s.backend.UpdateRange(ctx, rowRange(sheet, rowIndex, len(values)), [][]string{values}); err != nil {
		return models.NewSheetError("update "+sheet, classify(err))
	}
	return nil
}

// AppendRow добавляет строку в конец листа
func (s *Store) AppendRow(ctx context.Context, sheet string, values []string) error {
	defer s.Invalidate(sheet)
	if err := s.backend.AppendRow(ctx, sheet, values); err != nil {
		return models.NewSheetError("append "+sheet, classify(err))
	}
	return nil
}

// BatchUpdateCells точечные записи ячеек одним запросом. Кэши всех
// затронутых листов сбрасываются независимо от исхода.
func (s *Store) BatchUpdateCells(ctx context.Context, sheet string, updates []CellUpdate) error {
	defer s.Invalidate(sheet)
	if len(updates) == 0 {
		return nil
	}
	if err := s.backend.BatchUpdate(ctx, updates); err != nil {
		return models.NewSheetError("batch update "+sheet, classify(err))
	}
	return nil
}

func (s *Store) fetchWithRetry(ctx context.Context, sheet string) ([][]string, error) {
	var lastErr error
	for attempt := 0; attempt < s.opts.MaxRetries; attempt++ {
		rows, err := s.backend.GetValues(ctx, sheet)
		if err == nil {
			return rows, nil
		}
		lastErr = classify(err)

		if errors.Is(lastErr, models.ErrSheetNotFound) {
			return nil, lastErr
		}
		if attempt == s.opts.MaxRetries-1 {
			break
		}

		var delay time.Duration
		if isRateLimited(err) {
			delay = s.opts.RateLimitDelay * (1 << attempt)
			if delay > s.opts.RateLimitCap {
				delay = s.opts.RateLimitCap
			}
		} else {
			delay = s.opts.RetryDelay * (1 << attempt)
		}

		log.Printf("⚠️ Чтение листа %s не удалось (попытка %d), повтор через %s: %v",
			sheet, attempt+1, delay, err)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

// classify переводит ошибки Google API в доменные
func classify(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 403:
			return models.ErrSheetProtected
		case 404:
			return models.ErrSheetNotFound
		}
	}
	return err
}

func isRateLimited(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == 429
}
