// internal/state/redis.go
package state

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/evn/driver_botl/models"
)

const (
	pendingKeyPrefix = "weekly:pending:"
	lastCheckPrefix  = "weekly:last:"
)

// RedisStore Store поверх Redis
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func pendingKey(tgID int64) string {
	return pendingKeyPrefix + strconv.FormatInt(tgID, 10)
}

func (r *RedisStore) AddPending(ctx context.Context, tgID int64, p Pending) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, pendingKey(tgID), data, 0).Err()
}

func (r *RedisStore) RemovePending(ctx context.Context, tgID int64) (Pending, bool, error) {
	data, err := r.client.GetDel(ctx, pendingKey(tgID)).Bytes()
	if err == redis.Nil {
		return Pending{}, false, nil
	}
	if err != nil {
		return Pending{}, false, err
	}
	var p Pending
	if err := json.Unmarshal(data, &p); err != nil {
		// битая запись не должна ронять протокол: считаем её пустой
		log.Printf("⚠️ Битая запись pending для %d: %v", tgID, err)
		return Pending{}, true, nil
	}
	return p, true, nil
}

func (r *RedisStore) HasPending(ctx context.Context, tgID int64) (bool, error) {
	n, err := r.client.Exists(ctx, pendingKey(tgID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *RedisStore) AllPending(ctx context.Context) (map[int64]Pending, error) {
	keys, err := r.client.Keys(ctx, pendingKeyPrefix+"*").Result()
	if err != nil {
		return nil, err
	}

	pending := make(map[int64]Pending, len(keys))
	for _, key := range keys {
		tgID, err := strconv.ParseInt(strings.TrimPrefix(key, pendingKeyPrefix), 10, 64)
		if err != nil {
			continue
		}
		data, err := r.client.Get(ctx, key).Bytes()
		if err != nil {
			continue
		}
		var p Pending
		if err := json.Unmarshal(data, &p); err != nil {
			log.Printf("⚠️ Битая запись pending для %d: %v", tgID, err)
			continue
		}
		pending[tgID] = p
	}
	return pending, nil
}

func (r *RedisStore) SetLastWeeklyCheck(ctx context.Context, kind models.Shift, t time.Time) error {
	return r.client.Set(ctx, lastCheckPrefix+string(kind), t.UTC().Format(time.RFC3339), 0).Err()
}

func (r *RedisStore) LastWeeklyCheck(ctx context.Context, kind models.Shift) (time.Time, bool, error) {
	raw, err := r.client.Get(ctx, lastCheckPrefix+string(kind)).Result()
	if err == redis.Nil {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("битая метка last_weekly_check: %w", err)
	}
	return t, true, nil
}
