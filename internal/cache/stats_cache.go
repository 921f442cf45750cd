package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"schedule-manager/internal/model"
)

const (
	keyStats   = "stats:category-status:"
	keyVersion = "stats:version:"
)

// StatsCache stores per-user category/status counts in Redis.
type StatsCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStatsCache(rdb *redis.Client, ttl time.Duration) *StatsCache {
	return &StatsCache{rdb: rdb, ttl: ttl}
}

// Get returns cached counts, or nil on a miss.
func (c *StatsCache) Get(ctx context.Context, userID uint) (model.CategoryCounts, error) {
	b, err := c.rdb.Get(ctx, statsKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var counts model.CategoryCounts
	if err := json.Unmarshal(b, &counts); err != nil {
		return nil, err
	}
	return counts, nil
}

// Version returns the user's invalidation counter. Read it before computing
// the counts passed to Set.
func (c *StatsCache) Version(ctx context.Context, userID uint) (int64, error) {
	v, err := c.rdb.Get(ctx, versionKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

// Set stores counts computed at version. The write is skipped when the user
// was invalidated since then.
func (c *StatsCache) Set(ctx context.Context, userID uint, version int64, counts model.CategoryCounts) error {
	b, err := json.Marshal(counts)
	if err != nil {
		return err
	}
	vk := versionKey(userID)
	err = c.rdb.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, vk).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != version {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, statsKey(userID), b, c.ttl)
			return nil
		})
		return err
	}, vk)
	if errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	return err
}

// Invalidate drops the cached counts and bumps the version so that writes
// computed before this call are discarded.
func (c *StatsCache) Invalidate(ctx context.Context, userID uint) error {
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, versionKey(userID))
		pipe.Del(ctx, statsKey(userID))
		return nil
	})
	return err
}

func statsKey(userID uint) string {
	return keyStats + strconv.FormatUint(uint64(userID), 10)
}

func versionKey(userID uint) string {
	return keyVersion + strconv.FormatUint(uint64(userID), 10)
}
