// Package dedup guards work that must happen at most once per key and period.
package dedup

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Deduper interface {
	AcquireOnce(ctx context.Context, key string) bool
	// Release forgets key so the work can be retried within the period.
	Release(ctx context.Context, key string)
}

type RedisDeduper struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisDeduper(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisDeduper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisDeduper{rdb: rdb, ttl: ttl, logger: logger}
}

// AcquireOnce returns true the first time key is seen within the TTL.
// A Redis failure allows the work through.
func (d *RedisDeduper) AcquireOnce(ctx context.Context, key string) bool {
	ok, err := d.rdb.SetNX(ctx, "dedup:"+key, 1, d.ttl).Result()
	if err != nil {
		d.logger.Warn("redis dedup check failed, allowing",
			zap.String("dedup_key", key),
			zap.Error(err),
		)
		return true
	}
	if !ok {
		d.logger.Debug("skipped duplicate", zap.String("dedup_key", key))
	}
	return ok
}

func (d *RedisDeduper) Release(ctx context.Context, key string) {
	if err := d.rdb.Del(ctx, "dedup:"+key).Err(); err != nil {
		d.logger.Warn("redis dedup release failed",
			zap.String("dedup_key", key),
			zap.Error(err),
		)
	}
}

// MemoryDeduper is the single-process fallback when Redis is not configured.
type MemoryDeduper struct {
	mu   sync.Mutex
	ttl  time.Duration
	now  func() time.Time
	seen map[string]time.Time
}

func NewMemoryDeduper(ttl time.Duration) *MemoryDeduper {
	return &MemoryDeduper{
		ttl:  ttl,
		now:  time.Now,
		seen: make(map[string]time.Time),
	}
}

func (d *MemoryDeduper) AcquireOnce(_ context.Context, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	for k, expires := range d.seen {
		if !now.Before(expires) {
			delete(d.seen, k)
		}
	}
	if _, ok := d.seen[key]; ok {
		return false
	}
	d.seen[key] = now.Add(d.ttl)
	return true
}

func (d *MemoryDeduper) Release(_ context.Context, key string) {
	d.mu.Lock()
	delete(d.seen, key)
	d.mu.Unlock()
}
