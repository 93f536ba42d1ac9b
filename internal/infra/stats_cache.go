package infra

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const statsKeyPrefix = "stats:"

// StatsKey is the cache key of one statistics range of a tenant at a cache
// generation. Entries of older generations are never read again and age out
// through their TTL.
func StatsKey(tenantID string, gen int64, from, to string) string {
	return fmt.Sprintf("%s%s:%d:%s:%s", statsKeyPrefix, tenantID, gen, from, to)
}

func statsGenKey(tenantID string) string {
	return statsKeyPrefix + "gen:" + tenantID
}

// StatsCache stores serialized statistics in Redis behind a circuit breaker.
// A cache miss is not a breaker failure.
type StatsCache struct {
	rdb *redis.Client
	cb  *CircuitBreaker
}

func NewStatsCache(rdb *redis.Client, cb *CircuitBreaker) *StatsCache {
	if cb == nil {
		cb = NewCircuitBreaker(DefaultCBConfig())
	}
	return &StatsCache{rdb: rdb, cb: cb}
}

// Get returns the cached value and whether it was present.
func (c *StatsCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var val []byte
	hit := false
	err := c.cb.Execute(func() error {
		b, err := c.rdb.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}
		val, hit = b, true
		return nil
	})
	return val, hit, err
}

func (c *StatsCache) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	return c.cb.Execute(func() error {
		return c.rdb.Set(ctx, key, val, ttl).Err()
	})
}

// Generation returns the tenant's current cache generation, 0 before the
// first invalidation.
func (c *StatsCache) Generation(ctx context.Context, tenantID string) (int64, error) {
	var gen int64
	err := c.cb.Execute(func() error {
		n, err := c.rdb.Get(ctx, statsGenKey(tenantID)).Int64()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		gen = n
		return err
	})
	return gen, err
}

// InvalidateTenant moves the tenant to a new cache generation and returns it.
// A value computed before the bump is written under the old generation, so
// it cannot shadow the ledger change that triggered the bump.
func (c *StatsCache) InvalidateTenant(ctx context.Context, tenantID string) (int64, error) {
	var gen int64
	err := c.cb.Execute(func() error {
		n, err := c.rdb.Incr(ctx, statsGenKey(tenantID)).Result()
		gen = n
		return err
	})
	return gen, err
}
