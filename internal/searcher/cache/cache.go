// Package cache keeps search results in Redis. Keys combine the catalog
// generation with a digest of the compiled query, so a catalog mutation
// makes every older entry unreachable even before Invalidate runs.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/pirex/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/pirex/internal/searcher/query"
	pkgredis "github.com/Adithya-Monish-Kumar-K/pirex/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/pirex/pkg/resilience"
)

const keyPrefix = "pirex:search:"

// Store is the subset of the Redis client the cache needs.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

type QueryCache struct {
	store   Store
	ttl     time.Duration
	breaker *resilience.CircuitBreaker
	group   singleflight.Group
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// New wraps store. A nil breaker lets every call through.
func New(store Store, ttl time.Duration, breaker *resilience.CircuitBreaker) *QueryCache {
	return &QueryCache{
		store:   store,
		ttl:     ttl,
		breaker: breaker,
		logger:  slog.Default().With("component", "query-cache"),
	}
}

// Key derives the cache key for q against catalog generation gen.
func Key(q *query.Query, gen uint64, limit int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "advanced=%t|limit=%d", q.Advanced, limit)
	for _, t := range q.Tokens {
		fmt.Fprintf(&b, "|%s:%q", t.Kind, t.Text)
	}
	hash := sha256.Sum256([]byte(b.String()))
	return fmt.Sprintf("%sg%d:%x", keyPrefix, gen, hash[:16])
}

func (c *QueryCache) Get(ctx context.Context, key string) (*executor.SearchResult, bool) {
	var data string
	err := c.guard(func() error {
		var err error
		data, err = c.store.Get(ctx, key)
		if pkgredis.IsNilError(err) {
			return nil
		}
		return err
	})
	if err != nil {
		if !errors.Is(err, resilience.ErrCircuitOpen) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.misses.Add(1)
		return nil, false
	}
	if data == "" {
		c.misses.Add(1)
		return nil, false
	}
	var result executor.SearchResult
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	c.logger.Debug("cache hit", "key", key)
	return &result, true
}

func (c *QueryCache) Set(ctx context.Context, key string, result *executor.SearchResult) {
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	err = c.guard(func() error { return c.store.Set(ctx, key, data, c.ttl) })
	if err != nil && !errors.Is(err, resilience.ErrCircuitOpen) {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached result for key or computes, stores and
// returns it. Concurrent misses on one key share a single computation.
// Errors from compute are returned and not cached.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	key string,
	compute func() (*executor.SearchResult, error),
) (*executor.SearchResult, bool, error) {
	if result, ok := c.Get(ctx, key); ok {
		return result, true, nil
	}
	val, err, _ := c.group.Do(key, func() (any, error) {
		result, err := compute()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, key, result)
		return result, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*executor.SearchResult), false, nil
}

// Invalidate deletes every cached search result.
func (c *QueryCache) Invalidate(ctx context.Context) (int64, error) {
	var deleted int64
	err := c.guard(func() error {
		var err error
		deleted, err = c.store.FlushByPattern(ctx, keyPrefix+"*")
		return err
	})
	if err != nil {
		return deleted, fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return deleted, nil
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *QueryCache) guard(fn func() error) error {
	if c.breaker == nil {
		return fn()
	}
	return c.breaker.Execute(fn)
}
