// Package cache stores query results in Redis, keyed by the parsed query's
// canonical form. Concurrent misses for one key are collapsed with
// singleflight, and a circuit breaker stops calling Redis while it is down.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/minisearch/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/minisearch/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/minisearch/pkg/resilience"
	"golang.org/x/sync/singleflight"
)

const (
	keyPrefix   = "minisearch:q:"
	breakerName = "redis-query-cache"
)

// Store is the subset of the Redis client the cache uses.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

type QueryCache struct {
	store   Store
	ttl     time.Duration
	breaker *resilience.CircuitBreaker
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// New creates a QueryCache. m may be nil.
func New(store Store, ttl time.Duration, m *metrics.Metrics) *QueryCache {
	c := &QueryCache{
		store:   store,
		ttl:     ttl,
		metrics: m,
		logger:  slog.Default().With("component", "query-cache"),
	}
	cfg := resilience.CircuitBreakerConfig{
		FailureThreshold: 5,
		ResetTimeout:     30 * time.Second,
	}
	if m != nil {
		m.CircuitBreakerState.WithLabelValues(breakerName).Set(float64(resilience.StateClosed))
		cfg.OnStateChange = func(name string, _, to resilience.State) {
			m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
		}
	}
	c.breaker = resilience.NewCircuitBreaker(breakerName, cfg)
	return c
}

// Get returns the cached result for q. Redis errors count as misses.
func (c *QueryCache) Get(ctx context.Context, q parser.Query) ([]uint32, bool) {
	key := BuildKey(q)
	var data string
	var found bool
	err := c.call(func() error {
		v, err := c.store.Get(ctx, key)
		if pkgredis.IsNilError(err) {
			return nil
		}
		if err != nil {
			return err
		}
		data, found = v, true
		return nil
	})
	if err != nil {
		c.logger.Debug("cache get failed", "key", key, "error", err)
	}
	if !found {
		c.recordMiss()
		return nil, false
	}
	var docs []uint32
	if err := json.Unmarshal([]byte(data), &docs); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.recordMiss()
		return nil, false
	}
	if docs == nil {
		docs = []uint32{}
	}
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
	return docs, true
}

// Set stores docs for q with the configured TTL. Failures are logged only.
func (c *QueryCache) Set(ctx context.Context, q parser.Query, docs []uint32) {
	key := BuildKey(q)
	data, err := json.Marshal(docs)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.call(func() error {
		return c.store.Set(ctx, key, data, c.ttl)
	}); err != nil {
		c.logger.Debug("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached result for q, or runs compute once for all
// concurrent callers with the same key and caches its result.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	q parser.Query,
	compute func() ([]uint32, error),
) ([]uint32, bool, error) {
	if docs, ok := c.Get(ctx, q); ok {
		return docs, true, nil
	}
	val, err, _ := c.group.Do(BuildKey(q), func() (any, error) {
		docs, err := compute()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, q, docs)
		return docs, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.([]uint32), false, nil
}

// Invalidate drops every cached query.
func (c *QueryCache) Invalidate(ctx context.Context) error {
	var deleted int64
	err := c.call(func() error {
		var err error
		deleted, err = c.store.FlushByPattern(ctx, keyPrefix+"*")
		return err
	})
	if err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return nil
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// BreakerState reports the Redis circuit breaker state.
func (c *QueryCache) BreakerState() resilience.State {
	return c.breaker.GetState()
}

func (c *QueryCache) call(fn func() error) error {
	return c.breaker.Execute(fn)
}

func (c *QueryCache) recordMiss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}

// BuildKey hashes the query's canonical form into a Redis key.
func BuildKey(q parser.Query) string {
	hash := sha256.Sum256([]byte(q.Key()))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}
