// Package cache keeps ranked result lists in Redis so repeated evaluation
// runs over the same segment skip retrieval. Concurrent misses for one key
// are collapsed into a single computation. Cache failures never fail a
// search: after repeated errors the cache is bypassed for a while.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/pkg/resilience"
)

const keyPrefix = "ireval:search:"

// Store is the key-value backend; *redis.Client satisfies it.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

type QueryCache struct {
	store   Store
	ttl     time.Duration
	group   singleflight.Group
	breaker *resilience.Breaker
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

func New(store Store, ttl time.Duration, m *metrics.Metrics) *QueryCache {
	return &QueryCache{
		store:   store,
		ttl:     ttl,
		breaker: resilience.NewBreaker("query-cache", resilience.BreakerConfig{FailureThreshold: 3, ResetTimeout: 30 * time.Second}),
		metrics: m,
		logger:  slog.Default().With("component", "query-cache"),
	}
}

func (c *QueryCache) get(ctx context.Context, key string) ([]ranker.ScoredDoc, bool) {
	var (
		data  []byte
		found bool
	)
	err := c.breaker.Do(func() error {
		var err error
		data, found, err = c.store.Get(ctx, key)
		return err
	})
	if err != nil {
		c.logger.Debug("cache get failed", "key", key, "error", err)
		return nil, false
	}
	if !found {
		return nil, false
	}
	var docs []ranker.ScoredDoc
	if err := json.Unmarshal(data, &docs); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		return nil, false
	}
	return docs, true
}

func (c *QueryCache) set(ctx context.Context, key string, docs []ranker.ScoredDoc) {
	data, err := json.Marshal(docs)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.breaker.Do(func() error { return c.store.Set(ctx, key, data, c.ttl) }); err != nil {
		c.logger.Debug("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached result for key, or runs compute and
// stores its result.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	key string,
	compute func(ctx context.Context) ([]ranker.ScoredDoc, error),
) ([]ranker.ScoredDoc, bool, error) {
	hashed := buildKey(key)
	if docs, ok := c.get(ctx, hashed); ok {
		c.recordHit()
		return docs, true, nil
	}
	val, err, _ := c.group.Do(hashed, func() (any, error) {
		if docs, ok := c.get(ctx, hashed); ok {
			return docs, nil
		}
		docs, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		c.set(ctx, hashed, docs)
		return docs, nil
	})
	if err != nil {
		return nil, false, err
	}
	c.recordMiss()
	return val.([]ranker.ScoredDoc), false, nil
}

// Invalidate removes every cached result and returns the number of keys
// deleted.
func (c *QueryCache) Invalidate(ctx context.Context) (int64, error) {
	deleted, err := c.store.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return deleted, fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return deleted, nil
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *QueryCache) recordHit() {
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
}

func (c *QueryCache) recordMiss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}

func buildKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}
