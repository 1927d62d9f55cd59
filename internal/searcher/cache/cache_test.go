package cache

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/pkg/redis"
)

type memoryStore struct {
	mu   sync.Mutex
	data map[string][]byte
	fail bool
	gets atomic.Int64
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: make(map[string][]byte)}
}

func (s *memoryStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.gets.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return nil, false, errors.New("connection refused")
	}
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *memoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("connection refused")
	}
	s.data[key] = value
	return nil
}

func (s *memoryStore) FlushByPattern(ctx context.Context, pattern string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	var n int64
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			delete(s.data, k)
			n++
		}
	}
	return n, nil
}

var docs = []ranker.ScoredDoc{{DocID: 3, Score: 1.5}, {DocID: 1, Score: 0.25}}

func TestGetOrComputeCachesResult(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	c := New(newMemoryStore(), time.Minute, m)
	calls := 0
	compute := func(ctx context.Context) ([]ranker.ScoredDoc, error) {
		calls++
		return docs, nil
	}

	got, hit, err := c.GetOrCompute(context.Background(), "k", compute)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, docs, got)

	got, hit, err = c.GetOrCompute(context.Background(), "k", compute)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, docs, got)
	assert.Equal(t, 1, calls)

	hits, misses := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheHitsTotal))
}

func TestGetOrComputeCollapsesConcurrentMisses(t *testing.T) {
	c := New(newMemoryStore(), time.Minute, nil)
	var calls atomic.Int64
	compute := func(ctx context.Context) ([]ranker.ScoredDoc, error) {
		calls.Add(1)
		time.Sleep(10 * time.Millisecond)
		return docs, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, _, err := c.GetOrCompute(context.Background(), "same", compute)
			assert.NoError(t, err)
			assert.Equal(t, docs, got)
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(1), calls.Load())
}

func TestComputeErrorIsNotCached(t *testing.T) {
	c := New(newMemoryStore(), time.Minute, nil)
	boom := errors.New("boom")
	_, _, err := c.GetOrCompute(context.Background(), "k", func(ctx context.Context) ([]ranker.ScoredDoc, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)

	got, hit, err := c.GetOrCompute(context.Background(), "k", func(ctx context.Context) ([]ranker.ScoredDoc, error) {
		return docs, nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, docs, got)
}

func TestStoreFailuresFallBackToCompute(t *testing.T) {
	store := newMemoryStore()
	store.fail = true
	c := New(store, time.Minute, nil)
	compute := func(ctx context.Context) ([]ranker.ScoredDoc, error) { return docs, nil }

	for i := 0; i < 10; i++ {
		got, hit, err := c.GetOrCompute(context.Background(), "k", compute)
		require.NoError(t, err)
		assert.False(t, hit)
		assert.Equal(t, docs, got)
	}
	assert.Less(t, store.gets.Load(), int64(10), "breaker stops calling a failing store")
}

func TestInvalidate(t *testing.T) {
	store := newMemoryStore()
	c := New(store, time.Minute, nil)
	_, _, err := c.GetOrCompute(context.Background(), "k", func(ctx context.Context) ([]ranker.ScoredDoc, error) { return docs, nil })
	require.NoError(t, err)
	require.Len(t, store.data, 1)

	deleted, err := c.Invalidate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
	assert.Empty(t, store.data)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("IREVAL_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("IREVAL_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	client, err := pkgredis.NewClient(ctx, config.RedisConfig{Addr: addr, PoolSize: 4})
	require.NoError(t, err)
	defer client.Close()

	c := New(client, time.Minute, nil)
	_, err = c.Invalidate(ctx)
	require.NoError(t, err)
	_, hit, err := c.GetOrCompute(ctx, "redis-k", func(ctx context.Context) ([]ranker.ScoredDoc, error) { return docs, nil })
	require.NoError(t, err)
	assert.False(t, hit)
	got, hit, err := c.GetOrCompute(ctx, "redis-k", func(ctx context.Context) ([]ranker.ScoredDoc, error) { return nil, nil })
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, docs, got)
}
