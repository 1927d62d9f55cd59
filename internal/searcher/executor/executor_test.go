package executor

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/pkg/metrics"
)

func buildIndex(t *testing.T, records ...[2]string) *index.MemoryIndex {
	t.Helper()
	mi := index.NewMemoryIndex(nil)
	for _, r := range records {
		_, err := mi.AddDocument(index.MovieFields(r[0], r[1]))
		require.NoError(t, err)
	}
	mi.Seal()
	return mi
}

func ids(docs []ranker.ScoredDoc) []index.DocID {
	out := make([]index.DocID, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.DocID)
	}
	return out
}

func search(t *testing.T, e *Executor, field, raw string, limit int) []index.DocID {
	t.Helper()
	q, err := parser.Parse(field, raw, nil)
	require.NoError(t, err)
	docs, err := e.Search(context.Background(), q, limit)
	require.NoError(t, err)
	return ids(docs)
}

var movies = [][2]string{
	{"The Matrix", "A hacker discovers reality is a simulation"},
	{"The Notebook", "A love story across decades"},
	{"Love Actually", "Love stories intertwine in London at Christmas"},
	{"War and Peace", "A story of love and war in Russia"},
}

func TestSearchMatrixTitle(t *testing.T) {
	e := New(buildIndex(t, movies[0], movies[1]))
	assert.Equal(t, []index.DocID{1}, search(t, e, index.FieldTitle, "matrix", 100))
}

func TestSearchOperators(t *testing.T) {
	e := New(buildIndex(t, movies...))

	assert.ElementsMatch(t, []index.DocID{2, 3, 4}, search(t, e, index.FieldBody, "love war", 100))
	assert.Equal(t, []index.DocID{4}, search(t, e, index.FieldBody, "love AND war", 100))
	assert.ElementsMatch(t, []index.DocID{2, 3}, search(t, e, index.FieldBody, "love NOT war", 100))
	assert.ElementsMatch(t, []index.DocID{2, 3}, search(t, e, index.FieldBody, "love -war", 100))
	assert.Equal(t, []index.DocID{4}, search(t, e, index.FieldBody, "+war love", 100))
	// AND binds love and war only; hacker stays optional.
	assert.Equal(t, []index.DocID{4}, search(t, e, index.FieldFulltext, "hacker OR love AND war", 100))
	assert.ElementsMatch(t, []index.DocID{1, 2, 3, 4}, search(t, e, index.FieldFulltext, "hacker OR love", 100))
}

func TestSearchPhrases(t *testing.T) {
	e := New(buildIndex(t, movies...))

	assert.Len(t, search(t, e, index.FieldBody, "love story", 100), 3)
	assert.Equal(t, []index.DocID{2}, search(t, e, index.FieldBody, `"love story"`, 100))
	assert.Empty(t, search(t, e, index.FieldBody, `"story love"`, 100))
	assert.Equal(t, []index.DocID{4}, search(t, e, index.FieldBody, `"love and war"`, 100))
	assert.Empty(t, search(t, e, index.FieldBody, `"love war"`, 100))
	assert.ElementsMatch(t, []index.DocID{3, 4}, search(t, e, index.FieldBody, `love -"love story"`, 100))
	assert.Equal(t, []index.DocID{4}, search(t, e, index.FieldBody, `+"love and war" story`, 100))
	// An optional phrase widens the OR like any other clause.
	assert.ElementsMatch(t, []index.DocID{1, 2}, search(t, e, index.FieldBody, `hacker OR "love story"`, 100))
	// The title ends where the body begins in the fulltext field.
	assert.Equal(t, []index.DocID{1}, search(t, e, index.FieldFulltext, `"matrix a hacker"`, 100))
}

func TestSearchPartialMatchRanksLower(t *testing.T) {
	e := New(buildIndex(t, movies...))
	got := search(t, e, index.FieldBody, "love story", 100)
	require.Len(t, got, 3)
	assert.NotEqual(t, index.DocID(3), got[0], "doc 3 only matches love")
}

func TestSearchEdgeCases(t *testing.T) {
	e := New(buildIndex(t, movies...))

	assert.Empty(t, search(t, e, index.FieldTitle, "godfather", 100))
	assert.Empty(t, search(t, e, "director", "love", 100))
	assert.Empty(t, search(t, e, index.FieldBody, "love", 0))
	assert.Len(t, search(t, e, index.FieldBody, "love", 2), 2)
	assert.Len(t, search(t, e, index.FieldBody, "love", 1000), 3)
}

func TestSearchIsDeterministic(t *testing.T) {
	e := New(buildIndex(t, movies...), WithModel(ranker.ModelTF))
	first := search(t, e, index.FieldFulltext, "love story war", 100)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, search(t, e, index.FieldFulltext, "love story war", 100))
	}
}

func TestSearchConcurrentReaders(t *testing.T) {
	e := New(buildIndex(t, movies...))
	want := search(t, e, index.FieldBody, "love", 100)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q, _ := parser.Parse(index.FieldBody, "love", nil)
			docs, err := e.Search(context.Background(), q, 100)
			assert.NoError(t, err)
			assert.Equal(t, want, ids(docs))
		}()
	}
	wg.Wait()
}

type mapCache struct {
	mu   sync.Mutex
	data map[string][]ranker.ScoredDoc
}

func (c *mapCache) GetOrCompute(ctx context.Context, key string, compute func(ctx context.Context) ([]ranker.ScoredDoc, error)) ([]ranker.ScoredDoc, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if docs, ok := c.data[key]; ok {
		return docs, true, nil
	}
	docs, err := compute(ctx)
	if err != nil {
		return nil, false, err
	}
	c.data[key] = docs
	return docs, false, nil
}

func TestSearchUsesCacheAndMetrics(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	cache := &mapCache{data: map[string][]ranker.ScoredDoc{}}
	e := New(buildIndex(t, movies...), WithCache(cache, "abc"), WithMetrics(m))

	first := search(t, e, index.FieldBody, "love", 10)
	second := search(t, e, index.FieldBody, "love", 10)
	assert.Equal(t, first, second)
	assert.Len(t, cache.data, 1)
	for key := range cache.data {
		assert.Contains(t, key, "abc|bm25|body|")
	}
	assert.Equal(t, 2.0, testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues(index.FieldBody, "hit")))
}

type failingIndex struct {
	*index.MemoryIndex
}

func (failingIndex) Postings(field, term string) (index.PostingList, error) {
	return nil, errors.New("disk gone")
}

func TestSearchPropagatesIndexErrors(t *testing.T) {
	e := New(failingIndex{buildIndex(t, movies...)})
	q, err := parser.Parse(index.FieldBody, "love", nil)
	require.NoError(t, err)
	_, err = e.Search(context.Background(), q, 10)
	assert.ErrorContains(t, err, "disk gone")
}

func TestSearchCancelled(t *testing.T) {
	e := New(buildIndex(t, movies...))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	q, err := parser.Parse(index.FieldBody, "love", nil)
	require.NoError(t, err)
	_, err = e.Search(ctx, q, 10)
	assert.ErrorIs(t, err, context.Canceled)
}
