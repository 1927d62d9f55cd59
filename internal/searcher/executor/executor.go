// Package executor runs parsed queries against a read-only index.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/pkg/metrics"
)

// Cache stores ranked results by key. compute runs on a miss; hit reports
// whether the result came from the cache.
type Cache interface {
	GetOrCompute(ctx context.Context, key string, compute func(ctx context.Context) ([]ranker.ScoredDoc, error)) (docs []ranker.ScoredDoc, hit bool, err error)
}

type Option func(*Executor)

func WithModel(model string) Option {
	return func(e *Executor) { e.model = model }
}

// WithCache enables result caching. fingerprint identifies the index so
// that results of different builds never share a key.
func WithCache(cache Cache, fingerprint string) Option {
	return func(e *Executor) {
		e.cache = cache
		e.fingerprint = fingerprint
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Executor) { e.metrics = m }
}

// Executor is safe for concurrent use as long as the index is not modified.
type Executor struct {
	idx         index.Reader
	model       string
	cache       Cache
	fingerprint string
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

func New(idx index.Reader, opts ...Option) *Executor {
	e := &Executor{
		idx:    idx,
		model:  ranker.ModelBM25,
		logger: slog.Default().With("component", "query-executor"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Search returns up to limit documents of q.Field ranked by relevance. No
// matching document yields an empty slice, not an error.
func (e *Executor) Search(ctx context.Context, q *parser.Query, limit int) ([]ranker.ScoredDoc, error) {
	if limit == 0 {
		return []ranker.ScoredDoc{}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	cacheStatus := "none"

	var (
		docs []ranker.ScoredDoc
		err  error
	)
	if e.cache != nil {
		key := fmt.Sprintf("%s|%s|%s|%d", e.fingerprint, e.model, q.Key(), limit)
		var hit bool
		docs, hit, err = e.cache.GetOrCompute(ctx, key, func(ctx context.Context) ([]ranker.ScoredDoc, error) {
			return e.execute(q, limit)
		})
		cacheStatus = "miss"
		if hit {
			cacheStatus = "hit"
		}
	} else {
		docs, err = e.execute(q, limit)
	}

	if err != nil {
		e.observe(q.Field, "error", cacheStatus, start, 0)
		return nil, fmt.Errorf("searching %s for %q: %w", q.Field, q.RawQuery, err)
	}
	resultType := "hit"
	if len(docs) == 0 {
		resultType = "zero_result"
	}
	e.observe(q.Field, resultType, cacheStatus, start, len(docs))
	e.logger.Debug("query executed",
		"field", q.Field,
		"query", q.RawQuery,
		"terms", q.Positive(),
		"results", len(docs),
		"cache", cacheStatus,
	)
	return docs, nil
}

func (e *Executor) execute(q *parser.Query, limit int) ([]ranker.ScoredDoc, error) {
	postings := make(map[string]index.PostingList)
	fetch := func(term string) (index.PostingList, error) {
		if pl, ok := postings[term]; ok {
			return pl, nil
		}
		pl, err := e.idx.Postings(q.Field, term)
		if err != nil {
			return nil, fmt.Errorf("reading postings for %q: %w", term, err)
		}
		postings[term] = pl
		return pl, nil
	}

	positive := q.Positive()
	terms := make([]ranker.TermPostings, 0, len(positive))
	for _, term := range positive {
		pl, err := fetch(term)
		if err != nil {
			return nil, err
		}
		terms = append(terms, ranker.TermPostings{Term: term, Postings: pl})
	}

	matched, err := candidates(q, fetch)
	if err != nil {
		return nil, err
	}

	stats := e.idx.FieldStats(q.Field)
	params := ranker.RankParams{
		Model:          e.model,
		TotalDocs:      e.idx.DocCount(),
		AvgFieldLength: stats.AvgLength(),
	}
	fieldLength := func(id index.DocID) int {
		return e.idx.FieldLength(id, q.Field)
	}
	return ranker.Rank(terms, matched, params, fieldLength, limit), nil
}

// candidates combines the term bitmaps: with required terms or phrases the
// candidates are their intersection and optional clauses only score,
// otherwise the optional terms and phrases are unioned. Excluded terms and
// phrases are removed.
func candidates(q *parser.Query, fetch func(term string) (index.PostingList, error)) (*roaring.Bitmap, error) {
	bitmap := func(term string) (*roaring.Bitmap, error) {
		pl, err := fetch(term)
		if err != nil {
			return nil, err
		}
		return pl.Bitmap(), nil
	}
	phrase := func(p parser.Phrase) (*roaring.Bitmap, error) {
		lists := make([]index.PostingList, 0, len(p.Terms))
		for _, term := range p.Terms {
			pl, err := fetch(term)
			if err != nil {
				return nil, err
			}
			lists = append(lists, pl)
		}
		return index.PhraseMatches(lists), nil
	}

	var (
		must    []*roaring.Bitmap
		should  []*roaring.Bitmap
		mustNot []*roaring.Bitmap
	)
	for _, term := range q.Required {
		bm, err := bitmap(term)
		if err != nil {
			return nil, err
		}
		must = append(must, bm)
	}
	for _, term := range q.Terms {
		bm, err := bitmap(term)
		if err != nil {
			return nil, err
		}
		should = append(should, bm)
	}
	for _, term := range q.ExcludeTerms {
		bm, err := bitmap(term)
		if err != nil {
			return nil, err
		}
		mustNot = append(mustNot, bm)
	}
	for _, p := range q.Phrases {
		bm, err := phrase(p)
		if err != nil {
			return nil, err
		}
		switch p.Occur {
		case parser.Must:
			must = append(must, bm)
		case parser.MustNot:
			mustNot = append(mustNot, bm)
		default:
			should = append(should, bm)
		}
	}

	var result *roaring.Bitmap
	if q.HasRequired() {
		result = roaring.FastAnd(must...)
	} else {
		result = roaring.FastOr(should...)
	}
	for _, bm := range mustNot {
		result.AndNot(bm)
	}
	return result, nil
}

func (e *Executor) observe(field, resultType, cacheStatus string, start time.Time, results int) {
	if e.metrics == nil {
		return
	}
	e.metrics.SearchQueriesTotal.WithLabelValues(field, resultType).Inc()
	e.metrics.SearchLatency.WithLabelValues(field, cacheStatus).Observe(time.Since(start).Seconds())
	if resultType != "error" {
		e.metrics.SearchResultsCount.WithLabelValues(field).Observe(float64(results))
	}
}
