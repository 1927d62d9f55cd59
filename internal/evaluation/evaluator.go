// Package evaluation runs a relevance benchmark against the index: every
// judged query is parsed and searched on every configured field, scored with
// Precision@K, R-precision and average precision, and averaged per field.
package evaluation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/internal/evaluation/judgment"
	"github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/internal/evaluation/metrics"
	"github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/pkg/logger"
	pkgmetrics "github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/pkg/tracing"
)

// Searcher is the retrieval side of the harness; *executor.Executor
// satisfies it.
type Searcher interface {
	Search(ctx context.Context, q *parser.Query, limit int) ([]ranker.ScoredDoc, error)
}

type Options struct {
	Fields      []string
	K           int
	Limit       int
	Parallelism int
	// KeepRetrieved stores the ranked and the relevant ids of each query in
	// the report.
	KeepRetrieved bool
	Fingerprint   string
}

type Evaluator struct {
	searcher Searcher
	analyzer *tokenizer.Analyzer
	table    *judgment.Table
	opts     Options
	metrics  *pkgmetrics.Metrics
}

// NewEvaluator fills zero options with the defaults: the three movie fields,
// K=3, 100 results per query and one field at a time.
func NewEvaluator(searcher Searcher, analyzer *tokenizer.Analyzer, table *judgment.Table, opts Options, m *pkgmetrics.Metrics) *Evaluator {
	if len(opts.Fields) == 0 {
		opts.Fields = []string{index.FieldTitle, index.FieldBody, index.FieldFulltext}
	}
	if opts.K == 0 {
		opts.K = 3
	}
	if opts.Limit == 0 {
		opts.Limit = 100
	}
	if opts.Parallelism < 1 {
		opts.Parallelism = 1
	}
	return &Evaluator{
		searcher: searcher,
		analyzer: analyzer,
		table:    table,
		opts:     opts,
		metrics:  m,
	}
}

// Run evaluates every field. Any error other than an empty query aborts the
// run and no report is returned.
func (e *Evaluator) Run(ctx context.Context) (*Report, error) {
	runID := logger.RunIDFromContext(ctx)
	if runID == "" {
		runID = uuid.NewString()
		ctx = logger.WithRunID(ctx, runID)
	}
	ctx, span := tracing.StartChildSpan(ctx, "evaluate")
	defer span.End()
	log := logger.FromContext(ctx).With("component", "evaluator")

	report := &Report{
		RunID:       runID,
		StartedAt:   time.Now().UTC(),
		K:           e.opts.K,
		Limit:       e.opts.Limit,
		Fingerprint: e.opts.Fingerprint,
		Fields:      make([]FieldReport, len(e.opts.Fields)),
	}
	log.Info("evaluation started",
		"fields", e.opts.Fields,
		"queries", e.table.Len(),
		"parallelism", e.opts.Parallelism,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Parallelism)
	for i, field := range e.opts.Fields {
		g.Go(func() error {
			fr, err := e.EvaluateField(gctx, field)
			if err != nil {
				return fmt.Errorf("evaluating field %s: %w", field, err)
			}
			report.Fields[i] = *fr
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Error("evaluation failed", "error", err)
		return nil, err
	}

	report.Duration = time.Since(report.StartedAt)
	if e.metrics != nil {
		e.metrics.EvalRunDuration.Observe(report.Duration.Seconds())
	}
	span.SetAttr("fields", len(report.Fields))
	log.Info("evaluation finished", "duration", report.Duration)
	return report, nil
}

// EvaluateField runs every benchmark query against one field in table
// order.
func (e *Evaluator) EvaluateField(ctx context.Context, field string) (*FieldReport, error) {
	ctx, span := tracing.StartChildSpan(ctx, "evaluate."+field)
	defer span.End()
	log := logger.FromContext(ctx).With("component", "evaluator", "field", field)
	start := time.Now()

	var acc metrics.Accumulator
	entries := e.table.Entries()
	fr := &FieldReport{
		Field:   field,
		Queries: make([]QueryResult, 0, len(entries)),
	}
	for _, entry := range entries {
		result, err := e.evaluateQuery(ctx, field, entry)
		if errors.Is(err, apperrors.ErrEmptyQuery) {
			acc.Skip()
			e.count(field, "skipped")
			log.Warn("skipping query without search terms", "query", entry.Query)
			fr.Queries = append(fr.Queries, QueryResult{Query: entry.Query, Skipped: true, Relevant: len(entry.Relevant)})
			continue
		}
		if err != nil {
			return nil, err
		}
		acc.Add(result.PrecisionAtK, result.PrecisionAtR, result.AP)
		e.count(field, "evaluated")
		fr.Queries = append(fr.Queries, *result)
	}

	fr.MeanPrecisionAtK, fr.MeanPrecisionAtR, fr.MAP = acc.Means()
	fr.Evaluated = acc.Evaluated
	fr.Skipped = acc.Skipped
	fr.Duration = time.Since(start)
	if e.metrics != nil {
		e.metrics.EvalMeanPrecisionAtK.WithLabelValues(field).Set(fr.MeanPrecisionAtK)
		e.metrics.EvalMeanPrecisionAtR.WithLabelValues(field).Set(fr.MeanPrecisionAtR)
		e.metrics.EvalMAP.WithLabelValues(field).Set(fr.MAP)
	}
	span.SetAttr("evaluated", fr.Evaluated)
	span.SetAttr("skipped", fr.Skipped)
	log.Info("field evaluated",
		"evaluated", fr.Evaluated,
		"skipped", fr.Skipped,
		"mean_p_at_k", fr.MeanPrecisionAtK,
		"mean_p_at_r", fr.MeanPrecisionAtR,
		"map", fr.MAP,
	)
	return fr, nil
}

func (e *Evaluator) evaluateQuery(ctx context.Context, field string, entry judgment.Entry) (*QueryResult, error) {
	q, err := parser.Parse(field, entry.Query, e.analyzer)
	if err != nil {
		return nil, err
	}
	docs, err := e.searcher.Search(ctx, q, e.opts.Limit)
	if err != nil {
		return nil, err
	}
	ids := make([]index.DocID, len(docs))
	for i, d := range docs {
		ids[i] = d.DocID
	}
	result := &QueryResult{
		Query:        entry.Query,
		Relevant:     len(entry.Relevant),
		PrecisionAtK: metrics.PrecisionAtK(ids, entry.Relevant, e.opts.K),
		PrecisionAtR: metrics.PrecisionAtR(ids, entry.Relevant),
		AP:           metrics.AveragePrecision(ids, entry.Relevant),
	}
	if e.opts.KeepRetrieved {
		result.Retrieved = ids
		result.RelevantIDs = entry.Relevant.Sorted()
	}
	return result, nil
}

func (e *Evaluator) count(field, outcome string) {
	if e.metrics != nil {
		e.metrics.EvalQueriesTotal.WithLabelValues(field, outcome).Inc()
	}
}
