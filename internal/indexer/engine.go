package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/pkg/tracing"
)

const cancelCheckInterval = 1024

// Engine builds an index from corpus records, persists it as a segment and
// reopens the newest segment read-only.
type Engine struct {
	cfg      config.IndexerConfig
	analyzer *tokenizer.Analyzer
	metrics  *metrics.Metrics
	writer   *segment.Writer
	logger   *slog.Logger
}

func NewEngine(cfg config.IndexerConfig, analyzer *tokenizer.Analyzer, m *metrics.Metrics) (*Engine, error) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, apperrors.Newf(apperrors.ErrIOFailure, "creating index data directory %s: %v", cfg.DataDir, err)
	}
	if analyzer == nil {
		analyzer = tokenizer.Default()
	}
	return &Engine{
		cfg:      cfg,
		analyzer: analyzer,
		metrics:  m,
		writer:   segment.NewWriter(cfg.DataDir, cfg.Compression),
		logger:   slog.Default().With("component", "indexer"),
	}, nil
}

// Build adds every movie to a fresh index and seals it. A movie read from
// line n of the corpus receives DocID n, so lines that were skipped leave
// their id unused and benchmark ids keep pointing at the right movie. Movies
// without a line number take the next free id.
func (e *Engine) Build(ctx context.Context, movies []corpus.Movie) (*index.MemoryIndex, error) {
	ctx, span := tracing.StartChildSpan(ctx, "index.build")
	defer span.End()

	mi := index.NewMemoryIndex(e.analyzer)
	for i, movie := range movies {
		if i%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("building index: %w", err)
			}
		}
		if movie.Line > 1 {
			if err := mi.ReserveThrough(index.DocID(movie.Line - 1)); err != nil {
				return nil, err
			}
		}
		id, err := mi.AddDocument(index.MovieFields(movie.Title, movie.Body))
		if err != nil {
			return nil, fmt.Errorf("adding corpus line %d: %w", movie.Line, err)
		}
		e.metrics.DocsIndexedTotal.Inc()
		if movie.Line > 0 && id != index.DocID(movie.Line) {
			return nil, apperrors.Newf(apperrors.ErrInvalidInput, "corpus line %d out of order, got id %d", movie.Line, id)
		}
		e.logger.Debug("document indexed in memory",
			"doc_id", id,
			"line", movie.Line,
			"mem_size", mi.Size(),
		)
	}
	mi.Seal()
	span.SetAttr("docs", mi.DocCount())
	e.logger.Info("index built",
		"docs", mi.DocCount(),
		"fields", mi.Fields(),
		"mem_size", mi.Size(),
	)
	return mi, nil
}

// Persist writes a sealed index to a new segment and returns its path.
func (e *Engine) Persist(ctx context.Context, mi *index.MemoryIndex) (string, error) {
	_, span := tracing.StartChildSpan(ctx, "index.persist")
	defer span.End()

	if !mi.Sealed() {
		return "", apperrors.New(apperrors.ErrInvalidInput, "index must be sealed before it is persisted")
	}
	if mi.DocCount() == 0 {
		e.metrics.IndexBuildsTotal.WithLabelValues("empty").Inc()
		return "", apperrors.New(apperrors.ErrInvalidInput, "corpus produced no documents")
	}
	start := time.Now()
	name, err := e.writer.Write(segment.SnapshotOf(mi))
	if err != nil {
		e.metrics.IndexBuildsTotal.WithLabelValues("error").Inc()
		return "", apperrors.Newf(apperrors.ErrIOFailure, "writing segment: %v", err)
	}
	path := filepath.Join(e.cfg.DataDir, name)
	e.metrics.IndexBuildsTotal.WithLabelValues("success").Inc()
	e.metrics.IndexBuildDuration.Observe(time.Since(start).Seconds())
	if info, err := os.Stat(path); err == nil {
		e.metrics.SegmentSizeBytes.Set(float64(info.Size()))
		span.SetAttr("bytes", info.Size())
	}
	e.logger.Info("segment written",
		"segment", name,
		"docs", mi.DocCount(),
		"codec", e.cfg.Compression,
	)
	return path, nil
}

// Open opens the newest segment in the data directory. The caller closes it.
func (e *Engine) Open(ctx context.Context) (*segment.Reader, error) {
	_, span := tracing.StartChildSpan(ctx, "index.open")
	defer span.End()

	path, err := segment.Latest(e.cfg.DataDir)
	if err != nil {
		return nil, err
	}
	reader, err := segment.OpenReader(path)
	if err != nil {
		return nil, err
	}
	if info, err := os.Stat(path); err == nil {
		e.metrics.SegmentSizeBytes.Set(float64(info.Size()))
	}
	e.logger.Info("loaded segment",
		"segment", filepath.Base(path),
		"terms", reader.Terms(),
		"docs", reader.DocCount(),
		"fingerprint", reader.Fingerprint(),
	)
	return reader, nil
}

// Analyzer returns the analyzer a segment was built with, so queries are
// normalised the same way as the indexed text.
func Analyzer(r *segment.Reader) *tokenizer.Analyzer {
	return tokenizer.New(r.Dictionary().Analyzer)
}
