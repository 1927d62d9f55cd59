// Package metrics defines the Prometheus collectors used by the indexer,
// searcher and evaluation harness and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for one process.
type Metrics struct {
	DocsIndexedTotal      prometheus.Counter
	MalformedRecordsTotal *prometheus.CounterVec
	IndexBuildsTotal      *prometheus.CounterVec
	IndexBuildDuration    prometheus.Histogram
	SegmentSizeBytes      prometheus.Gauge
	SearchQueriesTotal    *prometheus.CounterVec
	SearchLatency         *prometheus.HistogramVec
	SearchResultsCount    *prometheus.HistogramVec
	CacheHitsTotal        prometheus.Counter
	CacheMissesTotal      prometheus.Counter
	EvalQueriesTotal      *prometheus.CounterVec
	EvalMeanPrecisionAtK  *prometheus.GaugeVec
	EvalMeanPrecisionAtR  *prometheus.GaugeVec
	EvalMAP               *prometheus.GaugeVec
	EvalRunDuration       prometheus.Histogram

	gatherer prometheus.Gatherer
}

// New creates all collectors and registers them with reg. Passing a fresh
// prometheus.NewRegistry keeps tests isolated from the global registry.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		DocsIndexedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ireval_docs_indexed_total",
				Help: "Total documents added to the index.",
			},
		),
		MalformedRecordsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ireval_malformed_records_total",
				Help: "Malformed input lines by source (corpus, benchmark).",
			},
			[]string{"source"},
		),
		IndexBuildsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ireval_index_builds_total",
				Help: "Total index build operations by status.",
			},
			[]string{"status"},
		),
		IndexBuildDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ireval_index_build_duration_seconds",
				Help:    "Time to build and persist an index.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
		),
		SegmentSizeBytes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "ireval_segment_size_bytes",
				Help: "Size of the most recently written or opened segment.",
			},
		),
		SearchQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ireval_search_queries_total",
				Help: "Total search queries by field and result type (hit, zero_result, error).",
			},
			[]string{"field", "result_type"},
		),
		SearchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ireval_search_latency_seconds",
				Help:    "Search query latency in seconds.",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"field", "cache_status"},
		),
		SearchResultsCount: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ireval_search_results_count",
				Help:    "Number of results returned per search query.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
			},
			[]string{"field"},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ireval_cache_hits_total",
				Help: "Total number of query cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ireval_cache_misses_total",
				Help: "Total number of query cache misses.",
			},
		),
		EvalQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ireval_eval_queries_total",
				Help: "Benchmark entries processed by field and outcome (evaluated, skipped).",
			},
			[]string{"field", "outcome"},
		),
		EvalMeanPrecisionAtK: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "ireval_eval_mean_precision_at_k",
				Help: "Mean Precision@K of the last evaluation run per field.",
			},
			[]string{"field"},
		),
		EvalMeanPrecisionAtR: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "ireval_eval_mean_precision_at_r",
				Help: "Mean R-precision of the last evaluation run per field.",
			},
			[]string{"field"},
		),
		EvalMAP: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "ireval_eval_map",
				Help: "Mean average precision of the last evaluation run per field.",
			},
			[]string{"field"},
		),
		EvalRunDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ireval_eval_run_duration_seconds",
				Help:    "Wall time of a complete evaluation run.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
		),
		gatherer: reg,
	}

	reg.MustRegister(
		m.DocsIndexedTotal,
		m.MalformedRecordsTotal,
		m.IndexBuildsTotal,
		m.IndexBuildDuration,
		m.SegmentSizeBytes,
		m.SearchQueriesTotal,
		m.SearchLatency,
		m.SearchResultsCount,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.EvalQueriesTotal,
		m.EvalMeanPrecisionAtK,
		m.EvalMeanPrecisionAtR,
		m.EvalMAP,
		m.EvalRunDuration,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler for the registry the
// collectors were registered with.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
