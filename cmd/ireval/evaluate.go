package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/internal/evaluation"
	"github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/internal/evaluation/history"
	"github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/internal/evaluation/judgment"
	"github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/internal/evaluation/publisher"
	"github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/internal/evaluation/report"
	"github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/pkg/postgres"
)

func evaluateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Run the relevance benchmark against the newest index",
		Long: `Open the newest segment read-only, search every benchmark query on every
configured field and print Precision@K, R-precision and average precision
per query followed by the field means.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, a, err := setup(cmd, "evaluate")
			if err != nil {
				return err
			}
			defer a.finish()

			if path, _ := cmd.Flags().GetString("benchmark"); path != "" {
				a.cfg.Benchmark.Path = path
			}
			if fields, _ := cmd.Flags().GetStringSlice("fields"); len(fields) > 0 {
				a.cfg.Search.Fields = fields
				if err := a.cfg.Validate(); err != nil {
					return err
				}
			}
			keepRetrieved, _ := cmd.Flags().GetBool("keep-retrieved")

			engine, err := indexer.NewEngine(a.cfg.Indexer, nil, a.metrics)
			if err != nil {
				return err
			}
			segment, err := engine.Open(ctx)
			if err != nil {
				return err
			}
			defer segment.Close()

			policy, err := corpus.ParsePolicy(a.cfg.Benchmark.OnMalformed)
			if err != nil {
				return err
			}
			records, stats, err := corpus.ReadBenchmark(a.cfg.Benchmark.Path, policy)
			a.metrics.MalformedRecordsTotal.WithLabelValues("benchmark").Add(float64(stats.Skipped))
			if err != nil {
				return err
			}
			table, err := judgment.Load(records)
			if err != nil {
				return err
			}
			a.logger.Info("benchmark loaded", "path", a.cfg.Benchmark.Path, "queries", table.Len(), "stats", stats.String())

			opts := []executor.Option{
				executor.WithModel(a.cfg.Search.Scoring),
				executor.WithMetrics(a.metrics),
			}
			var qc *cache.QueryCache
			if a.cfg.Redis.Enabled {
				var closeCache func()
				qc, closeCache, err = a.openCache(ctx)
				if err != nil {
					a.logger.Warn("redis unavailable, search caching disabled", "error", err)
				} else {
					defer closeCache()
					opts = append(opts, executor.WithCache(qc, segment.Fingerprint()))
					a.logger.Info("search cache enabled", "addr", a.cfg.Redis.Addr, "ttl", a.cfg.Redis.CacheTTL)
				}
			}

			ev := evaluation.NewEvaluator(
				executor.New(segment, opts...),
				indexer.Analyzer(segment),
				table,
				evaluation.Options{
					Fields:        a.cfg.Search.Fields,
					K:             a.cfg.Evaluation.PrecisionK,
					Limit:         a.cfg.Search.ResultLimit,
					Parallelism:   a.cfg.Evaluation.Parallelism,
					KeepRetrieved: keepRetrieved,
					Fingerprint:   segment.Fingerprint(),
				},
				a.metrics,
			)
			rep, err := ev.Run(ctx)
			if err != nil {
				return err
			}
			if qc != nil {
				hits, misses := qc.Stats()
				a.logger.Info("search cache usage", "hits", hits, "misses", misses)
			}
			if err := report.Write(cmd.OutOrStdout(), rep, a.format); err != nil {
				return err
			}

			a.record(ctx, rep)
			a.publish(ctx, rep)
			return nil
		},
	}
	cmd.Flags().String("benchmark", "", "benchmark file (overrides benchmark.path)")
	cmd.Flags().StringSlice("fields", nil, "fields to evaluate (overrides search.fields)")
	cmd.Flags().Bool("keep-retrieved", false, "include ranked document ids in JSON output")
	return cmd
}

// record stores the run in Postgres when enabled. The report is already
// printed, so failures are logged and do not fail the command.
func (a *app) record(ctx context.Context, rep *evaluation.Report) {
	if !a.cfg.Postgres.Enabled {
		return
	}
	client, err := postgres.New(ctx, a.cfg.Postgres)
	if err != nil {
		a.logger.Error("run history unavailable", "error", err)
		return
	}
	defer client.Close()
	store := history.NewStore(client)
	if err := store.Migrate(ctx); err != nil {
		a.logger.Error("run history migration failed", "error", err)
		return
	}
	if err := store.Save(ctx, rep); err != nil {
		a.logger.Error("saving run history failed", "error", err)
	}
}

// publish sends the run to Kafka when enabled, logging failures.
func (a *app) publish(ctx context.Context, rep *evaluation.Report) {
	if !a.cfg.Kafka.Enabled {
		return
	}
	producer := kafka.NewProducer(a.cfg.Kafka)
	defer producer.Close()
	if err := publisher.New(producer).Publish(ctx, rep); err != nil {
		a.logger.Error("publishing run failed", "error", err)
	}
}
