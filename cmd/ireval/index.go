package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/internal/indexer"
)

type indexSummary struct {
	RunID     string   `json:"run_id"`
	Segment   string   `json:"segment"`
	Documents int      `json:"documents"`
	Skipped   int      `json:"skipped"`
	Fields    []string `json:"fields"`
}

func indexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build and persist an index from the movie corpus",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, a, err := setup(cmd, "index")
			if err != nil {
				return err
			}
			defer a.finish()

			if path, _ := cmd.Flags().GetString("corpus"); path != "" {
				a.cfg.Corpus.Path = path
			}
			policy, err := corpus.ParsePolicy(a.cfg.Corpus.OnMalformed)
			if err != nil {
				return err
			}
			movies, stats, err := corpus.ReadMovies(a.cfg.Corpus.Path, policy)
			a.metrics.MalformedRecordsTotal.WithLabelValues("corpus").Add(float64(stats.Skipped))
			if err != nil {
				return err
			}
			a.logger.Info("corpus read", "path", a.cfg.Corpus.Path, "stats", stats.String())

			engine, err := indexer.NewEngine(a.cfg.Indexer, a.analyzer(), a.metrics)
			if err != nil {
				return err
			}
			mi, err := engine.Build(ctx, movies)
			if err != nil {
				return err
			}
			path, err := engine.Persist(ctx, mi)
			if err != nil {
				return err
			}
			a.invalidateCache(ctx)

			summary := indexSummary{
				RunID:     a.runID,
				Segment:   path,
				Documents: mi.DocCount(),
				Skipped:   stats.Skipped,
				Fields:    mi.Fields(),
			}
			out := cmd.OutOrStdout()
			if a.format == "json" {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(summary)
			}
			fmt.Fprintf(out, "Documents added: %d (skipped %d malformed)\n", summary.Documents, summary.Skipped)
			fmt.Fprintf(out, "Segment: %s\n", summary.Segment)
			return nil
		},
	}
	cmd.Flags().String("corpus", "", "corpus file (overrides corpus.path)")
	return cmd
}
