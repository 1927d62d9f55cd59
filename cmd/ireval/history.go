package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/internal/evaluation/history"
	"github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/internal/evaluation/report"
	apperrors "github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/pkg/postgres"
)

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List recent evaluation runs stored in Postgres",
		Long: `Without arguments, list the field means of the most recent runs. With a
run id, print the full stored report of that run.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, a, err := setup(cmd, "history")
			if err != nil {
				return err
			}
			defer a.finish()

			limit, _ := cmd.Flags().GetInt("limit")
			if limit < 1 {
				return apperrors.Newf(apperrors.ErrInvalidInput, "--limit must be at least 1, got %d", limit)
			}
			if !a.cfg.Postgres.Enabled {
				return apperrors.New(apperrors.ErrInvalidInput, "run history requires postgres.enabled")
			}
			client, err := postgres.New(ctx, a.cfg.Postgres)
			if err != nil {
				return apperrors.Newf(apperrors.ErrIOFailure, "connecting to postgres: %v", err)
			}
			defer client.Close()

			store := history.NewStore(client)
			if err := store.Migrate(ctx); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(args) == 1 {
				rep, err := store.Load(ctx, args[0])
				if err != nil {
					return err
				}
				if rep == nil {
					return apperrors.Newf(apperrors.ErrNotFound, "no evaluation run %q", args[0])
				}
				return report.Write(out, rep, a.format)
			}

			runs, err := store.List(ctx, limit)
			if err != nil {
				return err
			}

			if a.format == "json" {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(runs)
			}
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "RUN\tSTARTED\tFIELD\tMP@K\tMP@R\tMAP\tEVALUATED\tSKIPPED")
			for _, run := range runs {
				for _, f := range run.Fields {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%.4f\t%.4f\t%.4f\t%d\t%d\n",
						run.RunID, run.StartedAt.Format(time.RFC3339), f.Field,
						f.MeanPrecisionAtK, f.MeanPrecisionAtR, f.MAP, f.Evaluated, f.Skipped)
				}
			}
			return tw.Flush()
		},
	}
	cmd.Flags().Int("limit", 10, "number of runs to show")
	return cmd
}
