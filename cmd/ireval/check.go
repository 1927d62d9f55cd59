package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/internal/indexer/segment"
	apperrors "github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/pkg/redis"
)

func checkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify input files, the newest segment and enabled backends",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, a, err := setup(cmd, "check")
			if err != nil {
				return err
			}
			defer a.finish()

			timeout, _ := cmd.Flags().GetDuration("timeout")
			checker := health.NewChecker(timeout)
			checker.Register("corpus", fileCheck(a.cfg.Corpus.Path))
			checker.Register("benchmark", fileCheck(a.cfg.Benchmark.Path))
			checker.Register("segment", func(ctx context.Context) (string, error) {
				path, err := segment.Latest(a.cfg.Indexer.DataDir)
				if err != nil {
					return "", err
				}
				r, err := segment.OpenReader(path)
				if err != nil {
					return "", err
				}
				defer r.Close()
				return fmt.Sprintf("%s docs=%d fingerprint=%s", filepath.Base(path), r.DocCount(), r.Fingerprint()), nil
			})
			if a.cfg.Redis.Enabled {
				checker.Register("redis", func(ctx context.Context) (string, error) {
					client, err := pkgredis.NewClient(ctx, a.cfg.Redis)
					if err != nil {
						return "", err
					}
					return a.cfg.Redis.Addr, client.Close()
				})
			} else {
				checker.Disabled("redis")
			}
			if a.cfg.Postgres.Enabled {
				checker.Register("postgres", func(ctx context.Context) (string, error) {
					client, err := postgres.New(ctx, a.cfg.Postgres)
					if err != nil {
						return "", err
					}
					return fmt.Sprintf("%s:%d/%s", a.cfg.Postgres.Host, a.cfg.Postgres.Port, a.cfg.Postgres.Database), client.Close()
				})
			} else {
				checker.Disabled("postgres")
			}
			if a.cfg.Kafka.Enabled {
				checker.Register("kafka", func(ctx context.Context) (string, error) {
					return kafka.Ping(ctx, a.cfg.Kafka.Brokers)
				})
			} else {
				checker.Disabled("kafka")
			}

			report := checker.Run(ctx)
			out := cmd.OutOrStdout()
			if a.format == "json" {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(report); err != nil {
					return err
				}
			} else {
				tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "CHECK\tSTATUS\tLATENCY\tDETAIL")
				for _, res := range report.Results {
					detail := res.Detail
					if res.Error != "" {
						detail = res.Error
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", res.Name, res.Status, res.Latency.Round(time.Millisecond), detail)
				}
				if err := tw.Flush(); err != nil {
					return err
				}
			}
			if report.Status == health.StatusDown {
				return apperrors.New(apperrors.ErrIOFailure, "one or more checks failed")
			}
			return nil
		},
	}
	cmd.Flags().Duration("timeout", 10*time.Second, "per-check timeout")
	return cmd
}

func fileCheck(path string) health.Check {
	return func(ctx context.Context) (string, error) {
		info, err := os.Stat(path)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s (%d bytes)", path, info.Size()), nil
	}
}
