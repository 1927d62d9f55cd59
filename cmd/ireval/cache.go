package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/internal/searcher/cache"
	apperrors "github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/pkg/errors"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/pkg/redis"
)

func cacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the Redis search result cache",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return apperrors.Newf(apperrors.ErrInvalidInput, "unknown cache command %q, expected clear", args[0])
			}
			return cmd.Help()
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove every cached search result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, a, err := setup(cmd, "cache clear")
			if err != nil {
				return err
			}
			defer a.finish()

			if !a.cfg.Redis.Enabled {
				return apperrors.New(apperrors.ErrInvalidInput, "the search cache requires redis.enabled")
			}
			qc, closeCache, err := a.openCache(ctx)
			if err != nil {
				return apperrors.Newf(apperrors.ErrIOFailure, "connecting to redis: %v", err)
			}
			defer closeCache()
			deleted, err := qc.Invalidate(ctx)
			if err != nil {
				return apperrors.Newf(apperrors.ErrIOFailure, "%v", err)
			}

			out := cmd.OutOrStdout()
			if a.format == "json" {
				return json.NewEncoder(out).Encode(map[string]int64{"deleted": deleted})
			}
			fmt.Fprintf(out, "Cache entries removed: %d\n", deleted)
			return nil
		},
	})
	return cmd
}

// openCache connects to Redis and wraps the client in a query cache.
func (a *app) openCache(ctx context.Context) (*cache.QueryCache, func(), error) {
	client, err := pkgredis.NewClient(ctx, a.cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	closeCache := func() {
		if err := client.Close(); err != nil {
			a.logger.Warn("closing redis client failed", "error", err)
		}
	}
	return cache.New(client, a.cfg.Redis.CacheTTL, a.metrics), closeCache, nil
}

// invalidateCache drops cached results after a new segment is written.
// Keys already carry the segment fingerprint, so a failure only leaves
// unreachable entries behind until their TTL expires.
func (a *app) invalidateCache(ctx context.Context) {
	if !a.cfg.Redis.Enabled {
		return
	}
	qc, closeCache, err := a.openCache(ctx)
	if err != nil {
		a.logger.Warn("redis unavailable, cached results not cleared", "error", err)
		return
	}
	defer closeCache()
	if _, err := qc.Invalidate(ctx); err != nil {
		a.logger.Warn("clearing cached results failed", "error", err)
	}
}
