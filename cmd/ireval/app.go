package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/pkg/tracing"
)

// app is the per-command environment shared by every subcommand.
type app struct {
	cfg     *config.Config
	metrics *metrics.Metrics
	format  string
	runID   string
	span    *tracing.Span
	logger  *slog.Logger

	shutdownMetrics func(context.Context) error
}

// setup loads configuration, installs the logger and starts the metrics
// server when enabled. The returned context carries the run id and root
// span.
func setup(cmd *cobra.Command, name string) (context.Context, *app, error) {
	configPath, _ := cmd.Flags().GetString("config")
	format, _ := cmd.Flags().GetString("format")

	switch format {
	case "text", "json":
	default:
		return nil, nil, apperrors.Newf(apperrors.ErrInvalidInput, "unknown output format %q", format)
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	a := &app{
		cfg:     cfg,
		metrics: metrics.New(prometheus.NewRegistry()),
		format:  format,
		runID:   uuid.NewString(),
	}
	ctx := logger.WithRunID(cmd.Context(), a.runID)
	ctx, a.span = tracing.StartSpan(ctx, name, a.runID)
	a.logger = logger.FromContext(ctx).With("component", "cli", "command", name)

	if cfg.Metrics.Enabled {
		a.shutdownMetrics = a.metrics.StartServer(cfg.Metrics.Port)
	}
	a.logger.Info("command started", "config", configPath)
	return ctx, a, nil
}

func (a *app) analyzer() *tokenizer.Analyzer {
	return tokenizer.New(tokenizer.Options{
		StopWords:      a.cfg.Analyzer.StopWords,
		Stemming:       a.cfg.Analyzer.Stemming,
		MinTokenLength: a.cfg.Analyzer.MinTokenLength,
	})
}

// finish ends the root span, logs the span tree and stops the metrics
// server.
func (a *app) finish() {
	a.span.End()
	a.span.Log(a.logger)
	if a.shutdownMetrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.shutdownMetrics(ctx); err != nil {
			a.logger.Warn("metrics server shutdown failed", "error", err)
		}
	}
	a.logger.Info("command finished", "duration", a.span.Duration)
}
