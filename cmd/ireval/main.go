package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	apperrors "github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/pkg/errors"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ireval: %v\n", err)
		os.Exit(apperrors.ExitCode(err))
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "ireval",
		Short: "Build a movie search index and evaluate retrieval quality",
		Long: `ireval indexes a tab-separated movie corpus (title, body) and measures
how well ranked search over each field answers a hand-labeled benchmark,
reporting Precision@K, R-precision and MAP.

Run 'ireval index' to build an index, then 'ireval evaluate'.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				cmd.PrintErrln(cmd.UsageString())
				return apperrors.Newf(apperrors.ErrInvalidInput, "unknown command %q, expected index, evaluate, history, check or cache", args[0])
			}
			return cmd.Help()
		},
	}

	root.PersistentFlags().StringP("config", "c", "", "config file path")
	root.PersistentFlags().String("format", "text", "output format (text, json)")
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return apperrors.Newf(apperrors.ErrInvalidInput, "%v", err)
	})

	root.AddCommand(
		indexCmd(),
		evaluateCmd(),
		historyCmd(),
		checkCmd(),
		cacheCmd(),
	)
	return root
}
