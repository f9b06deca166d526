package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"natranscript/internal/episode"
	"natranscript/internal/history"
	"natranscript/internal/pipeline"
	"natranscript/internal/selection"
)

func runTranscribe(cmd *cobra.Command, ctx *commandContext, args []string) error {
	out := cmd.OutOrStdout()
	if len(args) > 1 {
		displayHelp(out, "Invalid number of arguments.")
		return nil
	}

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	key := cfg.Speech.SubscriptionKey
	if len(args) == 1 {
		key = strings.TrimSpace(args[0])
	}
	if key == "" {
		displayHelp(out, "Please supply key")
		return nil
	}
	cfg.Speech.SubscriptionKey = key

	logger, err := ctx.logger()
	if err != nil {
		return err
	}
	deps, err := pipeline.NewDeps(cfg, logger, out)
	if err != nil {
		return err
	}

	return ctx.withStore(cmd.Context(), func(store *history.Store) error {
		deps.Store = store
		p, err := pipeline.New(cfg, deps)
		if err != nil {
			return err
		}
		outcome, err := p.RunFeed(cmd.Context(), func(catalog episode.Catalog) selection.Selector {
			fmt.Fprintln(out)
			return selection.NewInteractive(catalog, cmd.InOrStdin(), out, cfg.Selection.MaxAttempts)
		})
		if errors.Is(err, pipeline.ErrNoSelection) {
			fmt.Fprintln(out, "No episode selected.")
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Transcript written to %s (%d lines, %s)\n",
			outcome.Run.TranscriptPath, outcome.Stats.Lines, outcome.Duration.Round(1e9))
		return nil
	})
}
