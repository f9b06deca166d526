package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"natranscript/internal/deps"
	"natranscript/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the environment a transcription run needs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			runCtx := cmd.Context()

			results := preflight.RunAll(runCtx, cfg)
			if !offline {
				results = append(results,
					preflight.CheckEndpoint(runCtx, "Feed", cfg.Feed.URL, cfg.FeedTimeout()),
					preflight.CheckEndpoint(runCtx, "Token endpoint", cfg.Speech.TokenURL, cfg.FeedTimeout()),
				)
			}
			results = append(results, preflight.Result{
				Name:   "Subscription key",
				Passed: cfg.Speech.SubscriptionKey != "",
				Detail: "configured",
			})
			if cfg.Speech.SubscriptionKey == "" {
				results[len(results)-1].Detail = "not configured; pass it as an argument"
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			rows := make([][]string, 0, len(results)+1)
			for _, result := range results {
				status := "ok"
				if !result.Passed {
					status = "fail"
				}
				rows = append(rows, []string{result.Name, colorStatus(status, result.Passed, colorize), result.Detail})
			}
			if ffmpeg := deps.Probe(runCtx, deps.FFmpeg(cfg.Audio.FFmpegBinary)); ffmpeg.Version != "" {
				rows = append(rows, []string{ffmpeg.Name + " version", colorStatus("ok", true, colorize), ffmpeg.Version})
			}
			fmt.Fprintln(out, renderTable([]string{"Check", "Status", "Detail"}, rows, nil, colorize))

			// A missing key only matters for runs that do not pass one.
			failed := 0
			for _, result := range preflight.Failed(results) {
				if result.Name != "Subscription key" {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d checks failed", failed)
			}
			fmt.Fprintln(out, "All checks passed")
			return nil
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "Skip network reachability checks")
	return cmd
}
