package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"natranscript/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool
	var runID int64
	var episode string
	var level string
	var raw bool

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent log output",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if lines < 0 {
				return errors.New("--lines must be zero or positive")
			}
			filter := logs.Filter{RunID: runID, Episode: strings.TrimSpace(episode), MinLevel: level}
			out := cmd.OutOrStdout()

			result, err := logs.Tail(cmd.Context(), cfg.LogPath(), logs.TailOptions{Offset: -1, Limit: lines})
			if err != nil {
				return err
			}
			printLogLines(out, result.Lines, filter, raw)
			if !follow {
				return nil
			}

			offset := result.Offset
			for {
				result, err = logs.Tail(cmd.Context(), cfg.LogPath(), logs.TailOptions{Offset: offset, Follow: true, Wait: 5 * time.Second})
				if err != nil {
					if cmd.Context().Err() != nil {
						return nil
					}
					return err
				}
				printLogLines(out, result.Lines, filter, raw)
				offset = result.Offset
			}
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new log lines")
	cmd.Flags().Int64Var(&runID, "run", 0, "Only show entries for this run ID")
	cmd.Flags().StringVar(&episode, "episode", "", "Only show entries for this episode number")
	cmd.Flags().StringVar(&level, "level", "", "Minimum level (debug, info, warn, error)")
	cmd.Flags().BoolVar(&raw, "raw", false, "Print JSON lines unchanged")
	return cmd
}

func printLogLines(out io.Writer, lines []string, filter logs.Filter, raw bool) {
	for _, line := range lines {
		entry, ok := logs.Decode(line)
		if !ok {
			continue
		}
		if !filter.Match(entry) {
			continue
		}
		if raw {
			fmt.Fprintln(out, line)
			continue
		}
		fmt.Fprintln(out, logs.Format(entry))
	}
}
