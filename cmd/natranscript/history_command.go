package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"natranscript/internal/history"
)

type runView struct {
	ID         int64  `json:"id"`
	Episode    string `json:"episode,omitempty"`
	Title      string `json:"title,omitempty"`
	Source     string `json:"source"`
	Status     string `json:"status"`
	Lines      int    `json:"lines"`
	Transcript string `json:"transcript,omitempty"`
	Error      string `json:"error,omitempty"`
	Started    string `json:"started"`
	Duration   string `json:"duration"`
}

func newRunView(run *history.Run, now time.Time) runView {
	return runView{
		ID:         run.ID,
		Episode:    run.EpisodeNumber,
		Title:      run.EpisodeTitle,
		Source:     string(run.Source),
		Status:     string(run.Status),
		Lines:      run.LinesWritten,
		Transcript: run.TranscriptPath,
		Error:      run.ErrorMessage,
		Started:    run.CreatedAt.Local().Format("2006-01-02 15:04"),
		Duration:   run.Duration(now).Round(time.Second).String(),
	}
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var statuses []string
	var episodeFilter string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past transcription runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := history.ListOptions{Limit: limit, Episode: strings.TrimSpace(episodeFilter)}
			for _, raw := range statuses {
				status, ok := history.ParseStatus(raw)
				if !ok {
					return fmt.Errorf("unknown status %q", raw)
				}
				opts.Statuses = append(opts.Statuses, status)
			}

			return ctx.withStore(cmd.Context(), func(store *history.Store) error {
				runs, err := store.List(cmd.Context(), opts)
				if err != nil {
					return err
				}
				now := time.Now()
				views := make([]runView, 0, len(runs))
				for _, run := range runs {
					views = append(views, newRunView(run, now))
				}
				if asJSON {
					return encodeJSON(cmd.OutOrStdout(), views)
				}
				out := cmd.OutOrStdout()
				if len(views) == 0 {
					fmt.Fprintln(out, "No runs recorded")
					return nil
				}
				colorize := shouldColorize(out)
				rows := make([][]string, 0, len(views))
				for _, v := range views {
					rows = append(rows, []string{
						strconv.FormatInt(v.ID, 10),
						v.Episode,
						v.Title,
						v.Source,
						colorStatus(v.Status, v.Status != string(history.StatusFailed), colorize),
						strconv.Itoa(v.Lines),
						v.Started,
						v.Duration,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Episode", "Title", "Source", "Status", "Lines", "Started", "Duration"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignRight},
					colorize,
				))
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list (0 for all)")
	cmd.Flags().StringSliceVar(&statuses, "status", nil, "Only list runs in these statuses")
	cmd.Flags().StringVar(&episodeFilter, "episode", "", "Only list runs for this episode number")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of a table")

	cmd.AddCommand(newHistoryEventsCommand(ctx))
	cmd.AddCommand(newHistoryPruneCommand(ctx))
	return cmd
}

func newHistoryEventsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "events <run-id>",
		Short: "Show the status transitions of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(strings.TrimSpace(args[0]), 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid run id %q", args[0])
			}
			return ctx.withStore(cmd.Context(), func(store *history.Store) error {
				run, err := store.Get(cmd.Context(), id)
				if err != nil {
					return err
				}
				events, err := store.Events(cmd.Context(), id)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Run %d: episode %s, %s\n", run.ID, valueOrDash(run.EpisodeNumber), run.Status)
				if run.ErrorMessage != "" {
					fmt.Fprintf(out, "Error: %s\n", run.ErrorMessage)
				}
				rows := make([][]string, 0, len(events))
				for _, ev := range events {
					rows = append(rows, []string{
						ev.CreatedAt.Local().Format("2006-01-02 15:04:05"),
						string(ev.Status),
						ev.Message,
					})
				}
				fmt.Fprintln(out, renderTable([]string{"Time", "Status", "Message"}, rows, nil, shouldColorize(out)))
				return nil
			})
		},
	}
}

func newHistoryPruneCommand(ctx *commandContext) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete finished runs older than a cutoff",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be positive")
			}
			return ctx.withStore(cmd.Context(), func(store *history.Store) error {
				removed, err := store.Prune(cmd.Context(), time.Now().Add(-olderThan))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d runs\n", removed)
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "Age of finished runs to remove")
	return cmd
}

func valueOrDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
