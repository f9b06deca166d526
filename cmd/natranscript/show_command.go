package main

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/cobra"

	"natranscript/internal/episode"
	"natranscript/internal/selection"
	"natranscript/internal/transcript"
)

type entryView struct {
	Time string `json:"time"`
	Text string `json:"text"`
	Link string `json:"link"`
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	var filePath string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show [episode]",
		Short: "Display the lines of an episode transcript",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := strings.TrimSpace(filePath)
			if path == "" {
				if len(args) == 0 {
					return errors.New("specify an episode number or --file")
				}
				cfg, err := ctx.ensureConfig()
				if err != nil {
					return err
				}
				number := strings.TrimSpace(args[0])
				if fromName := selection.NumberFromFileName(number); fromName != "" {
					number = fromName
				}
				number, ok := episode.ParseNumber(number)
				if !ok {
					return fmt.Errorf("%q is not an episode number", strings.TrimSpace(args[0]))
				}
				path = transcript.HTMLPath(cfg.EpisodeDir(number), number)
			}

			entries, err := transcript.ParseFile(path)
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					return fmt.Errorf("no transcript at %s", path)
				}
				return fmt.Errorf("read transcript: %w", err)
			}

			views := make([]entryView, 0, len(entries))
			for _, entry := range entries {
				views = append(views, entryView{Time: entry.Timestamp(), Text: entry.Text(), Link: entry.Href})
			}
			if asJSON {
				return encodeJSON(cmd.OutOrStdout(), views)
			}

			out := cmd.OutOrStdout()
			if len(views) == 0 {
				fmt.Fprintf(out, "%s has no transcript lines\n", path)
				return nil
			}
			rows := make([][]string, 0, len(views))
			for _, v := range views {
				rows = append(rows, []string{v.Time, v.Text, v.Link})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Time", "Text", "Link"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft},
				shouldColorize(out),
			))
			fmt.Fprintf(out, "%d lines from %s\n", len(views), path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&filePath, "file", "f", "", "Transcript file to read instead of the episode directory")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of a table")
	return cmd
}
