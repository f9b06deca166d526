package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"natranscript/internal/config"
	"natranscript/internal/history"
	"natranscript/internal/language"
	"natranscript/internal/logging"
	"natranscript/internal/pipeline"
	"natranscript/internal/speech"
)

const signupHint = "Sign up at https://www.microsoft.com/cognitive-services/ with a client/subscription id to get a client secret key."

func displayHelp(w io.Writer, message string) {
	if message == "" {
		message = "speechsample help"
	}
	fmt.Fprintln(w, message)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Arg[0]: Specify an input audio wav file.")
	fmt.Fprintln(w, "Arg[1]: Specify the audio locale.")
	fmt.Fprintln(w, "Arg[2]: Recognition mode [Short|Long].")
	fmt.Fprintln(w, "Arg[3]: Specify the subscription key to access the Speech Recognition Service.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, signupHint)
}

// batchArgs are the validated positional arguments.
type batchArgs struct {
	audioPath string
	locale    string
	mode      speech.Mode
	key       string
}

// parseArgs returns false after printing help when the arguments cannot be used.
func parseArgs(w io.Writer, args []string) (batchArgs, bool) {
	if len(args) < 4 {
		displayHelp(w, "Invalid number of arguments.")
		return batchArgs{}, false
	}
	info, err := os.Stat(args[0])
	if err != nil || info.IsDir() {
		displayHelp(w, "Audio file not found.")
		return batchArgs{}, false
	}
	rawMode := strings.TrimSpace(args[2])
	if !strings.EqualFold(rawMode, "long") && !strings.EqualFold(rawMode, "short") {
		displayHelp(w, "Invalid RecognitionMode.")
		return batchArgs{}, false
	}
	mode, err := speech.ParseMode(rawMode)
	if err != nil {
		displayHelp(w, "Invalid RecognitionMode.")
		return batchArgs{}, false
	}
	locale, err := language.Canonical(args[1])
	if err != nil {
		displayHelp(w, "Invalid locale.")
		return batchArgs{}, false
	}
	key := strings.TrimSpace(args[3])
	if key == "" {
		displayHelp(w, "Please supply key")
		return batchArgs{}, false
	}
	return batchArgs{audioPath: args[0], locale: locale, mode: mode, key: key}, true
}

func newRootCommand() *cobra.Command {
	var configFlag string

	cmd := &cobra.Command{
		Use:           "speechsample <audioFilePath> <locale> <Short|Long> <subscriptionKey>",
		Short:         "Transcribe a local episode audio file",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			parsed, ok := parseArgs(out, args)
			if !ok {
				return nil
			}

			cfg, _, _, err := config.Load(strings.TrimSpace(configFlag))
			if err != nil {
				return err
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return err
			}
			cfg.Speech.Locale = parsed.locale
			cfg.Speech.Mode = parsed.mode.String()
			cfg.Speech.SubscriptionKey = parsed.key

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			deps, err := pipeline.NewDeps(cfg, logger, out)
			if err != nil {
				return err
			}

			store, err := history.Open(cmd.Context(), cfg.HistoryPath())
			if err != nil {
				return fmt.Errorf("open run history: %w", err)
			}
			defer store.Close()
			deps.Store = store

			p, err := pipeline.New(cfg, deps)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Recognizing %s (%s, %s mode)\n",
				parsed.audioPath, language.DisplayName(parsed.locale), parsed.mode.Label())
			outcome, err := p.RunFile(cmd.Context(), parsed.audioPath)
			if errors.Is(err, pipeline.ErrNoSelection) {
				displayHelp(out, "Audio file name must contain the episode number as -dddd-.")
				return nil
			}
			if errors.Is(err, fs.ErrNotExist) {
				displayHelp(out, "Audio file not found.")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Transcript written to %s (%d lines)\n", outcome.Run.TranscriptPath, outcome.Stats.Lines)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	return cmd
}
