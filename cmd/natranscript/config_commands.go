package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"natranscript/internal/config"
)

func newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:         "config",
		Short:       "Inspect or create the configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
	}
	cmd.AddCommand(newConfigInitCommand(), newConfigValidateCommand(), newConfigShowCommand())
	return cmd
}

func newConfigInitCommand() *cobra.Command {
	var target string
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a commented sample configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := initTarget(target)
			if err != nil {
				return err
			}
			switch _, err := os.Stat(path); {
			case err == nil && !overwrite:
				return fmt.Errorf("%s already exists (pass --overwrite to replace it)", path)
			case err != nil && !errors.Is(err, fs.ErrNotExist):
				return fmt.Errorf("check config path: %w", err)
			}
			if err := config.CreateSample(path); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", path)
			fmt.Fprintln(out, "Set speech.subscription_key (or export SPEECH_SUBSCRIPTION_KEY) to run without passing the key.")
			return nil
		},
	}
	cmd.Flags().StringVarP(&target, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing file")
	return cmd
}

func initTarget(flagValue string) (string, error) {
	if flagValue = strings.TrimSpace(flagValue); flagValue != "" {
		return config.ExpandPath(flagValue)
	}
	path, err := config.DefaultConfigPath()
	if err != nil {
		return "", fmt.Errorf("determine default config path: %w", err)
	}
	return path, nil
}

func newConfigValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load the configuration and report problems",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, exists, err := loadFromFlag(cmd)
			if err != nil {
				return err
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if exists {
				fmt.Fprintf(out, "Config path: %s\n", path)
			} else {
				fmt.Fprintf(out, "Config path: %s (not found, using defaults)\n", path)
			}
			fmt.Fprintf(out, "Episodes directory: %s\n", cfg.Paths.EpisodesDir)
			fmt.Fprintf(out, "Recognition: %s (%s)\n", cfg.Speech.Mode, cfg.Speech.Locale)
			fmt.Fprintf(out, "Subscription key set: %s\n", yesNo(cfg.Speech.SubscriptionKey != ""))
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as TOML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, _, err := loadFromFlag(cmd)
			if err != nil {
				return err
			}
			effective := *cfg
			if effective.Speech.SubscriptionKey != "" {
				effective.Speech.SubscriptionKey = "<redacted>"
			}
			data, err := toml.Marshal(effective)
			if err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

// loadFromFlag reads --config directly because config subcommands skip the
// shared lazy load.
func loadFromFlag(cmd *cobra.Command) (*config.Config, string, bool, error) {
	flagPath, _ := cmd.Flags().GetString("config")
	cfg, path, exists, err := config.Load(strings.TrimSpace(flagPath))
	if err != nil {
		return nil, "", false, fmt.Errorf("load config: %w", err)
	}
	return cfg, path, exists, nil
}
