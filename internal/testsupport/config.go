package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"natranscript/internal/config"
)

// ConfigOption adjusts a config built by NewConfig.
type ConfigOption func(t testing.TB, cfg *config.Config)

// NewConfig returns defaults rooted in a fresh temp directory:
// <tmp>/episodes, <tmp>/logs and <tmp>/state. The subscription key is "test",
// the feed URL is unroutable and the free-space floor is disabled.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	root := t.TempDir()
	cfg := config.Default()
	cfg.Paths = config.Paths{
		EpisodesDir: filepath.Join(root, "episodes"),
		LogDir:      filepath.Join(root, "logs"),
		StateDir:    filepath.Join(root, "state"),
	}
	cfg.Speech.SubscriptionKey = "test"
	cfg.Feed.URL = "http://feed.test/rss.xml"
	cfg.Download.MinFreeMiB = 0

	for _, opt := range opts {
		opt(t, &cfg)
	}
	return &cfg
}

// BaseDir returns the temp directory NewConfig rooted cfg in.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.EpisodesDir)
}

// WithSubscriptionKey replaces the default "test" key.
func WithSubscriptionKey(key string) ConfigOption {
	return func(_ testing.TB, cfg *config.Config) { cfg.Speech.SubscriptionKey = key }
}

func WithMode(mode string) ConfigOption {
	return func(_ testing.TB, cfg *config.Config) { cfg.Speech.Mode = mode }
}

func WithFFmpegBinary(path string) ConfigOption {
	return func(_ testing.TB, cfg *config.Config) { cfg.Audio.FFmpegBinary = path }
}

// WithStubbedBinaries puts shell stubs for names (ffmpeg when empty) first on
// PATH for the rest of the test. Each stub prints "<name> version 6.1".
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(t testing.TB, cfg *config.Config) {
		t.Helper()
		if len(names) == 0 {
			names = []string{"ffmpeg"}
		}
		bin := filepath.Join(BaseDir(cfg), "bin")
		if err := os.MkdirAll(bin, 0o755); err != nil {
			t.Fatalf("mkdir bin dir: %v", err)
		}
		for _, name := range names {
			script := "#!/bin/sh\necho \"" + name + " version 6.1\"\n"
			if err := os.WriteFile(filepath.Join(bin, name), []byte(script), 0o755); err != nil {
				t.Fatalf("write stub %s: %v", name, err)
			}
		}
		t.Setenv("PATH", bin+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
}
