package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"natranscript/internal/config"
)

func TestLoadDefaultConfigUsesEnvKeyAndExpandsPaths(t *testing.T) {
	t.Setenv("SPEECH_SUBSCRIPTION_KEY", " env-key ")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantLogs := filepath.Join(tempHome, ".local", "share", "natranscript", "logs")
	if cfg.Paths.LogDir != wantLogs {
		t.Fatalf("unexpected log dir: got %q want %q", cfg.Paths.LogDir, wantLogs)
	}
	if !filepath.IsAbs(cfg.Paths.EpisodesDir) || filepath.Base(cfg.Paths.EpisodesDir) != "episodes" {
		t.Fatalf("expected absolute episodes dir, got %q", cfg.Paths.EpisodesDir)
	}
	if cfg.Speech.SubscriptionKey != "env-key" {
		t.Fatalf("expected subscription key from env, got %q", cfg.Speech.SubscriptionKey)
	}
	if cfg.Speech.Mode != config.ModeLong {
		t.Fatalf("expected long mode by default, got %q", cfg.Speech.Mode)
	}
	if cfg.RecognitionURL() != cfg.Speech.LongURL {
		t.Fatalf("expected long url, got %q", cfg.RecognitionURL())
	}
	if cfg.Transcript.LinkHost != "naplay.it" {
		t.Fatalf("unexpected link host: %q", cfg.Transcript.LinkHost)
	}
	if cfg.Selection.MaxAttempts != 1 {
		t.Fatalf("expected a single selection attempt by default, got %d", cfg.Selection.MaxAttempts)
	}
	if cfg.HistoryPath() != filepath.Join(tempHome, ".local", "share", "natranscript", "history.db") {
		t.Fatalf("unexpected history path: %q", cfg.HistoryPath())
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "natranscript.toml")

	type payload struct {
		Paths struct {
			EpisodesDir string `toml:"episodes_dir"`
		} `toml:"paths"`
		Speech struct {
			Locale string `toml:"locale"`
			Mode   string `toml:"mode"`
		} `toml:"speech"`
		Transcript struct {
			LinkHost string `toml:"link_host"`
		} `toml:"transcript"`
		Selection struct {
			MaxAttempts int `toml:"max_attempts"`
		} `toml:"selection"`
	}
	custom := payload{}
	custom.Paths.EpisodesDir = filepath.Join(tempDir, "eps")
	custom.Speech.Locale = "en-gb"
	custom.Speech.Mode = "Short"
	custom.Transcript.LinkHost = "https://play.example.com/"
	custom.Selection.MaxAttempts = 3
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Paths.EpisodesDir != filepath.Join(tempDir, "eps") {
		t.Fatalf("unexpected episodes dir: %q", cfg.Paths.EpisodesDir)
	}
	if cfg.Speech.Locale != "en-GB" {
		t.Fatalf("expected canonical locale en-GB, got %q", cfg.Speech.Locale)
	}
	if cfg.Speech.Mode != config.ModeShort {
		t.Fatalf("expected short mode, got %q", cfg.Speech.Mode)
	}
	if cfg.RecognitionURL() != cfg.Speech.ShortURL {
		t.Fatalf("expected short url, got %q", cfg.RecognitionURL())
	}
	if cfg.Transcript.LinkHost != "play.example.com" {
		t.Fatalf("expected scheme and slash stripped from link host, got %q", cfg.Transcript.LinkHost)
	}
	if cfg.Selection.MaxAttempts != 3 {
		t.Fatalf("expected max attempts 3, got %d", cfg.Selection.MaxAttempts)
	}
	if cfg.EpisodeDir("102") != filepath.Join(tempDir, "eps", "102") {
		t.Fatalf("unexpected episode dir: %q", cfg.EpisodeDir("102"))
	}
}

func TestEnvFeedURLOverridesConfigFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "natranscript.toml")
	if err := os.WriteFile(configPath, []byte("[feed]\nurl = \"http://file.example/rss\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("NATRANSCRIPT_FEED_URL", "http://env.example/rss")

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Feed.URL != "http://env.example/rss" {
		t.Fatalf("expected feed url from env, got %q", cfg.Feed.URL)
	}
}

func TestLoadRejectsBadLocale(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "natranscript.toml")
	if err := os.WriteFile(configPath, []byte("[speech]\nlocale = \"not a locale!\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(configPath); err == nil || !strings.Contains(err.Error(), "speech.locale") {
		t.Fatalf("expected locale error, got %v", err)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "SPEECH_SUBSCRIPTION_KEY") {
		t.Fatalf("sample config missing subscription key hint: %s", contents)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	def := config.Default()
	if cfg.Speech.LongURL != def.Speech.LongURL || cfg.Feed.URL != def.Feed.URL {
		t.Fatalf("sample config drifted from defaults: %+v", cfg.Speech)
	}
	if cfg.Transcript.LinkHost != def.Transcript.LinkHost {
		t.Fatalf("sample link host %q differs from default %q", cfg.Transcript.LinkHost, def.Transcript.LinkHost)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"mode", func(c *config.Config) { c.Speech.Mode = "medium" }, "speech.mode"},
		{"feed timeout", func(c *config.Config) { c.Feed.TimeoutSeconds = 0 }, "feed.timeout_seconds"},
		{"dial timeout", func(c *config.Config) { c.Speech.DialTimeoutSeconds = -1 }, "speech.dial_timeout_seconds"},
		{"feed url", func(c *config.Config) { c.Feed.URL = "ftp://example.com/rss" }, "feed.url"},
		{"long url", func(c *config.Config) { c.Speech.LongURL = "https://example.com" }, "speech.long_url"},
		{"chunk", func(c *config.Config) { c.Speech.ChunkBytes = 0 }, "speech.chunk_bytes"},
		{"buffer", func(c *config.Config) { c.Speech.ResultBuffer = 0 }, "speech.result_buffer"},
		{"channels", func(c *config.Config) { c.Audio.Channels = 6 }, "audio.channels"},
		{"sample rate", func(c *config.Config) { c.Audio.SampleRate = 0 }, "audio.sample_rate"},
		{"link host", func(c *config.Config) { c.Transcript.LinkHost = "" }, "transcript.link_host"},
		{"link host quote", func(c *config.Config) { c.Transcript.LinkHost = "a'b" }, "transcript.link_host"},
		{"attempts", func(c *config.Config) { c.Selection.MaxAttempts = 0 }, "selection.max_attempts"},
		{"log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}

	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}
