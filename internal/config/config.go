package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	EpisodesDir string `toml:"episodes_dir"`
	LogDir      string `toml:"log_dir"`
	StateDir    string `toml:"state_dir"`
}

// Feed contains configuration for the podcast catalog source.
type Feed struct {
	URL            string `toml:"url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	UserAgent      string `toml:"user_agent"`
}

// Download contains configuration for fetching episode audio.
type Download struct {
	TimeoutSeconds int `toml:"timeout_seconds"`
	MinFreeMiB     int `toml:"min_free_mib"`
}

// Audio contains configuration for the ffmpeg based WAV conversion.
type Audio struct {
	FFmpegBinary   string `toml:"ffmpeg_binary"`
	SampleRate     int    `toml:"sample_rate"`
	Channels       int    `toml:"channels"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Speech contains configuration for the streaming recognition service.
type Speech struct {
	SubscriptionKey     string `toml:"subscription_key"`
	Locale              string `toml:"locale"`
	Mode                string `toml:"mode"`
	ShortURL            string `toml:"short_url"`
	LongURL             string `toml:"long_url"`
	TokenURL            string `toml:"token_url"`
	TokenTimeoutSeconds int    `toml:"token_timeout_seconds"`
	DialTimeoutSeconds  int    `toml:"dial_timeout_seconds"`
	WriteTimeoutSeconds int    `toml:"write_timeout_seconds"`
	ChunkBytes          int    `toml:"chunk_bytes"`
	ResultBuffer        int    `toml:"result_buffer"`
	ApplicationName     string `toml:"application_name"`
	ApplicationVersion  string `toml:"application_version"`
	ServiceName         string `toml:"service_name"`
	DeviceManufacturer  string `toml:"device_manufacturer"`
	DeviceModel         string `toml:"device_model"`
	DeviceOSVersion     string `toml:"device_os_version"`
}

// Transcript contains configuration for the rendered HTML transcript.
type Transcript struct {
	LinkHost   string `toml:"link_host"`
	LinkTarget string `toml:"link_target"`
}

// Selection contains configuration for interactive episode selection.
type Selection struct {
	MaxAttempts int `toml:"max_attempts"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Complete       bool   `toml:"complete"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for natranscript.
//
// Configuration sections by subsystem:
//   - Paths: episode storage, logs, and run history
//   - Feed: podcast catalog URL and fetch timeout
//   - Download: audio fetch timeout and free-space floor
//   - Audio: ffmpeg conversion settings
//   - Speech: recognition endpoints, credentials, and request metadata
//   - Transcript: link host used in transcript anchors
//   - Selection: interactive prompt attempts
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Feed          Feed          `toml:"feed"`
	Download      Download      `toml:"download"`
	Audio         Audio         `toml:"audio"`
	Speech        Speech        `toml:"speech"`
	Transcript    Transcript    `toml:"transcript"`
	Selection     Selection     `toml:"selection"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path of the per-user config file.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load reads the configuration at path, or searches the default locations
// when path is empty. It returns the config, the file it came from (or would
// have come from), and whether that file existed. Missing files fall back to
// defaults; the result is always normalized and validated.
func Load(path string) (*Config, string, bool, error) {
	source, exists, err := locate(path)
	if err != nil {
		return nil, "", false, err
	}

	cfg := Default()
	if exists {
		data, err := os.ReadFile(source)
		if err != nil {
			return nil, "", false, fmt.Errorf("read config: %w", err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config %s: %w", source, err)
		}
	}
	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, source, exists, nil
}

// locate picks the config file. An explicit path is used as-is; otherwise the
// per-user file wins over ./natranscript.toml.
func locate(explicit string) (string, bool, error) {
	if explicit != "" {
		path, err := expandPath(explicit)
		if err != nil {
			return "", false, err
		}
		exists, err := isFile(path)
		return path, exists, err
	}

	userPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}
	projectPath, err := expandPath(projectConfigName)
	if err != nil {
		return "", false, err
	}
	for _, candidate := range []string{userPath, projectPath} {
		if ok, _ := isFile(candidate); ok {
			return candidate, true, nil
		}
	}
	return userPath, false, nil
}

func isFile(path string) (bool, error) {
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("stat config: %w", err)
	}
	return !info.IsDir(), nil
}

// EnsureDirectories creates the episode, log, and state directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.EpisodesDir, c.Paths.LogDir, c.Paths.StateDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LogPath returns the file the CLI mirrors its log output into.
func (c *Config) LogPath() string {
	return filepath.Join(c.Paths.LogDir, "natranscript.log")
}

// HistoryPath returns the sqlite database recording past runs.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

// EpisodeDir returns the per-episode working directory.
func (c *Config) EpisodeDir(number string) string {
	return filepath.Join(c.Paths.EpisodesDir, number)
}

// RecognitionURL returns the websocket endpoint for the configured mode.
func (c *Config) RecognitionURL() string {
	if c.Speech.Mode == ModeShort {
		return c.Speech.ShortURL
	}
	return c.Speech.LongURL
}

// FeedTimeout bounds the catalog fetch.
func (c *Config) FeedTimeout() time.Duration {
	return time.Duration(c.Feed.TimeoutSeconds) * time.Second
}

// DownloadTimeout bounds a single audio download.
func (c *Config) DownloadTimeout() time.Duration {
	return time.Duration(c.Download.TimeoutSeconds) * time.Second
}

// AudioTimeout bounds a single ffmpeg conversion.
func (c *Config) AudioTimeout() time.Duration {
	return time.Duration(c.Audio.TimeoutSeconds) * time.Second
}

// expandPath resolves a leading "~" to the home directory and makes the
// result absolute. Empty input stays empty.
func expandPath(value string) (string, error) {
	if value == "" {
		return "", nil
	}
	if value == "~" || strings.HasPrefix(value, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		value = home + strings.TrimPrefix(value, "~")
	}
	absolute, err := filepath.Abs(value)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", value, err)
	}
	return absolute, nil
}

// ExpandPath applies the same "~" and absolute-path rules as the config
// loader.
func ExpandPath(value string) (string, error) {
	return expandPath(value)
}

// CreateSample writes the commented sample configuration to path, creating
// parent directories as needed.
func CreateSample(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
