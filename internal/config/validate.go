package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateFeed(); err != nil {
		return err
	}
	if err := c.validateTimeouts(); err != nil {
		return err
	}
	if err := c.validateAudio(); err != nil {
		return err
	}
	if err := c.validateSpeech(); err != nil {
		return err
	}
	if err := c.validateTranscript(); err != nil {
		return err
	}
	if c.Selection.MaxAttempts < 1 {
		return errors.New("selection.max_attempts must be >= 1")
	}
	if c.Download.MinFreeMiB < 0 {
		return errors.New("download.min_free_mib must be >= 0")
	}
	return c.validateLogging()
}

func (c *Config) validateFeed() error {
	if c.Feed.URL == "" {
		return fmt.Errorf("feed.url must be set (or export %s)", envFeedURL)
	}
	if err := ensureURL("feed.url", c.Feed.URL, "http", "https"); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateTimeouts() error {
	return ensurePositiveMap(map[string]int{
		"feed.timeout_seconds":          c.Feed.TimeoutSeconds,
		"download.timeout_seconds":      c.Download.TimeoutSeconds,
		"audio.timeout_seconds":         c.Audio.TimeoutSeconds,
		"speech.token_timeout_seconds":  c.Speech.TokenTimeoutSeconds,
		"speech.dial_timeout_seconds":   c.Speech.DialTimeoutSeconds,
		"speech.write_timeout_seconds":  c.Speech.WriteTimeoutSeconds,
		"notifications.request_timeout": c.Notifications.RequestTimeout,
	})
}

func (c *Config) validateAudio() error {
	if c.Audio.SampleRate <= 0 {
		return errors.New("audio.sample_rate must be positive")
	}
	if c.Audio.Channels != 1 && c.Audio.Channels != 2 {
		return errors.New("audio.channels must be 1 or 2")
	}
	return nil
}

func (c *Config) validateSpeech() error {
	switch c.Speech.Mode {
	case ModeShort, ModeLong:
	default:
		return fmt.Errorf("speech.mode must be %q or %q, got %q", ModeShort, ModeLong, c.Speech.Mode)
	}
	if err := ensureURL("speech.short_url", c.Speech.ShortURL, "ws", "wss"); err != nil {
		return err
	}
	if err := ensureURL("speech.long_url", c.Speech.LongURL, "ws", "wss"); err != nil {
		return err
	}
	if err := ensureURL("speech.token_url", c.Speech.TokenURL, "http", "https"); err != nil {
		return err
	}
	if c.Speech.ChunkBytes <= 0 || c.Speech.ChunkBytes > maxChunkBytes {
		return fmt.Errorf("speech.chunk_bytes must be between 1 and %d", maxChunkBytes)
	}
	if c.Speech.ResultBuffer < 1 {
		return errors.New("speech.result_buffer must be >= 1")
	}
	if c.Speech.ApplicationName == "" {
		return errors.New("speech.application_name must be set")
	}
	return nil
}

func (c *Config) validateTranscript() error {
	if c.Transcript.LinkHost == "" {
		return errors.New("transcript.link_host must be set")
	}
	if strings.ContainsAny(c.Transcript.LinkHost, " '\"<>") {
		return fmt.Errorf("transcript.link_host %q contains characters not allowed in a link", c.Transcript.LinkHost)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q is not recognized", c.Logging.Level)
	}
	return nil
}

func ensureURL(key, value string, schemes ...string) error {
	parsed, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	for _, scheme := range schemes {
		if strings.EqualFold(parsed.Scheme, scheme) && parsed.Host != "" {
			return nil
		}
	}
	return fmt.Errorf("%s must be a %s URL, got %q", key, strings.Join(schemes, "/"), value)
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
