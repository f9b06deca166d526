package config

import (
	"fmt"
	"os"
	"strings"

	"natranscript/internal/language"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeFeed()
	c.normalizeAudio()
	if err := c.normalizeSpeech(); err != nil {
		return err
	}
	c.normalizeTranscript()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if strings.TrimSpace(c.Paths.EpisodesDir) == "" {
		c.Paths.EpisodesDir = defaultEpisodesDir
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	var err error
	if c.Paths.EpisodesDir, err = expandPath(c.Paths.EpisodesDir); err != nil {
		return fmt.Errorf("paths.episodes_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeFeed() {
	if value, ok := os.LookupEnv(envFeedURL); ok && strings.TrimSpace(value) != "" {
		c.Feed.URL = value
	}
	c.Feed.URL = strings.TrimSpace(c.Feed.URL)
	c.Feed.UserAgent = strings.TrimSpace(c.Feed.UserAgent)
	if c.Feed.UserAgent == "" {
		c.Feed.UserAgent = defaultFeedUserAgent
	}
}

func (c *Config) normalizeAudio() {
	c.Audio.FFmpegBinary = strings.TrimSpace(c.Audio.FFmpegBinary)
	if c.Audio.FFmpegBinary == "" {
		c.Audio.FFmpegBinary = defaultFFmpegBinary
	}
}

func (c *Config) normalizeSpeech() error {
	c.Speech.SubscriptionKey = strings.TrimSpace(c.Speech.SubscriptionKey)
	if c.Speech.SubscriptionKey == "" {
		if value, ok := os.LookupEnv(envSubscriptionKey); ok {
			c.Speech.SubscriptionKey = strings.TrimSpace(value)
		}
	}

	locale := strings.TrimSpace(c.Speech.Locale)
	if locale == "" {
		locale = defaultLocale
	}
	canonical, err := language.Canonical(locale)
	if err != nil {
		return fmt.Errorf("speech.locale: %w", err)
	}
	c.Speech.Locale = canonical

	mode := strings.ToLower(strings.TrimSpace(c.Speech.Mode))
	if mode == "" {
		mode = defaultMode
	}
	c.Speech.Mode = mode

	c.Speech.ShortURL = strings.TrimSpace(c.Speech.ShortURL)
	c.Speech.LongURL = strings.TrimSpace(c.Speech.LongURL)
	c.Speech.TokenURL = strings.TrimSpace(c.Speech.TokenURL)
	c.Speech.ApplicationName = strings.TrimSpace(c.Speech.ApplicationName)
	c.Speech.ApplicationVersion = strings.TrimSpace(c.Speech.ApplicationVersion)
	c.Speech.ServiceName = strings.TrimSpace(c.Speech.ServiceName)
	if c.Speech.ServiceName == "" {
		c.Speech.ServiceName = defaultServiceName
	}
	return nil
}

func (c *Config) normalizeTranscript() {
	host := strings.TrimSpace(c.Transcript.LinkHost)
	host = strings.TrimPrefix(host, "http://")
	host = strings.TrimPrefix(host, "https://")
	c.Transcript.LinkHost = strings.TrimRight(host, "/")
	c.Transcript.LinkTarget = strings.TrimSpace(c.Transcript.LinkTarget)
	if c.Transcript.LinkTarget == "" {
		c.Transcript.LinkTarget = defaultLinkTarget
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
