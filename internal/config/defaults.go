package config

// Recognition modes accepted by speech.mode.
const (
	ModeShort = "short"
	ModeLong  = "long"
)

const (
	defaultConfigPath         = "~/.config/natranscript/config.toml"
	projectConfigName         = "natranscript.toml"
	defaultEpisodesDir        = "episodes"
	defaultLogDir             = "~/.local/share/natranscript/logs"
	defaultStateDir           = "~/.local/share/natranscript"
	defaultFeedURL            = "http://feed.nashownotes.com/rss.xml"
	defaultFeedTimeout        = 30
	defaultFeedUserAgent      = "natranscript/1.0"
	defaultDownloadTimeout    = 3600
	defaultMinFreeMiB         = 512
	defaultFFmpegBinary       = "ffmpeg"
	defaultSampleRate         = 16000
	defaultChannels           = 1
	defaultAudioTimeout       = 1800
	defaultLocale             = "en-US"
	defaultMode               = ModeLong
	defaultShortURL           = "wss://speech.platform.bing.com/api/service/recognition"
	defaultLongURL            = "wss://speech.platform.bing.com/api/service/recognition/continuous"
	defaultTokenURL           = "https://api.cognitive.microsoft.com/sts/v1.0/issueToken"
	defaultTokenTimeout       = 10
	defaultDialTimeout        = 10
	defaultWriteTimeout       = 10
	defaultChunkBytes         = 4096
	defaultResultBuffer       = 64
	defaultApplicationName    = "NA Transcribe"
	defaultApplicationVersion = "1.0.0"
	defaultServiceName        = "NATranscriptService"
	defaultDeviceManufacturer = "Dell"
	defaultDeviceModel        = "T3600"
	defaultDeviceOSVersion    = "1607"
	defaultLinkHost           = "naplay.it"
	defaultLinkTarget         = "naplayer"
	defaultSelectionAttempts  = 1
	defaultNotifyTimeout      = 10
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	envSubscriptionKey        = "SPEECH_SUBSCRIPTION_KEY"
	envFeedURL                = "NATRANSCRIPT_FEED_URL"
	maxChunkBytes             = 1 << 20
	defaultNotifyComplete     = true
	defaultNotifyErrors       = true
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			EpisodesDir: defaultEpisodesDir,
			LogDir:      defaultLogDir,
			StateDir:    defaultStateDir,
		},
		Feed: Feed{
			URL:            defaultFeedURL,
			TimeoutSeconds: defaultFeedTimeout,
			UserAgent:      defaultFeedUserAgent,
		},
		Download: Download{
			TimeoutSeconds: defaultDownloadTimeout,
			MinFreeMiB:     defaultMinFreeMiB,
		},
		Audio: Audio{
			FFmpegBinary:   defaultFFmpegBinary,
			SampleRate:     defaultSampleRate,
			Channels:       defaultChannels,
			TimeoutSeconds: defaultAudioTimeout,
		},
		Speech: Speech{
			Locale:              defaultLocale,
			Mode:                defaultMode,
			ShortURL:            defaultShortURL,
			LongURL:             defaultLongURL,
			TokenURL:            defaultTokenURL,
			TokenTimeoutSeconds: defaultTokenTimeout,
			DialTimeoutSeconds:  defaultDialTimeout,
			WriteTimeoutSeconds: defaultWriteTimeout,
			ChunkBytes:          defaultChunkBytes,
			ResultBuffer:        defaultResultBuffer,
			ApplicationName:     defaultApplicationName,
			ApplicationVersion:  defaultApplicationVersion,
			ServiceName:         defaultServiceName,
			DeviceManufacturer:  defaultDeviceManufacturer,
			DeviceModel:         defaultDeviceModel,
			DeviceOSVersion:     defaultDeviceOSVersion,
		},
		Transcript: Transcript{
			LinkHost:   defaultLinkHost,
			LinkTarget: defaultLinkTarget,
		},
		Selection: Selection{
			MaxAttempts: defaultSelectionAttempts,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			Complete:       defaultNotifyComplete,
			Errors:         defaultNotifyErrors,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
