package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"natranscript/internal/audio"
	"natranscript/internal/config"
	"natranscript/internal/download"
	"natranscript/internal/episode"
	"natranscript/internal/feed"
	"natranscript/internal/notifications"
	"natranscript/internal/preflight"
	"natranscript/internal/speech"
)

// NewDeps wires the production collaborators for cfg. The run history store
// is left to the caller, which owns its lifetime. Catalog entries are echoed
// to out as "<position>) <title>" while the feed is read.
func NewDeps(cfg *config.Config, logger *slog.Logger, out io.Writer) (Deps, error) {
	opts, err := speech.OptionsFromConfig(cfg, logger)
	if err != nil {
		return Deps{}, err
	}
	if out == nil {
		out = io.Discard
	}

	client := speech.NewClient(speech.NewTokenProviderFromConfig(cfg, nil), opts)
	return Deps{
		Logger:   logger,
		Notifier: notifications.NewService(cfg),
		Catalog: feed.NewReader(
			feed.WithObserver(func(position int, ep episode.Episode) {
				fmt.Fprintf(out, "%d) %s\n", position, ep.Title)
			}),
			feed.WithTimeout(cfg.FeedTimeout()),
			feed.WithUserAgent(cfg.Feed.UserAgent),
			feed.WithLogger(logger),
		),
		Fetcher: download.NewFetcher(
			download.WithTimeout(cfg.DownloadTimeout()),
			download.WithUserAgent(cfg.Feed.UserAgent),
			download.WithLogger(logger),
		),
		Normalizer: audio.NewNormalizer(audio.Options{
			FFmpegBinary: cfg.Audio.FFmpegBinary,
			SampleRate:   cfg.Audio.SampleRate,
			Channels:     cfg.Audio.Channels,
			Timeout:      cfg.AudioTimeout(),
			Logger:       logger,
		}),
		Recognizer: SpeechRecognizer{Client: client},
		Out:        out,
		Preflight: func(ctx context.Context) []preflight.Result {
			return preflight.RunAll(ctx, cfg)
		},
	}, nil
}
