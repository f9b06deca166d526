package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"natranscript/internal/config"
	"natranscript/internal/download"
	"natranscript/internal/episode"
	"natranscript/internal/history"
	"natranscript/internal/logging"
	"natranscript/internal/notifications"
	"natranscript/internal/preflight"
	"natranscript/internal/selection"
	"natranscript/internal/services"
	"natranscript/internal/speech"
	"natranscript/internal/transcript"
)

// ErrNoSelection is returned when the operator or file name did not yield an
// episode number. It wraps services.ErrValidation.
var ErrNoSelection = errors.New("no episode selected")

// CatalogReader loads the episode catalog.
type CatalogReader interface {
	Read(ctx context.Context, uri string) (episode.Catalog, error)
}

// Fetcher downloads episode audio.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL, dest string, progress download.ProgressFunc) (download.Result, error)
}

// Normalizer converts audio to PCM WAV.
type Normalizer interface {
	Normalize(ctx context.Context, src, dst string) error
}

// ResultStream is a live recognition session.
type ResultStream interface {
	Results() <-chan speech.Result
	Wait() error
	Close() error
}

// Recognizer opens recognition sessions.
type Recognizer interface {
	Recognize(ctx context.Context, audio io.Reader) (ResultStream, error)
}

// SpeechRecognizer adapts a speech.Client to Recognizer.
type SpeechRecognizer struct {
	Client *speech.Client
}

// Recognize implements Recognizer.
func (r SpeechRecognizer) Recognize(ctx context.Context, audio io.Reader) (ResultStream, error) {
	stream, err := r.Client.Recognize(ctx, audio)
	if err != nil {
		return nil, err
	}
	return stream, nil
}

// SelectorFactory builds the selector used after the catalog loads.
type SelectorFactory func(episode.Catalog) selection.Selector

// Deps are the collaborators a Pipeline drives. Store, Notifier, and Out may
// be nil.
type Deps struct {
	Logger     *slog.Logger
	Store      *history.Store
	Notifier   notifications.Service
	Catalog    CatalogReader
	Fetcher    Fetcher
	Normalizer Normalizer
	Recognizer Recognizer
	// Out receives operator-facing progress and transcript lines.
	Out io.Writer
	// Preflight runs before any audio is fetched; nil skips the checks.
	Preflight func(context.Context) []preflight.Result
}

// Outcome summarizes a finished run.
type Outcome struct {
	Run      RunContext
	Stats    transcript.Stats
	Duration time.Duration
}

// Pipeline sequences catalog, selection, download, conversion, and
// recognition for a single episode.
type Pipeline struct {
	cfg  *config.Config
	deps Deps
	mode speech.Mode
}

// New validates deps and returns a Pipeline.
func New(cfg *config.Config, deps Deps) (*Pipeline, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "configure", "config is nil", nil)
	}
	mode, err := speech.ParseMode(cfg.Speech.Mode)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "configure", err.Error(), nil)
	}
	if deps.Normalizer == nil || deps.Recognizer == nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "configure", "normalizer and recognizer are required", nil)
	}
	if deps.Notifier == nil {
		deps.Notifier = notifications.NewService(nil)
	}
	deps.Logger = logging.NewComponentLogger(deps.Logger, "pipeline")
	return &Pipeline{cfg: cfg, deps: deps, mode: mode}, nil
}

// RunFeed loads the catalog, lets newSelector choose an episode, downloads
// and converts its audio, and transcribes it.
func (p *Pipeline) RunFeed(ctx context.Context, newSelector SelectorFactory) (Outcome, error) {
	if p.deps.Catalog == nil || p.deps.Fetcher == nil || newSelector == nil {
		return Outcome{}, services.Wrap(services.ErrConfiguration, "pipeline", "configure", "catalog, fetcher, and selector are required", nil)
	}
	r, ctx, err := p.begin(ctx, history.SourceFeed)
	if err != nil {
		return Outcome{}, err
	}

	var catalog episode.Catalog
	if err := r.stage(ctx, "catalog", history.StatusCatalogLoaded, func(ctx context.Context) error {
		var readErr error
		catalog, readErr = p.deps.Catalog.Read(ctx, p.cfg.Feed.URL)
		if readErr != nil {
			return readErr
		}
		if len(catalog) == 0 {
			return services.Wrap(services.ErrNotFound, "catalog", "read feed", "feed lists no episodes", nil)
		}
		r.logger.Info("catalog loaded", logging.Int("episodes", len(catalog)))
		return nil
	}); err != nil {
		return Outcome{}, err
	}

	if err := r.stage(ctx, "select", history.StatusEpisodeSelected, func(ctx context.Context) error {
		ep, ok, err := newSelector(catalog).Resolve(ctx)
		if err != nil {
			return err
		}
		if !ok || !ep.Valid() {
			return services.Wrap(services.ErrValidation, "select", "resolve episode", "no episode selected", ErrNoSelection)
		}
		rc, err := newFeedRunContext(p.cfg, r.key, p.mode, ep)
		if err != nil {
			return err
		}
		r.setContext(rc)
		return nil
	}); err != nil {
		return Outcome{}, err
	}
	ctx = services.WithEpisode(ctx, r.rc.Episode.Number)

	if err := r.stage(ctx, "download", history.StatusDownloaded, func(ctx context.Context) error {
		if err := p.checkReady(ctx); err != nil {
			return err
		}
		return p.download(ctx, r)
	}); err != nil {
		return Outcome{}, err
	}

	return p.finish(ctx, r)
}

// RunFile transcribes a local audio file whose name carries the episode
// number as "-dddd-".
func (p *Pipeline) RunFile(ctx context.Context, audioPath string) (Outcome, error) {
	r, ctx, err := p.begin(ctx, history.SourceFile)
	if err != nil {
		return Outcome{}, err
	}

	if err := r.stage(ctx, "select", history.StatusEpisodeSelected, func(ctx context.Context) error {
		if _, err := os.Stat(audioPath); err != nil {
			return services.Wrap(services.ErrNotFound, "select", "stat audio", "audio file not found", err)
		}
		ep, ok, err := selection.NewFileName(audioPath).Resolve(ctx)
		if err != nil {
			return err
		}
		if !ok || !ep.Valid() {
			return services.Wrap(services.ErrValidation, "select", "resolve episode",
				"file name has no -dddd- episode number", ErrNoSelection)
		}
		rc, err := newFileRunContext(p.cfg, r.key, p.mode, ep, audioPath)
		if err != nil {
			return err
		}
		r.setContext(rc)
		return nil
	}); err != nil {
		return Outcome{}, err
	}
	ctx = services.WithEpisode(ctx, r.rc.Episode.Number)

	return p.finish(ctx, r)
}

// finish runs the stages shared by both entry points: conversion and recognition.
func (p *Pipeline) finish(ctx context.Context, r *runState) (Outcome, error) {
	if err := r.stage(ctx, "normalize", history.StatusNormalized, func(ctx context.Context) error {
		if !r.rc.NeedsConversion() {
			r.logger.Info("audio already WAV; skipping conversion", logging.String("path", r.rc.AudioPath))
			return nil
		}
		return p.deps.Normalizer.Normalize(ctx, r.rc.AudioPath, r.rc.WAVPath)
	}); err != nil {
		return Outcome{}, err
	}

	var stats transcript.Stats
	if err := r.transition(ctx, history.StatusRecognizing, "recognition started"); err != nil {
		return Outcome{}, r.fail(ctx, "recognize", err)
	}
	if err := r.stage(ctx, "recognize", history.StatusComplete, func(ctx context.Context) error {
		var recErr error
		stats, recErr = p.recognize(ctx, r)
		if r.record != nil {
			r.record.LinesWritten = stats.Lines
		}
		return recErr
	}); err != nil {
		return Outcome{}, err
	}

	outcome := Outcome{Run: r.rc, Stats: stats, Duration: time.Since(r.started)}
	r.logger.Info("transcript ready",
		logging.String(logging.FieldEventType, "run_complete"),
		logging.String("path", r.rc.TranscriptPath),
		logging.Int("lines", stats.Lines),
		logging.Duration("duration", outcome.Duration),
	)
	if err := p.deps.Notifier.NotifyTranscriptComplete(context.WithoutCancel(ctx), notifications.Summary{
		Episode:  r.rc.Episode.Number,
		Title:    r.rc.Episode.Title,
		Lines:    stats.Lines,
		Path:     r.rc.TranscriptPath,
		Duration: outcome.Duration,
	}); err != nil {
		r.logger.Debug("completion notification failed", logging.Error(err))
	}
	return outcome, nil
}

func (p *Pipeline) checkReady(ctx context.Context) error {
	if p.deps.Preflight == nil {
		return nil
	}
	failed := preflight.Failed(p.deps.Preflight(ctx))
	if len(failed) == 0 {
		return nil
	}
	parts := make([]string, 0, len(failed))
	for _, result := range failed {
		parts = append(parts, fmt.Sprintf("%s: %s", result.Name, result.Detail))
	}
	return services.Wrap(services.ErrConfiguration, "download", "preflight", strings.Join(parts, "; "), nil)
}

func (p *Pipeline) download(ctx context.Context, r *runState) error {
	sampler := logging.NewProgressSampler(5)
	result, err := p.deps.Fetcher.Fetch(ctx, r.rc.Episode.AudioURL, r.rc.AudioPath, func(progress download.Progress) {
		if progress.Percent < 0 {
			return
		}
		if p.deps.Out != nil {
			fmt.Fprintf(p.deps.Out, "\r Download progress: %d%%", int(progress.Percent))
		}
		if sampler.ShouldLog(progress.Percent) {
			r.logger.Debug("download progress",
				logging.Float64("percent", progress.Percent),
				logging.Int64("bytes", progress.Downloaded),
			)
		}
	})
	if p.deps.Out != nil {
		fmt.Fprintln(p.deps.Out)
	}
	if err != nil {
		return err
	}
	r.logger.Info("audio downloaded",
		logging.String("path", result.Path),
		logging.Int64("bytes", result.Bytes),
		logging.Duration("duration", result.Duration),
	)
	return nil
}

func (p *Pipeline) recognize(ctx context.Context, r *runState) (transcript.Stats, error) {
	file, err := os.Open(r.rc.WAVPath)
	if err != nil {
		return transcript.Stats{}, services.Wrap(services.ErrNotFound, "recognize", "open audio", r.rc.WAVPath, err)
	}
	defer file.Close()

	stream, err := p.deps.Recognizer.Recognize(ctx, file)
	if err != nil {
		return transcript.Stats{}, err
	}

	opts := []transcript.Option{
		transcript.WithLink(transcript.Link{Host: p.cfg.Transcript.LinkHost, Target: p.cfg.Transcript.LinkTarget}),
		transcript.WithLogger(p.deps.Logger),
	}
	if p.deps.Out != nil {
		opts = append(opts, transcript.WithEcho(p.deps.Out))
	}
	assembler := transcript.NewAssembler(r.rc.TranscriptPath, r.rc.Episode.Number, opts...)

	stats, consumeErr := assembler.Consume(ctx, stream.Results())
	if consumeErr != nil {
		_ = stream.Close()
		return stats, consumeErr
	}
	if err := stream.Wait(); err != nil {
		return stats, err
	}
	return stats, nil
}

// begin creates the run record and annotates ctx with its id.
func (p *Pipeline) begin(ctx context.Context, source history.Source) (*runState, context.Context, error) {
	r := &runState{
		store:    p.deps.Store,
		notifier: p.deps.Notifier,
		base:     p.deps.Logger,
		key:      uuid.NewString(),
		started:  time.Now(),
	}
	if r.store != nil {
		record, err := r.store.Create(ctx, r.key, source, p.cfg.Speech.Locale, p.mode.String())
		if err != nil {
			return nil, ctx, services.Wrap(services.ErrConfiguration, "pipeline", "record run", "could not write run history", err)
		}
		r.record = record
		ctx = services.WithRunID(ctx, record.ID)
	}
	ctx = services.WithRequestID(ctx, r.key)
	r.logger = logging.WithContext(ctx, r.base)
	r.logger.Info("run started",
		logging.String(logging.FieldEventType, "run_start"),
		logging.String("source", string(source)),
		logging.String("mode", p.mode.String()),
		logging.String("locale", p.cfg.Speech.Locale),
	)
	return r, ctx, nil
}
