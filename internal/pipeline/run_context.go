package pipeline

import (
	"fmt"
	"path/filepath"

	"natranscript/internal/audio"
	"natranscript/internal/config"
	"natranscript/internal/download"
	"natranscript/internal/episode"
	"natranscript/internal/history"
	"natranscript/internal/services"
	"natranscript/internal/speech"
	"natranscript/internal/transcript"
)

// RunContext holds everything a run needs once an episode is chosen. It is
// built once and passed by value; stages never modify it.
type RunContext struct {
	RunID          int64
	RunKey         string
	Source         history.Source
	Episode        episode.Episode
	EpisodeDir     string
	AudioPath      string
	WAVPath        string
	TranscriptPath string
	// OPMLPath is reserved for an outline export and is never written.
	OPMLPath string
	Locale   string
	Mode     speech.Mode
}

// NeedsConversion reports whether the audio must be converted before recognition.
func (rc RunContext) NeedsConversion() bool {
	return rc.AudioPath != rc.WAVPath
}

// newFeedRunContext places the download under <episodes_dir>/<number>. The
// number must be decimal; it becomes a directory name.
func newFeedRunContext(cfg *config.Config, key string, mode speech.Mode, ep episode.Episode) (RunContext, error) {
	number, ok := episode.ParseNumber(ep.Number)
	if !ok {
		return RunContext{}, services.Wrap(services.ErrValidation, "select", "resolve episode",
			fmt.Sprintf("episode number %q is not a decimal number", ep.Number), nil)
	}
	ep.Number = number
	dir := cfg.EpisodeDir(number)
	audioPath, err := download.Destination(dir, ep.AudioURL)
	if err != nil {
		return RunContext{}, err
	}
	return newRunContext(cfg, key, history.SourceFeed, mode, ep, dir, audioPath), nil
}

// newFileRunContext writes the transcript next to the given audio file.
func newFileRunContext(cfg *config.Config, key string, mode speech.Mode, ep episode.Episode, audioPath string) (RunContext, error) {
	abs, err := filepath.Abs(audioPath)
	if err != nil {
		return RunContext{}, fmt.Errorf("resolve audio path: %w", err)
	}
	return newRunContext(cfg, key, history.SourceFile, mode, ep, filepath.Dir(abs), abs), nil
}

func newRunContext(cfg *config.Config, key string, source history.Source, mode speech.Mode, ep episode.Episode, dir, audioPath string) RunContext {
	wavPath := audioPath
	if !audio.IsWAV(audioPath) {
		wavPath = audio.WAVPath(audioPath)
	}
	return RunContext{
		RunKey:         key,
		Source:         source,
		Episode:        ep,
		EpisodeDir:     dir,
		AudioPath:      audioPath,
		WAVPath:        wavPath,
		TranscriptPath: transcript.HTMLPath(dir, ep.Number),
		OPMLPath:       transcript.OPMLPath(dir, ep.Number),
		Locale:         cfg.Speech.Locale,
		Mode:           mode,
	}
}

func (rc RunContext) apply(run *history.Run) {
	if run == nil {
		return
	}
	run.EpisodeNumber = rc.Episode.Number
	run.EpisodeTitle = rc.Episode.Title
	run.AudioURL = rc.Episode.AudioURL
	run.AudioPath = rc.AudioPath
	run.WAVPath = rc.WAVPath
	run.TranscriptPath = rc.TranscriptPath
	run.Locale = rc.Locale
	run.Mode = rc.Mode.String()
}
