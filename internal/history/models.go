package history

import (
	"errors"
	"time"
)

// Status is the lifecycle state of a transcription run.
type Status string

const (
	StatusIdle            Status = "idle"
	StatusCatalogLoaded   Status = "catalog_loaded"
	StatusEpisodeSelected Status = "episode_selected"
	StatusDownloaded      Status = "downloaded"
	StatusNormalized      Status = "normalized"
	StatusRecognizing     Status = "recognizing"
	StatusComplete        Status = "complete"
	StatusFailed          Status = "failed"
	StatusCancelled       Status = "cancelled"
)

// Source identifies which entry point started a run.
type Source string

const (
	SourceFeed Source = "feed"
	SourceFile Source = "file"
)

// ErrInvalidTransition is returned when a run is moved to a status its
// current status cannot reach.
var ErrInvalidTransition = errors.New("invalid status transition")

// ErrRunNotFound is returned when a run id does not exist.
var ErrRunNotFound = errors.New("run not found")

var transitions = map[Status][]Status{
	StatusIdle:            {StatusCatalogLoaded, StatusEpisodeSelected},
	StatusCatalogLoaded:   {StatusEpisodeSelected},
	StatusEpisodeSelected: {StatusDownloaded, StatusNormalized},
	StatusDownloaded:      {StatusNormalized},
	StatusNormalized:      {StatusRecognizing},
	StatusRecognizing:     {StatusComplete},
}

// IsTerminal reports whether no further transitions are possible.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusComplete, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// CanTransition reports whether a run in status s may move to next.
// Every non-terminal status may fail or be cancelled.
func (s Status) CanTransition(next Status) bool {
	if s.IsTerminal() {
		return false
	}
	if next == StatusFailed || next == StatusCancelled {
		return true
	}
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ParseStatus converts a stored string into a known Status.
func ParseStatus(value string) (Status, bool) {
	status := Status(value)
	switch status {
	case StatusIdle, StatusCatalogLoaded, StatusEpisodeSelected, StatusDownloaded,
		StatusNormalized, StatusRecognizing, StatusComplete, StatusFailed, StatusCancelled:
		return status, true
	default:
		return "", false
	}
}

// Run is a persisted record of one pipeline execution.
type Run struct {
	ID             int64
	Key            string
	Source         Source
	Status         Status
	EpisodeNumber  string
	EpisodeTitle   string
	AudioURL       string
	AudioPath      string
	WAVPath        string
	TranscriptPath string
	Locale         string
	Mode           string
	LinesWritten   int
	ErrorMessage   string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	FinishedAt     *time.Time
}

// Duration reports how long the run took, or has taken so far.
func (r *Run) Duration(now time.Time) time.Duration {
	if r == nil || r.CreatedAt.IsZero() {
		return 0
	}
	end := now
	if r.FinishedAt != nil {
		end = *r.FinishedAt
	}
	if end.Before(r.CreatedAt) {
		return 0
	}
	return end.Sub(r.CreatedAt)
}

// Event records a single status change on a run.
type Event struct {
	ID        int64
	RunID     int64
	Status    Status
	Message   string
	CreatedAt time.Time
}
