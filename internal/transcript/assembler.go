package transcript

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"

	"natranscript/internal/logging"
	"natranscript/internal/services"
	"natranscript/internal/speech"
)

const stageName = "transcript"

// Stats counts what the assembler did with the results it consumed.
type Stats struct {
	Results int
	Lines   int
	Skipped int
}

// Assembler appends recognized phrases to an episode transcript.
type Assembler struct {
	path    string
	episode string
	link    Link
	echo    io.Writer
	logger  *slog.Logger
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithLink sets the player host and target used in anchors.
func WithLink(link Link) Option {
	return func(a *Assembler) { a.link = link }
}

// WithEcho mirrors every written line to w.
func WithEcho(w io.Writer) Option {
	return func(a *Assembler) { a.echo = w }
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Assembler) { a.logger = logger }
}

// NewAssembler builds an assembler writing to path.
func NewAssembler(path, episode string, opts ...Option) *Assembler {
	a := &Assembler{
		path:    path,
		episode: episode,
		link:    Link{Host: "naplay.it", Target: "naplayer"},
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = logging.NewComponentLogger(a.logger, "transcript")
	return a
}

// Path returns the transcript file location.
func (a *Assembler) Path() string {
	return a.path
}

// Consume reads results until the channel closes or ctx is cancelled. Only
// the first phrase of each result is rendered. Every line is synced to disk
// before the next result is read, and the transcript stays locked for the
// whole session.
func (a *Assembler) Consume(ctx context.Context, results <-chan speech.Result) (Stats, error) {
	var stats Stats
	if strings.TrimSpace(a.episode) == "" {
		return stats, services.Wrap(services.ErrValidation, stageName, "consume", "episode number is empty", nil)
	}
	if err := os.MkdirAll(filepath.Dir(a.path), 0o755); err != nil {
		return stats, services.Wrap(services.ErrConfiguration, stageName, "create directory", filepath.Dir(a.path), err)
	}

	lock := flock.New(a.path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return stats, services.Wrap(services.ErrConfiguration, stageName, "lock", "could not lock transcript", err)
	}
	if !locked {
		return stats, services.Wrap(services.ErrValidation, stageName, "lock",
			fmt.Sprintf("%s is being written by another run", a.path), nil)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			a.logger.Warn("failed to release transcript lock", logging.Error(err))
		}
	}()

	logger := logging.WithContext(ctx, a.logger)
	for {
		select {
		case <-ctx.Done():
			return stats, services.Wrap(services.ErrTransient, stageName, "consume", "transcript interrupted", ctx.Err())
		case result, ok := <-results:
			if !ok {
				logger.Info("transcript complete",
					logging.String("path", a.path),
					logging.Int("lines", stats.Lines),
					logging.Int("skipped", stats.Skipped),
				)
				return stats, nil
			}
			stats.Results++
			written, err := a.write(result)
			if err != nil {
				return stats, err
			}
			if !written {
				stats.Skipped++
				continue
			}
			stats.Lines++
			logger.Debug("transcript line written", logging.Int("line", stats.Lines))
		}
	}
}

func (a *Assembler) write(result speech.Result) (bool, error) {
	if !result.OK() {
		return false, nil
	}
	line, ok := Line(a.link, a.episode, result.Phrases[0])
	if !ok {
		return false, nil
	}
	if err := appendLines(a.path, line); err != nil {
		return false, services.Wrap(services.ErrTransient, stageName, "append", a.path, err)
	}
	if a.echo != nil {
		fmt.Fprintln(a.echo, line)
	}
	return true, nil
}

// appendLines writes line and the padding lines, then syncs the file.
func appendLines(path, line string) error {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	var b strings.Builder
	b.WriteString(line)
	b.WriteByte('\n')
	for range paddingPerLine {
		b.WriteString(paddingLine)
		b.WriteByte('\n')
	}
	if _, err := file.WriteString(b.String()); err != nil {
		_ = file.Close()
		return err
	}
	if err := file.Sync(); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}
