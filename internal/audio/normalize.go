package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"natranscript/internal/logging"
	"natranscript/internal/services"
)

const stageName = "normalize"

// CommandRunner executes an external command and returns its combined output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Options configures a Normalizer.
type Options struct {
	FFmpegBinary string
	SampleRate   int
	Channels     int
	Timeout      time.Duration
	Logger       *slog.Logger
}

// Normalizer converts compressed audio into 16-bit PCM WAV with ffmpeg.
type Normalizer struct {
	binary     string
	sampleRate int
	channels   int
	timeout    time.Duration
	run        CommandRunner
	logger     *slog.Logger
}

// NewNormalizer constructs a Normalizer, filling unset options with 16 kHz mono.
func NewNormalizer(opts Options) *Normalizer {
	n := &Normalizer{
		binary:     strings.TrimSpace(opts.FFmpegBinary),
		sampleRate: opts.SampleRate,
		channels:   opts.Channels,
		timeout:    opts.Timeout,
		run:        runCommand,
		logger:     logging.NewComponentLogger(opts.Logger, "audio"),
	}
	if n.binary == "" {
		n.binary = "ffmpeg"
	}
	if n.sampleRate <= 0 {
		n.sampleRate = 16000
	}
	if n.channels <= 0 {
		n.channels = 1
	}
	return n
}

// WithCommandRunner replaces the process runner, for tests.
func (n *Normalizer) WithCommandRunner(runner CommandRunner) {
	if runner != nil {
		n.run = runner
	}
}

// Normalize decodes src and writes PCM WAV to dst. Output is produced under a
// temporary name and renamed only after its header checks out, so a failed
// conversion never leaves a usable-looking dst behind.
func (n *Normalizer) Normalize(ctx context.Context, src, dst string) error {
	if _, err := os.Stat(src); err != nil {
		return services.Wrap(services.ErrNotFound, stageName, "stat source", src, err)
	}
	if filepath.Clean(src) == filepath.Clean(dst) {
		return services.Wrap(services.ErrValidation, stageName, "plan conversion", "source and destination are the same file", nil)
	}
	if n.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}

	tmp := dst + ".part"
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", src,
		"-vn",
		"-ac", strconv.Itoa(n.channels),
		"-ar", strconv.Itoa(n.sampleRate),
		"-c:a", "pcm_s16le",
		"-f", "wav",
		tmp,
	}

	started := time.Now()
	output, err := n.run(ctx, n.binary, args...)
	if err != nil {
		_ = os.Remove(tmp)
		return n.classify(ctx, err, output)
	}

	format, err := Inspect(tmp)
	if err != nil {
		_ = os.Remove(tmp)
		return services.Wrap(services.ErrCodec, stageName, "verify output", "ffmpeg did not produce a readable WAV file", err)
	}
	if !format.IsPCM16() {
		_ = os.Remove(tmp)
		return services.Wrap(services.ErrCodec, stageName, "verify output",
			fmt.Sprintf("ffmpeg produced %d-bit format %d audio, want 16-bit PCM", format.BitsPerSample, format.AudioFormat), nil)
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return services.Wrap(services.ErrConfiguration, stageName, "finalize output", dst, err)
	}

	logging.WithContext(ctx, n.logger).Info("audio normalized",
		logging.String("source", src),
		logging.String("wav", dst),
		logging.Int("sample_rate", format.SampleRate),
		logging.Int("channels", format.Channels),
		logging.Duration("audio_duration", format.Duration()),
		logging.Duration("elapsed", time.Since(started)),
	)
	return nil
}

func (n *Normalizer) classify(ctx context.Context, err error, output []byte) error {
	detail := strings.TrimSpace(string(output))
	switch {
	case errors.Is(err, exec.ErrNotFound):
		return services.Wrap(services.ErrExternalTool, stageName, "run ffmpeg", fmt.Sprintf("%q not found", n.binary), err)
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return services.Wrap(services.ErrTimeout, stageName, "run ffmpeg", "conversion exceeded audio.timeout_seconds", ctx.Err())
	case errors.Is(ctx.Err(), context.Canceled):
		return services.Wrap(services.ErrCodec, stageName, "run ffmpeg", "conversion interrupted", ctx.Err())
	}
	if detail == "" {
		detail = "ffmpeg could not decode the source audio"
	}
	return services.Wrap(services.ErrCodec, stageName, "run ffmpeg", detail, err)
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	return cmd.CombinedOutput()
}

// WAVPath replaces the extension of src with ".wav".
func WAVPath(src string) string {
	return strings.TrimSuffix(src, filepath.Ext(src)) + ".wav"
}

// IsWAV reports whether path already names a WAV file.
func IsWAV(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".wav")
}
