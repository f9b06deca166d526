package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"natranscript/internal/logging"
	"natranscript/internal/services"
	"natranscript/internal/textutil"
)

const (
	stageName      = "download"
	partSuffix     = ".part"
	copyBufferSize = 64 * 1024
)

// Progress describes how much of the asset has been written. Percent is -1
// when the server did not announce a length.
type Progress struct {
	Downloaded int64
	Total      int64
	Percent    float64
}

// ProgressFunc receives progress updates from Fetch.
type ProgressFunc func(Progress)

// Result summarizes a finished download.
type Result struct {
	Path     string
	Bytes    int64
	Duration time.Duration
}

// Fetcher downloads episode audio.
type Fetcher struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string
	logger    *slog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) {
		if client != nil {
			f.client = client
		}
	}
}

// WithTimeout bounds each download.
func WithTimeout(timeout time.Duration) Option {
	return func(f *Fetcher) { f.timeout = timeout }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(agent string) Option {
	return func(f *Fetcher) { f.userAgent = strings.TrimSpace(agent) }
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) { f.logger = logger }
}

// NewFetcher constructs a Fetcher.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{client: http.DefaultClient}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = logging.NewComponentLogger(f.logger, "download")
	return f
}

// Fetch downloads rawURL to dest. Bytes are written to dest+".part" and renamed
// on success so dest is never observed half written. Transport failures are
// classified as services.ErrNetwork and are not retried.
func (f *Fetcher) Fetch(ctx context.Context, rawURL, dest string, progress ProgressFunc) (Result, error) {
	if strings.TrimSpace(rawURL) == "" {
		return Result{}, services.Wrap(services.ErrValidation, stageName, "fetch", "episode has no audio URL", nil)
	}
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Result{}, services.Wrap(services.ErrValidation, stageName, "build request", "invalid audio URL", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	started := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return Result{}, services.Wrap(services.ErrNetwork, stageName, "request audio", "audio download failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, services.Wrap(services.ErrNetwork, stageName, "request audio",
			fmt.Sprintf("audio server returned %s", resp.Status), nil)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return Result{}, services.Wrap(services.ErrConfiguration, stageName, "create episode directory", filepath.Dir(dest), err)
	}

	partPath := dest + partSuffix
	file, err := os.Create(partPath)
	if err != nil {
		return Result{}, services.Wrap(services.ErrConfiguration, stageName, "create file", partPath, err)
	}

	written, copyErr := copyWithProgress(file, resp.Body, resp.ContentLength, progress)
	closeErr := file.Close()
	if copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		_ = os.Remove(partPath)
		if errors.Is(copyErr, context.Canceled) || ctx.Err() != nil {
			return Result{}, services.Wrap(services.ErrNetwork, stageName, "read body", "download interrupted", errors.Join(copyErr, ctx.Err()))
		}
		return Result{}, services.Wrap(services.ErrNetwork, stageName, "read body", "audio download failed", copyErr)
	}
	if resp.ContentLength > 0 && written != resp.ContentLength {
		_ = os.Remove(partPath)
		return Result{}, services.Wrap(services.ErrNetwork, stageName, "read body",
			fmt.Sprintf("short download: got %d of %d bytes", written, resp.ContentLength), io.ErrUnexpectedEOF)
	}

	if err := os.Rename(partPath, dest); err != nil {
		_ = os.Remove(partPath)
		return Result{}, services.Wrap(services.ErrConfiguration, stageName, "finalize file", dest, err)
	}

	result := Result{Path: dest, Bytes: written, Duration: time.Since(started)}
	logging.WithContext(ctx, f.logger).Info("audio downloaded",
		logging.String("path", dest),
		logging.Int64("bytes", written),
		logging.Duration("elapsed", result.Duration),
	)
	return result, nil
}

func copyWithProgress(dst io.Writer, src io.Reader, total int64, progress ProgressFunc) (int64, error) {
	buf := make([]byte, copyBufferSize)
	var written int64
	report := func() {
		if progress == nil {
			return
		}
		p := Progress{Downloaded: written, Total: total, Percent: -1}
		if total > 0 {
			p.Percent = float64(written) * 100 / float64(total)
		}
		progress(p)
	}
	report()
	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			if _, err := dst.Write(buf[:n]); err != nil {
				return written, err
			}
			written += int64(n)
			report()
		}
		if readErr == io.EOF {
			return written, nil
		}
		if readErr != nil {
			return written, readErr
		}
	}
}

// FileName returns the last path segment of rawURL, ignoring any query string.
// Characters that are unsafe in file names are replaced or dropped.
func FileName(rawURL string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", services.Wrap(services.ErrValidation, stageName, "file name", "invalid audio URL", err)
	}
	name := path.Base(parsed.Path)
	if name == "." || name == "/" {
		name = ""
	}
	name = textutil.SanitizeFileName(name)
	if name == "" || name == "." || name == ".." {
		return "", services.Wrap(services.ErrValidation, stageName, "file name",
			fmt.Sprintf("audio URL %q has no file name", rawURL), nil)
	}
	return name, nil
}

// Destination returns <episodeDir>/<last URL path segment>.
func Destination(episodeDir, rawURL string) (string, error) {
	name, err := FileName(rawURL)
	if err != nil {
		return "", err
	}
	return filepath.Join(episodeDir, name), nil
}
