package feed

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"natranscript/internal/episode"
	"natranscript/internal/logging"
	"natranscript/internal/services"
)

const stageName = "catalog"

// Observer is notified once per episode, in feed order, with its 1-based position.
type Observer func(position int, ep episode.Episode)

// Reader fetches a podcast RSS feed and turns it into a catalog.
type Reader struct {
	parser   *gofeed.Parser
	timeout  time.Duration
	observer Observer
	logger   *slog.Logger
}

// Option configures a Reader.
type Option func(*Reader)

// WithObserver registers a callback invoked for every catalog entry.
func WithObserver(fn Observer) Option {
	return func(r *Reader) { r.observer = fn }
}

// WithHTTPClient overrides the HTTP client used to fetch feeds.
func WithHTTPClient(client *http.Client) Option {
	return func(r *Reader) {
		if client != nil {
			r.parser.Client = client
		}
	}
}

// WithUserAgent sets the User-Agent sent with feed requests.
func WithUserAgent(agent string) Option {
	return func(r *Reader) {
		if agent = strings.TrimSpace(agent); agent != "" {
			r.parser.UserAgent = agent
		}
	}
}

// WithTimeout bounds the fetch and parse.
func WithTimeout(timeout time.Duration) Option {
	return func(r *Reader) { r.timeout = timeout }
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reader) { r.logger = logger }
}

// NewReader constructs a Reader.
func NewReader(opts ...Option) *Reader {
	r := &Reader{parser: gofeed.NewParser()}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.NewComponentLogger(r.logger, "feed")
	return r
}

// Read fetches uri and returns its items as episodes in document order. Items
// without an enclosure keep an empty AudioURL. Either the whole catalog is
// returned or an error classified as services.ErrNetwork or services.ErrParse.
func (r *Reader) Read(ctx context.Context, uri string) (episode.Catalog, error) {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return nil, services.Wrap(services.ErrValidation, stageName, "read feed", "feed URL is empty", nil)
	}
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	started := time.Now()
	parsed, err := r.parser.ParseURLWithContext(uri, ctx)
	if err != nil {
		return nil, classify(uri, err)
	}

	catalog := make(episode.Catalog, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if item == nil {
			continue
		}
		ep := episode.New(item.Title, enclosureURL(item))
		catalog = append(catalog, ep)
		if r.observer != nil {
			r.observer(len(catalog), ep)
		}
	}

	logging.WithContext(ctx, r.logger).Info("feed catalog loaded",
		logging.String("url", uri),
		logging.Int("episodes", len(catalog)),
		logging.Duration("elapsed", time.Since(started)),
	)
	return catalog, nil
}

func enclosureURL(item *gofeed.Item) string {
	for _, enc := range item.Enclosures {
		if enc != nil && strings.TrimSpace(enc.URL) != "" {
			return strings.TrimSpace(enc.URL)
		}
	}
	return ""
}

func classify(uri string, err error) error {
	var httpErr gofeed.HTTPError
	var urlErr *url.Error
	var netErr net.Error
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return services.Wrap(services.ErrNetwork, stageName, "fetch feed", "feed request did not finish: "+uri, err)
	case errors.As(err, &httpErr):
		return services.Wrap(services.ErrNetwork, stageName, "fetch feed", "feed server returned "+httpErr.Status, err)
	case errors.As(err, &urlErr), errors.As(err, &netErr):
		return services.Wrap(services.ErrNetwork, stageName, "fetch feed", "feed unreachable: "+uri, err)
	default:
		return services.Wrap(services.ErrParse, stageName, "parse feed", "feed is not valid RSS", err)
	}
}
