package speech

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"natranscript/internal/config"
	"natranscript/internal/logging"
	"natranscript/internal/services"
)

const (
	stageName           = "recognition"
	defaultChunkBytes   = 4096
	defaultResultBuffer = 64
	responseFormat      = "simple"
)

// Options configures a Client.
type Options struct {
	URL          string
	Mode         Mode
	Locale       string
	DialTimeout  time.Duration
	WriteTimeout time.Duration
	ChunkBytes   int
	ResultBuffer int
	Metadata     RequestMetadata
	Logger       *slog.Logger
	// Dialer overrides the websocket dialer, mainly for tests.
	Dialer *websocket.Dialer
}

// OptionsFromConfig maps the speech section of cfg onto client options.
func OptionsFromConfig(cfg *config.Config, logger *slog.Logger) (Options, error) {
	if cfg == nil {
		return Options{}, services.Wrap(services.ErrConfiguration, stageName, "configure", "config is nil", nil)
	}
	mode, err := ParseMode(cfg.Speech.Mode)
	if err != nil {
		return Options{}, services.Wrap(services.ErrConfiguration, stageName, "configure", err.Error(), nil)
	}
	return Options{
		URL:          mode.URL(cfg.Speech.ShortURL, cfg.Speech.LongURL),
		Mode:         mode,
		Locale:       cfg.Speech.Locale,
		DialTimeout:  time.Duration(cfg.Speech.DialTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Speech.WriteTimeoutSeconds) * time.Second,
		ChunkBytes:   cfg.Speech.ChunkBytes,
		ResultBuffer: cfg.Speech.ResultBuffer,
		Metadata:     NewRequestMetadata(cfg.Speech),
		Logger:       logger,
	}, nil
}

// NewTokenProviderFromConfig builds the subscription token provider for cfg.
func NewTokenProviderFromConfig(cfg *config.Config, client *http.Client) *SubscriptionTokenProvider {
	return NewSubscriptionTokenProvider(
		cfg.Speech.SubscriptionKey,
		cfg.Speech.TokenURL,
		time.Duration(cfg.Speech.TokenTimeoutSeconds)*time.Second,
		client,
	)
}

// Client opens recognition sessions against the streaming endpoint.
type Client struct {
	opts   Options
	tokens TokenProvider
	logger *slog.Logger
}

// NewClient constructs a Client.
func NewClient(tokens TokenProvider, opts Options) *Client {
	if opts.ChunkBytes <= 0 {
		opts.ChunkBytes = defaultChunkBytes
	}
	if opts.ResultBuffer <= 0 {
		opts.ResultBuffer = defaultResultBuffer
	}
	if opts.Metadata.SessionID == "" {
		opts.Metadata.SessionID = newID()
	}
	if opts.Metadata.Locale == "" {
		opts.Metadata.Locale = opts.Locale
	}
	return &Client{
		opts:   opts,
		tokens: tokens,
		logger: logging.NewComponentLogger(opts.Logger, "speech"),
	}
}

// Mode reports the configured recognition mode.
func (c *Client) Mode() Mode {
	return c.opts.Mode
}

// Recognize opens a session and streams audio to it. Results arrive in
// service order on the returned Stream; the caller must drain Results and
// then call Wait.
func (c *Client) Recognize(ctx context.Context, audio io.Reader) (*Stream, error) {
	if audio == nil {
		return nil, services.Wrap(services.ErrValidation, stageName, "recognize", "no audio to recognize", nil)
	}
	if c.tokens == nil {
		return nil, services.Wrap(services.ErrAuthorization, stageName, "recognize", "no token provider configured", nil)
	}
	endpoint, err := c.endpoint()
	if err != nil {
		return nil, err
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	connectionID := newID()
	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+token)
	headers.Set("X-ConnectionId", connectionID)

	logger := logging.WithContext(ctx, c.logger).With(
		logging.String("connection_id", connectionID),
		logging.String("session_id", c.opts.Metadata.SessionID),
		logging.String("mode", c.opts.Mode.String()),
	)
	logger.Debug("connecting to recognition service", logging.String("url", endpoint))

	ws, err := dial(ctx, connConfig{
		URL:         endpoint,
		Headers:     headers,
		DialTimeout: c.opts.DialTimeout,
		WriteWait:   c.opts.WriteTimeout,
		Dialer:      c.opts.Dialer,
	})
	if err != nil {
		if inv, ok := c.tokens.(interface{ Invalidate() }); ok && errors.Is(err, services.ErrAuthorization) {
			inv.Invalidate()
		}
		return nil, err
	}
	logger.Info("recognition session opened")

	sessionCtx, cancel := context.WithCancel(ctx)
	stream := &Stream{
		results:   make(chan Result, c.opts.ResultBuffer),
		cancel:    cancel,
		parent:    ctx,
		conn:      ws,
		logger:    logger,
		requestID: newID(),
		chunkSize: c.opts.ChunkBytes,
		metadata:  c.opts.Metadata,
		received:  make(map[string]int),
	}
	stream.wg.Add(3)
	go stream.watch(sessionCtx)
	go stream.send(sessionCtx, audio)
	go stream.receive(sessionCtx)
	return stream, nil
}

func (c *Client) endpoint() (string, error) {
	raw := strings.TrimSpace(c.opts.URL)
	parsed, err := url.Parse(raw)
	if err != nil || raw == "" {
		return "", services.Wrap(services.ErrConfiguration, stageName, "configure", fmt.Sprintf("invalid recognition URL %q", raw), err)
	}
	if parsed.Scheme != "ws" && parsed.Scheme != "wss" {
		return "", services.Wrap(services.ErrConfiguration, stageName, "configure",
			fmt.Sprintf("recognition URL must use ws or wss, got %q", parsed.Scheme), nil)
	}
	query := parsed.Query()
	if c.opts.Locale != "" {
		query.Set("language", c.opts.Locale)
	}
	query.Set("format", responseFormat)
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

// StreamStats summarizes a finished session.
type StreamStats struct {
	AudioBytes int64
	Chunks     int
	Results    int
	Hypotheses int
}

// Stream is one live recognition session.
type Stream struct {
	results   chan Result
	cancel    context.CancelFunc
	parent    context.Context
	conn      *conn
	logger    *slog.Logger
	requestID string
	chunkSize int
	metadata  RequestMetadata

	wg       sync.WaitGroup
	errOnce  sync.Once
	err      error
	finished atomic.Bool

	stats    StreamStats
	received map[string]int
}

// Results delivers recognition results in arrival order. It is closed when
// the service ends the turn or the session fails.
func (s *Stream) Results() <-chan Result {
	return s.results
}

// Wait blocks until the session has shut down and returns its first error.
func (s *Stream) Wait() error {
	s.wg.Wait()
	return s.err
}

// Close aborts the session and waits for it to shut down.
func (s *Stream) Close() error {
	s.cancel()
	s.wg.Wait()
	return nil
}

// Stats returns session counters. Only meaningful after Wait returns.
func (s *Stream) Stats() StreamStats {
	return s.stats
}

func (s *Stream) fail(err error) {
	s.errOnce.Do(func() { s.err = err })
	s.cancel()
}

func (s *Stream) watch(ctx context.Context) {
	defer s.wg.Done()
	<-ctx.Done()
	_ = s.conn.close()
}

func (s *Stream) interrupted(operation string) error {
	cause := s.parent.Err()
	if errors.Is(cause, context.DeadlineExceeded) {
		return services.Wrap(services.ErrTimeout, stageName, operation, "recognition timed out", cause)
	}
	return services.Wrap(services.ErrRecognition, stageName, operation, "recognition interrupted", cause)
}

func (s *Stream) send(ctx context.Context, audio io.Reader) {
	defer s.wg.Done()

	body, err := json.Marshal(s.metadata.payload())
	if err != nil {
		s.fail(services.Wrap(services.ErrRecognition, stageName, "send config", "encode session metadata", err))
		return
	}
	frame := encodeText(frameHeaders{
		path:        PathSpeechConfig,
		requestID:   s.requestID,
		contentType: jsonContentType,
		timestamp:   time.Now(),
	}, body)
	if err := s.conn.writeText(frame); err != nil {
		s.sendFailed("send config", err)
		return
	}

	buf := make([]byte, s.chunkSize)
	for {
		if ctx.Err() != nil {
			if s.parent.Err() != nil {
				s.fail(s.interrupted("send audio"))
			}
			return
		}
		n, readErr := io.ReadFull(audio, buf)
		if n > 0 {
			if err := s.writeAudio(buf[:n]); err != nil {
				s.sendFailed("send audio", err)
				return
			}
			s.stats.AudioBytes += int64(n)
			s.stats.Chunks++
		}
		if errors.Is(readErr, io.EOF) || errors.Is(readErr, io.ErrUnexpectedEOF) {
			break
		}
		if readErr != nil {
			s.fail(services.Wrap(services.ErrCodec, stageName, "read audio", "could not read normalized audio", readErr))
			return
		}
	}

	if err := s.writeAudio(nil); err != nil {
		s.sendFailed("send audio", err)
		return
	}
	s.logger.Debug("audio upload complete",
		logging.Int64("bytes", s.stats.AudioBytes),
		logging.Int("chunks", s.stats.Chunks),
	)
}

func (s *Stream) writeAudio(chunk []byte) error {
	frame, err := encodeAudio(frameHeaders{
		path:        PathAudio,
		requestID:   s.requestID,
		contentType: audioContentType,
		timestamp:   time.Now(),
	}, chunk)
	if err != nil {
		return err
	}
	return s.conn.writeBinary(frame)
}

// sendFailed records a write failure unless the session already ended
// normally or was cancelled.
func (s *Stream) sendFailed(operation string, err error) {
	if s.finished.Load() {
		return
	}
	if s.parent.Err() != nil {
		s.fail(s.interrupted(operation))
		return
	}
	s.fail(services.Wrap(services.ErrRecognition, stageName, operation, "write to recognition service failed", err))
}

func (s *Stream) receive(ctx context.Context) {
	defer s.wg.Done()
	defer close(s.results)
	defer s.cancel()

	for {
		msg, err := s.conn.read()
		if err != nil {
			s.readFailed(err)
			return
		}
		path := msg.Path()
		s.received[path]++

		switch path {
		case PathTurnStart, PathSpeechStartDet, PathSpeechEndDet:
			s.logger.Debug("recognition event", logging.String("path", path))
		case PathSpeechHypothesis:
			s.stats.Hypotheses++
			if phrase, err := decodeHypothesis(msg.Body); err == nil {
				s.logger.Debug("partial result",
					logging.String("text", phrase.DisplayText),
					logging.Int64("offset_seconds", phrase.Seconds()),
				)
			}
		case PathSpeechPhrase:
			result, err := decodePhrase(msg.Body)
			if err != nil {
				s.fail(services.Wrap(services.ErrRecognition, stageName, "decode result", "malformed recognition result", err))
				return
			}
			s.stats.Results++
			select {
			case s.results <- result:
			case <-ctx.Done():
				if s.parent.Err() != nil {
					s.fail(s.interrupted("deliver result"))
				}
				return
			}
		case PathTurnEnd:
			s.finished.Store(true)
			s.sendTelemetry()
			s.logger.Info("recognition turn ended",
				logging.Int("results", s.stats.Results),
				logging.Int("hypotheses", s.stats.Hypotheses),
			)
			return
		default:
			s.logger.Debug("ignoring recognition message",
				logging.String("path", path),
				logging.Any("headers", msg.headerNames()),
			)
		}
	}
}

func (s *Stream) readFailed(err error) {
	if s.finished.Load() {
		return
	}
	if s.parent.Err() != nil {
		s.fail(s.interrupted("receive"))
		return
	}
	if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		s.fail(services.Wrap(services.ErrRecognition, stageName, "receive", "service closed the session before the turn ended", err))
		return
	}
	s.fail(services.Wrap(services.ErrRecognition, stageName, "receive", "recognition connection lost", err))
}

type telemetryPayload struct {
	ReceivedMessages []map[string]int `json:"ReceivedMessages"`
}

func (s *Stream) sendTelemetry() {
	payload := telemetryPayload{}
	for path, count := range s.received {
		payload.ReceivedMessages = append(payload.ReceivedMessages, map[string]int{path: count})
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return
	}
	frame := encodeText(frameHeaders{
		path:        PathTelemetry,
		requestID:   s.requestID,
		contentType: jsonContentType,
		timestamp:   time.Now(),
	}, body)
	if err := s.conn.writeText(frame); err != nil {
		s.logger.Debug("telemetry not delivered", logging.Error(err))
	}
}
