package speech

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"natranscript/internal/services"
)

const (
	defaultDialTimeout    = 10 * time.Second
	defaultWriteWait      = 10 * time.Second
	defaultMaxMessageSize = 4 * 1024 * 1024
	closeGracePeriod      = 2 * time.Second
)

type connConfig struct {
	URL            string
	Headers        http.Header
	DialTimeout    time.Duration
	WriteWait      time.Duration
	MaxMessageSize int64
	Dialer         *websocket.Dialer
}

func (c *connConfig) defaults() {
	if c.DialTimeout <= 0 {
		c.DialTimeout = defaultDialTimeout
	}
	if c.WriteWait <= 0 {
		c.WriteWait = defaultWriteWait
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = defaultMaxMessageSize
	}
}

// conn wraps a websocket with serialized writes and an idempotent close.
type conn struct {
	ws        *websocket.Conn
	writeWait time.Duration
	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

func dial(ctx context.Context, cfg connConfig) (*conn, error) {
	cfg.defaults()
	dialer := cfg.Dialer
	if dialer == nil {
		dialer = &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: cfg.DialTimeout,
			TLSClientConfig:  &tls.Config{MinVersion: tls.VersionTLS12},
		}
	}

	dialCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()

	ws, resp, err := dialer.DialContext(dialCtx, cfg.URL, cfg.Headers)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		switch {
		case status == http.StatusUnauthorized || status == http.StatusForbidden:
			return nil, services.Wrap(services.ErrAuthorization, stageName, "connect",
				fmt.Sprintf("recognition service rejected the token (%d)", status), err)
		case errors.Is(ctx.Err(), context.Canceled):
			return nil, services.Wrap(services.ErrRecognition, stageName, "connect", "connection cancelled", ctx.Err())
		case errors.Is(dialCtx.Err(), context.DeadlineExceeded):
			return nil, services.Wrap(services.ErrTimeout, stageName, "connect", "recognition service handshake timed out", err)
		case status != 0:
			return nil, services.Wrap(services.ErrRecognition, stageName, "connect",
				fmt.Sprintf("recognition service refused the connection (%d)", status), err)
		default:
			return nil, services.Wrap(services.ErrRecognition, stageName, "connect", "could not reach recognition service", err)
		}
	}

	ws.SetReadLimit(cfg.MaxMessageSize)
	return &conn{ws: ws, writeWait: cfg.WriteWait}, nil
}

func (c *conn) write(messageType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.ws.SetWriteDeadline(time.Now().Add(c.writeWait)); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	if err := c.ws.WriteMessage(messageType, data); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	return nil
}

func (c *conn) writeText(data []byte) error {
	return c.write(websocket.TextMessage, data)
}

func (c *conn) writeBinary(data []byte) error {
	return c.write(websocket.BinaryMessage, data)
}

// read blocks until a frame arrives or the connection is closed.
func (c *conn) read() (Message, error) {
	messageType, data, err := c.ws.ReadMessage()
	if err != nil {
		return Message{}, err
	}
	switch messageType {
	case websocket.TextMessage:
		return decodeText(data)
	case websocket.BinaryMessage:
		return decodeBinary(data)
	default:
		return Message{}, fmt.Errorf("unexpected message type: %d", messageType)
	}
}

func (c *conn) close() error {
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.ws.SetWriteDeadline(time.Now().Add(closeGracePeriod))
		_ = c.ws.WriteMessage(websocket.CloseMessage, msg)
		c.writeMu.Unlock()
		c.closeErr = c.ws.Close()
	})
	return c.closeErr
}
