package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"natranscript/internal/config"
)

const userAgent = "natranscript/1.0"

// ntfy priorities.
const (
	priorityLow  = 2
	priorityHigh = 4
)

// Service is the notification surface used by the pipeline.
type Service interface {
	NotifyTranscriptComplete(ctx context.Context, summary Summary) error
	NotifyError(ctx context.Context, err error, label string) error
	TestNotification(ctx context.Context) error
}

// Summary describes a finished run.
type Summary struct {
	Episode  string
	Title    string
	Lines    int
	Path     string
	Duration time.Duration
}

// NewService returns a service publishing to the ntfy topic URL in cfg, or a
// no-op when no topic is configured.
func NewService(cfg *config.Config) Service {
	if cfg == nil || cfg.Notifications.NtfyTopic == "" {
		return noopService{}
	}
	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfy{
		topicURL: cfg.Notifications.NtfyTopic,
		client:   &http.Client{Timeout: timeout},
		complete: cfg.Notifications.Complete,
		errors:   cfg.Notifications.Errors,
	}
}

// message is the body of an ntfy JSON publish request.
type message struct {
	Topic    string   `json:"topic"`
	Title    string   `json:"title,omitempty"`
	Message  string   `json:"message"`
	Tags     []string `json:"tags,omitempty"`
	Priority int      `json:"priority,omitempty"`
}

type ntfy struct {
	topicURL string
	client   *http.Client
	complete bool
	errors   bool
}

func (n *ntfy) NotifyTranscriptComplete(ctx context.Context, summary Summary) error {
	if !n.complete {
		return nil
	}
	label := summary.Title
	if label == "" {
		label = summary.Episode
	}
	body := fmt.Sprintf("Transcript ready: %s\n%d lines in %s", label, summary.Lines, max(summary.Duration.Round(time.Second), 0))
	if summary.Path != "" {
		body += "\nFile: " + summary.Path
	}
	return n.publish(ctx, message{
		Title:   "natranscript - Complete",
		Message: body,
		Tags:    []string{"natranscript", "transcript", "completed"},
	})
}

func (n *ntfy) NotifyError(ctx context.Context, err error, label string) error {
	if !n.errors {
		return nil
	}
	reason := "unknown"
	if err != nil {
		reason = strings.TrimSpace(err.Error())
	}
	body := "Error: " + reason
	if label = strings.TrimSpace(label); label != "" {
		body = fmt.Sprintf("Error with %s: %s", label, reason)
	}
	return n.publish(ctx, message{
		Title:    "natranscript - Error",
		Message:  body,
		Tags:     []string{"natranscript", "error", "alert"},
		Priority: priorityHigh,
	})
}

func (n *ntfy) TestNotification(ctx context.Context) error {
	return n.publish(ctx, message{
		Title:    "natranscript - Test",
		Message:  "Notification system test",
		Tags:     []string{"natranscript", "test"},
		Priority: priorityLow,
	})
}

// publish posts msg as JSON to the server root, which is how ntfy accepts
// structured messages. The topic is the last path segment of the topic URL.
func (n *ntfy) publish(ctx context.Context, msg message) error {
	server, topic, err := splitTopicURL(n.topicURL)
	if err != nil {
		return err
	}
	msg.Topic = topic
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode ntfy message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, server, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func splitTopicURL(raw string) (string, string, error) {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", "", fmt.Errorf("ntfy topic %q is not an absolute URL", raw)
	}
	trimmed := strings.TrimRight(parsed.Path, "/")
	topic := path.Base(trimmed)
	if trimmed == "" || topic == "/" || topic == "." {
		return "", "", fmt.Errorf("ntfy topic %q has no topic name", raw)
	}
	parsed.Path = path.Dir(trimmed)
	if !strings.HasSuffix(parsed.Path, "/") {
		parsed.Path += "/"
	}
	parsed.RawQuery = ""
	return parsed.String(), topic, nil
}

type noopService struct{}

func (noopService) NotifyTranscriptComplete(context.Context, Summary) error { return nil }
func (noopService) NotifyError(context.Context, error, string) error        { return nil }
func (noopService) TestNotification(context.Context) error                  { return nil }
