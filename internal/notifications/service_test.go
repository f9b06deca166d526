package notifications_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"natranscript/internal/config"
	"natranscript/internal/notifications"
)

type published struct {
	Path     string
	Topic    string   `json:"topic"`
	Title    string   `json:"title"`
	Message  string   `json:"message"`
	Tags     []string `json:"tags"`
	Priority int      `json:"priority"`
}

func captureServer(t *testing.T, status int) (*httptest.Server, *[]published) {
	t.Helper()
	var requests []published
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var msg published
		if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
			t.Errorf("decode ntfy body: %v", err)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		msg.Path = r.URL.Path
		requests = append(requests, msg)
		w.WriteHeader(status)
		_, _ = w.Write([]byte("nope"))
	}))
	t.Cleanup(srv.Close)
	return srv, &requests
}

func configFor(topicURL string) *config.Config {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = topicURL
	return &cfg
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyError(context.Background(), errors.New("boom"), "download"); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
	if err := notifications.NewService(nil).TestNotification(context.Background()); err != nil {
		t.Fatalf("expected nil config to yield noop, got %v", err)
	}
}

func TestNotifyTranscriptComplete(t *testing.T) {
	srv, requests := captureServer(t, http.StatusOK)

	svc := notifications.NewService(configFor(srv.URL + "/podcasts"))
	err := svc.NotifyTranscriptComplete(context.Background(), notifications.Summary{
		Episode:  "102",
		Title:    "102: Next",
		Lines:    42,
		Path:     "/episodes/102/102.html",
		Duration: 90*time.Second + 400*time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NotifyTranscriptComplete failed: %v", err)
	}
	if len(*requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(*requests))
	}
	got := (*requests)[0]
	if got.Path != "/" || got.Topic != "podcasts" {
		t.Fatalf("published to %q topic %q", got.Path, got.Topic)
	}
	if got.Title != "natranscript - Complete" || strings.Join(got.Tags, ",") != "natranscript,transcript,completed" {
		t.Fatalf("unexpected message: %+v", got)
	}
	want := "Transcript ready: 102: Next\n42 lines in 1m30s\nFile: /episodes/102/102.html"
	if got.Message != want {
		t.Fatalf("message = %q, want %q", got.Message, want)
	}
}

func TestNotifyErrorUsesHighPriority(t *testing.T) {
	srv, requests := captureServer(t, http.StatusOK)

	svc := notifications.NewService(configFor(srv.URL + "/self-hosted/alerts"))
	if err := svc.NotifyError(context.Background(), errors.New("ffmpeg failed"), "episode 102"); err != nil {
		t.Fatalf("NotifyError failed: %v", err)
	}
	got := (*requests)[0]
	if got.Path != "/self-hosted/" || got.Topic != "alerts" {
		t.Fatalf("published to %q topic %q", got.Path, got.Topic)
	}
	if got.Priority != 4 || got.Message != "Error with episode 102: ffmpeg failed" {
		t.Fatalf("unexpected message: %+v", got)
	}
}

func TestSwitchesSilenceEvents(t *testing.T) {
	srv, requests := captureServer(t, http.StatusOK)
	cfg := configFor(srv.URL + "/podcasts")
	cfg.Notifications.Complete = false
	cfg.Notifications.Errors = false

	svc := notifications.NewService(cfg)
	_ = svc.NotifyTranscriptComplete(context.Background(), notifications.Summary{Episode: "1"})
	_ = svc.NotifyError(context.Background(), errors.New("x"), "")
	if len(*requests) != 0 {
		t.Fatalf("expected no requests, got %d", len(*requests))
	}
	if err := svc.TestNotification(context.Background()); err != nil {
		t.Fatalf("TestNotification failed: %v", err)
	}
	if len(*requests) != 1 || (*requests)[0].Priority != 2 {
		t.Fatalf("test notification should ignore event switches: %+v", *requests)
	}
}

func TestPublishErrors(t *testing.T) {
	srv, _ := captureServer(t, http.StatusInternalServerError)

	err := notifications.NewService(configFor(srv.URL + "/podcasts")).TestNotification(context.Background())
	if err == nil || !strings.Contains(err.Error(), "ntfy returned 500: nope") {
		t.Fatalf("expected server error, got %v", err)
	}

	for _, topic := range []string{srv.URL, srv.URL + "/", "not a url"} {
		if err := notifications.NewService(configFor(topic)).TestNotification(context.Background()); err == nil {
			t.Errorf("topic %q: expected error", topic)
		}
	}
}
