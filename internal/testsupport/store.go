package testsupport

import (
	"context"
	"testing"

	"natranscript/internal/config"
	"natranscript/internal/history"
)

// MustOpenStore opens the run history for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *history.Store {
	t.Helper()

	store, err := history.Open(context.Background(), cfg.HistoryPath())
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// NewRun creates an idle feed run for tests using the provided store.
func NewRun(t testing.TB, store *history.Store, key string) *history.Run {
	t.Helper()

	run, err := store.Create(context.Background(), key, history.SourceFeed, "en-US", "long")
	if err != nil {
		t.Fatalf("store.Create: %v", err)
	}
	return run
}
