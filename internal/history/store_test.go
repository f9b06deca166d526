package history_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"natranscript/internal/history"
)

func openStore(t *testing.T) *history.Store {
	t.Helper()
	store, err := history.Open(context.Background(), filepath.Join(t.TempDir(), "state", "history.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestCreateAndGet(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	run, err := store.Create(ctx, "run-1", history.SourceFeed, "en-US", "long")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if run.ID == 0 || run.Status != history.StatusIdle {
		t.Fatalf("unexpected run: %+v", run)
	}

	fetched, err := store.Get(ctx, run.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if fetched.Key != "run-1" || fetched.Source != history.SourceFeed || fetched.Locale != "en-US" || fetched.Mode != "long" {
		t.Fatalf("unexpected fetched run: %+v", fetched)
	}
	if fetched.CreatedAt.IsZero() || fetched.FinishedAt != nil {
		t.Fatalf("unexpected timestamps: %+v", fetched)
	}
}

func TestCreateRequiresKey(t *testing.T) {
	store := openStore(t)
	if _, err := store.Create(context.Background(), "  ", history.SourceFile, "", ""); err == nil {
		t.Fatal("expected error for empty key")
	}
}

func TestGetMissing(t *testing.T) {
	store := openStore(t)
	if _, err := store.Get(context.Background(), 42); !errors.Is(err, history.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestTransitionHappyPath(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	run, err := store.Create(ctx, "run-happy", history.SourceFeed, "en-US", "long")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	steps := []history.Status{
		history.StatusCatalogLoaded,
		history.StatusEpisodeSelected,
		history.StatusDownloaded,
		history.StatusNormalized,
		history.StatusRecognizing,
		history.StatusComplete,
	}
	run.EpisodeNumber = "102"
	run.TranscriptPath = "/tmp/102/102.html"
	for _, step := range steps {
		if step == history.StatusComplete {
			run.LinesWritten = 7
		}
		if err := store.Transition(ctx, run, step, string(step)); err != nil {
			t.Fatalf("Transition to %s failed: %v", step, err)
		}
	}

	fetched, err := store.Get(ctx, run.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if fetched.Status != history.StatusComplete || fetched.LinesWritten != 7 || fetched.EpisodeNumber != "102" {
		t.Fatalf("unexpected run after completion: %+v", fetched)
	}
	if fetched.FinishedAt == nil {
		t.Fatal("expected finished_at to be set")
	}

	events, err := store.Events(ctx, run.ID)
	if err != nil {
		t.Fatalf("Events failed: %v", err)
	}
	if len(events) != len(steps)+1 {
		t.Fatalf("expected %d events, got %d", len(steps)+1, len(events))
	}
	if events[0].Status != history.StatusIdle || events[len(events)-1].Status != history.StatusComplete {
		t.Fatalf("unexpected event order: %+v", events)
	}
}

func TestTransitionRejectsSkips(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	run, err := store.Create(ctx, "run-skip", history.SourceFeed, "", "")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	err = store.Transition(ctx, run, history.StatusRecognizing, "")
	if !errors.Is(err, history.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if run.Status != history.StatusIdle {
		t.Fatalf("status should be unchanged, got %s", run.Status)
	}
}

func TestFailIsTerminal(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	run, err := store.Create(ctx, "run-fail", history.SourceFile, "de-DE", "short")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := store.Transition(ctx, run, history.StatusEpisodeSelected, ""); err != nil {
		t.Fatalf("Transition failed: %v", err)
	}
	if err := store.Fail(ctx, run, history.StatusComplete, "ffmpeg exploded"); err != nil {
		t.Fatalf("Fail failed: %v", err)
	}
	if run.Status != history.StatusFailed || run.ErrorMessage != "ffmpeg exploded" {
		t.Fatalf("unexpected failed run: %+v", run)
	}
	if err := store.Transition(ctx, run, history.StatusCancelled, ""); !errors.Is(err, history.ErrInvalidTransition) {
		t.Fatalf("expected terminal status to reject transitions, got %v", err)
	}
}

func TestListFilters(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	first, _ := store.Create(ctx, "a", history.SourceFeed, "", "")
	second, _ := store.Create(ctx, "b", history.SourceFeed, "", "")
	third, _ := store.Create(ctx, "c", history.SourceFile, "", "")
	if first == nil || second == nil || third == nil {
		t.Fatal("Create failed")
	}
	second.EpisodeNumber = "900"
	if err := store.Fail(ctx, second, history.StatusCancelled, "interrupted"); err != nil {
		t.Fatalf("Fail failed: %v", err)
	}

	all, err := store.List(ctx, history.ListOptions{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 3 || all[0].Key != "c" {
		t.Fatalf("expected newest first, got %d runs", len(all))
	}

	limited, err := store.List(ctx, history.ListOptions{Limit: 1})
	if err != nil || len(limited) != 1 {
		t.Fatalf("expected 1 run, got %d (%v)", len(limited), err)
	}

	cancelled, err := store.List(ctx, history.ListOptions{Statuses: []history.Status{history.StatusCancelled}})
	if err != nil || len(cancelled) != 1 || cancelled[0].Key != "b" {
		t.Fatalf("unexpected cancelled runs: %+v (%v)", cancelled, err)
	}

	byEpisode, err := store.List(ctx, history.ListOptions{Episode: "900"})
	if err != nil || len(byEpisode) != 1 {
		t.Fatalf("unexpected episode filter result: %+v (%v)", byEpisode, err)
	}
}

func TestPruneRemovesFinishedRuns(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	done, _ := store.Create(ctx, "done", history.SourceFeed, "", "")
	active, _ := store.Create(ctx, "active", history.SourceFeed, "", "")
	if done == nil || active == nil {
		t.Fatal("Create failed")
	}
	if err := store.Fail(ctx, done, history.StatusFailed, "boom"); err != nil {
		t.Fatalf("Fail failed: %v", err)
	}

	removed, err := store.Prune(ctx, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 pruned run, got %d", removed)
	}
	if _, err := store.Get(ctx, active.ID); err != nil {
		t.Fatalf("active run should survive prune: %v", err)
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()

	store, err := history.Open(ctx, path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, err := store.Create(ctx, "persisted", history.SourceFeed, "", ""); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	_ = store.Close()

	reopened, err := history.Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()
	runs, err := reopened.List(ctx, history.ListOptions{})
	if err != nil || len(runs) != 1 {
		t.Fatalf("expected persisted run, got %d (%v)", len(runs), err)
	}
}

func TestOpenRejectsOtherSchemaVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := history.Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	_ = store.Close()

	reopened, err := history.Open(context.Background(), path)
	if err != nil {
		t.Fatalf("reopen at the same version failed: %v", err)
	}
	_ = reopened.Close()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open raw db: %v", err)
	}
	if _, err := db.Exec("PRAGMA user_version = 99"); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	_ = db.Close()

	if _, err := history.Open(context.Background(), path); !errors.Is(err, history.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}
