package main

import (
	"context"
	"encoding/json"
	"testing"

	"natranscript/internal/history"
	"natranscript/internal/testsupport"
)

func TestHistoryEmpty(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"history"}, env.configPath, "")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "No runs recorded")
}

func TestHistoryListsRuns(t *testing.T) {
	env := setupCLITestEnv(t)
	store := testsupport.MustOpenStore(t, env.cfg)
	ctx := context.Background()

	done := testsupport.NewRun(t, store, "run-a")
	done.EpisodeNumber = "102"
	done.EpisodeTitle = "102: Next"
	for _, status := range []history.Status{history.StatusEpisodeSelected, history.StatusNormalized, history.StatusRecognizing} {
		if err := store.Transition(ctx, done, status, ""); err != nil {
			t.Fatalf("transition %s: %v", status, err)
		}
	}
	done.LinesWritten = 7
	if err := store.Transition(ctx, done, history.StatusComplete, ""); err != nil {
		t.Fatalf("complete: %v", err)
	}

	failed := testsupport.NewRun(t, store, "run-b")
	if err := store.Fail(ctx, failed, history.StatusFailed, "catalog read feed: unexpected status 500"); err != nil {
		t.Fatalf("fail: %v", err)
	}

	out, _, err := runCLI(t, []string{"history", "--json"}, env.configPath, "")
	if err != nil {
		t.Fatalf("history --json: %v", err)
	}
	var views []runView
	if err := json.Unmarshal([]byte(out), &views); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if len(views) != 2 {
		t.Fatalf("views = %d, want 2", len(views))
	}
	if views[0].ID != failed.ID || views[0].Status != "failed" || views[0].Error == "" {
		t.Fatalf("newest run = %+v", views[0])
	}
	if views[1].Episode != "102" || views[1].Status != "complete" || views[1].Lines != 7 {
		t.Fatalf("older run = %+v", views[1])
	}

	out, _, err = runCLI(t, []string{"history", "--status", "complete"}, env.configPath, "")
	if err != nil {
		t.Fatalf("history --status: %v", err)
	}
	requireContains(t, out, "102: Next")

	out, _, err = runCLI(t, []string{"history", "events", "1"}, env.configPath, "")
	if err != nil {
		t.Fatalf("history events: %v", err)
	}
	requireContains(t, out, "recognizing")
	requireContains(t, out, "complete")
}

func TestHistoryRejectsUnknownStatus(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, []string{"history", "--status", "sleeping"}, env.configPath, ""); err == nil {
		t.Fatal("expected error for unknown status")
	}
}
