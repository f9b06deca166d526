package logs_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"natranscript/internal/logs"
)

func TestTailLastLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "natranscript.log")
	if err := os.WriteFile(path, []byte("a\nb\nc\nd\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	tests := []struct {
		limit int
		want  []string
	}{
		{limit: 2, want: []string{"c", "d"}},
		{limit: 3, want: []string{"b", "c", "d"}},
		{limit: 10, want: []string{"a", "b", "c", "d"}},
		{limit: 0, want: nil},
	}
	for _, tt := range tests {
		result, err := logs.Tail(context.Background(), path, logs.TailOptions{Offset: -1, Limit: tt.limit})
		if err != nil {
			t.Fatalf("tail(%d): %v", tt.limit, err)
		}
		if len(result.Lines) != len(tt.want) {
			t.Fatalf("tail(%d) = %#v, want %#v", tt.limit, result.Lines, tt.want)
		}
		for i := range tt.want {
			if result.Lines[i] != tt.want[i] {
				t.Fatalf("tail(%d) = %#v, want %#v", tt.limit, result.Lines, tt.want)
			}
		}
		if result.Offset != 8 {
			t.Fatalf("offset = %d, want 8", result.Offset)
		}
	}
}

func TestTailMissingFile(t *testing.T) {
	result, err := logs.Tail(context.Background(), filepath.Join(t.TempDir(), "none.log"), logs.TailOptions{Offset: -1, Limit: 5})
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	if len(result.Lines) != 0 || result.Offset != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestTailFromOffsetLeavesPartialLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "natranscript.log")
	if err := os.WriteFile(path, []byte("one\ntwo\npart"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	result, err := logs.Tail(context.Background(), path, logs.TailOptions{Offset: 4})
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	if len(result.Lines) != 1 || result.Lines[0] != "two" || result.Offset != 8 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestTailFollowWaits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "natranscript.log")
	if err := os.WriteFile(path, []byte("start\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	result, err := logs.Tail(ctx, path, logs.TailOptions{Offset: -1, Limit: 1})
	if err != nil {
		t.Fatalf("initial tail: %v", err)
	}
	if len(result.Lines) != 1 {
		t.Fatalf("expected initial line, got %#v", result.Lines)
	}

	done := make(chan struct{})
	go func(offset int64) {
		defer close(done)
		res, err := logs.Tail(ctx, path, logs.TailOptions{Offset: offset, Follow: true, Wait: 5 * time.Second})
		if err != nil {
			t.Errorf("follow tail error: %v", err)
		}
		if len(res.Lines) != 1 || res.Lines[0] != "later" {
			t.Errorf("unexpected follow lines: %#v", res.Lines)
		}
	}(result.Offset)

	time.Sleep(200 * time.Millisecond)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open append: %v", err)
	}
	if _, err := f.WriteString("later\n"); err != nil {
		t.Fatalf("append log: %v", err)
	}
	_ = f.Close()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("tail follow did not return")
	}
}
