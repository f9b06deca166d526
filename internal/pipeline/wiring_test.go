package pipeline_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"natranscript/internal/logging"
	"natranscript/internal/pipeline"
	"natranscript/internal/testsupport"
)

const wiringFeed = `<?xml version="1.0"?>
<rss version="2.0"><channel><title>NA</title>
<item><title>101: Pilot</title><enclosure url="http://cdn.test/NA-101.mp3" type="audio/mpeg"/></item>
<item><title>102: Next</title><enclosure url="http://cdn.test/NA-102.mp3" type="audio/mpeg"/></item>
</channel></rss>`

func TestNewDepsEchoesCatalog(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(wiringFeed))
	}))
	defer srv.Close()

	cfg := testsupport.NewConfig(t)
	var out bytes.Buffer
	deps, err := pipeline.NewDeps(cfg, logging.NewNop(), &out)
	if err != nil {
		t.Fatalf("NewDeps: %v", err)
	}
	if deps.Fetcher == nil || deps.Normalizer == nil || deps.Recognizer == nil || deps.Notifier == nil || deps.Preflight == nil {
		t.Fatalf("incomplete deps: %+v", deps)
	}

	catalog, err := deps.Catalog.Read(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(catalog) != 2 {
		t.Fatalf("catalog = %d entries, want 2", len(catalog))
	}
	want := "1) 101: Pilot\n2) 102: Next\n"
	if out.String() != want {
		t.Fatalf("echo = %q, want %q", out.String(), want)
	}
}

func TestNewDepsRejectsBadMode(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMode("x"))
	if _, err := pipeline.NewDeps(cfg, nil, nil); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}
