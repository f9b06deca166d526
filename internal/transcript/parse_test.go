package transcript

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseReadsBackAssembledTranscript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "102.html")
	_, err := NewAssembler(path, "102", WithLink(testLink)).Consume(context.Background(), feed(
		success("hello world"),
		success("Q&A session starts now"),
	))
	if err != nil {
		t.Fatalf("Consume failed: %v", err)
	}

	entries, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Episode != "102" || entries[0].Seconds != 10 || entries[0].Text() != "hello world" {
		t.Fatalf("unexpected first entry: %+v", entries[0])
	}
	if entries[1].Lead != "Q&A" || entries[1].Rest != "session starts now" {
		t.Fatalf("unexpected second entry: %+v", entries[1])
	}
}

func TestParseIgnoresForeignAnchors(t *testing.T) {
	doc := `<p><a href="https://example.com/about">about</a></p>
<a href='http://naplay.it/1500/3725'>later</a> on
<a href='http://naplay.it/notanumber'>skip</a> me`
	entries, err := Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %+v", entries)
	}
	if entries[0].Episode != "1500" || entries[0].Timestamp() != "1:02:05" || entries[0].Rest != "on" {
		t.Fatalf("unexpected entry: %+v", entries[0])
	}
}

func TestFormatOffset(t *testing.T) {
	cases := map[int64]string{0: "0:00:00", 59: "0:00:59", 61: "0:01:01", 3600: "1:00:00", -3: "0:00:00"}
	for input, want := range cases {
		if got := FormatOffset(input); got != want {
			t.Errorf("FormatOffset(%d) = %q, want %q", input, got, want)
		}
	}
}
