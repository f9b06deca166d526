package pipeline_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"natranscript/internal/download"
	"natranscript/internal/episode"
	"natranscript/internal/history"
	"natranscript/internal/logging"
	"natranscript/internal/notifications"
	"natranscript/internal/pipeline"
	"natranscript/internal/preflight"
	"natranscript/internal/selection"
	"natranscript/internal/services"
	"natranscript/internal/speech"
	"natranscript/internal/testsupport"
)

type fakeCatalog struct {
	catalog episode.Catalog
	err     error
	uri     string
}

func (f *fakeCatalog) Read(_ context.Context, uri string) (episode.Catalog, error) {
	f.uri = uri
	return f.catalog, f.err
}

type fakeFetcher struct {
	err  error
	dest string
}

func (f *fakeFetcher) Fetch(_ context.Context, _ string, dest string, progress download.ProgressFunc) (download.Result, error) {
	f.dest = dest
	if f.err != nil {
		return download.Result{}, f.err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return download.Result{}, err
	}
	if err := os.WriteFile(dest, []byte("mp3"), 0o644); err != nil {
		return download.Result{}, err
	}
	if progress != nil {
		progress(download.Progress{Downloaded: 1, Total: 3, Percent: 33})
		progress(download.Progress{Downloaded: 3, Total: 3, Percent: 100})
	}
	return download.Result{Path: dest, Bytes: 3}, nil
}

type fakeNormalizer struct {
	calls int
	err   error
}

func (f *fakeNormalizer) Normalize(_ context.Context, _ string, dst string) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(dst, []byte("RIFF"), 0o644)
}

type fakeStream struct {
	results chan speech.Result
	waitErr error
}

func (s *fakeStream) Results() <-chan speech.Result { return s.results }
func (s *fakeStream) Wait() error                   { return s.waitErr }
func (s *fakeStream) Close() error                  { return nil }

type fakeRecognizer struct {
	results []speech.Result
	waitErr error
	err     error
	audio   []byte
}

func (f *fakeRecognizer) Recognize(_ context.Context, audio io.Reader) (pipeline.ResultStream, error) {
	if f.err != nil {
		return nil, f.err
	}
	data, err := io.ReadAll(audio)
	if err != nil {
		return nil, err
	}
	f.audio = data
	ch := make(chan speech.Result, len(f.results))
	for _, result := range f.results {
		ch <- result
	}
	close(ch)
	return &fakeStream{results: ch, waitErr: f.waitErr}, nil
}

type recordingNotifier struct {
	completed []notifications.Summary
	errors    []string
}

func (n *recordingNotifier) NotifyTranscriptComplete(_ context.Context, summary notifications.Summary) error {
	n.completed = append(n.completed, summary)
	return nil
}

func (n *recordingNotifier) NotifyError(_ context.Context, _ error, label string) error {
	n.errors = append(n.errors, label)
	return nil
}

func (n *recordingNotifier) TestNotification(context.Context) error { return nil }

func phrase(text string, seconds int64) speech.Result {
	return speech.Result{
		Status:  speech.StatusSuccess,
		Phrases: []speech.Phrase{{DisplayText: text, MediaTime: seconds * speech.TicksPerSecond}},
	}
}

func sampleCatalog() episode.Catalog {
	return episode.Catalog{
		episode.New("101: Pilot", "http://cdn.test/audio/NA-101.mp3"),
		episode.New("102: Next", "http://cdn.test/audio/NA-102.mp3?x=1"),
		episode.New("103: Finale", "http://cdn.test/audio/NA-103.mp3"),
	}
}

func chooser(input string) pipeline.SelectorFactory {
	return func(catalog episode.Catalog) selection.Selector {
		return selection.NewInteractive(catalog, strings.NewReader(input), io.Discard, 1)
	}
}

func TestRunFeedWritesTranscript(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	catalog := &fakeCatalog{catalog: sampleCatalog()}
	fetcher := &fakeFetcher{}
	normalizer := &fakeNormalizer{}
	recognizer := &fakeRecognizer{results: []speech.Result{
		phrase("Hello world", 0),
		{Status: speech.StatusNoMatch},
		phrase("Second line here", 75),
	}}
	notifier := &recordingNotifier{}
	var out bytes.Buffer

	p, err := pipeline.New(cfg, pipeline.Deps{
		Logger:     logging.NewNop(),
		Store:      store,
		Notifier:   notifier,
		Catalog:    catalog,
		Fetcher:    fetcher,
		Normalizer: normalizer,
		Recognizer: recognizer,
		Out:        &out,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	outcome, err := p.RunFeed(context.Background(), chooser("2\n"))
	if err != nil {
		t.Fatalf("RunFeed: %v", err)
	}

	if catalog.uri != cfg.Feed.URL {
		t.Fatalf("catalog read %q, want %q", catalog.uri, cfg.Feed.URL)
	}
	wantDir := filepath.Join(cfg.Paths.EpisodesDir, "102")
	if outcome.Run.EpisodeDir != wantDir {
		t.Fatalf("episode dir = %q, want %q", outcome.Run.EpisodeDir, wantDir)
	}
	if fetcher.dest != filepath.Join(wantDir, "NA-102.mp3") {
		t.Fatalf("download dest = %q", fetcher.dest)
	}
	if normalizer.calls != 1 {
		t.Fatalf("normalizer calls = %d, want 1", normalizer.calls)
	}
	if string(recognizer.audio) != "RIFF" {
		t.Fatalf("recognizer read %q, want converted WAV", recognizer.audio)
	}
	if outcome.Run.TranscriptPath != filepath.Join(wantDir, "102.html") {
		t.Fatalf("transcript path = %q", outcome.Run.TranscriptPath)
	}
	if outcome.Stats.Lines != 2 || outcome.Stats.Skipped != 1 {
		t.Fatalf("stats = %+v", outcome.Stats)
	}

	data, err := os.ReadFile(outcome.Run.TranscriptPath)
	if err != nil {
		t.Fatalf("read transcript: %v", err)
	}
	text := string(data)
	if !strings.Contains(text, "href='http://naplay.it/102/0'>Hello</a> world") {
		t.Fatalf("first line missing:\n%s", text)
	}
	if !strings.Contains(text, "href='http://naplay.it/102/75'>Second</a> line here") {
		t.Fatalf("second line missing:\n%s", text)
	}
	if !strings.Contains(out.String(), "Download progress: 100%") {
		t.Fatalf("progress not reported: %q", out.String())
	}

	run, err := store.Get(context.Background(), outcome.Run.RunID)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if run.Status != history.StatusComplete {
		t.Fatalf("status = %s, want complete", run.Status)
	}
	if run.EpisodeNumber != "102" || run.LinesWritten != 2 {
		t.Fatalf("run = %+v", run)
	}
	events, err := store.Events(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	want := []history.Status{
		history.StatusIdle,
		history.StatusCatalogLoaded,
		history.StatusEpisodeSelected,
		history.StatusDownloaded,
		history.StatusNormalized,
		history.StatusRecognizing,
		history.StatusComplete,
	}
	if len(events) != len(want) {
		t.Fatalf("events = %d, want %d", len(events), len(want))
	}
	for i, status := range want {
		if events[i].Status != status {
			t.Fatalf("event %d = %s, want %s", i, events[i].Status, status)
		}
	}

	if len(notifier.completed) != 1 || notifier.completed[0].Episode != "102" {
		t.Fatalf("completion notifications = %+v", notifier.completed)
	}
}

func TestRunFeedNoSelection(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "out of range", input: "9\n"},
		{name: "not a number", input: "abc\n"},
		{name: "empty input", input: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testsupport.NewConfig(t)
			fetcher := &fakeFetcher{}
			p, err := pipeline.New(cfg, pipeline.Deps{
				Catalog:    &fakeCatalog{catalog: sampleCatalog()},
				Fetcher:    fetcher,
				Normalizer: &fakeNormalizer{},
				Recognizer: &fakeRecognizer{},
			})
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			_, err = p.RunFeed(context.Background(), chooser(tt.input))
			if !errors.Is(err, pipeline.ErrNoSelection) {
				t.Fatalf("expected ErrNoSelection, got %v", err)
			}
			if !errors.Is(err, services.ErrValidation) {
				t.Fatalf("expected validation marker, got %v", err)
			}
			if fetcher.dest != "" {
				t.Fatalf("download should not start, dest = %q", fetcher.dest)
			}
			if _, statErr := os.Stat(cfg.Paths.EpisodesDir); !errors.Is(statErr, os.ErrNotExist) {
				t.Fatalf("episodes dir should not be created, stat err = %v", statErr)
			}
		})
	}
}

func TestRunFeedRefusesNonNumericTitles(t *testing.T) {
	catalog := episode.Catalog{
		episode.New("../../escaped: Pilot", "http://cdn.test/audio/escaped.mp3"),
		episode.New("Bonus' onmouseover='x: Extra", "http://cdn.test/audio/bonus.mp3"),
	}
	for _, input := range []string{"1\n", "2\n"} {
		cfg := testsupport.NewConfig(t)
		fetcher := &fakeFetcher{}
		p, err := pipeline.New(cfg, pipeline.Deps{
			Catalog:    &fakeCatalog{catalog: catalog},
			Fetcher:    fetcher,
			Normalizer: &fakeNormalizer{},
			Recognizer: &fakeRecognizer{results: []speech.Result{phrase("Hello world", 2)}},
		})
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		_, err = p.RunFeed(context.Background(), chooser(input))
		if !errors.Is(err, pipeline.ErrNoSelection) {
			t.Fatalf("choice %q: expected ErrNoSelection, got %v", input, err)
		}
		if fetcher.dest != "" {
			t.Fatalf("choice %q: download should not start, dest = %q", input, fetcher.dest)
		}
		matches, _ := filepath.Glob(filepath.Join(testsupport.BaseDir(cfg), "*.html"))
		if len(matches) != 0 {
			t.Fatalf("choice %q: unexpected transcripts %v", input, matches)
		}
	}
}

func TestRunFeedEmptyCatalog(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	p, err := pipeline.New(cfg, pipeline.Deps{
		Catalog:    &fakeCatalog{},
		Fetcher:    &fakeFetcher{},
		Normalizer: &fakeNormalizer{},
		Recognizer: &fakeRecognizer{},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = p.RunFeed(context.Background(), chooser("1\n"))
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRunFeedDownloadFailureRecorded(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	notifier := &recordingNotifier{}
	downloadErr := services.Wrap(services.ErrNetwork, "download", "fetch", "unexpected status 404", nil)
	normalizer := &fakeNormalizer{}

	p, err := pipeline.New(cfg, pipeline.Deps{
		Store:      store,
		Notifier:   notifier,
		Catalog:    &fakeCatalog{catalog: sampleCatalog()},
		Fetcher:    &fakeFetcher{err: downloadErr},
		Normalizer: normalizer,
		Recognizer: &fakeRecognizer{},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = p.RunFeed(context.Background(), chooser("1\n"))
	if !errors.Is(err, services.ErrNetwork) {
		t.Fatalf("expected network error, got %v", err)
	}
	if normalizer.calls != 0 {
		t.Fatalf("normalizer should not run")
	}

	runs, err := store.List(context.Background(), history.ListOptions{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("runs = %d, want 1", len(runs))
	}
	if runs[0].Status != history.StatusFailed {
		t.Fatalf("status = %s, want failed", runs[0].Status)
	}
	if !strings.Contains(runs[0].ErrorMessage, "unexpected status 404") {
		t.Fatalf("error message = %q", runs[0].ErrorMessage)
	}
	if len(notifier.errors) != 1 || notifier.errors[0] != "download (episode 101)" {
		t.Fatalf("error notifications = %v", notifier.errors)
	}
}

func TestRunFeedPreflightBlocksDownload(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	fetcher := &fakeFetcher{}
	p, err := pipeline.New(cfg, pipeline.Deps{
		Catalog:    &fakeCatalog{catalog: sampleCatalog()},
		Fetcher:    fetcher,
		Normalizer: &fakeNormalizer{},
		Recognizer: &fakeRecognizer{},
		Preflight: func(context.Context) []preflight.Result {
			return []preflight.Result{
				{Name: "Episodes directory", Passed: true},
				{Name: "FFmpeg", Passed: false, Detail: "ffmpeg not found"},
			}
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = p.RunFeed(context.Background(), chooser("1\n"))
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if !strings.Contains(err.Error(), "FFmpeg: ffmpeg not found") {
		t.Fatalf("error should name failed check: %v", err)
	}
	if fetcher.dest != "" {
		t.Fatalf("download should not start")
	}
}

func TestRunFileSkipsConversionForWAV(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	dir := t.TempDir()
	audioPath := filepath.Join(dir, "NA-0987-2016-11-20.wav")
	if err := os.WriteFile(audioPath, []byte("RIFFDATA"), 0o644); err != nil {
		t.Fatalf("write audio: %v", err)
	}
	normalizer := &fakeNormalizer{}
	recognizer := &fakeRecognizer{results: []speech.Result{phrase("Batch line", 3)}}

	p, err := pipeline.New(cfg, pipeline.Deps{
		Store:      store,
		Normalizer: normalizer,
		Recognizer: recognizer,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	outcome, err := p.RunFile(context.Background(), audioPath)
	if err != nil {
		t.Fatalf("RunFile: %v", err)
	}
	if normalizer.calls != 0 {
		t.Fatalf("WAV input should not be converted")
	}
	if string(recognizer.audio) != "RIFFDATA" {
		t.Fatalf("recognizer read %q", recognizer.audio)
	}
	want := filepath.Join(dir, "987.html")
	if outcome.Run.TranscriptPath != want {
		t.Fatalf("transcript path = %q, want %q", outcome.Run.TranscriptPath, want)
	}
	data, err := os.ReadFile(want)
	if err != nil {
		t.Fatalf("read transcript: %v", err)
	}
	if !strings.Contains(string(data), "href='http://naplay.it/987/3'>Batch</a> line") {
		t.Fatalf("unexpected transcript:\n%s", data)
	}

	run, err := store.Get(context.Background(), outcome.Run.RunID)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if run.Source != history.SourceFile || run.Status != history.StatusComplete {
		t.Fatalf("run = %+v", run)
	}
}

func TestRunFileConvertsNonWAV(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	dir := t.TempDir()
	audioPath := filepath.Join(dir, "NA-1001-2017-12-31.mp3")
	testsupport.WriteSizedFile(t, audioPath, 2048)
	normalizer := &fakeNormalizer{}
	recognizer := &fakeRecognizer{}
	p, err := pipeline.New(cfg, pipeline.Deps{Normalizer: normalizer, Recognizer: recognizer})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	outcome, err := p.RunFile(context.Background(), audioPath)
	if err != nil {
		t.Fatalf("RunFile: %v", err)
	}
	if normalizer.calls != 1 {
		t.Fatalf("normalizer calls = %d, want 1", normalizer.calls)
	}
	if outcome.Run.WAVPath != filepath.Join(dir, "NA-1001-2017-12-31.wav") {
		t.Fatalf("wav path = %q", outcome.Run.WAVPath)
	}
	if outcome.Stats.Lines != 0 {
		t.Fatalf("stats = %+v", outcome.Stats)
	}
}

func TestRunFileRejectsUnnumberedName(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	dir := t.TempDir()
	audioPath := filepath.Join(dir, "episode.wav")
	testsupport.WriteSizedFile(t, audioPath, 64)
	recognizer := &fakeRecognizer{}
	p, err := pipeline.New(cfg, pipeline.Deps{Normalizer: &fakeNormalizer{}, Recognizer: recognizer})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = p.RunFile(context.Background(), audioPath)
	if !errors.Is(err, pipeline.ErrNoSelection) {
		t.Fatalf("expected ErrNoSelection, got %v", err)
	}
	if recognizer.audio != nil {
		t.Fatalf("recognizer should not run")
	}
}

func TestRunFileMissingAudio(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	p, err := pipeline.New(cfg, pipeline.Deps{Normalizer: &fakeNormalizer{}, Recognizer: &fakeRecognizer{}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = p.RunFile(context.Background(), filepath.Join(t.TempDir(), "NA-0001-x.wav"))
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRecognitionFailureMarksRunFailed(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	dir := t.TempDir()
	audioPath := filepath.Join(dir, "NA-0500-a.wav")
	if err := os.WriteFile(audioPath, []byte("RIFF"), 0o644); err != nil {
		t.Fatalf("write audio: %v", err)
	}
	recErr := services.Wrap(services.ErrRecognition, "speech", "receive", "connection dropped", nil)
	p, err := pipeline.New(cfg, pipeline.Deps{
		Store:      store,
		Normalizer: &fakeNormalizer{},
		Recognizer: &fakeRecognizer{results: []speech.Result{phrase("Kept line", 1)}, waitErr: recErr},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = p.RunFile(context.Background(), audioPath)
	if !errors.Is(err, services.ErrRecognition) {
		t.Fatalf("expected recognition error, got %v", err)
	}
	data, readErr := os.ReadFile(filepath.Join(dir, "500.html"))
	if readErr != nil {
		t.Fatalf("lines written before the failure should remain: %v", readErr)
	}
	if !strings.Contains(string(data), "Kept</a> line") {
		t.Fatalf("unexpected transcript:\n%s", data)
	}
	runs, err := store.List(context.Background(), history.ListOptions{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 1 || runs[0].Status != history.StatusFailed || runs[0].LinesWritten != 1 {
		t.Fatalf("runs = %+v", runs)
	}
}

func TestCancelledRunRecordedAsCancelled(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	notifier := &recordingNotifier{}
	p, err := pipeline.New(cfg, pipeline.Deps{
		Store:      store,
		Notifier:   notifier,
		Catalog:    &fakeCatalog{err: services.Wrap(services.ErrTransient, "feed", "read", "interrupted", context.Canceled)},
		Fetcher:    &fakeFetcher{},
		Normalizer: &fakeNormalizer{},
		Recognizer: &fakeRecognizer{},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = p.RunFeed(context.Background(), chooser("1\n"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	runs, err := store.List(context.Background(), history.ListOptions{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 1 || runs[0].Status != history.StatusCancelled {
		t.Fatalf("runs = %+v", runs)
	}
	if len(notifier.errors) != 0 {
		t.Fatalf("cancellation should not notify: %v", notifier.errors)
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Speech.Mode = "medium"
	if _, err := pipeline.New(cfg, pipeline.Deps{Normalizer: &fakeNormalizer{}, Recognizer: &fakeRecognizer{}}); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if _, err := pipeline.New(nil, pipeline.Deps{}); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error for nil config, got %v", err)
	}
}
