package selection

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"natranscript/internal/episode"
)

// Prompt is printed before each interactive read.
const Prompt = "Please select an episode"

// Selector resolves the episode a run works on. A false result means nothing
// valid was chosen; it is not an error.
type Selector interface {
	Resolve(ctx context.Context) (episode.Episode, bool, error)
}

// Interactive asks the operator for a 1-based catalog position. It is not
// safe for concurrent use.
type Interactive struct {
	catalog  episode.Catalog
	in       *bufio.Reader
	out      io.Writer
	attempts int
	// pending is the read still in flight after a cancelled Resolve.
	pending chan lineResult
}

type lineResult struct {
	line string
	err  error
}

// NewInteractive reads choices from in and writes prompts to out. attempts
// below one are treated as one.
func NewInteractive(catalog episode.Catalog, in io.Reader, out io.Writer, attempts int) *Interactive {
	if attempts < 1 {
		attempts = 1
	}
	if out == nil {
		out = io.Discard
	}
	return &Interactive{catalog: catalog, in: bufio.NewReader(in), out: out, attempts: attempts}
}

// Resolve prompts until a valid choice is read, the attempts are used up, or
// input ends.
func (s *Interactive) Resolve(ctx context.Context) (episode.Episode, bool, error) {
	for attempt := 1; attempt <= s.attempts; attempt++ {
		fmt.Fprintf(s.out, "%s (1-%d): ", Prompt, len(s.catalog))
		line, err := s.readLine(ctx)
		if err != nil && !errors.Is(err, io.EOF) {
			return episode.Episode{}, false, err
		}
		if ep, ok := Choose(s.catalog, line); ok {
			return ep, true, nil
		}
		if errors.Is(err, io.EOF) {
			return episode.Episode{}, false, nil
		}
		if attempt < s.attempts {
			fmt.Fprintf(s.out, "%q is not a numbered episode in the list\n", strings.TrimSpace(line))
		}
	}
	return episode.Episode{}, false, nil
}

// readLine waits for the next input line. At most one read runs against the
// underlying reader; a read abandoned by cancellation is picked up again by
// the next call instead of racing a second one.
func (s *Interactive) readLine(ctx context.Context) (string, error) {
	if s.pending == nil {
		done := make(chan lineResult, 1)
		go func() {
			line, err := s.in.ReadString('\n')
			done <- lineResult{line: line, err: err}
		}()
		s.pending = done
	}
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-s.pending:
		s.pending = nil
		return res.line, res.err
	}
}

// Choose parses input as a 1-based position in catalog. Non-numeric input,
// positions outside 1..len(catalog), and entries without a number are rejected.
func Choose(catalog episode.Catalog, input string) (episode.Episode, bool) {
	index, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil {
		return episode.Episode{}, false
	}
	ep, ok := catalog.At(index)
	if !ok || !ep.Valid() {
		return episode.Episode{}, false
	}
	return ep, true
}

// FileName derives the episode number from an audio file name.
type FileName struct {
	path string
}

// NewFileName returns a selector for the given audio file path.
func NewFileName(path string) *FileName {
	return &FileName{path: path}
}

// Resolve never returns an error; a name without a number yields false.
// Leading zeros are dropped, so NA-0987-x.wav is episode 987.
func (s *FileName) Resolve(context.Context) (episode.Episode, bool, error) {
	base := filepath.Base(s.path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	number, ok := episode.ParseNumber(NumberFromFileName(stem))
	if !ok {
		return episode.Episode{}, false, nil
	}
	return episode.Episode{Number: number, Title: stem}, true, nil
}

var (
	fileNumberPattern = regexp.MustCompile(`-[0-9]{4}-`)
	nonDigits         = regexp.MustCompile(`[^0-9]`)
)

// NumberFromFileName returns the four digits of the first "-dddd-" run in
// name, or "".
func NumberFromFileName(name string) string {
	match := fileNumberPattern.FindString(name)
	if match == "" {
		return ""
	}
	return nonDigits.ReplaceAllString(match, "")
}
