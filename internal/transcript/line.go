package transcript

import (
	"fmt"
	"html"
	"net/url"
	"path/filepath"
	"strings"

	"natranscript/internal/speech"
)

const (
	linkTitle      = "click to play"
	paddingLine    = " "
	paddingPerLine = 2
)

// Link describes where transcript anchors point.
type Link struct {
	Host   string
	Target string
}

// Line renders one phrase as a transcript anchor. The display text is split
// on its first space: the leading word becomes the link text and the rest
// follows it. Phrases without a space produce no line.
func Line(link Link, episode string, phrase speech.Phrase) (string, bool) {
	lead, rest, found := strings.Cut(phrase.DisplayText, " ")
	if !found {
		return "", false
	}
	return fmt.Sprintf("<a target='%s' title='%s' href='http://%s/%s/%d'>%s</a> %s",
		link.Target,
		linkTitle,
		link.Host,
		html.EscapeString(url.PathEscape(episode)),
		phrase.Seconds(),
		html.EscapeString(lead),
		html.EscapeString(rest),
	), true
}

// HTMLPath returns the transcript file for an episode.
func HTMLPath(episodeDir, episode string) string {
	return filepath.Join(episodeDir, episode+".html")
}

// OPMLPath returns the outline path reserved for an episode. Nothing writes it yet.
func OPMLPath(episodeDir, episode string) string {
	return filepath.Join(episodeDir, episode+".opml")
}
