package transcript

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Entry is one anchor read back from a transcript.
type Entry struct {
	Episode string
	Seconds int64
	Lead    string
	Rest    string
	Href    string
}

// Text returns the full phrase.
func (e Entry) Text() string {
	if e.Rest == "" {
		return e.Lead
	}
	return e.Lead + " " + e.Rest
}

// Timestamp formats the offset as h:mm:ss.
func (e Entry) Timestamp() string {
	return FormatOffset(e.Seconds)
}

// FormatOffset renders whole seconds as h:mm:ss.
func FormatOffset(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d:%02d", seconds/3600, (seconds/60)%60, seconds%60)
}

// ParseFile reads a transcript from disk.
func ParseFile(path string) ([]Entry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return Parse(file)
}

// Parse extracts entries from transcript HTML. Anchors whose href does not
// end in /<episode>/<seconds> are ignored.
func Parse(r io.Reader) ([]Entry, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse transcript: %w", err)
	}

	var entries []Entry
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		episode, seconds, ok := splitHref(href)
		if !ok {
			return
		}
		entries = append(entries, Entry{
			Episode: episode,
			Seconds: seconds,
			Lead:    strings.TrimSpace(sel.Text()),
			Rest:    trailingText(sel),
			Href:    href,
		})
	})
	return entries, nil
}

func splitHref(href string) (string, int64, bool) {
	parsed, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", 0, false
	}
	dir, last := path.Split(strings.TrimRight(parsed.Path, "/"))
	seconds, err := strconv.ParseInt(last, 10, 64)
	if err != nil || seconds < 0 {
		return "", 0, false
	}
	episode := path.Base(strings.TrimRight(dir, "/"))
	if episode == "" || episode == "/" || episode == "." {
		return "", 0, false
	}
	return episode, seconds, true
}

// trailingText returns the text following the anchor up to the end of its line.
func trailingText(sel *goquery.Selection) string {
	node := sel.Get(0)
	if node == nil || node.NextSibling == nil || node.NextSibling.Type != html.TextNode {
		return ""
	}
	text, _, _ := strings.Cut(node.NextSibling.Data, "\n")
	return strings.TrimSpace(text)
}
