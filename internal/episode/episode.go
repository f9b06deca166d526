// Package episode models podcast catalog entries.
package episode

import (
	"strconv"
	"strings"
)

// Episode is one catalog entry.
type Episode struct {
	Number   string
	Title    string
	AudioURL string
}

// New builds an episode from a feed item, deriving the number from the title.
func New(title, audioURL string) Episode {
	return Episode{
		Number:   CanonicalNumber(NumberFromTitle(title)),
		Title:    title,
		AudioURL: audioURL,
	}
}

// Valid reports whether the episode carries a decimal number and may leave
// selection. Numbers name directories and transcript links, so anything but
// digits is refused.
func (e Episode) Valid() bool {
	_, ok := ParseNumber(e.Number)
	return ok
}

// NumberFromTitle returns the trimmed part of title before the first colon,
// or "" when the title has no colon.
func NumberFromTitle(title string) string {
	number, _, found := strings.Cut(title, ":")
	if !found {
		return ""
	}
	return strings.TrimSpace(number)
}

// ParseNumber accepts a non-negative decimal episode number surrounded by
// optional whitespace and returns it without leading zeros.
func ParseNumber(value string) (string, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return "", false
		}
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return "", false
	}
	return strconv.Itoa(n), true
}

// CanonicalNumber returns the ParseNumber form of value, or value unchanged
// when it is not a number.
func CanonicalNumber(value string) string {
	if number, ok := ParseNumber(value); ok {
		return number
	}
	return value
}

// Catalog is the ordered list of episodes read from a feed. Menu numbering is
// 1-based in catalog order.
type Catalog []Episode

// At returns the episode at 1-based position index.
func (c Catalog) At(index int) (Episode, bool) {
	if index < 1 || index > len(c) {
		return Episode{}, false
	}
	return c[index-1], true
}

// Find returns the first episode with the given number.
func (c Catalog) Find(number string) (Episode, bool) {
	for _, ep := range c {
		if ep.Number == number {
			return ep, true
		}
	}
	return Episode{}, false
}
