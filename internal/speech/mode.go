package speech

import (
	"fmt"
	"strings"
)

// Mode selects the recognition endpoint.
type Mode int

const (
	// ModeShort recognizes a single utterance of up to fifteen seconds.
	ModeShort Mode = iota
	// ModeLong recognizes continuously until the audio ends.
	ModeLong
)

// String returns the lowercase mode name used in configuration.
func (m Mode) String() string {
	if m == ModeShort {
		return "short"
	}
	return "long"
}

// Label returns the capitalised name accepted on the command line.
func (m Mode) Label() string {
	if m == ModeShort {
		return "Short"
	}
	return "Long"
}

// ParseMode interprets value by its first letter, case-insensitively:
// anything starting with "l" is long, anything starting with "s" is short.
func ParseMode(value string) (Mode, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ModeLong, fmt.Errorf("recognition mode is empty")
	}
	switch strings.ToLower(trimmed[:1]) {
	case "l":
		return ModeLong, nil
	case "s":
		return ModeShort, nil
	default:
		return ModeLong, fmt.Errorf("unknown recognition mode %q (expected Short or Long)", value)
	}
}

// URL returns the endpoint for this mode from the pair of candidates.
func (m Mode) URL(shortURL, longURL string) string {
	if m == ModeShort {
		return shortURL
	}
	return longURL
}
