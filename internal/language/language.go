package language

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// ErrEmpty is returned when no locale was supplied.
var ErrEmpty = errors.New("locale is empty")

// Canonical parses a BCP 47 locale and returns its canonical spelling
// ("en-us" becomes "en-US").
func Canonical(locale string) (string, error) {
	tag, err := parse(locale)
	if err != nil {
		return "", err
	}
	return tag.String(), nil
}

// DisplayName returns an English name for the locale ("en-GB" becomes
// "British English"). Unparseable input is returned upper-cased.
func DisplayName(locale string) string {
	trimmed := strings.TrimSpace(locale)
	if trimmed == "" {
		return "Unknown"
	}
	tag, err := parse(trimmed)
	if err != nil {
		return strings.ToUpper(trimmed)
	}
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return tag.String()
}

func parse(locale string) (language.Tag, error) {
	trimmed := strings.TrimSpace(locale)
	if trimmed == "" {
		return language.Und, ErrEmpty
	}
	tag, err := language.Parse(trimmed)
	if err != nil {
		return language.Und, fmt.Errorf("parse locale %q: %w", trimmed, err)
	}
	return tag, nil
}
