package language

import (
	"errors"
	"testing"
)

func TestCanonical(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"en-US", "en-US"},
		{"en-us", "en-US"},
		{" EN-gb ", "en-GB"},
		{"de", "de"},
		{"fr-ca", "fr-CA"},
	}
	for _, tt := range tests {
		got, err := Canonical(tt.input)
		if err != nil {
			t.Fatalf("Canonical(%q) error: %v", tt.input, err)
		}
		if got != tt.expected {
			t.Errorf("Canonical(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestCanonicalRejectsInvalid(t *testing.T) {
	if _, err := Canonical(""); !errors.Is(err, ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
	if _, err := Canonical("not a locale!"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"en-GB", "British English"},
		{"de", "German"},
		{"", "Unknown"},
		{"??", "??"},
	}
	for _, tt := range tests {
		if got := DisplayName(tt.input); got != tt.expected {
			t.Errorf("DisplayName(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}
