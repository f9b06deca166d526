// Package logging assembles the structured slog loggers shared by both
// command-line programs.
//
// It owns the console and JSON handlers, mirrors CLI output into the log
// directory, and exposes context-aware helpers so pipeline stages tag their
// records with the run ID, stage, and episode number. A no-op logger is
// provided for tests and wiring code that cannot fail.
package logging
