// Package logs reads back the JSON log file the CLI mirrors its output into.
//
// Tail returns the last lines of the file, or the lines appended after a known
// offset, optionally waiting for new output. Decode turns a line into an
// Entry so callers can filter by run, episode, or level before printing.
package logs
