// Package pipeline drives a single transcription run: catalog load, episode
// selection, download, WAV conversion, and streaming recognition into the
// HTML transcript. Each stage transition is recorded in the run history when
// a store is supplied.
package pipeline
