// Package main hosts speechsample, the batch form of natranscript: it
// transcribes one local audio file whose name carries the episode number and
// writes the transcript next to it.
package main
