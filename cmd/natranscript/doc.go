// Package main hosts the natranscript CLI.
//
// Invoked with a subscription key, it lists the podcast feed, asks which
// episode to transcribe, downloads and converts the audio, and streams it to
// the recognition service, appending linked lines to the episode transcript.
// Subcommands cover configuration scaffolding, run history, transcript
// read-back, environment checks, and a test notification.
package main
