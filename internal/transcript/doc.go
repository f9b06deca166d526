// Package transcript renders recognition results into the per-episode HTML
// transcript and reads existing transcripts back.
//
// Each line links the first word of a phrase to the player at the phrase's
// offset, followed by the rest of the phrase and two padding lines. The file
// is only ever appended to.
package transcript
