// Package audio converts downloaded episodes into the 16-bit PCM WAV the
// recognition service accepts.
//
// Normalizer shells out to ffmpeg and publishes the result only after the
// output header parses. Inspect and ReadFormat read RIFF headers so the
// recognition stage can check sample format and estimate duration before it
// starts streaming.
package audio
