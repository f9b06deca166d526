// Package download fetches episode audio into the per-episode directory,
// reporting percentage progress and publishing the file only once complete.
package download
