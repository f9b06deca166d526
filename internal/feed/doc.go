// Package feed reads the podcast RSS catalog.
//
// Reader wraps gofeed so every item becomes an episode.Episode carrying the
// item title, the first enclosure URL, and the number parsed from the title.
// An Observer can print or log entries as they are produced, which is how the
// interactive menu is rendered.
package feed
