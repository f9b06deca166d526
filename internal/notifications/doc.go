// Package notifications publishes run outcomes to ntfy.
//
// NewService returns a no-op implementation when no topic is configured, so
// callers never need to check whether notifications are enabled. The
// complete and errors switches in the [notifications] section silence each
// event kind independently.
package notifications
