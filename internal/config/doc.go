// Package config loads, normalizes, and validates natranscript configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// SPEECH_SUBSCRIPTION_KEY and NATRANSCRIPT_FEED_URL. The Config type centralizes
// every knob both command-line programs need, from the feed location to the
// recognition endpoints and transcript link host.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, a canonical locale, and clear validation errors.
package config
