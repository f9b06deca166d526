// Package services defines shared utilities consumed by the pipeline stages and
// their external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, stage names, episode numbers, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper that classify failures
//     (network, parse, codec, recognition) and carry an operator-facing message.
//   - Hint and FailureStatus, which turn a classified failure into log fields
//     and a run history status.
//
// Use these helpers when wiring new stage logic so error handling and
// observability stay uniform across the pipeline.
package services
