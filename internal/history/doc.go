// Package history records transcription runs in a local SQLite database.
//
// Each run moves through the pipeline statuses (idle, catalog_loaded,
// episode_selected, downloaded, normalized, recognizing, complete) and may end
// in failed or cancelled from any non-terminal status. Transition validates the
// move against the stored status and appends an event row in the same
// transaction, so the runs table always reflects the latest event.
//
// The schema lives in schema.sql; bump schemaVersion when it changes. Old
// databases are rejected with ErrSchemaMismatch rather than migrated.
package history
