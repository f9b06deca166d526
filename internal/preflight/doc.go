// Package preflight provides readiness checks for the filesystem paths,
// external binaries, and endpoints natranscript depends on.
//
// The pipeline runs RunAll before downloading so a run never starts without
// room for the audio or a converter to process it. The doctor command uses the
// same checks, plus CheckEndpoint, to display environment health.
package preflight
