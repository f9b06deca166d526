package preflight

import (
	"context"

	"natranscript/internal/config"
	"natranscript/internal/deps"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the local checks a run depends on: writable directories,
// free space for the download, and ffmpeg.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Episodes directory", cfg.Paths.EpisodesDir),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
	}
	if cfg.Download.MinFreeMiB > 0 {
		results = append(results, CheckFreeSpace("Free space", cfg.Paths.EpisodesDir, cfg.Download.MinFreeMiB))
	}
	return append(results, CheckTool(deps.FFmpeg(cfg.Audio.FFmpegBinary)))
}

// Failed returns the checks that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
