package deps

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const probeTimeout = 10 * time.Second

// Tool is an external program the pipeline shells out to.
type Tool struct {
	Name        string
	Command     string
	Purpose     string
	VersionArgs []string
}

// FFmpeg describes the converter used for WAV normalization.
func FFmpeg(binary string) Tool {
	return Tool{
		Name:        "FFmpeg",
		Command:     strings.TrimSpace(binary),
		Purpose:     "Converts downloaded audio to PCM WAV",
		VersionArgs: []string{"-version"},
	}
}

// Status is the result of looking a Tool up. Path is empty when the tool
// could not be found; Err says why.
type Status struct {
	Tool
	Path    string
	Version string
	Err     error
}

// Available reports whether the tool resolved to an executable.
func (s Status) Available() bool { return s.Path != "" }

// Locate resolves tool.Command on PATH without running it.
func Locate(tool Tool) Status {
	status := Status{Tool: tool}
	if tool.Command == "" {
		status.Err = errors.New("command not configured")
		return status
	}
	path, err := exec.LookPath(tool.Command)
	if err != nil {
		status.Err = fmt.Errorf("binary %q not found", tool.Command)
		return status
	}
	status.Path = path
	return status
}

// Probe locates tool and, when found, runs it with VersionArgs and keeps the
// first line of output.
func Probe(ctx context.Context, tool Tool) Status {
	status := Locate(tool)
	if !status.Available() || len(tool.VersionArgs) == 0 {
		return status
	}
	version, err := firstLine(ctx, status.Path, tool.VersionArgs...)
	if err != nil {
		status.Err = err
		return status
	}
	status.Version = version
	return status
}

func firstLine(ctx context.Context, path string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	output, err := exec.CommandContext(ctx, path, args...).CombinedOutput() //nolint:gosec
	if err != nil {
		return "", fmt.Errorf("%s %s: %w: %s", path, strings.Join(args, " "), err, strings.TrimSpace(string(output)))
	}
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			return line, nil
		}
	}
	return "", fmt.Errorf("%s %s: empty output", path, strings.Join(args, " "))
}
