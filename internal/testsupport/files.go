package testsupport

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// WriteSizedFile creates path, and any missing parents, holding size bytes of
// filler. Sizes below one still produce a one-byte file.
func WriteSizedFile(t testing.TB, path string, size int) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, bytes.Repeat([]byte{'N'}, max(size, 1)), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
