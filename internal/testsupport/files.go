package testsupport

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// WriteArtifacts creates one placeholder service definition per name under
// dir, creating parent directories as needed, and returns their paths in
// argument order. Names may contain slashes to build nested trees.
func WriteArtifacts(t testing.TB, dir string, names ...string) []string {
	t.Helper()

	paths := make([]string, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir for %s: %v", name, err)
		}
		// Content only needs to be non-empty and distinct per file.
		body := append(bytes.Repeat([]byte{'S', 'D'}, 64), name...)
		if err := os.WriteFile(path, body, 0o644); err != nil {
			t.Fatalf("write artifact %s: %v", name, err)
		}
		paths = append(paths, path)
	}
	return paths
}
