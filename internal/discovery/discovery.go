// Package discovery finds the artifacts a publishing run should process.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"sdpublish/internal/publish"
)

var (
	// ErrNoArtifacts is returned when the input contains no matching files.
	ErrNoArtifacts = errors.New("no matching artifacts found")
	// ErrExtensionMismatch is returned when a single input file has the wrong extension.
	ErrExtensionMismatch = errors.New("file does not have the expected extension")
)

// Find returns every regular file under root whose extension matches ext,
// compared case-insensitively. root may also name a single file. The result
// holds absolute paths, sorted and free of duplicates.
func Find(ctx context.Context, root, ext string) ([]publish.WorkItem, error) {
	ext = normalizeExtension(ext)
	if ext == "" {
		return nil, errors.New("artifact extension is required")
	}
	root, err := filepath.Abs(strings.TrimSpace(root))
	if err != nil {
		return nil, fmt.Errorf("resolve input path: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat input path: %w", err)
	}
	if !info.IsDir() {
		if !matches(root, ext) {
			return nil, fmt.Errorf("%w: %s (want .%s)", ErrExtensionMismatch, root, ext)
		}
		return []publish.WorkItem{publish.WorkItem(root)}, nil
	}

	var paths []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if matches(path, ext) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no .%s files under %s", ErrNoArtifacts, ext, root)
	}
	return Normalize(paths)
}

// Normalize converts paths to absolute, cleaned work items, dropping
// duplicates and sorting the result.
func Normalize(paths []string) ([]publish.WorkItem, error) {
	seen := make(map[string]struct{}, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("resolve %q: %w", p, err)
		}
		if _, ok := seen[abs]; ok {
			continue
		}
		seen[abs] = struct{}{}
		out = append(out, abs)
	}
	sort.Strings(out)
	items := make([]publish.WorkItem, len(out))
	for i, p := range out {
		items[i] = publish.WorkItem(p)
	}
	return items, nil
}

func matches(path, ext string) bool {
	return strings.EqualFold(strings.TrimPrefix(filepath.Ext(path), "."), ext)
}

func normalizeExtension(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}
