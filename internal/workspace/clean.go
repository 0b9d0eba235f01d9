package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// Cleanup scopes.
const (
	ScopeRun = "run"
	ScopeAll = "all"
)

// Remove deletes the given paths. Missing files are skipped; other failures
// are joined into the returned error. It returns the paths actually removed.
func Remove(paths []string) ([]string, error) {
	seen := make(map[string]struct{}, len(paths))
	var removed []string
	var errs []error
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		if err := os.Remove(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			errs = append(errs, fmt.Errorf("workspace: remove %s: %w", filepath.Base(p), err))
			continue
		}
		removed = append(removed, p)
	}
	sort.Strings(removed)
	return removed, errors.Join(errs...)
}

// CleanAll deletes every file directly inside dir ending in one of exts,
// regardless of which run produced it.
func CleanAll(dir string, exts ...string) ([]string, error) {
	var paths []string
	for _, ext := range exts {
		items, err := List(dir, ext)
		if err != nil {
			return nil, err
		}
		for _, a := range items {
			paths = append(paths, a.Path)
		}
	}
	return Remove(paths)
}
