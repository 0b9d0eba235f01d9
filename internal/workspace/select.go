package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Artifact is a draft file found in the working directory.
type Artifact struct {
	Path    string
	ModTime time.Time
}

// List returns every regular file directly inside dir whose name ends in ext.
func List(dir, ext string) ([]Artifact, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("workspace: list %s: %w", dir, err)
	}
	var out []Artifact
	for _, e := range entries {
		if e.IsDir() || !hasExt(e.Name(), ext) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// Removed between ReadDir and Info.
			continue
		}
		if !info.Mode().IsRegular() {
			continue
		}
		out = append(out, Artifact{Path: filepath.Join(dir, e.Name()), ModTime: info.ModTime()})
	}
	return out, nil
}

// Latest returns the most recently modified draft in dir. ok is false when
// there is none.
func Latest(dir, draftExt string) (Artifact, bool, error) {
	items, err := List(dir, draftExt)
	if err != nil {
		return Artifact{}, false, err
	}
	a, ok := Newest(items)
	return a, ok, nil
}

// LatestOf applies the same rule as Latest to an explicit set of paths.
// Paths that no longer exist are ignored.
func LatestOf(paths []string) (Artifact, bool) {
	var items []Artifact
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		items = append(items, Artifact{Path: p, ModTime: info.ModTime()})
	}
	return Newest(items)
}

// Newest picks the greatest ModTime; equal times resolve to the
// lexicographically smallest path.
func Newest(items []Artifact) (Artifact, bool) {
	if len(items) == 0 {
		return Artifact{}, false
	}
	best := items[0]
	for _, a := range items[1:] {
		switch {
		case a.ModTime.After(best.ModTime):
			best = a
		case a.ModTime.Equal(best.ModTime) && a.Path < best.Path:
			best = a
		}
	}
	return best, true
}
