package workspace

import (
	"fmt"
	"path/filepath"

	"github.com/gobwas/glob"
)

// Ignore matches base names of files that are never picked as the session's
// drawing, such as editor autosaves and backups.
type Ignore struct {
	patterns []glob.Glob
}

// NewIgnore compiles glob patterns matched against base names.
func NewIgnore(patterns []string) (*Ignore, error) {
	i := &Ignore{}
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("workspace: invalid ignore pattern %q: %w", pattern, err)
		}
		i.patterns = append(i.patterns, g)
	}
	return i, nil
}

// Match reports whether the base name of path matches any pattern. A nil
// Ignore matches nothing.
func (i *Ignore) Match(path string) bool {
	if i == nil {
		return false
	}
	name := filepath.Base(path)
	for _, g := range i.patterns {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// Paths returns the paths not matched.
func (i *Ignore) Paths(paths []string) []string {
	var out []string
	for _, p := range paths {
		if !i.Match(p) {
			out = append(out, p)
		}
	}
	return out
}

// Artifacts returns the artifacts not matched.
func (i *Ignore) Artifacts(items []Artifact) []Artifact {
	var out []Artifact
	for _, a := range items {
		if !i.Match(a.Path) {
			out = append(out, a)
		}
	}
	return out
}
