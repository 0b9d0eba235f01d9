// Package workspace manages the scratch directory that holds draft and raster
// artifacts between editor sessions.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/inkpad/internal/apperr"
)

// Resolve expands a leading "~" to the user's home directory and returns an
// absolute path.
func Resolve(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") || strings.HasPrefix(path, "~"+string(os.PathSeparator)) {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("workspace: resolve home: %w", err)
		}
		path = filepath.Join(home, path[1:])
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("workspace: resolve path: %w", err)
	}
	return abs, nil
}

// Validate reports whether dir exists and is a directory. Any other outcome
// is an error wrapping apperr.ErrConfigurationInvalid.
func Validate(dir string) error {
	if dir == "" {
		return fmt.Errorf("%w: path is empty", apperr.ErrConfigurationInvalid)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", apperr.ErrConfigurationInvalid, dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", apperr.ErrConfigurationInvalid, dir)
	}
	return nil
}

// Open resolves and validates a configured working directory in one step.
func Open(path string) (string, error) {
	dir, err := Resolve(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperr.ErrConfigurationInvalid, err)
	}
	if err := Validate(dir); err != nil {
		return "", err
	}
	return dir, nil
}

func hasExt(name, ext string) bool {
	return ext != "" && strings.HasSuffix(name, ext)
}
