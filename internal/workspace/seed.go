package workspace

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/starford/inkpad/internal/apperr"
)

// UsableTemplate reports whether path names an existing regular file with the
// draft extension. Anything else means "no template".
func UsableTemplate(path, draftExt string) bool {
	if path == "" || !hasExt(path, draftExt) {
		return false
	}
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

// Seed copies template into dir under a fresh "<uuid><draftExt>" name and
// returns the new path. On failure no partial copy is left behind.
func Seed(dir, template, draftExt string) (string, error) {
	src, err := os.Open(template)
	if err != nil {
		return "", fmt.Errorf("%w: open template: %v", apperr.ErrSeedFailed, err)
	}
	defer src.Close()

	dst := filepath.Join(dir, uuid.New().String()+draftExt)
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("%w: create copy: %v", apperr.ErrSeedFailed, err)
	}

	success := false
	defer func() {
		if !success {
			_ = out.Close()
			_ = os.Remove(dst)
		}
	}()

	if _, err := io.Copy(out, src); err != nil {
		return "", fmt.Errorf("%w: copy template: %v", apperr.ErrSeedFailed, err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("%w: close copy: %v", apperr.ErrSeedFailed, err)
	}
	success = true
	return dst, nil
}
