// Package delivery copies a finished raster into the destination's attachment
// storage and registers it as an inserted image.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/starford/inkpad/internal/apperr"
)

// Target is the destination document at its current position.
type Target interface {
	// AttachmentDir returns the directory that holds the document's attachments.
	AttachmentDir(ctx context.Context) (string, error)
	// InsertImage registers the file at path as an image at the current position.
	InsertImage(ctx context.Context, path string) error
}

// Deliver copies raster into the target's attachment directory under its own
// base name and then inserts it. Insertion is never attempted unless the copy
// succeeded, and a failed insertion removes the copy again. It returns the
// path of the copied file.
func Deliver(ctx context.Context, raster string, target Target) (string, error) {
	dir, err := target.AttachmentDir(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: resolve attachment dir: %w", apperr.ErrDeliveryFailed, err)
	}
	dst, err := Copy(raster, dir)
	if err != nil {
		return "", fmt.Errorf("%w: %w", apperr.ErrDeliveryFailed, err)
	}
	if err := target.InsertImage(ctx, dst); err != nil {
		// Nothing references the copy.
		if rmErr := os.Remove(dst); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			err = errors.Join(err, fmt.Errorf("remove unreferenced attachment: %w", rmErr))
		}
		return "", fmt.Errorf("insert image: %w", err)
	}
	return dst, nil
}

// Copy writes src into dir as dir/<base(src)>: tmp file → fsync → rename.
// An existing file with the same name is replaced.
func Copy(src, dir string) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("delivery: open %s: %w", filepath.Base(src), err)
	}
	defer in.Close()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("delivery: mkdir: %w", err)
	}
	dst := filepath.Join(dir, filepath.Base(src))

	tmp, err := os.CreateTemp(dir, ".inkpad-tmp-*")
	if err != nil {
		return "", fmt.Errorf("delivery: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := io.Copy(tmp, in); err != nil {
		return "", fmt.Errorf("delivery: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return "", fmt.Errorf("delivery: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("delivery: close temp: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return "", fmt.Errorf("delivery: chmod: %w", err)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		return "", fmt.Errorf("delivery: rename: %w", err)
	}
	success = true
	return dst, nil
}
