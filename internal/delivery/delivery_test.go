package delivery

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/inkpad/internal/apperr"
)

type fakeTarget struct {
	dir       string
	dirErr    error
	insertErr error
	inserted  []string
}

func (f *fakeTarget) AttachmentDir(context.Context) (string, error) {
	return f.dir, f.dirErr
}

func (f *fakeTarget) InsertImage(_ context.Context, path string) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}
	f.inserted = append(f.inserted, path)
	return f.insertErr
}

func raster(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "sketch.png")
	if err := os.WriteFile(p, []byte("png"), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestDeliver_CopiesThenInserts(t *testing.T) {
	target := &fakeTarget{dir: filepath.Join(t.TempDir(), "attachments")}
	dst, err := Deliver(context.Background(), raster(t), target)
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if filepath.Base(dst) != "sketch.png" || filepath.Dir(dst) != target.dir {
		t.Errorf("dst = %q", dst)
	}
	got, _ := os.ReadFile(dst)
	if string(got) != "png" {
		t.Errorf("content = %q", got)
	}
	if len(target.inserted) != 1 || target.inserted[0] != dst {
		t.Errorf("inserted = %v", target.inserted)
	}
	leftovers, _ := filepath.Glob(filepath.Join(target.dir, ".inkpad-tmp-*"))
	if len(leftovers) != 0 {
		t.Errorf("leftover temp files: %v", leftovers)
	}
}

func TestDeliver_CopyFailureSkipsInsert(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	// A regular file where the directory should be makes MkdirAll fail.
	target := &fakeTarget{dir: filepath.Join(blocker, "attachments")}

	_, err := Deliver(context.Background(), raster(t), target)
	if !errors.Is(err, apperr.ErrDeliveryFailed) {
		t.Fatalf("err = %v, want ErrDeliveryFailed", err)
	}
	if len(target.inserted) != 0 {
		t.Error("insert must not be attempted after copy failure")
	}
}

func TestDeliver_InsertFailureRemovesCopy(t *testing.T) {
	target := &fakeTarget{dir: t.TempDir(), insertErr: apperr.ErrNotFound}
	_, err := Deliver(context.Background(), raster(t), target)
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want the insert error", err)
	}
	if errors.Is(err, apperr.ErrDeliveryFailed) {
		t.Errorf("insert failures are not copy failures: %v", err)
	}
	if len(target.inserted) != 1 {
		t.Fatalf("insert should have been attempted once, got %v", target.inserted)
	}
	if _, err := os.Stat(filepath.Join(target.dir, "sketch.png")); !os.IsNotExist(err) {
		t.Errorf("unreferenced attachment left behind: %v", err)
	}
}

func TestDeliver_MissingSource(t *testing.T) {
	target := &fakeTarget{dir: t.TempDir()}
	_, err := Deliver(context.Background(), filepath.Join(t.TempDir(), "gone.png"), target)
	if !errors.Is(err, apperr.ErrDeliveryFailed) {
		t.Fatalf("err = %v, want ErrDeliveryFailed", err)
	}
	if len(target.inserted) != 0 {
		t.Error("insert must not be attempted")
	}
}

func TestDeliver_ResolveFailure(t *testing.T) {
	target := &fakeTarget{dirErr: apperr.ErrNotFound}
	_, err := Deliver(context.Background(), raster(t), target)
	if !errors.Is(err, apperr.ErrDeliveryFailed) || !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestCopy_Overwrites(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "sketch.png"), []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}
	dst, err := Copy(raster(t), dir)
	if err != nil {
		t.Fatalf("Copy: %v", err)
	}
	got, _ := os.ReadFile(dst)
	if string(got) != "png" {
		t.Errorf("content = %q, want overwritten", got)
	}
}
