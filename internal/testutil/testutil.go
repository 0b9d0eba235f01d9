// Package testutil provides shared test helpers: temporary vaults and
// ledgers, and a scripted process runner standing in for the editor and the
// raster tool.
package testutil

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/starford/inkpad/internal/apperr"
	"github.com/starford/inkpad/internal/ledger"
	"github.com/starford/inkpad/internal/process"
	"github.com/starford/inkpad/internal/storage"
)

// Logger returns a logger that only prints errors.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// TestLedger creates a temporary SQLite ledger that is automatically cleaned up.
func TestLedger(t *testing.T) *ledger.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "inkpad-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := ledger.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestVault creates a temporary vault directory with a storage.Provider.
func TestVault(t *testing.T) (string, storage.Provider) {
	t.Helper()
	vaultDir := t.TempDir()
	store, err := storage.NewFS(vaultDir)
	if err != nil {
		t.Fatal(err)
	}
	return vaultDir, store
}

// Handler simulates one external command.
type Handler func(cmd process.Command) error

// Runner is a process.Runner that records every command and dispatches it to
// a per-stage handler. Stages without a handler succeed without side effects.
type Runner struct {
	mu       sync.Mutex
	calls    []process.Command
	ctxErrs  []error
	handlers map[string]Handler
}

// NewRunner returns a Runner with the conversion stages simulated on disk.
func NewRunner() *Runner {
	r := &Runner{handlers: make(map[string]Handler)}
	r.On("export", Export)
	r.On("transparency", Transparency)
	r.On("trim", Trim)
	return r
}

// On sets the handler for stage.
func (r *Runner) On(stage string, h Handler) *Runner {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[stage] = h
	return r
}

// Fail makes stage exit non-zero.
func (r *Runner) Fail(stage string) *Runner {
	return r.On(stage, func(cmd process.Command) error {
		return &process.Error{Stage: cmd.Stage, Name: cmd.Name, Kind: apperr.ErrProcessExit, ExitCode: 1}
	})
}

// FailLaunch makes stage fail as if the executable were missing.
func (r *Runner) FailLaunch(stage string) *Runner {
	return r.On(stage, func(cmd process.Command) error {
		return &process.Error{Stage: cmd.Stage, Name: cmd.Name, Kind: apperr.ErrProcessLaunch, Err: os.ErrNotExist}
	})
}

// Run implements process.Runner.
func (r *Runner) Run(ctx context.Context, cmd process.Command) error {
	r.mu.Lock()
	r.calls = append(r.calls, cmd)
	r.ctxErrs = append(r.ctxErrs, ctx.Err())
	h := r.handlers[cmd.Stage]
	r.mu.Unlock()
	if h == nil {
		return nil
	}
	return h(cmd)
}

// Calls returns the recorded commands.
func (r *Runner) Calls() []process.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]process.Command(nil), r.calls...)
}

// ContextErrs returns ctx.Err() as seen by each recorded command, in order.
func (r *Runner) ContextErrs() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.ctxErrs...)
}

// Stages returns the stage name of every recorded command, in order.
func (r *Runner) Stages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.calls))
	for i, c := range r.calls {
		out[i] = c.Stage
	}
	return out
}

// EditorCreates returns an editor handler that writes content to dir/name.
func EditorCreates(dir, name, content string) Handler {
	return func(process.Command) error {
		return os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644)
	}
}

// Export writes a fake raster whose bytes are derived from the draft content.
// Args follow "<draft> -i <raster>".
func Export(cmd process.Command) error {
	data, err := os.ReadFile(cmd.Args[0])
	if err != nil {
		return err
	}
	h := sha256.Sum256(data)
	return os.WriteFile(cmd.Args[2], []byte("raster:"+hex.EncodeToString(h[:])), 0o644)
}

// Transparency rewrites the raster in place. Args follow
// "<raster> -transparent <color> <raster>".
func Transparency(cmd process.Command) error {
	return rewrite(cmd.Args[0], cmd.Args[3], "|transparent="+cmd.Args[2])
}

// Trim rewrites the raster in place. Args follow
// "<raster> -fuzz <pct> -trim +repage <raster>".
func Trim(cmd process.Command) error {
	return rewrite(cmd.Args[0], cmd.Args[5], "|trim="+cmd.Args[2])
}

func rewrite(in, out, suffix string) error {
	data, err := os.ReadFile(in)
	if err != nil {
		return err
	}
	return os.WriteFile(out, append(data, suffix...), 0o644)
}
