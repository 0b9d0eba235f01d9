// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/inkpad/internal/api"
	"github.com/starford/inkpad/internal/convert"
	"github.com/starford/inkpad/internal/drawing"
	"github.com/starford/inkpad/internal/editor"
	"github.com/starford/inkpad/internal/ledger"
	"github.com/starford/inkpad/internal/mcpserver"
	"github.com/starford/inkpad/internal/noteservice"
	"github.com/starford/inkpad/internal/pipeline"
	"github.com/starford/inkpad/internal/process"
	"github.com/starford/inkpad/internal/sse"
	"github.com/starford/inkpad/internal/storage"
	"github.com/starford/inkpad/internal/workspace"
)

func newApplication(opts []Option) (*application, *slog.Logger, error) {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return nil, nil, fmt.Errorf("config is required")
	}
	if app.runner == nil {
		app.runner = process.NewExecRunner()
	}
	if app.logOut == nil {
		app.logOut = os.Stdout
	}

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(app.logOut, &slog.HandlerOptions{
		Level: app.config.App.LogLevel,
	}))
	slog.SetDefault(logger)

	return app, logger, nil
}

// services holds everything a host needs to insert drawings.
type services struct {
	store   *storage.FS
	notes   *noteservice.Service
	ledger  *ledger.DB
	drawing *drawing.Service
}

func (s *services) Close() error {
	return s.ledger.Close()
}

func (a *application) build(logger *slog.Logger, observer pipeline.Observer) (*services, error) {
	cfg := a.config

	logger.Info("Configuration loaded",
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("work_dir", cfg.Drawing.WorkDir),
		slog.String("editor", cfg.Drawing.Editor),
		slog.String("cleanup_scope", cfg.Drawing.CleanupScope),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Ensure vault directory exists.
	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create vault dir: %w", err)
	}

	store, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := ledger.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init ledger: %w", err)
	}

	d := cfg.Drawing
	popts, err := d.PipelineOptions()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init pipeline: %w", err)
	}
	p := pipeline.New(popts,
		editor.NewInvoker(a.runner, d.Editor, d.EditorTimeout),
		convert.NewChain(a.runner, d.ConvertOptions(), logger),
		logger, observer)

	notes := noteservice.NewService(store)
	return &services{
		store:   store,
		notes:   notes,
		ledger:  db,
		drawing: drawing.NewService(p, notes, db, logger),
	}, nil
}

// Draw runs one drawing session for note and prints the inserted Markdown to out.
func Draw(ctx context.Context, note string, line int, out io.Writer, opts ...Option) error {
	app, logger, err := newApplication(opts)
	if err != nil {
		return err
	}
	svc, err := app.build(logger, nil)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d, err := svc.drawing.Insert(ctx, note, line)
	if err != nil {
		return err
	}
	if d.Result.CleanError != "" {
		logger.Warn("working directory not fully cleaned", slog.String("error", d.Result.CleanError))
	}
	_, err = fmt.Fprintln(out, d.Markdown)
	return err
}

// ServeMCP runs the MCP server on stdin/stdout until the client disconnects.
func ServeMCP(ctx context.Context, opts ...Option) error {
	// stdin and stdout carry the protocol; the editor must not touch them.
	defaults := []Option{
		WithLogOutput(os.Stderr),
		WithRunner(process.NewExecRunner(process.WithStdout(os.Stderr), process.WithoutStdin())),
	}
	app, logger, err := newApplication(append(defaults, opts...))
	if err != nil {
		return err
	}
	svc, err := app.build(logger, nil)
	if err != nil {
		return err
	}
	defer svc.Close()

	logger.Info("MCP server starting on stdio")
	return mcpserver.New(svc.drawing, svc.notes).ServeStdio()
}

// Check reports whether the working directory and the external tools are
// usable. It returns an error naming every problem found.
func Check(_ context.Context, out io.Writer, opts ...Option) error {
	app, _, err := newApplication(opts)
	if err != nil {
		return err
	}
	d := app.config.Drawing

	var problems []error
	if dir, err := workspace.Open(d.WorkDir); err != nil {
		problems = append(problems, err)
		fmt.Fprintf(out, "work_dir     FAIL %v\n", err)
	} else {
		fmt.Fprintf(out, "work_dir     ok   %s\n", dir)
	}
	for _, tool := range []struct{ key, name string }{
		{"editor", d.Editor},
		{"raster_tool", d.RasterTool},
	} {
		if p, ok := process.LookPath(tool.name); ok {
			fmt.Fprintf(out, "%-12s ok   %s\n", tool.key, p)
		} else {
			problems = append(problems, fmt.Errorf("%s %q not found on PATH", tool.key, tool.name))
			fmt.Fprintf(out, "%-12s FAIL %s not found on PATH\n", tool.key, tool.name)
		}
	}
	if d.Template != "" {
		tpl, err := workspace.Resolve(d.Template)
		if err != nil || !workspace.UsableTemplate(tpl, d.DraftExt) {
			// Not fatal: sessions start from a blank canvas.
			fmt.Fprintf(out, "template     WARN %s unusable, blank canvas will be used\n", d.Template)
		} else {
			fmt.Fprintf(out, "template     ok   %s\n", tpl)
		}
	}
	return errors.Join(problems...)
}

// Run starts the HTTP service with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, logger, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	// SSE broker receives every pipeline stage transition.
	broker := sse.NewBroker(64)
	defer broker.Close()

	svc, err := app.build(logger, broker.PublishStage)
	if err != nil {
		return err
	}
	defer svc.Close()

	apiRouter := api.NewRouter(svc.drawing, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)
	attachments := api.NewAttachmentHandler(filepath.Join(svc.store.Root(), noteservice.AttachDir), cfg.Drawing.RasterExt)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := workspace.Open(cfg.Drawing.WorkDir); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = fmt.Fprintf(w, `{"status":"unavailable","reason":%q}`, err.Error())
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	// Delivered drawings, as referenced from notes.
	r.Get("/attachments/{filename}", attachments.ServeFile)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		// Ends open event streams so Shutdown does not wait on them.
		broker.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}
