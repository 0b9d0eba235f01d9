// Package pipeline runs one drawing session end to end: validate the working
// directory, seed a template, run the editor, pick the drawing, convert it,
// deliver it and optionally clean up.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/inkpad/internal/apperr"
	"github.com/starford/inkpad/internal/convert"
	"github.com/starford/inkpad/internal/delivery"
	"github.com/starford/inkpad/internal/editor"
	"github.com/starford/inkpad/internal/workspace"
)

// Stage names reported to observers and in errors. Conversion failures are
// reported under the failing conversion stage (export, transparency, trim).
const (
	StageValidate = "validate"
	StageSeed     = "seed"
	StageEditor   = editor.Stage
	StageSelect   = "select"
	StageConvert  = "convert"
	StageDeliver  = "deliver"
	StageClean    = "clean"
)

// Event statuses.
const (
	StatusStarted  = "started"
	StatusFinished = "finished"
	StatusFailed   = "failed"
	StatusSkipped  = "skipped"
)

// Event is emitted on every stage transition.
type Event struct {
	Stage  string    `json:"stage"`
	Status string    `json:"status"`
	Path   string    `json:"path,omitempty"`
	Error  string    `json:"error,omitempty"`
	Time   time.Time `json:"time"`
}

// Observer receives stage events. It is called synchronously.
type Observer func(Event)

// Options holds the host-supplied configuration for a run.
type Options struct {
	WorkDir      string
	Template     string
	Clean        bool
	CleanupScope string
	DraftExt     string
	RasterExt    string
	// Ignore excludes drafts from selection. Nil excludes nothing.
	Ignore *workspace.Ignore
}

// Result describes a successful run.
type Result struct {
	Draft      string   `json:"draft"`
	Raster     string   `json:"raster"`
	Attachment string   `json:"attachment"`
	Seeded     string   `json:"seeded,omitempty"`
	Removed    []string `json:"removed,omitempty"`
	CleanError string   `json:"clean_error,omitempty"`
}

// Pipeline is safe for use by several hosts; only one run executes at a time.
type Pipeline struct {
	opts     Options
	editor   *editor.Invoker
	chain    *convert.Chain
	logger   *slog.Logger
	observer Observer

	mu sync.Mutex
}

// New creates a pipeline. observer may be nil.
func New(opts Options, ed *editor.Invoker, chain *convert.Chain, logger *slog.Logger, observer Observer) *Pipeline {
	if opts.CleanupScope == "" {
		opts.CleanupScope = workspace.ScopeRun
	}
	return &Pipeline{
		opts:     opts,
		editor:   ed,
		chain:    chain,
		logger:   logger,
		observer: observer,
	}
}

// Run executes one session and delivers the drawing to target. A concurrent
// call returns apperr.ErrBusy without side effects.
func (p *Pipeline) Run(ctx context.Context, target delivery.Target) (*Result, error) {
	if !p.mu.TryLock() {
		return nil, apperr.ErrBusy
	}
	defer p.mu.Unlock()

	p.emit(StageValidate, StatusStarted, p.opts.WorkDir, nil)
	dir, err := workspace.Open(p.opts.WorkDir)
	if err != nil {
		return nil, p.fail(StageValidate, err)
	}
	p.emit(StageValidate, StatusFinished, dir, nil)

	res := &Result{}

	seeded, err := p.seed(dir)
	if err != nil {
		return nil, p.fail(StageSeed, err)
	}
	res.Seeded = seeded

	touched, err := p.edit(ctx, dir, seeded)
	if err != nil {
		return nil, p.fail(StageEditor, err)
	}

	p.emit(StageSelect, StatusStarted, dir, nil)
	art, ok, err := p.selectDraft(dir, touched)
	if err != nil {
		return nil, p.fail(StageSelect, err)
	}
	if !ok {
		return nil, p.fail(StageSelect, fmt.Errorf("%w in %s", apperr.ErrNoArtifact, dir))
	}
	res.Draft = art.Path
	p.emit(StageSelect, StatusFinished, art.Path, nil)

	p.emit(StageConvert, StatusStarted, art.Path, nil)
	raster, err := p.chain.Run(ctx, art.Path)
	if err != nil {
		var se *convert.StageError
		if errors.As(err, &se) {
			return nil, p.fail(se.Stage, se.Err)
		}
		return nil, p.fail(StageConvert, err)
	}
	res.Raster = raster
	p.emit(StageConvert, StatusFinished, raster, nil)

	p.emit(StageDeliver, StatusStarted, raster, nil)
	dst, err := delivery.Deliver(ctx, raster, target)
	if err != nil {
		return nil, p.fail(StageDeliver, err)
	}
	res.Attachment = dst
	p.emit(StageDeliver, StatusFinished, dst, nil)

	p.clean(dir, res, touched)

	p.logger.Info("drawing delivered",
		slog.String("draft", res.Draft),
		slog.String("attachment", res.Attachment))
	return res, nil
}

func (p *Pipeline) seed(dir string) (string, error) {
	if p.opts.Template == "" {
		p.emit(StageSeed, StatusSkipped, "", nil)
		return "", nil
	}
	tpl, err := workspace.Resolve(p.opts.Template)
	if err != nil || !workspace.UsableTemplate(tpl, p.opts.DraftExt) {
		p.logger.Warn("template unusable, starting blank",
			slog.String("template", p.opts.Template))
		p.emit(StageSeed, StatusSkipped, p.opts.Template, nil)
		return "", nil
	}
	p.emit(StageSeed, StatusStarted, tpl, nil)
	seeded, err := workspace.Seed(dir, tpl, p.opts.DraftExt)
	if err != nil {
		return "", err
	}
	p.emit(StageSeed, StatusFinished, seeded, nil)
	return seeded, nil
}

// edit runs the editor while tracking which drafts it writes.
func (p *Pipeline) edit(ctx context.Context, dir, seeded string) ([]string, error) {
	tr, err := workspace.Track(dir, p.opts.DraftExt, p.logger)
	if err != nil {
		p.logger.Warn("session tracking unavailable, falling back to directory scan",
			slog.String("error", err.Error()))
	}

	p.emit(StageEditor, StatusStarted, seeded, nil)
	editErr := p.editor.Edit(ctx, seeded)

	var touched []string
	if tr != nil {
		touched = tr.Stop()
	}
	if editErr != nil {
		return nil, editErr
	}
	p.emit(StageEditor, StatusFinished, "", nil)
	return touched, nil
}

// selectDraft prefers drafts written during the session and falls back to
// the newest draft in the directory. Ignored names never qualify.
func (p *Pipeline) selectDraft(dir string, touched []string) (workspace.Artifact, bool, error) {
	if a, ok := workspace.LatestOf(p.opts.Ignore.Paths(touched)); ok {
		return a, true, nil
	}
	items, err := workspace.List(dir, p.opts.DraftExt)
	if err != nil {
		return workspace.Artifact{}, false, err
	}
	a, ok := workspace.Newest(p.opts.Ignore.Artifacts(items))
	return a, ok, nil
}

func (p *Pipeline) clean(dir string, res *Result, touched []string) {
	if !p.opts.Clean {
		p.emit(StageClean, StatusSkipped, dir, nil)
		return
	}
	p.emit(StageClean, StatusStarted, dir, nil)

	var removed []string
	var err error
	if p.opts.CleanupScope == workspace.ScopeAll {
		removed, err = workspace.CleanAll(dir, p.opts.DraftExt, p.opts.RasterExt)
	} else {
		paths := []string{res.Seeded, res.Draft, res.Raster}
		for _, t := range touched {
			paths = append(paths, t, convert.RasterPath(t, p.opts.DraftExt, p.opts.RasterExt))
		}
		removed, err = workspace.Remove(paths)
	}
	res.Removed = removed

	if err != nil {
		res.CleanError = err.Error()
		p.logger.Warn("cleanup incomplete", slog.String("error", err.Error()))
		p.emit(StageClean, StatusFailed, dir, err)
		return
	}
	p.emit(StageClean, StatusFinished, dir, nil)
}

func (p *Pipeline) fail(stage string, err error) error {
	p.logger.Error("drawing aborted",
		slog.String("stage", stage),
		slog.String("error", err.Error()))
	p.emit(stage, StatusFailed, "", err)
	return stageErr(stage, err)
}

func (p *Pipeline) emit(stage, status, path string, err error) {
	p.logger.Debug("pipeline: stage "+status, slog.String("stage", stage), slog.String("path", path))
	if p.observer == nil {
		return
	}
	ev := Event{Stage: stage, Status: status, Path: path, Time: time.Now()}
	if err != nil {
		ev.Error = err.Error()
	}
	p.observer(ev)
}
