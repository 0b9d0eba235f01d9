// Package convert turns a draft drawing into a cropped, transparent raster
// image through a fixed chain of external tool invocations.
package convert

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/starford/inkpad/internal/apperr"
	"github.com/starford/inkpad/internal/process"
)

// Stage names, in execution order.
const (
	StageExport       = "export"
	StageTransparency = "transparency"
	StageTrim         = "trim"
)

// Stages lists the chain in execution order.
var Stages = []string{StageExport, StageTransparency, StageTrim}

// Options configures the chain.
type Options struct {
	Editor     string
	RasterTool string
	DraftExt   string
	RasterExt  string
	Background string
	Fuzz       string
	Timeout    time.Duration
}

// StageError names the stage that aborted the chain.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("convert %s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Chain runs export, transparency and trim in sequence.
type Chain struct {
	runner process.Runner
	opts   Options
	logger *slog.Logger
}

// NewChain creates a conversion chain.
func NewChain(runner process.Runner, opts Options, logger *slog.Logger) *Chain {
	return &Chain{runner: runner, opts: opts, logger: logger}
}

// RasterPath derives the raster path by replacing the draft extension suffix.
func RasterPath(draft, draftExt, rasterExt string) string {
	if strings.HasSuffix(draft, draftExt) {
		return draft[:len(draft)-len(draftExt)] + rasterExt
	}
	return draft + rasterExt
}

// Commands returns the three invocations for draft, in order.
func (c *Chain) Commands(draft string) []process.Command {
	raster := RasterPath(draft, c.opts.DraftExt, c.opts.RasterExt)
	return []process.Command{
		{
			Stage:   StageExport,
			Name:    c.opts.Editor,
			Args:    []string{draft, "-i", raster},
			Timeout: c.opts.Timeout,
		},
		{
			Stage:   StageTransparency,
			Name:    c.opts.RasterTool,
			Args:    []string{raster, "-transparent", c.opts.Background, raster},
			Timeout: c.opts.Timeout,
		},
		{
			Stage:   StageTrim,
			Name:    c.opts.RasterTool,
			Args:    []string{raster, "-fuzz", c.opts.Fuzz, "-trim", "+repage", raster},
			Timeout: c.opts.Timeout,
		},
	}
}

// Run converts draft and returns the raster path. The raster is rewritten in
// place by the second and third stages; a failure leaves it as-is.
func (c *Chain) Run(ctx context.Context, draft string) (string, error) {
	raster := RasterPath(draft, c.opts.DraftExt, c.opts.RasterExt)
	for _, cmd := range c.Commands(draft) {
		start := time.Now()
		c.logger.Debug("convert: stage started",
			slog.String("stage", cmd.Stage),
			slog.String("command", cmd.String()))

		if err := c.runner.Run(ctx, cmd); err != nil {
			return "", &StageError{Stage: cmd.Stage, Err: err}
		}
		if cmd.Stage == StageExport {
			if _, err := os.Stat(raster); err != nil {
				return "", &StageError{
					Stage: cmd.Stage,
					Err:   fmt.Errorf("%w: %s produced no raster output", apperr.ErrProcessExit, cmd.Name),
				}
			}
		}

		c.logger.Debug("convert: stage finished",
			slog.String("stage", cmd.Stage),
			slog.Duration("elapsed", time.Since(start)))
	}
	return raster, nil
}
