package internal

import (
	"io"

	"github.com/starford/inkpad/internal/process"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config *Config
	runner process.Runner
	logOut io.Writer
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithRunner replaces the runner used for the editor and the raster tool.
func WithRunner(r process.Runner) Option {
	return func(a *application) {
		a.runner = r
	}
}

// WithLogOutput sets where logs are written. Defaults to stdout.
func WithLogOutput(w io.Writer) Option {
	return func(a *application) {
		a.logOut = w
	}
}
