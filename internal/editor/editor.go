// Package editor launches the interactive drawing editor.
package editor

import (
	"context"
	"time"

	"github.com/starford/inkpad/internal/process"
)

// Stage is the stage name reported for editor invocations.
const Stage = "editor"

// Invoker starts the editor and blocks until the user closes it.
type Invoker struct {
	runner  process.Runner
	command string
	timeout time.Duration
}

// NewInvoker creates an Invoker for the given editor executable. A zero
// timeout waits for as long as the session lasts.
func NewInvoker(runner process.Runner, command string, timeout time.Duration) *Invoker {
	return &Invoker{runner: runner, command: command, timeout: timeout}
}

// Command returns the invocation for a session. An empty template opens a
// blank canvas.
func (i *Invoker) Command(template string) process.Command {
	cmd := process.Command{
		Stage:       Stage,
		Name:        i.command,
		Interactive: true,
		Timeout:     i.timeout,
	}
	if template != "" {
		cmd.Args = []string{template}
	}
	return cmd
}

// Edit runs one editing session. Launch failures and non-zero exits are
// returned as *process.Error.
func (i *Invoker) Edit(ctx context.Context, template string) error {
	return i.runner.Run(ctx, i.Command(template))
}
