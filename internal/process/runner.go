// Package process runs the external editor and raster tool as blocking child
// processes.
package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/starford/inkpad/internal/apperr"
)

// maxOutput bounds how much captured output is kept on an Error.
const maxOutput = 4 << 10

const waitDelay = 2 * time.Second

// Command describes one external invocation.
type Command struct {
	// Stage names the pipeline step issuing the command ("editor", "export", ...).
	Stage string
	Name  string
	Args  []string
	// Interactive attaches the child to the current terminal instead of
	// capturing its output.
	Interactive bool
	// Timeout bounds the wait; zero waits indefinitely.
	Timeout time.Duration
}

func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Runner executes commands to completion.
type Runner interface {
	Run(ctx context.Context, cmd Command) error
}

// Error reports a failed invocation. It unwraps to one of
// apperr.ErrProcessLaunch, apperr.ErrProcessExit or apperr.ErrProcessTimeout.
type Error struct {
	Stage    string
	Name     string
	Kind     error
	ExitCode int
	Output   string
	Err      error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := fmt.Sprintf("%s: %s: %s", e.Stage, e.Kind.Error(), e.Name)
	if e.Kind == apperr.ErrProcessExit && e.ExitCode != 0 {
		msg += fmt.Sprintf(" (exit code %d)", e.ExitCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Output != "" {
		msg += "\n" + e.Output
	}
	return msg
}

// Unwrap exposes both the kind and the underlying cause.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	stdout  io.Writer
	noStdin bool
}

// ExecOption configures an ExecRunner.
type ExecOption func(*ExecRunner)

// WithStdout sends the output of interactive commands to w instead of the
// process's stdout.
func WithStdout(w io.Writer) ExecOption {
	return func(r *ExecRunner) { r.stdout = w }
}

// WithoutStdin detaches interactive commands from the process's stdin; they
// read from the null device.
func WithoutStdin() ExecOption {
	return func(r *ExecRunner) { r.noStdin = true }
}

// NewExecRunner returns a Runner backed by os/exec.
func NewExecRunner(opts ...ExecOption) *ExecRunner {
	r := &ExecRunner{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run starts cmd and waits for it to exit.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) error {
	if cmd.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cmd.Timeout)
		defer cancel()
	}

	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	// Grandchildren holding the output pipe must not stall a killed command.
	c.WaitDelay = waitDelay
	var out bytes.Buffer
	if cmd.Interactive {
		if !r.noStdin {
			c.Stdin = os.Stdin
		}
		c.Stdout = os.Stdout
		if r.stdout != nil {
			c.Stdout = r.stdout
		}
		c.Stderr = os.Stderr
	} else {
		c.Stdout = &out
		c.Stderr = &out
	}

	if err := c.Start(); err != nil {
		return &Error{Stage: cmd.Stage, Name: cmd.Name, Kind: apperr.ErrProcessLaunch, Err: err}
	}

	err := c.Wait()
	if err == nil {
		return nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		kind := apperr.ErrProcessTimeout
		if errors.Is(ctxErr, context.Canceled) {
			kind = apperr.ErrProcessExit
		}
		return &Error{Stage: cmd.Stage, Name: cmd.Name, Kind: kind, Output: tail(out.Bytes()), Err: ctxErr}
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &Error{
			Stage:    cmd.Stage,
			Name:     cmd.Name,
			Kind:     apperr.ErrProcessExit,
			ExitCode: exitErr.ExitCode(),
			Output:   tail(out.Bytes()),
		}
	}
	return &Error{Stage: cmd.Stage, Name: cmd.Name, Kind: apperr.ErrProcessExit, Output: tail(out.Bytes()), Err: err}
}

// LookPath reports whether name resolves to an executable.
func LookPath(name string) (string, bool) {
	p, err := exec.LookPath(name)
	if err != nil {
		return "", false
	}
	return p, true
}

func tail(b []byte) string {
	b = bytes.TrimSpace(b)
	if len(b) > maxOutput {
		b = b[len(b)-maxOutput:]
	}
	return string(b)
}
