package process

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/starford/inkpad/internal/apperr"
)

func TestExecRunner_Success(t *testing.T) {
	r := NewExecRunner()
	if err := r.Run(context.Background(), Command{Stage: "test", Name: "sh", Args: []string{"-c", "exit 0"}}); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestExecRunner_LaunchFailure(t *testing.T) {
	r := NewExecRunner()
	err := r.Run(context.Background(), Command{Stage: "editor", Name: "inkpad-no-such-binary-xyz"})
	if err == nil {
		t.Fatal("expected launch error")
	}
	if !errors.Is(err, apperr.ErrProcessLaunch) {
		t.Errorf("err = %v, want ErrProcessLaunch", err)
	}
	var pe *Error
	if !errors.As(err, &pe) || pe.Stage != "editor" {
		t.Errorf("expected *Error with stage editor, got %#v", err)
	}
}

func TestExecRunner_NonZeroExit(t *testing.T) {
	r := NewExecRunner()
	err := r.Run(context.Background(), Command{Stage: "trim", Name: "sh", Args: []string{"-c", "echo boom >&2; exit 3"}})
	if !errors.Is(err, apperr.ErrProcessExit) {
		t.Fatalf("err = %v, want ErrProcessExit", err)
	}
	var pe *Error
	if !errors.As(err, &pe) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if pe.ExitCode != 3 {
		t.Errorf("exit code = %d, want 3", pe.ExitCode)
	}
	if !strings.Contains(pe.Output, "boom") {
		t.Errorf("output = %q, want captured stderr", pe.Output)
	}
	if !strings.Contains(err.Error(), "trim") {
		t.Errorf("message should name stage: %q", err.Error())
	}
}

func TestExecRunner_Timeout(t *testing.T) {
	r := NewExecRunner()
	err := r.Run(context.Background(), Command{
		Stage:   "export",
		Name:    "sh",
		Args:    []string{"-c", "sleep 5"},
		Timeout: 50 * time.Millisecond,
	})
	if !errors.Is(err, apperr.ErrProcessTimeout) {
		t.Fatalf("err = %v, want ErrProcessTimeout", err)
	}
}

func TestCommandString(t *testing.T) {
	c := Command{Name: "convert", Args: []string{"a.png", "-trim", "a.png"}}
	if got := c.String(); got != "convert a.png -trim a.png" {
		t.Errorf("String() = %q", got)
	}
}

func TestTail_Truncates(t *testing.T) {
	long := strings.Repeat("x", maxOutput+100)
	if got := tail([]byte(long)); len(got) != maxOutput {
		t.Errorf("len = %d, want %d", len(got), maxOutput)
	}
}

// swapFile replaces *target with the write or read end of a pipe, chosen by
// the caller. restore puts the original file back.
func swapFile(t *testing.T, target **os.File) (pr, pw *os.File, restore func()) {
	t.Helper()
	pr, pw, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	orig := *target
	restore = func() { *target = orig }
	t.Cleanup(func() {
		restore()
		pr.Close()
		pw.Close()
	})
	return pr, pw, restore
}

func TestExecRunner_WithStdoutKeepsProcessStdoutClean(t *testing.T) {
	pr, pw, restore := swapFile(t, &os.Stdout)
	os.Stdout = pw

	var buf bytes.Buffer
	r := NewExecRunner(WithStdout(&buf), WithoutStdin())
	err := r.Run(context.Background(), Command{
		Stage:       "editor",
		Name:        "sh",
		Args:        []string{"-c", "echo GTK-WARNING"},
		Interactive: true,
	})
	restore()
	pw.Close()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	leaked, _ := io.ReadAll(pr)
	if len(leaked) != 0 {
		t.Errorf("process stdout received %q", leaked)
	}
	if !strings.Contains(buf.String(), "GTK-WARNING") {
		t.Errorf("redirected output = %q", buf.String())
	}
}

func TestExecRunner_WithoutStdinLeavesInputUnread(t *testing.T) {
	pr, pw, restore := swapFile(t, &os.Stdin)
	os.Stdin = pr
	defer restore()
	if _, err := pw.WriteString("{\"jsonrpc\":\"2.0\"}\n"); err != nil {
		t.Fatal(err)
	}
	pw.Close()

	r := NewExecRunner(WithStdout(io.Discard), WithoutStdin())
	// Exits 1 if it managed to read a line.
	err := r.Run(context.Background(), Command{
		Stage:       "editor",
		Name:        "sh",
		Args:        []string{"-c", "if read line; then exit 1; fi"},
		Interactive: true,
		Timeout:     5 * time.Second,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	rest, _ := io.ReadAll(pr)
	if string(rest) != "{\"jsonrpc\":\"2.0\"}\n" {
		t.Errorf("stdin consumed by child, remaining %q", rest)
	}
}
