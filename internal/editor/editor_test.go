package editor

import (
	"context"
	"errors"
	"testing"

	"github.com/starford/inkpad/internal/apperr"
	"github.com/starford/inkpad/internal/testutil"
)

func TestEdit_BlankSession(t *testing.T) {
	r := testutil.NewRunner()
	inv := NewInvoker(r, "xournalpp", 0)
	if err := inv.Edit(context.Background(), ""); err != nil {
		t.Fatalf("Edit: %v", err)
	}
	calls := r.Calls()
	if len(calls) != 1 {
		t.Fatalf("calls = %d", len(calls))
	}
	if calls[0].Name != "xournalpp" || len(calls[0].Args) != 0 {
		t.Errorf("blank session command = %+v", calls[0])
	}
	if !calls[0].Interactive {
		t.Error("editor must run interactively")
	}
}

func TestEdit_WithTemplate(t *testing.T) {
	r := testutil.NewRunner()
	inv := NewInvoker(r, "xournalpp", 0)
	if err := inv.Edit(context.Background(), "/w/seed.xopp"); err != nil {
		t.Fatalf("Edit: %v", err)
	}
	args := r.Calls()[0].Args
	if len(args) != 1 || args[0] != "/w/seed.xopp" {
		t.Errorf("args = %v, want template as sole argument", args)
	}
}

func TestEdit_LaunchFailureSurfaced(t *testing.T) {
	r := testutil.NewRunner().FailLaunch(Stage)
	inv := NewInvoker(r, "missing-editor", 0)
	err := inv.Edit(context.Background(), "")
	if !errors.Is(err, apperr.ErrProcessLaunch) {
		t.Errorf("err = %v, want ErrProcessLaunch", err)
	}
}
