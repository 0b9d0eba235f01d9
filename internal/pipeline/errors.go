package pipeline

import "fmt"

// Error reports the stage that aborted a run. Err wraps one of the
// apperr kinds.
type Error struct {
	Stage string
	Err   error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("drawing %s failed: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func stageErr(stage string, err error) error {
	return &Error{Stage: stage, Err: err}
}
