// Package apperr holds the error kinds shared by the pipeline and its hosts.
package apperr

import "errors"

// ErrNotFound reports a missing note.
var ErrNotFound = errors.New("not found")

// Pipeline failure kinds. Stage errors wrap one of these so hosts can
// classify them with errors.Is.
var (
	ErrConfigurationInvalid = errors.New("invalid working directory")
	ErrSeedFailed           = errors.New("template seeding failed")
	ErrProcessLaunch        = errors.New("process launch failed")
	ErrProcessExit          = errors.New("process exited non-zero")
	ErrProcessTimeout       = errors.New("process timed out")
	ErrNoArtifact           = errors.New("no drawing found")
	ErrDeliveryFailed       = errors.New("delivery failed")
	ErrBusy                 = errors.New("drawing session already in progress")
)
