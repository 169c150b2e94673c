package model

import (
	"errors"
	"fmt"
)

// Error kinds of the publish pipeline.
// Every stage failure wraps exactly one of them, so callers can branch with
// errors.Is without inspecting messages.
var (
	// ErrSetup means the working directory is unusable.
	ErrSetup = errors.New("setup error")

	// ErrFetch means no forecast data was retrieved.
	ErrFetch = errors.New("fetch error")

	// ErrRender means no report, or a malformed report, was produced.
	ErrRender = errors.New("render error")

	// ErrVerify means zero or several candidate reports were found.
	ErrVerify = errors.New("verify error")

	// ErrPublish means the hosting step failed. It never blocks the swap.
	ErrPublish = errors.New("publish error")
)

// StageError records which stage failed and with which kind of error.
type StageError struct {
	// Stage is the stage that was running when the failure happened.
	Stage Stage

	// Kind is one of the Err* sentinels above.
	Kind error

	// Err is the underlying cause.
	Err error
}

// NewStageError builds a StageError.
func NewStageError(stage Stage, kind, err error) *StageError {
	return &StageError{Stage: stage, Kind: kind, Err: err}
}

// Error implements error.
func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Stage, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *StageError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// KindName returns a short label for an error kind, used in metrics and the
// history database. Unknown errors map to "unknown".
func KindName(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrSetup):
		return "setup"
	case errors.Is(err, ErrFetch):
		return "fetch"
	case errors.Is(err, ErrRender):
		return "render"
	case errors.Is(err, ErrVerify):
		return "verify"
	case errors.Is(err, ErrPublish):
		return "publish"
	default:
		return "unknown"
	}
}
