package step

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

var (
	// ErrClientUnavailable is matched when no chat client could be
	// constructed for the resolved (model, provider).
	ErrClientUnavailable = errors.New("chat client unavailable")
	// ErrInvalidCompletionCount is returned for a completion count below one.
	ErrInvalidCompletionCount = errors.New("completion count must be a positive integer")
)

// Stage names the part of a call that failed.
type Stage string

const (
	StageResolution Stage = "resolution"
	StageClient     Stage = "client"
	StageBinding    Stage = "binding"
	StageRendering  Stage = "rendering"
	StageInvocation Stage = "invocation"
	StageParsing    Stage = "parsing"
)

// Error is returned by every failing call. The underlying cause stays
// reachable through errors.Is / errors.As.
type Error struct {
	Func  string `json:"func"`  // Name of the prompt function
	Stage Stage  `json:"stage"` // Stage that failed
	Err   error  `json:"-"`     // Underlying cause
}

func (e *Error) Error() string {
	if e.Func == "" {
		return fmt.Sprintf("prompt function failed at %s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("prompt function %s failed at %s: %v", e.Func, e.Stage, e.Err)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// Is matches ErrClientUnavailable for client construction failures.
func (e *Error) Is(target error) bool {
	return target == ErrClientUnavailable && e.Stage == StageClient
}

func newError(fn string, stage Stage, err error) *Error {
	return &Error{Func: fn, Stage: stage, Err: err}
}
