package core

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrRunnerClosed is returned for any submission made after Shutdown.
	ErrRunnerClosed = errors.New("runner is closed")

	// ErrQueueFull is returned by RunAsync when the pool queue is bounded and full.
	ErrQueueFull = errors.New("runner queue is full")

	// ErrCancelled is the error carried by a handle cancelled before it started.
	ErrCancelled = errors.New("task cancelled before start")

	// ErrShutdownTimeout is returned by Shutdown when accepted work did not
	// drain within the configured grace period.
	ErrShutdownTimeout = errors.New("shutdown grace period exceeded")
)

// HookFailure reports a before/after hook that returned an error or panicked.
// It is advisory: the runner hands it to the HookFailureHandler and never
// returns it through the task's result.
type HookFailure struct {
	Hook string // "before" or "after"
	Task string
	Err  error
}

func (f *HookFailure) Error() string {
	return fmt.Sprintf("%s hook of %s failed: %v", f.Hook, f.Task, f.Err)
}

func (f *HookFailure) Unwrap() error { return f.Err }

// PanicError is returned in place of a result when Execute panics.
type PanicError struct {
	Task  string
	Value any
	cause error
}

func newPanicError(task string, value any) *PanicError {
	return &PanicError{
		Task:  task,
		Value: value,
		cause: errors.Errorf("task %s panicked: %v", task, value),
	}
}

func (e *PanicError) Error() string { return e.cause.Error() }

// Format prints the captured stack with %+v.
func (e *PanicError) Format(s fmt.State, verb rune) {
	if f, ok := e.cause.(fmt.Formatter); ok {
		f.Format(s, verb)
		return
	}
	fmt.Fprint(s, e.Error())
}

// IsRejected reports whether err means the runner refused a submission.
func IsRejected(err error) bool {
	return errors.Is(err, ErrRunnerClosed) || errors.Is(err, ErrQueueFull)
}
