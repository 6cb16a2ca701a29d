package core

import (
	"context"
	"sync/atomic"
)

// HandleState is the lifecycle state of an async submission.
type HandleState int32

const (
	HandlePending HandleState = iota
	HandleRunning
	HandleCompleted
	HandleFailed
	HandleCancelled
)

func (s HandleState) String() string {
	switch s {
	case HandlePending:
		return "pending"
	case HandleRunning:
		return "running"
	case HandleCompleted:
		return "completed"
	case HandleFailed:
		return "failed"
	case HandleCancelled:
		return "cancelled"
	}
	return "unknown"
}

// Handle is the eventual result of a RunAsync submission.
//
// Result fields are written once, before done is closed; readers only
// touch them after observing done.
type Handle struct {
	id    TaskID
	name  string
	state atomic.Int32
	done  chan struct{}

	result int
	err    error
}

func newHandle(id TaskID, name string) *Handle {
	return &Handle{id: id, name: name, done: make(chan struct{})}
}

// ID returns the submission's TaskID.
func (h *Handle) ID() TaskID { return h.id }

// Name returns the task description.
func (h *Handle) Name() string { return h.name }

// State returns the current state without blocking.
func (h *Handle) State() HandleState { return HandleState(h.state.Load()) }

// Done is closed once the handle reaches a terminal state.
func (h *Handle) Done() <-chan struct{} { return h.done }

// IsDone reports, without blocking, whether the task has finished,
// failed or been cancelled.
func (h *Handle) IsDone() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the task finishes or ctx is done. A failed task yields
// the error Execute returned; a cancelled one yields ErrCancelled. ctx only
// bounds the wait; it never stops the task.
func (h *Handle) Wait(ctx context.Context) (int, error) {
	select {
	case <-h.done:
		return h.result, h.err
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// Result is the non-blocking form of Wait; ok is false while the task is
// still pending or running.
func (h *Handle) Result() (result int, err error, ok bool) {
	if !h.IsDone() {
		return 0, nil, false
	}
	return h.result, h.err, true
}

// Cancel marks a not-yet-started task as cancelled and reports whether it
// did so. It is best effort: a worker may already have picked the task up,
// in which case Cancel returns false and the task runs to completion.
func (h *Handle) Cancel() bool {
	if !h.state.CompareAndSwap(int32(HandlePending), int32(HandleCancelled)) {
		return false
	}
	h.err = ErrCancelled
	close(h.done)
	return true
}

// start moves the handle to running; false means it was cancelled first.
func (h *Handle) start() bool {
	return h.state.CompareAndSwap(int32(HandlePending), int32(HandleRunning))
}

func (h *Handle) finish(result int, err error) {
	h.result = result
	h.err = err
	if err != nil {
		h.state.Store(int32(HandleFailed))
	} else {
		h.state.Store(int32(HandleCompleted))
	}
	close(h.done)
}
