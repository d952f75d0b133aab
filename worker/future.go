package worker

import (
	"context"
	"sync"
)

// Future is the handle to a submitted task.
type Future struct {
	id     ID
	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.Mutex
	status Status
	result any
	err    *TaskError
}

func newFuture(id ID, cancel context.CancelFunc) *Future {
	return &Future{id: id, cancel: cancel, done: make(chan struct{})}
}

// ID returns the task ID.
func (f *Future) ID() ID { return f.id }

// Done is closed once the task reaches a terminal state.
func (f *Future) Done() <-chan struct{} { return f.done }

// Status returns the current lifecycle state.
func (f *Future) Status() Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

// Cancel asks the task to stop. A queued task never starts; a running task
// sees its context cancelled. Cancel after completion is a no-op.
func (f *Future) Cancel() { f.cancel() }

// Await blocks until the task finishes or ctx is done. A failed task returns
// a *TaskError.
func (f *Future) Await(ctx context.Context) (any, error) {
	select {
	case <-f.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *Future) setRunning() {
	f.mu.Lock()
	if f.status == StatusQueued {
		f.status = StatusRunning
	}
	f.mu.Unlock()
}

func statusOf(err *TaskError) Status {
	switch {
	case err == nil:
		return StatusSucceeded
	case err.Cancelled():
		return StatusCancelled
	default:
		return StatusFailed
	}
}

func (f *Future) resolve(result any, err *TaskError) {
	f.mu.Lock()
	f.status = statusOf(err)
	if err != nil {
		f.err = err
	} else {
		f.result = result
	}
	f.mu.Unlock()

	close(f.done)
	f.cancel()
}
