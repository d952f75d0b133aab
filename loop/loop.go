// Package loop marshals work back to the goroutine that owns UI state.
//
// Background goroutines Post callbacks; the owner drains them between frames,
// so UI state is only ever touched from one goroutine.
package loop

import (
	"context"
	"sync"
)

// Loop is an unbounded FIFO mailbox of callbacks with a single consumer.
type Loop struct {
	mu     sync.Mutex
	queue  []func()
	spare  []func()
	closed bool
	wake   chan struct{}
}

// New creates an empty loop.
func New() *Loop {
	return &Loop{wake: make(chan struct{}, 1)}
}

// Post enqueues fn for the owner goroutine. It never blocks and never drops;
// it returns false only after Close.
func (l *Loop) Post(fn func()) bool {
	if fn == nil {
		return false
	}
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// Drain runs every callback queued before the call, in posting order, and
// returns how many ran. Callbacks posted while draining run on the next Drain.
func (l *Loop) Drain() int {
	l.mu.Lock()
	batch := l.queue
	l.queue = l.spare[:0]
	l.mu.Unlock()

	for i, fn := range batch {
		fn()
		batch[i] = nil
	}

	l.mu.Lock()
	l.spare = batch[:0]
	l.mu.Unlock()
	return len(batch)
}

// Pending reports how many callbacks are waiting.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// Wake is signalled (coalesced) whenever a callback is posted.
func (l *Loop) Wake() <-chan struct{} { return l.wake }

// Run drains callbacks as they arrive until ctx is done. It is meant for
// owners without a frame loop of their own.
func (l *Loop) Run(ctx context.Context) error {
	for {
		l.Drain()
		select {
		case <-ctx.Done():
			l.Drain()
			return ctx.Err()
		case <-l.wake:
		}
	}
}

// Close rejects further posts. Already queued callbacks still run on Drain.
func (l *Loop) Close() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
}
