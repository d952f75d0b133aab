// Package worker runs functions off the UI goroutine on a bounded pool and
// reports progress, results and failures back through a Poster.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	// ErrPoolClosed is returned by Submit after Shutdown.
	ErrPoolClosed = errors.New("worker: pool closed")

	// ErrQueueFull is returned by Submit when MaxQueued tasks already wait
	// for a thread.
	ErrQueueFull = errors.New("worker: queue full")
)

// ID identifies a submitted task. IDs sort by submission time.
type ID string

// NewID returns a fresh task ID.
func NewID() ID { return ID(ulid.Make().String()) }

// Short returns the last six characters of the ID (the random part), which
// is enough to tell tasks apart in a console.
func (id ID) Short() string {
	s := string(id)
	if len(s) <= 6 {
		return s
	}
	return s[len(s)-6:]
}

// ProgressFunc reports completion in percent.
type ProgressFunc func(percent int)

// Func is the unit of work. It should return promptly once ctx is done.
type Func func(ctx context.Context, progress ProgressFunc) (any, error)

// Signals are the notifications for one task. Any field may be nil.
//
// For every task Finished is called exactly once and last. Result and Error
// are mutually exclusive. Progress values are strictly increasing.
type Signals struct {
	Progress func(id ID, percent int)
	Result   func(id ID, result any)
	Error    func(id ID, err *TaskError)
	Finished func(id ID)
}

// Poster delivers callbacks to the goroutine that owns UI state.
type Poster interface {
	Post(fn func()) bool
}

// Status is the lifecycle state of a task.
type Status uint8

const (
	StatusQueued Status = iota
	StatusRunning
	StatusSucceeded
	StatusFailed
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusQueued:
		return "queued"
	case StatusRunning:
		return "running"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Done reports whether s is terminal.
func (s Status) Done() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusCancelled
}

// Config bounds the pool.
type Config struct {
	// MaxThreads caps concurrently running tasks. Zero or less means
	// runtime.NumCPU().
	MaxThreads int

	// MaxQueued caps tasks waiting for a thread. Zero means unlimited.
	MaxQueued int

	// TaskTimeout cancels a task's context after this long. Zero disables it.
	TaskTimeout time.Duration
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{MaxThreads: runtime.NumCPU()}
}

func (c Config) normalized() (Config, error) {
	if c.MaxThreads <= 0 {
		c.MaxThreads = runtime.NumCPU()
	}
	if c.MaxQueued < 0 {
		return c, fmt.Errorf("worker: negative MaxQueued %d", c.MaxQueued)
	}
	if c.TaskTimeout < 0 {
		return c, fmt.Errorf("worker: negative TaskTimeout %s", c.TaskTimeout)
	}
	return c, nil
}

// Stats is a point-in-time view of the pool counters.
type Stats struct {
	MaxThreads int    `json:"max_threads"`
	Active     int    `json:"active"`
	Queued     int    `json:"queued"`
	Submitted  uint64 `json:"submitted"`
	Succeeded  uint64 `json:"succeeded"`
	Failed     uint64 `json:"failed"`
	Cancelled  uint64 `json:"cancelled"`
}

// Finished returns the number of tasks that reached a terminal state.
func (s Stats) Finished() uint64 { return s.Succeeded + s.Failed + s.Cancelled }
