package app

import (
	"context"
	"fmt"
	"time"

	"vusen/worker"
)

// SimulatedJob stands in for long-running work: it sleeps Steps times and
// reports progress after each step.
type SimulatedJob struct {
	Steps     int
	StepDelay time.Duration

	// FailAt makes the job panic at that step. Negative disables it.
	FailAt int
}

// DefaultJob is five one-second steps without failure.
func DefaultJob() SimulatedJob {
	return SimulatedJob{Steps: 5, StepDelay: time.Second, FailAt: -1}
}

// FailureError is the panic value of a job that reaches FailAt.
type FailureError struct {
	Step int
}

func (e FailureError) Error() string {
	return fmt.Sprintf("simulated failure at step %d", e.Step)
}

// Run is a worker.Func.
func (j SimulatedJob) Run(ctx context.Context, progress worker.ProgressFunc) (any, error) {
	steps := max(j.Steps, 1)
	for n := 0; n < steps; n++ {
		if j.FailAt >= 0 && n == j.FailAt {
			panic(FailureError{Step: n})
		}
		if err := sleep(ctx, j.StepDelay); err != nil {
			return nil, err
		}
		progress(percentAt(n, steps))
	}
	return "Done.", nil
}

func percentAt(n, steps int) int {
	if steps <= 1 {
		return 100
	}
	return n * 100 / (steps - 1)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
