package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
)

// TaskError describes a failed task: the type and value of what was raised
// (a returned error or a panic value) and the goroutine stack at capture time.
type TaskError struct {
	Type     string
	Value    any
	Trace    string
	Panicked bool
}

func (e *TaskError) Error() string {
	if e.Panicked {
		return fmt.Sprintf("panic: %s: %v", e.Type, e.Value)
	}
	return fmt.Sprintf("%s: %v", e.Type, e.Value)
}

// Unwrap returns the underlying error, if Value is one.
func (e *TaskError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// Cancelled reports whether the task stopped because its context ended.
func (e *TaskError) Cancelled() bool {
	return errors.Is(e, context.Canceled) || errors.Is(e, context.DeadlineExceeded)
}

func errorFromReturn(err error) *TaskError {
	var te *TaskError
	if errors.As(err, &te) {
		return te
	}
	return &TaskError{
		Type:  fmt.Sprintf("%T", err),
		Value: err,
		Trace: string(debug.Stack()),
	}
}

func errorFromPanic(v any, stack []byte) *TaskError {
	return &TaskError{
		Type:     fmt.Sprintf("%T", v),
		Value:    v,
		Trace:    string(stack),
		Panicked: true,
	}
}
