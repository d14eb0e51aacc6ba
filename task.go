package bridge

import (
	"context"
	"fmt"
	"net/http"
)

// Task is the result of work running in its own goroutine.
type Task[T any] struct {
	done chan struct{}
	val  *T
	err  error
}

// Go runs fn in a new goroutine. A panic in fn completes the task with an
// internal fault.
func Go[T any](ctx context.Context, fn func(ctx context.Context) (*T, error)) *Task[T] {
	t := &Task[T]{done: make(chan struct{})}
	go func() {
		defer close(t.done)
		defer func() {
			if rec := recover(); rec != nil {
				t.val, t.err = nil, panicFault(rec)
			}
		}()
		t.val, t.err = fn(ctx)
	}()
	return t
}

// Completed returns a task that has already finished.
func Completed[T any](val *T, err error) *Task[T] {
	t := &Task[T]{done: make(chan struct{}), val: val, err: err}
	close(t.done)
	return t
}

// Done is closed when the task finishes.
func (t *Task[T]) Done() <-chan struct{} { return t.done }

// Await blocks until the task finishes or ctx ends. A task outliving its
// context yields a cancellation fault; the goroutine keeps running until fn
// returns.
func (t *Task[T]) Await(ctx context.Context) (*T, error) {
	select {
	case <-t.done:
		return t.val, t.err
	default:
	}
	select {
	case <-t.done:
		return t.val, t.err
	case <-ctx.Done():
		return nil, &Fault{
			Kind:    KindCanceled,
			Status:  http.StatusServiceUnavailable,
			Message: "request canceled",
			Err:     fmt.Errorf("%w: %w", ErrCanceled, ctx.Err()),
		}
	}
}
