package pool

import (
	"context"
	"fmt"
	"sync"
)

// Task is the future side of one submitted job. It settles exactly once,
// with either a value or an error, and any number of goroutines may wait
// on it.
type Task[T any] struct {
	done chan struct{}
	once sync.Once
	val  T
	err  error
}

func newTask[T any]() *Task[T] {
	return &Task[T]{done: make(chan struct{})}
}

func (t *Task[T]) settle(val T, err error) {
	t.once.Do(func() {
		t.val = val
		t.err = err
		close(t.done)
	})
}

// Done returns a channel closed once the task has settled.
func (t *Task[T]) Done() <-chan struct{} { return t.done }

// Result blocks until the task settles and returns its outcome.
func (t *Task[T]) Result() (T, error) {
	<-t.done
	return t.val, t.err
}

// ResultContext is Result with a context bound on the wait. The task
// itself cannot be cancelled; only the wait is.
func (t *Task[T]) ResultContext(ctx context.Context) (T, error) {
	select {
	case <-t.done:
		return t.val, t.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Submit wraps fn in a single-shot task, queues it on p and returns its
// future immediately. A panic inside fn is recovered into the task's
// error; it never takes down the worker.
func Submit[T any](p *Pool, fn func() (T, error)) *Task[T] {
	t := newTask[T]()

	run := func() {
		defer func() {
			if r := recover(); r != nil {
				var zero T
				t.settle(zero, fmt.Errorf("pool: task panicked: %v", r))
			}
		}()
		t.settle(fn())
	}

	if err := p.enqueue(run); err != nil {
		var zero T
		t.settle(zero, err)
	}
	return t
}
