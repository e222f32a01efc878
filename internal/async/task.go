// Package async provides a small generic runner that executes one
// asynchronous operation at a time and exposes its lifecycle as an explicit
// state machine: idle -> pending -> success | error.
package async

import (
	"context"
	"errors"
	"sync"
)

// State is the lifecycle state of a Task
type State int

const (
	StateIdle State = iota
	StatePending
	StateSuccess
	StateError
)

// String returns the lowercase name of the state
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePending:
		return "pending"
	case StateSuccess:
		return "success"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// ErrBusy is returned by Run when an operation is already in flight
var ErrBusy = errors.New("task already running")

// Task tracks the loading/error/result state of an asynchronous operation.
// At most one operation runs at a time; a second Run while pending returns
// ErrBusy instead of racing the first.
type Task[T any] struct {
	mu     sync.Mutex
	state  State
	result T
	err    error
}

// NewTask creates a task in the idle state
func NewTask[T any]() *Task[T] {
	return &Task[T]{state: StateIdle}
}

// Run executes fn, transitioning idle|success|error -> pending -> success|error.
// The fn result and error are recorded and also returned to the caller.
func (t *Task[T]) Run(ctx context.Context, fn func(ctx context.Context) (T, error)) (T, error) {
	t.mu.Lock()
	if t.state == StatePending {
		t.mu.Unlock()
		var zero T
		return zero, ErrBusy
	}
	t.state = StatePending
	t.mu.Unlock()

	result, err := fn(ctx)

	t.mu.Lock()
	defer t.mu.Unlock()
	if err != nil {
		t.state = StateError
		t.err = err
		var zero T
		t.result = zero
		return zero, err
	}
	t.state = StateSuccess
	t.result = result
	t.err = nil
	return result, nil
}

// State returns the current lifecycle state
func (t *Task[T]) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Result returns the result of the last successful run
func (t *Task[T]) Result() T {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.result
}

// Err returns the error of the last failed run, or nil
func (t *Task[T]) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Reset returns the task to idle, clearing any recorded result or error.
// Reset is a no-op while an operation is pending.
func (t *Task[T]) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == StatePending {
		return
	}
	var zero T
	t.state = StateIdle
	t.result = zero
	t.err = nil
}
