// Package autosave implements a debounced auto-save controller: it watches a
// mutable document snapshot, coalesces rapid edits into a single delayed
// persist, and offers a manual save-now escape hatch.
package autosave

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"time"

	"github.com/wisdomhub/wisdom-hub/internal/async"
	"go.uber.org/zap"
)

const (
	// DefaultDelay is the debounce delay before a changed snapshot is persisted
	DefaultDelay = 3 * time.Second
	// persistTimeout bounds a timer-initiated persist call
	persistTimeout = 15 * time.Second
)

// PersistFunc persists a snapshot
type PersistFunc[T any] func(ctx context.Context, snapshot T) error

// Option configures a Controller
type Option[T any] func(*Controller[T])

// WithDelay overrides the debounce delay
func WithDelay[T any](d time.Duration) Option[T] {
	return func(c *Controller[T]) {
		if d > 0 {
			c.delay = d
		}
	}
}

// WithEnabled toggles automatic saving. When disabled, snapshot changes are
// tracked but never persisted, and SaveNow is a no-op.
func WithEnabled[T any](enabled bool) Option[T] {
	return func(c *Controller[T]) { c.enabled = enabled }
}

// WithEqual overrides the snapshot comparison. The default is
// reflect.DeepEqual.
func WithEqual[T any](eq func(a, b T) bool) Option[T] {
	return func(c *Controller[T]) { c.equal = eq }
}

// WithLogger attaches a logger for persist failures
func WithLogger[T any](logger *zap.Logger) Option[T] {
	return func(c *Controller[T]) { c.logger = logger }
}

// WithOnSaved registers a callback invoked after every successful persist
func WithOnSaved[T any](fn func(snapshot T)) Option[T] {
	return func(c *Controller[T]) { c.onSaved = fn }
}

// Controller debounces persistence of a snapshot. The snapshot supplied at
// construction is the baseline: it never triggers a save on its own, only a
// later Update that differs from the baseline does. At most one persist is in
// flight at a time; a debounce tick firing mid-save is dropped (the next
// change reschedules).
type Controller[T any] struct {
	persist PersistFunc[T]
	delay   time.Duration
	enabled bool
	equal   func(a, b T) bool
	logger  *zap.Logger
	onSaved func(snapshot T)

	task *async.Task[time.Time]

	mu        sync.Mutex
	current   T
	baseline  T
	timer     *time.Timer
	pending   bool
	closed    bool
	lastSaved time.Time
}

// NewController creates a controller with initial as the baseline snapshot
func NewController[T any](initial T, persist PersistFunc[T], opts ...Option[T]) *Controller[T] {
	c := &Controller[T]{
		persist:  persist,
		delay:    DefaultDelay,
		enabled:  true,
		equal:    func(a, b T) bool { return reflect.DeepEqual(a, b) },
		logger:   zap.NewNop(),
		task:     async.NewTask[time.Time](),
		current:  initial,
		baseline: initial,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Update records a new snapshot. An unchanged snapshot is a no-op. A changed
// snapshot replaces any pending timer, so only the most recent snapshot is
// persisted when the delay elapses.
func (c *Controller[T]) Update(snapshot T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	c.current = snapshot

	if c.equal(snapshot, c.baseline) {
		return
	}

	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
		c.pending = false
	}

	if !c.enabled {
		return
	}

	c.pending = true
	c.timer = time.AfterFunc(c.delay, c.fire)
}

// fire runs on timer expiry
func (c *Controller[T]) fire() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.pending = false
	c.timer = nil
	snapshot := c.current
	if c.equal(snapshot, c.baseline) {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	// Errors are logged inside doSave; an auto-save tick never propagates them
	_ = c.doSave(ctx, snapshot)
}

// SaveNow persists the current snapshot immediately, bypassing the timer.
// It is a no-op while a save is already in flight or when auto-save is
// disabled. Unlike the timer path, the persist error is returned to the
// caller so it can block navigation or surface feedback.
func (c *Controller[T]) SaveNow(ctx context.Context) error {
	c.mu.Lock()
	if c.closed || !c.enabled || c.task.State() == async.StatePending {
		c.mu.Unlock()
		return nil
	}
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
		c.pending = false
	}
	snapshot := c.current
	c.mu.Unlock()

	return c.doSave(ctx, snapshot)
}

// doSave funnels every persist through the async task so that at most one is
// in flight; a concurrent attempt surfaces as ErrBusy and is dropped.
func (c *Controller[T]) doSave(ctx context.Context, snapshot T) error {
	savedAt, err := c.task.Run(ctx, func(ctx context.Context) (time.Time, error) {
		if err := c.persist(ctx, snapshot); err != nil {
			return time.Time{}, err
		}
		return time.Now(), nil
	})
	if err != nil {
		if errors.Is(err, async.ErrBusy) {
			return nil
		}
		c.logger.Error("autosave_persist_failed", zap.Error(err))
		return err
	}

	c.mu.Lock()
	c.baseline = snapshot
	c.lastSaved = savedAt
	c.mu.Unlock()

	if c.onSaved != nil {
		c.onSaved(snapshot)
	}
	return nil
}

// Saving reports whether a persist is currently in flight
func (c *Controller[T]) Saving() bool {
	return c.task.State() == async.StatePending
}

// Pending reports whether a debounce timer is armed
func (c *Controller[T]) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// LastSaved returns the time of the last successful persist, if any
func (c *Controller[T]) LastSaved() (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSaved, !c.lastSaved.IsZero()
}

// Dirty reports whether the current snapshot differs from the last persisted one
func (c *Controller[T]) Dirty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.equal(c.current, c.baseline)
}

// Close cancels any pending timer. The owning session must call Close when it
// ends so nothing persists after the context is gone.
func (c *Controller[T]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.pending = false
}
