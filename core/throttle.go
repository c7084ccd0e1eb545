package core

import (
	"context"
	"sync/atomic"
)

// Throttle runs at most one call of fn at a time and drops the others.
type Throttle struct {
	busy atomic.Bool
	fn   func(ctx context.Context) error
}

func NewThrottle(fn func(ctx context.Context) error) *Throttle {
	return &Throttle{fn: fn}
}

// Do runs fn, or returns ErrThrottled at once if a call is still running.
func (t *Throttle) Do(ctx context.Context) error {
	if !t.busy.CompareAndSwap(false, true) {
		return ErrThrottled
	}
	defer t.busy.Store(false)
	return t.fn(ctx)
}

// Busy reports whether a call is running.
func (t *Throttle) Busy() bool { return t.busy.Load() }
