package gateway

import (
	"context"
	"fmt"
	"time"
)

// Call runs fn with a deadline of d. Whichever settles first wins: fn's result
// or the timer. On timeout fn's context is cancelled and any result it still
// produces is dropped. A zero d disables the deadline.
func Call[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if d <= 0 {
		return fn(ctx)
	}

	callCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn(callCtx)
		done <- result{v: v, err: err}
	}()

	timer := time.NewTimer(d)
	defer timer.Stop()

	var zero T
	select {
	case r := <-done:
		return r.v, r.err
	case <-timer.C:
		return zero, fmt.Errorf("%w after %s", ErrTimeout, d)
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
