package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// TimeoutError reports an operation that outlived its deadline. It matches
// context.DeadlineExceeded under errors.Is.
type TimeoutError struct {
	Op    string
	Limit time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: timed out after %v", e.Op, e.Limit)
}

func (e *TimeoutError) Is(target error) bool { return target == context.DeadlineExceeded }

// ErrPanicked wraps a panic recovered from a bounded operation.
var ErrPanicked = errors.New("operation panicked")

// WithTimeout bounds op to limit. A slow op is abandoned, not awaited: its
// context is cancelled and the caller gets a *TimeoutError. A panic inside
// op comes back as an error wrapping ErrPanicked. A non-positive limit only
// adds panic recovery.
func WithTimeout(ctx context.Context, limit time.Duration, op string, fn func(ctx context.Context) error) error {
	if limit <= 0 {
		return guarded(ctx, op, fn)
	}
	bounded, cancel := context.WithTimeout(ctx, limit)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- guarded(bounded, op, fn) }()

	select {
	case err := <-done:
		return err
	case <-bounded.Done():
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		return &TimeoutError{Op: op, Limit: limit}
	}
}

func guarded(ctx context.Context, op string, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: %w: %v", op, ErrPanicked, r)
		}
	}()
	return fn(ctx)
}
