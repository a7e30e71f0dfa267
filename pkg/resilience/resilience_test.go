package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBackend = errors.New("backend down")

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{MaxAttempts: attempts, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func TestRetrySucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), "save", fastRetry(3), func() error {
		calls++
		if calls < 3 {
			return errBackend
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryGivesUp(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), "save", fastRetry(2), func() error {
		calls++
		return errBackend
	})
	assert.ErrorIs(t, err, errBackend)
	assert.Equal(t, 2, calls)
}

func TestRetryStopsOnPermanent(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), "publish", fastRetry(5), func() error {
		calls++
		return Permanent(errBackend)
	})
	assert.ErrorIs(t, err, errBackend)
	assert.Equal(t, 1, calls)
	assert.Nil(t, Permanent(nil))
}

func TestRetryHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Retry(ctx, "connect", fastRetry(5), func() error { return errBackend })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestComputeDelayIsCapped(t *testing.T) {
	cfg := withRetryDefaults(RetryConfig{InitialDelay: time.Second, MaxDelay: 3 * time.Second})
	assert.LessOrEqual(t, computeDelay(10, cfg), 3*time.Second)
	assert.Greater(t, computeDelay(1, cfg), time.Duration(0))
}

func TestCircuitBreakerLifecycle(t *testing.T) {
	now := time.Unix(0, 0)
	var transitions []State
	cb := NewCircuitBreaker("cache", CircuitBreakerConfig{
		FailureThreshold: 2,
		ResetTimeout:     time.Minute,
		OnStateChange:    func(_ string, _, to State) { transitions = append(transitions, to) },
	})
	cb.now = func() time.Time { return now }

	assert.ErrorIs(t, cb.Execute(func() error { return errBackend }), errBackend)
	assert.Equal(t, StateClosed, cb.State())
	assert.ErrorIs(t, cb.Execute(func() error { return errBackend }), errBackend)
	assert.Equal(t, StateOpen, cb.State())

	called := false
	err := cb.Execute(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
	assert.False(t, cb.Allow())

	now = now.Add(time.Minute)
	assert.True(t, cb.Allow())
	require.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, []State{StateOpen, StateHalfOpen, StateClosed}, transitions)
}

func TestCircuitBreakerFailedProbeReopens(t *testing.T) {
	now := time.Unix(0, 0)
	cb := NewCircuitBreaker("cache", CircuitBreakerConfig{FailureThreshold: 1, ResetTimeout: time.Second})
	cb.now = func() time.Time { return now }

	_ = cb.Execute(func() error { return errBackend })
	now = now.Add(time.Second)
	_ = cb.Execute(func() error { return errBackend })
	assert.Equal(t, StateOpen, cb.State())

	cb.Reset()
	assert.Equal(t, StateClosed, cb.State())
}

func TestWithTimeout(t *testing.T) {
	err := WithTimeout(context.Background(), 10*time.Millisecond, "slow", func(ctx context.Context) error {
		<-ctx.Done()
		time.Sleep(5 * time.Millisecond)
		return nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	var timeout *TimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.Equal(t, "slow", timeout.Op)
	assert.Equal(t, 10*time.Millisecond, timeout.Limit)

	err = WithTimeout(context.Background(), time.Second, "fast", func(context.Context) error { return errBackend })
	assert.ErrorIs(t, err, errBackend)

	err = WithTimeout(context.Background(), 0, "unbounded", func(context.Context) error { return nil })
	assert.NoError(t, err)
}

func TestWithTimeoutParentCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := WithTimeout(ctx, time.Second, "save", func(ctx context.Context) error {
		<-ctx.Done()
		time.Sleep(5 * time.Millisecond)
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	var timeout *TimeoutError
	assert.False(t, errors.As(err, &timeout))
}

func TestWithTimeoutRecoversPanic(t *testing.T) {
	for _, limit := range []time.Duration{0, time.Second} {
		err := WithTimeout(context.Background(), limit, "save", func(context.Context) error {
			panic("disk on fire")
		})
		assert.ErrorIs(t, err, ErrPanicked)
		assert.Contains(t, err.Error(), "disk on fire")
	}
}
