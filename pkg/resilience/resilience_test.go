package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTransient = errors.New("transient")

func quickRetry(attempts int) *RetryConfig {
	return &RetryConfig{
		MaxAttempts:     attempts,
		InitialDelay:    time.Millisecond,
		MaxDelay:        2 * time.Millisecond,
		BackoffFactor:   2,
		RetryableErrors: func(err error) bool { return errors.Is(err, errTransient) },
	}
}

func TestRetryWithResult(t *testing.T) {
	t.Run("succeeds after transient failures", func(t *testing.T) {
		calls := 0
		got, err := RetryWithResult(context.Background(), quickRetry(3), func() (int, error) {
			calls++
			if calls < 3 {
				return 0, errTransient
			}
			return 42, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 42, got)
		assert.Equal(t, 3, calls)
	})

	t.Run("permanent error is returned at once", func(t *testing.T) {
		permanent := errors.New("permanent")
		calls := 0
		_, err := RetryWithResult(context.Background(), quickRetry(3), func() (int, error) {
			calls++
			return 0, permanent
		})
		assert.ErrorIs(t, err, permanent)
		assert.Equal(t, 1, calls)
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		calls := 0
		_, err := RetryWithResult(context.Background(), quickRetry(2), func() (int, error) {
			calls++
			return 0, errTransient
		})
		assert.ErrorIs(t, err, errTransient)
		assert.Equal(t, 2, calls)
	})

	t.Run("cancelled context stops retrying", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := RetryWithResult(ctx, quickRetry(3), func() (int, error) {
			t.Fatal("fn must not run")
			return 0, nil
		})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestCircuitBreaker(t *testing.T) {
	var states []int
	config := DefaultCircuitBreakerConfig("test")
	config.FailureThreshold = 2
	config.OnStateChange = func(_ string, state int) { states = append(states, state) }
	cb := NewCircuitBreaker(config, nil)

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		assert.ErrorIs(t, cb.Execute(ctx, func() error { return errTransient }), errTransient)
	}

	err := cb.Execute(ctx, func() error {
		t.Fatal("open breaker must not call fn")
		return nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.True(t, IsUnavailable(err))
	assert.Equal(t, gobreaker.StateOpen, cb.State())
	assert.Equal(t, []int{int(gobreaker.StateOpen)}, states)
	assert.Equal(t, "test", cb.Name())
}

func TestCircuitBreaker_IsSuccessfulKeepsItClosed(t *testing.T) {
	notFound := errors.New("not found")
	config := DefaultCircuitBreakerConfig("lookup")
	config.FailureThreshold = 1
	config.IsSuccessful = func(err error) bool { return err == nil || errors.Is(err, notFound) }
	cb := NewCircuitBreaker(config, nil)

	for i := 0; i < 5; i++ {
		assert.ErrorIs(t, cb.Execute(context.Background(), func() error { return notFound }), notFound)
	}
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}
