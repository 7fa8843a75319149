package catalogsync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryPolicy_Do(t *testing.T) {
	var delays []time.Duration

	policy := RetryPolicy{Retries: 3, Delay: 200 * time.Millisecond, Sleep: func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)

		return nil
	}}

	calls := 0
	err := policy.Do(t.Context(), func(int) error {
		calls++
		if calls < 3 {
			return errors.New("not yet")
		}

		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{200 * time.Millisecond, 200 * time.Millisecond}, delays)
}

func TestRetryPolicy_ReturnsLastError(t *testing.T) {
	policy := RetryPolicy{Retries: 2, Sleep: func(context.Context, time.Duration) error { return nil }}

	var attempts []int

	err := policy.Do(t.Context(), func(attempt int) error {
		attempts = append(attempts, attempt)

		return errors.New("attempt failed")
	})
	require.EqualError(t, err, "attempt failed")
	assert.Equal(t, []int{0, 1, 2}, attempts)
}

func TestRetryPolicy_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	policy := RetryPolicy{Retries: 5, Delay: time.Hour}

	calls := 0
	err := policy.Do(ctx, func(int) error {
		calls++

		return errors.New("fail")
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestDefaultRetryPolicy(t *testing.T) {
	policy := DefaultRetryPolicy()
	assert.Equal(t, 3, policy.Retries)
	assert.Positive(t, policy.Delay)
}
