package locking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_SerializesSameKey(t *testing.T) {
	locker := NewMemory()
	ctx := context.Background()

	var (
		mu      sync.Mutex
		active  int
		maxSeen int
		wg      sync.WaitGroup
	)

	for range 10 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			err := WithLock(ctx, locker, "web-1", func(context.Context) error {
				mu.Lock()
				active++
				maxSeen = max(maxSeen, active)
				mu.Unlock()

				time.Sleep(time.Millisecond)

				mu.Lock()
				active--
				mu.Unlock()

				return nil
			})
			assert.NoError(t, err)
		}()
	}

	wg.Wait()
	assert.Equal(t, 1, maxSeen)
	assert.Empty(t, locker.slots)
}

func TestMemory_IndependentKeys(t *testing.T) {
	locker := NewMemory()
	ctx := context.Background()

	a, err := locker.Acquire(ctx, "a")
	require.NoError(t, err)

	b, err := locker.Acquire(ctx, "b")
	require.NoError(t, err)

	require.NoError(t, a.Release(ctx))
	require.NoError(t, b.Release(ctx))
	assert.ErrorIs(t, a.Release(ctx), ErrNotHeld)
}

func TestMemory_AcquireHonoursContext(t *testing.T) {
	locker := NewMemory()

	held, err := locker.Acquire(context.Background(), "k")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = locker.Acquire(ctx, "k")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, held.Release(context.Background()))
	assert.Empty(t, locker.slots)
}

func TestWithLock_ReturnsCallbackError(t *testing.T) {
	boom := errors.New("boom")

	err := WithLock(context.Background(), NewMemory(), "k", func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
}
