// Package locking serializes read-modify-write cycles on a single instance status.
package locking

import (
	"context"
	"errors"
)

// ErrNotHeld is returned when releasing a lease that is no longer owned.
var ErrNotHeld = errors.New("lock not held")

// Lease is an acquired lock.
type Lease interface {
	Release(ctx context.Context) error
}

// Locker hands out exclusive leases per key. Acquire blocks until the lease is granted
// or ctx is done.
type Locker interface {
	Acquire(ctx context.Context, key string) (Lease, error)
	Close() error
}

// WithLock runs fn while holding the lease for key.
func WithLock(ctx context.Context, locker Locker, key string, fn func(ctx context.Context) error) error {
	lease, err := locker.Acquire(ctx, key)
	if err != nil {
		return err
	}

	fnErr := fn(ctx)

	releaseErr := lease.Release(context.WithoutCancel(ctx))

	return errors.Join(fnErr, releaseErr)
}
