package catalogsync

import (
	"context"
	"time"
)

// RetryPolicy retries an operation a bounded number of times with a fixed delay.
type RetryPolicy struct {
	// Retries is the number of attempts after the first one.
	Retries int
	Delay   time.Duration
	// Sleep waits between attempts. Defaults to a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultRetryPolicy tolerates the short filesystem lag right after an install.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Retries: 3, Delay: 500 * time.Millisecond}
}

// Do calls fn until it succeeds or the retries are used up, returning the last error.
func (p RetryPolicy) Do(ctx context.Context, fn func(attempt int) error) error {
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var err error

	for attempt := 0; attempt <= max(p.Retries, 0); attempt++ {
		if attempt > 0 {
			if sleepErr := sleep(ctx, p.Delay); sleepErr != nil {
				return sleepErr
			}
		}

		err = fn(attempt)
		if err == nil {
			return nil
		}
	}

	return err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
