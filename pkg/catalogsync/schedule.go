package catalogsync

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
)

// RunEvery syncs immediately and then on every interval until ctx is done. Failed
// syncs are logged and the schedule carries on; a sync still running when the next
// one is due causes that one to be skipped.
func (c *Controller) RunEvery(ctx context.Context, interval time.Duration, onResult func(*Result, error)) error {
	run := func() {
		result, err := c.Sync(ctx)
		if onResult != nil {
			onResult(result, err)
		}
	}

	run()

	scheduler := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))
	scheduler.Schedule(cron.Every(interval), cron.FuncJob(run))

	c.logger.InfoContext(ctx, "Scheduled catalog sync", "interval", interval.String())

	scheduler.Start()

	<-ctx.Done()

	<-scheduler.Stop().Done()

	return nil
}
