package instances

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/demodeck/pkg/models"
	"github.com/robfig/cron/v3"
)

// DefaultPollInterval is how often a watcher re-reads a status.
const DefaultPollInterval = 5 * time.Second

// Watcher polls persisted statuses for observers that did not start the run and so
// receive no pushed output.
type Watcher struct {
	store    *Store
	interval time.Duration
	logger   *slog.Logger
}

func NewWatcher(store *Store, interval time.Duration, logger *slog.Logger) *Watcher {
	if interval < time.Second {
		interval = DefaultPollInterval
	}

	return &Watcher{
		store:    store,
		interval: interval,
		logger:   logger.With("module", "watcher"),
	}
}

// Watch calls onChange with the instance each time its status differs from the last
// one seen, including once at the start. It returns when the instance reaches a
// terminal state or ctx is done.
func (w *Watcher) Watch(ctx context.Context, id string, onChange func(*models.Instance)) error {
	poller := &poller{store: w.store, id: id, onChange: onChange}

	done, err := poller.poll(ctx)
	if err != nil {
		return err
	}

	if done {
		return nil
	}

	finished := make(chan error, 1)

	c := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))

	c.Schedule(cron.Every(w.interval), cron.FuncJob(func() {
		done, err := poller.poll(ctx)
		if err != nil {
			w.logger.WarnContext(ctx, "Status poll failed", "instance_id", id, "error", err)

			return
		}

		if done {
			select {
			case finished <- nil:
			default:
			}
		}
	}))

	c.Start()
	defer c.Stop()

	select {
	case err := <-finished:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

type poller struct {
	store    *Store
	id       string
	onChange func(*models.Instance)
	last     string
}

func (p *poller) poll(ctx context.Context) (bool, error) {
	instance, err := p.store.Get(ctx, p.id)
	if err != nil {
		return false, err
	}

	status := instance.Status

	fingerprint := fmt.Sprintf("%s|%s|%s|%d|%v", status.State, status.Message, status.Error, len(status.Output), status.CompletedAt)
	if fingerprint != p.last {
		p.last = fingerprint
		p.onChange(instance)
	}

	return status.State.Terminal(), nil
}
