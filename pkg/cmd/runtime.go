// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/demodeck/pkg/catalog"
	"github.com/dukex/demodeck/pkg/catalogsync"
	"github.com/dukex/demodeck/pkg/config"
	"github.com/dukex/demodeck/pkg/eventbus"
	"github.com/dukex/demodeck/pkg/execution"
	"github.com/dukex/demodeck/pkg/host"
	"github.com/dukex/demodeck/pkg/instances"
	"github.com/dukex/demodeck/pkg/layout"
	"github.com/dukex/demodeck/pkg/locking"
	"github.com/dukex/demodeck/pkg/otelhelper"
	"github.com/dukex/demodeck/pkg/persistence"
	"github.com/dukex/demodeck/pkg/services"
	"go.opentelemetry.io/otel/trace"
)

// Options selects the backends a process runs with.
type Options struct {
	ServiceName  string
	BaseDir      string
	DatabaseURL  string
	EventBus     string
	KafkaBrokers string
	LockerURL    string
	OTelEnabled  bool
}

// Runtime is the wired object graph shared by the CLI and the API server.
type Runtime struct {
	Host         host.Host
	Layout       layout.Layout
	Config       *config.Store
	Persistence  persistence.Persistence
	EventBus     eventbus.EventBus
	Locker       locking.Locker
	Store        *instances.Store
	Loader       *catalog.Loader
	Demos        *services.Demos
	Orchestrator *execution.Orchestrator
	Sync         *catalogsync.Controller
	Tracer       trace.Tracer

	logger  *slog.Logger
	closers []func(ctx context.Context) error
}

// NewRuntime wires every component on the local host.
func NewRuntime(ctx context.Context, opts Options, logger *slog.Logger) (*Runtime, error) {
	return NewRuntimeWithHost(ctx, host.NewLocal(), opts, logger)
}

func NewRuntimeWithHost(ctx context.Context, h host.Host, opts Options, logger *slog.Logger) (*Runtime, error) {
	r := &Runtime{
		Host:   h,
		Layout: layout.New(opts.BaseDir),
		Tracer: otelhelper.NoopTracer(),
		logger: logger,
	}

	err := r.init(ctx, opts)
	if err != nil {
		closeErr := r.Close(ctx)

		return nil, errors.Join(err, closeErr)
	}

	return r, nil
}

func (r *Runtime) init(ctx context.Context, opts Options) error {
	if opts.OTelEnabled {
		tracer, shutdown, err := otelhelper.NewTracer(ctx, opts.ServiceName)
		if err != nil {
			return fmt.Errorf("failed to initialize tracer: %w", err)
		}

		r.Tracer = tracer
		r.closers = append(r.closers, shutdown)
	}

	p, err := NewPersistence(ctx, r.logger, r.Host, opts.DatabaseURL, r.Layout.BaseDir)
	if err != nil {
		return fmt.Errorf("failed to create persistence: %w", err)
	}

	r.Persistence = p
	r.closers = append(r.closers, p.Close)

	bus, err := NewEventBus(opts.EventBus, opts.KafkaBrokers, opts.ServiceName, r.logger)
	if err != nil {
		return err
	}

	r.EventBus = bus
	r.closers = append(r.closers, func(context.Context) error { return bus.Close() })

	locker, err := NewLocker(ctx, opts.LockerURL, r.logger)
	if err != nil {
		return fmt.Errorf("failed to create locker: %w", err)
	}

	r.Locker = locker
	r.closers = append(r.closers, func(context.Context) error { return locker.Close() })

	r.Config = config.NewStore(r.Host, r.Layout, r.logger)
	r.Store = instances.NewStore(p, r.Layout, r.logger,
		instances.WithLocker(locker),
		instances.WithPublisher(bus),
	)
	r.Loader = catalog.NewLoader(r.Host, r.logger)
	r.Demos = services.NewDemos(r.Loader, r.Config, r.Layout, r.Store, p, r.logger)
	r.Orchestrator = execution.NewOrchestrator(r.Host, r.Store, r.Layout, r.Config, r.logger,
		execution.WithTracer(r.Tracer),
	)
	r.Sync = catalogsync.NewController(r.Host, r.Layout, r.Config, r.logger,
		catalogsync.WithPublisher(bus),
		catalogsync.WithTracer(r.Tracer),
	)

	return nil
}

// Close releases every backend in reverse order of creation.
func (r *Runtime) Close(ctx context.Context) error {
	var errs []error

	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}

	r.closers = nil

	return errors.Join(errs...)
}

// Logger is the logger every component was built with.
func (r *Runtime) Logger() *slog.Logger {
	return r.logger
}
