// Package execution drives instances through the external automation engine.
package execution

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dukex/demodeck/pkg/faults"
	"github.com/dukex/demodeck/pkg/host"
	"github.com/dukex/demodeck/pkg/instances"
	"github.com/dukex/demodeck/pkg/layout"
	"github.com/dukex/demodeck/pkg/models"
	"github.com/dukex/demodeck/pkg/otelhelper"
	"github.com/dukex/demodeck/pkg/template"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	// SuccessMessage is recorded when the engine exits cleanly without a message of its own.
	SuccessMessage = "Demo completed successfully"

	outputFlushInterval = 2 * time.Second
)

// ErrAlreadyRunning is returned when execute is called on a running instance.
var ErrAlreadyRunning = errors.New("instance is already running")

// ConfigSource provides the current catalog configuration.
type ConfigSource interface {
	Load(ctx context.Context) models.CatalogConfig
}

// Orchestrator launches runs and reconciles their final status.
type Orchestrator struct {
	host    host.Host
	store   *instances.Store
	layout  layout.Layout
	config  ConfigSource
	tracer  trace.Tracer
	logger  *slog.Logger
	command []string
	now     func() time.Time
}

type Option func(*Orchestrator)

// WithCommand replaces DefaultCommand.
func WithCommand(args []string) Option {
	return func(o *Orchestrator) {
		o.command = args
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(o *Orchestrator) {
		o.tracer = tracer
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

func NewOrchestrator(h host.Host, store *instances.Store, l layout.Layout, config ConfigSource, logger *slog.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		host:    h,
		store:   store,
		layout:  l,
		config:  config,
		tracer:  otelhelper.NoopTracer(),
		logger:  logger.With("module", "execution"),
		command: DefaultCommand,
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// Execute runs the instance to a terminal state and returns the persisted final status.
// Output increments are forwarded to output when it is non-nil; Execute never closes it.
// A failed run returns both the final status and an execution error.
func (o *Orchestrator) Execute(ctx context.Context, id string, output chan<- string) (*models.InstanceStatus, error) {
	ctx, span := otelhelper.StartSpan(ctx, o.tracer, "execution.execute", attribute.String(otelhelper.InstanceIDKey, id))
	defer span.End()

	status, err := o.execute(ctx, id, output)
	if err != nil {
		otelhelper.SetError(span, err)
	}

	if status != nil {
		span.SetAttributes(attribute.String(otelhelper.RunStateKey, string(status.State)))
	}

	return status, err
}

func (o *Orchestrator) execute(ctx context.Context, id string, output chan<- string) (*models.InstanceStatus, error) {
	cfg := o.config.Load(ctx)
	if strings.TrimSpace(cfg.ExecutionSandboxImage) == "" {
		return nil, faults.Configuration("execute", "execution sandbox image is not configured")
	}

	instance, err := o.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	spec := instance.Spec
	logger := o.logger.With("instance_id", id, "demo_id", spec.DemoID)

	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String(otelhelper.DemoIDKey, spec.DemoID),
		attribute.String(otelhelper.DemoKindKey, string(spec.DemoKind)),
		attribute.String(otelhelper.RunTargetKey, spec.RunTarget),
	)

	_, err = o.store.Modify(ctx, id, func(status *models.InstanceStatus) error {
		if status.State == models.InstanceStateRunning {
			return ErrAlreadyRunning
		}

		startedAt := o.now().UTC()
		*status = models.InstanceStatus{State: models.InstanceStateRunning, StartedAt: &startedAt}

		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "Starting run", "run_target", spec.RunTarget, "image", cfg.ExecutionSandboxImage)

	// Once the instance is running it must reach a terminal state, so everything from
	// here on outlives a cancelled caller. Only output forwarding stops with ctx.
	runCtx := context.WithoutCancel(ctx)

	args, err := o.prepare(runCtx, spec, cfg)
	if err != nil {
		return o.fail(runCtx, id, "", err)
	}

	proc, err := o.host.Spawn(runCtx, host.Command{Name: args[0], Args: args[1:]})
	if err != nil {
		logger.ErrorContext(runCtx, "Failed to launch run", "error", err)

		return o.fail(runCtx, id, "", fmt.Errorf("failed to launch %s: %w", args[0], err))
	}

	buffer := o.drain(ctx, runCtx, id, proc, output)

	code, waitErr := proc.Wait()
	if waitErr != nil {
		logger.ErrorContext(runCtx, "Failed to wait for run", "error", waitErr)

		return o.fail(runCtx, id, buffer, fmt.Errorf("failed to wait for run: %w", waitErr))
	}

	return o.finish(runCtx, id, code, buffer)
}

func (o *Orchestrator) prepare(ctx context.Context, spec *models.InstanceSpec, cfg models.CatalogConfig) ([]string, error) {
	statusFile := o.layout.EngineStatusFile(spec.ID)

	// A record left by a previous run must not leak into this one.
	if _, err := host.Run(ctx, o.host, host.Command{Name: "rm", Args: []string{"-rf", statusFile}}); err != nil {
		o.logger.WarnContext(ctx, "Failed to clear previous engine status", "instance_id", spec.ID, "error", err)
	}

	playbook := spec.RunTarget

	if spec.DemoKind == models.DemoKindRole {
		data, err := launchPlaybook(spec.RunTarget)
		if err != nil {
			return nil, err
		}

		playbook = o.layout.LaunchPlaybook(spec.ID)

		err = o.host.WriteFile(ctx, playbook, data)
		if err != nil {
			return nil, fmt.Errorf("failed to write launch playbook: %w", err)
		}
	}

	variables, err := encodeVariables(Variables(spec, statusFile))
	if err != nil {
		return nil, err
	}

	args, err := template.RenderArgs(o.command, CommandData{
		InstanceID:  spec.ID,
		Target:      spec.RunTarget,
		Playbook:    playbook,
		Image:       cfg.ExecutionSandboxImage,
		CatalogRoot: o.layout.CatalogRoot(),
		InstanceDir: o.layout.InstanceDir(spec.ID),
		Variables:   variables,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render command: %w", err)
	}

	if len(args) == 0 || args[0] == "" {
		return nil, errors.New("command template is empty")
	}

	return args, nil
}

// drain accumulates the merged output, forwarding every chunk while ctx is live and
// persisting the partial buffer on runCtx at most every outputFlushInterval for pollers.
func (o *Orchestrator) drain(ctx, runCtx context.Context, id string, proc host.Process, output chan<- string) string {
	var (
		buffer    strings.Builder
		lastFlush = o.now()
		forward   = output != nil
	)

	for chunk := range proc.Output() {
		buffer.Write(chunk)

		if forward {
			select {
			case output <- string(chunk):
			case <-ctx.Done():
				forward = false
			}
		}

		if o.now().Sub(lastFlush) >= outputFlushInterval {
			lastFlush = o.now()

			_, err := o.store.UpdateStatus(runCtx, id, models.StatusUpdate{Output: models.Ptr(buffer.String())})
			if err != nil {
				o.logger.WarnContext(runCtx, "Failed to persist partial output", "instance_id", id, "error", err)
			}
		}
	}

	return buffer.String()
}

// engineStatus is the side-channel record the engine may write next to the status.
type engineStatus struct {
	Message     string         `json:"message"`
	Error       string         `json:"error"`
	CompletedAt *time.Time     `json:"completed_at"`
	Summary     map[string]any `json:"summary"`
}

func (o *Orchestrator) readEngineStatus(ctx context.Context, id string) (*engineStatus, bool) {
	data, err := o.host.ReadFile(ctx, o.layout.EngineStatusFile(id))
	if err != nil {
		if !host.IsNotExist(err) {
			o.logger.WarnContext(ctx, "Failed to read engine status", "instance_id", id, "error", err)
		}

		return nil, false
	}

	var record engineStatus

	err = json.Unmarshal(data, &record)
	if err != nil {
		o.logger.WarnContext(ctx, "Ignoring malformed engine status", "instance_id", id, "error", err)

		return nil, false
	}

	return &record, true
}

func (o *Orchestrator) finish(ctx context.Context, id string, code int, buffer string) (*models.InstanceStatus, error) {
	trace.SpanFromContext(ctx).SetAttributes(attribute.Int(otelhelper.ExitCodeKey, code))

	record, ok := o.readEngineStatus(ctx, id)
	if !ok {
		record = &engineStatus{}
	}

	completedAt := o.now().UTC()
	if record.CompletedAt != nil {
		completedAt = record.CompletedAt.UTC()
	}

	update := models.StatusUpdate{
		CompletedAt: &completedAt,
		Output:      &buffer,
		Summary:     record.Summary,
	}

	if record.Message != "" {
		update.Message = &record.Message
	}

	if code == 0 {
		update.State = models.Ptr(models.InstanceStateCompleted)
		if update.Message == nil {
			update.Message = models.Ptr(SuccessMessage)
		}
	} else {
		update.State = models.Ptr(models.InstanceStateFailed)

		message := record.Error
		if message == "" {
			message = fmt.Sprintf("Process exited with code %d", code)
		}

		update.Error = &message
	}

	status, err := o.store.UpdateStatus(ctx, id, update)
	if err != nil {
		return nil, faults.Execution("execute", "failed to persist final status", err)
	}

	o.logger.InfoContext(ctx, "Run finished", "instance_id", id, "state", status.State, "exit_code", code)

	if status.State == models.InstanceStateFailed {
		return status, faults.Execution("execute", status.Error, nil)
	}

	return status, nil
}

func (o *Orchestrator) fail(ctx context.Context, id, buffer string, cause error) (*models.InstanceStatus, error) {
	completedAt := o.now().UTC()
	message := cause.Error()

	update := models.StatusUpdate{
		State:       models.Ptr(models.InstanceStateFailed),
		CompletedAt: &completedAt,
		Error:       &message,
	}

	if buffer != "" {
		update.Output = &buffer
	}

	status, err := o.store.UpdateStatus(ctx, id, update)
	if err != nil {
		return nil, faults.Execution("execute", "failed to persist final status", errors.Join(cause, err))
	}

	return status, faults.Execution("execute", "run could not be started", cause)
}

// Reapply returns the instance to pending with a fresh start time. Output, error and
// message from the previous run are kept; its completion time and summary are not.
func (o *Orchestrator) Reapply(ctx context.Context, id string) (*models.InstanceStatus, error) {
	ctx, span := otelhelper.StartSpan(ctx, o.tracer, "execution.reapply", attribute.String(otelhelper.InstanceIDKey, id))
	defer span.End()

	if _, err := o.store.Get(ctx, id); err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	status, err := o.store.UpdateStatus(ctx, id, models.StatusUpdate{
		State:            models.Ptr(models.InstanceStatePending),
		StartedAt:        models.Ptr(o.now().UTC()),
		ClearCompletedAt: true,
		ClearSummary:     true,
	})
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	o.logger.InfoContext(ctx, "Instance reapplied", "instance_id", id)

	return status, nil
}
