// Package instances keeps the spec and status records of demo runs.
package instances

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sort"
	"time"

	"github.com/dukex/demodeck/pkg/eventbus"
	"github.com/dukex/demodeck/pkg/events"
	"github.com/dukex/demodeck/pkg/faults"
	"github.com/dukex/demodeck/pkg/layout"
	"github.com/dukex/demodeck/pkg/locking"
	"github.com/dukex/demodeck/pkg/models"
	"github.com/dukex/demodeck/pkg/persistence"
	"github.com/google/uuid"
)

// Store creates and updates instances on top of a persistence backend.
type Store struct {
	persistence persistence.Persistence
	layout      layout.Layout
	locker      locking.Locker
	publisher   eventbus.EventPublisher
	logger      *slog.Logger
	now         func() time.Time
	newSuffix   func() string
}

type Option func(*Store)

// WithLocker serializes status updates through locker instead of a process-local lock.
func WithLocker(locker locking.Locker) Option {
	return func(s *Store) {
		s.locker = locker
	}
}

// WithPublisher publishes lifecycle events.
func WithPublisher(publisher eventbus.EventPublisher) Option {
	return func(s *Store) {
		s.publisher = publisher
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

func NewStore(p persistence.Persistence, l layout.Layout, logger *slog.Logger, opts ...Option) *Store {
	s := &Store{
		persistence: p,
		layout:      l,
		locker:      locking.NewMemory(),
		logger:      logger.With("module", "instances"),
		now:         time.Now,
		newSuffix:   randomSuffix,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func randomSuffix() string {
	return uuid.NewString()[:8]
}

// NewID derives an instance id from a demo id.
func (s *Store) NewID(demoID string) string {
	return demoID + "-" + s.newSuffix()
}

// Create snapshots def and values into a new spec and writes it, followed by a pending
// status.
func (s *Store) Create(ctx context.Context, def models.DemoDefinition, values map[string]any, cfg models.CatalogConfig) (*models.Instance, error) {
	if cfg.CollectionName == "" {
		return nil, faults.Configuration("create instance", "collection name is not configured, sync the catalog first")
	}

	coll := s.layout.CollectionFor(cfg)
	now := s.now().UTC()

	parameters := make(map[string]any, len(values))
	maps.Copy(parameters, values)

	spec := &models.InstanceSpec{
		ID:                  s.NewID(def.ID),
		DemoID:              def.ID,
		DemoName:            def.Name,
		DemoKind:            def.Kind,
		DemoPath:            def.Path,
		RunTarget:           coll.RunTarget(def.Kind, def.Path),
		Parameters:          parameters,
		VariableDefinitions: slices.Clone(def.Parameters),
		CreatedAt:           now,
	}

	if spec.VariableDefinitions == nil {
		spec.VariableDefinitions = []models.Parameter{}
	}

	err := s.persistence.SaveSpec(ctx, spec)
	if err != nil {
		return nil, fmt.Errorf("failed to create instance: %w", err)
	}

	status := &models.InstanceStatus{State: models.InstanceStatePending, StartedAt: &now}

	err = s.persistence.SaveStatus(ctx, spec.ID, status)
	if err != nil {
		return nil, fmt.Errorf("failed to create instance: %w", err)
	}

	s.logger.InfoContext(ctx, "Instance created", "instance_id", spec.ID, "demo_id", def.ID, "run_target", spec.RunTarget)

	s.publish(ctx, spec.ID, &events.InstanceCreated{
		BaseEvent:  events.NewBaseEvent(events.InstanceCreatedEvent, spec.ID),
		DemoID:     spec.DemoID,
		DemoName:   spec.DemoName,
		DemoKind:   spec.DemoKind,
		RunTarget:  spec.RunTarget,
		Parameters: spec.Parameters,
	})

	return &models.Instance{ID: spec.ID, Spec: spec, Status: status}, nil
}

// Get reads both units. Failing to read either one fails the whole instance.
func (s *Store) Get(ctx context.Context, id string) (*models.Instance, error) {
	spec, err := s.persistence.SpecByID(ctx, id)
	if err != nil {
		return nil, err
	}

	status, err := s.persistence.StatusByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return &models.Instance{ID: id, Spec: spec, Status: status}, nil
}

// List returns every readable instance, newest first. Unreadable instances are skipped.
func (s *Store) List(ctx context.Context) ([]*models.Instance, error) {
	ids, err := s.persistence.InstanceIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list instances: %w", err)
	}

	list := make([]*models.Instance, 0, len(ids))

	for _, id := range ids {
		instance, err := s.Get(ctx, id)
		if err != nil {
			s.logger.DebugContext(ctx, "Skipping unreadable instance", "instance_id", id, "error", err)

			continue
		}

		list = append(list, instance)
	}

	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Spec.CreatedAt.After(list[j].Spec.CreatedAt)
	})

	return list, nil
}

// Delete removes both units, best-effort.
func (s *Store) Delete(ctx context.Context, id string) error {
	err := s.persistence.DeleteInstance(ctx, id)
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Instance deleted", "instance_id", id)

	s.publish(ctx, id, &events.InstanceDeleted{
		BaseEvent: events.NewBaseEvent(events.InstanceDeletedEvent, id),
	})

	return nil
}

// UpdateStatus merges update onto the stored status. When no status can be read, a
// pending one is synthesized and the update applied to it.
func (s *Store) UpdateStatus(ctx context.Context, id string, update models.StatusUpdate) (*models.InstanceStatus, error) {
	return s.Modify(ctx, id, func(status *models.InstanceStatus) error {
		update.Apply(status)

		return nil
	})
}

// Modify runs fn on the current status under the instance lock and persists the result.
// An error from fn aborts the write.
func (s *Store) Modify(ctx context.Context, id string, fn func(status *models.InstanceStatus) error) (*models.InstanceStatus, error) {
	if err := persistence.ValidateInstanceID(id); err != nil {
		return nil, err
	}

	var result *models.InstanceStatus

	err := locking.WithLock(ctx, s.locker, "instance:"+id, func(ctx context.Context) error {
		status, err := s.persistence.StatusByID(ctx, id)
		if err != nil {
			s.logger.DebugContext(ctx, "No readable status, starting from pending", "instance_id", id, "error", err)

			status = &models.InstanceStatus{State: models.InstanceStatePending}
		}

		previous := status.State

		err = fn(status)
		if err != nil {
			return err
		}

		err = s.persistence.SaveStatus(ctx, id, status)
		if err != nil {
			return err
		}

		if previous != status.State {
			s.logger.InfoContext(ctx, "Instance state changed", "instance_id", id, "from", previous, "state", status.State)

			s.publish(ctx, id, &events.InstanceStateChanged{
				BaseEvent: events.NewBaseEvent(events.InstanceStateChangedEvent, id),
				From:      previous,
				To:        status.State,
				Message:   status.Message,
				Error:     status.Error,
			})
		}

		result = status

		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (s *Store) publish(ctx context.Context, key string, event eventbus.Event) {
	if s.publisher == nil {
		return
	}

	err := s.publisher.Publish(ctx, key, event)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to publish event", "event_type", event.GetType(), "instance_id", key, "error", err)
	}
}
