package services

import (
	"context"
	"log/slog"

	"github.com/dukex/demodeck/pkg/catalog"
	"github.com/dukex/demodeck/pkg/instances"
	"github.com/dukex/demodeck/pkg/layout"
	"github.com/dukex/demodeck/pkg/models"
	"github.com/dukex/demodeck/pkg/persistence"
)

// ConfigSource provides the current catalog configuration.
type ConfigSource interface {
	Load(ctx context.Context) models.CatalogConfig
}

// Demos browses the synced catalog and launches instances from it.
type Demos struct {
	loader      *catalog.Loader
	config      ConfigSource
	layout      layout.Layout
	store       *instances.Store
	persistence persistence.Persistence
	logger      *slog.Logger
}

func NewDemos(
	loader *catalog.Loader,
	config ConfigSource,
	l layout.Layout,
	store *instances.Store,
	p persistence.Persistence,
	logger *slog.Logger,
) *Demos {
	return &Demos{
		loader:      loader,
		config:      config,
		layout:      l,
		store:       store,
		persistence: p,
		logger:      logger.With("module", "demos"),
	}
}

// HealthCheck checks the health of the persistence layer.
func (d *Demos) HealthCheck(ctx context.Context) (string, bool) {
	if d.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := d.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

func (d *Demos) collection(ctx context.Context) (models.CatalogConfig, layout.Collection, error) {
	cfg := d.config.Load(ctx)
	if cfg.CollectionName == "" {
		return cfg, layout.Collection{}, ErrCatalogNotSynced
	}

	return cfg, d.layout.CollectionFor(cfg), nil
}

// List returns the definitions of the synced catalog.
func (d *Demos) List(ctx context.Context) ([]models.DemoDefinition, error) {
	_, coll, err := d.collection(ctx)
	if err != nil {
		return nil, err
	}

	return d.loader.Load(ctx, coll)
}

func (d *Demos) Get(ctx context.Context, id string) (models.DemoDefinition, error) {
	_, coll, err := d.collection(ctx)
	if err != nil {
		return models.DemoDefinition{}, err
	}

	return d.loader.Find(ctx, coll, id)
}

// Launch validates values against the demo's parameters and creates a pending instance.
func (d *Demos) Launch(ctx context.Context, demoID string, values map[string]any) (*models.Instance, error) {
	if demoID == "" {
		return nil, NewValidationError("launch", "demo_id_required", "demo id is required", nil)
	}

	cfg, coll, err := d.collection(ctx)
	if err != nil {
		return nil, err
	}

	def, err := d.loader.Find(ctx, coll, demoID)
	if err != nil {
		return nil, err
	}

	if values == nil {
		values = map[string]any{}
	}

	err = catalog.Validate(def.Parameters, values)
	if err != nil {
		return nil, NewValidationError("launch", "invalid_parameters", err.Error(), err)
	}

	instance, err := d.store.Create(ctx, def, values, cfg)
	if err != nil {
		return nil, err
	}

	d.logger.InfoContext(ctx, "Demo launched", "demo_id", demoID, "instance_id", instance.ID)

	return instance, nil
}

// LaunchRaw is Launch for untyped name=value inputs, typed by the demo's parameters.
func (d *Demos) LaunchRaw(ctx context.Context, demoID string, raw map[string]string) (*models.Instance, error) {
	def, err := d.Get(ctx, demoID)
	if err != nil {
		return nil, err
	}

	values, err := catalog.CoerceValues(def.Parameters, raw)
	if err != nil {
		return nil, NewValidationError("launch", "invalid_parameters", err.Error(), nil)
	}

	return d.Launch(ctx, demoID, values)
}
