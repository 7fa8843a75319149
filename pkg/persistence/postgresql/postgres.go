// Package postgresql provides PostgreSQL persistence for instance specs and statuses.
package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/demodeck/pkg/models"
	"github.com/dukex/demodeck/pkg/persistence"
	"github.com/dukex/demodeck/pkg/persistence/sqlbase"
	_ "github.com/lib/pq"
)

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db           *sql.DB
	logger       *slog.Logger
	instanceRepo *InstanceRepository
}

// NewPersistence creates a new PostgreSQL persistence layer.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	postgres := &Persistence{
		db:           database,
		logger:       logger,
		instanceRepo: NewInstanceRepository(database, logger),
	}

	err = sqlbase.NewMigrator(logger, database, migrations()).Up(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return postgres, nil
}

// Close closes the database connection.
func (p *Persistence) Close(ctx context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

func (p *Persistence) SaveSpec(ctx context.Context, spec *models.InstanceSpec) error {
	if err := persistence.ValidateInstanceID(spec.ID); err != nil {
		return persistence.NewInstanceError("SaveSpec", spec.ID, persistence.UnitSpec, err)
	}

	return p.instanceRepo.SaveSpec(ctx, spec)
}

func (p *Persistence) SaveStatus(ctx context.Context, id string, status *models.InstanceStatus) error {
	if err := persistence.ValidateInstanceID(id); err != nil {
		return persistence.NewInstanceError("SaveStatus", id, persistence.UnitStatus, err)
	}

	return p.instanceRepo.SaveStatus(ctx, id, status)
}

func (p *Persistence) SpecByID(ctx context.Context, id string) (*models.InstanceSpec, error) {
	return p.instanceRepo.SpecByID(ctx, id)
}

func (p *Persistence) StatusByID(ctx context.Context, id string) (*models.InstanceStatus, error) {
	return p.instanceRepo.StatusByID(ctx, id)
}

func (p *Persistence) InstanceIDs(ctx context.Context) ([]string, error) {
	return p.instanceRepo.IDs(ctx)
}

// DeleteInstance removes both rows. The deletes run outside a transaction so that a
// failure on one unit does not keep the other one around.
func (p *Persistence) DeleteInstance(ctx context.Context, id string) error {
	specRemoved, specErr := p.instanceRepo.DeleteSpec(ctx, id)
	statusRemoved, statusErr := p.instanceRepo.DeleteStatus(ctx, id)

	if err := errors.Join(specErr, statusErr); err != nil {
		return err
	}

	if !specRemoved && !statusRemoved {
		return persistence.NewInstanceError("DeleteInstance", id, "", persistence.ErrInstanceNotFound)
	}

	return nil
}

var _ persistence.Persistence = (*Persistence)(nil)
