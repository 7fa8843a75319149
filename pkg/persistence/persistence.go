// Package persistence provides the storage abstraction for instance specs and statuses.
package persistence

import (
	"context"

	"github.com/dukex/demodeck/pkg/models"
)

// Persistence stores the two units of an instance, spec and status, under the instance id.
// The units are written and removed independently.
type Persistence interface {
	SaveSpec(ctx context.Context, spec *models.InstanceSpec) error
	SaveStatus(ctx context.Context, id string, status *models.InstanceStatus) error
	SpecByID(ctx context.Context, id string) (*models.InstanceSpec, error)
	StatusByID(ctx context.Context, id string) (*models.InstanceStatus, error)
	// InstanceIDs enumerates known instance ids in no particular order.
	InstanceIDs(ctx context.Context) ([]string, error)
	// DeleteInstance removes both units. Removal is best-effort: a failure on one unit
	// does not stop the removal of the other.
	DeleteInstance(ctx context.Context, id string) error
	HealthCheck(ctx context.Context) error

	Close(ctx context.Context) error
}
