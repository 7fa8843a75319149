package catalog

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dukex/demodeck/pkg/faults"
	"github.com/dukex/demodeck/pkg/host"
	"github.com/dukex/demodeck/pkg/layout"
	"github.com/dukex/demodeck/pkg/models"
)

// ErrDemoNotFound is returned when a demo id is not in the catalog.
var ErrDemoNotFound = errors.New("demo not found")

// Loader reads a synchronized collection's catalog through the host.
type Loader struct {
	host   host.Host
	logger *slog.Logger
}

func NewLoader(h host.Host, logger *slog.Logger) *Loader {
	return &Loader{
		host:   h,
		logger: logger.With("module", "catalog"),
	}
}

// Load parses the collection's catalog file. Role definitions get their parameters
// merged with the variables discovered in the role's defaults.
func (l *Loader) Load(ctx context.Context, coll layout.Collection) ([]models.DemoDefinition, error) {
	path := coll.CatalogFile()

	data, err := l.host.ReadFile(ctx, path)
	if err != nil {
		return nil, faults.Parse("load catalog", "cannot read "+path, err)
	}

	defs, diags := ParseWithDiagnostics(string(data))
	for _, d := range diags {
		l.logger.WarnContext(ctx, "Skipping catalog entry", "file", path, "line", d.Line, "reason", d.Reason)
	}

	for i := range defs {
		if defs[i].Kind != models.DemoKindRole {
			continue
		}

		vars := l.discover(ctx, coll, defs[i].Path)
		defs[i].Parameters = MergeParameters(defs[i].Parameters, vars)
	}

	l.logger.DebugContext(ctx, "Catalog loaded", "file", path, "definitions", len(defs))

	return defs, nil
}

// Find loads the catalog and returns the definition with the given id.
func (l *Loader) Find(ctx context.Context, coll layout.Collection, id string) (models.DemoDefinition, error) {
	defs, err := l.Load(ctx, coll)
	if err != nil {
		return models.DemoDefinition{}, err
	}

	for _, def := range defs {
		if def.ID == id {
			return def, nil
		}
	}

	return models.DemoDefinition{}, ErrDemoNotFound
}

// Variables returns the variables declared in a role's defaults file, or none when
// the role has no readable defaults.
func (l *Loader) Variables(ctx context.Context, coll layout.Collection, rolePath string) []RoleVariable {
	return l.discover(ctx, coll, rolePath)
}

func (l *Loader) discover(ctx context.Context, coll layout.Collection, rolePath string) []RoleVariable {
	for _, candidate := range coll.RoleDefaultsFiles(rolePath) {
		data, err := l.host.ReadFile(ctx, candidate)
		if err != nil {
			continue
		}

		return DiscoverRoleVariables(string(data))
	}

	l.logger.DebugContext(ctx, "No role defaults found", "role", rolePath)

	return []RoleVariable{}
}
