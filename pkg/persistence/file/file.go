// Package file provides file-based persistence for instances: one directory per instance
// holding spec.json and status.json, accessed through the host capability interface.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dukex/demodeck/pkg/host"
	"github.com/dukex/demodeck/pkg/layout"
	"github.com/dukex/demodeck/pkg/models"
	"github.com/dukex/demodeck/pkg/persistence"
)

// Persistence implements the persistence.Persistence interface using the file system.
type Persistence struct {
	host   host.Host
	layout layout.Layout
}

// NewPersistence creates a new instance of Persistence rooted at the given base directory.
func NewPersistence(h host.Host, root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{
		host:   h,
		layout: layout.New(cleanRoot),
	}
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck verifies the instances directory can be listed. A directory that does not
// exist yet is healthy; it is created on the first write.
func (fp *Persistence) HealthCheck(ctx context.Context) error {
	_, err := fp.host.ListDir(ctx, fp.layout.InstancesRoot())
	if err != nil && !host.IsNotExist(err) {
		return fmt.Errorf("failed to list instances directory: %w", err)
	}

	return nil
}

func (fp *Persistence) SaveSpec(ctx context.Context, spec *models.InstanceSpec) error {
	if err := persistence.ValidateInstanceID(spec.ID); err != nil {
		return persistence.NewInstanceError("SaveSpec", spec.ID, persistence.UnitSpec, err)
	}

	return fp.writeJSON(ctx, "SaveSpec", spec.ID, persistence.UnitSpec, fp.layout.SpecFile(spec.ID), spec)
}

func (fp *Persistence) SaveStatus(ctx context.Context, id string, status *models.InstanceStatus) error {
	if err := persistence.ValidateInstanceID(id); err != nil {
		return persistence.NewInstanceError("SaveStatus", id, persistence.UnitStatus, err)
	}

	return fp.writeJSON(ctx, "SaveStatus", id, persistence.UnitStatus, fp.layout.StatusFile(id), status)
}

func (fp *Persistence) SpecByID(ctx context.Context, id string) (*models.InstanceSpec, error) {
	var spec models.InstanceSpec

	err := fp.readJSON(ctx, "SpecByID", id, persistence.UnitSpec, fp.layout.SpecFile(id), &spec)
	if err != nil {
		return nil, err
	}

	return &spec, nil
}

func (fp *Persistence) StatusByID(ctx context.Context, id string) (*models.InstanceStatus, error) {
	var status models.InstanceStatus

	err := fp.readJSON(ctx, "StatusByID", id, persistence.UnitStatus, fp.layout.StatusFile(id), &status)
	if err != nil {
		return nil, err
	}

	return &status, nil
}

// InstanceIDs lists the instance directories, ignoring dot entries and names that are
// not valid ids.
func (fp *Persistence) InstanceIDs(ctx context.Context) ([]string, error) {
	names, err := fp.host.ListDir(ctx, fp.layout.InstancesRoot())
	if err != nil {
		if host.IsNotExist(err) {
			return []string{}, nil
		}

		return nil, fmt.Errorf("failed to list instances: %w", err)
	}

	ids := make([]string, 0, len(names))

	for _, name := range names {
		if persistence.ValidateInstanceID(name) != nil {
			continue
		}

		ids = append(ids, name)
	}

	return ids, nil
}

// DeleteInstance removes the spec, the status and then whatever is left of the instance
// directory. Every removal is attempted and failures are joined.
func (fp *Persistence) DeleteInstance(ctx context.Context, id string) error {
	if err := persistence.ValidateInstanceID(id); err != nil {
		return persistence.NewInstanceError("DeleteInstance", id, "", err)
	}

	if !host.Exists(ctx, fp.host, fp.layout.InstanceDir(id)) {
		return persistence.NewInstanceError("DeleteInstance", id, "", persistence.ErrInstanceNotFound)
	}

	var errs []error

	targets := []struct {
		unit persistence.Unit
		path string
	}{
		{persistence.UnitSpec, fp.layout.SpecFile(id)},
		{persistence.UnitStatus, fp.layout.StatusFile(id)},
		{"", fp.layout.InstanceDir(id)},
	}

	for _, target := range targets {
		if err := fp.remove(ctx, target.path); err != nil {
			errs = append(errs, persistence.NewInstanceError("DeleteInstance", id, target.unit, err))
		}
	}

	return errors.Join(errs...)
}

func (fp *Persistence) remove(ctx context.Context, path string) error {
	res, err := host.Run(ctx, fp.host, host.Command{Name: "rm", Args: []string{"-rf", path}})
	if err != nil {
		return err
	}

	if res.ExitCode != 0 {
		return fmt.Errorf("rm exited with code %d: %s", res.ExitCode, strings.TrimSpace(res.Output))
	}

	return nil
}

func (fp *Persistence) writeJSON(ctx context.Context, op, id string, unit persistence.Unit, path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return persistence.NewInstanceError(op, id, unit, fmt.Errorf("failed to marshal: %w", err))
	}

	err = fp.host.WriteFile(ctx, path, data)
	if err != nil {
		return persistence.NewInstanceError(op, id, unit, fmt.Errorf("failed to write %s: %w", path, err))
	}

	return nil
}

func (fp *Persistence) readJSON(ctx context.Context, op, id string, unit persistence.Unit, path string, out any) error {
	if err := persistence.ValidateInstanceID(id); err != nil {
		return persistence.NewInstanceError(op, id, unit, err)
	}

	data, err := fp.host.ReadFile(ctx, path)
	if err != nil {
		if host.IsNotExist(err) {
			return persistence.NewInstanceError(op, id, unit, persistence.ErrInstanceNotFound)
		}

		return persistence.NewInstanceError(op, id, unit, fmt.Errorf("failed to read %s: %w", path, err))
	}

	err = json.Unmarshal(data, out)
	if err != nil {
		return persistence.NewInstanceError(op, id, unit, fmt.Errorf("failed to parse %s: %w", path, err))
	}

	return nil
}

var _ persistence.Persistence = (*Persistence)(nil)
