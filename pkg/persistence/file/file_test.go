package file

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/dukex/demodeck/pkg/host"
	"github.com/dukex/demodeck/pkg/host/hosttest"
	"github.com/dukex/demodeck/pkg/models"
	"github.com/dukex/demodeck/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSpec(id string) *models.InstanceSpec {
	return &models.InstanceSpec{
		ID:         id,
		DemoID:     "web",
		DemoName:   "Web server",
		DemoKind:   models.DemoKindPlaybook,
		DemoPath:   "web.yml",
		RunTarget:  "/var/lib/demodeck/catalog/ansible_collections/acme/demos/playbooks/web.yml",
		Parameters: map[string]any{"port": 8080.0},
		VariableDefinitions: []models.Parameter{
			{Name: "port", Type: models.ParameterTypeNumber, Required: true},
		},
		CreatedAt: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestNewPersistence(t *testing.T) {
	fp := NewPersistence(hosttest.New(nil), "file:///tmp/test")
	assert.Equal(t, "/tmp/test", fp.layout.BaseDir)

	assert.NoError(t, fp.Close(t.Context()))
	assert.NoError(t, fp.HealthCheck(t.Context()))
}

func TestPersistence_SaveAndLoad(t *testing.T) {
	ctx := context.Background()
	fake := hosttest.New(nil)
	fp := NewPersistence(fake, "/data")

	spec := testSpec("web-1a2b3c4d")
	require.NoError(t, fp.SaveSpec(ctx, spec))

	startedAt := time.Date(2025, 3, 1, 10, 0, 1, 0, time.UTC)
	require.NoError(t, fp.SaveStatus(ctx, spec.ID, &models.InstanceStatus{State: models.InstanceStatePending, StartedAt: &startedAt}))

	_, ok := fake.File("/data/instances/web-1a2b3c4d/spec.json")
	assert.True(t, ok)

	loaded, err := fp.SpecByID(ctx, spec.ID)
	require.NoError(t, err)
	assert.Equal(t, spec, loaded)

	status, err := fp.StatusByID(ctx, spec.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InstanceStatePending, status.State)
	assert.True(t, startedAt.Equal(*status.StartedAt))

	ids, err := fp.InstanceIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"web-1a2b3c4d"}, ids)
}

func TestPersistence_NotFoundAndCorrupt(t *testing.T) {
	ctx := context.Background()
	fake := hosttest.New(nil)
	fp := NewPersistence(fake, "/data")

	_, err := fp.SpecByID(ctx, "missing-00000000")
	assert.True(t, persistence.IsInstanceNotFound(err))

	fake.AddFile("/data/instances/bad-00000000/status.json", "{not json")

	_, err = fp.StatusByID(ctx, "bad-00000000")
	require.Error(t, err)
	assert.False(t, persistence.IsInstanceNotFound(err))

	_, err = fp.SpecByID(ctx, "../escape")
	assert.ErrorIs(t, err, persistence.ErrInvalidInstanceID)
}

func TestPersistence_InstanceIDsSkipsDotEntries(t *testing.T) {
	ctx := context.Background()
	fake := hosttest.New(nil)
	fp := NewPersistence(fake, "/data")

	ids, err := fp.InstanceIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	fake.AddDir("/data/instances/.trash")
	fake.AddDir("/data/instances/a-11111111")
	fake.AddDir("/data/instances/b-22222222")

	ids, err = fp.InstanceIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a-11111111", "b-22222222"}, ids)
}

func TestPersistence_DeleteInstance(t *testing.T) {
	ctx := context.Background()
	fake := hosttest.New(nil)
	fp := NewPersistence(fake, "/data")

	require.NoError(t, fp.SaveSpec(ctx, testSpec("web-1a2b3c4d")))
	fake.AddFile("/data/instances/web-1a2b3c4d/launch.yml", "- hosts: localhost")

	require.NoError(t, fp.DeleteInstance(ctx, "web-1a2b3c4d"))
	assert.False(t, fake.HasDir("/data/instances/web-1a2b3c4d"))

	err := fp.DeleteInstance(ctx, "web-1a2b3c4d")
	assert.True(t, persistence.IsInstanceNotFound(err))
}

func TestPersistence_DeleteIsBestEffort(t *testing.T) {
	ctx := context.Background()
	fake := hosttest.New(func(cmd host.Command) hosttest.Outcome {
		if filepath.Base(cmd.Args[len(cmd.Args)-1]) == "spec.json" {
			return hosttest.Exit(1, "permission denied")
		}

		return hosttest.Outcome{}
	})
	fp := NewPersistence(fake, "/data")

	require.NoError(t, fp.SaveSpec(ctx, testSpec("web-1a2b3c4d")))

	err := fp.DeleteInstance(ctx, "web-1a2b3c4d")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")

	var instanceErr *persistence.InstanceError
	require.True(t, errors.As(err, &instanceErr))
	assert.Equal(t, persistence.UnitSpec, instanceErr.Unit)
	assert.Len(t, fake.Calls(), 3)
}

func TestPersistence_LocalHost(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	fp := NewPersistence(host.NewLocal(), root)

	spec := testSpec("web-1a2b3c4d")
	require.NoError(t, fp.SaveSpec(ctx, spec))

	loaded, err := fp.SpecByID(ctx, spec.ID)
	require.NoError(t, err)
	assert.Equal(t, spec.DemoName, loaded.DemoName)

	require.NoError(t, fp.DeleteInstance(ctx, spec.ID))

	_, err = fp.SpecByID(ctx, spec.ID)
	assert.True(t, persistence.IsInstanceNotFound(err))
}
