package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/dukex/demodeck/pkg/catalog"
	"github.com/dukex/demodeck/pkg/execution"
	"github.com/dukex/demodeck/pkg/host/hosttest"
	"github.com/dukex/demodeck/pkg/instances"
	"github.com/dukex/demodeck/pkg/layout"
	"github.com/dukex/demodeck/pkg/mocks"
	"github.com/dukex/demodeck/pkg/models"
	"github.com/dukex/demodeck/pkg/persistence"
	"github.com/dukex/demodeck/pkg/persistence/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fixedConfig models.CatalogConfig

func (c fixedConfig) Load(context.Context) models.CatalogConfig {
	return models.CatalogConfig(c)
}

const catalogText = `
- id: scale
  name: Scale out
  type: role
  path: scaler
  parameters:
    - name: count
      type: number
      required: true
- id: web
  name: Web server
  type: playbook
  path: web.yml
  parameters:
    - name: port
      type: number
      required: true
    - name: tls
      type: boolean
`

func newDemos(t *testing.T, cfg fixedConfig) *Demos {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	l := layout.New("/data")
	fake := hosttest.New(nil)

	coll := l.Collection("acme", "demos")
	fake.AddFile(coll.CatalogFile(), catalogText)
	fake.AddFile(coll.Root+"/roles/scaler/defaults/main.yml", "count: 3\n")

	p := file.NewPersistence(fake, "/data")
	store := instances.NewStore(p, l, logger)

	return NewDemos(catalog.NewLoader(fake, logger), cfg, l, store, p, logger)
}

var syncedConfig = fixedConfig{Source: "acme.demos", Namespace: "acme", CollectionName: "demos"}

func TestDemos_LaunchRoleUsesDiscoveredDefault(t *testing.T) {
	demos := newDemos(t, syncedConfig)

	instance, err := demos.Launch(t.Context(), "scale", nil)
	require.NoError(t, err)

	assert.Equal(t, "acme.demos.scaler", instance.Spec.RunTarget)
	assert.Empty(t, instance.Spec.Parameters)
	require.Len(t, instance.Spec.VariableDefinitions, 1)
	assert.Equal(t, "count", instance.Spec.VariableDefinitions[0].Name)
	assert.Equal(t, 3.0, instance.Spec.VariableDefinitions[0].Default)
}

func TestDemos_LaunchValidatesValues(t *testing.T) {
	demos := newDemos(t, syncedConfig)

	_, err := demos.Launch(t.Context(), "web", map[string]any{})
	require.Error(t, err)
	assert.True(t, IsValidationError(err))

	_, err = demos.Launch(t.Context(), "web", map[string]any{"port": "eighty"})
	assert.True(t, IsValidationError(err))

	instance, err := demos.Launch(t.Context(), "web", map[string]any{"port": 8080.0})
	require.NoError(t, err)
	assert.Equal(t, models.InstanceStatePending, instance.Status.State)
}

func TestDemos_LaunchRaw(t *testing.T) {
	demos := newDemos(t, syncedConfig)

	instance, err := demos.LaunchRaw(t.Context(), "web", map[string]string{"port": "8080", "tls": "true"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"port": 8080.0, "tls": true}, instance.Spec.Parameters)

	_, err = demos.LaunchRaw(t.Context(), "web", map[string]string{"port": "abc"})
	assert.True(t, IsValidationError(err))
}

func TestDemos_Errors(t *testing.T) {
	demos := newDemos(t, syncedConfig)

	_, err := demos.Launch(t.Context(), "missing", nil)
	assert.True(t, IsNotFound(err))

	_, err = demos.Launch(t.Context(), "", nil)
	assert.True(t, IsValidationError(err))

	unsynced := newDemos(t, fixedConfig{Source: "acme.demos", Namespace: "local"})

	_, err = unsynced.List(t.Context())
	assert.ErrorIs(t, err, ErrCatalogNotSynced)
	assert.True(t, IsConflictError(err))
}

func TestDemos_List(t *testing.T) {
	demos := newDemos(t, syncedConfig)

	defs, err := demos.List(t.Context())
	require.NoError(t, err)
	require.Len(t, defs, 2)
	assert.Equal(t, "scale", defs[0].ID)

	msg, ok := demos.HealthCheck(t.Context())
	assert.True(t, ok)
	assert.Equal(t, "Persistence layer is healthy", msg)
}

func TestErrorClassification(t *testing.T) {
	assert.True(t, IsConflictError(execution.ErrAlreadyRunning))
	assert.True(t, IsNotFound(persistence.NewInstanceError("get", "x", persistence.UnitSpec, persistence.ErrInstanceNotFound)))
	assert.True(t, IsValidationError(persistence.ErrInvalidInstanceID))
	assert.False(t, IsValidationError(assert.AnError))
}

func TestDemos_HealthCheck(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	p := &mocks.MockPersistence{}
	p.On("HealthCheck", mock.Anything).Return(errors.New("connection refused")).Once()
	p.On("HealthCheck", mock.Anything).Return(nil).Once()

	demos := NewDemos(nil, syncedConfig, layout.New("/data"), nil, p, logger)

	message, ok := demos.HealthCheck(ctx)
	assert.False(t, ok)
	assert.Contains(t, message, "connection refused")

	message, ok = demos.HealthCheck(ctx)
	assert.True(t, ok)
	assert.Equal(t, "Persistence layer is healthy", message)

	p.AssertExpectations(t)

	_, ok = NewDemos(nil, syncedConfig, layout.New("/data"), nil, nil, logger).HealthCheck(ctx)
	assert.False(t, ok)
}
