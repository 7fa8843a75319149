package catalog_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/dukex/demodeck/pkg/catalog"
	"github.com/dukex/demodeck/pkg/faults"
	"github.com/dukex/demodeck/pkg/host/hosttest"
	"github.com/dukex/demodeck/pkg/layout"
	"github.com/dukex/demodeck/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoader_RoleScenario(t *testing.T) {
	ctx := context.Background()
	coll := layout.New("/base").Collection("acme", "demos")

	fake := hosttest.New(nil)
	fake.AddFile(coll.CatalogFile(), `
- id: scale
  name: Scale out
  type: role
  path: acme.demos.scaler
  parameters:
    - name: count
      label: Replica count
      type: number
      required: true
`)
	fake.AddFile("/base/catalog/ansible_collections/acme/demos/roles/scaler/defaults/main.yml", "count: 3\nzone: eu-west\n")

	loader := catalog.NewLoader(fake, slog.Default())

	defs, err := loader.Load(ctx, coll)
	require.NoError(t, err)
	require.Len(t, defs, 1)

	params := defs[0].Parameters
	require.Len(t, params, 2)
	assert.Equal(t, 3.0, params[0].Default)
	assert.Equal(t, "Replica count", params[0].Label)
	assert.Equal(t, "zone", params[1].Name)
	assert.Equal(t, models.ParameterTypeText, params[1].Type)
	assert.False(t, params[1].Required)

	def, err := loader.Find(ctx, coll, "scale")
	require.NoError(t, err)
	assert.Equal(t, "Scale out", def.Name)

	_, err = loader.Find(ctx, coll, "missing")
	assert.ErrorIs(t, err, catalog.ErrDemoNotFound)
}

func TestLoader_YamlDefaultsFallback(t *testing.T) {
	coll := layout.New("/base").Collection("acme", "demos")

	fake := hosttest.New(nil)
	fake.AddFile(coll.CatalogFile(), "- id: r\n  name: R\n  type: role\n  path: web\n")
	fake.AddFile("/base/catalog/ansible_collections/acme/demos/roles/web/defaults/main.yaml", "port: 80\n")

	defs, err := catalog.NewLoader(fake, slog.Default()).Load(context.Background(), coll)
	require.NoError(t, err)
	require.Len(t, defs, 1)
	require.Len(t, defs[0].Parameters, 1)
	assert.Equal(t, 80.0, defs[0].Parameters[0].Default)
}

func TestLoader_MissingCatalogIsParseError(t *testing.T) {
	coll := layout.New("/base").Collection("acme", "demos")

	_, err := catalog.NewLoader(hosttest.New(nil), slog.Default()).Load(context.Background(), coll)
	require.Error(t, err)
	assert.True(t, faults.IsParse(err))
}
