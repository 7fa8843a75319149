package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dukex/demodeck/pkg/cmd"
	"github.com/dukex/demodeck/pkg/host/hosttest"
	"github.com/dukex/demodeck/pkg/models"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const catalogText = `
- id: web
  name: Web server
  type: playbook
  path: web.yml
`

func setupTestApp(t *testing.T) *fiber.App {
	t.Helper()

	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	fake := hosttest.New(nil)

	runtime, err := cmd.NewRuntimeWithHost(ctx, fake, cmd.Options{ServiceName: serviceName, BaseDir: "/data"}, logger)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = runtime.Close(ctx)
	})

	fake.AddFile(runtime.Layout.Collection("acme", "demos").CatalogFile(), catalogText)
	require.NoError(t, runtime.Config.Save(ctx, models.CatalogConfig{
		Source:         "acme.demos",
		Namespace:      "acme",
		CollectionName: "demos",
	}))

	return NewAPI(ctx, logger, runtime).App()
}

func TestAPI_RootEndpoint(t *testing.T) {
	app := setupTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)

	defer func() {
		if err := resp.Body.Close(); err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "demodeck API", string(body))
}

func TestAPI_Liveness(t *testing.T) {
	app := setupTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/livez", nil))
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAPI_DemosAndLaunch(t *testing.T) {
	app := setupTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/demos", nil))
	require.NoError(t, err)

	var demos struct {
		Demos []models.DemoDefinition `json:"demos"`
	}

	require.NoError(t, json.NewDecoder(resp.Body).Decode(&demos))
	_ = resp.Body.Close()

	require.Len(t, demos.Demos, 1)
	assert.Equal(t, "web", demos.Demos[0].ID)

	req := httptest.NewRequest(http.MethodPost, "/instances", strings.NewReader(`{"demo_id":"web"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err = app.Test(req)
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}
