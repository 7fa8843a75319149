package postgresql_test

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/dukex/demodeck/pkg/models"
	"github.com/dukex/demodeck/pkg/persistence"
	"github.com/dukex/demodeck/pkg/persistence/postgresql"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

var postgresContainer *postgres.PostgresContainer

func dropDb(ctx context.Context, t *testing.T, databaseURL string) {
	t.Helper()

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	for _, table := range []string{"instance_statuses", "instance_specs", "schema_migrations"} {
		_, err = db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE")
		require.NoError(t, err)
	}

	err = db.Close()
	require.NoError(t, err)
}

func setupTestDB(t *testing.T) (*postgresql.Persistence, context.Context, string) {
	t.Helper()

	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)

	if postgresContainer == nil || !postgresContainer.IsRunning() {
		var err error

		postgresContainer, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("demodeck_test"),
			postgres.WithUsername("demodeck"),
			postgres.WithPassword("demodeck"),
			postgres.BasicWaitStrategies(),
		)
		require.NoError(t, err)
	}

	databaseURL, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	dropDb(ctx, t, databaseURL)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
	require.NoError(t, err)

	t.Cleanup(func() {
		dropDb(ctx, t, databaseURL)

		err = p.Close(ctx)
		require.NoError(t, err)

		cancel()
	})

	return p, ctx, databaseURL
}

func TestNewPersistence_Migrations(t *testing.T) {
	_, ctx, databaseURL := setupTestDB(t)

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	defer db.Close()

	var version int

	err = db.QueryRowContext(ctx, "SELECT MAX(version) FROM schema_migrations").Scan(&version)
	require.NoError(t, err)
	assert.Equal(t, 1, version)
}

func TestPersistence_SpecAndStatusRoundTrip(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	createdAt := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	spec := &models.InstanceSpec{
		ID:         "scale-0a1b2c3d",
		DemoID:     "scale",
		DemoName:   "Scale out",
		DemoKind:   models.DemoKindRole,
		DemoPath:   "scaler",
		RunTarget:  "acme.demos.scaler",
		Parameters: map[string]any{"count": 3.0},
		VariableDefinitions: []models.Parameter{
			{Name: "count", Type: models.ParameterTypeNumber, Required: true, Default: 3.0},
		},
		CreatedAt: createdAt,
	}

	require.NoError(t, p.SaveSpec(ctx, spec))

	loaded, err := p.SpecByID(ctx, spec.ID)
	require.NoError(t, err)
	assert.Equal(t, spec.Parameters, loaded.Parameters)
	assert.Equal(t, spec.VariableDefinitions, loaded.VariableDefinitions)
	assert.True(t, createdAt.Equal(loaded.CreatedAt))

	_, err = p.StatusByID(ctx, spec.ID)
	assert.True(t, persistence.IsInstanceNotFound(err))

	status := &models.InstanceStatus{
		State:     models.InstanceStateFailed,
		StartedAt: &createdAt,
		Error:     "Process exited with code 2",
		Output:    "PLAY RECAP",
		Summary:   map[string]any{"failed": 1.0},
	}
	require.NoError(t, p.SaveStatus(ctx, spec.ID, status))

	got, err := p.StatusByID(ctx, spec.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InstanceStateFailed, got.State)
	assert.Equal(t, "Process exited with code 2", got.Error)
	assert.Equal(t, map[string]any{"failed": 1.0}, got.Summary)
	assert.Nil(t, got.CompletedAt)

	ids, err := p.InstanceIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{spec.ID}, ids)

	require.NoError(t, p.DeleteInstance(ctx, spec.ID))

	err = p.DeleteInstance(ctx, spec.ID)
	assert.True(t, persistence.IsInstanceNotFound(err))
}

func TestPersistence_HealthCheck(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	assert.NoError(t, p.HealthCheck(ctx))
}
