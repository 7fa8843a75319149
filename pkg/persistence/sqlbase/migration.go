// Package sqlbase provides schema migrations for the SQL instance repositories.
package sqlbase

import (
	"cmp"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"slices"
)

// Migration is one schema step. Versions start at 1 and are applied in ascending order.
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// Migrator brings a database schema up to the newest Migration it was given.
type Migrator struct {
	db         *sql.DB
	logger     *slog.Logger
	migrations []Migration
}

func NewMigrator(logger *slog.Logger, db *sql.DB, migrations []Migration) *Migrator {
	sorted := slices.Clone(migrations)
	slices.SortFunc(sorted, func(a, b Migration) int { return cmp.Compare(a.Version, b.Version) })

	return &Migrator{
		db:         db,
		logger:     logger.With("module", "migrations"),
		migrations: sorted,
	}
}

// Validate rejects non-positive or repeated versions.
func (m *Migrator) Validate() error {
	for i, migration := range m.migrations {
		if migration.Version < 1 {
			return fmt.Errorf("migration %q has invalid version %d", migration.Description, migration.Version)
		}

		if i > 0 && m.migrations[i-1].Version == migration.Version {
			return fmt.Errorf("migration version %d is defined twice", migration.Version)
		}
	}

	return nil
}

// Pending lists the migrations newer than applied, oldest first.
func (m *Migrator) Pending(applied int) []Migration {
	idx, _ := slices.BinarySearchFunc(m.migrations, applied+1, func(mg Migration, version int) int {
		return cmp.Compare(mg.Version, version)
	})

	return m.migrations[idx:]
}

// Latest is the highest known version, 0 when there are none.
func (m *Migrator) Latest() int {
	if len(m.migrations) == 0 {
		return 0
	}

	return m.migrations[len(m.migrations)-1].Version
}

// Up applies every pending migration, each in its own transaction.
func (m *Migrator) Up(ctx context.Context) error {
	if err := m.Validate(); err != nil {
		return err
	}

	_, err := m.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			description TEXT NOT NULL DEFAULT '',
			applied_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	var applied int

	err = m.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&applied)
	if err != nil {
		return fmt.Errorf("failed to query current schema version: %w", err)
	}

	pending := m.Pending(applied)
	m.logger.InfoContext(ctx, "Checked schema version", "version", applied, "pending", len(pending))

	for _, migration := range pending {
		if err := m.apply(ctx, migration); err != nil {
			return err
		}
	}

	return nil
}

func (m *Migrator) apply(ctx context.Context, migration Migration) (err error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin migration %d: %w", migration.Version, err)
	}

	defer func() {
		if err != nil {
			err = errors.Join(err, tx.Rollback())
		}
	}()

	if _, err = tx.ExecContext(ctx, migration.SQL); err != nil {
		return fmt.Errorf("failed to execute migration %d: %w", migration.Version, err)
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version, description) VALUES ($1, $2)",
		migration.Version, migration.Description,
	)
	if err != nil {
		return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
	}

	m.logger.InfoContext(ctx, "Applied migration", "version", migration.Version, "description", migration.Description)

	return nil
}
