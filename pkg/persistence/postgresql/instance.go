package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/demodeck/pkg/models"
	"github.com/dukex/demodeck/pkg/persistence"
)

// InstanceRepository handles instance-related database operations.
type InstanceRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewInstanceRepository creates a new instance repository.
func NewInstanceRepository(db *sql.DB, logger *slog.Logger) *InstanceRepository {
	return &InstanceRepository{db: db, logger: logger}
}

// SaveSpec inserts the spec or replaces a previously stored one.
func (r *InstanceRepository) SaveSpec(ctx context.Context, spec *models.InstanceSpec) error {
	parametersJSON, err := json.Marshal(spec.Parameters)
	if err != nil {
		return persistence.NewInstanceError("SaveSpec", spec.ID, persistence.UnitSpec, fmt.Errorf("failed to marshal parameters: %w", err))
	}

	definitionsJSON, err := json.Marshal(spec.VariableDefinitions)
	if err != nil {
		return persistence.NewInstanceError("SaveSpec", spec.ID, persistence.UnitSpec, fmt.Errorf("failed to marshal variable definitions: %w", err))
	}

	query := `
		INSERT INTO instance_specs (id, demo_id, demo_name, demo_kind, demo_path, run_target,
parameters, variable_definitions, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			demo_id = EXCLUDED.demo_id,
			demo_name = EXCLUDED.demo_name,
			demo_kind = EXCLUDED.demo_kind,
			demo_path = EXCLUDED.demo_path,
			run_target = EXCLUDED.run_target,
			parameters = EXCLUDED.parameters,
			variable_definitions = EXCLUDED.variable_definitions,
			created_at = EXCLUDED.created_at
	`

	_, err = r.db.ExecContext(ctx, query,
		spec.ID, spec.DemoID, spec.DemoName, string(spec.DemoKind), spec.DemoPath, spec.RunTarget,
		parametersJSON, definitionsJSON, spec.CreatedAt,
	)
	if err != nil {
		return persistence.NewInstanceError("SaveSpec", spec.ID, persistence.UnitSpec, fmt.Errorf("failed to save spec: %w", err))
	}

	return nil
}

// SaveStatus inserts the status or replaces the stored one.
func (r *InstanceRepository) SaveStatus(ctx context.Context, id string, status *models.InstanceStatus) error {
	var summaryJSON []byte

	if status.Summary != nil {
		var err error

		summaryJSON, err = json.Marshal(status.Summary)
		if err != nil {
			return persistence.NewInstanceError("SaveStatus", id, persistence.UnitStatus, fmt.Errorf("failed to marshal summary: %w", err))
		}
	}

	query := `
		INSERT INTO instance_statuses (instance_id, state, message, started_at, completed_at,
error, output, summary, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (instance_id) DO UPDATE SET
			state = EXCLUDED.state,
			message = EXCLUDED.message,
			started_at = EXCLUDED.started_at,
			completed_at = EXCLUDED.completed_at,
			error = EXCLUDED.error,
			output = EXCLUDED.output,
			summary = EXCLUDED.summary,
			updated_at = NOW()
	`

	_, err := r.db.ExecContext(ctx, query,
		id, string(status.State), nullString(status.Message), status.StartedAt, status.CompletedAt,
		nullString(status.Error), nullString(status.Output), summaryJSON,
	)
	if err != nil {
		return persistence.NewInstanceError("SaveStatus", id, persistence.UnitStatus, fmt.Errorf("failed to save status: %w", err))
	}

	return nil
}

// SpecByID returns the spec stored for id.
func (r *InstanceRepository) SpecByID(ctx context.Context, id string) (*models.InstanceSpec, error) {
	query := `
		SELECT
			id
		  , demo_id
		  , demo_name
		  , demo_kind
		  , demo_path
		  , run_target
		  , parameters
		  , variable_definitions
		  , created_at
		FROM instance_specs
		WHERE id = $1
	`

	var (
		spec            models.InstanceSpec
		kind            string
		parametersJSON  []byte
		definitionsJSON []byte
	)

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&spec.ID, &spec.DemoID, &spec.DemoName, &kind, &spec.DemoPath, &spec.RunTarget,
		&parametersJSON, &definitionsJSON, &spec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewInstanceError("SpecByID", id, persistence.UnitSpec, persistence.ErrInstanceNotFound)
		}

		return nil, persistence.NewInstanceError("SpecByID", id, persistence.UnitSpec, fmt.Errorf("failed to scan spec: %w", err))
	}

	spec.DemoKind = models.DemoKind(kind)
	spec.CreatedAt = spec.CreatedAt.UTC()

	if err := json.Unmarshal(parametersJSON, &spec.Parameters); err != nil {
		return nil, persistence.NewInstanceError("SpecByID", id, persistence.UnitSpec, fmt.Errorf("failed to unmarshal parameters: %w", err))
	}

	if err := json.Unmarshal(definitionsJSON, &spec.VariableDefinitions); err != nil {
		return nil, persistence.NewInstanceError("SpecByID", id, persistence.UnitSpec, fmt.Errorf("failed to unmarshal variable definitions: %w", err))
	}

	return &spec, nil
}

// StatusByID returns the status stored for id.
func (r *InstanceRepository) StatusByID(ctx context.Context, id string) (*models.InstanceStatus, error) {
	query := `
		SELECT
			state
		  , message
		  , started_at
		  , completed_at
		  , error
		  , output
		  , summary
		FROM instance_statuses
		WHERE instance_id = $1
	`

	var (
		status      models.InstanceStatus
		state       string
		message     sql.NullString
		startedAt   sql.NullTime
		completedAt sql.NullTime
		errorText   sql.NullString
		output      sql.NullString
		summaryJSON []byte
	)

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&state, &message, &startedAt, &completedAt, &errorText, &output, &summaryJSON,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewInstanceError("StatusByID", id, persistence.UnitStatus, persistence.ErrInstanceNotFound)
		}

		return nil, persistence.NewInstanceError("StatusByID", id, persistence.UnitStatus, fmt.Errorf("failed to scan status: %w", err))
	}

	status.State = models.InstanceState(state)
	status.Message = message.String
	status.Error = errorText.String
	status.Output = output.String

	if startedAt.Valid {
		status.StartedAt = models.Ptr(startedAt.Time.UTC())
	}

	if completedAt.Valid {
		status.CompletedAt = models.Ptr(completedAt.Time.UTC())
	}

	if len(summaryJSON) > 0 {
		if err := json.Unmarshal(summaryJSON, &status.Summary); err != nil {
			return nil, persistence.NewInstanceError("StatusByID", id, persistence.UnitStatus, fmt.Errorf("failed to unmarshal summary: %w", err))
		}
	}

	return &status, nil
}

// IDs returns every id that has at least one stored unit.
func (r *InstanceRepository) IDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id FROM instance_specs
		UNION
		SELECT instance_id FROM instance_statuses
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query instance ids: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.Error("Failed to close rows", "error", err)
		}
	}()

	ids := make([]string, 0)

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan instance id: %w", err)
		}

		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate instance ids: %w", err)
	}

	return ids, nil
}

// DeleteSpec removes the spec row and reports whether one existed.
func (r *InstanceRepository) DeleteSpec(ctx context.Context, id string) (bool, error) {
	return r.deleteRow(ctx, "DELETE FROM instance_specs WHERE id = $1", id, persistence.UnitSpec)
}

// DeleteStatus removes the status row and reports whether one existed.
func (r *InstanceRepository) DeleteStatus(ctx context.Context, id string) (bool, error) {
	return r.deleteRow(ctx, "DELETE FROM instance_statuses WHERE instance_id = $1", id, persistence.UnitStatus)
}

func (r *InstanceRepository) deleteRow(ctx context.Context, query, id string, unit persistence.Unit) (bool, error) {
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, persistence.NewInstanceError("DeleteInstance", id, unit, fmt.Errorf("failed to delete: %w", err))
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, persistence.NewInstanceError("DeleteInstance", id, unit, fmt.Errorf("failed to get rows affected: %w", err))
	}

	return affected > 0, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
