package postgresql

import "github.com/dukex/demodeck/pkg/persistence/sqlbase"

func migrations() []sqlbase.Migration {
	return []sqlbase.Migration{
		{
			Version:     1,
			Description: "instance specs and statuses",
			SQL: `
			-- Instance specs are immutable once written
			CREATE TABLE instance_specs (
				id VARCHAR(255) PRIMARY KEY,
				demo_id VARCHAR(255) NOT NULL,
				demo_name VARCHAR(255) NOT NULL,
				demo_kind VARCHAR(50) NOT NULL CHECK (demo_kind IN ('playbook', 'role')),
				demo_path TEXT NOT NULL,
				run_target TEXT NOT NULL,
				parameters JSONB NOT NULL DEFAULT '{}',
				variable_definitions JSONB NOT NULL DEFAULT '[]',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_instance_specs_demo_id ON instance_specs(demo_id);
			CREATE INDEX idx_instance_specs_created_at ON instance_specs(created_at);

			-- Statuses live in their own table so that each unit can be written and removed on its own
			CREATE TABLE instance_statuses (
				instance_id VARCHAR(255) PRIMARY KEY,
				state VARCHAR(50) NOT NULL CHECK (state IN ('pending', 'running', 'completed', 'failed')),
				message TEXT,
				started_at TIMESTAMP WITH TIME ZONE,
				completed_at TIMESTAMP WITH TIME ZONE,
				error TEXT,
				output TEXT,
				summary JSONB,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX idx_instance_statuses_state ON instance_statuses(state);
		`,
		},
	}
}
