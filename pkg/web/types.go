// Package web provides the HTTP API used by the presentation layer.
package web

import "github.com/dukex/demodeck/pkg/models"

// CreateInstanceRequest launches a demo with the given parameter values.
type CreateInstanceRequest struct {
	DemoID string         `json:"demo_id" validate:"required"`
	Values map[string]any `json:"values"`
	// Execute starts the run right after the instance is created.
	Execute bool `json:"execute"`
}

// DemoResponse is a definition plus the JSON schema of its parameter values.
type DemoResponse struct {
	models.DemoDefinition

	Schema map[string]any `json:"schema"`
}

// ExecutionAccepted is returned when a run was started in the background.
type ExecutionAccepted struct {
	ID    string               `json:"id"`
	State models.InstanceState `json:"state"`
}
