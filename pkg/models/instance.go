package models

import "time"

// InstanceState represents the lifecycle state of a demo instance run.
type InstanceState string

const (
	InstanceStatePending   InstanceState = "pending"
	InstanceStateRunning   InstanceState = "running"
	InstanceStateCompleted InstanceState = "completed"
	InstanceStateFailed    InstanceState = "failed"
)

// Terminal reports whether the state ends a run.
func (s InstanceState) Terminal() bool {
	return s == InstanceStateCompleted || s == InstanceStateFailed
}

// CanStart reports whether an execution may move the instance to running.
func (s InstanceState) CanStart() bool {
	return s == InstanceStatePending || s.Terminal()
}

// InstanceSpec is the immutable record of what an instance runs.
type InstanceSpec struct {
	ID                  string         `json:"id"`
	DemoID              string         `json:"demo_id"`
	DemoName            string         `json:"demo_name"`
	DemoKind            DemoKind       `json:"demo_kind"`
	DemoPath            string         `json:"demo_path"`
	RunTarget           string         `json:"run_target"`
	Parameters          map[string]any `json:"parameters"`
	VariableDefinitions []Parameter    `json:"variable_definitions"`
	CreatedAt           time.Time      `json:"created_at"`
}

// InstanceStatus is the mutable lifecycle record of an instance.
type InstanceStatus struct {
	State       InstanceState  `json:"state"`
	Message     string         `json:"message,omitempty"`
	StartedAt   *time.Time     `json:"started_at,omitempty"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	Error       string         `json:"error,omitempty"`
	Output      string         `json:"output,omitempty"`
	Summary     map[string]any `json:"summary,omitempty"`
}

// Instance pairs a spec with its status under one id.
type Instance struct {
	ID     string          `json:"id"`
	Spec   *InstanceSpec   `json:"spec"`
	Status *InstanceStatus `json:"status"`
}

// StatusUpdate carries the fields to merge onto an existing status. Nil fields are left untouched.
type StatusUpdate struct {
	State       *InstanceState
	Message     *string
	StartedAt   *time.Time
	CompletedAt *time.Time
	Error       *string
	Output      *string
	Summary     map[string]any

	// ClearCompletedAt drops a previously recorded completion time.
	ClearCompletedAt bool
	// ClearSummary drops a previously recorded engine summary.
	ClearSummary bool
}

// Apply merges the update onto status in place.
func (u StatusUpdate) Apply(status *InstanceStatus) {
	if u.State != nil {
		status.State = *u.State
	}

	if u.Message != nil {
		status.Message = *u.Message
	}

	if u.StartedAt != nil {
		startedAt := *u.StartedAt
		status.StartedAt = &startedAt
	}

	if u.ClearCompletedAt {
		status.CompletedAt = nil
	}

	if u.CompletedAt != nil {
		completedAt := *u.CompletedAt
		status.CompletedAt = &completedAt
	}

	if u.Error != nil {
		status.Error = *u.Error
	}

	if u.Output != nil {
		status.Output = *u.Output
	}

	if u.ClearSummary {
		status.Summary = nil
	}

	if u.Summary != nil {
		status.Summary = u.Summary
	}
}

// Ptr returns a pointer to v. Handy for building StatusUpdate values.
func Ptr[T any](v T) *T {
	return &v
}
