package models

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const requiredTag = "required"

// Parameter Model Tests

func TestParameter_Validation(t *testing.T) {
	validate := validator.New()

	err := validate.Struct(&Parameter{Name: "port", Type: ParameterTypeNumber})
	assert.NoError(t, err)

	err = validate.Struct(&Parameter{Type: ParameterTypeText})
	require.Error(t, err)

	var validationErrors validator.ValidationErrors
	require.True(t, errors.As(err, &validationErrors))
	assert.Equal(t, "Name", validationErrors[0].Field())
	assert.Equal(t, requiredTag, validationErrors[0].Tag())

	err = validate.Struct(&Parameter{Name: "x", Type: "date"})
	assert.Error(t, err)
}

func TestParameter_Normalize(t *testing.T) {
	tests := []struct {
		name    string
		in      Parameter
		want    ParameterType
		options []string
	}{
		{"unknown type becomes text", Parameter{Type: "date"}, ParameterTypeText, nil},
		{"options dropped for non select", Parameter{Type: ParameterTypeNumber, Options: []string{"1"}}, ParameterTypeNumber, nil},
		{"select keeps options", Parameter{Type: ParameterTypeSelect, Options: []string{"a"}}, ParameterTypeSelect, []string{"a"}},
		{"select without options gets empty list", Parameter{Type: ParameterTypeSelect}, ParameterTypeSelect, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.in
			p.Normalize()
			assert.Equal(t, tt.want, p.Type)
			assert.Equal(t, tt.options, p.Options)
		})
	}
}

func TestParameter_OptionsSurviveJSON(t *testing.T) {
	in := Parameter{Name: "size", Type: ParameterTypeSelect}
	in.Normalize()

	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"options":[]`)

	var out Parameter
	require.NoError(t, json.Unmarshal(data, &out))
	require.NotNil(t, out.Options)
	assert.Empty(t, out.Options)

	data, err = json.Marshal(Parameter{Name: "port", Type: ParameterTypeNumber})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"options":null`)
}

func TestParameter_DisplayLabel(t *testing.T) {
	assert.Equal(t, "count", Parameter{Name: "count"}.DisplayLabel())
	assert.Equal(t, "Count", Parameter{Name: "count", Label: "Count"}.DisplayLabel())
}

// DemoDefinition Model Tests

func TestDemoDefinition_Complete(t *testing.T) {
	def := DemoDefinition{ID: "web", Name: "Web", Kind: DemoKindPlaybook, Path: "web.yml"}
	assert.True(t, def.Complete())

	def.Kind = "script"
	assert.False(t, def.Complete())

	def = DemoDefinition{ID: "web", Name: "Web", Kind: DemoKindRole}
	assert.False(t, def.Complete())
}

func TestDemoDefinition_Parameter(t *testing.T) {
	def := DemoDefinition{Parameters: []Parameter{{Name: "a"}, {Name: "b", Label: "B"}}}

	p, ok := def.Parameter("b")
	require.True(t, ok)
	assert.Equal(t, "B", p.Label)

	_, ok = def.Parameter("c")
	assert.False(t, ok)
}

// Instance Model Tests

func TestInstanceState_Transitions(t *testing.T) {
	assert.True(t, InstanceStatePending.CanStart())
	assert.True(t, InstanceStateCompleted.CanStart())
	assert.True(t, InstanceStateFailed.CanStart())
	assert.False(t, InstanceStateRunning.CanStart())

	assert.True(t, InstanceStateFailed.Terminal())
	assert.False(t, InstanceStatePending.Terminal())
}

func TestStatusUpdate_Apply(t *testing.T) {
	completedAt := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	status := &InstanceStatus{
		State:       InstanceStateFailed,
		Error:       "Process exited with code 1",
		Output:      "boom",
		CompletedAt: &completedAt,
	}

	startedAt := completedAt.Add(time.Hour)
	StatusUpdate{
		State:            Ptr(InstanceStatePending),
		StartedAt:        &startedAt,
		ClearCompletedAt: true,
	}.Apply(status)

	assert.Equal(t, InstanceStatePending, status.State)
	assert.Equal(t, startedAt, *status.StartedAt)
	assert.Nil(t, status.CompletedAt)
	assert.Equal(t, "Process exited with code 1", status.Error)
	assert.Equal(t, "boom", status.Output)

	StatusUpdate{Output: Ptr(""), Summary: map[string]any{"ok": 1.0}}.Apply(status)
	assert.Empty(t, status.Output)
	assert.Equal(t, map[string]any{"ok": 1.0}, status.Summary)

	StatusUpdate{ClearSummary: true}.Apply(status)
	assert.Nil(t, status.Summary)
}

// CatalogConfig Model Tests

func TestCatalogConfig_SourceKind(t *testing.T) {
	tests := []struct {
		source string
		want   SourceKind
	}{
		{"", SourceKindNone},
		{"acme.demos", SourceKindRegistry},
		{"acme.demos:1.2.0", SourceKindRegistry},
		{"https://github.com/acme/demos.git", SourceKindVCS},
		{"git@github.com:acme/demos.git", SourceKindVCS},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			assert.Equal(t, tt.want, CatalogConfig{Source: tt.source}.SourceKind())
		})
	}
}

func TestCatalogConfig_RegistryName(t *testing.T) {
	ns, name, ok := CatalogConfig{Source: "acme.demos:>=1.0"}.RegistryName()
	require.True(t, ok)
	assert.Equal(t, "acme", ns)
	assert.Equal(t, "demos", name)

	_, _, ok = CatalogConfig{Source: "https://example.com/x.git"}.RegistryName()
	assert.False(t, ok)
}
