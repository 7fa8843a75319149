package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender_SimpleExpression(t *testing.T) {
	data := map[string]any{
		"name":  "web",
		"count": 3,
	}

	result, err := Render("unit-{{ .name }}", data)
	require.NoError(t, err)
	assert.Equal(t, "unit-web", result)

	result, err = Render("{{ .count }}", data)
	require.NoError(t, err)
	assert.Equal(t, "3", result)
}

func TestRender_Functions(t *testing.T) {
	data := map[string]any{
		"vars":  map[string]any{"demo_instance_id": "web-1", "count": 3.0},
		"empty": "",
	}

	result, err := Render("{{ json .vars }}", data)
	require.NoError(t, err)
	assert.JSONEq(t, `{"demo_instance_id":"web-1","count":3}`, result)

	result, err = Render(`{{ default "stdout" .empty }}`, data)
	require.NoError(t, err)
	assert.Equal(t, "stdout", result)

	result, err = Render("{{ now }}", data)
	require.NoError(t, err)
	assert.NotEmpty(t, result)
}

func TestRender_Errors(t *testing.T) {
	_, err := Render("{{ .missing }}", map[string]any{})
	assert.Error(t, err)

	_, err = Render("{{ .unclosed", map[string]any{})
	assert.Error(t, err)
}

func TestRenderArgs_KeepsArgumentBoundaries(t *testing.T) {
	data := struct {
		Playbook string
		Vars     string
	}{
		Playbook: "/srv/my demos/play.yml",
		Vars:     `{"a": "b c"}`,
	}

	args, err := RenderArgs([]string{"run", "{{.Playbook}}", "--extra-vars", "{{.Vars}}"}, data)
	require.NoError(t, err)
	assert.Equal(t, []string{"run", "/srv/my demos/play.yml", "--extra-vars", `{"a": "b c"}`}, args)

	_, err = RenderArgs([]string{"{{.Nope}}"}, data)
	assert.Error(t, err)
}
