package execution

import (
	"encoding/json"
	"fmt"

	"github.com/dukex/demodeck/pkg/models"
	"gopkg.in/yaml.v3"
)

// DefaultCommand runs the engine as a transient systemd unit so the run outlives the
// session that started it. Each element is rendered as its own argument.
var DefaultCommand = []string{
	"systemd-run",
	"--unit=demodeck-{{.InstanceID}}",
	"--collect",
	"--wait",
	"--pipe",
	"--quiet",
	"ansible-navigator", "run", "{{.Playbook}}",
	"--mode", "stdout",
	"--execution-environment-image", "{{.Image}}",
	"--pull-policy", "missing",
	"--execution-environment-volume-mounts", "{{.CatalogRoot}}:{{.CatalogRoot}}:Z",
	"--execution-environment-volume-mounts", "{{.InstanceDir}}:{{.InstanceDir}}:Z",
	"--set-environment-variable", "ANSIBLE_COLLECTIONS_PATH={{.CatalogRoot}}",
	"--playbook-artifact-enable", "false",
	"--extra-vars", "{{.Variables}}",
}

// CommandData is what command templates are rendered against.
type CommandData struct {
	InstanceID  string
	Target      string
	Playbook    string
	Image       string
	CatalogRoot string
	InstanceDir string
	// Variables is the JSON encoded variable bundle.
	Variables string
}

// Variables builds the bundle handed to the engine. User values are exposed both at the
// top level and under demo_parameters; the demo_* keys win on collision.
func Variables(spec *models.InstanceSpec, statusFile string) map[string]any {
	vars := make(map[string]any, len(spec.Parameters)+6)

	for name, value := range spec.Parameters {
		vars[name] = value
	}

	parameters := spec.Parameters
	if parameters == nil {
		parameters = map[string]any{}
	}

	definitions := spec.VariableDefinitions
	if definitions == nil {
		definitions = []models.Parameter{}
	}

	vars["demo_instance_id"] = spec.ID
	vars["demo_kind"] = string(spec.DemoKind)
	vars["demo_target"] = spec.RunTarget
	vars["demo_parameters"] = parameters
	vars["demo_variable_definitions"] = definitions
	vars["demo_status_file"] = statusFile

	return vars
}

func encodeVariables(vars map[string]any) (string, error) {
	data, err := json.Marshal(vars)
	if err != nil {
		return "", fmt.Errorf("failed to encode variables: %w", err)
	}

	return string(data), nil
}

type launchPlay struct {
	Name        string       `yaml:"name"`
	Hosts       string       `yaml:"hosts"`
	GatherFacts bool         `yaml:"gather_facts"`
	Roles       []launchRole `yaml:"roles"`
}

type launchRole struct {
	Role string `yaml:"role"`
}

// launchPlaybook wraps a fully-qualified role in a one-play playbook.
func launchPlaybook(role string) ([]byte, error) {
	plays := []launchPlay{{
		Name:  "Launch " + role,
		Hosts: "localhost",
		Roles: []launchRole{{Role: role}},
	}}

	data, err := yaml.Marshal(plays)
	if err != nil {
		return nil, fmt.Errorf("failed to render launch playbook: %w", err)
	}

	return data, nil
}
