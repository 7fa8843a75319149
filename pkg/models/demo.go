// Package models defines the domain types shared by the catalog, instance and execution layers.
package models

// DemoKind selects how a demo definition is launched.
type DemoKind string

const (
	DemoKindPlaybook DemoKind = "playbook"
	DemoKindRole     DemoKind = "role"
)

// Valid reports whether k is a known demo kind.
func (k DemoKind) Valid() bool {
	return k == DemoKindPlaybook || k == DemoKindRole
}

// DemoDefinition is one launchable automation unit declared in the catalog.
// Definitions are rebuilt on every catalog parse; only ID carries identity.
type DemoDefinition struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Kind        DemoKind    `json:"kind"`
	Path        string      `json:"path"`
	Parameters  []Parameter `json:"parameters"`
}

// Complete reports whether every mandatory field of the definition is set.
func (d *DemoDefinition) Complete() bool {
	return d.ID != "" && d.Name != "" && d.Kind.Valid() && d.Path != ""
}

// Parameter returns the parameter with the given name.
func (d *DemoDefinition) Parameter(name string) (Parameter, bool) {
	for _, p := range d.Parameters {
		if p.Name == name {
			return p, true
		}
	}

	return Parameter{}, false
}
