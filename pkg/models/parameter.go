package models

// ParameterType identifies how a parameter value is entered and typed.
type ParameterType string

const (
	ParameterTypeText    ParameterType = "text"
	ParameterTypeNumber  ParameterType = "number"
	ParameterTypeBoolean ParameterType = "boolean"
	ParameterTypeSelect  ParameterType = "select"
)

// Valid reports whether t is one of the known parameter types.
func (t ParameterType) Valid() bool {
	switch t {
	case ParameterTypeText, ParameterTypeNumber, ParameterTypeBoolean, ParameterTypeSelect:
		return true
	default:
		return false
	}
}

// Parameter describes one launch-time input of a demo definition.
// Options is non-nil only for select parameters. Default holds a bool, a float64
// or a string after coercion.
type Parameter struct {
	Name        string        `json:"name"                  validate:"required"`
	Label       string        `json:"label,omitempty"`
	Description string        `json:"description,omitempty"`
	Type        ParameterType `json:"type"                  validate:"required,oneof=text number boolean select"`
	Required    bool          `json:"required"`
	Options     []string      `json:"options"`
	Default     any           `json:"default,omitempty"`
}

// Normalize enforces the options/select invariant and fills the text type when unset.
func (p *Parameter) Normalize() {
	if !p.Type.Valid() {
		p.Type = ParameterTypeText
	}

	if p.Type != ParameterTypeSelect {
		p.Options = nil

		return
	}

	if p.Options == nil {
		p.Options = []string{}
	}
}

// DisplayLabel returns the label, falling back to the parameter name.
func (p Parameter) DisplayLabel() string {
	if p.Label != "" {
		return p.Label
	}

	return p.Name
}
