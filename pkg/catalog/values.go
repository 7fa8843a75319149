package catalog

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dukex/demodeck/pkg/models"
	"github.com/xeipuuv/gojsonschema"
)

// ValidationError lists every value that does not satisfy its parameter.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	return "invalid parameters: " + strings.Join(e.Issues, "; ")
}

// Schema builds the JSON schema describing valid parameter values. Parameters that
// carry a default are never required since the engine falls back to it.
func Schema(params []models.Parameter) map[string]any {
	properties := make(map[string]any, len(params))

	var required []any

	for _, p := range params {
		prop := map[string]any{"title": p.DisplayLabel()}
		if p.Description != "" {
			prop["description"] = p.Description
		}

		switch p.Type {
		case models.ParameterTypeNumber:
			prop["type"] = "number"
		case models.ParameterTypeBoolean:
			prop["type"] = "boolean"
		case models.ParameterTypeSelect:
			prop["type"] = "string"

			if len(p.Options) > 0 {
				enum := make([]any, 0, len(p.Options))
				for _, o := range p.Options {
					enum = append(enum, o)
				}

				prop["enum"] = enum
			}
		default:
			prop["type"] = "string"
		}

		properties[p.Name] = prop

		if p.Required && p.Default == nil {
			required = append(required, p.Name)
		}
	}

	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}

	return schema
}

// Validate checks values against the parameter definitions.
func Validate(params []models.Parameter, values map[string]any) error {
	if values == nil {
		values = map[string]any{}
	}

	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(Schema(params)), gojsonschema.NewGoLoader(values))
	if err != nil {
		return fmt.Errorf("failed to validate parameters: %w", err)
	}

	if !result.Valid() {
		issues := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			issues = append(issues, desc.String())
		}

		return &ValidationError{Issues: issues}
	}

	return nil
}

// CoerceValues types raw "name=value" style inputs according to the parameter
// definitions. Values for unknown names go through the generic scalar coercion.
func CoerceValues(params []models.Parameter, raw map[string]string) (map[string]any, error) {
	byName := make(map[string]models.Parameter, len(params))
	for _, p := range params {
		byName[p.Name] = p
	}

	values := make(map[string]any, len(raw))

	for name, value := range raw {
		p, ok := byName[name]
		if !ok {
			values[name] = Coerce(value)

			continue
		}

		switch p.Type {
		case models.ParameterTypeNumber:
			num, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
			if err != nil {
				return nil, fmt.Errorf("parameter %s: %q is not a number", name, value)
			}

			values[name] = num
		case models.ParameterTypeBoolean:
			b, err := strconv.ParseBool(strings.TrimSpace(value))
			if err != nil {
				return nil, fmt.Errorf("parameter %s: %q is not a boolean", name, value)
			}

			values[name] = b
		default:
			values[name] = value
		}
	}

	return values, nil
}
