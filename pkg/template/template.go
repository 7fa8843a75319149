// Package template renders the engine command line from per-argument templates.
package template

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
	"time"
)

var funcs = template.FuncMap{
	"now": func() string {
		return time.Now().UTC().Format(time.RFC3339)
	},
	"json": func(v any) (string, error) {
		data, err := json.Marshal(v)
		if err != nil {
			return "", err
		}

		return string(data), nil
	},
	"default": func(fallback, v any) any {
		if v == nil || v == "" {
			return fallback
		}

		return v
	},
}

// Render executes templateStr against data. Missing keys are an error so that a typo in
// a command template never turns into an empty argument.
func Render(templateStr string, data any) (string, error) {
	tmpl, err := template.
		New("arg").
		Funcs(funcs).
		Option("missingkey=error").
		Parse(templateStr)
	if err != nil {
		return "", fmt.Errorf("failed to parse template '%s': %w", templateStr, err)
	}

	var buf strings.Builder

	err = tmpl.Execute(&buf, data)
	if err != nil {
		return "", fmt.Errorf("failed to execute template '%s': %w", templateStr, err)
	}

	return buf.String(), nil
}

// RenderArgs renders every argument on its own, so a value containing spaces stays a
// single argument.
func RenderArgs(args []string, data any) ([]string, error) {
	rendered := make([]string, 0, len(args))

	for _, arg := range args {
		if !strings.Contains(arg, "{{") {
			rendered = append(rendered, arg)

			continue
		}

		value, err := Render(arg, data)
		if err != nil {
			return nil, err
		}

		rendered = append(rendered, value)
	}

	return rendered, nil
}
