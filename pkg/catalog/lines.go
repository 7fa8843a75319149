package catalog

import (
	"strings"

	"github.com/dukex/demodeck/pkg/models"
)

// decodeLines reads one entry block as "key: rest of line" fields. It understands the
// parameters list, inline and block options, and nothing else: block scalars and nested
// mappings are ignored.
func decodeLines(text string) models.DemoDefinition {
	def := models.DemoDefinition{Parameters: make([]models.Parameter, 0)}

	var (
		k        kinds
		params   = newParamCollector()
		inParams bool
		// indentation of the "parameters:" key; anything at or left of it leaves the block
		paramsKeyIndent int
	)

	for _, line := range splitLines(text) {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		indent := indentOf(line)
		item := strings.HasPrefix(trimmed, "-")
		body := trimmed

		if item {
			body = strings.TrimSpace(strings.TrimPrefix(trimmed, "-"))
		}

		key, value, isField := splitField(body)

		if inParams && (indent < paramsKeyIndent || (indent == paramsKeyIndent && !item)) {
			inParams = false
		}

		if inParams {
			params.line(indent, item, key, value, isField, body)

			continue
		}

		if !isField {
			continue
		}

		if key == "parameters" && value == "" {
			inParams = true
			paramsKeyIndent = indent

			continue
		}

		setEntryField(&def, &k, key, Unquote(value))
	}

	def.Kind = k.resolve()
	def.Parameters = params.done()

	return def
}

type paramCollector struct {
	params      []models.Parameter
	current     *models.Parameter
	itemIndent  int
	optionsOpen bool
	seen        map[string]struct{}
}

func newParamCollector() *paramCollector {
	return &paramCollector{itemIndent: -1, seen: make(map[string]struct{})}
}

func (c *paramCollector) line(indent int, item bool, key, value string, isField bool, body string) {
	if item && isField && key == "name" && (c.itemIndent < 0 || indent == c.itemIndent) {
		c.flush()

		c.itemIndent = indent
		c.current = &models.Parameter{Type: models.ParameterTypeText, Name: Unquote(value)}
		c.optionsOpen = false

		return
	}

	if c.current == nil {
		return
	}

	if item && c.optionsOpen {
		if option := Unquote(body); option != "" {
			c.current.Options = append(c.current.Options, option)
		}

		return
	}

	if !isField {
		return
	}

	c.optionsOpen = false

	switch key {
	case "default":
		c.current.Default = Coerce(Unquote(value))
	case "options":
		if value == "" {
			c.current.Options = []string{}
			c.optionsOpen = true
		} else {
			c.current.Options = splitInlineList(value)
		}
	default:
		setParameterField(c.current, key, Unquote(value))
	}
}

func (c *paramCollector) flush() {
	if c.current == nil {
		return
	}

	param := *c.current
	c.current = nil

	if param.Name == "" {
		return
	}

	if _, dup := c.seen[param.Name]; dup {
		return
	}

	param.Normalize()

	c.seen[param.Name] = struct{}{}
	c.params = append(c.params, param)
}

func (c *paramCollector) done() []models.Parameter {
	c.flush()

	if c.params == nil {
		return make([]models.Parameter, 0)
	}

	return c.params
}

// splitField splits "key: value" at the first colon. Values may contain further colons.
func splitField(body string) (string, string, bool) {
	key, value, ok := strings.Cut(body, ":")
	if !ok {
		return "", "", false
	}

	key = strings.TrimSpace(key)
	if key == "" || strings.ContainsAny(key, " \t\"'") {
		return "", "", false
	}

	return key, strings.TrimSpace(value), true
}
