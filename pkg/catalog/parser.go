// Package catalog turns the declarative demo catalog and role defaults files into
// validated demo definitions.
package catalog

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dukex/demodeck/pkg/models"
	"gopkg.in/yaml.v3"
)

var entryMarker = regexp.MustCompile(`^(\s*)-\s*id\s*:`)

// Diagnostic explains why part of the catalog was ignored.
type Diagnostic struct {
	Line   int
	Reason string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("line %d: %s", d.Line, d.Reason)
}

// Parse reads catalog text into demo definitions. Malformed entries are dropped.
func Parse(text string) []models.DemoDefinition {
	defs, _ := ParseWithDiagnostics(text)

	return defs
}

// ParseWithDiagnostics is Parse plus the reasons entries were dropped.
//
// The first pass splits the text into entry blocks, each starting at a list item whose
// first key is id at entry-level indentation. The second pass decodes every block on
// its own, so a broken entry never takes its neighbours down with it.
func ParseWithDiagnostics(text string) ([]models.DemoDefinition, []Diagnostic) {
	defs := make([]models.DemoDefinition, 0)
	seen := make(map[string]struct{})

	var diags []Diagnostic

	for _, block := range splitEntries(text) {
		def, reason := decodeEntry(block.text)
		if reason != "" {
			diags = append(diags, Diagnostic{Line: block.line, Reason: reason})

			continue
		}

		if _, dup := seen[def.ID]; dup {
			diags = append(diags, Diagnostic{Line: block.line, Reason: "duplicate id " + def.ID})

			continue
		}

		seen[def.ID] = struct{}{}
		defs = append(defs, def)
	}

	return defs, diags
}

type entryBlock struct {
	line int
	text string
}

func splitEntries(text string) []entryBlock {
	var (
		blocks  []entryBlock
		current []string
		start   int
	)

	entryIndent := -1

	flush := func() {
		if current != nil {
			blocks = append(blocks, entryBlock{line: start, text: strings.Join(current, "\n")})
			current = nil
		}
	}

	for i, line := range splitLines(text) {
		if m := entryMarker.FindStringSubmatch(line); m != nil {
			indent := len(m[1])
			if entryIndent < 0 || indent <= entryIndent {
				flush()

				entryIndent = indent
				start = i + 1
				current = []string{line}

				continue
			}
		}

		if current == nil {
			continue
		}

		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			current = append(current, line)

			continue
		}

		indent := indentOf(line)
		if indent < entryIndent || (indent == entryIndent && !strings.HasPrefix(trimmed, "-")) {
			flush()

			continue
		}

		current = append(current, line)
	}

	flush()

	return blocks
}

func decodeEntry(text string) (models.DemoDefinition, string) {
	var doc yaml.Node

	err := yaml.Unmarshal([]byte(text), &doc)
	if err != nil {
		// Unquoted values such as "description: nginx: a web server" are not valid YAML;
		// such entries are read field by field instead.
		def := decodeLines(text)
		if !def.Complete() {
			return models.DemoDefinition{}, "invalid entry " + quoteID(def.ID) + ": " + err.Error()
		}

		return def, ""
	}

	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return models.DemoDefinition{}, "empty entry"
	}

	list := doc.Content[0]
	if list.Kind != yaml.SequenceNode || len(list.Content) == 0 || list.Content[0].Kind != yaml.MappingNode {
		return models.DemoDefinition{}, "entry is not a mapping"
	}

	def := decodeDefinition(list.Content[0])
	if !def.Complete() {
		return models.DemoDefinition{}, "entry " + quoteID(def.ID) + " is missing id, name, type or path"
	}

	return def, ""
}

// kinds remembers an explicit type and one implied by a playbook or role key.
type kinds struct {
	explicit, implied models.DemoKind
}

func (k kinds) resolve() models.DemoKind {
	if k.explicit != "" {
		return k.explicit
	}

	return k.implied
}

// setEntryField applies a scalar entry field and reports whether key was one.
func setEntryField(def *models.DemoDefinition, k *kinds, key, value string) bool {
	switch key {
	case "id":
		def.ID = value
	case "name":
		def.Name = value
	case "description":
		def.Description = value
	case "type", "kind":
		k.explicit = models.DemoKind(strings.ToLower(value))
	case "path":
		def.Path = value
	case "playbook":
		def.Path = value
		k.implied = models.DemoKindPlaybook
	case "role":
		def.Path = value
		k.implied = models.DemoKindRole
	default:
		return false
	}

	return true
}

func setParameterField(param *models.Parameter, key, value string) {
	switch key {
	case "name":
		param.Name = value
	case "label":
		param.Label = value
	case "description":
		param.Description = value
	case "type":
		param.Type = models.ParameterType(strings.ToLower(value))
	case "required":
		param.Required = Coerce(value) == true
	}
}

func decodeDefinition(node *yaml.Node) models.DemoDefinition {
	def := models.DemoDefinition{Parameters: make([]models.Parameter, 0)}

	var k kinds

	forEachPair(node, func(key string, value *yaml.Node) {
		if key == "parameters" {
			def.Parameters = decodeParameters(value)

			return
		}

		setEntryField(&def, &k, key, scalar(value))
	})

	def.Kind = k.resolve()

	return def
}

func decodeParameters(node *yaml.Node) []models.Parameter {
	params := make([]models.Parameter, 0)
	if node.Kind != yaml.SequenceNode {
		return params
	}

	seen := make(map[string]struct{})

	for _, item := range node.Content {
		if item.Kind != yaml.MappingNode {
			continue
		}

		param := decodeParameter(item)
		if param.Name == "" {
			continue
		}

		if _, dup := seen[param.Name]; dup {
			continue
		}

		seen[param.Name] = struct{}{}
		params = append(params, param)
	}

	return params
}

func decodeParameter(node *yaml.Node) models.Parameter {
	param := models.Parameter{Type: models.ParameterTypeText}

	forEachPair(node, func(key string, value *yaml.Node) {
		switch key {
		case "default":
			param.Default = decodeDefault(value)
		case "options":
			param.Options = decodeOptions(value)
		default:
			setParameterField(&param, key, scalar(value))
		}
	})

	param.Normalize()

	return param
}

func decodeDefault(node *yaml.Node) any {
	if node.Kind == yaml.ScalarNode {
		if node.Tag == "!!null" {
			return nil
		}

		return Coerce(node.Value)
	}

	var value any
	if err := node.Decode(&value); err != nil {
		return nil
	}

	return value
}

// decodeOptions accepts a flow list, a block list or a comma separated scalar.
func decodeOptions(node *yaml.Node) []string {
	switch node.Kind {
	case yaml.SequenceNode:
		options := make([]string, 0, len(node.Content))
		for _, item := range node.Content {
			if item.Kind == yaml.ScalarNode && item.Value != "" {
				options = append(options, item.Value)
			}
		}

		return options
	case yaml.ScalarNode:
		return splitInlineList(node.Value)
	default:
		return nil
	}
}

func forEachPair(node *yaml.Node, fn func(key string, value *yaml.Node)) {
	for i := 0; i+1 < len(node.Content); i += 2 {
		fn(strings.TrimSpace(node.Content[i].Value), node.Content[i+1])
	}
}

func scalar(node *yaml.Node) string {
	if node.Kind != yaml.ScalarNode || node.Tag == "!!null" {
		return ""
	}

	return strings.TrimSpace(node.Value)
}

func quoteID(id string) string {
	if id == "" {
		return "(no id)"
	}

	return fmt.Sprintf("%q", id)
}
