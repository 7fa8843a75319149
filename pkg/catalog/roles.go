package catalog

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	labelSuffix       = "_label"
	descriptionSuffix = "_description"
)

var assignment = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)\s*:\s*(.*)$`)

// RoleVariable is a top-level variable found in a role's defaults file.
type RoleVariable struct {
	Name         string `json:"name"`
	DefaultValue any    `json:"default_value"`
	Label        string `json:"label,omitempty"`
	Description  string `json:"description,omitempty"`
}

// DiscoverRoleVariables scans a role defaults file for top-level assignments.
//
// Keys ending in _label or _description attach to an earlier variable of the base
// name; with no such variable they are ordinary variables. Literal (|) and folded (>)
// blocks are captured verbatim with their common indentation removed.
func DiscoverRoleVariables(content string) []RoleVariable {
	lines := splitLines(content)
	vars := make([]RoleVariable, 0)
	index := make(map[string]int)

	for i := 0; i < len(lines); i++ {
		line := lines[i]

		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") || trimmed == "---" || trimmed == "..." {
			continue
		}

		if indentOf(line) > 0 {
			continue
		}

		m := assignment.FindStringSubmatch(trimmed)
		if m == nil {
			continue
		}

		key, raw := m[1], strings.TrimSpace(m[2])

		var value any

		switch {
		case isBlockIndicator(raw):
			block, next := captureBlock(lines, i+1)
			value = block
			i = next - 1
		case raw == "":
			value = ""
		default:
			value = Coerce(Unquote(stripComment(raw)))
		}

		if base, ok := strings.CutSuffix(key, labelSuffix); ok {
			if idx, seen := index[base]; seen {
				vars[idx].Label = fmt.Sprint(value)

				continue
			}
		}

		if base, ok := strings.CutSuffix(key, descriptionSuffix); ok {
			if idx, seen := index[base]; seen {
				vars[idx].Description = fmt.Sprint(value)

				continue
			}
		}

		if idx, seen := index[key]; seen {
			vars[idx].DefaultValue = value

			continue
		}

		index[key] = len(vars)
		vars = append(vars, RoleVariable{Name: key, DefaultValue: value})
	}

	return vars
}

func isBlockIndicator(raw string) bool {
	if raw == "" || (raw[0] != '|' && raw[0] != '>') {
		return false
	}

	rest := strings.TrimSpace(stripComment(raw[1:]))

	return strings.Trim(rest, "+-0123456789") == ""
}

// captureBlock collects the indented lines starting at start and returns the block
// text plus the index of the first line that is not part of it.
func captureBlock(lines []string, start int) (string, int) {
	end := start
	for end < len(lines) {
		if strings.TrimSpace(lines[end]) != "" && indentOf(lines[end]) == 0 {
			break
		}

		end++
	}

	body := lines[start:end]
	for len(body) > 0 && strings.TrimSpace(body[len(body)-1]) == "" {
		body = body[:len(body)-1]
	}

	strip := -1

	for _, l := range body {
		if strings.TrimSpace(l) != "" {
			strip = indentOf(l)

			break
		}
	}

	out := make([]string, 0, len(body))

	for _, l := range body {
		switch {
		case strings.TrimSpace(l) == "":
			out = append(out, "")
		case indentOf(l) >= strip:
			out = append(out, l[strip:])
		default:
			out = append(out, strings.TrimLeft(l, " \t"))
		}
	}

	return strings.Join(out, "\n"), end
}

// stripComment drops a trailing " #..." comment outside of quotes.
func stripComment(raw string) string {
	var quote byte

	for i := 0; i < len(raw); i++ {
		c := raw[i]

		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '#' && (i == 0 || raw[i-1] == ' ' || raw[i-1] == '\t'):
			return strings.TrimSpace(raw[:i])
		}
	}

	return strings.TrimSpace(raw)
}
