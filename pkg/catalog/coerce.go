package catalog

import (
	"regexp"
	"strconv"
	"strings"
)

var numericLiteral = regexp.MustCompile(`^[-+]?(\d+\.?\d*|\.\d+)([eE][-+]?\d+)?$`)

// Coerce types a raw scalar: the literals true and false become booleans, a fully
// numeric literal becomes a float64, anything else stays a string.
func Coerce(raw string) any {
	value := strings.TrimSpace(raw)

	switch value {
	case "true":
		return true
	case "false":
		return false
	}

	if numericLiteral.MatchString(value) {
		if num, err := strconv.ParseFloat(value, 64); err == nil {
			return num
		}
	}

	return value
}

// Unquote strips one pair of matching surrounding quotes.
func Unquote(raw string) string {
	value := strings.TrimSpace(raw)
	if len(value) >= 2 {
		first, last := value[0], value[len(value)-1]
		if (first == '"' || first == '\'') && first == last {
			return value[1 : len(value)-1]
		}
	}

	return value
}

// splitInlineList turns "[a, 'b', c]" or "a, b, c" into its ordered items.
func splitInlineList(raw string) []string {
	value := strings.TrimSpace(raw)
	value = strings.TrimPrefix(value, "[")
	value = strings.TrimSuffix(value, "]")

	items := make([]string, 0)

	for _, part := range strings.Split(value, ",") {
		item := Unquote(part)
		if item != "" {
			items = append(items, item)
		}
	}

	return items
}

func indentOf(line string) int {
	return len(line) - len(strings.TrimLeft(line, " \t"))
}

func splitLines(text string) []string {
	return strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
}
