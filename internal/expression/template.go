package expression

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/spellang/spel/internal/evalcontext"
)

var templatePattern = regexp.MustCompile(`(\\)?#\{(.*?)\}`)

// RenderTemplate evaluates every #{...} expression in template against the
// given context and splices the results into the literal text. A template
// that consists of exactly one expression returns the expression's value
// unconverted; otherwise the result is a string. \#{...} escapes an
// expression.
func RenderTemplate(template string, ctx evalcontext.EvaluationContext) (any, error) {
	matches := templatePattern.FindAllStringSubmatch(template, -1)
	if len(matches) == 0 {
		return template, nil
	}

	result := template
	for _, match := range matches {
		full := match[0]
		if match[1] != "" {
			result = strings.Replace(result, full, strings.TrimPrefix(full, match[1]), 1)
			continue
		}
		source := strings.TrimSpace(match[2])

		expr, err := Parse(source)
		if err != nil {
			return nil, fmt.Errorf("template expression %s: %w", full, err)
		}
		v, err := expr.ValueWithContext(ctx)
		if err != nil {
			return nil, fmt.Errorf("template expression %s: %w", full, err)
		}

		if len(matches) == 1 && result == full {
			return v, nil
		}
		result = strings.ReplaceAll(result, full, valueToString(v))
	}
	return result, nil
}

// valueToString renders an evaluated value for template splicing.
func valueToString(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return x
	case bool:
		if x {
			return "true"
		}
		return "false"
	case float64:
		return fmt.Sprintf("%g", x)
	case []any:
		parts := make([]string, len(x))
		for i, item := range x {
			parts[i] = valueToString(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + ": " + valueToString(x[k])
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return fmt.Sprintf("%v", x)
	}
}
