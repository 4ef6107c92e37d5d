package render

import (
	"regexp"
	"strings"

	"github.com/pagelift/pagelift-backend/internal/snapshot"
)

var placeholderRe = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_.-]+)\s*\}\}`)

// LayerTranslations merges translation layers last-writer-wins in the given
// order. Callers pass layers lowest precedence first: per-field schema
// defaults, then default-language content, then requested-language content,
// then the page-type-specific variant. Override is strictly by this
// layering order, never map iteration order.
func LayerTranslations(layers ...snapshot.Fields) snapshot.Fields {
	out := make(snapshot.Fields)
	for _, layer := range layers {
		for name, content := range layer {
			out[name] = content
		}
	}
	return out
}

// Interpolate substitutes {{field}} placeholders in every content value
// with freshly retrieved data. Placeholders without a matching value stay
// in place so editors can see what failed to resolve.
func Interpolate(fields snapshot.Fields, data map[string]string) snapshot.Fields {
	if len(fields) == 0 {
		return fields
	}
	out := make(snapshot.Fields, len(fields))
	for name, content := range fields {
		out[name] = interpolateOne(content, data)
	}
	return out
}

func interpolateOne(content string, data map[string]string) string {
	if !strings.Contains(content, "{{") {
		return content
	}
	return placeholderRe.ReplaceAllStringFunc(content, func(m string) string {
		key := placeholderRe.FindStringSubmatch(m)[1]
		if v, ok := data[key]; ok {
			return v
		}
		return m
	})
}
