package feeds

import (
	"fmt"
	"strings"

	"libmvt/core"

	"github.com/tidwall/gjson"
)

// =============================================================================
// JSON Indicator Handler
// =============================================================================

// JSONHandler parses the lenient indicator schema:
//
//	{"indicators": [{"domain-name:value": ["a", "b"], "app:id": "c"}, ...]}
//
// Each field holds a string or an array of strings. Unknown fields are ignored.
type JSONHandler struct{}

var _ SourceHandler = (*JSONHandler)(nil)

// NewJSONHandler creates a new JSON indicator handler
func NewJSONHandler() *JSONHandler {
	return &JSONHandler{}
}

// Format returns the source format this handler supports
func (h *JSONHandler) Format() SourceFormat {
	return SourceFormatJSON
}

// Accepts reports whether name is a .json file
func (h *JSONHandler) Accepts(name string) bool {
	return strings.HasSuffix(name, ExtJSON)
}

// Parse extracts field values collection by collection. Within a collection
// values follow the field vocabulary order of core.IndicatorFields, not the
// order the keys appear in the document.
func (h *JSONHandler) Parse(data []byte) ([]FieldValue, error) {
	if !gjson.ValidBytes(data) {
		return nil, ErrInvalidJSON
	}

	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, fmt.Errorf("%w: top level is not an object", ErrInvalidJSON)
	}

	var out []FieldValue
	root.Get("indicators").ForEach(func(_, collection gjson.Result) bool {
		if !collection.IsObject() {
			return true
		}
		fields := collection.Map()
		for _, field := range core.IndicatorFields() {
			for _, v := range stringValues(fields[field]) {
				out = append(out, FieldValue{Field: field, Value: v})
			}
		}
		return true
	})
	return out, nil
}

// stringValues flattens a string-or-array node into its scalar strings
func stringValues(node gjson.Result) []string {
	if !node.Exists() {
		return nil
	}
	if node.IsArray() {
		var out []string
		for _, item := range node.Array() {
			if s, ok := scalarString(item); ok {
				out = append(out, s)
			}
		}
		return out
	}
	if s, ok := scalarString(node); ok {
		return []string{s}
	}
	return nil
}

func scalarString(node gjson.Result) (string, bool) {
	switch node.Type {
	case gjson.String, gjson.Number:
		s := node.String()
		return s, strings.TrimSpace(s) != ""
	default:
		return "", false
	}
}
