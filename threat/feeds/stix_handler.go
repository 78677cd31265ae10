package feeds

import (
	"fmt"
	"sort"
	"strings"

	"github.com/TcM1911/stix2"
	"github.com/tidwall/gjson"
	"github.com/xeipuuv/gojsonschema"
)

// bundleSchema is the minimum shape a bundle needs before it is handed to
// the STIX decoder: typed, identified objects, and a pattern on indicators.
const bundleSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["type", "objects"],
  "properties": {
    "type": {"const": "bundle"},
    "objects": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["type", "id"],
        "properties": {
          "type": {"type": "string"},
          "id": {"type": "string"}
        },
        "if": {"properties": {"type": {"const": "indicator"}}},
        "then": {"required": ["pattern"], "properties": {"pattern": {"type": "string"}}}
      }
    }
  }
}`

var bundleSchemaLoader = gojsonschema.NewStringLoader(bundleSchema)

// =============================================================================
// STIX2 Indicator Handler
// =============================================================================

// STIXHandler parses STIX2 bundles. A strict decode is tried first; if it
// fails for any reason the document is walked leniently for indicator
// objects. Both paths share ParsePattern.
type STIXHandler struct{}

var _ SourceHandler = (*STIXHandler)(nil)

// NewSTIXHandler creates a new STIX2 indicator handler
func NewSTIXHandler() *STIXHandler {
	return &STIXHandler{}
}

// Format returns the source format this handler supports
func (h *STIXHandler) Format() SourceFormat {
	return SourceFormatSTIX
}

// Accepts reports whether name is a .stix2 file
func (h *STIXHandler) Accepts(name string) bool {
	return strings.HasSuffix(name, ExtSTIX2)
}

// Parse returns the field values of every indicator in the bundle
func (h *STIXHandler) Parse(data []byte) ([]FieldValue, error) {
	values, _, err := h.ParseWithFallback(data)
	return values, err
}

// ParseWithFallback is Parse that also reports whether the lenient walk
// was needed.
func (h *STIXHandler) ParseWithFallback(data []byte) (values []FieldValue, fallback bool, err error) {
	patterns, strictErr := parseStrict(data)
	if strictErr == nil {
		return patternValues(patterns), false, nil
	}

	patterns, lenientErr := parseLenient(data)
	if lenientErr != nil {
		return nil, true, fmt.Errorf("strict parse: %v; lenient parse: %w", strictErr, lenientErr)
	}
	return patternValues(patterns), true, nil
}

// parseStrict validates the bundle shape and decodes it with the STIX
// library. Indicators are returned in bundle order.
func parseStrict(data []byte) ([]string, error) {
	result, err := gojsonschema.Validate(bundleSchemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, fmt.Errorf("%w: %s", ErrSchemaViolation, strings.Join(msgs, "; "))
	}

	col, err := stix2.FromJSON(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode STIX bundle: %w", err)
	}

	// The collection is keyed by id; restore document order
	position := make(map[string]int)
	for i, id := range gjson.GetBytes(data, "objects.#.id").Array() {
		position[id.String()] = i
	}
	indicators := col.Indicators()
	sort.SliceStable(indicators, func(i, j int) bool {
		return position[string(indicators[i].ID)] < position[string(indicators[j].ID)]
	})

	patterns := make([]string, 0, len(indicators))
	for _, ind := range indicators {
		patterns = append(patterns, ind.Pattern)
	}
	return patterns, nil
}

// parseLenient walks objects[] for type == "indicator" and collects their
// pattern strings, ignoring everything else about the document.
func parseLenient(data []byte) ([]string, error) {
	if !gjson.ValidBytes(data) {
		return nil, ErrInvalidJSON
	}
	objects := gjson.GetBytes(data, "objects")
	if !objects.IsArray() {
		return nil, ErrNoObjects
	}

	var patterns []string
	for _, obj := range objects.Array() {
		if obj.Get("type").String() != "indicator" {
			continue
		}
		if p := obj.Get("pattern"); p.Type == gjson.String {
			patterns = append(patterns, p.String())
		}
	}
	return patterns, nil
}
