package core

import (
	"fmt"
	"strings"
)

// =============================================================================
// Indicator Categories
// =============================================================================

// IndicatorCategory selects the index a keyword lives in and the match
// semantics applied when querying it.
type IndicatorCategory string

const (
	CategoryDomain       IndicatorCategory = "domain"
	CategoryURL          IndicatorCategory = "url"
	CategoryProcessName  IndicatorCategory = "process_name"
	CategoryAppID        IndicatorCategory = "app_id"
	CategoryPropertyName IndicatorCategory = "property_name"
)

// AllIndicatorCategories lists every category in indexing order
var AllIndicatorCategories = []IndicatorCategory{
	CategoryDomain, CategoryURL, CategoryProcessName, CategoryAppID, CategoryPropertyName,
}

// IsValid checks if the category is one of the known categories
func (c IndicatorCategory) IsValid() bool {
	switch c {
	case CategoryDomain, CategoryURL, CategoryProcessName, CategoryAppID, CategoryPropertyName:
		return true
	default:
		return false
	}
}

// String returns the string representation
func (c IndicatorCategory) String() string {
	return string(c)
}

// ParseIndicatorCategory accepts the canonical names plus a few aliases used
// on the command line ("process", "app", "property").
func ParseIndicatorCategory(s string) (IndicatorCategory, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "domain", "domain-name", "ipv4-addr":
		return CategoryDomain, nil
	case "url":
		return CategoryURL, nil
	case "process", "process_name", "process-name":
		return CategoryProcessName, nil
	case "app", "app_id", "app-id", "appid":
		return CategoryAppID, nil
	case "property", "property_name", "android-property":
		return CategoryPropertyName, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
}

// =============================================================================
// Indicator Field Vocabulary
// =============================================================================

// Field names shared by the JSON indicator schema and STIX2 patterns
const (
	FieldDomainName      = "domain-name:value"
	FieldIPv4Addr        = "ipv4-addr:value"
	FieldURL             = "url:value"
	FieldProcessName     = "process:name"
	FieldAppID           = "app:id"
	FieldAndroidProperty = "android-property:name"
)

// indicatorFields maps the source vocabulary onto categories
var indicatorFields = map[string]IndicatorCategory{
	FieldDomainName:      CategoryDomain,
	FieldIPv4Addr:        CategoryDomain,
	FieldURL:             CategoryURL,
	FieldProcessName:     CategoryProcessName,
	FieldAppID:           CategoryAppID,
	FieldAndroidProperty: CategoryPropertyName,
}

// IndicatorFields returns the field names in a stable order
func IndicatorFields() []string {
	return []string{
		FieldDomainName, FieldIPv4Addr, FieldURL,
		FieldProcessName, FieldAppID, FieldAndroidProperty,
	}
}

// CategoryForField resolves a source field name. Unknown fields report false.
func CategoryForField(field string) (IndicatorCategory, bool) {
	cat, ok := indicatorFields[field]
	return cat, ok
}

// =============================================================================
// Detection
// =============================================================================

// Detection records a single indicator hit. Detections are only produced by
// the matching engine and never mutated afterwards.
type Detection struct {
	Category  IndicatorCategory `json:"category"`
	Indicator string            `json:"indicator"`
	Observed  string            `json:"observed"`
}

// String renders the detection for logs and CLI output
func (d Detection) String() string {
	return fmt.Sprintf("%s %q matched by %q", d.Category, d.Observed, d.Indicator)
}
