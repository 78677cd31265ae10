package feeds

import (
	"libmvt/core"
)

// =============================================================================
// Source Formats
// =============================================================================

// SourceFormat identifies an indicator file format
type SourceFormat string

const (
	SourceFormatJSON SourceFormat = "json"  // {"indicators": [...]}
	SourceFormatSTIX SourceFormat = "stix2" // STIX 2.x bundle
)

// File extensions recognised by the loader
const (
	ExtJSON  = ".json"
	ExtSTIX2 = ".stix2"
)

// =============================================================================
// Load Result
// =============================================================================

// FileStats summarises what a single source file contributed
type FileStats struct {
	Path     string       `json:"path"`
	Format   SourceFormat `json:"format"`
	Values   int          `json:"values"`
	Fallback bool         `json:"fallback,omitempty"` // STIX strict parse failed, lenient walk used
}

// LoadResult describes a directory load. Warnings are per-file failures that
// were skipped; they never abort the load.
type LoadResult struct {
	Files    []FileStats                  `json:"files"`
	Warnings []*core.IndicatorLoadWarning `json:"-"`
}

// WarningCount returns the number of skipped files
func (r *LoadResult) WarningCount() int {
	return len(r.Warnings)
}
