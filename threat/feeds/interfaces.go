package feeds

import (
	"errors"
)

// =============================================================================
// Indicator Source Handler Interface
// =============================================================================

// KeywordSink receives indicator values routed by source field name.
// threat.Builder implements it.
type KeywordSink interface {
	AddField(field, value string) bool
}

// SourceHandler parses one indicator source format
type SourceHandler interface {
	// Format returns the source format this handler supports
	Format() SourceFormat

	// Accepts reports whether a file name belongs to this handler
	Accepts(name string) bool

	// Parse extracts every (field, value) pair from data. It either returns
	// the full set or an error; it never returns a partial set with an error.
	Parse(data []byte) ([]FieldValue, error)
}

// FieldValue is one indicator extracted from a source file
type FieldValue struct {
	Field string
	Value string
}

// =============================================================================
// Errors
// =============================================================================

var (
	// Loading
	ErrInvalidJSON       = errors.New("invalid JSON")
	ErrSchemaViolation   = errors.New("document does not match bundle schema")
	ErrNoObjects         = errors.New("bundle has no objects array")
	ErrUnsupportedFormat = errors.New("unsupported indicator file format")

	// Updating
	ErrIndexFetch        = errors.New("failed to fetch indicators index")
	ErrInvalidIndex      = errors.New("invalid indicators index")
	ErrDownloadFailed    = errors.New("indicator download failed")
	ErrMissingDataDir    = errors.New("data directory is required")
	ErrMissingSourceURL  = errors.New("indicator entry has no download URL")
	ErrUnsupportedScheme = errors.New("unsupported URL scheme")
)
