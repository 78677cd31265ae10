package storage

import "errors"

// Storage error constants
var (
	// ErrRunNotFound is returned when a scan run does not exist
	ErrRunNotFound = errors.New("run not found")

	// ErrInvalidRunKind is returned for a run kind other than androidqf or backup
	ErrInvalidRunKind = errors.New("invalid run kind")

	// ErrMigrationDrift is returned when an applied migration changed identity
	ErrMigrationDrift = errors.New("applied migration does not match registry")
)
