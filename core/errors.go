package core

import (
	"errors"
	"fmt"
)

// ErrUnknownCategory is returned when a category name cannot be resolved
var ErrUnknownCategory = errors.New("unknown indicator category")

// =============================================================================
// Backup Error Kinds
// =============================================================================

// ErrorKind is the closed set of failure kinds a backup container can produce
type ErrorKind int

const (
	KindFormat ErrorKind = iota + 1
	KindInvalidPassword
	KindCrypto
	KindDecompression
)

// Sentinels for errors.Is. A *BackupError matches the sentinel of its kind.
var (
	ErrFormat          = errors.New("backup format error")
	ErrInvalidPassword = errors.New("invalid backup password")
	ErrCrypto          = errors.New("backup decryption error")
	ErrDecompression   = errors.New("backup decompression error")
)

// String returns the kind name
func (k ErrorKind) String() string {
	switch k {
	case KindFormat:
		return "FormatError"
	case KindInvalidPassword:
		return "InvalidPassword"
	case KindCrypto:
		return "CryptoError"
	case KindDecompression:
		return "DecompressionError"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindFormat:
		return ErrFormat
	case KindInvalidPassword:
		return ErrInvalidPassword
	case KindCrypto:
		return ErrCrypto
	case KindDecompression:
		return ErrDecompression
	default:
		return nil
	}
}

// BackupError is the typed failure surfaced by every stage of the backup
// pipeline. Callers branch on Kind (or errors.Is against the sentinels).
type BackupError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

// Error implements error
func (e *BackupError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Op)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

// Unwrap exposes the underlying cause
func (e *BackupError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for this error's kind
func (e *BackupError) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// NewBackupError builds a BackupError of the given kind
func NewBackupError(kind ErrorKind, op string, err error) *BackupError {
	return &BackupError{Kind: kind, Op: op, Err: err}
}

// BackupErrorKind extracts the kind from err, or 0 if err is not a backup error
func BackupErrorKind(err error) ErrorKind {
	var be *BackupError
	if errors.As(err, &be) {
		return be.Kind
	}
	return 0
}

// =============================================================================
// Indicator Load Warning
// =============================================================================

// IndicatorLoadWarning describes a single indicator source file that could not
// be read or parsed. It never aborts a load; the file just contributes nothing.
type IndicatorLoadWarning struct {
	Path string
	Err  error
}

// Error implements error
func (w *IndicatorLoadWarning) Error() string {
	return fmt.Sprintf("indicator file %s skipped: %v", w.Path, w.Err)
}

// Unwrap exposes the underlying cause
func (w *IndicatorLoadWarning) Unwrap() error {
	return w.Err
}
