package util

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// MaxInputPathLength bounds paths accepted from the command line
const MaxInputPathLength = 2048

// ErrInvalidPath indicates an input path was empty or malformed
var ErrInvalidPath = errors.New("invalid path")

// ResolveInputPath cleans a user-supplied acquisition or backup path and
// makes it absolute. Relative segments are allowed: the path names local
// evidence, not a location inside a managed directory.
func ResolveInputPath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("%w: path cannot be empty", ErrInvalidPath)
	}
	if len(path) > MaxInputPathLength {
		return "", fmt.Errorf("%w: path exceeds %d characters", ErrInvalidPath, MaxInputPathLength)
	}
	if strings.Contains(path, "\x00") {
		return "", fmt.Errorf("%w: null bytes not allowed in path", ErrInvalidPath)
	}

	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}
	return abs, nil
}
