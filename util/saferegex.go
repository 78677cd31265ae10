package util

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
)

// DefaultRegexTimeout bounds a single match over untrusted device output
const DefaultRegexTimeout = 250 * time.Millisecond

// ErrRegexTimeout is returned when a match exceeds its timeout
var ErrRegexTimeout = errors.New("regex evaluation timeout")

// SafeRegex is a compiled regexp2 pattern with a match timeout. Device dumps
// and message bodies are attacker-controlled, so every match is bounded.
type SafeRegex struct {
	re *regexp2.Regexp
}

// CompileSafe compiles pattern with the given timeout (DefaultRegexTimeout if
// zero). Options are regexp2 flags such as regexp2.IgnoreCase.
func CompileSafe(pattern string, opts regexp2.RegexOptions, timeout time.Duration) (*SafeRegex, error) {
	if pattern == "" {
		return nil, fmt.Errorf("regex pattern cannot be empty")
	}
	re, err := regexp2.Compile(pattern, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to compile regex pattern: %w", err)
	}
	if timeout <= 0 {
		timeout = DefaultRegexTimeout
	}
	re.MatchTimeout = timeout
	return &SafeRegex{re: re}, nil
}

// MustCompileSafe is CompileSafe for package-level patterns
func MustCompileSafe(pattern string, opts regexp2.RegexOptions) *SafeRegex {
	re, err := CompileSafe(pattern, opts, 0)
	if err != nil {
		panic(err)
	}
	return re
}

// String returns the source pattern
func (r *SafeRegex) String() string {
	return r.re.String()
}

// Match reports whether input contains a match
func (r *SafeRegex) Match(input string) (bool, error) {
	ok, err := r.re.MatchString(input)
	if err != nil {
		return false, wrapMatchErr(err)
	}
	return ok, nil
}

// FindSubmatch returns the first match and its groups (index 0 is the whole
// match), or nil when nothing matches.
func (r *SafeRegex) FindSubmatch(input string) ([]string, error) {
	m, err := r.re.FindStringMatch(input)
	if err != nil {
		return nil, wrapMatchErr(err)
	}
	if m == nil {
		return nil, nil
	}
	groups := m.Groups()
	out := make([]string, len(groups))
	for i, g := range groups {
		out[i] = g.String()
	}
	return out, nil
}

// FindAll returns every non-overlapping match in input
func (r *SafeRegex) FindAll(input string) ([]string, error) {
	var out []string
	m, err := r.re.FindStringMatch(input)
	for m != nil && err == nil {
		out = append(out, m.String())
		m, err = r.re.FindNextMatch(m)
	}
	if err != nil {
		return out, wrapMatchErr(err)
	}
	return out, nil
}

func wrapMatchErr(err error) error {
	if strings.Contains(strings.ToLower(err.Error()), "timeout") {
		return fmt.Errorf("%w: %v", ErrRegexTimeout, err)
	}
	return fmt.Errorf("regex matching error: %w", err)
}
