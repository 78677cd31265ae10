// Package artifacts parses text artifacts collected from an Android device by
// AndroidQF and checks the values they carry against an indicator matcher.
package artifacts

import (
	"errors"
	"strings"

	"libmvt/core"
)

// ErrUnknownModule is returned for a module name the runner does not know
var ErrUnknownModule = errors.New("unknown artifact module")

// Matcher is anything that can check a string against one indicator category.
// *threat.Indicators and *threat.MatchCache both satisfy it.
type Matcher interface {
	MatchString(text string, cat core.IndicatorCategory) []core.Detection
}

// Artifact is a parser for one kind of device artifact
type Artifact interface {
	// Name is the module name the runner knows the artifact by
	Name() string

	// Parse consumes the raw artifact text, replacing earlier results
	Parse(input string) error

	// Results returns the parsed records
	Results() []map[string]any

	// CheckIndicators returns detections for the parsed records. A nil
	// matcher only runs checks that need no indicators.
	CheckIndicators(m Matcher) []core.Detection
}

// records holds parsed results for the concrete artifacts
type records struct {
	results []map[string]any
}

func (r *records) Results() []map[string]any {
	return r.results
}

func (r *records) reset() {
	r.results = nil
}

func (r *records) add(rec map[string]any) {
	r.results = append(r.results, rec)
}

// checkField matches the string stored under key in every record
func (r *records) checkField(m Matcher, key string, cat core.IndicatorCategory) []core.Detection {
	if m == nil {
		return nil
	}
	var out []core.Detection
	for _, rec := range r.results {
		value, _ := rec[key].(string)
		if value == "" {
			continue
		}
		out = append(out, m.MatchString(value, cat)...)
	}
	return out
}

// splitLines splits on newlines and drops carriage returns
func splitLines(s string) []string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}

// packageOf returns the package part of a "pkg/component" name
func packageOf(component string) string {
	pkg, _, _ := strings.Cut(component, "/")
	return pkg
}
