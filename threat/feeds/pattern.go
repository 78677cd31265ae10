package feeds

import "strings"

// ParsePattern extracts (key, value) from a minimal STIX comparison such as
// [domain-name:value = 'evil.example']. The enclosing brackets and the
// quotes around the value are optional. ok is false when there is no '='.
//
// Only the first '=' splits, so values may themselves contain '='.
func ParsePattern(pattern string) (key, value string, ok bool) {
	p := strings.TrimSpace(pattern)
	if len(p) >= 2 && strings.HasPrefix(p, "[") && strings.HasSuffix(p, "]") {
		p = p[1 : len(p)-1]
	}

	key, value, found := strings.Cut(p, "=")
	if !found {
		return "", "", false
	}
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)
	if len(value) >= 2 && strings.HasPrefix(value, "'") && strings.HasSuffix(value, "'") {
		value = value[1 : len(value)-1]
	}
	return key, value, true
}

// patternValues turns patterns into field values, dropping unparseable ones
func patternValues(patterns []string) []FieldValue {
	out := make([]FieldValue, 0, len(patterns))
	for _, p := range patterns {
		key, value, ok := ParsePattern(p)
		if !ok {
			continue
		}
		out = append(out, FieldValue{Field: key, Value: value})
	}
	return out
}
