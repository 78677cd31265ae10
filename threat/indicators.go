package threat

import (
	"fmt"
	"strings"

	"libmvt/core"
	"libmvt/metrics"
)

// =============================================================================
// Indicators Builder
// =============================================================================

// Builder collects keywords during the single-threaded load phase. It is not
// safe for concurrent use; call Build once loading is complete.
type Builder struct {
	keywords map[core.IndicatorCategory][]string
	seen     map[core.IndicatorCategory]map[string]struct{}
}

// NewBuilder creates an empty builder
func NewBuilder() *Builder {
	b := &Builder{
		keywords: make(map[core.IndicatorCategory][]string, len(core.AllIndicatorCategories)),
		seen:     make(map[core.IndicatorCategory]map[string]struct{}, len(core.AllIndicatorCategories)),
	}
	for _, cat := range core.AllIndicatorCategories {
		b.seen[cat] = make(map[string]struct{})
	}
	return b
}

// Add lowercases value and inserts it into the category's index. Blank values
// and case-variant duplicates are ignored. It reports whether value was new.
func (b *Builder) Add(cat core.IndicatorCategory, value string) bool {
	if strings.TrimSpace(value) == "" {
		return false
	}
	seen, ok := b.seen[cat]
	if !ok {
		return false
	}
	kw := strings.ToLower(value)
	if _, dup := seen[kw]; dup {
		return false
	}
	seen[kw] = struct{}{}
	b.keywords[cat] = append(b.keywords[cat], kw)
	return true
}

// AddField routes a value by its source field name ("app:id", ...). Unknown
// fields are ignored.
func (b *Builder) AddField(field, value string) bool {
	cat, ok := core.CategoryForField(field)
	if !ok {
		return false
	}
	return b.Add(cat, value)
}

// Len returns the number of keywords collected for a category
func (b *Builder) Len(cat core.IndicatorCategory) int {
	return len(b.keywords[cat])
}

// Build freezes the collected keywords into an immutable Indicators engine
func (b *Builder) Build() (*Indicators, error) {
	ind := &Indicators{
		indexes: make(map[core.IndicatorCategory]*CategoryIndex, len(core.AllIndicatorCategories)),
	}
	for _, cat := range core.AllIndicatorCategories {
		kws := make([]string, len(b.keywords[cat]))
		copy(kws, b.keywords[cat])
		idx, err := newCategoryIndex(cat, kws)
		if err != nil {
			return nil, err
		}
		ind.indexes[cat] = idx
		metrics.IndicatorsLoaded.WithLabelValues(string(cat)).Add(float64(len(kws)))
	}
	return ind, nil
}

// =============================================================================
// Matching Engine
// =============================================================================

// Indicators is the read-only matching engine over the five category
// indexes. All methods are safe for concurrent use.
type Indicators struct {
	indexes map[core.IndicatorCategory]*CategoryIndex
}

// Empty returns an engine with no indicators
func Empty() *Indicators {
	ind, _ := NewBuilder().Build()
	return ind
}

// MatchString checks text against the category's indicators. Matching is
// case-insensitive:
//   - Domain, URL: every indexed keyword occurring in text, overlaps included
//   - AppID, PropertyName: exact equality
//   - ProcessName: exact equality, or keyword prefix when text is exactly
//     ProcessNameTruncation characters long
//
// Empty text yields no detections.
func (i *Indicators) MatchString(text string, cat core.IndicatorCategory) []core.Detection {
	if text == "" || i == nil {
		return nil
	}
	idx, ok := i.indexes[cat]
	if !ok {
		return nil
	}

	words := idx.lookup(strings.ToLower(text))
	if len(words) == 0 {
		return nil
	}

	detections := make([]core.Detection, len(words))
	for n, w := range words {
		detections[n] = core.Detection{Category: cat, Indicator: w, Observed: text}
	}
	metrics.Detections.WithLabelValues(string(cat)).Add(float64(len(detections)))
	return detections
}

// Index returns the index for a category
func (i *Indicators) Index(cat core.IndicatorCategory) (*CategoryIndex, error) {
	idx, ok := i.indexes[cat]
	if !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrUnknownCategory, cat)
	}
	return idx, nil
}

// Count returns the number of keywords indexed for a category
func (i *Indicators) Count(cat core.IndicatorCategory) int {
	if idx, ok := i.indexes[cat]; ok {
		return idx.Len()
	}
	return 0
}

// Total returns the number of keywords across all categories
func (i *Indicators) Total() int {
	total := 0
	for _, idx := range i.indexes {
		total += idx.Len()
	}
	return total
}
