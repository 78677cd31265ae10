package threat

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"libmvt/core"

	ac "github.com/anknown/ahocorasick"
)

// ProcessNameTruncation is the comm length the kernel process table keeps.
// Observed names of exactly this many characters may be truncated indicators.
const ProcessNameTruncation = 16

// =============================================================================
// Category Index
// =============================================================================

// CategoryIndex holds the lowercase keywords of one category. It is built once
// and never modified, so concurrent queries need no locking.
type CategoryIndex struct {
	category core.IndicatorCategory
	keywords []string       // indexing order, deduplicated
	rank     map[string]int // keyword -> position in keywords
	sorted   []string       // lexicographic, for prefix lookups
	machine  *ac.Machine    // containment categories only; nil when empty
}

// usesContainment reports whether a category is matched by substring search
func usesContainment(cat core.IndicatorCategory) bool {
	return cat == core.CategoryDomain || cat == core.CategoryURL
}

// newCategoryIndex freezes keywords (already lowercased and deduplicated, in
// indexing order) into an index.
func newCategoryIndex(cat core.IndicatorCategory, keywords []string) (*CategoryIndex, error) {
	idx := &CategoryIndex{
		category: cat,
		keywords: keywords,
		rank:     make(map[string]int, len(keywords)),
		sorted:   make([]string, len(keywords)),
	}
	for i, kw := range keywords {
		idx.rank[kw] = i
	}
	copy(idx.sorted, keywords)
	sort.Strings(idx.sorted)

	if usesContainment(cat) && len(keywords) > 0 {
		dict := make([][]rune, len(idx.sorted))
		for i, kw := range idx.sorted {
			dict[i] = []rune(kw)
		}
		m := new(ac.Machine)
		if err := m.Build(dict); err != nil {
			return nil, fmt.Errorf("failed to build %s automaton: %w", cat, err)
		}
		idx.machine = m
	}

	return idx, nil
}

// Category returns the category this index serves
func (idx *CategoryIndex) Category() core.IndicatorCategory {
	return idx.category
}

// Len returns the number of distinct keywords
func (idx *CategoryIndex) Len() int {
	return len(idx.keywords)
}

// Keywords returns a copy of the keywords in indexing order
func (idx *CategoryIndex) Keywords() []string {
	out := make([]string, len(idx.keywords))
	copy(out, idx.keywords)
	return out
}

// Contains reports whether keyword (any case) is indexed
func (idx *CategoryIndex) Contains(keyword string) bool {
	_, ok := idx.rank[strings.ToLower(keyword)]
	return ok
}

// lookup returns the keywords matching lower under this category's semantics
func (idx *CategoryIndex) lookup(lower string) []string {
	if lower == "" || len(idx.keywords) == 0 {
		return nil
	}
	switch {
	case usesContainment(idx.category):
		return idx.scan(lower)
	case idx.category == core.CategoryProcessName:
		return idx.exactOrTruncated(lower)
	default:
		return idx.exact(lower)
	}
}

type hit struct {
	end  int
	rank int
	word string
}

// scan runs the automaton once over text and returns every occurrence of every
// keyword, ordered by where the occurrence ends, then by indexing order.
func (idx *CategoryIndex) scan(lower string) []string {
	if idx.machine == nil {
		return nil
	}
	terms := idx.machine.MultiPatternSearch([]rune(lower), false)
	if len(terms) == 0 {
		return nil
	}

	hits := make([]hit, 0, len(terms))
	for _, t := range terms {
		word := string(t.Word)
		hits = append(hits, hit{end: t.Pos + len(t.Word), rank: idx.rank[word], word: word})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].end != hits[j].end {
			return hits[i].end < hits[j].end
		}
		return hits[i].rank < hits[j].rank
	})

	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.word
	}
	return out
}

func (idx *CategoryIndex) exact(lower string) []string {
	if _, ok := idx.rank[lower]; ok {
		return []string{lower}
	}
	return nil
}

// exactOrTruncated matches equal keywords, and for observed names at the
// truncation length also every keyword starting with the observed name.
func (idx *CategoryIndex) exactOrTruncated(lower string) []string {
	if utf8.RuneCountInString(lower) != ProcessNameTruncation {
		return idx.exact(lower)
	}

	var out []string
	for i := sort.SearchStrings(idx.sorted, lower); i < len(idx.sorted); i++ {
		kw := idx.sorted[i]
		if !strings.HasPrefix(kw, lower) {
			break
		}
		out = append(out, kw)
	}
	sort.Slice(out, func(i, j int) bool {
		return idx.rank[out[i]] < idx.rank[out[j]]
	})
	return out
}
