package threat

import (
	"fmt"

	"libmvt/core"
	"libmvt/metrics"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMatchCacheSize bounds the number of memoised queries
const DefaultMatchCacheSize = 4096

// Matcher is anything that can answer indicator queries
type Matcher interface {
	MatchString(text string, cat core.IndicatorCategory) []core.Detection
}

var _ Matcher = (*Indicators)(nil)
var _ Matcher = (*MatchCache)(nil)

type cacheKey struct {
	cat  core.IndicatorCategory
	text string
}

// MatchCache memoises MatchString results. Artifact dumps repeat the same
// package and process names many times, and the engine is immutable, so
// entries never go stale.
type MatchCache struct {
	inner   Matcher
	entries *lru.Cache[cacheKey, []core.Detection]
}

// NewMatchCache wraps inner with an LRU of the given size
func NewMatchCache(inner Matcher, size int) (*MatchCache, error) {
	if size <= 0 {
		size = DefaultMatchCacheSize
	}
	entries, err := lru.New[cacheKey, []core.Detection](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create match cache: %w", err)
	}
	return &MatchCache{inner: inner, entries: entries}, nil
}

// MatchString returns the cached result or queries the wrapped matcher.
// Callers must not modify the returned slice.
func (c *MatchCache) MatchString(text string, cat core.IndicatorCategory) []core.Detection {
	if text == "" {
		return nil
	}
	key := cacheKey{cat: cat, text: text}
	if hits, ok := c.entries.Get(key); ok {
		metrics.MatchCacheLookups.WithLabelValues("hit").Inc()
		return hits
	}
	metrics.MatchCacheLookups.WithLabelValues("miss").Inc()

	hits := c.inner.MatchString(text, cat)
	c.entries.Add(key, hits)
	return hits
}

// Len returns the number of cached queries
func (c *MatchCache) Len() int {
	return c.entries.Len()
}

// Purge drops every cached entry
func (c *MatchCache) Purge() {
	c.entries.Purge()
}
