package search

import (
	"strings"
	"sync"
)

// Cache holds the current index and rebuilds it only when the row collection
// version, the key set or the threshold changes.
type Cache[R any] struct {
	mu     sync.Mutex
	build  Builder[R]
	index  Index[R]
	key    cacheKey
	builds int
	hasAny bool
}

type cacheKey struct {
	dataVersion int64
	keys        string
	threshold   float64
}

// NewCache creates a cache using build, or the fuzzy builder when nil.
func NewCache[R any](build Builder[R]) *Cache[R] {
	if build == nil {
		build = Fuzzy[R]
	}
	return &Cache[R]{build: build}
}

// Get returns an index for rows at dataVersion, rebuilding if needed.
func (c *Cache[R]) Get(dataVersion int64, rows []R, fields []Field[R], threshold float64) Index[R] {
	keys := make([]string, len(fields))
	for i, f := range fields {
		keys[i] = f.Key
	}
	k := cacheKey{
		dataVersion: dataVersion,
		keys:        strings.Join(keys, "\x00"),
		threshold:   threshold,
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hasAny && c.key == k {
		return c.index
	}
	c.index = c.build(rows, fields, threshold)
	c.key = k
	c.hasAny = true
	c.builds++
	return c.index
}

// Builds returns how many times the index has been (re)built.
func (c *Cache[R]) Builds() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.builds
}
