package linter

import (
	"crypto/sha256"
	"encoding/hex"
	"slices"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

const minCacheEntries = 16

// ResultCache keeps lint results of unchanged sources
type ResultCache struct {
	cache  *lru.LRU[string, LintResult]
	hits   atomic.Int64
	misses atomic.Int64
}

// NewResultCache creates a cache holding up to size results. A ttl of zero
// keeps entries until they are evicted by size.
func NewResultCache(size int, ttl time.Duration) *ResultCache {
	if size < minCacheEntries {
		size = minCacheEntries
	}
	return &ResultCache{
		cache: lru.NewLRU[string, LintResult](size, nil, ttl),
	}
}

// CacheKey identifies a source under a given configuration fingerprint
func CacheKey(path string, src []byte, fingerprint string) string {
	h := sha256.New()
	h.Write([]byte(path))
	h.Write([]byte{0})
	h.Write(src)
	h.Write([]byte{0})
	h.Write([]byte(fingerprint))
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns a copy of the cached result for key
func (c *ResultCache) Get(key string) (LintResult, bool) {
	result, ok := c.cache.Get(key)
	if !ok {
		c.misses.Add(1)
		return LintResult{}, false
	}
	c.hits.Add(1)
	result.Violations = slices.Clone(result.Violations)
	return result, true
}

// Add stores result under key
func (c *ResultCache) Add(key string, result LintResult) {
	result.Violations = slices.Clone(result.Violations)
	c.cache.Add(key, result)
}

// Len returns the number of cached results
func (c *ResultCache) Len() int {
	return c.cache.Len()
}

// Stats returns the hit and miss counts
func (c *ResultCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}
