package search

import (
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Cache is a TTL-bounded LRU in front of the whole pipeline. Entries are
// immutable once written and overwritten wholesale, never mutated in place;
// the underlying expirable LRU drops stale entries lazily on access and in
// a background sweep. Nothing is persisted: the cache rebuilds from empty
// on restart.
type Cache struct {
	lru *expirable.LRU[string, []RankedChunk]
}

func NewCache(size int, ttl time.Duration) *Cache {
	return &Cache{lru: expirable.NewLRU[string, []RankedChunk](size, nil, ttl)}
}

// CacheKey hashes the normalized query, detected intent, and parameter set.
// The same question with a different intent or limit is a different entry.
func CacheKey(normalizedQuery string, intent Intent, p IntentParams) string {
	h := sha256.Sum256(fmt.Appendf(nil, "%s|%s|%d|%d|%.4f",
		normalizedQuery, intent, p.Limit, p.RerankCandidates, p.MinScore))
	return fmt.Sprintf("%x", h)
}

func (c *Cache) Get(key string) ([]RankedChunk, bool) {
	return c.lru.Get(key)
}

func (c *Cache) Set(key string, results []RankedChunk) {
	c.lru.Add(key, results)
}

func (c *Cache) Len() int {
	return c.lru.Len()
}
