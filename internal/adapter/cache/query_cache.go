// Package cache keeps recent query results for an opened store.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"docrag/internal/domain"
)

// QueryCache maps trimmed query text to ranked results. Entries expire
// after ttl; a store is read-only while open, so nothing else invalidates.
type QueryCache struct {
	lru *expirable.LRU[string, []domain.QueryResult]
}

// NewQueryCache creates a cache. A size <= 0 returns nil, which is a valid
// disabled cache.
func NewQueryCache(size int, ttl time.Duration) *QueryCache {
	if size <= 0 {
		return nil
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &QueryCache{lru: expirable.NewLRU[string, []domain.QueryResult](size, nil, ttl)}
}

func cacheKey(query string) string {
	hash := sha256.Sum256([]byte(strings.TrimSpace(query)))
	return hex.EncodeToString(hash[:16])
}

// Get returns a copy of the cached results for query.
func (c *QueryCache) Get(query string) ([]domain.QueryResult, bool) {
	if c == nil {
		return nil, false
	}
	results, ok := c.lru.Get(cacheKey(query))
	if !ok {
		return nil, false
	}
	return append([]domain.QueryResult(nil), results...), true
}

// Put stores a copy of results for query.
func (c *QueryCache) Put(query string, results []domain.QueryResult) {
	if c == nil {
		return
	}
	c.lru.Add(cacheKey(query), append([]domain.QueryResult(nil), results...))
}

// Len returns the number of live entries.
func (c *QueryCache) Len() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}
