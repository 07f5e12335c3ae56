// Package cache keeps per-file analysis results between runs of a
// long-lived engine, keyed by path and validated by a content hash.
package cache

import (
	"encoding/hex"
	"sync"

	"github.com/zeebo/blake3"
)

// Cache maps a key to a value computed from content with a known hash.
// It is safe for concurrent use.
type Cache[T any] struct {
	mu      sync.RWMutex
	entries map[string]entry[T]
	hits    int
	misses  int
}

type entry[T any] struct {
	hash  string
	value T
}

// Stats reports cache effectiveness since creation.
type Stats struct {
	Entries int `json:"entries"`
	Hits    int `json:"hits"`
	Misses  int `json:"misses"`
}

// New creates an empty cache.
func New[T any]() *Cache[T] {
	return &Cache[T]{entries: make(map[string]entry[T])}
}

// HashBytes computes a BLAKE3 hash of bytes and returns it as a hex string.
func HashBytes(data []byte) string {
	hash := blake3.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// Get returns the value stored for key only if it was stored with hash.
func (c *Cache[T]) Get(key, hash string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || e.hash != hash {
		c.misses++
		var zero T
		return zero, false
	}
	c.hits++
	return e.value, true
}

// Set stores value for key, replacing any previous entry.
func (c *Cache[T]) Set(key, hash string, value T) {
	c.mu.Lock()
	c.entries[key] = entry[T]{hash: hash, value: value}
	c.mu.Unlock()
}

// Retain drops every entry whose key is not in keep, so deleted files do
// not accumulate.
func (c *Cache[T]) Retain(keep map[string]bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		if !keep[key] {
			delete(c.entries, key)
		}
	}
}

// Clear removes all entries and resets the counters.
func (c *Cache[T]) Clear() {
	c.mu.Lock()
	clear(c.entries)
	c.hits, c.misses = 0, 0
	c.mu.Unlock()
}

// GetStats returns the current entry count and hit counters.
func (c *Cache[T]) GetStats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{Entries: len(c.entries), Hits: c.hits, Misses: c.misses}
}
