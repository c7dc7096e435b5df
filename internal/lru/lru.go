// Package lru provides a bounded least-recently-used cache.
//
// A Cache is meant to sit in front of an expensive lookup, such as parsing
// a record on demand, and is owned by a single goroutine.
package lru

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Stats counts cache activity since creation or the last Purge.
type Stats struct {
	Hits      int
	Misses    int
	Evictions int
}

// Cache is a fixed-capacity map that evicts its least recently used entry.
//
// Recency is tracked per cache: entries are kept in access order, oldest
// first. Cache is not safe for concurrent use.
type Cache[K comparable, V any] struct {
	capacity int
	entries  *orderedmap.OrderedMap[K, V]
	stats    Stats
}

// New returns an empty cache holding at most capacity entries.
//
// A capacity below 1 is treated as 1.
func New[K comparable, V any](capacity int) *Cache[K, V] {
	capacity = max(capacity, 1)
	return &Cache[K, V]{
		capacity: capacity,
		entries:  orderedmap.New[K, V](orderedmap.WithCapacity[K, V](capacity)),
	}
}

// Get returns the value for k and marks it as most recently used.
func (c *Cache[K, V]) Get(k K) (V, bool) {
	v, err := c.entries.GetAndMoveToBack(k)
	if err != nil {
		c.stats.Misses++
		var zero V
		return zero, false
	}
	c.stats.Hits++
	return v, true
}

// Put stores v under k and marks it as most recently used.
//
// When k is new and the cache is full, the least recently used entry is
// evicted first.
func (c *Cache[K, V]) Put(k K, v V) {
	if _, ok := c.entries.Get(k); ok {
		c.entries.Set(k, v)
		_ = c.entries.MoveToBack(k)
		return
	}
	if c.entries.Len() >= c.capacity {
		if oldest := c.entries.Oldest(); oldest != nil {
			c.entries.Delete(oldest.Key)
			c.stats.Evictions++
		}
	}
	c.entries.Set(k, v)
}

// Contains reports whether k is cached without changing its recency.
func (c *Cache[K, V]) Contains(k K) bool {
	_, ok := c.entries.Get(k)
	return ok
}

// Len returns the number of cached entries.
func (c *Cache[K, V]) Len() int {
	return c.entries.Len()
}

// Cap returns the maximum number of entries.
func (c *Cache[K, V]) Cap() int {
	return c.capacity
}

// Purge removes every entry and resets the statistics.
func (c *Cache[K, V]) Purge() {
	c.entries = orderedmap.New[K, V](orderedmap.WithCapacity[K, V](c.capacity))
	c.stats = Stats{}
}

// Stats returns a snapshot of the hit, miss and eviction counters.
func (c *Cache[K, V]) Stats() Stats {
	return c.stats
}
