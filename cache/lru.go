package cache

import "sync"

// LRUCache is a thread-safe cache holding at most Capacity entries.
//
// Insert of a new key into a full cache evicts the least recently used
// entry. Find and Insert of an existing key promote it to most recently
// used; Peek does not.
//
// LRUCache must not be copied after creation (has mutex).
type LRUCache[K comparable, V any] struct {
	mu      sync.Mutex
	arena   *lruArena[K, V]
	onEvict func(K, V)
}

// LRUOption configures an LRUCache.
type LRUOption[K comparable, V any] func(*LRUCache[K, V])

// WithEvictCallback registers fn to run for every entry evicted by capacity
// pressure. Entries removed with Remove or Clear are not reported.
// fn runs with the cache lock held and must not call back into the cache.
func WithEvictCallback[K comparable, V any](fn func(K, V)) LRUOption[K, V] {
	return func(c *LRUCache[K, V]) {
		c.onEvict = fn
	}
}

// NewLRU creates a cache holding at most capacity entries.
// If capacity <= 0, DefaultCapacity is used.
func NewLRU[K comparable, V any](capacity int, opts ...LRUOption[K, V]) *LRUCache[K, V] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	c := &LRUCache[K, V]{arena: newLRUArena[K, V](capacity)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Insert stores value under key as the most recently used entry.
// If a new key pushes the cache over capacity, the least recently used
// entry is evicted and returned with evicted=true.
func (c *LRUCache[K, V]) Insert(key K, value V) (evictedKey K, evictedValue V, evicted bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	evictedKey, evictedValue, evicted = c.arena.put(key, value)
	if evicted && c.onEvict != nil {
		c.onEvict(evictedKey, evictedValue)
	}
	return evictedKey, evictedValue, evicted
}

// Find returns the value for key and promotes it to most recently used.
func (c *LRUCache[K, V]) Find(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.arena.get(key, true)
}

// Peek returns the value for key without changing its recency.
func (c *LRUCache[K, V]) Peek(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.arena.get(key, false)
}

// Contains reports whether key is cached, without changing its recency.
func (c *LRUCache[K, V]) Contains(key K) bool {
	_, ok := c.Peek(key)
	return ok
}

// Remove deletes key and returns its value.
func (c *LRUCache[K, V]) Remove(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.arena.remove(key)
}

// RemoveOldest evicts and returns the least recently used entry.
func (c *LRUCache[K, V]) RemoveOldest() (K, V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.arena.removeOldest()
}

// Oldest returns the least recently used key without removing it.
func (c *LRUCache[K, V]) Oldest() (K, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.arena.oldest()
}

// Keys returns a copy of the keys ordered from most to least recently used.
func (c *LRUCache[K, V]) Keys() []K {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.arena.keys()
}

// Len returns the number of cached entries.
func (c *LRUCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.arena.len()
}

// Capacity returns the maximum number of entries.
func (c *LRUCache[K, V]) Capacity() int {
	return c.arena.capacity
}

// Clear removes every entry.
func (c *LRUCache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.arena.reset()
}
