package concurrent

import "sync"

// Map is a mutex-guarded map.
//
// The zero value is ready to use. Map must not be copied after first use.
type Map[K comparable, V any] struct {
	mu sync.Mutex
	m  map[K]V
}

// NewMap creates an empty map with room for sizeHint entries.
func NewMap[K comparable, V any](sizeHint int) *Map[K, V] {
	return &Map[K, V]{m: make(map[K]V, sizeHint)}
}

// lazyInit allocates the map on first write. Caller must hold mu.
func (c *Map[K, V]) lazyInit() {
	if c.m == nil {
		c.m = make(map[K]V)
	}
}

// Insert stores value under key only if key is absent.
// Returns true if the value was inserted.
func (c *Map[K, V]) Insert(key K, value V) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.m[key]; ok {
		return false
	}
	c.lazyInit()
	c.m[key] = value
	return true
}

// Set stores value under key, replacing any existing value.
func (c *Map[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lazyInit()
	c.m[key] = value
}

// Get returns the value stored under key.
func (c *Map[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.m[key]
	return v, ok
}

// Contains reports whether key is present.
func (c *Map[K, V]) Contains(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.m[key]
	return ok
}

// Delete removes key. Returns the removed value and whether it was present.
func (c *Map[K, V]) Delete(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.m[key]
	if ok {
		delete(c.m, key)
	}
	return v, ok
}

// TryRemoveAny removes and returns an arbitrary entry.
// Returns ok=false if the map is empty.
func (c *Map[K, V]) TryRemoveAny() (key K, value V, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for k, v := range c.m {
		delete(c.m, k)
		return k, v, true
	}
	return key, value, false
}

// Len returns the number of entries.
func (c *Map[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.m)
}

// Snapshot returns a copy of the current contents.
func (c *Map[K, V]) Snapshot() map[K]V {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[K]V, len(c.m))
	for k, v := range c.m {
		out[k] = v
	}
	return out
}

// Clear removes every entry.
func (c *Map[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	clear(c.m)
}
