package cache

// nilSlot marks the absence of a link in the arena.
const nilSlot int32 = -1

// arenaSlot is one entry of the recency list. Links are slot indices, so
// slots can move when the backing slice grows without invalidating them.
type arenaSlot[K comparable, V any] struct {
	key   K
	value V
	prev  int32
	next  int32
}

// lruArena is a fixed-capacity LRU list stored in a slice of slots.
// The recency list runs head (most recent) to tail (least recent); unused
// slots form a singly linked free list through next.
//
// lruArena is not thread-safe; LRUCache and ShardedCache lock around it.
type lruArena[K comparable, V any] struct {
	slots    []arenaSlot[K, V]
	index    map[K]int32
	head     int32
	tail     int32
	free     int32
	capacity int
}

func newLRUArena[K comparable, V any](capacity int) *lruArena[K, V] {
	a := &lruArena[K, V]{capacity: capacity}
	a.reset()
	return a
}

// reset drops every entry and rebuilds the free list.
func (a *lruArena[K, V]) reset() {
	a.slots = make([]arenaSlot[K, V], a.capacity)
	a.index = make(map[K]int32, a.capacity)
	a.head, a.tail = nilSlot, nilSlot
	for i := range a.slots {
		a.slots[i].prev = nilSlot
		a.slots[i].next = int32(i + 1) //nolint:gosec // capacity fits int32
	}
	if a.capacity > 0 {
		a.slots[a.capacity-1].next = nilSlot
		a.free = 0
	} else {
		a.free = nilSlot
	}
}

func (a *lruArena[K, V]) len() int { return len(a.index) }

// get returns the value for key, promoting it when promote is set.
func (a *lruArena[K, V]) get(key K, promote bool) (V, bool) {
	i, ok := a.index[key]
	if !ok {
		var zero V
		return zero, false
	}
	if promote {
		a.moveToFront(i)
	}
	return a.slots[i].value, true
}

// put inserts or updates key as most recently used. When a new key does
// not fit, the tail is evicted and returned.
func (a *lruArena[K, V]) put(key K, value V) (evictedKey K, evictedValue V, evicted bool) {
	if i, ok := a.index[key]; ok {
		a.slots[i].value = value
		a.moveToFront(i)
		return evictedKey, evictedValue, false
	}
	if a.capacity == 0 {
		return key, value, true
	}

	if a.free == nilSlot {
		evictedKey, evictedValue, evicted = a.removeOldest()
	}

	i := a.free
	a.free = a.slots[i].next
	a.slots[i] = arenaSlot[K, V]{key: key, value: value, prev: nilSlot, next: nilSlot}
	a.pushFront(i)
	a.index[key] = i
	return evictedKey, evictedValue, evicted
}

// remove deletes key and returns its value.
func (a *lruArena[K, V]) remove(key K) (V, bool) {
	i, ok := a.index[key]
	if !ok {
		var zero V
		return zero, false
	}
	v := a.slots[i].value
	a.release(i)
	return v, true
}

// removeOldest evicts the tail entry.
func (a *lruArena[K, V]) removeOldest() (K, V, bool) {
	if a.tail == nilSlot {
		var (
			zk K
			zv V
		)
		return zk, zv, false
	}
	i := a.tail
	k, v := a.slots[i].key, a.slots[i].value
	a.release(i)
	return k, v, true
}

// oldest returns the tail key without touching recency.
func (a *lruArena[K, V]) oldest() (K, bool) {
	if a.tail == nilSlot {
		var zero K
		return zero, false
	}
	return a.slots[a.tail].key, true
}

// keys returns keys from most to least recently used.
func (a *lruArena[K, V]) keys() []K {
	out := make([]K, 0, len(a.index))
	for i := a.head; i != nilSlot; i = a.slots[i].next {
		out = append(out, a.slots[i].key)
	}
	return out
}

// release unlinks slot i, clears it and returns it to the free list.
func (a *lruArena[K, V]) release(i int32) {
	delete(a.index, a.slots[i].key)
	a.unlink(i)
	a.slots[i] = arenaSlot[K, V]{prev: nilSlot, next: a.free}
	a.free = i
}

func (a *lruArena[K, V]) pushFront(i int32) {
	s := &a.slots[i]
	s.prev = nilSlot
	s.next = a.head
	if a.head != nilSlot {
		a.slots[a.head].prev = i
	}
	a.head = i
	if a.tail == nilSlot {
		a.tail = i
	}
}

func (a *lruArena[K, V]) moveToFront(i int32) {
	if a.head == i {
		return
	}
	a.unlink(i)
	a.pushFront(i)
}

func (a *lruArena[K, V]) unlink(i int32) {
	s := &a.slots[i]
	if s.prev != nilSlot {
		a.slots[s.prev].next = s.next
	} else {
		a.head = s.next
	}
	if s.next != nilSlot {
		a.slots[s.next].prev = s.prev
	} else {
		a.tail = s.prev
	}
	s.prev, s.next = nilSlot, nilSlot
}
