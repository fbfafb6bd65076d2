package cache

import (
	"slices"
	"strconv"
	"sync"
	"testing"
)

// =============================================================================
// LRUCache Tests
// =============================================================================

func TestNewLRU(t *testing.T) {
	c := NewLRU[string, int](100)
	if c.Capacity() != 100 {
		t.Errorf("Capacity() = %d, want 100", c.Capacity())
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0", c.Len())
	}

	d := NewLRU[string, int](0)
	if d.Capacity() != DefaultCapacity {
		t.Errorf("Capacity() with 0 = %d, want %d", d.Capacity(), DefaultCapacity)
	}
}

func TestLRUCache_EvictsLeastRecentlyInserted(t *testing.T) {
	const capacity = 4
	c := NewLRU[int, string](capacity)

	for i := range capacity {
		if _, _, evicted := c.Insert(i, strconv.Itoa(i)); evicted {
			t.Fatalf("Insert(%d) evicted below capacity", i)
		}
	}

	k, v, evicted := c.Insert(capacity, "new")
	if !evicted {
		t.Fatal("Insert beyond capacity did not evict")
	}
	if k != 0 || v != "0" {
		t.Errorf("evicted (%d, %q), want (0, \"0\")", k, v)
	}
	if c.Len() != capacity {
		t.Errorf("Len() = %d, want %d", c.Len(), capacity)
	}
	if c.Contains(0) {
		t.Error("evicted key 0 still present")
	}
}

func TestLRUCache_FindPreventsEviction(t *testing.T) {
	const capacity = 4
	c := NewLRU[int, int](capacity)
	for i := range capacity {
		c.Insert(i, i)
	}

	// Touch the oldest key before crossing the capacity boundary.
	if _, ok := c.Find(0); !ok {
		t.Fatal("Find(0) missed")
	}

	k, _, evicted := c.Insert(capacity, capacity)
	if !evicted || k != 1 {
		t.Errorf("evicted key = %d (evicted=%v), want 1", k, evicted)
	}
	if !c.Contains(0) {
		t.Error("key 0 was evicted despite Find")
	}
}

func TestLRUCache_PeekDoesNotPromote(t *testing.T) {
	c := NewLRU[string, int](2)
	c.Insert("a", 1)
	c.Insert("b", 2)

	if v, ok := c.Peek("a"); !ok || v != 1 {
		t.Errorf("Peek(a) = (%d, %v), want (1, true)", v, ok)
	}

	k, _, _ := c.Insert("c", 3)
	if k != "a" {
		t.Errorf("evicted %q, want a (Peek must not promote)", k)
	}
}

func TestLRUCache_InsertExistingPromotesAndUpdates(t *testing.T) {
	c := NewLRU[string, int](2)
	c.Insert("a", 1)
	c.Insert("b", 2)

	if _, _, evicted := c.Insert("a", 10); evicted {
		t.Error("re-inserting an existing key evicted an entry")
	}
	if v, _ := c.Peek("a"); v != 10 {
		t.Errorf("Peek(a) = %d, want 10", v)
	}

	k, _, _ := c.Insert("c", 3)
	if k != "b" {
		t.Errorf("evicted %q, want b", k)
	}
}

func TestLRUCache_KeysOrder(t *testing.T) {
	c := NewLRU[int, int](8)
	for i := range 5 {
		c.Insert(i, i)
	}
	c.Find(2)

	want := []int{2, 4, 3, 1, 0}
	if got := c.Keys(); !slices.Equal(got, want) {
		t.Errorf("Keys() = %v, want %v", got, want)
	}
	if oldest, _ := c.Oldest(); oldest != 0 {
		t.Errorf("Oldest() = %d, want 0", oldest)
	}
}

func TestLRUCache_RemoveReusesSlots(t *testing.T) {
	c := NewLRU[int, int](3)
	for round := range 10 {
		for i := range 3 {
			c.Insert(round*10+i, i)
		}
		for i := range 3 {
			if _, ok := c.Remove(round*10 + i); !ok {
				t.Fatalf("round %d: Remove(%d) missed", round, round*10+i)
			}
		}
		if c.Len() != 0 {
			t.Fatalf("round %d: Len() = %d, want 0", round, c.Len())
		}
	}
	if _, _, ok := c.RemoveOldest(); ok {
		t.Error("RemoveOldest on empty cache returned ok")
	}
}

func TestLRUCache_EvictCallback(t *testing.T) {
	var evicted []string
	c := NewLRU(2, WithEvictCallback(func(k string, _ int) {
		evicted = append(evicted, k)
	}))

	c.Insert("a", 1)
	c.Insert("b", 2)
	c.Insert("c", 3)
	c.Remove("b")
	c.Insert("d", 4)
	c.Insert("e", 5)

	want := []string{"a", "c"}
	if !slices.Equal(evicted, want) {
		t.Errorf("evicted = %v, want %v", evicted, want)
	}
}

func TestLRUCache_Clear(t *testing.T) {
	c := NewLRU[int, int](4)
	for i := range 4 {
		c.Insert(i, i)
	}
	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len() after Clear = %d, want 0", c.Len())
	}
	for i := range 4 {
		if _, _, evicted := c.Insert(i, i); evicted {
			t.Errorf("Insert(%d) after Clear evicted", i)
		}
	}
}

func TestLRUCache_Concurrent(t *testing.T) {
	const capacity = 64
	c := NewLRU[int, int](capacity)
	var wg sync.WaitGroup

	for g := range 16 {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for j := range 500 {
				k := (base*500 + j) % 200
				c.Insert(k, k)
				c.Find(k / 2)
			}
		}(g)
	}
	wg.Wait()

	if c.Len() > capacity {
		t.Errorf("Len() = %d exceeds capacity %d", c.Len(), capacity)
	}
	if got := len(c.Keys()); got != c.Len() {
		t.Errorf("len(Keys()) = %d, Len() = %d", got, c.Len())
	}
}

// =============================================================================
// ShardedCache Tests
// =============================================================================

func TestNewSharded(t *testing.T) {
	c := NewSharded[string, int](100, StringHasher)
	if c == nil {
		t.Fatal("NewSharded returned nil")
	}
	if c.Capacity() != 100 {
		t.Errorf("expected capacity 100, got %d", c.Capacity())
	}
	if c.TotalCapacity() != 100*DefaultShardCount {
		t.Errorf("expected total capacity %d, got %d", 100*DefaultShardCount, c.TotalCapacity())
	}
	if c.Len() != 0 {
		t.Errorf("expected empty cache, got %d entries", c.Len())
	}
}

func TestShardedCacheGetSet(t *testing.T) {
	c := NewSharded[string, int](10, StringHasher)

	c.Set("key1", 42)

	val, ok := c.Get("key1")
	if !ok {
		t.Error("expected key1 to exist")
	}
	if val != 42 {
		t.Errorf("expected 42, got %d", val)
	}

	if _, ok = c.Get("nonexistent"); ok {
		t.Error("expected nonexistent key to not exist")
	}
}

func TestShardedCacheGetOrCreate(t *testing.T) {
	c := NewSharded[string, int](10, StringHasher)
	createCalled := 0

	val := c.GetOrCreate("key1", func() int {
		createCalled++
		return 100
	})
	if val != 100 {
		t.Errorf("expected 100, got %d", val)
	}

	val = c.GetOrCreate("key1", func() int {
		createCalled++
		return 200
	})
	if val != 100 {
		t.Errorf("expected 100 (cached), got %d", val)
	}
	if createCalled != 1 {
		t.Errorf("expected create called once, got %d", createCalled)
	}
}

func TestShardedCacheDelete(t *testing.T) {
	c := NewSharded[string, int](10, StringHasher)
	c.Set("key1", 42)

	if !c.Delete("key1") {
		t.Error("expected Delete to return true for existing key")
	}
	if _, ok := c.Get("key1"); ok {
		t.Error("expected key1 to be deleted")
	}
	if c.Delete("nonexistent") {
		t.Error("expected Delete to return false for non-existing key")
	}
}

func TestShardedCacheClear(t *testing.T) {
	c := NewSharded[string, int](10, StringHasher)
	c.Set("key1", 1)
	c.Set("key2", 2)
	c.Set("key3", 3)

	if c.Len() != 3 {
		t.Errorf("expected 3 entries, got %d", c.Len())
	}
	c.Clear()
	if c.Len() != 0 {
		t.Errorf("expected 0 entries after clear, got %d", c.Len())
	}
}

func TestShardedCacheEviction(t *testing.T) {
	// Identity hashing of multiples of 16 puts every key in shard 0.
	var evicted []uint64
	c := NewSharded(2, Uint64Hasher, WithShardEvictCallback(func(k uint64, _ string) {
		evicted = append(evicted, k)
	}))

	c.Set(0, "a")
	c.Set(16, "b")
	c.Get(0)
	c.Set(32, "c")

	if len(evicted) != 1 || evicted[0] != 16 {
		t.Errorf("evicted = %v, want [16]", evicted)
	}
	if got := c.Stats().Evictions; got != 1 {
		t.Errorf("Evictions = %d, want 1", got)
	}
	if lens := c.ShardLen(); lens[0] != 2 {
		t.Errorf("shard 0 len = %d, want 2", lens[0])
	}
}

func TestShardedCacheStats(t *testing.T) {
	c := NewSharded[string, int](10, StringHasher)
	c.Set("key1", 1)
	c.Set("key2", 2)

	c.Get("key1")        // hit
	c.Get("key1")        // hit
	c.Get("nonexistent") // miss

	stats := c.Stats()
	if stats.Len != 2 {
		t.Errorf("expected Len=2, got %d", stats.Len)
	}
	if stats.Hits != 2 {
		t.Errorf("expected Hits=2, got %d", stats.Hits)
	}
	if stats.Misses != 1 {
		t.Errorf("expected Misses=1, got %d", stats.Misses)
	}

	c.ResetStats()
	stats = c.Stats()
	if stats.Hits != 0 || stats.Misses != 0 || stats.Evictions != 0 {
		t.Errorf("expected zero stats after reset, got hits=%d misses=%d evictions=%d",
			stats.Hits, stats.Misses, stats.Evictions)
	}
}

func TestShardedCacheConcurrent(t *testing.T) {
	c := NewSharded[int, int](100, IntHasher)
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Set(n*100+j, n*100+j)
				c.Get(n*100 + j/2)
			}
		}(i)
	}
	wg.Wait()

	if c.Len() == 0 || c.Len() > c.TotalCapacity() {
		t.Errorf("Len() = %d, want in (0, %d]", c.Len(), c.TotalCapacity())
	}
	lens := c.ShardLen()
	total := 0
	for _, l := range lens {
		if l > c.Capacity() {
			t.Errorf("shard len %d exceeds capacity %d", l, c.Capacity())
		}
		total += l
	}
	if total != c.Len() {
		t.Errorf("shard lengths sum %d != Len() %d", total, c.Len())
	}
}

func TestHashers(t *testing.T) {
	if StringHasher("hello") != StringHasher("hello") {
		t.Error("StringHasher not deterministic")
	}
	if StringHasher("hello") == StringHasher("world") {
		t.Error("StringHasher collision for different strings")
	}
	if IntHasher(42) != IntHasher(42) {
		t.Error("IntHasher not deterministic")
	}
	if IntHasher(42) == IntHasher(43) {
		t.Error("IntHasher collision for different ints")
	}
	if Uint64Hasher(12345) != 12345 {
		t.Errorf("Uint64Hasher expected identity, got %d", Uint64Hasher(12345))
	}
}

// =============================================================================
// Benchmarks
// =============================================================================

func BenchmarkLRUCache_InsertFind(b *testing.B) {
	c := NewLRU[int, int](1024)
	b.ReportAllocs()
	for i := 0; b.Loop(); i++ {
		c.Insert(i&4095, i)
		c.Find((i >> 1) & 4095)
	}
}

func BenchmarkShardedCache_Parallel(b *testing.B) {
	c := NewSharded[int, int](256, IntHasher)
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			c.GetOrCreate(i&8191, func() int { return i })
			i++
		}
	})
}
