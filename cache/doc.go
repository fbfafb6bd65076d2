// Package cache provides bounded, thread-safe caches for sharing CPU-side
// resources (meshes, decoded images) between render and worker goroutines.
//
// LRUCache is a single-mutex cache with strict least-recently-used eviction.
// ShardedCache spreads keys over 16 independently locked LRU shards for
// workloads where many goroutines hit the cache at once.
//
// Both are built on the same arena: entries live in a preallocated slice of
// slots linked by index, so inserts and lookups are O(1) and never allocate
// once the cache is warm.
package cache
