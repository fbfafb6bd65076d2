// Package parallel provides the engine's CPU concurrency layer: a fixed
// ThreadPool with strict priority scheduling and futures, and a WorkSet that
// deduplicates submissions by key on top of it.
//
// # Scheduling
//
// Workers block on a condition variable while idle. On wake a worker takes
// the oldest task of the highest non-empty priority level, so ordering is
// strict across levels and FIFO within a level. A running task is never
// preempted.
//
// # Shutdown
//
// Shutdown stops the pool, wakes every worker and joins them. Tasks still
// queued are dropped, not run: their futures resolve with ErrPoolStopped.
//
// # Work sets
//
// A WorkSet allows at most one queued task per key. The key is freed when
// the task starts running, not when it finishes, so the same key may be
// queued again while a previous run is still in progress. Callers that need
// completion-based deduplication keep results with SubmitAndSaveResult and
// harvest them with DiscardFinished.
package parallel
