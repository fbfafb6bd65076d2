// Package concurrent provides mutex-guarded containers for handing data
// between the render goroutine and pool workers.
//
// Every container wraps exactly one sync.Mutex around an ordinary Go
// container and exposes compound operations (insert-if-absent,
// remove-any, snapshot) that complete under a single lock acquisition.
// No iterator or reference into the underlying storage escapes the lock:
// traversal-style operations return copies.
//
// There is no lock spanning two containers. An operation that touches two
// containers is two critical sections and callers must tolerate the
// interleaving between them.
package concurrent
