// Package threadid reports the identity of the OS thread running the caller.
//
// Goroutines migrate between threads unless pinned with runtime.LockOSThread,
// so an ID is only meaningful for a locked goroutine. The gfx package locks
// the render goroutine when it creates its context and compares IDs on every
// call that must stay on that thread.
package threadid

// ID identifies an OS thread. Zero means the platform cannot report one.
type ID uint64

// Current returns the ID of the calling OS thread.
func Current() ID { return current() }

// Supported reports whether Current returns real thread identities on this
// platform. When it is false every call returns zero and owner checks pass.
func Supported() bool { return supported }
