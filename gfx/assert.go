package gfx

import "fmt"

// Assert panics with a formatted message when cond is false. It guards
// programmer contracts: wrong thread, index out of range, size mismatch.
func Assert(cond bool, format string, args ...any) {
	if !cond {
		panic("gfx: " + fmt.Sprintf(format, args...))
	}
}
