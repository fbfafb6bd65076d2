//go:build !hearthprofile

package profile

// Enabled reports whether Scope records events in this build.
const Enabled = false

func nop() {}

// Scope is a no-op unless built with -tags hearthprofile.
func Scope(string) func() { return nop }
