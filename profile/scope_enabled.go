//go:build hearthprofile

package profile

// Enabled reports whether Scope records events in this build.
const Enabled = true

// Scope starts timing name in Default and returns the function that ends it.
func Scope(name string) func() {
	return Default.Start(name).Stop
}
