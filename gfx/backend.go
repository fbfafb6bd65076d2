package gfx

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Backend names a graphics API implementation.
type Backend int

const (
	// BackendAuto picks the highest priority registered backend.
	BackendAuto Backend = iota
	BackendVulkan
	BackendMetal
	BackendDX12
	BackendGL
	// BackendHeadless renders without a window system. It is served by
	// whichever HAL package registered the empty variant (noop or software).
	BackendHeadless

	numBackends
)

var backendNames = [numBackends]string{
	BackendAuto:     "auto",
	BackendVulkan:   "vulkan",
	BackendMetal:    "metal",
	BackendDX12:     "dx12",
	BackendGL:       "gl",
	BackendHeadless: "headless",
}

var backendVariants = [numBackends]gputypes.Backend{
	BackendVulkan:   gputypes.BackendVulkan,
	BackendMetal:    gputypes.BackendMetal,
	BackendDX12:     gputypes.BackendDX12,
	BackendGL:       gputypes.BackendGL,
	BackendHeadless: gputypes.BackendEmpty,
}

// backendPriority is the order BackendAuto tries, first registered wins.
var backendPriority = []string{"vulkan", "metal", "dx12", "gl", "headless"}

var (
	// ErrBackendUnavailable is returned when the requested backend is known
	// but no HAL package registered it in this binary.
	ErrBackendUnavailable = errors.New("gfx: backend unavailable")

	// ErrNoAdapter is returned when a backend reports no usable adapter.
	ErrNoAdapter = errors.New("gfx: no adapter")
)

// String returns the configuration name of the backend.
func (b Backend) String() string {
	if b < 0 || b >= numBackends {
		return fmt.Sprintf("Backend(%d)", int(b))
	}
	return backendNames[b]
}

// Valid reports whether b is one of the declared backends.
func (b Backend) Valid() bool { return b >= 0 && b < numBackends }

// ParseBackend maps a configuration name to a Backend. Matching ignores case.
func ParseBackend(name string) (Backend, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return BackendAuto, nil
	}
	for b, n := range backendNames {
		if n == name {
			return Backend(b), nil
		}
	}
	return 0, fmt.Errorf("gfx: unknown backend %q (want one of %s)", name, strings.Join(backendNames[:], ", "))
}

// MustParseBackend is ParseBackend that panics on an unknown name.
func MustParseBackend(name string) Backend {
	b, err := ParseBackend(name)
	if err != nil {
		panic(err.Error())
	}
	return b
}

// backendRegistry lists the HAL backends linked into this binary under their
// configuration names.
func backendRegistry() *gpucontext.Registry[hal.Backend] {
	reg := gpucontext.NewRegistry[hal.Backend](gpucontext.WithPriority(backendPriority...))
	for _, variant := range hal.AvailableBackends() {
		for b, v := range backendVariants {
			if Backend(b) == BackendAuto || v != variant {
				continue
			}
			reg.Register(backendNames[b], func() hal.Backend {
				backend, _ := hal.GetBackend(variant)
				return backend
			})
		}
	}
	return reg
}

// AvailableBackends returns the names of the backends linked into this
// binary, highest priority first.
func AvailableBackends() []Backend {
	reg := backendRegistry()
	var out []Backend
	for _, name := range backendPriority {
		if reg.Has(name) {
			out = append(out, MustParseBackend(name))
		}
	}
	return out
}

// resolveBackend returns the HAL backend for b. An undeclared Backend value
// is a build misconfiguration and panics.
func resolveBackend(b Backend) (hal.Backend, Backend, error) {
	if !b.Valid() {
		panic(fmt.Sprintf("gfx: unknown backend %d", int(b)))
	}
	reg := backendRegistry()
	if b == BackendAuto {
		name := reg.BestName()
		if name == "" {
			return nil, b, fmt.Errorf("%w: no HAL backend registered", ErrBackendUnavailable)
		}
		return reg.Get(name), MustParseBackend(name), nil
	}
	name := backendNames[b]
	if !reg.Has(name) {
		return nil, b, fmt.Errorf("%w: %s (registered: %v)", ErrBackendUnavailable, name, reg.Available())
	}
	return reg.Get(name), b, nil
}
