package gfx

import "github.com/gogpu/gputypes"

// Option configures a Context.
type Option func(*options)

type options struct {
	backend        Backend
	limits         *gputypes.Limits
	bindGroupLimit int
}

func defaultOptions() options {
	return options{
		backend:        BackendAuto,
		bindGroupLimit: 64,
	}
}

// WithBackend selects the graphics backend. The default is BackendAuto.
func WithBackend(b Backend) Option {
	return func(o *options) {
		o.backend = b
	}
}

// WithBackendName selects the backend by configuration name. An unknown name
// panics.
func WithBackendName(name string) Option {
	return WithBackend(MustParseBackend(name))
}

// WithLimits requests device limits instead of the adapter's reported ones.
func WithLimits(l gputypes.Limits) Option {
	return func(o *options) {
		o.limits = &l
	}
}

// WithBindGroupCacheSize sets the soft limit of the texture bind group cache.
func WithBindGroupCacheSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.bindGroupLimit = n
		}
	}
}
