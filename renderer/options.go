package renderer

// Option configures batch capacities.
type Option func(*options)

type options struct {
	maxQuads     int
	maxCircles   int
	maxCubes     int
	textureSlots int
}

func defaultOptions() options {
	return options{
		maxQuads:     10000,
		maxCircles:   10000,
		maxCubes:     1000,
		textureSlots: 16,
	}
}

func applyOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithMaxQuads sets how many quads a batch holds before it is flushed.
func WithMaxQuads(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxQuads = n
		}
	}
}

// WithMaxCircles sets the circle batch capacity.
func WithMaxCircles(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxCircles = n
		}
	}
}

// WithMaxCubes sets the cube batch capacity.
func WithMaxCubes(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxCubes = n
		}
	}
}

// WithTextureSlots sets the requested number of texture slots per batch,
// including the white texture in slot 0. The effective count is also capped
// by the device limit and gfx.MaxTextureSlots, and never drops below
// gfx.MinTextureSlots.
func WithTextureSlots(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.textureSlots = n
		}
	}
}
