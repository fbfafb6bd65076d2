package hearth

import (
	"github.com/gogpu/gpucontext"

	"github.com/hearth-engine/hearth/config"
	"github.com/hearth-engine/hearth/scene"
)

// Option configures an Engine during creation.
//
// Example:
//
//	cfg, _ := config.Load("hearth.yaml")
//	world := scene.NewStatic()
//	e, err := hearth.New(hearth.WithConfig(cfg), hearth.WithScene(world))
type Option func(*engineOptions)

type engineOptions struct {
	cfg      *config.Config
	scene    scene.Source
	window   gpucontext.WindowProvider
	events   gpucontext.EventSource
	provider gpucontext.DeviceProvider
}

func defaultOptions() engineOptions {
	return engineOptions{cfg: config.Default()}
}

// WithConfig sets the engine configuration. The default is config.Default.
func WithConfig(cfg *config.Config) Option {
	return func(o *engineOptions) {
		if cfg != nil {
			o.cfg = cfg
		}
	}
}

// WithScene sets the scene drawn every frame. Without one the engine only
// draws terrain.
func WithScene(src scene.Source) Option {
	return func(o *engineOptions) {
		o.scene = src
	}
}

// WithWindow sizes the render target from the host window instead of the
// configured window size. Physical pixels are used: Size times ScaleFactor.
func WithWindow(wp gpucontext.WindowProvider) Option {
	return func(o *engineOptions) {
		o.window = wp
	}
}

// WithEventSource subscribes the engine to the host's resize events.
// Callbacks may arrive on any goroutine; the resize is applied at the
// start of the next frame on the render thread.
func WithEventSource(es gpucontext.EventSource) Option {
	return func(o *engineOptions) {
		o.events = es
	}
}

// WithDeviceProvider renders on a device owned by the host application
// instead of opening one. The configured backend is ignored.
func WithDeviceProvider(p gpucontext.DeviceProvider) Option {
	return func(o *engineOptions) {
		o.provider = p
	}
}
