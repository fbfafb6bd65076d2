package gfx

import (
	"errors"
	"fmt"
	"runtime"
	"slices"
	"sync/atomic"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/hearth-engine/hearth/internal/cache"
	"github.com/hearth-engine/hearth/internal/logging"
	"github.com/hearth-engine/hearth/internal/threadid"
)

// ResourceID identifies a GPU resource handle for the lifetime of the
// process. IDs are never reused; zero means "no resource".
type ResourceID uint64

var lastResourceID atomic.Uint64

func nextResourceID() ResourceID {
	return ResourceID(lastResourceID.Add(1))
}

// ErrUnsupportedProvider is returned by FromProvider when the host's device
// is not a wgpu HAL device.
var ErrUnsupportedProvider = errors.New("gfx: device provider does not expose a HAL device")

// Context owns the device, queue and every shared GPU object of a renderer.
// It replaces process-global renderer state: the application root creates
// one and passes it to every constructor in this package.
type Context struct {
	backend  Backend
	info     gputypes.AdapterInfo
	instance hal.Instance
	device   hal.Device
	queue    hal.Queue
	limits   gputypes.Limits
	ownsHAL  bool

	owner  threadid.ID
	locked bool

	white   *Texture
	sampler hal.Sampler

	lastSubmit uint64
	inflight   []submission
	deferred   []deferredRelease

	bindGroups *cache.Cache[bindGroupKey, *BindGroup]
	pipelines  map[pipelineKey]*Pipeline

	destroyed bool
}

type submission struct {
	index uint64
	cmds  []hal.CommandBuffer
}

// deferredRelease runs once the GPU has finished submission index after.
type deferredRelease struct {
	after uint64
	fn    func()
}

// New opens a device on the selected backend and returns a Context bound to
// the calling goroutine, which becomes the render thread.
func New(opts ...Option) (*Context, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	backend, chosen, err := resolveBackend(o.backend)
	if err != nil {
		return nil, err
	}

	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{})
	if err != nil {
		return nil, fmt.Errorf("create %s instance: %w", chosen, err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, fmt.Errorf("%w on %s backend", ErrNoAdapter, chosen)
	}
	exposed := adapters[0]

	limits := exposed.Capabilities.Limits
	if o.limits != nil {
		limits = *o.limits
	}
	open, err := exposed.Adapter.Open(0, limits)
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("open %s device: %w", exposed.Info.Name, err)
	}

	c := &Context{
		backend:  chosen,
		info:     exposed.Info,
		instance: instance,
		device:   open.Device,
		queue:    open.Queue,
		limits:   limits,
		ownsHAL:  true,
	}
	if err := c.init(o); err != nil {
		c.Destroy()
		return nil, err
	}
	logging.Logger().Info("gfx: device opened",
		"backend", chosen.String(),
		"adapter", exposed.Info.Name,
		"driver", exposed.Info.Driver)
	return c, nil
}

// FromProvider wraps a device owned by a host application, such as a
// windowing framework. The host keeps ownership: Destroy releases only the
// objects this package created.
func FromProvider(p gpucontext.DeviceProvider, opts ...Option) (*Context, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	device, ok := p.Device().(hal.Device)
	if !ok {
		return nil, fmt.Errorf("%w: device is %T", ErrUnsupportedProvider, p.Device())
	}
	queue, ok := p.Queue().(hal.Queue)
	if !ok {
		return nil, fmt.Errorf("%w: queue is %T", ErrUnsupportedProvider, p.Queue())
	}

	limits := gputypes.DefaultLimits()
	if o.limits != nil {
		limits = *o.limits
	}
	c := &Context{
		backend: o.backend,
		info:    gputypes.AdapterInfo{Name: p.AdapterInfo().Name},
		device:  device,
		queue:   queue,
		limits:  limits,
	}
	if err := c.init(o); err != nil {
		c.Destroy()
		return nil, err
	}
	logging.Logger().Info("gfx: using host device", "adapter", c.info.Name)
	return c, nil
}

func (c *Context) init(o options) error {
	runtime.LockOSThread()
	c.locked = true
	c.owner = threadid.Current()
	c.pipelines = make(map[pipelineKey]*Pipeline)
	c.bindGroups = cache.New(o.bindGroupLimit, func(_ bindGroupKey, bg *BindGroup) {
		bg.Destroy()
	})

	sampler, err := c.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        "hearth_sampler",
		AddressModeU: gputypes.AddressModeRepeat,
		AddressModeV: gputypes.AddressModeRepeat,
		AddressModeW: gputypes.AddressModeRepeat,
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeLinear,
		MipmapFilter: gputypes.FilterModeNearest,
		LodMaxClamp:  32,
		Anisotropy:   1,
	})
	if err != nil {
		return fmt.Errorf("create sampler: %w", err)
	}
	c.sampler = sampler

	white, err := NewTexture(c, TextureSpec{Label: "white", Width: 1, Height: 1})
	if err != nil {
		return fmt.Errorf("create white texture: %w", err)
	}
	if err := white.SetData([]byte{0xff, 0xff, 0xff, 0xff}); err != nil {
		white.Destroy()
		return fmt.Errorf("upload white texture: %w", err)
	}
	c.white = white
	return nil
}

// Destroy waits for the GPU to go idle and releases every object the
// Context created. It is safe to call more than once.
func (c *Context) Destroy() {
	if c == nil || c.destroyed {
		return
	}
	c.destroyed = true
	if c.device != nil {
		if err := c.device.WaitIdle(); err != nil {
			logging.Logger().Warn("gfx: wait idle before destroy", "err", err)
		}
	}

	if c.bindGroups != nil {
		c.bindGroups.Clear()
	}
	for key, p := range c.pipelines {
		p.release()
		delete(c.pipelines, key)
	}
	if c.white != nil {
		c.white.Destroy()
		c.white = nil
	}
	c.runDeferred(^uint64(0))
	c.freeCompleted(^uint64(0))

	if c.sampler != nil {
		c.device.DestroySampler(c.sampler)
		c.sampler = nil
	}
	if c.ownsHAL {
		if c.device != nil {
			c.device.Destroy()
		}
		if c.instance != nil {
			c.instance.Destroy()
		}
	}
	c.device = nil
	c.queue = nil
	if c.locked {
		runtime.UnlockOSThread()
		c.locked = false
	}
	logging.Logger().Info("gfx: context destroyed")
}

// Backend returns the backend the context was opened on.
func (c *Context) Backend() Backend { return c.backend }

// AdapterInfo describes the adapter behind the device.
func (c *Context) AdapterInfo() gputypes.AdapterInfo { return c.info }

// Limits returns the device limits.
func (c *Context) Limits() gputypes.Limits { return c.limits }

// Device returns the HAL device.
func (c *Context) Device() hal.Device { return c.device }

// Queue returns the HAL queue.
func (c *Context) Queue() hal.Queue { return c.queue }

// WhiteTexture returns the 1x1 opaque white texture used for untextured
// draws.
func (c *Context) WhiteTexture() *Texture { return c.white }

// Sampler returns the shared linear, repeating sampler.
func (c *Context) Sampler() hal.Sampler { return c.sampler }

// AssertRenderThread panics unless called from the OS thread that created
// the context.
func (c *Context) AssertRenderThread() {
	Assert(!c.destroyed, "use of destroyed context")
	if !threadid.Supported() {
		return
	}
	cur := threadid.Current()
	Assert(cur == c.owner, "called from thread %d, render thread is %d", cur, c.owner)
}

// Submit hands command buffers to the queue and tracks them until the GPU
// reports completion, at which point they are freed.
func (c *Context) Submit(cmds ...hal.CommandBuffer) (uint64, error) {
	c.AssertRenderThread()
	idx, err := c.queue.Submit(cmds)
	if err != nil {
		for _, cmd := range cmds {
			c.device.FreeCommandBuffer(cmd)
		}
		return 0, fmt.Errorf("submit: %w", err)
	}
	c.lastSubmit = idx
	c.inflight = append(c.inflight, submission{index: idx, cmds: cmds})
	c.Poll()
	return idx, nil
}

// Poll frees command buffers and runs deferred releases whose submissions
// the GPU has finished. It never blocks.
func (c *Context) Poll() {
	done := c.queue.PollCompleted()
	c.freeCompleted(done)
	c.runDeferred(done)
}

// WaitIdle blocks until the GPU has finished all submitted work.
func (c *Context) WaitIdle() error {
	c.AssertRenderThread()
	if err := c.device.WaitIdle(); err != nil {
		return fmt.Errorf("wait idle: %w", err)
	}
	c.freeCompleted(c.lastSubmit)
	c.runDeferred(c.lastSubmit)
	return nil
}

// InFlight returns the number of submissions the GPU has not finished.
func (c *Context) InFlight() int { return len(c.inflight) }

// Defer schedules fn to run once every submission up to and including the
// next one has completed. Use it to destroy objects that recorded commands
// may still reference.
func (c *Context) Defer(fn func()) {
	if c.destroyed {
		fn()
		return
	}
	c.deferred = append(c.deferred, deferredRelease{after: c.lastSubmit + 1, fn: fn})
}

func (c *Context) freeCompleted(done uint64) {
	n := 0
	for _, s := range c.inflight {
		if s.index > done {
			break
		}
		for _, cmd := range s.cmds {
			if c.device != nil {
				c.device.FreeCommandBuffer(cmd)
			}
		}
		n++
	}
	if n > 0 {
		c.inflight = slices.Delete(c.inflight, 0, n)
	}
}

func (c *Context) runDeferred(done uint64) {
	kept := c.deferred[:0]
	var ready []func()
	for _, d := range c.deferred {
		if d.after <= done {
			ready = append(ready, d.fn)
		} else {
			kept = append(kept, d)
		}
	}
	clear(c.deferred[len(kept):])
	c.deferred = kept
	for _, fn := range ready {
		fn()
	}
}

// deferDestroy is Defer for a HAL release. It is skipped when the device is
// already gone.
func (c *Context) deferDestroy(fn func(hal.Device)) {
	c.Defer(func() {
		if c.device != nil {
			fn(c.device)
		}
	})
}
