package hearth

import (
	"errors"
	"fmt"
	"time"

	"github.com/gogpu/gputypes"

	"github.com/hearth-engine/hearth/concurrent"
	"github.com/hearth-engine/hearth/config"
	"github.com/hearth-engine/hearth/geom"
	"github.com/hearth-engine/hearth/gfx"
	"github.com/hearth-engine/hearth/internal/logging"
	"github.com/hearth-engine/hearth/parallel"
	"github.com/hearth-engine/hearth/profile"
	"github.com/hearth-engine/hearth/renderer"
	"github.com/hearth-engine/hearth/scene"
	"github.com/hearth-engine/hearth/terrain"
)

// Render target attachments, in order.
const (
	ColorAttachment  = 0
	EntityAttachment = 1
)

var targetFormats = []gputypes.TextureFormat{
	gputypes.TextureFormatRGBA8Unorm,
	gputypes.TextureFormatR32Sint,
	gputypes.TextureFormatDepth24Plus,
}

// FrameStats describes one frame.
type FrameStats struct {
	Frame     uint64
	Duration  time.Duration
	Quads     renderer.Stats
	Cubes     renderer.Stats
	Terrain   terrain.Stats
	MultiDraw renderer.MultiDrawStats
}

// DrawCalls returns the draw calls issued by every renderer.
func (s FrameStats) DrawCalls() int {
	return s.Quads.DrawCalls + s.Cubes.DrawCalls + s.MultiDraw.Commands
}

type resize struct {
	width, height int
}

// viewportSizer is implemented by scenes whose cameras follow the target
// size, such as *scene.Static.
type viewportSizer interface {
	SetViewportSize(width, height int)
}

// Engine owns every engine subsystem and draws frames into an offscreen
// target with a color and an entity id attachment.
type Engine struct {
	cfg    *config.Config
	opts   engineOptions
	ctx    *gfx.Context
	target *gfx.Framebuffer
	pool   *parallel.ThreadPool

	quads   *renderer.Renderer2D
	cubes   *renderer.CubeRenderer
	md      *renderer.MultiDraw
	terrain *terrain.Streamer

	resizes    concurrent.Queue[resize]
	clearColor gputypes.Color
	frame      uint64
	profiling  bool
	closed     bool
}

// New creates an engine on the calling goroutine, which becomes the render
// thread.
func New(opts ...Option) (*Engine, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{cfg: o.cfg, opts: o, clearColor: clearColor(o.cfg.Graphics.ClearColor)}
	if err := e.init(); err != nil {
		e.Close()
		return nil, err
	}
	if o.events != nil {
		o.events.OnResize(func(w, h int) { e.resizes.Push(resize{w, h}) })
	}
	logging.Logger().Info("hearth: engine started",
		"backend", e.ctx.Backend().String(),
		"adapter", e.ctx.AdapterInfo().Name,
		"size", fmt.Sprintf("%dx%d", e.target.Width(), e.target.Height()),
		"workers", e.pool.Workers(),
		"terrain", e.terrain != nil)
	return e, nil
}

func (e *Engine) init() error {
	cfg := e.cfg
	var err error
	if e.opts.provider != nil {
		e.ctx, err = gfx.FromProvider(e.opts.provider)
	} else {
		e.ctx, err = gfx.New(gfx.WithBackendName(cfg.Graphics.Backend))
	}
	if err != nil {
		return fmt.Errorf("hearth: open gpu: %w", err)
	}

	width, height := cfg.Window.Width, cfg.Window.Height
	if e.opts.window != nil {
		width, height = physicalSize(e.opts.window.Size, e.opts.window.ScaleFactor())
	}
	if e.target, err = gfx.NewFramebuffer(e.ctx, gfx.FramebufferSpec{
		Label:       "hearth_target",
		Width:       width,
		Height:      height,
		Attachments: targetFormats,
	}); err != nil {
		return fmt.Errorf("hearth: create render target: %w", err)
	}
	if vs, ok := e.opts.scene.(viewportSizer); ok {
		vs.SetViewportSize(width, height)
	}

	e.pool = parallel.NewThreadPool(cfg.Threading.Workers, parallel.WithName("hearth"))

	if e.quads, err = renderer.NewRenderer2D(e.ctx, e.target,
		renderer.WithMaxQuads(cfg.Graphics.MaxQuads),
		renderer.WithMaxCircles(cfg.Graphics.MaxCircles),
		renderer.WithTextureSlots(cfg.Graphics.TextureSlots),
	); err != nil {
		return fmt.Errorf("hearth: %w", err)
	}
	if e.cubes, err = renderer.NewCubeRenderer(e.ctx, e.target, renderer.WithMaxCubes(cfg.Graphics.MaxCubes)); err != nil {
		return fmt.Errorf("hearth: %w", err)
	}

	if cfg.Terrain.Enabled {
		vertices, indices := renderer.ArenaCapacity(cfg.Terrain.ArenaMiB)
		if e.md, err = renderer.NewMultiDraw(e.ctx, e.target, vertices, indices); err != nil {
			return fmt.Errorf("hearth: %w", err)
		}
		e.terrain = terrain.NewStreamer(e.pool, e.md, terrain.Options{
			Seed:         cfg.Terrain.Seed,
			Amplitude:    cfg.Terrain.Amplitude,
			ChunkSize:    cfg.Terrain.ChunkSize,
			ViewDistance: cfg.Terrain.ViewDistance,
			LODDistances: cfg.Terrain.LODDistances,
			CacheSize:    cfg.Terrain.CacheSize,
		})
	}

	if cfg.Profile.Enabled {
		if err := profile.Default.BeginSessionFile("hearth", cfg.Profile.Output); err != nil {
			return fmt.Errorf("hearth: %w", err)
		}
		e.profiling = true
	}
	return nil
}

func physicalSize(size func() (int, int), scale float64) (int, int) {
	w, h := size()
	return int(float64(w) * scale), int(float64(h) * scale)
}

func clearColor(c []float32) gputypes.Color {
	if len(c) != 4 {
		return gputypes.Color{A: 1}
	}
	return gputypes.Color{R: float64(c[0]), G: float64(c[1]), B: float64(c[2]), A: float64(c[3])}
}

// Frame applies pending resizes, clears the target and draws terrain,
// cubes, quads and circles with the scene's active camera. A scene without
// a camera is drawn in clip space.
func (e *Engine) Frame() (FrameStats, error) {
	if e.closed {
		panic("hearth: Frame after Close")
	}
	e.ctx.AssertRenderThread()
	defer profile.Scope("Engine.Frame")()
	start := time.Now()
	e.frame++

	if err := e.applyResizes(); err != nil {
		return FrameStats{}, err
	}
	e.quads.ResetStats()
	e.cubes.ResetStats()
	if e.md != nil {
		e.md.ResetStats()
	}

	viewProj, eye := geom.Identity(), geom.Vec3{}
	src := e.opts.scene
	if src != nil {
		if cam, ok := src.ActiveCamera(); ok {
			viewProj, eye = cam.ViewProjection(), cam.Position()
		}
	}

	var errs []error
	if err := e.clear(); err != nil {
		return FrameStats{}, err
	}
	stats := FrameStats{Frame: e.frame}
	if e.terrain != nil {
		stats.Terrain = e.terrain.Update(eye)
		errs = append(errs, e.md.Flush(viewProj))
		stats.MultiDraw = e.md.Stats()
	}
	if src != nil {
		errs = append(errs, e.drawCubes(viewProj, src), e.drawQuads(viewProj, src))
	}
	e.ctx.Poll()

	stats.Quads = e.quads.Stats()
	stats.Cubes = e.cubes.Stats()
	stats.Duration = time.Since(start)
	if err := errors.Join(errs...); err != nil {
		return stats, fmt.Errorf("hearth: frame %d: %w", e.frame, err)
	}
	logging.Logger().Debug("hearth: frame",
		"frame", e.frame, "draw_calls", stats.DrawCalls(), "duration", stats.Duration)
	return stats, nil
}

func (e *Engine) clear() error {
	pass, err := gfx.BeginPass(e.ctx, gfx.PassDesc{
		Label:       "hearth_clear",
		Target:      e.target,
		Clear:       true,
		ClearColors: []gputypes.Color{e.clearColor, {R: -1, G: -1, B: -1, A: -1}},
		ClearDepth:  1,
	})
	if err != nil {
		return fmt.Errorf("hearth: clear target: %w", err)
	}
	return pass.End()
}

func (e *Engine) drawCubes(viewProj geom.Mat4, src scene.Source) error {
	defer profile.Scope("Engine.drawCubes")()
	if err := e.cubes.BeginScene(viewProj); err != nil {
		return err
	}
	e.cubes.DrawScene(src)
	return e.cubes.EndScene()
}

func (e *Engine) drawQuads(viewProj geom.Mat4, src scene.Source) error {
	defer profile.Scope("Engine.drawQuads")()
	if err := e.quads.BeginScene(viewProj); err != nil {
		return err
	}
	e.quads.DrawScene(src)
	return e.quads.EndScene()
}

// applyResizes applies the most recent queued resize, if any.
func (e *Engine) applyResizes() error {
	pending := e.resizes.Drain()
	if len(pending) == 0 {
		return nil
	}
	last := pending[len(pending)-1]
	return e.Resize(last.width, last.height)
}

// Resize reallocates the render target and updates the scene viewport.
// Sizes of zero or above gfx.MaxFramebufferSize are logged and ignored.
func (e *Engine) Resize(width, height int) error {
	e.ctx.AssertRenderThread()
	before := e.target.AttachmentID(0)
	if err := e.target.Resize(width, height); err != nil {
		return fmt.Errorf("hearth: %w", err)
	}
	if e.target.AttachmentID(0) == before {
		return nil
	}
	if vs, ok := e.opts.scene.(viewportSizer); ok {
		vs.SetViewportSize(width, height)
	}
	return nil
}

// ReadEntity returns the entity drawn at pixel (x, y) of the last frame, or
// scene.NoEntity. It waits for the GPU.
func (e *Engine) ReadEntity(x, y int) (scene.Entity, error) {
	v, err := e.target.ReadPixel(EntityAttachment, x, y)
	if err != nil {
		return scene.NoEntity, fmt.Errorf("hearth: read entity: %w", err)
	}
	return scene.Entity(v), nil
}

// Config returns the configuration the engine was created with.
func (e *Engine) Config() *config.Config { return e.cfg }

// Context returns the GPU context.
func (e *Engine) Context() *gfx.Context { return e.ctx }

// Target returns the render target.
func (e *Engine) Target() *gfx.Framebuffer { return e.target }

// Pool returns the worker pool. Callers may submit their own work to it.
func (e *Engine) Pool() *parallel.ThreadPool { return e.pool }

// Renderer2D returns the quad and circle renderer.
func (e *Engine) Renderer2D() *renderer.Renderer2D { return e.quads }

// Cubes returns the cube renderer.
func (e *Engine) Cubes() *renderer.CubeRenderer { return e.cubes }

// Terrain returns the terrain streamer, or nil when terrain is disabled.
func (e *Engine) Terrain() *terrain.Streamer { return e.terrain }

// Frames returns the number of frames drawn.
func (e *Engine) Frames() uint64 { return e.frame }

// Close stops the worker pool, then releases GPU resources and the
// context, and ends the profiling session. Queued terrain work is dropped.
// Close is idempotent.
func (e *Engine) Close() {
	if e.closed {
		return
	}
	e.closed = true
	if e.pool != nil {
		e.pool.Shutdown()
	}
	if e.terrain != nil {
		e.terrain.Close()
	}
	e.md.Destroy()
	e.cubes.Destroy()
	e.quads.Destroy()
	e.target.Destroy()
	e.ctx.Destroy()
	if e.profiling {
		if err := profile.Default.EndSession(); err != nil {
			logging.Logger().Warn("hearth: end profiling session", "err", err)
		}
		e.profiling = false
	}
	logging.Logger().Info("hearth: engine closed", "frames", e.frame)
}
