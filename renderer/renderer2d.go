package renderer

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/hearth-engine/hearth/geom"
	"github.com/hearth-engine/hearth/gfx"
	"github.com/hearth-engine/hearth/internal/logging"
	"github.com/hearth-engine/hearth/scene"
)

var (
	quadLayout = gfx.NewVertexLayout(
		gfx.Attribute{Name: "position", Format: gputypes.VertexFormatFloat32x3},
		gfx.Attribute{Name: "color", Format: gputypes.VertexFormatFloat32x4},
		gfx.Attribute{Name: "uv", Format: gputypes.VertexFormatFloat32x2},
		gfx.Attribute{Name: "tex_index", Format: gputypes.VertexFormatUint32},
		gfx.Attribute{Name: "tiling", Format: gputypes.VertexFormatFloat32},
		gfx.Attribute{Name: "entity", Format: gputypes.VertexFormatSint32},
	)
	circleLayout = gfx.NewVertexLayout(
		gfx.Attribute{Name: "world_position", Format: gputypes.VertexFormatFloat32x3},
		gfx.Attribute{Name: "local_position", Format: gputypes.VertexFormatFloat32x3},
		gfx.Attribute{Name: "color", Format: gputypes.VertexFormatFloat32x4},
		gfx.Attribute{Name: "thickness", Format: gputypes.VertexFormatFloat32},
		gfx.Attribute{Name: "fade", Format: gputypes.VertexFormatFloat32},
		gfx.Attribute{Name: "entity", Format: gputypes.VertexFormatSint32},
	)

	quadIndexPattern = []uint32{0, 1, 2, 2, 3, 0}

	// Unit quad corners, counter-clockwise from bottom left.
	quadCorners = [4]geom.Vec3{{X: -0.5, Y: -0.5}, {X: 0.5, Y: -0.5}, {X: 0.5, Y: 0.5}, {X: -0.5, Y: 0.5}}
	quadUVs     = [4]geom.Vec2{{X: 0, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: 0}, {X: 0, Y: 0}}
)

// minCircleFade keeps the edge ramps in circle.wgsl well defined.
const minCircleFade = 1e-4

// Renderer2D batches quads and circles into a framebuffer.
type Renderer2D struct {
	ctx    *gfx.Context
	target *gfx.Framebuffer
	opts   options

	camera     *cameraBinding
	slotLayout *gfx.BindLayout
	quadShader *gfx.Shader
	circShader *gfx.Shader
	quadPipe   *gfx.Pipeline
	circPipe   *gfx.Pipeline

	quads   *batch
	circles *batch
	slots   slotTable

	inScene bool
	err     error
	stats   Stats

	onFlush func(flushRecord)
}

// NewRenderer2D creates the batches, shaders and pipelines for target.
func NewRenderer2D(ctx *gfx.Context, target *gfx.Framebuffer, opts ...Option) (*Renderer2D, error) {
	gfx.Assert(target != nil && target.ColorAttachmentCount() > 0, "renderer2d needs a color target")
	r := &Renderer2D{ctx: ctx, target: target, opts: applyOptions(opts)}
	if err := r.init(); err != nil {
		r.Destroy()
		return nil, err
	}
	logging.Logger().Debug("renderer: 2d renderer ready",
		"max_quads", r.opts.maxQuads, "max_circles", r.opts.maxCircles, "texture_slots", r.slots.capacity)
	return r, nil
}

func (r *Renderer2D) init() error {
	var err error
	if r.camera, err = newCameraBinding(r.ctx, "renderer2d"); err != nil {
		return err
	}
	if r.slotLayout, err = gfx.NewBindLayout(r.ctx, "renderer2d_slots", gfx.TextureSlotLayoutEntries()...); err != nil {
		return err
	}
	r.slots = newSlotTable(r.ctx.WhiteTexture(), r.ctx.TextureSlotCapacity(r.opts.textureSlots))

	r.quadShader = gfx.NewShader(r.ctx, "quad", quadShaderSource)
	r.circShader = gfx.NewShader(r.ctx, "circle", circleShaderSource)
	targets := colorTargets(r.target)
	depth := depthState(r.target, true, gputypes.CompareFunctionLessEqual)

	if r.quadPipe, err = gfx.NewPipeline(r.ctx, gfx.PipelineDesc{
		Label:       "renderer2d_quads",
		Shader:      r.quadShader,
		Vertex:      []gfx.VertexLayout{quadLayout},
		BindLayouts: []*gfx.BindLayout{r.camera.layout, r.slotLayout},
		Targets:     targets,
		Depth:       depth,
	}); err != nil {
		return err
	}
	if r.circPipe, err = gfx.NewPipeline(r.ctx, gfx.PipelineDesc{
		Label:       "renderer2d_circles",
		Shader:      r.circShader,
		Vertex:      []gfx.VertexLayout{circleLayout},
		BindLayouts: []*gfx.BindLayout{r.camera.layout},
		Targets:     targets,
		Depth:       depth,
	}); err != nil {
		return err
	}

	if r.quads, err = newBatch(r.ctx, "quads", quadLayout, r.opts.maxQuads, 4, quadIndexPattern); err != nil {
		return err
	}
	if r.circles, err = newBatch(r.ctx, "circles", circleLayout, r.opts.maxCircles, 4, quadIndexPattern); err != nil {
		return err
	}
	return nil
}

// Destroy releases every GPU object the renderer created.
func (r *Renderer2D) Destroy() {
	if r == nil {
		return
	}
	r.quads.destroy()
	r.circles.destroy()
	r.quadPipe.Destroy()
	r.circPipe.Destroy()
	r.quadShader.Destroy()
	r.circShader.Destroy()
	r.slotLayout.Destroy()
	r.camera.destroy()
	r.quads, r.circles = nil, nil
}

// TextureSlots returns the number of texture slots per batch, slot 0
// included.
func (r *Renderer2D) TextureSlots() int { return r.slots.capacity }

// BeginScene starts a scene drawn with viewProjection. It resets the
// batches and the slot table.
func (r *Renderer2D) BeginScene(viewProjection geom.Mat4) error {
	r.ctx.AssertRenderThread()
	gfx.Assert(!r.inScene, "renderer2d: BeginScene inside a scene")
	r.inScene = true
	r.err = nil
	r.quads.reset()
	r.circles.reset()
	r.slots.reset()
	return r.camera.set(viewProjection)
}

// EndScene flushes what is left and closes the scene. It returns the first
// error met by any flush during the scene.
func (r *Renderer2D) EndScene() error {
	r.assertInScene("EndScene")
	r.Flush()
	r.inScene = false
	err := r.err
	r.err = nil
	return err
}

// Flush draws both batches if they hold anything. Errors are kept and
// returned by EndScene.
func (r *Renderer2D) Flush() {
	r.assertInScene("Flush")
	r.flushQuads()
	r.flushCircles()
}

// Stats returns the counters since the last ResetStats.
func (r *Renderer2D) Stats() Stats { return r.stats }

// ResetStats zeroes the counters.
func (r *Renderer2D) ResetStats() { r.stats = Stats{} }

func (r *Renderer2D) assertInScene(op string) {
	gfx.Assert(r.inScene, "renderer2d: %s outside BeginScene/EndScene", op)
}

// DrawQuad draws the unit quad under transform. A nil texture draws the
// tint as a solid color.
func (r *Renderer2D) DrawQuad(transform geom.Mat4, tint geom.Color, tiling float32, tex *gfx.Texture, entity scene.Entity) {
	r.assertInScene("DrawQuad")
	if r.quads.full() {
		r.flushQuads()
	}
	slot, ok := r.slots.assign(tex)
	if !ok {
		r.flushQuads()
		slot, ok = r.slots.assign(tex)
		gfx.Assert(ok, "renderer2d: no free texture slot after flush (capacity %d)", r.slots.capacity)
	}
	if tiling == 0 {
		tiling = 1
	}
	w := r.quads.next()
	for i, corner := range quadCorners {
		w.vec3(transform.TransformPoint(corner))
		w.color(tint)
		w.vec2(quadUVs[i])
		w.u32(slot)
		w.f32(tiling)
		w.i32(int32(entity))
	}
}

// DrawRect draws an axis-aligned solid rectangle centered at pos.
func (r *Renderer2D) DrawRect(pos geom.Vec3, size geom.Vec2, tint geom.Color) {
	r.DrawQuad(geom.Transform2D(pos, 0, size), tint, 1, nil, scene.NoEntity)
}

// DrawRotatedRect draws a solid rectangle rotated about Z by rotation radians.
func (r *Renderer2D) DrawRotatedRect(pos geom.Vec3, size geom.Vec2, rotation float32, tint geom.Color) {
	r.DrawQuad(geom.Transform2D(pos, rotation, size), tint, 1, nil, scene.NoEntity)
}

// DrawSprite draws a scene sprite.
func (r *Renderer2D) DrawSprite(transform geom.Mat4, s scene.Sprite, entity scene.Entity) {
	r.DrawQuad(transform, s.Tint, s.Tiling, s.Texture, entity)
}

// DrawCircle draws a circle inscribed in the unit quad under transform.
// thickness 1 fills it; fade softens the edge.
func (r *Renderer2D) DrawCircle(transform geom.Mat4, color geom.Color, thickness, fade float32, entity scene.Entity) {
	r.assertInScene("DrawCircle")
	if r.circles.full() {
		r.flushCircles()
	}
	fade = max(fade, minCircleFade)
	w := r.circles.next()
	for _, corner := range quadCorners {
		w.vec3(transform.TransformPoint(corner))
		w.vec3(corner.Mul(2))
		w.color(color)
		w.f32(thickness)
		w.f32(fade)
		w.i32(int32(entity))
	}
}

// DrawSceneCircle draws a scene circle component.
func (r *Renderer2D) DrawSceneCircle(transform geom.Mat4, c scene.Circle, entity scene.Entity) {
	r.DrawCircle(transform, c.Color, c.Thickness, c.Fade, entity)
}

// DrawScene draws every sprite and circle of src.
func (r *Renderer2D) DrawScene(src scene.Source) {
	src.EachSprite(func(e scene.Entity, m geom.Mat4, s scene.Sprite) { r.DrawSprite(m, s, e) })
	src.EachCircle(func(e scene.Entity, m geom.Mat4, c scene.Circle) { r.DrawSceneCircle(m, c, e) })
}

func (r *Renderer2D) flushQuads() {
	if r.quads.count == 0 {
		return
	}
	defer func() {
		r.quads.reset()
		r.slots.reset()
	}()
	err := r.flushBatch(r.quads, r.quadPipe, func(p *gfx.Pass) error {
		group, err := r.ctx.TextureSlotGroup(r.slotLayout, r.slots.textures)
		if err != nil {
			return err
		}
		p.SetBindGroup(1, group)
		return nil
	})
	if err != nil {
		r.keep(err)
	} else {
		r.stats.Quads += r.quads.count
	}
	r.record(r.quads, r.slots.ids())
}

func (r *Renderer2D) flushCircles() {
	if r.circles.count == 0 {
		return
	}
	defer r.circles.reset()
	if err := r.flushBatch(r.circles, r.circPipe, nil); err != nil {
		r.keep(err)
	} else {
		r.stats.Circles += r.circles.count
	}
	r.record(r.circles, nil)
}

// flushBatch uploads b and draws it in one pass. bind sets any bind groups
// beyond the camera.
func (r *Renderer2D) flushBatch(b *batch, pipe *gfx.Pipeline, bind func(*gfx.Pass) error) error {
	if err := b.upload(); err != nil {
		return fmt.Errorf("flush %s: %w", b.label, err)
	}
	pass, err := gfx.BeginPass(r.ctx, gfx.PassDesc{Label: "renderer2d_" + b.label, Target: r.target})
	if err != nil {
		return fmt.Errorf("flush %s: %w", b.label, err)
	}
	pass.SetPipeline(pipe)
	pass.SetBindGroup(0, r.camera.group)
	if bind != nil {
		if err := bind(pass); err != nil {
			_ = pass.End()
			return fmt.Errorf("flush %s: %w", b.label, err)
		}
	}
	pass.SetVertexArray(b.va)
	pass.DrawIndexed(b.indexCount(), 0, 0)
	if err := pass.End(); err != nil {
		return fmt.Errorf("flush %s: %w", b.label, err)
	}
	r.stats.DrawCalls++
	r.stats.Indices += int(b.indexCount())
	logging.Logger().Debug("renderer: batch flushed", "batch", b.label, "count", b.count, "bytes", len(b.used()))
	return nil
}

func (r *Renderer2D) keep(err error) {
	if err != nil && r.err == nil {
		r.err = err
	}
}

func (r *Renderer2D) record(b *batch, slots []uint64) {
	if r.onFlush != nil {
		r.onFlush(flushRecord{
			batch:       b.label,
			count:       b.count,
			indices:     b.indexCount(),
			vertexBytes: len(b.used()),
			slots:       slots,
		})
	}
}
