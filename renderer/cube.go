package renderer

import (
	"github.com/gogpu/gputypes"

	"github.com/hearth-engine/hearth/geom"
	"github.com/hearth-engine/hearth/gfx"
	"github.com/hearth-engine/hearth/internal/logging"
	"github.com/hearth-engine/hearth/scene"
)

const (
	cubeVertices = 24
	cubeIndices  = 36
)

var (
	cubeLayout = gfx.NewVertexLayout(
		gfx.Attribute{Name: "position", Format: gputypes.VertexFormatFloat32x3},
		gfx.Attribute{Name: "normal", Format: gputypes.VertexFormatFloat32x3},
		gfx.Attribute{Name: "color", Format: gputypes.VertexFormatFloat32x4},
		gfx.Attribute{Name: "entity", Format: gputypes.VertexFormatSint32},
	)

	// cubeFaces lists each face's outward normal and its corners in
	// counter-clockwise order seen from outside.
	cubeFaces = [6]struct {
		normal  geom.Vec3
		corners [4]geom.Vec3
	}{
		{geom.V3(1, 0, 0), [4]geom.Vec3{{X: .5, Y: -.5, Z: .5}, {X: .5, Y: -.5, Z: -.5}, {X: .5, Y: .5, Z: -.5}, {X: .5, Y: .5, Z: .5}}},
		{geom.V3(-1, 0, 0), [4]geom.Vec3{{X: -.5, Y: -.5, Z: -.5}, {X: -.5, Y: -.5, Z: .5}, {X: -.5, Y: .5, Z: .5}, {X: -.5, Y: .5, Z: -.5}}},
		{geom.V3(0, 1, 0), [4]geom.Vec3{{X: -.5, Y: .5, Z: .5}, {X: .5, Y: .5, Z: .5}, {X: .5, Y: .5, Z: -.5}, {X: -.5, Y: .5, Z: -.5}}},
		{geom.V3(0, -1, 0), [4]geom.Vec3{{X: -.5, Y: -.5, Z: -.5}, {X: .5, Y: -.5, Z: -.5}, {X: .5, Y: -.5, Z: .5}, {X: -.5, Y: -.5, Z: .5}}},
		{geom.V3(0, 0, 1), [4]geom.Vec3{{X: -.5, Y: -.5, Z: .5}, {X: .5, Y: -.5, Z: .5}, {X: .5, Y: .5, Z: .5}, {X: -.5, Y: .5, Z: .5}}},
		{geom.V3(0, 0, -1), [4]geom.Vec3{{X: .5, Y: -.5, Z: -.5}, {X: -.5, Y: -.5, Z: -.5}, {X: -.5, Y: .5, Z: -.5}, {X: .5, Y: .5, Z: -.5}}},
	}

	cubeIndexPattern = func() []uint32 {
		out := make([]uint32, 0, cubeIndices)
		for f := range uint32(6) {
			for _, i := range quadIndexPattern {
				out = append(out, f*4+i)
			}
		}
		return out
	}()
)

// CubeRenderer batches unit cubes with depth testing and back-face culling.
type CubeRenderer struct {
	ctx    *gfx.Context
	target *gfx.Framebuffer

	camera *cameraBinding
	shader *gfx.Shader
	pipe   *gfx.Pipeline
	cubes  *batch

	inScene bool
	err     error
	stats   Stats

	onFlush func(flushRecord)
}

// NewCubeRenderer creates the cube batch for target. Only WithMaxCubes is
// relevant here.
func NewCubeRenderer(ctx *gfx.Context, target *gfx.Framebuffer, opts ...Option) (*CubeRenderer, error) {
	gfx.Assert(target != nil && target.ColorAttachmentCount() > 0, "cube renderer needs a color target")
	o := applyOptions(opts)
	r := &CubeRenderer{ctx: ctx, target: target}

	var err error
	if r.camera, err = newCameraBinding(ctx, "cubes"); err != nil {
		return nil, err
	}
	r.shader = gfx.NewShader(ctx, "cube", cubeShaderSource)
	r.pipe, err = gfx.NewPipeline(ctx, gfx.PipelineDesc{
		Label:       "cube_renderer",
		Shader:      r.shader,
		Vertex:      []gfx.VertexLayout{cubeLayout},
		BindLayouts: []*gfx.BindLayout{r.camera.layout},
		Targets:     colorTargets(target),
		Depth:       depthState(target, true, gputypes.CompareFunctionLess),
		CullMode:    gputypes.CullModeBack,
	})
	if err != nil {
		r.Destroy()
		return nil, err
	}
	if r.cubes, err = newBatch(ctx, "cubes", cubeLayout, o.maxCubes, cubeVertices, cubeIndexPattern); err != nil {
		r.Destroy()
		return nil, err
	}
	logging.Logger().Debug("renderer: cube renderer ready", "max_cubes", o.maxCubes)
	return r, nil
}

// Destroy releases the renderer's GPU objects.
func (r *CubeRenderer) Destroy() {
	if r == nil {
		return
	}
	r.cubes.destroy()
	r.pipe.Destroy()
	r.shader.Destroy()
	r.camera.destroy()
	r.cubes = nil
}

// BeginScene starts a scene drawn with viewProjection.
func (r *CubeRenderer) BeginScene(viewProjection geom.Mat4) error {
	r.ctx.AssertRenderThread()
	gfx.Assert(!r.inScene, "cube renderer: BeginScene inside a scene")
	r.inScene = true
	r.err = nil
	r.cubes.reset()
	return r.camera.set(viewProjection)
}

// EndScene flushes and returns the first flush error of the scene.
func (r *CubeRenderer) EndScene() error {
	gfx.Assert(r.inScene, "cube renderer: EndScene outside a scene")
	r.Flush()
	r.inScene = false
	err := r.err
	r.err = nil
	return err
}

// DrawCube draws the unit cube under transform.
func (r *CubeRenderer) DrawCube(transform geom.Mat4, color geom.Color, entity scene.Entity) {
	gfx.Assert(r.inScene, "cube renderer: DrawCube outside BeginScene/EndScene")
	if r.cubes.full() {
		r.Flush()
	}
	w := r.cubes.next()
	for _, face := range cubeFaces {
		n := transform.MulVec4(geom.V4(face.normal.X, face.normal.Y, face.normal.Z, 0)).XYZ().Normalize()
		for _, corner := range face.corners {
			w.vec3(transform.TransformPoint(corner))
			w.vec3(n)
			w.color(color)
			w.i32(int32(entity))
		}
	}
}

// DrawScene draws every cube of src.
func (r *CubeRenderer) DrawScene(src scene.Source) {
	src.EachCube(func(e scene.Entity, m geom.Mat4, c scene.Cube) { r.DrawCube(m, c.Color, e) })
}

// Flush draws the batch if it holds anything.
func (r *CubeRenderer) Flush() {
	gfx.Assert(r.inScene, "cube renderer: Flush outside a scene")
	b := r.cubes
	if b.count == 0 {
		return
	}
	defer b.reset()
	if err := r.draw(b); err != nil && r.err == nil {
		r.err = err
	}
	if r.onFlush != nil {
		r.onFlush(flushRecord{batch: b.label, count: b.count, indices: b.indexCount(), vertexBytes: len(b.used())})
	}
}

func (r *CubeRenderer) draw(b *batch) error {
	if err := b.upload(); err != nil {
		return err
	}
	pass, err := gfx.BeginPass(r.ctx, gfx.PassDesc{Label: "cubes", Target: r.target})
	if err != nil {
		return err
	}
	pass.SetPipeline(r.pipe)
	pass.SetBindGroup(0, r.camera.group)
	pass.SetVertexArray(b.va)
	pass.DrawIndexed(b.indexCount(), 0, 0)
	if err := pass.End(); err != nil {
		return err
	}
	r.stats.DrawCalls++
	r.stats.Cubes += b.count
	r.stats.Indices += int(b.indexCount())
	return nil
}

// Stats returns the counters since the last ResetStats.
func (r *CubeRenderer) Stats() Stats { return r.stats }

// ResetStats zeroes the counters.
func (r *CubeRenderer) ResetStats() { r.stats = Stats{} }
