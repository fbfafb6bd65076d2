package renderer

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/hearth-engine/hearth/geom"
	"github.com/hearth-engine/hearth/gfx"
	"github.com/hearth-engine/hearth/internal/logging"
)

// ErrArenaFull is returned by MultiDraw.Upload when no free region can hold
// the mesh. Callers release meshes they no longer need and retry.
var ErrArenaFull = errors.New("renderer: mesh arena full")

// MeshVertex is one vertex of a multi-draw mesh.
type MeshVertex struct {
	Position geom.Vec3
	Normal   geom.Vec3
}

// Mesh is an indexed triangle list. Indices are relative to the mesh's
// first vertex.
type Mesh struct {
	Vertices []MeshVertex
	Indices  []uint32
}

// Empty reports whether the mesh has nothing to draw.
func (m Mesh) Empty() bool { return len(m.Vertices) == 0 || len(m.Indices) == 0 }

var meshLayout = gfx.NewVertexLayout(
	gfx.Attribute{Name: "position", Format: gputypes.VertexFormatFloat32x3},
	gfx.Attribute{Name: "normal", Format: gputypes.VertexFormatFloat32x3},
)

// meshVertexSize is the packed size of a MeshVertex.
const meshVertexSize = 24

// MeshHandle names a mesh uploaded to a MultiDraw. The zero value is
// invalid, and a handle goes stale once its mesh is released.
type MeshHandle struct {
	index int32
	gen   uint32
}

// Valid reports whether h was returned by Upload. It does not tell whether
// the mesh is still resident.
func (h MeshHandle) Valid() bool { return h.gen != 0 }

type meshSlot struct {
	key          string
	gen          uint32
	live         bool
	vertexOffset int
	vertexCount  int
	indexOffset  int
	indexCount   int
	nextFree     int32
}

// MultiDrawStats reports arena occupancy and draw work.
type MultiDrawStats struct {
	Meshes         int
	Commands       int
	Flushes        int
	VertexUsed     int
	VertexCapacity int
	IndexUsed      int
	IndexCapacity  int
}

// ArenaCapacity splits mib mebibytes between vertices and indices at the
// ratio a heightmap grid mesh uses them.
func ArenaCapacity(mib int) (vertices, indices int) {
	total := mib << 20
	vertexBytes := total / 2
	return vertexBytes / meshVertexSize, (total - vertexBytes) / 4
}

// MultiDraw keeps many meshes resident in one vertex buffer and one index
// buffer and draws the meshes queued each frame with one indexed-indirect
// command apiece, all in a single render pass.
type MultiDraw struct {
	ctx    *gfx.Context
	target *gfx.Framebuffer

	camera   *cameraBinding
	shader   *gfx.Shader
	pipe     *gfx.Pipeline
	va       *gfx.VertexArray
	vb       *gfx.VertexBuffer
	ib       *gfx.IndexBuffer
	indirect *gfx.IndirectBuffer

	vertices regionAllocator
	indices  regionAllocator
	slots    []meshSlot
	freeSlot int32
	live     int

	queued []gfx.DrawIndexedIndirectArgs
	stats  MultiDrawStats

	onFlush func([]gfx.DrawIndexedIndirectArgs)
}

// NewMultiDraw allocates an arena of vertexCapacity vertices and
// indexCapacity indices drawing into target.
func NewMultiDraw(ctx *gfx.Context, target *gfx.Framebuffer, vertexCapacity, indexCapacity int) (*MultiDraw, error) {
	gfx.Assert(vertexCapacity > 0 && indexCapacity > 0, "multidraw arena %d vertices, %d indices", vertexCapacity, indexCapacity)
	md := &MultiDraw{
		ctx:      ctx,
		target:   target,
		vertices: newRegionAllocator(vertexCapacity),
		indices:  newRegionAllocator(indexCapacity),
		freeSlot: -1,
	}
	if err := md.init(vertexCapacity, indexCapacity); err != nil {
		md.Destroy()
		return nil, err
	}
	logging.Logger().Debug("renderer: multidraw arena ready",
		"vertices", vertexCapacity, "indices", indexCapacity)
	return md, nil
}

func (md *MultiDraw) init(vertexCapacity, indexCapacity int) error {
	var err error
	if md.camera, err = newCameraBinding(md.ctx, "multidraw"); err != nil {
		return err
	}
	md.shader = gfx.NewShader(md.ctx, "terrain", terrainShaderSource)
	if md.pipe, err = gfx.NewPipeline(md.ctx, gfx.PipelineDesc{
		Label:       "multidraw_terrain",
		Shader:      md.shader,
		Vertex:      []gfx.VertexLayout{meshLayout},
		BindLayouts: []*gfx.BindLayout{md.camera.layout},
		Targets:     colorTargets(md.target),
		Depth:       depthState(md.target, true, gputypes.CompareFunctionLess),
		CullMode:    gputypes.CullModeBack,
	}); err != nil {
		return err
	}
	if md.vb, err = gfx.NewVertexBuffer(md.ctx, "multidraw_vertices", uint64(vertexCapacity)*meshVertexSize); err != nil { //nolint:gosec // positive
		return fmt.Errorf("create multidraw arena: %w", err)
	}
	if md.ib, err = gfx.NewIndexBuffer(md.ctx, "multidraw_indices", indexCapacity); err != nil {
		md.vb.Destroy()
		return fmt.Errorf("create multidraw arena: %w", err)
	}
	md.va = gfx.NewVertexArray()
	md.va.AddVertexBuffer(md.vb, meshLayout)
	md.va.SetIndexBuffer(md.ib)
	return md.ensureIndirect(64)
}

// ensureIndirect grows the indirect buffer to hold at least n commands.
func (md *MultiDraw) ensureIndirect(n int) error {
	if md.indirect != nil && md.indirect.Capacity() >= n {
		return nil
	}
	capacity := 64
	for capacity < n {
		capacity *= 2
	}
	buf, err := gfx.NewIndirectBuffer(md.ctx, "multidraw_commands", capacity)
	if err != nil {
		return fmt.Errorf("grow multidraw commands: %w", err)
	}
	if md.indirect != nil {
		md.indirect.Destroy()
	}
	md.indirect = buf
	return nil
}

// Destroy releases the arena and every GPU object.
func (md *MultiDraw) Destroy() {
	if md == nil {
		return
	}
	if md.va != nil {
		md.va.Destroy()
	}
	if md.indirect != nil {
		md.indirect.Destroy()
	}
	md.pipe.Destroy()
	md.shader.Destroy()
	md.camera.destroy()
	md.va, md.vb, md.ib, md.indirect = nil, nil, nil, nil
	md.slots, md.queued = nil, nil
}

// Upload copies mesh into free regions of the arena. key labels the mesh in
// logs. ErrArenaFull means no region is large enough; nothing is written.
func (md *MultiDraw) Upload(key string, mesh Mesh) (MeshHandle, error) {
	md.ctx.AssertRenderThread()
	gfx.Assert(!mesh.Empty(), "multidraw: upload of empty mesh %q", key)
	nv, ni := len(mesh.Vertices), len(mesh.Indices)

	vOff, ok := md.vertices.alloc(nv)
	if !ok {
		return MeshHandle{}, md.full(key, "vertices", nv, md.vertices.largestFree())
	}
	iOff, ok := md.indices.alloc(ni)
	if !ok {
		md.vertices.release(vOff, nv)
		return MeshHandle{}, md.full(key, "indices", ni, md.indices.largestFree())
	}

	if err := md.vb.SetData(packMeshVertices(mesh.Vertices), uint64(vOff)*meshVertexSize); err != nil { //nolint:gosec // offset within arena
		md.vertices.release(vOff, nv)
		md.indices.release(iOff, ni)
		return MeshHandle{}, fmt.Errorf("upload mesh %s: %w", key, err)
	}
	if err := md.ib.SetIndices(mesh.Indices, iOff); err != nil {
		md.vertices.release(vOff, nv)
		md.indices.release(iOff, ni)
		return MeshHandle{}, fmt.Errorf("upload mesh %s: %w", key, err)
	}

	idx := md.allocSlot()
	s := &md.slots[idx]
	s.key = key
	s.live = true
	s.vertexOffset, s.vertexCount = vOff, nv
	s.indexOffset, s.indexCount = iOff, ni
	md.live++
	return MeshHandle{index: idx, gen: s.gen}, nil
}

func (md *MultiDraw) full(key, what string, need, largest int) error {
	logging.Logger().Warn("renderer: mesh arena full",
		"mesh", key, "resource", what, "need", need, "largest_free", largest)
	return fmt.Errorf("%w: mesh %s needs %d %s, largest free region %d", ErrArenaFull, key, need, what, largest)
}

func (md *MultiDraw) allocSlot() int32 {
	if md.freeSlot >= 0 {
		idx := md.freeSlot
		md.freeSlot = md.slots[idx].nextFree
		return idx
	}
	md.slots = append(md.slots, meshSlot{gen: 1})
	return int32(len(md.slots) - 1) //nolint:gosec // slot count bounded by arena size
}

func (md *MultiDraw) slot(h MeshHandle) *meshSlot {
	gfx.Assert(h.Valid() && int(h.index) < len(md.slots), "multidraw: invalid mesh handle %+v", h)
	s := &md.slots[h.index]
	gfx.Assert(s.live && s.gen == h.gen, "multidraw: stale mesh handle %+v", h)
	return s
}

// Resident reports whether h still names an uploaded mesh.
func (md *MultiDraw) Resident(h MeshHandle) bool {
	if !h.Valid() || int(h.index) >= len(md.slots) {
		return false
	}
	s := &md.slots[h.index]
	return s.live && s.gen == h.gen
}

// Key returns the label given at upload.
func (md *MultiDraw) Key(h MeshHandle) string { return md.slot(h).key }

// Release frees the mesh's regions. Draws already queued for this frame
// must not reference it.
func (md *MultiDraw) Release(h MeshHandle) {
	md.ctx.AssertRenderThread()
	s := md.slot(h)
	md.vertices.release(s.vertexOffset, s.vertexCount)
	md.indices.release(s.indexOffset, s.indexCount)
	*s = meshSlot{gen: s.gen + 1, nextFree: md.freeSlot}
	md.freeSlot = h.index
	md.live--
}

// Add queues one draw of h for the next Flush.
func (md *MultiDraw) Add(h MeshHandle) {
	s := md.slot(h)
	md.queued = append(md.queued, gfx.DrawIndexedIndirectArgs{
		IndexCount:    uint32(s.indexCount),  //nolint:gosec // bounded by arena
		InstanceCount: 1,
		FirstIndex:    uint32(s.indexOffset), //nolint:gosec // bounded by arena
		BaseVertex:    int32(s.vertexOffset), //nolint:gosec // bounded by arena
	})
}

// Queued returns the number of draws waiting for Flush.
func (md *MultiDraw) Queued() int { return len(md.queued) }

// Flush writes the queued commands to the indirect buffer and draws them in
// one pass. The queue is empty afterwards, even on error.
func (md *MultiDraw) Flush(viewProjection geom.Mat4) error {
	md.ctx.AssertRenderThread()
	if len(md.queued) == 0 {
		return nil
	}
	cmds := md.queued
	defer func() { md.queued = md.queued[:0] }()

	if err := md.camera.set(viewProjection); err != nil {
		return fmt.Errorf("multidraw camera: %w", err)
	}
	if err := md.ensureIndirect(len(cmds)); err != nil {
		return err
	}
	if err := md.indirect.SetCommands(cmds); err != nil {
		return fmt.Errorf("multidraw commands: %w", err)
	}
	pass, err := gfx.BeginPass(md.ctx, gfx.PassDesc{Label: "multidraw", Target: md.target})
	if err != nil {
		return err
	}
	pass.SetPipeline(md.pipe)
	pass.SetBindGroup(0, md.camera.group)
	pass.SetVertexArray(md.va)
	for i := range cmds {
		pass.DrawIndexedIndirect(md.indirect, i)
	}
	if err := pass.End(); err != nil {
		return err
	}
	md.stats.Commands += len(cmds)
	md.stats.Flushes++
	if md.onFlush != nil {
		md.onFlush(cmds)
	}
	return nil
}

// Stats returns occupancy plus the draw counters since ResetStats.
func (md *MultiDraw) Stats() MultiDrawStats {
	s := md.stats
	s.Meshes = md.live
	s.VertexUsed, s.VertexCapacity = md.vertices.used, md.vertices.capacity
	s.IndexUsed, s.IndexCapacity = md.indices.used, md.indices.capacity
	return s
}

// ResetStats zeroes the draw counters.
func (md *MultiDraw) ResetStats() { md.stats = MultiDrawStats{} }

func packMeshVertices(vs []MeshVertex) []byte {
	buf := make([]byte, len(vs)*meshVertexSize)
	w := vertexWriter{buf: buf}
	for _, v := range vs {
		w.vec3(v.Position)
		w.vec3(v.Normal)
	}
	return buf
}
