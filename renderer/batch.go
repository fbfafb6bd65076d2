package renderer

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/hearth-engine/hearth/geom"
	"github.com/hearth-engine/hearth/gfx"
)

// batch is a bounded CPU vertex buffer of identical primitives plus the GPU
// buffers it is flushed into. The index buffer is built once for the full
// capacity, so a flush only uploads vertices.
type batch struct {
	label     string
	layout    gfx.VertexLayout
	verts     int // vertices per primitive
	indices   int // indices per primitive
	capacity  int
	primBytes int
	data      []byte
	count     int
	va        *gfx.VertexArray
}

// newBatch allocates GPU buffers for capacity primitives. pattern holds one
// primitive's indices relative to its first vertex.
func newBatch(ctx *gfx.Context, label string, layout gfx.VertexLayout, capacity, verts int, pattern []uint32) (*batch, error) {
	gfx.Assert(capacity > 0, "%s batch capacity %d", label, capacity)
	primBytes := verts * int(layout.Stride()) //nolint:gosec // stride is small
	vb, err := gfx.NewVertexBuffer(ctx, label+"_vertices", uint64(capacity*primBytes)) //nolint:gosec // positive
	if err != nil {
		return nil, fmt.Errorf("create %s batch: %w", label, err)
	}
	indices := make([]uint32, 0, capacity*len(pattern))
	for i := range capacity {
		base := uint32(i * verts) //nolint:gosec // capacity bounded by config validation
		for _, p := range pattern {
			indices = append(indices, base+p)
		}
	}
	ib, err := gfx.NewIndexBufferWithData(ctx, label+"_indices", indices)
	if err != nil {
		vb.Destroy()
		return nil, fmt.Errorf("create %s batch: %w", label, err)
	}
	va := gfx.NewVertexArray()
	va.AddVertexBuffer(vb, layout)
	va.SetIndexBuffer(ib)

	return &batch{
		label:     label,
		layout:    layout,
		verts:     verts,
		indices:   len(pattern),
		capacity:  capacity,
		primBytes: primBytes,
		data:      make([]byte, capacity*primBytes),
		va:        va,
	}, nil
}

func (b *batch) full() bool { return b.count == b.capacity }

// next reserves the next primitive and returns a writer over its vertices.
func (b *batch) next() vertexWriter {
	gfx.Assert(b.count < b.capacity, "%s batch overflow", b.label)
	w := vertexWriter{buf: b.data[b.count*b.primBytes : (b.count+1)*b.primBytes]}
	b.count++
	return w
}

// used returns the vertex bytes written since the last reset.
func (b *batch) used() []byte { return b.data[:b.count*b.primBytes] }

func (b *batch) indexCount() uint32 { return uint32(b.count * b.indices) } //nolint:gosec // bounded

// upload writes exactly the used vertex range.
func (b *batch) upload() error {
	return b.va.VertexBuffers()[0].SetData(b.used(), 0)
}

func (b *batch) reset() { b.count = 0 }

func (b *batch) destroy() {
	if b != nil {
		b.va.Destroy()
	}
}

// vertexWriter packs little-endian vertex attributes.
type vertexWriter struct {
	buf []byte
	off int
}

func (w *vertexWriter) f32(v float32) {
	binary.LittleEndian.PutUint32(w.buf[w.off:], math.Float32bits(v))
	w.off += 4
}

func (w *vertexWriter) u32(v uint32) {
	binary.LittleEndian.PutUint32(w.buf[w.off:], v)
	w.off += 4
}

func (w *vertexWriter) i32(v int32) { w.u32(uint32(v)) } //nolint:gosec // bit pattern

func (w *vertexWriter) vec2(v geom.Vec2) {
	w.f32(v.X)
	w.f32(v.Y)
}

func (w *vertexWriter) vec3(v geom.Vec3) {
	w.f32(v.X)
	w.f32(v.Y)
	w.f32(v.Z)
}

func (w *vertexWriter) color(c geom.Color) {
	w.f32(c.R)
	w.f32(c.G)
	w.f32(c.B)
	w.f32(c.A)
}
