package gfx

import (
	"encoding/binary"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/hearth-engine/hearth/internal/logging"
)

// Buffer is a GPU buffer. The typed wrappers below fix its usage.
type Buffer struct {
	ctx   *Context
	id    ResourceID
	label string
	buf   hal.Buffer
	size  uint64
	usage gputypes.BufferUsage
}

func newBuffer(ctx *Context, label string, size uint64, usage gputypes.BufferUsage) (*Buffer, error) {
	ctx.AssertRenderThread()
	Assert(size > 0, "buffer %q has zero size", label)
	// Writes must be 4-byte aligned.
	size = (size + 3) &^ 3
	buf, err := ctx.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: usage,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s buffer (%d bytes): %w", label, size, err)
	}
	b := &Buffer{ctx: ctx, id: nextResourceID(), label: label, buf: buf, size: size, usage: usage}
	logging.Logger().Debug("gfx: buffer created", "label", label, "id", b.id, "size", size)
	return b, nil
}

// SetData writes data at offset. Writing past the end panics.
func (b *Buffer) SetData(data []byte, offset uint64) error {
	b.ctx.AssertRenderThread()
	Assert(b.buf != nil, "buffer %q used after Destroy", b.label)
	Assert(offset+uint64(len(data)) <= b.size,
		"buffer %q: write of %d bytes at %d overflows size %d", b.label, len(data), offset, b.size)
	Assert(offset%4 == 0 && len(data)%4 == 0, "buffer %q: unaligned write (%d at %d)", b.label, len(data), offset)
	if len(data) == 0 {
		return nil
	}
	if err := b.ctx.queue.WriteBuffer(b.buf, offset, data); err != nil {
		return fmt.Errorf("write %s buffer: %w", b.label, err)
	}
	return nil
}

// ID returns the buffer's resource id.
func (b *Buffer) ID() ResourceID { return b.id }

// Size returns the allocated size in bytes.
func (b *Buffer) Size() uint64 { return b.size }

// Label returns the debug label.
func (b *Buffer) Label() string { return b.label }

// Raw returns the HAL buffer.
func (b *Buffer) Raw() hal.Buffer { return b.buf }

// Destroy releases the buffer once in-flight work no longer needs it.
func (b *Buffer) Destroy() {
	if b == nil || b.buf == nil {
		return
	}
	buf := b.buf
	b.buf = nil
	b.ctx.deferDestroy(func(d hal.Device) { d.DestroyBuffer(buf) })
}

// VertexBuffer holds vertex records.
type VertexBuffer struct {
	*Buffer
}

// NewVertexBuffer allocates an empty vertex buffer of size bytes.
func NewVertexBuffer(ctx *Context, label string, size uint64) (*VertexBuffer, error) {
	b, err := newBuffer(ctx, label, size, gputypes.BufferUsageVertex|gputypes.BufferUsageCopyDst)
	if err != nil {
		return nil, err
	}
	return &VertexBuffer{b}, nil
}

// NewVertexBufferWithData allocates a vertex buffer sized to data and
// uploads it.
func NewVertexBufferWithData(ctx *Context, label string, data []byte) (*VertexBuffer, error) {
	vb, err := NewVertexBuffer(ctx, label, uint64(len(data)))
	if err != nil {
		return nil, err
	}
	if err := vb.SetData(data, 0); err != nil {
		vb.Destroy()
		return nil, err
	}
	return vb, nil
}

// IndexBuffer holds 32-bit indices.
type IndexBuffer struct {
	*Buffer
	count uint32
}

// NewIndexBuffer allocates room for capacity indices.
func NewIndexBuffer(ctx *Context, label string, capacity int) (*IndexBuffer, error) {
	Assert(capacity > 0, "index buffer %q capacity %d", label, capacity)
	b, err := newBuffer(ctx, label, uint64(capacity)*4, gputypes.BufferUsageIndex|gputypes.BufferUsageCopyDst)
	if err != nil {
		return nil, err
	}
	return &IndexBuffer{Buffer: b}, nil
}

// NewIndexBufferWithData allocates an index buffer holding indices.
func NewIndexBufferWithData(ctx *Context, label string, indices []uint32) (*IndexBuffer, error) {
	ib, err := NewIndexBuffer(ctx, label, len(indices))
	if err != nil {
		return nil, err
	}
	if err := ib.SetIndices(indices, 0); err != nil {
		ib.Destroy()
		return nil, err
	}
	return ib, nil
}

// SetIndices writes indices starting at index position first. Count grows
// to cover the written range.
func (ib *IndexBuffer) SetIndices(indices []uint32, first int) error {
	if err := ib.SetData(PackUint32(indices), uint64(first)*4); err != nil {
		return err
	}
	ib.count = max(ib.count, uint32(first+len(indices))) //nolint:gosec // bounded by buffer size
	return nil
}

// Count returns the number of indices written.
func (ib *IndexBuffer) Count() uint32 { return ib.count }

// Format returns the index format.
func (ib *IndexBuffer) Format() gputypes.IndexFormat { return gputypes.IndexFormatUint32 }

// UniformBuffer holds shader constants.
type UniformBuffer struct {
	*Buffer
}

// NewUniformBuffer allocates a uniform buffer of size bytes.
func NewUniformBuffer(ctx *Context, label string, size uint64) (*UniformBuffer, error) {
	// Uniform bindings are sized in 16-byte units.
	size = (size + 15) &^ 15
	b, err := newBuffer(ctx, label, size, gputypes.BufferUsageUniform|gputypes.BufferUsageCopyDst)
	if err != nil {
		return nil, err
	}
	return &UniformBuffer{b}, nil
}

// Entry returns a bind group entry binding the whole buffer at binding.
func (ub *UniformBuffer) Entry(binding uint32) gputypes.BindGroupEntry {
	return gputypes.BindGroupEntry{
		Binding: binding,
		Resource: gputypes.BufferBinding{
			Buffer: ub.buf.NativeHandle(),
			Size:   ub.size,
		},
	}
}

// DrawIndexedIndirectArgs is one indexed-indirect draw command as the GPU
// reads it.
type DrawIndexedIndirectArgs struct {
	IndexCount    uint32
	InstanceCount uint32
	FirstIndex    uint32
	BaseVertex    int32
	FirstInstance uint32
}

// DrawIndexedIndirectSize is the byte size of one DrawIndexedIndirectArgs.
const DrawIndexedIndirectSize = 20

// IndirectBuffer holds indexed-indirect draw commands.
type IndirectBuffer struct {
	*Buffer
	capacity int
}

// NewIndirectBuffer allocates room for capacity draw commands.
func NewIndirectBuffer(ctx *Context, label string, capacity int) (*IndirectBuffer, error) {
	Assert(capacity > 0, "indirect buffer %q capacity %d", label, capacity)
	b, err := newBuffer(ctx, label, uint64(capacity)*DrawIndexedIndirectSize,
		gputypes.BufferUsageIndirect|gputypes.BufferUsageCopyDst)
	if err != nil {
		return nil, err
	}
	return &IndirectBuffer{Buffer: b, capacity: capacity}, nil
}

// Capacity returns how many commands fit.
func (ib *IndirectBuffer) Capacity() int { return ib.capacity }

// SetCommands writes cmds from the start of the buffer.
func (ib *IndirectBuffer) SetCommands(cmds []DrawIndexedIndirectArgs) error {
	Assert(len(cmds) <= ib.capacity, "indirect buffer %q: %d commands, capacity %d", ib.label, len(cmds), ib.capacity)
	buf := make([]byte, len(cmds)*DrawIndexedIndirectSize)
	for i, c := range cmds {
		o := i * DrawIndexedIndirectSize
		binary.LittleEndian.PutUint32(buf[o:], c.IndexCount)
		binary.LittleEndian.PutUint32(buf[o+4:], c.InstanceCount)
		binary.LittleEndian.PutUint32(buf[o+8:], c.FirstIndex)
		binary.LittleEndian.PutUint32(buf[o+12:], uint32(c.BaseVertex)) //nolint:gosec // two's complement on the wire
		binary.LittleEndian.PutUint32(buf[o+16:], c.FirstInstance)
	}
	return ib.SetData(buf, 0)
}

// PackUint32 serializes values as little-endian bytes.
func PackUint32(values []uint32) []byte {
	buf := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[i*4:], v)
	}
	return buf
}
