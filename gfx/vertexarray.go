package gfx

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Attribute is one named vertex attribute. Locations are assigned in
// declaration order.
type Attribute struct {
	Name   string
	Format gputypes.VertexFormat
}

// VertexLayout is an ordered attribute list with computed offsets and
// stride.
type VertexLayout struct {
	names  []string
	attrs  []gputypes.VertexAttribute
	stride uint64
	step   gputypes.VertexStepMode
}

// NewVertexLayout computes offsets for attrs, packed without padding.
func NewVertexLayout(attrs ...Attribute) VertexLayout {
	l := VertexLayout{step: gputypes.VertexStepModeVertex}
	var offset uint64
	for i, a := range attrs {
		size := a.Format.Size()
		Assert(size > 0, "vertex attribute %q has format %s", a.Name, a.Format)
		l.names = append(l.names, a.Name)
		l.attrs = append(l.attrs, gputypes.VertexAttribute{
			Format:         a.Format,
			Offset:         offset,
			ShaderLocation: uint32(i), //nolint:gosec // attribute count is tiny
		})
		offset += size
	}
	l.stride = offset
	return l
}

// Stride returns the size of one vertex in bytes.
func (l VertexLayout) Stride() uint64 { return l.stride }

// Len returns the number of attributes.
func (l VertexLayout) Len() int { return len(l.attrs) }

// Offset returns the byte offset of the named attribute, or -1.
func (l VertexLayout) Offset(name string) int {
	for i, n := range l.names {
		if n == name {
			return int(l.attrs[i].Offset) //nolint:gosec // small
		}
	}
	return -1
}

// BufferLayout returns the HAL description of the layout.
func (l VertexLayout) BufferLayout() gputypes.VertexBufferLayout {
	return gputypes.VertexBufferLayout{
		ArrayStride: l.stride,
		StepMode:    l.step,
		Attributes:  l.attrs,
	}
}

// VertexArray groups vertex buffers, their layouts and an optional index
// buffer. It owns the buffers added to it.
type VertexArray struct {
	id      ResourceID
	buffers []*VertexBuffer
	layouts []VertexLayout
	index   *IndexBuffer
}

// NewVertexArray returns an empty vertex array.
func NewVertexArray() *VertexArray {
	return &VertexArray{id: nextResourceID()}
}

// AddVertexBuffer binds vb at the next vertex buffer slot.
func (va *VertexArray) AddVertexBuffer(vb *VertexBuffer, layout VertexLayout) {
	Assert(layout.Len() > 0, "vertex buffer %q added with an empty layout", vb.label)
	va.buffers = append(va.buffers, vb)
	va.layouts = append(va.layouts, layout)
}

// SetIndexBuffer sets the index buffer.
func (va *VertexArray) SetIndexBuffer(ib *IndexBuffer) { va.index = ib }

// IndexBuffer returns the index buffer, or nil.
func (va *VertexArray) IndexBuffer() *IndexBuffer { return va.index }

// VertexBuffers returns the bound vertex buffers in slot order.
func (va *VertexArray) VertexBuffers() []*VertexBuffer { return va.buffers }

// ID returns the vertex array's resource id.
func (va *VertexArray) ID() ResourceID { return va.id }

// BufferLayouts returns the HAL layouts in slot order, for pipeline
// creation.
func (va *VertexArray) BufferLayouts() []gputypes.VertexBufferLayout {
	out := make([]gputypes.VertexBufferLayout, len(va.layouts))
	for i, l := range va.layouts {
		out[i] = l.BufferLayout()
	}
	return out
}

// Bind sets the vertex and index buffers on a render pass.
func (va *VertexArray) Bind(rp hal.RenderPassEncoder) {
	for i, vb := range va.buffers {
		rp.SetVertexBuffer(uint32(i), vb.buf, 0) //nolint:gosec // slot count is tiny
	}
	if va.index != nil {
		rp.SetIndexBuffer(va.index.buf, va.index.Format(), 0)
	}
}

// Destroy releases every buffer in the array.
func (va *VertexArray) Destroy() {
	for _, vb := range va.buffers {
		vb.Destroy()
	}
	if va.index != nil {
		va.index.Destroy()
	}
	va.buffers, va.layouts, va.index = nil, nil, nil
}
