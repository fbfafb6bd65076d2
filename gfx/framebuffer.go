package gfx

import (
	"encoding/binary"
	"fmt"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/hearth-engine/hearth/internal/logging"
)

// MaxFramebufferSize is the largest accepted framebuffer side in pixels.
const MaxFramebufferSize = 8192

// FramebufferSpec describes a render target. Attachments are listed in
// order; at most one may be a depth format.
type FramebufferSpec struct {
	Label       string
	Width       int
	Height      int
	Attachments []gputypes.TextureFormat
}

// Framebuffer owns one texture per attachment of its spec.
type Framebuffer struct {
	ctx         *Context
	id          ResourceID
	spec        FramebufferSpec
	attachments []*Texture
	color       []int
	depth       int

	// newTexture creates attachments; tests replace it to inject failures.
	newTexture func(*Context, TextureSpec) (*Texture, error)
}

// NewFramebuffer creates a framebuffer and all of its attachments.
func NewFramebuffer(ctx *Context, spec FramebufferSpec) (*Framebuffer, error) {
	ctx.AssertRenderThread()
	Assert(validFramebufferSize(spec.Width, spec.Height), "framebuffer size %dx%d", spec.Width, spec.Height)
	Assert(len(spec.Attachments) > 0, "framebuffer %q has no attachments", spec.Label)
	if spec.Label == "" {
		spec.Label = "framebuffer"
	}
	spec.Attachments = append([]gputypes.TextureFormat(nil), spec.Attachments...)

	fb := &Framebuffer{ctx: ctx, id: nextResourceID(), spec: spec, depth: -1, newTexture: NewTexture}
	for i, f := range spec.Attachments {
		if f.HasDepth() {
			Assert(fb.depth < 0, "framebuffer %q has more than one depth attachment", spec.Label)
			fb.depth = i
		} else {
			fb.color = append(fb.color, i)
		}
	}
	attachments, err := fb.create(spec.Width, spec.Height)
	if err != nil {
		return nil, err
	}
	fb.attachments = attachments
	return fb, nil
}

func validFramebufferSize(w, h int) bool {
	return w > 0 && h > 0 && w <= MaxFramebufferSize && h <= MaxFramebufferSize
}

// create builds one texture per attachment at the given size. On failure
// the textures built so far are destroyed.
func (fb *Framebuffer) create(width, height int) ([]*Texture, error) {
	out := make([]*Texture, 0, len(fb.spec.Attachments))
	for i, f := range fb.spec.Attachments {
		usage := gputypes.TextureUsageRenderAttachment
		if !f.HasDepth() {
			usage |= gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopySrc
		}
		t, err := fb.newTexture(fb.ctx, TextureSpec{
			Label:  fmt.Sprintf("%s_attachment%d", fb.spec.Label, i),
			Width:  width,
			Height: height,
			Format: f,
			Usage:  usage,
		})
		if err != nil {
			destroyAll(out)
			return nil, fmt.Errorf("create framebuffer attachment %d: %w", i, err)
		}
		out = append(out, t)
	}
	return out, nil
}

func destroyAll(textures []*Texture) {
	for _, t := range textures {
		t.Destroy()
	}
}

func (fb *Framebuffer) release() {
	destroyAll(fb.attachments)
	fb.attachments = nil
}

// Resize recreates every attachment at the new size, including when the
// size is unchanged. A zero size or a side above MaxFramebufferSize is
// rejected with a warning and leaves the framebuffer untouched. If the new
// attachments cannot be created the error is returned and the old ones stay
// in place.
func (fb *Framebuffer) Resize(width, height int) error {
	fb.ctx.AssertRenderThread()
	if !validFramebufferSize(width, height) {
		logging.Logger().Warn("gfx: framebuffer resize rejected",
			"framebuffer", fb.spec.Label, "width", width, "height", height, "max", MaxFramebufferSize)
		return nil
	}
	attachments, err := fb.create(width, height)
	if err != nil {
		return fmt.Errorf("resize framebuffer %q: %w", fb.spec.Label, err)
	}
	fb.release()
	fb.attachments = attachments
	fb.spec.Width, fb.spec.Height = width, height
	logging.Logger().Debug("gfx: framebuffer resized", "framebuffer", fb.spec.Label, "width", width, "height", height)
	return nil
}

// ID returns the framebuffer's resource id.
func (fb *Framebuffer) ID() ResourceID { return fb.id }

// Spec returns the current specification.
func (fb *Framebuffer) Spec() FramebufferSpec { return fb.spec }

// Width returns the width in pixels.
func (fb *Framebuffer) Width() int { return fb.spec.Width }

// Height returns the height in pixels.
func (fb *Framebuffer) Height() int { return fb.spec.Height }

// ColorAttachmentCount returns the number of color attachments.
func (fb *Framebuffer) ColorAttachmentCount() int { return len(fb.color) }

// ColorAttachment returns the i-th color attachment.
func (fb *Framebuffer) ColorAttachment(i int) *Texture {
	Assert(i >= 0 && i < len(fb.color), "color attachment %d of %d", i, len(fb.color))
	return fb.attachments[fb.color[i]]
}

// DepthAttachment returns the depth attachment, or nil.
func (fb *Framebuffer) DepthAttachment() *Texture {
	if fb.depth < 0 {
		return nil
	}
	return fb.attachments[fb.depth]
}

// AttachmentID returns the resource id of attachment i in spec order.
func (fb *Framebuffer) AttachmentID(i int) ResourceID {
	Assert(i >= 0 && i < len(fb.attachments), "attachment %d of %d", i, len(fb.attachments))
	return fb.attachments[i].id
}

// ColorFormats returns the color attachment formats in order.
func (fb *Framebuffer) ColorFormats() []gputypes.TextureFormat {
	out := make([]gputypes.TextureFormat, len(fb.color))
	for i, idx := range fb.color {
		out[i] = fb.spec.Attachments[idx]
	}
	return out
}

// DepthFormat returns the depth format, or TextureFormatUndefined.
func (fb *Framebuffer) DepthFormat() gputypes.TextureFormat {
	if fb.depth < 0 {
		return gputypes.TextureFormatUndefined
	}
	return fb.spec.Attachments[fb.depth]
}

// ClearAttachment fills color attachment i with an integer value, as used
// for entity id targets. Must run on the render thread.
func (fb *Framebuffer) ClearAttachment(i int, value int32) error {
	fb.ctx.AssertRenderThread()
	tex := fb.ColorAttachment(i)
	clears := make([]gputypes.Color, len(fb.color))
	v := float64(value)
	clears[i] = gputypes.Color{R: v, G: v, B: v, A: v}
	pass, err := BeginPass(fb.ctx, PassDesc{
		Label:       "clear_attachment",
		Target:      fb,
		Only:        []int{i},
		Clear:       true,
		ClearColors: clears,
	})
	if err != nil {
		return fmt.Errorf("clear %s: %w", tex.spec.Label, err)
	}
	return pass.End()
}

// ReadPixel returns the 32-bit value at (x, y) of color attachment i. The
// attachment must have a 4-byte format. Must run on the render thread; the
// call waits for the GPU.
func (fb *Framebuffer) ReadPixel(i, x, y int) (int32, error) {
	fb.ctx.AssertRenderThread()
	tex := fb.ColorAttachment(i)
	Assert(FormatSize(tex.spec.Format) == 4, "read pixel from %s attachment", tex.spec.Format)
	Assert(x >= 0 && y >= 0 && x < fb.spec.Width && y < fb.spec.Height,
		"pixel (%d,%d) outside %dx%d", x, y, fb.spec.Width, fb.spec.Height)

	c := fb.ctx
	// Buffer copies need a 256-byte row pitch even for a single texel.
	const pitch = 256
	staging, err := c.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "read_pixel_staging",
		Size:  pitch,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return 0, fmt.Errorf("create staging buffer: %w", err)
	}
	defer c.device.DestroyBuffer(staging)

	encoder, err := c.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "read_pixel"})
	if err != nil {
		return 0, fmt.Errorf("create command encoder: %w", err)
	}
	defer encoder.Destroy()
	if err := encoder.BeginEncoding("read_pixel"); err != nil {
		return 0, fmt.Errorf("begin encoding: %w", err)
	}
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: tex.tex,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageRenderAttachment,
			NewUsage: gputypes.TextureUsageCopySrc,
		},
	}})
	encoder.CopyTextureToBuffer(tex.tex, staging, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{BytesPerRow: pitch, RowsPerImage: 1},
		TextureBase: hal.ImageCopyTexture{
			Texture: tex.tex,
			Origin:  hal.Origin3D{X: uint32(x), Y: uint32(y)}, //nolint:gosec // bounds checked above
			Aspect:  gputypes.TextureAspectAll,
		},
		Size: hal.Extent3D{Width: 1, Height: 1, DepthOrArrayLayers: 1},
	}})
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: tex.tex,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageCopySrc,
			NewUsage: gputypes.TextureUsageRenderAttachment,
		},
	}})
	cmd, err := encoder.EndEncoding()
	if err != nil {
		return 0, fmt.Errorf("end encoding: %w", err)
	}
	if _, err := c.Submit(cmd); err != nil {
		return 0, err
	}
	if err := c.WaitIdle(); err != nil {
		return 0, err
	}

	mapping, err := c.device.MapBuffer(staging, 0, 4)
	if err != nil {
		return 0, fmt.Errorf("map staging buffer: %w", err)
	}
	v := int32(binary.LittleEndian.Uint32(unsafe.Slice((*byte)(mapping.Ptr), 4))) //nolint:gosec // reinterpret texel bits
	if err := c.device.UnmapBuffer(staging); err != nil {
		return 0, fmt.Errorf("unmap staging buffer: %w", err)
	}
	return v, nil
}

// Destroy releases every attachment.
func (fb *Framebuffer) Destroy() {
	if fb == nil {
		return
	}
	fb.release()
}
