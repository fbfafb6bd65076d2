package gfx

import (
	"fmt"
	"image"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"golang.org/x/image/draw"

	"github.com/hearth-engine/hearth/internal/logging"
)

// TextureSpec describes a 2D texture.
type TextureSpec struct {
	Label  string
	Width  int
	Height int
	// Format defaults to RGBA8Unorm.
	Format gputypes.TextureFormat
	// Usage defaults to sampling plus copy destination.
	Usage gputypes.TextureUsage
}

// Texture is a 2D texture and its default view.
type Texture struct {
	ctx  *Context
	id   ResourceID
	spec TextureSpec
	tex  hal.Texture
	view hal.TextureView
}

// NewTexture allocates an uninitialized texture.
func NewTexture(ctx *Context, spec TextureSpec) (*Texture, error) {
	ctx.AssertRenderThread()
	if spec.Format == gputypes.TextureFormatUndefined {
		spec.Format = gputypes.TextureFormatRGBA8Unorm
	}
	if spec.Usage == gputypes.TextureUsageNone {
		spec.Usage = gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst
	}
	maxDim := int(ctx.limits.MaxTextureDimension2D)
	Assert(spec.Width > 0 && spec.Height > 0, "texture %q size %dx%d", spec.Label, spec.Width, spec.Height)
	Assert(maxDim == 0 || (spec.Width <= maxDim && spec.Height <= maxDim),
		"texture %q size %dx%d exceeds %d", spec.Label, spec.Width, spec.Height, maxDim)

	tex, err := ctx.device.CreateTexture(&hal.TextureDescriptor{
		Label: spec.Label,
		Size: hal.Extent3D{
			Width:              uint32(spec.Width),  //nolint:gosec // checked positive above
			Height:             uint32(spec.Height), //nolint:gosec // checked positive above
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        spec.Format,
		Usage:         spec.Usage,
	})
	if err != nil {
		return nil, fmt.Errorf("create texture %q: %w", spec.Label, err)
	}
	aspect := gputypes.TextureAspectAll
	if spec.Format.HasDepth() {
		aspect = gputypes.TextureAspectDepthOnly
	}
	view, err := ctx.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         spec.Label + "_view",
		Format:        spec.Format,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        aspect,
		MipLevelCount: 1,
	})
	if err != nil {
		ctx.device.DestroyTexture(tex)
		return nil, fmt.Errorf("create texture view %q: %w", spec.Label, err)
	}
	t := &Texture{ctx: ctx, id: nextResourceID(), spec: spec, tex: tex, view: view}
	logging.Logger().Debug("gfx: texture created",
		"label", spec.Label, "id", t.id, "w", spec.Width, "h", spec.Height, "format", spec.Format.String())
	return t, nil
}

// NewTextureFromImage uploads img as an RGBA8 texture. Images larger than
// the device's maximum texture dimension are scaled down, keeping the
// aspect ratio.
func NewTextureFromImage(ctx *Context, label string, img image.Image) (*Texture, error) {
	rgba := toRGBA(img, int(ctx.limits.MaxTextureDimension2D))
	b := rgba.Bounds()
	t, err := NewTexture(ctx, TextureSpec{Label: label, Width: b.Dx(), Height: b.Dy()})
	if err != nil {
		return nil, err
	}
	if err := t.SetData(rgba.Pix); err != nil {
		t.Destroy()
		return nil, err
	}
	return t, nil
}

// toRGBA converts img to a tightly packed *image.RGBA no larger than maxDim
// on either side.
func toRGBA(img image.Image, maxDim int) *image.RGBA {
	src := img.Bounds()
	w, h := src.Dx(), src.Dy()
	if maxDim > 0 && (w > maxDim || h > maxDim) {
		if w >= h {
			h = max(1, h*maxDim/w)
			w = maxDim
		} else {
			w = max(1, w*maxDim/h)
			h = maxDim
		}
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, src, draw.Src, nil)
		return dst
	}
	if rgba, ok := img.(*image.RGBA); ok && rgba.Stride == 4*w && src.Min == (image.Point{}) {
		return rgba
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), img, src.Min, draw.Src)
	return dst
}

// SetData replaces the whole texture contents. len(data) must equal
// width*height*bytes-per-pixel.
func (t *Texture) SetData(data []byte) error {
	t.ctx.AssertRenderThread()
	Assert(t.tex != nil, "texture %q used after Destroy", t.spec.Label)
	bpp := FormatSize(t.spec.Format)
	Assert(bpp > 0, "texture %q: SetData unsupported for format %s", t.spec.Label, t.spec.Format)
	want := t.spec.Width * t.spec.Height * bpp
	Assert(len(data) == want, "texture %q: data is %d bytes, want %d", t.spec.Label, len(data), want)

	err := t.ctx.queue.WriteTexture(
		&hal.ImageCopyTexture{Texture: t.tex, Aspect: gputypes.TextureAspectAll},
		data,
		&hal.ImageDataLayout{
			BytesPerRow:  uint32(t.spec.Width * bpp), //nolint:gosec // bounded by max texture dimension
			RowsPerImage: uint32(t.spec.Height),      //nolint:gosec // bounded by max texture dimension
		},
		&hal.Extent3D{Width: uint32(t.spec.Width), Height: uint32(t.spec.Height), DepthOrArrayLayers: 1}, //nolint:gosec // bounded
	)
	if err != nil {
		return fmt.Errorf("write texture %q: %w", t.spec.Label, err)
	}
	return nil
}

// ID returns the texture's resource id.
func (t *Texture) ID() ResourceID { return t.id }

// Width returns the width in pixels.
func (t *Texture) Width() int { return t.spec.Width }

// Height returns the height in pixels.
func (t *Texture) Height() int { return t.spec.Height }

// Format returns the pixel format.
func (t *Texture) Format() gputypes.TextureFormat { return t.spec.Format }

// Spec returns the creation parameters.
func (t *Texture) Spec() TextureSpec { return t.spec }

// Raw returns the HAL texture.
func (t *Texture) Raw() hal.Texture { return t.tex }

// View returns the default texture view.
func (t *Texture) View() hal.TextureView { return t.view }

// Destroy releases the texture once in-flight work no longer needs it and
// drops every cached bind group that references it. Calling Destroy twice is
// a no-op.
func (t *Texture) Destroy() {
	if t == nil || t.tex == nil {
		return
	}
	tex, view := t.tex, t.view
	t.tex, t.view = nil, nil
	t.ctx.forgetTexture(t.id)
	t.ctx.deferDestroy(func(d hal.Device) {
		d.DestroyTextureView(view)
		d.DestroyTexture(tex)
	})
}

// FormatSize returns bytes per pixel for the formats this package reads and
// writes, or 0 for any other format.
func FormatSize(f gputypes.TextureFormat) int {
	switch f {
	case gputypes.TextureFormatR8Unorm:
		return 1
	case gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatRGBA8UnormSrgb,
		gputypes.TextureFormatBGRA8Unorm, gputypes.TextureFormatBGRA8UnormSrgb,
		gputypes.TextureFormatR32Sint, gputypes.TextureFormatR32Uint, gputypes.TextureFormatR32Float,
		gputypes.TextureFormatDepth32Float, gputypes.TextureFormatDepth24Plus:
		return 4
	case gputypes.TextureFormatRGBA16Float:
		return 8
	case gputypes.TextureFormatRGBA32Float:
		return 16
	default:
		return 0
	}
}
