package renderer

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"log/slog"
	"sync"
	"testing"

	"github.com/gogpu/gputypes"
	_ "github.com/gogpu/wgpu/hal/noop"

	"github.com/hearth-engine/hearth/gfx"
	"github.com/hearth-engine/hearth/internal/logging"
)

// newTestTarget opens a noop Context and an editor-style framebuffer:
// RGBA8 color, R32Sint entity ids and depth.
func newTestTarget(t *testing.T) (*gfx.Context, *gfx.Framebuffer) {
	t.Helper()
	ctx, err := gfx.New(gfx.WithBackend(gfx.BackendHeadless))
	if err != nil {
		t.Fatalf("gfx.New failed: %v", err)
	}
	t.Cleanup(ctx.Destroy)
	fb, err := gfx.NewFramebuffer(ctx, gfx.FramebufferSpec{
		Label:  "test_target",
		Width:  64,
		Height: 64,
		Attachments: []gputypes.TextureFormat{
			gputypes.TextureFormatRGBA8Unorm,
			gputypes.TextureFormatR32Sint,
			gputypes.TextureFormatDepth24Plus,
		},
	})
	if err != nil {
		t.Fatalf("NewFramebuffer failed: %v", err)
	}
	t.Cleanup(fb.Destroy)
	return ctx, fb
}

func newTestRenderer2D(t *testing.T, opts ...Option) (*gfx.Context, *Renderer2D, *[]flushRecord) {
	t.Helper()
	ctx, fb := newTestTarget(t)
	r, err := NewRenderer2D(ctx, fb, opts...)
	if err != nil {
		t.Fatalf("NewRenderer2D failed: %v", err)
	}
	t.Cleanup(r.Destroy)
	var flushes []flushRecord
	r.onFlush = func(rec flushRecord) { flushes = append(flushes, rec) }
	return ctx, r, &flushes
}

// checkerTexture uploads a small two-color checkerboard.
func checkerTexture(t *testing.T, ctx *gfx.Context, label string) *gfx.Texture {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := range 4 {
		for x := range 4 {
			c := color.RGBA{A: 255}
			if (x+y)%2 == 0 {
				c = color.RGBA{R: 255, G: 255, B: 255, A: 255}
			}
			img.SetRGBA(x, y, c)
		}
	}
	tex, err := gfx.NewTextureFromImage(ctx, label, img)
	if err != nil {
		t.Fatalf("NewTextureFromImage(%s) failed: %v", label, err)
	}
	t.Cleanup(tex.Destroy)
	return tex
}

// quadTexIndex reads the tex_index attribute of the first vertex of quad i
// in the CPU side of the quad batch.
func quadTexIndex(r *Renderer2D, i int) uint32 {
	off := i*r.quads.primBytes + quadLayout.Offset("tex_index")
	return binary.LittleEndian.Uint32(r.quads.data[off:])
}

func expectPanic(t *testing.T, name string, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Errorf("%s: expected panic", name)
		}
	}()
	fn()
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func captureLogs(t *testing.T) *syncBuffer {
	t.Helper()
	out := &syncBuffer{}
	prev := logging.Logger()
	logging.Set(slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { logging.Set(prev) })
	return out
}
