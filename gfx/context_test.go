package gfx

import (
	"errors"
	"runtime"
	"testing"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"

	"github.com/hearth-engine/hearth/internal/threadid"
)

// =============================================================================
// Context lifecycle
// =============================================================================

func TestNew_Headless(t *testing.T) {
	ctx := newTestContext(t)

	if ctx.Backend() != BackendHeadless {
		t.Errorf("Backend() = %v, want headless", ctx.Backend())
	}
	if ctx.Device() == nil || ctx.Queue() == nil {
		t.Fatal("device or queue is nil")
	}
	if ctx.AdapterInfo().Name == "" {
		t.Error("adapter name is empty")
	}
	if w := ctx.WhiteTexture(); w == nil || w.Width() != 1 || w.Height() != 1 {
		t.Errorf("white texture = %+v, want 1x1", w)
	}
	if ctx.Sampler() == nil {
		t.Error("sampler is nil")
	}
}

func TestNew_AutoPicksRegistered(t *testing.T) {
	ctx, err := New()
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer ctx.Destroy()
	if ctx.Backend() == BackendAuto {
		t.Error("auto backend was not resolved to a concrete backend")
	}
}

func TestNew_WithLimits(t *testing.T) {
	limits := gputypes.DefaultLimits()
	limits.MaxSampledTexturesPerShaderStage = 8
	ctx := newTestContext(t, WithLimits(limits))

	if got := ctx.Limits().MaxSampledTexturesPerShaderStage; got != 8 {
		t.Errorf("MaxSampledTexturesPerShaderStage = %d, want 8", got)
	}
	if got := ctx.TextureSlotCapacity(32); got != 8 {
		t.Errorf("TextureSlotCapacity(32) = %d, want 8", got)
	}

	limits.MaxSampledTexturesPerShaderStage = 1
	tiny := newTestContext(t, WithLimits(limits))
	if got := tiny.TextureSlotCapacity(16); got != MinTextureSlots {
		t.Errorf("TextureSlotCapacity(16) with a 1-texture limit = %d, want %d", got, MinTextureSlots)
	}
}

func TestContext_DestroyIdempotent(t *testing.T) {
	ctx, err := New(WithBackend(BackendHeadless))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ctx.Destroy()
	ctx.Destroy()
	expectPanic(t, "use after destroy", ctx.AssertRenderThread)
}

func TestContext_WrongThreadPanics(t *testing.T) {
	if !threadid.Supported() {
		t.Skip("thread ids unsupported on " + runtime.GOOS)
	}
	ctx := newTestContext(t)

	panicked := make(chan bool)
	go func() {
		// The render goroutine is locked to its thread, so this one runs
		// elsewhere.
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		defer func() { panicked <- recover() != nil }()
		ctx.AssertRenderThread()
	}()
	if !<-panicked {
		t.Fatal("AssertRenderThread did not panic off the render thread")
	}
	ctx.AssertRenderThread()
}

// =============================================================================
// Submissions and deferred releases
// =============================================================================

func TestContext_SubmitFreesCompleted(t *testing.T) {
	ctx := newTestContext(t)
	fb, err := NewFramebuffer(ctx, FramebufferSpec{
		Width: 4, Height: 4,
		Attachments: []gputypes.TextureFormat{gputypes.TextureFormatRGBA8Unorm},
	})
	if err != nil {
		t.Fatalf("NewFramebuffer failed: %v", err)
	}
	defer fb.Destroy()

	pass, err := BeginPass(ctx, PassDesc{Label: "submit_test", Target: fb, Clear: true})
	if err != nil {
		t.Fatalf("BeginPass failed: %v", err)
	}
	if err := pass.End(); err != nil {
		t.Fatalf("End failed: %v", err)
	}
	// The noop queue completes synchronously.
	if n := ctx.InFlight(); n != 0 {
		t.Errorf("InFlight() = %d, want 0", n)
	}
}

func TestContext_DeferRunsAfterNextSubmission(t *testing.T) {
	ctx := newTestContext(t)
	ran := false
	ctx.Defer(func() { ran = true })
	ctx.Poll()
	if ran {
		t.Fatal("deferred release ran before its submission")
	}

	fb, err := NewFramebuffer(ctx, FramebufferSpec{
		Width: 2, Height: 2,
		Attachments: []gputypes.TextureFormat{gputypes.TextureFormatRGBA8Unorm},
	})
	if err != nil {
		t.Fatalf("NewFramebuffer failed: %v", err)
	}
	defer fb.Destroy()
	pass, err := BeginPass(ctx, PassDesc{Target: fb})
	if err != nil {
		t.Fatalf("BeginPass failed: %v", err)
	}
	if err := pass.End(); err != nil {
		t.Fatalf("End failed: %v", err)
	}
	if !ran {
		t.Fatal("deferred release did not run after submission completed")
	}
}

func TestContext_DeferAfterDestroyRunsImmediately(t *testing.T) {
	ctx, err := New(WithBackend(BackendHeadless))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	tex, err := NewTexture(ctx, TextureSpec{Label: "late", Width: 2, Height: 2})
	if err != nil {
		t.Fatalf("NewTexture failed: %v", err)
	}
	ctx.Destroy()
	tex.Destroy() // must not touch the released device
}

// =============================================================================
// FromProvider
// =============================================================================

type testProvider struct {
	device any
	queue  any
}

func (p testProvider) Device() gpucontext.Device { return p.device }
func (p testProvider) Queue() gpucontext.Queue   { return p.queue }
func (p testProvider) SurfaceFormat() gputypes.TextureFormat {
	return gputypes.TextureFormatBGRA8Unorm
}
func (p testProvider) Adapter() gpucontext.Adapter { return nil }
func (p testProvider) AdapterInfo() gpucontext.AdapterInfo {
	return gpucontext.AdapterInfo{Name: "host adapter"}
}

func TestFromProvider(t *testing.T) {
	host := newTestContext(t)

	ctx, err := FromProvider(testProvider{device: host.Device(), queue: host.Queue()})
	if err != nil {
		t.Fatalf("FromProvider failed: %v", err)
	}
	if ctx.AdapterInfo().Name != "host adapter" {
		t.Errorf("adapter name = %q", ctx.AdapterInfo().Name)
	}
	ctx.Destroy()

	// The host device survives.
	if _, err := NewTexture(host, TextureSpec{Label: "after", Width: 1, Height: 1}); err != nil {
		t.Fatalf("host device unusable after provider context destroyed: %v", err)
	}
}

func TestFromProvider_Unsupported(t *testing.T) {
	_, err := FromProvider(testProvider{device: "not a device", queue: nil})
	if !errors.Is(err, ErrUnsupportedProvider) {
		t.Fatalf("error = %v, want ErrUnsupportedProvider", err)
	}
}
