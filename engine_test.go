package hearth

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gogpu/gpucontext"
	_ "github.com/gogpu/wgpu/hal/noop"

	"github.com/hearth-engine/hearth/config"
	"github.com/hearth-engine/hearth/geom"
	"github.com/hearth-engine/hearth/parallel"
	"github.com/hearth-engine/hearth/scene"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Graphics.Backend = "headless"
	cfg.Window.Width, cfg.Window.Height = 64, 48
	cfg.Threading.Workers = 2
	cfg.Terrain.ChunkSize = 8
	cfg.Terrain.ViewDistance = 1
	cfg.Terrain.LODDistances = []float32{16}
	cfg.Terrain.ArenaMiB = 1
	return cfg
}

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	e, err := New(append([]Option{WithConfig(testConfig())}, opts...)...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(e.Close)
	return e
}

func testScene() *scene.Static {
	s := scene.NewStatic()
	cam := scene.NewPerspectiveCamera(1, 1, 0.1, 500)
	cam.Transform = geom.Translate(geom.V3(0, 20, 0))
	s.SetCamera(cam)
	s.AddSprite(geom.Identity(), scene.Sprite{Tint: geom.White})
	s.AddCircle(geom.Translate(geom.V3(2, 0, 0)), scene.Circle{Color: geom.White, Thickness: 1})
	s.AddCube(geom.Translate(geom.V3(0, 0, -5)), scene.Cube{Color: geom.White})
	return s
}

// fakeEvents records the resize callback so tests can fire it.
type fakeEvents struct {
	gpucontext.NullEventSource
	resize func(w, h int)
}

func (f *fakeEvents) OnResize(fn func(w, h int)) { f.resize = fn }

func TestEngine_FrameDrawsScene(t *testing.T) {
	e := newTestEngine(t, WithScene(testScene()))

	var stats FrameStats
	var err error
	deadline := time.Now().Add(5 * time.Second)
	for {
		stats, err = e.Frame()
		if err != nil {
			t.Fatalf("Frame failed: %v", err)
		}
		if stats.Terrain.Missing == 0 || time.Now().After(deadline) {
			break
		}
		time.Sleep(time.Millisecond)
	}

	if stats.Quads.Quads != 1 || stats.Quads.Circles != 1 {
		t.Errorf("2D stats = %+v, want one quad and one circle", stats.Quads)
	}
	if stats.Cubes.Cubes != 1 {
		t.Errorf("cube stats = %+v, want one cube", stats.Cubes)
	}
	if stats.Terrain.Visible == 0 {
		t.Error("no visible terrain chunks")
	}
	if stats.Terrain.Missing != 0 {
		t.Errorf("terrain still missing %d chunks after 5s", stats.Terrain.Missing)
	}
	if stats.MultiDraw.Commands == 0 {
		t.Error("terrain issued no indirect commands")
	}
	if stats.DrawCalls() == 0 {
		t.Error("DrawCalls() = 0")
	}
	if stats.Frame != e.Frames() {
		t.Errorf("stats.Frame = %d, Frames() = %d", stats.Frame, e.Frames())
	}
}

func TestEngine_NoSceneNoTerrain(t *testing.T) {
	cfg := testConfig()
	cfg.Terrain.Enabled = false
	e, err := New(WithConfig(cfg))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer e.Close()

	if e.Terrain() != nil {
		t.Error("terrain streamer created while disabled")
	}
	stats, err := e.Frame()
	if err != nil {
		t.Fatalf("Frame failed: %v", err)
	}
	if stats.DrawCalls() != 0 {
		t.Errorf("empty frame issued %d draw calls", stats.DrawCalls())
	}
	if _, err := e.ReadEntity(0, 0); err != nil {
		t.Errorf("ReadEntity failed: %v", err)
	}
}

func TestEngine_WindowSizesTarget(t *testing.T) {
	win := gpucontext.NullWindowProvider{W: 40, H: 30, SF: 2}
	e := newTestEngine(t, WithWindow(win))
	if w, h := e.Target().Width(), e.Target().Height(); w != 80 || h != 60 {
		t.Errorf("target = %dx%d, want 80x60", w, h)
	}
}

func TestEngine_ResizeFromEvents(t *testing.T) {
	s := testScene()
	events := &fakeEvents{}
	e := newTestEngine(t, WithScene(s), WithEventSource(events))
	if events.resize == nil {
		t.Fatal("engine did not register a resize callback")
	}

	events.resize(100, 50)
	events.resize(200, 100)
	if _, err := e.Frame(); err != nil {
		t.Fatalf("Frame failed: %v", err)
	}
	if w, h := e.Target().Width(), e.Target().Height(); w != 200 || h != 100 {
		t.Errorf("target = %dx%d, want the last resize 200x100", w, h)
	}
	cam, _ := s.ActiveCamera()
	if cam.Aspect != 2 {
		t.Errorf("camera aspect = %v, want 2", cam.Aspect)
	}
}

func TestEngine_ResizeRejected(t *testing.T) {
	e := newTestEngine(t)
	if err := e.Resize(0, 10); err != nil {
		t.Fatalf("Resize(0, 10) = %v, want nil", err)
	}
	if w, h := e.Target().Width(), e.Target().Height(); w != 64 || h != 48 {
		t.Errorf("target = %dx%d after rejected resize, want 64x48", w, h)
	}
}

func TestEngine_InvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Window.Width = 0
	if _, err := New(WithConfig(cfg)); err == nil {
		t.Fatal("New accepted a zero window width")
	}
}

func TestEngine_CloseIdempotent(t *testing.T) {
	e, err := New(WithConfig(testConfig()), WithScene(testScene()))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, err := e.Frame(); err != nil {
		t.Fatalf("Frame failed: %v", err)
	}
	e.Close()
	e.Close()
	if got := e.Pool().State(); got != parallel.Stopped {
		t.Errorf("pool state = %s, want %s", got, parallel.Stopped)
	}
	defer func() {
		if recover() == nil {
			t.Error("Frame after Close did not panic")
		}
	}()
	_, _ = e.Frame()
}

func TestEngine_ProfileSession(t *testing.T) {
	cfg := testConfig()
	cfg.Profile.Enabled = true
	cfg.Profile.Output = filepath.Join(t.TempDir(), "trace.json")
	e, err := New(WithConfig(cfg))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, err := e.Frame(); err != nil {
		t.Fatalf("Frame failed: %v", err)
	}
	e.Close()

	data, err := os.ReadFile(cfg.Profile.Output)
	if err != nil {
		t.Fatalf("read trace: %v", err)
	}
	if !strings.Contains(string(data), "traceEvents") {
		t.Errorf("trace file does not look like a trace: %q", data)
	}
}

func TestEngine_ProfileOutputUnwritable(t *testing.T) {
	cfg := testConfig()
	cfg.Profile.Enabled = true
	cfg.Profile.Output = filepath.Join(t.TempDir(), "missing", "trace.json")
	_, err := New(WithConfig(cfg))
	if err == nil {
		t.Fatal("New succeeded with an unwritable trace path")
	}
	var pathErr *os.PathError
	if !errors.As(err, &pathErr) {
		t.Errorf("err = %v, want a wrapped *os.PathError", err)
	}
}
