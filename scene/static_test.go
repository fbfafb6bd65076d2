package scene

import (
	"math"
	"sync"
	"testing"

	"github.com/hearth-engine/hearth/geom"
)

func TestStatic_EntitiesInInsertionOrder(t *testing.T) {
	s := NewStatic()
	a := s.AddSprite(geom.Identity(), Sprite{Tint: geom.White})
	c := s.AddCircle(geom.Identity(), Circle{Color: geom.White, Thickness: 1})
	b := s.AddSprite(geom.Translate(geom.V3(1, 0, 0)), Sprite{})
	k := s.AddCube(geom.Identity(), Cube{Color: geom.Black})

	var sprites []Entity
	s.EachSprite(func(e Entity, _ geom.Mat4, _ Sprite) { sprites = append(sprites, e) })
	if len(sprites) != 2 || sprites[0] != a || sprites[1] != b {
		t.Errorf("sprites = %v, want [%d %d]", sprites, a, b)
	}

	var circles, cubes int
	s.EachCircle(func(e Entity, _ geom.Mat4, _ Circle) {
		if e != c {
			t.Errorf("circle entity = %d, want %d", e, c)
		}
		circles++
	})
	s.EachCube(func(e Entity, _ geom.Mat4, _ Cube) {
		if e != k {
			t.Errorf("cube entity = %d, want %d", e, k)
		}
		cubes++
	})
	if circles != 1 || cubes != 1 {
		t.Errorf("circles = %d cubes = %d, want 1 and 1", circles, cubes)
	}
	if s.Len() != 4 {
		t.Errorf("Len() = %d, want 4", s.Len())
	}
}

func TestStatic_RemoveAndSetTransform(t *testing.T) {
	s := NewStatic()
	e := s.AddCube(geom.Identity(), Cube{})

	moved := geom.Translate(geom.V3(0, 2, 0))
	if !s.SetTransform(e, moved) {
		t.Fatal("SetTransform on existing entity returned false")
	}
	s.EachCube(func(_ Entity, m geom.Mat4, _ Cube) {
		if m != moved {
			t.Errorf("transform = %v, want %v", m, moved)
		}
	})

	if !s.Remove(e) {
		t.Fatal("Remove on existing entity returned false")
	}
	if s.Remove(e) || s.SetTransform(e, moved) {
		t.Error("operations on a removed entity reported success")
	}

	s.Clear()
	if next := s.AddCube(geom.Identity(), Cube{}); next == e {
		t.Error("entity id reused after Clear")
	}
}

func TestStatic_Camera(t *testing.T) {
	s := NewStatic()
	if _, ok := s.ActiveCamera(); ok {
		t.Fatal("new scene has an active camera")
	}
	s.SetCamera(NewOrthographicCamera(10, 1))
	s.SetViewportSize(200, 100)
	cam, ok := s.ActiveCamera()
	if !ok || cam.Aspect != 2 {
		t.Errorf("camera = %+v ok=%v, want aspect 2", cam, ok)
	}
	s.ClearCamera()
	if _, ok := s.ActiveCamera(); ok {
		t.Error("ClearCamera left an active camera")
	}
}

func TestStatic_ConcurrentAccess(t *testing.T) {
	s := NewStatic()
	var wg sync.WaitGroup
	for range 4 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for range 100 {
				s.AddSprite(geom.Identity(), Sprite{})
			}
		}()
		go func() {
			defer wg.Done()
			for range 100 {
				s.EachSprite(func(Entity, geom.Mat4, Sprite) {})
			}
		}()
	}
	wg.Wait()
	if s.Len() != 400 {
		t.Errorf("Len() = %d, want 400", s.Len())
	}
}

// =============================================================================
// Camera
// =============================================================================

func TestCamera_OrthographicBounds(t *testing.T) {
	cam := NewOrthographicCamera(4, 2)
	vp := cam.ViewProjection()

	// Top-right corner of the visible area maps to clip (1, 1).
	p := vp.MulVec4(geom.V4(4, 2, 0, 1))
	if math.Abs(float64(p.X-1)) > 1e-5 || math.Abs(float64(p.Y-1)) > 1e-5 {
		t.Errorf("corner maps to (%v, %v), want (1, 1)", p.X, p.Y)
	}
}

func TestCamera_ViewFollowsTransform(t *testing.T) {
	cam := NewOrthographicCamera(2, 1)
	cam.Transform = geom.Translate(geom.V3(5, 0, 0))

	p := cam.ViewProjection().MulVec4(geom.V4(5, 0, 0, 1))
	if math.Abs(float64(p.X)) > 1e-5 {
		t.Errorf("camera position maps to x=%v, want 0", p.X)
	}
	if cam.Position() != geom.V3(5, 0, 0) {
		t.Errorf("Position() = %v", cam.Position())
	}
}

func TestCamera_SetViewportSizeIgnoresZero(t *testing.T) {
	cam := NewPerspectiveCamera(1, 1.5, 0.1, 100)
	cam.SetViewportSize(0, 10)
	if cam.Aspect != 1.5 {
		t.Errorf("Aspect = %v, want unchanged 1.5", cam.Aspect)
	}
	if cam.Projection.String() != "perspective" {
		t.Errorf("Projection = %v", cam.Projection)
	}
}
