package scene

import (
	"slices"
	"sync"

	"github.com/hearth-engine/hearth/geom"
)

type kind uint8

const (
	kindSprite kind = iota
	kindCircle
	kindCube
)

type entry struct {
	entity    Entity
	kind      kind
	transform geom.Mat4
	sprite    Sprite
	circle    Circle
	cube      Cube
}

// Static is an in-memory Source. Entities are visited in insertion order.
// It is safe for concurrent use; the Each callbacks run under a read lock
// and must not call back into the scene's mutating methods.
type Static struct {
	mu      sync.RWMutex
	entries []entry
	next    Entity
	camera  Camera
	hasCam  bool
}

var _ Source = (*Static)(nil)

// NewStatic returns an empty scene with no camera.
func NewStatic() *Static {
	return &Static{}
}

// SetCamera sets the active camera.
func (s *Static) SetCamera(c Camera) {
	s.mu.Lock()
	s.camera, s.hasCam = c, true
	s.mu.Unlock()
}

// ClearCamera removes the active camera.
func (s *Static) ClearCamera() {
	s.mu.Lock()
	s.hasCam = false
	s.mu.Unlock()
}

// ActiveCamera implements Source.
func (s *Static) ActiveCamera() (Camera, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.camera, s.hasCam
}

// SetViewportSize forwards a viewport change to the active camera.
func (s *Static) SetViewportSize(width, height int) {
	s.mu.Lock()
	s.camera.SetViewportSize(width, height)
	s.mu.Unlock()
}

func (s *Static) add(e entry) Entity {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.entity = s.next
	s.next++
	s.entries = append(s.entries, e)
	return e.entity
}

// AddSprite adds a sprite and returns its entity.
func (s *Static) AddSprite(transform geom.Mat4, sp Sprite) Entity {
	return s.add(entry{kind: kindSprite, transform: transform, sprite: sp})
}

// AddCircle adds a circle and returns its entity.
func (s *Static) AddCircle(transform geom.Mat4, c Circle) Entity {
	return s.add(entry{kind: kindCircle, transform: transform, circle: c})
}

// AddCube adds a cube and returns its entity.
func (s *Static) AddCube(transform geom.Mat4, c Cube) Entity {
	return s.add(entry{kind: kindCube, transform: transform, cube: c})
}

func (s *Static) find(e Entity) int {
	return slices.IndexFunc(s.entries, func(en entry) bool { return en.entity == e })
}

// SetTransform moves an entity. It reports whether the entity exists.
func (s *Static) SetTransform(e Entity, transform geom.Mat4) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.find(e)
	if i < 0 {
		return false
	}
	s.entries[i].transform = transform
	return true
}

// Remove deletes an entity. It reports whether the entity existed.
func (s *Static) Remove(e Entity) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.find(e)
	if i < 0 {
		return false
	}
	s.entries = slices.Delete(s.entries, i, i+1)
	return true
}

// Len returns the number of entities.
func (s *Static) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Clear removes every entity. Entity ids keep increasing.
func (s *Static) Clear() {
	s.mu.Lock()
	s.entries = nil
	s.mu.Unlock()
}

// EachSprite implements Source.
func (s *Static) EachSprite(fn func(Entity, geom.Mat4, Sprite)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.entries {
		if e := &s.entries[i]; e.kind == kindSprite {
			fn(e.entity, e.transform, e.sprite)
		}
	}
}

// EachCircle implements Source.
func (s *Static) EachCircle(fn func(Entity, geom.Mat4, Circle)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.entries {
		if e := &s.entries[i]; e.kind == kindCircle {
			fn(e.entity, e.transform, e.circle)
		}
	}
}

// EachCube implements Source.
func (s *Static) EachCube(fn func(Entity, geom.Mat4, Cube)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.entries {
		if e := &s.entries[i]; e.kind == kindCube {
			fn(e.entity, e.transform, e.cube)
		}
	}
}
