package scene

import (
	"github.com/hearth-engine/hearth/geom"
	"github.com/hearth-engine/hearth/gfx"
)

// Entity identifies an object in a scene. Entity ids are written into the
// renderer's id attachment, so they fit in an int32.
type Entity int32

// NoEntity marks geometry that belongs to no entity.
const NoEntity Entity = -1

// Sprite is a textured, tinted quad. A nil Texture draws the tint as a solid
// color.
type Sprite struct {
	Texture *gfx.Texture
	Tint    geom.Color
	// Tiling repeats the texture across the quad. Zero means 1.
	Tiling float32
}

// Circle is a filled or ring-shaped circle inscribed in its transform's unit
// quad.
type Circle struct {
	Color geom.Color
	// Thickness is 1 for a filled disc and approaches 0 for a thin ring.
	Thickness float32
	// Fade is the width of the anti-aliased edge in unit-circle space.
	Fade float32
}

// Cube is a solid-colored unit cube.
type Cube struct {
	Color geom.Color
}

// Source is what a renderer needs from a scene. Implementations are
// read-only from the renderer's side: callbacks must not mutate the scene.
type Source interface {
	// ActiveCamera returns the camera to render with, if any.
	ActiveCamera() (Camera, bool)
	EachSprite(fn func(e Entity, transform geom.Mat4, s Sprite))
	EachCircle(fn func(e Entity, transform geom.Mat4, c Circle))
	EachCube(fn func(e Entity, transform geom.Mat4, c Cube))
}
