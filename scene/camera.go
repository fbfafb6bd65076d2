package scene

import (
	"github.com/hearth-engine/hearth/geom"
)

// ProjectionType selects a camera's projection.
type ProjectionType uint8

const (
	Orthographic ProjectionType = iota
	Perspective
)

func (p ProjectionType) String() string {
	if p == Perspective {
		return "perspective"
	}
	return "orthographic"
}

// Camera is a projection plus the camera's world transform.
type Camera struct {
	Projection ProjectionType
	// OrthoSize is the visible height in world units (orthographic).
	OrthoSize float32
	// FOV is the vertical field of view in radians (perspective).
	FOV       float32
	Near, Far float32
	Aspect    float32
	Transform geom.Mat4
}

// NewOrthographicCamera returns a camera looking down -Z that shows size
// world units vertically.
func NewOrthographicCamera(size, aspect float32) Camera {
	return Camera{
		Projection: Orthographic,
		OrthoSize:  size,
		Near:       -1,
		Far:        1,
		Aspect:     aspect,
		Transform:  geom.Identity(),
	}
}

// NewPerspectiveCamera returns a perspective camera at the origin.
func NewPerspectiveCamera(fovY, aspect, near, far float32) Camera {
	return Camera{
		Projection: Perspective,
		FOV:        fovY,
		Near:       near,
		Far:        far,
		Aspect:     aspect,
		Transform:  geom.Identity(),
	}
}

// SetViewportSize updates the aspect ratio. Zero sizes are ignored.
func (c *Camera) SetViewportSize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	c.Aspect = float32(width) / float32(height)
}

// ProjectionMatrix returns the projection alone.
func (c Camera) ProjectionMatrix() geom.Mat4 {
	aspect := c.Aspect
	if aspect <= 0 {
		aspect = 1
	}
	if c.Projection == Perspective {
		return geom.Perspective(c.FOV, aspect, c.Near, c.Far)
	}
	h := c.OrthoSize / 2
	w := h * aspect
	return geom.Ortho(-w, w, -h, h, c.Near, c.Far)
}

// View returns the inverse of the camera transform. A singular transform
// yields the identity.
func (c Camera) View() geom.Mat4 {
	v, _ := c.Transform.Inverse()
	return v
}

// ViewProjection returns projection * view.
func (c Camera) ViewProjection() geom.Mat4 {
	return c.ProjectionMatrix().Mul(c.View())
}

// Position returns the camera's world position.
func (c Camera) Position() geom.Vec3 { return c.Transform.Translation() }
