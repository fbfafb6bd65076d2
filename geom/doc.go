// Package geom provides the small linear-algebra toolkit used by the
// renderer: float32 vectors, a column-major 4x4 matrix laid out exactly as
// WGSL's mat4x4<f32>, and a linear RGBA color.
//
// Projection helpers target the WebGPU clip-space convention: depth runs
// from 0 at the near plane to 1 at the far plane.
package geom
