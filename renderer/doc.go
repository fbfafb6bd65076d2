// Package renderer batches draw calls on top of package gfx.
//
// Renderer2D accumulates quads and circles into bounded CPU batches and
// issues one indexed draw per batch. A batch is flushed when it is full,
// when its texture slot table runs out of slots, or at EndScene.
// CubeRenderer does the same for unit cubes with depth testing. MultiDraw
// keeps many static meshes in one arena vertex/index buffer pair and draws
// a frame's worth of them through indexed-indirect commands.
//
// All renderers draw into a gfx.Framebuffer whose first color attachment is
// the image and whose optional second color attachment (R32Sint) receives
// entity ids. Passes load the previous contents; the owner clears the target
// once per frame.
//
// Every method must be called on the render thread.
package renderer
