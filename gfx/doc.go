// Package gfx is the resource-handle layer between the renderers and the
// wgpu HAL.
//
// Every GPU object (buffer, texture, shader, pipeline, framebuffer) is a
// pointer handle that owns exactly one HAL object and a process-unique
// ResourceID. Handles are created and destroyed on the render thread: the
// goroutine that called New or FromProvider, which is locked to its OS thread
// until Context.Destroy.
//
// Backend variability lives in the HAL. The backend is chosen once when the
// Context is created:
//
//	import _ "github.com/gogpu/wgpu/hal/allbackends"
//
//	ctx, err := gfx.New(gfx.WithBackend(gfx.BackendAuto))
//	if err != nil {
//		return err
//	}
//	defer ctx.Destroy()
//
// Programmer errors (wrong thread, out of range index, size mismatch) panic.
// HAL failures while creating resources are returned as wrapped errors.
package gfx
