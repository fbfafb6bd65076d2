// Package hearth is a real-time 2D/3D rendering engine core.
//
// # Overview
//
// An Engine owns a GPU context, a worker pool, the batch renderers and the
// terrain streamer, and draws one frame per call to Frame:
//
//	e, err := hearth.New(hearth.WithConfig(cfg), hearth.WithScene(world))
//	if err != nil {
//	    return err
//	}
//	defer e.Close()
//	for range 60 {
//	    if _, err := e.Frame(); err != nil {
//	        return err
//	    }
//	}
//
// The goroutine that calls New becomes the render thread: Frame, Resize,
// ReadEntity and Close must be called from it. Every GPU object is created
// and destroyed there, while terrain meshes are generated on the pool.
//
// # Packages
//
//   - gfx: GPU resource handles over the wgpu HAL
//   - renderer: quad, circle and cube batches, multi-draw arena
//   - parallel: priority thread pool, futures, work sets
//   - cache, concurrent: thread-safe containers and LRU caches
//   - scene: the scene collaborator interface
//   - terrain: streamed heightmap chunks with LOD
//   - profile: Chrome trace output
//   - config: YAML configuration
//
// # Logging
//
// hearth is silent by default. SetLogger installs a log/slog logger for
// every package and for the wgpu HAL.
package hearth
