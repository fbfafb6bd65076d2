// Package terrain streams a procedural heightmap as chunk meshes.
//
// Chunks are square grids of ChunkSize cells. Each visible chunk is drawn at
// a level of detail picked from its distance to the camera; LOD l samples
// every 2^l-th grid point. Meshes are built on a parallel.WorkSet, kept in a
// cache.ShardedCache once finished, and uploaded on the render thread into a
// renderer.MultiDraw arena. When the arena is full the least recently drawn
// chunks are released to make room.
//
// Streamer methods must be called from the render thread. Mesh generation
// runs on the pool's workers and only touches CPU data.
package terrain
