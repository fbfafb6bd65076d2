package terrain

import (
	"fmt"
	"math"

	"github.com/hearth-engine/hearth/geom"
)

// ChunkKey addresses a chunk on the XZ plane. Chunk (x, z) covers world
// positions [x*size, (x+1)*size) on both axes.
type ChunkKey struct {
	X, Z int32
}

// ChunkAt returns the chunk containing the world position p.
func ChunkAt(p geom.Vec3, size int) ChunkKey {
	s := float64(size)
	return ChunkKey{
		X: int32(math.Floor(float64(p.X) / s)),
		Z: int32(math.Floor(float64(p.Z) / s)),
	}
}

// Origin returns the world position of the chunk's minimum corner at
// height zero.
func (k ChunkKey) Origin(size int) geom.Vec3 {
	return geom.V3(float32(int(k.X)*size), 0, float32(int(k.Z)*size))
}

// Center returns the chunk's center at height zero.
func (k ChunkKey) Center(size int) geom.Vec3 {
	half := float32(size) / 2
	return k.Origin(size).Add(geom.V3(half, 0, half))
}

func (k ChunkKey) String() string { return fmt.Sprintf("chunk(%d,%d)", k.X, k.Z) }

// meshKey names one chunk at one LOD.
type meshKey struct {
	chunk ChunkKey
	lod   uint8
}

func (k meshKey) String() string { return fmt.Sprintf("%s/lod%d", k.chunk, k.lod) }

// meshKeyHasher mixes every bit of the key into the low bits that pick a
// cache shard.
func meshKeyHasher(k meshKey) uint64 {
	packed := uint64(uint32(k.chunk.X))<<32 | uint64(uint32(k.chunk.Z)) //nolint:gosec // bit packing
	return splitmix64(packed ^ uint64(k.lod)<<61)
}
