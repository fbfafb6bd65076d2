package terrain

import (
	"math/bits"

	"github.com/hearth-engine/hearth/geom"
	"github.com/hearth-engine/hearth/profile"
	"github.com/hearth-engine/hearth/renderer"
)

// MaxLOD returns the coarsest LOD a chunk of size cells supports: two cells
// per side.
func MaxLOD(size int) int {
	return max(bits.Len(uint(size))-2, 0) //nolint:gosec // size is positive
}

// BuildMesh triangulates chunk key at lod. Vertices are in world space, so
// neighbouring chunks at the same LOD share their edge positions exactly.
func BuildMesh(h *Heightfield, key ChunkKey, size, lod int) renderer.Mesh {
	defer profile.Scope("terrain.BuildMesh")()

	step := 1 << lod
	cells := size / step
	side := cells + 1
	origin := key.Origin(size)
	s := float32(step)

	m := renderer.Mesh{
		Vertices: make([]renderer.MeshVertex, 0, side*side),
		Indices:  make([]uint32, 0, cells*cells*6),
	}
	for z := range side {
		for x := range side {
			wx := origin.X + float32(x*step)
			wz := origin.Z + float32(z*step)
			m.Vertices = append(m.Vertices, renderer.MeshVertex{
				Position: geom.V3(wx, h.Height(wx, wz), wz),
				Normal:   normalAt(h, wx, wz, s),
			})
		}
	}
	w := uint32(side) //nolint:gosec // bounded by chunk size
	for z := range uint32(cells) { //nolint:gosec // bounded by chunk size
		for x := range uint32(cells) { //nolint:gosec // bounded by chunk size
			i := z*w + x
			// Counter-clockwise seen from +Y.
			m.Indices = append(m.Indices, i, i+w, i+1, i+1, i+w, i+w+1)
		}
	}
	return m
}

// normalAt estimates the surface normal by central differences over step.
func normalAt(h *Heightfield, x, z, step float32) geom.Vec3 {
	l, r := h.Height(x-step, z), h.Height(x+step, z)
	d, u := h.Height(x, z-step), h.Height(x, z+step)
	return geom.V3(l-r, 2*step, d-u).Normalize()
}

// SelectLOD returns the LOD for a chunk at distance: the index of the first
// threshold the distance is below, or the number of thresholds when it is
// beyond all of them. The result never exceeds maxLOD.
func SelectLOD(distance float32, thresholds []float32, maxLOD int) int {
	lod := len(thresholds)
	for i, t := range thresholds {
		if distance < t {
			lod = i
			break
		}
	}
	return min(lod, maxLOD)
}
