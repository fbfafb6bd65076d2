package terrain

import (
	"errors"
	"slices"

	"github.com/hearth-engine/hearth/cache"
	"github.com/hearth-engine/hearth/concurrent"
	"github.com/hearth-engine/hearth/geom"
	"github.com/hearth-engine/hearth/gfx"
	"github.com/hearth-engine/hearth/internal/logging"
	"github.com/hearth-engine/hearth/parallel"
	"github.com/hearth-engine/hearth/renderer"
)

// Options configure a Streamer.
type Options struct {
	Seed      int64
	Amplitude float32
	// ChunkSize is the number of cells per chunk side, a power of two.
	ChunkSize int
	// ViewDistance is the radius of the streamed area in chunks.
	ViewDistance int
	// LODDistances are increasing distance thresholds; see SelectLOD.
	LODDistances []float32
	// CacheSize is the per-shard capacity of the finished mesh cache.
	CacheSize int
	// UploadsPerFrame bounds arena uploads per Update. Zero means no bound.
	UploadsPerFrame int
}

// Stats describes one Update.
type Stats struct {
	Visible   int // chunks inside the view distance
	Drawn     int // chunks queued at their selected LOD
	Fallback  int // chunks queued at another resident LOD
	Missing   int // chunks with nothing resident to draw
	Requested int // meshes submitted for generation
	Generated int // finished meshes collected
	Failed    int // generation failures
	Uploaded  int
	Evicted   int
}

type wanted struct {
	key  meshKey
	dist float32
}

// Streamer keeps the chunks around the camera resident in a MultiDraw.
type Streamer struct {
	md     *renderer.MultiDraw
	field  *Heightfield
	opts   Options
	maxLOD int

	work     *parallel.WorkSet[meshKey, renderer.Mesh]
	meshes   *cache.ShardedCache[meshKey, renderer.Mesh]
	resident *cache.LRUCache[meshKey, renderer.MeshHandle]

	// Per-update scratch.
	wanted  []wanted
	touched *concurrent.Set[meshKey]
	stats   Stats
}

// NewStreamer streams terrain into md, generating meshes on pool.
func NewStreamer(pool *parallel.ThreadPool, md *renderer.MultiDraw, opts Options) *Streamer {
	gfx.Assert(opts.ChunkSize >= 2 && opts.ChunkSize&(opts.ChunkSize-1) == 0,
		"terrain chunk size %d is not a power of two", opts.ChunkSize)
	gfx.Assert(opts.ViewDistance >= 0, "terrain view distance %d", opts.ViewDistance)

	// Each visible chunk may hold its selected LOD and one fallback, so a
	// capacity eviction never hits a mesh queued in the same update.
	visible := (2*opts.ViewDistance + 1) * (2*opts.ViewDistance + 1)
	s := &Streamer{
		md:       md,
		field:    NewHeightfield(opts.Seed, opts.Amplitude),
		opts:     opts,
		maxLOD:   MaxLOD(opts.ChunkSize),
		work:     parallel.NewWorkSet[meshKey, renderer.Mesh](pool, parallel.WithPriority(parallel.Low)),
		meshes:   cache.NewSharded[meshKey, renderer.Mesh](opts.CacheSize, meshKeyHasher),
		resident: cache.NewLRU[meshKey, renderer.MeshHandle](2*visible + 1),
		touched:  concurrent.NewSet[meshKey](2 * visible),
	}
	logging.Logger().Debug("terrain: streamer ready",
		"chunk_size", opts.ChunkSize, "view_distance", opts.ViewDistance, "max_lod", s.maxLOD)
	return s
}

// Heightfield returns the surface being streamed.
func (s *Streamer) Heightfield() *Heightfield { return s.field }

// Update collects finished meshes, uploads what the view around eye needs
// and queues one MultiDraw command per drawable chunk. The caller flushes
// the MultiDraw afterwards.
func (s *Streamer) Update(eye geom.Vec3) Stats {
	s.stats = Stats{}
	s.touched.Clear()
	s.collect()
	s.plan(eye)

	uploads := 0
	for _, w := range s.wanted {
		if h, ok := s.resident.Find(w.key); ok {
			s.draw(w.key, h)
			s.stats.Drawn++
			continue
		}
		mesh, ok := s.meshes.Get(w.key)
		if !ok {
			s.request(w.key)
		} else if s.opts.UploadsPerFrame == 0 || uploads < s.opts.UploadsPerFrame {
			uploads++
			if h, ok := s.upload(w.key, mesh); ok {
				s.draw(w.key, h)
				s.stats.Drawn++
				continue
			}
		}
		if s.fallback(w.key) {
			s.stats.Fallback++
		} else {
			s.stats.Missing++
		}
	}
	return s.stats
}

// collect moves finished meshes into the mesh cache.
func (s *Streamer) collect() {
	s.work.CollectFinished(func(k meshKey, m renderer.Mesh, err error) {
		if err != nil {
			s.stats.Failed++
			logging.Logger().Warn("terrain: mesh generation failed", "mesh", k.String(), "err", err)
			return
		}
		s.meshes.Set(k, m)
		s.stats.Generated++
	})
}

// plan lists the chunks inside the view distance, nearest first.
func (s *Streamer) plan(eye geom.Vec3) {
	s.wanted = s.wanted[:0]
	size, r := s.opts.ChunkSize, int32(s.opts.ViewDistance) //nolint:gosec // validated
	center := ChunkAt(eye, size)
	for dz := -r; dz <= r; dz++ {
		for dx := -r; dx <= r; dx++ {
			if dx*dx+dz*dz > r*r {
				continue
			}
			k := ChunkKey{X: center.X + dx, Z: center.Z + dz}
			c := k.Center(size)
			dist := geom.V2(c.X-eye.X, c.Z-eye.Z).Length()
			lod := SelectLOD(dist, s.opts.LODDistances, s.maxLOD)
			s.wanted = append(s.wanted, wanted{key: meshKey{chunk: k, lod: uint8(lod)}, dist: dist}) //nolint:gosec // lod <= maxLOD
		}
	}
	slices.SortFunc(s.wanted, func(a, b wanted) int {
		switch {
		case a.dist < b.dist:
			return -1
		case a.dist > b.dist:
			return 1
		}
		return 0
	})
	s.stats.Visible = len(s.wanted)
}

// request submits generation of k unless a run for it is queued or its
// result has not been collected yet.
func (s *Streamer) request(k meshKey) {
	if _, saved := s.work.Saved(k); saved {
		return
	}
	field, size := s.field, s.opts.ChunkSize
	f := s.work.SubmitAndSaveResult(k, func() (renderer.Mesh, error) {
		return BuildMesh(field, k.chunk, size, int(k.lod)), nil
	})
	if f.Valid() {
		s.stats.Requested++
	}
}

// upload places mesh in the arena, evicting the least recently drawn
// chunks until it fits. Chunks queued in this update are never evicted.
func (s *Streamer) upload(k meshKey, mesh renderer.Mesh) (renderer.MeshHandle, bool) {
	for {
		h, err := s.md.Upload(k.String(), mesh)
		if err == nil {
			if _, old, evicted := s.resident.Insert(k, h); evicted {
				s.md.Release(old)
				s.stats.Evicted++
			}
			s.stats.Uploaded++
			return h, true
		}
		if !errors.Is(err, renderer.ErrArenaFull) {
			logging.Logger().Error("terrain: upload failed", "mesh", k.String(), "err", err)
			return renderer.MeshHandle{}, false
		}
		if !s.evictOldest() {
			return renderer.MeshHandle{}, false
		}
	}
}

func (s *Streamer) evictOldest() bool {
	k, ok := s.resident.Oldest()
	if !ok {
		return false
	}
	if s.touched.Contains(k) {
		return false
	}
	_, h, _ := s.resident.RemoveOldest()
	s.md.Release(h)
	s.stats.Evicted++
	logging.Logger().Debug("terrain: chunk evicted", "mesh", k.String())
	return true
}

// fallback draws the closest resident LOD of the same chunk, finer first.
func (s *Streamer) fallback(k meshKey) bool {
	for d := 1; d <= s.maxLOD; d++ {
		for _, lod := range [2]int{int(k.lod) - d, int(k.lod) + d} {
			if lod < 0 || lod > s.maxLOD {
				continue
			}
			alt := meshKey{chunk: k.chunk, lod: uint8(lod)} //nolint:gosec // lod <= maxLOD
			if h, ok := s.resident.Find(alt); ok {
				s.draw(alt, h)
				return true
			}
		}
	}
	return false
}

func (s *Streamer) draw(k meshKey, h renderer.MeshHandle) {
	s.touched.Insert(k)
	s.md.Add(h)
}

// Resident returns the number of chunk meshes in the arena.
func (s *Streamer) Resident() int { return s.resident.Len() }

// Pending returns the number of meshes generating or waiting to be
// collected.
func (s *Streamer) Pending() int { return s.work.SavedLen() }

// Cached returns the number of finished meshes held on the CPU.
func (s *Streamer) Cached() int { return s.meshes.Len() }

// Close waits for running generation and releases every resident mesh. The
// MultiDraw stays usable.
func (s *Streamer) Close() {
	s.work.WaitAndDiscardSaved()
	for _, k := range s.resident.Keys() {
		if h, ok := s.resident.Peek(k); ok {
			s.md.Release(h)
		}
	}
	s.resident.Clear()
	s.meshes.Clear()
}
