package renderer

import (
	"errors"
	"strings"
	"testing"

	"github.com/hearth-engine/hearth/geom"
	"github.com/hearth-engine/hearth/gfx"
)

// gridMesh returns an n x n vertex grid with 6*(n-1)^2 indices.
func gridMesh(n int) Mesh {
	var m Mesh
	for z := range n {
		for x := range n {
			m.Vertices = append(m.Vertices, MeshVertex{
				Position: geom.V3(float32(x), 0, float32(z)),
				Normal:   geom.V3(0, 1, 0),
			})
		}
	}
	for z := range n - 1 {
		for x := range n - 1 {
			i := uint32(z*n + x) //nolint:gosec // test sizes
			w := uint32(n)       //nolint:gosec // test sizes
			m.Indices = append(m.Indices, i, i+w, i+1, i+1, i+w, i+w+1)
		}
	}
	return m
}

func newTestMultiDraw(t *testing.T, vertices, indices int) (*MultiDraw, *[][]gfx.DrawIndexedIndirectArgs) {
	t.Helper()
	ctx, fb := newTestTarget(t)
	md, err := NewMultiDraw(ctx, fb, vertices, indices)
	if err != nil {
		t.Fatalf("NewMultiDraw failed: %v", err)
	}
	t.Cleanup(md.Destroy)
	var flushes [][]gfx.DrawIndexedIndirectArgs
	md.onFlush = func(cmds []gfx.DrawIndexedIndirectArgs) {
		flushes = append(flushes, append([]gfx.DrawIndexedIndirectArgs(nil), cmds...))
	}
	return md, &flushes
}

func TestMultiDraw_UploadAndFlush(t *testing.T) {
	md, flushes := newTestMultiDraw(t, 1000, 2000)
	a, err := md.Upload("a", gridMesh(3)) // 9 vertices, 24 indices
	if err != nil {
		t.Fatal(err)
	}
	b, err := md.Upload("b", gridMesh(4)) // 16 vertices, 54 indices
	if err != nil {
		t.Fatal(err)
	}
	if !a.Valid() || !b.Valid() || !md.Resident(a) || md.Key(b) != "b" {
		t.Fatalf("handles %+v %+v", a, b)
	}

	md.Add(b)
	md.Add(a)
	if md.Queued() != 2 {
		t.Fatalf("Queued() = %d", md.Queued())
	}
	if err := md.Flush(geom.Identity()); err != nil {
		t.Fatal(err)
	}
	if md.Queued() != 0 {
		t.Errorf("queue not drained")
	}
	if len(*flushes) != 1 {
		t.Fatalf("%d flushes", len(*flushes))
	}
	want := []gfx.DrawIndexedIndirectArgs{
		{IndexCount: 54, InstanceCount: 1, FirstIndex: 24, BaseVertex: 9},
		{IndexCount: 24, InstanceCount: 1, FirstIndex: 0, BaseVertex: 0},
	}
	for i, cmd := range (*flushes)[0] {
		if cmd != want[i] {
			t.Errorf("command %d = %+v, want %+v", i, cmd, want[i])
		}
	}

	st := md.Stats()
	if st.Meshes != 2 || st.Commands != 2 || st.Flushes != 1 || st.VertexUsed != 25 || st.IndexUsed != 78 {
		t.Errorf("stats %+v", st)
	}
	if st.VertexCapacity != 1000 || st.IndexCapacity != 2000 {
		t.Errorf("capacity %+v", st)
	}

	// An empty queue draws nothing.
	if err := md.Flush(geom.Identity()); err != nil || len(*flushes) != 1 {
		t.Errorf("empty flush: err %v, %d flushes", err, len(*flushes))
	}
	md.ResetStats()
	if st := md.Stats(); st.Commands != 0 || st.Meshes != 2 {
		t.Errorf("stats after reset %+v", st)
	}
}

func TestMultiDraw_ReleaseReusesRegionsAndSlots(t *testing.T) {
	md, _ := newTestMultiDraw(t, 100, 200)
	a, _ := md.Upload("a", gridMesh(3))
	b, _ := md.Upload("b", gridMesh(3))
	md.Release(a)
	if md.Resident(a) {
		t.Fatal("released handle still resident")
	}
	expectPanic(t, "stale Add", func() { md.Add(a) })
	expectPanic(t, "double Release", func() { md.Release(a) })
	expectPanic(t, "zero handle", func() { md.Add(MeshHandle{}) })

	c, err := md.Upload("c", gridMesh(3))
	if err != nil {
		t.Fatal(err)
	}
	if c.index != a.index || c.gen == a.gen {
		t.Errorf("slot reuse: a %+v, c %+v", a, c)
	}
	if md.Resident(a) || !md.Resident(b) || !md.Resident(c) {
		t.Error("residency wrong after slot reuse")
	}
	md.Add(c)
	if got := md.queued[0]; got.BaseVertex != 0 || got.FirstIndex != 0 {
		t.Errorf("c did not reuse the freed regions: %+v", got)
	}
	md.queued = md.queued[:0]
	if st := md.Stats(); st.Meshes != 2 || st.VertexUsed != 18 {
		t.Errorf("stats %+v", st)
	}
}

func TestMultiDraw_ArenaFull(t *testing.T) {
	logs := captureLogs(t)
	md, _ := newTestMultiDraw(t, 20, 1000)
	if _, err := md.Upload("a", gridMesh(4)); err != nil {
		t.Fatal(err)
	}
	_, err := md.Upload("b", gridMesh(3))
	if !errors.Is(err, ErrArenaFull) {
		t.Fatalf("err = %v, want ErrArenaFull", err)
	}
	if !strings.Contains(logs.String(), "mesh arena full") {
		t.Errorf("no warning logged: %s", logs.String())
	}

	// Index exhaustion rolls back the vertex allocation.
	md2, _ := newTestMultiDraw(t, 1000, 30)
	if _, err := md2.Upload("big", gridMesh(4)); !errors.Is(err, ErrArenaFull) {
		t.Fatalf("err = %v, want ErrArenaFull", err)
	}
	if st := md2.Stats(); st.VertexUsed != 0 || st.Meshes != 0 {
		t.Errorf("failed upload left %+v", st)
	}
	if _, err := md2.Upload("small", gridMesh(3)); err != nil {
		t.Errorf("small upload after rollback: %v", err)
	}
}

func TestMultiDraw_GrowsIndirectBuffer(t *testing.T) {
	md, flushes := newTestMultiDraw(t, 10000, 10000)
	h, err := md.Upload("a", gridMesh(2))
	if err != nil {
		t.Fatal(err)
	}
	for range 100 {
		md.Add(h)
	}
	if err := md.Flush(geom.Identity()); err != nil {
		t.Fatal(err)
	}
	if md.indirect.Capacity() < 100 {
		t.Errorf("indirect capacity %d", md.indirect.Capacity())
	}
	if len((*flushes)[0]) != 100 {
		t.Errorf("%d commands flushed", len((*flushes)[0]))
	}
}

func TestMultiDraw_EmptyMeshPanics(t *testing.T) {
	md, _ := newTestMultiDraw(t, 10, 10)
	expectPanic(t, "empty mesh", func() { _, _ = md.Upload("empty", Mesh{}) })
}

func TestArenaCapacity(t *testing.T) {
	v, i := ArenaCapacity(1)
	if v != (1<<19)/meshVertexSize || i != (1<<19)/4 {
		t.Errorf("ArenaCapacity(1) = %d, %d", v, i)
	}
	if int(meshLayout.Stride()) != meshVertexSize {
		t.Errorf("mesh stride %d, want %d", meshLayout.Stride(), meshVertexSize)
	}
}
