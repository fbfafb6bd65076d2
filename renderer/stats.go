package renderer

// Stats counts work submitted since the last ResetStats.
type Stats struct {
	DrawCalls int
	Quads     int
	Circles   int
	Cubes     int
	Indices   int
}

// Vertices returns the number of vertices uploaded for the counted
// primitives.
func (s Stats) Vertices() int {
	return s.Quads*4 + s.Circles*4 + s.Cubes*cubeVertices
}

// flushRecord describes one batch flush. Tests observe flushes through it.
type flushRecord struct {
	batch       string
	count       int
	indices     uint32
	vertexBytes int
	slots       []uint64
}
