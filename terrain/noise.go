package terrain

import "math"

// Heightfield is deterministic fractal value noise. The same seed always
// yields the same surface, independently of the order chunks are built in.
type Heightfield struct {
	seed      uint64
	amplitude float32
	frequency float32
	octaves   int
}

const (
	defaultFrequency = 1.0 / 48
	defaultOctaves   = 4
)

// NewHeightfield returns a surface whose heights stay within
// [-amplitude, amplitude].
func NewHeightfield(seed int64, amplitude float32) *Heightfield {
	return &Heightfield{
		seed:      uint64(seed), //nolint:gosec // reinterpret
		amplitude: amplitude,
		frequency: defaultFrequency,
		octaves:   defaultOctaves,
	}
}

// Amplitude returns the bound on |Height|.
func (h *Heightfield) Amplitude() float32 { return h.amplitude }

// Height returns the surface height at (x, z). Safe for concurrent use.
func (h *Heightfield) Height(x, z float32) float32 {
	var sum, norm float32
	amp, freq := float32(1), h.frequency
	for o := range h.octaves {
		sum += amp * h.lattice(x*freq, z*freq, uint64(o)) //nolint:gosec // small
		norm += amp
		amp *= 0.5
		freq *= 2
	}
	return (sum/norm*2 - 1) * h.amplitude
}

// lattice interpolates hashed values at the integer grid points around
// (x, z). The result is in [0, 1).
func (h *Heightfield) lattice(x, z float32, octave uint64) float32 {
	fx, fz := math.Floor(float64(x)), math.Floor(float64(z))
	xi, zi := int64(fx), int64(fz)
	tx, tz := ease(x-float32(fx)), ease(z-float32(fz))

	v00 := h.value(xi, zi, octave)
	v10 := h.value(xi+1, zi, octave)
	v01 := h.value(xi, zi+1, octave)
	v11 := h.value(xi+1, zi+1, octave)
	a := v00 + (v10-v00)*tx
	b := v01 + (v11-v01)*tx
	return a + (b-a)*tz
}

func (h *Heightfield) value(x, z int64, octave uint64) float32 {
	k := h.seed ^ uint64(x)*0x9E3779B97F4A7C15 ^ uint64(z)*0xC2B2AE3D27D4EB4F ^ octave*0x165667B19E3779F9 //nolint:gosec // hashing
	return float32(splitmix64(k)>>40) / (1 << 24)
}

func ease(t float32) float32 { return t * t * (3 - 2*t) }

func splitmix64(x uint64) uint64 {
	x += 0x9E3779B97F4A7C15
	x = (x ^ x>>30) * 0xBF58476D1CE4E5B9
	x = (x ^ x>>27) * 0x94D049BB133111EB
	return x ^ x>>31
}
