package renderer

import (
	"github.com/hearth-engine/hearth/gfx"
)

// slotTable assigns textures to shader slots for one batch. Slot 0 always
// holds the white texture.
type slotTable struct {
	textures []*gfx.Texture
	capacity int
}

func newSlotTable(white *gfx.Texture, capacity int) slotTable {
	gfx.Assert(capacity >= gfx.MinTextureSlots, "slot table capacity %d", capacity)
	t := slotTable{textures: make([]*gfx.Texture, 1, capacity), capacity: capacity}
	t.textures[0] = white
	return t
}

// assign returns the slot of tex, giving it the next free slot if needed.
// A nil texture maps to slot 0. ok is false when the table is full.
func (t *slotTable) assign(tex *gfx.Texture) (slot uint32, ok bool) {
	if tex == nil {
		return 0, true
	}
	for i, have := range t.textures {
		if have.ID() == tex.ID() {
			return uint32(i), true //nolint:gosec // i < MaxTextureSlots
		}
	}
	if len(t.textures) == t.capacity {
		return 0, false
	}
	t.textures = append(t.textures, tex)
	return uint32(len(t.textures) - 1), true //nolint:gosec // < MaxTextureSlots
}

// reset drops every texture except the white one.
func (t *slotTable) reset() {
	clear(t.textures[1:])
	t.textures = t.textures[:1]
}

func (t *slotTable) len() int { return len(t.textures) }

func (t *slotTable) ids() []uint64 {
	out := make([]uint64, len(t.textures))
	for i, tex := range t.textures {
		out[i] = uint64(tex.ID())
	}
	return out
}
