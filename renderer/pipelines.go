package renderer

import (
	"github.com/gogpu/gputypes"

	"github.com/hearth-engine/hearth/gfx"
)

// colorTargets matches a pipeline to the target's color attachments. Float
// targets blend premultiplied; integer targets (entity ids) are written
// unblended.
func colorTargets(fb *gfx.Framebuffer) []gputypes.ColorTargetState {
	blend := gputypes.BlendStatePremultiplied()
	formats := fb.ColorFormats()
	targets := make([]gputypes.ColorTargetState, len(formats))
	for i, f := range formats {
		targets[i] = gputypes.ColorTargetState{Format: f, WriteMask: gputypes.ColorWriteMaskAll}
		if !integerFormat(f) {
			targets[i].Blend = &blend
		}
	}
	return targets
}

func integerFormat(f gputypes.TextureFormat) bool {
	switch f {
	case gputypes.TextureFormatR32Sint, gputypes.TextureFormatR32Uint:
		return true
	default:
		return false
	}
}

// depthState returns nil when the target has no depth attachment.
func depthState(fb *gfx.Framebuffer, write bool, compare gputypes.CompareFunction) *gfx.DepthState {
	f := fb.DepthFormat()
	if f == gputypes.TextureFormatUndefined {
		return nil
	}
	return &gfx.DepthState{Format: f, Write: write, Compare: compare}
}
