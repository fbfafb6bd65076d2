package gfx

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// MaxTextureSlots is the hard upper bound of textures one batch can sample.
// Shaders declare this many texture bindings followed by one sampler.
const MaxTextureSlots = 16

// MinTextureSlots is the white texture plus one user texture. Fewer slots
// could never bind a textured draw.
const MinTextureSlots = 2

type bindGroupKey struct {
	layout ResourceID
	slots  [MaxTextureSlots]ResourceID
}

// TextureSlotCapacity clamps a configured slot count to the device limit
// and MaxTextureSlots, and raises it to at least MinTextureSlots.
func (c *Context) TextureSlotCapacity(configured int) int {
	n := min(configured, MaxTextureSlots)
	if lim := int(c.limits.MaxSampledTexturesPerShaderStage); lim > 0 {
		n = min(n, lim)
	}
	return max(n, MinTextureSlots)
}

// TextureSlotLayoutEntries returns MaxTextureSlots float texture bindings
// (0..15) and a filtering sampler at binding MaxTextureSlots.
func TextureSlotLayoutEntries() []gputypes.BindGroupLayoutEntry {
	entries := make([]gputypes.BindGroupLayoutEntry, 0, MaxTextureSlots+1)
	for i := range MaxTextureSlots {
		entries = append(entries, gputypes.BindGroupLayoutEntry{
			Binding:    uint32(i), //nolint:gosec // < MaxTextureSlots
			Visibility: gputypes.ShaderStageFragment,
			Texture: &gputypes.TextureBindingLayout{
				SampleType:    gputypes.TextureSampleTypeFloat,
				ViewDimension: gputypes.TextureViewDimension2D,
			},
		})
	}
	entries = append(entries, gputypes.BindGroupLayoutEntry{
		Binding:    MaxTextureSlots,
		Visibility: gputypes.ShaderStageFragment,
		Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
	})
	return entries
}

// TextureSlotGroup returns a bind group binding textures in slot order, with
// every unused slot bound to the white texture. Groups are cached by the
// exact texture set and released when one of their textures is destroyed.
func (c *Context) TextureSlotGroup(layout *BindLayout, textures []*Texture) (*BindGroup, error) {
	c.AssertRenderThread()
	Assert(len(textures) <= MaxTextureSlots, "%d textures exceed %d slots", len(textures), MaxTextureSlots)

	key := bindGroupKey{layout: layout.id}
	bound := [MaxTextureSlots]*Texture{}
	for i := range MaxTextureSlots {
		t := c.white
		if i < len(textures) && textures[i] != nil {
			t = textures[i]
		}
		Assert(t.view != nil, "texture %q bound after Destroy", t.spec.Label)
		bound[i] = t
		key.slots[i] = t.id
	}

	return c.bindGroups.GetOrCreate(key, func() (*BindGroup, error) {
		entries := make([]gputypes.BindGroupEntry, 0, MaxTextureSlots+1)
		for i, t := range bound {
			entries = append(entries, gputypes.BindGroupEntry{
				Binding:  uint32(i), //nolint:gosec // < MaxTextureSlots
				Resource: gputypes.TextureViewBinding{TextureView: t.view.NativeHandle()},
			})
		}
		entries = append(entries, gputypes.BindGroupEntry{
			Binding:  MaxTextureSlots,
			Resource: gputypes.SamplerBinding{Sampler: c.sampler.NativeHandle()},
		})
		bg, err := NewBindGroup(c, "texture_slots", layout, entries...)
		if err != nil {
			return nil, fmt.Errorf("texture slot group: %w", err)
		}
		return bg, nil
	})
}

// CachedBindGroups returns the number of cached texture slot groups.
func (c *Context) CachedBindGroups() int { return c.bindGroups.Len() }

// forgetTexture drops cached groups that reference id.
func (c *Context) forgetTexture(id ResourceID) {
	if c.bindGroups == nil {
		return
	}
	c.bindGroups.DeleteFunc(func(k bindGroupKey) bool {
		for _, s := range k.slots {
			if s == id {
				return true
			}
		}
		return false
	})
}
