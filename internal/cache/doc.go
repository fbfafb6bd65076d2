// Package cache provides the soft-limit cache gfx uses for texture bind
// groups, keyed by the exact set of textures they reference.
//
// Unlike the public cache package, eviction is batched: once the soft limit
// is exceeded the oldest quarter of the entries is dropped at once, and each
// dropped value is handed to a release callback so the owner can schedule
// the GPU object for destruction.
//
//	c := cache.New[bindGroupKey, *BindGroup](64, func(_ bindGroupKey, g *BindGroup) {
//		g.Destroy()
//	})
//	group, err := c.GetOrCreate(key, buildBindGroup)
package cache
