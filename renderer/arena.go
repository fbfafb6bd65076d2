package renderer

import (
	"cmp"
	"slices"
)

type region struct {
	offset, size int
}

// regionAllocator hands out ranges of a fixed-size arena, first fit. Free
// regions are kept sorted by offset and adjacent ones are merged on
// release.
type regionAllocator struct {
	capacity int
	used     int
	free     []region
}

func newRegionAllocator(capacity int) regionAllocator {
	return regionAllocator{capacity: capacity, free: []region{{0, capacity}}}
}

func (a *regionAllocator) alloc(n int) (int, bool) {
	for i, r := range a.free {
		if r.size < n {
			continue
		}
		if r.size == n {
			a.free = slices.Delete(a.free, i, i+1)
		} else {
			a.free[i] = region{r.offset + n, r.size - n}
		}
		a.used += n
		return r.offset, true
	}
	return 0, false
}

func (a *regionAllocator) release(offset, n int) {
	i, _ := slices.BinarySearchFunc(a.free, offset, func(r region, off int) int { return cmp.Compare(r.offset, off) })
	a.free = slices.Insert(a.free, i, region{offset, n})
	if i+1 < len(a.free) && a.free[i].offset+a.free[i].size == a.free[i+1].offset {
		a.free[i].size += a.free[i+1].size
		a.free = slices.Delete(a.free, i+1, i+2)
	}
	if i > 0 && a.free[i-1].offset+a.free[i-1].size == a.free[i].offset {
		a.free[i-1].size += a.free[i].size
		a.free = slices.Delete(a.free, i, i+1)
	}
	a.used -= n
}

// largestFree returns the biggest single allocation that would succeed.
func (a *regionAllocator) largestFree() int {
	best := 0
	for _, r := range a.free {
		best = max(best, r.size)
	}
	return best
}
