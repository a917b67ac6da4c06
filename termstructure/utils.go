package termstructure

import "sort"

// locate finds the first pillar with time >= t and reports an exact match.
func (c *DiscountCurve) locate(t float64) (int, bool) {
	i := sort.SearchFloat64s(c.times, t)
	return i, i < len(c.times) && c.times[i] == t
}

// boundaryPair maps the index of the first pillar at or after t onto the
// bracketing pair, falling back to the nearest boundary pair outside the
// pillar range.
func (c *DiscountCurve) boundaryPair(idx int) (int, int) {
	if idx <= 0 {
		return 0, 1
	}
	if idx >= len(c.times) {
		return len(c.times) - 2, len(c.times) - 1
	}
	return idx - 1, idx
}
