// Package timegrid partitions [0, T] into the mesh points a lattice is built on.
package timegrid

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var (
	// ErrInvalidGrid indicates times that are empty, negative, non-finite or not strictly increasing.
	ErrInvalidGrid = errors.New("timegrid: invalid time grid")
	// ErrTimeNotOnGrid indicates a lookup for a time that is not a mesh point.
	ErrTimeNotOnGrid = errors.New("timegrid: time not on grid")
)

// timeTolerance scales with max(1, |t|) when matching a time to a mesh point.
const timeTolerance = 1e-10

// Grid is an immutable, strictly increasing sequence t_0 = 0 < t_1 < ... < t_N.
type Grid struct {
	times []float64
	dt    []float64
}

// New builds a grid from explicit mesh points. A leading zero is inserted
// when the first point is positive.
func New(times []float64) (*Grid, error) {
	if len(times) == 0 {
		return nil, fmt.Errorf("%w: no times given", ErrInvalidGrid)
	}
	pts := make([]float64, 0, len(times)+1)
	if times[0] != 0 {
		pts = append(pts, 0)
	}
	pts = append(pts, times...)
	for i, t := range pts {
		if math.IsNaN(t) || math.IsInf(t, 0) || t < 0 {
			return nil, fmt.Errorf("%w: time %d is %g", ErrInvalidGrid, i, t)
		}
		if i > 0 && !(t > pts[i-1]) {
			return nil, fmt.Errorf("%w: time %d (%g) does not exceed time %d (%g)", ErrInvalidGrid, i, t, i-1, pts[i-1])
		}
	}
	if len(pts) < 2 {
		return nil, fmt.Errorf("%w: at least one positive time is required", ErrInvalidGrid)
	}

	dt := make([]float64, len(pts)-1)
	for i := range dt {
		dt[i] = pts[i+1] - pts[i]
	}
	return &Grid{times: pts, dt: dt}, nil
}

// Regular splits [0, end] into steps equal intervals.
func Regular(end float64, steps int) (*Grid, error) {
	if !(end > 0) || math.IsInf(end, 0) {
		return nil, fmt.Errorf("%w: end must be positive and finite, got %g", ErrInvalidGrid, end)
	}
	if steps <= 0 {
		return nil, fmt.Errorf("%w: steps must be positive, got %d", ErrInvalidGrid, steps)
	}
	dt := end / float64(steps)
	times := make([]float64, steps+1)
	for i := 1; i < steps; i++ {
		times[i] = dt * float64(i)
	}
	times[steps] = end
	return New(times)
}

// WithMandatory builds a grid containing every mandatory time. The average
// step is at most max(mandatory)/steps; each period between consecutive
// mandatory times is split evenly. With steps == 0 the smallest gap between
// mandatory times sets the step.
func WithMandatory(mandatory []float64, steps int) (*Grid, error) {
	if len(mandatory) == 0 {
		return nil, fmt.Errorf("%w: no mandatory times given", ErrInvalidGrid)
	}
	if steps < 0 {
		return nil, fmt.Errorf("%w: steps must be non-negative, got %d", ErrInvalidGrid, steps)
	}
	m := uniqueSorted(mandatory)
	if m[0] < 0 || math.IsNaN(m[0]) || math.IsInf(m[len(m)-1], 0) {
		return nil, fmt.Errorf("%w: mandatory times must be non-negative and finite", ErrInvalidGrid)
	}
	last := m[len(m)-1]
	if !(last > 0) {
		return nil, fmt.Errorf("%w: at least one positive mandatory time is required", ErrInvalidGrid)
	}

	var dtMax float64
	if steps == 0 {
		dtMax = last
		prev := 0.0
		for _, t := range m {
			if gap := t - prev; gap > 0 && gap < dtMax {
				dtMax = gap
			}
			prev = t
		}
	} else {
		dtMax = last / float64(steps)
	}

	times := []float64{0}
	begin := 0.0
	for _, end := range m {
		if end == 0 {
			continue
		}
		n := int((end-begin)/dtMax + 0.5)
		if n == 0 {
			n = 1
		}
		dt := (end - begin) / float64(n)
		for k := 1; k < n; k++ {
			times = append(times, begin+float64(k)*dt)
		}
		times = append(times, end)
		begin = end
	}
	return New(times)
}

func uniqueSorted(in []float64) []float64 {
	out := append([]float64(nil), in...)
	sort.Float64s(out)
	j := 0
	for i := 1; i < len(out); i++ {
		if !sameTime(out[i], out[j]) {
			j++
			out[j] = out[i]
		}
	}
	return out[:j+1]
}

func sameTime(a, b float64) bool {
	return math.Abs(a-b) <= timeTolerance*math.Max(1, math.Abs(a))
}

// Len returns the number of mesh points (N+1).
func (g *Grid) Len() int { return len(g.times) }

// Steps returns the number of intervals (N).
func (g *Grid) Steps() int { return len(g.dt) }

// At returns t_i.
func (g *Grid) At(i int) float64 { return g.times[i] }

// Dt returns t_{i+1} - t_i.
func (g *Grid) Dt(i int) float64 { return g.dt[i] }

// Back returns the last mesh point.
func (g *Grid) Back() float64 { return g.times[len(g.times)-1] }

// Times returns a copy of the mesh points.
func (g *Grid) Times() []float64 {
	return append([]float64(nil), g.times...)
}

// ClosestIndex returns the index of the mesh point nearest to t.
func (g *Grid) ClosestIndex(t float64) int {
	i := sort.SearchFloat64s(g.times, t)
	switch {
	case i == 0:
		return 0
	case i == len(g.times):
		return len(g.times) - 1
	}
	if t-g.times[i-1] < g.times[i]-t {
		return i - 1
	}
	return i
}

// Index returns the index of the mesh point equal to t.
func (g *Grid) Index(t float64) (int, error) {
	i := g.ClosestIndex(t)
	if !sameTime(t, g.times[i]) {
		return 0, fmt.Errorf("%w: %g (closest %g at index %d)", ErrTimeNotOnGrid, t, g.times[i], i)
	}
	return i, nil
}
