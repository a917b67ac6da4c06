package lattice

import (
	"fmt"
	"math"
	"sort"
)

// FittingParameter holds the calibrated shift theta_i of every slice,
// keyed by the slice's start time.
type FittingParameter struct {
	times  []float64
	values []float64
}

func newFittingParameter(capacity int) *FittingParameter {
	return &FittingParameter{
		times:  make([]float64, 0, capacity),
		values: make([]float64, 0, capacity),
	}
}

// set appends the value for the next slice; slices are fitted in time order.
func (p *FittingParameter) set(t, v float64) {
	p.times = append(p.times, t)
	p.values = append(p.values, v)
}

// Len returns the number of calibrated slices.
func (p *FittingParameter) Len() int { return len(p.values) }

// At returns theta_i.
func (p *FittingParameter) At(i int) float64 { return p.values[i] }

// Value returns the shift calibrated at time t.
func (p *FittingParameter) Value(t float64) (float64, error) {
	i := sort.SearchFloat64s(p.times, t)
	for _, k := range [2]int{i - 1, i} {
		if k >= 0 && k < len(p.times) && math.Abs(p.times[k]-t) <= 1e-10*math.Max(1, math.Abs(t)) {
			return p.values[k], nil
		}
	}
	return 0, fmt.Errorf("%w at t=%g", ErrFittingNotSet, t)
}

// Times returns a copy of the calibrated slice times.
func (p *FittingParameter) Times() []float64 {
	return append([]float64(nil), p.times...)
}

// Values returns a copy of the calibrated shifts.
func (p *FittingParameter) Values() []float64 {
	return append([]float64(nil), p.values...)
}
