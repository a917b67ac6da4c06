package lattice

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/meenmo/shortrate/timegrid"
)

// Lattice rolls asset values back through time.
type Lattice interface {
	TimeGrid() *timegrid.Grid
	// Initialize places a at grid time t and lets it set its values.
	Initialize(a Asset, t float64) error
	// Rollback moves a back to time to, adjusting values at every
	// intermediate time and at to.
	Rollback(a Asset, to float64) error
	// PartialRollback is Rollback without the adjustment at to.
	PartialRollback(a Asset, to float64) error
	// PresentValue is the time-0 value of a from its current slice.
	PresentValue(a Asset) (float64, error)
}

var _ Lattice = (*ShortRateTree)(nil)

func (t *ShortRateTree) Initialize(a Asset, at float64) error {
	i, err := t.grid.Index(at)
	if err != nil {
		return fmt.Errorf("Initialize: %w", err)
	}
	a.SetState(t.grid.At(i), nil)
	return a.Reset(t, t.Size(i))
}

func (t *ShortRateTree) Rollback(a Asset, to float64) error {
	if err := t.PartialRollback(a, to); err != nil {
		return err
	}
	return a.AdjustValues(t)
}

func (t *ShortRateTree) PartialRollback(a Asset, to float64) error {
	from := a.Time()
	if sameTime(from, to) {
		return nil
	}
	if to > from {
		return fmt.Errorf("%w: cannot roll back from %g to later time %g", ErrRollback, from, to)
	}
	iFrom, err := t.grid.Index(from)
	if err != nil {
		return fmt.Errorf("PartialRollback: %w", err)
	}
	iTo, err := t.grid.Index(to)
	if err != nil {
		return fmt.Errorf("PartialRollback: %w", err)
	}

	for i := iFrom - 1; i >= iTo; i-- {
		values, err := t.stepback(i, a.Values())
		if err != nil {
			return err
		}
		a.SetState(t.grid.At(i), values)
		if i != iTo {
			if err := a.AdjustValues(t); err != nil {
				return err
			}
		}
	}
	return nil
}

// stepback discounts the expected slice i+1 values onto slice i.
func (t *ShortRateTree) stepback(i int, values []float64) ([]float64, error) {
	if len(values) != t.Size(i+1) {
		return nil, fmt.Errorf("%w: slice %d has %d nodes, asset has %d values", ErrRollback, i+1, t.Size(i+1), len(values))
	}
	out := make([]float64, t.Size(i))
	for j := range out {
		var v float64
		for branch := 0; branch < 3; branch++ {
			v += t.tree.Probability(i, j, branch) * values[t.tree.Descendant(i, j, branch)]
		}
		out[j] = v * t.discounts[i][j]
	}
	return out, nil
}

func (t *ShortRateTree) PresentValue(a Asset) (float64, error) {
	i, err := t.grid.Index(a.Time())
	if err != nil {
		return 0, fmt.Errorf("PresentValue: %w", err)
	}
	values := a.Values()
	if len(values) != len(t.statePrices[i]) {
		return 0, fmt.Errorf("%w: slice %d has %d nodes, asset has %d values", ErrRollback, i, len(t.statePrices[i]), len(values))
	}
	return floats.Dot(values, t.statePrices[i]), nil
}

// Price initializes a at time from, rolls it back to time 0 and returns
// its value.
func Price(l Lattice, a Asset, from float64) (float64, error) {
	if err := l.Initialize(a, from); err != nil {
		return 0, err
	}
	if err := l.Rollback(a, 0); err != nil {
		return 0, err
	}
	return l.PresentValue(a)
}

func sameTime(a, b float64) bool {
	return math.Abs(a-b) <= 1e-10*math.Max(1, math.Abs(a))
}
