package lattice

import (
	"fmt"
	"math"

	"github.com/meenmo/shortrate/process"
	"github.com/meenmo/shortrate/timegrid"
)

var sqrt3 = math.Sqrt(3.0)

// TrinomialTree is a recombining trinomial discretization of a diffusion.
// Slice i holds the nodes x0 + j*Dx(i) for j in [JMin(i), JMax(i)].
type TrinomialTree struct {
	grid       *timegrid.Grid
	x0         float64
	dx         []float64
	branchings []*Branching
	positive   bool
}

// NewTrinomialTree builds the branchings of p on grid. With positive set,
// middle children are pushed up until the down child keeps x > 0.
//
// Every slice holds at most two nodes more than the one before. A grid
// whose step shrinks sharply from one slice to the next spreads the centre
// children apart and is rejected with a DiscretizationError.
func NewTrinomialTree(p process.Diffusion, grid *timegrid.Grid, positive bool, opts ...Option) (*TrinomialTree, error) {
	if p == nil || grid == nil {
		return nil, fmt.Errorf("NewTrinomialTree: %w", ErrNilInput)
	}
	cfg, err := resolve(opts)
	if err != nil {
		return nil, fmt.Errorf("NewTrinomialTree: %w", err)
	}
	tol := cfg.ProbabilityTolerance

	steps := grid.Steps()
	tree := &TrinomialTree{
		grid:       grid,
		x0:         p.X0(),
		dx:         make([]float64, 1, steps+1),
		branchings: make([]*Branching, 0, steps),
		positive:   positive,
	}

	jMin, jMax := 0, 0
	for i := 0; i < steps; i++ {
		t := grid.At(i)
		dt := grid.Dt(i)

		// variance must be independent of x
		v2 := p.Variance(t, 0.0, dt)
		if !(v2 > 0) || math.IsInf(v2, 0) {
			return nil, &DiscretizationError{Slice: i, Node: jMin, Time: t, Reason: fmt.Sprintf("step variance %g is not positive and finite", v2)}
		}
		v := math.Sqrt(v2)
		dxNext := v * sqrt3
		tree.dx = append(tree.dx, dxNext)

		branching := newBranching(jMax - jMin + 1)
		for j := jMin; j <= jMax; j++ {
			x := tree.x0 + float64(j)*tree.dx[i]
			m := p.Expectation(t, x, dt)
			if math.IsNaN(m) || math.IsInf(m, 0) {
				return nil, &DiscretizationError{Slice: i, Node: j, Time: t, Reason: fmt.Sprintf("expectation from x=%g is %g", x, m)}
			}

			k := int(math.Floor((m-tree.x0)/dxNext + 0.5))
			if positive {
				for tree.x0+float64(k-1)*dxNext <= 0 {
					k++
				}
			}

			e := m - (tree.x0 + float64(k)*dxNext)
			e2 := e * e
			e3 := e * sqrt3
			pDown := (1.0 + e2/v2 - e3/v) / 6.0
			pMid := (2.0 - e2/v2) / 3.0
			pUp := (1.0 + e2/v2 + e3/v) / 6.0

			for _, prob := range [3]float64{pDown, pMid, pUp} {
				if math.IsNaN(prob) || prob < -tol || prob > 1+tol {
					return nil, &DiscretizationError{
						Slice:         i,
						Node:          j,
						Time:          t,
						Probabilities: [3]float64{pDown, pMid, pUp},
						Reason:        "branching probability outside [0, 1]",
					}
				}
			}
			branching.add(k, pDown, pMid, pUp)
		}
		if size, prev := branching.Size(), jMax-jMin+1; size > prev+2 {
			return nil, &DiscretizationError{
				Slice:  i,
				Node:   branching.JMax(),
				Time:   t,
				Reason: fmt.Sprintf("slice %d has %d nodes, more than two above the %d of slice %d; the time step shrinks too fast", i+1, size, prev, i),
			}
		}
		tree.branchings = append(tree.branchings, branching)
		jMin, jMax = branching.JMin(), branching.JMax()
	}

	logger.Debug().
		Int("steps", steps).
		Int("last_size", jMax-jMin+1).
		Bool("positive", positive).
		Msg("trinomial tree built")
	return tree, nil
}

// TimeGrid returns the grid the tree was built on.
func (t *TrinomialTree) TimeGrid() *timegrid.Grid { return t.grid }

// X0 is the value of the root node.
func (t *TrinomialTree) X0() float64 { return t.x0 }

// Positive reports whether positivity forcing was applied.
func (t *TrinomialTree) Positive() bool { return t.positive }

// Dx returns the space step of slice i; Dx(0) is zero.
func (t *TrinomialTree) Dx(i int) float64 { return t.dx[i] }

// JMin returns the lowest space index of slice i.
func (t *TrinomialTree) JMin(i int) int {
	if i == 0 {
		return 0
	}
	return t.branchings[i-1].JMin()
}

// JMax returns the highest space index of slice i.
func (t *TrinomialTree) JMax(i int) int {
	if i == 0 {
		return 0
	}
	return t.branchings[i-1].JMax()
}

// Size returns the number of nodes of slice i.
func (t *TrinomialTree) Size(i int) int {
	if i == 0 {
		return 1
	}
	return t.branchings[i-1].Size()
}

// Underlying returns the state variable at zero-based node index of slice i.
func (t *TrinomialTree) Underlying(i, index int) float64 {
	return t.x0 + float64(t.JMin(i)+index)*t.dx[i]
}

// Underlyings returns the state variable at every node of slice i.
func (t *TrinomialTree) Underlyings(i int) []float64 {
	xs := make([]float64, t.Size(i))
	for index := range xs {
		xs[index] = t.Underlying(i, index)
	}
	return xs
}

// Branching returns the transitions from slice i to slice i+1.
func (t *TrinomialTree) Branching(i int) *Branching { return t.branchings[i] }

// Descendant returns the child index in slice i+1 of node index along branch.
func (t *TrinomialTree) Descendant(i, index, branch int) int {
	return t.branchings[i].Descendant(index, branch)
}

// Probability returns the transition probability from node index of slice i along branch.
func (t *TrinomialTree) Probability(i, index, branch int) float64 {
	return t.branchings[i].Probability(index, branch)
}
