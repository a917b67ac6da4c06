package lattice_test

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meenmo/shortrate/lattice"
	"github.com/meenmo/shortrate/process"
	"github.com/meenmo/shortrate/timegrid"
)

func TestTrinomialTree_ProbabilitiesAndGrowth(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name         string
		speed, sigma float64
		end          float64
		steps        int
	}{
		{"mean reverting", 0.1, 0.01, 10, 40},
		{"strong reversion", 1.5, 0.2, 30, 200},
		{"no reversion", 0, 0.015, 5, 60},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			grid, err := timegrid.Regular(tc.end, tc.steps)
			require.NoError(t, err)
			tree, err := lattice.NewTrinomialTree(newOU(t, tc.speed, tc.sigma), grid, false)
			require.NoError(t, err)

			assert.Equal(t, 1, tree.Size(0))
			assert.Equal(t, 0.0, tree.Underlying(0, 0))
			for i := 0; i < grid.Steps(); i++ {
				assert.LessOrEqual(t, tree.Size(i+1), tree.Size(i)+2, "slice %d grows by more than two nodes", i)
				b := tree.Branching(i)
				require.Equal(t, tree.Size(i), b.Len())
				for j := 0; j < tree.Size(i); j++ {
					var sum float64
					for branch := 0; branch < 3; branch++ {
						p := tree.Probability(i, j, branch)
						assert.GreaterOrEqual(t, p, 0.0)
						assert.LessOrEqual(t, p, 1.0)
						sum += p
						d := tree.Descendant(i, j, branch)
						assert.True(t, d >= 0 && d < tree.Size(i+1), "descendant %d out of slice %d", d, i+1)
					}
					assert.InDelta(t, 1.0, sum, 1e-12)
				}
			}
		})
	}
}

func TestTrinomialTree_FirstStep(t *testing.T) {
	t.Parallel()

	grid, err := timegrid.Regular(1, 4)
	require.NoError(t, err)
	p := newOU(t, 0.1, 0.01)
	tree, err := lattice.NewTrinomialTree(p, grid, false)
	require.NoError(t, err)

	dx := math.Sqrt(3 * p.Variance(0, 0, 0.25))
	assert.InDelta(t, dx, tree.Dx(1), 1e-18)
	assert.Equal(t, 3, tree.Size(1))
	assert.Equal(t, -1, tree.JMin(1))
	assert.Equal(t, 1, tree.JMax(1))
	assert.Equal(t, []float64{-dx, 0, dx}, tree.Underlyings(1))

	// the root sits on its own expectation: 1/6, 2/3, 1/6
	assert.InDelta(t, 1.0/6, tree.Probability(0, 0, 0), 1e-15)
	assert.InDelta(t, 2.0/3, tree.Probability(0, 0, 1), 1e-15)
	assert.InDelta(t, 1.0/6, tree.Probability(0, 0, 2), 1e-15)
	assert.Equal(t, 0, tree.Branching(0).Center(0))
}

func TestTrinomialTree_MatchesMoments(t *testing.T) {
	t.Parallel()

	grid, err := timegrid.Regular(2, 8)
	require.NoError(t, err)
	p := newOU(t, 0.5, 0.02)
	tree, err := lattice.NewTrinomialTree(p, grid, false)
	require.NoError(t, err)

	for i := 0; i < grid.Steps(); i++ {
		dt := grid.Dt(i)
		for j, x := range tree.Underlyings(i) {
			var mean, second float64
			for branch := 0; branch < 3; branch++ {
				child := tree.Underlying(i+1, tree.Descendant(i, j, branch))
				mean += tree.Probability(i, j, branch) * child
				second += tree.Probability(i, j, branch) * child * child
			}
			m := p.Expectation(grid.At(i), x, dt)
			assert.InDelta(t, m, mean, 1e-14)
			assert.InDelta(t, p.Variance(grid.At(i), x, dt), second-mean*mean, 1e-14)
		}
	}
}

func TestTrinomialTree_PositivityForcing(t *testing.T) {
	t.Parallel()

	grid, err := timegrid.Regular(1, 1)
	require.NoError(t, err)
	// sqrt of a CIR rate whose drift drags the first step far below zero
	p, err := process.NewSquareRoot(0.1, 0.05, 0.5, 1e-4)
	require.NoError(t, err)

	_, err = lattice.NewTrinomialTree(p, grid, false)
	require.NoError(t, err)

	_, err = lattice.NewTrinomialTree(p, grid, true)
	require.Error(t, err)
	assert.True(t, errors.Is(err, lattice.ErrDegenerateDiscretization))
	var derr *lattice.DiscretizationError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, 0, derr.Slice)
	assert.Equal(t, 0, derr.Node)
	assert.Less(t, derr.Probabilities[1], 0.0)
}

func TestTrinomialTree_PositiveNodes(t *testing.T) {
	t.Parallel()

	grid, err := timegrid.Regular(5, 50)
	require.NoError(t, err)
	p, err := process.NewSquareRoot(0.2, 0.04, 0.05, 0.04)
	require.NoError(t, err)
	tree, err := lattice.NewTrinomialTree(p, grid, true)
	require.NoError(t, err)
	assert.True(t, tree.Positive())

	for i := 1; i <= grid.Steps(); i++ {
		assert.Greater(t, tree.Underlying(i, 0), 0.0, "slice %d", i)
	}
}

// frozen has no diffusion at all.
type frozen struct{}

func (frozen) X0() float64                         { return 0 }
func (frozen) Drift(_, _ float64) float64          { return 0 }
func (frozen) Diffusion(_, _ float64) float64      { return 0 }
func (frozen) Expectation(_, x, _ float64) float64 { return x }
func (frozen) Variance(_, _, _ float64) float64    { return 0 }

func TestTrinomialTree_Rejects(t *testing.T) {
	t.Parallel()

	grid, err := timegrid.Regular(1, 2)
	require.NoError(t, err)

	_, err = lattice.NewTrinomialTree(frozen{}, grid, false)
	assert.ErrorIs(t, err, lattice.ErrDegenerateDiscretization)

	_, err = lattice.NewTrinomialTree(nil, grid, false)
	assert.ErrorIs(t, err, lattice.ErrNilInput)
	_, err = lattice.NewTrinomialTree(newOU(t, 0.1, 0.01), nil, false)
	assert.ErrorIs(t, err, lattice.ErrNilInput)
}

func TestTrinomialTree_NonUniformGrid(t *testing.T) {
	t.Parallel()

	grid, err := timegrid.New([]float64{0.1, 0.3, 1, 3})
	require.NoError(t, err)
	tree, err := lattice.NewTrinomialTree(newOU(t, 0.1, 0.01), grid, false)
	require.NoError(t, err)
	for i := 0; i < grid.Steps(); i++ {
		assert.LessOrEqual(t, tree.Size(i+1), tree.Size(i)+2, "slice %d", i)
	}
}

func TestTrinomialTree_RejectsShrinkingStep(t *testing.T) {
	t.Parallel()

	grid, err := timegrid.New([]float64{1, 1.01, 1.02, 5})
	require.NoError(t, err)
	_, err = lattice.NewTrinomialTree(newOU(t, 0.1, 0.01), grid, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, lattice.ErrDegenerateDiscretization)

	var derr *lattice.DiscretizationError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, 1, derr.Slice)
	assert.Equal(t, 1.0, derr.Time)
}
