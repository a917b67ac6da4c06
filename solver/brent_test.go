package solver_test

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meenmo/shortrate/solver"
)

func TestBrent_Solve(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		f        func(float64) float64
		min, max float64
		want     float64
	}{
		{"sqrt2", func(x float64) float64 { return x*x - 2 }, 0, 2, math.Sqrt2},
		{"cos fixed point", func(x float64) float64 { return math.Cos(x) - x }, 0, 1, 0.7390851332151607},
		{"decreasing exponential", func(x float64) float64 { return 0.95 - math.Exp(-x) }, -50, 50, -math.Log(0.95)},
		{"linear", func(x float64) float64 { return x - 1 }, 0, 10, 1},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			b := solver.Brent{MaxEvaluations: 100}
			res, err := b.Solve(tc.f, 1e-12, 0.5*(tc.min+tc.max), tc.min, tc.max)
			require.NoError(t, err)
			assert.InDelta(t, tc.want, res.Root, 1e-11)
			assert.LessOrEqual(t, res.Evaluations, 100)
		})
	}
}

func TestBrent_RootAtEndpoint(t *testing.T) {
	t.Parallel()

	res, err := solver.Brent{}.Solve(func(x float64) float64 { return x }, 1e-10, 0.5, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.Root)
	assert.Equal(t, 1, res.Evaluations)
}

func TestBrent_NotBracketed(t *testing.T) {
	t.Parallel()

	_, err := solver.Brent{}.Solve(func(x float64) float64 { return x*x + 1 }, 1e-10, 0, -1, 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, solver.ErrNotBracketed))
}

func TestBrent_MaxEvaluations(t *testing.T) {
	t.Parallel()

	b := solver.Brent{MaxEvaluations: 3}
	_, err := b.Solve(func(x float64) float64 { return x*x*x - 2 }, 1e-14, 0, -10, 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, solver.ErrMaxEvaluations)
}

func TestBrent_InvalidBracket(t *testing.T) {
	t.Parallel()

	f := func(x float64) float64 { return x }
	_, err := solver.Brent{}.Solve(f, 1e-10, 0, 1, -1)
	assert.ErrorIs(t, err, solver.ErrInvalidBracket)
	_, err = solver.Brent{}.Solve(f, 1e-10, 5, -1, 1)
	assert.ErrorIs(t, err, solver.ErrInvalidBracket)
	_, err = solver.Brent{}.Solve(f, 0, 0, -1, 1)
	assert.ErrorIs(t, err, solver.ErrInvalidBracket)
}

func TestBrent_SolveStep(t *testing.T) {
	t.Parallel()

	b := solver.Brent{MaxEvaluations: 200}
	res, err := b.SolveStep(func(x float64) float64 { return x*x*x - 8 }, 1e-12, 0, 0.1)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, res.Root, 1e-10)

	res, err = b.SolveStep(func(x float64) float64 { return math.Exp(x) - 0.01 }, 1e-12, 0, 0.1)
	require.NoError(t, err)
	assert.InDelta(t, math.Log(0.01), res.Root, 1e-10)
}

func TestBrent_SolveStepGivesUp(t *testing.T) {
	t.Parallel()

	b := solver.Brent{MaxEvaluations: 20}
	_, err := b.SolveStep(func(x float64) float64 { return 1 + x*x }, 1e-12, 0, 0.1)
	assert.ErrorIs(t, err, solver.ErrMaxEvaluations)
}
