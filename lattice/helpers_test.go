package lattice_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meenmo/shortrate/lattice"
	"github.com/meenmo/shortrate/process"
	"github.com/meenmo/shortrate/termstructure"
	"github.com/meenmo/shortrate/timegrid"
)

// logNormal is r = exp(x + theta) on a zero-level Ornstein-Uhlenbeck x.
type logNormal struct {
	p *process.OrnsteinUhlenbeck
}

func (d logNormal) Process() process.Diffusion            { return d.p }
func (d logNormal) ShortRate(_, x, theta float64) float64 { return math.Exp(x + theta) }
func (d logNormal) Variable(_, r, theta float64) float64 {
	if r <= 0 {
		return math.NaN()
	}
	return math.Log(r) - theta
}
func (d logNormal) Positive() bool              { return false }
func (d logNormal) Bracket() (float64, float64) { return -50, 50 }

// additive is r = x + theta.
type additive struct {
	p *process.OrnsteinUhlenbeck
}

func (d additive) Process() process.Diffusion            { return d.p }
func (d additive) ShortRate(_, x, theta float64) float64 { return x + theta }
func (d additive) Variable(_, r, theta float64) float64  { return r - theta }
func (d additive) Positive() bool                        { return false }
func (d additive) Bracket() (float64, float64)           { return -1, 1 }

// quadratic is r = x + theta^2, whose slice objective turns around at theta = 0.
type quadratic struct {
	p *process.OrnsteinUhlenbeck
}

func (d quadratic) Process() process.Diffusion            { return d.p }
func (d quadratic) ShortRate(_, x, theta float64) float64 { return x + theta*theta }
func (d quadratic) Variable(_, r, theta float64) float64  { return r - theta*theta }
func (d quadratic) Positive() bool                        { return false }
func (d quadratic) Bracket() (float64, float64)           { return -0.1, 0.5 }

func newOU(t *testing.T, speed, vol float64) *process.OrnsteinUhlenbeck {
	t.Helper()
	p, err := process.NewOrnsteinUhlenbeck(speed, vol, 0, 0)
	require.NoError(t, err)
	return p
}

func marketCurve(t *testing.T) *termstructure.DiscountCurve {
	t.Helper()
	c, err := termstructure.NewZeroCurve(
		[]float64{1, 2, 5, 10, 20, 30},
		[]float64{0.030, 0.032, 0.036, 0.040, 0.042, 0.043},
		"ACT/365F",
	)
	require.NoError(t, err)
	return c
}

func flatCurve(t *testing.T, rate float64) termstructure.Curve {
	t.Helper()
	c, err := termstructure.NewFlatForward(rate, "ACT/365F")
	require.NoError(t, err)
	return c
}

func buildTree(t *testing.T, dyn lattice.Dynamics, curve termstructure.Curve, end float64, steps int, opts ...lattice.Option) *lattice.ShortRateTree {
	t.Helper()
	grid, err := timegrid.Regular(end, steps)
	require.NoError(t, err)
	tree, err := lattice.NewTrinomialTree(dyn.Process(), grid, dyn.Positive(), opts...)
	require.NoError(t, err)
	srt, err := lattice.NewShortRateTree(tree, dyn, curve, opts...)
	require.NoError(t, err)
	return srt
}
