package lattice

import "github.com/meenmo/shortrate/process"

// Dynamics maps the tree state variable x to the short rate r given the
// slice shift theta. The shift is an explicit argument so the same value
// serves the calibration sweep (trial theta) and pricing (fitted theta).
type Dynamics interface {
	// Process is the diffusion followed by x. Its variance must not depend on x.
	Process() process.Diffusion
	ShortRate(t, x, theta float64) float64
	// Variable is the inverse of ShortRate in x. It returns NaN when r is
	// unreachable for the given theta.
	Variable(t, r, theta float64) float64
	// Positive forces every node of the tree to keep x > 0.
	Positive() bool
	// Bracket is the widest interval searched for theta.
	Bracket() (lo, hi float64)
}

// ClosedFormFitter is implemented by dynamics whose per-slice shift has an
// analytic solution. FitSlice returns theta such that
//
//	sum_j statePrices[j] * exp(-ShortRate(t, xs[j], theta) * dt) == discount
type ClosedFormFitter interface {
	FitSlice(t, dt, discount float64, statePrices, xs []float64) (float64, error)
}
