package model

import (
	"fmt"
	"math"

	"github.com/meenmo/shortrate/lattice"
	"github.com/meenmo/shortrate/process"
	"github.com/meenmo/shortrate/termstructure"
	"github.com/meenmo/shortrate/timegrid"
)

// BlackKarasinski is d ln r = (theta(t) - a ln r) dt + sigma dW. On the tree
// r = exp(x + theta) with x an Ornstein-Uhlenbeck process around zero.
// It has no closed-form bond prices.
type BlackKarasinski struct {
	a, sigma float64
	curve    termstructure.Curve
	dynamics *blackKarasinskiDynamics
}

var _ Model = (*BlackKarasinski)(nil)

// NewBlackKarasinski fits a Black-Karasinski model with mean reversion a and
// volatility sigma of ln r to curve.
func NewBlackKarasinski(curve termstructure.Curve, a, sigma float64) (*BlackKarasinski, error) {
	if curve == nil {
		return nil, fmt.Errorf("NewBlackKarasinski: %w: nil curve", ErrInvalidParameter)
	}
	if err := checkPositive("a", a); err != nil {
		return nil, err
	}
	if err := checkPositive("sigma", sigma); err != nil {
		return nil, err
	}
	p, err := process.NewOrnsteinUhlenbeck(a, sigma, 0, 0)
	if err != nil {
		return nil, err
	}
	return &BlackKarasinski{a: a, sigma: sigma, curve: curve, dynamics: &blackKarasinskiDynamics{p: p}}, nil
}

// Name returns "BK".
func (m *BlackKarasinski) Name() string { return "BK" }

// Curve returns the term structure the model is fitted to.
func (m *BlackKarasinski) Curve() termstructure.Curve { return m.curve }

// Dynamics returns the lognormal tree dynamics.
func (m *BlackKarasinski) Dynamics() lattice.Dynamics { return m.dynamics }

// Tree builds a trinomial tree on grid and fits it to the curve slice by slice.
func (m *BlackKarasinski) Tree(grid *timegrid.Grid, opts ...lattice.Option) (*lattice.ShortRateTree, error) {
	return buildTree(m.dynamics, m.curve, grid, opts)
}

// Params returns [a, sigma].
func (m *BlackKarasinski) Params() []float64 { return []float64{m.a, m.sigma} }

// WithParams returns a new model on the same curve with params [a, sigma].
// The receiver is unchanged.
func (m *BlackKarasinski) WithParams(params []float64) (Model, error) {
	if err := checkLen("BK", params, 2); err != nil {
		return nil, err
	}
	return NewBlackKarasinski(m.curve, params[0], params[1])
}

// DiscountBond always fails with ErrNoClosedForm; price bonds on the tree.
func (m *BlackKarasinski) DiscountBond(float64, float64, float64) (float64, error) {
	return 0, fmt.Errorf("BlackKarasinski.DiscountBond: %w", ErrNoClosedForm)
}

// DiscountBondOption always fails with ErrNoClosedForm.
func (m *BlackKarasinski) DiscountBondOption(lattice.OptionType, float64, float64, float64) (float64, error) {
	return 0, fmt.Errorf("BlackKarasinski.DiscountBondOption: %w", ErrNoClosedForm)
}

type blackKarasinskiDynamics struct {
	p *process.OrnsteinUhlenbeck
}

func (d *blackKarasinskiDynamics) Process() process.Diffusion { return d.p }

func (d *blackKarasinskiDynamics) ShortRate(_, x, theta float64) float64 { return math.Exp(x + theta) }

func (d *blackKarasinskiDynamics) Variable(_, r, theta float64) float64 {
	if !(r > 0) {
		return math.NaN()
	}
	return math.Log(r) - theta
}

func (d *blackKarasinskiDynamics) Positive() bool { return false }

// Bracket is wide because theta shifts the log of the rate.
func (d *blackKarasinskiDynamics) Bracket() (float64, float64) { return -50, 50 }
