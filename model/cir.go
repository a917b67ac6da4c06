package model

import (
	"fmt"
	"math"

	"github.com/meenmo/shortrate/lattice"
	"github.com/meenmo/shortrate/process"
	"github.com/meenmo/shortrate/termstructure"
	"github.com/meenmo/shortrate/timegrid"
)

// ExtendedCIR is a Cox-Ingersoll-Ross process dy = k (theta - y) dt +
// sigma sqrt(y) dW shifted by a deterministic function: r = y + phi(t).
// The tree discretizes sqrt(y), keeping every node positive.
type ExtendedCIR struct {
	k, theta, sigma, r0 float64
	curve               termstructure.Curve
	dynamics            *cirDynamics
}

var _ Model = (*ExtendedCIR)(nil)

// NewExtendedCIR takes speed k, long-run mean theta, volatility sigma and
// the initial value r0 of the CIR factor.
func NewExtendedCIR(curve termstructure.Curve, k, theta, sigma, r0 float64) (*ExtendedCIR, error) {
	if curve == nil {
		return nil, fmt.Errorf("NewExtendedCIR: %w: nil curve", ErrInvalidParameter)
	}
	for _, p := range []struct {
		name  string
		value float64
	}{{"k", k}, {"theta", theta}, {"sigma", sigma}, {"r0", r0}} {
		if err := checkPositive(p.name, p.value); err != nil {
			return nil, err
		}
	}
	p, err := process.NewSquareRoot(k, theta, sigma, r0)
	if err != nil {
		return nil, err
	}
	return &ExtendedCIR{k: k, theta: theta, sigma: sigma, r0: r0, curve: curve, dynamics: &cirDynamics{p: p}}, nil
}

// Name returns "CIR".
func (m *ExtendedCIR) Name() string { return "CIR" }

// Curve returns the term structure the model is fitted to.
func (m *ExtendedCIR) Curve() termstructure.Curve { return m.curve }

// Dynamics returns the tree dynamics r = y^2 + phi on a positive tree.
func (m *ExtendedCIR) Dynamics() lattice.Dynamics { return m.dynamics }

// Tree builds a trinomial tree on grid and fits it to the curve slice by slice.
func (m *ExtendedCIR) Tree(grid *timegrid.Grid, opts ...lattice.Option) (*lattice.ShortRateTree, error) {
	return buildTree(m.dynamics, m.curve, grid, opts)
}

// Params returns [k, theta, sigma, r0].
func (m *ExtendedCIR) Params() []float64 { return []float64{m.k, m.theta, m.sigma, m.r0} }

// WithParams returns a new model on the same curve with params [k, theta, sigma, r0].
// The receiver is unchanged.
func (m *ExtendedCIR) WithParams(params []float64) (Model, error) {
	if err := checkLen("CIR", params, 4); err != nil {
		return nil, err
	}
	return NewExtendedCIR(m.curve, params[0], params[1], params[2], params[3])
}

// DiscountBond always fails with ErrNoClosedForm; price bonds on the tree.
func (m *ExtendedCIR) DiscountBond(float64, float64, float64) (float64, error) {
	return 0, fmt.Errorf("ExtendedCIR.DiscountBond: %w", ErrNoClosedForm)
}

// DiscountBondOption always fails with ErrNoClosedForm.
func (m *ExtendedCIR) DiscountBondOption(lattice.OptionType, float64, float64, float64) (float64, error) {
	return 0, fmt.Errorf("ExtendedCIR.DiscountBondOption: %w", ErrNoClosedForm)
}

type cirDynamics struct {
	p *process.SquareRoot
}

func (d *cirDynamics) Process() process.Diffusion { return d.p }

func (d *cirDynamics) ShortRate(_, y, phi float64) float64 { return y*y + phi }

func (d *cirDynamics) Variable(_, r, phi float64) float64 {
	if r < phi {
		return math.NaN()
	}
	return math.Sqrt(r - phi)
}

func (d *cirDynamics) Positive() bool { return true }

func (d *cirDynamics) Bracket() (float64, float64) { return -1, 1 }
