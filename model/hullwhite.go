package model

import (
	"fmt"
	"math"

	"github.com/meenmo/shortrate/lattice"
	"github.com/meenmo/shortrate/process"
	"github.com/meenmo/shortrate/termstructure"
	"github.com/meenmo/shortrate/timegrid"
)

// HullWhite is dr = (theta(t) - a r) dt + sigma dW. On the tree r = x + theta
// with x an Ornstein-Uhlenbeck process around zero.
type HullWhite struct {
	a, sigma float64
	curve    termstructure.Curve
	dynamics *hullWhiteDynamics
}

var _ Model = (*HullWhite)(nil)

// NewHullWhite fits a Hull-White model with mean reversion a and volatility sigma to curve.
func NewHullWhite(curve termstructure.Curve, a, sigma float64) (*HullWhite, error) {
	if curve == nil {
		return nil, fmt.Errorf("NewHullWhite: %w: nil curve", ErrInvalidParameter)
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
	return &HullWhite{a: a, sigma: sigma, curve: curve, dynamics: &hullWhiteDynamics{p: p}}, nil
}

// Name returns "HW".
func (m *HullWhite) Name() string { return "HW" }

// Speed is the mean reversion a.
func (m *HullWhite) Speed() float64 { return m.a }

// Sigma is the short-rate volatility.
func (m *HullWhite) Sigma() float64 { return m.sigma }

// Curve returns the term structure the model is fitted to.
func (m *HullWhite) Curve() termstructure.Curve { return m.curve }

// Dynamics returns the additive tree dynamics, which fit each slice in closed form.
func (m *HullWhite) Dynamics() lattice.Dynamics { return m.dynamics }

// Tree builds a trinomial tree on grid and fits it to the curve.
func (m *HullWhite) Tree(grid *timegrid.Grid, opts ...lattice.Option) (*lattice.ShortRateTree, error) {
	return buildTree(m.dynamics, m.curve, grid, opts)
}

// Params returns [a, sigma].
func (m *HullWhite) Params() []float64 { return []float64{m.a, m.sigma} }

// WithParams returns a new model on the same curve with params [a, sigma].
// The receiver is unchanged.
func (m *HullWhite) WithParams(params []float64) (Model, error) {
	if err := checkLen("HW", params, 2); err != nil {
		return nil, err
	}
	return NewHullWhite(m.curve, params[0], params[1])
}

// B is (1 - exp(-a (T - t))) / a.
func (m *HullWhite) B(t, T float64) float64 {
	return (1.0 - math.Exp(-m.a*(T-t))) / m.a
}

// A is the curve-fitted factor in P(t, T) = A(t, T) exp(-B(t, T) r(t)).
func (m *HullWhite) A(t, T float64) float64 {
	b := m.B(t, T)
	forward := m.curve.Forward(t)
	value := b*forward - 0.25*m.sigma*m.sigma*b*b*m.B(0, 2*t)
	return math.Exp(value) * m.curve.Discount(T) / m.curve.Discount(t)
}

// DiscountBond is P(now, maturity) given the short rate at now.
func (m *HullWhite) DiscountBond(now, maturity, rate float64) (float64, error) {
	if now < 0 || maturity < now {
		return 0, fmt.Errorf("HullWhite.DiscountBond: %w: need 0 <= now <= maturity, got %g, %g", ErrInvalidParameter, now, maturity)
	}
	return m.A(now, maturity) * math.Exp(-m.B(now, maturity)*rate), nil
}

// DiscountBondOption prices a European option expiring at expiry on the
// zero-coupon bond maturing at bondMaturity.
func (m *HullWhite) DiscountBondOption(optionType lattice.OptionType, strike, expiry, bondMaturity float64) (float64, error) {
	if expiry < 0 || bondMaturity < expiry {
		return 0, fmt.Errorf("HullWhite.DiscountBondOption: %w: need 0 <= expiry <= bond maturity, got %g, %g", ErrInvalidParameter, expiry, bondMaturity)
	}
	if !(strike > 0) {
		return 0, fmt.Errorf("HullWhite.DiscountBondOption: %w: strike must be positive, got %g", ErrInvalidParameter, strike)
	}
	stdDev := m.sigma * m.B(expiry, bondMaturity) * math.Sqrt(0.5*(1.0-math.Exp(-2.0*m.a*expiry))/m.a)
	forward := m.curve.Discount(bondMaturity)
	k := m.curve.Discount(expiry) * strike
	return blackFormula(optionType, k, forward, stdDev), nil
}

type hullWhiteDynamics struct {
	p *process.OrnsteinUhlenbeck
}

var _ lattice.ClosedFormFitter = (*hullWhiteDynamics)(nil)

func (d *hullWhiteDynamics) Process() process.Diffusion { return d.p }

func (d *hullWhiteDynamics) ShortRate(_, x, theta float64) float64 { return x + theta }

func (d *hullWhiteDynamics) Variable(_, r, theta float64) float64 { return r - theta }

func (d *hullWhiteDynamics) Positive() bool { return false }

func (d *hullWhiteDynamics) Bracket() (float64, float64) { return -1, 1 }

// FitSlice solves sum_j Q_j exp(-(x_j + theta) dt) = P for theta.
func (d *hullWhiteDynamics) FitSlice(_, dt, discount float64, statePrices, xs []float64) (float64, error) {
	var value float64
	for j, x := range xs {
		value += statePrices[j] * math.Exp(-x*dt)
	}
	if !(value > 0) || !(discount > 0) || !(dt > 0) {
		return 0, fmt.Errorf("hull-white slice fit: state value %g, discount %g, dt %g", value, discount, dt)
	}
	return math.Log(value/discount) / dt, nil
}
