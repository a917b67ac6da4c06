// Package model provides the one-factor short-rate models that plug into
// lattice.ShortRateTree: Hull-White, Black-Karasinski and an extended
// Cox-Ingersoll-Ross model. Each model is an immutable value; changing its
// parameters yields a new model, and trees are rebuilt from it.
package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/meenmo/shortrate/lattice"
	"github.com/meenmo/shortrate/termstructure"
	"github.com/meenmo/shortrate/timegrid"
)

var (
	// ErrNoClosedForm is returned when an analytic formula is requested from
	// a model that only prices on its tree.
	ErrNoClosedForm = errors.New("model: no closed-form formula")
	// ErrInvalidParameter is returned for out-of-range model parameters.
	ErrInvalidParameter = errors.New("model: invalid parameter")
	// ErrUnknownModel is returned by New for an unsupported model name.
	ErrUnknownModel = errors.New("model: unknown model")
)

// Model is a one-factor short-rate model fitted to a term structure.
type Model interface {
	Name() string
	Curve() termstructure.Curve
	Dynamics() lattice.Dynamics
	// Tree builds a calibrated short-rate tree on grid.
	Tree(grid *timegrid.Grid, opts ...lattice.Option) (*lattice.ShortRateTree, error)
	// Params returns the constant model parameters in declaration order.
	Params() []float64
	// WithParams returns a copy of the model with new constant parameters.
	WithParams(params []float64) (Model, error)
	// DiscountBond is P(now, maturity) given the short rate at now.
	DiscountBond(now, maturity, rate float64) (float64, error)
	// DiscountBondOption is the time-0 value of a European option on the
	// discount bond maturing at bondMaturity.
	DiscountBondOption(optionType lattice.OptionType, strike, expiry, bondMaturity float64) (float64, error)
}

// New builds a model by name: HW, BK or CIR. Parameters are ordered as in
// the respective constructor.
func New(name string, curve termstructure.Curve, params []float64) (Model, error) {
	switch strings.ToUpper(name) {
	case "HW", "HULLWHITE":
		if err := checkLen("HW", params, 2); err != nil {
			return nil, err
		}
		return NewHullWhite(curve, params[0], params[1])
	case "BK", "BLACKKARASINSKI":
		if err := checkLen("BK", params, 2); err != nil {
			return nil, err
		}
		return NewBlackKarasinski(curve, params[0], params[1])
	case "CIR", "EXTENDEDCIR":
		if err := checkLen("CIR", params, 4); err != nil {
			return nil, err
		}
		return NewExtendedCIR(curve, params[0], params[1], params[2], params[3])
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownModel, name)
	}
}

// GridFor returns a grid that contains every mandatory time of assets and
// has about steps intervals up to the last of them.
func GridFor(steps int, assets ...lattice.Asset) (*timegrid.Grid, error) {
	var times []float64
	for _, a := range assets {
		times = append(times, a.MandatoryTimes()...)
	}
	return timegrid.WithMandatory(times, steps)
}

func buildTree(dyn lattice.Dynamics, curve termstructure.Curve, grid *timegrid.Grid, opts []lattice.Option) (*lattice.ShortRateTree, error) {
	tree, err := lattice.NewTrinomialTree(dyn.Process(), grid, dyn.Positive(), opts...)
	if err != nil {
		return nil, err
	}
	return lattice.NewShortRateTree(tree, dyn, curve, opts...)
}

func checkLen(name string, params []float64, n int) error {
	if len(params) != n {
		return fmt.Errorf("%w: %s takes %d parameters, got %d", ErrInvalidParameter, name, n, len(params))
	}
	return nil
}

func checkPositive(name string, v float64) error {
	if !(v > 0) || v > 1e6 {
		return fmt.Errorf("%w: %s must be positive and finite, got %g", ErrInvalidParameter, name, v)
	}
	return nil
}
