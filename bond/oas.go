package bond

import (
	"fmt"

	"github.com/meenmo/shortrate/lattice"
	"github.com/meenmo/shortrate/solver"
)

// OASInput holds a calibrated tree, a bond and its market dirty price.
type OASInput struct {
	Tree       *lattice.ShortRateTree
	Bond       *CouponBond
	DirtyPrice float64
}

// OASResult is the output of ComputeOAS.
type OASResult struct {
	// SpreadBP is the option-adjusted spread in basis points.
	SpreadBP float64
	// ModelPrice is the tree price at zero spread.
	ModelPrice float64
	// OptionValue is the bullet bond price minus the callable price, both
	// at zero spread. Zero for a bullet bond.
	OptionValue float64
	// PV01 is the price change for a one basis point increase of the spread.
	PV01        float64
	Evaluations int
}

const (
	oasAccuracy = 1e-10
	oasMaxEvals = 200
)

// ComputeOAS finds the constant spread s over every short rate of the
// tree such that the bond's tree price equals the dirty price.
func ComputeOAS(in OASInput) (OASResult, error) {
	if in.Tree == nil || in.Bond == nil {
		return OASResult{}, fmt.Errorf("ComputeOAS: %w: tree and bond are required", ErrInvalidBond)
	}
	if !(in.DirtyPrice > 0) {
		return OASResult{}, fmt.Errorf("ComputeOAS: dirty price must be positive, got %g", in.DirtyPrice)
	}

	priceAt := func(spread float64) (float64, error) {
		tree, err := in.Tree.WithSpread(spread)
		if err != nil {
			return 0, err
		}
		return Price(tree, in.Bond)
	}

	modelPrice, err := priceAt(0)
	if err != nil {
		return OASResult{}, fmt.Errorf("ComputeOAS: %w", err)
	}
	optionValue := 0.0
	if in.Bond.Callable() {
		bullet, err := Price(in.Tree, in.Bond.Bullet())
		if err != nil {
			return OASResult{}, fmt.Errorf("ComputeOAS: %w", err)
		}
		optionValue = bullet - modelPrice
	}

	var pricingErr error
	objective := func(spread float64) float64 {
		p, err := priceAt(spread)
		if err != nil && pricingErr == nil {
			pricingErr = err
		}
		return p - in.DirtyPrice
	}
	brent := solver.Brent{MaxEvaluations: oasMaxEvals}
	res, err := brent.SolveStep(objective, oasAccuracy, 0, 0.001)
	if pricingErr != nil {
		return OASResult{}, fmt.Errorf("ComputeOAS: %w", pricingErr)
	}
	if err != nil {
		return OASResult{}, fmt.Errorf("ComputeOAS: %w", err)
	}

	up, err := priceAt(res.Root + 1e-4)
	if err != nil {
		return OASResult{}, fmt.Errorf("ComputeOAS: %w", err)
	}
	return OASResult{
		SpreadBP:    res.Root * 1e4,
		ModelPrice:  modelPrice,
		OptionValue: optionValue,
		PV01:        in.DirtyPrice - up,
		Evaluations: res.Evaluations,
	}, nil
}
