package bond

import (
	"fmt"
	"math"
)

// YieldResult is the output of YieldToMaturity.
type YieldResult struct {
	// Yield is the continuously compounded yield in decimal (e.g. 0.0283).
	Yield float64
	// Iterations is the number of Newton-Raphson steps taken.
	Iterations int
}

// YieldToMaturity solves for the continuously compounded yield y such that
// sum_k CF_k exp(-y t_k) equals the dirty price.
//
// The solver uses Newton-Raphson with analytic first derivative.
func YieldToMaturity(dirtyPrice float64, cfs []Cashflow) (YieldResult, error) {
	if err := validateCashflows(cfs); err != nil {
		return YieldResult{}, fmt.Errorf("YieldToMaturity: %w", err)
	}
	if !(dirtyPrice > 0) {
		return YieldResult{}, fmt.Errorf("YieldToMaturity: price must be positive, got %g", dirtyPrice)
	}
	y, iterations, err := solveYield(dirtyPrice, cfs)
	if err != nil {
		return YieldResult{}, err
	}
	return YieldResult{Yield: y, Iterations: iterations}, nil
}

// ---------------------------------------------------------------------------
// Newton-Raphson solver (unexported)
// ---------------------------------------------------------------------------

const (
	yieldTolerance = 1e-12
	yieldMaxIter   = 100
	yieldFloor     = -0.10
	yieldCeiling   = 1.00
)

// solveYield finds y such that dirtyPrice(y) == target via Newton-Raphson.
func solveYield(target float64, cfs []Cashflow) (float64, int, error) {
	y := 0.025

	for iter := 0; iter < yieldMaxIter; iter++ {
		price, dPdy := dirtyPriceAndDeriv(y, cfs)
		f := price - target

		if math.Abs(f) < yieldTolerance {
			return y, iter + 1, nil
		}
		if math.Abs(dPdy) < 1e-15 {
			return y, iter + 1, fmt.Errorf("YieldToMaturity: derivative too small at iter %d", iter)
		}

		y = clamp(y-f/dPdy, yieldFloor, yieldCeiling)
	}

	return y, yieldMaxIter, fmt.Errorf("YieldToMaturity: did not converge after %d iterations", yieldMaxIter)
}

// dirtyPriceAndDeriv returns (price, dPrice/dy) under continuous compounding.
//
//	price = Σ CF_k exp(−y t_k)
//	dP/dy = Σ −t_k CF_k exp(−y t_k)
func dirtyPriceAndDeriv(y float64, cfs []Cashflow) (float64, float64) {
	var price, deriv float64
	for _, cf := range cfs {
		pv := cf.Amount() * math.Exp(-y*cf.Time)
		price += pv
		deriv -= cf.Time * pv
	}
	return price, deriv
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
