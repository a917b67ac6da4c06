package termstructure

import (
	"fmt"
	"math"
	"sort"
)

const (
	bootstrapTolerance = 1e-12
	bootstrapMaxIter   = 50
)

// BootstrapParSwaps builds a discount curve from par swap rates quoted in
// decimal at the given tenors (in years). Fixed legs pay rate/frequency on
// a regular schedule rolled backward from each tenor; a pillar is solved
// per tenor so that the fixed leg plus the final discount factor is worth
// par. Coupons falling between two pillars are interpolated log-linearly.
func BootstrapParSwaps(tenors, parRates []float64, frequency int, dayCount string, opts ...Option) (*DiscountCurve, error) {
	if len(tenors) != len(parRates) || len(tenors) == 0 {
		return nil, fmt.Errorf("%w: %d tenors but %d par rates", ErrInvalidCurve, len(tenors), len(parRates))
	}
	if frequency <= 0 || frequency > 12 {
		return nil, fmt.Errorf("%w: frequency must be in [1, 12], got %d", ErrInvalidCurve, frequency)
	}
	idx := make([]int, len(tenors))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return tenors[idx[a]] < tenors[idx[b]] })

	period := 1.0 / float64(frequency)
	pillars := []float64{0}
	dfs := []float64{1}
	for _, k := range idx {
		maturity, rate := tenors[k], parRates[k]
		if !(maturity > pillars[len(pillars)-1]) || math.IsInf(maturity, 0) {
			return nil, fmt.Errorf("%w: tenors must be positive and distinct, got %g", ErrInvalidCurve, maturity)
		}
		df, err := solvePillar(pillars, dfs, fixedSchedule(maturity, period), rate)
		if err != nil {
			return nil, fmt.Errorf("%w: tenor %g: %v", ErrInvalidCurve, maturity, err)
		}
		pillars = append(pillars, maturity)
		dfs = append(dfs, df)
	}
	return NewDiscountCurve(pillars[1:], dfs[1:], dayCount, opts...)
}

type fixedCoupon struct {
	payment float64
	accrual float64
}

// fixedSchedule rolls backward from maturity; the first period may be short.
func fixedSchedule(maturity, period float64) []fixedCoupon {
	var ends []float64
	for t := maturity; t > 1e-10; t -= period {
		ends = append(ends, t)
	}
	sort.Float64s(ends)
	coupons := make([]fixedCoupon, len(ends))
	start := 0.0
	for i, end := range ends {
		coupons[i] = fixedCoupon{payment: end, accrual: end - start}
		start = end
	}
	return coupons
}

// solvePillar finds D(maturity) such that
//
//	sum_k rate * alpha_k * D(t_k) + D(maturity) = 1
//
// via Newton-Raphson, starting from the previous pillar.
func solvePillar(pillars, dfs []float64, coupons []fixedCoupon, rate float64) (float64, error) {
	last := len(pillars) - 1
	prevTime, prevDF := pillars[last], dfs[last]
	maturity := coupons[len(coupons)-1].payment

	x := prevDF
	for iter := 0; iter < bootstrapMaxIter; iter++ {
		pv, deriv := 0.0, 0.0
		for _, cpn := range coupons {
			var d, dPrime float64
			if cpn.payment <= prevTime {
				d = knownDF(pillars, dfs, cpn.payment)
			} else {
				ratio := (cpn.payment - prevTime) / (maturity - prevTime)
				d = math.Pow(prevDF, 1-ratio) * math.Pow(x, ratio)
				dPrime = ratio * d / x
			}
			pv += rate * cpn.accrual * d
			deriv += rate * cpn.accrual * dPrime
		}

		f := pv + x - 1.0
		if math.Abs(f) < bootstrapTolerance {
			return x, nil
		}
		fPrime := deriv + 1.0
		if math.Abs(fPrime) < 1e-15 {
			break
		}
		x -= f / fPrime
		if x <= 1e-9 {
			x = 1e-9
		}
	}
	return 0, fmt.Errorf("par rate %g: bootstrap did not converge", rate)
}

// knownDF interpolates log-linearly between solved pillars.
func knownDF(pillars, dfs []float64, t float64) float64 {
	i := sort.SearchFloat64s(pillars, t)
	if i < len(pillars) && pillars[i] == t {
		return dfs[i]
	}
	if i == 0 {
		return dfs[0]
	}
	t1, t2 := pillars[i-1], pillars[i]
	forward := math.Log(dfs[i-1]/dfs[i]) / (t2 - t1)
	return dfs[i-1] * math.Exp(-forward*(t-t1))
}
