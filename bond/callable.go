package bond

import (
	"fmt"
	"math"
	"sort"

	"github.com/meenmo/shortrate/lattice"
)

// CouponBond is a lattice asset paying fixed cashflows. When call times
// are set, the issuer may redeem the bond at CallPrice on each of them,
// after the cashflows due at that time have been paid.
type CouponBond struct {
	lattice.Base
	cashflows []Cashflow
	callTimes []float64
	callPrice float64
}

// NewCouponBond copies and sorts cashflows. callTimes may be empty for a
// bullet bond.
func NewCouponBond(cashflows []Cashflow, callTimes []float64, callPrice float64) (*CouponBond, error) {
	if err := validateCashflows(cashflows); err != nil {
		return nil, fmt.Errorf("NewCouponBond: %w", err)
	}
	cfs := append([]Cashflow(nil), cashflows...)
	sort.SliceStable(cfs, func(i, j int) bool { return cfs[i].Time < cfs[j].Time })

	calls := append([]float64(nil), callTimes...)
	sort.Float64s(calls)
	if len(calls) > 0 {
		if !(callPrice > 0) || math.IsInf(callPrice, 0) {
			return nil, fmt.Errorf("NewCouponBond: %w: call price must be positive, got %g", ErrInvalidBond, callPrice)
		}
		maturity := cfs[len(cfs)-1].Time
		if calls[0] <= 0 || calls[len(calls)-1] > maturity {
			return nil, fmt.Errorf("NewCouponBond: %w: call times must lie in (0, %g]", ErrInvalidBond, maturity)
		}
	}
	return &CouponBond{cashflows: cfs, callTimes: calls, callPrice: callPrice}, nil
}

// Maturity is the time of the last cashflow.
func (b *CouponBond) Maturity() float64 { return b.cashflows[len(b.cashflows)-1].Time }

// Cashflows returns a copy of the sorted cashflows.
func (b *CouponBond) Cashflows() []Cashflow { return append([]Cashflow(nil), b.cashflows...) }

// Callable reports whether the bond has a call schedule.
func (b *CouponBond) Callable() bool { return len(b.callTimes) > 0 }

// Bullet returns the same cashflows without the call schedule.
func (b *CouponBond) Bullet() *CouponBond {
	return &CouponBond{cashflows: b.cashflows}
}

func (b *CouponBond) fresh() *CouponBond {
	return &CouponBond{cashflows: b.cashflows, callTimes: b.callTimes, callPrice: b.callPrice}
}

func (b *CouponBond) MandatoryTimes() []float64 {
	times := make([]float64, 0, len(b.cashflows)+len(b.callTimes))
	for _, cf := range b.cashflows {
		times = append(times, cf.Time)
	}
	return append(times, b.callTimes...)
}

func (b *CouponBond) Reset(l lattice.Lattice, size int) error {
	b.SetState(b.Time(), make([]float64, size))
	return b.AdjustValues(l)
}

func (b *CouponBond) AdjustValues(lattice.Lattice) error {
	if !b.FirstAdjustment() {
		return nil
	}
	values := b.Values()
	for _, call := range b.callTimes {
		if b.OnTime(call) {
			for j := range values {
				values[j] = math.Min(values[j], b.callPrice)
			}
			break
		}
	}
	for _, cf := range b.cashflows {
		if b.OnTime(cf.Time) {
			for j := range values {
				values[j] += cf.Amount()
			}
		}
	}
	return nil
}

// Price rolls a fresh copy of b back from its maturity and returns its
// time-0 dirty price per unit notional. Cashflows paid at time 0 are excluded.
func Price(l lattice.Lattice, b *CouponBond) (float64, error) {
	if l == nil || b == nil {
		return 0, fmt.Errorf("Price: %w: lattice and bond are required", ErrInvalidBond)
	}
	if end := l.TimeGrid().Back(); b.Maturity() > end*(1+1e-12) {
		return 0, fmt.Errorf("Price: %w: bond matures at %g after the lattice ends at %g", ErrInvalidBond, b.Maturity(), end)
	}
	return lattice.Price(l, b.fresh(), b.Maturity())
}
