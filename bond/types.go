// Package bond prices fixed-coupon bonds, optionally callable by the
// issuer, by backward induction on a calibrated short-rate lattice.
package bond

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/meenmo/shortrate/utils"
)

// ErrInvalidBond is returned for malformed cashflows or call schedules.
var ErrInvalidBond = errors.New("bond: invalid bond")

// Cashflow is a single cash payment of a bond at curve time Time.
//
// Amounts are per unit notional (a 4% annual coupon pays 0.04).
type Cashflow struct {
	Time      float64
	Coupon    float64
	Principal float64
}

func (c Cashflow) Amount() float64 {
	return c.Coupon + c.Principal
}

// DatedCashflow is a Cashflow keyed by payment date.
type DatedCashflow struct {
	Date      time.Time
	Coupon    float64
	Principal float64
}

// FromDates converts dated cashflows paid after settlement into curve
// times. Cashflows on or before settlement are dropped.
func FromDates(settlement time.Time, dated []DatedCashflow, dayCount string) ([]Cashflow, error) {
	if settlement.IsZero() {
		return nil, fmt.Errorf("FromDates: %w: settlement date is required", ErrInvalidBond)
	}
	if err := utils.CheckDayCount(dayCount); err != nil {
		return nil, fmt.Errorf("FromDates: %w: %v", ErrInvalidBond, err)
	}
	out := make([]Cashflow, 0, len(dated))
	for _, cf := range dated {
		if !cf.Date.After(settlement) {
			continue
		}
		out = append(out, Cashflow{
			Time:      utils.YearFraction(settlement, cf.Date, dayCount),
			Coupon:    cf.Coupon,
			Principal: cf.Principal,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	return out, nil
}

// FixedCashflows returns the schedule of a bullet bond paying
// couponRate/frequency every 1/frequency years and its principal at maturity.
// A maturity that is not a whole number of periods gets a short first period.
func FixedCashflows(couponRate float64, frequency int, maturity float64) ([]Cashflow, error) {
	if frequency <= 0 || frequency > 12 {
		return nil, fmt.Errorf("FixedCashflows: %w: frequency must be in [1, 12], got %d", ErrInvalidBond, frequency)
	}
	if !(maturity > 0) || math.IsInf(maturity, 0) {
		return nil, fmt.Errorf("FixedCashflows: %w: maturity must be positive, got %g", ErrInvalidBond, maturity)
	}
	period := 1.0 / float64(frequency)
	coupon := couponRate / float64(frequency)

	var cfs []Cashflow
	for t := maturity; t > 1e-10; t -= period {
		cfs = append(cfs, Cashflow{Time: utils.RoundTo(t, 10), Coupon: coupon})
	}
	sort.Slice(cfs, func(i, j int) bool { return cfs[i].Time < cfs[j].Time })
	cfs[len(cfs)-1].Principal = 1.0
	return cfs, nil
}

func validateCashflows(cfs []Cashflow) error {
	if len(cfs) == 0 {
		return fmt.Errorf("%w: cashflows are required", ErrInvalidBond)
	}
	for i, cf := range cfs {
		if !(cf.Time > 0) || math.IsInf(cf.Time, 0) {
			return fmt.Errorf("%w: cashflow %d paid at %g, must be after time 0", ErrInvalidBond, i, cf.Time)
		}
		if math.IsNaN(cf.Amount()) || math.IsInf(cf.Amount(), 0) {
			return fmt.Errorf("%w: cashflow %d amount is not finite", ErrInvalidBond, i)
		}
	}
	return nil
}
