package termstructure

import (
	"fmt"
	"math"
	"time"

	"github.com/meenmo/shortrate/utils"
)

// DiscountCurve interpolates discount factors log-linearly between pillars,
// i.e. forwards are piecewise flat. Outside the pillars the nearest pair is
// extrapolated the same way.
type DiscountCurve struct {
	times       []float64
	dfs         []float64
	dayCount    string
	extrapolate bool
}

// Option configures a DiscountCurve.
type Option func(*DiscountCurve)

// WithExtrapolation lets the curve report an unbounded MaxTime.
func WithExtrapolation() Option {
	return func(c *DiscountCurve) { c.extrapolate = true }
}

// NewDiscountCurve creates a curve from discount factor pillars. A pillar
// (0, 1) is prepended when the first time is positive.
func NewDiscountCurve(times, dfs []float64, dayCount string, opts ...Option) (*DiscountCurve, error) {
	if len(times) != len(dfs) {
		return nil, fmt.Errorf("%w: %d times but %d discount factors", ErrInvalidCurve, len(times), len(dfs))
	}
	if len(times) == 0 {
		return nil, fmt.Errorf("%w: no pillars", ErrInvalidCurve)
	}
	if err := utils.CheckDayCount(dayCount); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCurve, err)
	}

	c := &DiscountCurve{dayCount: dayCount}
	if times[0] != 0 {
		c.times = append(c.times, 0)
		c.dfs = append(c.dfs, 1)
	}
	c.times = append(c.times, times...)
	c.dfs = append(c.dfs, dfs...)

	if c.dfs[0] != 1 {
		return nil, fmt.Errorf("%w: discount factor at time 0 must be 1, got %g", ErrInvalidCurve, c.dfs[0])
	}
	if len(c.times) < 2 {
		return nil, fmt.Errorf("%w: at least one pillar after time 0 is required", ErrInvalidCurve)
	}
	for i := range c.times {
		t, df := c.times[i], c.dfs[i]
		if math.IsNaN(t) || math.IsInf(t, 0) || t < 0 {
			return nil, fmt.Errorf("%w: pillar %d has time %g", ErrInvalidCurve, i, t)
		}
		if i > 0 && !(t > c.times[i-1]) {
			return nil, fmt.Errorf("%w: pillar times must be strictly increasing (%g after %g)", ErrInvalidCurve, t, c.times[i-1])
		}
		if !(df > 0) || math.IsInf(df, 0) {
			return nil, fmt.Errorf("%w: pillar %d has discount factor %g", ErrInvalidCurve, i, df)
		}
	}

	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// NewZeroCurve creates a curve from continuously compounded zero rates.
func NewZeroCurve(times, zeroRates []float64, dayCount string, opts ...Option) (*DiscountCurve, error) {
	if len(times) != len(zeroRates) {
		return nil, fmt.Errorf("%w: %d times but %d zero rates", ErrInvalidCurve, len(times), len(zeroRates))
	}
	dfs := make([]float64, len(times))
	for i, t := range times {
		dfs[i] = math.Exp(-zeroRates[i] * t)
	}
	return NewDiscountCurve(times, dfs, dayCount, opts...)
}

// NewDatedDiscountCurve creates a curve from dated discount factors. Dates
// are converted to curve time from settlement with dayCount; a date equal to
// settlement must carry a discount factor of 1.
func NewDatedDiscountCurve(settlement time.Time, dfs map[time.Time]float64, dayCount string, opts ...Option) (*DiscountCurve, error) {
	dates := make([]time.Time, 0, len(dfs))
	for d := range dfs {
		if d.Before(settlement) {
			return nil, fmt.Errorf("%w: pillar %s precedes settlement %s", ErrInvalidCurve, d.Format("2006-01-02"), settlement.Format("2006-01-02"))
		}
		dates = append(dates, d)
	}
	utils.SortDates(dates)

	times := make([]float64, len(dates))
	values := make([]float64, len(dates))
	for i, d := range dates {
		times[i] = utils.YearFraction(settlement, d, dayCount)
		values[i] = dfs[d]
	}
	return NewDiscountCurve(times, values, dayCount, opts...)
}

func (c *DiscountCurve) Discount(t float64) float64 {
	i, exact := c.locate(t)
	if exact {
		return c.dfs[i]
	}
	i1, i2 := c.boundaryPair(i)
	t1, t2 := c.times[i1], c.times[i2]
	df1, df2 := c.dfs[i1], c.dfs[i2]
	forwardRate := math.Log(df1/df2) / (t2 - t1)
	return df1 * math.Exp(-forwardRate*(t-t1))
}

// Forward is right-continuous at pillars.
func (c *DiscountCurve) Forward(t float64) float64 {
	i, exact := c.locate(t)
	if exact {
		i++
	}
	i1, i2 := c.boundaryPair(i)
	return math.Log(c.dfs[i1]/c.dfs[i2]) / (c.times[i2] - c.times[i1])
}

func (c *DiscountCurve) MaxTime() float64 {
	if c.extrapolate {
		return math.Inf(1)
	}
	return c.times[len(c.times)-1]
}

func (c *DiscountCurve) DayCount() string { return c.dayCount }

// Pillars returns copies of the pillar times and discount factors.
func (c *DiscountCurve) Pillars() ([]float64, []float64) {
	return append([]float64(nil), c.times...), append([]float64(nil), c.dfs...)
}
