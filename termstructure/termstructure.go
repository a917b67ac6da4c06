// Package termstructure provides the market discount curves a short-rate
// lattice is fitted to. Times are year fractions from the curve's reference
// date; curves are immutable and safe to share between goroutines.
package termstructure

import (
	"errors"
	"fmt"
	"math"

	"github.com/meenmo/shortrate/utils"
)

var (
	// ErrInvalidCurve is returned for malformed pillars.
	ErrInvalidCurve = errors.New("termstructure: invalid curve")
)

// Curve provides discount factors and forward rates for valuation.
type Curve interface {
	// Discount returns the discount factor P(0, t).
	Discount(t float64) float64
	// Forward returns the instantaneous continuously compounded forward rate at t.
	Forward(t float64) float64
	// MaxTime is the latest time the curve can be queried at.
	MaxTime() float64
	// DayCount is the convention used to turn dates into curve time.
	DayCount() string
}

// ZeroRate returns the continuously compounded zero rate to t. At t = 0 it
// returns the instantaneous forward rate.
func ZeroRate(c Curve, t float64) float64 {
	if t <= 0 {
		return c.Forward(0)
	}
	return -math.Log(c.Discount(t)) / t
}

// ForwardRate returns the continuously compounded forward rate over [t1, t2].
func ForwardRate(c Curve, t1, t2 float64) float64 {
	if t2 <= t1 {
		return c.Forward(t1)
	}
	return math.Log(c.Discount(t1)/c.Discount(t2)) / (t2 - t1)
}

// FlatForward is a curve with a constant continuously compounded rate.
type FlatForward struct {
	rate     float64
	dayCount string
}

// NewFlatForward returns a flat curve at rate.
func NewFlatForward(rate float64, dayCount string) (*FlatForward, error) {
	if math.IsNaN(rate) || math.IsInf(rate, 0) {
		return nil, fmt.Errorf("%w: rate must be finite, got %g", ErrInvalidCurve, rate)
	}
	if err := utils.CheckDayCount(dayCount); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCurve, err)
	}
	return &FlatForward{rate: rate, dayCount: dayCount}, nil
}

func (c *FlatForward) Discount(t float64) float64 { return math.Exp(-c.rate * t) }

func (c *FlatForward) Forward(float64) float64 { return c.rate }

func (c *FlatForward) MaxTime() float64 { return math.Inf(1) }

func (c *FlatForward) DayCount() string { return c.dayCount }

// Rate returns the flat rate.
func (c *FlatForward) Rate() float64 { return c.rate }

type shifted struct {
	base   Curve
	spread float64
}

// Shifted returns base with every zero rate moved by spread (continuous
// compounding). The base curve is only read.
func Shifted(base Curve, spread float64) Curve {
	return &shifted{base: base, spread: spread}
}

func (c *shifted) Discount(t float64) float64 {
	return c.base.Discount(t) * math.Exp(-c.spread*t)
}

func (c *shifted) Forward(t float64) float64 { return c.base.Forward(t) + c.spread }

func (c *shifted) MaxTime() float64 { return c.base.MaxTime() }

func (c *shifted) DayCount() string { return c.base.DayCount() }
