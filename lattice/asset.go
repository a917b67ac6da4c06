package lattice

import (
	"fmt"
	"math"
)

// Asset is a claim whose values live on the nodes of one lattice slice.
type Asset interface {
	Time() float64
	// Values are the node values of the current slice. Callers must not
	// modify the returned slice.
	Values() []float64
	SetState(t float64, values []float64)
	// Reset sets the values of a freshly initialized asset on a slice of
	// the given size.
	Reset(l Lattice, size int) error
	// MandatoryTimes are the times a grid must contain to price the asset.
	MandatoryTimes() []float64
	// AdjustValues applies events (exercise, coupons) at the current time.
	AdjustValues(l Lattice) error
}

// Base carries the time and values of an asset. Embed it to implement Asset.
type Base struct {
	time       float64
	values     []float64
	adjusted   bool
	adjustedAt float64
}

func (b *Base) Time() float64 { return b.time }

func (b *Base) Values() []float64 { return b.values }

func (b *Base) SetState(t float64, values []float64) {
	b.time = t
	b.values = values
}

// OnTime reports whether the asset currently sits at time t.
func (b *Base) OnTime(t float64) bool { return sameTime(b.time, t) }

// FirstAdjustment reports whether values have not yet been adjusted at
// the current time, and marks them as adjusted.
func (b *Base) FirstAdjustment() bool {
	if b.adjusted && b.adjustedAt == b.time {
		return false
	}
	b.adjusted = true
	b.adjustedAt = b.time
	return true
}

// DiscountBond pays 1 at maturity. It must be initialized at its maturity.
type DiscountBond struct {
	Base
	maturity float64
}

// NewDiscountBond returns a zero-coupon bond maturing at maturity.
func NewDiscountBond(maturity float64) *DiscountBond {
	return &DiscountBond{maturity: maturity}
}

// Maturity returns the payment time.
func (b *DiscountBond) Maturity() float64 { return b.maturity }

func (b *DiscountBond) Reset(_ Lattice, size int) error {
	if !b.OnTime(b.maturity) {
		return fmt.Errorf("%w: discount bond maturing at %g initialized at %g", ErrRollback, b.maturity, b.Time())
	}
	values := make([]float64, size)
	for j := range values {
		values[j] = 1.0
	}
	b.SetState(b.Time(), values)
	return nil
}

func (b *DiscountBond) MandatoryTimes() []float64 { return []float64{b.maturity} }

func (b *DiscountBond) AdjustValues(Lattice) error { return nil }

// OptionType is the sign of an option payoff.
type OptionType int

const (
	Call OptionType = 1
	Put  OptionType = -1
)

func (o OptionType) String() string {
	if o == Put {
		return "Put"
	}
	return "Call"
}

// Exercise selects when an option may be exercised.
type Exercise int

const (
	// European exercise happens at expiry only.
	European Exercise = iota
	// American exercise is allowed at every grid time up to expiry.
	American
)

// BondOption is an option to buy (Call) or sell (Put) a discount bond at
// a strike price. It rolls back its own underlying bond alongside itself.
type BondOption struct {
	Base
	optionType OptionType
	strike     float64
	expiry     float64
	exercise   Exercise
	underlying *DiscountBond
}

// NewBondOption validates 0 <= expiry <= bondMaturity and strike > 0.
func NewBondOption(optionType OptionType, strike, expiry, bondMaturity float64, exercise Exercise) (*BondOption, error) {
	if optionType != Call && optionType != Put {
		return nil, fmt.Errorf("NewBondOption: unknown option type %d", optionType)
	}
	if !(strike > 0) {
		return nil, fmt.Errorf("NewBondOption: strike must be positive, got %g", strike)
	}
	if expiry < 0 || expiry > bondMaturity {
		return nil, fmt.Errorf("NewBondOption: expiry %g must lie in [0, %g]", expiry, bondMaturity)
	}
	return &BondOption{
		optionType: optionType,
		strike:     strike,
		expiry:     expiry,
		exercise:   exercise,
		underlying: NewDiscountBond(bondMaturity),
	}, nil
}

// Expiry returns the last exercise time.
func (o *BondOption) Expiry() float64 { return o.expiry }

func (o *BondOption) MandatoryTimes() []float64 {
	return []float64{o.expiry, o.underlying.maturity}
}

func (o *BondOption) Reset(l Lattice, size int) error {
	if err := l.Initialize(o.underlying, o.underlying.maturity); err != nil {
		return err
	}
	if err := l.PartialRollback(o.underlying, o.Time()); err != nil {
		return err
	}
	o.SetState(o.Time(), make([]float64, size))
	return o.AdjustValues(l)
}

func (o *BondOption) AdjustValues(l Lattice) error {
	if !o.FirstAdjustment() {
		return nil
	}
	if err := l.PartialRollback(o.underlying, o.Time()); err != nil {
		return err
	}
	if err := o.underlying.AdjustValues(l); err != nil {
		return err
	}
	if !o.exercisable() {
		return nil
	}
	bond := o.underlying.Values()
	sign := float64(o.optionType)
	for j := range o.values {
		o.values[j] = math.Max(o.values[j], sign*(bond[j]-o.strike))
	}
	return nil
}

func (o *BondOption) exercisable() bool {
	if o.exercise == American {
		return o.Time() <= o.expiry || o.OnTime(o.expiry)
	}
	return o.OnTime(o.expiry)
}
