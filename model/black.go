package model

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/meenmo/shortrate/lattice"
)

// blackFormula prices an option on a forward with total standard
// deviation stdDev. The result is undiscounted.
func blackFormula(optionType lattice.OptionType, strike, forward, stdDev float64) float64 {
	sign := float64(optionType)
	if stdDev == 0 {
		return math.Max(sign*(forward-strike), 0)
	}
	d1 := math.Log(forward/strike)/stdDev + 0.5*stdDev
	d2 := d1 - stdDev
	n := distuv.UnitNormal
	return sign * (forward*n.CDF(sign*d1) - strike*n.CDF(sign*d2))
}
