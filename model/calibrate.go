package model

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"

	"github.com/meenmo/shortrate/lattice"
)

// Helper is a market instrument a model is calibrated to.
type Helper interface {
	MarketPrice() float64
	ModelPrice(m Model) (float64, error)
}

// BondOptionHelper is a European option on a discount bond quoted at Price.
type BondOptionHelper struct {
	Type     lattice.OptionType
	Strike   float64
	Expiry   float64
	Maturity float64
	Price    float64
	// Steps is the tree size used when the model has no closed form.
	Steps int
}

func (h BondOptionHelper) MarketPrice() float64 { return h.Price }

// ModelPrice uses the analytic formula when m has one and the tree otherwise.
func (h BondOptionHelper) ModelPrice(m Model) (float64, error) {
	price, err := m.DiscountBondOption(h.Type, h.Strike, h.Expiry, h.Maturity)
	if err == nil || !errors.Is(err, ErrNoClosedForm) {
		return price, err
	}

	option, err := lattice.NewBondOption(h.Type, h.Strike, h.Expiry, h.Maturity, lattice.European)
	if err != nil {
		return 0, err
	}
	steps := h.Steps
	if steps <= 0 {
		steps = 100
	}
	grid, err := GridFor(steps, option)
	if err != nil {
		return 0, err
	}
	tree, err := m.Tree(grid)
	if err != nil {
		return 0, err
	}
	return lattice.Price(tree, option, h.Expiry)
}

// CalibrationOptions bound the Nelder-Mead search. Zero values use gonum defaults.
type CalibrationOptions struct {
	MaxIterations   int
	FuncEvaluations int
	// Tolerance is the absolute loss improvement below which the search stops.
	Tolerance float64
}

// CalibrationResult describes the outcome of Calibrate.
type CalibrationResult struct {
	Params      []float64
	Loss        float64
	Evaluations int
	Iterations  int
	Status      string
}

// failedPricing is the loss of a parameter set the model cannot price with.
const failedPricing = 1e10

// Calibrate fits the constant parameters of m to helpers by minimizing the
// mean squared relative pricing error. Parameters are searched in log
// space, so all of them stay positive.
func Calibrate(m Model, helpers []Helper, opts CalibrationOptions) (Model, CalibrationResult, error) {
	if m == nil || len(helpers) == 0 {
		return nil, CalibrationResult{}, fmt.Errorf("Calibrate: %w: need a model and at least one helper", ErrInvalidParameter)
	}
	for i, h := range helpers {
		if !(h.MarketPrice() > 0) {
			return nil, CalibrationResult{}, fmt.Errorf("Calibrate: %w: helper %d has market price %g", ErrInvalidParameter, i, h.MarketPrice())
		}
	}

	initial := m.Params()
	x0 := make([]float64, len(initial))
	for i, p := range initial {
		x0[i] = math.Log(p)
	}

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			return loss(m, x, helpers)
		},
	}
	settings := &optimize.Settings{
		MajorIterations: opts.MaxIterations,
		FuncEvaluations: opts.FuncEvaluations,
	}
	if opts.Tolerance > 0 {
		settings.Converger = &optimize.FunctionConverge{Absolute: opts.Tolerance, Iterations: 50}
	}

	res, err := optimize.Minimize(problem, x0, settings, &optimize.NelderMead{})
	if err != nil {
		return nil, CalibrationResult{}, fmt.Errorf("Calibrate: %w", err)
	}

	params := make([]float64, len(res.X))
	for i, x := range res.X {
		params[i] = math.Exp(x)
	}
	fitted, err := m.WithParams(params)
	if err != nil {
		return nil, CalibrationResult{}, fmt.Errorf("Calibrate: %w", err)
	}
	result := CalibrationResult{
		Params:      params,
		Loss:        res.F,
		Evaluations: res.Stats.FuncEvaluations,
		Iterations:  res.Stats.MajorIterations,
		Status:      res.Status.String(),
	}
	logger.Debug().
		Str("model", m.Name()).
		Floats64("params", params).
		Float64("loss", res.F).
		Int("evaluations", result.Evaluations).
		Str("status", result.Status).
		Msg("calibration finished")
	return fitted, result, nil
}

func loss(m Model, x []float64, helpers []Helper) float64 {
	params := make([]float64, len(x))
	for i := range x {
		params[i] = math.Exp(x[i])
	}
	candidate, err := m.WithParams(params)
	if err != nil {
		return failedPricing
	}
	var total float64
	for _, h := range helpers {
		price, err := h.ModelPrice(candidate)
		if err != nil || math.IsNaN(price) {
			return failedPricing
		}
		rel := price/h.MarketPrice() - 1
		total += rel * rel
	}
	return total / float64(len(helpers))
}
