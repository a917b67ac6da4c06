package lattice

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/meenmo/shortrate/config"
	"github.com/meenmo/shortrate/solver"
	"github.com/meenmo/shortrate/termstructure"
	"github.com/meenmo/shortrate/timegrid"
)

// Warning records a slice whose fit succeeded but looks suspicious.
type Warning struct {
	Slice   int
	Time    float64
	Message string
}

// ShortRateTree is a trinomial tree whose slice shifts have been fitted so
// that it reprices the market discount curve on every grid time.
type ShortRateTree struct {
	tree     *TrinomialTree
	dynamics Dynamics
	grid     *timegrid.Grid
	theta    *FittingParameter

	rates       [][]float64 // short rate per node, slices 0..N-1
	discounts   [][]float64 // one-step discount factor per node, slices 0..N-1
	statePrices [][]float64 // Arrow-Debreu prices, slices 0..N
	spread      float64

	targets   []float64 // market discount factor of t_{i+1}
	repricing []float64
	warnings  []Warning
}

// NewShortRateTree fits dyn's shift slice by slice so the tree reprices
// curve. The whole build fails on the first slice that cannot be fitted.
func NewShortRateTree(tree *TrinomialTree, dyn Dynamics, curve termstructure.Curve, opts ...Option) (*ShortRateTree, error) {
	if tree == nil || dyn == nil || curve == nil {
		return nil, fmt.Errorf("NewShortRateTree: %w", ErrNilInput)
	}
	cfg, err := resolve(opts)
	if err != nil {
		return nil, fmt.Errorf("NewShortRateTree: %w", err)
	}
	grid := tree.TimeGrid()
	if end := grid.Back(); end > curve.MaxTime()*(1+1e-12) {
		return nil, fmt.Errorf("NewShortRateTree: %w: grid ends at %g, curve at %g", ErrCurveTooShort, end, curve.MaxTime())
	}

	steps := grid.Steps()
	srt := &ShortRateTree{
		tree:        tree,
		dynamics:    dyn,
		grid:        grid,
		theta:       newFittingParameter(steps),
		rates:       make([][]float64, steps),
		discounts:   make([][]float64, steps),
		statePrices: make([][]float64, steps+1),
		targets:     make([]float64, steps),
		repricing:   make([]float64, steps),
	}
	srt.statePrices[0] = []float64{1.0}

	f := fitter{cfg: cfg, dyn: dyn}
	if cf, ok := dyn.(ClosedFormFitter); ok && cfg.UseClosedForm {
		f.closedForm = cf
	}

	for i := 0; i < steps; i++ {
		t := grid.At(i)
		dt := grid.Dt(i)
		q := srt.statePrices[i]
		xs := tree.Underlyings(i)
		target := curve.Discount(grid.At(i + 1))

		theta, evals, warn, err := f.fit(i, t, dt, target, q, xs)
		if err != nil {
			return nil, err
		}
		if warn != "" {
			srt.warnings = append(srt.warnings, Warning{Slice: i, Time: t, Message: warn})
		}
		srt.theta.set(t, theta)

		rates := make([]float64, len(xs))
		discounts := make([]float64, len(xs))
		for j, x := range xs {
			rates[j] = dyn.ShortRate(t, x, theta)
			discounts[j] = math.Exp(-rates[j] * dt)
		}
		srt.rates[i] = rates
		srt.discounts[i] = discounts
		srt.statePrices[i+1] = tree.forwardInduction(i, q, discounts)
		srt.targets[i] = target
		srt.repricing[i] = floats.Sum(srt.statePrices[i+1]) - target

		logger.Debug().
			Int("slice", i).
			Float64("t", t).
			Int("nodes", len(xs)).
			Float64("theta", theta).
			Int("evaluations", evals).
			Float64("repricing_error", srt.repricing[i]).
			Msg("slice fitted")
	}
	return srt, nil
}

// forwardInduction propagates state prices q of slice i through the
// one-step discounts to slice i+1.
func (t *TrinomialTree) forwardInduction(i int, q, discounts []float64) []float64 {
	next := make([]float64, t.Size(i+1))
	for j := range q {
		value := q[j] * discounts[j]
		for branch := 0; branch < 3; branch++ {
			next[t.Descendant(i, j, branch)] += value * t.Probability(i, j, branch)
		}
	}
	return next
}

type fitter struct {
	cfg        config.Config
	dyn        Dynamics
	closedForm ClosedFormFitter
	previous   float64
	fitted     bool
}

func (f *fitter) fit(i int, t, dt, target float64, q, xs []float64) (float64, int, string, error) {
	if f.closedForm != nil {
		theta, err := f.closedForm.FitSlice(t, dt, target, q, xs)
		if err != nil {
			return 0, 0, "", &CalibrationError{Slice: i, Time: t, Err: err}
		}
		f.remember(theta)
		return theta, 0, "", nil
	}

	objective := func(theta float64) float64 {
		value := target
		for j, x := range xs {
			value -= q[j] * math.Exp(-f.dyn.ShortRate(t, x, theta)*dt)
		}
		return value
	}

	lo, hi := f.dyn.Bracket()
	guess := 0.5 * (lo + hi)
	if f.fitted {
		if f.cfg.RecenterBracket {
			lo = math.Max(lo, f.previous-f.cfg.RecenterWidth)
			hi = math.Min(hi, f.previous+f.cfg.RecenterWidth)
		}
		guess = math.Min(math.Max(f.previous, lo), hi)
	}

	brent := solver.Brent{MaxEvaluations: f.cfg.MaxEvaluations}
	res, err := brent.Solve(objective, f.cfg.Accuracy, guess, lo, hi)
	if err != nil {
		return 0, res.Evaluations, "", &CalibrationError{Slice: i, Time: t, Evaluations: res.Evaluations, Err: err}
	}

	var warn string
	if f.cfg.MonotonicitySamples > 0 {
		if at, ok := reversalAt(objective, lo, hi, f.cfg.MonotonicitySamples); ok {
			if f.cfg.StrictMonotonicity {
				return 0, res.Evaluations, "", &CalibrationError{
					Slice: i, Time: t, Evaluations: res.Evaluations,
					Err: fmt.Errorf("%w: objective reverses near theta=%g", ErrNonMonotonicObjective, at),
				}
			}
			warn = fmt.Sprintf("objective reverses near theta=%g; root %g may be spurious", at, res.Root)
			logger.Warn().Int("slice", i).Float64("t", t).Float64("theta", res.Root).Float64("near", at).
				Msg("non-monotonic calibration objective")
		}
	}

	f.remember(res.Root)
	return res.Root, res.Evaluations, warn, nil
}

func (f *fitter) remember(theta float64) {
	f.previous = theta
	f.fitted = true
}

// reversalAt samples the objective on [lo, hi] and reports the first
// sample after which it moves against the direction set by its endpoints.
// Plateaus where the discount factors underflow or saturate are allowed.
func reversalAt(objective func(float64) float64, lo, hi float64, samples int) (float64, bool) {
	step := (hi - lo) / float64(samples-1)
	prev := objective(lo)
	direction := math.Copysign(1, objective(hi)-prev)
	for k := 1; k < samples; k++ {
		x := lo + float64(k)*step
		cur := objective(x)
		if direction*(prev-cur) > 1e-12*math.Max(1, math.Abs(prev)) {
			return x - step, true
		}
		prev = cur
	}
	return 0, false
}

// TimeGrid returns the grid of the tree.
func (t *ShortRateTree) TimeGrid() *timegrid.Grid { return t.grid }

// Tree returns the underlying trinomial tree.
func (t *ShortRateTree) Tree() *TrinomialTree { return t.tree }

// Dynamics returns the short-rate dynamics the tree was fitted with.
func (t *ShortRateTree) Dynamics() Dynamics { return t.dynamics }

// Theta returns the fitted shifts.
func (t *ShortRateTree) Theta() *FittingParameter { return t.theta }

// Spread returns the constant spread added to every short rate.
func (t *ShortRateTree) Spread() float64 { return t.spread }

// Size returns the number of nodes of slice i.
func (t *ShortRateTree) Size(i int) int { return t.tree.Size(i) }

// Underlying returns the state variable at node index of slice i.
func (t *ShortRateTree) Underlying(i, index int) float64 { return t.tree.Underlying(i, index) }

// ShortRate returns the fitted short rate at node index of slice i,
// excluding any spread. Slice i must be below the last slice.
func (t *ShortRateTree) ShortRate(i, index int) float64 { return t.rates[i][index] }

// Discount returns the one-step discount factor at node index of slice i.
func (t *ShortRateTree) Discount(i, index int) float64 { return t.discounts[i][index] }

// StatePrices returns a copy of the Arrow-Debreu prices of slice i.
func (t *ShortRateTree) StatePrices(i int) []float64 {
	return append([]float64(nil), t.statePrices[i]...)
}

// RepricingErrors returns, for every slice i, the tree price of the
// zero-coupon bond maturing at t_{i+1} minus the market discount factor.
func (t *ShortRateTree) RepricingErrors() []float64 {
	return append([]float64(nil), t.repricing...)
}

// Warnings lists slices whose objective looked non-monotonic.
func (t *ShortRateTree) Warnings() []Warning {
	return append([]Warning(nil), t.warnings...)
}

// WithSpread returns a view of the tree in which every short rate is
// increased by spread. Fitted shifts are unchanged; discounts and state
// prices are recomputed, and so are RepricingErrors, which measure the
// spread tree against the same market discount factors.
func (t *ShortRateTree) WithSpread(spread float64) (*ShortRateTree, error) {
	if math.IsNaN(spread) || math.IsInf(spread, 0) {
		return nil, errors.New("ShortRateTree.WithSpread: spread must be finite")
	}
	out := *t
	out.spread = spread
	out.discounts = make([][]float64, len(t.rates))
	out.statePrices = make([][]float64, len(t.statePrices))
	out.statePrices[0] = []float64{1.0}
	out.repricing = make([]float64, len(t.rates))
	for i, rates := range t.rates {
		dt := t.grid.Dt(i)
		d := make([]float64, len(rates))
		for j, r := range rates {
			d[j] = math.Exp(-(r + spread) * dt)
		}
		out.discounts[i] = d
		out.statePrices[i+1] = t.tree.forwardInduction(i, out.statePrices[i], d)
		out.repricing[i] = floats.Sum(out.statePrices[i+1]) - t.targets[i]
	}
	return &out, nil
}
