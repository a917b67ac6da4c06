package model_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"github.com/meenmo/shortrate/lattice"
	"github.com/meenmo/shortrate/model"
	"github.com/meenmo/shortrate/termstructure"
	"github.com/meenmo/shortrate/timegrid"
)

func curve(t *testing.T) termstructure.Curve {
	t.Helper()
	c, err := termstructure.NewZeroCurve(
		[]float64{0.5, 1, 2, 5, 10, 30},
		[]float64{0.029, 0.030, 0.032, 0.036, 0.040, 0.043},
		"ACT/365F",
	)
	require.NoError(t, err)
	return c
}

func TestNew(t *testing.T) {
	t.Parallel()

	c := curve(t)
	cases := []struct {
		name   string
		params []float64
		want   string
	}{
		{"hw", []float64{0.1, 0.01}, "HW"},
		{"BK", []float64{0.1, 0.2}, "BK"},
		{"cir", []float64{0.2, 0.03, 0.05, 0.03}, "CIR"},
	}
	for _, tc := range cases {
		m, err := model.New(tc.name, c, tc.params)
		require.NoError(t, err, tc.name)
		assert.Equal(t, tc.want, m.Name())
		assert.Equal(t, tc.params, m.Params())
		assert.Equal(t, c, m.Curve())
	}

	_, err := model.New("G2", c, []float64{0.1, 0.01})
	assert.ErrorIs(t, err, model.ErrUnknownModel)
	_, err = model.New("HW", c, []float64{0.1})
	assert.ErrorIs(t, err, model.ErrInvalidParameter)
	_, err = model.New("BK", c, []float64{0.1, -0.2})
	assert.ErrorIs(t, err, model.ErrInvalidParameter)
	_, err = model.NewHullWhite(nil, 0.1, 0.01)
	assert.ErrorIs(t, err, model.ErrInvalidParameter)
}

func TestTrees_RepriceCurve(t *testing.T) {
	t.Parallel()

	c := curve(t)
	grid, err := timegrid.Regular(30, 200)
	require.NoError(t, err)

	for _, name := range []string{"HW", "BK", "CIR"} {
		name := name
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			params := map[string][]float64{
				"HW":  {0.1, 0.01},
				"BK":  {0.1, 0.2},
				"CIR": {0.2, 0.03, 0.05, 0.03},
			}[name]
			m, err := model.New(name, c, params)
			require.NoError(t, err)
			tree, err := m.Tree(grid)
			require.NoError(t, err)

			for i, e := range tree.RepricingErrors() {
				assert.Less(t, math.Abs(e), 1e-6, "slice %d", i)
			}
			for _, maturity := range []float64{1.5, 7.5, 30} {
				bond := lattice.NewDiscountBond(maturity)
				price, err := lattice.Price(tree, bond, maturity)
				require.NoError(t, err)
				assert.InDelta(t, c.Discount(maturity), price, 1e-6)
			}
		})
	}
}

func TestCIR_TreeStaysPositive(t *testing.T) {
	t.Parallel()

	m, err := model.NewExtendedCIR(curve(t), 0.2, 0.03, 0.05, 0.03)
	require.NoError(t, err)
	grid, err := timegrid.Regular(10, 100)
	require.NoError(t, err)
	tree, err := m.Tree(grid)
	require.NoError(t, err)
	assert.True(t, tree.Tree().Positive())
	for i := 0; i <= grid.Steps(); i++ {
		assert.Greater(t, tree.Underlying(i, 0), 0.0)
	}
	assert.True(t, math.IsNaN(m.Dynamics().Variable(0, 0.01, 0.02)))
	assert.InDelta(t, 0.1, m.Dynamics().Variable(0, 0.03, 0.02), 1e-15)
}

func TestHullWhite_ClosedFormSliceFit(t *testing.T) {
	t.Parallel()

	m, err := model.NewHullWhite(curve(t), 0.1, 0.01)
	require.NoError(t, err)
	grid, err := timegrid.Regular(10, 50)
	require.NoError(t, err)

	analytic, err := m.Tree(grid)
	require.NoError(t, err)
	numeric, err := m.Tree(grid, lattice.WithClosedForm(false), lattice.WithAccuracy(1e-12))
	require.NoError(t, err)

	assert.InDeltaSlice(t, analytic.Theta().Values(), numeric.Theta().Values(), 1e-10)
	assert.Less(t, floats.Norm(analytic.RepricingErrors(), math.Inf(1)), 1e-12)
}

func TestHullWhite_Accessors(t *testing.T) {
	t.Parallel()

	c := curve(t)
	m, err := model.NewHullWhite(c, 0.08, 0.012)
	require.NoError(t, err)
	assert.Equal(t, 0.08, m.Speed())
	assert.Equal(t, 0.012, m.Sigma())
	assert.Equal(t, []float64{m.Speed(), m.Sigma()}, m.Params())

	// P(0, T) = A(0, T) exp(-B(0, T) f(0)) reproduces the curve
	const T = 4.0
	assert.InDelta(t, (1-math.Exp(-0.08*T))/0.08, m.B(0, T), 1e-15)
	assert.InDelta(t, c.Discount(T), m.A(0, T)*math.Exp(-m.B(0, T)*c.Forward(0)), 1e-14)
	assert.Equal(t, 1.0, m.A(2, 2))
}

func TestHullWhite_DiscountBond(t *testing.T) {
	t.Parallel()

	c := curve(t)
	m, err := model.NewHullWhite(c, 0.1, 0.01)
	require.NoError(t, err)

	// at time 0 with r = f(0) the formula returns the curve
	for _, T := range []float64{0.5, 3, 12} {
		p, err := m.DiscountBond(0, T, c.Forward(0))
		require.NoError(t, err)
		assert.InDelta(t, c.Discount(T), p, 1e-14)
	}
	p, err := m.DiscountBond(2, 2, 0.05)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, p, 1e-15)

	high, err := m.DiscountBond(1, 5, 0.06)
	require.NoError(t, err)
	low, err := m.DiscountBond(1, 5, 0.02)
	require.NoError(t, err)
	assert.Less(t, high, low)

	_, err = m.DiscountBond(3, 2, 0.05)
	assert.ErrorIs(t, err, model.ErrInvalidParameter)
}

func TestHullWhite_BondOptionTreeMatchesAnalytic(t *testing.T) {
	t.Parallel()

	c := curve(t)
	m, err := model.NewHullWhite(c, 0.1, 0.01)
	require.NoError(t, err)

	const expiry, maturity = 2.0, 7.0
	atm := c.Discount(maturity) / c.Discount(expiry)
	for _, typ := range []lattice.OptionType{lattice.Call, lattice.Put} {
		for _, strike := range []float64{atm * 0.98, atm, atm * 1.02} {
			want, err := m.DiscountBondOption(typ, strike, expiry, maturity)
			require.NoError(t, err)

			option, err := lattice.NewBondOption(typ, strike, expiry, maturity, lattice.European)
			require.NoError(t, err)
			grid, err := model.GridFor(280, option)
			require.NoError(t, err)
			tree, err := m.Tree(grid)
			require.NoError(t, err)
			got, err := lattice.Price(tree, option, expiry)
			require.NoError(t, err)

			assert.InDelta(t, want, got, 0.03*want+2e-5, "%v strike %g", typ, strike)
		}
	}
}

func TestHullWhite_BondOptionParity(t *testing.T) {
	t.Parallel()

	c := curve(t)
	m, err := model.NewHullWhite(c, 0.05, 0.012)
	require.NoError(t, err)

	call, err := m.DiscountBondOption(lattice.Call, 0.88, 3, 8)
	require.NoError(t, err)
	put, err := m.DiscountBondOption(lattice.Put, 0.88, 3, 8)
	require.NoError(t, err)
	assert.InDelta(t, c.Discount(8)-0.88*c.Discount(3), call-put, 1e-14)

	// a zero-expiry option is its intrinsic value
	now, err := m.DiscountBondOption(lattice.Call, 0.6, 0, 8)
	require.NoError(t, err)
	assert.InDelta(t, c.Discount(8)-0.6, now, 1e-15)

	_, err = m.DiscountBondOption(lattice.Call, 0.8, 9, 8)
	assert.ErrorIs(t, err, model.ErrInvalidParameter)
}

func TestNoClosedForm(t *testing.T) {
	t.Parallel()

	bk, err := model.NewBlackKarasinski(curve(t), 0.1, 0.2)
	require.NoError(t, err)
	cir, err := model.NewExtendedCIR(curve(t), 0.2, 0.03, 0.05, 0.03)
	require.NoError(t, err)

	for _, m := range []model.Model{bk, cir} {
		_, err := m.DiscountBond(0, 1, 0.03)
		assert.ErrorIs(t, err, model.ErrNoClosedForm)
		_, err = m.DiscountBondOption(lattice.Call, 0.9, 1, 2)
		assert.ErrorIs(t, err, model.ErrNoClosedForm)
	}
}

func TestWithParams(t *testing.T) {
	t.Parallel()

	m, err := model.NewBlackKarasinski(curve(t), 0.1, 0.2)
	require.NoError(t, err)
	other, err := m.WithParams([]float64{0.05, 0.3})
	require.NoError(t, err)
	assert.Equal(t, []float64{0.05, 0.3}, other.Params())
	assert.Equal(t, []float64{0.1, 0.2}, m.Params(), "original is unchanged")

	_, err = m.WithParams([]float64{0.05})
	assert.ErrorIs(t, err, model.ErrInvalidParameter)
}

func TestGridFor(t *testing.T) {
	t.Parallel()

	option, err := lattice.NewBondOption(lattice.Call, 0.9, 1.3, 4.7, lattice.European)
	require.NoError(t, err)
	grid, err := model.GridFor(50, option)
	require.NoError(t, err)
	for _, tm := range []float64{0, 1.3, 4.7} {
		_, err := grid.Index(tm)
		assert.NoError(t, err)
	}
	assert.Equal(t, 4.7, grid.Back())
}
