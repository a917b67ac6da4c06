package lattice_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meenmo/shortrate/lattice"
	"github.com/meenmo/shortrate/timegrid"
)

func TestPrice_DiscountBondsRoundTrip(t *testing.T) {
	t.Parallel()

	curve := marketCurve(t)
	srt := buildTree(t, logNormal{newOU(t, 0.1, 0.2)}, curve, 30, 200)
	grid := srt.TimeGrid()

	for i := 1; i <= grid.Steps(); i += 7 {
		maturity := grid.At(i)
		bond := lattice.NewDiscountBond(maturity)
		price, err := lattice.Price(srt, bond, maturity)
		require.NoError(t, err)
		assert.InDelta(t, curve.Discount(maturity), price, 1e-6, "maturity %g", maturity)
		assert.Equal(t, 0.0, bond.Time())
		assert.Len(t, bond.Values(), 1)
	}
}

func TestPresentValue_FromIntermediateSlice(t *testing.T) {
	t.Parallel()

	curve := marketCurve(t)
	srt := buildTree(t, additive{newOU(t, 0.1, 0.01)}, curve, 10, 40)
	grid := srt.TimeGrid()

	bond := lattice.NewDiscountBond(grid.Back())
	require.NoError(t, srt.Initialize(bond, grid.Back()))
	require.NoError(t, srt.Rollback(bond, grid.At(20)))

	pv, err := srt.PresentValue(bond)
	require.NoError(t, err)
	assert.InDelta(t, curve.Discount(grid.Back()), pv, 1e-6)
}

func TestRollback_Errors(t *testing.T) {
	t.Parallel()

	srt := buildTree(t, additive{newOU(t, 0.1, 0.01)}, marketCurve(t), 5, 10)

	bond := lattice.NewDiscountBond(2.5)
	require.NoError(t, srt.Initialize(bond, 2.5))
	err := srt.Rollback(bond, 3.0)
	assert.ErrorIs(t, err, lattice.ErrRollback)

	err = srt.Initialize(lattice.NewDiscountBond(1.3), 1.3)
	assert.ErrorIs(t, err, timegrid.ErrTimeNotOnGrid)

	// a bond can only start from its maturity
	err = srt.Initialize(lattice.NewDiscountBond(2.5), 1.0)
	assert.ErrorIs(t, err, lattice.ErrRollback)
}

func TestBondOption_PutCallParity(t *testing.T) {
	t.Parallel()

	curve := marketCurve(t)
	srt := buildTree(t, additive{newOU(t, 0.1, 0.01)}, curve, 10, 80)

	const expiry, maturity = 2.0, 7.0
	forward := curve.Discount(maturity) / curve.Discount(expiry)

	for _, strike := range []float64{0.85, forward, 0.95} {
		call, err := lattice.NewBondOption(lattice.Call, strike, expiry, maturity, lattice.European)
		require.NoError(t, err)
		put, err := lattice.NewBondOption(lattice.Put, strike, expiry, maturity, lattice.European)
		require.NoError(t, err)

		c, err := lattice.Price(srt, call, expiry)
		require.NoError(t, err)
		p, err := lattice.Price(srt, put, expiry)
		require.NoError(t, err)

		assert.GreaterOrEqual(t, c, 0.0)
		assert.GreaterOrEqual(t, p, 0.0)
		assert.InDelta(t, curve.Discount(maturity)-strike*curve.Discount(expiry), c-p, 1e-6, "strike %g", strike)
	}
}

func TestBondOption_AmericanDominatesEuropean(t *testing.T) {
	t.Parallel()

	srt := buildTree(t, additive{newOU(t, 0.1, 0.01)}, marketCurve(t), 10, 80)

	european, err := lattice.NewBondOption(lattice.Put, 0.9, 3, 8, lattice.European)
	require.NoError(t, err)
	american, err := lattice.NewBondOption(lattice.Put, 0.9, 3, 8, lattice.American)
	require.NoError(t, err)

	e, err := lattice.Price(srt, european, 3)
	require.NoError(t, err)
	a, err := lattice.Price(srt, american, 3)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, a, e)
	assert.Equal(t, []float64{3, 8}, american.MandatoryTimes())
}

func TestNewBondOption_Rejects(t *testing.T) {
	t.Parallel()

	_, err := lattice.NewBondOption(lattice.Call, 0, 1, 2, lattice.European)
	assert.Error(t, err)
	_, err = lattice.NewBondOption(lattice.Call, 0.9, 3, 2, lattice.European)
	assert.Error(t, err)
	_, err = lattice.NewBondOption(lattice.Call, 0.9, -1, 2, lattice.European)
	assert.Error(t, err)
	_, err = lattice.NewBondOption(lattice.OptionType(0), 0.9, 1, 2, lattice.European)
	assert.Error(t, err)
	assert.Equal(t, "Put", lattice.Put.String())
}
