package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meenmo/shortrate/lattice"
	"github.com/meenmo/shortrate/model"
)

func TestCalibrate_RecoversHullWhite(t *testing.T) {
	t.Parallel()

	c := curve(t)
	truth, err := model.NewHullWhite(c, 0.08, 0.012)
	require.NoError(t, err)

	var helpers []model.Helper
	for _, q := range []struct{ expiry, maturity float64 }{
		{1, 2}, {1, 5}, {2, 7}, {3, 10}, {5, 10}, {5, 20},
	} {
		strike := c.Discount(q.maturity) / c.Discount(q.expiry)
		price, err := truth.DiscountBondOption(lattice.Call, strike, q.expiry, q.maturity)
		require.NoError(t, err)
		helpers = append(helpers, model.BondOptionHelper{
			Type: lattice.Call, Strike: strike, Expiry: q.expiry, Maturity: q.maturity, Price: price,
		})
	}

	start, err := model.NewHullWhite(c, 0.03, 0.02)
	require.NoError(t, err)
	fitted, res, err := model.Calibrate(start, helpers, model.CalibrationOptions{Tolerance: 1e-14})
	require.NoError(t, err)

	assert.Less(t, res.Loss, 1e-8)
	assert.Greater(t, res.Evaluations, 0)
	assert.Equal(t, fitted.Params(), res.Params)
	assert.InEpsilon(t, 0.08, fitted.Params()[0], 0.1)
	assert.InEpsilon(t, 0.012, fitted.Params()[1], 0.1)
}

func TestCalibrate_TreeHelper(t *testing.T) {
	t.Parallel()

	c := curve(t)
	bk, err := model.NewBlackKarasinski(c, 0.1, 0.2)
	require.NoError(t, err)

	h := model.BondOptionHelper{Type: lattice.Put, Strike: 0.9, Expiry: 1, Maturity: 4, Steps: 40}
	price, err := h.ModelPrice(bk)
	require.NoError(t, err)
	assert.Greater(t, price, 0.0)

	h.Price = price
	fitted, res, err := model.Calibrate(bk, []model.Helper{h}, model.CalibrationOptions{Tolerance: 1e-12})
	require.NoError(t, err)
	assert.Less(t, res.Loss, 1e-6)
	assert.Len(t, fitted.Params(), 2)
}

func TestCalibrate_Rejects(t *testing.T) {
	t.Parallel()

	hw, err := model.NewHullWhite(curve(t), 0.1, 0.01)
	require.NoError(t, err)

	_, _, err = model.Calibrate(hw, nil, model.CalibrationOptions{})
	assert.ErrorIs(t, err, model.ErrInvalidParameter)

	h := model.BondOptionHelper{Type: lattice.Call, Strike: 0.9, Expiry: 1, Maturity: 2}
	_, _, err = model.Calibrate(hw, []model.Helper{h}, model.CalibrationOptions{})
	assert.ErrorIs(t, err, model.ErrInvalidParameter)
}
