package main

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/meenmo/shortrate/bond"
	"github.com/meenmo/shortrate/calendar"
	"github.com/meenmo/shortrate/config"
	"github.com/meenmo/shortrate/lattice"
	"github.com/meenmo/shortrate/model"
	"github.com/meenmo/shortrate/termstructure"
	"github.com/meenmo/shortrate/timegrid"
	"github.com/meenmo/shortrate/utils"
)

type treeInput struct {
	TaskID string    `json:"task_id,omitempty"`
	Model  string    `json:"model" validate:"required,oneof=HW BK CIR hw bk cir"`
	Params []float64 `json:"params" validate:"required,min=2,max=4,dive,gt=0"`

	// Either a flat continuously compounded rate, zero-rate pillars, or
	// par swap rates bootstrapped at the given times.
	FlatRate     *float64  `json:"flat_rate,omitempty" validate:"required_without=Times"`
	Times        []float64 `json:"times,omitempty" validate:"omitempty,dive,gt=0"`
	ZeroRates    []float64 `json:"zero_rates,omitempty"`
	ParRates     []float64 `json:"par_rates,omitempty"`
	ParFrequency int       `json:"par_frequency,omitempty" validate:"gte=0,lte=12"`
	DayCount     string    `json:"day_count,omitempty"`
	Extrapolate  bool      `json:"extrapolate,omitempty"`

	Horizon        float64          `json:"horizon" validate:"gt=0"`
	Steps          int              `json:"steps" validate:"gt=0,lte=10000"`
	BumpsBP        []float64        `json:"bumps_bp,omitempty"`
	BondMaturities []float64        `json:"bond_maturities,omitempty" validate:"omitempty,dive,gt=0"`
	CouponBond     *couponBondInput `json:"coupon_bond,omitempty"`
}

// couponBondInput describes either a regular schedule (coupon_rate,
// frequency, maturity) or explicit dated cashflows after settlement.
type couponBondInput struct {
	CouponRate float64             `json:"coupon_rate" validate:"gte=0"`
	Frequency  int                 `json:"frequency" validate:"omitempty,gte=1,lte=12"`
	Maturity   float64             `json:"maturity" validate:"omitempty,gt=0"`
	Settlement string              `json:"settlement,omitempty" validate:"required_with=Cashflows"`
	Cashflows  []datedCashflowJSON `json:"cashflows,omitempty" validate:"omitempty,dive"`
	Roll       string              `json:"roll,omitempty"`
	Holidays   []string            `json:"holidays,omitempty"`
	CallTimes  []float64           `json:"call_times,omitempty" validate:"omitempty,dive,gt=0"`
	CallPrice  float64             `json:"call_price,omitempty" validate:"required_with=CallTimes"`
	DirtyPrice float64             `json:"dirty_price,omitempty" validate:"gte=0"`
}

type datedCashflowJSON struct {
	Date      string  `json:"date" validate:"required"`
	Coupon    float64 `json:"coupon"`
	Principal float64 `json:"principal"`
}

type treeOutput struct {
	TaskID            string            `json:"task_id,omitempty"`
	Model             string            `json:"model,omitempty"`
	Steps             int               `json:"steps,omitempty"`
	Thetas            []decimal.Decimal `json:"thetas,omitempty"`
	Nodes             []int             `json:"nodes,omitempty"`
	MaxRepricingError float64           `json:"max_repricing_error"`
	Warnings          []string          `json:"warnings,omitempty"`
	Bonds             []bondPrice       `json:"bonds,omitempty"`
	CouponBond        *couponBondOutput `json:"coupon_bond,omitempty"`
	Bumps             []bumpOutput      `json:"bumps,omitempty"`
	Error             string            `json:"error,omitempty"`
}

type bondPrice struct {
	Maturity float64         `json:"maturity"`
	Tree     decimal.Decimal `json:"tree"`
	Curve    decimal.Decimal `json:"curve"`
}

type couponBondOutput struct {
	Price       decimal.Decimal  `json:"price"`
	Yield       decimal.Decimal  `json:"yield"`
	OASBP       *decimal.Decimal `json:"oas_bp,omitempty"`
	OptionValue decimal.Decimal  `json:"option_value"`
}

type bumpOutput struct {
	BumpBP          float64          `json:"bump_bp"`
	Bonds           []bondPrice      `json:"bonds,omitempty"`
	CouponBondPrice *decimal.Decimal `json:"coupon_bond_price,omitempty"`
}

const (
	rateDecimals  = 10
	priceDecimals = 10
)

func process(ctx context.Context, v *validator.Validate, cfg config.Config, in treeInput) (*treeOutput, error) {
	if err := v.Struct(&in); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	curve, err := buildCurve(in)
	if err != nil {
		return nil, err
	}
	m, err := model.New(in.Model, curve, in.Params)
	if err != nil {
		return nil, err
	}

	var coupon *bond.CouponBond
	if in.CouponBond != nil {
		coupon, err = buildCouponBond(*in.CouponBond, dayCountOf(in))
		if err != nil {
			return nil, err
		}
	}
	grid, err := buildGrid(in, coupon)
	if err != nil {
		return nil, err
	}

	opts := []lattice.Option{lattice.WithConfig(cfg)}
	tree, err := m.Tree(grid, opts...)
	if err != nil {
		return nil, err
	}

	out := &treeOutput{
		TaskID: in.TaskID,
		Model:  m.Name(),
		Steps:  grid.Steps(),
	}
	for _, theta := range tree.Theta().Values() {
		out.Thetas = append(out.Thetas, decimal.NewFromFloat(theta).Round(rateDecimals))
	}
	for i := 0; i <= grid.Steps(); i++ {
		out.Nodes = append(out.Nodes, tree.Size(i))
	}
	for _, e := range tree.RepricingErrors() {
		out.MaxRepricingError = math.Max(out.MaxRepricingError, math.Abs(e))
	}
	for _, w := range tree.Warnings() {
		out.Warnings = append(out.Warnings, fmt.Sprintf("slice %d (t=%g): %s", w.Slice, w.Time, w.Message))
	}

	out.Bonds, err = priceDiscountBonds(tree, curve, in.BondMaturities)
	if err != nil {
		return nil, err
	}
	if coupon != nil {
		out.CouponBond, err = priceCouponBond(tree, coupon, in.CouponBond.DirtyPrice)
		if err != nil {
			return nil, err
		}
	}

	out.Bumps, err = bumpedPrices(ctx, m, grid, opts, in.BumpsBP, in.BondMaturities, coupon)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func dayCountOf(in treeInput) string {
	if in.DayCount == "" {
		return utils.Act365F
	}
	return in.DayCount
}

func buildCurve(in treeInput) (termstructure.Curve, error) {
	dayCount := dayCountOf(in)
	if in.FlatRate != nil {
		c, err := termstructure.NewFlatForward(*in.FlatRate, dayCount)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	var opts []termstructure.Option
	if in.Extrapolate {
		opts = append(opts, termstructure.WithExtrapolation())
	}
	if len(in.ParRates) > 0 {
		frequency := in.ParFrequency
		if frequency == 0 {
			frequency = 1
		}
		c, err := termstructure.BootstrapParSwaps(in.Times, in.ParRates, frequency, dayCount, opts...)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	if len(in.Times) != len(in.ZeroRates) {
		return nil, fmt.Errorf("times and zero_rates differ in length: %d vs %d", len(in.Times), len(in.ZeroRates))
	}
	c, err := termstructure.NewZeroCurve(in.Times, in.ZeroRates, dayCount, opts...)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func buildCouponBond(in couponBondInput, dayCount string) (*bond.CouponBond, error) {
	var (
		cfs []bond.Cashflow
		err error
	)
	if len(in.Cashflows) > 0 {
		cfs, err = datedCashflows(in, dayCount)
	} else {
		cfs, err = bond.FixedCashflows(in.CouponRate, in.Frequency, in.Maturity)
	}
	if err != nil {
		return nil, err
	}
	return bond.NewCouponBond(cfs, in.CallTimes, in.CallPrice)
}

func datedCashflows(in couponBondInput, dayCount string) ([]bond.Cashflow, error) {
	settlement, err := utils.ParseDate(in.Settlement)
	if err != nil {
		return nil, fmt.Errorf("settlement: %w", err)
	}
	roll, err := calendar.ParseConvention(in.Roll)
	if err != nil {
		return nil, err
	}
	holidays := make([]time.Time, 0, len(in.Holidays))
	for _, h := range in.Holidays {
		d, err := utils.ParseDate(h)
		if err != nil {
			return nil, fmt.Errorf("holiday: %w", err)
		}
		holidays = append(holidays, d)
	}
	cal := calendar.New(holidays...)

	dated := make([]bond.DatedCashflow, 0, len(in.Cashflows))
	for _, cf := range in.Cashflows {
		d, err := utils.ParseDate(cf.Date)
		if err != nil {
			return nil, fmt.Errorf("cashflow: %w", err)
		}
		dated = append(dated, bond.DatedCashflow{Date: cal.Adjust(d, roll), Coupon: cf.Coupon, Principal: cf.Principal})
	}
	return bond.FromDates(settlement, dated, dayCount)
}

// buildGrid puts every bond payment on a grid ending at the horizon.
func buildGrid(in treeInput, coupon *bond.CouponBond) (*timegrid.Grid, error) {
	mandatory := []float64{in.Horizon}
	mandatory = append(mandatory, in.BondMaturities...)
	if coupon != nil {
		mandatory = append(mandatory, coupon.MandatoryTimes()...)
	}
	for _, t := range mandatory {
		if t > in.Horizon {
			return nil, fmt.Errorf("payment at %g is beyond the horizon %g", t, in.Horizon)
		}
	}
	return timegrid.WithMandatory(mandatory, in.Steps)
}

func priceDiscountBonds(l lattice.Lattice, curve termstructure.Curve, maturities []float64) ([]bondPrice, error) {
	out := make([]bondPrice, 0, len(maturities))
	for _, maturity := range maturities {
		price, err := lattice.Price(l, lattice.NewDiscountBond(maturity), maturity)
		if err != nil {
			return nil, fmt.Errorf("discount bond %g: %w", maturity, err)
		}
		out = append(out, bondPrice{
			Maturity: maturity,
			Tree:     decimal.NewFromFloat(price).Round(priceDecimals),
			Curve:    decimal.NewFromFloat(curve.Discount(maturity)).Round(priceDecimals),
		})
	}
	return out, nil
}

func priceCouponBond(tree *lattice.ShortRateTree, b *bond.CouponBond, dirtyPrice float64) (*couponBondOutput, error) {
	price, err := bond.Price(tree, b)
	if err != nil {
		return nil, err
	}
	ytm, err := bond.YieldToMaturity(price, b.Cashflows())
	if err != nil {
		return nil, err
	}
	out := &couponBondOutput{
		Price: decimal.NewFromFloat(price).Round(priceDecimals),
		Yield: decimal.NewFromFloat(ytm.Yield).Round(rateDecimals),
	}
	if b.Callable() {
		bullet, err := bond.Price(tree, b.Bullet())
		if err != nil {
			return nil, err
		}
		out.OptionValue = decimal.NewFromFloat(bullet - price).Round(priceDecimals)
	}
	if dirtyPrice > 0 {
		oas, err := bond.ComputeOAS(bond.OASInput{Tree: tree, Bond: b, DirtyPrice: dirtyPrice})
		if err != nil {
			return nil, err
		}
		spread := decimal.NewFromFloat(oas.SpreadBP).Round(4)
		out.OASBP = &spread
	}
	return out, nil
}

// bumpedPrices rebuilds the tree on parallel-shifted curves concurrently.
func bumpedPrices(ctx context.Context, m model.Model, grid *timegrid.Grid, opts []lattice.Option, bumps, maturities []float64, coupon *bond.CouponBond) ([]bumpOutput, error) {
	if len(bumps) == 0 {
		return nil, nil
	}
	out := make([]bumpOutput, len(bumps))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, bp := range bumps {
		i, bp := i, bp
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			curve := termstructure.Shifted(m.Curve(), bp*1e-4)
			bumped, err := model.New(m.Name(), curve, m.Params())
			if err != nil {
				return err
			}
			tree, err := bumped.Tree(grid, opts...)
			if err != nil {
				return fmt.Errorf("bump %gbp: %w", bp, err)
			}
			bonds, err := priceDiscountBonds(tree, curve, maturities)
			if err != nil {
				return fmt.Errorf("bump %gbp: %w", bp, err)
			}
			out[i] = bumpOutput{BumpBP: bp, Bonds: bonds}
			if coupon != nil {
				price, err := bond.Price(tree, coupon)
				if err != nil {
					return fmt.Errorf("bump %gbp: %w", bp, err)
				}
				p := decimal.NewFromFloat(price).Round(priceDecimals)
				out[i].CouponBondPrice = &p
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
