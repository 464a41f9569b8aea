// Package pricing calculates fixed coupon gilt analytics: accrued interest,
// clean and dirty prices, yield to maturity, duration and convexity.
//
// Accrued interest and cashflow times follow the Actual/Actual (ICMA) day
// count. Every function is pure and safe for concurrent use.
package pricing

import (
	"fmt"
	"math"

	"benritz/giltcalc/internal/types"
)

// Evaluate values a gilt at its settlement date. Either a complete result or
// an error is returned, never both.
//
// With a market clean price the dirty price is that price plus accrued
// interest. Without one the remaining cashflows are discounted with the
// request's curve, its flat discount rate, or the coupon rate.
func Evaluate(req types.ValuationRequest) (*types.ValuationResult, error) {
	if err := types.ValidateRequest(req); err != nil {
		return nil, err
	}

	terms := req.Terms
	settlement := types.Date(req.SettlementDate)
	issue := types.Date(terms.IssueDate)
	maturity := types.Date(terms.MaturityDate)

	if settlement.Before(issue) || settlement.After(maturity) {
		return nil, fmt.Errorf(
			"%w: %s is outside %s to %s",
			types.ErrOutOfRangeDate,
			settlement.Format(types.DateLayout),
			issue.Format(types.DateLayout),
			maturity.Format(types.DateLayout),
		)
	}

	n := float64(terms.PaymentsPerYear())
	schedule := Schedule(terms)
	period := FindCouponPeriod(schedule, settlement)
	flows := Cashflows(terms, schedule, period)
	cfs := newDiscounted(flows, period)

	accrued := AccruedInterest(terms, period)

	res := &types.ValuationResult{
		ISIN:             terms.ISIN,
		SettlementDate:   settlement,
		AccruedInterest:  accrued,
		AccruedDays:      period.AccruedDays,
		CouponPeriodDays: period.PeriodDays,
		PrevCouponDate:   period.Prev,
		NextCouponDate:   period.Next,
		Cashflows:        flows,
	}

	var y float64

	switch {
	case req.MarketCleanPrice != nil:
		res.PriceSource = types.PriceSourceMarket
		res.CleanPrice = *req.MarketCleanPrice
		res.DirtyPrice = res.CleanPrice + accrued

		years := cfs.years(n)
		guess := EstimatedYieldToMaturity(terms.CouponRatePercent, types.FaceValue, res.CleanPrice, years) / 100 / n

		var err error
		if y, err = cfs.solveYield(res.DirtyPrice, guess); err != nil {
			return nil, err
		}

	case req.Curve != nil:
		res.PriceSource = types.PriceSourceModelCurve
		model := cfs.curvePrice(req.Curve, n)
		res.CleanPrice = model - accrued
		res.DirtyPrice = res.CleanPrice + accrued

		if len(flows) > 0 {
			var err error
			if y, err = cfs.solveYield(res.DirtyPrice, terms.CouponRatePercent/100/n); err != nil {
				return nil, err
			}
		}

	default:
		res.PriceSource = types.PriceSourceModelFlat
		rate := terms.CouponRatePercent
		if req.DiscountRatePercent != nil {
			rate = *req.DiscountRatePercent
		}
		y = rate / 100 / n

		model := cfs.Price(y)
		res.CleanPrice = model - accrued
		res.DirtyPrice = res.CleanPrice + accrued
	}

	res.YieldToMaturityPercent = y * n * 100

	if len(flows) > 0 && res.DirtyPrice > 0 {
		res.ModifiedDurationYears = cfs.modifiedDuration(y, res.DirtyPrice) / n
		res.MacaulayDurationYears = cfs.macaulayDuration(y, res.DirtyPrice) / n
		res.Convexity = cfs.convexity(y, res.DirtyPrice) / (n * n)
		res.PV01 = cfs.pv01(y, n)
	}

	if err := checkFinite(res); err != nil {
		return nil, err
	}

	return res, nil
}

// AccruedInterest is the coupon earned from the previous coupon date to
// settlement, scaled by the actual days in the current period. It is exactly
// zero on a coupon date. For a gilt issued off the coupon cycle the first
// period runs from the quasi-coupon date before issue, so interest has already
// accrued on the issue date and the first coupon is paid in full.
func AccruedInterest(terms types.GiltTerms, period CouponPeriod) float64 {
	if period.AccruedDays == 0 || period.PeriodDays == 0 {
		return 0
	}
	return terms.CouponPayment() * float64(period.AccruedDays) / float64(period.PeriodDays)
}

// PriceFromYield discounts the remaining cashflows of a result at an annual
// yield in percent and returns the dirty price.
func PriceFromYield(res *types.ValuationResult, frequency int, yieldPercent float64) float64 {
	n := float64(frequency)
	period := CouponPeriod{
		Prev:        res.PrevCouponDate,
		Next:        res.NextCouponDate,
		AccruedDays: res.AccruedDays,
		PeriodDays:  res.CouponPeriodDays,
	}
	return newDiscounted(res.Cashflows, period).Price(yieldPercent / 100 / n)
}

func checkFinite(res *types.ValuationResult) error {
	for name, v := range map[string]float64{
		"yield":     res.YieldToMaturityPercent,
		"clean":     res.CleanPrice,
		"dirty":     res.DirtyPrice,
		"accrued":   res.AccruedInterest,
		"duration":  res.ModifiedDurationYears,
		"macaulay":  res.MacaulayDurationYears,
		"convexity": res.Convexity,
		"pv01":      res.PV01,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s is not finite", types.ErrNoConvergence, name)
		}
	}
	return nil
}
