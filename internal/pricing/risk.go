package pricing

import (
	"fmt"

	"benritz/giltcalc/internal/types"
)

const basisPoint = 0.0001

// years to the final cashflow.
func (d discounted) years(n float64) float64 {
	if len(d.times) == 0 {
		return 0
	}
	return d.times[len(d.times)-1] / n
}

func (d discounted) curvePrice(curve types.Discounter, n float64) float64 {
	price := 0.0
	for i, t := range d.times {
		price += d.amounts[i] * curve.DiscountFactor(t/n)
	}
	return price
}

// modifiedDuration in coupon periods: (1/P)·Σ t·CF/(1+y)^(t+1).
func (d discounted) modifiedDuration(y, P float64) float64 {
	return d.weighted(y, 1, func(t float64) float64 { return t }) / P
}

// macaulayDuration in coupon periods: (1/P)·Σ t·CF/(1+y)^t.
func (d discounted) macaulayDuration(y, P float64) float64 {
	return d.weighted(y, 0, func(t float64) float64 { return t }) / P
}

// convexity in coupon periods squared: (1/P)·Σ t(t+1)·CF/(1+y)^(t+2).
func (d discounted) convexity(y, P float64) float64 {
	return d.weighted(y, 2, func(t float64) float64 { return t * (t + 1) }) / P
}

// pv01 is the price gain for a one basis point fall in the annual yield.
func (d discounted) pv01(y, n float64) float64 {
	return d.Price(y-basisPoint/n) - d.Price(y)
}

// YieldShifts are the parallel yield moves, in percent, used for the
// sensitivity table.
var YieldShifts = []float64{-2.0, -1.5, -1.0, -0.5, 0.0, 0.5, 1.0, 1.5, 2.0}

type Sensitivity struct {
	ShiftPercent  float64
	Label         string
	Price         float64
	Change        float64
	ChangePercent float64
}

// Sensitivities approximates the clean price after each yield shift with the
// second order expansion ΔP = -D·Δy·P + ½·C·Δy²·P.
func Sensitivities(res *types.ValuationResult) []Sensitivity {
	P := res.CleanPrice
	D := res.ModifiedDurationYears
	C := res.Convexity

	out := make([]Sensitivity, 0, len(YieldShifts))
	for _, shift := range YieldShifts {
		dy := shift / 100
		dp := -D*dy*P + 0.5*C*dy*dy*P

		s := Sensitivity{
			ShiftPercent: shift,
			Label:        fmt.Sprintf("%+.1f%%", shift),
			Price:        P + dp,
			Change:       dp,
		}
		if P != 0 {
			s.ChangePercent = dp / P * 100
		}
		out = append(out, s)
	}

	return out
}
