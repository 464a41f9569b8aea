package pricing

import (
	"fmt"
	"math"

	"benritz/giltcalc/internal/types"

	"gonum.org/v1/gonum/floats"
)

const (
	// PriceTolerance is the largest accepted gap between the target dirty
	// price and the price implied by the solved yield.
	PriceTolerance = 1e-8
	// MaxIterations bounds the yield solver.
	MaxIterations = 100

	minPeriodicYield = -0.99
	maxPeriodicYield = 10.0
)

// discounted holds the remaining cashflows of a gilt as amounts and times
// measured in coupon periods from settlement.
type discounted struct {
	times   []float64
	amounts []float64
}

func newDiscounted(flows []types.Cashflow, period CouponPeriod) discounted {
	d := discounted{
		times:   make([]float64, len(flows)),
		amounts: make([]float64, len(flows)),
	}
	if len(flows) == 0 {
		return d
	}

	t1 := float64(period.PeriodDays-period.AccruedDays) / float64(period.PeriodDays)
	for i, cf := range flows {
		d.times[i] = t1 + float64(i)
		d.amounts[i] = cf.Amount()
	}
	return d
}

// factors returns (1+y)^-(t+shift) for every cashflow.
func (d discounted) factors(y, shift float64) []float64 {
	dst := make([]float64, len(d.times))
	for i, t := range d.times {
		dst[i] = math.Pow(1+y, -(t + shift))
	}
	return dst
}

// Price discounts the cashflows at the periodic yield y.
func (d discounted) Price(y float64) float64 {
	return floats.Dot(d.amounts, d.factors(y, 0))
}

// weighted returns Σ w_i·CF_i·(1+y)^-(t_i+shift).
func (d discounted) weighted(y, shift float64, w func(t float64) float64) float64 {
	dfs := d.factors(y, shift)
	for i, t := range d.times {
		dfs[i] *= w(t) * d.amounts[i]
	}
	return floats.Sum(dfs)
}

// Derivative is dP/dy at the periodic yield y.
func (d discounted) Derivative(y float64) float64 {
	return -d.weighted(y, 1, func(t float64) float64 { return t })
}

// EstimatedYieldToMaturity calculates a rough estimate of the yield to maturity used as a starting
// point for numerical methods to calculate a more accurate YTM.
//
//	C: Annual coupon rate.
//	F: Face value of the bond.
//	P: Market price of the bond.
//	n: Number of years to maturity.
//
// Returns:
//
//	Estimated yield to maturity as a percentage.
func EstimatedYieldToMaturity(C, F, P, n float64) float64 {
	if n <= 0 || F+P <= 0 {
		return C
	}
	CP := C / 100 * F
	y := (CP + (F-P)/n) / ((F + P) / 2)
	return y * 100
}

// solveYield finds the periodic yield at which the cashflows are worth target.
//
// Newton-Raphson steps are taken while they stay inside the bracket of
// yields known to price above and below the target; otherwise the bracket is
// bisected.
//
// Parameters:
//
//	target:	Dirty price to match.
//	guess:	Initial periodic yield.
//
// Returns:
//
//	Periodic yield, or ErrNoConvergence.
func (d discounted) solveYield(target, guess float64) (float64, error) {
	if len(d.amounts) == 0 {
		return 0, fmt.Errorf("%w: no cashflows remain after settlement", types.ErrNoConvergence)
	}

	lo, hi := minPeriodicYield, maxPeriodicYield

	y := guess
	if math.IsNaN(y) || y <= lo || y >= hi {
		y = 0
	}

	for i := 0; i < MaxIterations; i++ {
		dp := d.Price(y) - target
		if math.Abs(dp) < PriceTolerance {
			return y, nil
		}

		// price falls as yield rises
		if dp > 0 {
			lo = y
		} else {
			hi = y
		}

		next := y - dp/d.Derivative(y)
		if math.IsNaN(next) || next <= lo || next >= hi {
			next = (lo + hi) / 2
		}
		y = next
	}

	return 0, fmt.Errorf("%w: no yield within %v of price %.6f after %d iterations",
		types.ErrNoConvergence, PriceTolerance, target, MaxIterations)
}
