package pricing

import (
	"time"

	"benritz/giltcalc/internal/types"
)

// Schedule returns the coupon dates of a gilt in ascending order. Dates are
// generated backwards from maturity in steps of 12/frequency months until a
// date on or before the issue date is reached; that first date only bounds the
// first coupon period and carries no payment.
func Schedule(terms types.GiltTerms) []time.Time {
	step := 12 / terms.PaymentsPerYear()
	issue := types.Date(terms.IssueDate)
	maturity := types.Date(terms.MaturityDate)

	var dates []time.Time
	for k := 0; ; k++ {
		d := types.AddMonths(maturity, -k*step)
		dates = append(dates, d)
		if !d.After(issue) {
			break
		}
	}

	for i, j := 0, len(dates)-1; i < j; i, j = i+1, j-1 {
		dates[i], dates[j] = dates[j], dates[i]
	}

	return dates
}

// CouponPeriod locates settlement in the schedule.
type CouponPeriod struct {
	Prev        time.Time
	Next        time.Time
	AccruedDays int
	PeriodDays  int
	// NextIndex is the schedule index of the first payment after settlement,
	// or len(schedule) when nothing remains.
	NextIndex int
}

// FindCouponPeriod returns the period containing settlement, with
// Prev <= settlement < Next. On the maturity date both bounds are the maturity
// date so that nothing accrues.
func FindCouponPeriod(schedule []time.Time, settlement time.Time) CouponPeriod {
	settlement = types.Date(settlement)
	last := len(schedule) - 1

	i := 0
	for i < last && !schedule[i+1].After(settlement) {
		i++
	}

	if i == last {
		return CouponPeriod{
			Prev:       schedule[last],
			Next:       schedule[last],
			PeriodDays: types.DaysBetween(schedule[last-1], schedule[last]),
			NextIndex:  len(schedule),
		}
	}

	return CouponPeriod{
		Prev:        schedule[i],
		Next:        schedule[i+1],
		AccruedDays: types.DaysBetween(schedule[i], settlement),
		PeriodDays:  types.DaysBetween(schedule[i], schedule[i+1]),
		NextIndex:   i + 1,
	}
}

// Cashflows returns the payments dated strictly after settlement.
func Cashflows(terms types.GiltTerms, schedule []time.Time, period CouponPeriod) []types.Cashflow {
	coupon := terms.CouponPayment()
	last := len(schedule) - 1

	var flows []types.Cashflow
	for i := period.NextIndex; i <= last; i++ {
		cf := types.Cashflow{Date: schedule[i], Coupon: coupon}
		if i == last {
			cf.Redemption = types.FaceValue
		}
		flows = append(flows, cf)
	}

	return flows
}
