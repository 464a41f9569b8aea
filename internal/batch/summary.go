package batch

import (
	"fmt"
	"time"

	"benritz/giltcalc/internal/store"

	"gonum.org/v1/gonum/stat"
)

// Summary aggregates the successfully valued rows of a batch into a single
// holding. Amount totals and market value only count rows giving an amount.
type Summary struct {
	Holdings       int
	TotalAmount    float64
	MarketValue    float64
	AverageCoupon  float64
	LatestMaturity time.Time
	EarliestIssue  time.Time
	NextCouponDate time.Time
}

// Description names the aggregate the way a single gilt would be named.
func (s Summary) Description() string {
	return fmt.Sprintf("Aggregated Portfolio (%d Gilts)", s.Holdings)
}

// Summarise aggregates results. The average coupon is the simple mean over
// holdings and the next coupon date is the earliest still to be paid.
func Summarise(results []Result) Summary {
	var (
		s       Summary
		coupons []float64
	)

	for _, res := range results {
		if res.Err != nil || res.Valuation == nil {
			continue
		}
		terms := res.Row.Terms

		s.Holdings++
		coupons = append(coupons, terms.CouponRatePercent)

		if a := res.Row.Amount; a != nil {
			s.TotalAmount += *a
			s.MarketValue += *a * res.Valuation.DirtyPrice / 100
		}
		if terms.MaturityDate.After(s.LatestMaturity) {
			s.LatestMaturity = terms.MaturityDate
		}
		if s.EarliestIssue.IsZero() || terms.IssueDate.Before(s.EarliestIssue) {
			s.EarliestIssue = terms.IssueDate
		}
		if next := res.Valuation.NextCouponDate; len(res.Valuation.Cashflows) > 0 && !next.IsZero() {
			if s.NextCouponDate.IsZero() || next.Before(s.NextCouponDate) {
				s.NextCouponDate = next
			}
		}
	}

	if len(coupons) > 0 {
		s.AverageCoupon = stat.Mean(coupons, nil)
	}
	return s
}

// ResultRow flattens the result for storage, carrying the row's amount.
func (res Result) ResultRow(settlement time.Time) store.ResultRow {
	row := store.NewResultRow(res.Row.Terms, settlement, res.Valuation, res.Err)
	if res.Row.Amount != nil {
		row.Amount = *res.Row.Amount
	}
	return row
}
