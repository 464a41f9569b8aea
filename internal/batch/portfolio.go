package batch

import (
	"fmt"
	"sort"
	"time"

	"benritz/giltcalc/internal/pricing"

	"gonum.org/v1/gonum/stat"
)

// PortfolioPoint is the value weighted average of every holding still
// outstanding on Date.
type PortfolioPoint struct {
	Date                  time.Time `json:"date"`
	Holdings              int       `json:"holdings"`
	CleanPrice            float64   `json:"cleanPrice"`
	ModifiedDurationYears float64   `json:"modifiedDurationYears"`
}

type holdingPoint struct {
	weight   float64
	price    float64
	duration float64
}

// ProjectPortfolio projects every successfully valued result at its own
// yield from start and averages the projections per date, weighting each
// holding by its market value at valuation. Rows without an amount count as
// 100 nominal.
func ProjectPortfolio(results []Result, start time.Time, step pricing.ProjectionStep) ([]PortfolioPoint, error) {
	byDate := map[time.Time][]holdingPoint{}

	for _, res := range results {
		if res.Err != nil || res.Valuation == nil || len(res.Valuation.Cashflows) == 0 {
			continue
		}

		points, err := pricing.Project(res.Row.Terms, start, res.Valuation.YieldToMaturityPercent, step)
		if err != nil {
			return nil, fmt.Errorf("project %s: %w", res.Row.Terms.ISIN, err)
		}

		weight := res.Valuation.DirtyPrice
		if res.Row.Amount != nil {
			weight *= *res.Row.Amount / 100
		}

		for _, p := range points {
			byDate[p.Date] = append(byDate[p.Date], holdingPoint{
				weight:   weight,
				price:    p.CleanPrice,
				duration: p.ModifiedDurationYears,
			})
		}
	}

	dates := make([]time.Time, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	portfolio := make([]PortfolioPoint, 0, len(dates))
	for _, d := range dates {
		holdings := byDate[d]

		weights := make([]float64, len(holdings))
		prices := make([]float64, len(holdings))
		durations := make([]float64, len(holdings))
		for i, h := range holdings {
			weights[i] = h.weight
			prices[i] = h.price
			durations[i] = h.duration
		}

		portfolio = append(portfolio, PortfolioPoint{
			Date:                  d,
			Holdings:              len(holdings),
			CleanPrice:            stat.Mean(prices, weights),
			ModifiedDurationYears: stat.Mean(durations, weights),
		})
	}

	return portfolio, nil
}
