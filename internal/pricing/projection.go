package pricing

import (
	"fmt"
	"strings"
	"time"

	"benritz/giltcalc/internal/types"
)

type ProjectionStep string

var (
	StepMonthly    ProjectionStep = "monthly"
	StepQuarterly  ProjectionStep = "quarterly"
	StepAnnual     ProjectionStep = "annual"
	StepFiveYearly ProjectionStep = "five-yearly"
)

var ErrInvalidStep = fmt.Errorf("invalid projection step")

func ParseProjectionStep(s string) (ProjectionStep, error) {
	switch ProjectionStep(strings.ToLower(strings.TrimSpace(s))) {
	case StepMonthly:
		return StepMonthly, nil
	case StepQuarterly:
		return StepQuarterly, nil
	case StepAnnual:
		return StepAnnual, nil
	case StepFiveYearly:
		return StepFiveYearly, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStep, s)
}

func (s ProjectionStep) Months() int {
	switch s {
	case StepMonthly:
		return 1
	case StepQuarterly:
		return 3
	case StepAnnual:
		return 12
	case StepFiveYearly:
		return 60
	}
	return 0
}

type ProjectionPoint struct {
	Date                  time.Time
	CleanPrice            float64
	DirtyPrice            float64
	ModifiedDurationYears float64
}

// ProjectionDates returns start and every step after it that falls before
// maturity.
func ProjectionDates(start, maturity time.Time, step ProjectionStep) ([]time.Time, error) {
	months := step.Months()
	if months == 0 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStep, step)
	}

	start = types.Date(start)
	maturity = types.Date(maturity)

	var dates []time.Time
	for k := 0; ; k++ {
		d := types.AddMonths(start, k*months)
		if !d.Before(maturity) {
			break
		}
		dates = append(dates, d)
	}
	return dates, nil
}

// Project prices a gilt at a fixed annual yield on every projection date,
// the pull-to-par path the gilt follows if its yield does not move.
func Project(terms types.GiltTerms, start time.Time, yieldPercent float64, step ProjectionStep) ([]ProjectionPoint, error) {
	if err := types.ValidateTerms(terms); err != nil {
		return nil, err
	}

	dates, err := ProjectionDates(start, terms.MaturityDate, step)
	if err != nil {
		return nil, err
	}

	points := make([]ProjectionPoint, 0, len(dates))
	for _, d := range dates {
		res, err := Evaluate(types.ValuationRequest{
			Terms:               terms,
			SettlementDate:      d,
			DiscountRatePercent: &yieldPercent,
		})
		if err != nil {
			return nil, err
		}

		points = append(points, ProjectionPoint{
			Date:                  d,
			CleanPrice:            res.CleanPrice,
			DirtyPrice:            res.DirtyPrice,
			ModifiedDurationYears: res.ModifiedDurationYears,
		})
	}

	return points, nil
}
