// Package curve provides discount factors for model prices: a flat annual
// rate, or a spot (zero coupon) curve loaded from dated snapshots.
package curve

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"time"

	"benritz/giltcalc/internal/types"
)

var (
	ErrEmptyCurve      = fmt.Errorf("curve has no points")
	ErrNoCurveForDate  = fmt.Errorf("no curve available for date")
	ErrInvalidCurveRow = fmt.Errorf("invalid curve point")
)

// Flat discounts at a single annual rate compounded Frequency times a year.
type Flat struct {
	RatePercent float64
	Frequency   int
}

func (f Flat) DiscountFactor(years float64) float64 {
	n := float64(f.Frequency)
	if n == 0 {
		n = types.DefaultFrequency
	}
	return math.Pow(1+f.RatePercent/100/n, -n*years)
}

// Point is one tenor of a spot curve.
type Point struct {
	Years       float64 `json:"year"`
	RatePercent float64 `json:"rate"`
}

// Spot is a zero coupon curve with semi-annually compounded rates, linear
// interpolation between tenors and flat extrapolation beyond them.
type Spot struct {
	points []Point
}

func NewSpot(points []Point) (*Spot, error) {
	var valid []Point
	for _, p := range points {
		if p.Years <= 0 || math.IsNaN(p.RatePercent) || math.IsInf(p.RatePercent, 0) {
			continue
		}
		valid = append(valid, p)
	}
	if len(valid) == 0 {
		return nil, ErrEmptyCurve
	}

	sort.Slice(valid, func(i, j int) bool { return valid[i].Years < valid[j].Years })

	return &Spot{points: valid}, nil
}

func (s *Spot) Points() []Point {
	return append([]Point(nil), s.points...)
}

// Rate returns the interpolated zero rate in percent at a tenor in years.
func (s *Spot) Rate(years float64) float64 {
	pts := s.points
	if years <= pts[0].Years {
		return pts[0].RatePercent
	}
	last := pts[len(pts)-1]
	if years >= last.Years {
		return last.RatePercent
	}

	i := sort.Search(len(pts), func(i int) bool { return pts[i].Years >= years })
	lo, hi := pts[i-1], pts[i]
	w := (years - lo.Years) / (hi.Years - lo.Years)
	return lo.RatePercent + w*(hi.RatePercent-lo.RatePercent)
}

func (s *Spot) DiscountFactor(years float64) float64 {
	if years <= 0 {
		return 1
	}
	r := s.Rate(years) / 100
	return math.Pow(1+r/2, -2*years)
}

// SpotCurves holds spot curve snapshots keyed by observation date.
type SpotCurves struct {
	dates  []time.Time
	points map[time.Time][]Point
}

// ParseSpotCurves reads snapshots in the form
//
//	{"2024-06-03": [{"year": 0.5, "rate": 5.12}, {"year": 1, "rate": 4.87}]}
func ParseSpotCurves(data []byte) (*SpotCurves, error) {
	var raw map[string][]Point
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode spot curves: %w", err)
	}

	curves := &SpotCurves{points: make(map[time.Time][]Point, len(raw))}
	for k, pts := range raw {
		d, err := types.ParseDate(k)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCurveRow, err)
		}
		if len(pts) == 0 {
			continue
		}
		curves.points[d] = pts
		curves.dates = append(curves.dates, d)
	}

	if len(curves.dates) == 0 {
		return nil, ErrEmptyCurve
	}

	sort.Slice(curves.dates, func(i, j int) bool { return curves.dates[i].Before(curves.dates[j]) })

	return curves, nil
}

func LoadSpotCurves(path string) (*SpotCurves, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseSpotCurves(data)
}

func (c *SpotCurves) Dates() []time.Time {
	return append([]time.Time(nil), c.dates...)
}

// At returns the curve observed on date, or one interpolated linearly
// between the nearest snapshots either side of it. Only tenors present in
// both snapshots are kept.
func (c *SpotCurves) At(date time.Time) (*Spot, error) {
	date = types.Date(date)
	if pts, ok := c.points[date]; ok {
		return NewSpot(pts)
	}

	i := sort.Search(len(c.dates), func(i int) bool { return c.dates[i].After(date) })
	if i == 0 || i == len(c.dates) {
		return nil, fmt.Errorf("%w: %s", ErrNoCurveForDate, date.Format(types.DateLayout))
	}

	before, after := c.dates[i-1], c.dates[i]
	alpha := float64(types.DaysBetween(before, date)) / float64(types.DaysBetween(before, after))

	afterRates := make(map[float64]float64, len(c.points[after]))
	for _, p := range c.points[after] {
		afterRates[p.Years] = p.RatePercent
	}

	var pts []Point
	for _, p := range c.points[before] {
		if r, ok := afterRates[p.Years]; ok {
			pts = append(pts, Point{Years: p.Years, RatePercent: p.RatePercent + alpha*(r-p.RatePercent)})
		}
	}

	return NewSpot(pts)
}
