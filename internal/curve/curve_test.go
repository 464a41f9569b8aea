package curve

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const snapshots = `{
  "2024-06-03": [{"year": 1, "rate": 4.0}, {"year": 5, "rate": 4.4}, {"year": 10, "rate": 4.8}],
  "2024-06-13": [{"year": 1, "rate": 5.0}, {"year": 5, "rate": 5.4}, {"year": 30, "rate": 6.0}],
  "2024-06-20": []
}`

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestFlat(t *testing.T) {
	f := Flat{RatePercent: 5, Frequency: 2}
	assert.InDelta(t, 1/1.025, f.DiscountFactor(0.5), 1e-15)
	assert.InDelta(t, math.Pow(1.025, -20), f.DiscountFactor(10), 1e-15)
	assert.Equal(t, 1.0, f.DiscountFactor(0))
}

func TestSpotRate(t *testing.T) {
	s, err := NewSpot([]Point{{Years: 10, RatePercent: 5}, {Years: 2, RatePercent: 3}, {Years: 0, RatePercent: 9}})
	require.NoError(t, err)

	assert.Len(t, s.Points(), 2)
	assert.Equal(t, 3.0, s.Rate(1))
	assert.Equal(t, 3.0, s.Rate(2))
	assert.InDelta(t, 4.0, s.Rate(6), 1e-12)
	assert.Equal(t, 5.0, s.Rate(40))
	assert.InDelta(t, math.Pow(1.02, -12), s.DiscountFactor(6), 1e-12)

	_, err = NewSpot(nil)
	assert.ErrorIs(t, err, ErrEmptyCurve)
}

func TestSpotCurvesAt(t *testing.T) {
	curves, err := ParseSpotCurves([]byte(snapshots))
	require.NoError(t, err)
	assert.Len(t, curves.Dates(), 2)

	t.Run("exact date", func(t *testing.T) {
		s, err := curves.At(day(2024, 6, 3))
		require.NoError(t, err)
		assert.Len(t, s.Points(), 3)
		assert.Equal(t, 4.8, s.Rate(10))
	})

	t.Run("interpolated", func(t *testing.T) {
		s, err := curves.At(day(2024, 6, 8))
		require.NoError(t, err)

		pts := s.Points()
		require.Len(t, pts, 2)
		assert.InDelta(t, 4.5, pts[0].RatePercent, 1e-12)
		assert.InDelta(t, 4.9, pts[1].RatePercent, 1e-12)
	})

	t.Run("outside snapshots", func(t *testing.T) {
		_, err := curves.At(day(2024, 6, 1))
		assert.ErrorIs(t, err, ErrNoCurveForDate)
		_, err = curves.At(day(2024, 7, 1))
		assert.ErrorIs(t, err, ErrNoCurveForDate)
	})
}

func TestLoadSpotCurves(t *testing.T) {
	path := filepath.Join(t.TempDir(), "SpotRates.json")
	require.NoError(t, os.WriteFile(path, []byte(snapshots), 0o644))

	curves, err := LoadSpotCurves(path)
	require.NoError(t, err)
	assert.Equal(t, day(2024, 6, 13), curves.Dates()[1])

	_, err = ParseSpotCurves([]byte(`{"bad": [{"year": 1, "rate": 1}]}`))
	assert.ErrorIs(t, err, ErrInvalidCurveRow)
}
