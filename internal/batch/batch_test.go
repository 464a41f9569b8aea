package batch

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"benritz/giltcalc/internal/pricing"
	"benritz/giltcalc/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(s string) time.Time {
	ts, err := types.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return ts
}

func price(p float64) *float64 {
	return &p
}

func writeTable(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadTable(t *testing.T) {
	path := writeTable(t, "holdings.csv", `Gilt holdings,,,,,
ISIN,Name,Coupon Rate,Issue Date,Maturity Date,Clean Price
GB00B24FF097,5% Treasury 2030,5,2020-01-01,2030-01-01,
gb00b24ff098,4½% Treasury Gilt 2039,,2019-01-01,2039-01-01,101.5
,,,,,
GB0000000003,Broken,abc,2020-01-01,2030-01-01,
`)

	rows, err := ReadTable(path)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.NoError(t, rows[0].Err)
	assert.Equal(t, 3, rows[0].Line)
	assert.Equal(t, "GB00B24FF097", rows[0].Terms.ISIN)
	assert.Equal(t, 5.0, rows[0].Terms.CouponRatePercent)
	assert.Equal(t, date("2030-01-01"), rows[0].Terms.MaturityDate)
	assert.Equal(t, types.DefaultFrequency, rows[0].Terms.Frequency)
	assert.Nil(t, rows[0].CleanPrice)

	assert.NoError(t, rows[1].Err)
	assert.Equal(t, "GB00B24FF098", rows[1].Terms.ISIN)
	assert.Equal(t, 4.5, rows[1].Terms.CouponRatePercent)
	require.NotNil(t, rows[1].CleanPrice)
	assert.Equal(t, 101.5, *rows[1].CleanPrice)

	assert.ErrorIs(t, rows[2].Err, ErrInvalidRow)
	assert.ErrorIs(t, rows[2].Err, types.ErrInvalidCoupon)
	assert.Equal(t, 6, rows[2].Line)
}

func TestReadTablePlainCSV(t *testing.T) {
	path := writeTable(t, "portfolio.csv", `ISIN,Coupon Rate,Issue Date,Maturity Date,Nominal
GB00B24FF097,4.75,2007-03-09,2030-12-07,"10,000"

GB00B52WS153,4.5,2009-03-09,2039-09-07,
GB00B24FF098,5,2020-01-01,2030-01-01,-5
`)

	rows, err := ReadTable(path)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	require.NoError(t, rows[0].Err)
	assert.Equal(t, 2, rows[0].Line)
	assert.Equal(t, 4.75, rows[0].Terms.CouponRatePercent)
	assert.Equal(t, date("2030-12-07"), rows[0].Terms.MaturityDate)
	require.NotNil(t, rows[0].Amount)
	assert.Equal(t, 10000.0, *rows[0].Amount)

	require.NoError(t, rows[1].Err)
	assert.Equal(t, 4, rows[1].Line)
	assert.Equal(t, "GB00B52WS153", rows[1].Terms.ISIN)
	assert.Nil(t, rows[1].Amount)

	assert.ErrorIs(t, rows[2].Err, ErrInvalidRow)
	assert.ErrorContains(t, rows[2].Err, "amount")
	assert.Nil(t, rows[2].Amount)
}

func TestReadTableTSV(t *testing.T) {
	path := writeTable(t, "portfolio.tsv", "ISIN\tName\tIssue Date\tMaturity Date\tAmount\n"+
		"GB00B24FF097\t4¾% Treasury Gilt 2030\t2007-03-09\t2030-12-07\t2500.5\n")

	rows, err := ReadTable(path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.NoError(t, rows[0].Err)
	assert.Equal(t, 4.75, rows[0].Terms.CouponRatePercent)
	assert.Equal(t, "4¾% Treasury Gilt 2030", rows[0].Terms.Name)
	require.NotNil(t, rows[0].Amount)
	assert.Equal(t, 2500.5, *rows[0].Amount)
}

func TestCheckAmount(t *testing.T) {
	assert.NoError(t, CheckAmount(nil))
	assert.NoError(t, CheckAmount(price(0)))
	assert.NoError(t, CheckAmount(price(1e6)))
	assert.ErrorIs(t, CheckAmount(price(-1)), types.ErrInvalidTerms)
	assert.ErrorIs(t, CheckAmount(price(math.NaN())), types.ErrInvalidTerms)
	assert.ErrorIs(t, CheckAmount(price(math.Inf(1))), types.ErrInvalidTerms)
}

func TestReadTableMissingColumns(t *testing.T) {
	_, err := ReadTable(writeTable(t, "no-isin.csv", "Name,Coupon\nTreasury,5\n"))
	assert.ErrorIs(t, err, ErrMissingColumn)

	_, err = ReadTable(writeTable(t, "no-dates.csv", "ISIN,Coupon\nGB00B24FF097,5\n"))
	assert.ErrorIs(t, err, ErrMissingColumn)
	assert.ErrorContains(t, err, "Maturity Date")

	_, err = ReadTable(writeTable(t, "empty.csv", "ISIN,Coupon,Issue Date,Maturity Date\n"))
	assert.ErrorIs(t, err, ErrNoRows)
}

func TestParseHeader(t *testing.T) {
	h, ok := parseHeader([]string{" isin ", "Coupon (%)", "First Issue Date", "Redemption_Date", "Frequency"})
	require.True(t, ok)
	assert.Equal(t, 0, h[colISIN])
	assert.Equal(t, 1, h[colCoupon])
	assert.Equal(t, 2, h[colIssueDate])
	assert.Equal(t, 3, h[colMaturityDate])
	assert.Equal(t, 4, h[colFrequency])
	assert.Equal(t, -1, h[colName])
	assert.Empty(t, h.missing())

	_, ok = parseHeader([]string{"Coupon", "Maturity"})
	assert.False(t, ok)
}

func testRows() []Row {
	return []Row{
		{Line: 1, Terms: types.NewUKGilt("GB00B24FF097", 5, date("2020-01-01"), date("2030-01-01"))},
		{Line: 2, Terms: types.NewUKGilt("GB00B24FF098", 5, date("2020-01-01"), date("2030-01-01")), CleanPrice: price(101.5)},
		{Line: 3, Terms: types.NewUKGilt("GB00B24FF099", 4, date("2019-01-01"), date("2029-01-01"))},
		{Line: 4, Terms: types.NewUKGilt("GB00B52WS153", 4.5, date("2019-01-01"), date("2039-01-01"))},
		{Line: 5, Err: ErrInvalidRow},
		{Line: 6, Terms: types.NewUKGilt("GB00B24FF100", 5, date("2025-01-01"), date("2035-01-01"))},
	}
}

func TestRunnerRun(t *testing.T) {
	runner := NewRunner(2, nil)
	runner.Quotes = NewQuoteIndex([]*types.Quote{
		{Source: "DMO", ISIN: "GB00B24FF099", CleanPrice: 98},
		{Source: "DMO", ISIN: "GB00B24FF098", CleanPrice: 90},
		{Source: "DividendData", CouponRatePercent: 4.5, MaturityDate: date("2039-01-01"), CleanPrice: 97},
		{Source: "DMO", ISIN: "GB00B24FF097", CleanPrice: 0},
	})

	rows := testRows()
	results, err := runner.Run(context.Background(), rows, date("2020-01-01"))
	require.NoError(t, err)
	require.Len(t, results, len(rows))

	for i, res := range results {
		assert.Equal(t, rows[i].Line, res.Row.Line)
	}

	require.NoError(t, results[0].Err)
	assert.Nil(t, results[0].Quote)
	assert.Equal(t, types.PriceSourceModelFlat, results[0].Valuation.PriceSource)
	assert.InDelta(t, 100.0, results[0].Valuation.CleanPrice, 1e-9)

	require.NoError(t, results[1].Err)
	assert.Nil(t, results[1].Quote)
	assert.Equal(t, 101.5, results[1].Valuation.CleanPrice)

	require.NoError(t, results[2].Err)
	require.NotNil(t, results[2].Quote)
	assert.Equal(t, types.PriceSourceMarket, results[2].Valuation.PriceSource)
	assert.Equal(t, 98.0, results[2].Valuation.CleanPrice)

	require.NoError(t, results[3].Err)
	require.NotNil(t, results[3].Quote)
	assert.Equal(t, "DividendData", results[3].Quote.Source)
	assert.Equal(t, 97.0, results[3].Valuation.CleanPrice)

	assert.ErrorIs(t, results[4].Err, ErrInvalidRow)
	assert.Nil(t, results[4].Valuation)

	assert.ErrorIs(t, results[5].Err, types.ErrOutOfRangeDate)
}

func TestRunnerRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := NewRunner(1, nil).Run(ctx, testRows(), date("2020-01-01"))
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, results, len(testRows()))
	for _, res := range results {
		assert.True(t, errors.Is(res.Err, context.Canceled))
	}
}

func TestQuoteIndexFind(t *testing.T) {
	var idx *QuoteIndex
	assert.Nil(t, idx.Find(types.GiltTerms{ISIN: "GB00B24FF097"}))
	assert.Equal(t, 0, idx.Len())

	idx = NewQuoteIndex([]*types.Quote{nil, {ISIN: "GB00B24FF097", CleanPrice: 99}})
	assert.Equal(t, 99.0, idx.Find(types.GiltTerms{ISIN: "GB00B24FF097"}).CleanPrice)
	assert.Nil(t, idx.Find(types.GiltTerms{ISIN: "GB00B24FF098"}))
}

func TestQuoteIndexLen(t *testing.T) {
	idx := NewQuoteIndex([]*types.Quote{
		{ISIN: "GB00B24FF097", CouponRatePercent: 4.75, MaturityDate: date("2030-12-07"), CleanPrice: 99},
		{ISIN: "GB00B52WS153", CleanPrice: 98},
		{CouponRatePercent: 4.5, MaturityDate: date("2039-09-07"), CleanPrice: 97},
		{ISIN: "GB00B24FF098", CleanPrice: 0},
	})
	assert.Equal(t, 3, idx.Len())

	byTerms := idx.Find(types.GiltTerms{CouponRatePercent: 4.75, MaturityDate: date("2030-12-07")})
	require.NotNil(t, byTerms)
	assert.Same(t, idx.Find(types.GiltTerms{ISIN: "GB00B24FF097"}), byTerms)
}

func TestProjectPortfolio(t *testing.T) {
	rows := []Row{
		{Line: 1, Terms: types.NewUKGilt("GB00B24FF097", 5, date("2020-01-01"), date("2030-01-01"))},
		{Line: 2, Terms: types.NewUKGilt("GB00B24FF098", 5, date("2020-01-01"), date("2025-01-01"))},
		{Line: 3, Err: ErrInvalidRow},
	}

	results, err := NewRunner(2, nil).Run(context.Background(), rows, date("2020-01-01"))
	require.NoError(t, err)

	points, err := ProjectPortfolio(results, date("2020-01-01"), pricing.StepAnnual)
	require.NoError(t, err)
	require.Len(t, points, 10)

	assert.Equal(t, date("2020-01-01"), points[0].Date)
	assert.Equal(t, 2, points[0].Holdings)
	assert.Equal(t, 2, points[4].Holdings)
	assert.Equal(t, 1, points[5].Holdings)
	assert.Equal(t, date("2029-01-01"), points[9].Date)

	for _, p := range points {
		assert.InDelta(t, 100.0, p.CleanPrice, 1e-6, p.Date.String())
	}

	long := results[0].Valuation.ModifiedDurationYears
	short := results[1].Valuation.ModifiedDurationYears
	assert.InDelta(t, (long+short)/2, points[0].ModifiedDurationYears, 1e-9)
	assert.InDelta(t, points[5].ModifiedDurationYears, 4.0, 0.5)

	_, err = ProjectPortfolio(results, date("2020-01-01"), pricing.ProjectionStep("weekly"))
	assert.ErrorIs(t, err, pricing.ErrInvalidStep)
}

func TestProjectPortfolioWeightsByAmount(t *testing.T) {
	rows := []Row{
		{Line: 1, Terms: types.NewUKGilt("GB00B24FF097", 5, date("2020-01-01"), date("2030-01-01")), Amount: price(3000)},
		{Line: 2, Terms: types.NewUKGilt("GB00B24FF098", 5, date("2020-01-01"), date("2025-01-01")), Amount: price(1000)},
	}

	results, err := NewRunner(2, nil).Run(context.Background(), rows, date("2020-01-01"))
	require.NoError(t, err)

	points, err := ProjectPortfolio(results, date("2020-01-01"), pricing.StepAnnual)
	require.NoError(t, err)
	require.NotEmpty(t, points)

	long := results[0].Valuation.ModifiedDurationYears
	short := results[1].Valuation.ModifiedDurationYears
	assert.InDelta(t, (3*long+short)/4, points[0].ModifiedDurationYears, 1e-9)
}

func TestSummarise(t *testing.T) {
	rows := []Row{
		{Line: 1, Terms: types.NewUKGilt("GB00B24FF097", 5, date("2020-01-01"), date("2030-01-01")), Amount: price(1000)},
		{Line: 2, Terms: types.NewUKGilt("GB00B24FF098", 4, date("2019-01-01"), date("2025-01-01")), CleanPrice: price(98)},
		{Line: 3, Err: ErrInvalidRow, Amount: price(500)},
		{Line: 4, Terms: types.NewUKGilt("GB00B24FF100", 5, date("2025-01-01"), date("2035-01-01")), Amount: price(700)},
	}

	results, err := NewRunner(2, nil).Run(context.Background(), rows, date("2020-01-01"))
	require.NoError(t, err)

	sum := Summarise(results)
	assert.Equal(t, 2, sum.Holdings)
	assert.Equal(t, "Aggregated Portfolio (2 Gilts)", sum.Description())
	assert.Equal(t, 1000.0, sum.TotalAmount)
	assert.InDelta(t, 1000.0, sum.MarketValue, 1e-6)
	assert.InDelta(t, 4.5, sum.AverageCoupon, 1e-12)
	assert.Equal(t, date("2030-01-01"), sum.LatestMaturity)
	assert.Equal(t, date("2019-01-01"), sum.EarliestIssue)
	assert.Equal(t, date("2020-07-01"), sum.NextCouponDate)

	assert.Equal(t, 1000.0, results[0].ResultRow(date("2020-01-01")).Amount)
	assert.Zero(t, results[1].ResultRow(date("2020-01-01")).Amount)

	empty := Summarise(nil)
	assert.Zero(t, empty.Holdings)
	assert.True(t, empty.LatestMaturity.IsZero())
	assert.True(t, empty.NextCouponDate.IsZero())
}
