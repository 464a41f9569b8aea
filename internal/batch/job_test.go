package batch

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"benritz/giltcalc/internal/collect"
	"benritz/giltcalc/internal/store"
	"benritz/giltcalc/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCollector struct {
	quotes *collect.CollectedQuotes
	err    error
}

func (c *stubCollector) Collect(ctx context.Context, date time.Time) (*collect.CollectedQuotes, error) {
	return c.quotes, c.err
}

func (c *stubCollector) Source() string {
	return "stub"
}

const jobTable = `ISIN,Name,Coupon Rate,Issue Date,Maturity Date,Nominal
GB00B24FF097,5% Treasury 2030,5,2020-01-01,2030-01-01,1000
GB00B24FF098,4% Treasury 2025,4,2020-01-01,2025-01-01,2000
GB00B24FF099,Broken,,2020-01-01,2025-01-01,
`

func TestRunJob(t *testing.T) {
	quotes := collect.NewCollectedQuotes("stub", date("2020-01-01"))
	quotes.AddQuote(&collect.CollectedQuote{Quote: &types.Quote{Source: "stub", ISIN: "GB00B24FF098", CleanPrice: 96.5}})

	out := t.TempDir()
	job := Job{
		Input:          writeTable(t, "holdings.csv", jobTable),
		Output:         out,
		Settlement:     date("2020-01-01"),
		WriteCashflows: true,
		Collector:      &stubCollector{quotes: quotes},
	}

	res, err := NewRunner(2, nil).RunJob(context.Background(), job)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Failed)
	require.Len(t, res.Results, 3)
	assert.Equal(t, []string{
		filepath.Join(out, "2020", "01", "01", "results.parquet"),
		filepath.Join(out, "2020", "01", "01", "cashflows.parquet"),
		filepath.Join(out, "2020", "01", "01", "quotes.parquet"),
	}, res.Paths)

	rows, err := store.ReadParquet[store.ResultRow](res.Paths[0])
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "model-flat", rows[0].PriceSource)
	assert.Equal(t, "market", rows[1].PriceSource)
	assert.Equal(t, 96.5, rows[1].CleanPrice)
	assert.NotEmpty(t, rows[2].Error)
	assert.Equal(t, 1000.0, rows[0].Amount)
	assert.Equal(t, 2000.0, rows[1].Amount)

	assert.Equal(t, 2, res.Summary.Holdings)
	assert.Equal(t, 3000.0, res.Summary.TotalAmount)
	assert.InDelta(t, 1000+2000*0.965, res.Summary.MarketValue, 1e-6)
	assert.InDelta(t, 4.5, res.Summary.AverageCoupon, 1e-12)
	assert.Equal(t, date("2030-01-01"), res.Summary.LatestMaturity)
	assert.Equal(t, date("2020-07-01"), res.Summary.NextCouponDate)

	flows, err := store.ReadParquet[store.CashflowRow](res.Paths[1])
	require.NoError(t, err)
	assert.Len(t, flows, 30)
}

func TestRunJobWithoutQuotes(t *testing.T) {
	out := t.TempDir()
	job := Job{
		Input:      writeTable(t, "holdings.csv", jobTable),
		Output:     out,
		Settlement: date("2020-01-01"),
		Collector:  &stubCollector{err: types.ErrDataUnavailable},
	}

	res, err := NewRunner(1, nil).RunJob(context.Background(), job)
	require.NoError(t, err)
	assert.Len(t, res.Paths, 1)
	assert.Equal(t, types.PriceSourceModelFlat, res.Results[1].Valuation.PriceSource)

	_, err = NewRunner(1, nil).RunJob(context.Background(), Job{Input: "s3://bucket/holdings.csv", Output: out})
	assert.ErrorContains(t, err, "no s3 client")
}
