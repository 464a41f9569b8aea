package batch

import (
	"context"
	"fmt"
	"math"
	"time"

	"benritz/giltcalc/internal/metrics"
	"benritz/giltcalc/internal/pricing"
	"benritz/giltcalc/internal/types"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const DefaultWorkers = 8

// Result is the valuation of one row. Quote is the market quote whose price
// was used, if any.
type Result struct {
	Row       Row
	Quote     *types.Quote
	Valuation *types.ValuationResult
	Err       error
}

// QuoteIndex finds the market quote for a gilt by ISIN, falling back to coupon
// and maturity for sources that publish no ISIN.
type QuoteIndex struct {
	byISIN  map[string]*types.Quote
	byTerms map[string]*types.Quote
	quotes  map[*types.Quote]struct{}
}

func termsKey(coupon float64, maturity time.Time) string {
	return fmt.Sprintf("%.4f|%s", coupon, types.Date(maturity).Format(types.DateLayout))
}

func NewQuoteIndex(quotes []*types.Quote) *QuoteIndex {
	idx := &QuoteIndex{
		byISIN:  map[string]*types.Quote{},
		byTerms: map[string]*types.Quote{},
		quotes:  map[*types.Quote]struct{}{},
	}
	for _, q := range quotes {
		if q == nil || q.CleanPrice <= 0 || math.IsNaN(q.CleanPrice) {
			continue
		}
		if q.ISIN != "" {
			idx.byISIN[q.ISIN] = q
		}
		if !q.MaturityDate.IsZero() {
			idx.byTerms[termsKey(q.CouponRatePercent, q.MaturityDate)] = q
		}
	}
	for _, q := range idx.byISIN {
		idx.quotes[q] = struct{}{}
	}
	for _, q := range idx.byTerms {
		idx.quotes[q] = struct{}{}
	}
	return idx
}

// Len is the number of distinct quotes that can be found.
func (idx *QuoteIndex) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.quotes)
}

func (idx *QuoteIndex) Find(terms types.GiltTerms) *types.Quote {
	if idx == nil {
		return nil
	}
	if q, ok := idx.byISIN[terms.ISIN]; ok {
		return q
	}
	return idx.byTerms[termsKey(terms.CouponRatePercent, terms.MaturityDate)]
}

// Runner values batches of rows. A price on the row takes precedence over a
// quote; rows with neither are model priced from Curve, or at the coupon rate
// when no curve is set.
type Runner struct {
	Workers int
	Quotes  *QuoteIndex
	Curve   types.Discounter
	Metrics *metrics.Metrics

	logger *zap.Logger
}

func NewRunner(workers int, logger *zap.Logger) *Runner {
	if workers < 1 {
		workers = DefaultWorkers
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		Workers: workers,
		logger:  logger,
	}
}

func (r *Runner) request(row Row, settlement time.Time) (types.ValuationRequest, *types.Quote) {
	req := types.ValuationRequest{
		Terms:            row.Terms,
		SettlementDate:   settlement,
		MarketCleanPrice: row.CleanPrice,
		Curve:            r.Curve,
	}

	var quote *types.Quote
	if req.MarketCleanPrice == nil {
		if quote = r.Quotes.Find(row.Terms); quote != nil {
			price := quote.CleanPrice
			req.MarketCleanPrice = &price
		}
	}

	return req, quote
}

func (r *Runner) evaluate(row Row, settlement time.Time) Result {
	res := Result{Row: row}
	if row.Err != nil {
		res.Err = row.Err
		return res
	}

	req, quote := r.request(row, settlement)
	res.Quote = quote

	start := time.Now()
	res.Valuation, res.Err = pricing.Evaluate(req)

	var source types.PriceSource
	if res.Valuation != nil {
		source = res.Valuation.PriceSource
	}
	r.Metrics.ObserveEvaluation(source, res.Err, time.Since(start))

	if res.Err != nil {
		r.logger.Debug("row failed",
			zap.Int("line", row.Line),
			zap.String("isin", row.Terms.ISIN),
			zap.Error(res.Err),
		)
	}

	return res
}

// Run values every row as of settlement and returns the results in input
// order. Row failures are recorded on the result. When ctx is cancelled no
// further rows are started; those rows carry the context error, which is also
// returned.
func (r *Runner) Run(ctx context.Context, rows []Row, settlement time.Time) ([]Result, error) {
	start := time.Now()
	settlement = types.Date(settlement)
	results := make([]Result, len(rows))

	g := new(errgroup.Group)
	g.SetLimit(r.Workers)

	var cancelled error
	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			cancelled = err
			for j := i; j < len(rows); j++ {
				results[j] = Result{Row: rows[j], Err: err}
			}
			break
		}

		g.Go(func() error {
			results[i] = r.evaluate(row, settlement)
			return nil
		})
	}

	// evaluate never returns an error
	_ = g.Wait()

	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
		}
	}

	r.Metrics.ObserveBatch(len(rows), time.Since(start))
	r.logger.Info("batch valued",
		zap.String("settlement", settlement.Format(types.DateLayout)),
		zap.Int("rows", len(rows)),
		zap.Int("failed", failed),
		zap.Duration("elapsed", time.Since(start)),
	)

	return results, cancelled
}
