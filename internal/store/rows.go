package store

import (
	"time"

	"benritz/giltcalc/internal/types"
)

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(types.DateLayout)
}

// ResultRow is one valuation, or the reason it failed.
type ResultRow struct {
	ISIN               string  `parquet:"isin" json:"isin"`
	Name               string  `parquet:"name" json:"name,omitempty"`
	Coupon             float64 `parquet:"coupon" json:"coupon"`
	Amount             float64 `parquet:"amount" json:"amount,omitempty"`
	IssueDate          string  `parquet:"issue_date" json:"issueDate"`
	MaturityDate       string  `parquet:"maturity_date" json:"maturityDate"`
	SettlementDate     string  `parquet:"settlement_date" json:"settlementDate"`
	PriceSource        string  `parquet:"price_source" json:"priceSource,omitempty"`
	CleanPrice         float64 `parquet:"clean_price" json:"cleanPrice"`
	DirtyPrice         float64 `parquet:"dirty_price" json:"dirtyPrice"`
	AccruedInterest    float64 `parquet:"accrued_interest" json:"accruedInterest"`
	YieldToMaturity    float64 `parquet:"yield_to_maturity" json:"yieldToMaturity"`
	ModifiedDuration   float64 `parquet:"modified_duration" json:"modifiedDuration"`
	MacaulayDuration   float64 `parquet:"macaulay_duration" json:"macaulayDuration"`
	Convexity          float64 `parquet:"convexity" json:"convexity"`
	PV01               float64 `parquet:"pv01" json:"pv01"`
	NextCouponDate     string  `parquet:"next_coupon_date" json:"nextCouponDate,omitempty"`
	RemainingCashflows int64   `parquet:"remaining_cashflows" json:"remainingCashflows"`
	Error              string  `parquet:"error" json:"error,omitempty"`
}

func NewResultRow(terms types.GiltTerms, settlement time.Time, res *types.ValuationResult, err error) ResultRow {
	row := ResultRow{
		ISIN:           terms.ISIN,
		Name:           terms.Name,
		Coupon:         terms.CouponRatePercent,
		IssueDate:      formatDate(terms.IssueDate),
		MaturityDate:   formatDate(terms.MaturityDate),
		SettlementDate: formatDate(settlement),
	}

	if err != nil {
		row.Error = err.Error()
		return row
	}

	row.PriceSource = string(res.PriceSource)
	row.CleanPrice = res.CleanPrice
	row.DirtyPrice = res.DirtyPrice
	row.AccruedInterest = res.AccruedInterest
	row.YieldToMaturity = res.YieldToMaturityPercent
	row.ModifiedDuration = res.ModifiedDurationYears
	row.MacaulayDuration = res.MacaulayDurationYears
	row.Convexity = res.Convexity
	row.PV01 = res.PV01
	row.RemainingCashflows = int64(len(res.Cashflows))
	if len(res.Cashflows) > 0 {
		row.NextCouponDate = formatDate(res.NextCouponDate)
	}

	return row
}

type CashflowRow struct {
	ISIN       string  `parquet:"isin" json:"isin"`
	Date       string  `parquet:"date" json:"date"`
	Coupon     float64 `parquet:"coupon" json:"coupon"`
	Redemption float64 `parquet:"redemption" json:"redemption"`
	Amount     float64 `parquet:"amount" json:"amount"`
}

func NewCashflowRows(isin string, flows []types.Cashflow) []CashflowRow {
	rows := make([]CashflowRow, 0, len(flows))
	for _, cf := range flows {
		rows = append(rows, CashflowRow{
			ISIN:       isin,
			Date:       formatDate(cf.Date),
			Coupon:     cf.Coupon,
			Redemption: cf.Redemption,
			Amount:     cf.Amount(),
		})
	}
	return rows
}

type QuoteRow struct {
	Source       string  `parquet:"source"`
	ISIN         string  `parquet:"isin"`
	Ticker       string  `parquet:"ticker"`
	Desc         string  `parquet:"desc"`
	Coupon       float64 `parquet:"coupon"`
	MaturityDate string  `parquet:"maturity_date"`
	CleanPrice   float64 `parquet:"clean_price"`
	DirtyPrice   float64 `parquet:"dirty_price"`
	Yield        float64 `parquet:"yield"`
	QuoteDate    string  `parquet:"quote_date"`
}

func NewQuoteRows(quotes []*types.Quote) []QuoteRow {
	rows := make([]QuoteRow, 0, len(quotes))
	for _, q := range quotes {
		rows = append(rows, QuoteRow{
			Source:       q.Source,
			ISIN:         q.ISIN,
			Ticker:       q.Ticker,
			Desc:         q.Desc,
			Coupon:       q.CouponRatePercent,
			MaturityDate: formatDate(q.MaturityDate),
			CleanPrice:   q.CleanPrice,
			DirtyPrice:   q.DirtyPrice,
			Yield:        q.YieldPercent,
			QuoteDate:    formatDate(q.QuoteDate),
		})
	}
	return rows
}
