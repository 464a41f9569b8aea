package collect

import (
	"context"
	"strings"
	"time"

	"benritz/giltcalc/internal/types"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

var (
	SourceDividendData = "DividendData"
	DividendDataURL    = "https://www.dividenddata.co.uk/uk-gilts-prices-yields.py"
)

type DividendDataCollector struct {
	URL    string
	logger *zap.Logger
}

func NewDividendDataCollector(logger *zap.Logger) *DividendDataCollector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DividendDataCollector{
		URL:    DividendDataURL,
		logger: logger.With(zap.String("source", SourceDividendData)),
	}
}

func (c *DividendDataCollector) Collect(ctx context.Context, date time.Time) (*CollectedQuotes, error) {
	x := colly.NewCollector()
	x.Context = ctx

	// check page date matches requested date
	// the page is updated daily, but the data may not be available yet
	const datePrefix = "Last updated: "
	var dataTs time.Time

	x.OnHTML("label", func(e *colly.HTMLElement) {
		if s, ok := strings.CutPrefix(strings.TrimSpace(e.Text), datePrefix); ok {
			dataTs, _ = types.ParseDate(s)
		}
	})

	collected := NewCollectedQuotes(SourceDividendData, date)

	x.OnHTML("#mainbody tr", func(e *colly.HTMLElement) {
		if cq := c.readQuote(e, date); cq != nil {
			collected.AddQuote(cq)
		}
	})

	c.logger.Info("fetching page", zap.String("url", c.URL))

	if err := x.Visit(c.URL); err != nil {
		return nil, err
	}

	if dataTs.IsZero() {
		return nil, types.ErrDataUnavailable
	}

	if !dataTs.Equal(types.Date(date)) {
		c.logger.Warn("stale page",
			zap.Time("updated", dataTs),
			zap.Time("requested", types.Date(date)),
		)
		return nil, types.ErrDataUnavailable
	}

	return collected, nil
}

func (d *DividendDataCollector) Source() string {
	return SourceDividendData
}

var (
	DD_COL_TICKER            = 0
	DD_COL_DESC              = 1
	DD_COL_COUPON            = 2
	DD_COL_MATURITY_DATE     = 3
	DD_COL_MATURITY_DURATION = 4
	DD_COL_PRICE             = 5
	DD_COL_MATURITY_YIELD    = 6
)

// readQuote returns nil for rows without cells, such as the header row.
func (c *DividendDataCollector) readQuote(e *colly.HTMLElement, date time.Time) *CollectedQuote {
	if e.DOM.Find("td").Length() == 0 {
		return nil
	}

	q := types.NewQuote(SourceDividendData, date)

	cq := &CollectedQuote{Quote: q}

	e.ForEach("td", func(col int, el *colly.HTMLElement) {
		text := strings.TrimSpace(el.Text)
		switch col {
		case DD_COL_TICKER:
			q.Ticker = text
			if q.Ticker == "" {
				cq.SetError(types.ErrInvalidTicker)
			}
		case DD_COL_DESC:
			q.Desc = text
			if q.Desc == "" {
				cq.SetError(types.ErrInvalidDesc)
			}
		case DD_COL_COUPON:
			if coupon, err := ParseCoupon(strings.TrimSuffix(text, "%") + "%"); err == nil {
				q.CouponRatePercent = coupon
			} else {
				cq.SetError(types.ErrInvalidCoupon)
			}
		case DD_COL_MATURITY_DATE:
			if ts, err := types.ParseDate(text); err == nil {
				q.MaturityDate = ts
			} else {
				cq.SetError(types.ErrInvalidDate)
			}
		case DD_COL_MATURITY_DURATION:
			// ignore, calculated from maturity date
		case DD_COL_PRICE:
			if price, err := parsePrice(text); err == nil {
				q.CleanPrice = price
			} else {
				cq.SetError(types.ErrInvalidPrice)
			}
		case DD_COL_MATURITY_YIELD:
			if y, err := parsePrice(strings.TrimSuffix(text, "%")); err == nil {
				q.YieldPercent = y
			} else {
				cq.SetError(types.ErrInvalidYield)
			}
		}
	})

	return cq
}
