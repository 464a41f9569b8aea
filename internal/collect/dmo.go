package collect

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"benritz/giltcalc/internal/types"

	"github.com/pbnjay/grate"
	_ "github.com/pbnjay/grate/xls"
	"go.uber.org/zap"
)

var SourceDMO = "DMO"

// DMOExportURL is the DMO data export endpoint. Report D10B lists the
// reference prices of every gilt for a trade date.
var DMOExportURL = "https://www.dmo.gov.uk/umbraco/surface/DataExport/GetDataExport"

type DMOCollector struct {
	BaseURL string
	Client  *http.Client
	logger  *zap.Logger
}

func NewDMOCollector(logger *zap.Logger) *DMOCollector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DMOCollector{
		BaseURL: DMOExportURL,
		Client:  &http.Client{Timeout: 60 * time.Second},
		logger:  logger.With(zap.String("source", SourceDMO)),
	}
}

func (c *DMOCollector) reportURL(date time.Time) string {
	params := fmt.Sprintf("&Trade Date=%02d-%02d-%04d", date.Day(), date.Month(), date.Year())
	return c.BaseURL + "?reportCode=D10B&exportFormatValue=xls&parameters=" + url.QueryEscape(params)
}

func (c *DMOCollector) Collect(ctx context.Context, date time.Time) (*CollectedQuotes, error) {
	u := c.reportURL(date)
	c.logger.Info("fetching report", zap.String("url", u))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to get data: http %d", resp.StatusCode)
	}

	// grate opens workbooks by file name
	tmp, err := os.CreateTemp("", "gilt-*.xls")
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp.Name())

	size, err := io.Copy(tmp, resp.Body)
	tmp.Close()
	if err != nil {
		return nil, err
	}

	c.logger.Debug("downloaded report", zap.Int64("bytes", size), zap.String("path", tmp.Name()))

	return c.collectFile(tmp.Name(), date)
}

func (c *DMOCollector) collectFile(path string, date time.Time) (*CollectedQuotes, error) {
	wb, err := grate.Open(path)
	if err != nil {
		return nil, err
	}
	defer wb.Close()

	collected := NewCollectedQuotes(SourceDMO, date)
	parsed := 0

	sheets, err := wb.List()
	if err != nil {
		return nil, err
	}
	for _, sheetName := range sheets {
		sheet, err := wb.Get(sheetName)
		if err != nil {
			return nil, err
		}

		for sheet.Next() {
			cq, err := c.parseRow(date, sheet.Strings())
			if err == nil {
				collected.AddQuote(cq)
				parsed++
			}
		}
	}

	if parsed == 0 {
		return nil, types.ErrDataUnavailable
	}

	c.logger.Info("collected quotes",
		zap.Int("quotes", len(collected.Quotes)),
		zap.Int("failures", len(collected.Failures)),
	)

	return collected, nil
}

func (d *DMOCollector) Source() string {
	return SourceDMO
}

var (
	DMO_COL_ISIN          = 0
	DMO_COL_DESC          = 1
	DMO_COL_CLEAN_PRICE   = 2
	DMO_COL_DIRTY_PRICE   = 3
	DMO_COL_YIELD         = 4
	DMO_COL_MATURITY_DATE = 7
)

func (c *DMOCollector) parseRow(date time.Time, row []string) (*CollectedQuote, error) {
	if len(row) <= DMO_COL_MATURITY_DATE {
		return nil, ErrInvaidRow
	}

	isin := strings.TrimSpace(row[DMO_COL_ISIN])
	if !strings.HasPrefix(isin, "GB") {
		return nil, ErrInvaidRow
	}

	q := types.NewQuote(SourceDMO, date)
	q.ISIN = isin
	q.Desc = strings.TrimSpace(row[DMO_COL_DESC])

	if strings.Contains(strings.ToLower(q.Desc), "index-linked") {
		return nil, types.ErrUnsupportedBond
	}

	cq := &CollectedQuote{Quote: q}

	if coupon, err := ParseCoupon(q.Desc); err == nil {
		q.CouponRatePercent = coupon
	} else {
		cq.SetError(types.ErrInvalidCoupon)
	}

	if cleanPrice, err := parsePrice(row[DMO_COL_CLEAN_PRICE]); err == nil {
		q.CleanPrice = cleanPrice
	} else {
		cq.SetError(types.ErrInvalidPrice)
	}

	if dirtyPrice, err := parsePrice(row[DMO_COL_DIRTY_PRICE]); err == nil {
		q.DirtyPrice = dirtyPrice
	} else {
		cq.SetError(types.ErrInvalidPrice)
	}

	// the yield column is blank for gilts close to redemption
	if y, err := parsePrice(row[DMO_COL_YIELD]); err == nil {
		q.YieldPercent = y
	}

	if ts, err := types.ParseDate(row[DMO_COL_MATURITY_DATE]); err == nil {
		q.MaturityDate = ts
	} else {
		cq.SetError(types.ErrInvalidDate)
	}

	if cq.Err == nil && !types.ValidISIN(q.ISIN) {
		cq.SetError(types.ErrInvalidTerms)
	}

	return cq, nil
}
