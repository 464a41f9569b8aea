// Package collect gathers market quotes for conventional gilts from public
// price sources. Quotes supply the market clean price for batch valuations.
package collect

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"benritz/giltcalc/internal/types"

	"go.uber.org/zap"
)

var (
	ErrInvaidRow = fmt.Errorf("invalid row")
)

type CollectedQuote struct {
	Quote *types.Quote
	Err   error
}

// SetError keeps the first error recorded against the quote.
func (c *CollectedQuote) SetError(err error) {
	if c.Err == nil {
		c.Err = err
	}
}

type CollectedQuotes struct {
	Quotes    []*types.Quote
	Failures  []*CollectedQuote
	Source    string
	QuoteDate time.Time
}

func (c *CollectedQuotes) AddQuote(cq *CollectedQuote) {
	if cq.Err == nil {
		c.Quotes = append(c.Quotes, cq.Quote)
	} else {
		c.Failures = append(c.Failures, cq)
	}
}

func NewCollectedQuotes(source string, date time.Time) *CollectedQuotes {
	return &CollectedQuotes{
		Source:    source,
		QuoteDate: date,
		Quotes:    []*types.Quote{},
		Failures:  []*CollectedQuote{},
	}
}

type Collector interface {
	Collect(ctx context.Context, date time.Time) (*CollectedQuotes, error)
	Source() string
}

var ErrUnknownSource = fmt.Errorf("unknown quote source")

// NewCollector returns the collector for a configured source name, or nil
// when source is empty.
func NewCollector(source string, logger *zap.Logger) (Collector, error) {
	switch strings.ToLower(source) {
	case "":
		return nil, nil
	case "dmo":
		return NewDMOCollector(logger), nil
	case "dividenddata":
		return NewDividendDataCollector(logger), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownSource, source)
}

var couponPattern = regexp.MustCompile(`^(\d+\s+\d+/\d+|\d+/\d+|\d*[¼½¾⅛⅜⅝⅞]|\d+(?:\.\d+)?)\s*%`)

var vulgarFractions = map[rune]float64{
	'¼': 0.25,
	'½': 0.5,
	'¾': 0.75,
	'⅛': 0.125,
	'⅜': 0.375,
	'⅝': 0.625,
	'⅞': 0.875,
}

// ParseCoupon parses the coupon percentage that leads a gilt description,
// in any of the forms
//
//	0 5/8% Treasury Gilt 2025
//	2% Treasury Gilt 2025
//	3½% Treasury Gilt 2025
//	1.25% Treasury Gilt 2041
//
// Returns:
//
//	Coupon percentage
func ParseCoupon(desc string) (float64, error) {
	match := couponPattern.FindStringSubmatch(strings.TrimSpace(desc))
	if len(match) < 2 {
		return 0, types.ErrInvalidCoupon
	}

	m := match[1]

	// whole number followed by a vulgar fraction, e.g. 3½
	r := []rune(m)
	if frac, ok := vulgarFractions[r[len(r)-1]]; ok {
		whole := 0.0
		if len(r) > 1 {
			w, err := strconv.Atoi(string(r[:len(r)-1]))
			if err != nil {
				return 0, types.ErrInvalidCoupon
			}
			whole = float64(w)
		}
		return whole + frac, nil
	}

	if !strings.Contains(m, "/") {
		val, err := strconv.ParseFloat(m, 64)
		if err != nil {
			return 0, types.ErrInvalidCoupon
		}
		return val, nil
	}

	whole := 0
	parts := strings.Fields(m)
	if len(parts) == 2 {
		w, err := strconv.Atoi(parts[0])
		if err != nil {
			return 0, types.ErrInvalidCoupon
		}
		whole = w
	}

	fractionParts := strings.Split(parts[len(parts)-1], "/")
	if len(fractionParts) != 2 {
		return 0, types.ErrInvalidCoupon
	}
	num, err := strconv.Atoi(fractionParts[0])
	if err != nil {
		return 0, types.ErrInvalidCoupon
	}
	den, err := strconv.Atoi(fractionParts[1])
	if err != nil || den == 0 {
		return 0, types.ErrInvalidCoupon
	}

	return float64(whole) + float64(num)/float64(den), nil
}

func parsePrice(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "Â£")
	s = strings.TrimPrefix(s, "£")
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}
