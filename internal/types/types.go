package types

import (
	"time"
)

type BondType string

var (
	UKGilt BondType = "UK Gilt"
)

// DefaultFrequency is the number of coupon payments per year for conventional gilts.
const DefaultFrequency = 2

// FaceValue is the nominal every price and cashflow is quoted against.
const FaceValue = 100.0

// GiltTerms are the static terms of a conventional fixed coupon gilt.
type GiltTerms struct {
	Type              BondType
	ISIN              string
	Name              string
	CouponRatePercent float64
	IssueDate         time.Time
	MaturityDate      time.Time
	Frequency         int
}

func NewUKGilt(isin string, coupon float64, issueDate, maturityDate time.Time) GiltTerms {
	return GiltTerms{
		Type:              UKGilt,
		ISIN:              isin,
		CouponRatePercent: coupon,
		IssueDate:         issueDate,
		MaturityDate:      maturityDate,
		Frequency:         DefaultFrequency,
	}
}

// PaymentsPerYear returns the coupon frequency, defaulting to semi-annual.
func (t GiltTerms) PaymentsPerYear() int {
	if t.Frequency == 0 {
		return DefaultFrequency
	}
	return t.Frequency
}

// CouponPayment is the coupon paid each period per 100 face value.
func (t GiltTerms) CouponPayment() float64 {
	return t.CouponRatePercent / float64(t.PaymentsPerYear())
}

// Discounter maps a time in years from settlement to a discount factor.
type Discounter interface {
	DiscountFactor(years float64) float64
}

type ValuationRequest struct {
	Terms          GiltTerms
	SettlementDate time.Time

	// MarketCleanPrice is the observed clean price; nil asks for a model price.
	MarketCleanPrice *float64

	// DiscountRatePercent is the flat annual rate used for the model price.
	// When nil the coupon rate is used.
	DiscountRatePercent *float64

	// Curve, when set, replaces the flat discount rate for the model price.
	Curve Discounter
}

type PriceSource string

var (
	PriceSourceMarket     PriceSource = "market"
	PriceSourceModelFlat  PriceSource = "model-flat"
	PriceSourceModelCurve PriceSource = "model-curve"
)

type Cashflow struct {
	Date       time.Time
	Coupon     float64
	Redemption float64
}

func (c Cashflow) Amount() float64 {
	return c.Coupon + c.Redemption
}

// ValuationResult is produced fresh for every request and never mutated afterwards.
type ValuationResult struct {
	ISIN                   string
	SettlementDate         time.Time
	PriceSource            PriceSource
	YieldToMaturityPercent float64
	CleanPrice             float64
	DirtyPrice             float64
	AccruedInterest        float64
	AccruedDays            int
	CouponPeriodDays       int
	PrevCouponDate         time.Time
	NextCouponDate         time.Time
	ModifiedDurationYears  float64
	MacaulayDurationYears  float64
	Convexity              float64
	PV01                   float64
	Cashflows              []Cashflow
}

// Quote is a market observation for a single gilt.
type Quote struct {
	Source            string
	ISIN              string
	Ticker            string
	Desc              string
	CouponRatePercent float64
	MaturityDate      time.Time
	CleanPrice        float64
	DirtyPrice        float64
	YieldPercent      float64
	QuoteDate         time.Time
}

func NewQuote(source string, date time.Time) *Quote {
	return &Quote{
		Source:    source,
		QuoteDate: date,
	}
}
