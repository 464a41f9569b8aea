package server

import (
	"time"

	"benritz/giltcalc/internal/pricing"
	"benritz/giltcalc/internal/types"
)

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(types.DateLayout)
}

type cashflowResponse struct {
	Date       string  `json:"date"`
	Coupon     float64 `json:"coupon"`
	Redemption float64 `json:"redemption"`
	Amount     float64 `json:"amount"`
}

type sensitivityResponse struct {
	ShiftPercent  float64 `json:"shift"`
	Label         string  `json:"label"`
	Price         float64 `json:"price"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"changePercent"`
}

type projectionPoint struct {
	Date                  string  `json:"date"`
	CleanPrice            float64 `json:"cleanPrice"`
	DirtyPrice            float64 `json:"dirtyPrice"`
	ModifiedDurationYears float64 `json:"modifiedDuration"`
}

type evaluationResponse struct {
	ISIN                   string                `json:"isin"`
	Name                   string                `json:"name,omitempty"`
	Coupon                 float64               `json:"coupon"`
	MaturityDate           string                `json:"maturityDate"`
	SettlementDate         string                `json:"settlementDate"`
	PriceSource            types.PriceSource     `json:"priceSource"`
	YieldToMaturityPercent float64               `json:"yieldToMaturity"`
	CleanPrice             float64               `json:"cleanPrice"`
	DirtyPrice             float64               `json:"dirtyPrice"`
	AccruedInterest        float64               `json:"accruedInterest"`
	AccruedDays            int                   `json:"accruedDays"`
	CouponPeriodDays       int                   `json:"couponPeriodDays"`
	PrevCouponDate         string                `json:"prevCouponDate"`
	NextCouponDate         string                `json:"nextCouponDate"`
	ModifiedDurationYears  float64               `json:"modifiedDuration"`
	MacaulayDurationYears  float64               `json:"macaulayDuration"`
	Convexity              float64               `json:"convexity"`
	PV01                   float64               `json:"pv01"`
	Sensitivities          []sensitivityResponse `json:"sensitivities"`
	Cashflows              []cashflowResponse    `json:"cashflows"`
}

func newEvaluationResponse(terms types.GiltTerms, res *types.ValuationResult) evaluationResponse {
	resp := evaluationResponse{
		ISIN:                   res.ISIN,
		Name:                   terms.Name,
		Coupon:                 terms.CouponRatePercent,
		MaturityDate:           formatDate(terms.MaturityDate),
		SettlementDate:         formatDate(res.SettlementDate),
		PriceSource:            res.PriceSource,
		YieldToMaturityPercent: res.YieldToMaturityPercent,
		CleanPrice:             res.CleanPrice,
		DirtyPrice:             res.DirtyPrice,
		AccruedInterest:        res.AccruedInterest,
		AccruedDays:            res.AccruedDays,
		CouponPeriodDays:       res.CouponPeriodDays,
		PrevCouponDate:         formatDate(res.PrevCouponDate),
		NextCouponDate:         formatDate(res.NextCouponDate),
		ModifiedDurationYears:  res.ModifiedDurationYears,
		MacaulayDurationYears:  res.MacaulayDurationYears,
		Convexity:              res.Convexity,
		PV01:                   res.PV01,
		Cashflows:              make([]cashflowResponse, 0, len(res.Cashflows)),
	}

	for _, s := range pricing.Sensitivities(res) {
		resp.Sensitivities = append(resp.Sensitivities, sensitivityResponse(s))
	}

	for _, cf := range res.Cashflows {
		resp.Cashflows = append(resp.Cashflows, cashflowResponse{
			Date:       formatDate(cf.Date),
			Coupon:     cf.Coupon,
			Redemption: cf.Redemption,
			Amount:     cf.Amount(),
		})
	}

	return resp
}
