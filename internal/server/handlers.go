package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"benritz/giltcalc/internal/batch"
	"benritz/giltcalc/internal/pricing"
	"benritz/giltcalc/internal/store"
	"benritz/giltcalc/internal/types"

	"go.uber.org/zap"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "gilt-server",
	})
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var form types.TermsForm
	if !s.decode(w, r, &form) {
		return
	}

	req, err := form.Request(s.cfg.Now())
	if err != nil {
		s.writeValuationError(w, err)
		return
	}

	if req.MarketCleanPrice == nil && req.DiscountRatePercent == nil {
		req.Curve = s.curveFor(req.SettlementDate)
	}

	start := time.Now()
	res, err := pricing.Evaluate(req)

	var source types.PriceSource
	if res != nil {
		source = res.PriceSource
	}
	s.metrics.ObserveEvaluation(source, err, time.Since(start))

	if err != nil {
		s.writeValuationError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, newEvaluationResponse(req.Terms, res))
}

type batchRow struct {
	types.TermsForm
	Amount *float64 `json:"amount,omitempty"`
}

type batchRequest struct {
	SettlementDate string     `json:"settlementDate"`
	ProjectionStep string     `json:"projectionStep,omitempty"`
	Rows           []batchRow `json:"rows"`
}

type summaryResponse struct {
	Description    string  `json:"description"`
	Holdings       int     `json:"holdings"`
	TotalAmount    float64 `json:"totalAmount"`
	MarketValue    float64 `json:"marketValue"`
	AverageCoupon  float64 `json:"averageCoupon"`
	LatestMaturity string  `json:"latestMaturity,omitempty"`
	EarliestIssue  string  `json:"earliestIssue,omitempty"`
	NextCouponDate string  `json:"nextCouponDate,omitempty"`
}

func newSummaryResponse(sum batch.Summary) summaryResponse {
	return summaryResponse{
		Description:    sum.Description(),
		Holdings:       sum.Holdings,
		TotalAmount:    sum.TotalAmount,
		MarketValue:    sum.MarketValue,
		AverageCoupon:  sum.AverageCoupon,
		LatestMaturity: formatDate(sum.LatestMaturity),
		EarliestIssue:  formatDate(sum.EarliestIssue),
		NextCouponDate: formatDate(sum.NextCouponDate),
	}
}

type batchResponse struct {
	SettlementDate string                 `json:"settlementDate"`
	Results        []store.ResultRow      `json:"results"`
	Failed         int                    `json:"failed"`
	Summary        summaryResponse        `json:"summary"`
	Portfolio      []batch.PortfolioPoint `json:"portfolio,omitempty"`
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	var body batchRequest
	if !s.decode(w, r, &body) {
		return
	}

	settlement, ok := s.settlementDate(w, body.SettlementDate)
	if !ok {
		return
	}

	if len(body.Rows) == 0 {
		s.writeFieldErrors(w, types.FieldErrors{{Field: "rows", Message: "is required"}})
		return
	}
	if len(body.Rows) > s.cfg.MaxBatchRows {
		s.writeFieldErrors(w, types.FieldErrors{{
			Field:   "rows",
			Message: fmt.Sprintf("at most %d rows per batch", s.cfg.MaxBatchRows),
		}})
		return
	}

	var step pricing.ProjectionStep
	if body.ProjectionStep != "" {
		var err error
		if step, err = pricing.ParseProjectionStep(body.ProjectionStep); err != nil {
			s.writeFieldErrors(w, types.FieldErrors{{Field: "projectionStep", Message: err.Error()}})
			return
		}
	}

	rows := make([]batch.Row, len(body.Rows))
	for i, in := range body.Rows {
		rows[i] = batch.Row{Line: i + 1}

		// rows share the batch settlement date
		form := in.TermsForm
		form.SettlementDate = ""
		req, err := form.Request(settlement)
		if err == nil {
			err = batch.CheckAmount(in.Amount)
		}
		if err != nil {
			rows[i].Terms = types.GiltTerms{ISIN: strings.ToUpper(strings.TrimSpace(form.ISIN)), Name: form.Name}
			rows[i].Err = err
			continue
		}

		rows[i].Terms = req.Terms
		rows[i].CleanPrice = req.MarketCleanPrice
		rows[i].Amount = in.Amount
	}

	runner := *s.runner
	runner.Curve = s.curveFor(settlement)

	results, err := runner.Run(r.Context(), rows, settlement)
	if err != nil {
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	resp := batchResponse{
		SettlementDate: settlement.Format(types.DateLayout),
		Results:        make([]store.ResultRow, len(results)),
		Summary:        newSummaryResponse(batch.Summarise(results)),
	}
	for i, res := range results {
		resp.Results[i] = res.ResultRow(settlement)
		if res.Err != nil {
			resp.Failed++
		}
	}

	if step != "" {
		if resp.Portfolio, err = batch.ProjectPortfolio(results, settlement, step); err != nil {
			s.writeValuationError(w, err)
			return
		}
	}

	s.writeJSON(w, http.StatusOK, resp)
}

type projectionRequest struct {
	types.TermsForm
	CouponFrequency int      `json:"couponFrequency,omitempty"`
	Yield           *float64 `json:"yield"`
	StartDate       string   `json:"startDate"`
	Step            string   `json:"frequency"`
}

type projectionResponse struct {
	ISIN   string            `json:"isin"`
	Yield  float64           `json:"yield"`
	Step   string            `json:"frequency"`
	Points []projectionPoint `json:"points"`
}

func (s *Server) handleProjection(w http.ResponseWriter, r *http.Request) {
	var body projectionRequest
	if !s.decode(w, r, &body) {
		return
	}

	step, err := pricing.ParseProjectionStep(body.Step)
	if err != nil {
		s.writeFieldErrors(w, types.FieldErrors{{Field: "frequency", Message: "must be monthly, quarterly, annual or five-yearly"}})
		return
	}

	start, ok := s.settlementDate(w, body.StartDate)
	if !ok {
		return
	}

	form := body.TermsForm
	form.Frequency = body.CouponFrequency
	form.SettlementDate = ""
	req, err := form.Request(start)
	if err != nil {
		s.writeValuationError(w, err)
		return
	}

	yield := body.Yield
	if yield == nil {
		if req.MarketCleanPrice == nil {
			s.writeFieldErrors(w, types.FieldErrors{{Field: "yield", Message: "is required without a clean price"}})
			return
		}
		res, err := pricing.Evaluate(req)
		if err != nil {
			s.writeValuationError(w, err)
			return
		}
		yield = &res.YieldToMaturityPercent
	}

	points, err := pricing.Project(req.Terms, start, *yield, step)
	if err != nil {
		s.writeValuationError(w, err)
		return
	}

	resp := projectionResponse{
		ISIN:   req.Terms.ISIN,
		Yield:  *yield,
		Step:   string(step),
		Points: make([]projectionPoint, 0, len(points)),
	}
	for _, p := range points {
		resp.Points = append(resp.Points, projectionPoint{
			Date:                  formatDate(p.Date),
			CleanPrice:            p.CleanPrice,
			DirtyPrice:            p.DirtyPrice,
			ModifiedDurationYears: p.ModifiedDurationYears,
		})
	}

	s.writeJSON(w, http.StatusOK, resp)
}

// settlementDate parses an optional date, defaulting to today.
func (s *Server) settlementDate(w http.ResponseWriter, value string) (time.Time, bool) {
	if strings.TrimSpace(value) == "" {
		return types.Date(s.cfg.Now()), true
	}
	ts, err := types.ParseDate(value)
	if err != nil {
		s.writeFieldErrors(w, types.FieldErrors{{Field: "settlementDate", Message: "is not a valid date"}})
		return time.Time{}, false
	}
	return ts, true
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// writeValuationError maps engine errors to a status code: field errors are
// the caller's input, out of range dates and unsolvable prices are valid
// input the engine cannot value.
func (s *Server) writeValuationError(w http.ResponseWriter, err error) {
	var fieldErrs types.FieldErrors
	switch {
	case errors.As(err, &fieldErrs):
		s.writeFieldErrors(w, fieldErrs)
	case errors.Is(err, types.ErrInvalidTerms), errors.Is(err, pricing.ErrInvalidStep):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, types.ErrOutOfRangeDate), errors.Is(err, types.ErrNoConvergence):
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		s.log.Error("valuation failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) writeFieldErrors(w http.ResponseWriter, errs types.FieldErrors) {
	s.writeJSON(w, http.StatusBadRequest, map[string]any{
		"errors": errs,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error("failed to encode JSON response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{
		"error": message,
	})
}
