package types

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"
)

var isinPattern = regexp.MustCompile(`^[A-Z]{2}[A-Z0-9]{9}[0-9]$`)

// ValidISIN checks the shape of an ISIN. The check digit is not verified.
func ValidISIN(isin string) bool {
	return isinPattern.MatchString(isin)
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// FieldErrors collects every field level problem found in one set of terms.
// It unwraps to ErrInvalidTerms.
type FieldErrors []FieldError

func (e FieldErrors) Error() string {
	parts := make([]string, 0, len(e))
	for _, fe := range e {
		parts = append(parts, fe.Field+": "+fe.Message)
	}
	return fmt.Sprintf("%s: %s", ErrInvalidTerms, strings.Join(parts, "; "))
}

func (e FieldErrors) Unwrap() error {
	return ErrInvalidTerms
}

func (e *FieldErrors) add(field, format string, args ...any) {
	*e = append(*e, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (e FieldErrors) Has(field string) bool {
	for _, fe := range e {
		if fe.Field == field {
			return true
		}
	}
	return false
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// ValidateTerms returns FieldErrors for malformed or inconsistent terms, or nil.
func ValidateTerms(t GiltTerms) error {
	var errs FieldErrors

	if !ValidISIN(t.ISIN) {
		errs.add("isin", "must be 2 letters, 9 alphanumerics and a digit")
	}

	if !finite(t.CouponRatePercent) {
		errs.add("coupon", "must be a number")
	} else if t.CouponRatePercent < 0 || t.CouponRatePercent > 100 {
		errs.add("coupon", "must be between 0 and 100")
	}

	switch t.PaymentsPerYear() {
	case 1, 2, 4, 12:
	default:
		errs.add("frequency", "must be 1, 2, 4 or 12 payments per year")
	}

	if t.IssueDate.IsZero() {
		errs.add("issueDate", "is required")
	}
	if t.MaturityDate.IsZero() {
		errs.add("maturityDate", "is required")
	}
	if !t.IssueDate.IsZero() && !t.MaturityDate.IsZero() && !Date(t.IssueDate).Before(Date(t.MaturityDate)) {
		errs.add("maturityDate", "must be after the issue date")
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ValidateRequest checks the terms and the optional pricing inputs. The
// settlement range is not checked here; it is reported as ErrOutOfRangeDate.
func ValidateRequest(r ValuationRequest) error {
	var errs FieldErrors

	if err := ValidateTerms(r.Terms); err != nil {
		errs = append(errs, err.(FieldErrors)...)
	}

	if r.SettlementDate.IsZero() {
		errs.add("settlementDate", "is required")
	}

	if p := r.MarketCleanPrice; p != nil && (!finite(*p) || *p < 0) {
		errs.add("cleanPrice", "must be a non-negative number")
	}

	if d := r.DiscountRatePercent; d != nil {
		if !finite(*d) || *d <= -100*float64(r.Terms.PaymentsPerYear()) {
			errs.add("discountRate", "must be a number above -100%% per period")
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// TermsForm is the raw shape of a single gilt form or table row before it has
// been turned into a ValuationRequest.
type TermsForm struct {
	ISIN           string   `json:"isin"`
	Name           string   `json:"name,omitempty"`
	Coupon         *float64 `json:"coupon"`
	IssueDate      string   `json:"issueDate"`
	MaturityDate   string   `json:"maturityDate"`
	SettlementDate string   `json:"settlementDate,omitempty"`
	Frequency      int      `json:"frequency,omitempty"`
	CleanPrice     *float64 `json:"cleanPrice,omitempty"`
	DiscountRate   *float64 `json:"discountRate,omitempty"`
}

// Request validates the form field by field and builds a request. An empty
// settlement date falls back to settlement.
func (f TermsForm) Request(settlement time.Time) (ValuationRequest, error) {
	var errs FieldErrors

	isin := strings.ToUpper(strings.TrimSpace(f.ISIN))
	if isin == "" {
		errs.add("isin", "is required")
	}

	if f.Coupon == nil {
		errs.add("coupon", "is required")
	}

	parse := func(field, value string, required bool) time.Time {
		if strings.TrimSpace(value) == "" {
			if required {
				errs.add(field, "is required")
			}
			return time.Time{}
		}
		ts, err := ParseDate(value)
		if err != nil {
			errs.add(field, "is not a valid date")
		}
		return ts
	}

	issue := parse("issueDate", f.IssueDate, true)
	maturity := parse("maturityDate", f.MaturityDate, true)
	settle := parse("settlementDate", f.SettlementDate, false)
	if settle.IsZero() && strings.TrimSpace(f.SettlementDate) == "" {
		settle = Date(settlement)
	}

	if len(errs) > 0 {
		return ValuationRequest{}, errs
	}

	terms := NewUKGilt(isin, *f.Coupon, issue, maturity)
	terms.Name = strings.TrimSpace(f.Name)
	if f.Frequency != 0 {
		terms.Frequency = f.Frequency
	}

	req := ValuationRequest{
		Terms:               terms,
		SettlementDate:      settle,
		MarketCleanPrice:    f.CleanPrice,
		DiscountRatePercent: f.DiscountRate,
	}

	if err := ValidateRequest(req); err != nil {
		return ValuationRequest{}, err
	}

	return req, nil
}
