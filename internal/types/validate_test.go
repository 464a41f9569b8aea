package types

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 {
	return &v
}

func TestValidISIN(t *testing.T) {
	assert.True(t, ValidISIN("GB00B24FF097"))
	assert.True(t, ValidISIN("GB0030880693"))
	assert.False(t, ValidISIN("gb00b24ff097"))
	assert.False(t, ValidISIN("GB00B24FF09X"))
	assert.False(t, ValidISIN("G100B24FF097"))
	assert.False(t, ValidISIN("GB00B24FF0971"))
	assert.False(t, ValidISIN(""))
}

func TestTermsFormRequest(t *testing.T) {
	settlement := time.Date(2024, 6, 1, 15, 30, 0, 0, time.UTC)

	form := TermsForm{
		ISIN:         " gb00b24ff097 ",
		Name:         "4¼% Treasury Gilt 2027",
		Coupon:       ptr(4.25),
		IssueDate:    "2017-01-25",
		MaturityDate: "07-Dec-2027",
		CleanPrice:   ptr(98.12),
	}

	req, err := form.Request(settlement)
	require.NoError(t, err)

	assert.Equal(t, "GB00B24FF097", req.Terms.ISIN)
	assert.Equal(t, "4¼% Treasury Gilt 2027", req.Terms.Name)
	assert.Equal(t, time.Date(2027, 12, 7, 0, 0, 0, 0, time.UTC), req.Terms.MaturityDate)
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), req.SettlementDate)
	assert.Equal(t, DefaultFrequency, req.Terms.PaymentsPerYear())
	require.NotNil(t, req.MarketCleanPrice)
	assert.Equal(t, 98.12, *req.MarketCleanPrice)
}

func TestTermsFormFieldErrors(t *testing.T) {
	tests := []struct {
		name   string
		form   TermsForm
		fields []string
	}{
		{
			name:   "empty",
			form:   TermsForm{},
			fields: []string{"isin", "coupon", "issueDate", "maturityDate"},
		},
		{
			name: "bad values",
			form: TermsForm{
				ISIN:         "GB12",
				Coupon:       ptr(120),
				IssueDate:    "2020-01-01",
				MaturityDate: "2019-01-01",
			},
			fields: []string{"isin", "coupon", "maturityDate"},
		},
		{
			name: "unparseable dates",
			form: TermsForm{
				ISIN:           "GB00B24FF097",
				Coupon:         ptr(1),
				IssueDate:      "yesterday",
				MaturityDate:   "2030-13-45",
				SettlementDate: "soon",
			},
			fields: []string{"issueDate", "maturityDate", "settlementDate"},
		},
		{
			name: "negative price",
			form: TermsForm{
				ISIN:         "GB00B24FF097",
				Coupon:       ptr(1),
				IssueDate:    "2020-01-01",
				MaturityDate: "2030-01-01",
				CleanPrice:   ptr(-3),
			},
			fields: []string{"cleanPrice"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.form.Request(time.Now())
			require.ErrorIs(t, err, ErrInvalidTerms)

			var fe FieldErrors
			require.True(t, errors.As(err, &fe))
			for _, field := range tt.fields {
				assert.True(t, fe.Has(field), "expected error for %s in %v", field, fe)
			}
			assert.Len(t, fe, len(tt.fields))
		})
	}
}

func TestAddMonths(t *testing.T) {
	tests := []struct {
		start    time.Time
		months   int
		expected time.Time
	}{
		{time.Date(2030, 8, 31, 0, 0, 0, 0, time.UTC), -6, time.Date(2030, 2, 28, 0, 0, 0, 0, time.UTC)},
		{time.Date(2028, 8, 31, 0, 0, 0, 0, time.UTC), -6, time.Date(2028, 2, 29, 0, 0, 0, 0, time.UTC)},
		{time.Date(2030, 1, 31, 0, 0, 0, 0, time.UTC), 1, time.Date(2030, 2, 28, 0, 0, 0, 0, time.UTC)},
		{time.Date(2030, 3, 7, 0, 0, 0, 0, time.UTC), -120, time.Date(2020, 3, 7, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, AddMonths(tt.start, tt.months))
	}
}

func TestMaturityYears(t *testing.T) {
	years, days, err := MaturityYears(
		time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2027, 12, 7, 0, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)
	assert.Equal(t, 3, years)
	assert.Equal(t, 189, days)

	_, _, err = MaturityYears(
		time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	)
	assert.ErrorIs(t, err, ErrOutOfRangeDate)
}

func TestParseDate(t *testing.T) {
	for _, s := range []string{"2025-03-07", "07-Mar-2025", "07/03/2025", "7 Mar 2025", "2025-03-07T10:00:00Z"} {
		ts, err := ParseDate(s)
		require.NoError(t, err, s)
		assert.Equal(t, time.Date(2025, 3, 7, 0, 0, 0, 0, time.UTC), ts, s)
	}

	_, err := ParseDate("March")
	assert.ErrorIs(t, err, ErrInvalidDate)
}
