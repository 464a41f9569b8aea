package types

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the canonical layout for dates read from and written to callers.
const DateLayout = "2006-01-02"

var dateLayouts = []string{
	DateLayout,
	"02-Jan-2006",
	"02/01/2006",
	"2 Jan 2006",
	"02 Jan 2006",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// ParseDate accepts ISO dates plus the layouts used by DMO and DividendData
// exports and returns the date at UTC midnight.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty", ErrInvalidDate)
	}
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return Date(ts), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

// Date truncates t to its calendar day at UTC midnight.
func Date(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// AddMonths moves t by n months, clamping the day to the end of the target
// month instead of overflowing into the next one.
func AddMonths(t time.Time, n int) time.Time {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, n, 0)
	last := first.AddDate(0, 1, -1).Day()
	day := t.Day()
	if day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the actual number of calendar days from start to end.
func DaysBetween(start, end time.Time) int {
	return int(Date(end).Sub(Date(start)).Hours() / 24)
}

// MaturityYears splits the time from settlement to maturity into whole years
// and remaining days.
func MaturityYears(settlementDate, maturityDate time.Time) (int, int, error) {
	if maturityDate.Before(settlementDate) {
		return 0, 0, ErrOutOfRangeDate
	}

	years := maturityDate.Year() - settlementDate.Year()

	end := Date(maturityDate)
	start := time.Date(maturityDate.Year(), settlementDate.Month(), settlementDate.Day(), 0, 0, 0, 0, time.UTC)

	if start.After(end) {
		years--
		start = start.AddDate(-1, 0, 0)
	}

	return years, DaysBetween(start, end), nil
}
