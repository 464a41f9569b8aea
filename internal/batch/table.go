// Package batch values many gilts at once from a table of terms.
package batch

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"benritz/giltcalc/internal/collect"
	"benritz/giltcalc/internal/types"

	"github.com/pbnjay/grate"
	_ "github.com/pbnjay/grate/xls"
	_ "github.com/pbnjay/grate/xlsx"
)

var (
	ErrMissingColumn = fmt.Errorf("missing column")
	ErrNoRows        = fmt.Errorf("no rows")
	ErrInvalidRow    = fmt.Errorf("invalid row")
)

type column int

const (
	colISIN column = iota
	colName
	colCoupon
	colIssueDate
	colMaturityDate
	colCleanPrice
	colFrequency
	colAmount
	numColumns
)

var columnNames = map[string]column{
	"isin":            colISIN,
	"name":            colName,
	"description":     colName,
	"instrumentname":  colName,
	"coupon":          colCoupon,
	"couponrate":      colCoupon,
	"issuedate":       colIssueDate,
	"firstissuedate":  colIssueDate,
	"maturity":        colMaturityDate,
	"maturitydate":    colMaturityDate,
	"redemptiondate":  colMaturityDate,
	"price":           colCleanPrice,
	"cleanprice":      colCleanPrice,
	"frequency":       colFrequency,
	"paymentsperyear": colFrequency,
	"amount":          colAmount,
	"nominal":         colAmount,
	"nominalamount":   colAmount,
	"holding":         colAmount,
}

func normaliseHeader(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "", "_", "", "-", "", "(%)", "", "%", "").Replace(s)
}

// header maps each known column to its index in the row, -1 when absent.
type header [numColumns]int

// parseHeader returns the column layout when row looks like a header, i.e.
// it names at least the ISIN column.
func parseHeader(row []string) (header, bool) {
	var h header
	for i := range h {
		h[i] = -1
	}
	for i, cell := range row {
		if col, ok := columnNames[normaliseHeader(cell)]; ok && h[col] == -1 {
			h[col] = i
		}
	}
	return h, h[colISIN] != -1
}

func (h header) missing() []string {
	var missing []string
	if h[colMaturityDate] == -1 {
		missing = append(missing, "Maturity Date")
	}
	if h[colIssueDate] == -1 {
		missing = append(missing, "Issue Date")
	}
	if h[colCoupon] == -1 && h[colName] == -1 {
		missing = append(missing, "Coupon Rate")
	}
	return missing
}

func (h header) cell(row []string, col column) string {
	i := h[col]
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// Row is one gilt read from an input table. Err is set when the row could not
// be turned into terms; such rows are reported but never valued.
type Row struct {
	Line       int
	Terms      types.GiltTerms
	CleanPrice *float64

	// Amount is the nominal held, when the table gives one.
	Amount *float64

	Err error
}

// CheckAmount accepts a missing amount or a finite non-negative nominal.
func CheckAmount(amount *float64) error {
	if amount == nil {
		return nil
	}
	if math.IsNaN(*amount) || math.IsInf(*amount, 0) || *amount < 0 {
		return types.FieldErrors{{Field: "amount", Message: "must be a non-negative number"}}
	}
	return nil
}

func blank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func parseFloat(s string) (float64, error) {
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	return strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
}

func (h header) parseRow(line int, cells []string) Row {
	row := Row{Line: line}

	terms := types.GiltTerms{
		Type:      types.UKGilt,
		ISIN:      strings.ToUpper(h.cell(cells, colISIN)),
		Name:      h.cell(cells, colName),
		Frequency: types.DefaultFrequency,
	}

	var errs []error

	if s := h.cell(cells, colCoupon); s != "" {
		coupon, err := parseFloat(s)
		if err != nil {
			errs = append(errs, fmt.Errorf("coupon %q: %w", s, types.ErrInvalidCoupon))
		}
		terms.CouponRatePercent = coupon
	} else if terms.Name != "" {
		coupon, err := collect.ParseCoupon(terms.Name)
		if err != nil {
			errs = append(errs, fmt.Errorf("coupon from name %q: %w", terms.Name, err))
		}
		terms.CouponRatePercent = coupon
	} else {
		errs = append(errs, fmt.Errorf("coupon: %w", types.ErrInvalidCoupon))
	}

	var err error
	if terms.IssueDate, err = types.ParseDate(h.cell(cells, colIssueDate)); err != nil {
		errs = append(errs, fmt.Errorf("issue date: %w", err))
	}
	if terms.MaturityDate, err = types.ParseDate(h.cell(cells, colMaturityDate)); err != nil {
		errs = append(errs, fmt.Errorf("maturity date: %w", err))
	}

	if s := h.cell(cells, colFrequency); s != "" {
		if terms.Frequency, err = strconv.Atoi(s); err != nil {
			errs = append(errs, fmt.Errorf("frequency %q: %w", s, ErrInvalidRow))
		}
	}

	if s := h.cell(cells, colCleanPrice); s != "" {
		price, err := parseFloat(s)
		if err != nil {
			errs = append(errs, fmt.Errorf("clean price %q: %w", s, types.ErrInvalidPrice))
		} else {
			row.CleanPrice = &price
		}
	}

	if s := h.cell(cells, colAmount); s != "" {
		amount, err := parseFloat(s)
		if err != nil {
			errs = append(errs, fmt.Errorf("amount %q: %w", s, ErrInvalidRow))
		} else if err := CheckAmount(&amount); err != nil {
			errs = append(errs, err)
		} else {
			row.Amount = &amount
		}
	}

	row.Terms = terms
	if len(errs) > 0 {
		row.Err = fmt.Errorf("%w: line %d: %w", ErrInvalidRow, line, errors.Join(errs...))
	}
	return row
}

// rowSource is the part of a grate.Collection the reader needs, so text
// tables can share the row loop.
type rowSource interface {
	Next() bool
	Strings() []string
	Err() error
}

// textRows reads delimited text. grate's own text readers sniff the format
// and refuse short files, so .csv and .tsv are read directly.
type textRows struct {
	r    *csv.Reader
	row  []string
	err  error
	done bool
}

func newTextRows(r io.Reader, comma rune) *textRows {
	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = comma == '\t'
	return &textRows{r: cr}
}

func (t *textRows) Next() bool {
	if t.done {
		return false
	}
	t.row, t.err = t.r.Read()
	if t.err != nil {
		t.done = true
		if errors.Is(t.err, io.EOF) {
			t.err = nil
		}
		return false
	}
	return true
}

func (t *textRows) Strings() []string {
	return t.row
}

func (t *textRows) Err() error {
	return t.err
}

// Line is the file line of the current row; blank lines are skipped by the
// reader but still counted here.
func (t *textRows) Line() int {
	line, _ := t.r.FieldPos(0)
	return line
}

// ReadTable reads gilt terms from a CSV, TSV, XLS or XLSX file. Rows above
// the header, which is the first row naming an ISIN column, are ignored.
// Only the first sheet holding a header is read.
func ReadTable(path string) ([]Row, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return readText(path, ',')
	case ".tsv", ".tab":
		return readText(path, '\t')
	}
	return readWorkbook(path)
}

func readText(path string, comma rune) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, found, err := readSheet(newTextRows(f, comma))
	if err != nil {
		return nil, err
	}
	return tableRows(rows, found)
}

func readWorkbook(path string) ([]Row, error) {
	wb, err := grate.Open(path)
	if err != nil {
		return nil, err
	}
	defer wb.Close()

	sheets, err := wb.List()
	if err != nil {
		return nil, err
	}

	for _, sheetName := range sheets {
		sheet, err := wb.Get(sheetName)
		if err != nil {
			return nil, err
		}

		rows, found, err := readSheet(sheet)
		if err != nil {
			return nil, fmt.Errorf("sheet %s: %w", sheetName, err)
		}
		if found {
			return tableRows(rows, found)
		}
	}

	return tableRows(nil, false)
}

func tableRows(rows []Row, found bool) ([]Row, error) {
	if !found {
		return nil, fmt.Errorf("%w: ISIN", ErrMissingColumn)
	}
	if len(rows) == 0 {
		return nil, ErrNoRows
	}
	return rows, nil
}

func readSheet(sheet rowSource) ([]Row, bool, error) {
	var (
		h     header
		found bool
		rows  []Row
		line  int
	)

	lines, _ := sheet.(interface{ Line() int })

	for sheet.Next() {
		line++
		if lines != nil {
			line = lines.Line()
		}
		cells := sheet.Strings()

		if !found {
			if h, found = parseHeader(cells); found {
				if missing := h.missing(); len(missing) > 0 {
					return nil, true, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
				}
			}
			continue
		}

		if blank(cells) {
			continue
		}

		rows = append(rows, h.parseRow(line, cells))
	}

	return rows, found, sheet.Err()
}
