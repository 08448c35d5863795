// Package ledgercsv reads and writes the five-column ledger exchange format:
// Date, Type, Category, Description, Amount.
package ledgercsv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"budgetapp/internal/models"
)

const (
	// DateLayout is the export date format and the first accepted import format.
	DateLayout = "2006-01-02"
	// AltDateLayout is the second accepted import format.
	AltDateLayout = "02.01.2006"
)

// Header is written as the first line of every export.
var Header = []string{"Date", "Type", "Category", "Description", "Amount"}

// ErrMissingAmountColumn is returned when the header has no amount column.
var ErrMissingAmountColumn = errors.New("csv header has no Amount column")

type column int

const (
	colDate column = iota
	colType
	colCategory
	colDescription
	colAmount
)

// headerAliases maps lowercased header names, in English or Russian, to columns.
var headerAliases = map[string]column{
	"date":        colDate,
	"дата":        colDate,
	"type":        colType,
	"тип":         colType,
	"category":    colCategory,
	"категория":   colCategory,
	"description": colDescription,
	"описание":    colDescription,
	"amount":      colAmount,
	"сумма":       colAmount,
}

// Record is one raw data row. Line is its 1-based position among data rows.
type Record struct {
	Line        int
	Date        string
	Type        string
	Category    string
	Description string
	Amount      string
}

// Reader yields Records from CSV input with a header line.
type Reader struct {
	csv   *csv.Reader
	index map[column]int
	line  int
}

// NewReader consumes the header line and resolves column positions.
func NewReader(r io.Reader) (*Reader, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("csv input is empty")
		}
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	index := make(map[column]int, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if col, ok := headerAliases[name]; ok {
			if _, seen := index[col]; !seen {
				index[col] = i
			}
		}
	}
	if _, ok := index[colAmount]; !ok {
		return nil, ErrMissingAmountColumn
	}

	return &Reader{csv: cr, index: index}, nil
}

// Next returns the next data row, or io.EOF after the last one.
// Malformed quoting is reported as an error carrying the row number; the
// caller may keep reading after it.
func (r *Reader) Next() (Record, error) {
	for {
		fields, err := r.csv.Read()
		if errors.Is(err, io.EOF) {
			return Record{}, io.EOF
		}
		r.line++
		if err != nil {
			return Record{Line: r.line}, fmt.Errorf("row %d: %w", r.line, err)
		}
		if isBlank(fields) {
			r.line--
			continue
		}

		return Record{
			Line:        r.line,
			Date:        r.field(fields, colDate),
			Type:        r.field(fields, colType),
			Category:    r.field(fields, colCategory),
			Description: r.field(fields, colDescription),
			Amount:      r.field(fields, colAmount),
		}, nil
	}
}

func (r *Reader) field(fields []string, col column) string {
	i, ok := r.index[col]
	if !ok || i >= len(fields) {
		return ""
	}
	return strings.TrimSpace(fields[i])
}

func isBlank(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// ParseDate accepts DateLayout, then AltDateLayout, and falls back to today.
func ParseDate(s string, today time.Time) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range []string{DateLayout, AltDateLayout} {
		if d, err := time.Parse(layout, s); err == nil {
			return d
		}
	}
	y, m, d := today.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DefaultIncomeMarkers are matched as substrings of the lowercased Type field.
var DefaultIncomeMarkers = []string{"income", "доход"}

// Classifier decides a row's transaction type from its Type text.
type Classifier struct {
	markers []string
}

// NewClassifier returns a Classifier using DefaultIncomeMarkers plus extra.
func NewClassifier(extra ...string) *Classifier {
	markers := make([]string, 0, len(DefaultIncomeMarkers)+len(extra))
	for _, m := range append(append([]string{}, DefaultIncomeMarkers...), extra...) {
		if m = strings.ToLower(strings.TrimSpace(m)); m != "" {
			markers = append(markers, m)
		}
	}
	return &Classifier{markers: markers}
}

// Classify returns income when the text contains any income marker, expense otherwise.
func (c *Classifier) Classify(text string) models.TransactionType {
	lower := strings.ToLower(text)
	for _, m := range c.markers {
		if strings.Contains(lower, m) {
			return models.TransactionTypeIncome
		}
	}
	return models.TransactionTypeExpense
}

// Markers returns the active income markers.
func (c *Classifier) Markers() []string {
	return append([]string(nil), c.markers...)
}

// ExportRow is one formatted output line.
type ExportRow struct {
	Date        string `json:"date"`
	Type        string `json:"type"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
}

// Writer emits ExportRows after a Header line.
type Writer struct {
	csv         *csv.Writer
	wroteHeader bool
}

// NewWriter returns a Writer on w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{csv: csv.NewWriter(w)}
}

// Write appends one row, writing the header first if needed.
func (w *Writer) Write(row ExportRow) error {
	if err := w.header(); err != nil {
		return err
	}
	return w.csv.Write([]string{row.Date, row.Type, row.Category, row.Description, row.Amount})
}

// Flush writes the header if no row was written and flushes buffered output.
func (w *Writer) Flush() error {
	if err := w.header(); err != nil {
		return err
	}
	w.csv.Flush()
	return w.csv.Error()
}

func (w *Writer) header() error {
	if w.wroteHeader {
		return nil
	}
	w.wroteHeader = true
	return w.csv.Write(Header)
}
