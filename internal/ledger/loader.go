// Package ledger reads TAR and ECB service code exports into domain ledgers.
package ledger

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/timekeepco/timekeep/internal/domain"
)

// Column names shared by both exports.
const (
	ColumnSPA         = "SPA"
	ColumnServiceCode = "Service Code"
	ColumnCharge      = "Charge"
	ColumnStopDate    = "Stop Date"
	ColumnNewCharge   = "New Charge"

	ColumnRecordDesc = "Record Desc"
	ColumnSystem     = "System"
	ColumnPrin       = "Prin"
	ColumnAgent      = "Agent"
)

var (
	// ErrMissingColumn is returned when the header lacks a required column.
	ErrMissingColumn = errors.New("missing required column")
	// ErrEmptyFile is returned when the input has no header row.
	ErrEmptyFile = errors.New("csv file is empty")
)

var (
	tarColumns = []string{ColumnSPA, ColumnServiceCode, ColumnCharge, ColumnStopDate, ColumnNewCharge}
	ecbColumns = append(append([]string(nil), tarColumns...), ColumnRecordDesc, ColumnSystem, ColumnPrin, ColumnAgent)
)

// Warning describes a cell that was coerced instead of rejected.
type Warning struct {
	Source string
	Line   int
	Column string
	Value  string
	Err    error
}

func (w Warning) String() string {
	return fmt.Sprintf("%s line %d column %q: %v", w.Source, w.Line, w.Column, w.Err)
}

// Option customises loading.
type Option func(*loader)

// WithWarningHandler receives every coerced cell. Invalid amounts are read as zero.
func WithWarningHandler(fn func(Warning)) Option {
	return func(l *loader) {
		l.warn = fn
	}
}

type loader struct {
	source string
	warn   func(Warning)
	ecb    bool
}

// LoadTAR reads a TAR export.
func LoadTAR(r io.Reader, source string, opts ...Option) (*domain.Ledger, error) {
	l := newLoader(source, false, opts)
	return l.load(r)
}

// LoadECB reads an ECB export, which carries four extra descriptive columns.
func LoadECB(r io.Reader, source string, opts ...Option) (*domain.Ledger, error) {
	l := newLoader(source, true, opts)
	return l.load(r)
}

func newLoader(source string, ecb bool, opts []Option) *loader {
	l := &loader{source: source, ecb: ecb}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *loader) load(r io.Reader) (*domain.Ledger, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	// Record Desc values such as 32" Box Rental carry unescaped quotes.
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%s: %w", l.source, ErrEmptyFile)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: read header: %w", l.source, err)
	}

	required := tarColumns
	if l.ecb {
		required = ecbColumns
	}
	index, err := columnIndex(header, required)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", l.source, err)
	}

	ledger := domain.NewLedger(l.source)
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", l.source, err)
		}
		line, _ := reader.FieldPos(0)

		cell := func(column string) string {
			return row[index[column]]
		}

		rec := domain.ServiceRecord{
			Key: domain.RecordKey{
				SPA:         strings.TrimSpace(cell(ColumnSPA)),
				ServiceCode: strings.TrimSpace(cell(ColumnServiceCode)),
			},
			Charge:    l.amount(line, ColumnCharge, cell(ColumnCharge)),
			StopDate:  CleanDate(cell(ColumnStopDate)),
			NewCharge: l.amount(line, ColumnNewCharge, cell(ColumnNewCharge)),
			Line:      line,
		}
		if l.ecb {
			rec.RecordDesc = strings.TrimSpace(cell(ColumnRecordDesc))
			rec.System = strings.TrimSpace(cell(ColumnSystem))
			rec.Prin = strings.TrimSpace(cell(ColumnPrin))
			rec.Agent = strings.TrimSpace(cell(ColumnAgent))
		}

		if ledger.Put(rec) && l.warn != nil {
			l.warn(Warning{
				Source: l.source,
				Line:   line,
				Column: ColumnServiceCode,
				Value:  rec.Key.String(),
				Err:    errors.New("duplicate key replaces earlier row"),
			})
		}
	}
	return ledger, nil
}

func (l *loader) amount(line int, column, raw string) decimal.Decimal {
	if strings.TrimSpace(raw) == "" {
		return decimal.Zero
	}
	amount, err := ParseCurrency(raw)
	if err != nil {
		if l.warn != nil {
			l.warn(Warning{Source: l.source, Line: line, Column: column, Value: raw, Err: err})
		}
		return decimal.Zero
	}
	return amount
}

func columnIndex(header []string, required []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, seen := index[name]; !seen {
			index[name] = i
		}
	}
	var missing []string
	for _, column := range required {
		if _, ok := index[column]; !ok {
			missing = append(missing, column)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return index, nil
}
