package domain

import "github.com/shopspring/decimal"

// RecordKey identifies a service record across both exports.
type RecordKey struct {
	SPA         string
	ServiceCode string
}

// String renders the key the way reports and CSV exports print it.
func (k RecordKey) String() string {
	return k.SPA + "_" + k.ServiceCode
}

// ServiceRecord is one cleaned row from a TAR or ECB export. The ECB-only
// columns are empty for TAR rows.
type ServiceRecord struct {
	Key       RecordKey
	Charge    decimal.Decimal
	StopDate  string
	NewCharge decimal.Decimal

	RecordDesc string
	System     string
	Prin       string
	Agent      string

	// Line is the 1-based CSV line the record was read from.
	Line int
}

// Ledger holds the records of one export keyed by RecordKey, remembering the
// order in which keys first appeared.
type Ledger struct {
	Source  string
	order   []RecordKey
	records map[RecordKey]ServiceRecord
}

// NewLedger creates an empty ledger labelled with its source name.
func NewLedger(source string) *Ledger {
	return &Ledger{
		Source:  source,
		records: make(map[RecordKey]ServiceRecord),
	}
}

// Put stores rec. A repeated key replaces the previous values but keeps the
// original position; the return value reports whether that happened.
func (l *Ledger) Put(rec ServiceRecord) bool {
	if _, exists := l.records[rec.Key]; exists {
		l.records[rec.Key] = rec
		return true
	}
	l.order = append(l.order, rec.Key)
	l.records[rec.Key] = rec
	return false
}

// Get looks up a record by key.
func (l *Ledger) Get(key RecordKey) (ServiceRecord, bool) {
	rec, ok := l.records[key]
	return rec, ok
}

// Has reports whether the key is present.
func (l *Ledger) Has(key RecordKey) bool {
	_, ok := l.records[key]
	return ok
}

// Keys returns the keys in first-seen order.
func (l *Ledger) Keys() []RecordKey {
	return append([]RecordKey(nil), l.order...)
}

// Len returns the number of distinct keys.
func (l *Ledger) Len() int {
	return len(l.order)
}
