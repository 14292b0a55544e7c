package domain

import "github.com/shopspring/decimal"

// DiscrepancyType classifies a difference between the TAR and ECB exports.
type DiscrepancyType string

const (
	MissingFromECB    DiscrepancyType = "missing_from_ecb"
	MissingFromTAR    DiscrepancyType = "missing_from_tar"
	ChargeMismatch    DiscrepancyType = "charge_mismatch"
	StopDateMismatch  DiscrepancyType = "stop_date_mismatch"
	NewChargeMismatch DiscrepancyType = "new_charge_mismatch"
)

// DiscrepancyTypes lists every type in display order.
var DiscrepancyTypes = []DiscrepancyType{
	MissingFromECB,
	MissingFromTAR,
	ChargeMismatch,
	StopDateMismatch,
	NewChargeMismatch,
}

var discrepancyLabels = map[DiscrepancyType]string{
	MissingFromECB:    "Missing from ECB",
	MissingFromTAR:    "Missing from TAR",
	ChargeMismatch:    "Charge Mismatch",
	StopDateMismatch:  "Stop Date Mismatch",
	NewChargeMismatch: "New Charge Mismatch",
}

// Label is the human readable group heading for the type.
func (t DiscrepancyType) Label() string {
	if label, ok := discrepancyLabels[t]; ok {
		return label
	}
	return string(t)
}

// Valid reports whether t is one of the known types.
func (t DiscrepancyType) Valid() bool {
	_, ok := discrepancyLabels[t]
	return ok
}

// Value is a compared field value: either a currency amount or plain text.
type Value struct {
	amount   decimal.Decimal
	text     string
	isAmount bool
}

// Amount wraps a currency value.
func Amount(d decimal.Decimal) Value {
	return Value{amount: d, isAmount: true}
}

// Text wraps a non-currency value.
func Text(s string) Value {
	return Value{text: s}
}

// IsAmount reports whether the value is a currency amount.
func (v Value) IsAmount() bool { return v.isAmount }

// Decimal returns the amount; zero for text values.
func (v Value) Decimal() decimal.Decimal { return v.amount }

// String returns the raw text, or the amount without currency formatting.
func (v Value) String() string {
	if v.isAmount {
		return v.amount.String()
	}
	return v.text
}

// Finding is a raw comparator result before display formatting. Missing-record
// findings leave both values unset.
type Finding struct {
	Type     DiscrepancyType
	Key      RecordKey
	TARValue *Value
	ECBValue *Value
}

// Discrepancy is the display-ready record returned to clients.
type Discrepancy struct {
	Type        DiscrepancyType `json:"type"`
	SPA         string          `json:"spa"`
	ServiceCode string          `json:"service_code"`
	Title       string          `json:"title"`
	TARValue    *string         `json:"tar_value"`
	ECBValue    *string         `json:"ecb_value"`
}

// TypeCount is the number of discrepancies of one type.
type TypeCount struct {
	Type  DiscrepancyType `json:"type"`
	Label string          `json:"label"`
	Count int             `json:"count"`
}

// Summary aggregates a comparison result.
type Summary struct {
	ByType             []TypeCount `json:"by_type"`
	TotalDiscrepancies int         `json:"total_discrepancies"`
	TotalRecords       int         `json:"total_records"`
	Percentage         float64     `json:"discrepancy_percentage"`
}
