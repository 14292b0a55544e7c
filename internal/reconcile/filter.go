package reconcile

import (
	"strings"

	"github.com/timekeepco/timekeep/internal/domain"
)

// SystemCodes are the billing systems the viewer offers as filter options.
var SystemCodes = []string{"VP001", "VP068", "VP227", "VP324"}

// Aggregate rows that never count as discrepancies on their own.
var excludedMarkers = []string{"TOT", "SYS"}

// Filter keeps discrepancies belonging to a set of system codes.
// A nil *Filter keeps everything.
type Filter struct {
	systems []string
}

// NewFilter builds a filter for the given system codes. Blank entries are
// ignored and codes are compared case-insensitively.
func NewFilter(systems []string) *Filter {
	f := &Filter{}
	for _, s := range systems {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s != "" {
			f.systems = append(f.systems, s)
		}
	}
	return f
}

// ParseSystems splits a comma separated system list.
func ParseSystems(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return strings.Split(raw, ",")
}

// Systems returns the normalised system codes.
func (f *Filter) Systems() []string {
	if f == nil {
		return nil
	}
	return append([]string(nil), f.systems...)
}

// Match reports whether a single service code passes the filter.
func (f *Filter) Match(serviceCode string) bool {
	if f == nil {
		return true
	}
	code := strings.ToUpper(serviceCode)
	for _, marker := range excludedMarkers {
		if strings.Contains(code, marker) {
			return false
		}
	}
	// Service codes embed the system code as a prefix (VP00181557000 belongs to
	// VP001), so an exact match would never keep a real record.
	for _, system := range f.systems {
		if strings.HasPrefix(code, system) {
			return true
		}
	}
	return false
}

// Apply returns the discrepancies whose service code passes the filter.
func (f *Filter) Apply(discrepancies []domain.Discrepancy) []domain.Discrepancy {
	if f == nil {
		return discrepancies
	}
	out := make([]domain.Discrepancy, 0, len(discrepancies))
	for _, d := range discrepancies {
		if f.Match(d.ServiceCode) {
			out = append(out, d)
		}
	}
	return out
}
