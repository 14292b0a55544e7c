package reconcile

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/timekeepco/timekeep/internal/domain"
)

// Format converts raw findings into display-ready discrepancies.
func Format(findings []domain.Finding) []domain.Discrepancy {
	out := make([]domain.Discrepancy, 0, len(findings))
	for _, f := range findings {
		d := domain.Discrepancy{
			Type:        f.Type,
			SPA:         f.Key.SPA,
			ServiceCode: f.Key.ServiceCode,
			Title:       Title(f.Type),
		}
		if f.TARValue != nil {
			v := FormatValue(*f.TARValue)
			d.TARValue = &v
		}
		if f.ECBValue != nil {
			v := FormatValue(*f.ECBValue)
			d.ECBValue = &v
		}
		out = append(out, d)
	}
	return out
}

// Title returns the heading shown for a discrepancy of the given type.
func Title(t domain.DiscrepancyType) string {
	switch t {
	case domain.MissingFromECB:
		return "Transaction missing from ECB file"
	case domain.MissingFromTAR:
		return "Transaction missing from TAR file"
	}
	field, ok := strings.CutSuffix(string(t), "_mismatch")
	if !ok {
		return string(t)
	}
	words := strings.Split(field, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ") + " mismatch found"
}

// FormatValue renders amounts as dollars with thousands separators and two
// decimals ("$1,234.50"); text values pass through unchanged.
func FormatValue(v domain.Value) string {
	if !v.IsAmount() {
		return v.String()
	}
	return FormatCurrency(v.Decimal())
}

// FormatCurrency renders d as "$1,234.50". Negative amounts keep the sign
// after the dollar sign ("$-5.00").
func FormatCurrency(d decimal.Decimal) string {
	fixed := d.StringFixed(2)
	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign = "-"
		fixed = fixed[1:]
	}
	whole, frac, _ := strings.Cut(fixed, ".")
	return "$" + sign + groupThousands(whole) + "." + frac
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
