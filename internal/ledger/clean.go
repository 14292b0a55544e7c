package ledger

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidAmount is returned for currency cells that cannot be parsed.
var ErrInvalidAmount = errors.New("invalid currency value")

// ParseCurrency converts cells such as " $ 12.50 ", "$1,200.00" or "7" into a
// decimal amount.
func ParseCurrency(raw string) (decimal.Decimal, error) {
	value := strings.TrimSpace(raw)
	if strings.HasPrefix(value, "$") {
		value = strings.TrimSpace(strings.ReplaceAll(value, "$", ""))
	}
	value = strings.ReplaceAll(value, ",", "")
	if value == "" {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}
	amount, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}
	return amount, nil
}

// CleanDate normalises a stop date cell. Six-character MMDDYY values are
// already canonical; anything else is kept as written, minus padding.
func CleanDate(raw string) string {
	return strings.TrimSpace(raw)
}
