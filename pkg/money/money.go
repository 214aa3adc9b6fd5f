package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Amounts are carried as integer fils. KWD has three minor-unit digits, so
// 1 KWD = 1000 fils. Decimal values only appear at the parse/format boundary.

const filsPerDinar = 1000

var filsScale = decimal.NewFromInt(filsPerDinar)

// ParseKWD converts a decimal string like "2.150" into fils.
func ParseKWD(value string) (int64, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, fmt.Errorf("money: empty amount")
	}
	dec, err := decimal.NewFromString(trimmed)
	if err != nil {
		return 0, fmt.Errorf("money: parse %q: %w", trimmed, err)
	}
	return FromDecimal(dec)
}

// FromDecimal converts a KWD decimal into fils, rejecting sub-fils precision.
func FromDecimal(dec decimal.Decimal) (int64, error) {
	scaled := dec.Mul(filsScale)
	if !scaled.Equal(scaled.Truncate(0)) {
		return 0, fmt.Errorf("money: %s has more than 3 decimal places", dec.String())
	}
	return scaled.IntPart(), nil
}

// ToDecimal converts fils into a KWD decimal.
func ToDecimal(fils int64) decimal.Decimal {
	return decimal.NewFromInt(fils).Div(filsScale)
}

// FormatKWD renders fils as a KWD string with exactly three decimals.
func FormatKWD(fils int64) string {
	return ToDecimal(fils).StringFixed(3)
}
