// Package money normalizes heterogeneous price representations into decimal amounts.
package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Historical product data carries either glyph; both mark the same currency.
var currencyGlyphs = []string{"$", "₦"}

var ErrUnparseable = errors.New("amount is not a parseable number")

// ParseAmount converts a raw price value into a decimal amount. Strings may
// carry a currency glyph, surrounding whitespace, and thousands or locale
// decimal separators. Unparseable input returns ErrUnparseable.
func ParseAmount(value any) (decimal.Decimal, error) {
	switch v := value.(type) {
	case nil:
		return decimal.Zero, fmt.Errorf("%w: value is nil", ErrUnparseable)
	case decimal.Decimal:
		return v, nil
	case string:
		return parseAmountString(v)
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int32:
		return decimal.NewFromInt(int64(v)), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case float32:
		return decimal.NewFromFloat32(v), nil
	case float64:
		return decimal.NewFromFloat(v), nil
	default:
		return decimal.Zero, fmt.Errorf("%w: unsupported type %T", ErrUnparseable, value)
	}
}

// NormalizeAmount is the forgiving variant: anything ParseAmount rejects
// becomes zero. Kept for historical catalog data that predates strict
// validation; new code should prefer ParseAmount.
func NormalizeAmount(value any) decimal.Decimal {
	amount, err := ParseAmount(value)
	if err != nil {
		return decimal.Zero
	}
	return amount
}

func parseAmountString(raw string) (decimal.Decimal, error) {
	cleaned := strings.TrimSpace(raw)
	for _, glyph := range currencyGlyphs {
		cleaned = strings.ReplaceAll(cleaned, glyph, "")
	}
	cleaned = strings.Join(strings.Fields(cleaned), "")
	cleaned = normalizeSeparators(cleaned)

	if cleaned == "" {
		return decimal.Zero, fmt.Errorf("%w: empty string", ErrUnparseable)
	}

	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrUnparseable, raw)
	}
	return amount, nil
}

// normalizeSeparators maps comma-formatted values onto the canonical form:
// a comma followed by exactly two trailing digits is a locale decimal
// separator, any other comma is a thousands separator.
func normalizeSeparators(s string) string {
	if !strings.Contains(s, ",") {
		return s
	}
	if !strings.Contains(s, ".") {
		if idx := strings.LastIndex(s, ","); idx >= 0 && len(s)-idx-1 == 2 && strings.Count(s, ",") == 1 {
			return s[:idx] + "." + s[idx+1:]
		}
	}
	return strings.ReplaceAll(s, ",", "")
}
