package ledger

import (
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// DefaultMarkupBps is the 10% markup applied by distributors and retailers
	DefaultMarkupBps int64 = 1000
	// MaxMarkupBps caps a single markup at 100%
	MaxMarkupBps int64 = 10000

	bpsDenominator = 10000
)

// ParseAmount parses a non-negative integral amount in minor currency units
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ValidationError("amount is required")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ValidationError("invalid amount %q: %v", s, err)
	}
	if d.IsNegative() {
		return decimal.Zero, ValidationError("amount %s must not be negative", d)
	}
	if !d.Equal(d.Truncate(0)) {
		return decimal.Zero, ValidationError("amount %s must be a whole number of minor units", d)
	}
	return d, nil
}

// ApplyMarkup returns price + floor(price * bps / 10000)
func ApplyMarkup(price decimal.Decimal, bps int64) decimal.Decimal {
	// dividing an integer by 10^4 is exact at 4 places, so Floor rounds down correctly
	increase := price.Mul(decimal.NewFromInt(bps)).DivRound(decimal.NewFromInt(bpsDenominator), 4).Floor()
	return price.Add(increase)
}

// ValidMarkup reports whether bps is an accepted markup
func ValidMarkup(bps int64) bool {
	return bps > 0 && bps <= MaxMarkupBps
}
