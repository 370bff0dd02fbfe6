// Package amount parses and formats the arbitrary-precision integer amounts
// exchanged across the ledger boundary as decimal strings.
package amount

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/centralbank/usdw/backend/internal/ledgererr"
)

// Zero is the additive identity.
var Zero = decimal.Zero

// Only plain digit strings are amounts. Exponent forms like "1e5000000" are
// refused before decimal expands them.
var integerPattern = regexp.MustCompile(`^-?[0-9]+$`)

// Parse reads a base-10 integer. Fractions, exponents, a leading "+" and
// anything else that is not plain digits fail with INVALID_AMOUNT.
func Parse(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Decimal{}, ledgererr.New(ledgererr.KindInvalidAmount, "amount is required")
	}
	if !integerPattern.MatchString(s) {
		return decimal.Decimal{}, ledgererr.New(ledgererr.KindInvalidAmount, "amount %q must be a whole number in plain digits", truncate(s))
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, ledgererr.Wrap(err, ledgererr.KindInvalidAmount, "amount %q is not a number", s)
	}
	return d, nil
}

// ParsePositive reads an amount that must be strictly greater than zero.
func ParsePositive(s string) (decimal.Decimal, error) {
	d, err := Parse(s)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if !d.IsPositive() {
		return decimal.Decimal{}, ledgererr.New(ledgererr.KindInvalidAmount, "amount must be positive, got %s", Format(d))
	}
	return d, nil
}

// ParseNonNegative reads an amount that may be zero but not negative.
func ParseNonNegative(s string) (decimal.Decimal, error) {
	d, err := Parse(s)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if d.IsNegative() {
		return decimal.Decimal{}, ledgererr.New(ledgererr.KindInvalidAmount, "amount must not be negative, got %s", Format(d))
	}
	return d, nil
}

// ParseStored reads a balance or supply value loaded from the ledger. An
// empty value is zero; anything unparseable is a malformed record.
func ParseStored(s string) (decimal.Decimal, error) {
	if s == "" {
		return Zero, nil
	}
	if !integerPattern.MatchString(s) {
		return decimal.Decimal{}, ledgererr.New(ledgererr.KindMalformedRecord, "stored amount %q is invalid", truncate(s))
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return decimal.Decimal{}, ledgererr.Wrap(err, ledgererr.KindMalformedRecord, "stored amount %q is invalid", s)
	}
	return d, nil
}

// Format renders an integer amount without exponent or fraction.
func Format(d decimal.Decimal) string {
	return d.StringFixed(0)
}

func truncate(s string) string {
	const max = 64
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
