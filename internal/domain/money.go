package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Amount is a currency value in minor units (cents).
type Amount int64

const minorUnitsExp = 2

var (
	// ErrAmountFormat is returned when the input is not a decimal number.
	ErrAmountFormat = errors.New("amount is not a number")
	// ErrAmountPrecision is returned when the input has more than two fractional digits.
	ErrAmountPrecision = errors.New("amount has more than two decimal places")
	// ErrAmountNotPositive is returned for zero or negative amounts.
	ErrAmountNotPositive = errors.New("amount must be positive")
	// ErrAmountTooLarge is returned when the amount exceeds the configured ceiling.
	ErrAmountTooLarge = errors.New("amount exceeds the allowed maximum")
)

// amountPattern accepts plain digits or comma thousands groups, with an
// optional dot fraction. Exponents and comma decimals are rejected.
var amountPattern = regexp.MustCompile(`^-?(\d{1,3}(,\d{3})+|\d+)(\.\d+)?$`)

// ParseAmount converts user input such as "12.5" or "$1,000.00" into minor units.
func ParseAmount(raw string) (Amount, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "$")
	if !amountPattern.MatchString(cleaned) {
		return 0, ErrAmountFormat
	}
	cleaned = strings.ReplaceAll(cleaned, ",", "")

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return 0, ErrAmountFormat
	}

	scaled := d.Shift(minorUnitsExp)
	if !scaled.Equal(scaled.Truncate(0)) {
		return 0, ErrAmountPrecision
	}
	if !scaled.IsPositive() {
		return 0, ErrAmountNotPositive
	}
	if scaled.GreaterThan(decimal.NewFromInt(int64(MaxRepresentable))) {
		return 0, ErrAmountTooLarge
	}

	return Amount(scaled.IntPart()), nil
}

// MaxRepresentable bounds parsed amounts well inside int64 so sums cannot overflow.
const MaxRepresentable Amount = 1 << 50

// MustParseAmount is ParseAmount for constants and tests.
func MustParseAmount(raw string) Amount {
	a, err := ParseAmount(raw)
	if err != nil {
		panic(fmt.Sprintf("domain: invalid amount %q: %v", raw, err))
	}
	return a
}

// Decimal returns the amount in major units.
func (a Amount) Decimal() decimal.Decimal {
	return decimal.New(int64(a), -minorUnitsExp)
}

// String renders the amount with a dollar sign and two decimals, e.g. "$12.50".
func (a Amount) String() string {
	d := a.Decimal()
	if d.IsNegative() {
		return "-$" + d.Neg().StringFixed(minorUnitsExp)
	}
	return "$" + d.StringFixed(minorUnitsExp)
}
