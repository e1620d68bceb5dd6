package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// CentPlaces is the precision every stored monetary amount is rounded to.
const CentPlaces = 2

var hundred = decimal.NewFromInt(100)

// RoundCents rounds half away from zero to two decimal places.
func RoundCents(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(CentPlaces)
}

// LineTotal returns round(unitPrice × quantity, 2).
func LineTotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return RoundCents(unitPrice.Mul(decimal.NewFromInt(int64(quantity))))
}

// ToMinorUnits converts a cent-rounded amount into integer cents.
func ToMinorUnits(amount decimal.Decimal) (int64, error) {
	if amount.IsNegative() {
		return 0, fmt.Errorf("amount %s is negative", amount.String())
	}
	cents := RoundCents(amount).Mul(hundred)
	if !cents.IsInteger() {
		return 0, fmt.Errorf("amount %s cannot be expressed in minor units", amount.String())
	}
	return cents.IntPart(), nil
}

// FromMinorUnits converts integer cents back into a decimal amount.
func FromMinorUnits(cents int64) decimal.Decimal {
	return decimal.New(cents, -CentPlaces)
}

// Parse reads a decimal string and rounds it to cents.
func Parse(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", raw, err)
	}
	return RoundCents(amount), nil
}
