// Package money converts between decimal prices and payment processor minor
// units, and renders amounts for humans.
package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// ToMinor returns amount in the currency's smallest unit (cents for USD).
func ToMinor(amount decimal.Decimal, cur string) (int64, error) {
	unit, err := currency.ParseISO(strings.ToUpper(cur))
	if err != nil {
		return 0, fmt.Errorf("currency %q: %w", cur, err)
	}
	scale, _ := currency.Standard.Rounding(unit)
	return amount.Shift(int32(scale)).Round(0).IntPart(), nil
}

// FromMinor is the inverse of ToMinor.
func FromMinor(minor int64, cur string) (decimal.Decimal, error) {
	unit, err := currency.ParseISO(strings.ToUpper(cur))
	if err != nil {
		return decimal.Zero, fmt.Errorf("currency %q: %w", cur, err)
	}
	scale, _ := currency.Standard.Rounding(unit)
	return decimal.New(minor, -int32(scale)), nil
}

// Cents rounds to two places, the precision prices are stored with.
func Cents(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Format renders amount with its ISO code, e.g. "USD 49.99".
func Format(amount decimal.Decimal, cur string) string {
	unit, err := currency.ParseISO(strings.ToUpper(cur))
	if err != nil {
		return amount.StringFixed(2) + " " + strings.ToUpper(cur)
	}
	p := message.NewPrinter(language.English)
	return p.Sprint(unit.Amount(amount.InexactFloat64()))
}
