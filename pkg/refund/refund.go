// Package refund decides how much of a booking price is returned on
// cancellation.
package refund

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tier grants Fraction of the price when the appointment is strictly more
// than Before away.
type Tier struct {
	Before   time.Duration
	Fraction float64
}

// Policy is checked top to bottom; the first matching tier wins and no match
// means no refund.
type Policy []Tier

// Standard is the cancellation policy offered to clients.
var Standard = Policy{
	{Before: 24 * time.Hour, Fraction: 1.0},
	{Before: 12 * time.Hour, Fraction: 0.5},
}

// Decision is what a cancellation at a given moment is worth.
type Decision struct {
	HoursUntil float64         `json:"hours_until"`
	Fraction   float64         `json:"fraction"`
	Amount     decimal.Decimal `json:"amount"`
}

func (p Policy) Fraction(now, appointmentAt time.Time) float64 {
	until := appointmentAt.Sub(now)
	for _, t := range p {
		if until > t.Before {
			return t.Fraction
		}
	}
	return 0
}

// Decide applies the policy to price, rounding the amount to cents.
func (p Policy) Decide(price decimal.Decimal, now, appointmentAt time.Time) Decision {
	f := p.Fraction(now, appointmentAt)
	return Decision{
		HoursUntil: appointmentAt.Sub(now).Hours(),
		Fraction:   f,
		Amount:     price.Mul(decimal.NewFromFloat(f)).Round(2),
	}
}

func Decide(price decimal.Decimal, now, appointmentAt time.Time) Decision {
	return Standard.Decide(price, now, appointmentAt)
}

// Full refunds the whole price regardless of timing; agents declining a
// booking use it.
func Full(price decimal.Decimal, now, appointmentAt time.Time) Decision {
	return Decision{HoursUntil: appointmentAt.Sub(now).Hours(), Fraction: 1, Amount: price.Round(2)}
}
