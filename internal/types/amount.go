package types

import (
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Amount is a euro amount as received from the caller.
// Invalid amounts behave as zero in arithmetic; validators report them.
type Amount struct {
	Raw   string
	Value decimal.Decimal
	Valid bool
}

// ParseAmount parses a decimal amount. A comma is accepted as the decimal
// separator when no dot is present. Empty input is a valid zero.
func ParseAmount(raw string) Amount {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Amount{Raw: raw, Valid: true}
	}
	if !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{Raw: raw}
	}
	return Amount{Raw: raw, Value: v, Valid: true}
}

// NewAmount wraps an already computed value.
func NewAmount(v decimal.Decimal) Amount {
	return Amount{Raw: v.String(), Value: v, Valid: true}
}

// Cents returns the amount in cents, rounded half away from zero.
func (a Amount) Cents() int64 {
	return a.Value.Mul(hundred).Round(0).IntPart()
}

// Add returns the sum of two amounts. The result is invalid when either
// operand is, and then keeps the first invalid raw text.
func (a Amount) Add(o Amount) Amount {
	sum := a.Value.Add(o.Value)
	switch {
	case !a.Valid:
		return Amount{Raw: a.Raw, Value: sum}
	case !o.Valid:
		return Amount{Raw: o.Raw, Value: sum}
	}
	return NewAmount(sum)
}

// IsNegative reports whether the amount is below zero.
func (a Amount) IsNegative() bool {
	return a.Value.IsNegative()
}

// IsZero reports whether the amount is zero.
func (a Amount) IsZero() bool {
	return a.Value.IsZero()
}
