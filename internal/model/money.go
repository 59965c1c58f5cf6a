package model

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is a USD amount with cent precision.
// It is stored as a plain JSON number (24.99), matching the persisted game format.
type Money struct {
	d decimal.Decimal
}

// NewMoney rounds d to cents.
func NewMoney(d decimal.Decimal) Money {
	return Money{d: d.Round(2)}
}

// MoneyFromFloat converts a float amount, rounding to cents.
func MoneyFromFloat(f float64) Money {
	return NewMoney(decimal.NewFromFloat(f))
}

// MoneyPtr is a convenience for optional prices.
func MoneyPtr(f float64) *Money {
	m := MoneyFromFloat(f)
	return &m
}

// ParseMoney parses user input such as "24.99" or "$1,299.00".
func ParseMoney(s string) (Money, error) {
	clean := strings.TrimSpace(s)
	clean = strings.TrimPrefix(clean, "$")
	clean = strings.ReplaceAll(clean, ",", "")
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return Money{}, ErrNegativePrice
	}
	return NewMoney(d), nil
}

// Decimal returns the underlying decimal value.
func (m Money) Decimal() decimal.Decimal {
	return m.d
}

// Add returns m + o.
func (m Money) Add(o Money) Money {
	return Money{d: m.d.Add(o.d)}
}

// Equal reports whether both amounts are the same number of cents.
func (m Money) Equal(o Money) bool {
	return m.d.Equal(o.d)
}

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool {
	return m.d.IsZero()
}

// IsNegative reports whether the amount is below zero.
func (m Money) IsNegative() bool {
	return m.d.IsNegative()
}

// Float64 returns the amount as a float, for formatting.
func (m Money) Float64() float64 {
	f, _ := m.d.Float64()
	return f
}

// String returns the amount with exactly two decimals ("24.90").
func (m Money) String() string {
	return m.d.StringFixed(2)
}

// MarshalJSON writes the amount as a JSON number.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.d.Round(2).String()), nil
}

// UnmarshalJSON accepts a JSON number or a numeric string.
func (m *Money) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("invalid amount: %w", err)
	}
	m.d = d.Round(2)
	return nil
}
