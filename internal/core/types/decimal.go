// Package types provides common type aliases and utilities.
package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// Money represents a monetary value with full precision.
// Uses decimal.Decimal to avoid floating-point errors.
type Money = decimal.Decimal

// MoneyScale is the number of fractional digits kept at line, tax and total boundaries.
const MoneyScale int32 = 2

// NewMoneyFromString creates a Money value from a string.
// This is the preferred method for monetary values.
func NewMoneyFromString(s string) (Money, error) {
	return decimal.NewFromString(s)
}

// MustMoney creates a Money value from a string, panics on error.
// Use only for constants and tests.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Zero returns zero Money value.
func Zero() Money {
	return decimal.Zero
}

// RoundMoney rounds half away from zero to MoneyScale digits.
func RoundMoney(m Money) Money {
	return m.Round(MoneyScale)
}

// Percent returns pct% of m, rounded to MoneyScale.
func Percent(m Money, pct decimal.Decimal) Money {
	return RoundMoney(m.Mul(pct).Div(decimal.NewFromInt(100)))
}

// MinMoney returns the smaller of a and b.
func MinMoney(a, b Money) Money {
	if a.LessThan(b) {
		return a
	}
	return b
}

// Quantity is a fixed-point quantity with 4 decimal places (scale = 1e4).
//
// Stored as BIGINT in the database; JSON remains a number with up to 4 decimals.
// Whole units (pieces) and weighed goods share the same representation.
type Quantity int64

const (
	QuantityScale  int64 = 10_000
	quantityDigits int32 = 4
)

// NewQuantity creates a Quantity of whole units.
func NewQuantity(units int64) Quantity { return Quantity(units * QuantityScale) }

// ErrQuantityOutOfRange is returned for values that do not fit the scaled int64.
var ErrQuantityOutOfRange = errors.New("quantity out of range")

var (
	maxScaled = decimal.NewFromInt(math.MaxInt64)
	minScaled = decimal.NewFromInt(math.MinInt64)
)

// NewQuantityFromDecimal truncates d to 4 fractional digits.
func NewQuantityFromDecimal(d decimal.Decimal) (Quantity, error) {
	scaled := d.Shift(quantityDigits).Truncate(0)
	if scaled.GreaterThan(maxScaled) || scaled.LessThan(minScaled) {
		return 0, ErrQuantityOutOfRange
	}
	return Quantity(scaled.IntPart()), nil
}

// ParseQuantity parses a decimal string such as "1.5" or "-3".
func ParseQuantity(s string) (Quantity, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parse quantity %q: %w", s, err)
	}
	q, err := NewQuantityFromDecimal(d)
	if err != nil {
		return 0, fmt.Errorf("parse quantity %q: %w", s, err)
	}
	return q, nil
}

// Add returns q+o, or ErrQuantityOutOfRange on int64 overflow.
func (q Quantity) Add(o Quantity) (Quantity, error) {
	sum := q + o
	if (o > 0 && sum < q) || (o < 0 && sum > q) {
		return 0, ErrQuantityOutOfRange
	}
	return sum, nil
}

func (q Quantity) Int64Scaled() int64 { return int64(q) }

// Decimal returns the quantity as an exact decimal.
func (q Quantity) Decimal() decimal.Decimal { return decimal.New(int64(q), -quantityDigits) }

func (q Quantity) IsZero() bool { return q == 0 }

func (q Quantity) IsPositive() bool { return q > 0 }

func (q Quantity) IsNegative() bool { return q < 0 }

func (q Quantity) Neg() Quantity { return -q }

// String returns a decimal string with 4 fractional digits.
func (q Quantity) String() string {
	return q.Decimal().StringFixed(quantityDigits)
}

// MarshalJSON encodes Quantity as JSON number (not string), preserving 4 digits.
func (q Quantity) MarshalJSON() ([]byte, error) {
	return []byte(q.String()), nil
}

// UnmarshalJSON accepts either a JSON number or string.
func (q *Quantity) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*q = 0
		return nil
	}

	raw := string(data)
	if data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
	}

	parsed, err := ParseQuantity(raw)
	if err != nil {
		return err
	}
	*q = parsed
	return nil
}
