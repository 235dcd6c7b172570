/*
Package ledger provides the core reconciliation engine.

PURPOSE:
  This package contains the domain-agnostic building blocks for rental
  billing reconciliation: exact monetary amounts, charge lines with
  append-only audit histories, billing-month arithmetic, and the
  allocation waterfall that distributes an incoming payment across
  obligations in a fixed priority order.

KEY CONCEPTS IN THIS FILE (money.go):
  - Money: An exact decimal amount. Never binary floating point.
  - Parsing: All external input passes through ParseMoney, which
    produces a typed value or a ValidationError. The engine never
    accepts raw text or relies on implicit zero-defaulting.

DESIGN PRINCIPLES:
  1. Precision: decimal.Decimal underneath, no float64 in ledger math
  2. Explicit defaults: missing input defaults to zero only at the
     boundary, via DefaultMoney, never inside the engine
  3. Auditability: every mutation appends a history entry

SEE ALSO:
  - charge.go: ChargeLine and history entry types
  - allocate.go: The allocation waterfall
*/
package ledger

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Exact decimal amount
// =============================================================================

type Money struct {
	Value decimal.Decimal
}

func NewMoney(value float64) Money {
	return Money{Value: decimal.NewFromFloat(value)}
}

func NewMoneyFromInt(value int) Money {
	return Money{Value: decimal.NewFromInt(int64(value))}
}

func Zero() Money {
	return Money{Value: decimal.Zero}
}

// ParseMoney converts boundary input into a Money value. Negative amounts
// are rejected here so the engine below never sees them.
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, &ValidationError{Field: "amount", Message: "not a valid decimal: " + s}
	}
	if d.IsNegative() {
		return Money{}, &ValidationError{Field: "amount", Message: "amount must not be negative"}
	}
	return Money{Value: d}, nil
}

// DefaultMoney parses optional boundary input, treating the empty string as
// zero. This is the explicit replacement for falsy-to-zero coercion.
func DefaultMoney(s string) (Money, error) {
	if s == "" {
		return Zero(), nil
	}
	return ParseMoney(s)
}

func (m Money) Add(b Money) Money          { return Money{Value: m.Value.Add(b.Value)} }
func (m Money) Sub(b Money) Money          { return Money{Value: m.Value.Sub(b.Value)} }
func (m Money) Neg() Money                 { return Money{Value: m.Value.Neg()} }
func (m Money) IsZero() bool               { return m.Value.IsZero() }
func (m Money) IsNegative() bool           { return m.Value.IsNegative() }
func (m Money) IsPositive() bool           { return m.Value.IsPositive() }
func (m Money) Equal(b Money) bool         { return m.Value.Equal(b.Value) }
func (m Money) GreaterThan(b Money) bool   { return m.Value.GreaterThan(b.Value) }
func (m Money) LessThan(b Money) bool      { return m.Value.LessThan(b.Value) }
func (m Money) GreaterThanOrEqual(b Money) bool { return m.Value.GreaterThanOrEqual(b.Value) }

func (m Money) Min(b Money) Money {
	if m.LessThan(b) {
		return m
	}
	return b
}

func (m Money) Max(b Money) Money {
	if m.GreaterThan(b) {
		return m
	}
	return b
}

func (m Money) String() string {
	return m.Value.StringFixed(2)
}

// JSON round-trips as a plain decimal string so stored documents stay
// readable and exact.
func (m Money) MarshalJSON() ([]byte, error) {
	return m.Value.MarshalJSON()
}

func (m *Money) UnmarshalJSON(data []byte) error {
	return m.Value.UnmarshalJSON(data)
}
