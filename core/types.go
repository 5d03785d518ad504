/*
Package core provides the primitives shared by the attendance and payroll engines.

PURPOSE:
  The calendar, geofence, attendance and payroll packages are pure
  computations over supplied snapshots. They agree on a small vocabulary:
  who (EmployeeID), how much (Money), which day (Date) and when (Clock).
  Keeping that vocabulary here lets every engine package stay free of
  storage, transport and configuration concerns.

KEY CONCEPTS IN THIS FILE (types.go):
  - Money: A currency amount backed by decimal.Decimal
  - EmployeeID: Type-safe employee identifier
  - Clock: The only source of "now"; injected, never ambient

DESIGN PRINCIPLES:
  1. Precision: Money never touches float64 arithmetic
  2. Explicit time: engine functions take instants as arguments
  3. Type Safety: Strong typing for IDs prevents mixing keys

SEE ALSO:
  - date.go: Civil calendar dates and ranges
  - errors.go: Error taxonomy shared by every package
*/
package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Currency amount (single currency per organization)
// =============================================================================

type Money struct {
	decimal.Decimal
}

var ZeroMoney = Money{Decimal: decimal.Zero}

func NewMoney(value int64) Money               { return Money{Decimal: decimal.NewFromInt(value)} }
func NewMoneyFromFloat(v float64) Money        { return Money{Decimal: decimal.NewFromFloat(v)} }
func MoneyFromDecimal(d decimal.Decimal) Money { return Money{Decimal: d} }

// ParseMoney parses a decimal string such as "1250.50".
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return ZeroMoney, err
	}
	return Money{Decimal: d}, nil
}

// MustParseMoney is for literals in tests and presets.
func MustParseMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

func (m Money) Add(o Money) Money           { return Money{Decimal: m.Decimal.Add(o.Decimal)} }
func (m Money) Sub(o Money) Money           { return Money{Decimal: m.Decimal.Sub(o.Decimal)} }
func (m Money) Mul(d decimal.Decimal) Money { return Money{Decimal: m.Decimal.Mul(d)} }
func (m Money) MulInt(n int64) Money        { return Money{Decimal: m.Decimal.Mul(decimal.NewFromInt(n))} }
func (m Money) DivInt(n int64) Money        { return Money{Decimal: m.Decimal.Div(decimal.NewFromInt(n))} }
func (m Money) RoundUnits() Money           { return Money{Decimal: m.Decimal.Round(0)} }
func (m Money) Equal(o Money) bool          { return m.Decimal.Equal(o.Decimal) }
func (m Money) GreaterThan(o Money) bool    { return m.Decimal.GreaterThan(o.Decimal) }
func (m Money) LessThan(o Money) bool       { return m.Decimal.LessThan(o.Decimal) }

func (m Money) Min(o Money) Money {
	if m.LessThan(o) {
		return m
	}
	return o
}

func (m Money) Max(o Money) Money {
	if m.GreaterThan(o) {
		return m
	}
	return o
}

// ClampZero returns m, or zero when m is negative.
func (m Money) ClampZero() Money {
	if m.IsNegative() {
		return ZeroMoney
	}
	return m
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EmployeeID string

// =============================================================================
// CLOCK - Injected source of the current instant
// =============================================================================

// Clock supplies the current instant to the service layer. Engine packages
// never call it; they receive the instant as an argument.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always returns the same instant.
type FixedClock struct {
	At time.Time
}

func (c FixedClock) Now() time.Time { return c.At }
