package payroll

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/core"
)

// =============================================================================
// REGIME CONFIG
// =============================================================================

type Regime string

const (
	RegimeOld Regime = "old"
	RegimeNew Regime = "new"
)

func (r Regime) Valid() bool { return r == RegimeOld || r == RegimeNew }

// Slab taxes the part of taxable income between the previous slab's bound
// and UpTo at Rate (a fraction, 0.05 for 5%). A nil UpTo is unbounded and
// may only appear last.
type Slab struct {
	UpTo *core.Money     `json:"up_to,omitempty"`
	Rate decimal.Decimal `json:"rate"`
}

type TaxRegimeConfig struct {
	Regime            Regime     `json:"regime"`
	Slabs             []Slab     `json:"slabs"`
	StandardDeduction core.Money `json:"standard_deduction"`
}

// Validate checks slab ordering and rates. It does not fill in defaults.
func (c TaxRegimeConfig) Validate() error {
	if !c.Regime.Valid() {
		return &core.ConfigurationError{Field: "tax.regime", Reason: fmt.Sprintf("must be old or new (got %q)", c.Regime)}
	}
	field := "tax." + string(c.Regime)
	if len(c.Slabs) == 0 {
		return &core.ConfigurationError{Field: field + ".slabs", Reason: "required"}
	}
	if c.StandardDeduction.IsNegative() {
		return &core.ConfigurationError{Field: field + ".standard_deduction", Reason: "must not be negative"}
	}

	prev := core.ZeroMoney
	one := decimal.NewFromInt(1)
	for i, s := range c.Slabs {
		sf := fmt.Sprintf("%s.slabs[%d]", field, i)
		if s.Rate.IsNegative() || s.Rate.GreaterThan(one) {
			return &core.ConfigurationError{Field: sf + ".rate", Reason: "must be between 0 and 1"}
		}
		last := i == len(c.Slabs)-1
		if s.UpTo == nil {
			if !last {
				return &core.ConfigurationError{Field: sf + ".up_to", Reason: "only the last slab may be unbounded"}
			}
			continue
		}
		if !s.UpTo.GreaterThan(prev) {
			return &core.ConfigurationError{Field: sf + ".up_to", Reason: "bounds must be strictly increasing"}
		}
		prev = *s.UpTo
	}
	if c.Slabs[len(c.Slabs)-1].UpTo != nil {
		return &core.ConfigurationError{Field: field + ".slabs", Reason: "last slab must be unbounded"}
	}
	return nil
}

// =============================================================================
// TAX CALCULATOR
// =============================================================================

// SlabTax is one bracket's contribution, kept for display and audit.
type SlabTax struct {
	From    core.Money      `json:"from"`
	UpTo    *core.Money     `json:"up_to,omitempty"`
	Rate    decimal.Decimal `json:"rate"`
	Taxable core.Money      `json:"taxable"`
	Tax     core.Money      `json:"tax"`
}

type TaxComputation struct {
	Regime            Regime     `json:"regime"`
	MonthlyGross      core.Money `json:"monthly_gross"`
	AnnualGross       core.Money `json:"annual_gross"`
	StandardDeduction core.Money `json:"standard_deduction"`
	TaxableIncome     core.Money `json:"taxable_income"`
	Slabs             []SlabTax  `json:"slabs"`
	AnnualTax         core.Money `json:"annual_tax"`
	MonthlyTax        core.Money `json:"monthly_tax"`
}

// CalculateTax annualizes monthlyGross as x12, subtracts the standard
// deduction and taxes each bracket's share progressively. MonthlyTax is
// AnnualTax/12 rounded to the nearest whole unit, half away from zero.
func CalculateTax(monthlyGross core.Money, regime TaxRegimeConfig) (TaxComputation, error) {
	if err := regime.Validate(); err != nil {
		return TaxComputation{}, err
	}
	if monthlyGross.IsNegative() {
		return TaxComputation{}, &core.ValidationError{Field: "gross", Reason: "must not be negative"}
	}

	annual := monthlyGross.MulInt(12)
	taxable := annual.Sub(regime.StandardDeduction).ClampZero()

	out := TaxComputation{
		Regime:            regime.Regime,
		MonthlyGross:      monthlyGross,
		AnnualGross:       annual,
		StandardDeduction: regime.StandardDeduction,
		TaxableIncome:     taxable,
		AnnualTax:         core.ZeroMoney,
	}

	lower := core.ZeroMoney
	for _, s := range regime.Slabs {
		if !taxable.GreaterThan(lower) {
			break
		}
		portion := taxable.Sub(lower)
		if s.UpTo != nil {
			portion = portion.Min(s.UpTo.Sub(lower))
		}
		tax := portion.Mul(s.Rate)
		out.Slabs = append(out.Slabs, SlabTax{From: lower, UpTo: s.UpTo, Rate: s.Rate, Taxable: portion, Tax: tax})
		out.AnnualTax = out.AnnualTax.Add(tax)
		if s.UpTo == nil {
			break
		}
		lower = *s.UpTo
	}

	out.MonthlyTax = out.AnnualTax.DivInt(12).RoundUnits()
	return out, nil
}

// =============================================================================
// PRESETS - Indian income tax schedules
// =============================================================================

func bound(n int64) *core.Money {
	m := core.NewMoney(n)
	return &m
}

func rate(pct int64) decimal.Decimal { return decimal.New(pct, -2) }

// NewRegime is the new-regime schedule with a 50,000 standard deduction.
func NewRegime() TaxRegimeConfig {
	return TaxRegimeConfig{
		Regime: RegimeNew,
		Slabs: []Slab{
			{UpTo: bound(300000), Rate: rate(0)},
			{UpTo: bound(600000), Rate: rate(5)},
			{UpTo: bound(900000), Rate: rate(10)},
			{UpTo: bound(1200000), Rate: rate(15)},
			{UpTo: bound(1500000), Rate: rate(20)},
			{Rate: rate(30)},
		},
		StandardDeduction: core.NewMoney(50000),
	}
}

// OldRegime is the old-regime schedule with a 50,000 standard deduction.
func OldRegime() TaxRegimeConfig {
	return TaxRegimeConfig{
		Regime: RegimeOld,
		Slabs: []Slab{
			{UpTo: bound(250000), Rate: rate(0)},
			{UpTo: bound(500000), Rate: rate(5)},
			{UpTo: bound(1000000), Rate: rate(20)},
			{Rate: rate(30)},
		},
		StandardDeduction: core.NewMoney(50000),
	}
}
