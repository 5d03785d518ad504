package payroll

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/warp/payroll-engine/core"
)

// =============================================================================
// SLIP TYPES
// =============================================================================

type SlipStatus string

const (
	SlipDraft     SlipStatus = "draft"
	SlipFinalized SlipStatus = "finalized"
)

// DeductionIncomeTax is the reserved name of the computed tax line.
const DeductionIncomeTax = "income_tax"

type Deduction struct {
	Name   string     `json:"name"`
	Amount core.Money `json:"amount"`
}

type SlipFlags struct {
	// DeductionsExceedEarnings is set when net was clamped to zero.
	DeductionsExceedEarnings bool `json:"deductions_exceed_earnings,omitempty"`
}

// SalarySlip is unique per (employee, year, month).
type SalarySlip struct {
	ID         string          `json:"id"`
	EmployeeID core.EmployeeID `json:"employee_id"`
	Year       int             `json:"year"`
	Month      time.Month      `json:"month"`
	Regime     Regime          `json:"regime"`

	Earnings        []Component    `json:"earnings"`
	Deductions      []Deduction    `json:"deductions"`
	Gross           core.Money     `json:"gross"`
	TotalDeductions core.Money     `json:"total_deductions"`
	Net             core.Money     `json:"net"`
	NetInWords      string         `json:"net_in_words"`
	Tax             TaxComputation `json:"tax"`

	Status SlipStatus `json:"status"`
	Flags  SlipFlags  `json:"flags"`

	// LeaveDays is the approved leave in the month. It is informational;
	// amounts are not prorated by it.
	LeaveDays int `json:"leave_days"`
	// Revision counts re-derivations of the same (employee, year, month).
	Revision int `json:"revision"`

	GeneratedAt time.Time  `json:"generated_at"`
	FinalizedAt *time.Time `json:"finalized_at,omitempty"`
}

// Key is the uniqueness key stores enforce.
func (s SalarySlip) Key() string { return SlipKey(s.EmployeeID, s.Year, s.Month) }

func SlipKey(employee core.EmployeeID, year int, month time.Month) string {
	return fmt.Sprintf("%s/%04d-%02d", employee, year, int(month))
}

// Period is the first-to-last day span of the slip month.
func (s SalarySlip) Period() core.DateRange { return core.MonthRange(s.Year, s.Month) }

// Deduction returns the named deduction amount, or zero.
func (s SalarySlip) Deduction(name string) core.Money {
	for _, d := range s.Deductions {
		if d.Name == name {
			return d.Amount
		}
	}
	return core.ZeroMoney
}

// =============================================================================
// COMPOSE
// =============================================================================

// ErrSlipFinalized is returned when re-deriving a finalized slip without an
// explicit overwrite. It is also a core.ErrConflict.
var ErrSlipFinalized = errors.New("salary slip is finalized")

type ComposeInput struct {
	ID               string
	Structure        SalaryStructure
	Regime           TaxRegimeConfig
	Year             int
	Month            time.Month
	CustomDeductions []Deduction
	LeaveDays        int
	At               time.Time

	// Existing is the stored slip for the same key, if any. A finalized
	// Existing is only replaced when OverwriteFinalized is set.
	Existing           *SalarySlip
	OverwriteFinalized bool
}

// Compose builds a draft slip. Net is clamped at zero and flagged when
// deductions exceed gross.
func Compose(in ComposeInput) (SalarySlip, error) {
	if in.Month < time.January || in.Month > time.December {
		return SalarySlip{}, &core.ValidationError{Field: "month", Reason: "must be 1-12"}
	}
	if in.Year < 1 {
		return SalarySlip{}, &core.ValidationError{Field: "year", Reason: "must be positive"}
	}
	if in.LeaveDays < 0 {
		return SalarySlip{}, &core.ValidationError{Field: "leave_days", Reason: "must not be negative"}
	}

	resolved, err := ResolveStructure(in.Structure)
	if err != nil {
		return SalarySlip{}, err
	}
	custom, err := validateDeductions(in.CustomDeductions)
	if err != nil {
		return SalarySlip{}, err
	}

	slip := SalarySlip{
		ID:          in.ID,
		EmployeeID:  resolved.EmployeeID,
		Year:        in.Year,
		Month:       in.Month,
		Status:      SlipDraft,
		LeaveDays:   in.LeaveDays,
		GeneratedAt: in.At,
	}
	if ex := in.Existing; ex != nil {
		if ex.Key() != slip.Key() {
			return SalarySlip{}, &core.ValidationError{Field: "existing", Reason: "belongs to a different employee-month"}
		}
		if ex.Status == SlipFinalized && !in.OverwriteFinalized {
			return SalarySlip{}, fmt.Errorf("%w: %w", ErrSlipFinalized,
				&core.ConflictError{Key: ex.Key(), Reason: "finalized slips are only re-derived with explicit overwrite"})
		}
		slip.ID = ex.ID
		slip.Revision = ex.Revision + 1
	}

	tax, err := CalculateTax(resolved.Gross, in.Regime)
	if err != nil {
		return SalarySlip{}, err
	}

	slip.Regime = tax.Regime
	slip.Tax = tax
	slip.Earnings = resolved.Components
	slip.Gross = resolved.Gross
	slip.Deductions = append([]Deduction{{Name: DeductionIncomeTax, Amount: tax.MonthlyTax}}, custom...)

	total := core.ZeroMoney
	for _, d := range slip.Deductions {
		total = total.Add(d.Amount)
	}
	slip.TotalDeductions = total

	net := slip.Gross.Sub(total)
	if net.IsNegative() {
		slip.Flags.DeductionsExceedEarnings = true
		net = core.ZeroMoney
	}
	slip.Net = net
	slip.NetInWords = AmountInWords(net)
	return slip, nil
}

func validateDeductions(in []Deduction) ([]Deduction, error) {
	seen := make(map[string]bool, len(in))
	out := make([]Deduction, 0, len(in))
	for i, d := range in {
		name := strings.TrimSpace(d.Name)
		field := fmt.Sprintf("deductions[%d]", i)
		switch {
		case name == "":
			return nil, &core.ValidationError{Field: field + ".name", Reason: "required"}
		case strings.EqualFold(name, DeductionIncomeTax):
			return nil, &core.ValidationError{Field: field + ".name", Reason: DeductionIncomeTax + " is computed, not supplied"}
		case seen[name]:
			return nil, &core.ValidationError{Field: field + ".name", Reason: "duplicate deduction " + name}
		case d.Amount.IsNegative():
			return nil, &core.ValidationError{Field: field + ".amount", Reason: "must not be negative"}
		}
		seen[name] = true
		out = append(out, Deduction{Name: name, Amount: d.Amount})
	}
	return out, nil
}
