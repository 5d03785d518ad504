/*
Package payroll turns salary structures into taxed, published salary slips.

PURPOSE:
  Three pure steps run in sequence for one employee-month:
    1. ResolveStructure: validate earning components, sum the gross
    2. CalculateTax: annualize, apply progressive slabs, de-annualize
    3. Compose: add custom deductions, clamp net, render net in words
  The slip then moves through an explicit two-state lifecycle
  (draft <-> finalized) and can be flattened for a renderer.

KEY CONCEPTS IN THIS FILE (structure.go):
  - SalaryStructure: Earnings by component name, one per employee
  - Component: A named monthly amount
  - Resolved: Ordered components plus gross

MONEY:
  All amounts are core.Money (decimal). Nothing in this package uses
  float arithmetic on money.

SEE ALSO:
  - tax.go: Regimes, slabs and the tax calculator
  - slip.go: Compose
  - words.go: AmountInWords
  - lifecycle.go: Finalize, Unpublish
  - render.go: RenderView
*/
package payroll

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/warp/payroll-engine/core"
)

// ComponentBasic is the one earning component every structure must carry.
const ComponentBasic = "basic"

type SalaryStructure struct {
	EmployeeID core.EmployeeID       `json:"employee_id"`
	Earnings   map[string]core.Money `json:"earnings"`
	UpdatedAt  time.Time             `json:"updated_at"`
}

type Component struct {
	Name   string     `json:"name"`
	Amount core.Money `json:"amount"`
}

// Resolved is a validated structure. Components are ordered basic first,
// then by name, so slips built from the same structure always list
// earnings in the same order.
type Resolved struct {
	EmployeeID core.EmployeeID `json:"employee_id"`
	Components []Component     `json:"components"`
	Gross      core.Money      `json:"gross"`
}

// Amount returns the named component, or zero.
func (r Resolved) Amount(name string) core.Money {
	for _, c := range r.Components {
		if c.Name == name {
			return c.Amount
		}
	}
	return core.ZeroMoney
}

// ResolveStructure validates s and derives its gross.
func ResolveStructure(s SalaryStructure) (Resolved, error) {
	if s.EmployeeID == "" {
		return Resolved{}, &core.ValidationError{Field: "employee_id", Reason: "required"}
	}
	if _, ok := s.Earnings[ComponentBasic]; !ok {
		return Resolved{}, &core.ValidationError{Field: "earnings.basic", Reason: "basic salary component is required"}
	}

	out := Resolved{EmployeeID: s.EmployeeID, Gross: core.ZeroMoney}
	for name, amount := range s.Earnings {
		if strings.TrimSpace(name) == "" {
			return Resolved{}, &core.ValidationError{Field: "earnings", Reason: "component name must not be empty"}
		}
		if amount.IsNegative() {
			return Resolved{}, &core.ValidationError{
				Field:  "earnings." + name,
				Reason: fmt.Sprintf("must not be negative (got %s)", amount.String()),
			}
		}
		out.Components = append(out.Components, Component{Name: name, Amount: amount})
		out.Gross = out.Gross.Add(amount)
	}

	sort.Slice(out.Components, func(i, j int) bool {
		a, b := out.Components[i].Name, out.Components[j].Name
		if a == ComponentBasic || b == ComponentBasic {
			return a == ComponentBasic && b != ComponentBasic
		}
		return a < b
	})
	return out, nil
}
