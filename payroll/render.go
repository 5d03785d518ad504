package payroll

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/warp/payroll-engine/core"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// =============================================================================
// SLIP VIEW - Flat shape handed to PDF/HTML renderers
// =============================================================================

type Line struct {
	Label  string     `json:"label"`
	Amount core.Money `json:"amount"`
}

type CompanyInfo struct {
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
}

type EmployeeInfo struct {
	ID          core.EmployeeID `json:"id"`
	Name        string          `json:"name"`
	Designation string          `json:"designation,omitempty"`
	Department  string          `json:"department,omitempty"`
}

type SlipView struct {
	Company         CompanyInfo  `json:"company"`
	Employee        EmployeeInfo `json:"employee"`
	Period          string       `json:"period"`
	Regime          Regime       `json:"regime"`
	Earnings        []Line       `json:"earnings"`
	Deductions      []Line       `json:"deductions"`
	Gross           core.Money   `json:"gross"`
	TotalDeductions core.Money   `json:"total_deductions"`
	Net             core.Money   `json:"net"`
	NetInWords      string       `json:"net_in_words"`
}

// acronyms keep their case when a component name becomes a label.
var acronyms = map[string]string{
	"hra": "HRA",
	"pf":  "PF",
	"tds": "TDS",
	"esi": "ESI",
	"lta": "LTA",
}

// RenderView flattens a finalized slip. Zero lines are left out.
func RenderView(slip SalarySlip, company CompanyInfo, employee EmployeeInfo) (SlipView, error) {
	if slip.Status != SlipFinalized {
		return SlipView{}, &core.ValidationError{Field: "status", Reason: "only finalized slips can be rendered"}
	}
	if employee.ID == "" {
		employee.ID = slip.EmployeeID
	}

	view := SlipView{
		Company:         company,
		Employee:        employee,
		Period:          fmt.Sprintf("%s %d", slip.Month, slip.Year),
		Regime:          slip.Regime,
		Gross:           slip.Gross,
		TotalDeductions: slip.TotalDeductions,
		Net:             slip.Net,
		NetInWords:      slip.NetInWords,
		Earnings:        []Line{},
		Deductions:      []Line{},
	}
	for _, c := range slip.Earnings {
		if !c.Amount.IsZero() {
			view.Earnings = append(view.Earnings, Line{Label: Label(c.Name), Amount: c.Amount})
		}
	}
	for _, d := range slip.Deductions {
		if !d.Amount.IsZero() {
			view.Deductions = append(view.Deductions, Line{Label: Label(d.Name), Amount: d.Amount})
		}
	}
	return view, nil
}

// Label turns a component key such as "specialAllowance" or "income_tax"
// into display text ("Special Allowance", "Income Tax").
func Label(name string) string {
	var words []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			words = append(words, string(cur))
			cur = cur[:0]
		}
	}
	for i, r := range name {
		switch {
		case r == '_' || r == '-' || r == ' ':
			flush()
		case unicode.IsUpper(r) && i > 0:
			flush()
			cur = append(cur, r)
		default:
			cur = append(cur, r)
		}
	}
	flush()

	title := cases.Title(language.English)
	for i, w := range words {
		if a, ok := acronyms[strings.ToLower(w)]; ok {
			words[i] = a
			continue
		}
		words[i] = title.String(w)
	}
	return strings.Join(words, " ")
}
