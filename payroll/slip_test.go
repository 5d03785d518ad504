package payroll_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-engine/core"
	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

var generatedAt = time.Date(2025, time.March, 31, 12, 0, 0, 0, time.UTC)

func scenarioEStructure() payroll.SalaryStructure {
	return payroll.SalaryStructure{
		EmployeeID: "emp-001",
		Earnings: map[string]core.Money{
			"basic":            money(30000),
			"hra":              money(12000),
			"conveyance":       money(1600),
			"medical":          money(1250),
			"specialAllowance": money(5000),
		},
	}
}

func composeInput(regime payroll.TaxRegimeConfig) payroll.ComposeInput {
	return payroll.ComposeInput{
		ID:        "slip-1",
		Structure: scenarioEStructure(),
		Regime:    regime,
		Year:      2025,
		Month:     time.March,
		At:        generatedAt,
	}
}

// =============================================================================
// STRUCTURE
// =============================================================================

func TestResolveStructure(t *testing.T) {
	r, err := payroll.ResolveStructure(scenarioEStructure())
	require.NoError(t, err)

	assertMoney(t, 49850, r.Gross)
	require.Len(t, r.Components, 5)
	assert.Equal(t, "basic", r.Components[0].Name)
	assert.Equal(t, "conveyance", r.Components[1].Name)
	assert.Equal(t, "specialAllowance", r.Components[4].Name)
	assertMoney(t, 12000, r.Amount("hra"))
}

func TestResolveStructure_Rejects(t *testing.T) {
	noBasic := scenarioEStructure()
	delete(noBasic.Earnings, "basic")
	_, err := payroll.ResolveStructure(noBasic)
	var verr *core.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "earnings.basic", verr.Field)

	negative := scenarioEStructure()
	negative.Earnings["medical"] = money(-1)
	_, err = payroll.ResolveStructure(negative)
	assert.ErrorIs(t, err, core.ErrValidation)

	noEmployee := scenarioEStructure()
	noEmployee.EmployeeID = ""
	_, err = payroll.ResolveStructure(noEmployee)
	assert.ErrorIs(t, err, core.ErrValidation)
}

// =============================================================================
// COMPOSE
// =============================================================================

func TestCompose_ScenarioE(t *testing.T) {
	// GIVEN: The Scenario E structure and a 200 professional tax deduction
	// WHEN: Composing under each regime
	// THEN: Net is gross minus tax minus custom deductions

	tests := []struct {
		regime     payroll.TaxRegimeConfig
		monthlyTax int64
		net        int64
		words      string
	}{
		{payroll.NewRegime(), 1034, 48616, "Forty Eight Thousand Six Hundred Sixteen Rupees Only"},
		{payroll.OldRegime(), 1845, 47805, "Forty Seven Thousand Eight Hundred Five Rupees Only"},
	}

	for _, tt := range tests {
		t.Run(string(tt.regime.Regime), func(t *testing.T) {
			in := composeInput(tt.regime)
			in.CustomDeductions = []payroll.Deduction{{Name: "professional_tax", Amount: money(200)}}

			slip, err := payroll.Compose(in)
			require.NoError(t, err)

			assert.Equal(t, payroll.SlipDraft, slip.Status)
			assert.Equal(t, tt.regime.Regime, slip.Regime)
			assertMoney(t, 49850, slip.Gross)
			assertMoney(t, tt.monthlyTax, slip.Deduction(payroll.DeductionIncomeTax))
			assertMoney(t, tt.monthlyTax+200, slip.TotalDeductions)
			assertMoney(t, tt.net, slip.Net)
			assert.Equal(t, tt.words, slip.NetInWords)
			assert.False(t, slip.Flags.DeductionsExceedEarnings)
			assert.Equal(t, "emp-001/2025-03", slip.Key())
		})
	}
}

func TestCompose_ClampsNetAndFlags(t *testing.T) {
	// GIVEN: A loan recovery larger than gross
	// WHEN: Composing
	// THEN: Net is zero with the exceed flag, never negative

	in := composeInput(payroll.NewRegime())
	in.CustomDeductions = []payroll.Deduction{{Name: "loan_recovery", Amount: money(60000)}}

	slip, err := payroll.Compose(in)
	require.NoError(t, err)

	assert.True(t, slip.Net.IsZero())
	assert.True(t, slip.Flags.DeductionsExceedEarnings)
	assert.Equal(t, "Zero Rupees Only", slip.NetInWords)
	assertMoney(t, 61034, slip.TotalDeductions)
}

func TestCompose_NetNeverNegative(t *testing.T) {
	for _, amount := range []int64{0, 1, 48815, 48816, 48817, 1000000} {
		in := composeInput(payroll.NewRegime())
		in.CustomDeductions = []payroll.Deduction{{Name: "other", Amount: money(amount)}}

		slip, err := payroll.Compose(in)
		require.NoError(t, err)

		want := slip.Gross.Sub(slip.TotalDeductions).ClampZero()
		assert.True(t, slip.Net.Equal(want), "deduction %d", amount)
		assert.Equal(t, slip.Gross.LessThan(slip.TotalDeductions), slip.Flags.DeductionsExceedEarnings)
	}
}

func TestCompose_RejectsBadDeductions(t *testing.T) {
	tests := map[string][]payroll.Deduction{
		"empty name": {{Name: " ", Amount: money(1)}},
		"reserved":   {{Name: "Income_Tax", Amount: money(1)}},
		"negative":   {{Name: "pf", Amount: money(-1)}},
		"duplicate":  {{Name: "pf", Amount: money(1)}, {Name: "pf", Amount: money(2)}},
	}
	for name, deductions := range tests {
		t.Run(name, func(t *testing.T) {
			in := composeInput(payroll.NewRegime())
			in.CustomDeductions = deductions
			_, err := payroll.Compose(in)
			assert.ErrorIs(t, err, core.ErrValidation)
		})
	}
}

func TestCompose_RejectsBadPeriod(t *testing.T) {
	in := composeInput(payroll.NewRegime())
	in.Month = 13
	_, err := payroll.Compose(in)
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestCompose_GuardedOverwrite(t *testing.T) {
	// GIVEN: A finalized slip for March
	first, err := payroll.Compose(composeInput(payroll.NewRegime()))
	require.NoError(t, err)
	finalized, err := payroll.Finalize(first, generatedAt)
	require.NoError(t, err)

	// WHEN: Re-deriving without the overwrite flag
	in := composeInput(payroll.NewRegime())
	in.ID = "slip-2"
	in.Existing = &finalized
	_, err = payroll.Compose(in)

	// THEN: Refused as a conflict
	assert.ErrorIs(t, err, payroll.ErrSlipFinalized)
	assert.True(t, core.IsConflict(err))

	// WHEN: Re-deriving with the overwrite flag
	in.OverwriteFinalized = true
	redo, err := payroll.Compose(in)

	// THEN: Same slip id, next revision, back in draft
	require.NoError(t, err)
	assert.Equal(t, "slip-1", redo.ID)
	assert.Equal(t, 1, redo.Revision)
	assert.Equal(t, payroll.SlipDraft, redo.Status)
}

func TestCompose_DraftExistingIsReplaced(t *testing.T) {
	first, err := payroll.Compose(composeInput(payroll.NewRegime()))
	require.NoError(t, err)

	in := composeInput(payroll.OldRegime())
	in.Existing = &first
	in.LeaveDays = 2
	redo, err := payroll.Compose(in)

	require.NoError(t, err)
	assert.Equal(t, payroll.RegimeOld, redo.Regime)
	assert.Equal(t, 2, redo.LeaveDays)
	// Leave is recorded, not prorated
	assertMoney(t, 49850, redo.Gross)
}

// =============================================================================
// AMOUNT IN WORDS
// =============================================================================

func TestAmountInWords(t *testing.T) {
	tests := []struct {
		amount core.Money
		want   string
	}{
		{money(0), "Zero Rupees Only"},
		{money(1000), "One Thousand Rupees Only"},
		{money(100000), "One Lakh Rupees Only"},
		{money(1234567), "Twelve Lakh Thirty Four Thousand Five Hundred Sixty Seven Rupees Only"},
		{money(7), "Seven Rupees Only"},
		{money(19), "Nineteen Rupees Only"},
		{money(40), "Forty Rupees Only"},
		{money(101), "One Hundred One Rupees Only"},
		{money(10000000), "One Crore Rupees Only"},
		{money(123456789), "Twelve Crore Thirty Four Lakh Fifty Six Thousand Seven Hundred Eighty Nine Rupees Only"},
		{money(1000000000), "One Hundred Crore Rupees Only"},
		{core.MustParseMoney("48815.50"), "Forty Eight Thousand Eight Hundred Sixteen Rupees Only"},
		{core.MustParseMoney("0.49"), "Zero Rupees Only"},
		{money(-250), "Minus Two Hundred Fifty Rupees Only"},
		// Beyond int64
		{core.MustParseMoney("9223372036854775808"), "Ninety Two Thousand Two Hundred Thirty Three Crore " +
			"Seventy Two Lakh Three Thousand Six Hundred Eighty Five Crore " +
			"Forty Seven Lakh Seventy Five Thousand Eight Hundred Eight Rupees Only"},
		{core.MustParseMoney("100000000000000000000"), "Ten Lakh Crore Crore Rupees Only"},
		{core.MustParseMoney("-100000000000000000000"), "Minus Ten Lakh Crore Crore Rupees Only"},
	}
	for _, tt := range tests {
		t.Run(tt.amount.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, payroll.AmountInWords(tt.amount))
		})
	}
}

// =============================================================================
// LIFECYCLE
// =============================================================================

func TestLifecycle(t *testing.T) {
	slip, err := payroll.Compose(composeInput(payroll.NewRegime()))
	require.NoError(t, err)

	// draft -> draft is not a move
	_, err = payroll.Unpublish(slip)
	var terr *payroll.TransitionError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, payroll.SlipDraft, terr.From)
	assert.ErrorIs(t, err, core.ErrInvalidTransition)

	finalized, err := payroll.Finalize(slip, generatedAt)
	require.NoError(t, err)
	assert.Equal(t, payroll.SlipFinalized, finalized.Status)
	require.NotNil(t, finalized.FinalizedAt)

	_, err = payroll.Finalize(finalized, generatedAt)
	assert.ErrorIs(t, err, core.ErrInvalidTransition)
	assert.True(t, core.IsClientError(err))

	draft, err := payroll.Unpublish(finalized)
	require.NoError(t, err)
	assert.Equal(t, payroll.SlipDraft, draft.Status)
	assert.Nil(t, draft.FinalizedAt)
}

// =============================================================================
// RENDER
// =============================================================================

func TestRenderView(t *testing.T) {
	structure := scenarioEStructure()
	structure.Earnings["bonus"] = core.ZeroMoney
	in := composeInput(payroll.NewRegime())
	in.Structure = structure
	in.CustomDeductions = []payroll.Deduction{{Name: "pf", Amount: money(1800)}, {Name: "canteen", Amount: core.ZeroMoney}}
	slip, err := payroll.Compose(in)
	require.NoError(t, err)

	_, err = payroll.RenderView(slip, payroll.CompanyInfo{Name: "Warp"}, payroll.EmployeeInfo{Name: "A. Rao"})
	assert.ErrorIs(t, err, core.ErrValidation, "drafts are not rendered")

	finalized, err := payroll.Finalize(slip, generatedAt)
	require.NoError(t, err)
	view, err := payroll.RenderView(finalized, payroll.CompanyInfo{Name: "Warp"}, payroll.EmployeeInfo{Name: "A. Rao"})
	require.NoError(t, err)

	assert.Equal(t, "March 2025", view.Period)
	assert.Equal(t, core.EmployeeID("emp-001"), view.Employee.ID)
	require.Len(t, view.Earnings, 5, "zero bonus is dropped")
	assert.Equal(t, "Basic", view.Earnings[0].Label)
	assert.Equal(t, "HRA", view.Earnings[2].Label)
	assert.Equal(t, "Special Allowance", view.Earnings[4].Label)
	require.Len(t, view.Deductions, 2, "zero canteen is dropped")
	assert.Equal(t, "Income Tax", view.Deductions[0].Label)
	assert.Equal(t, "PF", view.Deductions[1].Label)
	assert.Equal(t, finalized.NetInWords, view.NetInWords)
}
