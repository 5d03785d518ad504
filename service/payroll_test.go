package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-engine/attendance"
	"github.com/warp/payroll-engine/core"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/service"
)

// scenarioE grosses 49850.
func scenarioE(emp core.EmployeeID) payroll.SalaryStructure {
	return payroll.SalaryStructure{
		EmployeeID: emp,
		Earnings: map[string]core.Money{
			"basic":            core.NewMoney(30000),
			"hra":              core.NewMoney(12000),
			"conveyance":       core.NewMoney(1600),
			"medical":          core.NewMoney(1250),
			"specialAllowance": core.NewMoney(5000),
		},
	}
}

var professionalTax = []payroll.Deduction{{Name: "professional_tax", Amount: core.NewMoney(200)}}

func withStructures(t *testing.T, f *fixture) {
	t.Helper()
	for _, emp := range []core.EmployeeID{"EMP001", "EMP002"} {
		_, err := f.payroll.SaveStructure(context.Background(), scenarioE(emp))
		require.NoError(t, err)
	}
}

func TestSaveStructure(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	resolved, err := f.payroll.SaveStructure(ctx, scenarioE("EMP001"))
	require.NoError(t, err)
	assert.True(t, resolved.Gross.Equal(core.NewMoney(49850)))
	assert.Equal(t, payroll.ComponentBasic, resolved.Components[0].Name)

	_, err = f.payroll.SaveStructure(ctx, payroll.SalaryStructure{EmployeeID: "EMP001", Earnings: map[string]core.Money{"hra": core.NewMoney(1)}})
	assert.ErrorIs(t, err, core.ErrValidation, "basic is required")

	_, err = f.payroll.SaveStructure(ctx, scenarioE("EMP404"))
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestGenerateSlip_ScenarioE(t *testing.T) {
	tests := []struct {
		employee core.EmployeeID
		regime   payroll.Regime
		tax      int64
		net      int64
	}{
		{"EMP001", payroll.RegimeNew, 1034, 48616}, // default regime
		{"EMP002", payroll.RegimeOld, 1845, 47805}, // employee's choice
	}

	for _, tt := range tests {
		t.Run(string(tt.regime), func(t *testing.T) {
			f := newFixture(t, nil)
			withStructures(t, f)

			slip, err := f.payroll.GenerateSlip(context.Background(), "hr", service.GenerateRequest{
				EmployeeID: tt.employee, Year: 2025, Month: time.March, Deductions: professionalTax,
			})

			require.NoError(t, err)
			assert.Equal(t, tt.regime, slip.Regime)
			assert.True(t, slip.Deduction(payroll.DeductionIncomeTax).Equal(core.NewMoney(tt.tax)))
			assert.True(t, slip.Net.Equal(core.NewMoney(tt.net)), "net %s", slip.Net)
			assert.Equal(t, payroll.SlipDraft, slip.Status)
			assert.Equal(t, 0, slip.Revision)
		})
	}
}

func TestGenerateSlip_CountsApprovedLeave(t *testing.T) {
	f := newFixture(t, nil)
	withStructures(t, f)
	ctx := context.Background()

	_, err := f.attendance.RecordLeave(ctx, attendance.LeaveRecord{
		EmployeeID: "EMP001",
		Range:      core.DateRange{Start: core.NewDate(2025, time.February, 27), End: core.NewDate(2025, time.March, 2)},
		State:      attendance.ApprovalApproved,
	})
	require.NoError(t, err)

	slip, err := f.payroll.GenerateSlip(ctx, "hr", service.GenerateRequest{EmployeeID: "EMP001", Year: 2025, Month: time.March})
	require.NoError(t, err)
	assert.Equal(t, 2, slip.LeaveDays, "only March days count")
	assert.True(t, slip.Net.Equal(core.NewMoney(48816)), "leave does not prorate pay")
}

func TestGenerateSlip_RegeneratesDraftInPlace(t *testing.T) {
	f := newFixture(t, nil)
	withStructures(t, f)
	ctx := context.Background()
	req := service.GenerateRequest{EmployeeID: "EMP001", Year: 2025, Month: time.March}

	first, err := f.payroll.GenerateSlip(ctx, "hr", req)
	require.NoError(t, err)

	req.Deductions = professionalTax
	second, err := f.payroll.GenerateSlip(ctx, "hr", req)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, second.Revision)
	slips, err := f.payroll.ListSlips(ctx, "EMP001")
	require.NoError(t, err)
	assert.Len(t, slips, 1)
	assert.True(t, slips[0].Net.Equal(core.NewMoney(48616)))
}

func TestGenerateSlip_FinalizedNeedsOverwriteAndPermission(t *testing.T) {
	// GIVEN: A finalized slip and an authorizer that lets only hr-lead regenerate
	authz := service.ActorList{
		service.ActionFinalize:   {"hr", "hr-lead"},
		service.ActionUnpublish:  {"hr-lead"},
		service.ActionRegenerate: {"hr-lead"},
	}
	f := newFixture(t, authz)
	withStructures(t, f)
	ctx := context.Background()
	req := service.GenerateRequest{EmployeeID: "EMP001", Year: 2025, Month: time.March}

	_, err := f.payroll.GenerateSlip(ctx, "hr", req)
	require.NoError(t, err)
	final, err := f.payroll.Finalize(ctx, "hr", "EMP001", 2025, time.March)
	require.NoError(t, err)
	assert.Equal(t, payroll.SlipFinalized, final.Status)

	// WHEN: Regenerating without overwrite
	_, err = f.payroll.GenerateSlip(ctx, "hr-lead", req)
	// THEN: Refused as a conflict
	assert.ErrorIs(t, err, payroll.ErrSlipFinalized)
	assert.ErrorIs(t, err, core.ErrConflict)

	// WHEN: Overwrite by someone not allowed
	req.Overwrite = true
	_, err = f.payroll.GenerateSlip(ctx, "hr", req)
	// THEN: Forbidden
	assert.ErrorIs(t, err, core.ErrForbidden)

	// WHEN: Overwrite by hr-lead
	slip, err := f.payroll.GenerateSlip(ctx, "hr-lead", req)
	// THEN: The slip is re-derived as a new draft revision
	require.NoError(t, err)
	assert.Equal(t, payroll.SlipDraft, slip.Status)
	assert.Equal(t, final.ID, slip.ID)
	assert.Equal(t, 1, slip.Revision)
	assert.Nil(t, slip.FinalizedAt)
}

func TestLifecycle_Transitions(t *testing.T) {
	f := newFixture(t, nil)
	withStructures(t, f)
	ctx := context.Background()

	_, err := f.payroll.Finalize(ctx, "hr", "EMP001", 2025, time.March)
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = f.payroll.GenerateSlip(ctx, "hr", service.GenerateRequest{EmployeeID: "EMP001", Year: 2025, Month: time.March})
	require.NoError(t, err)

	_, err = f.payroll.Unpublish(ctx, "hr", "EMP001", 2025, time.March)
	assert.ErrorIs(t, err, core.ErrInvalidTransition, "draft cannot be unpublished")

	_, err = f.payroll.Finalize(ctx, "hr", "EMP001", 2025, time.March)
	require.NoError(t, err)
	_, err = f.payroll.Finalize(ctx, "hr", "EMP001", 2025, time.March)
	assert.ErrorIs(t, err, core.ErrInvalidTransition)

	draft, err := f.payroll.Unpublish(ctx, "hr", "EMP001", 2025, time.March)
	require.NoError(t, err)
	assert.Equal(t, payroll.SlipDraft, draft.Status)
}

func TestView_OnlyFinalized(t *testing.T) {
	f := newFixture(t, nil)
	withStructures(t, f)
	ctx := context.Background()

	_, err := f.payroll.GenerateSlip(ctx, "hr", service.GenerateRequest{
		EmployeeID: "EMP001", Year: 2025, Month: time.March, Deductions: professionalTax,
	})
	require.NoError(t, err)

	_, err = f.payroll.View(ctx, "EMP001", 2025, time.March)
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = f.payroll.Finalize(ctx, "hr", "EMP001", 2025, time.March)
	require.NoError(t, err)
	view, err := f.payroll.View(ctx, "EMP001", 2025, time.March)
	require.NoError(t, err)

	assert.Equal(t, "Warp Technologies", view.Company.Name)
	assert.Equal(t, "Asha Rao", view.Employee.Name)
	assert.Equal(t, "March 2025", view.Period)
	assert.Equal(t, "Forty Eight Thousand Six Hundred Sixteen Rupees Only", view.NetInWords)
}

func TestGenerateSlip_MissingStructure(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.payroll.GenerateSlip(context.Background(), "hr", service.GenerateRequest{EmployeeID: "EMP001", Year: 2025, Month: time.March})
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestGenerateSlip_BadMonth(t *testing.T) {
	f := newFixture(t, nil)
	withStructures(t, f)
	_, err := f.payroll.GenerateSlip(context.Background(), "hr", service.GenerateRequest{EmployeeID: "EMP001", Year: 2025, Month: 13})
	assert.ErrorIs(t, err, core.ErrValidation)
}
