package api

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-engine/attendance"
	"github.com/warp/payroll-engine/core"
	"github.com/warp/payroll-engine/payroll"
)

func TestListScenarios(t *testing.T) {
	s := newTestServer(t, nil)
	rec := s.do(http.MethodGet, "/api/scenarios", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]ScenarioDTO](t, rec), len(scenarios))
}

func TestLoadScenario_Attendance(t *testing.T) {
	tests := []struct {
		id     string
		status attendance.Status
		hours  string
	}{
		{"present", attendance.StatusPresent, "8.33"},
		{"late", attendance.StatusLate, "7.83"},
		{"half-day", attendance.StatusHalfDay, "2.42"},
		{"leave", attendance.StatusLeave, "0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			s := newTestServer(t, nil)

			rec := s.do(http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: tt.id})

			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			result := decodeBody[ScenarioResultDTO](t, rec)
			require.NotNil(t, result.Resolution)
			assert.Equal(t, tt.status, result.Resolution.Status)
			assert.Equal(t, tt.hours, result.Resolution.WorkedHours.StringFixed(2))
			assert.Equal(t, core.EmployeeID("demo-"+tt.id), result.EmployeeID)
		})
	}
}

func TestLoadScenario_Payslip(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "payslip"})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := decodeBody[ScenarioResultDTO](t, rec)
	require.NotNil(t, result.Slip)
	assert.True(t, result.Slip.Gross.Equal(core.NewMoney(49850)))
	assert.True(t, result.Slip.Deduction(payroll.DeductionIncomeTax).Equal(core.NewMoney(1034)))
	assert.True(t, result.Slip.Net.Equal(core.NewMoney(48616)))
}

func TestLoadScenario_Idempotent(t *testing.T) {
	// GIVEN: Every scenario loaded once
	s := newTestServer(t, nil)
	ctx := context.Background()
	require.NoError(t, s.h.scenarios.LoadAll(ctx))

	// WHEN: Loading them all again
	err := s.h.scenarios.LoadAll(ctx)

	// THEN: Nothing conflicts and nothing is duplicated
	require.NoError(t, err)
	slips, err := s.h.Payroll.ListSlips(ctx, "demo-payslip")
	require.NoError(t, err)
	assert.Len(t, slips, 1)
	leaves, err := s.h.Attendance.ListLeaves(ctx, "demo-leave", core.MonthRange(2025, time.March))
	require.NoError(t, err)
	assert.Len(t, leaves, 1)
	employees, err := s.h.Directory.List(ctx)
	require.NoError(t, err)
	assert.Len(t, employees, len(scenarios))
}

func TestLoadScenario_Unknown(t *testing.T) {
	s := newTestServer(t, nil)
	rec := s.do(http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "nope"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
