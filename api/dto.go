/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication where they differ from
  the domain types. Domain types that already carry JSON tags (Event,
  Resolution, SalarySlip, SlipView, Report) are returned as they are.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Shape checks (dates parse, months are numbers) happen when converting a
  request to a domain value. Business validation stays in the service and
  engine packages.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/warp/payroll-engine/attendance"
	"github.com/warp/payroll-engine/core"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/service"
)

// =============================================================================
// EMPLOYEES
// =============================================================================

type EmployeeRequest struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Department  string `json:"department"`
	Designation string `json:"designation"`
	Regime      string `json:"regime"`
	WFHEligible bool   `json:"wfh_eligible"`
	// Active defaults to true when omitted.
	Active *bool `json:"active"`
}

func (r EmployeeRequest) toEmployee() service.Employee {
	active := true
	if r.Active != nil {
		active = *r.Active
	}
	return service.Employee{
		ID:          core.EmployeeID(r.ID),
		Name:        r.Name,
		Email:       r.Email,
		Department:  r.Department,
		Designation: r.Designation,
		Regime:      payroll.Regime(r.Regime),
		WFHEligible: r.WFHEligible,
		Active:      active,
	}
}

// =============================================================================
// LEAVE AND HOLIDAYS
// =============================================================================

type LeaveRequest struct {
	EmployeeID string `json:"employee_id"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
	State      string `json:"state"`
	Reason     string `json:"reason"`
}

func (r LeaveRequest) toRecord() (attendance.LeaveRecord, error) {
	rng, err := parseRange(r.StartDate, r.EndDate)
	if err != nil {
		return attendance.LeaveRecord{}, err
	}
	return attendance.LeaveRecord{
		EmployeeID: core.EmployeeID(r.EmployeeID),
		Range:      rng,
		State:      attendance.ApprovalState(r.State),
		Reason:     r.Reason,
	}, nil
}

type HolidayRequest struct {
	Name      string `json:"name"`
	StartDate string `json:"start_date"`
	// EndDate defaults to StartDate.
	EndDate string `json:"end_date"`
	// State defaults to approved.
	State string `json:"state"`
}

func (r HolidayRequest) toRecord() (attendance.HolidayRecord, error) {
	end := r.EndDate
	if end == "" {
		end = r.StartDate
	}
	rng, err := parseRange(r.StartDate, end)
	if err != nil {
		return attendance.HolidayRecord{}, err
	}
	state := attendance.ApprovalState(r.State)
	if state == "" {
		state = attendance.ApprovalApproved
	}
	return attendance.HolidayRecord{Name: r.Name, Range: rng, State: state}, nil
}

// =============================================================================
// PAYROLL
// =============================================================================

// StructureRequest carries earnings as decimal strings or numbers.
type StructureRequest struct {
	Earnings map[string]core.Money `json:"earnings"`
}

type GenerateSlipRequest struct {
	EmployeeID string              `json:"employee_id"`
	Year       int                 `json:"year"`
	Month      int                 `json:"month"`
	Deductions []payroll.Deduction `json:"deductions"`
	Overwrite  bool                `json:"overwrite"`
}

func (r GenerateSlipRequest) toService() service.GenerateRequest {
	return service.GenerateRequest{
		EmployeeID: core.EmployeeID(r.EmployeeID),
		Year:       r.Year,
		Month:      time.Month(r.Month),
		Deductions: r.Deductions,
		Overwrite:  r.Overwrite,
	}
}

type TaxPreviewRequest struct {
	MonthlyGross core.Money `json:"monthly_gross"`
	// Regime defaults to the rules file's default regime.
	Regime string `json:"regime"`
}

// =============================================================================
// RULES AND ADMIN
// =============================================================================

// RulesDTO describes the active rules snapshot.
type RulesDTO struct {
	Source        string                 `json:"source"`
	LoadedAt      time.Time              `json:"loaded_at"`
	Company       payroll.CompanyInfo    `json:"company"`
	Timezone      string                 `json:"timezone"`
	Departments   []string               `json:"departments"`
	DefaultRegime payroll.Regime         `json:"default_regime"`
	Regimes       []payroll.Regime       `json:"regimes"`
	Offices       int                    `json:"active_offices"`
	Geofence      GeofenceEnforcementDTO `json:"geofence"`
}

type GeofenceEnforcementDTO struct {
	Enabled         bool `json:"enabled"`
	EnforceCheckIn  bool `json:"enforce_check_in"`
	EnforceCheckOut bool `json:"enforce_check_out"`
	AllowWFHBypass  bool `json:"allow_wfh_bypass"`
}

// =============================================================================
// SCENARIOS
// =============================================================================

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// LoadScenarioRequest is the request to load a scenario.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ScenarioResultDTO is what a loaded scenario produced.
type ScenarioResultDTO struct {
	Scenario   ScenarioDTO            `json:"scenario"`
	EmployeeID core.EmployeeID        `json:"employee_id"`
	Resolution *attendance.Resolution `json:"resolution,omitempty"`
	Slip       *payroll.SalarySlip    `json:"slip,omitempty"`
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Field   string `json:"field,omitempty"`
}

// =============================================================================
// HELPERS
// =============================================================================

func parseRange(start, end string) (core.DateRange, error) {
	s, err := core.ParseDate(start)
	if err != nil {
		return core.DateRange{}, &core.ValidationError{Field: "start_date", Reason: err.Error()}
	}
	e, err := core.ParseDate(end)
	if err != nil {
		return core.DateRange{}, &core.ValidationError{Field: "end_date", Reason: err.Error()}
	}
	return core.DateRange{Start: s, End: e}, nil
}
