/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the store with realistic
	attendance and payroll data for demos. Each scenario creates one demo
	employee and replays punches through the real services, so the results
	are exactly what the engine computes.

AVAILABLE SCENARIOS:

	present:   09:40 to 18:00, resolves present, 8.33 hours
	late:      10:10 to 18:00, resolves late
	half-day:  09:35 to 12:00, 2.42 hours, resolves half_day
	leave:     Approved leave and no punch, resolves leave
	payslip:   Salary structure grossing 49850 and a March 2025 slip

HOW SCENARIOS WORK:
 1. Upsert the demo employee
 2. Move the scenario clock to the punch instants, in the organization's timezone
 3. Check in and check out through the attendance service
 4. Resolve the day (or generate the slip) and return the result

Loading a scenario twice is harmless: duplicate punches conflict and are
ignored, records with fixed IDs are replaced, and draft slips regenerate in
place.

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "late"}

SEE ALSO:
  - handlers.go: Error mapping
  - service/attendance.go: The punches replayed here
*/
package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/warp/payroll-engine/attendance"
	"github.com/warp/payroll-engine/core"
	"github.com/warp/payroll-engine/factory"
	"github.com/warp/payroll-engine/geofence"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/service"
	"go.uber.org/zap"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "present",
		Name:        "On Time",
		Description: "Checks in 09:40 and out 18:00; present with about 8.33 hours",
		Category:    "attendance",
	},
	{
		ID:          "late",
		Name:        "Late Arrival",
		Description: "Checks in 10:10, after the 09:55 threshold; late",
		Category:    "attendance",
	},
	{
		ID:          "half-day",
		Name:        "Short Day",
		Description: "Checks in 09:35 and out 12:00; 2.42 hours is under the minimum, half day",
		Category:    "attendance",
	},
	{
		ID:          "leave",
		Name:        "Approved Leave",
		Description: "Approved leave and no punch at all; leave wins",
		Category:    "attendance",
	},
	{
		ID:          "payslip",
		Name:        "Monthly Payslip",
		Description: "Basic 30000, HRA 12000, conveyance 1600, medical 1250, special 5000; March 2025 slip",
		Category:    "payroll",
	},
}

// scenarioOffice is where demo punches happen.
var scenarioOffice = &geofence.Point{Latitude: 12.9716, Longitude: 77.5946}

// ScenarioEarnings is the payslip scenario's structure. It grosses 49850.
func ScenarioEarnings() map[string]core.Money {
	return map[string]core.Money{
		payroll.ComponentBasic: core.NewMoney(30000),
		"hra":                  core.NewMoney(12000),
		"conveyance":           core.NewMoney(1600),
		"medical":              core.NewMoney(1250),
		"specialAllowance":     core.NewMoney(5000),
	}
}

// =============================================================================
// LOADER
// =============================================================================

// ScenarioLoader replays demo scenarios against the stores the server uses.
// It builds its own services around a movable clock so punches land on fixed
// dates in March 2025 regardless of when the demo is run.
type ScenarioLoader struct {
	employees  service.EmployeeStore
	attendance attendance.Store
	payroll    payroll.Store
	rules      *factory.Registry
	logger     *zap.Logger

	mu sync.Mutex // one scenario at a time; they share the clock
}

func NewScenarioLoader(employees service.EmployeeStore, att attendance.Store, pay payroll.Store,
	rules *factory.Registry, logger *zap.Logger) *ScenarioLoader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScenarioLoader{
		employees:  employees,
		attendance: att,
		payroll:    pay,
		rules:      rules,
		logger:     logger.Named("scenarios"),
	}
}

// scenarioClock is a settable core.Clock.
type scenarioClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *scenarioClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *scenarioClock) set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type scenarioRun struct {
	clock *scenarioClock
	loc   *time.Location
	dir   *service.Directory
	att   *service.Attendance
	pay   *service.Payroll
}

func (l *ScenarioLoader) newRun() *scenarioRun {
	clock := &scenarioClock{}
	return &scenarioRun{
		clock: clock,
		loc:   l.rules.Current().Calendar.Location(),
		dir:   service.NewDirectory(l.employees, clock),
		att:   service.NewAttendance(l.attendance, l.employees, l.rules, clock, l.logger),
		pay:   service.NewPayroll(l.payroll, l.attendance, l.employees, l.rules, service.AllowAll{}, clock, l.logger),
	}
}

// at returns an instant in March 2025 in the organization's timezone.
func (run *scenarioRun) at(day, hour, minute int) time.Time {
	return time.Date(2025, time.March, day, hour, minute, 0, 0, run.loc)
}

// Load runs one scenario by ID.
func (l *ScenarioLoader) Load(ctx context.Context, id string) (ScenarioResultDTO, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var def *ScenarioDTO
	for i := range scenarios {
		if scenarios[i].ID == id {
			def = &scenarios[i]
		}
	}
	if def == nil {
		return ScenarioResultDTO{}, &core.NotFoundError{Kind: "scenario", Key: id}
	}

	run := l.newRun()
	result := ScenarioResultDTO{Scenario: *def, EmployeeID: core.EmployeeID("demo-" + id)}
	run.clock.set(run.at(1, 9, 0))
	if _, err := run.dir.Save(ctx, service.Employee{
		ID:          result.EmployeeID,
		Name:        def.Name + " Demo",
		Department:  "engineering",
		Designation: "Engineer",
		Active:      true,
	}); err != nil {
		return ScenarioResultDTO{}, err
	}

	var err error
	switch id {
	case "present":
		result.Resolution, err = run.punchDay(ctx, result.EmployeeID, 3, [2]int{9, 40}, [2]int{18, 0})
	case "late":
		result.Resolution, err = run.punchDay(ctx, result.EmployeeID, 4, [2]int{10, 10}, [2]int{18, 0})
	case "half-day":
		result.Resolution, err = run.punchDay(ctx, result.EmployeeID, 5, [2]int{9, 35}, [2]int{12, 0})
	case "leave":
		result.Resolution, err = run.leaveDay(ctx, result.EmployeeID, 6)
	case "payslip":
		result.Slip, err = run.payslip(ctx, result.EmployeeID)
	}
	if err != nil {
		return ScenarioResultDTO{}, err
	}

	l.logger.Info("scenario loaded", zap.String("scenario", id), zap.String("employee_id", string(result.EmployeeID)))
	return result, nil
}

// LoadAll runs every scenario. Used for LOAD_DEMO_DATA.
func (l *ScenarioLoader) LoadAll(ctx context.Context) error {
	for _, s := range scenarios {
		if _, err := l.Load(ctx, s.ID); err != nil {
			return err
		}
	}
	return nil
}

func (run *scenarioRun) punchDay(ctx context.Context, emp core.EmployeeID, day int, in, out [2]int) (*attendance.Resolution, error) {
	req := service.CheckRequest{EmployeeID: emp, Location: scenarioOffice}

	run.clock.set(run.at(day, in[0], in[1]))
	if _, err := run.att.CheckIn(ctx, req); ignoreConflict(err) != nil {
		return nil, err
	}
	run.clock.set(run.at(day, out[0], out[1]))
	if _, err := run.att.CheckOut(ctx, req); ignoreConflict(err) != nil {
		return nil, err
	}

	res, err := run.att.ResolveDay(ctx, emp, core.NewDate(2025, time.March, day))
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (run *scenarioRun) leaveDay(ctx context.Context, emp core.EmployeeID, day int) (*attendance.Resolution, error) {
	date := core.NewDate(2025, time.March, day)
	run.clock.set(run.at(day, 20, 0))
	if _, err := run.att.RecordLeave(ctx, attendance.LeaveRecord{
		ID:         "demo-leave-" + string(emp),
		EmployeeID: emp,
		Range:      core.DateRange{Start: date, End: date},
		State:      attendance.ApprovalApproved,
		Reason:     "Family function",
	}); err != nil {
		return nil, err
	}

	res, err := run.att.ResolveDay(ctx, emp, date)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (run *scenarioRun) payslip(ctx context.Context, emp core.EmployeeID) (*payroll.SalarySlip, error) {
	run.clock.set(run.at(31, 18, 0))
	if _, err := run.pay.SaveStructure(ctx, payroll.SalaryStructure{EmployeeID: emp, Earnings: ScenarioEarnings()}); err != nil {
		return nil, err
	}

	slip, err := run.pay.GenerateSlip(ctx, "scenario", service.GenerateRequest{
		EmployeeID: emp,
		Year:       2025,
		Month:      time.March,
		Deductions: []payroll.Deduction{{Name: "professional_tax", Amount: core.NewMoney(200)}},
	})
	if errors.Is(err, payroll.ErrSlipFinalized) {
		slip, err = run.pay.GetSlip(ctx, emp, 2025, time.March)
	}
	if err != nil {
		return nil, err
	}
	return &slip, nil
}

func ignoreConflict(err error) error {
	if errors.Is(err, core.ErrConflict) {
		return nil
	}
	return err
}

// =============================================================================
// HANDLERS
// =============================================================================

func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	if h.scenarios == nil {
		writeError(w, http.StatusNotFound, "Scenarios are not enabled", nil)
		return
	}
	var req LoadScenarioRequest
	if !decode(w, r, &req) {
		return
	}
	result, err := h.scenarios.Load(r.Context(), req.ScenarioID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
