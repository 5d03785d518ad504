/*
handlers.go - HTTP API handlers for the attendance and payroll engine

PURPOSE:
  Exposes the service layer via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the services. No business rule is
  evaluated here.

ENDPOINTS:
  Employees:
    GET    /api/employees                               List employees
    POST   /api/employees                               Create or update employee
    GET    /api/employees/{id}                          Get employee

  Attendance:
    POST   /api/attendance/check-in                     Check in (clock-stamped)
    POST   /api/attendance/check-out                    Check out and resolve day
    GET    /api/attendance/missing-checkouts            Open events before today
    GET    /api/employees/{id}/attendance               Report (?period= or ?from=&to=)
    POST   /api/employees/{id}/attendance/{date}/resolve Resolve and store one day

  Leave and holidays:
    POST   /api/leaves                                  Record leave
    GET    /api/employees/{id}/leaves                   Leave in ?from=&to=
    GET    /api/holidays                                Holidays in ?from=&to=
    POST   /api/holidays                                Record holiday

  Payroll:
    PUT    /api/employees/{id}/salary-structure         Replace structure
    GET    /api/employees/{id}/salary-structure         Resolved structure
    POST   /api/payroll/slips                           Generate slip
    POST   /api/payroll/tax                             Tax preview
    GET    /api/employees/{id}/slips                    List slips
    GET    /api/employees/{id}/slips/{year}/{month}     Get slip
    POST   /api/employees/{id}/slips/{year}/{month}/finalize
    POST   /api/employees/{id}/slips/{year}/{month}/unpublish
    GET    /api/employees/{id}/slips/{year}/{month}/view Rendered view

  Admin:
    GET    /api/rules                                   Active rules summary
    POST   /api/admin/rules/reload                      Reload rules file
    POST   /api/admin/day-close                         Run the day closer now

  Scenarios:
    GET    /api/scenarios                               List demo scenarios
    POST   /api/scenarios/load                          Load a demo scenario

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 403: Forbidden, geofence rejection
  - 404: Resource not found
  - 409: Conflict (duplicate check-in, finalized slip), invalid transition
  - 500: Internal and configuration errors

ACTOR:
  The X-Actor header names who is calling. It is passed to the Authorizer
  for finalize, unpublish and regenerate. Authentication is external.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/warp/payroll-engine/core"
	"github.com/warp/payroll-engine/factory"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/service"
	"go.uber.org/zap"
)

// ActorHeader carries the caller identity for authorization.
const ActorHeader = "X-Actor"

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Directory  *service.Directory
	Attendance *service.Attendance
	Payroll    *service.Payroll
	Closer     *service.DayCloser
	Rules      *factory.Registry

	// RulesPath is reloaded by POST /api/admin/rules/reload. Empty means the
	// builtin rules are in use and reload is refused.
	RulesPath string

	scenarios *ScenarioLoader
	logger    *zap.Logger
}

// NewHandler wires the handlers. The scenario loader shares the stores behind
// the services.
func NewHandler(dir *service.Directory, att *service.Attendance, pay *service.Payroll, closer *service.DayCloser,
	rules *factory.Registry, scenarios *ScenarioLoader, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Directory:  dir,
		Attendance: att,
		Payroll:    pay,
		Closer:     closer,
		Rules:      rules,
		scenarios:  scenarios,
		logger:     logger.Named("api"),
	}
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Directory.List(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if employees == nil {
		employees = []service.Employee{}
	}
	writeJSON(w, http.StatusOK, employees)
}

func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	emp, err := h.Directory.Get(r.Context(), employeeParam(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, emp)
}

// SaveEmployee creates or updates an employee.
func (h *Handler) SaveEmployee(w http.ResponseWriter, r *http.Request) {
	var req EmployeeRequest
	if !decode(w, r, &req) {
		return
	}
	emp, err := h.Directory.Save(r.Context(), req.toEmployee())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, emp)
}

// =============================================================================
// ATTENDANCE HANDLERS
// =============================================================================

func (h *Handler) CheckIn(w http.ResponseWriter, r *http.Request) {
	var req service.CheckRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.Attendance.CheckIn(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *Handler) CheckOut(w http.ResponseWriter, r *http.Request) {
	var req service.CheckRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.Attendance.CheckOut(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GetAttendance returns a per-day report. Either ?period=today|yesterday|
// week|month|last_month or ?from=YYYY-MM-DD&to=YYYY-MM-DD; default month.
func (h *Handler) GetAttendance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	emp := employeeParam(r)
	q := r.URL.Query()

	var (
		report service.Report
		err    error
	)
	if q.Get("from") != "" || q.Get("to") != "" {
		var rng core.DateRange
		if rng, err = parseRange(q.Get("from"), q.Get("to")); err == nil {
			report, err = h.Attendance.Summary(ctx, emp, rng)
		}
	} else {
		period := q.Get("period")
		if period == "" {
			period = "month"
		}
		report, err = h.Attendance.SummaryFor(ctx, emp, period)
	}
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) ResolveDay(w http.ResponseWriter, r *http.Request) {
	date, err := core.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		h.writeServiceError(w, r, &core.ValidationError{Field: "date", Reason: err.Error()})
		return
	}
	res, err := h.Attendance.ResolveDay(r.Context(), employeeParam(r), date)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) MissingCheckouts(w http.ResponseWriter, r *http.Request) {
	events, err := h.Attendance.MissingCheckouts(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(events))
}

// =============================================================================
// LEAVE AND HOLIDAY HANDLERS
// =============================================================================

func (h *Handler) RecordLeave(w http.ResponseWriter, r *http.Request) {
	var req LeaveRequest
	if !decode(w, r, &req) {
		return
	}
	record, err := req.toRecord()
	if err == nil {
		record, err = h.Attendance.RecordLeave(r.Context(), record)
	}
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

func (h *Handler) ListLeaves(w http.ResponseWriter, r *http.Request) {
	rng, err := parseRange(r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	leaves, err := h.Attendance.ListLeaves(r.Context(), employeeParam(r), rng)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(leaves))
}

func (h *Handler) RecordHoliday(w http.ResponseWriter, r *http.Request) {
	var req HolidayRequest
	if !decode(w, r, &req) {
		return
	}
	record, err := req.toRecord()
	if err == nil {
		record, err = h.Attendance.RecordHoliday(r.Context(), record)
	}
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	rng, err := parseRange(r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	holidays, err := h.Attendance.ListHolidays(r.Context(), rng)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(holidays))
}

// =============================================================================
// PAYROLL HANDLERS
// =============================================================================

func (h *Handler) SaveStructure(w http.ResponseWriter, r *http.Request) {
	var req StructureRequest
	if !decode(w, r, &req) {
		return
	}
	resolved, err := h.Payroll.SaveStructure(r.Context(), payroll.SalaryStructure{
		EmployeeID: employeeParam(r),
		Earnings:   req.Earnings,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resolved)
}

func (h *Handler) GetStructure(w http.ResponseWriter, r *http.Request) {
	resolved, err := h.Payroll.GetStructure(r.Context(), employeeParam(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resolved)
}

func (h *Handler) GenerateSlip(w http.ResponseWriter, r *http.Request) {
	var req GenerateSlipRequest
	if !decode(w, r, &req) {
		return
	}
	slip, err := h.Payroll.GenerateSlip(r.Context(), actor(r), req.toService())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, slip)
}

// PreviewTax computes tax for a monthly gross without storing anything.
func (h *Handler) PreviewTax(w http.ResponseWriter, r *http.Request) {
	var req TaxPreviewRequest
	if !decode(w, r, &req) {
		return
	}
	cfg, err := h.Rules.Current().Regime(payroll.Regime(req.Regime))
	if err != nil {
		h.writeServiceError(w, r, &core.ValidationError{Field: "regime", Reason: err.Error()})
		return
	}
	tax, err := payroll.CalculateTax(req.MonthlyGross, cfg)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tax)
}

func (h *Handler) ListSlips(w http.ResponseWriter, r *http.Request) {
	slips, err := h.Payroll.ListSlips(r.Context(), employeeParam(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(slips))
}

func (h *Handler) GetSlip(w http.ResponseWriter, r *http.Request) {
	year, month, ok := h.periodParams(w, r)
	if !ok {
		return
	}
	slip, err := h.Payroll.GetSlip(r.Context(), employeeParam(r), year, month)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, slip)
}

func (h *Handler) FinalizeSlip(w http.ResponseWriter, r *http.Request) {
	year, month, ok := h.periodParams(w, r)
	if !ok {
		return
	}
	slip, err := h.Payroll.Finalize(r.Context(), actor(r), employeeParam(r), year, month)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, slip)
}

func (h *Handler) UnpublishSlip(w http.ResponseWriter, r *http.Request) {
	year, month, ok := h.periodParams(w, r)
	if !ok {
		return
	}
	slip, err := h.Payroll.Unpublish(r.Context(), actor(r), employeeParam(r), year, month)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, slip)
}

func (h *Handler) ViewSlip(w http.ResponseWriter, r *http.Request) {
	year, month, ok := h.periodParams(w, r)
	if !ok {
		return
	}
	view, err := h.Payroll.View(r.Context(), employeeParam(r), year, month)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// =============================================================================
// RULES AND ADMIN HANDLERS
// =============================================================================

func (h *Handler) GetRules(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, rulesDTO(h.Rules.Current()))
}

// ReloadRules re-reads RulesPath. On failure the previous rules stay active.
func (h *Handler) ReloadRules(w http.ResponseWriter, r *http.Request) {
	if h.RulesPath == "" {
		writeError(w, http.StatusConflict, "No rules file configured; builtin rules cannot be reloaded", nil)
		return
	}
	rules, err := h.Rules.Reload(h.RulesPath)
	if err != nil {
		h.logger.Error("rules reload failed", zap.String("path", h.RulesPath), zap.Error(err))
		writeError(w, http.StatusUnprocessableEntity, "Rules file rejected; previous rules remain active", err)
		return
	}
	h.logger.Info("rules reloaded", zap.String("path", h.RulesPath))
	writeJSON(w, http.StatusOK, rulesDTO(rules))
}

func (h *Handler) RunDayClose(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Closer.RunNow(r.Context()))
}

func rulesDTO(rules *factory.Rules) RulesDTO {
	regimes := make([]payroll.Regime, 0, len(rules.Regimes))
	for id := range rules.Regimes {
		regimes = append(regimes, id)
	}
	sort.Slice(regimes, func(i, j int) bool { return regimes[i] < regimes[j] })

	return RulesDTO{
		Source:        rules.Source,
		LoadedAt:      rules.LoadedAt,
		Company:       rules.Company,
		Timezone:      rules.Calendar.Config().Timezone,
		Departments:   nonNil(rules.DepartmentNames()),
		DefaultRegime: rules.DefaultRegime,
		Regimes:       regimes,
		Offices:       len(rules.Geofence.ActiveOffices()),
		Geofence: GeofenceEnforcementDTO{
			Enabled:         rules.Geofence.Enabled,
			EnforceCheckIn:  rules.Geofence.EnforceCheckIn,
			EnforceCheckOut: rules.Geofence.EnforceCheckOut,
			AllowWFHBypass:  rules.Geofence.AllowWFHBypass,
		},
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func employeeParam(r *http.Request) core.EmployeeID {
	return core.EmployeeID(chi.URLParam(r, "id"))
}

func actor(r *http.Request) string {
	if a := r.Header.Get(ActorHeader); a != "" {
		return a
	}
	return "anonymous"
}

func (h *Handler) periodParams(w http.ResponseWriter, r *http.Request) (int, time.Month, bool) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid year", err)
		return 0, 0, false
	}
	month, err := strconv.Atoi(chi.URLParam(r, "month"))
	if err != nil || month < 1 || month > 12 {
		writeError(w, http.StatusBadRequest, "Invalid month (use 1-12)", err)
		return 0, 0, false
	}
	return year, time.Month(month), true
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return true
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeServiceError maps the error taxonomy to a status code.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validation *core.ValidationError
		denied     *service.GeofenceDeniedError
	)
	switch {
	case errors.As(err, &denied):
		writeJSON(w, http.StatusForbidden, struct {
			ErrorResponse
			Geofence any `json:"geofence"`
		}{ErrorResponse{Error: "Outside permitted locations", Details: err.Error()}, denied.Result})
	case errors.As(err, &validation):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid input", Details: validation.Reason, Field: validation.Field})
	case errors.Is(err, core.ErrValidation):
		writeError(w, http.StatusBadRequest, "Invalid input", err)
	case errors.Is(err, core.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found", err)
	case errors.Is(err, core.ErrConflict):
		writeError(w, http.StatusConflict, "Conflict", err)
	case errors.Is(err, core.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "Invalid state transition", err)
	case errors.Is(err, core.ErrForbidden):
		writeError(w, http.StatusForbidden, "Forbidden", err)
	case errors.Is(err, core.ErrConfiguration):
		h.logger.Error("rules misconfigured", zap.String("path", r.URL.Path), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Rules misconfigured", err)
	default:
		h.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal error", nil)
	}
}
