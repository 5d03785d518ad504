/*
Package service orchestrates the pure engine packages against storage.

PURPOSE:
  The engine packages (calendar, geofence, attendance, payroll) compute and
  never touch storage or the clock. This package is where a request meets
  the current rules snapshot, the injected clock and the stores, and where
  computed results are persisted explicitly.

KEY CONCEPTS IN THIS FILE (attendance.go):
  - Attendance: Check-in/out, day resolution, summaries, leave and holidays
  - CheckRequest / CheckResult: One time-clock punch and its outcome
  - GeofenceDeniedError: Returned instead of a flag when rejection is on

RULES SNAPSHOTS:
  Every operation reads factory.Registry.Current() once and uses that
  snapshot throughout, so a concurrent reload never mixes two rule sets
  inside one computation.

SEE ALSO:
  - payroll.go: Structure, slip generation and lifecycle
  - scheduler.go: DayCloser background job
  - authz.go: Authorizer collaborator
*/
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/attendance"
	"github.com/warp/payroll-engine/calendar"
	"github.com/warp/payroll-engine/core"
	"github.com/warp/payroll-engine/factory"
	"github.com/warp/payroll-engine/geofence"
	"go.uber.org/zap"
)

// =============================================================================
// TYPES
// =============================================================================

// CheckRequest is one check-in or check-out punch. The instant comes from the
// service clock, never from the caller.
type CheckRequest struct {
	EmployeeID core.EmployeeID `json:"employee_id"`
	Location   *geofence.Point `json:"location,omitempty"`
	WFH        bool            `json:"wfh"`
}

// CheckResult is the stored event plus the geofence outcome of this punch.
// Resolution is set on check-out, when the day can be resolved.
type CheckResult struct {
	Event      attendance.Event       `json:"event"`
	Geofence   geofence.Result        `json:"geofence"`
	Resolution *attendance.Resolution `json:"resolution,omitempty"`
}

// GeofenceDeniedError is returned when RejectOutsideGeofence is set and the
// punch was outside every active office.
type GeofenceDeniedError struct {
	Action geofence.Action
	Result geofence.Result
}

func (e *GeofenceDeniedError) Error() string {
	if e.Result.NearestOffice != "" {
		return fmt.Sprintf("%s denied: %s (%.0fm from %s)", e.Action, e.Result.Reason, e.Result.DistanceMeters, e.Result.NearestOffice)
	}
	return fmt.Sprintf("%s denied: %s", e.Action, e.Result.Reason)
}

func (e *GeofenceDeniedError) Unwrap() error { return core.ErrForbidden }

// Report is a per-day breakdown plus the overview for one employee.
type Report struct {
	EmployeeID core.EmployeeID         `json:"employee_id"`
	Range      core.DateRange          `json:"range"`
	Days       []attendance.Resolution `json:"days"`
	Overview   attendance.Overview     `json:"overview"`
}

// =============================================================================
// ATTENDANCE SERVICE
// =============================================================================

type Attendance struct {
	store     attendance.Store
	employees EmployeeStore
	rules     *factory.Registry
	clock     core.Clock
	logger    *zap.Logger

	// RejectOutsideGeofence turns geofence denials into errors. When false
	// the punch is stored with OutsideGeofence set.
	RejectOutsideGeofence bool
}

func NewAttendance(store attendance.Store, employees EmployeeStore, rules *factory.Registry, clock core.Clock, logger *zap.Logger) *Attendance {
	if clock == nil {
		clock = core.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Attendance{
		store:     store,
		employees: employees,
		rules:     rules,
		clock:     clock,
		logger:    logger.Named("attendance.service"),
	}
}

// CheckIn records the first punch of the business day. A second check-in on
// the same day is a *core.ConflictError from the store.
func (s *Attendance) CheckIn(ctx context.Context, req CheckRequest) (CheckResult, error) {
	rules := s.rules.Current()
	emp, err := s.activeEmployee(ctx, req.EmployeeID)
	if err != nil {
		return CheckResult{}, err
	}

	now := s.clock.Now().UTC()
	cal := rules.CalendarFor(emp.Department)
	date := cal.DateOf(now)

	geo, err := s.checkGeofence(rules, emp, geofence.ActionCheckIn, req)
	if err != nil {
		return CheckResult{}, err
	}

	event := attendance.Event{
		ID:              uuid.NewString(),
		EmployeeID:      emp.ID,
		Date:            date,
		CheckIn:         &now,
		CheckInLocation: req.Location,
		WFH:             req.WFH,
		OutsideGeofence: geo.Denied(),
		WorkedHours:     decimal.Zero,
		Flags:           attendance.Flags{PendingCheckout: true, GeofenceViolation: geo.Denied()},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.store.CreateEvent(ctx, event); err != nil {
		if core.IsConflict(err) {
			s.logger.Info("duplicate check-in", zap.String("employee_id", string(emp.ID)), zap.Stringer("date", date))
		}
		return CheckResult{}, err
	}

	s.logger.Info("checked in",
		zap.String("employee_id", string(emp.ID)),
		zap.Stringer("date", date),
		zap.String("geofence", geo.Reason),
	)
	return CheckResult{Event: event, Geofence: geo}, nil
}

// CheckOut closes today's event and resolves the day.
func (s *Attendance) CheckOut(ctx context.Context, req CheckRequest) (CheckResult, error) {
	rules := s.rules.Current()
	emp, err := s.activeEmployee(ctx, req.EmployeeID)
	if err != nil {
		return CheckResult{}, err
	}

	now := s.clock.Now().UTC()
	cal := rules.CalendarFor(emp.Department)
	date := cal.DateOf(now)

	event, err := s.store.GetEvent(ctx, emp.ID, date)
	if err != nil {
		return CheckResult{}, err
	}
	if event.CheckOut != nil {
		return CheckResult{}, &core.ConflictError{Key: event.Key(), Reason: "already checked out"}
	}

	geo, err := s.checkGeofence(rules, emp, geofence.ActionCheckOut, req)
	if err != nil {
		return CheckResult{}, err
	}

	event.CheckOut = &now
	event.CheckOutLocation = req.Location
	event.OutsideGeofence = event.OutsideGeofence || geo.Denied()

	res, err := s.resolveAndStore(ctx, rules, emp, date, &event, now)
	if err != nil {
		return CheckResult{}, err
	}

	s.logger.Info("checked out",
		zap.String("employee_id", string(emp.ID)),
		zap.Stringer("date", date),
		zap.String("status", string(res.Status)),
		zap.Stringer("worked_hours", res.WorkedHours),
	)
	return CheckResult{Event: event, Geofence: geo, Resolution: &res}, nil
}

// ResolveDay computes the status for one employee-day and, when an event
// exists, stores the resolution on it.
func (s *Attendance) ResolveDay(ctx context.Context, employee core.EmployeeID, date core.Date) (attendance.Resolution, error) {
	rules := s.rules.Current()
	emp, err := s.employees.GetEmployee(ctx, employee)
	if err != nil {
		return attendance.Resolution{}, err
	}

	var event *attendance.Event
	stored, err := s.store.GetEvent(ctx, employee, date)
	switch {
	case err == nil:
		event = &stored
	case !core.IsNotFound(err):
		return attendance.Resolution{}, err
	}
	return s.resolveAndStore(ctx, rules, emp, date, event, s.clock.Now().UTC())
}

func (s *Attendance) resolveAndStore(ctx context.Context, rules *factory.Rules, emp Employee, date core.Date, event *attendance.Event, now time.Time) (attendance.Resolution, error) {
	day := core.DateRange{Start: date, End: date}
	leaves, err := s.store.ListLeaves(ctx, emp.ID, day)
	if err != nil {
		return attendance.Resolution{}, err
	}
	holidays, err := s.store.ListHolidays(ctx, day)
	if err != nil {
		return attendance.Resolution{}, err
	}

	res := resolve(rules.CalendarFor(emp.Department), emp.ID, date, event, leaves, holidays)
	if event == nil {
		return res, nil
	}

	event.Apply(res)
	event.UpdatedAt = now
	if err := s.store.UpdateEvent(ctx, *event); err != nil {
		return attendance.Resolution{}, err
	}
	return res, nil
}

// resolve feeds one day into the resolver. The event's punch-time geofence
// outcome stands in for the punch results, which are not kept.
func resolve(cal *calendar.Calendar, employee core.EmployeeID, date core.Date, event *attendance.Event,
	leaves []attendance.LeaveRecord, holidays []attendance.HolidayRecord) attendance.Resolution {
	in := attendance.InputFor(cal, date, event, attendance.ApprovedLeaveOn(leaves, employee, date))
	if attendance.HolidayOn(holidays, date) {
		in.MarkHoliday()
	}
	if event != nil && event.OutsideGeofence {
		in.Geofence = []geofence.Result{{Allowed: false, Reason: geofence.ReasonOutsideOffices}}
	}
	res := attendance.Resolve(in)
	res.EmployeeID = employee
	return res
}

// =============================================================================
// REPORTING
// =============================================================================

// Summary resolves every day of r up to today without persisting anything.
func (s *Attendance) Summary(ctx context.Context, employee core.EmployeeID, r core.DateRange) (Report, error) {
	if err := r.Validate(); err != nil {
		return Report{}, err
	}
	rules := s.rules.Current()
	emp, err := s.employees.GetEmployee(ctx, employee)
	if err != nil {
		return Report{}, err
	}
	cal := rules.CalendarFor(emp.Department)

	// Future days have not happened yet; they are not absences.
	if today := cal.DateOf(s.clock.Now()); r.End.After(today) {
		r.End = today
	}
	report := Report{EmployeeID: employee, Range: r, Days: []attendance.Resolution{}}
	if r.Start.After(r.End) {
		report.Overview = attendance.Summarize(nil)
		return report, nil
	}

	events, err := s.store.ListEvents(ctx, employee, r)
	if err != nil {
		return Report{}, err
	}
	leaves, err := s.store.ListLeaves(ctx, employee, r)
	if err != nil {
		return Report{}, err
	}
	holidays, err := s.store.ListHolidays(ctx, r)
	if err != nil {
		return Report{}, err
	}

	byDate := make(map[core.Date]*attendance.Event, len(events))
	for i := range events {
		byDate[events[i].Date] = &events[i]
	}
	for _, date := range r.Days() {
		report.Days = append(report.Days, resolve(cal, employee, date, byDate[date], leaves, holidays))
	}
	report.Overview = attendance.Summarize(report.Days)
	return report, nil
}

// SummaryFor resolves a named window ("today", "week", "month", ...)
// relative to the service clock.
func (s *Attendance) SummaryFor(ctx context.Context, employee core.EmployeeID, period string) (Report, error) {
	rules := s.rules.Current()
	emp, err := s.employees.GetEmployee(ctx, employee)
	if err != nil {
		return Report{}, err
	}
	r, err := rules.CalendarFor(emp.Department).RangeFor(period, s.clock.Now())
	if err != nil {
		return Report{}, err
	}
	return s.Summary(ctx, employee, r)
}

// MissingCheckouts lists open events from before today across all employees.
// Today is the employee's own, from their department calendar, so a
// department in another timezone closes its days on its own clock.
func (s *Attendance) MissingCheckouts(ctx context.Context) ([]attendance.Event, error) {
	rules := s.rules.Current()
	now := s.clock.Now()

	// The store filter uses the latest today of any calendar.
	cutoff := rules.Calendar.DateOf(now)
	for _, name := range rules.DepartmentNames() {
		if d := rules.CalendarFor(name).DateOf(now); d.After(cutoff) {
			cutoff = d
		}
	}
	events, err := s.store.ListOpenEvents(ctx, cutoff)
	if err != nil {
		return nil, err
	}

	todays := make(map[core.EmployeeID]core.Date)
	var missing []attendance.Event
	for _, e := range events {
		today, ok := todays[e.EmployeeID]
		if !ok {
			cal := rules.Calendar
			emp, err := s.employees.GetEmployee(ctx, e.EmployeeID)
			switch {
			case err == nil:
				cal = rules.CalendarFor(emp.Department)
			case !core.IsNotFound(err):
				return nil, err
			}
			today = cal.DateOf(now)
			todays[e.EmployeeID] = today
		}
		if e.Date.Before(today) {
			missing = append(missing, e)
		}
	}
	return attendance.MissingCheckouts(missing, cutoff), nil
}

// =============================================================================
// LEAVE AND HOLIDAYS
// =============================================================================

// RecordLeave validates and stores a leave record, assigning an id when empty.
// Only approved records affect resolution.
func (s *Attendance) RecordLeave(ctx context.Context, r attendance.LeaveRecord) (attendance.LeaveRecord, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if err := r.Validate(); err != nil {
		return attendance.LeaveRecord{}, err
	}
	if _, err := s.employees.GetEmployee(ctx, r.EmployeeID); err != nil {
		return attendance.LeaveRecord{}, err
	}
	if err := s.store.PutLeave(ctx, r); err != nil {
		return attendance.LeaveRecord{}, err
	}
	s.logger.Info("leave recorded",
		zap.String("employee_id", string(r.EmployeeID)),
		zap.Stringer("range", r.Range),
		zap.String("state", string(r.State)),
	)
	return r, nil
}

func (s *Attendance) RecordHoliday(ctx context.Context, h attendance.HolidayRecord) (attendance.HolidayRecord, error) {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	if err := h.Validate(); err != nil {
		return attendance.HolidayRecord{}, err
	}
	if err := s.store.PutHoliday(ctx, h); err != nil {
		return attendance.HolidayRecord{}, err
	}
	s.logger.Info("holiday recorded", zap.String("name", h.Name), zap.Stringer("range", h.Range))
	return h, nil
}

func (s *Attendance) ListHolidays(ctx context.Context, r core.DateRange) ([]attendance.HolidayRecord, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return s.store.ListHolidays(ctx, r)
}

func (s *Attendance) ListLeaves(ctx context.Context, employee core.EmployeeID, r core.DateRange) ([]attendance.LeaveRecord, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return s.store.ListLeaves(ctx, employee, r)
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *Attendance) activeEmployee(ctx context.Context, id core.EmployeeID) (Employee, error) {
	if id == "" {
		return Employee{}, &core.ValidationError{Field: "employee_id", Reason: "required"}
	}
	emp, err := s.employees.GetEmployee(ctx, id)
	if err != nil {
		return Employee{}, err
	}
	if !emp.Active {
		return Employee{}, &core.ValidationError{Field: "employee_id", Reason: "employee is inactive"}
	}
	return emp, nil
}

// checkGeofence validates the punch. WFH only bypasses the geofence for
// employees marked eligible.
func (s *Attendance) checkGeofence(rules *factory.Rules, emp Employee, action geofence.Action, req CheckRequest) (geofence.Result, error) {
	geo := geofence.Validate(rules.Geofence, geofence.Request{
		Action:   action,
		Location: req.Location,
		WFH:      req.WFH && emp.WFHEligible,
	})
	if geo.Denied() {
		s.logger.Warn("geofence violation",
			zap.String("employee_id", string(emp.ID)),
			zap.String("action", string(action)),
			zap.String("reason", geo.Reason),
			zap.String("nearest_office", geo.NearestOffice),
			zap.Float64("distance_meters", geo.DistanceMeters),
		)
		if s.RejectOutsideGeofence {
			return geo, &GeofenceDeniedError{Action: action, Result: geo}
		}
	}
	return geo, nil
}

// IsGeofenceDenied reports whether err is a rejected punch.
func IsGeofenceDenied(err error) bool {
	var denied *GeofenceDeniedError
	return errors.As(err, &denied)
}
