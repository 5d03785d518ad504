/*
Package attendance resolves one authoritative status per employee per day.

PURPOSE:
  Raw time-clock events are noisy: check-outs go missing, devices report
  check-outs before check-ins, people check in on holidays. This package
  combines an event with the business calendar, approved leave and holiday
  records, and geofence results into a single Resolution.

KEY CONCEPTS IN THIS FILE (event.go):
  - Status: present | late | half_day | absent | leave | holiday | weekend
  - Event: The stored AttendanceEvent, unique per (employee, date)
  - Flags: Anomalies surfaced on the record instead of raised as errors

PRECEDENCE (first match wins):
  leave > holiday > weekend > absent > half_day > late > present

SEE ALSO:
  - resolver.go: Resolve, InputFor
  - records.go: Leave and holiday record evaluation
  - summary.go: Period overview and missing check-outs
  - store.go: Persistence contract
*/
package attendance

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/core"
	"github.com/warp/payroll-engine/geofence"
)

// =============================================================================
// STATUS
// =============================================================================

type Status string

const (
	StatusPresent Status = "present"
	StatusLate    Status = "late"
	StatusHalfDay Status = "half_day"
	StatusAbsent  Status = "absent"
	StatusLeave   Status = "leave"
	StatusHoliday Status = "holiday"
	StatusWeekend Status = "weekend"
)

// Attended reports whether the status counts as the employee having worked.
func (s Status) Attended() bool {
	return s == StatusPresent || s == StatusLate || s == StatusHalfDay
}

// =============================================================================
// EVENT - Stored attendance record
// =============================================================================

// Event is the per-day attendance record. Status and WorkedHours are empty
// until the day is resolved.
type Event struct {
	ID         string          `json:"id"`
	EmployeeID core.EmployeeID `json:"employee_id"`
	Date       core.Date       `json:"date"`

	CheckIn          *time.Time      `json:"check_in,omitempty"`
	CheckOut         *time.Time      `json:"check_out,omitempty"`
	CheckInLocation  *geofence.Point `json:"check_in_location,omitempty"`
	CheckOutLocation *geofence.Point `json:"check_out_location,omitempty"`
	WFH              bool            `json:"wfh"`
	// OutsideGeofence is the punch-time geofence outcome. Resolution never
	// overwrites it, so a re-resolved day still reports the violation.
	OutsideGeofence  bool            `json:"outside_geofence"`

	Status      Status          `json:"status,omitempty"`
	WorkedHours decimal.Decimal `json:"worked_hours"`
	Flags       Flags           `json:"flags"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Key is the uniqueness key stores enforce.
func (e Event) Key() string { return EventKey(e.EmployeeID, e.Date) }

// EventKey formats the (employee, date) uniqueness key.
func EventKey(employee core.EmployeeID, date core.Date) string {
	return string(employee) + "/" + date.String()
}

// Open reports whether the event has a check-in but no check-out.
func (e Event) Open() bool { return e.CheckIn != nil && e.CheckOut == nil }

// Apply copies a resolution onto the event.
func (e *Event) Apply(r Resolution) {
	e.Status = r.Status
	e.WorkedHours = r.WorkedHours
	e.Flags = r.Flags
}

// Flags are anomalies carried on the record. None of them change status
// except where the precedence rules say so.
type Flags struct {
	PendingCheckout       bool `json:"pending_checkout,omitempty"`
	CheckoutBeforeCheckIn bool `json:"checkout_before_check_in,omitempty"`
	GeofenceViolation     bool `json:"geofence_violation,omitempty"`
	LeftEarly             bool `json:"left_early,omitempty"`
}
