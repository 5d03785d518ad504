package attendance

import (
	"github.com/warp/payroll-engine/core"
)

// =============================================================================
// APPROVAL STATE
// =============================================================================

type ApprovalState string

const (
	ApprovalPending  ApprovalState = "pending"
	ApprovalApproved ApprovalState = "approved"
	ApprovalRejected ApprovalState = "rejected"
)

func (s ApprovalState) Valid() bool {
	switch s {
	case ApprovalPending, ApprovalApproved, ApprovalRejected:
		return true
	}
	return false
}

// =============================================================================
// LEAVE AND HOLIDAY RECORDS
// =============================================================================

// LeaveRecord is an employee's leave over an inclusive date range.
type LeaveRecord struct {
	ID         string          `json:"id"`
	EmployeeID core.EmployeeID `json:"employee_id"`
	Range      core.DateRange  `json:"range"`
	State      ApprovalState   `json:"state"`
	Reason     string          `json:"reason,omitempty"`
}

func (r LeaveRecord) Validate() error {
	if r.EmployeeID == "" {
		return &core.ValidationError{Field: "employee_id", Reason: "required"}
	}
	if !r.State.Valid() {
		return &core.ValidationError{Field: "state", Reason: "must be pending, approved or rejected"}
	}
	return r.Range.Validate()
}

// HolidayRecord is an organization-wide holiday over an inclusive range.
type HolidayRecord struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Range core.DateRange `json:"range"`
	State ApprovalState  `json:"state"`
}

func (r HolidayRecord) Validate() error {
	if r.Name == "" {
		return &core.ValidationError{Field: "name", Reason: "required"}
	}
	if !r.State.Valid() {
		return &core.ValidationError{Field: "state", Reason: "must be pending, approved or rejected"}
	}
	return r.Range.Validate()
}

// ApprovedLeaveOn reports whether employee has approved leave covering date.
// Pending and rejected records never override status.
func ApprovedLeaveOn(records []LeaveRecord, employee core.EmployeeID, date core.Date) bool {
	for _, r := range records {
		if r.EmployeeID == employee && r.State == ApprovalApproved && r.Range.Contains(date) {
			return true
		}
	}
	return false
}

// HolidayOn reports whether an approved holiday covers date.
func HolidayOn(records []HolidayRecord, date core.Date) bool {
	for _, r := range records {
		if r.State == ApprovalApproved && r.Range.Contains(date) {
			return true
		}
	}
	return false
}

// LeaveDaysIn counts the days in period covered by the employee's approved
// leave. Overlapping records count a day once.
func LeaveDaysIn(records []LeaveRecord, employee core.EmployeeID, period core.DateRange) int {
	n := 0
	for _, d := range period.Days() {
		if ApprovedLeaveOn(records, employee, d) {
			n++
		}
	}
	return n
}
