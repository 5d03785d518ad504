package attendance

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/calendar"
	"github.com/warp/payroll-engine/core"
	"github.com/warp/payroll-engine/geofence"
)

// =============================================================================
// INPUT / OUTPUT
// =============================================================================

// ResolveInput is everything the resolver looks at. Day carries the day type
// and the late cutoff; Hours carries the effective thresholds for that day.
type ResolveInput struct {
	Day           calendar.Day
	Hours         calendar.Hours
	Event         *Event // nil when nothing was recorded
	LeaveApproved bool
	Geofence      []geofence.Result
}

// MarkHoliday overrides the day type when a holiday record covers the date.
func (in *ResolveInput) MarkHoliday() { in.Day.Type = calendar.DayHoliday }

type Resolution struct {
	EmployeeID  core.EmployeeID  `json:"employee_id"`
	Date        core.Date        `json:"date"`
	DayType     calendar.DayType `json:"day_type"`
	Status      Status           `json:"status"`
	Worked      time.Duration    `json:"-"`
	WorkedHours decimal.Decimal  `json:"worked_hours"`
	Flags       Flags            `json:"flags"`
}

// InputFor builds a ResolveInput from a compiled calendar. The day's
// thresholds follow its type, so half Saturdays carry halved hours.
func InputFor(cal *calendar.Calendar, date core.Date, event *Event, leaveApproved bool) ResolveInput {
	day := cal.DayOf(date)
	return ResolveInput{
		Day:           day,
		Hours:         cal.Hours(day.Type),
		Event:         event,
		LeaveApproved: leaveApproved,
	}
}

// =============================================================================
// RESOLVE
// =============================================================================

// Resolve applies the precedence rules to one employee-day.
func Resolve(in ResolveInput) Resolution {
	res := Resolution{Date: in.Day.Date, DayType: in.Day.Type, WorkedHours: decimal.Zero}
	if in.Event != nil {
		res.EmployeeID = in.Event.EmployeeID
	}
	for _, g := range in.Geofence {
		if !g.Allowed {
			res.Flags.GeofenceViolation = true
		}
	}

	if in.LeaveApproved {
		res.Status = StatusLeave
		res.Flags = Flags{}
		return res
	}

	// Work done on a day off is still measured; it does not change status.
	if in.Event != nil && in.Event.CheckIn != nil {
		measure(&res, in.Event)
	}

	switch {
	case in.Day.Type == calendar.DayHoliday:
		res.Status = StatusHoliday
		return res
	case in.Day.Type == calendar.DayWeekend:
		res.Status = StatusWeekend
		return res
	case in.Event == nil || in.Event.CheckIn == nil:
		res.Status = StatusAbsent
		return res
	}

	ev := in.Event
	switch {
	case ev.CheckOut != nil && res.Worked < in.Hours.Minimum:
		res.Status = StatusHalfDay
	case ev.CheckIn.After(in.Day.LateCutoff):
		res.Status = StatusLate
	default:
		res.Status = StatusPresent
	}
	if ev.CheckOut != nil && ev.CheckOut.Before(in.Day.ExpectedEnd) && !res.Flags.CheckoutBeforeCheckIn {
		res.Flags.LeftEarly = true
	}
	return res
}

// measure fills worked time. A missing check-out counts as zero and is
// flagged; a check-out before check-in is clamped to zero and flagged.
func measure(res *Resolution, ev *Event) {
	if ev.CheckOut == nil {
		res.Flags.PendingCheckout = true
		return
	}
	worked := ev.CheckOut.Sub(*ev.CheckIn)
	if worked < 0 {
		res.Flags.CheckoutBeforeCheckIn = true
		worked = 0
	}
	res.Worked = worked
	res.WorkedHours = durationHours(worked)
}

func durationHours(d time.Duration) decimal.Decimal {
	return decimal.NewFromInt(int64(d)).Div(decimal.NewFromInt(int64(time.Hour))).Round(2)
}
