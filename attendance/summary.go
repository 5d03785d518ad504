package attendance

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/core"
)

// Overview aggregates resolutions over a period.
type Overview struct {
	Total       int             `json:"total"`
	Present     int             `json:"present"`
	Late        int             `json:"late"`
	HalfDay     int             `json:"half_day"`
	Absent      int             `json:"absent"`
	Leave       int             `json:"leave"`
	Holiday     int             `json:"holiday"`
	Weekend     int             `json:"weekend"`
	WorkingDays int             `json:"working_days"`
	WorkedHours decimal.Decimal `json:"worked_hours"`

	// AttendanceRate is attended days over expected days (working days not on
	// leave), as a percentage. PunctualityRate is on-time days over attended
	// days. Both are 0 when the denominator is 0.
	AttendanceRate  decimal.Decimal `json:"attendance_rate"`
	PunctualityRate decimal.Decimal `json:"punctuality_rate"`

	PendingCheckouts   int `json:"pending_checkouts"`
	GeofenceViolations int `json:"geofence_violations"`
}

var hundred = decimal.NewFromInt(100)

// Summarize counts statuses and derives rates.
func Summarize(resolutions []Resolution) Overview {
	o := Overview{WorkedHours: decimal.Zero}
	for _, r := range resolutions {
		o.Total++
		switch r.Status {
		case StatusPresent:
			o.Present++
		case StatusLate:
			o.Late++
		case StatusHalfDay:
			o.HalfDay++
		case StatusAbsent:
			o.Absent++
		case StatusLeave:
			o.Leave++
		case StatusHoliday:
			o.Holiday++
		case StatusWeekend:
			o.Weekend++
		}
		if r.DayType.IsWorking() {
			o.WorkingDays++
		}
		if r.Flags.PendingCheckout {
			o.PendingCheckouts++
		}
		if r.Flags.GeofenceViolation {
			o.GeofenceViolations++
		}
		o.WorkedHours = o.WorkedHours.Add(r.WorkedHours)
	}

	attended := o.Present + o.Late + o.HalfDay
	expected := attended + o.Absent
	o.AttendanceRate = percent(attended, expected)
	o.PunctualityRate = percent(o.Present, attended)
	return o
}

func percent(num, den int) decimal.Decimal {
	if den == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(num)).Mul(hundred).Div(decimal.NewFromInt(int64(den))).Round(2)
}

// MissingCheckouts returns events dated before asOf that have a check-in and
// no check-out, oldest first. Today's open events are still in progress.
func MissingCheckouts(events []Event, asOf core.Date) []Event {
	var out []Event
	for _, e := range events {
		if e.Open() && e.Date.Before(asOf) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].EmployeeID < out[j].EmployeeID
	})
	return out
}
