package attendance_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-engine/attendance"
	"github.com/warp/payroll-engine/calendar"
	"github.com/warp/payroll-engine/core"
	"github.com/warp/payroll-engine/geofence"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

var (
	tuesday  = core.NewDate(2025, time.March, 11)
	sunday   = core.NewDate(2025, time.March, 16)
	halfSat  = core.NewDate(2025, time.March, 15) // third Saturday
	secSat   = core.NewDate(2025, time.March, 8)  // second Saturday
	employee = core.EmployeeID("emp-001")
)

func testCalendar(t *testing.T) *calendar.Calendar {
	t.Helper()
	cal, err := calendar.New(calendar.Config{
		Timezone:         "Asia/Kolkata",
		WorkStart:        calendar.MustTime("09:30"),
		WorkEnd:          calendar.MustTime("18:30"),
		LateThreshold:    calendar.MustTime("09:55"),
		HalfDayEnd:       calendar.MustTime("13:30"),
		MinimumWorkHours: decimal.NewFromInt(4),
		FullDayHours:     decimal.NewFromInt(8),
		WorkingDays:      []time.Weekday{1, 2, 3, 4, 5, 6},
		NonWorkingDays:   []time.Weekday{0},
		SaturdayWorkType: calendar.SaturdayHalf,
		SaturdayHolidays: []int{2, 4},
	})
	require.NoError(t, err)
	return cal
}

// event builds an event from "HH:MM" wall times in the calendar's zone.
// An empty string leaves the instant unset.
func event(t *testing.T, cal *calendar.Calendar, date core.Date, in, out string) *attendance.Event {
	t.Helper()
	ev := &attendance.Event{EmployeeID: employee, Date: date}
	if in != "" {
		ts := cal.At(date, calendar.MustTime(in))
		ev.CheckIn = &ts
	}
	if out != "" {
		ts := cal.At(date, calendar.MustTime(out))
		ev.CheckOut = &ts
	}
	return ev
}

func resolve(t *testing.T, date core.Date, in, out string, leave bool) attendance.Resolution {
	t.Helper()
	cal := testCalendar(t)
	return attendance.Resolve(attendance.InputFor(cal, date, event(t, cal, date, in, out), leave))
}

// =============================================================================
// SCENARIOS
// =============================================================================

func TestResolve_ScenarioA_Present(t *testing.T) {
	// GIVEN: Check-in 09:40 (before 09:55 cutoff), check-out 18:00
	// WHEN: Resolving
	// THEN: Present with 8.33 hours

	res := resolve(t, tuesday, "09:40", "18:00", false)

	assert.Equal(t, attendance.StatusPresent, res.Status)
	assert.Equal(t, 8*time.Hour+20*time.Minute, res.Worked)
	assert.True(t, res.WorkedHours.Equal(decimal.RequireFromString("8.33")), res.WorkedHours.String())
	assert.False(t, res.Flags.PendingCheckout)
}

func TestResolve_ScenarioB_Late(t *testing.T) {
	res := resolve(t, tuesday, "10:10", "18:00", false)

	assert.Equal(t, attendance.StatusLate, res.Status)
	assert.True(t, res.Flags.LeftEarly)
}

func TestResolve_ScenarioC_HalfDay(t *testing.T) {
	// GIVEN: 09:35 to 12:00 is 2h25m, below the 4 hour minimum
	// WHEN: Resolving
	// THEN: Half day with 2.42 hours

	res := resolve(t, tuesday, "09:35", "12:00", false)

	assert.Equal(t, attendance.StatusHalfDay, res.Status)
	assert.True(t, res.WorkedHours.Equal(decimal.RequireFromString("2.42")), res.WorkedHours.String())
}

func TestResolve_ScenarioD_LeaveWithNoEvent(t *testing.T) {
	cal := testCalendar(t)

	res := attendance.Resolve(attendance.InputFor(cal, tuesday, nil, true))

	assert.Equal(t, attendance.StatusLeave, res.Status)
	assert.True(t, res.WorkedHours.IsZero())
}

// =============================================================================
// PRECEDENCE
// =============================================================================

func TestResolve_Precedence(t *testing.T) {
	tests := []struct {
		name    string
		date    core.Date
		in, out string
		leave   bool
		holiday bool
		want    attendance.Status
	}{
		{"leave beats holiday and late", tuesday, "11:00", "12:00", true, true, attendance.StatusLeave},
		{"leave beats weekend", sunday, "", "", true, false, attendance.StatusLeave},
		{"holiday record beats worked day", tuesday, "09:30", "18:30", false, true, attendance.StatusHoliday},
		{"holiday saturday beats check-in", secSat, "09:30", "13:30", false, false, attendance.StatusHoliday},
		{"weekend beats check-in", sunday, "10:30", "12:00", false, false, attendance.StatusWeekend},
		{"no check-in is absent", tuesday, "", "", false, false, attendance.StatusAbsent},
		{"half day beats late", tuesday, "10:30", "12:00", false, false, attendance.StatusHalfDay},
		{"late with full hours", tuesday, "09:56", "18:30", false, false, attendance.StatusLate},
		{"on the cutoff is not late", tuesday, "09:55", "18:30", false, false, attendance.StatusPresent},
		{"pending checkout is not half day", tuesday, "09:40", "", false, false, attendance.StatusPresent},
		{"pending checkout can be late", tuesday, "10:40", "", false, false, attendance.StatusLate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cal := testCalendar(t)
			in := attendance.InputFor(cal, tt.date, event(t, cal, tt.date, tt.in, tt.out), tt.leave)
			if tt.holiday {
				in.MarkHoliday()
			}
			assert.Equal(t, tt.want, attendance.Resolve(in).Status)
		})
	}
}

func TestResolve_HalfSaturdayUsesHalvedMinimum(t *testing.T) {
	// GIVEN: A half Saturday where the minimum is 2h instead of 4h
	// WHEN: Working 09:30 to 12:00 (2.5h)
	// THEN: Present, not half day

	res := resolve(t, halfSat, "09:30", "12:00", false)
	assert.Equal(t, attendance.StatusPresent, res.Status)

	res = resolve(t, halfSat, "09:30", "11:00", false)
	assert.Equal(t, attendance.StatusHalfDay, res.Status)
}

// =============================================================================
// WORKED HOURS AND FLAGS
// =============================================================================

func TestResolve_PendingCheckout(t *testing.T) {
	res := resolve(t, tuesday, "09:40", "", false)

	assert.True(t, res.Flags.PendingCheckout)
	assert.Zero(t, res.Worked)
	assert.True(t, res.WorkedHours.IsZero())
}

func TestResolve_CheckoutBeforeCheckInIsClampedAndFlagged(t *testing.T) {
	res := resolve(t, tuesday, "10:00", "09:00", false)

	assert.True(t, res.Flags.CheckoutBeforeCheckIn)
	assert.Zero(t, res.Worked)
	assert.False(t, res.WorkedHours.IsNegative())
	assert.Equal(t, attendance.StatusHalfDay, res.Status)
}

func TestResolve_WorkOnWeekendIsMeasured(t *testing.T) {
	res := resolve(t, sunday, "10:00", "14:00", false)

	assert.Equal(t, attendance.StatusWeekend, res.Status)
	assert.Equal(t, 4*time.Hour, res.Worked)
}

func TestResolve_GeofenceDenialIsOnlyAFlag(t *testing.T) {
	cal := testCalendar(t)
	in := attendance.InputFor(cal, tuesday, event(t, cal, tuesday, "09:40", "18:30"), false)
	in.Geofence = []geofence.Result{{Allowed: false, Reason: geofence.ReasonOutsideOffices}}

	res := attendance.Resolve(in)

	assert.Equal(t, attendance.StatusPresent, res.Status)
	assert.True(t, res.Flags.GeofenceViolation)
}

func TestResolve_CheckInNormalizedFromUTC(t *testing.T) {
	// GIVEN: A check-in recorded as 04:20 UTC, which is 09:50 IST
	// WHEN: Resolving
	// THEN: Not late, because lateness is judged in business time

	cal := testCalendar(t)
	in := time.Date(2025, time.March, 11, 4, 20, 0, 0, time.UTC)
	out := time.Date(2025, time.March, 11, 13, 0, 0, 0, time.UTC)
	ev := &attendance.Event{EmployeeID: employee, Date: cal.DateOf(in), CheckIn: &in, CheckOut: &out}

	res := attendance.Resolve(attendance.InputFor(cal, ev.Date, ev, false))

	assert.Equal(t, tuesday, res.Date)
	assert.Equal(t, attendance.StatusPresent, res.Status)
}

func TestEvent_Apply(t *testing.T) {
	ev := attendance.Event{EmployeeID: employee, Date: tuesday}
	ev.Apply(attendance.Resolution{Status: attendance.StatusLate, WorkedHours: decimal.NewFromInt(8)})

	assert.Equal(t, attendance.StatusLate, ev.Status)
	assert.Equal(t, "emp-001/2025-03-11", ev.Key())
}
