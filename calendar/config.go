/*
Package calendar implements the business calendar: timezone normalization,
day boundaries and day-type classification.

PURPOSE:
  Every attendance computation starts from "which business day is this
  instant, and what kind of day is it?". The answer depends on the
  organization's timezone, its working week and its Saturday rules. This
  package compiles those rules into an immutable Calendar once, then
  answers the question as a pure function of an explicit instant.

KEY CONCEPTS IN THIS FILE (config.go):
  - Config: The business calendar rules as supplied by configuration
  - TimeOfDay: A wall-clock time (HH:MM) with no date
  - SaturdayWorkType: full | half | off

NO AMBIENT TIME:
  Nothing here reads the wall clock. Callers pass instants in; the service
  layer owns a core.Clock.

SEE ALSO:
  - calendar.go: Normalize, Classify, Hours
  - factory/rules.go: Builds Config from a rules file
*/
package calendar

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/core"
)

// =============================================================================
// TIME OF DAY
// =============================================================================

// TimeOfDay is minutes since midnight. The zero value is "unset".
type TimeOfDay struct {
	minutes int
	set     bool
}

// NewTimeOfDay builds a TimeOfDay from hour and minute.
func NewTimeOfDay(hour, minute int) TimeOfDay {
	return TimeOfDay{minutes: hour*60 + minute, set: true}
}

// ParseTimeOfDay parses "HH:MM" (24-hour).
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q (use HH:MM)", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return TimeOfDay{}, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return TimeOfDay{}, fmt.Errorf("invalid minute in %q", s)
	}
	return NewTimeOfDay(h, m), nil
}

// MustTime parses "HH:MM" or panics. For literals only.
func MustTime(s string) TimeOfDay {
	t, err := ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

func (t TimeOfDay) IsSet() bool             { return t.set }
func (t TimeOfDay) Hour() int               { return t.minutes / 60 }
func (t TimeOfDay) Minute() int             { return t.minutes % 60 }
func (t TimeOfDay) Before(o TimeOfDay) bool { return t.minutes < o.minutes }
func (t TimeOfDay) After(o TimeOfDay) bool  { return t.minutes > o.minutes }

func (t TimeOfDay) String() string {
	if !t.set {
		return ""
	}
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

func (t TimeOfDay) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *TimeOfDay) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*t = TimeOfDay{}
		return nil
	}
	parsed, err := ParseTimeOfDay(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// =============================================================================
// SATURDAY WORK TYPE
// =============================================================================

type SaturdayWorkType string

const (
	SaturdayFull SaturdayWorkType = "full"
	SaturdayHalf SaturdayWorkType = "half"
	SaturdayOff  SaturdayWorkType = "off"
)

func (s SaturdayWorkType) valid() bool {
	switch s {
	case SaturdayFull, SaturdayHalf, SaturdayOff:
		return true
	}
	return false
}

// =============================================================================
// CONFIG - Business calendar rules
// =============================================================================

// Config is the BusinessCalendarConfig snapshot. Weekday sets use
// time.Weekday numbering (Sunday = 0).
type Config struct {
	Timezone string

	WorkStart     TimeOfDay
	WorkEnd       TimeOfDay
	LateThreshold TimeOfDay
	HalfDayEnd    TimeOfDay

	MinimumWorkHours decimal.Decimal
	FullDayHours     decimal.Decimal

	WorkingDays    []time.Weekday
	NonWorkingDays []time.Weekday

	SaturdayWorkType SaturdayWorkType
	SaturdayHolidays []int // ordinal Saturdays of the month, 1-5
}

func cfgErr(field, reason string) error {
	return &core.ConfigurationError{Field: field, Reason: reason}
}

// Validate checks every required field and the cross-field invariants.
// It never substitutes defaults.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Timezone) == "" {
		return cfgErr("timezone", "required")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return cfgErr("timezone", fmt.Sprintf("unknown location %q", c.Timezone))
	}

	required := []struct {
		name string
		t    TimeOfDay
	}{
		{"work_start_time", c.WorkStart},
		{"work_end_time", c.WorkEnd},
		{"late_threshold", c.LateThreshold},
		{"half_day_end_time", c.HalfDayEnd},
	}
	for _, r := range required {
		if !r.t.IsSet() {
			return cfgErr(r.name, "required")
		}
	}
	if !c.WorkStart.Before(c.WorkEnd) {
		return cfgErr("work_end_time", "must be after work_start_time")
	}
	if c.LateThreshold.Before(c.WorkStart) {
		return cfgErr("late_threshold", "must not be before work_start_time")
	}
	if !c.WorkStart.Before(c.HalfDayEnd) || c.HalfDayEnd.After(c.WorkEnd) {
		return cfgErr("half_day_end_time", "must fall between work_start_time and work_end_time")
	}

	if !c.MinimumWorkHours.IsPositive() {
		return cfgErr("minimum_work_hours", "must be positive")
	}
	if !c.FullDayHours.IsPositive() {
		return cfgErr("full_day_hours", "must be positive")
	}
	if c.FullDayHours.GreaterThan(decimal.NewFromInt(24)) {
		return cfgErr("full_day_hours", "must not exceed 24")
	}
	if !c.MinimumWorkHours.LessThan(c.FullDayHours) {
		return cfgErr("minimum_work_hours", "must be less than full_day_hours")
	}

	if len(c.WorkingDays) == 0 {
		return cfgErr("working_days", "required")
	}
	var seen [7]int
	for _, d := range c.WorkingDays {
		if d < time.Sunday || d > time.Saturday {
			return cfgErr("working_days", fmt.Sprintf("weekday %d out of range 0-6", d))
		}
		seen[d]++
	}
	for _, d := range c.NonWorkingDays {
		if d < time.Sunday || d > time.Saturday {
			return cfgErr("non_working_days", fmt.Sprintf("weekday %d out of range 0-6", d))
		}
		seen[d]++
	}
	for d, n := range seen {
		if n != 1 {
			return cfgErr("working_days", fmt.Sprintf(
				"working_days and non_working_days must partition the week (%s appears %d times)",
				time.Weekday(d), n))
		}
	}

	if !c.SaturdayWorkType.valid() {
		return cfgErr("saturday_work_type", fmt.Sprintf("must be full, half or off (got %q)", c.SaturdayWorkType))
	}
	for _, n := range c.SaturdayHolidays {
		if n < 1 || n > 5 {
			return cfgErr("saturday_holidays", fmt.Sprintf("ordinal %d out of range 1-5", n))
		}
	}
	return nil
}

// sortedWeekdays is used when echoing config back to clients.
func sortedWeekdays(days []time.Weekday) []time.Weekday {
	out := append([]time.Weekday(nil), days...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
