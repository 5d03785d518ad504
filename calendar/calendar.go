package calendar

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/core"
)

// =============================================================================
// DAY TYPE
// =============================================================================

type DayType string

const (
	DayWorking      DayType = "working"
	DayHalfSaturday DayType = "half_saturday"
	DayWeekend      DayType = "weekend"
	DayHoliday      DayType = "holiday"
)

// IsWorking reports whether attendance is expected on the day.
func (t DayType) IsWorking() bool { return t == DayWorking || t == DayHalfSaturday }

// =============================================================================
// DAY - Normalized business day
// =============================================================================

// Day is the result of normalizing an instant. Start and End form the
// half-open interval [Start, End) of the business day in the business
// timezone; on DST transitions the interval is 23 or 25 hours long.
type Day struct {
	Date            core.Date
	Start           time.Time
	End             time.Time
	Weekday         time.Weekday
	SaturdayOrdinal int // 1-5 on Saturdays, 0 otherwise
	Type            DayType

	ExpectedStart time.Time
	ExpectedEnd   time.Time
	LateCutoff    time.Time
}

// Hours are the effective thresholds for a day type.
type Hours struct {
	Minimum time.Duration
	Full    time.Duration
}

// =============================================================================
// CALENDAR - Compiled, immutable business calendar
// =============================================================================

// Calendar is a validated Config bound to its location. It holds no mutable
// state and is safe for concurrent use.
type Calendar struct {
	cfg        Config
	loc        *time.Location
	nonWorking [7]bool
	satHoliday [6]bool
	minimum    time.Duration
	full       time.Duration
}

// New validates cfg and compiles it. Errors are *core.ConfigurationError.
func New(cfg Config) (*Calendar, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	loc, _ := time.LoadLocation(cfg.Timezone) // checked by Validate

	c := &Calendar{
		cfg:     cfg,
		loc:     loc,
		minimum: hoursToDuration(cfg.MinimumWorkHours),
		full:    hoursToDuration(cfg.FullDayHours),
	}
	c.cfg.WorkingDays = sortedWeekdays(cfg.WorkingDays)
	c.cfg.NonWorkingDays = sortedWeekdays(cfg.NonWorkingDays)
	c.cfg.SaturdayHolidays = append([]int(nil), cfg.SaturdayHolidays...)
	for _, d := range cfg.NonWorkingDays {
		c.nonWorking[d] = true
	}
	for _, n := range cfg.SaturdayHolidays {
		c.satHoliday[n] = true
	}
	return c, nil
}

// Config returns a copy of the rules the calendar was built from.
func (c *Calendar) Config() Config {
	out := c.cfg
	out.WorkingDays = append([]time.Weekday(nil), c.cfg.WorkingDays...)
	out.NonWorkingDays = append([]time.Weekday(nil), c.cfg.NonWorkingDays...)
	out.SaturdayHolidays = append([]int(nil), c.cfg.SaturdayHolidays...)
	return out
}

func (c *Calendar) Location() *time.Location { return c.loc }

// Normalize converts instant into the business timezone and describes its day.
func (c *Calendar) Normalize(instant time.Time) Day {
	return c.DayOf(c.DateOf(instant))
}

// DateOf returns the business date of instant.
func (c *Calendar) DateOf(instant time.Time) core.Date {
	return core.DateOf(instant.In(c.loc))
}

// DayOf describes a business date.
func (c *Calendar) DayOf(date core.Date) Day {
	dayType := c.Classify(date)
	end := c.cfg.WorkEnd
	if dayType == DayHalfSaturday {
		end = c.cfg.HalfDayEnd
	}

	day := Day{
		Date:          date,
		Start:         date.In(c.loc),
		End:           date.AddDays(1).In(c.loc),
		Weekday:       date.Weekday(),
		Type:          dayType,
		ExpectedStart: c.At(date, c.cfg.WorkStart),
		ExpectedEnd:   c.At(date, end),
		LateCutoff:    c.At(date, c.cfg.LateThreshold),
	}
	if day.Weekday == time.Saturday {
		day.SaturdayOrdinal = SaturdayOrdinal(date)
	}
	return day
}

// Classify returns the day type of date. Order matters:
//  1. ordinal Saturday listed in SaturdayHolidays -> holiday
//  2. weekday in NonWorkingDays                   -> weekend
//  3. Saturday with SaturdayWorkType off          -> weekend
//  4. Saturday with SaturdayWorkType half         -> half_saturday
//  5. otherwise                                   -> working
func (c *Calendar) Classify(date core.Date) DayType {
	wd := date.Weekday()
	if wd == time.Saturday && c.satHoliday[SaturdayOrdinal(date)] {
		return DayHoliday
	}
	if c.nonWorking[wd] {
		return DayWeekend
	}
	if wd == time.Saturday {
		switch c.cfg.SaturdayWorkType {
		case SaturdayOff:
			return DayWeekend
		case SaturdayHalf:
			return DayHalfSaturday
		}
	}
	return DayWorking
}

// Hours returns the minimum and full-day thresholds for a day type. Half
// Saturdays use half of both.
func (c *Calendar) Hours(t DayType) Hours {
	if t == DayHalfSaturday {
		return Hours{Minimum: c.minimum / 2, Full: c.full / 2}
	}
	return Hours{Minimum: c.minimum, Full: c.full}
}

// At returns the instant of a wall-clock time on date in the business zone.
func (c *Calendar) At(date core.Date, t TimeOfDay) time.Time {
	return time.Date(date.Year, date.Month, date.Day, t.Hour(), t.Minute(), 0, 0, c.loc)
}

// WorkingDaysIn counts days in r on which attendance is expected.
func (c *Calendar) WorkingDaysIn(r core.DateRange) int {
	n := 0
	for _, d := range r.Days() {
		if c.Classify(d).IsWorking() {
			n++
		}
	}
	return n
}

// SaturdayOrdinal returns which Saturday of its month date is (1-5).
func SaturdayOrdinal(date core.Date) int {
	return (date.Day-1)/7 + 1
}

func hoursToDuration(h decimal.Decimal) time.Duration {
	return time.Duration(h.Mul(decimal.NewFromInt(int64(time.Hour))).IntPart())
}
