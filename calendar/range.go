package calendar

import (
	"time"

	"github.com/warp/payroll-engine/core"
)

// Named reporting windows, resolved relative to an explicit instant.
const (
	RangeToday     = "today"
	RangeYesterday = "yesterday"
	RangeWeek      = "week"       // Monday of this week through today
	RangeMonth     = "month"      // first of this month through today
	RangeLastMonth = "last_month" // the whole previous month
)

// RangeFor resolves a named window in business time. Unknown names are a
// validation error rather than a silent fallback to today.
func (c *Calendar) RangeFor(name string, instant time.Time) (core.DateRange, error) {
	today := c.DateOf(instant)
	switch name {
	case RangeToday:
		return core.DateRange{Start: today, End: today}, nil
	case RangeYesterday:
		y := today.AddDays(-1)
		return core.DateRange{Start: y, End: y}, nil
	case RangeWeek:
		offset := (int(today.Weekday()) + 6) % 7 // days since Monday
		return core.DateRange{Start: today.AddDays(-offset), End: today}, nil
	case RangeMonth:
		return core.DateRange{Start: core.StartOfMonth(today.Year, today.Month), End: today}, nil
	case RangeLastMonth:
		first := core.StartOfMonth(today.Year, today.Month).AddMonths(-1)
		return core.MonthRange(first.Year, first.Month), nil
	default:
		return core.DateRange{}, &core.ValidationError{Field: "period", Reason: "unknown period " + name}
	}
}
