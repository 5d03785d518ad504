package core

import (
	"fmt"
	"time"
)

// =============================================================================
// DATE - Civil calendar day in the business timezone
// =============================================================================

// Date is a calendar day with no time-of-day and no location. Attendance
// events are keyed by it after an instant has been normalized into the
// business timezone, so two instants on the same business day always map
// to the same Date regardless of the server's zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

const DateLayout = "2006-01-02"

func NewDate(year int, month time.Month, day int) Date {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// DateOf returns the civil date of t in t's own location.
func DateOf(t time.Time) Date {
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// ParseDate parses YYYY-MM-DD.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q (use YYYY-MM-DD): %w", s, err)
	}
	return DateOf(t), nil
}

// In returns midnight of d in loc.
func (d Date) In(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

func (d Date) utc() time.Time { return d.In(time.UTC) }

// Comparison
func (d Date) Before(o Date) bool        { return d.utc().Before(o.utc()) }
func (d Date) After(o Date) bool         { return d.utc().After(o.utc()) }
func (d Date) Equal(o Date) bool         { return d == o }
func (d Date) BeforeOrEqual(o Date) bool { return !d.After(o) }
func (d Date) AfterOrEqual(o Date) bool  { return !d.Before(o) }

// Arithmetic
func (d Date) AddDays(n int) Date   { return DateOf(d.utc().AddDate(0, 0, n)) }
func (d Date) AddMonths(n int) Date { return DateOf(d.utc().AddDate(0, n, 0)) }

// Properties
func (d Date) Weekday() time.Weekday { return d.utc().Weekday() }
func (d Date) IsZero() bool          { return d == Date{} }
func (d Date) String() string        { return d.utc().Format(DateLayout) }

// MarshalText and UnmarshalText let Date travel as "YYYY-MM-DD" in JSON.
func (d Date) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func DaysBetween(from, to Date) int { return int(to.utc().Sub(from.utc()).Hours() / 24) }

func StartOfMonth(year int, month time.Month) Date { return NewDate(year, month, 1) }

func EndOfMonth(year int, month time.Month) Date {
	return StartOfMonth(year, month).AddMonths(1).AddDays(-1)
}

// =============================================================================
// DATE RANGE - Inclusive [Start, End] span used by leave and holiday records
// =============================================================================

type DateRange struct {
	Start Date
	End   Date
}

// Validate rejects ranges whose end precedes their start.
func (r DateRange) Validate() error {
	if r.Start.IsZero() || r.End.IsZero() {
		return &ValidationError{Field: "range", Reason: "start and end are required"}
	}
	if r.End.Before(r.Start) {
		return &ValidationError{Field: "range", Reason: "end before start"}
	}
	return nil
}

// Contains returns true if d is within [Start, End].
func (r DateRange) Contains(d Date) bool {
	return d.AfterOrEqual(r.Start) && d.BeforeOrEqual(r.End)
}

// Overlaps returns true if the two ranges share at least one day.
func (r DateRange) Overlaps(o DateRange) bool {
	return r.Start.BeforeOrEqual(o.End) && o.Start.BeforeOrEqual(r.End)
}

// Days returns every day in the range.
func (r DateRange) Days() []Date {
	var days []Date
	for cur := r.Start; cur.BeforeOrEqual(r.End); cur = cur.AddDays(1) {
		days = append(days, cur)
	}
	return days
}

func (r DateRange) String() string {
	return "[" + r.Start.String() + ", " + r.End.String() + "]"
}

// MonthRange returns the whole of a payroll month.
func MonthRange(year int, month time.Month) DateRange {
	return DateRange{Start: StartOfMonth(year, month), End: EndOfMonth(year, month)}
}
