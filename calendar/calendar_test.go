package calendar_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-engine/calendar"
	"github.com/warp/payroll-engine/core"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func istConfig() calendar.Config {
	return calendar.Config{
		Timezone:         "Asia/Kolkata",
		WorkStart:        calendar.MustTime("09:30"),
		WorkEnd:          calendar.MustTime("18:30"),
		LateThreshold:    calendar.MustTime("09:55"),
		HalfDayEnd:       calendar.MustTime("13:30"),
		MinimumWorkHours: decimal.NewFromInt(4),
		FullDayHours:     decimal.NewFromInt(8),
		WorkingDays: []time.Weekday{
			time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday,
		},
		NonWorkingDays:   []time.Weekday{time.Sunday},
		SaturdayWorkType: calendar.SaturdayHalf,
		SaturdayHolidays: []int{2, 4},
	}
}

func mustCalendar(t *testing.T, cfg calendar.Config) *calendar.Calendar {
	t.Helper()
	c, err := calendar.New(cfg)
	require.NoError(t, err)
	return c
}

// =============================================================================
// NORMALIZATION
// =============================================================================

func TestNormalize_ConvertsIntoBusinessTimezone(t *testing.T) {
	// GIVEN: 20:00 UTC on March 10, which is 01:30 IST on March 11
	// WHEN: Normalizing
	// THEN: The business date is March 11, bounded by IST midnights

	cal := mustCalendar(t, istConfig())
	instant := time.Date(2025, time.March, 10, 20, 0, 0, 0, time.UTC)

	day := cal.Normalize(instant)

	assert.Equal(t, core.NewDate(2025, time.March, 11), day.Date)
	assert.Equal(t, time.Tuesday, day.Weekday)
	assert.Equal(t, calendar.DayWorking, day.Type)
	assert.True(t, day.Start.Equal(time.Date(2025, time.March, 10, 18, 30, 0, 0, time.UTC)))
	assert.Equal(t, 24*time.Hour, day.End.Sub(day.Start))
	assert.False(t, instant.Before(day.Start))
	assert.True(t, instant.Before(day.End))
}

func TestNormalize_DSTDayIsShort(t *testing.T) {
	cfg := istConfig()
	cfg.Timezone = "America/New_York"
	cal := mustCalendar(t, cfg)

	day := cal.DayOf(core.NewDate(2025, time.March, 9))

	assert.Equal(t, 23*time.Hour, day.End.Sub(day.Start))
}

func TestNormalize_ExpectedTimesFollowDayType(t *testing.T) {
	cal := mustCalendar(t, istConfig())
	loc := cal.Location()

	weekday := cal.DayOf(core.NewDate(2025, time.March, 11))
	assert.True(t, weekday.ExpectedEnd.Equal(time.Date(2025, 3, 11, 18, 30, 0, 0, loc)))
	assert.True(t, weekday.LateCutoff.Equal(time.Date(2025, 3, 11, 9, 55, 0, 0, loc)))

	// March 1, 2025 is the first Saturday: a half day
	saturday := cal.DayOf(core.NewDate(2025, time.March, 1))
	assert.Equal(t, calendar.DayHalfSaturday, saturday.Type)
	assert.Equal(t, 1, saturday.SaturdayOrdinal)
	assert.True(t, saturday.ExpectedEnd.Equal(time.Date(2025, 3, 1, 13, 30, 0, 0, loc)))
}

// =============================================================================
// CLASSIFICATION
// =============================================================================

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*calendar.Config)
		date   core.Date
		want   calendar.DayType
	}{
		{"weekday working", nil, core.NewDate(2025, 3, 12), calendar.DayWorking},
		{"sunday weekend", nil, core.NewDate(2025, 3, 2), calendar.DayWeekend},
		{"second saturday holiday", nil, core.NewDate(2025, 3, 8), calendar.DayHoliday},
		{"fourth saturday holiday", nil, core.NewDate(2025, 3, 22), calendar.DayHoliday},
		{"first saturday half", nil, core.NewDate(2025, 3, 1), calendar.DayHalfSaturday},
		{"fifth saturday half", nil, core.NewDate(2025, 3, 29), calendar.DayHalfSaturday},
		{
			"saturday off is weekend",
			func(c *calendar.Config) { c.SaturdayWorkType = calendar.SaturdayOff },
			core.NewDate(2025, 3, 1), calendar.DayWeekend,
		},
		{
			"saturday full is working",
			func(c *calendar.Config) { c.SaturdayWorkType = calendar.SaturdayFull },
			core.NewDate(2025, 3, 15), calendar.DayWorking,
		},
		{
			"saturday holiday wins over non-working saturday",
			func(c *calendar.Config) {
				c.WorkingDays = []time.Weekday{1, 2, 3, 4, 5}
				c.NonWorkingDays = []time.Weekday{0, 6}
			},
			core.NewDate(2025, 3, 8), calendar.DayHoliday,
		},
		{
			"non-working saturday is weekend",
			func(c *calendar.Config) {
				c.WorkingDays = []time.Weekday{1, 2, 3, 4, 5}
				c.NonWorkingDays = []time.Weekday{0, 6}
				c.SaturdayWorkType = calendar.SaturdayFull
			},
			core.NewDate(2025, 3, 15), calendar.DayWeekend,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := istConfig()
			if tt.mutate != nil {
				tt.mutate(&cfg)
			}
			cal := mustCalendar(t, cfg)
			assert.Equal(t, tt.want, cal.Classify(tt.date))
		})
	}
}

func TestHours_HalfSaturdayHalvesThresholds(t *testing.T) {
	cal := mustCalendar(t, istConfig())

	full := cal.Hours(calendar.DayWorking)
	half := cal.Hours(calendar.DayHalfSaturday)

	assert.Equal(t, 4*time.Hour, full.Minimum)
	assert.Equal(t, 8*time.Hour, full.Full)
	assert.Equal(t, 2*time.Hour, half.Minimum)
	assert.Equal(t, 4*time.Hour, half.Full)
}

func TestWorkingDaysIn_March2025(t *testing.T) {
	cal := mustCalendar(t, istConfig())

	// 31 days - 5 Sundays - 2 Saturday holidays = 24
	assert.Equal(t, 24, cal.WorkingDaysIn(core.MonthRange(2025, time.March)))
}

// =============================================================================
// CONFIG VALIDATION
// =============================================================================

func TestNew_RejectsIncompleteConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*calendar.Config)
		field  string
	}{
		{"missing timezone", func(c *calendar.Config) { c.Timezone = "" }, "timezone"},
		{"unknown timezone", func(c *calendar.Config) { c.Timezone = "Mars/Olympus" }, "timezone"},
		{"missing late threshold", func(c *calendar.Config) { c.LateThreshold = calendar.TimeOfDay{} }, "late_threshold"},
		{"missing half day end", func(c *calendar.Config) { c.HalfDayEnd = calendar.TimeOfDay{} }, "half_day_end_time"},
		{"end before start", func(c *calendar.Config) { c.WorkEnd = calendar.MustTime("08:00") }, "work_end_time"},
		{"minimum not below full", func(c *calendar.Config) { c.MinimumWorkHours = decimal.NewFromInt(8) }, "minimum_work_hours"},
		{"missing full day hours", func(c *calendar.Config) { c.FullDayHours = decimal.Zero }, "full_day_hours"},
		{"week not partitioned", func(c *calendar.Config) { c.NonWorkingDays = nil }, "working_days"},
		{"weekday in both sets", func(c *calendar.Config) {
			c.NonWorkingDays = []time.Weekday{time.Sunday, time.Monday}
		}, "working_days"},
		{"bad saturday type", func(c *calendar.Config) { c.SaturdayWorkType = "sometimes" }, "saturday_work_type"},
		{"bad saturday ordinal", func(c *calendar.Config) { c.SaturdayHolidays = []int{6} }, "saturday_holidays"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := istConfig()
			tt.mutate(&cfg)

			_, err := calendar.New(cfg)

			require.Error(t, err)
			var cfgErr *core.ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestParseTimeOfDay(t *testing.T) {
	tod, err := calendar.ParseTimeOfDay("09:55")
	require.NoError(t, err)
	assert.Equal(t, 9, tod.Hour())
	assert.Equal(t, 55, tod.Minute())
	assert.Equal(t, "09:55", tod.String())

	for _, bad := range []string{"", "9", "24:00", "09:60", "ab:cd"} {
		_, err := calendar.ParseTimeOfDay(bad)
		assert.Error(t, err, bad)
	}
}

// =============================================================================
// NAMED RANGES
// =============================================================================

func TestRangeFor(t *testing.T) {
	cal := mustCalendar(t, istConfig())
	// Thursday March 13, 2025 10:00 IST
	now := time.Date(2025, time.March, 13, 4, 30, 0, 0, time.UTC)

	tests := []struct {
		name  string
		start core.Date
		end   core.Date
	}{
		{calendar.RangeToday, core.NewDate(2025, 3, 13), core.NewDate(2025, 3, 13)},
		{calendar.RangeYesterday, core.NewDate(2025, 3, 12), core.NewDate(2025, 3, 12)},
		{calendar.RangeWeek, core.NewDate(2025, 3, 10), core.NewDate(2025, 3, 13)},
		{calendar.RangeMonth, core.NewDate(2025, 3, 1), core.NewDate(2025, 3, 13)},
		{calendar.RangeLastMonth, core.NewDate(2025, 2, 1), core.NewDate(2025, 2, 28)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := cal.RangeFor(tt.name, now)
			require.NoError(t, err)
			assert.Equal(t, tt.start, r.Start)
			assert.Equal(t, tt.end, r.End)
		})
	}

	_, err := cal.RangeFor("fortnight", now)
	assert.ErrorIs(t, err, core.ErrValidation)
}
