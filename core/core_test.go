package core_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-engine/core"
)

func TestDate_ParseAndFormat(t *testing.T) {
	d, err := core.ParseDate("2025-03-10")
	require.NoError(t, err)
	assert.Equal(t, core.NewDate(2025, time.March, 10), d)
	assert.Equal(t, "2025-03-10", d.String())
	assert.Equal(t, time.Monday, d.Weekday())

	_, err = core.ParseDate("10/03/2025")
	assert.Error(t, err)
}

func TestDate_JSONRoundTrip(t *testing.T) {
	type wrapper struct {
		Date core.Date `json:"date"`
	}
	b, err := json.Marshal(wrapper{Date: core.NewDate(2025, time.December, 31)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"date":"2025-12-31"}`, string(b))

	var w wrapper
	require.NoError(t, json.Unmarshal([]byte(`{"date":"2024-02-29"}`), &w))
	assert.Equal(t, core.NewDate(2024, time.February, 29), w.Date)
}

func TestDate_MonthBoundaries(t *testing.T) {
	assert.Equal(t, core.NewDate(2024, time.February, 29), core.EndOfMonth(2024, time.February))
	assert.Equal(t, core.NewDate(2025, time.February, 28), core.EndOfMonth(2025, time.February))
	assert.Equal(t, 31, len(core.MonthRange(2025, time.December).Days()))
}

func TestDateRange_ContainsAndOverlaps(t *testing.T) {
	r := core.DateRange{Start: core.NewDate(2025, 3, 10), End: core.NewDate(2025, 3, 12)}

	assert.True(t, r.Contains(core.NewDate(2025, 3, 10)))
	assert.True(t, r.Contains(core.NewDate(2025, 3, 12)))
	assert.False(t, r.Contains(core.NewDate(2025, 3, 13)))

	other := core.DateRange{Start: core.NewDate(2025, 3, 12), End: core.NewDate(2025, 3, 20)}
	assert.True(t, r.Overlaps(other))
	assert.Len(t, r.Days(), 3)

	bad := core.DateRange{Start: core.NewDate(2025, 3, 12), End: core.NewDate(2025, 3, 10)}
	assert.ErrorIs(t, bad.Validate(), core.ErrValidation)
}

func TestMoney_ClampAndRound(t *testing.T) {
	assert.True(t, core.NewMoney(-5).ClampZero().IsZero())
	assert.True(t, core.MustParseMoney("1034.17").RoundUnits().Equal(core.NewMoney(1034)))
	assert.True(t, core.MustParseMoney("1034.50").RoundUnits().Equal(core.NewMoney(1035)))
}

func TestErrors_Classification(t *testing.T) {
	wrapped := fmt.Errorf("save slip: %w", &core.ConflictError{Key: "emp-1/2025-03", Reason: "exists"})

	assert.True(t, core.IsConflict(wrapped))
	assert.True(t, core.IsRetryable(wrapped))
	assert.False(t, core.IsClientError(wrapped))

	assert.True(t, core.IsClientError(&core.ValidationError{Field: "basic", Reason: "missing"}))
	assert.True(t, core.IsConfiguration(&core.ConfigurationError{Field: "timezone", Reason: "required"}))
	assert.True(t, core.IsNotFound(&core.NotFoundError{Kind: "slip", Key: "x"}))
	assert.False(t, errors.Is(core.ErrNotFound, core.ErrConflict))
}
