// Package storetest holds the behavior every store implementation must share.
// Each backend's tests call Run with a constructor for a fresh, empty store.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-engine/attendance"
	"github.com/warp/payroll-engine/core"
	"github.com/warp/payroll-engine/geofence"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/service"
)

// Store is the union of the storage interfaces.
type Store interface {
	attendance.Store
	payroll.Store
	service.EmployeeStore
}

// Run executes the shared store tests. newStore must return an empty store.
func Run(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("EventCreateGetUpdate", func(t *testing.T) { testEventLifecycle(t, newStore(t)) })
	t.Run("EventUniquePerDay", func(t *testing.T) { testEventUnique(t, newStore(t)) })
	t.Run("ConcurrentCheckInsCreateOneEvent", func(t *testing.T) { testConcurrentCreate(t, newStore(t)) })
	t.Run("ListEventsAndOpenEvents", func(t *testing.T) { testListEvents(t, newStore(t)) })
	t.Run("LeavesAndHolidays", func(t *testing.T) { testRecords(t, newStore(t)) })
	t.Run("StructureReplaced", func(t *testing.T) { testStructure(t, newStore(t)) })
	t.Run("SlipUniquePerMonth", func(t *testing.T) { testSlips(t, newStore(t)) })
	t.Run("Employees", func(t *testing.T) { testEmployees(t, newStore(t)) })
}

var (
	march3  = core.NewDate(2025, time.March, 3)
	march4  = core.NewDate(2025, time.March, 4)
	checkIn = time.Date(2025, time.March, 3, 4, 0, 0, 0, time.UTC) // 09:30 IST
)

func event(emp core.EmployeeID, date core.Date) attendance.Event {
	in := checkIn.AddDate(0, 0, core.DaysBetween(march3, date))
	return attendance.Event{
		ID:              fmt.Sprintf("evt-%s-%s", emp, date),
		EmployeeID:      emp,
		Date:            date,
		CheckIn:         &in,
		CheckInLocation: &geofence.Point{Latitude: 12.9716, Longitude: 77.5946},
		WorkedHours:     decimal.Zero,
		CreatedAt:       in,
		UpdatedAt:       in,
	}
}

func testEventLifecycle(t *testing.T, s Store) {
	ctx := context.Background()

	// GIVEN: A stored check-in punched outside the geofence
	e := event("EMP001", march3)
	e.OutsideGeofence = true
	require.NoError(t, s.CreateEvent(ctx, e))

	got, err := s.GetEvent(ctx, "EMP001", march3)
	require.NoError(t, err)
	assert.Equal(t, e.ID, got.ID)
	assert.True(t, got.Open())
	require.NotNil(t, got.CheckInLocation)
	assert.InDelta(t, 12.9716, got.CheckInLocation.Latitude, 1e-9)

	// WHEN: The check-out is recorded and the day resolved
	out := checkIn.Add(9 * time.Hour)
	got.CheckOut = &out
	got.Status = attendance.StatusPresent
	got.WorkedHours = decimal.NewFromInt(9)
	got.Flags.LeftEarly = true
	got.UpdatedAt = out
	require.NoError(t, s.UpdateEvent(ctx, got))

	// THEN: The stored event carries the resolution
	again, err := s.GetEvent(ctx, "EMP001", march3)
	require.NoError(t, err)
	assert.False(t, again.Open())
	assert.True(t, again.CheckOut.Equal(out))
	assert.Equal(t, attendance.StatusPresent, again.Status)
	assert.True(t, again.WorkedHours.Equal(decimal.NewFromInt(9)))
	assert.True(t, again.Flags.LeftEarly)
	assert.True(t, again.OutsideGeofence)

	_, err = s.GetEvent(ctx, "EMP001", march4)
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.ErrorIs(t, s.UpdateEvent(ctx, event("EMP001", march4)), core.ErrNotFound)
}

func testEventUnique(t *testing.T, s Store) {
	ctx := context.Background()
	require.NoError(t, s.CreateEvent(ctx, event("EMP001", march3)))

	dup := event("EMP001", march3)
	dup.ID = "evt-other"
	err := s.CreateEvent(ctx, dup)

	var conflict *core.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "EMP001/2025-03-03", conflict.Key)

	// Another employee on the same day is a different key.
	assert.NoError(t, s.CreateEvent(ctx, event("EMP002", march3)))
}

func testConcurrentCreate(t *testing.T, s Store) {
	// GIVEN: Many simultaneous check-ins for one employee-day
	// WHEN: They race to create the event
	// THEN: Exactly one wins and every other gets a conflict
	ctx := context.Background()
	const n = 16

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			e := event("EMP001", march3)
			e.ID = fmt.Sprintf("evt-%d", i)
			errs[i] = s.CreateEvent(ctx, e)
		}(i)
	}
	wg.Wait()

	created := 0
	for _, err := range errs {
		if err == nil {
			created++
			continue
		}
		assert.True(t, errors.Is(err, core.ErrConflict), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, created)
}

func testListEvents(t *testing.T, s Store) {
	ctx := context.Background()
	closed := event("EMP001", march3)
	out := checkIn.Add(8 * time.Hour)
	closed.CheckOut = &out
	require.NoError(t, s.CreateEvent(ctx, closed))
	require.NoError(t, s.CreateEvent(ctx, event("EMP001", march4)))
	require.NoError(t, s.CreateEvent(ctx, event("EMP002", march3)))

	events, err := s.ListEvents(ctx, "EMP001", core.MonthRange(2025, time.March))
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, march3, events[0].Date)
	assert.Equal(t, march4, events[1].Date)

	open, err := s.ListOpenEvents(ctx, march4.AddDays(1))
	require.NoError(t, err)
	require.Len(t, open, 2)
	assert.Equal(t, core.EmployeeID("EMP002"), open[0].EmployeeID)
	assert.Equal(t, march4, open[1].Date)

	open, err = s.ListOpenEvents(ctx, march4)
	require.NoError(t, err)
	assert.Len(t, open, 1, "before is exclusive")
}

func testRecords(t *testing.T, s Store) {
	ctx := context.Background()
	leave := attendance.LeaveRecord{
		ID:         "lv-1",
		EmployeeID: "EMP001",
		Range:      core.DateRange{Start: march3, End: march4},
		State:      attendance.ApprovalPending,
	}
	require.NoError(t, s.PutLeave(ctx, leave))
	leave.State = attendance.ApprovalApproved
	require.NoError(t, s.PutLeave(ctx, leave))
	require.NoError(t, s.PutLeave(ctx, attendance.LeaveRecord{
		ID:         "lv-2",
		EmployeeID: "EMP001",
		Range:      core.DateRange{Start: core.NewDate(2025, time.April, 7), End: core.NewDate(2025, time.April, 7)},
		State:      attendance.ApprovalApproved,
	}))

	leaves, err := s.ListLeaves(ctx, "EMP001", core.DateRange{Start: march4, End: core.NewDate(2025, time.March, 31)})
	require.NoError(t, err)
	require.Len(t, leaves, 1, "overlapping records only")
	assert.Equal(t, attendance.ApprovalApproved, leaves[0].State, "put replaces by id")

	require.NoError(t, s.PutHoliday(ctx, attendance.HolidayRecord{
		ID:    "hol-1",
		Name:  "Holi",
		Range: core.DateRange{Start: core.NewDate(2025, time.March, 14), End: core.NewDate(2025, time.March, 14)},
		State: attendance.ApprovalApproved,
	}))
	holidays, err := s.ListHolidays(ctx, core.MonthRange(2025, time.March))
	require.NoError(t, err)
	require.Len(t, holidays, 1)
	assert.Equal(t, "Holi", holidays[0].Name)

	holidays, err = s.ListHolidays(ctx, core.MonthRange(2025, time.April))
	require.NoError(t, err)
	assert.Empty(t, holidays)
}

func testStructure(t *testing.T, s Store) {
	ctx := context.Background()
	_, err := s.GetStructure(ctx, "EMP001")
	assert.ErrorIs(t, err, core.ErrNotFound)

	require.NoError(t, s.PutStructure(ctx, payroll.SalaryStructure{
		EmployeeID: "EMP001",
		Earnings:   map[string]core.Money{"basic": core.NewMoney(30000)},
	}))
	require.NoError(t, s.PutStructure(ctx, payroll.SalaryStructure{
		EmployeeID: "EMP001",
		Earnings:   map[string]core.Money{"basic": core.NewMoney(32000), "hra": core.MustParseMoney("12000.50")},
	}))

	got, err := s.GetStructure(ctx, "EMP001")
	require.NoError(t, err)
	assert.Len(t, got.Earnings, 2)
	assert.True(t, got.Earnings["hra"].Equal(core.MustParseMoney("12000.50")))
}

func slipFor(t *testing.T, emp core.EmployeeID, month time.Month) payroll.SalarySlip {
	slip, err := payroll.Compose(payroll.ComposeInput{
		ID: fmt.Sprintf("slip-%s-%d", emp, month),
		Structure: payroll.SalaryStructure{
			EmployeeID: emp,
			Earnings: map[string]core.Money{
				"basic":            core.NewMoney(30000),
				"hra":              core.NewMoney(12000),
				"specialAllowance": core.NewMoney(7850),
			},
		},
		Regime: payroll.NewRegime(),
		Year:   2025,
		Month:  month,
		At:     time.Date(2025, month, 28, 10, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return slip
}

func testSlips(t *testing.T, s Store) {
	ctx := context.Background()
	march := slipFor(t, "EMP001", time.March)
	require.NoError(t, s.CreateSlip(ctx, march))
	require.NoError(t, s.CreateSlip(ctx, slipFor(t, "EMP001", time.February)))

	// A second slip for the same month conflicts.
	dup := slipFor(t, "EMP001", time.March)
	dup.ID = "slip-other"
	assert.ErrorIs(t, s.CreateSlip(ctx, dup), core.ErrConflict)

	got, err := s.GetSlip(ctx, "EMP001", 2025, time.March)
	require.NoError(t, err)
	assert.Equal(t, march.ID, got.ID)
	assert.True(t, got.Net.Equal(march.Net))
	assert.Equal(t, march.NetInWords, got.NetInWords)
	assert.Len(t, got.Tax.Slabs, len(march.Tax.Slabs))

	finalizedAt := time.Date(2025, time.March, 31, 12, 0, 0, 0, time.UTC)
	got.Status = payroll.SlipFinalized
	got.FinalizedAt = &finalizedAt
	require.NoError(t, s.UpdateSlip(ctx, got))

	slips, err := s.ListSlips(ctx, "EMP001")
	require.NoError(t, err)
	require.Len(t, slips, 2)
	assert.Equal(t, time.March, slips[0].Month, "newest first")
	assert.Equal(t, payroll.SlipFinalized, slips[0].Status)
	require.NotNil(t, slips[0].FinalizedAt)
	assert.True(t, slips[0].FinalizedAt.Equal(finalizedAt))

	_, err = s.GetSlip(ctx, "EMP001", 2025, time.April)
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.ErrorIs(t, s.UpdateSlip(ctx, slipFor(t, "EMP002", time.March)), core.ErrNotFound)
}

func testEmployees(t *testing.T, s Store) {
	ctx := context.Background()
	created := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.PutEmployee(ctx, service.Employee{ID: "EMP002", Name: "Ravi", Active: true, CreatedAt: created}))
	require.NoError(t, s.PutEmployee(ctx, service.Employee{
		ID: "EMP001", Name: "Asha", Department: "support", Regime: payroll.RegimeOld, WFHEligible: true, Active: true, CreatedAt: created,
	}))

	got, err := s.GetEmployee(ctx, "EMP001")
	require.NoError(t, err)
	assert.Equal(t, "support", got.Department)
	assert.Equal(t, payroll.RegimeOld, got.Regime)
	assert.True(t, got.WFHEligible)

	all, err := s.ListEmployees(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, core.EmployeeID("EMP001"), all[0].ID)

	_, err = s.GetEmployee(ctx, "EMP404")
	assert.ErrorIs(t, err, core.ErrNotFound)
}
