// Package memory provides an in-memory store for tests and local runs.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/warp/payroll-engine/attendance"
	"github.com/warp/payroll-engine/core"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/service"
)

// =============================================================================
// MEMORY STORE - implements attendance.Store, payroll.Store, service.EmployeeStore
// =============================================================================

type Store struct {
	mu         sync.RWMutex
	events     map[string]attendance.Event // by (employee, date)
	leaves     map[string]attendance.LeaveRecord
	holidays   map[string]attendance.HolidayRecord
	structures map[core.EmployeeID]payroll.SalaryStructure
	slips      map[string]payroll.SalarySlip // by (employee, year, month)
	employees  map[core.EmployeeID]service.Employee
}

var (
	_ attendance.Store      = (*Store)(nil)
	_ payroll.Store         = (*Store)(nil)
	_ service.EmployeeStore = (*Store)(nil)
)

func New() *Store {
	return &Store{
		events:     make(map[string]attendance.Event),
		leaves:     make(map[string]attendance.LeaveRecord),
		holidays:   make(map[string]attendance.HolidayRecord),
		structures: make(map[core.EmployeeID]payroll.SalaryStructure),
		slips:      make(map[string]payroll.SalarySlip),
		employees:  make(map[core.EmployeeID]service.Employee),
	}
}

// =============================================================================
// ATTENDANCE
// =============================================================================

// CreateEvent inserts e unless an event for the same (employee, date) exists.
func (s *Store) CreateEvent(_ context.Context, e attendance.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := e.Key()
	if _, ok := s.events[k]; ok {
		return &core.ConflictError{Key: k, Reason: "attendance already recorded for this day"}
	}
	s.events[k] = cloneEvent(e)
	return nil
}

func (s *Store) UpdateEvent(_ context.Context, e attendance.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := e.Key()
	if _, ok := s.events[k]; !ok {
		return &core.NotFoundError{Kind: "attendance event", Key: k}
	}
	s.events[k] = cloneEvent(e)
	return nil
}

func (s *Store) GetEvent(_ context.Context, employee core.EmployeeID, date core.Date) (attendance.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	k := attendance.EventKey(employee, date)
	e, ok := s.events[k]
	if !ok {
		return attendance.Event{}, &core.NotFoundError{Kind: "attendance event", Key: k}
	}
	return cloneEvent(e), nil
}

func (s *Store) ListEvents(_ context.Context, employee core.EmployeeID, r core.DateRange) ([]attendance.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []attendance.Event
	for _, e := range s.events {
		if e.EmployeeID == employee && r.Contains(e.Date) {
			out = append(out, cloneEvent(e))
		}
	}
	sortEvents(out)
	return out, nil
}

func (s *Store) ListOpenEvents(_ context.Context, before core.Date) ([]attendance.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []attendance.Event
	for _, e := range s.events {
		if e.Open() && e.Date.Before(before) {
			out = append(out, cloneEvent(e))
		}
	}
	sortEvents(out)
	return out, nil
}

func (s *Store) PutLeave(_ context.Context, r attendance.LeaveRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leaves[r.ID] = r
	return nil
}

func (s *Store) ListLeaves(_ context.Context, employee core.EmployeeID, r core.DateRange) ([]attendance.LeaveRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []attendance.LeaveRecord
	for _, l := range s.leaves {
		if l.EmployeeID == employee && l.Range.Overlaps(r) {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Range.Start.Before(out[j].Range.Start) })
	return out, nil
}

func (s *Store) PutHoliday(_ context.Context, h attendance.HolidayRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.holidays[h.ID] = h
	return nil
}

func (s *Store) ListHolidays(_ context.Context, r core.DateRange) ([]attendance.HolidayRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []attendance.HolidayRecord
	for _, h := range s.holidays {
		if h.Range.Overlaps(r) {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Range.Start.Before(out[j].Range.Start) })
	return out, nil
}

// =============================================================================
// PAYROLL
// =============================================================================

func (s *Store) PutStructure(_ context.Context, st payroll.SalaryStructure) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	earnings := make(map[string]core.Money, len(st.Earnings))
	for k, v := range st.Earnings {
		earnings[k] = v
	}
	st.Earnings = earnings
	s.structures[st.EmployeeID] = st
	return nil
}

func (s *Store) GetStructure(_ context.Context, employee core.EmployeeID) (payroll.SalaryStructure, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.structures[employee]
	if !ok {
		return payroll.SalaryStructure{}, &core.NotFoundError{Kind: "salary structure", Key: string(employee)}
	}
	return st, nil
}

func (s *Store) CreateSlip(_ context.Context, slip payroll.SalarySlip) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := slip.Key()
	if _, ok := s.slips[k]; ok {
		return &core.ConflictError{Key: k, Reason: "salary slip already exists"}
	}
	s.slips[k] = cloneSlip(slip)
	return nil
}

func (s *Store) UpdateSlip(_ context.Context, slip payroll.SalarySlip) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := slip.Key()
	if _, ok := s.slips[k]; !ok {
		return &core.NotFoundError{Kind: "salary slip", Key: k}
	}
	s.slips[k] = cloneSlip(slip)
	return nil
}

func (s *Store) GetSlip(_ context.Context, employee core.EmployeeID, year int, month time.Month) (payroll.SalarySlip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	k := payroll.SlipKey(employee, year, month)
	slip, ok := s.slips[k]
	if !ok {
		return payroll.SalarySlip{}, &core.NotFoundError{Kind: "salary slip", Key: k}
	}
	return cloneSlip(slip), nil
}

// ListSlips returns the employee's slips, newest period first.
func (s *Store) ListSlips(_ context.Context, employee core.EmployeeID) ([]payroll.SalarySlip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []payroll.SalarySlip
	for _, slip := range s.slips {
		if slip.EmployeeID == employee {
			out = append(out, cloneSlip(slip))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year > out[j].Year
		}
		return out[i].Month > out[j].Month
	})
	return out, nil
}

// =============================================================================
// EMPLOYEES
// =============================================================================

func (s *Store) PutEmployee(_ context.Context, e service.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.employees[e.ID] = e
	return nil
}

func (s *Store) GetEmployee(_ context.Context, id core.EmployeeID) (service.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.employees[id]
	if !ok {
		return service.Employee{}, &core.NotFoundError{Kind: "employee", Key: string(id)}
	}
	return e, nil
}

func (s *Store) ListEmployees(_ context.Context) ([]service.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]service.Employee, 0, len(s.employees))
	for _, e := range s.employees {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func sortEvents(events []attendance.Event) {
	sort.Slice(events, func(i, j int) bool {
		if events[i].Date != events[j].Date {
			return events[i].Date.Before(events[j].Date)
		}
		return events[i].EmployeeID < events[j].EmployeeID
	})
}

func cloneEvent(e attendance.Event) attendance.Event {
	if e.CheckIn != nil {
		t := *e.CheckIn
		e.CheckIn = &t
	}
	if e.CheckOut != nil {
		t := *e.CheckOut
		e.CheckOut = &t
	}
	if e.CheckInLocation != nil {
		p := *e.CheckInLocation
		e.CheckInLocation = &p
	}
	if e.CheckOutLocation != nil {
		p := *e.CheckOutLocation
		e.CheckOutLocation = &p
	}
	return e
}

func cloneSlip(s payroll.SalarySlip) payroll.SalarySlip {
	s.Earnings = append([]payroll.Component(nil), s.Earnings...)
	s.Deductions = append([]payroll.Deduction(nil), s.Deductions...)
	s.Tax.Slabs = append([]payroll.SlabTax(nil), s.Tax.Slabs...)
	if s.FinalizedAt != nil {
		t := *s.FinalizedAt
		s.FinalizedAt = &t
	}
	return s
}
