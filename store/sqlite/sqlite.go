/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements attendance.Store, payroll.Store and service.EmployeeStore on
  SQLite. The engine computes; this package only persists what the service
  layer hands it.

INTERFACES IMPLEMENTED:
  attendance.Store:      Events, leave and holiday records
  payroll.Store:         Salary structures and slips
  service.EmployeeStore: Employee directory

UNIQUENESS ENFORCEMENT:
  The two invariants the engine relies on are unique indexes, so they hold
  across processes and not only inside this one:
  - idx_events_employee_date: one attendance event per (employee, date)
  - idx_slips_employee_period: one slip per (employee, year, month)
  A violation is returned as *core.ConflictError.

KEY TABLES:
  employees:         Directory entries
  attendance_events: Per-day check-in/out with resolved status
  leave_records:     Leave ranges with approval state
  holidays:          Organization holidays with approval state
  salary_structures: Current structure per employee (superseded on update)
  salary_slips:      Slip key columns plus the full slip as JSON

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. SQLite is opened in WAL mode so
  readers do not block the single writer.

USAGE:
  store, err := sqlite.New("./data/payroll.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - store/memory: In-memory implementation for tests
  - store/postgres: PostgreSQL implementation
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/attendance"
	"github.com/warp/payroll-engine/core"
	"github.com/warp/payroll-engine/geofence"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/service"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var (
	_ attendance.Store      = (*Store)(nil)
	_ payroll.Store         = (*Store)(nil)
	_ service.EmployeeStore = (*Store)(nil)
)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT,
		department TEXT,
		designation TEXT,
		regime TEXT,
		wfh_eligible BOOLEAN NOT NULL DEFAULT FALSE,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS attendance_events (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		date TEXT NOT NULL,
		check_in TEXT,
		check_out TEXT,
		check_in_location_json TEXT,
		check_out_location_json TEXT,
		wfh BOOLEAN NOT NULL DEFAULT FALSE,
		outside_geofence BOOLEAN NOT NULL DEFAULT FALSE,
		status TEXT,
		worked_hours TEXT NOT NULL DEFAULT '0',
		flags_json TEXT NOT NULL DEFAULT '{}',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- CRITICAL: one attendance event per employee per business day
	CREATE UNIQUE INDEX IF NOT EXISTS idx_events_employee_date
		ON attendance_events(employee_id, date);

	-- Open events (check-in without check-out) for the day closer
	CREATE INDEX IF NOT EXISTS idx_events_open
		ON attendance_events(date) WHERE check_in IS NOT NULL AND check_out IS NULL;

	CREATE TABLE IF NOT EXISTS leave_records (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		state TEXT NOT NULL,
		reason TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_leave_employee_range
		ON leave_records(employee_id, start_date, end_date);

	CREATE TABLE IF NOT EXISTS holidays (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		state TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_holidays_range
		ON holidays(start_date, end_date);

	CREATE TABLE IF NOT EXISTS salary_structures (
		employee_id TEXT PRIMARY KEY,
		earnings_json TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS salary_slips (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		year INTEGER NOT NULL,
		month INTEGER NOT NULL,
		status TEXT NOT NULL,
		slip_json TEXT NOT NULL,
		generated_at TEXT NOT NULL
	);

	-- CRITICAL: one slip per employee per payroll month
	CREATE UNIQUE INDEX IF NOT EXISTS idx_slips_employee_period
		ON salary_slips(employee_id, year, month);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// ATTENDANCE EVENTS (attendance.Store)
// =============================================================================

const eventColumns = `id, employee_id, date, check_in, check_out, check_in_location_json,
	check_out_location_json, wfh, outside_geofence, status, worked_hours, flags_json, created_at, updated_at`

// CreateEvent inserts e. The unique index turns a second insert for the same
// day into a *core.ConflictError.
func (s *Store) CreateEvent(ctx context.Context, e attendance.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	args, err := eventArgs(e)
	if err != nil {
		return err
	}
	query := `INSERT INTO attendance_events (` + eventColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		if isUniqueConstraintError(err) {
			return &core.ConflictError{Key: e.Key(), Reason: "attendance already recorded for this day"}
		}
		return fmt.Errorf("failed to create attendance event: %w", err)
	}
	return nil
}

// UpdateEvent rewrites the mutable columns of an existing event.
func (s *Store) UpdateEvent(ctx context.Context, e attendance.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	args, err := eventArgs(e)
	if err != nil {
		return err
	}
	query := `
		UPDATE attendance_events SET
			check_in = ?, check_out = ?, check_in_location_json = ?, check_out_location_json = ?,
			wfh = ?, outside_geofence = ?, status = ?, worked_hours = ?, flags_json = ?, updated_at = ?
		WHERE employee_id = ? AND date = ?
	`
	// args: id, employee, date, then the mutable columns, created_at, updated_at
	res, err := s.db.ExecContext(ctx, query,
		args[3], args[4], args[5], args[6], args[7], args[8], args[9], args[10], args[11], args[13],
		args[1], args[2],
	)
	if err != nil {
		return fmt.Errorf("failed to update attendance event: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &core.NotFoundError{Kind: "attendance event", Key: e.Key()}
	}
	return nil
}

func (s *Store) GetEvent(ctx context.Context, employee core.EmployeeID, date core.Date) (attendance.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events, err := s.queryEvents(ctx,
		`SELECT `+eventColumns+` FROM attendance_events WHERE employee_id = ? AND date = ?`,
		string(employee), date.String())
	if err != nil {
		return attendance.Event{}, err
	}
	if len(events) == 0 {
		return attendance.Event{}, &core.NotFoundError{Kind: "attendance event", Key: attendance.EventKey(employee, date)}
	}
	return events[0], nil
}

func (s *Store) ListEvents(ctx context.Context, employee core.EmployeeID, r core.DateRange) ([]attendance.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryEvents(ctx,
		`SELECT `+eventColumns+` FROM attendance_events
		 WHERE employee_id = ? AND date BETWEEN ? AND ? ORDER BY date ASC`,
		string(employee), r.Start.String(), r.End.String())
}

func (s *Store) ListOpenEvents(ctx context.Context, before core.Date) ([]attendance.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryEvents(ctx,
		`SELECT `+eventColumns+` FROM attendance_events
		 WHERE check_in IS NOT NULL AND check_out IS NULL AND date < ?
		 ORDER BY date ASC, employee_id ASC`,
		before.String())
}

func (s *Store) queryEvents(ctx context.Context, query string, args ...any) ([]attendance.Event, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query attendance events: %w", err)
	}
	defer rows.Close()

	var events []attendance.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func eventArgs(e attendance.Event) ([]any, error) {
	inLoc, err := locationJSON(e.CheckInLocation)
	if err != nil {
		return nil, err
	}
	outLoc, err := locationJSON(e.CheckOutLocation)
	if err != nil {
		return nil, err
	}
	flags, err := json.Marshal(e.Flags)
	if err != nil {
		return nil, fmt.Errorf("failed to encode flags: %w", err)
	}
	return []any{
		e.ID,
		string(e.EmployeeID),
		e.Date.String(),
		nullTime(e.CheckIn),
		nullTime(e.CheckOut),
		inLoc,
		outLoc,
		e.WFH,
		e.OutsideGeofence,
		nullString(string(e.Status)),
		e.WorkedHours.String(),
		string(flags),
		formatTime(e.CreatedAt),
		formatTime(e.UpdatedAt),
	}, nil
}

func scanEvent(rows *sql.Rows) (attendance.Event, error) {
	var e attendance.Event
	var employee, date, worked, flags, createdAt, updatedAt string
	var checkIn, checkOut, inLoc, outLoc, status sql.NullString

	if err := rows.Scan(&e.ID, &employee, &date, &checkIn, &checkOut, &inLoc, &outLoc,
		&e.WFH, &e.OutsideGeofence, &status, &worked, &flags, &createdAt, &updatedAt); err != nil {
		return e, fmt.Errorf("failed to scan attendance event: %w", err)
	}

	var err error
	e.EmployeeID = core.EmployeeID(employee)
	if e.Date, err = core.ParseDate(date); err != nil {
		return e, err
	}
	e.CheckIn = parseNullTime(checkIn)
	e.CheckOut = parseNullTime(checkOut)
	if e.CheckInLocation, err = parseLocation(inLoc); err != nil {
		return e, err
	}
	if e.CheckOutLocation, err = parseLocation(outLoc); err != nil {
		return e, err
	}
	e.Status = attendance.Status(status.String)
	if e.WorkedHours, err = decimal.NewFromString(worked); err != nil {
		return e, fmt.Errorf("invalid worked_hours %q: %w", worked, err)
	}
	if err := json.Unmarshal([]byte(flags), &e.Flags); err != nil {
		return e, fmt.Errorf("invalid flags_json: %w", err)
	}
	e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	e.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return e, nil
}

// =============================================================================
// LEAVE AND HOLIDAYS (attendance.Store)
// =============================================================================

func (s *Store) PutLeave(ctx context.Context, r attendance.LeaveRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO leave_records (id, employee_id, start_date, end_date, state, reason)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			employee_id = excluded.employee_id,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			state = excluded.state,
			reason = excluded.reason
	`
	_, err := s.db.ExecContext(ctx, query,
		r.ID, string(r.EmployeeID), r.Range.Start.String(), r.Range.End.String(), string(r.State), nullString(r.Reason))
	if err != nil {
		return fmt.Errorf("failed to save leave record: %w", err)
	}
	return nil
}

// ListLeaves returns the employee's records that overlap r.
func (s *Store) ListLeaves(ctx context.Context, employee core.EmployeeID, r core.DateRange) ([]attendance.LeaveRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, employee_id, start_date, end_date, state, reason FROM leave_records
		WHERE employee_id = ? AND start_date <= ? AND end_date >= ?
		ORDER BY start_date ASC`,
		string(employee), r.End.String(), r.Start.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query leave records: %w", err)
	}
	defer rows.Close()

	var out []attendance.LeaveRecord
	for rows.Next() {
		var l attendance.LeaveRecord
		var emp, start, end, state string
		var reason sql.NullString
		if err := rows.Scan(&l.ID, &emp, &start, &end, &state, &reason); err != nil {
			return nil, err
		}
		l.EmployeeID = core.EmployeeID(emp)
		if l.Range, err = parseRange(start, end); err != nil {
			return nil, err
		}
		l.State = attendance.ApprovalState(state)
		l.Reason = reason.String
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *Store) PutHoliday(ctx context.Context, h attendance.HolidayRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO holidays (id, name, start_date, end_date, state)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			state = excluded.state
	`
	_, err := s.db.ExecContext(ctx, query,
		h.ID, h.Name, h.Range.Start.String(), h.Range.End.String(), string(h.State))
	if err != nil {
		return fmt.Errorf("failed to save holiday: %w", err)
	}
	return nil
}

func (s *Store) ListHolidays(ctx context.Context, r core.DateRange) ([]attendance.HolidayRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, start_date, end_date, state FROM holidays
		WHERE start_date <= ? AND end_date >= ?
		ORDER BY start_date ASC`,
		r.End.String(), r.Start.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query holidays: %w", err)
	}
	defer rows.Close()

	var out []attendance.HolidayRecord
	for rows.Next() {
		var h attendance.HolidayRecord
		var start, end, state string
		if err := rows.Scan(&h.ID, &h.Name, &start, &end, &state); err != nil {
			return nil, err
		}
		if h.Range, err = parseRange(start, end); err != nil {
			return nil, err
		}
		h.State = attendance.ApprovalState(state)
		out = append(out, h)
	}
	return out, rows.Err()
}

// =============================================================================
// SALARY STRUCTURES AND SLIPS (payroll.Store)
// =============================================================================

// PutStructure replaces the employee's structure.
func (s *Store) PutStructure(ctx context.Context, st payroll.SalaryStructure) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	earnings, err := json.Marshal(st.Earnings)
	if err != nil {
		return fmt.Errorf("failed to encode earnings: %w", err)
	}
	query := `
		INSERT INTO salary_structures (employee_id, earnings_json, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(employee_id) DO UPDATE SET
			earnings_json = excluded.earnings_json,
			updated_at = excluded.updated_at
	`
	if _, err := s.db.ExecContext(ctx, query, string(st.EmployeeID), string(earnings), formatTime(st.UpdatedAt)); err != nil {
		return fmt.Errorf("failed to save salary structure: %w", err)
	}
	return nil
}

func (s *Store) GetStructure(ctx context.Context, employee core.EmployeeID) (payroll.SalaryStructure, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var earnings, updatedAt string
	err := s.db.QueryRowContext(ctx,
		"SELECT earnings_json, updated_at FROM salary_structures WHERE employee_id = ?",
		string(employee),
	).Scan(&earnings, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return payroll.SalaryStructure{}, &core.NotFoundError{Kind: "salary structure", Key: string(employee)}
	}
	if err != nil {
		return payroll.SalaryStructure{}, fmt.Errorf("failed to get salary structure: %w", err)
	}

	st := payroll.SalaryStructure{EmployeeID: employee}
	if err := json.Unmarshal([]byte(earnings), &st.Earnings); err != nil {
		return payroll.SalaryStructure{}, fmt.Errorf("invalid earnings_json: %w", err)
	}
	st.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return st, nil
}

// CreateSlip inserts slip; a second slip for the same employee-month is a
// *core.ConflictError.
func (s *Store) CreateSlip(ctx context.Context, slip payroll.SalarySlip) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	body, err := json.Marshal(slip)
	if err != nil {
		return fmt.Errorf("failed to encode slip: %w", err)
	}
	query := `
		INSERT INTO salary_slips (id, employee_id, year, month, status, slip_json, generated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, query,
		slip.ID, string(slip.EmployeeID), slip.Year, int(slip.Month), string(slip.Status), string(body), formatTime(slip.GeneratedAt))
	if err != nil {
		if isUniqueConstraintError(err) {
			return &core.ConflictError{Key: slip.Key(), Reason: "salary slip already exists"}
		}
		return fmt.Errorf("failed to create salary slip: %w", err)
	}
	return nil
}

func (s *Store) UpdateSlip(ctx context.Context, slip payroll.SalarySlip) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	body, err := json.Marshal(slip)
	if err != nil {
		return fmt.Errorf("failed to encode slip: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE salary_slips SET status = ?, slip_json = ?, generated_at = ?
		WHERE employee_id = ? AND year = ? AND month = ?`,
		string(slip.Status), string(body), formatTime(slip.GeneratedAt),
		string(slip.EmployeeID), slip.Year, int(slip.Month))
	if err != nil {
		return fmt.Errorf("failed to update salary slip: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &core.NotFoundError{Kind: "salary slip", Key: slip.Key()}
	}
	return nil
}

func (s *Store) GetSlip(ctx context.Context, employee core.EmployeeID, year int, month time.Month) (payroll.SalarySlip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var body string
	err := s.db.QueryRowContext(ctx,
		"SELECT slip_json FROM salary_slips WHERE employee_id = ? AND year = ? AND month = ?",
		string(employee), year, int(month),
	).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return payroll.SalarySlip{}, &core.NotFoundError{Kind: "salary slip", Key: payroll.SlipKey(employee, year, month)}
	}
	if err != nil {
		return payroll.SalarySlip{}, fmt.Errorf("failed to get salary slip: %w", err)
	}

	var slip payroll.SalarySlip
	if err := json.Unmarshal([]byte(body), &slip); err != nil {
		return payroll.SalarySlip{}, fmt.Errorf("invalid slip_json: %w", err)
	}
	return slip, nil
}

// ListSlips returns the employee's slips, newest period first.
func (s *Store) ListSlips(ctx context.Context, employee core.EmployeeID) ([]payroll.SalarySlip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT slip_json FROM salary_slips WHERE employee_id = ? ORDER BY year DESC, month DESC",
		string(employee))
	if err != nil {
		return nil, fmt.Errorf("failed to query salary slips: %w", err)
	}
	defer rows.Close()

	var out []payroll.SalarySlip
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		var slip payroll.SalarySlip
		if err := json.Unmarshal([]byte(body), &slip); err != nil {
			return nil, fmt.Errorf("invalid slip_json: %w", err)
		}
		out = append(out, slip)
	}
	return out, rows.Err()
}

// =============================================================================
// EMPLOYEES (service.EmployeeStore)
// =============================================================================

// PutEmployee creates or updates an employee.
func (s *Store) PutEmployee(ctx context.Context, e service.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO employees (id, name, email, department, designation, regime, wfh_eligible, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			department = excluded.department,
			designation = excluded.designation,
			regime = excluded.regime,
			wfh_eligible = excluded.wfh_eligible,
			active = excluded.active
	`
	_, err := s.db.ExecContext(ctx, query,
		string(e.ID), e.Name, nullString(e.Email), nullString(e.Department), nullString(e.Designation),
		nullString(string(e.Regime)), e.WFHEligible, e.Active, formatTime(e.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to save employee: %w", err)
	}
	return nil
}

const employeeColumns = "id, name, email, department, designation, regime, wfh_eligible, active, created_at"

func (s *Store) GetEmployee(ctx context.Context, id core.EmployeeID) (service.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	employees, err := s.queryEmployees(ctx, "SELECT "+employeeColumns+" FROM employees WHERE id = ?", string(id))
	if err != nil {
		return service.Employee{}, err
	}
	if len(employees) == 0 {
		return service.Employee{}, &core.NotFoundError{Kind: "employee", Key: string(id)}
	}
	return employees[0], nil
}

func (s *Store) ListEmployees(ctx context.Context) ([]service.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryEmployees(ctx, "SELECT "+employeeColumns+" FROM employees ORDER BY id ASC")
}

func (s *Store) queryEmployees(ctx context.Context, query string, args ...any) ([]service.Employee, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query employees: %w", err)
	}
	defer rows.Close()

	var out []service.Employee
	for rows.Next() {
		var e service.Employee
		var id, createdAt string
		var email, department, designation, regime sql.NullString
		if err := rows.Scan(&id, &e.Name, &email, &department, &designation, &regime,
			&e.WFHEligible, &e.Active, &createdAt); err != nil {
			return nil, err
		}
		e.ID = core.EmployeeID(id)
		e.Email = email.String
		e.Department = department.String
		e.Designation = designation.String
		e.Regime = payroll.Regime(regime.String)
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseNullTime(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, s.String)
	if err != nil {
		return nil
	}
	return &t
}

func locationJSON(p *geofence.Point) (sql.NullString, error) {
	if p == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to encode location: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func parseLocation(s sql.NullString) (*geofence.Point, error) {
	if !s.Valid {
		return nil, nil
	}
	var p geofence.Point
	if err := json.Unmarshal([]byte(s.String), &p); err != nil {
		return nil, fmt.Errorf("invalid location json: %w", err)
	}
	return &p, nil
}

func parseRange(start, end string) (core.DateRange, error) {
	s, err := core.ParseDate(start)
	if err != nil {
		return core.DateRange{}, err
	}
	e, err := core.ParseDate(end)
	if err != nil {
		return core.DateRange{}, err
	}
	return core.DateRange{Start: s, End: e}, nil
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
