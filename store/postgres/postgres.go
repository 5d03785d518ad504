/*
Package postgres provides a PostgreSQL-backed implementation of the storage interfaces.

PURPOSE:
  Same contract as store/sqlite, for deployments where several engine
  processes share one database. Uniqueness of the attendance and slip keys
  is enforced by the database, so concurrent writers across processes still
  see exactly one insert succeed.

KEY TABLES:
  Mirrors store/sqlite with native types: DATE for business days,
  TIMESTAMPTZ for instants, NUMERIC for hours, JSONB for nested values.

ERROR MAPPING:
  23505 unique_violation -> *core.ConflictError
  pgx.ErrNoRows          -> *core.NotFoundError

SEE ALSO:
  - store/sqlite: Single-node implementation
  - store/storetest: Shared behavior tests
*/
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/attendance"
	"github.com/warp/payroll-engine/core"
	"github.com/warp/payroll-engine/geofence"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/service"
)

const uniqueViolation = "23505"

// Store implements all storage interfaces on a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

var (
	_ attendance.Store      = (*Store)(nil)
	_ payroll.Store         = (*Store)(nil)
	_ service.EmployeeStore = (*Store)(nil)
)

// Connect opens a pool for databaseURL and applies the schema.
func Connect(ctx context.Context, databaseURL string) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid database url: %w", err)
	}
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConns = 10
	poolCfg.MinConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	s := &Store{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

func (s *Store) Close() { s.pool.Close() }

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *Store) migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schema)
	return err
}

const schema = `
CREATE TABLE IF NOT EXISTS employees (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	email TEXT NOT NULL DEFAULT '',
	department TEXT NOT NULL DEFAULT '',
	designation TEXT NOT NULL DEFAULT '',
	regime TEXT NOT NULL DEFAULT '',
	wfh_eligible BOOLEAN NOT NULL DEFAULT FALSE,
	active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS attendance_events (
	id TEXT PRIMARY KEY,
	employee_id TEXT NOT NULL,
	date DATE NOT NULL,
	check_in TIMESTAMPTZ,
	check_out TIMESTAMPTZ,
	check_in_location JSONB,
	check_out_location JSONB,
	wfh BOOLEAN NOT NULL DEFAULT FALSE,
	outside_geofence BOOLEAN NOT NULL DEFAULT FALSE,
	status TEXT NOT NULL DEFAULT '',
	worked_hours NUMERIC(6,2) NOT NULL DEFAULT 0,
	flags JSONB NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	UNIQUE (employee_id, date)
);

CREATE INDEX IF NOT EXISTS idx_events_open
	ON attendance_events(date) WHERE check_in IS NOT NULL AND check_out IS NULL;

CREATE TABLE IF NOT EXISTS leave_records (
	id TEXT PRIMARY KEY,
	employee_id TEXT NOT NULL,
	start_date DATE NOT NULL,
	end_date DATE NOT NULL,
	state TEXT NOT NULL,
	reason TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_leave_employee_range
	ON leave_records(employee_id, start_date, end_date);

CREATE TABLE IF NOT EXISTS holidays (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	start_date DATE NOT NULL,
	end_date DATE NOT NULL,
	state TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS salary_structures (
	employee_id TEXT PRIMARY KEY,
	earnings JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS salary_slips (
	id TEXT PRIMARY KEY,
	employee_id TEXT NOT NULL,
	year INTEGER NOT NULL,
	month INTEGER NOT NULL,
	status TEXT NOT NULL,
	slip JSONB NOT NULL,
	generated_at TIMESTAMPTZ NOT NULL,
	UNIQUE (employee_id, year, month)
);
`

// Truncate empties every table. Used by tests against a shared database.
func (s *Store) Truncate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `TRUNCATE employees, attendance_events, leave_records, holidays, salary_structures, salary_slips`)
	return err
}

// =============================================================================
// ATTENDANCE EVENTS
// =============================================================================

const eventColumns = `id, employee_id, date::text, check_in, check_out, check_in_location,
	check_out_location, wfh, outside_geofence, status, worked_hours::text, flags, created_at, updated_at`

func (s *Store) CreateEvent(ctx context.Context, e attendance.Event) error {
	in, out, flags, err := eventJSON(e)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO attendance_events (id, employee_id, date, check_in, check_out, check_in_location,
			check_out_location, wfh, outside_geofence, status, worked_hours, flags, created_at, updated_at)
		VALUES ($1, $2, $3::date, $4, $5, $6, $7, $8, $9, $10, $11::numeric, $12, $13, $14)`,
		e.ID, string(e.EmployeeID), e.Date.String(), e.CheckIn, e.CheckOut, in, out,
		e.WFH, e.OutsideGeofence, string(e.Status), e.WorkedHours.String(), flags, e.CreatedAt, e.UpdatedAt)
	if isUniqueViolation(err) {
		return &core.ConflictError{Key: e.Key(), Reason: "attendance already recorded for this day"}
	}
	if err != nil {
		return fmt.Errorf("failed to create attendance event: %w", err)
	}
	return nil
}

func (s *Store) UpdateEvent(ctx context.Context, e attendance.Event) error {
	in, out, flags, err := eventJSON(e)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE attendance_events SET
			check_in = $3, check_out = $4, check_in_location = $5, check_out_location = $6,
			wfh = $7, outside_geofence = $8, status = $9, worked_hours = $10::numeric, flags = $11, updated_at = $12
		WHERE employee_id = $1 AND date = $2::date`,
		string(e.EmployeeID), e.Date.String(), e.CheckIn, e.CheckOut, in, out,
		e.WFH, e.OutsideGeofence, string(e.Status), e.WorkedHours.String(), flags, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update attendance event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &core.NotFoundError{Kind: "attendance event", Key: e.Key()}
	}
	return nil
}

func (s *Store) GetEvent(ctx context.Context, employee core.EmployeeID, date core.Date) (attendance.Event, error) {
	events, err := s.queryEvents(ctx,
		`SELECT `+eventColumns+` FROM attendance_events WHERE employee_id = $1 AND date = $2::date`,
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
	return s.queryEvents(ctx, `SELECT `+eventColumns+` FROM attendance_events
		WHERE employee_id = $1 AND date BETWEEN $2::date AND $3::date ORDER BY date`,
		string(employee), r.Start.String(), r.End.String())
}

func (s *Store) ListOpenEvents(ctx context.Context, before core.Date) ([]attendance.Event, error) {
	return s.queryEvents(ctx, `SELECT `+eventColumns+` FROM attendance_events
		WHERE check_in IS NOT NULL AND check_out IS NULL AND date < $1::date
		ORDER BY date, employee_id`,
		before.String())
}

func (s *Store) queryEvents(ctx context.Context, query string, args ...any) ([]attendance.Event, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query attendance events: %w", err)
	}
	defer rows.Close()

	var out []attendance.Event
	for rows.Next() {
		var e attendance.Event
		var employee, date, worked string
		var inLoc, outLoc, flags []byte
		if err := rows.Scan(&e.ID, &employee, &date, &e.CheckIn, &e.CheckOut, &inLoc, &outLoc,
			&e.WFH, &e.OutsideGeofence, &e.Status, &worked, &flags, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan attendance event: %w", err)
		}
		e.EmployeeID = core.EmployeeID(employee)
		if e.Date, err = core.ParseDate(date); err != nil {
			return nil, err
		}
		if e.WorkedHours, err = decimal.NewFromString(worked); err != nil {
			return nil, fmt.Errorf("invalid worked_hours %q: %w", worked, err)
		}
		if e.CheckInLocation, err = decodePoint(inLoc); err != nil {
			return nil, err
		}
		if e.CheckOutLocation, err = decodePoint(outLoc); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(flags, &e.Flags); err != nil {
			return nil, fmt.Errorf("invalid flags: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func eventJSON(e attendance.Event) (in, out, flags []byte, err error) {
	if e.CheckInLocation != nil {
		if in, err = json.Marshal(e.CheckInLocation); err != nil {
			return nil, nil, nil, err
		}
	}
	if e.CheckOutLocation != nil {
		if out, err = json.Marshal(e.CheckOutLocation); err != nil {
			return nil, nil, nil, err
		}
	}
	flags, err = json.Marshal(e.Flags)
	return in, out, flags, err
}

func decodePoint(b []byte) (*geofence.Point, error) {
	if b == nil {
		return nil, nil
	}
	var p geofence.Point
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("invalid location: %w", err)
	}
	return &p, nil
}

// =============================================================================
// LEAVE AND HOLIDAYS
// =============================================================================

func (s *Store) PutLeave(ctx context.Context, r attendance.LeaveRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO leave_records (id, employee_id, start_date, end_date, state, reason)
		VALUES ($1, $2, $3::date, $4::date, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			employee_id = EXCLUDED.employee_id,
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			state = EXCLUDED.state,
			reason = EXCLUDED.reason`,
		r.ID, string(r.EmployeeID), r.Range.Start.String(), r.Range.End.String(), string(r.State), r.Reason)
	if err != nil {
		return fmt.Errorf("failed to save leave record: %w", err)
	}
	return nil
}

func (s *Store) ListLeaves(ctx context.Context, employee core.EmployeeID, r core.DateRange) ([]attendance.LeaveRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, employee_id, start_date::text, end_date::text, state, reason FROM leave_records
		WHERE employee_id = $1 AND start_date <= $2::date AND end_date >= $3::date
		ORDER BY start_date`,
		string(employee), r.End.String(), r.Start.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query leave records: %w", err)
	}
	defer rows.Close()

	var out []attendance.LeaveRecord
	for rows.Next() {
		var l attendance.LeaveRecord
		var emp, start, end string
		if err := rows.Scan(&l.ID, &emp, &start, &end, &l.State, &l.Reason); err != nil {
			return nil, err
		}
		l.EmployeeID = core.EmployeeID(emp)
		if l.Range, err = parseRange(start, end); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *Store) PutHoliday(ctx context.Context, h attendance.HolidayRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO holidays (id, name, start_date, end_date, state)
		VALUES ($1, $2, $3::date, $4::date, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			state = EXCLUDED.state`,
		h.ID, h.Name, h.Range.Start.String(), h.Range.End.String(), string(h.State))
	if err != nil {
		return fmt.Errorf("failed to save holiday: %w", err)
	}
	return nil
}

func (s *Store) ListHolidays(ctx context.Context, r core.DateRange) ([]attendance.HolidayRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, start_date::text, end_date::text, state FROM holidays
		WHERE start_date <= $1::date AND end_date >= $2::date
		ORDER BY start_date`,
		r.End.String(), r.Start.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query holidays: %w", err)
	}
	defer rows.Close()

	var out []attendance.HolidayRecord
	for rows.Next() {
		var h attendance.HolidayRecord
		var start, end string
		if err := rows.Scan(&h.ID, &h.Name, &start, &end, &h.State); err != nil {
			return nil, err
		}
		if h.Range, err = parseRange(start, end); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// =============================================================================
// SALARY STRUCTURES AND SLIPS
// =============================================================================

func (s *Store) PutStructure(ctx context.Context, st payroll.SalaryStructure) error {
	earnings, err := json.Marshal(st.Earnings)
	if err != nil {
		return fmt.Errorf("failed to encode earnings: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO salary_structures (employee_id, earnings, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (employee_id) DO UPDATE SET
			earnings = EXCLUDED.earnings,
			updated_at = EXCLUDED.updated_at`,
		string(st.EmployeeID), earnings, st.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save salary structure: %w", err)
	}
	return nil
}

func (s *Store) GetStructure(ctx context.Context, employee core.EmployeeID) (payroll.SalaryStructure, error) {
	st := payroll.SalaryStructure{EmployeeID: employee}
	var earnings []byte
	err := s.pool.QueryRow(ctx,
		`SELECT earnings, updated_at FROM salary_structures WHERE employee_id = $1`,
		string(employee)).Scan(&earnings, &st.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return payroll.SalaryStructure{}, &core.NotFoundError{Kind: "salary structure", Key: string(employee)}
	}
	if err != nil {
		return payroll.SalaryStructure{}, fmt.Errorf("failed to get salary structure: %w", err)
	}
	if err := json.Unmarshal(earnings, &st.Earnings); err != nil {
		return payroll.SalaryStructure{}, fmt.Errorf("invalid earnings: %w", err)
	}
	return st, nil
}

func (s *Store) CreateSlip(ctx context.Context, slip payroll.SalarySlip) error {
	body, err := json.Marshal(slip)
	if err != nil {
		return fmt.Errorf("failed to encode slip: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO salary_slips (id, employee_id, year, month, status, slip, generated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		slip.ID, string(slip.EmployeeID), slip.Year, int(slip.Month), string(slip.Status), body, slip.GeneratedAt)
	if isUniqueViolation(err) {
		return &core.ConflictError{Key: slip.Key(), Reason: "salary slip already exists"}
	}
	if err != nil {
		return fmt.Errorf("failed to create salary slip: %w", err)
	}
	return nil
}

func (s *Store) UpdateSlip(ctx context.Context, slip payroll.SalarySlip) error {
	body, err := json.Marshal(slip)
	if err != nil {
		return fmt.Errorf("failed to encode slip: %w", err)
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE salary_slips SET status = $4, slip = $5, generated_at = $6
		WHERE employee_id = $1 AND year = $2 AND month = $3`,
		string(slip.EmployeeID), slip.Year, int(slip.Month), string(slip.Status), body, slip.GeneratedAt)
	if err != nil {
		return fmt.Errorf("failed to update salary slip: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &core.NotFoundError{Kind: "salary slip", Key: slip.Key()}
	}
	return nil
}

func (s *Store) GetSlip(ctx context.Context, employee core.EmployeeID, year int, month time.Month) (payroll.SalarySlip, error) {
	var body []byte
	err := s.pool.QueryRow(ctx,
		`SELECT slip FROM salary_slips WHERE employee_id = $1 AND year = $2 AND month = $3`,
		string(employee), year, int(month)).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return payroll.SalarySlip{}, &core.NotFoundError{Kind: "salary slip", Key: payroll.SlipKey(employee, year, month)}
	}
	if err != nil {
		return payroll.SalarySlip{}, fmt.Errorf("failed to get salary slip: %w", err)
	}
	var slip payroll.SalarySlip
	if err := json.Unmarshal(body, &slip); err != nil {
		return payroll.SalarySlip{}, fmt.Errorf("invalid slip: %w", err)
	}
	return slip, nil
}

func (s *Store) ListSlips(ctx context.Context, employee core.EmployeeID) ([]payroll.SalarySlip, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT slip FROM salary_slips WHERE employee_id = $1 ORDER BY year DESC, month DESC`,
		string(employee))
	if err != nil {
		return nil, fmt.Errorf("failed to query salary slips: %w", err)
	}
	defer rows.Close()

	var out []payroll.SalarySlip
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		var slip payroll.SalarySlip
		if err := json.Unmarshal(body, &slip); err != nil {
			return nil, fmt.Errorf("invalid slip: %w", err)
		}
		out = append(out, slip)
	}
	return out, rows.Err()
}

// =============================================================================
// EMPLOYEES
// =============================================================================

func (s *Store) PutEmployee(ctx context.Context, e service.Employee) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO employees (id, name, email, department, designation, regime, wfh_eligible, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			department = EXCLUDED.department,
			designation = EXCLUDED.designation,
			regime = EXCLUDED.regime,
			wfh_eligible = EXCLUDED.wfh_eligible,
			active = EXCLUDED.active`,
		string(e.ID), e.Name, e.Email, e.Department, e.Designation, string(e.Regime), e.WFHEligible, e.Active, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save employee: %w", err)
	}
	return nil
}

const employeeColumns = `id, name, email, department, designation, regime, wfh_eligible, active, created_at`

func (s *Store) GetEmployee(ctx context.Context, id core.EmployeeID) (service.Employee, error) {
	employees, err := s.queryEmployees(ctx, `SELECT `+employeeColumns+` FROM employees WHERE id = $1`, string(id))
	if err != nil {
		return service.Employee{}, err
	}
	if len(employees) == 0 {
		return service.Employee{}, &core.NotFoundError{Kind: "employee", Key: string(id)}
	}
	return employees[0], nil
}

func (s *Store) ListEmployees(ctx context.Context) ([]service.Employee, error) {
	return s.queryEmployees(ctx, `SELECT `+employeeColumns+` FROM employees ORDER BY id`)
}

func (s *Store) queryEmployees(ctx context.Context, query string, args ...any) ([]service.Employee, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query employees: %w", err)
	}
	defer rows.Close()

	var out []service.Employee
	for rows.Next() {
		var e service.Employee
		var id, regime string
		if err := rows.Scan(&id, &e.Name, &e.Email, &e.Department, &e.Designation, &regime,
			&e.WFHEligible, &e.Active, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.ID = core.EmployeeID(id)
		e.Regime = payroll.Regime(regime)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Helper functions

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
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
