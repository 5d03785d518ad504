package attendance

import (
	"context"

	"github.com/warp/payroll-engine/core"
)

// Store persists attendance records. Implementations must make CreateEvent
// an atomic insert-if-absent on (employee, date), returning a
// *core.ConflictError when the key already exists, so that concurrent
// check-ins never produce two events for one day.
type Store interface {
	CreateEvent(ctx context.Context, e Event) error
	UpdateEvent(ctx context.Context, e Event) error
	GetEvent(ctx context.Context, employee core.EmployeeID, date core.Date) (Event, error)
	ListEvents(ctx context.Context, employee core.EmployeeID, r core.DateRange) ([]Event, error)
	// ListOpenEvents returns events of every employee dated before the given
	// day that have a check-in and no check-out.
	ListOpenEvents(ctx context.Context, before core.Date) ([]Event, error)

	PutLeave(ctx context.Context, r LeaveRecord) error
	ListLeaves(ctx context.Context, employee core.EmployeeID, r core.DateRange) ([]LeaveRecord, error)

	PutHoliday(ctx context.Context, r HolidayRecord) error
	ListHolidays(ctx context.Context, r core.DateRange) ([]HolidayRecord, error)
}
