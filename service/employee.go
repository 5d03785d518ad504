package service

import (
	"context"
	"time"

	"github.com/warp/payroll-engine/core"
	"github.com/warp/payroll-engine/payroll"
)

// Employee is the slice of the employee profile the engine needs.
type Employee struct {
	ID          core.EmployeeID `json:"id"`
	Name        string          `json:"name"`
	Email       string          `json:"email,omitempty"`
	Department  string          `json:"department,omitempty"`
	Designation string          `json:"designation,omitempty"`
	// Regime is the employee's chosen tax regime; empty uses the default.
	Regime payroll.Regime `json:"regime,omitempty"`
	// WFHEligible lets the employee's WFH flag bypass the geofence.
	WFHEligible bool      `json:"wfh_eligible"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}

func (e Employee) Validate() error {
	if e.ID == "" {
		return &core.ValidationError{Field: "id", Reason: "required"}
	}
	if e.Name == "" {
		return &core.ValidationError{Field: "name", Reason: "required"}
	}
	if e.Regime != "" && !e.Regime.Valid() {
		return &core.ValidationError{Field: "regime", Reason: "must be old or new"}
	}
	return nil
}

// Info is the display shape used on rendered slips.
func (e Employee) Info() payroll.EmployeeInfo {
	return payroll.EmployeeInfo{ID: e.ID, Name: e.Name, Designation: e.Designation, Department: e.Department}
}

// EmployeeStore is the employee directory. PutEmployee upserts.
type EmployeeStore interface {
	PutEmployee(ctx context.Context, e Employee) error
	GetEmployee(ctx context.Context, id core.EmployeeID) (Employee, error)
	ListEmployees(ctx context.Context) ([]Employee, error)
}

// Directory manages employee records.
type Directory struct {
	store EmployeeStore
	clock core.Clock
}

func NewDirectory(store EmployeeStore, clock core.Clock) *Directory {
	if clock == nil {
		clock = core.SystemClock{}
	}
	return &Directory{store: store, clock: clock}
}

// Save validates and upserts e. CreatedAt is kept from the stored record.
func (d *Directory) Save(ctx context.Context, e Employee) (Employee, error) {
	if err := e.Validate(); err != nil {
		return Employee{}, err
	}
	existing, err := d.store.GetEmployee(ctx, e.ID)
	switch {
	case err == nil:
		e.CreatedAt = existing.CreatedAt
	case core.IsNotFound(err):
		e.CreatedAt = d.clock.Now().UTC()
	default:
		return Employee{}, err
	}
	if err := d.store.PutEmployee(ctx, e); err != nil {
		return Employee{}, err
	}
	return e, nil
}

func (d *Directory) Get(ctx context.Context, id core.EmployeeID) (Employee, error) {
	return d.store.GetEmployee(ctx, id)
}

func (d *Directory) List(ctx context.Context) ([]Employee, error) {
	return d.store.ListEmployees(ctx)
}
