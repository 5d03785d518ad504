package payroll

import (
	"context"
	"time"

	"github.com/warp/payroll-engine/core"
)

// Store persists structures and slips. PutStructure replaces the employee's
// structure. CreateSlip is an atomic insert-if-absent on (employee, year,
// month) and returns a *core.ConflictError when the key exists.
type Store interface {
	PutStructure(ctx context.Context, s SalaryStructure) error
	GetStructure(ctx context.Context, employee core.EmployeeID) (SalaryStructure, error)

	CreateSlip(ctx context.Context, s SalarySlip) error
	UpdateSlip(ctx context.Context, s SalarySlip) error
	GetSlip(ctx context.Context, employee core.EmployeeID, year int, month time.Month) (SalarySlip, error)
	ListSlips(ctx context.Context, employee core.EmployeeID) ([]SalarySlip, error)
}
