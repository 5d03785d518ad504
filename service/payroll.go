package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/warp/payroll-engine/attendance"
	"github.com/warp/payroll-engine/core"
	"github.com/warp/payroll-engine/factory"
	"github.com/warp/payroll-engine/payroll"
	"go.uber.org/zap"
)

// GenerateRequest asks for the slip of one employee-month. Overwrite must be
// set to re-derive a finalized slip, and the actor must be allowed to.
type GenerateRequest struct {
	EmployeeID core.EmployeeID     `json:"employee_id"`
	Year       int                 `json:"year"`
	Month      time.Month          `json:"month"`
	Deductions []payroll.Deduction `json:"deductions,omitempty"`
	Overwrite  bool                `json:"overwrite"`
}

// Payroll generates and manages salary slips.
type Payroll struct {
	store      payroll.Store
	attendance attendance.Store
	employees  EmployeeStore
	rules      *factory.Registry
	authz      Authorizer
	clock      core.Clock
	logger     *zap.Logger
}

func NewPayroll(store payroll.Store, att attendance.Store, employees EmployeeStore, rules *factory.Registry,
	authz Authorizer, clock core.Clock, logger *zap.Logger) *Payroll {
	if authz == nil {
		authz = AllowAll{}
	}
	if clock == nil {
		clock = core.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Payroll{
		store:      store,
		attendance: att,
		employees:  employees,
		rules:      rules,
		authz:      authz,
		clock:      clock,
		logger:     logger.Named("payroll.service"),
	}
}

// SaveStructure validates and replaces the employee's salary structure.
func (s *Payroll) SaveStructure(ctx context.Context, st payroll.SalaryStructure) (payroll.Resolved, error) {
	resolved, err := payroll.ResolveStructure(st)
	if err != nil {
		return payroll.Resolved{}, err
	}
	if _, err := s.employees.GetEmployee(ctx, st.EmployeeID); err != nil {
		return payroll.Resolved{}, err
	}
	st.UpdatedAt = s.clock.Now().UTC()
	if err := s.store.PutStructure(ctx, st); err != nil {
		return payroll.Resolved{}, err
	}
	s.logger.Info("salary structure saved",
		zap.String("employee_id", string(st.EmployeeID)),
		zap.Stringer("gross", resolved.Gross),
	)
	return resolved, nil
}

func (s *Payroll) GetStructure(ctx context.Context, employee core.EmployeeID) (payroll.Resolved, error) {
	st, err := s.store.GetStructure(ctx, employee)
	if err != nil {
		return payroll.Resolved{}, err
	}
	return payroll.ResolveStructure(st)
}

// GenerateSlip composes a draft slip from the current structure and the
// employee's regime. An existing draft is re-derived in place; an existing
// finalized slip only with Overwrite and the regenerate permission.
func (s *Payroll) GenerateSlip(ctx context.Context, actor string, req GenerateRequest) (payroll.SalarySlip, error) {
	rules := s.rules.Current()
	emp, err := s.employees.GetEmployee(ctx, req.EmployeeID)
	if err != nil {
		return payroll.SalarySlip{}, err
	}
	structure, err := s.store.GetStructure(ctx, emp.ID)
	if err != nil {
		return payroll.SalarySlip{}, err
	}
	regime, err := rules.Regime(emp.Regime)
	if err != nil {
		return payroll.SalarySlip{}, err
	}

	var existing *payroll.SalarySlip
	stored, err := s.store.GetSlip(ctx, emp.ID, req.Year, req.Month)
	switch {
	case err == nil:
		existing = &stored
	case !core.IsNotFound(err):
		return payroll.SalarySlip{}, err
	}
	if existing != nil && existing.Status == payroll.SlipFinalized && req.Overwrite {
		if err := s.authz.Authorize(ctx, actor, ActionRegenerate, existing.Key()); err != nil {
			return payroll.SalarySlip{}, err
		}
	}

	leaveDays := 0
	if req.Month >= time.January && req.Month <= time.December {
		period := core.MonthRange(req.Year, req.Month)
		leaves, err := s.attendance.ListLeaves(ctx, emp.ID, period)
		if err != nil {
			return payroll.SalarySlip{}, err
		}
		leaveDays = attendance.LeaveDaysIn(leaves, emp.ID, period)
	}

	slip, err := payroll.Compose(payroll.ComposeInput{
		ID:                 uuid.NewString(),
		Structure:          structure,
		Regime:             regime,
		Year:               req.Year,
		Month:              req.Month,
		CustomDeductions:   req.Deductions,
		LeaveDays:          leaveDays,
		At:                 s.clock.Now().UTC(),
		Existing:           existing,
		OverwriteFinalized: req.Overwrite,
	})
	if err != nil {
		if errors.Is(err, payroll.ErrSlipFinalized) {
			s.logger.Info("refused to overwrite finalized slip", zap.String("key", payroll.SlipKey(emp.ID, req.Year, req.Month)))
		}
		return payroll.SalarySlip{}, err
	}

	if existing == nil {
		err = s.store.CreateSlip(ctx, slip)
	} else {
		err = s.store.UpdateSlip(ctx, slip)
	}
	if err != nil {
		return payroll.SalarySlip{}, err
	}

	fields := []zap.Field{
		zap.String("key", slip.Key()),
		zap.String("regime", string(slip.Regime)),
		zap.Stringer("gross", slip.Gross),
		zap.Stringer("net", slip.Net),
		zap.Int("revision", slip.Revision),
	}
	if slip.Flags.DeductionsExceedEarnings {
		s.logger.Warn("deductions exceed earnings, net clamped to zero", fields...)
	} else {
		s.logger.Info("salary slip generated", fields...)
	}
	return slip, nil
}

// Finalize moves a draft slip to finalized.
func (s *Payroll) Finalize(ctx context.Context, actor string, employee core.EmployeeID, year int, month time.Month) (payroll.SalarySlip, error) {
	return s.transition(ctx, actor, ActionFinalize, employee, year, month, func(slip payroll.SalarySlip) (payroll.SalarySlip, error) {
		return payroll.Finalize(slip, s.clock.Now().UTC())
	})
}

// Unpublish returns a finalized slip to draft.
func (s *Payroll) Unpublish(ctx context.Context, actor string, employee core.EmployeeID, year int, month time.Month) (payroll.SalarySlip, error) {
	return s.transition(ctx, actor, ActionUnpublish, employee, year, month, payroll.Unpublish)
}

func (s *Payroll) transition(ctx context.Context, actor string, action Action, employee core.EmployeeID, year int, month time.Month,
	apply func(payroll.SalarySlip) (payroll.SalarySlip, error)) (payroll.SalarySlip, error) {
	key := payroll.SlipKey(employee, year, month)
	if err := s.authz.Authorize(ctx, actor, action, key); err != nil {
		return payroll.SalarySlip{}, err
	}
	slip, err := s.store.GetSlip(ctx, employee, year, month)
	if err != nil {
		return payroll.SalarySlip{}, err
	}
	next, err := apply(slip)
	if err != nil {
		return payroll.SalarySlip{}, err
	}
	if err := s.store.UpdateSlip(ctx, next); err != nil {
		return payroll.SalarySlip{}, err
	}
	s.logger.Info("salary slip transitioned",
		zap.String("key", key),
		zap.String("action", string(action)),
		zap.String("status", string(next.Status)),
		zap.String("actor", actor),
	)
	return next, nil
}

func (s *Payroll) GetSlip(ctx context.Context, employee core.EmployeeID, year int, month time.Month) (payroll.SalarySlip, error) {
	return s.store.GetSlip(ctx, employee, year, month)
}

func (s *Payroll) ListSlips(ctx context.Context, employee core.EmployeeID) ([]payroll.SalarySlip, error) {
	return s.store.ListSlips(ctx, employee)
}

// View renders a finalized slip for display.
func (s *Payroll) View(ctx context.Context, employee core.EmployeeID, year int, month time.Month) (payroll.SlipView, error) {
	emp, err := s.employees.GetEmployee(ctx, employee)
	if err != nil {
		return payroll.SlipView{}, err
	}
	slip, err := s.store.GetSlip(ctx, employee, year, month)
	if err != nil {
		return payroll.SlipView{}, err
	}
	return payroll.RenderView(slip, s.rules.Current().Company, emp.Info())
}
