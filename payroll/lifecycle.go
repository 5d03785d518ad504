package payroll

import (
	"fmt"
	"time"

	"github.com/warp/payroll-engine/core"
)

// =============================================================================
// STATE MACHINE
// =============================================================================
//
//	draft --Finalize--> finalized --Unpublish--> draft
//
// Every other move is a *TransitionError. Who may make the move is decided
// by the caller's authorization collaborator, not here.

// TransitionError reports a disallowed lifecycle move.
type TransitionError struct {
	Key  string
	From SlipStatus
	To   SlipStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("slip %s: cannot move from %s to %s", e.Key, e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return core.ErrInvalidTransition }

// CanTransitionTo reports whether s may move to next.
func (s SlipStatus) CanTransitionTo(next SlipStatus) bool {
	switch s {
	case SlipDraft:
		return next == SlipFinalized
	case SlipFinalized:
		return next == SlipDraft
	}
	return false
}

// Finalize publishes a draft slip.
func Finalize(slip SalarySlip, at time.Time) (SalarySlip, error) {
	if !slip.Status.CanTransitionTo(SlipFinalized) {
		return slip, &TransitionError{Key: slip.Key(), From: slip.Status, To: SlipFinalized}
	}
	slip.Status = SlipFinalized
	slip.FinalizedAt = &at
	return slip, nil
}

// Unpublish returns a finalized slip to draft.
func Unpublish(slip SalarySlip) (SalarySlip, error) {
	if !slip.Status.CanTransitionTo(SlipDraft) {
		return slip, &TransitionError{Key: slip.Key(), From: slip.Status, To: SlipDraft}
	}
	slip.Status = SlipDraft
	slip.FinalizedAt = nil
	return slip, nil
}
