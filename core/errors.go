/*
errors.go - Centralized error taxonomy for the engine and its collaborators

PURPOSE:
  All error kinds in one place so every layer classifies failures the same
  way. The HTTP layer maps them to status codes; the service layer decides
  retry-vs-reject from them.

ERROR CATEGORIES:
  1. ConfigurationError - a rules field is missing or invalid (fatal)
  2. ValidationError    - bad input data (returned to caller, not retried)
  3. ConflictError      - uniqueness violation on an attendance/slip key
  4. Invalid transition - slip lifecycle move that is not allowed

NOT ERRORS:
  Computation anomalies (deductions exceeding earnings, pending checkout,
  checkout before check-in) are flags on result records. Geofence denial
  is a geofence.Result value.

USAGE:
  if errors.Is(err, core.ErrConflict) {
      // already exists: retry as update or reject
  }

SEE ALSO:
  - api/handlers.go: status code mapping
  - payroll/lifecycle.go: TransitionError
*/
package core

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	ErrConfiguration = errors.New("configuration error")

	ErrValidation = errors.New("validation error")

	// ErrConflict is returned by stores when a uniqueness key already exists.
	ErrConflict = errors.New("conflict")

	ErrNotFound = errors.New("not found")

	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrForbidden is returned when the authorization collaborator refuses.
	ErrForbidden = errors.New("forbidden")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ConfigurationError names the rules field that is missing or invalid.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s: %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return ErrConfiguration }

// ValidationError names the input field that was rejected.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// ConflictError provides the key that collided.
type ConflictError struct {
	Key    string
	Reason string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict on %s: %s", e.Key, e.Reason)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// NotFoundError names the missing record.
type NotFoundError struct {
	Kind string
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.Key)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry. Conflicts are
// retryable as an update, never as a blind re-insert.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidTransition)
}

func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

func IsConfiguration(err error) bool { return errors.Is(err, ErrConfiguration) }
