/*
errors.go - Centralized error taxonomy for the reconciliation engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Domain packages wrap these with additional context.

ERROR CATEGORIES:
  1. Validation errors  - malformed input, rejected before any mutation
  2. Not-found errors   - missing tenant, period, house
  3. Pending obligations - exit settlement attempted with open periods
  4. Concurrency conflicts - stale ledger version, caller retries whole unit
  5. Invariant violations - internal accounting broke, abort and surface

PROPAGATION POLICY:
  Every error aborts the enclosing atomic unit. Nothing is recovered and
  ignored; insufficient funds is not an error, it is a deficit.

SEE ALSO:
  - allocate.go: emits InvariantError
  - billing, clearance packages: wrap these with domain context
*/
package ledger

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is the root of all boundary validation failures.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when a referenced tenant, period ledger,
	// house, or clearance record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrPendingObligations is returned when exit settlement is attempted
	// while uncleared billing periods remain.
	ErrPendingObligations = errors.New("pending obligations")

	// ErrConcurrencyConflict is returned when optimistic versioning detects
	// a lost update. The caller must retry the whole unit of work.
	ErrConcurrencyConflict = errors.New("concurrent modification detected")

	// ErrInvariantViolation is returned when ledger arithmetic breaks its
	// own invariants. Fatal for the operation, never clamped over.
	ErrInvariantViolation = errors.New("ledger invariant violated")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError reports malformed or out-of-range boundary input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NotFoundError identifies which record was missing.
type NotFoundError struct {
	Kind string // "tenant", "payment", "house", "clearance", "apartment"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// PendingObligationsError lists the billing periods blocking settlement.
type PendingObligationsError struct {
	TenantID string
	Periods  []BillingMonth
}

func (e *PendingObligationsError) Error() string {
	labels := make([]string, len(e.Periods))
	for i, p := range e.Periods {
		labels[i] = p.String()
	}
	return fmt.Sprintf("tenant %s has uncleared periods: %s",
		e.TenantID, strings.Join(labels, ", "))
}

func (e *PendingObligationsError) Unwrap() error { return ErrPendingObligations }

// ConflictError reports a stale-version write.
type ConflictError struct {
	Kind string
	ID   string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("stale version for %s %s", e.Kind, e.ID)
}

func (e *ConflictError) Unwrap() error { return ErrConcurrencyConflict }

// InvariantError carries the broken accounting identity for investigation.
type InvariantError struct {
	Line    string
	Message string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant violation on %s: %s", e.Line, e.Message)
}

func (e *InvariantError) Unwrap() error { return ErrInvariantViolation }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrencyConflict)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrPendingObligations)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
