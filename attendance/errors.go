/*
errors.go - Centralized error types for the attendance engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  The API layer maps these onto HTTP status codes; nothing here is
  process-fatal and a failed request never corrupts state for the next.

ERROR CATEGORIES:
  1. Input errors      - Malformed event types, inverted date ranges
  2. Transition errors - Semantically valid event, disallowed by state
  3. Store errors      - Missing employees, database-level failures

USAGE:
  if errors.Is(err, attendance.ErrIllegalTransition) {
      // reject with 409, nothing was written
  }

SEE ALSO:
  - machine.go:   Returns transition errors
  - aggregate.go: Returns range/aggregation errors
*/
package attendance

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidEventType is returned for any event type outside the four
	// literals. Such input is never persisted.
	ErrInvalidEventType = errors.New("invalid event type")

	// ErrIllegalTransition is returned when a well-formed event is not
	// allowed from the employee's current state. No write occurs.
	ErrIllegalTransition = errors.New("illegal attendance transition")

	// ErrEmployeeNotFound is returned when a referenced employee doesn't exist.
	ErrEmployeeNotFound = errors.New("employee not found")

	// ErrInvalidRange is returned when a summary range has start after end.
	ErrInvalidRange = errors.New("invalid range: start after end")

	// ErrAggregation is returned when a summary cannot be computed. The
	// operation is all-or-nothing; partial series are never returned.
	ErrAggregation = errors.New("aggregation failed")

	// ErrStore is returned for underlying storage faults.
	ErrStore = errors.New("store error")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidEventTypeError reports the rejected raw value.
type InvalidEventTypeError struct {
	Value string
}

func (e *InvalidEventTypeError) Error() string {
	return fmt.Sprintf("invalid event type %q", e.Value)
}

func (e *InvalidEventTypeError) Unwrap() error { return ErrInvalidEventType }

// IllegalTransitionError reports which event was requested from which state,
// and which event types would have been accepted.
type IllegalTransitionError struct {
	EmployeeID EmployeeID
	State      State
	Requested  EventType
	Allowed    []EventType
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("cannot record %s while %s (allowed: %v)",
		e.Requested, e.State, e.Allowed)
}

func (e *IllegalTransitionError) Unwrap() error { return ErrIllegalTransition }

// AggregationError wraps the underlying fault behind a summary failure.
type AggregationError struct {
	EmployeeID EmployeeID
	Cause      error
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("failed to aggregate attendance for %s: %v", e.EmployeeID, e.Cause)
}

func (e *AggregationError) Unwrap() error { return ErrAggregation }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidEventType) ||
		errors.Is(err, ErrIllegalTransition) ||
		errors.Is(err, ErrInvalidRange)
}

// IsNotFound returns true if the error indicates a missing employee.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEmployeeNotFound)
}
