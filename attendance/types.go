/*
Package attendance provides the core attendance tracking engine.

PURPOSE:
  This package contains the two pieces of real logic in the system:
  the attendance state machine (which events an employee may submit
  given their most recent recorded event) and the interval aggregator
  (how much time was worked per calendar day, and what it cost).

KEY CONCEPTS IN THIS FILE (types.go):
  - EventType: The closed set of attendance actions
  - Event: An immutable log entry (one punch of the clock)
  - State: The employee's position in the clock-in/break cycle
  - Summary: The derived per-day hours series and wage totals

DESIGN PRINCIPLES:
  1. Append-only: Events are never updated or deleted
  2. Derivation: Daily hours and wages are always recomputed from the log
  3. Type Safety: Typed IDs and a closed EventType enumeration
  4. Explicit identity: The caller passes an employee ID into every
     operation; there is no ambient "current user"

USAGE:
  et, err := attendance.ParseEventType("clock_in")
  rec := attendance.NewRecorder(store)
  err = rec.RecordEvent(ctx, "emp-1", et)

SEE ALSO:
  - machine.go:   State machine and event recording
  - aggregate.go: Daily series and wage summary
  - store.go:     Persistence interfaces
*/
package attendance

import (
	"time"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EmployeeID string
type EventID string

// =============================================================================
// EVENT TYPE - Closed enumeration of attendance actions
// =============================================================================

type EventType string

const (
	EventClockIn    EventType = "clock_in"
	EventClockOut   EventType = "clock_out"
	EventStartBreak EventType = "start_break"
	EventEndBreak   EventType = "end_break"
)

// EventTypes lists every valid event type, in no particular order.
var EventTypes = []EventType{EventClockIn, EventClockOut, EventStartBreak, EventEndBreak}

// ParseEventType converts a raw string into an EventType.
// Anything outside the four literals fails with ErrInvalidEventType
// before any state lookup happens.
func ParseEventType(s string) (EventType, error) {
	switch EventType(s) {
	case EventClockIn, EventClockOut, EventStartBreak, EventEndBreak:
		return EventType(s), nil
	}
	return "", &InvalidEventTypeError{Value: s}
}

// IsValid reports whether the event type is one of the four literals.
func (t EventType) IsValid() bool {
	switch t {
	case EventClockIn, EventClockOut, EventStartBreak, EventEndBreak:
		return true
	}
	return false
}

// opensInterval reports whether this event starts a worked interval.
func (t EventType) opensInterval() bool {
	return t == EventClockIn || t == EventEndBreak
}

// closesInterval reports whether this event ends a worked interval.
func (t EventType) closesInterval() bool {
	return t == EventClockOut || t == EventStartBreak
}

// =============================================================================
// EVENT - One immutable entry in the attendance log
// =============================================================================

type Event struct {
	ID         EventID
	EmployeeID EmployeeID
	Type       EventType
	Timestamp  time.Time
}

// =============================================================================
// STATE - Position in the clock-in/break cycle
// =============================================================================

type State string

const (
	// StateNone means no event has ever been recorded. It is behaviorally
	// identical to StateClockedOut for transition purposes.
	StateNone       State = "none"
	StateClockedIn  State = "clocked_in"
	StateOnBreak    State = "on_break"
	StateClockedOut State = "clocked_out"
)

// StateAfter returns the state an employee is in after the given event.
func StateAfter(t EventType) State {
	switch t {
	case EventClockIn, EventEndBreak:
		return StateClockedIn
	case EventStartBreak:
		return StateOnBreak
	case EventClockOut:
		return StateClockedOut
	}
	return StateNone
}

// =============================================================================
// STATUS - What the caller sees (mirrors the latest event)
// =============================================================================

// Status is the latest event's type, or StatusNone when no event exists.
type Status string

const StatusNone Status = "none"

// =============================================================================
// SUMMARY - Derived daily series and wage totals (never persisted)
// =============================================================================

// Summary is the result of aggregating one employee's events over a
// half-open day range [start, end). Labels and Hours are parallel slices:
// one entry per calendar day, contiguous and ascending, zero-filled for
// days without events.
type Summary struct {
	Labels     []string
	Hours      []float64
	TotalHours float64
	TotalWage  float64
	HourlyWage float64
}

// DateLabel formats a timestamp as the calendar-day key used in Labels.
func DateLabel(t time.Time) string {
	return t.Format("2006-01-02")
}
