/*
store.go - Persistence interfaces consumed by the attendance engine

PURPOSE:
  Defines the boundary between the engine and the record store. The
  engine never touches SQL; it expresses exactly the four reads/writes
  it needs from any backing store.

APPEND-ONLY CONTRACT:
  Attendance events are a log. AppendEvent is the only write; there is
  no Update or Delete. Corrections happen at the administrative layer,
  not here.

IMPLEMENTATIONS:
  - store/sqlite:          Production SQLite store
  - attendance/store:      In-memory store for testing

SEE ALSO:
  - machine.go:   Uses LatestEvent + AppendEvent
  - aggregate.go: Uses EventsInRange + HourlyWage
*/
package attendance

import (
	"context"
	"time"
)

// Store is the record store the engine reads and appends against.
type Store interface {
	// LatestEvent returns the most recent event for an employee by
	// timestamp descending, or nil when no event exists.
	LatestEvent(ctx context.Context, id EmployeeID) (*Event, error)

	// EventsInRange returns all events for an employee with
	// from <= Timestamp < to, ascending by timestamp. Grouping by day in
	// the aggregator depends on this ordering.
	EventsInRange(ctx context.Context, id EmployeeID, from, to time.Time) ([]Event, error)

	// AppendEvent appends one event. It fails atomically if the employee
	// does not exist (ErrEmployeeNotFound) or the event type is outside
	// the closed enumeration (ErrInvalidEventType).
	AppendEvent(ctx context.Context, id EmployeeID, t EventType, at time.Time) error

	// HourlyWage returns the employee's current hourly wage, or nil when
	// the wage is unset. Missing employees fail with ErrEmployeeNotFound.
	HourlyWage(ctx context.Context, id EmployeeID) (*float64, error)
}

// TxStore wraps Store with a transaction boundary. The recorder uses it to
// make its check-then-act sequence atomic with respect to other writers.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}

// Clock supplies the current time. Production uses SystemClock; tests
// substitute a fixed clock to make transitions deterministic.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }
