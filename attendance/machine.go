/*
machine.go - The attendance state machine

PURPOSE:
  Accepts or rejects a single attendance event for one employee based
  solely on that employee's most recent prior event.

TRANSITION TABLE:
  none / clocked_out -> clock_in
  clocked_in         -> start_break, clock_out
  on_break           -> end_break

CONCURRENCY:
  The legality check and the append are two operations against a shared
  store, a classic check-then-act race when the same employee submits
  events from two sessions at once. The recorder serializes per employee
  with a striped mutex, and additionally runs the check+append inside a
  store transaction when the store supports WithTx. Different employees
  never contend with each other beyond stripe collisions.

SEE ALSO:
  - types.go:  State, EventType
  - errors.go: IllegalTransitionError
*/
package attendance

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
)

// transitions maps each state to the event types accepted from it.
var transitions = map[State][]EventType{
	StateNone:       {EventClockIn},
	StateClockedOut: {EventClockIn},
	StateClockedIn:  {EventStartBreak, EventClockOut},
	StateOnBreak:    {EventEndBreak},
}

// Allowed returns the event types accepted from the given state.
func Allowed(s State) []EventType {
	return transitions[s]
}

// allows reports whether event type t is accepted from state s.
func allows(s State, t EventType) bool {
	for _, a := range transitions[s] {
		if a == t {
			return true
		}
	}
	return false
}

// =============================================================================
// RECORDER
// =============================================================================

const lockStripes = 64

// Recorder validates and appends attendance events.
type Recorder struct {
	store Store
	clock Clock

	// One mutex per stripe, keyed by employee ID. Serializes the
	// check-then-act sequence for a given employee.
	locks [lockStripes]sync.Mutex
}

// NewRecorder creates a recorder using the system clock.
func NewRecorder(store Store) *Recorder {
	return NewRecorderWithClock(store, SystemClock{})
}

// NewRecorderWithClock creates a recorder with an explicit clock.
func NewRecorderWithClock(store Store, clock Clock) *Recorder {
	return &Recorder{store: store, clock: clock}
}

func (r *Recorder) lockFor(id EmployeeID) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(id))
	return &r.locks[h.Sum32()%lockStripes]
}

// RecordEvent validates eventType against the employee's current state and
// appends it with the current time. Exactly one event is appended on
// success; nothing is written on any failure.
//
// Failure modes: ErrInvalidEventType for a value outside the enumeration,
// ErrIllegalTransition when the state machine forbids the event, and
// store errors (including ErrEmployeeNotFound) from the append itself.
func (r *Recorder) RecordEvent(ctx context.Context, id EmployeeID, eventType EventType) error {
	if !eventType.IsValid() {
		return &InvalidEventTypeError{Value: string(eventType)}
	}

	mu := r.lockFor(id)
	mu.Lock()
	defer mu.Unlock()

	if tx, ok := r.store.(TxStore); ok {
		return tx.WithTx(ctx, func(s Store) error {
			return r.checkAndAppend(ctx, s, id, eventType)
		})
	}
	return r.checkAndAppend(ctx, r.store, id, eventType)
}

func (r *Recorder) checkAndAppend(ctx context.Context, s Store, id EmployeeID, eventType EventType) error {
	latest, err := s.LatestEvent(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to read latest event: %w", err)
	}

	state := StateNone
	if latest != nil {
		state = StateAfter(latest.Type)
	}

	if !allows(state, eventType) {
		return &IllegalTransitionError{
			EmployeeID: id,
			State:      state,
			Requested:  eventType,
			Allowed:    Allowed(state),
		}
	}

	return s.AppendEvent(ctx, id, eventType, r.clock.Now())
}

// CurrentStatus mirrors the latest event's type, or StatusNone when the
// employee has no events.
func (r *Recorder) CurrentStatus(ctx context.Context, id EmployeeID) (Status, error) {
	latest, err := r.store.LatestEvent(ctx, id)
	if err != nil {
		return "", fmt.Errorf("failed to read latest event: %w", err)
	}
	if latest == nil {
		return StatusNone, nil
	}
	return Status(latest.Type), nil
}

// CurrentState computes the employee's state machine position.
func (r *Recorder) CurrentState(ctx context.Context, id EmployeeID) (State, error) {
	latest, err := r.store.LatestEvent(ctx, id)
	if err != nil {
		return "", fmt.Errorf("failed to read latest event: %w", err)
	}
	if latest == nil {
		return StateNone, nil
	}
	return StateAfter(latest.Type), nil
}
