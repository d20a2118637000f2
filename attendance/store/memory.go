// Package store provides Store implementations.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/warp/attendance-engine/attendance"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu     sync.RWMutex
	events map[attendance.EmployeeID][]attendance.Event
	wages  map[attendance.EmployeeID]*float64
}

func NewMemory() *Memory {
	return &Memory{
		events: make(map[attendance.EmployeeID][]attendance.Event),
		wages:  make(map[attendance.EmployeeID]*float64),
	}
}

// AddEmployee registers an employee with an optional hourly wage.
// Pass nil for an unset wage.
func (m *Memory) AddEmployee(id attendance.EmployeeID, wage *float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.wages[id] = wage
}

func (m *Memory) LatestEvent(_ context.Context, id attendance.EmployeeID) (*attendance.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	evs := m.events[id]
	if len(evs) == 0 {
		return nil, nil
	}
	ev := evs[len(evs)-1]
	return &ev, nil
}

func (m *Memory) EventsInRange(_ context.Context, id attendance.EmployeeID, from, to time.Time) ([]attendance.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []attendance.Event
	for _, ev := range m.events[id] {
		if !ev.Timestamp.Before(from) && ev.Timestamp.Before(to) {
			result = append(result, ev)
		}
	}
	return result, nil
}

func (m *Memory) AppendEvent(_ context.Context, id attendance.EmployeeID, t attendance.EventType, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendLocked(id, t, at)
}

func (m *Memory) appendLocked(id attendance.EmployeeID, t attendance.EventType, at time.Time) error {
	if !t.IsValid() {
		return &attendance.InvalidEventTypeError{Value: string(t)}
	}
	if _, ok := m.wages[id]; !ok {
		return attendance.ErrEmployeeNotFound
	}

	ev := attendance.Event{
		ID:         attendance.EventID(uuid.NewString()),
		EmployeeID: id,
		Type:       t,
		Timestamp:  at,
	}

	evs := m.events[id]
	// Binary search for the insertion point keeps the slice ordered even
	// when tests append with out-of-order timestamps.
	i := sort.Search(len(evs), func(i int) bool {
		return evs[i].Timestamp.After(at)
	})
	evs = append(evs, attendance.Event{})
	copy(evs[i+1:], evs[i:])
	evs[i] = ev
	m.events[id] = evs
	return nil
}

func (m *Memory) HourlyWage(_ context.Context, id attendance.EmployeeID) (*float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	wage, ok := m.wages[id]
	if !ok {
		return nil, attendance.ErrEmployeeNotFound
	}
	return wage, nil
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// TxMemory wraps Memory with transaction support, simulated with a
// snapshot + rollback on error.
type TxMemory struct {
	*Memory
}

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

func (tm *TxMemory) WithTx(ctx context.Context, fn func(attendance.Store) error) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	snapshot := tm.snapshot()
	view := &txMemoryView{parent: tm}

	if err := fn(view); err != nil {
		tm.restore(snapshot)
		return err
	}
	return nil
}

func (tm *TxMemory) snapshot() memorySnapshot {
	evsCopy := make(map[attendance.EmployeeID][]attendance.Event)
	for k, v := range tm.events {
		evsCopy[k] = append([]attendance.Event{}, v...)
	}
	return memorySnapshot{events: evsCopy}
}

func (tm *TxMemory) restore(s memorySnapshot) {
	tm.events = s.events
}

type memorySnapshot struct {
	events map[attendance.EmployeeID][]attendance.Event
}

// txMemoryView operates on the parent's maps while the parent's lock is
// already held by WithTx.
type txMemoryView struct {
	parent *TxMemory
}

func (tv *txMemoryView) LatestEvent(_ context.Context, id attendance.EmployeeID) (*attendance.Event, error) {
	evs := tv.parent.events[id]
	if len(evs) == 0 {
		return nil, nil
	}
	ev := evs[len(evs)-1]
	return &ev, nil
}

func (tv *txMemoryView) EventsInRange(_ context.Context, id attendance.EmployeeID, from, to time.Time) ([]attendance.Event, error) {
	var result []attendance.Event
	for _, ev := range tv.parent.events[id] {
		if !ev.Timestamp.Before(from) && ev.Timestamp.Before(to) {
			result = append(result, ev)
		}
	}
	return result, nil
}

func (tv *txMemoryView) AppendEvent(_ context.Context, id attendance.EmployeeID, t attendance.EventType, at time.Time) error {
	return tv.parent.appendLocked(id, t, at)
}

func (tv *txMemoryView) HourlyWage(_ context.Context, id attendance.EmployeeID) (*float64, error) {
	wage, ok := tv.parent.wages[id]
	if !ok {
		return nil, attendance.ErrEmployeeNotFound
	}
	return wage, nil
}
