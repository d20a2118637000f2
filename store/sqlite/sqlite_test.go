package sqlite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/auth"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// newTestStore opens a store on a throwaway database file. A file, not
// ":memory:": with connection pooling every pooled connection to ":memory:"
// would see its own empty database.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func createEmployee(t *testing.T, s *Store, name string, wage *float64) string {
	t.Helper()

	id, err := s.CreateEmployee(context.Background(), Employee{
		Name:         name,
		PasswordHash: "x",
		HourlyWage:   wage,
	})
	require.NoError(t, err)
	return id
}

func ts(hour, minute int) time.Time {
	return time.Date(2025, time.March, 10, hour, minute, 0, 0, time.UTC)
}

// =============================================================================
// ATTENDANCE EVENT LOG
// =============================================================================

func TestLatestEvent_EmptyLog_ReturnsNil(t *testing.T) {
	s := newTestStore(t)
	id := createEmployee(t, s, "alice", nil)

	ev, err := s.LatestEvent(context.Background(), attendance.EmployeeID(id))
	require.NoError(t, err)
	assert.Nil(t, ev)
}

func TestAppendEvent_ThenLatest(t *testing.T) {
	s := newTestStore(t)
	id := attendance.EmployeeID(createEmployee(t, s, "alice", nil))
	ctx := context.Background()

	require.NoError(t, s.AppendEvent(ctx, id, attendance.EventClockIn, ts(9, 0)))
	require.NoError(t, s.AppendEvent(ctx, id, attendance.EventClockOut, ts(17, 0)))

	ev, err := s.LatestEvent(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.Equal(t, attendance.EventClockOut, ev.Type)
	assert.Equal(t, id, ev.EmployeeID)
	assert.True(t, ev.Timestamp.Equal(ts(17, 0)))
	assert.NotEmpty(t, ev.ID)
}

func TestAppendEvent_InvalidType_CheckConstraintFires(t *testing.T) {
	// GIVEN: A caller bypassing the state machine with a bogus event type
	// WHEN: Inserting
	// THEN: The CHECK constraint maps to ErrInvalidEventType

	s := newTestStore(t)
	id := attendance.EmployeeID(createEmployee(t, s, "alice", nil))

	err := s.AppendEvent(context.Background(), id, attendance.EventType("lunch"), ts(12, 0))
	require.Error(t, err)
	assert.ErrorIs(t, err, attendance.ErrInvalidEventType)

	var ite *attendance.InvalidEventTypeError
	require.ErrorAs(t, err, &ite)
	assert.Equal(t, "lunch", ite.Value)
}

func TestAppendEvent_UnknownEmployee_ForeignKeyFires(t *testing.T) {
	s := newTestStore(t)

	err := s.AppendEvent(context.Background(), "ghost", attendance.EventClockIn, ts(9, 0))
	assert.ErrorIs(t, err, attendance.ErrEmployeeNotFound)
}

func TestEventsInRange_HalfOpenAscending(t *testing.T) {
	// GIVEN: Events at 09:00, 12:00 and 17:00, inserted out of order
	// WHEN: Reading [09:00, 17:00)
	// THEN: 09:00 and 12:00 come back ascending; 17:00 is excluded

	s := newTestStore(t)
	id := attendance.EmployeeID(createEmployee(t, s, "alice", nil))
	ctx := context.Background()

	require.NoError(t, s.AppendEvent(ctx, id, attendance.EventClockOut, ts(17, 0)))
	require.NoError(t, s.AppendEvent(ctx, id, attendance.EventClockIn, ts(9, 0)))
	require.NoError(t, s.AppendEvent(ctx, id, attendance.EventStartBreak, ts(12, 0)))

	events, err := s.EventsInRange(ctx, id, ts(9, 0), ts(17, 0))
	require.NoError(t, err)

	require.Len(t, events, 2)
	assert.Equal(t, attendance.EventClockIn, events[0].Type)
	assert.Equal(t, attendance.EventStartBreak, events[1].Type)
}

func TestEvents_SameSecondTimestamps_OrderedByInsertion(t *testing.T) {
	// GIVEN: Two events punched within the same second
	// WHEN: Reading the latest event and the range
	// THEN: Insertion order breaks the timestamp tie

	s := newTestStore(t)
	id := attendance.EmployeeID(createEmployee(t, s, "alice", nil))
	ctx := context.Background()

	require.NoError(t, s.AppendEvent(ctx, id, attendance.EventClockIn, ts(9, 0)))
	require.NoError(t, s.AppendEvent(ctx, id, attendance.EventStartBreak, ts(9, 0)))

	ev, err := s.LatestEvent(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.Equal(t, attendance.EventStartBreak, ev.Type)

	events, err := s.EventsInRange(ctx, id, ts(0, 0), ts(23, 59))
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, attendance.EventClockIn, events[0].Type)
	assert.Equal(t, attendance.EventStartBreak, events[1].Type)
}

func TestCorruptTimestamp_ReadsFailLoudly(t *testing.T) {
	// GIVEN: A row whose timestamp was mangled outside the store
	// WHEN: Reading it back, directly or through the aggregator
	// THEN: The reads fail and the summary is an AggregationError, never a
	//       silently wrong result

	s := newTestStore(t)
	id := attendance.EmployeeID(createEmployee(t, s, "alice", nil))
	ctx := context.Background()

	require.NoError(t, s.AppendEvent(ctx, id, attendance.EventClockIn, ts(9, 0)))
	require.NoError(t, s.AppendEvent(ctx, id, attendance.EventClockOut, ts(17, 0)))

	// Timezone stripped: sorts like a timestamp, fails RFC 3339 parsing.
	_, err := s.db.ExecContext(ctx,
		"UPDATE attendance_records SET timestamp = '2025-03-10T17:00:00' WHERE event_type = 'clock_out'")
	require.NoError(t, err)

	_, err = s.LatestEvent(ctx, id)
	assert.Error(t, err)

	_, err = s.EventsInRange(ctx, id, ts(0, 0), ts(23, 59))
	assert.Error(t, err)

	_, err = attendance.NewAggregator(s).Summarize(ctx, id,
		time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC),
		time.Date(2025, time.March, 11, 0, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, attendance.ErrAggregation)
}

func TestEventsInRange_IsolatedPerEmployee(t *testing.T) {
	s := newTestStore(t)
	alice := attendance.EmployeeID(createEmployee(t, s, "alice", nil))
	bob := attendance.EmployeeID(createEmployee(t, s, "bob", nil))
	ctx := context.Background()

	require.NoError(t, s.AppendEvent(ctx, alice, attendance.EventClockIn, ts(9, 0)))

	events, err := s.EventsInRange(ctx, bob, ts(0, 0), ts(23, 59))
	require.NoError(t, err)
	assert.Empty(t, events)
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func TestWithTx_RollbackOnError(t *testing.T) {
	// GIVEN: A transaction that appends and then fails
	// WHEN: WithTx returns
	// THEN: The append is rolled back

	s := newTestStore(t)
	id := attendance.EmployeeID(createEmployee(t, s, "alice", nil))
	ctx := context.Background()

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(tx attendance.Store) error {
		if err := tx.AppendEvent(ctx, id, attendance.EventClockIn, ts(9, 0)); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	ev, err := s.LatestEvent(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, ev)
}

func TestWithTx_CommitAndReadOwnWrites(t *testing.T) {
	s := newTestStore(t)
	id := attendance.EmployeeID(createEmployee(t, s, "alice", nil))
	ctx := context.Background()

	err := s.WithTx(ctx, func(tx attendance.Store) error {
		if err := tx.AppendEvent(ctx, id, attendance.EventClockIn, ts(9, 0)); err != nil {
			return err
		}
		// The view must see its own uncommitted write.
		ev, err := tx.LatestEvent(ctx, id)
		if err != nil {
			return err
		}
		require.NotNil(t, ev)
		assert.Equal(t, attendance.EventClockIn, ev.Type)
		return nil
	})
	require.NoError(t, err)

	ev, err := s.LatestEvent(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, ev)
}

func TestRecorder_OnSQLite_FullSequence(t *testing.T) {
	// End-to-end: the recorder's check-then-act against the real store.

	s := newTestStore(t)
	id := attendance.EmployeeID(createEmployee(t, s, "alice", nil))
	ctx := context.Background()
	rec := attendance.NewRecorder(s)

	require.NoError(t, rec.RecordEvent(ctx, id, attendance.EventClockIn))
	assert.ErrorIs(t, rec.RecordEvent(ctx, id, attendance.EventClockIn), attendance.ErrIllegalTransition)
	require.NoError(t, rec.RecordEvent(ctx, id, attendance.EventStartBreak))
	require.NoError(t, rec.RecordEvent(ctx, id, attendance.EventEndBreak))
	require.NoError(t, rec.RecordEvent(ctx, id, attendance.EventClockOut))

	st, err := rec.CurrentState(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, attendance.StateClockedOut, st)
}

// =============================================================================
// EMPLOYEES
// =============================================================================

func TestCreateEmployee_DuplicateName(t *testing.T) {
	s := newTestStore(t)
	createEmployee(t, s, "alice", nil)

	_, err := s.CreateEmployee(context.Background(), Employee{Name: "alice", PasswordHash: "x"})
	assert.ErrorIs(t, err, ErrDuplicateName)
}

func TestGetEmployee_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	wage := 21.5
	id := createEmployee(t, s, "alice", &wage)
	ctx := context.Background()

	emp, err := s.GetEmployee(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, emp)
	assert.Equal(t, "alice", emp.Name)
	require.NotNil(t, emp.HourlyWage)
	assert.Equal(t, 21.5, *emp.HourlyWage)
	assert.False(t, emp.IsAdmin)
	assert.False(t, emp.CreatedAt.IsZero())

	byName, err := s.GetEmployeeByName(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, byName)
	assert.Equal(t, id, byName.ID)
}

func TestGetEmployee_Absent_ReturnsNil(t *testing.T) {
	s := newTestStore(t)

	emp, err := s.GetEmployee(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, emp)
}

func TestHourlyWage_UnsetIsNilNotError(t *testing.T) {
	s := newTestStore(t)
	id := createEmployee(t, s, "alice", nil)

	wage, err := s.HourlyWage(context.Background(), attendance.EmployeeID(id))
	require.NoError(t, err)
	assert.Nil(t, wage)
}

func TestHourlyWage_UnknownEmployee(t *testing.T) {
	s := newTestStore(t)

	_, err := s.HourlyWage(context.Background(), "ghost")
	assert.ErrorIs(t, err, attendance.ErrEmployeeNotFound)
}

func TestUpdateEmployee(t *testing.T) {
	s := newTestStore(t)
	id := createEmployee(t, s, "alice", nil)
	ctx := context.Background()

	wage := 30.0
	require.NoError(t, s.UpdateEmployee(ctx, id, "alice2", &wage, true))

	emp, err := s.GetEmployee(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "alice2", emp.Name)
	require.NotNil(t, emp.HourlyWage)
	assert.Equal(t, 30.0, *emp.HourlyWage)
	assert.True(t, emp.IsAdmin)

	assert.ErrorIs(t, s.UpdateEmployee(ctx, "nope", "x", nil, false), attendance.ErrEmployeeNotFound)
}

func TestUpdateEmployee_NameCollision(t *testing.T) {
	s := newTestStore(t)
	createEmployee(t, s, "alice", nil)
	id := createEmployee(t, s, "bob", nil)

	err := s.UpdateEmployee(context.Background(), id, "alice", nil, false)
	assert.ErrorIs(t, err, ErrDuplicateName)
}

func TestDeleteEmployee_CascadesAttendance(t *testing.T) {
	// GIVEN: An employee with attendance rows
	// WHEN: The employee is deleted
	// THEN: The rows go with them (ON DELETE CASCADE)

	s := newTestStore(t)
	id := createEmployee(t, s, "alice", nil)
	eid := attendance.EmployeeID(id)
	ctx := context.Background()

	require.NoError(t, s.AppendEvent(ctx, eid, attendance.EventClockIn, ts(9, 0)))
	require.NoError(t, s.DeleteEmployee(ctx, id))

	events, err := s.EventsInRange(ctx, eid, ts(0, 0), ts(23, 59))
	require.NoError(t, err)
	assert.Empty(t, events)

	assert.ErrorIs(t, s.DeleteEmployee(ctx, id), attendance.ErrEmployeeNotFound)
}

func TestListEmployees(t *testing.T) {
	s := newTestStore(t)
	createEmployee(t, s, "alice", nil)
	createEmployee(t, s, "bob", nil)

	list, err := s.ListEmployees(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestReset_ClearsAllTables(t *testing.T) {
	s := newTestStore(t)
	id := createEmployee(t, s, "alice", nil)
	ctx := context.Background()

	require.NoError(t, s.AppendEvent(ctx, attendance.EmployeeID(id), attendance.EventClockIn, ts(9, 0)))
	require.NoError(t, s.Reset(ctx))

	list, err := s.ListEmployees(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

// =============================================================================
// ADMIN BOOTSTRAP
// =============================================================================

func TestEnsureAdmin_FirstRun(t *testing.T) {
	// GIVEN: A fresh database
	// WHEN: EnsureAdmin runs
	// THEN: An admin exists and the password file is written 0600 with a
	//       password that verifies against the stored hash

	s := newTestStore(t)
	dir := t.TempDir()
	ctx := context.Background()

	path, err := s.EnsureAdmin(ctx, dir)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "initial_admin_password.txt"), path)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	admin, err := s.GetEmployeeByName(ctx, "admin")
	require.NoError(t, err)
	require.NotNil(t, admin)
	assert.True(t, admin.IsAdmin)

	password := passwordFromFile(t, path)
	assert.True(t, auth.CheckPassword(admin.PasswordHash, password))
}

func TestEnsureAdmin_SecondRunIsNoop(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.EnsureAdmin(ctx, t.TempDir())
	require.NoError(t, err)

	path, err := s.EnsureAdmin(ctx, t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, path)

	list, err := s.ListEmployees(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestResetAdminPassword_ReissuesWorkingPassword(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.EnsureAdmin(ctx, t.TempDir())
	require.NoError(t, err)
	before, err := s.GetEmployeeByName(ctx, "admin")
	require.NoError(t, err)

	dir := t.TempDir()
	path, err := s.ResetAdminPassword(ctx, dir)
	require.NoError(t, err)

	after, err := s.GetEmployeeByName(ctx, "admin")
	require.NoError(t, err)
	assert.NotEqual(t, before.PasswordHash, after.PasswordHash)

	password := passwordFromFile(t, path)
	assert.True(t, auth.CheckPassword(after.PasswordHash, password))
}

func passwordFromFile(t *testing.T, path string) string {
	t.Helper()

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	for _, line := range strings.Split(string(raw), "\n") {
		if rest, ok := strings.CutPrefix(line, "password: "); ok {
			return rest
		}
	}
	t.Fatalf("no password line in %s", path)
	return ""
}

// =============================================================================
// CALENDAR EVENTS
// =============================================================================

func TestCalendarEvents_SaveListDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.SaveCalendarEvent(ctx, CalendarEvent{
		Title:       "All hands",
		Description: "Quarterly review",
		StartAt:     ts(10, 0),
		EndAt:       ts(11, 0),
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	// Update via upsert on the same id.
	_, err = s.SaveCalendarEvent(ctx, CalendarEvent{
		ID:      id,
		Title:   "All hands (moved)",
		StartAt: ts(14, 0),
		EndAt:   ts(15, 0),
	})
	require.NoError(t, err)

	events, err := s.ListCalendarEvents(ctx, ts(0, 0), ts(23, 59))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "All hands (moved)", events[0].Title)
	assert.True(t, events[0].StartAt.Equal(ts(14, 0)))

	// Outside the window.
	none, err := s.ListCalendarEvents(ctx, ts(16, 0), ts(18, 0))
	require.NoError(t, err)
	assert.Empty(t, none)

	require.NoError(t, s.DeleteCalendarEvent(ctx, id))
	events, err = s.ListCalendarEvents(ctx, ts(0, 0), ts(23, 59))
	require.NoError(t, err)
	assert.Empty(t, events)
}
