/*
Package sqlite provides the SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements attendance.TxStore plus the surrounding CRUD the application
  needs (employee records, calendar events). In production the same
  patterns apply to PostgreSQL - only minor SQL dialect differences.

SCHEMA:
  employees:          Accounts with bcrypt password hash and hourly wage
  attendance_records: Append-only event log (FK + CHECK enforced)
  calendar_events:    Shared calendar entries

CONSTRAINT MAPPING:
  The database is the last line of defense behind the state machine:
  - CHECK(event_type IN ...)  -> attendance.ErrInvalidEventType
  - FOREIGN KEY(employee_id)  -> attendance.ErrEmployeeNotFound
  - UNIQUE(name)              -> ErrDuplicateName

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  multiple readers don't block, single writer at a time, better crash
  recovery.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety on top of the per-employee
  serialization the recorder already provides. WithTx runs the recorder's
  check-then-act atomically inside a database transaction.

USAGE:
  store, err := sqlite.New("./data/attendance.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - attendance/store.go:     Interface definitions
  - attendance/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/attendance-engine/attendance"
)

// ErrDuplicateName is returned when an employee name is already taken.
var ErrDuplicateName = fmt.Errorf("employee name already in use")

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Employees (accounts)
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		hourly_wage REAL,
		is_admin INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	-- Attendance records (append-only event log)
	CREATE TABLE IF NOT EXISTS attendance_records (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL
			REFERENCES employees(id) ON DELETE CASCADE,
		event_type TEXT NOT NULL
			CHECK (event_type IN ('clock_in','clock_out','start_break','end_break')),
		timestamp TEXT NOT NULL
	);

	-- Hot path: latest-event lookup and range reads per employee
	CREATE INDEX IF NOT EXISTS idx_attendance_employee_time
		ON attendance_records(employee_id, timestamp);

	-- Calendar events (shared calendar)
	CREATE TABLE IF NOT EXISTS calendar_events (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT,
		start_at TEXT NOT NULL,
		end_at TEXT NOT NULL,
		is_all_day INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_calendar_events_start
		ON calendar_events(start_at);
	CREATE INDEX IF NOT EXISTS idx_calendar_events_end
		ON calendar_events(end_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// ATTENDANCE STORE (attendance.Store interface)
// =============================================================================

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// LatestEvent returns the most recent event for an employee, or nil.
func (s *Store) LatestEvent(ctx context.Context, id attendance.EmployeeID) (*attendance.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return latestEvent(ctx, s.db, id)
}

func latestEvent(ctx context.Context, db querier, id attendance.EmployeeID) (*attendance.Event, error) {
	// RFC 3339 stores second precision, so two events inside one second tie
	// on timestamp; rowid breaks the tie by insertion order.
	query := `
		SELECT id, employee_id, event_type, timestamp
		FROM attendance_records
		WHERE employee_id = ?
		ORDER BY timestamp DESC, rowid DESC
		LIMIT 1
	`

	row := db.QueryRowContext(ctx, query, id)
	ev, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest event: %w", err)
	}
	return ev, nil
}

// EventsInRange returns events with from <= timestamp < to, ascending.
func (s *Store) EventsInRange(ctx context.Context, id attendance.EmployeeID, from, to time.Time) ([]attendance.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return eventsInRange(ctx, s.db, id, from, to)
}

func eventsInRange(ctx context.Context, db querier, id attendance.EmployeeID, from, to time.Time) ([]attendance.Event, error) {
	query := `
		SELECT id, employee_id, event_type, timestamp
		FROM attendance_records
		WHERE employee_id = ? AND timestamp >= ? AND timestamp < ?
		ORDER BY timestamp ASC, rowid ASC
	`

	rows, err := db.QueryContext(ctx, query, id,
		from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []attendance.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *ev)
	}
	return events, rows.Err()
}

// AppendEvent appends one attendance event. The CHECK and FOREIGN KEY
// constraints fire for invalid event types and missing employees even if
// the caller bypassed the state machine.
func (s *Store) AppendEvent(ctx context.Context, id attendance.EmployeeID, t attendance.EventType, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return appendEvent(ctx, s.db, id, t, at)
}

func appendEvent(ctx context.Context, db querier, id attendance.EmployeeID, t attendance.EventType, at time.Time) error {
	query := `
		INSERT INTO attendance_records (id, employee_id, event_type, timestamp)
		VALUES (?, ?, ?, ?)
	`

	_, err := db.ExecContext(ctx, query,
		uuid.NewString(), id, t, at.UTC().Format(time.RFC3339))
	if err != nil {
		if isCheckConstraintError(err) {
			return &attendance.InvalidEventTypeError{Value: string(t)}
		}
		if isForeignKeyError(err) {
			return attendance.ErrEmployeeNotFound
		}
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

// HourlyWage returns the employee's current wage, or nil when unset.
func (s *Store) HourlyWage(ctx context.Context, id attendance.EmployeeID) (*float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return hourlyWage(ctx, s.db, id)
}

func hourlyWage(ctx context.Context, db querier, id attendance.EmployeeID) (*float64, error) {
	var wage sql.NullFloat64
	err := db.QueryRowContext(ctx,
		"SELECT hourly_wage FROM employees WHERE id = ?", id,
	).Scan(&wage)

	if err == sql.ErrNoRows {
		return nil, attendance.ErrEmployeeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query wage: %w", err)
	}
	if !wage.Valid {
		return nil, nil
	}
	return &wage.Float64, nil
}

// =============================================================================
// TRANSACTIONAL STORE (attendance.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store attendance.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	// The view queries through the open sql.Tx directly; taking the store
	// mutex again here would deadlock.
	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}

	return sqlTx.Commit()
}

type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) LatestEvent(ctx context.Context, id attendance.EmployeeID) (*attendance.Event, error) {
	return latestEvent(ctx, ts.tx, id)
}

func (ts *txStore) EventsInRange(ctx context.Context, id attendance.EmployeeID, from, to time.Time) ([]attendance.Event, error) {
	return eventsInRange(ctx, ts.tx, id, from, to)
}

func (ts *txStore) AppendEvent(ctx context.Context, id attendance.EmployeeID, t attendance.EventType, at time.Time) error {
	return appendEvent(ctx, ts.tx, id, t, at)
}

func (ts *txStore) HourlyWage(ctx context.Context, id attendance.EmployeeID) (*float64, error) {
	return hourlyWage(ctx, ts.tx, id)
}

// =============================================================================
// EMPLOYEE STORE
// =============================================================================

// Employee represents an employee account record.
type Employee struct {
	ID           string
	Name         string
	PasswordHash string
	HourlyWage   *float64
	IsAdmin      bool
	CreatedAt    time.Time
}

// CreateEmployee inserts a new employee. The password must already be
// hashed by the caller.
func (s *Store) CreateEmployee(ctx context.Context, emp Employee) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if emp.ID == "" {
		emp.ID = uuid.NewString()
	}

	query := `
		INSERT INTO employees (id, name, password_hash, hourly_wage, is_admin, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		emp.ID, emp.Name, emp.PasswordHash, nullFloat(emp.HourlyWage), emp.IsAdmin,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return "", ErrDuplicateName
		}
		return "", fmt.Errorf("failed to create employee: %w", err)
	}
	return emp.ID, nil
}

// GetEmployee retrieves an employee by ID, or nil when absent.
func (s *Store) GetEmployee(ctx context.Context, id string) (*Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.getEmployeeWhere(ctx, "id = ?", id)
}

// GetEmployeeByName retrieves an employee by unique name, or nil.
func (s *Store) GetEmployeeByName(ctx context.Context, name string) (*Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.getEmployeeWhere(ctx, "name = ?", name)
}

func (s *Store) getEmployeeWhere(ctx context.Context, where string, arg any) (*Employee, error) {
	var (
		emp       Employee
		wage      sql.NullFloat64
		createdAt string
	)

	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, password_hash, hourly_wage, is_admin, created_at FROM employees WHERE "+where,
		arg,
	).Scan(&emp.ID, &emp.Name, &emp.PasswordHash, &wage, &emp.IsAdmin, &createdAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get employee: %w", err)
	}

	if wage.Valid {
		emp.HourlyWage = &wage.Float64
	}
	emp.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &emp, nil
}

// ListEmployees returns all employees ordered by creation.
func (s *Store) ListEmployees(ctx context.Context) ([]Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, password_hash, hourly_wage, is_admin, created_at FROM employees ORDER BY created_at, name",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var employees []Employee
	for rows.Next() {
		var (
			emp       Employee
			wage      sql.NullFloat64
			createdAt string
		)
		if err := rows.Scan(&emp.ID, &emp.Name, &emp.PasswordHash, &wage, &emp.IsAdmin, &createdAt); err != nil {
			return nil, err
		}
		if wage.Valid {
			emp.HourlyWage = &wage.Float64
		}
		emp.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		employees = append(employees, emp)
	}
	return employees, rows.Err()
}

// UpdateEmployee updates name, wage and admin flag.
func (s *Store) UpdateEmployee(ctx context.Context, id string, name string, wage *float64, isAdmin bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"UPDATE employees SET name = ?, hourly_wage = ?, is_admin = ? WHERE id = ?",
		name, nullFloat(wage), isAdmin, id,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrDuplicateName
		}
		return fmt.Errorf("failed to update employee: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return attendance.ErrEmployeeNotFound
	}
	return nil
}

// UpdatePasswordHash replaces an employee's password hash.
func (s *Store) UpdatePasswordHash(ctx context.Context, id string, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"UPDATE employees SET password_hash = ? WHERE id = ?", hash, id)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return attendance.ErrEmployeeNotFound
	}
	return nil
}

// DeleteEmployee removes an employee. Attendance records cascade.
func (s *Store) DeleteEmployee(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM employees WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete employee: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return attendance.ErrEmployeeNotFound
	}
	return nil
}

// =============================================================================
// CALENDAR EVENT STORE
// =============================================================================

// CalendarEvent is a shared calendar entry.
type CalendarEvent struct {
	ID          string
	Title       string
	Description string
	StartAt     time.Time
	EndAt       time.Time
	IsAllDay    bool
	CreatedAt   time.Time
}

// SaveCalendarEvent inserts or updates a calendar event.
func (s *Store) SaveCalendarEvent(ctx context.Context, ev CalendarEvent) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}

	query := `
		INSERT INTO calendar_events (id, title, description, start_at, end_at, is_all_day, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			start_at = excluded.start_at,
			end_at = excluded.end_at,
			is_all_day = excluded.is_all_day
	`

	_, err := s.db.ExecContext(ctx, query,
		ev.ID, ev.Title, ev.Description,
		ev.StartAt.UTC().Format(time.RFC3339),
		ev.EndAt.UTC().Format(time.RFC3339),
		ev.IsAllDay,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return "", fmt.Errorf("failed to save calendar event: %w", err)
	}
	return ev.ID, nil
}

// ListCalendarEvents returns events overlapping [from, to), ascending by start.
func (s *Store) ListCalendarEvents(ctx context.Context, from, to time.Time) ([]CalendarEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, title, description, start_at, end_at, is_all_day, created_at
		FROM calendar_events
		WHERE start_at < ? AND end_at >= ?
		ORDER BY start_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query,
		to.UTC().Format(time.RFC3339), from.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []CalendarEvent
	for rows.Next() {
		var (
			ev                       CalendarEvent
			desc                     sql.NullString
			startAt, endAt, createdAt string
		)
		if err := rows.Scan(&ev.ID, &ev.Title, &desc, &startAt, &endAt, &ev.IsAllDay, &createdAt); err != nil {
			return nil, err
		}
		ev.Description = desc.String
		ev.StartAt, _ = time.Parse(time.RFC3339, startAt)
		ev.EndAt, _ = time.Parse(time.RFC3339, endAt)
		ev.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		events = append(events, ev)
	}
	return events, rows.Err()
}

// DeleteCalendarEvent removes a calendar event.
func (s *Store) DeleteCalendarEvent(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM calendar_events WHERE id = ?", id)
	return err
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"attendance_records", "calendar_events", "employees"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*attendance.Event, error) {
	var (
		ev        attendance.Event
		timestamp string
	)
	if err := row.Scan(&ev.ID, &ev.EmployeeID, &ev.Type, &timestamp); err != nil {
		return nil, err
	}
	// A row the store didn't write can carry a malformed timestamp. Silently
	// zeroing it would feed wrong data into the aggregator, so fail the read.
	var err error
	ev.Timestamp, err = time.Parse(time.RFC3339, timestamp)
	if err != nil {
		return nil, fmt.Errorf("failed to parse timestamp of event %s: %w", ev.ID, err)
	}
	return &ev, nil
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isCheckConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "CHECK constraint failed")
}

func isForeignKeyError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
