/*
handlers.go - HTTP API handlers for the attendance tracker

PURPOSE:
  Exposes the attendance engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Session:
    POST   /api/login                       Exchange credentials for a token
    POST   /api/logout                      End the session (client discards token)

  Self service (any authenticated employee):
    GET    /api/me/status                   Current attendance status
    POST   /api/me/attendance               Record clock_in/out, start/end_break
    GET    /api/me/summary?from=&to=        Own work-hour summary

  Admin:
    GET    /api/employees                   List employees
    POST   /api/employees                   Create employee
    GET    /api/employees/{id}              Get employee
    PUT    /api/employees/{id}              Update name/wage/admin flag
    DELETE /api/employees/{id}              Delete employee (events cascade)
    GET    /api/employees/{id}/status       Employee's attendance status
    GET    /api/employees/{id}/summary      Work-hour/wage summary

  Calendar:
    GET    /api/calendar/events?from=&to=   List events in range
    POST   /api/calendar/events             Create (admin)
    PUT    /api/calendar/events/{id}        Update (admin)
    DELETE /api/calendar/events/{id}        Delete (admin)

ERROR HANDLING:
  Domain errors map onto HTTP status:
  - 400: invalid event type, malformed dates, inverted range
  - 401: missing/invalid credentials or token
  - 403: non-admin calling an admin endpoint
  - 404: unknown employee
  - 409: illegal attendance transition, duplicate employee name
  - 500: store faults, aggregation faults

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/auth"
	"github.com/warp/attendance-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store      *sqlite.Store
	Recorder   *attendance.Recorder
	Aggregator *attendance.Aggregator
	Tokens     *auth.TokenManager
}

// NewHandler wires the engine components around the given store.
func NewHandler(store *sqlite.Store, tokens *auth.TokenManager) *Handler {
	return &Handler{
		Store:      store,
		Recorder:   attendance.NewRecorder(store),
		Aggregator: attendance.NewAggregator(store),
		Tokens:     tokens,
	}
}

// =============================================================================
// SESSION HANDLERS
// =============================================================================

// Login verifies credentials and issues a session token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	emp, err := h.Store.GetEmployeeByName(r.Context(), req.Name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to look up employee", err)
		return
	}
	if emp == nil || !auth.CheckPassword(emp.PasswordHash, req.Password) {
		// Same response for unknown name and wrong password.
		writeError(w, http.StatusUnauthorized, "Invalid name or password", nil)
		return
	}

	identity := auth.Identity{EmployeeID: emp.ID, Name: emp.Name, IsAdmin: emp.IsAdmin}
	token, err := h.Tokens.Issue(identity)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to issue token", err)
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{
		Token: token,
		User:  UserDTO{ID: emp.ID, Name: emp.Name, IsAdmin: emp.IsAdmin},
	})
}

// Logout ends the session. Tokens are stateless, so this only gives the
// client a definite point at which to discard the token.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// SELF-SERVICE ATTENDANCE HANDLERS
// =============================================================================

// MyStatus returns the caller's current attendance status.
func (h *Handler) MyStatus(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not logged in", nil)
		return
	}
	h.writeStatus(w, r, attendance.EmployeeID(identity.EmployeeID))
}

// EmployeeStatus returns any employee's status (admin).
func (h *Handler) EmployeeStatus(w http.ResponseWriter, r *http.Request) {
	h.writeStatus(w, r, attendance.EmployeeID(chi.URLParam(r, "id")))
}

func (h *Handler) writeStatus(w http.ResponseWriter, r *http.Request, id attendance.EmployeeID) {
	status, err := h.Recorder.CurrentStatus(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read status", err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{Status: string(status)})
}

// RecordAttendance records one attendance event for the caller.
func (h *Handler) RecordAttendance(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not logged in", nil)
		return
	}

	var req RecordEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	eventType, err := attendance.ParseEventType(req.EventType)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid event type", err)
		return
	}

	err = h.Recorder.RecordEvent(r.Context(), attendance.EmployeeID(identity.EmployeeID), eventType)
	if err != nil {
		var illegal *attendance.IllegalTransitionError
		switch {
		case errors.As(err, &illegal):
			writeJSON(w, http.StatusConflict, ErrorResponse{
				Error:   illegal.Error(),
				Code:    "illegal_transition",
				Details: map[string]any{"state": illegal.State, "allowed": illegal.Allowed},
			})
		case attendance.IsNotFound(err):
			writeError(w, http.StatusNotFound, "Employee not found", err)
		default:
			writeError(w, http.StatusInternalServerError, "Failed to record attendance", err)
		}
		return
	}

	w.WriteHeader(http.StatusCreated)
}

// MySummary returns the caller's own work-hour summary.
func (h *Handler) MySummary(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not logged in", nil)
		return
	}
	h.writeSummary(w, r, attendance.EmployeeID(identity.EmployeeID))
}

// EmployeeSummary returns any employee's summary (admin).
func (h *Handler) EmployeeSummary(w http.ResponseWriter, r *http.Request) {
	h.writeSummary(w, r, attendance.EmployeeID(chi.URLParam(r, "id")))
}

// writeSummary parses ?from=&to= (calendar dates, `to` inclusive - the +1
// day that makes the core's half-open range happens here) and writes the
// aggregated series.
func (h *Handler) writeSummary(w http.ResponseWriter, r *http.Request, id attendance.EmployeeID) {
	from, err := time.Parse("2006-01-02", r.URL.Query().Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid from date (use YYYY-MM-DD)", err)
		return
	}
	to, err := time.Parse("2006-01-02", r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid to date (use YYYY-MM-DD)", err)
		return
	}

	summary, err := h.Aggregator.Summarize(r.Context(), id, from, to.AddDate(0, 0, 1))
	if err != nil {
		switch {
		case errors.Is(err, attendance.ErrInvalidRange):
			writeError(w, http.StatusBadRequest, "Start date is after end date", err)
		case attendance.IsNotFound(err):
			writeError(w, http.StatusNotFound, "Employee not found", err)
		default:
			writeError(w, http.StatusInternalServerError, "Failed to aggregate attendance", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, toSummaryDTO(summary))
}

// =============================================================================
// EMPLOYEE ADMIN HANDLERS
// =============================================================================

// ListEmployees returns all employees.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Store.ListEmployees(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list employees", err)
		return
	}

	dtos := make([]EmployeeDTO, len(employees))
	for i, e := range employees {
		dtos[i] = toEmployeeDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetEmployee returns a single employee.
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	emp, err := h.Store.GetEmployee(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get employee", err)
		return
	}
	if emp == nil {
		writeError(w, http.StatusNotFound, "Employee not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(*emp))
}

// CreateEmployee creates a new employee account.
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req CreateEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Name and password are required", nil)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to hash password", err)
		return
	}

	id, err := h.Store.CreateEmployee(r.Context(), sqlite.Employee{
		Name:         req.Name,
		PasswordHash: hash,
		HourlyWage:   req.HourlyWage,
		IsAdmin:      req.IsAdmin,
	})
	if err != nil {
		if errors.Is(err, sqlite.ErrDuplicateName) {
			writeError(w, http.StatusConflict, "Employee name already in use", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to create employee", err)
		return
	}

	writeJSON(w, http.StatusCreated, EmployeeDTO{
		ID:         id,
		Name:       req.Name,
		HourlyWage: req.HourlyWage,
		IsAdmin:    req.IsAdmin,
	})
}

// UpdateEmployee updates an employee's name, wage, or admin flag.
func (h *Handler) UpdateEmployee(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req UpdateEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required", nil)
		return
	}

	err := h.Store.UpdateEmployee(r.Context(), id, req.Name, req.HourlyWage, req.IsAdmin)
	if err != nil {
		switch {
		case attendance.IsNotFound(err):
			writeError(w, http.StatusNotFound, "Employee not found", err)
		case errors.Is(err, sqlite.ErrDuplicateName):
			writeError(w, http.StatusConflict, "Employee name already in use", err)
		default:
			writeError(w, http.StatusInternalServerError, "Failed to update employee", err)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DeleteEmployee removes an employee and, via cascade, their events.
func (h *Handler) DeleteEmployee(w http.ResponseWriter, r *http.Request) {
	err := h.Store.DeleteEmployee(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if attendance.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "Employee not found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete employee", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// CALENDAR EVENT HANDLERS
// =============================================================================

// ListCalendarEvents returns events overlapping ?from=&to= (inclusive dates).
func (h *Handler) ListCalendarEvents(w http.ResponseWriter, r *http.Request) {
	from, err := time.Parse("2006-01-02", r.URL.Query().Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid from date (use YYYY-MM-DD)", err)
		return
	}
	to, err := time.Parse("2006-01-02", r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid to date (use YYYY-MM-DD)", err)
		return
	}

	events, err := h.Store.ListCalendarEvents(r.Context(), from, to.AddDate(0, 0, 1))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list calendar events", err)
		return
	}

	dtos := make([]CalendarEventDTO, len(events))
	for i, ev := range events {
		dtos[i] = toCalendarEventDTO(ev)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateCalendarEvent creates a calendar event.
func (h *Handler) CreateCalendarEvent(w http.ResponseWriter, r *http.Request) {
	h.saveCalendarEvent(w, r, "")
}

// UpdateCalendarEvent updates an existing calendar event.
func (h *Handler) UpdateCalendarEvent(w http.ResponseWriter, r *http.Request) {
	h.saveCalendarEvent(w, r, chi.URLParam(r, "id"))
}

func (h *Handler) saveCalendarEvent(w http.ResponseWriter, r *http.Request, id string) {
	var req CalendarEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "Title is required", nil)
		return
	}

	startAt, err := time.Parse(time.RFC3339, req.StartAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start_at (use RFC 3339)", err)
		return
	}
	endAt, err := time.Parse(time.RFC3339, req.EndAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end_at (use RFC 3339)", err)
		return
	}
	if endAt.Before(startAt) {
		writeError(w, http.StatusBadRequest, "end_at is before start_at", nil)
		return
	}

	ev := sqlite.CalendarEvent{
		ID:          id,
		Title:       req.Title,
		Description: req.Description,
		StartAt:     startAt,
		EndAt:       endAt,
		IsAllDay:    req.IsAllDay,
	}

	savedID, err := h.Store.SaveCalendarEvent(r.Context(), ev)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save calendar event", err)
		return
	}
	ev.ID = savedID

	status := http.StatusCreated
	if id != "" {
		status = http.StatusOK
	}
	writeJSON(w, status, toCalendarEventDTO(ev))
}

// DeleteCalendarEvent removes a calendar event.
func (h *Handler) DeleteCalendarEvent(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteCalendarEvent(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete calendar event", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
