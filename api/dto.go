package api

import (
	"time"

	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/store/sqlite"
)

// =============================================================================
// REQUEST DTOs
// =============================================================================

// LoginRequest carries employee credentials.
type LoginRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

// RecordEventRequest submits one attendance event for the caller.
type RecordEventRequest struct {
	EventType string `json:"event_type"`
}

// CreateEmployeeRequest creates a new employee account.
type CreateEmployeeRequest struct {
	Name       string   `json:"name"`
	Password   string   `json:"password"`
	HourlyWage *float64 `json:"hourly_wage"`
	IsAdmin    bool     `json:"is_admin"`
}

// UpdateEmployeeRequest updates an employee's record.
type UpdateEmployeeRequest struct {
	Name       string   `json:"name"`
	HourlyWage *float64 `json:"hourly_wage"`
	IsAdmin    bool     `json:"is_admin"`
}

// CalendarEventRequest creates or updates a calendar event.
type CalendarEventRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	StartAt     string `json:"start_at"` // RFC 3339
	EndAt       string `json:"end_at"`   // RFC 3339
	IsAllDay    bool   `json:"is_all_day"`
}

// =============================================================================
// RESPONSE DTOs
// =============================================================================

// UserDTO is the caller-visible slice of an employee account.
type UserDTO struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	IsAdmin bool   `json:"is_admin"`
}

// LoginResponse returns the session token and the logged-in user.
type LoginResponse struct {
	Token string  `json:"token"`
	User  UserDTO `json:"user"`
}

// StatusResponse mirrors the latest attendance event, or "none".
type StatusResponse struct {
	Status string `json:"status"`
}

// EmployeeDTO is the admin view of an employee record.
type EmployeeDTO struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	HourlyWage *float64 `json:"hourly_wage"`
	IsAdmin    bool     `json:"is_admin"`
	CreatedAt  string   `json:"created_at"`
}

// SummaryDTO is the daily work series plus totals for a date range.
type SummaryDTO struct {
	Labels  []string        `json:"labels"`
	Data    []float64       `json:"data"`
	Summary SummaryTotalDTO `json:"summary"`
}

type SummaryTotalDTO struct {
	TotalHours float64 `json:"total_hours"`
	TotalWage  float64 `json:"total_wage"`
	HourlyWage float64 `json:"hourly_wage"`
}

// CalendarEventDTO is a calendar entry.
type CalendarEventDTO struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	StartAt     string `json:"start_at"`
	EndAt       string `json:"end_at"`
	IsAllDay    bool   `json:"is_all_day"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toEmployeeDTO(e sqlite.Employee) EmployeeDTO {
	return EmployeeDTO{
		ID:         e.ID,
		Name:       e.Name,
		HourlyWage: e.HourlyWage,
		IsAdmin:    e.IsAdmin,
		CreatedAt:  e.CreatedAt.Format(time.RFC3339),
	}
}

func toSummaryDTO(s *attendance.Summary) SummaryDTO {
	return SummaryDTO{
		Labels: s.Labels,
		Data:   s.Hours,
		Summary: SummaryTotalDTO{
			TotalHours: s.TotalHours,
			TotalWage:  s.TotalWage,
			HourlyWage: s.HourlyWage,
		},
	}
}

func toCalendarEventDTO(ev sqlite.CalendarEvent) CalendarEventDTO {
	return CalendarEventDTO{
		ID:          ev.ID,
		Title:       ev.Title,
		Description: ev.Description,
		StartAt:     ev.StartAt.Format(time.RFC3339),
		EndAt:       ev.EndAt.Format(time.RFC3339),
		IsAllDay:    ev.IsAllDay,
	}
}
