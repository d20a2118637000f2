/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the frontend

ROUTE GROUPS:
  /api/login, /api/logout   Session
  /api/me/*                 Self-service attendance (authenticated)
  /api/employees/*          Employee admin (admin only)
  /api/calendar/*           Calendar events (read: any, write: admin)

SEE ALSO:
  - handlers.go: Handler implementations
  - auth/middleware.go: RequireAuth / RequireAdmin
  - cmd/server/main.go: Server startup
*/
package api

import (
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/warp/attendance-engine/auth"
)

// NewRouter creates a new router with all routes configured.
// allowedOrigins is a comma-separated list for CORS.
func NewRouter(h *Handler, allowedOrigins string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   strings.Split(allowedOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		// Session
		r.Post("/login", h.Login)

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(h.Tokens))

			r.Post("/logout", h.Logout)

			// Self service
			r.Route("/me", func(r chi.Router) {
				r.Get("/status", h.MyStatus)
				r.Post("/attendance", h.RecordAttendance)
				r.Get("/summary", h.MySummary)
			})

			// Calendar (read for everyone, write for admins)
			r.Route("/calendar/events", func(r chi.Router) {
				r.Get("/", h.ListCalendarEvents)

				r.Group(func(r chi.Router) {
					r.Use(auth.RequireAdmin)
					r.Post("/", h.CreateCalendarEvent)
					r.Put("/{id}", h.UpdateCalendarEvent)
					r.Delete("/{id}", h.DeleteCalendarEvent)
				})
			})

			// Employee admin
			r.Route("/employees", func(r chi.Router) {
				r.Use(auth.RequireAdmin)

				r.Get("/", h.ListEmployees)
				r.Post("/", h.CreateEmployee)
				r.Get("/{id}", h.GetEmployee)
				r.Put("/{id}", h.UpdateEmployee)
				r.Delete("/{id}", h.DeleteEmployee)
				r.Get("/{id}/status", h.EmployeeStatus)
				r.Get("/{id}/summary", h.EmployeeSummary)
			})
		})
	})

	return r
}
