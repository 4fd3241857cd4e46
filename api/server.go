/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/teams/*      Teams and team capacity
  /api/roles/*      Roles
  /api/quarters/*   Quarters
  /api/members/*    Members and member capacity
  /api/tasks/*      Tasks
  /api/variants/*   Plan variants
  /api/board/*      Planning board and drag-and-drop
  /api/scenarios/*  Demo scenarios
  /api/reset        Database reset (dev only)

SECURITY NOTE:
  No authentication middleware. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	AllowedOrigins []string
	// AccessLog enables chi's request logger.
	AccessLog bool
}

// DefaultAllowedOrigins are the local frontend dev servers.
var DefaultAllowedOrigins = []string{"http://localhost:5173", "http://localhost:8080"}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = DefaultAllowedOrigins
	}

	r := chi.NewRouter()

	// Middleware
	if opts.AccessLog {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/teams", func(r chi.Router) {
			r.Get("/", h.ListTeams)
			r.Post("/", h.CreateTeam)
			r.Put("/{id}", h.UpdateTeam)
			r.Delete("/{id}", h.DeleteTeam)
			r.Get("/{id}/capacity", h.GetTeamCapacity)
			r.Put("/{id}/capacities/{quarterId}", h.SaveTeamCapacity)
		})

		r.Route("/roles", func(r chi.Router) {
			r.Get("/", h.ListRoles)
			r.Post("/", h.CreateRole)
			r.Put("/{id}", h.UpdateRole)
			r.Delete("/{id}", h.DeleteRole)
		})

		r.Route("/quarters", func(r chi.Router) {
			r.Get("/", h.ListQuarters)
			r.Post("/", h.CreateQuarter)
			r.Put("/{id}", h.UpdateQuarter)
			r.Delete("/{id}", h.DeleteQuarter)
		})

		r.Route("/members", func(r chi.Router) {
			r.Get("/", h.ListMembers)
			r.Post("/", h.CreateMember)
			r.Put("/{id}", h.UpdateMember)
			r.Delete("/{id}", h.DeleteMember)
			r.Put("/{id}/capacities/{quarterId}", h.SaveMemberCapacity)
		})

		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", h.ListTasks)
			r.Post("/", h.CreateTask)
			r.Put("/{id}", h.UpdateTask)
			r.Post("/delete", h.DeleteTasks)
		})

		r.Route("/variants", func(r chi.Router) {
			r.Get("/", h.ListVariants)
			r.Post("/", h.CreateVariant)
			r.Put("/{id}", h.UpdateVariant)
			r.Delete("/{id}", h.DeleteVariant)
			r.Post("/{id}/main", h.SetMainVariant)
		})

		r.Route("/board", func(r chi.Router) {
			r.Get("/", h.GetBoard)
			r.Post("/drop", h.Drop)
		})

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})

		r.Post("/reset", h.ResetDatabase)
	})

	return r
}
