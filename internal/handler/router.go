package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/tolga/reserva/internal/auth"
	"github.com/tolga/reserva/internal/middleware"
	"github.com/tolga/reserva/internal/model"
)

// RouterDeps collects everything the router wires together.
type RouterDeps struct {
	Auth         *AuthHandler
	Reservations *ReservationHandler
	Rooms        *RoomHandler
	Departments  *DepartmentHandler
	Users        *UserHandler
	Reports      *ReportHandler
	Tokens       *auth.TokenManager
	Logger       zerolog.Logger
	CORSOrigins  []string
}

// NewRouter builds the HTTP routing tree.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.Recover(respondError))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	authenticated := middleware.Authenticate(deps.Tokens, respondError)
	moderatorOnly := middleware.RequireModerator(respondError)
	adminOnly := middleware.RequireRole(respondError, model.RoleAdmin)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/register", deps.Auth.Register)
		r.Post("/auth/login", deps.Auth.Login)
		r.Post("/auth/refresh", deps.Auth.Refresh)
		r.Post("/auth/password-reset", deps.Auth.RequestPasswordReset)
		r.Post("/auth/password-reset/confirm", deps.Auth.ConfirmPasswordReset)

		r.Group(func(r chi.Router) {
			r.Use(authenticated)

			r.Get("/auth/me", deps.Auth.Me)

			r.Route("/reservations", func(r chi.Router) {
				r.Get("/", deps.Reservations.List)
				r.Post("/", deps.Reservations.Create)
				r.Get("/{id}", deps.Reservations.Get)
				r.Put("/{id}", deps.Reservations.Update)
				r.Delete("/{id}", deps.Reservations.Cancel)
				r.With(moderatorOnly).Post("/{id}/approve", deps.Reservations.Approve)
				r.With(moderatorOnly).Post("/{id}/reject", deps.Reservations.Reject)
			})

			r.Route("/rooms", func(r chi.Router) {
				r.Get("/", deps.Rooms.List)
				r.Get("/available", deps.Rooms.Available)
				r.Get("/{id}", deps.Rooms.Get)
				r.Get("/{id}/availability", deps.Rooms.Availability)
				r.With(adminOnly).Post("/", deps.Rooms.Create)
				r.With(adminOnly).Patch("/{id}", deps.Rooms.Update)
				r.With(adminOnly).Delete("/{id}", deps.Rooms.Delete)
			})

			r.Route("/departments", func(r chi.Router) {
				r.Get("/", deps.Departments.List)
				r.Get("/{id}", deps.Departments.Get)
				r.With(adminOnly).Post("/", deps.Departments.Create)
				r.With(adminOnly).Patch("/{id}", deps.Departments.Update)
				r.With(adminOnly).Delete("/{id}", deps.Departments.Delete)
			})

			r.Route("/users", func(r chi.Router) {
				r.Use(adminOnly)
				r.Get("/", deps.Users.List)
				r.Post("/", deps.Users.Create)
				r.Get("/{id}", deps.Users.Get)
				r.Put("/{id}/role", deps.Users.ChangeRole)
			})

			r.Route("/reports", func(r chi.Router) {
				r.Use(moderatorOnly)
				r.Get("/usage", deps.Reports.Usage)
				r.Get("/occupancy", deps.Reports.Occupancy)
				r.Get("/department-usage", deps.Reports.Departments)
				r.Get("/user-activity", deps.Reports.Users)
				r.Get("/statistics", deps.Reports.Statistics)
			})
		})
	})

	return r
}
