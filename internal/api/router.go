package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/mindwell/clinic-scheduling/internal/scheduling"
)

type RouterConfig struct {
	Booking   *scheduling.Service
	Schedule  *scheduling.ScheduleQuery
	Clock     scheduling.Clock
	PgPool    *pgxpool.Pool
	Redis     *redis.Client
	JWTSecret string
	Env       string
	Version   string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply middleware
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Everything else requires a bearer token
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.JWTSecret))

		r.Route("/appointments", func(r chi.Router) {
			r.Post("/", createAppointmentHandler(cfg.Booking))
			r.Get("/", listAppointmentsHandler(cfg.Booking))
			r.Get("/upcoming", upcomingAppointmentsHandler(cfg.Booking))
			r.Get("/history", appointmentHistoryHandler(cfg.Booking))
			r.Get("/{id}", getAppointmentHandler(cfg.Booking))
			r.Post("/{id}/confirm", confirmAppointmentHandler(cfg.Booking))
			r.Post("/{id}/cancel", cancelAppointmentHandler(cfg.Booking))
			r.Post("/{id}/complete", completeAppointmentHandler(cfg.Booking))
			r.Post("/{id}/no-show", noShowAppointmentHandler(cfg.Booking))
		})

		r.Route("/availability", func(r chi.Router) {
			r.Get("/", listAvailabilityHandler(cfg.Booking))
			r.Post("/", createAvailabilityHandler(cfg.Booking))
			r.Put("/{id}", updateAvailabilityHandler(cfg.Booking))
			r.Post("/{id}/block-date", blockDateHandler(cfg.Booking, true))
			r.Post("/{id}/unblock-date", blockDateHandler(cfg.Booking, false))
		})

		r.Get("/search-psychologists", searchProfessionalsHandler(cfg.Schedule))
		r.Get("/psychologists/{id}/schedule", weeklyScheduleHandler(cfg.Schedule, cfg.Clock))
	})

	return r
}
