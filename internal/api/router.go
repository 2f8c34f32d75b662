package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	metrics "github.com/medibridge/appointment-scheduling/internal/observability/metrics"
)

type RouterConfig struct {
	Matcher   MatcherService
	Bookings  BookingService
	Calendar  CalendarService
	Directory DirectoryService
	Metrics   *metrics.SchedulingMetrics
	PgPool    *pgxpool.Pool
	Redis     *redis.Client
	Env       string
	Version   string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply middleware
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)

	// Health and metrics endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	// Doctor directory + availability calendar
	r.Post("/doctors", createDoctorHandler(cfg.Directory))
	r.Get("/doctors", listDoctorsHandler(cfg.Directory))
	r.Get("/doctors/{id}/availability", getAvailabilityHandler(cfg.Calendar))
	r.Put("/doctors/{id}/availability", putAvailabilityHandler(cfg.Calendar))
	r.Get("/doctors/{id}/appointments", listDoctorAppointmentsHandler(cfg.Bookings))

	// Search + booking
	r.Get("/appointments/search", searchHandler(cfg.Matcher, cfg.Metrics))
	r.Post("/appointments", bookAppointmentHandler(cfg.Bookings, cfg.Metrics))
	r.Get("/appointments/{id}", getAppointmentHandler(cfg.Bookings))
	r.Post("/appointments/{id}/cancel", cancelAppointmentHandler(cfg.Bookings))
	r.Post("/appointments/{id}/complete", completeAppointmentHandler(cfg.Bookings))

	r.Get("/patients/{id}/appointments", listPatientAppointmentsHandler(cfg.Bookings))

	return r
}
