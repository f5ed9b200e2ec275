package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/agendaflow/clinic-scheduler/internal/scheduling"
	"github.com/agendaflow/clinic-scheduler/internal/waitlist"
)

type RouterConfig struct {
	Booking      *scheduling.BookingService
	Waitlist     *waitlist.Manager
	Resolver     TenantResolver
	PgPool       *pgxpool.Pool
	Redis        *redis.Client
	Registry     *prometheus.Registry
	APIKey       string
	FallbackSlug string
	StoreTimeout time.Duration
	Env          string
	Version      string
	Logger       zerolog.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(TimeoutMiddleware(cfg.StoreTimeout))

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	if cfg.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{}))
	}

	tenantMW := TenantMiddleware(cfg.Resolver, cfg.FallbackSlug)

	// First-party RPCs.
	r.Route("/v1", func(r chi.Router) {
		r.Use(tenantMW)
		mountOperations(r, cfg)
	})

	// Automation gateway: same operations behind a shared secret.
	r.Route("/webhook/v1", func(r chi.Router) {
		r.Use(APIKeyMiddleware(cfg.APIKey))
		r.Use(tenantMW)
		mountOperations(r, cfg)
	})

	return r
}

func mountOperations(r chi.Router, cfg RouterConfig) {
	r.Post("/appointments", createAppointmentHandler(cfg.Booking))
	r.Get("/appointments/{id}", getAppointmentHandler(cfg.Booking))
	r.Post("/appointments/{id}/reschedule", rescheduleAppointmentHandler(cfg.Booking))
	r.Post("/appointments/{id}/cancel", cancelAppointmentHandler(cfg.Booking))
	r.Post("/appointments/{id}/confirm", transitionAppointmentHandler(cfg.Booking, "confirm"))
	r.Post("/appointments/{id}/unconfirm", transitionAppointmentHandler(cfg.Booking, "unconfirm"))
	r.Post("/appointments/{id}/complete", transitionAppointmentHandler(cfg.Booking, "complete"))

	r.Get("/availability", availabilityHandler(cfg.Booking))
	r.Get("/patients", searchPatientsHandler(cfg.Booking))

	r.Post("/waitlist", addWaitlistHandler(cfg.Waitlist))
	r.Get("/waitlist", listWaitlistHandler(cfg.Waitlist))
	r.Post("/waitlist/{id}/cancel", cancelWaitlistHandler(cfg.Waitlist))
	r.Post("/waitlist/{id}/promote", promoteWaitlistHandler(cfg.Waitlist))
}
