package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"

	"github.com/agendaflow/clinic-scheduler/internal/api"
	"github.com/agendaflow/clinic-scheduler/internal/config"
	"github.com/agendaflow/clinic-scheduler/internal/db"
	"github.com/agendaflow/clinic-scheduler/internal/logging"
	"github.com/agendaflow/clinic-scheduler/internal/metrics"
	"github.com/agendaflow/clinic-scheduler/internal/notification"
	redisclient "github.com/agendaflow/clinic-scheduler/internal/redis"
	"github.com/agendaflow/clinic-scheduler/internal/scheduling"
	"github.com/agendaflow/clinic-scheduler/internal/tenant"
	"github.com/agendaflow/clinic-scheduler/internal/waitlist"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Init("api-server", "prod")
		log.Fatal().Err(err).Msg("config load error")
	}
	logging.Init("api-server", cfg.Env)

	log.Info().Str("env", cfg.Env).Str("http_port", cfg.HTTPPort).Msg("api-server starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN, db.PoolOptions{
		MaxConns:       int32(cfg.PgMaxConns),
		MinConns:       int32(cfg.PgMinConns),
		ConnectTimeout: cfg.StoreTimeout,
	})
	cancelPg()
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	log.Info().Msg("connected to Postgres")

	rdb, err := redisclient.NewRedisClient(redisclient.Options{
		Addr:     cfg.RedisAddr,
		Username: cfg.RedisUsername,
		Password: cfg.RedisPassword,
		Timeout:  cfg.RedisTimeout,
		PoolSize: cfg.RedisPoolSize,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection error")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Error().Err(err).Msg("error closing redis")
		}
	}()
	log.Info().Msg("connected to Redis")

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Fatal().Err(err).Str("timezone", cfg.Timezone).Msg("invalid clinic timezone")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	bookingMetrics := metrics.NewBooking(registry)
	notifyMetrics := metrics.NewNotifications(registry)

	resolver := tenant.NewResolver(tenant.NewPgStore(pgPool), time.Minute)

	schedRepo := scheduling.NewPgRepository(pgPool)
	locker := redisclient.NewRedisSlotLocker(rdb, cfg.LockTTL)
	booking := scheduling.NewBookingService(schedRepo, locker, logging.For("booking"))
	booking.SetMetrics(bookingMetrics)

	wlManager := waitlist.NewManager(waitlist.NewPgRepository(pgPool), booking, logging.For("waitlist"))
	wlManager.SetMetrics(bookingMetrics)
	booking.SetSlotReopener(wlManager)

	var sender notification.Sender
	if cfg.WhatsAppToken != "" && cfg.WhatsAppPhoneID != "" {
		sender, err = notification.NewWhatsAppSender(cfg.WhatsAppToken, cfg.WhatsAppPhoneID)
		if err != nil {
			log.Fatal().Err(err).Msg("whatsapp sender setup error")
		}
	} else {
		sender = notification.StubSender{Log: logging.For("stub-sender")}
	}

	scheduler := notification.NewScheduler(
		notification.NewPgStore(pgPool),
		schedRepo,
		resolver,
		sender,
		notification.SchedulerConfig{
			Offsets:     cfg.ReminderOffsets,
			MaxAttempts: cfg.NotifyMaxAttempts,
			Location:    loc,
		},
		logging.For("notifications"),
	)
	scheduler.SetMetrics(notifyMetrics)
	booking.SetNotifier(scheduler)

	router := api.NewRouter(api.RouterConfig{
		Booking:      booking,
		Waitlist:     wlManager,
		Resolver:     resolver,
		PgPool:       pgPool,
		Redis:        rdb,
		Registry:     registry,
		APIKey:       cfg.WebhookAPIKey,
		FallbackSlug: cfg.FallbackTenant,
		StoreTimeout: cfg.StoreTimeout,
		Env:          cfg.Env,
		Version:      version,
		Logger:       logging.For("http"),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server error")
		}
	}()

	<-rootCtx.Done()
	log.Info().Msg("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown error")
	}
}
