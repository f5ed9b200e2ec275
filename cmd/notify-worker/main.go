package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/agendaflow/clinic-scheduler/internal/config"
	"github.com/agendaflow/clinic-scheduler/internal/db"
	"github.com/agendaflow/clinic-scheduler/internal/logging"
	"github.com/agendaflow/clinic-scheduler/internal/notification"
	"github.com/agendaflow/clinic-scheduler/internal/scheduling"
	"github.com/agendaflow/clinic-scheduler/internal/tenant"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Init("notify-worker", "prod")
		log.Fatal().Err(err).Msg("config load error")
	}
	logging.Init("notify-worker", cfg.Env)

	log.Info().Str("env", cfg.Env).Dur("interval", cfg.WorkerInterval).Msg("notify-worker starting up")

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

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Fatal().Err(err).Str("timezone", cfg.Timezone).Msg("invalid clinic timezone")
	}

	var sender notification.Sender
	if cfg.WhatsAppToken != "" && cfg.WhatsAppPhoneID != "" {
		sender, err = notification.NewWhatsAppSender(cfg.WhatsAppToken, cfg.WhatsAppPhoneID)
		if err != nil {
			log.Fatal().Err(err).Msg("whatsapp sender setup error")
		}
	} else {
		sender = notification.StubSender{Log: logging.For("stub-sender")}
	}

	resolver := tenant.NewResolver(tenant.NewPgStore(pgPool), time.Minute)

	scheduler := notification.NewScheduler(
		notification.NewPgStore(pgPool),
		scheduling.NewPgRepository(pgPool),
		resolver,
		sender,
		notification.SchedulerConfig{
			Offsets:     cfg.ReminderOffsets,
			MaxAttempts: cfg.NotifyMaxAttempts,
			Location:    loc,
		},
		logging.For("notifications"),
	)

	// Drain once at startup, then on every tick.
	runOnce(rootCtx, scheduler)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Info().Msg("shutdown signal received, stopping notify worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, scheduler)
		}
	}
}

func runOnce(ctx context.Context, scheduler *notification.Scheduler) {
	runCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	start := time.Now()
	report, err := scheduler.ProcessPending(runCtx)
	if err != nil {
		log.Error().Err(err).Msg("notification run error")
		return
	}
	log.Info().
		Int("sent", report.Sent).
		Int("failed", report.Failed).
		Dur("took", time.Since(start)).
		Msg("notification run complete")
}
