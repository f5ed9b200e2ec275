package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/agendaflow/clinic-scheduler/internal/metrics"
	"github.com/agendaflow/clinic-scheduler/internal/scheduling"
	"github.com/agendaflow/clinic-scheduler/internal/tenant"
)

// AppointmentSource loads hydrated appointments for rendering.
type AppointmentSource interface {
	GetAppointmentDetail(ctx context.Context, part tenant.Partition, id uuid.UUID) (*scheduling.AppointmentDetail, error)
}

// PartitionResolver maps a tenant id back to its partition when the
// worker drains notifications outside any request scope.
type PartitionResolver interface {
	Resolve(ctx context.Context, id uuid.UUID) (*tenant.Partition, error)
}

// Scheduler computes time-windowed reminders off appointment lifecycle
// events and drains them when due. It implements
// scheduling.BookingNotifier.
type Scheduler struct {
	store       Store
	source      AppointmentSource
	resolver    PartitionResolver
	sender      Sender
	renderer    Renderer
	offsets     map[string]time.Duration
	maxAttempts int
	loc         *time.Location
	metrics     *metrics.Notifications
	log         zerolog.Logger

	now func() time.Time
}

type SchedulerConfig struct {
	Offsets     map[string]time.Duration
	MaxAttempts int
	Location    *time.Location
}

func NewScheduler(store Store, source AppointmentSource, resolver PartitionResolver, sender Sender, cfg SchedulerConfig, log zerolog.Logger) *Scheduler {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if len(cfg.Offsets) == 0 {
		cfg.Offsets = map[string]time.Duration{
			Type48h: 48 * time.Hour,
			Type24h: 24 * time.Hour,
			Type2h:  2 * time.Hour,
		}
	}
	return &Scheduler{
		store:       store,
		source:      source,
		resolver:    resolver,
		sender:      sender,
		offsets:     cfg.Offsets,
		maxAttempts: cfg.MaxAttempts,
		loc:         cfg.Location,
		log:         log,
		now:         time.Now,
	}
}

func (s *Scheduler) SetMetrics(m *metrics.Notifications) { s.metrics = m }

// OnBookingEvent recomputes the notification schedule for an
// appointment after its lifecycle changed. Failures here are logged,
// never propagated: the booking already committed.
func (s *Scheduler) OnBookingEvent(ctx context.Context, part tenant.Partition, appointmentID uuid.UUID, event string) {
	var err error
	switch event {
	case scheduling.EventAppointmentCreated:
		err = s.scheduleReminders(ctx, part, appointmentID)
	case scheduling.EventAppointmentRescheduled:
		if _, cErr := s.store.CancelPending(ctx, part.TenantID, appointmentID); cErr != nil {
			err = cErr
			break
		}
		err = s.scheduleReminders(ctx, part, appointmentID)
	case scheduling.EventAppointmentCancelled:
		if _, cErr := s.store.CancelPending(ctx, part.TenantID, appointmentID); cErr != nil {
			err = cErr
			break
		}
		err = s.enqueueImmediate(ctx, part, appointmentID, TypeCancellation)
	case scheduling.EventAppointmentConfirmed:
		err = s.enqueueImmediate(ctx, part, appointmentID, TypeConfirmation)
	}
	if err != nil {
		s.log.Error().Err(err).
			Str("tenant_id", part.TenantID.String()).
			Str("appointment_id", appointmentID.String()).
			Str("event", event).
			Msg("schedule notifications")
	}
}

func (s *Scheduler) scheduleReminders(ctx context.Context, part tenant.Partition, appointmentID uuid.UUID) error {
	detail, err := s.source.GetAppointmentDetail(ctx, part, appointmentID)
	if err != nil {
		return fmt.Errorf("load appointment for scheduling: %w", err)
	}

	apptAt, err := s.appointmentTime(detail)
	if err != nil {
		return err
	}

	templates, err := s.store.ActiveTemplates(ctx)
	if err != nil {
		return err
	}

	now := s.now()
	for templateType, offset := range s.offsets {
		if _, ok := templates[templateType]; !ok {
			continue
		}
		fireTime := apptAt.Add(-offset)
		if !fireTime.After(now) {
			// The window already passed; never fire stale reminders.
			continue
		}
		n := &ScheduledNotification{
			TenantID:      part.TenantID,
			AppointmentID: appointmentID,
			TemplateType:  templateType,
			FireTime:      fireTime,
		}
		if err := s.store.Upsert(ctx, n); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scheduler) enqueueImmediate(ctx context.Context, part tenant.Partition, appointmentID uuid.UUID, templateType string) error {
	templates, err := s.store.ActiveTemplates(ctx)
	if err != nil {
		return err
	}
	if _, ok := templates[templateType]; !ok {
		return nil
	}
	return s.store.Upsert(ctx, &ScheduledNotification{
		TenantID:      part.TenantID,
		AppointmentID: appointmentID,
		TemplateType:  templateType,
		FireTime:      s.now(),
	})
}

type Report struct {
	Sent   int
	Failed int
}

// ProcessPending drains due pending notifications: render, send, mark.
// A transport failure is retried on later runs until the bounded
// attempt count is exhausted, then the row goes terminally failed.
func (s *Scheduler) ProcessPending(ctx context.Context) (Report, error) {
	var report Report

	due, err := s.store.Due(ctx, s.now(), 100)
	if err != nil {
		return report, err
	}
	if len(due) == 0 {
		return report, nil
	}

	templates, err := s.store.ActiveTemplates(ctx)
	if err != nil {
		return report, err
	}

	for _, n := range due {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		outcome := s.processOne(ctx, n, templates)
		switch outcome {
		case "sent":
			report.Sent++
		case "failed":
			report.Failed++
		}
		s.metrics.Observe(outcome)
	}
	return report, nil
}

func (s *Scheduler) processOne(ctx context.Context, n ScheduledNotification, templates map[string]Template) string {
	logger := s.log.With().
		Str("notification_id", n.ID.String()).
		Str("template_type", n.TemplateType).
		Str("appointment_id", n.AppointmentID.String()).
		Logger()

	part, err := s.resolver.Resolve(ctx, n.TenantID)
	if err != nil {
		s.recordFailure(ctx, n, fmt.Sprintf("resolve tenant: %v", err), logger)
		return "failed"
	}

	detail, err := s.source.GetAppointmentDetail(ctx, *part, n.AppointmentID)
	if err != nil {
		s.recordFailure(ctx, n, fmt.Sprintf("load appointment: %v", err), logger)
		return "failed"
	}

	// A reminder for an appointment that is no longer live is noise;
	// cancel instead of sending.
	if isReminder(n.TemplateType) && !detail.Status.Live() {
		if err := s.store.MarkCancelled(ctx, n.ID); err != nil {
			logger.Error().Err(err).Msg("mark notification cancelled")
		}
		return "cancelled"
	}

	tmpl, ok := templates[n.TemplateType]
	if !ok {
		if err := s.store.MarkCancelled(ctx, n.ID); err != nil {
			logger.Error().Err(err).Msg("mark notification cancelled")
		}
		return "cancelled"
	}

	message, err := s.renderer.Render(tmpl.Type, tmpl.Body, TemplateData{
		PatientName:   detail.PatientName,
		Date:          detail.Date,
		Time:          detail.Time,
		DoctorName:    detail.DoctorName,
		ServiceName:   detail.ServiceName,
		ClinicName:    part.ClinicName,
		ClinicAddress: part.Address,
		ClinicPhone:   part.Phone,
	})
	if err != nil {
		// Rendering failures never self-heal; fail terminally.
		if recErr := s.store.RecordFailure(ctx, n.ID, n.Attempts+1, err.Error(), true); recErr != nil {
			logger.Error().Err(recErr).Msg("record render failure")
		}
		logger.Error().Err(err).Msg("render notification")
		return "failed"
	}

	recipient := detail.PatientCell
	if recipient == "" {
		if recErr := s.store.RecordFailure(ctx, n.ID, n.Attempts+1, "patient has no cell number", true); recErr != nil {
			logger.Error().Err(recErr).Msg("record failure")
		}
		return "failed"
	}

	if err := s.sender.Send(ctx, recipient, message); err != nil {
		s.recordFailure(ctx, n, err.Error(), logger)
		return "failed"
	}

	if err := s.store.MarkSent(ctx, n.ID, s.now()); err != nil {
		logger.Error().Err(err).Msg("mark notification sent")
	}
	logger.Info().Str("to", recipient).Msg("notification sent")
	return "sent"
}

func (s *Scheduler) recordFailure(ctx context.Context, n ScheduledNotification, reason string, logger zerolog.Logger) {
	attempts := n.Attempts + 1
	terminal := attempts >= s.maxAttempts
	if err := s.store.RecordFailure(ctx, n.ID, attempts, reason, terminal); err != nil {
		logger.Error().Err(err).Msg("record notification failure")
		return
	}
	logger.Warn().
		Int("attempts", attempts).
		Bool("terminal", terminal).
		Str("reason", reason).
		Msg("notification delivery failed")
}

func (s *Scheduler) appointmentTime(detail *scheduling.AppointmentDetail) (time.Time, error) {
	at, err := time.ParseInLocation(
		scheduling.DateLayout+" "+scheduling.TimeLayout,
		detail.Date+" "+detail.Time,
		s.loc,
	)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse appointment datetime: %w", err)
	}
	return at, nil
}

func isReminder(templateType string) bool {
	switch templateType {
	case Type48h, Type24h, Type2h:
		return true
	}
	return false
}
