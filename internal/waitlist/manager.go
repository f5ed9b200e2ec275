package waitlist

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/agendaflow/clinic-scheduler/internal/metrics"
	"github.com/agendaflow/clinic-scheduler/internal/scheduling"
	"github.com/agendaflow/clinic-scheduler/internal/tenant"
)

// Booker is the slice of BookingService a promotion needs. The booking
// goes through the same transactional conflict check as any direct
// booking; a promotion never overrides.
type Booker interface {
	CreateForPatient(ctx context.Context, part tenant.Partition, patientID, doctorID, serviceID uuid.UUID, date, timeOfDay, createdBy string) (*scheduling.BookingResult, error)
}

// Manager maintains the priority waitlist and backfills freed slots.
type Manager struct {
	repo    Repository
	booker  Booker
	metrics *metrics.Booking
	log     zerolog.Logger

	now func() time.Time
}

func NewManager(repo Repository, booker Booker, log zerolog.Logger) *Manager {
	return &Manager{
		repo:   repo,
		booker: booker,
		log:    log,
		now:    time.Now,
	}
}

func (m *Manager) SetMetrics(mt *metrics.Booking) { m.metrics = mt }

type AddParams struct {
	PatientID   uuid.UUID
	DoctorID    uuid.UUID
	ServiceID   uuid.UUID
	DesiredDate string
	Period      Period
	Priority    int
	Deadline    *string
}

// Add registers a patient waiting for a slot.
func (m *Manager) Add(ctx context.Context, part tenant.Partition, params AddParams) (*Entry, error) {
	if _, err := time.Parse("2006-01-02", params.DesiredDate); err != nil {
		return nil, &scheduling.ValidationError{Field: "desired_date", Reason: "expected YYYY-MM-DD"}
	}
	if params.Deadline != nil {
		if _, err := time.Parse("2006-01-02", *params.Deadline); err != nil {
			return nil, &scheduling.ValidationError{Field: "deadline", Reason: "expected YYYY-MM-DD"}
		}
	}
	switch params.Period {
	case PeriodMorning, PeriodAfternoon, PeriodAny:
	case "":
		params.Period = PeriodAny
	default:
		return nil, &scheduling.ValidationError{Field: "period", Reason: "expected manha, tarde or qualquer"}
	}

	e := &Entry{
		PatientID:   params.PatientID,
		DoctorID:    params.DoctorID,
		ServiceID:   params.ServiceID,
		DesiredDate: params.DesiredDate,
		Period:      params.Period,
		Priority:    params.Priority,
		Deadline:    params.Deadline,
	}
	if err := m.repo.Insert(ctx, part, e); err != nil {
		return nil, err
	}

	m.log.Info().
		Str("tenant_id", part.TenantID.String()).
		Str("entry_id", e.ID.String()).
		Int("priority", e.Priority).
		Msg("waitlist entry added")
	return e, nil
}

// Cancel transitions a waiting or notified entry to cancelado.
func (m *Manager) Cancel(ctx context.Context, part tenant.Partition, id uuid.UUID) (*Entry, error) {
	entry, err := m.repo.GetByID(ctx, part, id)
	if err != nil {
		return nil, err
	}
	if entry.Status != StatusWaiting && entry.Status != StatusNotified {
		return nil, &scheduling.AlreadyInStateError{Current: scheduling.Status(entry.Status), Attempt: "cancel waitlist entry"}
	}

	updated, err := m.repo.Transition(ctx, part, id, []Status{StatusWaiting, StatusNotified}, StatusCancelled)
	if err != nil {
		if errors.Is(err, ErrEntryNotFound) {
			return nil, &scheduling.AlreadyInStateError{Current: scheduling.Status(entry.Status), Attempt: "cancel waitlist entry"}
		}
		return nil, err
	}
	return updated, nil
}

// List returns entries matching the filter in promotion order.
func (m *Manager) List(ctx context.Context, part tenant.Partition, f Filter) ([]Entry, error) {
	return m.repo.List(ctx, part, f)
}

// SlotFreed is invoked by the booking service when a cancellation
// frees a doctor/date/time slot. Candidates are tried in promotion
// order; a candidate whose booking races another writer reverts to
// aguardando and the scan continues.
func (m *Manager) SlotFreed(ctx context.Context, part tenant.Partition, doctorID uuid.UUID, date, timeOfDay string) {
	today := m.now().Format("2006-01-02")

	candidates, err := m.repo.Candidates(ctx, part, doctorID, date, today)
	if err != nil {
		m.log.Error().Err(err).
			Str("tenant_id", part.TenantID.String()).
			Str("doctor_id", doctorID.String()).
			Msg("load waitlist candidates")
		return
	}

	for _, entry := range candidates {
		if !entry.Period.Admits(timeOfDay) {
			continue
		}
		if _, err := m.tryPromote(ctx, part, entry, date, timeOfDay); err == nil {
			return
		}
	}
}

// Promote books the slot described by the entry itself (desired date,
// earliest admitted time chosen by the caller). Used by the explicit
// promote RPC.
func (m *Manager) Promote(ctx context.Context, part tenant.Partition, id uuid.UUID, timeOfDay string) (*scheduling.BookingResult, error) {
	entry, err := m.repo.GetByID(ctx, part, id)
	if err != nil {
		return nil, err
	}
	if entry.Status != StatusWaiting && entry.Status != StatusNotified {
		return nil, &scheduling.AlreadyInStateError{Current: scheduling.Status(entry.Status), Attempt: "promote"}
	}
	if entry.Expired(m.now().Format("2006-01-02")) {
		return nil, &scheduling.ValidationError{Field: "entry", Reason: "deadline passed"}
	}
	if !entry.Period.Admits(timeOfDay) {
		return nil, &scheduling.ValidationError{Field: "time", Reason: "outside the entry's period preference"}
	}
	return m.tryPromote(ctx, part, *entry, entry.DesiredDate, timeOfDay)
}

func (m *Manager) tryPromote(ctx context.Context, part tenant.Partition, entry Entry, date, timeOfDay string) (*scheduling.BookingResult, error) {
	// Mark notificado first. The from-set still admits notificado so
	// the explicit promote RPC can retry a notified entry; two
	// concurrent promoters can therefore both pass this transition,
	// and the booking transaction is what arbitrates the slot.
	if _, err := m.repo.Transition(ctx, part, entry.ID, []Status{StatusWaiting, StatusNotified}, StatusNotified); err != nil {
		return nil, err
	}

	result, err := m.booker.CreateForPatient(ctx, part, entry.PatientID, entry.DoctorID, entry.ServiceID, date, timeOfDay, "waitlist")
	if err != nil {
		// Raced: the slot was taken between the cancellation and our
		// booking. The entry goes back to aguardando and stays eligible.
		if _, revertErr := m.repo.Transition(ctx, part, entry.ID, []Status{StatusNotified}, StatusWaiting); revertErr != nil {
			m.log.Error().Err(revertErr).Str("entry_id", entry.ID.String()).Msg("revert waitlist entry")
		}
		m.metrics.ObservePromotion("conflict")

		var conflict *scheduling.ConflictError
		if !errors.As(err, &conflict) && !errors.Is(err, scheduling.ErrSlotBusy) {
			m.log.Error().Err(err).Str("entry_id", entry.ID.String()).Msg("waitlist promotion booking failed")
		}
		return nil, err
	}

	if _, err := m.repo.Transition(ctx, part, entry.ID, []Status{StatusNotified}, StatusBooked); err != nil {
		m.log.Error().Err(err).Str("entry_id", entry.ID.String()).Msg("mark waitlist entry booked")
	}
	m.metrics.ObservePromotion("booked")

	m.log.Info().
		Str("tenant_id", part.TenantID.String()).
		Str("entry_id", entry.ID.String()).
		Str("appointment_id", result.AppointmentID.String()).
		Msg("waitlist entry promoted")
	return result, nil
}
