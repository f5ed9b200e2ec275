package scheduling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/agendaflow/clinic-scheduler/internal/metrics"
	redisclient "github.com/agendaflow/clinic-scheduler/internal/redis"
	"github.com/agendaflow/clinic-scheduler/internal/tenant"
)

// BookingNotifier receives appointment lifecycle events after the
// transaction committed. The notification scheduler implements it.
type BookingNotifier interface {
	OnBookingEvent(ctx context.Context, part tenant.Partition, appointmentID uuid.UUID, event string)
}

// SlotReopener is told when a cancellation frees a slot, so the
// waitlist can attempt a promotion. The waitlist manager implements it.
type SlotReopener interface {
	SlotFreed(ctx context.Context, part tenant.Partition, doctorID uuid.UUID, date, timeOfDay string)
}

// BookingService orchestrates patient upsert + appointment writes.
// Every operation takes the caller's resolved tenant partition
// explicitly; there is no ambient tenant state.
type BookingService struct {
	repo     Repository
	locker   redisclient.Locker
	notifier BookingNotifier
	reopener SlotReopener
	metrics  *metrics.Booking
	log      zerolog.Logger
}

func NewBookingService(repo Repository, locker redisclient.Locker, log zerolog.Logger) *BookingService {
	if locker == nil {
		locker = redisclient.NoopLocker{}
	}
	return &BookingService{
		repo:   repo,
		locker: locker,
		log:    log,
	}
}

// SetNotifier wires the notification scheduler. Done after
// construction because the scheduler and the waitlist both depend on
// this service.
func (s *BookingService) SetNotifier(n BookingNotifier) { s.notifier = n }

// SetSlotReopener wires the waitlist manager.
func (s *BookingService) SetSlotReopener(r SlotReopener) { s.reopener = r }

func (s *BookingService) SetMetrics(m *metrics.Booking) { s.metrics = m }

type PatientInput struct {
	FullName  string
	BirthDate string // YYYY-MM-DD
	Phone     string
	Cell      string
	Insurance string
}

type CreateParams struct {
	Patient       PatientInput
	DoctorID      uuid.UUID
	ServiceID     uuid.UUID
	Date          string // YYYY-MM-DD
	Time          string // HH:MM
	Observations  string
	ForceOverride bool
	CreatedBy     string
}

type BookingResult struct {
	AppointmentID uuid.UUID
	PatientID     uuid.UUID
	Forced        bool
}

// Create books a slot for a (possibly new) patient. On conflict
// without override it returns *ConflictError carrying the occupant's
// details.
func (s *BookingService) Create(ctx context.Context, part tenant.Partition, params CreateParams) (*BookingResult, error) {
	if err := validatePatient(params.Patient); err != nil {
		return nil, err
	}
	if err := validateSlot(params.Date, params.Time); err != nil {
		return nil, err
	}

	doctor, err := s.repo.GetDoctorByID(ctx, part, params.DoctorID)
	if err != nil {
		return nil, err
	}
	if !doctor.Active {
		return nil, ErrDoctorInactive
	}

	svc, err := s.repo.GetServiceByID(ctx, part, params.ServiceID)
	if err != nil {
		return nil, err
	}
	if svc.DoctorID != doctor.ID {
		return nil, &ValidationError{Field: "service_id", Reason: "service does not belong to this doctor"}
	}

	patient, err := s.upsertPatient(ctx, part, params.Patient)
	if err != nil {
		return nil, err
	}

	var appt *Appointment
	key := redisclient.SlotKey{
		TenantID: part.TenantID,
		DoctorID: params.DoctorID,
		Date:     params.Date,
		Time:     params.Time,
	}
	err = s.locker.WithSlotLock(ctx, key, func(lockCtx context.Context) error {
		appt, err = s.repo.BookSlot(lockCtx, part, BookSlotParams{
			PatientID:     patient.ID,
			DoctorID:      params.DoctorID,
			ServiceID:     params.ServiceID,
			Date:          params.Date,
			Time:          params.Time,
			Observations:  params.Observations,
			CreatedBy:     params.CreatedBy,
			ForceOverride: params.ForceOverride,
		})
		return err
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotBusy
		}
		var conflict *ConflictError
		if errors.As(err, &conflict) {
			s.metrics.ObserveConflict()
		}
		return nil, err
	}

	s.metrics.ObserveCreated(appt.ForcedConflict)
	s.logEvent(ctx, part, appt.ID, EventAppointmentCreated, map[string]any{
		"doctor_id":  params.DoctorID.String(),
		"patient_id": patient.ID.String(),
		"date":       params.Date,
		"time":       params.Time,
		"forced":     appt.ForcedConflict,
		"created_by": params.CreatedBy,
	})
	if s.notifier != nil {
		s.notifier.OnBookingEvent(ctx, part, appt.ID, EventAppointmentCreated)
	}

	s.log.Info().
		Str("tenant_id", part.TenantID.String()).
		Str("appointment_id", appt.ID.String()).
		Str("doctor_id", params.DoctorID.String()).
		Str("slot", params.Date+" "+params.Time).
		Bool("forced", appt.ForcedConflict).
		Msg("appointment created")

	return &BookingResult{
		AppointmentID: appt.ID,
		PatientID:     patient.ID,
		Forced:        appt.ForcedConflict,
	}, nil
}

// CreateForPatient books a slot for an already-registered patient.
// This is the waitlist promotion path: it goes through the same
// transactional conflict check as a direct booking, never an override.
func (s *BookingService) CreateForPatient(ctx context.Context, part tenant.Partition, patientID, doctorID, serviceID uuid.UUID, date, timeOfDay, createdBy string) (*BookingResult, error) {
	if err := validateSlot(date, timeOfDay); err != nil {
		return nil, err
	}

	var appt *Appointment
	key := redisclient.SlotKey{TenantID: part.TenantID, DoctorID: doctorID, Date: date, Time: timeOfDay}
	err := s.locker.WithSlotLock(ctx, key, func(lockCtx context.Context) error {
		var bookErr error
		appt, bookErr = s.repo.BookSlot(lockCtx, part, BookSlotParams{
			PatientID: patientID,
			DoctorID:  doctorID,
			ServiceID: serviceID,
			Date:      date,
			Time:      timeOfDay,
			CreatedBy: createdBy,
		})
		return bookErr
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotBusy
		}
		var conflict *ConflictError
		if errors.As(err, &conflict) {
			s.metrics.ObserveConflict()
		}
		return nil, err
	}

	s.metrics.ObserveCreated(false)
	s.logEvent(ctx, part, appt.ID, EventAppointmentCreated, map[string]any{
		"doctor_id":  doctorID.String(),
		"patient_id": patientID.String(),
		"date":       date,
		"time":       timeOfDay,
		"created_by": createdBy,
		"waitlist":   true,
	})
	if s.notifier != nil {
		s.notifier.OnBookingEvent(ctx, part, appt.ID, EventAppointmentCreated)
	}

	return &BookingResult{AppointmentID: appt.ID, PatientID: patientID}, nil
}

// upsertPatient reuses an existing record matching the normalized
// (name, birth date, insurance) identity, refreshing contact fields;
// otherwise it inserts a new patient.
func (s *BookingService) upsertPatient(ctx context.Context, part tenant.Partition, in PatientInput) (*Patient, error) {
	identity := Identity{FullName: in.FullName, BirthDate: in.BirthDate, Insurance: in.Insurance}

	existing, err := s.repo.FindPatientByIdentity(ctx, part, identity)
	if err != nil && !errors.Is(err, ErrPatientNotFound) {
		return nil, fmt.Errorf("lookup patient: %w", err)
	}
	if existing != nil {
		// Merge per field so a booking that only carries a landline
		// does not erase a stored cell number.
		changed := false
		if in.Phone != "" && in.Phone != existing.Phone {
			existing.Phone = in.Phone
			changed = true
		}
		if in.Cell != "" && in.Cell != existing.Cell {
			existing.Cell = in.Cell
			changed = true
		}
		if changed {
			if err := s.repo.UpdatePatient(ctx, part, existing); err != nil {
				return nil, err
			}
		}
		return existing, nil
	}

	p := &Patient{
		FullName:  in.FullName,
		BirthDate: in.BirthDate,
		Phone:     in.Phone,
		Cell:      in.Cell,
		Insurance: in.Insurance,
	}
	if err := s.repo.CreatePatient(ctx, part, p); err != nil {
		return nil, err
	}
	return p, nil
}

type RescheduleParams struct {
	AppointmentID uuid.UUID
	NewDate       string
	NewTime       string
	Patient       *PatientInput // optional corrected patient data
	Actor         string
	ForceOverride bool
}

// Reschedule moves an appointment to a new slot, optionally
// reconciling corrected patient data: the stored record is updated in
// place unless another record exactly matches the new identity, in
// which case the appointment is re-pointed to it. A duplicate patient
// is never created here.
func (s *BookingService) Reschedule(ctx context.Context, part tenant.Partition, params RescheduleParams) (*Appointment, error) {
	if err := validateSlot(params.NewDate, params.NewTime); err != nil {
		return nil, err
	}

	appt, err := s.repo.GetAppointmentByID(ctx, part, params.AppointmentID)
	if err != nil {
		return nil, err
	}
	if appt.Status.Terminal() {
		return nil, &AlreadyInStateError{Current: appt.Status, Attempt: "reschedule"}
	}

	patientID := appt.PatientID
	if params.Patient != nil {
		patientID, err = s.reconcilePatient(ctx, part, appt.PatientID, *params.Patient)
		if err != nil {
			return nil, err
		}
	}

	var moved *Appointment
	key := redisclient.SlotKey{
		TenantID: part.TenantID,
		DoctorID: appt.DoctorID,
		Date:     params.NewDate,
		Time:     params.NewTime,
	}
	err = s.locker.WithSlotLock(ctx, key, func(lockCtx context.Context) error {
		moved, err = s.repo.MoveSlot(lockCtx, part, MoveSlotParams{
			AppointmentID: appt.ID,
			DoctorID:      appt.DoctorID,
			PatientID:     patientID,
			NewDate:       params.NewDate,
			NewTime:       params.NewTime,
			Actor:         params.Actor,
			ForceOverride: params.ForceOverride,
		})
		return err
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotBusy
		}
		var conflict *ConflictError
		if errors.As(err, &conflict) {
			s.metrics.ObserveConflict()
		}
		return nil, err
	}

	s.logEvent(ctx, part, moved.ID, EventAppointmentRescheduled, map[string]any{
		"from": appt.Date + " " + appt.Time,
		"to":   params.NewDate + " " + params.NewTime,
		"by":   params.Actor,
	})
	if s.notifier != nil {
		s.notifier.OnBookingEvent(ctx, part, moved.ID, EventAppointmentRescheduled)
	}
	return moved, nil
}

// reconcilePatient applies corrected patient data during reschedule.
func (s *BookingService) reconcilePatient(ctx context.Context, part tenant.Partition, currentID uuid.UUID, in PatientInput) (uuid.UUID, error) {
	if err := validatePatient(in); err != nil {
		return uuid.Nil, err
	}

	identity := Identity{FullName: in.FullName, BirthDate: in.BirthDate, Insurance: in.Insurance}
	match, err := s.repo.FindPatientByIdentity(ctx, part, identity)
	if err != nil && !errors.Is(err, ErrPatientNotFound) {
		return uuid.Nil, fmt.Errorf("lookup patient: %w", err)
	}
	if match != nil && match.ID != currentID {
		// Another record already holds this exact identity: re-point the
		// appointment instead of duplicating.
		return match.ID, nil
	}

	updated := &Patient{
		ID:        currentID,
		FullName:  in.FullName,
		BirthDate: in.BirthDate,
		Phone:     in.Phone,
		Cell:      in.Cell,
		Insurance: in.Insurance,
	}
	if err := s.repo.UpdatePatient(ctx, part, updated); err != nil {
		return uuid.Nil, err
	}
	return currentID, nil
}

// Confirm moves agendado -> confirmado, stamping the actor.
func (s *BookingService) Confirm(ctx context.Context, part tenant.Partition, id uuid.UUID, actor string) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, part, id)
	if err != nil {
		return nil, err
	}
	if appt.Status != StatusScheduled {
		return nil, &AlreadyInStateError{Current: appt.Status, Attempt: "confirm"}
	}

	updated, err := s.repo.Transition(ctx, part, id, []Status{StatusScheduled}, StatusConfirmed, TransitionStamp{
		Actor: actor,
		At:    time.Now().UTC(),
	})
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			// raced by another transition between load and update
			return nil, &AlreadyInStateError{Current: appt.Status, Attempt: "confirm"}
		}
		return nil, err
	}

	s.logEvent(ctx, part, id, EventAppointmentConfirmed, map[string]any{"by": actor})
	if s.notifier != nil {
		s.notifier.OnBookingEvent(ctx, part, id, EventAppointmentConfirmed)
	}
	return updated, nil
}

// Unconfirm reverts confirmado -> agendado.
func (s *BookingService) Unconfirm(ctx context.Context, part tenant.Partition, id uuid.UUID, actor string) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, part, id)
	if err != nil {
		return nil, err
	}
	if appt.Status != StatusConfirmed {
		return nil, &AlreadyInStateError{Current: appt.Status, Attempt: "unconfirm"}
	}

	updated, err := s.repo.Transition(ctx, part, id, []Status{StatusConfirmed}, StatusScheduled, TransitionStamp{
		Actor: actor,
		At:    time.Now().UTC(),
	})
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, &AlreadyInStateError{Current: appt.Status, Attempt: "unconfirm"}
		}
		return nil, err
	}

	s.logEvent(ctx, part, id, EventAppointmentUnconfirmed, map[string]any{"by": actor})
	return updated, nil
}

// Cancel transitions a live appointment to cancelado (or
// cancelado_bloqueio when the cancellation comes from a schedule
// block). The record is kept; cancellation is a status change, never a
// delete. The freed slot is offered to the waitlist.
func (s *BookingService) Cancel(ctx context.Context, part tenant.Partition, id uuid.UUID, actor, reason string, scheduleBlock bool) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, part, id)
	if err != nil {
		return nil, err
	}
	if !appt.Status.Live() {
		return nil, &AlreadyInStateError{Current: appt.Status, Attempt: "cancel"}
	}

	to := StatusCancelled
	if scheduleBlock {
		to = StatusCancelledBlock
	}

	updated, err := s.repo.Transition(ctx, part, id, []Status{StatusScheduled, StatusConfirmed}, to, TransitionStamp{
		Actor:  actor,
		At:     time.Now().UTC(),
		Reason: reason,
	})
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, &AlreadyInStateError{Current: appt.Status, Attempt: "cancel"}
		}
		return nil, err
	}

	s.logEvent(ctx, part, id, EventAppointmentCancelled, map[string]any{
		"by":     actor,
		"reason": reason,
		"block":  scheduleBlock,
	})
	if s.notifier != nil {
		s.notifier.OnBookingEvent(ctx, part, id, EventAppointmentCancelled)
	}
	if s.reopener != nil {
		s.reopener.SlotFreed(ctx, part, updated.DoctorID, updated.Date, updated.Time)
	}
	return updated, nil
}

// MarkDone transitions confirmado -> realizado once the visit
// happened.
func (s *BookingService) MarkDone(ctx context.Context, part tenant.Partition, id uuid.UUID, actor string) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, part, id)
	if err != nil {
		return nil, err
	}
	if appt.Status != StatusConfirmed {
		return nil, &AlreadyInStateError{Current: appt.Status, Attempt: "complete"}
	}

	updated, err := s.repo.Transition(ctx, part, id, []Status{StatusConfirmed}, StatusDone, TransitionStamp{
		Actor: actor,
		At:    time.Now().UTC(),
	})
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, &AlreadyInStateError{Current: appt.Status, Attempt: "complete"}
		}
		return nil, err
	}
	return updated, nil
}

// Detail returns a hydrated appointment.
func (s *BookingService) Detail(ctx context.Context, part tenant.Partition, id uuid.UUID) (*AppointmentDetail, error) {
	return s.repo.GetAppointmentDetail(ctx, part, id)
}

// SearchPatients runs a deduplicated patient search by name and/or
// birth date.
func (s *BookingService) SearchPatients(ctx context.Context, part tenant.Partition, name, birthDate string) ([]Patient, error) {
	if name == "" && birthDate == "" {
		return nil, &ValidationError{Field: "query", Reason: "name or birth date required"}
	}
	if birthDate != "" {
		if _, err := time.Parse(DateLayout, birthDate); err != nil {
			return nil, &ValidationError{Field: "birth_date", Reason: "expected YYYY-MM-DD"}
		}
	}

	patients, err := s.repo.SearchPatients(ctx, part, name, birthDate)
	if err != nil {
		return nil, err
	}

	// Collapse records that differ only by nonsignificant whitespace or
	// case in the identity fields.
	seen := make(map[Identity]bool, len(patients))
	out := patients[:0]
	for _, p := range patients {
		key := IdentityOf(&p)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, p)
	}
	return out, nil
}

func (s *BookingService) logEvent(ctx context.Context, part tenant.Partition, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.log.Error().Err(err).Str("event", eventType).Msg("marshal event payload")
		data = nil
	}

	apptID := appointmentID
	ev := EventLog{
		TenantID:      part.TenantID,
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		s.log.Error().Err(err).Str("event", eventType).Str("appointment_id", appointmentID.String()).Msg("insert event log")
	}
}

func validatePatient(in PatientInput) error {
	if in.FullName == "" {
		return &ValidationError{Field: "patient.full_name", Reason: "required"}
	}
	if _, err := time.Parse(DateLayout, in.BirthDate); err != nil {
		return &ValidationError{Field: "patient.birth_date", Reason: "expected YYYY-MM-DD"}
	}
	if in.Phone == "" && in.Cell == "" {
		return &ValidationError{Field: "patient.phone", Reason: "phone or cell required"}
	}
	return nil
}

func validateSlot(date, timeOfDay string) error {
	if _, err := time.Parse(DateLayout, date); err != nil {
		return &ValidationError{Field: "date", Reason: "expected YYYY-MM-DD"}
	}
	if _, err := time.Parse(TimeLayout, timeOfDay); err != nil {
		return &ValidationError{Field: "time", Reason: "expected HH:MM"}
	}
	return nil
}
