package scheduling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/agendaflow/clinic-scheduler/internal/tenant"
)

type PgRepository struct {
	pool     PgxPool
	detector Detector
}

func NewPgRepository(pool PgxPool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

const appointmentColumns = `id, patient_id, doctor_id, service_id,
	to_char(appt_date, 'YYYY-MM-DD'), appt_time, status, forced_conflict, observations,
	created_by, created_at, confirmed_by, confirmed_at, cancelled_by, cancelled_at,
	cancel_reason, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.DoctorID,
		&a.ServiceID,
		&a.Date,
		&a.Time,
		&a.Status,
		&a.ForcedConflict,
		&a.Observations,
		&a.CreatedBy,
		&a.CreatedAt,
		&a.ConfirmedBy,
		&a.ConfirmedAt,
		&a.CancelledBy,
		&a.CancelledAt,
		&a.CancelReason,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}
	return &a, nil
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(
		&p.ID,
		&p.FullName,
		&p.BirthDate,
		&p.Phone,
		&p.Cell,
		&p.Insurance,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}
	return &p, nil
}

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	var template []byte
	err := row.Scan(
		&d.ID,
		&d.Name,
		&d.Specialty,
		&d.Active,
		&d.Insurances,
		&template,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}
	if len(template) > 0 {
		if err := json.Unmarshal(template, &d.WeeklyTemplate); err != nil {
			return nil, fmt.Errorf("decode weekly template for doctor %s: %w", d.ID, err)
		}
	}
	return &d, nil
}

// Patients

func (r *PgRepository) FindPatientByIdentity(ctx context.Context, part tenant.Partition, id Identity) (*Patient, error) {
	id = id.Normalize()
	row := r.pool.QueryRow(ctx, fmt.Sprintf(`
		SELECT id, full_name, to_char(birth_date, 'YYYY-MM-DD'), phone, cell, insurance, created_at, updated_at
		FROM %s
		WHERE lower(regexp_replace(full_name, '\s+', ' ', 'g')) = $1
		  AND birth_date = $2::date
		  AND lower(insurance) = $3
		LIMIT 1
	`, part.Patients()), id.FullName, id.BirthDate, id.Insurance)
	return scanPatient(row)
}

func (r *PgRepository) CreatePatient(ctx context.Context, part tenant.Partition, p *Patient) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	_, err := r.pool.Exec(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, full_name, birth_date, phone, cell, insurance, created_at, updated_at)
		VALUES ($1, $2, $3::date, $4, $5, $6, now(), now())
	`, part.Patients()), p.ID, p.FullName, p.BirthDate, p.Phone, p.Cell, p.Insurance)
	if err != nil {
		return fmt.Errorf("create patient: %w", err)
	}
	return nil
}

func (r *PgRepository) UpdatePatient(ctx context.Context, part tenant.Partition, p *Patient) error {
	tag, err := r.pool.Exec(ctx, fmt.Sprintf(`
		UPDATE %s
		SET full_name = $2, birth_date = $3::date, phone = $4, cell = $5, insurance = $6, updated_at = now()
		WHERE id = $1
	`, part.Patients()), p.ID, p.FullName, p.BirthDate, p.Phone, p.Cell, p.Insurance)
	if err != nil {
		return fmt.Errorf("update patient: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPatientNotFound
	}
	return nil
}

func (r *PgRepository) SearchPatients(ctx context.Context, part tenant.Partition, name, birthDate string) ([]Patient, error) {
	query := fmt.Sprintf(`
		SELECT id, full_name, to_char(birth_date, 'YYYY-MM-DD'), phone, cell, insurance, created_at, updated_at
		FROM %s
		WHERE ($1 = '' OR lower(full_name) LIKE '%%' || $1 || '%%')
		  AND ($2 = '' OR birth_date = $2::date)
		ORDER BY full_name
		LIMIT 50
	`, part.Patients())

	rows, err := r.pool.Query(ctx, query, normalizeText(name), birthDate)
	if err != nil {
		return nil, fmt.Errorf("search patients: %w", err)
	}
	defer rows.Close()

	var result []Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	return result, rows.Err()
}

// Doctors and services

func (r *PgRepository) GetDoctorByID(ctx context.Context, part tenant.Partition, id uuid.UUID) (*Doctor, error) {
	row := r.pool.QueryRow(ctx, fmt.Sprintf(`
		SELECT id, name, specialty, active, insurances, weekly_template, created_at, updated_at
		FROM %s
		WHERE id = $1
	`, part.Doctors()), id)
	return scanDoctor(row)
}

func (r *PgRepository) GetDoctorByName(ctx context.Context, part tenant.Partition, name string) (*Doctor, error) {
	row := r.pool.QueryRow(ctx, fmt.Sprintf(`
		SELECT id, name, specialty, active, insurances, weekly_template, created_at, updated_at
		FROM %s
		WHERE lower(name) = $1
		LIMIT 1
	`, part.Doctors()), normalizeText(name))
	return scanDoctor(row)
}

func (r *PgRepository) GetServiceByID(ctx context.Context, part tenant.Partition, id uuid.UUID) (*Service, error) {
	var s Service
	err := r.pool.QueryRow(ctx, fmt.Sprintf(`
		SELECT id, doctor_id, name, price_cents, duration_minutes, online_bookable, active, created_at, updated_at
		FROM %s
		WHERE id = $1
	`, part.Services()), id).Scan(
		&s.ID,
		&s.DoctorID,
		&s.Name,
		&s.PriceCents,
		&s.DurationMinutes,
		&s.OnlineBookable,
		&s.Active,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrServiceNotFound
		}
		return nil, err
	}
	return &s, nil
}

// Appointments

func (r *PgRepository) GetAppointmentByID(ctx context.Context, part tenant.Partition, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, fmt.Sprintf(`
		SELECT %s FROM %s WHERE id = $1
	`, appointmentColumns, part.Appointments()), id)
	return scanAppointment(row)
}

func (r *PgRepository) GetAppointmentDetail(ctx context.Context, part tenant.Partition, id uuid.UUID) (*AppointmentDetail, error) {
	query := fmt.Sprintf(`
		SELECT a.id, a.patient_id, a.doctor_id, a.service_id,
			to_char(a.appt_date, 'YYYY-MM-DD'), a.appt_time, a.status, a.forced_conflict, a.observations,
			a.created_by, a.created_at, a.confirmed_by, a.confirmed_at, a.cancelled_by, a.cancelled_at,
			a.cancel_reason, a.updated_at,
			p.full_name, p.cell, d.name, s.name
		FROM %s a
		JOIN %s p ON p.id = a.patient_id
		JOIN %s d ON d.id = a.doctor_id
		JOIN %s s ON s.id = a.service_id
		WHERE a.id = $1
	`, part.Appointments(), part.Patients(), part.Doctors(), part.Services())

	var det AppointmentDetail
	a := &det.Appointment
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&a.ID, &a.PatientID, &a.DoctorID, &a.ServiceID,
		&a.Date, &a.Time, &a.Status, &a.ForcedConflict, &a.Observations,
		&a.CreatedBy, &a.CreatedAt, &a.ConfirmedBy, &a.ConfirmedAt, &a.CancelledBy, &a.CancelledAt,
		&a.CancelReason, &a.UpdatedAt,
		&det.PatientName, &det.PatientCell, &det.DoctorName, &det.ServiceName,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("load appointment detail: %w", err)
	}
	return &det, nil
}

func (r *PgRepository) ListDayAppointments(ctx context.Context, part tenant.Partition, doctorID uuid.UUID, date string) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE doctor_id = $1 AND appt_date = $2::date
		ORDER BY appt_time
	`, appointmentColumns, part.Appointments()), doctorID, date)
	if err != nil {
		return nil, fmt.Errorf("list day appointments: %w", err)
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	return result, rows.Err()
}

// BookSlot runs conflict check + insert as one serializable
// transaction. This is the consistency guarantee; the Redis slot lock
// above it only reduces contention.
func (r *PgRepository) BookSlot(ctx context.Context, part tenant.Partition, params BookSlotParams) (*Appointment, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return nil, fmt.Errorf("begin booking tx: %w", err)
	}
	defer tx.Rollback(ctx)

	forced := false
	conflict, err := r.detector.Check(ctx, tx, part, params.DoctorID, params.Date, params.Time, uuid.Nil)
	if err != nil {
		return nil, err
	}
	if conflict != nil {
		if !params.ForceOverride {
			return nil, &ConflictError{Conflict: *conflict}
		}
		forced = true
	}

	row := tx.QueryRow(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, patient_id, doctor_id, service_id, appt_date, appt_time,
			status, forced_conflict, observations, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5::date, $6, 'agendado', $7, $8, $9, now(), now())
		RETURNING %s
	`, part.Appointments(), appointmentColumns),
		uuid.New(), params.PatientID, params.DoctorID, params.ServiceID,
		params.Date, params.Time, forced, params.Observations, params.CreatedBy)

	appt, err := scanAppointment(row)
	if err != nil {
		return nil, fmt.Errorf("insert appointment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit booking tx: %w", err)
	}
	return appt, nil
}

func (r *PgRepository) MoveSlot(ctx context.Context, part tenant.Partition, params MoveSlotParams) (*Appointment, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return nil, fmt.Errorf("begin reschedule tx: %w", err)
	}
	defer tx.Rollback(ctx)

	forced := false
	conflict, err := r.detector.Check(ctx, tx, part, params.DoctorID, params.NewDate, params.NewTime, params.AppointmentID)
	if err != nil {
		return nil, err
	}
	if conflict != nil {
		if !params.ForceOverride {
			return nil, &ConflictError{Conflict: *conflict}
		}
		forced = true
	}

	row := tx.QueryRow(ctx, fmt.Sprintf(`
		UPDATE %s
		SET patient_id = $2, appt_date = $3::date, appt_time = $4,
			forced_conflict = forced_conflict OR $5, updated_at = now()
		WHERE id = $1 AND status IN ('agendado', 'confirmado')
		RETURNING %s
	`, part.Appointments(), appointmentColumns),
		params.AppointmentID, params.PatientID, params.NewDate, params.NewTime, forced)

	appt, err := scanAppointment(row)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit reschedule tx: %w", err)
	}
	return appt, nil
}

func (r *PgRepository) Transition(ctx context.Context, part tenant.Partition, id uuid.UUID, from []Status, to Status, stamp TransitionStamp) (*Appointment, error) {
	fromList := make([]string, len(from))
	for i, s := range from {
		fromList[i] = string(s)
	}

	var set string
	switch to {
	case StatusConfirmed:
		set = "status = $2, confirmed_by = $3, confirmed_at = $4, updated_at = now()"
	case StatusCancelled, StatusCancelledBlock:
		set = "status = $2, cancelled_by = $3, cancelled_at = $4, cancel_reason = $5, updated_at = now()"
	case StatusScheduled:
		// unconfirm clears the confirmation stamp
		set = "status = $2, confirmed_by = NULL, confirmed_at = NULL, updated_at = now()"
	default:
		set = "status = $2, updated_at = now()"
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET %s
		WHERE id = $1 AND status = ANY($%d)
		RETURNING %s
	`, part.Appointments(), set, argIndexAfter(to), appointmentColumns)

	args := []any{id, string(to)}
	switch to {
	case StatusConfirmed:
		args = append(args, stamp.Actor, stamp.At)
	case StatusCancelled, StatusCancelledBlock:
		args = append(args, stamp.Actor, stamp.At, stamp.Reason)
	}
	args = append(args, fromList)

	return scanAppointment(r.pool.QueryRow(ctx, query, args...))
}

// argIndexAfter returns the placeholder index of the from-status list,
// which depends on how many stamp fields the target status uses.
func argIndexAfter(to Status) int {
	switch to {
	case StatusConfirmed:
		return 5
	case StatusCancelled, StatusCancelledBlock:
		return 6
	default:
		return 3
	}
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO event_logs (tenant_id, event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, $4, now())
	`, ev.TenantID, ev.EventType, ev.AppointmentID, ev.Payload)
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}
	return nil
}
