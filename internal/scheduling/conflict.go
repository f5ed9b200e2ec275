package scheduling

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/agendaflow/clinic-scheduler/internal/tenant"
)

// Detector answers whether a doctor/date/time slot is occupied by a
// live appointment. It is a pure read; the caller decides the queryer,
// and for booking that queryer must be the same transaction the insert
// runs in. A check against the pool alone proves nothing under
// concurrent writers.
type Detector struct{}

// Check returns the occupying appointment, or nil when the slot is
// free. excludeID skips a given appointment so a reschedule does not
// conflict with itself; pass uuid.Nil otherwise.
func (Detector) Check(ctx context.Context, q Querier, part tenant.Partition, doctorID uuid.UUID, date, timeOfDay string, excludeID uuid.UUID) (*SlotConflict, error) {
	query := fmt.Sprintf(`
		SELECT a.id, a.doctor_id, to_char(a.appt_date, 'YYYY-MM-DD'), a.appt_time, p.full_name
		FROM %s a
		JOIN %s p ON p.id = a.patient_id
		WHERE a.doctor_id = $1
		  AND a.appt_date = $2::date
		  AND a.appt_time = $3
		  AND a.status IN ('agendado', 'confirmado')
		  AND a.id <> $4
		LIMIT 1
	`, part.Appointments(), part.Patients())

	var c SlotConflict
	err := q.QueryRow(ctx, query, doctorID, date, timeOfDay, excludeID).Scan(
		&c.AppointmentID,
		&c.DoctorID,
		&c.Date,
		&c.Time,
		&c.PatientName,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("check slot conflict: %w", err)
	}

	return &c, nil
}
