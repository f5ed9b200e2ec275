package waitlist

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/agendaflow/clinic-scheduler/internal/tenant"
)

type PgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PgRepository struct {
	pool PgxQuerier
}

func NewPgRepository(pool PgxQuerier) *PgRepository {
	return &PgRepository{pool: pool}
}

const entryColumns = `id, patient_id, doctor_id, service_id,
	to_char(desired_date, 'YYYY-MM-DD'), period, priority,
	to_char(deadline, 'YYYY-MM-DD'), status, created_at, updated_at`

func scanEntry(row pgx.Row) (*Entry, error) {
	var e Entry
	err := row.Scan(
		&e.ID,
		&e.PatientID,
		&e.DoctorID,
		&e.ServiceID,
		&e.DesiredDate,
		&e.Period,
		&e.Priority,
		&e.Deadline,
		&e.Status,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEntryNotFound
		}
		return nil, err
	}
	return &e, nil
}

func (r *PgRepository) Insert(ctx context.Context, part tenant.Partition, e *Entry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	_, err := r.pool.Exec(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, patient_id, doctor_id, service_id, desired_date, period, priority, deadline, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5::date, $6, $7, $8::date, 'aguardando', now(), now())
	`, part.Waitlist()),
		e.ID, e.PatientID, e.DoctorID, e.ServiceID, e.DesiredDate, string(e.Period), e.Priority, e.Deadline)
	if err != nil {
		return fmt.Errorf("insert waitlist entry: %w", err)
	}
	e.Status = StatusWaiting
	return nil
}

func (r *PgRepository) GetByID(ctx context.Context, part tenant.Partition, id uuid.UUID) (*Entry, error) {
	row := r.pool.QueryRow(ctx, fmt.Sprintf(`
		SELECT %s FROM %s WHERE id = $1
	`, entryColumns, part.Waitlist()), id)
	return scanEntry(row)
}

func (r *PgRepository) List(ctx context.Context, part tenant.Partition, f Filter) ([]Entry, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE ($1::uuid IS NULL OR doctor_id = $1)
		  AND ($2 = '' OR status = $2)
		  AND ($3 = '' OR desired_date = $3::date)
		ORDER BY priority DESC, created_at ASC
	`, entryColumns, part.Waitlist())

	var doctorArg *uuid.UUID
	if f.DoctorID != uuid.Nil {
		doctorArg = &f.DoctorID
	}

	rows, err := r.pool.Query(ctx, query, doctorArg, string(f.Status), f.Date)
	if err != nil {
		return nil, fmt.Errorf("list waitlist: %w", err)
	}
	defer rows.Close()

	var result []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *e)
	}
	return result, rows.Err()
}

func (r *PgRepository) Candidates(ctx context.Context, part tenant.Partition, doctorID uuid.UUID, date, today string) ([]Entry, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE doctor_id = $1
		  AND desired_date = $2::date
		  AND status = 'aguardando'
		  AND (deadline IS NULL OR deadline >= $3::date)
		ORDER BY priority DESC, created_at ASC
	`, entryColumns, part.Waitlist())

	rows, err := r.pool.Query(ctx, query, doctorID, date, today)
	if err != nil {
		return nil, fmt.Errorf("list promotion candidates: %w", err)
	}
	defer rows.Close()

	var result []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *e)
	}
	return result, rows.Err()
}

func (r *PgRepository) Transition(ctx context.Context, part tenant.Partition, id uuid.UUID, from []Status, to Status) (*Entry, error) {
	fromList := make([]string, len(from))
	for i, s := range from {
		fromList[i] = string(s)
	}

	row := r.pool.QueryRow(ctx, fmt.Sprintf(`
		UPDATE %s
		SET status = $2, updated_at = now()
		WHERE id = $1 AND status = ANY($3)
		RETURNING %s
	`, part.Waitlist(), entryColumns), id, string(to), fromList)
	return scanEntry(row)
}
