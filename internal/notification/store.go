package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Store persists notification templates and scheduled notifications.
// Both live in shared tables tagged with the tenant id; the heavy
// per-tenant data stays in the partitions.
type Store interface {
	ActiveTemplates(ctx context.Context) (map[string]Template, error)
	Upsert(ctx context.Context, n *ScheduledNotification) error
	CancelPending(ctx context.Context, tenantID, appointmentID uuid.UUID) (int64, error)
	Due(ctx context.Context, now time.Time, limit int) ([]ScheduledNotification, error)
	MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkCancelled(ctx context.Context, id uuid.UUID) error
	RecordFailure(ctx context.Context, id uuid.UUID, attempts int, lastError string, terminal bool) error
}

type PgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PgStore struct {
	pool PgxQuerier
}

func NewPgStore(pool PgxQuerier) *PgStore {
	return &PgStore{pool: pool}
}

func (s *PgStore) ActiveTemplates(ctx context.Context) (map[string]Template, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, type, subject, body, active
		FROM notification_templates
		WHERE active
	`)
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}
	defer rows.Close()

	out := make(map[string]Template)
	for rows.Next() {
		var t Template
		if err := rows.Scan(&t.ID, &t.Type, &t.Subject, &t.Body, &t.Active); err != nil {
			return nil, err
		}
		out[t.Type] = t
	}
	return out, rows.Err()
}

// Upsert inserts or refreshes the notification for (appointment,
// template type): a reschedule recomputes fire time and resets the
// delivery state.
func (s *PgStore) Upsert(ctx context.Context, n *ScheduledNotification) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO scheduled_notifications
			(id, tenant_id, appointment_id, template_type, fire_time, status, attempts, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 'pending', 0, now(), now())
		ON CONFLICT (appointment_id, template_type)
		DO UPDATE SET fire_time = EXCLUDED.fire_time, status = 'pending', attempts = 0,
			last_error = NULL, sent_at = NULL, updated_at = now()
	`, n.ID, n.TenantID, n.AppointmentID, n.TemplateType, n.FireTime)
	if err != nil {
		return fmt.Errorf("upsert scheduled notification: %w", err)
	}
	return nil
}

func (s *PgStore) CancelPending(ctx context.Context, tenantID, appointmentID uuid.UUID) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE scheduled_notifications
		SET status = 'cancelled', updated_at = now()
		WHERE tenant_id = $1 AND appointment_id = $2 AND status = 'pending'
	`, tenantID, appointmentID)
	if err != nil {
		return 0, fmt.Errorf("cancel pending notifications: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PgStore) Due(ctx context.Context, now time.Time, limit int) ([]ScheduledNotification, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, tenant_id, appointment_id, template_type, fire_time, status, attempts, last_error, sent_at, created_at, updated_at
		FROM scheduled_notifications
		WHERE status = 'pending' AND fire_time <= $1
		ORDER BY fire_time
		LIMIT $2
	`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("select due notifications: %w", err)
	}
	defer rows.Close()

	var out []ScheduledNotification
	for rows.Next() {
		var n ScheduledNotification
		if err := rows.Scan(&n.ID, &n.TenantID, &n.AppointmentID, &n.TemplateType, &n.FireTime,
			&n.Status, &n.Attempts, &n.LastError, &n.SentAt, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *PgStore) MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE scheduled_notifications
		SET status = 'sent', sent_at = $2, updated_at = now()
		WHERE id = $1
	`, id, at)
	return err
}

func (s *PgStore) MarkCancelled(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE scheduled_notifications
		SET status = 'cancelled', updated_at = now()
		WHERE id = $1
	`, id)
	return err
}

func (s *PgStore) RecordFailure(ctx context.Context, id uuid.UUID, attempts int, lastError string, terminal bool) error {
	status := string(StatusPending)
	if terminal {
		status = string(StatusFailed)
	}
	_, err := s.pool.Exec(ctx, `
		UPDATE scheduled_notifications
		SET attempts = $2, last_error = $3, status = $4, updated_at = now()
		WHERE id = $1
	`, id, attempts, lastError, status)
	return err
}
