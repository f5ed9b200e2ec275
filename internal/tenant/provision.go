package tenant

import (
	"context"
	"fmt"
)

// partitionDDL holds one CREATE TABLE statement per partition table,
// with %[1]s standing in for the validated tenant prefix.
var partitionDDL = []string{
	`CREATE TABLE IF NOT EXISTS %[1]s_patients (
		id UUID PRIMARY KEY,
		full_name TEXT NOT NULL,
		birth_date DATE NOT NULL,
		phone TEXT NOT NULL DEFAULT '',
		cell TEXT NOT NULL DEFAULT '',
		insurance TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS %[1]s_patients_identity_idx
		ON %[1]s_patients (lower(full_name), birth_date, lower(insurance))`,
	`CREATE TABLE IF NOT EXISTS %[1]s_doctors (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		specialty TEXT NOT NULL DEFAULT '',
		active BOOLEAN NOT NULL DEFAULT TRUE,
		insurances TEXT[] NOT NULL DEFAULT '{}',
		weekly_template JSONB NOT NULL DEFAULT '[]',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS %[1]s_services (
		id UUID PRIMARY KEY,
		doctor_id UUID NOT NULL REFERENCES %[1]s_doctors(id),
		name TEXT NOT NULL,
		price_cents BIGINT NOT NULL DEFAULT 0,
		duration_minutes INT NOT NULL DEFAULT 30,
		online_bookable BOOLEAN NOT NULL DEFAULT TRUE,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS %[1]s_appointments (
		id UUID PRIMARY KEY,
		patient_id UUID NOT NULL REFERENCES %[1]s_patients(id),
		doctor_id UUID NOT NULL REFERENCES %[1]s_doctors(id),
		service_id UUID NOT NULL REFERENCES %[1]s_services(id),
		appt_date DATE NOT NULL,
		appt_time TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'agendado',
		forced_conflict BOOLEAN NOT NULL DEFAULT FALSE,
		observations TEXT NOT NULL DEFAULT '',
		created_by TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		confirmed_by TEXT,
		confirmed_at TIMESTAMPTZ,
		cancelled_by TEXT,
		cancelled_at TIMESTAMPTZ,
		cancel_reason TEXT,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS %[1]s_appointments_slot_idx
		ON %[1]s_appointments (doctor_id, appt_date, appt_time)`,
	`CREATE TABLE IF NOT EXISTS %[1]s_waitlist (
		id UUID PRIMARY KEY,
		patient_id UUID NOT NULL REFERENCES %[1]s_patients(id),
		doctor_id UUID NOT NULL REFERENCES %[1]s_doctors(id),
		service_id UUID NOT NULL REFERENCES %[1]s_services(id),
		desired_date DATE NOT NULL,
		period TEXT NOT NULL DEFAULT 'qualquer',
		priority INT NOT NULL DEFAULT 0,
		deadline DATE,
		status TEXT NOT NULL DEFAULT 'aguardando',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS %[1]s_waitlist_promotion_idx
		ON %[1]s_waitlist (status, priority DESC, created_at ASC)`,
}

// Provisioner creates the physical table set for a tenant partition.
// Runs during tenant onboarding and from cmd/seed.
type Provisioner struct {
	pool PgxQuerier
}

func NewProvisioner(pool PgxQuerier) *Provisioner {
	return &Provisioner{pool: pool}
}

func (p *Provisioner) Provision(ctx context.Context, t *Tenant) error {
	if !ValidPrefix(t.TablePrefix) {
		return fmt.Errorf("%w: %q", ErrBadPrefix, t.TablePrefix)
	}

	for _, stmt := range partitionDDL {
		if _, err := p.pool.Exec(ctx, fmt.Sprintf(stmt, t.TablePrefix)); err != nil {
			return fmt.Errorf("provision partition %q: %w", t.TablePrefix, err)
		}
	}
	return nil
}
