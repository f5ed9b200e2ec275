package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/agendaflow/clinic-scheduler/internal/tenant"
)

// PgxPool is the pool surface the repository needs. pgxmock satisfies
// it in tests.
type PgxPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Querier is the subset shared by pools and transactions, so the
// conflict check can run against either.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type BookSlotParams struct {
	PatientID     uuid.UUID
	DoctorID      uuid.UUID
	ServiceID     uuid.UUID
	Date          string
	Time          string
	Observations  string
	CreatedBy     string
	ForceOverride bool
}

type MoveSlotParams struct {
	AppointmentID uuid.UUID
	DoctorID      uuid.UUID
	PatientID     uuid.UUID // possibly re-pointed during reschedule
	NewDate       string
	NewTime       string
	Actor         string
	ForceOverride bool
}

// TransitionStamp carries the audit fields for a status transition.
type TransitionStamp struct {
	Actor  string
	At     time.Time
	Reason string
}

// Repository contains all partition-scoped DB interactions the booking
// core needs. Every method is parameterized by the resolved tenant
// partition; there are no partition-free queries.
type Repository interface {
	FindPatientByIdentity(ctx context.Context, part tenant.Partition, id Identity) (*Patient, error)
	CreatePatient(ctx context.Context, part tenant.Partition, p *Patient) error
	UpdatePatient(ctx context.Context, part tenant.Partition, p *Patient) error
	SearchPatients(ctx context.Context, part tenant.Partition, name, birthDate string) ([]Patient, error)

	GetDoctorByID(ctx context.Context, part tenant.Partition, id uuid.UUID) (*Doctor, error)
	GetDoctorByName(ctx context.Context, part tenant.Partition, name string) (*Doctor, error)
	GetServiceByID(ctx context.Context, part tenant.Partition, id uuid.UUID) (*Service, error)

	GetAppointmentByID(ctx context.Context, part tenant.Partition, id uuid.UUID) (*Appointment, error)
	GetAppointmentDetail(ctx context.Context, part tenant.Partition, id uuid.UUID) (*AppointmentDetail, error)
	ListDayAppointments(ctx context.Context, part tenant.Partition, doctorID uuid.UUID, date string) ([]Appointment, error)

	// BookSlot runs the conflict check and the insert inside one
	// serializable transaction. Returns *ConflictError when the slot is
	// occupied and the params do not force the override.
	BookSlot(ctx context.Context, part tenant.Partition, params BookSlotParams) (*Appointment, error)

	// MoveSlot is the reschedule counterpart: same transactional check,
	// excluding the appointment's own id.
	MoveSlot(ctx context.Context, part tenant.Partition, params MoveSlotParams) (*Appointment, error)

	// Transition applies a status-guarded update. Returns
	// ErrAppointmentNotFound when no row matched id+from.
	Transition(ctx context.Context, part tenant.Partition, id uuid.UUID, from []Status, to Status, stamp TransitionStamp) (*Appointment, error)

	InsertEvent(ctx context.Context, ev EventLog) error
}
