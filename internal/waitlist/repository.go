package waitlist

import (
	"context"

	"github.com/google/uuid"

	"github.com/agendaflow/clinic-scheduler/internal/tenant"
)

type Filter struct {
	DoctorID uuid.UUID // optional
	Status   Status    // optional
	Date     string    // optional desired date
}

// Repository contains the partition-scoped waitlist persistence.
type Repository interface {
	Insert(ctx context.Context, part tenant.Partition, e *Entry) error
	GetByID(ctx context.Context, part tenant.Partition, id uuid.UUID) (*Entry, error)
	List(ctx context.Context, part tenant.Partition, f Filter) ([]Entry, error)

	// Candidates returns unexpired aguardando entries for the doctor and
	// date, ordered priority DESC then created_at ASC.
	Candidates(ctx context.Context, part tenant.Partition, doctorID uuid.UUID, date, today string) ([]Entry, error)

	// Transition applies a status-guarded update; ErrEntryNotFound when
	// no row matched id+from.
	Transition(ctx context.Context, part tenant.Partition, id uuid.UUID, from []Status, to Status) (*Entry, error)
}
