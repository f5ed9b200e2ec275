package waitlist

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusWaiting   Status = "aguardando"
	StatusNotified  Status = "notificado"
	StatusBooked    Status = "agendado"
	StatusCancelled Status = "cancelado"
)

// Period is the patient's acceptable time-of-day window.
type Period string

const (
	PeriodMorning   Period = "manha"
	PeriodAfternoon Period = "tarde"
	PeriodAny       Period = "qualquer"
)

// Admits reports whether a freed HH:MM slot fits the preference.
func (p Period) Admits(timeOfDay string) bool {
	switch p {
	case PeriodMorning:
		return timeOfDay < "12:00"
	case PeriodAfternoon:
		return timeOfDay >= "12:00"
	default:
		return true
	}
}

// Entry is one patient waiting for a slot. Promotion order is priority
// descending, then creation time ascending; created_at is the
// tie-break, never arbitrary filter order.
type Entry struct {
	ID          uuid.UUID
	PatientID   uuid.UUID
	DoctorID    uuid.UUID
	ServiceID   uuid.UUID
	DesiredDate string // YYYY-MM-DD
	Period      Period
	Priority    int
	Deadline    *string // YYYY-MM-DD, optional
	Status      Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Expired reports whether the entry's deadline has passed. Expired
// entries are skipped by promotion but stay visible for manual
// cleanup.
func (e *Entry) Expired(today string) bool {
	return e.Deadline != nil && *e.Deadline < today
}

var (
	ErrEntryNotFound = errors.New("waitlist entry not found")
)
