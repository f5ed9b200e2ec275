package scheduling

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusScheduled      Status = "agendado"
	StatusConfirmed      Status = "confirmado"
	StatusDone           Status = "realizado"
	StatusCancelled      Status = "cancelado"
	StatusCancelledBlock Status = "cancelado_bloqueio"
)

// Live reports whether the appointment still occupies its slot.
func (s Status) Live() bool {
	return s == StatusScheduled || s == StatusConfirmed
}

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusCancelled || s == StatusCancelledBlock
}

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

type Patient struct {
	ID        uuid.UUID
	FullName  string
	BirthDate string // YYYY-MM-DD
	Phone     string
	Cell      string
	Insurance string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Identity is the soft uniqueness key for patients. Re-registration
// under the same identity reuses the existing record instead of
// creating a duplicate.
type Identity struct {
	FullName  string
	BirthDate string
	Insurance string
}

// Normalize collapses whitespace and case so cosmetic differences in
// the name or insurance never split one person into two records.
func (i Identity) Normalize() Identity {
	return Identity{
		FullName:  normalizeText(i.FullName),
		BirthDate: strings.TrimSpace(i.BirthDate),
		Insurance: normalizeText(i.Insurance),
	}
}

func normalizeText(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// IdentityOf extracts the dedup key from a patient record.
func IdentityOf(p *Patient) Identity {
	return Identity{FullName: p.FullName, BirthDate: p.BirthDate, Insurance: p.Insurance}.Normalize()
}

// TemplateWindow is one recurring availability window in a doctor's
// weekly schedule.
type TemplateWindow struct {
	Weekday     time.Weekday `json:"weekday"`
	Start       string       `json:"start"` // HH:MM
	End         string       `json:"end"`   // HH:MM, exclusive
	SlotMinutes int          `json:"slot_minutes"`
	Capacity    int          `json:"capacity"`
	Biweekly    bool         `json:"biweekly,omitempty"`
}

type Doctor struct {
	ID             uuid.UUID
	Name           string
	Specialty      string
	Active         bool
	Insurances     []string
	WeeklyTemplate []TemplateWindow
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Service is a bookable procedure/consultation type owned by a doctor
// (atendimento).
type Service struct {
	ID              uuid.UUID
	DoctorID        uuid.UUID
	Name            string
	PriceCents      int64
	DurationMinutes int
	OnlineBookable  bool
	Active          bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Appointment struct {
	ID             uuid.UUID
	PatientID      uuid.UUID
	DoctorID       uuid.UUID
	ServiceID      uuid.UUID
	Date           string // YYYY-MM-DD
	Time           string // HH:MM
	Status         Status
	ForcedConflict bool
	Observations   string
	CreatedBy      string
	CreatedAt      time.Time
	ConfirmedBy    *string
	ConfirmedAt    *time.Time
	CancelledBy    *string
	CancelledAt    *time.Time
	CancelReason   *string
	UpdatedAt      time.Time
}

// AppointmentDetail hydrates the foreign keys with display names, used
// by conflict reporting and notification rendering.
type AppointmentDetail struct {
	Appointment
	PatientName string
	PatientCell string
	DoctorName  string
	ServiceName string
}

// SlotConflict describes the live appointment occupying a slot. It is
// surfaced to callers so they can decide between override, another
// time, or the waitlist.
type SlotConflict struct {
	AppointmentID uuid.UUID
	DoctorID      uuid.UUID
	Date          string
	Time          string
	PatientName   string
}

type EventLog struct {
	ID            int64
	TenantID      uuid.UUID
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}

const (
	EventAppointmentCreated     = "APPOINTMENT_CREATED"
	EventAppointmentRescheduled = "APPOINTMENT_RESCHEDULED"
	EventAppointmentConfirmed   = "APPOINTMENT_CONFIRMED"
	EventAppointmentUnconfirmed = "APPOINTMENT_UNCONFIRMED"
	EventAppointmentCancelled   = "APPOINTMENT_CANCELLED"
)

// TimeSlot is one availability entry returned by the availability
// query.
type TimeSlot struct {
	Time      string `json:"time"`
	Available bool   `json:"available"`
	Booked    int    `json:"booked"`
	Capacity  int    `json:"capacity"`
}
