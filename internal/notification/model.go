package notification

import (
	"time"

	"github.com/google/uuid"
)

// Template types. The offset types fire ahead of the appointment;
// confirmacao and cancelamento fire immediately on their events.
const (
	Type48h          = "48h"
	Type24h          = "24h"
	Type2h           = "2h"
	TypeConfirmation = "confirmacao"
	TypeCancellation = "cancelamento"
)

type Template struct {
	ID      uuid.UUID
	Type    string
	Subject string
	Body    string // text/template with named placeholders
	Active  bool
}

type DeliveryStatus string

const (
	StatusPending   DeliveryStatus = "pending"
	StatusSent      DeliveryStatus = "sent"
	StatusFailed    DeliveryStatus = "failed"
	StatusCancelled DeliveryStatus = "cancelled"
)

// ScheduledNotification is one computed reminder/confirmation waiting
// for its fire time.
type ScheduledNotification struct {
	ID            uuid.UUID
	TenantID      uuid.UUID
	AppointmentID uuid.UUID
	TemplateType  string
	FireTime      time.Time
	Status        DeliveryStatus
	Attempts      int
	LastError     *string
	SentAt        *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TemplateData is the placeholder set available to message bodies.
type TemplateData struct {
	PatientName   string
	Date          string
	Time          string
	DoctorName    string
	ServiceName   string
	ClinicName    string
	ClinicAddress string
	ClinicPhone   string
}
