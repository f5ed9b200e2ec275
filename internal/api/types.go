package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/agendaflow/clinic-scheduler/internal/scheduling"
	"github.com/agendaflow/clinic-scheduler/internal/waitlist"
)

type PatientPayload struct {
	FullName  string `json:"full_name"`
	BirthDate string `json:"birth_date"`
	Phone     string `json:"phone,omitempty"`
	Cell      string `json:"cell,omitempty"`
	Insurance string `json:"insurance,omitempty"`
}

type CreateAppointmentRequest struct {
	Patient       PatientPayload `json:"patient"`
	DoctorID      string         `json:"doctor_id"`
	ServiceID     string         `json:"service_id"`
	Date          string         `json:"date"`
	Time          string         `json:"time"`
	Observations  string         `json:"observations,omitempty"`
	ForceOverride bool           `json:"force_override,omitempty"`
	CreatedBy     string         `json:"created_by,omitempty"`
}

type CreateAppointmentResponse struct {
	AppointmentID uuid.UUID `json:"appointment_id"`
	PatientID     uuid.UUID `json:"patient_id"`
	Forced        bool      `json:"forced"`
}

type RescheduleAppointmentRequest struct {
	NewDate       string          `json:"new_date"`
	NewTime       string          `json:"new_time"`
	Patient       *PatientPayload `json:"patient,omitempty"`
	Actor         string          `json:"actor,omitempty"`
	ForceOverride bool            `json:"force_override,omitempty"`
}

type CancelAppointmentRequest struct {
	Actor         string `json:"actor,omitempty"`
	Reason        string `json:"reason,omitempty"`
	ScheduleBlock bool   `json:"schedule_block,omitempty"`
}

type TransitionRequest struct {
	Actor string `json:"actor,omitempty"`
}

type AppointmentResponse struct {
	ID             uuid.UUID  `json:"id"`
	PatientID      uuid.UUID  `json:"patient_id"`
	DoctorID       uuid.UUID  `json:"doctor_id"`
	ServiceID      uuid.UUID  `json:"service_id"`
	Date           string     `json:"date"`
	Time           string     `json:"time"`
	Status         string     `json:"status"`
	ForcedConflict bool       `json:"forced_conflict"`
	Observations   string     `json:"observations,omitempty"`
	ConfirmedBy    *string    `json:"confirmed_by,omitempty"`
	ConfirmedAt    *time.Time `json:"confirmed_at,omitempty"`
	CancelledBy    *string    `json:"cancelled_by,omitempty"`
	CancelledAt    *time.Time `json:"cancelled_at,omitempty"`
	CancelReason   *string    `json:"cancel_reason,omitempty"`
}

func toAppointmentResponse(a *scheduling.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:             a.ID,
		PatientID:      a.PatientID,
		DoctorID:       a.DoctorID,
		ServiceID:      a.ServiceID,
		Date:           a.Date,
		Time:           a.Time,
		Status:         string(a.Status),
		ForcedConflict: a.ForcedConflict,
		Observations:   a.Observations,
		ConfirmedBy:    a.ConfirmedBy,
		ConfirmedAt:    a.ConfirmedAt,
		CancelledBy:    a.CancelledBy,
		CancelledAt:    a.CancelledAt,
		CancelReason:   a.CancelReason,
	}
}

type AppointmentDetailResponse struct {
	AppointmentResponse
	PatientName string `json:"patient_name"`
	DoctorName  string `json:"doctor_name"`
	ServiceName string `json:"service_name"`
}

type ConflictDetail struct {
	AppointmentID uuid.UUID `json:"appointment_id"`
	DoctorID      uuid.UUID `json:"doctor_id"`
	Date          string    `json:"date"`
	Time          string    `json:"time"`
	PatientName   string    `json:"patient_name"`
}

type PatientResponse struct {
	ID        uuid.UUID `json:"id"`
	FullName  string    `json:"full_name"`
	BirthDate string    `json:"birth_date"`
	Phone     string    `json:"phone,omitempty"`
	Cell      string    `json:"cell,omitempty"`
	Insurance string    `json:"insurance,omitempty"`
}

type AddWaitlistRequest struct {
	PatientID   string  `json:"patient_id"`
	DoctorID    string  `json:"doctor_id"`
	ServiceID   string  `json:"service_id"`
	DesiredDate string  `json:"desired_date"`
	Period      string  `json:"period,omitempty"`
	Priority    int     `json:"priority,omitempty"`
	Deadline    *string `json:"deadline,omitempty"`
}

type WaitlistEntryResponse struct {
	ID          uuid.UUID `json:"id"`
	PatientID   uuid.UUID `json:"patient_id"`
	DoctorID    uuid.UUID `json:"doctor_id"`
	ServiceID   uuid.UUID `json:"service_id"`
	DesiredDate string    `json:"desired_date"`
	Period      string    `json:"period"`
	Priority    int       `json:"priority"`
	Deadline    *string   `json:"deadline,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

func toWaitlistResponse(e *waitlist.Entry) WaitlistEntryResponse {
	return WaitlistEntryResponse{
		ID:          e.ID,
		PatientID:   e.PatientID,
		DoctorID:    e.DoctorID,
		ServiceID:   e.ServiceID,
		DesiredDate: e.DesiredDate,
		Period:      string(e.Period),
		Priority:    e.Priority,
		Deadline:    e.Deadline,
		Status:      string(e.Status),
		CreatedAt:   e.CreatedAt,
	}
}

type PromoteWaitlistRequest struct {
	Time string `json:"time"`
}
