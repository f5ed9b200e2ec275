package scheduling

import (
	"errors"
	"fmt"
)

var (
	ErrPatientNotFound     = errors.New("patient not found")
	ErrDoctorNotFound      = errors.New("doctor not found")
	ErrDoctorInactive      = errors.New("doctor is not active")
	ErrServiceNotFound     = errors.New("service not found")
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrSlotBusy            = errors.New("slot is currently being booked, please retry")
)

// ConflictError is returned when a booking attempt finds a live
// appointment in the requested slot and the caller did not force the
// override.
type ConflictError struct {
	Conflict SlotConflict
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("slot %s %s already booked for %s",
		e.Conflict.Date, e.Conflict.Time, e.Conflict.PatientName)
}

// AlreadyInStateError is returned when a transition is attempted on an
// appointment whose current status does not admit it.
type AlreadyInStateError struct {
	Current Status
	Attempt string
}

func (e *AlreadyInStateError) Error() string {
	return fmt.Sprintf("cannot %s appointment in status %q", e.Attempt, e.Current)
}

// ValidationError rejects malformed input before any write happens.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
