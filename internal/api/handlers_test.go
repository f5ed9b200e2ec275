package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agendaflow/clinic-scheduler/internal/notification"
	"github.com/agendaflow/clinic-scheduler/internal/scheduling"
	"github.com/agendaflow/clinic-scheduler/internal/waitlist"
)

func TestHandleSchedulingErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{
			name:   "validation is 400",
			err:    &scheduling.ValidationError{Field: "date", Reason: "expected YYYY-MM-DD"},
			status: http.StatusBadRequest,
			code:   "validation_error",
		},
		{
			name:   "state transition is 409",
			err:    &scheduling.AlreadyInStateError{Current: scheduling.StatusCancelled, Attempt: "confirm"},
			status: http.StatusConflict,
			code:   "invalid_status_transition",
		},
		{
			name:   "slot busy is 409",
			err:    scheduling.ErrSlotBusy,
			status: http.StatusConflict,
			code:   "slot_being_booked",
		},
		{
			name:   "doctor not found is 404",
			err:    scheduling.ErrDoctorNotFound,
			status: http.StatusNotFound,
			code:   "doctor_not_found",
		},
		{
			name:   "inactive doctor is 409",
			err:    scheduling.ErrDoctorInactive,
			status: http.StatusConflict,
			code:   "doctor_inactive",
		},
		{
			name:   "appointment not found is 404",
			err:    scheduling.ErrAppointmentNotFound,
			status: http.StatusNotFound,
			code:   "appointment_not_found",
		},
		{
			name:   "waitlist entry not found is 404",
			err:    waitlist.ErrEntryNotFound,
			status: http.StatusNotFound,
			code:   "waitlist_entry_not_found",
		},
		{
			name:   "transport failure is 502",
			err:    notification.ErrTransport,
			status: http.StatusBadGateway,
			code:   "notification_transport",
		},
		{
			name:   "anything else is 500",
			err:    errors.New("connection reset"),
			status: http.StatusInternalServerError,
			code:   "internal_error",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handleSchedulingError(rec, tc.err)

			assert.Equal(t, tc.status, rec.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tc.code, resp.Error)
		})
	}
}

func TestHandleSchedulingErrorConflictCarriesOccupant(t *testing.T) {
	conflict := &scheduling.ConflictError{Conflict: scheduling.SlotConflict{
		AppointmentID: uuid.New(),
		DoctorID:      uuid.New(),
		Date:          "2026-09-14",
		Time:          "09:00",
		PatientName:   "Maria da Silva",
	}}

	rec := httptest.NewRecorder()
	handleSchedulingError(rec, conflict)

	assert.Equal(t, http.StatusConflict, rec.Code)

	var resp struct {
		Error   string         `json:"error"`
		Details ConflictDetail `json:"details"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "slot_conflict", resp.Error)
	assert.Equal(t, conflict.Conflict.AppointmentID, resp.Details.AppointmentID)
	assert.Equal(t, "09:00", resp.Details.Time)
	assert.Equal(t, "Maria da Silva", resp.Details.PatientName)
}

func TestHandleSchedulingErrorValidationCarriesField(t *testing.T) {
	rec := httptest.NewRecorder()
	handleSchedulingError(rec, &scheduling.ValidationError{
		Field:  "patient.full_name",
		Reason: "full name is required",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp struct {
		Error   string            `json:"error"`
		Message string            `json:"message"`
		Details map[string]string `json:"details"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "validation_error", resp.Error)
	assert.Equal(t, "full name is required", resp.Message)
	assert.Equal(t, "patient.full_name", resp.Details["field"])
}

func TestWriteErrorEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")

	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "invalid_request_body", resp.Error)
	assert.Equal(t, "could not parse JSON", resp.Message)
	assert.Nil(t, resp.Details)
}
