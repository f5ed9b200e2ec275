package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/agendaflow/clinic-scheduler/internal/notification"
	redisclient "github.com/agendaflow/clinic-scheduler/internal/redis"
	"github.com/agendaflow/clinic-scheduler/internal/scheduling"
	"github.com/agendaflow/clinic-scheduler/internal/waitlist"
)

func createAppointmentHandler(svc *scheduling.BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		part, ok := PartitionFrom(r.Context())
		if !ok {
			writeError(w, http.StatusInternalServerError, "internal_error", "tenant not resolved")
			return
		}

		var req CreateAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		doctorID, err := uuid.Parse(req.DoctorID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
			return
		}
		serviceID, err := uuid.Parse(req.ServiceID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_service_id", "service_id must be a valid UUID")
			return
		}

		result, err := svc.Create(r.Context(), part, scheduling.CreateParams{
			Patient: scheduling.PatientInput{
				FullName:  req.Patient.FullName,
				BirthDate: req.Patient.BirthDate,
				Phone:     req.Patient.Phone,
				Cell:      req.Patient.Cell,
				Insurance: req.Patient.Insurance,
			},
			DoctorID:      doctorID,
			ServiceID:     serviceID,
			Date:          req.Date,
			Time:          req.Time,
			Observations:  req.Observations,
			ForceOverride: req.ForceOverride,
			CreatedBy:     req.CreatedBy,
		})
		if err != nil {
			handleSchedulingError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, CreateAppointmentResponse{
			AppointmentID: result.AppointmentID,
			PatientID:     result.PatientID,
			Forced:        result.Forced,
		})
	}
}

func getAppointmentHandler(svc *scheduling.BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		part, ok := PartitionFrom(r.Context())
		if !ok {
			writeError(w, http.StatusInternalServerError, "internal_error", "tenant not resolved")
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		detail, err := svc.Detail(r.Context(), part, id)
		if err != nil {
			handleSchedulingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, AppointmentDetailResponse{
			AppointmentResponse: toAppointmentResponse(&detail.Appointment),
			PatientName:         detail.PatientName,
			DoctorName:          detail.DoctorName,
			ServiceName:         detail.ServiceName,
		})
	}
}

func rescheduleAppointmentHandler(svc *scheduling.BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		part, ok := PartitionFrom(r.Context())
		if !ok {
			writeError(w, http.StatusInternalServerError, "internal_error", "tenant not resolved")
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		var req RescheduleAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		params := scheduling.RescheduleParams{
			AppointmentID: id,
			NewDate:       req.NewDate,
			NewTime:       req.NewTime,
			Actor:         req.Actor,
			ForceOverride: req.ForceOverride,
		}
		if req.Patient != nil {
			params.Patient = &scheduling.PatientInput{
				FullName:  req.Patient.FullName,
				BirthDate: req.Patient.BirthDate,
				Phone:     req.Patient.Phone,
				Cell:      req.Patient.Cell,
				Insurance: req.Patient.Insurance,
			}
		}

		appt, err := svc.Reschedule(r.Context(), part, params)
		if err != nil {
			handleSchedulingError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func cancelAppointmentHandler(svc *scheduling.BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		part, ok := PartitionFrom(r.Context())
		if !ok {
			writeError(w, http.StatusInternalServerError, "internal_error", "tenant not resolved")
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		var req CancelAppointmentRequest
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&req)
		}

		appt, err := svc.Cancel(r.Context(), part, id, req.Actor, req.Reason, req.ScheduleBlock)
		if err != nil {
			handleSchedulingError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func transitionAppointmentHandler(svc *scheduling.BookingService, action string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		part, ok := PartitionFrom(r.Context())
		if !ok {
			writeError(w, http.StatusInternalServerError, "internal_error", "tenant not resolved")
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		var req TransitionRequest
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&req)
		}

		var appt *scheduling.Appointment
		switch action {
		case "confirm":
			appt, err = svc.Confirm(r.Context(), part, id, req.Actor)
		case "unconfirm":
			appt, err = svc.Unconfirm(r.Context(), part, id, req.Actor)
		case "complete":
			appt, err = svc.MarkDone(r.Context(), part, id, req.Actor)
		}
		if err != nil {
			handleSchedulingError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func availabilityHandler(svc *scheduling.BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		part, ok := PartitionFrom(r.Context())
		if !ok {
			writeError(w, http.StatusInternalServerError, "internal_error", "tenant not resolved")
			return
		}

		doctorRef := r.URL.Query().Get("doctor")
		date := r.URL.Query().Get("date")
		if doctorRef == "" || date == "" {
			writeError(w, http.StatusBadRequest, "invalid_query", "doctor and date are required")
			return
		}

		slots, err := svc.Availability(r.Context(), part, doctorRef, date)
		if err != nil {
			handleSchedulingError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"date": date, "slots": slots})
	}
}

func searchPatientsHandler(svc *scheduling.BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		part, ok := PartitionFrom(r.Context())
		if !ok {
			writeError(w, http.StatusInternalServerError, "internal_error", "tenant not resolved")
			return
		}

		patients, err := svc.SearchPatients(r.Context(), part,
			r.URL.Query().Get("name"), r.URL.Query().Get("birth_date"))
		if err != nil {
			handleSchedulingError(w, err)
			return
		}

		out := make([]PatientResponse, 0, len(patients))
		for _, p := range patients {
			out = append(out, PatientResponse{
				ID:        p.ID,
				FullName:  p.FullName,
				BirthDate: p.BirthDate,
				Phone:     p.Phone,
				Cell:      p.Cell,
				Insurance: p.Insurance,
			})
		}
		writeJSON(w, http.StatusOK, map[string]any{"patients": out})
	}
}

func addWaitlistHandler(mgr *waitlist.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		part, ok := PartitionFrom(r.Context())
		if !ok {
			writeError(w, http.StatusInternalServerError, "internal_error", "tenant not resolved")
			return
		}

		var req AddWaitlistRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		patientID, err := uuid.Parse(req.PatientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
			return
		}
		doctorID, err := uuid.Parse(req.DoctorID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
			return
		}
		serviceID, err := uuid.Parse(req.ServiceID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_service_id", "service_id must be a valid UUID")
			return
		}

		entry, err := mgr.Add(r.Context(), part, waitlist.AddParams{
			PatientID:   patientID,
			DoctorID:    doctorID,
			ServiceID:   serviceID,
			DesiredDate: req.DesiredDate,
			Period:      waitlist.Period(req.Period),
			Priority:    req.Priority,
			Deadline:    req.Deadline,
		})
		if err != nil {
			handleSchedulingError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toWaitlistResponse(entry))
	}
}

func listWaitlistHandler(mgr *waitlist.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		part, ok := PartitionFrom(r.Context())
		if !ok {
			writeError(w, http.StatusInternalServerError, "internal_error", "tenant not resolved")
			return
		}

		var f waitlist.Filter
		if s := r.URL.Query().Get("doctor_id"); s != "" {
			id, err := uuid.Parse(s)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
				return
			}
			f.DoctorID = id
		}
		f.Status = waitlist.Status(r.URL.Query().Get("status"))
		f.Date = r.URL.Query().Get("date")

		entries, err := mgr.List(r.Context(), part, f)
		if err != nil {
			handleSchedulingError(w, err)
			return
		}

		out := make([]WaitlistEntryResponse, 0, len(entries))
		for i := range entries {
			out = append(out, toWaitlistResponse(&entries[i]))
		}
		writeJSON(w, http.StatusOK, map[string]any{"entries": out})
	}
}

func cancelWaitlistHandler(mgr *waitlist.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		part, ok := PartitionFrom(r.Context())
		if !ok {
			writeError(w, http.StatusInternalServerError, "internal_error", "tenant not resolved")
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_entry_id", "id must be a valid UUID")
			return
		}

		entry, err := mgr.Cancel(r.Context(), part, id)
		if err != nil {
			handleSchedulingError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toWaitlistResponse(entry))
	}
}

func promoteWaitlistHandler(mgr *waitlist.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		part, ok := PartitionFrom(r.Context())
		if !ok {
			writeError(w, http.StatusInternalServerError, "internal_error", "tenant not resolved")
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_entry_id", "id must be a valid UUID")
			return
		}

		var req PromoteWaitlistRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		result, err := mgr.Promote(r.Context(), part, id, req.Time)
		if err != nil {
			handleSchedulingError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, CreateAppointmentResponse{
			AppointmentID: result.AppointmentID,
			PatientID:     result.PatientID,
		})
	}
}

func handleSchedulingError(w http.ResponseWriter, err error) {
	var validation *scheduling.ValidationError
	var conflict *scheduling.ConflictError
	var state *scheduling.AlreadyInStateError

	switch {
	case errors.As(err, &validation):
		writeErrorDetails(w, http.StatusBadRequest, "validation_error", validation.Reason,
			map[string]string{"field": validation.Field})
	case errors.As(err, &conflict):
		writeErrorDetails(w, http.StatusConflict, "slot_conflict", err.Error(), ConflictDetail{
			AppointmentID: conflict.Conflict.AppointmentID,
			DoctorID:      conflict.Conflict.DoctorID,
			Date:          conflict.Conflict.Date,
			Time:          conflict.Conflict.Time,
			PatientName:   conflict.Conflict.PatientName,
		})
	case errors.As(err, &state):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	case errors.Is(err, scheduling.ErrSlotBusy),
		errors.Is(err, redisclient.ErrLockNotAcquired):
		writeError(w, http.StatusConflict, "slot_being_booked", "slot is currently being booked, please retry shortly")
	case errors.Is(err, scheduling.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	case errors.Is(err, scheduling.ErrDoctorNotFound):
		writeError(w, http.StatusNotFound, "doctor_not_found", err.Error())
	case errors.Is(err, scheduling.ErrDoctorInactive):
		writeError(w, http.StatusConflict, "doctor_inactive", err.Error())
	case errors.Is(err, scheduling.ErrServiceNotFound):
		writeError(w, http.StatusNotFound, "service_not_found", err.Error())
	case errors.Is(err, scheduling.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, waitlist.ErrEntryNotFound):
		writeError(w, http.StatusNotFound, "waitlist_entry_not_found", err.Error())
	case errors.Is(err, notification.ErrTransport):
		writeError(w, http.StatusBadGateway, "notification_transport", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
