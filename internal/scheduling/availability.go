package scheduling

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/agendaflow/clinic-scheduler/internal/tenant"
)

// Availability expands the doctor's weekly template for a date and
// intersects it with that day's live appointments. doctorRef is a uuid
// or a doctor name.
func (s *BookingService) Availability(ctx context.Context, part tenant.Partition, doctorRef, date string) ([]TimeSlot, error) {
	day, err := time.Parse(DateLayout, date)
	if err != nil {
		return nil, &ValidationError{Field: "date", Reason: "expected YYYY-MM-DD"}
	}

	var doctor *Doctor
	if id, parseErr := uuid.Parse(doctorRef); parseErr == nil {
		doctor, err = s.repo.GetDoctorByID(ctx, part, id)
	} else {
		doctor, err = s.repo.GetDoctorByName(ctx, part, doctorRef)
	}
	if err != nil {
		return nil, err
	}

	appts, err := s.repo.ListDayAppointments(ctx, part, doctor.ID, date)
	if err != nil {
		return nil, err
	}

	booked := make(map[string]int)
	for _, a := range appts {
		if a.Status.Live() {
			booked[a.Time]++
		}
	}

	return expandTemplate(doctor.WeeklyTemplate, day, booked), nil
}

// expandTemplate turns the weekly windows matching the date's weekday
// into concrete time slots. Biweekly windows only apply on even ISO
// weeks. A slot stays available while live appointments are below the
// window capacity; the booking conflict check is still strict, so
// filling beyond one occupant requires an operator override.
func expandTemplate(windows []TemplateWindow, day time.Time, booked map[string]int) []TimeSlot {
	_, isoWeek := day.ISOWeek()

	var slots []TimeSlot
	for _, w := range windows {
		if w.Weekday != day.Weekday() {
			continue
		}
		if w.Biweekly && isoWeek%2 != 0 {
			continue
		}

		start, err := time.Parse(TimeLayout, w.Start)
		if err != nil {
			continue
		}
		end, err := time.Parse(TimeLayout, w.End)
		if err != nil || !end.After(start) {
			continue
		}

		step := time.Duration(w.SlotMinutes) * time.Minute
		if step <= 0 {
			step = 30 * time.Minute
		}
		capacity := w.Capacity
		if capacity <= 0 {
			capacity = 1
		}

		for t := start; t.Before(end); t = t.Add(step) {
			hhmm := t.Format(TimeLayout)
			n := booked[hhmm]
			slots = append(slots, TimeSlot{
				Time:      hhmm,
				Available: n < capacity,
				Booked:    n,
				Capacity:  capacity,
			})
		}
	}

	sort.Slice(slots, func(i, j int) bool { return slots[i].Time < slots[j].Time })
	return slots
}
