package scheduling

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agendaflow/clinic-scheduler/internal/tenant"
)

func testPartition() tenant.Partition {
	return tenant.NewPartition(&tenant.Tenant{
		ID:          uuid.New(),
		Name:        "Clinica Teste",
		Slug:        "teste",
		TablePrefix: "clinica_teste",
		Active:      true,
	})
}

type fakeRepo struct {
	patients     map[uuid.UUID]*Patient
	doctors      map[uuid.UUID]*Doctor
	services     map[uuid.UUID]*Service
	appointments map[uuid.UUID]*Appointment
	events       []EventLog
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		patients:     make(map[uuid.UUID]*Patient),
		doctors:      make(map[uuid.UUID]*Doctor),
		services:     make(map[uuid.UUID]*Service),
		appointments: make(map[uuid.UUID]*Appointment),
	}
}

func (f *fakeRepo) addDoctor(active bool) *Doctor {
	d := &Doctor{ID: uuid.New(), Name: "Dra. Souza", Active: active}
	f.doctors[d.ID] = d
	return d
}

func (f *fakeRepo) addService(doctorID uuid.UUID) *Service {
	s := &Service{ID: uuid.New(), DoctorID: doctorID, Name: "Consulta", Active: true}
	f.services[s.ID] = s
	return s
}

func (f *fakeRepo) FindPatientByIdentity(_ context.Context, _ tenant.Partition, id Identity) (*Patient, error) {
	want := id.Normalize()
	for _, p := range f.patients {
		if IdentityOf(p) == want {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrPatientNotFound
}

func (f *fakeRepo) CreatePatient(_ context.Context, _ tenant.Partition, p *Patient) error {
	p.ID = uuid.New()
	cp := *p
	f.patients[p.ID] = &cp
	return nil
}

func (f *fakeRepo) UpdatePatient(_ context.Context, _ tenant.Partition, p *Patient) error {
	if _, ok := f.patients[p.ID]; !ok {
		return ErrPatientNotFound
	}
	cp := *p
	f.patients[p.ID] = &cp
	return nil
}

func (f *fakeRepo) SearchPatients(_ context.Context, _ tenant.Partition, name, birthDate string) ([]Patient, error) {
	var out []Patient
	for _, p := range f.patients {
		if name != "" && normalizeText(p.FullName) != normalizeText(name) {
			continue
		}
		if birthDate != "" && p.BirthDate != birthDate {
			continue
		}
		out = append(out, *p)
	}
	return out, nil
}

func (f *fakeRepo) GetDoctorByID(_ context.Context, _ tenant.Partition, id uuid.UUID) (*Doctor, error) {
	d, ok := f.doctors[id]
	if !ok {
		return nil, ErrDoctorNotFound
	}
	return d, nil
}

func (f *fakeRepo) GetDoctorByName(_ context.Context, _ tenant.Partition, name string) (*Doctor, error) {
	for _, d := range f.doctors {
		if normalizeText(d.Name) == normalizeText(name) {
			return d, nil
		}
	}
	return nil, ErrDoctorNotFound
}

func (f *fakeRepo) GetServiceByID(_ context.Context, _ tenant.Partition, id uuid.UUID) (*Service, error) {
	s, ok := f.services[id]
	if !ok {
		return nil, ErrServiceNotFound
	}
	return s, nil
}

func (f *fakeRepo) GetAppointmentByID(_ context.Context, _ tenant.Partition, id uuid.UUID) (*Appointment, error) {
	a, ok := f.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeRepo) GetAppointmentDetail(ctx context.Context, part tenant.Partition, id uuid.UUID) (*AppointmentDetail, error) {
	a, err := f.GetAppointmentByID(ctx, part, id)
	if err != nil {
		return nil, err
	}
	detail := &AppointmentDetail{Appointment: *a}
	if p, ok := f.patients[a.PatientID]; ok {
		detail.PatientName = p.FullName
		detail.PatientCell = p.Cell
	}
	if d, ok := f.doctors[a.DoctorID]; ok {
		detail.DoctorName = d.Name
	}
	if s, ok := f.services[a.ServiceID]; ok {
		detail.ServiceName = s.Name
	}
	return detail, nil
}

func (f *fakeRepo) ListDayAppointments(_ context.Context, _ tenant.Partition, doctorID uuid.UUID, date string) ([]Appointment, error) {
	var out []Appointment
	for _, a := range f.appointments {
		if a.DoctorID == doctorID && a.Date == date {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeRepo) occupant(doctorID uuid.UUID, date, timeOfDay string, exclude uuid.UUID) *Appointment {
	for _, a := range f.appointments {
		if a.ID != exclude && a.DoctorID == doctorID && a.Date == date && a.Time == timeOfDay && a.Status.Live() {
			return a
		}
	}
	return nil
}

func (f *fakeRepo) BookSlot(_ context.Context, _ tenant.Partition, params BookSlotParams) (*Appointment, error) {
	forced := false
	if occ := f.occupant(params.DoctorID, params.Date, params.Time, uuid.Nil); occ != nil {
		if !params.ForceOverride {
			name := ""
			if p, ok := f.patients[occ.PatientID]; ok {
				name = p.FullName
			}
			return nil, &ConflictError{Conflict: SlotConflict{
				AppointmentID: occ.ID,
				DoctorID:      occ.DoctorID,
				Date:          occ.Date,
				Time:          occ.Time,
				PatientName:   name,
			}}
		}
		forced = true
	}

	a := &Appointment{
		ID:             uuid.New(),
		PatientID:      params.PatientID,
		DoctorID:       params.DoctorID,
		ServiceID:      params.ServiceID,
		Date:           params.Date,
		Time:           params.Time,
		Status:         StatusScheduled,
		ForcedConflict: forced,
		Observations:   params.Observations,
		CreatedBy:      params.CreatedBy,
		CreatedAt:      time.Now(),
	}
	f.appointments[a.ID] = a
	cp := *a
	return &cp, nil
}

func (f *fakeRepo) MoveSlot(_ context.Context, _ tenant.Partition, params MoveSlotParams) (*Appointment, error) {
	a, ok := f.appointments[params.AppointmentID]
	if !ok || !a.Status.Live() {
		return nil, ErrAppointmentNotFound
	}

	if occ := f.occupant(params.DoctorID, params.NewDate, params.NewTime, a.ID); occ != nil && !params.ForceOverride {
		name := ""
		if p, ok := f.patients[occ.PatientID]; ok {
			name = p.FullName
		}
		return nil, &ConflictError{Conflict: SlotConflict{
			AppointmentID: occ.ID,
			DoctorID:      occ.DoctorID,
			Date:          occ.Date,
			Time:          occ.Time,
			PatientName:   name,
		}}
	}

	a.PatientID = params.PatientID
	a.Date = params.NewDate
	a.Time = params.NewTime
	cp := *a
	return &cp, nil
}

func (f *fakeRepo) Transition(_ context.Context, _ tenant.Partition, id uuid.UUID, from []Status, to Status, stamp TransitionStamp) (*Appointment, error) {
	a, ok := f.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	admitted := false
	for _, s := range from {
		if a.Status == s {
			admitted = true
			break
		}
	}
	if !admitted {
		return nil, ErrAppointmentNotFound
	}
	a.Status = to
	switch to {
	case StatusConfirmed:
		actor := stamp.Actor
		at := stamp.At
		a.ConfirmedBy = &actor
		a.ConfirmedAt = &at
	case StatusCancelled, StatusCancelledBlock:
		actor := stamp.Actor
		at := stamp.At
		reason := stamp.Reason
		a.CancelledBy = &actor
		a.CancelledAt = &at
		a.CancelReason = &reason
	case StatusScheduled:
		a.ConfirmedBy = nil
		a.ConfirmedAt = nil
	}
	cp := *a
	return &cp, nil
}

func (f *fakeRepo) InsertEvent(_ context.Context, ev EventLog) error {
	f.events = append(f.events, ev)
	return nil
}

type recordingNotifier struct {
	events []string
}

func (n *recordingNotifier) OnBookingEvent(_ context.Context, _ tenant.Partition, _ uuid.UUID, event string) {
	n.events = append(n.events, event)
}

type recordingReopener struct {
	freed []string
}

func (r *recordingReopener) SlotFreed(_ context.Context, _ tenant.Partition, _ uuid.UUID, date, timeOfDay string) {
	r.freed = append(r.freed, date+" "+timeOfDay)
}

func newTestService(repo *fakeRepo) *BookingService {
	return NewBookingService(repo, nil, zerolog.Nop())
}

func validCreateParams(doctorID, serviceID uuid.UUID) CreateParams {
	return CreateParams{
		Patient: PatientInput{
			FullName:  "Maria da Silva",
			BirthDate: "1985-03-12",
			Cell:      "+5511999990000",
			Insurance: "Unimed",
		},
		DoctorID:  doctorID,
		ServiceID: serviceID,
		Date:      "2026-09-14",
		Time:      "09:00",
		CreatedBy: "recepcao",
	}
}

func TestCreateBooksSlotAndRegistersPatient(t *testing.T) {
	repo := newFakeRepo()
	doctor := repo.addDoctor(true)
	svc := repo.addService(doctor.ID)

	notifier := &recordingNotifier{}
	booking := newTestService(repo)
	booking.SetNotifier(notifier)

	result, err := booking.Create(context.Background(), testPartition(), validCreateParams(doctor.ID, svc.ID))
	require.NoError(t, err)
	assert.False(t, result.Forced)
	assert.Len(t, repo.patients, 1)
	assert.Len(t, repo.appointments, 1)

	require.Len(t, repo.events, 1)
	assert.Equal(t, EventAppointmentCreated, repo.events[0].EventType)
	assert.Equal(t, []string{EventAppointmentCreated}, notifier.events)
}

func TestCreateConflictReturnsOccupant(t *testing.T) {
	repo := newFakeRepo()
	doctor := repo.addDoctor(true)
	svc := repo.addService(doctor.ID)
	booking := newTestService(repo)

	first, err := booking.Create(context.Background(), testPartition(), validCreateParams(doctor.ID, svc.ID))
	require.NoError(t, err)

	params := validCreateParams(doctor.ID, svc.ID)
	params.Patient.FullName = "Joao Pereira"
	params.Patient.BirthDate = "1990-07-01"

	_, err = booking.Create(context.Background(), testPartition(), params)
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, first.AppointmentID, conflict.Conflict.AppointmentID)
	assert.Equal(t, "Maria da Silva", conflict.Conflict.PatientName)
	assert.Equal(t, "09:00", conflict.Conflict.Time)
}

func TestCreateForceOverrideDoubleBooks(t *testing.T) {
	repo := newFakeRepo()
	doctor := repo.addDoctor(true)
	svc := repo.addService(doctor.ID)
	booking := newTestService(repo)

	_, err := booking.Create(context.Background(), testPartition(), validCreateParams(doctor.ID, svc.ID))
	require.NoError(t, err)

	params := validCreateParams(doctor.ID, svc.ID)
	params.Patient.FullName = "Joao Pereira"
	params.Patient.BirthDate = "1990-07-01"
	params.ForceOverride = true

	result, err := booking.Create(context.Background(), testPartition(), params)
	require.NoError(t, err)
	assert.True(t, result.Forced)
	assert.Len(t, repo.appointments, 2)
	assert.True(t, repo.appointments[result.AppointmentID].ForcedConflict)
}

func TestCreateReusesPatientByNormalizedIdentity(t *testing.T) {
	repo := newFakeRepo()
	doctor := repo.addDoctor(true)
	svc := repo.addService(doctor.ID)
	booking := newTestService(repo)

	first, err := booking.Create(context.Background(), testPartition(), validCreateParams(doctor.ID, svc.ID))
	require.NoError(t, err)

	params := validCreateParams(doctor.ID, svc.ID)
	params.Patient.FullName = "  maria   DA  silva "
	params.Patient.Cell = "+5511888887777"
	params.Time = "10:00"

	second, err := booking.Create(context.Background(), testPartition(), params)
	require.NoError(t, err)

	assert.Equal(t, first.PatientID, second.PatientID)
	assert.Len(t, repo.patients, 1)
	assert.Equal(t, "+5511888887777", repo.patients[first.PatientID].Cell)
}

func TestCreatePhoneOnlyRebookingKeepsStoredCell(t *testing.T) {
	repo := newFakeRepo()
	doctor := repo.addDoctor(true)
	svc := repo.addService(doctor.ID)
	booking := newTestService(repo)

	first, err := booking.Create(context.Background(), testPartition(), validCreateParams(doctor.ID, svc.ID))
	require.NoError(t, err)

	params := validCreateParams(doctor.ID, svc.ID)
	params.Patient.Cell = ""
	params.Patient.Phone = "+551133334444"
	params.Time = "10:00"

	second, err := booking.Create(context.Background(), testPartition(), params)
	require.NoError(t, err)

	require.Equal(t, first.PatientID, second.PatientID)
	stored := repo.patients[first.PatientID]
	assert.Equal(t, "+551133334444", stored.Phone)
	assert.Equal(t, "+5511999990000", stored.Cell)
}

func TestCreateDistinctInsuranceCreatesNewPatient(t *testing.T) {
	repo := newFakeRepo()
	doctor := repo.addDoctor(true)
	svc := repo.addService(doctor.ID)
	booking := newTestService(repo)

	first, err := booking.Create(context.Background(), testPartition(), validCreateParams(doctor.ID, svc.ID))
	require.NoError(t, err)

	params := validCreateParams(doctor.ID, svc.ID)
	params.Patient.Insurance = "particular"
	params.Time = "10:00"

	second, err := booking.Create(context.Background(), testPartition(), params)
	require.NoError(t, err)

	assert.NotEqual(t, first.PatientID, second.PatientID)
	assert.Len(t, repo.patients, 2)
}

func TestCreateRejectsInactiveDoctor(t *testing.T) {
	repo := newFakeRepo()
	doctor := repo.addDoctor(false)
	svc := repo.addService(doctor.ID)
	booking := newTestService(repo)

	_, err := booking.Create(context.Background(), testPartition(), validCreateParams(doctor.ID, svc.ID))
	assert.ErrorIs(t, err, ErrDoctorInactive)
}

func TestCreateRejectsServiceOfAnotherDoctor(t *testing.T) {
	repo := newFakeRepo()
	doctor := repo.addDoctor(true)
	other := repo.addDoctor(true)
	svc := repo.addService(other.ID)
	booking := newTestService(repo)

	_, err := booking.Create(context.Background(), testPartition(), validCreateParams(doctor.ID, svc.ID))
	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "service_id", validation.Field)
}

func TestCreateValidatesPatientContact(t *testing.T) {
	repo := newFakeRepo()
	doctor := repo.addDoctor(true)
	svc := repo.addService(doctor.ID)
	booking := newTestService(repo)

	params := validCreateParams(doctor.ID, svc.ID)
	params.Patient.Phone = ""
	params.Patient.Cell = ""

	_, err := booking.Create(context.Background(), testPartition(), params)
	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "patient.phone", validation.Field)
}

func TestRescheduleMovesAppointment(t *testing.T) {
	repo := newFakeRepo()
	doctor := repo.addDoctor(true)
	svc := repo.addService(doctor.ID)
	notifier := &recordingNotifier{}
	booking := newTestService(repo)
	booking.SetNotifier(notifier)

	created, err := booking.Create(context.Background(), testPartition(), validCreateParams(doctor.ID, svc.ID))
	require.NoError(t, err)

	moved, err := booking.Reschedule(context.Background(), testPartition(), RescheduleParams{
		AppointmentID: created.AppointmentID,
		NewDate:       "2026-09-15",
		NewTime:       "11:00",
		Actor:         "recepcao",
	})
	require.NoError(t, err)
	assert.Equal(t, "2026-09-15", moved.Date)
	assert.Equal(t, "11:00", moved.Time)
	assert.Contains(t, notifier.events, EventAppointmentRescheduled)
}

func TestRescheduleIntoOccupiedSlotConflicts(t *testing.T) {
	repo := newFakeRepo()
	doctor := repo.addDoctor(true)
	svc := repo.addService(doctor.ID)
	booking := newTestService(repo)

	_, err := booking.Create(context.Background(), testPartition(), validCreateParams(doctor.ID, svc.ID))
	require.NoError(t, err)

	params := validCreateParams(doctor.ID, svc.ID)
	params.Patient.FullName = "Joao Pereira"
	params.Patient.BirthDate = "1990-07-01"
	params.Time = "10:00"
	second, err := booking.Create(context.Background(), testPartition(), params)
	require.NoError(t, err)

	_, err = booking.Reschedule(context.Background(), testPartition(), RescheduleParams{
		AppointmentID: second.AppointmentID,
		NewDate:       "2026-09-14",
		NewTime:       "09:00",
	})
	var conflict *ConflictError
	assert.ErrorAs(t, err, &conflict)
}

func TestRescheduleOwnSlotIsNotAConflict(t *testing.T) {
	repo := newFakeRepo()
	doctor := repo.addDoctor(true)
	svc := repo.addService(doctor.ID)
	booking := newTestService(repo)

	created, err := booking.Create(context.Background(), testPartition(), validCreateParams(doctor.ID, svc.ID))
	require.NoError(t, err)

	// Same slot: the occupant is the appointment itself.
	moved, err := booking.Reschedule(context.Background(), testPartition(), RescheduleParams{
		AppointmentID: created.AppointmentID,
		NewDate:       "2026-09-14",
		NewTime:       "09:00",
	})
	require.NoError(t, err)
	assert.Equal(t, "09:00", moved.Time)
}

func TestRescheduleRepointsToExactIdentityMatch(t *testing.T) {
	repo := newFakeRepo()
	doctor := repo.addDoctor(true)
	svc := repo.addService(doctor.ID)
	booking := newTestService(repo)

	created, err := booking.Create(context.Background(), testPartition(), validCreateParams(doctor.ID, svc.ID))
	require.NoError(t, err)

	other := &Patient{
		FullName:  "Joao Pereira",
		BirthDate: "1990-07-01",
		Cell:      "+5511777776666",
		Insurance: "Amil",
	}
	require.NoError(t, repo.CreatePatient(context.Background(), testPartition(), other))

	moved, err := booking.Reschedule(context.Background(), testPartition(), RescheduleParams{
		AppointmentID: created.AppointmentID,
		NewDate:       "2026-09-16",
		NewTime:       "08:30",
		Patient: &PatientInput{
			FullName:  "JOAO pereira",
			BirthDate: "1990-07-01",
			Cell:      "+5511777776666",
			Insurance: "amil",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, other.ID, moved.PatientID)
	assert.Len(t, repo.patients, 2)
}

func TestRescheduleTerminalAppointmentRejected(t *testing.T) {
	repo := newFakeRepo()
	doctor := repo.addDoctor(true)
	svc := repo.addService(doctor.ID)
	booking := newTestService(repo)

	created, err := booking.Create(context.Background(), testPartition(), validCreateParams(doctor.ID, svc.ID))
	require.NoError(t, err)
	_, err = booking.Cancel(context.Background(), testPartition(), created.AppointmentID, "recepcao", "paciente desistiu", false)
	require.NoError(t, err)

	_, err = booking.Reschedule(context.Background(), testPartition(), RescheduleParams{
		AppointmentID: created.AppointmentID,
		NewDate:       "2026-09-17",
		NewTime:       "09:00",
	})
	var state *AlreadyInStateError
	require.ErrorAs(t, err, &state)
	assert.Equal(t, StatusCancelled, state.Current)
}

func TestConfirmAndUnconfirm(t *testing.T) {
	repo := newFakeRepo()
	doctor := repo.addDoctor(true)
	svc := repo.addService(doctor.ID)
	booking := newTestService(repo)

	created, err := booking.Create(context.Background(), testPartition(), validCreateParams(doctor.ID, svc.ID))
	require.NoError(t, err)

	confirmed, err := booking.Confirm(context.Background(), testPartition(), created.AppointmentID, "secretaria")
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, confirmed.Status)
	require.NotNil(t, confirmed.ConfirmedBy)
	assert.Equal(t, "secretaria", *confirmed.ConfirmedBy)

	// confirming twice is a state error
	_, err = booking.Confirm(context.Background(), testPartition(), created.AppointmentID, "secretaria")
	var state *AlreadyInStateError
	assert.ErrorAs(t, err, &state)

	back, err := booking.Unconfirm(context.Background(), testPartition(), created.AppointmentID, "secretaria")
	require.NoError(t, err)
	assert.Equal(t, StatusScheduled, back.Status)
	assert.Nil(t, back.ConfirmedBy)
}

func TestCancelFreesSlotForWaitlist(t *testing.T) {
	repo := newFakeRepo()
	doctor := repo.addDoctor(true)
	svc := repo.addService(doctor.ID)
	reopener := &recordingReopener{}
	booking := newTestService(repo)
	booking.SetSlotReopener(reopener)

	created, err := booking.Create(context.Background(), testPartition(), validCreateParams(doctor.ID, svc.ID))
	require.NoError(t, err)

	cancelled, err := booking.Cancel(context.Background(), testPartition(), created.AppointmentID, "recepcao", "remarcado", false)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelReason)
	assert.Equal(t, "remarcado", *cancelled.CancelReason)
	assert.Equal(t, []string{"2026-09-14 09:00"}, reopener.freed)
}

func TestCancelScheduleBlockUsesBlockStatus(t *testing.T) {
	repo := newFakeRepo()
	doctor := repo.addDoctor(true)
	svc := repo.addService(doctor.ID)
	booking := newTestService(repo)

	created, err := booking.Create(context.Background(), testPartition(), validCreateParams(doctor.ID, svc.ID))
	require.NoError(t, err)

	cancelled, err := booking.Cancel(context.Background(), testPartition(), created.AppointmentID, "admin", "bloqueio de agenda", true)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelledBlock, cancelled.Status)
}

func TestCancelAlreadyCancelled(t *testing.T) {
	repo := newFakeRepo()
	doctor := repo.addDoctor(true)
	svc := repo.addService(doctor.ID)
	booking := newTestService(repo)

	created, err := booking.Create(context.Background(), testPartition(), validCreateParams(doctor.ID, svc.ID))
	require.NoError(t, err)
	_, err = booking.Cancel(context.Background(), testPartition(), created.AppointmentID, "recepcao", "", false)
	require.NoError(t, err)

	_, err = booking.Cancel(context.Background(), testPartition(), created.AppointmentID, "recepcao", "", false)
	var state *AlreadyInStateError
	require.ErrorAs(t, err, &state)
	assert.Equal(t, StatusCancelled, state.Current)
}

func TestMarkDoneRequiresConfirmed(t *testing.T) {
	repo := newFakeRepo()
	doctor := repo.addDoctor(true)
	svc := repo.addService(doctor.ID)
	booking := newTestService(repo)

	created, err := booking.Create(context.Background(), testPartition(), validCreateParams(doctor.ID, svc.ID))
	require.NoError(t, err)

	_, err = booking.MarkDone(context.Background(), testPartition(), created.AppointmentID, "medico")
	var state *AlreadyInStateError
	require.ErrorAs(t, err, &state)

	_, err = booking.Confirm(context.Background(), testPartition(), created.AppointmentID, "secretaria")
	require.NoError(t, err)

	done, err := booking.MarkDone(context.Background(), testPartition(), created.AppointmentID, "medico")
	require.NoError(t, err)
	assert.Equal(t, StatusDone, done.Status)
}

func TestSearchPatientsRequiresQuery(t *testing.T) {
	booking := newTestService(newFakeRepo())

	_, err := booking.SearchPatients(context.Background(), testPartition(), "", "")
	var validation *ValidationError
	assert.ErrorAs(t, err, &validation)
}

func TestSearchPatientsDeduplicatesByIdentity(t *testing.T) {
	repo := newFakeRepo()
	booking := newTestService(repo)

	for _, name := range []string{"Ana Costa", "ana  costa"} {
		p := &Patient{FullName: name, BirthDate: "1970-01-01", Insurance: "Unimed", Cell: "+5511"}
		require.NoError(t, repo.CreatePatient(context.Background(), testPartition(), p))
	}

	out, err := booking.SearchPatients(context.Background(), testPartition(), "", "1970-01-01")
	require.NoError(t, err)
	assert.Len(t, out, 1)
}
