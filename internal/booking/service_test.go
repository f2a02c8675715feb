package booking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medibook/hospital-booking/internal/directory"
	"github.com/medibook/hospital-booking/internal/slot"
)

type fakeRepo struct {
	mu        sync.Mutex
	appts     map[uuid.UUID]*Appointment
	insertErr error
	lastList  *ListFilter
}

var _ Repository = (*fakeRepo)(nil)

func newFakeRepo() *fakeRepo {
	return &fakeRepo{appts: make(map[uuid.UUID]*Appointment)}
}

func (r *fakeRepo) Insert(ctx context.Context, a *Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertErr != nil {
		return r.insertErr
	}
	cp := *a
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	r.appts[a.ID] = &cp
	return nil
}

func (r *fakeRepo) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appts[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *fakeRepo) GetForPatient(ctx context.Context, patientID, id uuid.UUID) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appts[id]
	if !ok || a.PatientID != patientID {
		return nil, ErrAppointmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *fakeRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appts[id]
	if !ok || a.Status != from {
		return nil, ErrAppointmentNotFound
	}
	a.Status = to
	a.UpdatedAt = time.Now()
	cp := *a
	return &cp, nil
}

func (r *fakeRepo) SetPrescriptionID(ctx context.Context, id, prescriptionID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appts[id]
	if !ok || a.PrescriptionID != nil {
		return ErrAppointmentNotFound
	}
	pid := prescriptionID
	a.PrescriptionID = &pid
	return nil
}

func (r *fakeRepo) List(ctx context.Context, patientID uuid.UUID, f ListFilter) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastList = &f
	var out []Appointment
	for _, a := range r.appts {
		if a.PatientID != patientID {
			continue
		}
		if f.Status != nil && a.Status != *f.Status {
			continue
		}
		out = append(out, *a)
	}
	return out, nil
}

func (r *fakeRepo) FindDueConfirmed(ctx context.Context, now time.Time) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Appointment
	for _, a := range r.appts {
		if a.Status == StatusConfirmed && !a.ScheduledEnd().After(now) {
			out = append(out, *a)
		}
	}
	return out, nil
}

type fakeDirectory struct {
	hospitals   map[uuid.UUID]*directory.Hospital
	departments map[uuid.UUID]*directory.Department
	doctors     map[uuid.UUID]*directory.Doctor
	patients    map[uuid.UUID]*directory.Patient
}

var _ directory.Repository = (*fakeDirectory)(nil)

func (d *fakeDirectory) GetHospitalByID(ctx context.Context, id uuid.UUID) (*directory.Hospital, error) {
	if h, ok := d.hospitals[id]; ok {
		return h, nil
	}
	return nil, directory.ErrHospitalNotFound
}

func (d *fakeDirectory) GetDepartmentByID(ctx context.Context, id uuid.UUID) (*directory.Department, error) {
	if dep, ok := d.departments[id]; ok {
		return dep, nil
	}
	return nil, directory.ErrDepartmentNotFound
}

func (d *fakeDirectory) GetDoctorByID(ctx context.Context, id uuid.UUID) (*directory.Doctor, error) {
	if doc, ok := d.doctors[id]; ok {
		return doc, nil
	}
	return nil, directory.ErrDoctorNotFound
}

func (d *fakeDirectory) GetPatientByID(ctx context.Context, id uuid.UUID) (*directory.Patient, error) {
	if p, ok := d.patients[id]; ok {
		return p, nil
	}
	return nil, directory.ErrPatientNotFound
}

func (d *fakeDirectory) ListActiveDoctors(ctx context.Context) ([]directory.Doctor, error) {
	var out []directory.Doctor
	for _, doc := range d.doctors {
		if doc.IsActive {
			out = append(out, *doc)
		}
	}
	return out, nil
}

func (d *fakeDirectory) ListActiveMedicines(ctx context.Context) ([]directory.Medicine, error) {
	return nil, nil
}

// fakeSlotStore claims with compare-and-set semantics keyed by
// (doctor, hospital, day, start).
type fakeSlotStore struct {
	mu       sync.Mutex
	slots    map[string]*slot.Slot
	released []uuid.UUID
}

var _ SlotStore = (*fakeSlotStore)(nil)

func newFakeSlotStore() *fakeSlotStore {
	return &fakeSlotStore{slots: make(map[string]*slot.Slot)}
}

func slotKey(doctorID, hospitalID uuid.UUID, day time.Time, start string) string {
	return doctorID.String() + "|" + hospitalID.String() + "|" + day.Format("2006-01-02") + "|" + start
}

func (f *fakeSlotStore) addFree(doctorID, hospitalID uuid.UUID, day time.Time, start string) uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := &slot.Slot{
		ID:              uuid.New(),
		DoctorID:        doctorID,
		HospitalID:      hospitalID,
		Day:             day,
		StartTime:       start,
		DurationMinutes: 30,
		IsAvailable:     true,
	}
	f.slots[slotKey(doctorID, hospitalID, day, start)] = s
	return s.ID
}

func (f *fakeSlotStore) Claim(ctx context.Context, doctorID, hospitalID uuid.UUID, day time.Time, startTime string, patientID uuid.UUID) (*slot.Slot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.slots[slotKey(doctorID, hospitalID, day, startTime)]
	if !ok {
		return nil, slot.ErrSlotNotFound
	}
	if !s.IsAvailable || s.IsBooked {
		return nil, slot.ErrSlotUnavailable
	}
	s.IsAvailable = false
	s.IsBooked = true
	pid := patientID
	s.BookedBy = &pid
	cp := *s
	return &cp, nil
}

func (f *fakeSlotStore) Release(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released = append(f.released, id)
	for _, s := range f.slots {
		if s.ID == id {
			s.IsAvailable = true
			s.IsBooked = false
			s.BookedBy = nil
		}
	}
	return nil
}

type fixture struct {
	svc      *Service
	repo     *fakeRepo
	dir      *fakeDirectory
	slots    *fakeSlotStore
	hospital *directory.Hospital
	dept     *directory.Department
	doctor   *directory.Doctor
	patient  *directory.Patient
	day      time.Time
}

func newFixture() *fixture {
	hospital := &directory.Hospital{ID: uuid.New(), Name: "City General", IsActive: true}
	dept := &directory.Department{ID: uuid.New(), HospitalID: hospital.ID, Name: "Cardiology", IsActive: true}
	doctor := &directory.Doctor{
		ID:           uuid.New(),
		HospitalID:   hospital.ID,
		DepartmentID: dept.ID,
		Name:         "Dr. Reyes",
		WorkStart:    "09:00",
		WorkEnd:      "17:00",
		SlotMinutes:  30,
		IsActive:     true,
	}
	patient := &directory.Patient{ID: uuid.New(), Name: "Alex Tan"}

	dir := &fakeDirectory{
		hospitals:   map[uuid.UUID]*directory.Hospital{hospital.ID: hospital},
		departments: map[uuid.UUID]*directory.Department{dept.ID: dept},
		doctors:     map[uuid.UUID]*directory.Doctor{doctor.ID: doctor},
		patients:    map[uuid.UUID]*directory.Patient{patient.ID: patient},
	}

	repo := newFakeRepo()
	slots := newFakeSlotStore()

	return &fixture{
		svc:      NewService(repo, dir, slots),
		repo:     repo,
		dir:      dir,
		slots:    slots,
		hospital: hospital,
		dept:     dept,
		doctor:   doctor,
		patient:  patient,
		day:      time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
	}
}

func (f *fixture) bookReq() BookRequest {
	return BookRequest{
		PatientID:    f.patient.ID,
		HospitalID:   f.hospital.ID,
		DepartmentID: f.dept.ID,
		DoctorID:     f.doctor.ID,
		Day:          f.day,
		StartTime:    "09:00",
	}
}

func TestService_Book(t *testing.T) {
	f := newFixture()
	f.slots.addFree(f.doctor.ID, f.hospital.ID, f.day, "09:00")

	appt, err := f.svc.Book(context.Background(), f.bookReq())
	require.NoError(t, err)

	assert.Equal(t, StatusConfirmed, appt.Status)
	assert.Equal(t, f.patient.ID, appt.PatientID)
	assert.Equal(t, "City General", appt.HospitalName)
	assert.Equal(t, "Cardiology", appt.DepartmentName)
	assert.Equal(t, "Dr. Reyes", appt.DoctorName)
	assert.Equal(t, "09:00", appt.StartTime)
	assert.Equal(t, 30, appt.DurationMinutes)
	require.NotNil(t, appt.SlotID)
}

func TestService_Book_SlotTaken(t *testing.T) {
	f := newFixture()
	f.slots.addFree(f.doctor.ID, f.hospital.ID, f.day, "09:00")

	_, err := f.svc.Book(context.Background(), f.bookReq())
	require.NoError(t, err)

	other := &directory.Patient{ID: uuid.New(), Name: "Sam Ortiz"}
	f.dir.patients[other.ID] = other
	req := f.bookReq()
	req.PatientID = other.ID

	_, err = f.svc.Book(context.Background(), req)
	assert.ErrorIs(t, err, slot.ErrSlotUnavailable)

	// No ledger entry for the losing patient.
	appts, err := f.svc.List(context.Background(), other.ID, ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, appts)
}

// Two patients race for one slot; the loser retries after the winner
// cancels and gets it.
func TestService_Book_ContendedSlotAfterCancel(t *testing.T) {
	f := newFixture()
	f.slots.addFree(f.doctor.ID, f.hospital.ID, f.day, "09:00")

	other := &directory.Patient{ID: uuid.New(), Name: "Sam Ortiz"}
	f.dir.patients[other.ID] = other

	won, err := f.svc.Book(context.Background(), f.bookReq())
	require.NoError(t, err)

	loserReq := f.bookReq()
	loserReq.PatientID = other.ID
	_, err = f.svc.Book(context.Background(), loserReq)
	require.ErrorIs(t, err, slot.ErrSlotUnavailable)

	_, err = f.svc.Cancel(context.Background(), f.patient.ID, won.ID)
	require.NoError(t, err)

	retry, err := f.svc.Book(context.Background(), loserReq)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, retry.Status)
	assert.Equal(t, other.ID, retry.PatientID)
}

func TestService_Book_ReleasesClaimOnInsertFailure(t *testing.T) {
	f := newFixture()
	slotID := f.slots.addFree(f.doctor.ID, f.hospital.ID, f.day, "09:00")
	f.repo.insertErr = errors.New("db down")

	_, err := f.svc.Book(context.Background(), f.bookReq())
	require.Error(t, err)

	assert.Contains(t, f.slots.released, slotID)

	// The slot is claimable again.
	f.repo.insertErr = nil
	_, err = f.svc.Book(context.Background(), f.bookReq())
	require.NoError(t, err)
}

func TestService_Book_Validation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*fixture, *BookRequest)
		wantErr error
	}{
		{
			name:    "bad time format",
			mutate:  func(f *fixture, r *BookRequest) { r.StartTime = "9am" },
			wantErr: ErrInvalidTime,
		},
		{
			name:    "unknown patient",
			mutate:  func(f *fixture, r *BookRequest) { r.PatientID = uuid.New() },
			wantErr: directory.ErrPatientNotFound,
		},
		{
			name:    "unknown hospital",
			mutate:  func(f *fixture, r *BookRequest) { r.HospitalID = uuid.New() },
			wantErr: directory.ErrHospitalNotFound,
		},
		{
			name:    "inactive hospital",
			mutate:  func(f *fixture, r *BookRequest) { f.hospital.IsActive = false },
			wantErr: ErrHospitalInactive,
		},
		{
			name:    "inactive department",
			mutate:  func(f *fixture, r *BookRequest) { f.dept.IsActive = false },
			wantErr: ErrDepartmentInactive,
		},
		{
			name: "department from another hospital",
			mutate: func(f *fixture, r *BookRequest) {
				foreign := &directory.Department{ID: uuid.New(), HospitalID: uuid.New(), Name: "ENT", IsActive: true}
				f.dir.departments[foreign.ID] = foreign
				r.DepartmentID = foreign.ID
			},
			wantErr: ErrDepartmentMismatch,
		},
		{
			name:    "inactive doctor",
			mutate:  func(f *fixture, r *BookRequest) { f.doctor.IsActive = false },
			wantErr: ErrDoctorInactive,
		},
		{
			name: "doctor from another department",
			mutate: func(f *fixture, r *BookRequest) {
				foreign := &directory.Doctor{
					ID: uuid.New(), HospitalID: f.hospital.ID, DepartmentID: uuid.New(),
					Name: "Dr. Cruz", WorkStart: "09:00", WorkEnd: "17:00", SlotMinutes: 30, IsActive: true,
				}
				f.dir.doctors[foreign.ID] = foreign
				r.DoctorID = foreign.ID
			},
			wantErr: ErrDoctorMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.slots.addFree(f.doctor.ID, f.hospital.ID, f.day, "09:00")
			req := f.bookReq()
			tt.mutate(f, &req)

			_, err := f.svc.Book(context.Background(), req)
			assert.ErrorIs(t, err, tt.wantErr)

			// Validation failures never touch the slot.
			appts, listErr := f.svc.List(context.Background(), f.patient.ID, ListFilter{})
			require.NoError(t, listErr)
			assert.Empty(t, appts)
		})
	}
}

func TestService_Cancel(t *testing.T) {
	f := newFixture()
	f.slots.addFree(f.doctor.ID, f.hospital.ID, f.day, "09:00")

	appt, err := f.svc.Book(context.Background(), f.bookReq())
	require.NoError(t, err)

	cancelled, err := f.svc.Cancel(context.Background(), f.patient.ID, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)
	require.NotNil(t, appt.SlotID)
	assert.Contains(t, f.slots.released, *appt.SlotID)

	// Terminal: a second cancel is rejected.
	_, err = f.svc.Cancel(context.Background(), f.patient.ID, appt.ID)
	assert.ErrorIs(t, err, ErrAlreadyCancelled)
}

func TestService_Cancel_WrongPatient(t *testing.T) {
	f := newFixture()
	f.slots.addFree(f.doctor.ID, f.hospital.ID, f.day, "09:00")

	appt, err := f.svc.Book(context.Background(), f.bookReq())
	require.NoError(t, err)

	_, err = f.svc.Cancel(context.Background(), uuid.New(), appt.ID)
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}

func TestService_Cancel_CompletedAppointment(t *testing.T) {
	f := newFixture()
	f.slots.addFree(f.doctor.ID, f.hospital.ID, f.day, "09:00")

	appt, err := f.svc.Book(context.Background(), f.bookReq())
	require.NoError(t, err)

	_, err = f.svc.Complete(context.Background(), appt.ID)
	require.NoError(t, err)

	_, err = f.svc.Cancel(context.Background(), f.patient.ID, appt.ID)
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)

	// Completed visits keep their slot consumed.
	require.NotNil(t, appt.SlotID)
	assert.NotContains(t, f.slots.released, *appt.SlotID)
}

func TestService_Complete(t *testing.T) {
	f := newFixture()
	f.slots.addFree(f.doctor.ID, f.hospital.ID, f.day, "09:00")

	appt, err := f.svc.Book(context.Background(), f.bookReq())
	require.NoError(t, err)

	done, err := f.svc.Complete(context.Background(), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, done.Status)

	// Completing twice loses the conditional update.
	_, err = f.svc.Complete(context.Background(), appt.ID)
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)
}

func TestService_AttachPrescription_WriteOnce(t *testing.T) {
	f := newFixture()
	f.slots.addFree(f.doctor.ID, f.hospital.ID, f.day, "09:00")

	appt, err := f.svc.Book(context.Background(), f.bookReq())
	require.NoError(t, err)

	first := uuid.New()
	require.NoError(t, f.svc.AttachPrescription(context.Background(), appt.ID, first))

	err = f.svc.AttachPrescription(context.Background(), appt.ID, uuid.New())
	assert.ErrorIs(t, err, ErrAppointmentNotFound)

	got, err := f.svc.Get(context.Background(), f.patient.ID, appt.ID)
	require.NoError(t, err)
	require.NotNil(t, got.PrescriptionID)
	assert.Equal(t, first, *got.PrescriptionID)
}

func TestService_List_FilterHandling(t *testing.T) {
	f := newFixture()

	bad := AppointmentStatus("archived")
	_, err := f.svc.List(context.Background(), f.patient.ID, ListFilter{Status: &bad})
	assert.ErrorIs(t, err, ErrInvalidFilter)

	_, err = f.svc.List(context.Background(), f.patient.ID, ListFilter{Page: -3, Limit: 500})
	require.NoError(t, err)
	require.NotNil(t, f.repo.lastList)
	assert.Equal(t, 1, f.repo.lastList.Page)
	assert.Equal(t, 100, f.repo.lastList.Limit)

	_, err = f.svc.List(context.Background(), f.patient.ID, ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, 20, f.repo.lastList.Limit)
}
