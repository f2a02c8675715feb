package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/medibook/hospital-booking/internal/directory"
	"github.com/medibook/hospital-booking/internal/slot"
)

var (
	ErrAlreadyCancelled        = errors.New("appointment is already cancelled")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrHospitalInactive        = errors.New("hospital is not active")
	ErrDepartmentInactive      = errors.New("department is not active")
	ErrDoctorInactive          = errors.New("doctor is not active")
	ErrDepartmentMismatch      = errors.New("department does not belong to the hospital")
	ErrDoctorMismatch          = errors.New("doctor does not belong to the department")
	ErrInvalidTime             = errors.New("time must be HH:MM")
)

// SlotStore is the slot claiming/releasing behavior the ledger depends on.
// Satisfied by *slot.Store.
type SlotStore interface {
	Claim(ctx context.Context, doctorID, hospitalID uuid.UUID, day time.Time, startTime string, patientID uuid.UUID) (*slot.Slot, error)
	Release(ctx context.Context, id uuid.UUID) error
}

// Service owns the appointment lifecycle: confirmed at booking, then either
// cancelled (patient) or completed (sweeper). Both end states are terminal.
type Service struct {
	repo  Repository
	dir   directory.Repository
	slots SlotStore
}

func NewService(repo Repository, dir directory.Repository, slots SlotStore) *Service {
	return &Service{
		repo:  repo,
		dir:   dir,
		slots: slots,
	}
}

type BookRequest struct {
	PatientID    uuid.UUID
	HospitalID   uuid.UUID
	DepartmentID uuid.UUID
	DoctorID     uuid.UUID
	Day          time.Time
	StartTime    string
	Notes        string
}

// Book validates every referenced entity, claims the slot, and appends a
// confirmed appointment. If the claim fails no appointment is created; if
// the append fails the claim is rolled back, so the operation is
// all-or-nothing either way.
func (s *Service) Book(ctx context.Context, req BookRequest) (*Appointment, error) {
	if _, err := slot.ParseHHMM(req.StartTime); err != nil {
		return nil, ErrInvalidTime
	}

	if _, err := s.dir.GetPatientByID(ctx, req.PatientID); err != nil {
		return nil, wrapLookup("load patient", err)
	}

	hospital, err := s.dir.GetHospitalByID(ctx, req.HospitalID)
	if err != nil {
		return nil, wrapLookup("load hospital", err)
	}
	if !hospital.IsActive {
		return nil, ErrHospitalInactive
	}

	department, err := s.dir.GetDepartmentByID(ctx, req.DepartmentID)
	if err != nil {
		return nil, wrapLookup("load department", err)
	}
	if !department.IsActive {
		return nil, ErrDepartmentInactive
	}
	if department.HospitalID != hospital.ID {
		return nil, ErrDepartmentMismatch
	}

	doctor, err := s.dir.GetDoctorByID(ctx, req.DoctorID)
	if err != nil {
		return nil, wrapLookup("load doctor", err)
	}
	if !doctor.IsActive {
		return nil, ErrDoctorInactive
	}
	if doctor.HospitalID != hospital.ID || doctor.DepartmentID != department.ID {
		return nil, ErrDoctorMismatch
	}

	claimed, err := s.slots.Claim(ctx, doctor.ID, hospital.ID, req.Day, req.StartTime, req.PatientID)
	if err != nil {
		return nil, err
	}

	slotID := claimed.ID
	appt := &Appointment{
		ID:              uuid.New(),
		PatientID:       req.PatientID,
		HospitalID:      hospital.ID,
		HospitalName:    hospital.Name,
		DepartmentID:    department.ID,
		DepartmentName:  department.Name,
		DoctorID:        doctor.ID,
		DoctorName:      doctor.Name,
		Day:             claimed.Day,
		StartTime:       claimed.StartTime,
		DurationMinutes: claimed.DurationMinutes,
		Status:          StatusConfirmed,
		SlotID:          &slotID,
		Notes:           req.Notes,
	}

	if err := s.repo.Insert(ctx, appt); err != nil {
		// Compensate so the claim does not leak a permanently blocked slot.
		if relErr := s.slots.Release(ctx, slotID); relErr != nil {
			log.Error().Err(relErr).
				Str("slot_id", slotID.String()).
				Msg("failed to release slot after appointment insert failure")
		}
		return nil, fmt.Errorf("insert appointment: %w", err)
	}

	return s.repo.GetByID(ctx, appt.ID)
}

// Cancel transitions a patient's confirmed appointment to cancelled and
// returns its slot to the free pool.
func (s *Service) Cancel(ctx context.Context, patientID, apptID uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetForPatient(ctx, patientID, apptID)
	if err != nil {
		return nil, err
	}

	switch appt.Status {
	case StatusCancelled:
		return nil, ErrAlreadyCancelled
	case StatusConfirmed:
		// fall through to the conditional update
	default:
		return nil, ErrInvalidStatusTransition
	}

	updated, err := s.repo.UpdateStatus(ctx, appt.ID, StatusConfirmed, StatusCancelled)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			// Lost the race to the sweeper; the appointment is terminal
			// either way.
			return nil, ErrInvalidStatusTransition
		}
		return nil, fmt.Errorf("cancel appointment: %w", err)
	}

	if updated.SlotID != nil {
		if err := s.slots.Release(ctx, *updated.SlotID); err != nil {
			// The cancellation already happened; a failed release must not
			// undo it. The slot stays blocked until released manually.
			log.Error().Err(err).
				Str("appointment_id", updated.ID.String()).
				Str("slot_id", updated.SlotID.String()).
				Msg("failed to release slot on cancellation")
		}
	}

	return updated, nil
}

// Complete is invoked by the sweeper once an appointment's scheduled time
// has passed. The slot stays consumed: a completed visit does not free
// capacity.
func (s *Service) Complete(ctx context.Context, apptID uuid.UUID) (*Appointment, error) {
	updated, err := s.repo.UpdateStatus(ctx, apptID, StatusConfirmed, StatusCompleted)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, ErrInvalidStatusTransition
		}
		return nil, fmt.Errorf("complete appointment: %w", err)
	}
	return updated, nil
}

// AttachPrescription links a generated prescription to its appointment.
// The link is write-once.
func (s *Service) AttachPrescription(ctx context.Context, apptID, prescriptionID uuid.UUID) error {
	if err := s.repo.SetPrescriptionID(ctx, apptID, prescriptionID); err != nil {
		return fmt.Errorf("attach prescription: %w", err)
	}
	return nil
}

// Get returns one appointment scoped to the owning patient.
func (s *Service) Get(ctx context.Context, patientID, apptID uuid.UUID) (*Appointment, error) {
	return s.repo.GetForPatient(ctx, patientID, apptID)
}

// List returns a page of the patient's ledger, newest first.
func (s *Service) List(ctx context.Context, patientID uuid.UUID, f ListFilter) ([]Appointment, error) {
	if f.Status != nil && !ValidStatus(*f.Status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidFilter, *f.Status)
	}
	if f.Limit <= 0 {
		f.Limit = 20 // default
	}
	if f.Limit > 100 {
		f.Limit = 100 // max
	}
	if f.Page <= 0 {
		f.Page = 1
	}

	appts, err := s.repo.List(ctx, patientID, f)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return appts, nil
}

var ErrInvalidFilter = errors.New("invalid list filter")

func wrapLookup(op string, err error) error {
	switch {
	case errors.Is(err, directory.ErrPatientNotFound),
		errors.Is(err, directory.ErrHospitalNotFound),
		errors.Is(err, directory.ErrDepartmentNotFound),
		errors.Is(err, directory.ErrDoctorNotFound):
		return err
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
