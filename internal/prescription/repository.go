package prescription

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrPrescriptionNotFound = errors.New("prescription not found")
	ErrPrescriptionExists   = errors.New("appointment already has a prescription")
)

// Repository contains all DB interactions needed by the generator.
type Repository interface {
	// Insert fails with ErrPrescriptionExists if the appointment already
	// has one (unique index on appointment_id).
	Insert(ctx context.Context, p *Prescription) error

	GetByID(ctx context.Context, id uuid.UUID) (*Prescription, error)
	GetByAppointmentID(ctx context.Context, appointmentID uuid.UUID) (*Prescription, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Prescription, error)
}
