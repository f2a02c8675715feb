package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
)

// ListFilter narrows a patient's ledger listing. Page is 1-based.
type ListFilter struct {
	Status *AppointmentStatus
	From   *time.Time
	To     *time.Time
	Page   int
	Limit  int
}

// Repository contains all DB interactions needed by the ledger service and
// the sweeper.
type Repository interface {
	Insert(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	GetForPatient(ctx context.Context, patientID, id uuid.UUID) (*Appointment, error)

	// UpdateStatus applies a conditional transition: it only succeeds if
	// the appointment is still in the from status, otherwise it fails with
	// ErrAppointmentNotFound.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error)

	// SetPrescriptionID links a prescription exactly once; a second link
	// attempt matches zero rows and fails with ErrAppointmentNotFound.
	SetPrescriptionID(ctx context.Context, id, prescriptionID uuid.UUID) error

	List(ctx context.Context, patientID uuid.UUID, f ListFilter) ([]Appointment, error)

	// Sweeper candidate query: confirmed appointments whose scheduled end
	// is at or before now.
	FindDueConfirmed(ctx context.Context, now time.Time) ([]Appointment, error)
}
