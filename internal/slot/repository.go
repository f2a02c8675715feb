package slot

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrSlotNotFound    = errors.New("slot not found")
	ErrSlotUnavailable = errors.New("slot is no longer available")
)

// Repository contains all DB interactions needed by the Store.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Slot, error)
	FindAvailable(ctx context.Context, doctorID, hospitalID uuid.UUID, day time.Time) ([]Slot, error)

	// Claim must be a single conditional update: it succeeds only if the
	// slot was still free at the moment of the write, otherwise it fails
	// with ErrSlotUnavailable (lost race) or ErrSlotNotFound.
	Claim(ctx context.Context, doctorID, hospitalID uuid.UUID, day time.Time, startTime string, patientID uuid.UUID) (*Slot, error)

	// Release is idempotent; releasing an absent or already-free slot is
	// a no-op.
	Release(ctx context.Context, id uuid.UUID) error

	// BulkInsert inserts generated slots, skipping ones that already exist
	// for (doctor, hospital, day, start_time). Returns the number inserted.
	BulkInsert(ctx context.Context, slots []Slot) (int, error)
}
