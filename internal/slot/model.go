package slot

import (
	"time"

	"github.com/google/uuid"
)

// Slot is one bookable interval for a doctor at a hospital on a day.
// StartTime and EndTime are HH:MM. A slot is either free (available, not
// booked, no claimant) or claimed (unavailable, booked, claimant set);
// claim and release are the only mutations.
type Slot struct {
	ID              uuid.UUID  `json:"id"`
	DoctorID        uuid.UUID  `json:"doctor_id"`
	HospitalID      uuid.UUID  `json:"hospital_id"`
	Day             time.Time  `json:"date"`
	StartTime       string     `json:"start_time"`
	EndTime         string     `json:"end_time"`
	DurationMinutes int        `json:"duration_minutes"`
	IsAvailable     bool       `json:"is_available"`
	IsBooked        bool       `json:"is_booked"`
	BookedBy        *uuid.UUID `json:"booked_by,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}
