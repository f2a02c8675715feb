package prescription

import (
	"time"

	"github.com/google/uuid"
)

type PrescriptionStatus string

const (
	StatusActive    PrescriptionStatus = "active"
	StatusCompleted PrescriptionStatus = "completed"
	StatusCancelled PrescriptionStatus = "cancelled"
)

// MedicationItem is one prescribed medicine line.
type MedicationItem struct {
	Name         string `json:"name"`
	Dosage       string `json:"dosage"`
	Frequency    string `json:"frequency"`
	Duration     string `json:"duration"`
	Instructions string `json:"instructions"`
}

// Prescription is created at most once per appointment and is immutable
// after creation.
type Prescription struct {
	ID                  uuid.UUID
	AppointmentID       uuid.UUID
	PatientID           uuid.UUID
	Diagnosis           string
	Medications         []MedicationItem
	GeneralInstructions string
	FollowUpDate        time.Time
	PrescribedAt        time.Time
	Status              PrescriptionStatus
}
