package booking

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	StatusScheduled AppointmentStatus = "scheduled"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusNoShow    AppointmentStatus = "no-show"
)

// ValidStatus reports whether s is a known appointment status. Used to
// validate list filters.
func ValidStatus(s AppointmentStatus) bool {
	switch s {
	case StatusScheduled, StatusConfirmed, StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// Appointment is one entry in a patient's ledger. Hospital, department and
// doctor names are denormalized at booking time so listings never join back
// into the directory. StartTime is HH:MM.
type Appointment struct {
	ID              uuid.UUID
	PatientID       uuid.UUID
	HospitalID      uuid.UUID
	HospitalName    string
	DepartmentID    uuid.UUID
	DepartmentName  string
	DoctorID        uuid.UUID
	DoctorName      string
	Day             time.Time
	StartTime       string
	DurationMinutes int
	Status          AppointmentStatus
	SlotID          *uuid.UUID
	PrescriptionID  *uuid.UUID
	Notes           string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ScheduledEnd is the moment the visit is over: day + start time + duration.
func (a Appointment) ScheduledEnd() time.Time {
	t, err := time.Parse("15:04", a.StartTime)
	if err != nil {
		return a.Day
	}
	return a.Day.Add(time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(a.DurationMinutes)*time.Minute)
}
