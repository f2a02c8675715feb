package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/medibook/hospital-booking/internal/booking"
	"github.com/medibook/hospital-booking/internal/prescription"
)

const dateLayout = "2006-01-02"

type CreateBookingRequest struct {
	PatientID    string `json:"patient_id"`
	HospitalID   string `json:"hospital_id"`
	DepartmentID string `json:"department_id"`
	DoctorID     string `json:"doctor_id"`
	Date         string `json:"date"` // YYYY-MM-DD
	Time         string `json:"time"` // HH:MM
	Notes        string `json:"notes,omitempty"`
}

type AppointmentResponse struct {
	ID              uuid.UUID  `json:"id"`
	PatientID       uuid.UUID  `json:"patient_id"`
	HospitalID      uuid.UUID  `json:"hospital_id"`
	HospitalName    string     `json:"hospital_name"`
	DepartmentID    uuid.UUID  `json:"department_id"`
	DepartmentName  string     `json:"department_name"`
	DoctorID        uuid.UUID  `json:"doctor_id"`
	DoctorName      string     `json:"doctor_name"`
	Date            string     `json:"date"`
	Time            string     `json:"time"`
	DurationMinutes int        `json:"duration_minutes"`
	Status          string     `json:"status"`
	SlotID          *uuid.UUID `json:"slot_id,omitempty"`
	PrescriptionID  *uuid.UUID `json:"prescription_id,omitempty"`
	Notes           string     `json:"notes,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

func toAppointmentResponse(a *booking.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:              a.ID,
		PatientID:       a.PatientID,
		HospitalID:      a.HospitalID,
		HospitalName:    a.HospitalName,
		DepartmentID:    a.DepartmentID,
		DepartmentName:  a.DepartmentName,
		DoctorID:        a.DoctorID,
		DoctorName:      a.DoctorName,
		Date:            a.Day.Format(dateLayout),
		Time:            a.StartTime,
		DurationMinutes: a.DurationMinutes,
		Status:          string(a.Status),
		SlotID:          a.SlotID,
		PrescriptionID:  a.PrescriptionID,
		Notes:           a.Notes,
		CreatedAt:       a.CreatedAt,
	}
}

type AppointmentListResponse struct {
	Appointments []AppointmentResponse `json:"appointments"`
	Page         int                   `json:"page"`
	Limit        int                   `json:"limit"`
}

type PrescriptionResponse struct {
	ID                  uuid.UUID                     `json:"id"`
	AppointmentID       uuid.UUID                     `json:"appointment_id"`
	PatientID           uuid.UUID                     `json:"patient_id"`
	Diagnosis           string                        `json:"diagnosis"`
	Medications         []prescription.MedicationItem `json:"medications"`
	GeneralInstructions string                        `json:"general_instructions"`
	FollowUpDate        string                        `json:"follow_up_date"`
	PrescribedAt        time.Time                     `json:"prescribed_at"`
	Status              string                        `json:"status"`
}

func toPrescriptionResponse(p *prescription.Prescription) PrescriptionResponse {
	return PrescriptionResponse{
		ID:                  p.ID,
		AppointmentID:       p.AppointmentID,
		PatientID:           p.PatientID,
		Diagnosis:           p.Diagnosis,
		Medications:         p.Medications,
		GeneralInstructions: p.GeneralInstructions,
		FollowUpDate:        p.FollowUpDate.Format(dateLayout),
		PrescribedAt:        p.PrescribedAt,
		Status:              string(p.Status),
	}
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
