package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/medibook/hospital-booking/internal/booking"
	"github.com/medibook/hospital-booking/internal/directory"
	"github.com/medibook/hospital-booking/internal/prescription"
	"github.com/medibook/hospital-booking/internal/slot"
)

func createBookingHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateBookingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		patientID, err := uuid.Parse(req.PatientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
			return
		}
		hospitalID, err := uuid.Parse(req.HospitalID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_hospital_id", "hospital_id must be a valid UUID")
			return
		}
		departmentID, err := uuid.Parse(req.DepartmentID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_department_id", "department_id must be a valid UUID")
			return
		}
		doctorID, err := uuid.Parse(req.DoctorID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
			return
		}
		day, err := time.Parse(dateLayout, req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		appt, err := svc.Book(r.Context(), booking.BookRequest{
			PatientID:    patientID,
			HospitalID:   hospitalID,
			DepartmentID: departmentID,
			DoctorID:     doctorID,
			Day:          day,
			StartTime:    req.Time,
			Notes:        req.Notes,
		})
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
	}
}

func listAppointmentsHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, ok := patientIDParam(w, r)
		if !ok {
			return
		}

		q := r.URL.Query()
		var f booking.ListFilter

		if v := q.Get("status"); v != "" {
			st := booking.AppointmentStatus(v)
			if !booking.ValidStatus(st) {
				writeError(w, http.StatusBadRequest, "invalid_status", "unknown appointment status")
				return
			}
			f.Status = &st
		}
		if v := q.Get("from"); v != "" {
			t, err := time.Parse(dateLayout, v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_from", "from must be YYYY-MM-DD")
				return
			}
			f.From = &t
		}
		if v := q.Get("to"); v != "" {
			t, err := time.Parse(dateLayout, v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_to", "to must be YYYY-MM-DD")
				return
			}
			f.To = &t
		}
		f.Page, _ = strconv.Atoi(q.Get("page"))
		f.Limit, _ = strconv.Atoi(q.Get("limit"))

		appts, err := svc.List(r.Context(), patientID, f)
		if err != nil {
			if errors.Is(err, booking.ErrInvalidFilter) {
				writeError(w, http.StatusBadRequest, "invalid_filter", err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		resp := AppointmentListResponse{
			Appointments: make([]AppointmentResponse, 0, len(appts)),
			Page:         max(f.Page, 1),
			Limit:        f.Limit,
		}
		for i := range appts {
			resp.Appointments = append(resp.Appointments, toAppointmentResponse(&appts[i]))
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func getAppointmentHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, ok := patientIDParam(w, r)
		if !ok {
			return
		}
		apptID, ok := uuidURLParam(w, r, "id")
		if !ok {
			return
		}

		appt, err := svc.Get(r.Context(), patientID, apptID)
		if err != nil {
			if errors.Is(err, booking.ErrAppointmentNotFound) {
				writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func cancelAppointmentHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, ok := patientIDParam(w, r)
		if !ok {
			return
		}
		apptID, ok := uuidURLParam(w, r, "id")
		if !ok {
			return
		}

		appt, err := svc.Cancel(r.Context(), patientID, apptID)
		if err != nil {
			handleCancelError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func availableSlotsHandler(store *slot.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := uuidURLParam(w, r, "doctorID")
		if !ok {
			return
		}
		hospitalID, ok := uuidURLParam(w, r, "hospitalID")
		if !ok {
			return
		}
		day, err := time.Parse(dateLayout, chi.URLParam(r, "date"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		slots, err := store.FindAvailable(r.Context(), doctorID, hospitalID, day)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}
		if slots == nil {
			slots = []slot.Slot{}
		}

		writeJSON(w, http.StatusOK, slots)
	}
}

func generatePrescriptionHandler(gen *prescription.Generator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, ok := patientIDParam(w, r)
		if !ok {
			return
		}
		apptID, ok := uuidURLParam(w, r, "appointmentID")
		if !ok {
			return
		}

		p, err := gen.GenerateForAppointment(r.Context(), patientID, apptID)
		if err != nil {
			handleGenerateError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toPrescriptionResponse(p))
	}
}

func listPrescriptionsHandler(repo prescription.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, ok := patientIDParam(w, r)
		if !ok {
			return
		}

		q := r.URL.Query()
		limit, _ := strconv.Atoi(q.Get("limit"))
		if limit <= 0 {
			limit = 20
		}
		if limit > 100 {
			limit = 100
		}
		page, _ := strconv.Atoi(q.Get("page"))
		if page <= 0 {
			page = 1
		}

		prescriptions, err := repo.ListByPatient(r.Context(), patientID, limit, (page-1)*limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		resp := make([]PrescriptionResponse, 0, len(prescriptions))
		for i := range prescriptions {
			resp = append(resp, toPrescriptionResponse(&prescriptions[i]))
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func getPrescriptionHandler(repo prescription.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidURLParam(w, r, "id")
		if !ok {
			return
		}

		p, err := repo.GetByID(r.Context(), id)
		if err != nil {
			if errors.Is(err, prescription.ErrPrescriptionNotFound) {
				writeError(w, http.StatusNotFound, "prescription_not_found", err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		writeJSON(w, http.StatusOK, toPrescriptionResponse(p))
	}
}

func getAppointmentPrescriptionHandler(svc *booking.Service, repo prescription.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, ok := patientIDParam(w, r)
		if !ok {
			return
		}
		apptID, ok := uuidURLParam(w, r, "id")
		if !ok {
			return
		}

		// Scope the lookup to the owning patient before touching the
		// prescription store.
		if _, err := svc.Get(r.Context(), patientID, apptID); err != nil {
			if errors.Is(err, booking.ErrAppointmentNotFound) {
				writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		p, err := repo.GetByAppointmentID(r.Context(), apptID)
		if err != nil {
			if errors.Is(err, prescription.ErrPrescriptionNotFound) {
				writeError(w, http.StatusNotFound, "prescription_not_found", err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		writeJSON(w, http.StatusOK, toPrescriptionResponse(p))
	}
}

// Param helpers

func patientIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := r.URL.Query().Get("patient_id")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "missing_patient_id", "patient_id query parameter is required")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func uuidURLParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_"+name, name+" must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

// Error mapping

func handleBookingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, directory.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	case errors.Is(err, directory.ErrHospitalNotFound):
		writeError(w, http.StatusNotFound, "hospital_not_found", err.Error())
	case errors.Is(err, directory.ErrDepartmentNotFound):
		writeError(w, http.StatusNotFound, "department_not_found", err.Error())
	case errors.Is(err, directory.ErrDoctorNotFound):
		writeError(w, http.StatusNotFound, "doctor_not_found", err.Error())
	case errors.Is(err, slot.ErrSlotNotFound):
		writeError(w, http.StatusNotFound, "slot_not_found", err.Error())
	case errors.Is(err, slot.ErrSlotUnavailable):
		writeError(w, http.StatusConflict, "slot_unavailable", err.Error())
	case errors.Is(err, booking.ErrInvalidTime),
		errors.Is(err, booking.ErrHospitalInactive),
		errors.Is(err, booking.ErrDepartmentInactive),
		errors.Is(err, booking.ErrDoctorInactive),
		errors.Is(err, booking.ErrDepartmentMismatch),
		errors.Is(err, booking.ErrDoctorMismatch):
		writeError(w, http.StatusBadRequest, "invalid_booking", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func handleCancelError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, booking.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, booking.ErrAlreadyCancelled):
		writeError(w, http.StatusConflict, "already_cancelled", err.Error())
	case errors.Is(err, booking.ErrInvalidStatusTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func handleGenerateError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, booking.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, prescription.ErrNotCompleted):
		writeError(w, http.StatusConflict, "appointment_not_completed", err.Error())
	case errors.Is(err, prescription.ErrPrescriptionExists):
		writeError(w, http.StatusConflict, "prescription_exists", err.Error())
	case errors.Is(err, prescription.ErrNoMedicines):
		writeError(w, http.StatusUnprocessableEntity, "no_medicines_available", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
