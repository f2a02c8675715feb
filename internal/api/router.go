package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/medibook/hospital-booking/internal/booking"
	"github.com/medibook/hospital-booking/internal/prescription"
	"github.com/medibook/hospital-booking/internal/slot"
)

type RouterConfig struct {
	Booking       *booking.Service
	Slots         *slot.Store
	Prescriptions prescription.Repository
	Generator     *prescription.Generator
	PgPool        *pgxpool.Pool
	Redis         *redis.Client
	Env           string
	Version       string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply middleware
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Booking endpoints
	r.Post("/bookings", createBookingHandler(cfg.Booking))
	r.Get("/appointments", listAppointmentsHandler(cfg.Booking))
	r.Get("/appointments/{id}", getAppointmentHandler(cfg.Booking))
	r.Delete("/appointments/{id}", cancelAppointmentHandler(cfg.Booking))
	r.Get("/appointments/{id}/prescription", getAppointmentPrescriptionHandler(cfg.Booking, cfg.Prescriptions))

	// Slot endpoints
	r.Get("/available-slots/{doctorID}/{hospitalID}/{date}", availableSlotsHandler(cfg.Slots))

	// Prescription endpoints
	r.Post("/prescriptions/generate/{appointmentID}", generatePrescriptionHandler(cfg.Generator))
	r.Get("/prescriptions", listPrescriptionsHandler(cfg.Prescriptions))
	r.Get("/prescriptions/{id}", getPrescriptionHandler(cfg.Prescriptions))

	return r
}
