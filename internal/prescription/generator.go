package prescription

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/medibook/hospital-booking/internal/booking"
	"github.com/medibook/hospital-booking/internal/directory"
)

var (
	ErrNoMedicines  = errors.New("no active medicines in the catalog")
	ErrNotCompleted = errors.New("appointment is not completed")
)

var frequencyLabels = []string{
	"once daily",
	"twice daily",
	"three times daily",
	"every 8 hours",
	"as needed",
}

var durationLabels = []string{
	"3 days",
	"5 days",
	"7 days",
	"10 days",
	"14 days",
}

var followUpOffsetDays = []int{7, 14, 30, 60, 90}

// categoryInstructions keys on the medicine category; unknown categories
// get the generic line.
var categoryInstructions = map[string]string{
	"Antibiotic":    "Complete the full course even if symptoms improve.",
	"Analgesic":     "Take with food. Do not exceed the stated dose.",
	"Antacid":       "Take 30 minutes before meals.",
	"Antihistamine": "May cause drowsiness; avoid driving after taking.",
	"Antipyretic":   "Take only while fever persists.",
	"Vitamin":       "Take with a meal for better absorption.",
	"Cardiac":       "Take at the same time every day. Do not stop abruptly.",
	"Respiratory":   "Rinse mouth after use.",
}

const genericInstruction = "Take as directed by your doctor."

// departmentDiagnoses keys on the department name recorded on the
// appointment.
var departmentDiagnoses = map[string][]string{
	"Cardiology":    {"Hypertension", "Arrhythmia follow-up", "Stable angina"},
	"Dermatology":   {"Contact dermatitis", "Acne vulgaris", "Eczema"},
	"Orthopedics":   {"Lower back strain", "Knee osteoarthritis", "Tendinitis"},
	"Pediatrics":    {"Upper respiratory infection", "Seasonal allergy", "Otitis media"},
	"Neurology":     {"Tension headache", "Migraine", "Peripheral neuropathy"},
	"ENT":           {"Sinusitis", "Pharyngitis", "Allergic rhinitis"},
	"Psychiatry":    {"Generalized anxiety", "Insomnia", "Mild depression"},
	"Endocrinology": {"Type 2 diabetes follow-up", "Hypothyroidism", "Vitamin D deficiency"},
}

var generalDiagnoses = []string{
	"General checkup",
	"Viral fever",
	"Fatigue evaluation",
	"Seasonal flu",
}

// Ledger is the slice of the appointment service the generator needs.
// Satisfied by *booking.Service.
type Ledger interface {
	Get(ctx context.Context, patientID, apptID uuid.UUID) (*booking.Appointment, error)
	AttachPrescription(ctx context.Context, apptID, prescriptionID uuid.UUID) error
}

// Catalog supplies the medicine raw material. Satisfied by
// directory.Repository.
type Catalog interface {
	ListActiveMedicines(ctx context.Context) ([]directory.Medicine, error)
}

// Generator synthesizes one prescription per completed appointment. The
// randomness source and clock are injectable so tests can pin outputs.
type Generator struct {
	repo    Repository
	ledger  Ledger
	catalog Catalog
	rng     *rand.Rand
	now     func() time.Time
}

func NewGenerator(repo Repository, ledger Ledger, catalog Catalog, rng *rand.Rand, now func() time.Time) *Generator {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if now == nil {
		now = time.Now
	}
	return &Generator{
		repo:    repo,
		ledger:  ledger,
		catalog: catalog,
		rng:     rng,
		now:     now,
	}
}

// Generate synthesizes a prescription for the appointment and links it back
// via prescription_id. Idempotent: if one already exists it is returned
// unchanged, never duplicated. The unique index on appointment_id backstops
// the lookup under concurrent generation.
func (g *Generator) Generate(ctx context.Context, appt *booking.Appointment) (*Prescription, error) {
	existing, err := g.repo.GetByAppointmentID(ctx, appt.ID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrPrescriptionNotFound) {
		return nil, fmt.Errorf("check existing prescription: %w", err)
	}

	meds, err := g.catalog.ListActiveMedicines(ctx)
	if err != nil {
		return nil, fmt.Errorf("load medicine catalog: %w", err)
	}
	if len(meds) == 0 {
		return nil, ErrNoMedicines
	}

	now := g.now()
	p := &Prescription{
		ID:                  uuid.New(),
		AppointmentID:       appt.ID,
		PatientID:           appt.PatientID,
		Diagnosis:           g.pickDiagnosis(appt.DepartmentName),
		Medications:         g.pickMedications(meds),
		GeneralInstructions: "Rest adequately and drink plenty of fluids. Return earlier if symptoms worsen.",
		FollowUpDate:        now.AddDate(0, 0, followUpOffsetDays[g.rng.Intn(len(followUpOffsetDays))]),
		PrescribedAt:        now,
		Status:              StatusActive,
	}

	if err := g.repo.Insert(ctx, p); err != nil {
		if errors.Is(err, ErrPrescriptionExists) {
			return g.repo.GetByAppointmentID(ctx, appt.ID)
		}
		return nil, fmt.Errorf("insert prescription: %w", err)
	}

	if err := g.ledger.AttachPrescription(ctx, appt.ID, p.ID); err != nil {
		// The prescription exists and is discoverable by appointment id;
		// a failed back-link is logged, not fatal.
		log.Warn().Err(err).
			Str("appointment_id", appt.ID.String()).
			Str("prescription_id", p.ID.String()).
			Msg("failed to set prescription_id on appointment")
	}

	return p, nil
}

// GenerateForAppointment is the manual path used when a completed
// appointment lacks a prescription. Unlike Generate it surfaces an existing
// prescription as ErrPrescriptionExists so the caller can branch.
func (g *Generator) GenerateForAppointment(ctx context.Context, patientID, apptID uuid.UUID) (*Prescription, error) {
	appt, err := g.ledger.Get(ctx, patientID, apptID)
	if err != nil {
		return nil, err
	}
	if appt.Status != booking.StatusCompleted {
		return nil, ErrNotCompleted
	}

	if _, err := g.repo.GetByAppointmentID(ctx, appt.ID); err == nil {
		return nil, ErrPrescriptionExists
	} else if !errors.Is(err, ErrPrescriptionNotFound) {
		return nil, fmt.Errorf("check existing prescription: %w", err)
	}

	return g.Generate(ctx, appt)
}

// pickMedications draws 1-3 distinct medicines uniformly at random and
// synthesizes a dosage line for each.
func (g *Generator) pickMedications(meds []directory.Medicine) []MedicationItem {
	n := 1 + g.rng.Intn(3)
	if n > len(meds) {
		n = len(meds)
	}

	items := make([]MedicationItem, 0, n)
	for _, idx := range g.rng.Perm(len(meds))[:n] {
		m := meds[idx]

		dosage := "1 dose"
		if len(m.Strengths) > 0 {
			dosage = m.Strengths[g.rng.Intn(len(m.Strengths))]
		}

		instructions, ok := categoryInstructions[m.Category]
		if !ok {
			instructions = genericInstruction
		}

		items = append(items, MedicationItem{
			Name:         m.Name,
			Dosage:       dosage,
			Frequency:    frequencyLabels[g.rng.Intn(len(frequencyLabels))],
			Duration:     durationLabels[g.rng.Intn(len(durationLabels))],
			Instructions: instructions,
		})
	}

	return items
}

func (g *Generator) pickDiagnosis(departmentName string) string {
	pool, ok := departmentDiagnoses[departmentName]
	if !ok {
		pool = generalDiagnoses
	}
	return pool[g.rng.Intn(len(pool))]
}
