package main

import (
	"context"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/medibook/hospital-booking/internal/config"
	"github.com/medibook/hospital-booking/internal/db"
	"github.com/medibook/hospital-booking/internal/directory"
	"github.com/medibook/hospital-booking/internal/logging"
	"github.com/medibook/hospital-booking/internal/slot"
	"github.com/medibook/hospital-booking/migrations"
)

func main() {
	logging.Init("seed", os.Getenv("APP_ENV"))
	log.Info().Msg("seed starting")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load error")
	}

	connCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	pool, err := db.ConnectPostgres(connCtx, cfg.PostgresDSN)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	ctx := context.Background()

	if err := migrations.Apply(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("apply schema")
	}
	log.Info().Msg("schema applied")

	gofakeit.Seed(time.Now().UnixNano())

	if err := seedDirectory(ctx, pool, 5, 40); err != nil {
		log.Fatal().Err(err).Msg("seed directory")
	}
	if err := seedPatients(ctx, pool, 2000); err != nil {
		log.Fatal().Err(err).Msg("seed patients")
	}
	if err := seedMedicines(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("seed medicines")
	}
	if err := seedSlots(ctx, pool, cfg.HorizonDays); err != nil {
		log.Fatal().Err(err).Msg("seed slots")
	}

	log.Info().Msg("seed complete")
}

var departmentNames = []string{
	"Cardiology",
	"Dermatology",
	"Orthopedics",
	"Pediatrics",
	"Neurology",
	"ENT",
	"Psychiatry",
	"Endocrinology",
}

func seedDirectory(ctx context.Context, pool *pgxpool.Pool, hospitals, doctorsPerHospital int) error {
	log.Info().Int("hospitals", hospitals).Int("doctors_per_hospital", doctorsPerHospital).Msg("seeding directory")

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for h := 0; h < hospitals; h++ {
		hospitalID := uuid.New()
		name := gofakeit.LastName() + " " + gofakeit.RandomString([]string{"General Hospital", "Medical Center", "City Hospital"})

		_, err := tx.Exec(ctx, `
			INSERT INTO hospitals (id, name, city, is_active, created_at, updated_at)
			VALUES ($1, $2, $3, true, now(), now())
		`, hospitalID, name, gofakeit.City())
		if err != nil {
			return err
		}

		departmentIDs := make(map[string]uuid.UUID, len(departmentNames))
		for _, deptName := range departmentNames {
			deptID := uuid.New()
			departmentIDs[deptName] = deptID

			_, err := tx.Exec(ctx, `
				INSERT INTO departments (id, hospital_id, name, is_active, created_at, updated_at)
				VALUES ($1, $2, $3, true, now(), now())
			`, deptID, hospitalID, deptName)
			if err != nil {
				return err
			}
		}

		for d := 0; d < doctorsPerHospital; d++ {
			deptName := departmentNames[gofakeit.Number(0, len(departmentNames)-1)]
			slotMinutes := gofakeit.RandomInt([]int{15, 20, 30})

			_, err := tx.Exec(ctx, `
				INSERT INTO doctors (id, hospital_id, department_id, name, specialty, work_start, work_end, slot_minutes, is_active, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, true, now(), now())
			`, uuid.New(), hospitalID, departmentIDs[deptName],
				"Dr. "+gofakeit.Name(), deptName, "09:00", "17:00", slotMinutes)
			if err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Info().Msg("directory seeded")
	return nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Info().Int("count", count).Msg("seeding patients")

	const batchSize = 500

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			_, err := tx.Exec(ctx, `
				INSERT INTO patients (id, name, email, created_at, updated_at)
				VALUES ($1, $2, $3, now(), now())
			`, uuid.New(), gofakeit.Name(), gofakeit.Email())
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		log.Info().Int("seeded", end).Int("total", count).Msg("patients progress")
	}

	return nil
}

type medicineSeed struct {
	name      string
	generic   string
	strengths []string
	category  string
}

// Fixed catalog so categories line up with the prescription instruction
// tables.
var medicineCatalog = []medicineSeed{
	{"Amoxil", "Amoxicillin", []string{"250mg", "500mg"}, "Antibiotic"},
	{"Azithral", "Azithromycin", []string{"250mg", "500mg"}, "Antibiotic"},
	{"Crocin", "Paracetamol", []string{"500mg", "650mg"}, "Antipyretic"},
	{"Brufen", "Ibuprofen", []string{"200mg", "400mg", "600mg"}, "Analgesic"},
	{"Voveran", "Diclofenac", []string{"50mg", "75mg"}, "Analgesic"},
	{"Gelusil", "Aluminium hydroxide", []string{"5ml", "10ml"}, "Antacid"},
	{"Pantocid", "Pantoprazole", []string{"20mg", "40mg"}, "Antacid"},
	{"Cetzine", "Cetirizine", []string{"5mg", "10mg"}, "Antihistamine"},
	{"Allegra", "Fexofenadine", []string{"120mg", "180mg"}, "Antihistamine"},
	{"Becosules", "B-complex", []string{"1 capsule"}, "Vitamin"},
	{"Limcee", "Vitamin C", []string{"500mg"}, "Vitamin"},
	{"Ecosprin", "Aspirin", []string{"75mg", "150mg"}, "Cardiac"},
	{"Telma", "Telmisartan", []string{"20mg", "40mg"}, "Cardiac"},
	{"Asthalin", "Salbutamol", []string{"2mg", "100mcg inhaler"}, "Respiratory"},
}

func seedMedicines(ctx context.Context, pool *pgxpool.Pool) error {
	log.Info().Int("count", len(medicineCatalog)).Msg("seeding medicines")

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, m := range medicineCatalog {
		_, err := tx.Exec(ctx, `
			INSERT INTO medicines (id, name, generic_name, strengths, category, is_active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, true, now(), now())
		`, uuid.New(), m.name, m.generic, m.strengths, m.category)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func seedSlots(ctx context.Context, pool *pgxpool.Pool, horizonDays int) error {
	log.Info().Int("horizon_days", horizonDays).Msg("generating slots")

	dirRepo := directory.NewPgRepository(pool)
	doctors, err := dirRepo.ListActiveDoctors(ctx)
	if err != nil {
		return err
	}

	store := slot.NewStore(slot.NewPgRepository(pool), nil)
	today := time.Now().Truncate(24 * time.Hour)

	inserted, err := store.GenerateHorizon(ctx, doctors, today, horizonDays)
	if err != nil {
		return err
	}

	log.Info().Int("doctors", len(doctors)).Int("slots", inserted).Msg("slots generated")
	return nil
}
