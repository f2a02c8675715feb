package prescription

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const prescriptionColumns = `id, appointment_id, patient_id, diagnosis, medications, general_instructions, follow_up_date, prescribed_at, status`

func scanPrescription(row pgx.Row) (*Prescription, error) {
	var p Prescription
	var medications []byte

	err := row.Scan(
		&p.ID,
		&p.AppointmentID,
		&p.PatientID,
		&p.Diagnosis,
		&medications,
		&p.GeneralInstructions,
		&p.FollowUpDate,
		&p.PrescribedAt,
		&p.Status,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPrescriptionNotFound
		}
		return nil, err
	}

	if err := json.Unmarshal(medications, &p.Medications); err != nil {
		return nil, fmt.Errorf("decode medications for prescription %s: %w", p.ID, err)
	}

	return &p, nil
}

func (r *PgRepository) Insert(ctx context.Context, p *Prescription) error {
	medications, err := json.Marshal(p.Medications)
	if err != nil {
		return fmt.Errorf("encode medications: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO prescriptions (id, appointment_id, patient_id, diagnosis, medications, general_instructions, follow_up_date, prescribed_at, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, p.ID, p.AppointmentID, p.PatientID, p.Diagnosis, medications,
		p.GeneralInstructions, p.FollowUpDate, p.PrescribedAt, p.Status)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrPrescriptionExists
		}
		return err
	}

	return nil
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+prescriptionColumns+`
		FROM prescriptions
		WHERE id = $1
	`, id)
	return scanPrescription(row)
}

func (r *PgRepository) GetByAppointmentID(ctx context.Context, appointmentID uuid.UUID) (*Prescription, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+prescriptionColumns+`
		FROM prescriptions
		WHERE appointment_id = $1
	`, appointmentID)
	return scanPrescription(row)
}

func (r *PgRepository) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Prescription, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+prescriptionColumns+`
		FROM prescriptions
		WHERE patient_id = $1
		ORDER BY prescribed_at DESC
		LIMIT $2 OFFSET $3
	`, patientID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Prescription
	for rows.Next() {
		p, err := scanPrescription(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
