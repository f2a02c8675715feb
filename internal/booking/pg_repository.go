package booking

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const appointmentColumns = `id, patient_id, hospital_id, hospital_name, department_id, department_name, doctor_id, doctor_name, day, start_time, duration_minutes, status, slot_id, prescription_id, notes, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var slotID, prescriptionID *uuid.UUID

	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.HospitalID,
		&a.HospitalName,
		&a.DepartmentID,
		&a.DepartmentName,
		&a.DoctorID,
		&a.DoctorName,
		&a.Day,
		&a.StartTime,
		&a.DurationMinutes,
		&a.Status,
		&slotID,
		&prescriptionID,
		&a.Notes,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.SlotID = slotID
	a.PrescriptionID = prescriptionID
	return &a, nil
}

func (r *PgRepository) Insert(ctx context.Context, a *Appointment) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO appointments (id, patient_id, hospital_id, hospital_name, department_id, department_name, doctor_id, doctor_name, day, start_time, duration_minutes, status, slot_id, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, now(), now())
	`, a.ID, a.PatientID, a.HospitalID, a.HospitalName, a.DepartmentID, a.DepartmentName,
		a.DoctorID, a.DoctorName, a.Day, a.StartTime, a.DurationMinutes, a.Status, a.SlotID, a.Notes)
	return err
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) GetForPatient(ctx context.Context, patientID, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1 AND patient_id = $2
	`, id, patientID)
	return scanAppointment(row)
}

func (r *PgRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+appointmentColumns+`
	`, id, to, from)

	return scanAppointment(row)
}

func (r *PgRepository) SetPrescriptionID(ctx context.Context, id, prescriptionID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE appointments
		SET prescription_id = $2,
		    updated_at = now()
		WHERE id = $1
		  AND prescription_id IS NULL
	`, id, prescriptionID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

func (r *PgRepository) List(ctx context.Context, patientID uuid.UUID, f ListFilter) ([]Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE patient_id = $1
	`
	args := []any{patientID}

	if f.Status != nil {
		args = append(args, *f.Status)
		query += ` AND status = $` + strconv.Itoa(len(args))
	}
	if f.From != nil {
		args = append(args, *f.From)
		query += ` AND day >= $` + strconv.Itoa(len(args))
	}
	if f.To != nil {
		args = append(args, *f.To)
		query += ` AND day <= $` + strconv.Itoa(len(args))
	}

	args = append(args, f.Limit)
	query += ` ORDER BY created_at DESC LIMIT $` + strconv.Itoa(len(args))

	args = append(args, (f.Page-1)*f.Limit)
	query += ` OFFSET $` + strconv.Itoa(len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) FindDueConfirmed(ctx context.Context, now time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE status = 'confirmed'
		  AND day + start_time::time + duration_minutes * interval '1 minute' <= $1
		ORDER BY patient_id, created_at
	`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
