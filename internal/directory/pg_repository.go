package directory

import (
	"context"
	"errors"

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

// Helpers

func scanHospital(row pgx.Row) (*Hospital, error) {
	var h Hospital
	var city *string

	err := row.Scan(
		&h.ID,
		&h.Name,
		&city,
		&h.IsActive,
		&h.CreatedAt,
		&h.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrHospitalNotFound
		}
		return nil, err
	}

	h.City = city
	return &h, nil
}

func scanDepartment(row pgx.Row) (*Department, error) {
	var d Department

	err := row.Scan(
		&d.ID,
		&d.HospitalID,
		&d.Name,
		&d.IsActive,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDepartmentNotFound
		}
		return nil, err
	}

	return &d, nil
}

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	var specialty *string

	err := row.Scan(
		&d.ID,
		&d.HospitalID,
		&d.DepartmentID,
		&d.Name,
		&specialty,
		&d.WorkStart,
		&d.WorkEnd,
		&d.SlotMinutes,
		&d.IsActive,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}

	d.Specialty = specialty
	return &d, nil
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	var email *string

	err := row.Scan(
		&p.ID,
		&p.Name,
		&email,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}

	p.Email = email
	return &p, nil
}

// Interface methods

func (r *PgRepository) GetHospitalByID(ctx context.Context, id uuid.UUID) (*Hospital, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, city, is_active, created_at, updated_at
		FROM hospitals
		WHERE id = $1
	`, id)
	return scanHospital(row)
}

func (r *PgRepository) GetDepartmentByID(ctx context.Context, id uuid.UUID) (*Department, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, hospital_id, name, is_active, created_at, updated_at
		FROM departments
		WHERE id = $1
	`, id)
	return scanDepartment(row)
}

func (r *PgRepository) GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, hospital_id, department_id, name, specialty, work_start, work_end, slot_minutes, is_active, created_at, updated_at
		FROM doctors
		WHERE id = $1
	`, id)
	return scanDoctor(row)
}

func (r *PgRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, email, created_at, updated_at
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row)
}

func (r *PgRepository) ListActiveDoctors(ctx context.Context) ([]Doctor, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, hospital_id, department_id, name, specialty, work_start, work_end, slot_minutes, is_active, created_at, updated_at
		FROM doctors
		WHERE is_active
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) ListActiveMedicines(ctx context.Context) ([]Medicine, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, generic_name, strengths, category, is_active
		FROM medicines
		WHERE is_active
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Medicine
	for rows.Next() {
		var m Medicine
		var generic *string

		if err := rows.Scan(&m.ID, &m.Name, &generic, &m.Strengths, &m.Category, &m.IsActive); err != nil {
			return nil, err
		}
		m.GenericName = generic
		result = append(result, m)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
