package slot

import (
	"context"
	"errors"
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

const slotColumns = `id, doctor_id, hospital_id, day, start_time, end_time, duration_minutes, is_available, is_booked, booked_by, created_at, updated_at`

func scanSlot(row pgx.Row) (*Slot, error) {
	var s Slot
	var bookedBy *uuid.UUID

	err := row.Scan(
		&s.ID,
		&s.DoctorID,
		&s.HospitalID,
		&s.Day,
		&s.StartTime,
		&s.EndTime,
		&s.DurationMinutes,
		&s.IsAvailable,
		&s.IsBooked,
		&bookedBy,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}

	s.BookedBy = bookedBy
	return &s, nil
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Slot, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+slotColumns+`
		FROM slots
		WHERE id = $1
	`, id)
	return scanSlot(row)
}

func (r *PgRepository) FindAvailable(ctx context.Context, doctorID, hospitalID uuid.UUID, day time.Time) ([]Slot, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+slotColumns+`
		FROM slots
		WHERE doctor_id = $1
		  AND hospital_id = $2
		  AND day = $3
		  AND is_available
		  AND NOT is_booked
		ORDER BY start_time
	`, doctorID, hospitalID, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Slot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// Claim is the one correctness-critical write in the system: the WHERE
// clause only matches a still-free slot, so under concurrent claims for the
// same slot exactly one update applies and the rest see zero rows.
func (r *PgRepository) Claim(ctx context.Context, doctorID, hospitalID uuid.UUID, day time.Time, startTime string, patientID uuid.UUID) (*Slot, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE slots
		SET is_available = false,
		    is_booked = true,
		    booked_by = $5,
		    updated_at = now()
		WHERE doctor_id = $1
		  AND hospital_id = $2
		  AND day = $3
		  AND start_time = $4
		  AND is_available
		  AND NOT is_booked
		RETURNING `+slotColumns+`
	`, doctorID, hospitalID, day, startTime, patientID)

	claimed, err := scanSlot(row)
	if err == nil {
		return claimed, nil
	}
	if !errors.Is(err, ErrSlotNotFound) {
		return nil, err
	}

	// Zero rows matched: distinguish a lost race from a slot that does not
	// exist at all.
	var exists bool
	checkErr := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM slots
			WHERE doctor_id = $1 AND hospital_id = $2 AND day = $3 AND start_time = $4
		)
	`, doctorID, hospitalID, day, startTime).Scan(&exists)
	if checkErr != nil {
		return nil, checkErr
	}
	if exists {
		return nil, ErrSlotUnavailable
	}
	return nil, ErrSlotNotFound
}

func (r *PgRepository) Release(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE slots
		SET is_available = true,
		    is_booked = false,
		    booked_by = NULL,
		    updated_at = now()
		WHERE id = $1
	`, id)
	return err
}

func (r *PgRepository) BulkInsert(ctx context.Context, slots []Slot) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	inserted := 0
	for _, s := range slots {
		tag, err := tx.Exec(ctx, `
			INSERT INTO slots (id, doctor_id, hospital_id, day, start_time, end_time, duration_minutes, is_available, is_booked, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, true, false, now(), now())
			ON CONFLICT (doctor_id, hospital_id, day, start_time) DO NOTHING
		`, s.ID, s.DoctorID, s.HospitalID, s.Day, s.StartTime, s.EndTime, s.DurationMinutes)
		if err != nil {
			return 0, err
		}
		inserted += int(tag.RowsAffected())
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}

	return inserted, nil
}
