package slot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/medibook/hospital-booking/internal/directory"
)

// Store fronts the slot repository with a short-lived availability cache.
// The cache is strictly an optimization: claims always go to the database,
// and a cache failure degrades to a direct read.
type Store struct {
	repo  Repository
	cache Cache
}

// Cache is the subset of caching behavior the store needs. Satisfied by
// redisclient.Cache; a nil cache disables caching entirely.
type Cache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	Invalidate(ctx context.Context, keys ...string) error
}

func NewStore(repo Repository, cache Cache) *Store {
	return &Store{repo: repo, cache: cache}
}

func availabilityKey(doctorID, hospitalID uuid.UUID, day time.Time) string {
	return fmt.Sprintf("slots:%s:%s:%s", doctorID, hospitalID, day.Format("2006-01-02"))
}

// FindAvailable returns the free slots for a doctor at a hospital on a day,
// ordered by start time.
func (s *Store) FindAvailable(ctx context.Context, doctorID, hospitalID uuid.UUID, day time.Time) ([]Slot, error) {
	key := availabilityKey(doctorID, hospitalID, day)

	if s.cache != nil {
		var cached []Slot
		hit, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			log.Warn().Err(err).Str("key", key).Msg("slot cache read failed, falling back to db")
		} else if hit {
			return cached, nil
		}
	}

	slots, err := s.repo.FindAvailable(ctx, doctorID, hospitalID, day)
	if err != nil {
		return nil, fmt.Errorf("find available slots: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, slots); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("slot cache write failed")
		}
	}

	return slots, nil
}

// Claim atomically transitions a free slot to booked for the patient.
func (s *Store) Claim(ctx context.Context, doctorID, hospitalID uuid.UUID, day time.Time, startTime string, patientID uuid.UUID) (*Slot, error) {
	claimed, err := s.repo.Claim(ctx, doctorID, hospitalID, day, startTime, patientID)
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, doctorID, hospitalID, day)
	return claimed, nil
}

// Release returns a slot to the free pool. Absent or already-free slots are
// a no-op so cancellation never fails on a missing back-reference.
func (s *Store) Release(ctx context.Context, id uuid.UUID) error {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrSlotNotFound) {
			return nil
		}
		return fmt.Errorf("load slot for release: %w", err)
	}

	if err := s.repo.Release(ctx, id); err != nil {
		return fmt.Errorf("release slot: %w", err)
	}

	s.invalidate(ctx, existing.DoctorID, existing.HospitalID, existing.Day)
	return nil
}

func (s *Store) invalidate(ctx context.Context, doctorID, hospitalID uuid.UUID, day time.Time) {
	if s.cache == nil {
		return
	}
	key := availabilityKey(doctorID, hospitalID, day)
	if err := s.cache.Invalidate(ctx, key); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("slot cache invalidation failed")
	}
}

// GenerateHorizon bulk-creates slots for every doctor over the horizon
// starting at from (inclusive). Existing slots are left untouched.
func (s *Store) GenerateHorizon(ctx context.Context, doctors []directory.Doctor, from time.Time, days int) (int, error) {
	total := 0

	for _, doc := range doctors {
		var batch []Slot
		for d := 0; d < days; d++ {
			day := from.AddDate(0, 0, d)
			slots, err := GenerateDay(doc, day)
			if err != nil {
				return total, fmt.Errorf("generate slots for doctor %s: %w", doc.ID, err)
			}
			batch = append(batch, slots...)
		}

		inserted, err := s.repo.BulkInsert(ctx, batch)
		if err != nil {
			return total, fmt.Errorf("insert slots for doctor %s: %w", doc.ID, err)
		}
		total += inserted
	}

	return total, nil
}
