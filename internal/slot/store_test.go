package slot

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medibook/hospital-booking/internal/directory"
)

// memRepo is an in-memory Repository with the same compare-and-set claim
// semantics as the Postgres implementation.
type memRepo struct {
	mu    sync.Mutex
	slots map[uuid.UUID]*Slot
}

var _ Repository = (*memRepo)(nil)

func newMemRepo() *memRepo {
	return &memRepo{slots: make(map[uuid.UUID]*Slot)}
}

func (r *memRepo) add(s Slot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := s
	r.slots[s.ID] = &cp
}

func (r *memRepo) GetByID(ctx context.Context, id uuid.UUID) (*Slot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.slots[id]
	if !ok {
		return nil, ErrSlotNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *memRepo) FindAvailable(ctx context.Context, doctorID, hospitalID uuid.UUID, day time.Time) ([]Slot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []Slot
	for _, s := range r.slots {
		if s.DoctorID == doctorID && s.HospitalID == hospitalID && s.Day.Equal(day) && s.IsAvailable && !s.IsBooked {
			result = append(result, *s)
		}
	}
	return result, nil
}

func (r *memRepo) Claim(ctx context.Context, doctorID, hospitalID uuid.UUID, day time.Time, startTime string, patientID uuid.UUID) (*Slot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.slots {
		if s.DoctorID == doctorID && s.HospitalID == hospitalID && s.Day.Equal(day) && s.StartTime == startTime {
			if !s.IsAvailable || s.IsBooked {
				return nil, ErrSlotUnavailable
			}
			s.IsAvailable = false
			s.IsBooked = true
			pid := patientID
			s.BookedBy = &pid
			cp := *s
			return &cp, nil
		}
	}
	return nil, ErrSlotNotFound
}

func (r *memRepo) Release(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.slots[id]; ok {
		s.IsAvailable = true
		s.IsBooked = false
		s.BookedBy = nil
	}
	return nil
}

func (r *memRepo) BulkInsert(ctx context.Context, slots []Slot) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inserted := 0
	for _, s := range slots {
		dup := false
		for _, existing := range r.slots {
			if existing.DoctorID == s.DoctorID && existing.HospitalID == s.HospitalID &&
				existing.Day.Equal(s.Day) && existing.StartTime == s.StartTime {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		cp := s
		cp.IsAvailable = true
		cp.IsBooked = false
		r.slots[s.ID] = &cp
		inserted++
	}
	return inserted, nil
}

// memCache records hits so tests can assert caching behavior.
type memCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	sets    int
	gets    int
}

var _ Cache = (*memCache)(nil)

func newMemCache() *memCache {
	return &memCache{entries: make(map[string][]byte)}
}

func (c *memCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	raw, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (c *memCache) Set(ctx context.Context, key string, value any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries[key] = raw
	return nil
}

func (c *memCache) Invalidate(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.entries, k)
	}
	return nil
}

func freeSlot(doctorID, hospitalID uuid.UUID, day time.Time, start, end string) Slot {
	return Slot{
		ID:              uuid.New(),
		DoctorID:        doctorID,
		HospitalID:      hospitalID,
		Day:             day,
		StartTime:       start,
		EndTime:         end,
		DurationMinutes: 30,
		IsAvailable:     true,
	}
}

func assertSlotInvariant(t *testing.T, s *Slot) {
	t.Helper()
	if s.IsBooked {
		assert.False(t, s.IsAvailable)
		assert.NotNil(t, s.BookedBy)
	} else {
		assert.True(t, s.IsAvailable)
		assert.Nil(t, s.BookedBy)
	}
}

func TestStore_ClaimThenRelease(t *testing.T) {
	repo := newMemRepo()
	store := NewStore(repo, nil)
	ctx := context.Background()

	doctorID, hospitalID := uuid.New(), uuid.New()
	day := time.Date(2024, 12, 25, 0, 0, 0, 0, time.UTC)
	patient := uuid.New()

	s := freeSlot(doctorID, hospitalID, day, "09:00", "09:30")
	repo.add(s)

	claimed, err := store.Claim(ctx, doctorID, hospitalID, day, "09:00", patient)
	require.NoError(t, err)
	assert.True(t, claimed.IsBooked)
	assert.False(t, claimed.IsAvailable)
	require.NotNil(t, claimed.BookedBy)
	assert.Equal(t, patient, *claimed.BookedBy)
	assertSlotInvariant(t, claimed)

	// A second claim on the same slot loses.
	_, err = store.Claim(ctx, doctorID, hospitalID, day, "09:00", uuid.New())
	assert.ErrorIs(t, err, ErrSlotUnavailable)

	require.NoError(t, store.Release(ctx, s.ID))

	released, err := repo.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.True(t, released.IsAvailable)
	assert.False(t, released.IsBooked)
	assert.Nil(t, released.BookedBy)
	assertSlotInvariant(t, released)

	// Released slots are claimable again.
	_, err = store.Claim(ctx, doctorID, hospitalID, day, "09:00", uuid.New())
	require.NoError(t, err)
}

func TestStore_ClaimUnknownSlot(t *testing.T) {
	store := NewStore(newMemRepo(), nil)

	_, err := store.Claim(context.Background(), uuid.New(), uuid.New(),
		time.Date(2024, 12, 25, 0, 0, 0, 0, time.UTC), "09:00", uuid.New())
	assert.ErrorIs(t, err, ErrSlotNotFound)
}

func TestStore_ReleaseIsIdempotent(t *testing.T) {
	repo := newMemRepo()
	store := NewStore(repo, nil)
	ctx := context.Background()

	doctorID, hospitalID := uuid.New(), uuid.New()
	day := time.Date(2024, 12, 25, 0, 0, 0, 0, time.UTC)
	s := freeSlot(doctorID, hospitalID, day, "09:00", "09:30")
	repo.add(s)

	require.NoError(t, store.Release(ctx, s.ID))
	require.NoError(t, store.Release(ctx, s.ID))

	// Absent slot id must not fail the caller.
	require.NoError(t, store.Release(ctx, uuid.New()))
}

func TestStore_ConcurrentClaims_ExactlyOneWins(t *testing.T) {
	repo := newMemRepo()
	store := NewStore(repo, nil)
	ctx := context.Background()

	doctorID, hospitalID := uuid.New(), uuid.New()
	day := time.Date(2024, 12, 25, 0, 0, 0, 0, time.UTC)
	repo.add(freeSlot(doctorID, hospitalID, day, "09:00", "09:30"))

	const claimants = 32
	results := make(chan error, claimants)

	var wg sync.WaitGroup
	for i := 0; i < claimants; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Claim(ctx, doctorID, hospitalID, day, "09:00", uuid.New())
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	wins, losses := 0, 0
	for err := range results {
		switch {
		case err == nil:
			wins++
		default:
			require.ErrorIs(t, err, ErrSlotUnavailable)
			losses++
		}
	}

	assert.Equal(t, 1, wins)
	assert.Equal(t, claimants-1, losses)
}

func TestStore_FindAvailableUsesCache(t *testing.T) {
	repo := newMemRepo()
	cache := newMemCache()
	store := NewStore(repo, cache)
	ctx := context.Background()

	doctorID, hospitalID := uuid.New(), uuid.New()
	day := time.Date(2024, 12, 25, 0, 0, 0, 0, time.UTC)
	repo.add(freeSlot(doctorID, hospitalID, day, "09:00", "09:30"))

	first, err := store.FindAvailable(ctx, doctorID, hospitalID, day)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, 1, cache.sets)

	// Second read is served from cache even after a direct repo mutation.
	repo.add(freeSlot(doctorID, hospitalID, day, "10:00", "10:30"))
	second, err := store.FindAvailable(ctx, doctorID, hospitalID, day)
	require.NoError(t, err)
	assert.Len(t, second, 1)

	// A claim invalidates the key; the next read sees fresh state.
	_, err = store.Claim(ctx, doctorID, hospitalID, day, "09:00", uuid.New())
	require.NoError(t, err)

	third, err := store.FindAvailable(ctx, doctorID, hospitalID, day)
	require.NoError(t, err)
	assert.Len(t, third, 1)
	assert.Equal(t, "10:00", third[0].StartTime)
}

func TestStore_GenerateHorizon(t *testing.T) {
	repo := newMemRepo()
	store := NewStore(repo, nil)
	ctx := context.Background()

	doc := directory.Doctor{
		ID:          uuid.New(),
		HospitalID:  uuid.New(),
		WorkStart:   "09:00",
		WorkEnd:     "11:00",
		SlotMinutes: 30,
		IsActive:    true,
	}
	from := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)

	inserted, err := store.GenerateHorizon(ctx, []directory.Doctor{doc}, from, 3)
	require.NoError(t, err)
	assert.Equal(t, 12, inserted) // 4 slots/day * 3 days

	// Re-running the horizon is a no-op for existing slots.
	again, err := store.GenerateHorizon(ctx, []directory.Doctor{doc}, from, 3)
	require.NoError(t, err)
	assert.Equal(t, 0, again)
}
