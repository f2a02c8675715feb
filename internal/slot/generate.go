package slot

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medibook/hospital-booking/internal/directory"
)

// GenerateDay partitions a doctor's working hours on the given day into
// fixed-size intervals of the doctor's configured slot duration. A trailing
// remainder shorter than one slot is dropped.
func GenerateDay(doc directory.Doctor, day time.Time) ([]Slot, error) {
	if doc.SlotMinutes <= 0 {
		return nil, fmt.Errorf("doctor %s has invalid slot duration %d", doc.ID, doc.SlotMinutes)
	}

	start, err := ParseHHMM(doc.WorkStart)
	if err != nil {
		return nil, fmt.Errorf("doctor %s work_start: %w", doc.ID, err)
	}
	end, err := ParseHHMM(doc.WorkEnd)
	if err != nil {
		return nil, fmt.Errorf("doctor %s work_end: %w", doc.ID, err)
	}
	if end <= start {
		return nil, fmt.Errorf("doctor %s working hours %s-%s are empty", doc.ID, doc.WorkStart, doc.WorkEnd)
	}

	day = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())

	var slots []Slot
	for m := start; m+doc.SlotMinutes <= end; m += doc.SlotMinutes {
		slots = append(slots, Slot{
			ID:              uuid.New(),
			DoctorID:        doc.ID,
			HospitalID:      doc.HospitalID,
			Day:             day,
			StartTime:       FormatHHMM(m),
			EndTime:         FormatHHMM(m + doc.SlotMinutes),
			DurationMinutes: doc.SlotMinutes,
			IsAvailable:     true,
			IsBooked:        false,
		})
	}

	return slots, nil
}

// ParseHHMM converts an HH:MM clock string to minutes since midnight.
func ParseHHMM(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: %w", s, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// FormatHHMM is the inverse of ParseHHMM.
func FormatHHMM(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
