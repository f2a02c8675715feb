package directory

import (
	"time"

	"github.com/google/uuid"
)

type Hospital struct {
	ID        uuid.UUID
	Name      string
	City      *string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Department struct {
	ID         uuid.UUID
	HospitalID uuid.UUID
	Name       string
	IsActive   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Doctor carries the working-hours configuration slot generation partitions.
// WorkStart and WorkEnd are HH:MM.
type Doctor struct {
	ID           uuid.UUID
	HospitalID   uuid.UUID
	DepartmentID uuid.UUID
	Name         string
	Specialty    *string
	WorkStart    string
	WorkEnd      string
	SlotMinutes  int
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Patient struct {
	ID        uuid.UUID
	Name      string
	Email     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Medicine struct {
	ID          uuid.UUID
	Name        string
	GenericName *string
	Strengths   []string
	Category    string
	IsActive    bool
}
