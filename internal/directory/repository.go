package directory

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrHospitalNotFound   = errors.New("hospital not found")
	ErrDepartmentNotFound = errors.New("department not found")
	ErrDoctorNotFound     = errors.New("doctor not found")
	ErrPatientNotFound    = errors.New("patient not found")
)

// Repository is the read-only view of the hospital directory and medicine
// catalog consumed by booking validation and prescription generation.
type Repository interface {
	GetHospitalByID(ctx context.Context, id uuid.UUID) (*Hospital, error)
	GetDepartmentByID(ctx context.Context, id uuid.UUID) (*Department, error)
	GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)

	ListActiveDoctors(ctx context.Context) ([]Doctor, error)
	ListActiveMedicines(ctx context.Context) ([]Medicine, error)
}
