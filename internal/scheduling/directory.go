package scheduling

import (
	"context"

	"github.com/google/uuid"
)

// Directory is the specialty-to-doctor lookup used by the matcher.
type Directory struct {
	repo Repository
}

func NewDirectory(repo Repository) *Directory {
	return &Directory{repo: repo}
}

func (d *Directory) Create(ctx context.Context, name, specialty string) (*Doctor, error) {
	if err := validateRequired("name", name); err != nil {
		return nil, err
	}
	if err := validateRequired("specialty", specialty); err != nil {
		return nil, err
	}

	return d.repo.CreateDoctor(ctx, &Doctor{
		ID:        uuid.New(),
		Name:      name,
		Specialty: specialty,
	})
}

func (d *Directory) GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	if err := validateID("doctor_id", id); err != nil {
		return nil, err
	}
	return d.repo.GetDoctorByID(ctx, id)
}

// FindBySpecialty returns every doctor of the given specialty. An
// empty result is not an error.
func (d *Directory) FindBySpecialty(ctx context.Context, specialty string) ([]Doctor, error) {
	if err := validateRequired("specialty", specialty); err != nil {
		return nil, err
	}
	return d.repo.FindDoctorsBySpecialty(ctx, specialty)
}
