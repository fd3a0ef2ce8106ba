package organization

import (
	"context"
	"errors"
	"strings"

	"github.com/atlas-ums/atlas-ums/internal/platform/httpx"
)

// Store is the persistence surface the service needs; satisfied by
// *Repository and by in-memory fakes in tests.
type Store interface {
	ListFaculties(ctx context.Context) ([]Faculty, error)
	GetFaculty(ctx context.Context, id int64) (Faculty, error)
	CreateFaculty(ctx context.Context, name string) (Faculty, error)
	UpdateFaculty(ctx context.Context, id int64, name string) (Faculty, error)
	DeleteFaculty(ctx context.Context, id int64) error

	ListPrograms(ctx context.Context) ([]Program, error)
	GetProgram(ctx context.Context, id int64) (Program, error)
	CreateProgram(ctx context.Context, name string, facultyID int64) (Program, error)
	UpdateProgram(ctx context.Context, id int64, name string, facultyID int64) (Program, error)
	DeleteProgram(ctx context.Context, id int64) error

	ProgramsByIDs(ctx context.Context, ids []int64) ([]Program, error)
	FacultiesOfPrograms(ctx context.Context, programIDs []int64) ([]Faculty, error)
}

// Service manages faculty/program reference data and exposes the affiliation
// invariant checks to the rest of the system.
type Service struct {
	store Store
}

// NewService constructs a Service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// ListFaculties returns all faculties.
func (s *Service) ListFaculties(ctx context.Context) ([]Faculty, error) {
	return s.store.ListFaculties(ctx)
}

// GetFaculty fetches one faculty.
func (s *Service) GetFaculty(ctx context.Context, id int64) (Faculty, error) {
	return s.store.GetFaculty(ctx, id)
}

// CreateFaculty inserts a faculty.
func (s *Service) CreateFaculty(ctx context.Context, name string) (Faculty, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Faculty{}, httpx.NewFieldError("name", "faculty name is required")
	}
	return s.store.CreateFaculty(ctx, name)
}

// UpdateFaculty renames a faculty.
func (s *Service) UpdateFaculty(ctx context.Context, id int64, name string) (Faculty, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Faculty{}, httpx.NewFieldError("name", "faculty name is required")
	}
	return s.store.UpdateFaculty(ctx, id, name)
}

// DeleteFaculty removes a faculty; protected while referenced.
func (s *Service) DeleteFaculty(ctx context.Context, id int64) error {
	return s.store.DeleteFaculty(ctx, id)
}

// ListPrograms returns all programs.
func (s *Service) ListPrograms(ctx context.Context) ([]Program, error) {
	return s.store.ListPrograms(ctx)
}

// GetProgram fetches one program.
func (s *Service) GetProgram(ctx context.Context, id int64) (Program, error) {
	return s.store.GetProgram(ctx, id)
}

// CreateProgram inserts a program under a faculty.
func (s *Service) CreateProgram(ctx context.Context, name string, facultyID int64) (Program, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Program{}, httpx.NewFieldError("name", "program name is required")
	}
	if facultyID <= 0 {
		return Program{}, httpx.NewFieldError("faculty", "faculty is required")
	}
	return s.store.CreateProgram(ctx, name, facultyID)
}

// UpdateProgram updates a program.
func (s *Service) UpdateProgram(ctx context.Context, id int64, name string, facultyID int64) (Program, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Program{}, httpx.NewFieldError("name", "program name is required")
	}
	if facultyID <= 0 {
		return Program{}, httpx.NewFieldError("faculty", "faculty is required")
	}
	return s.store.UpdateProgram(ctx, id, name, facultyID)
}

// DeleteProgram removes a program; protected while referenced.
func (s *Service) DeleteProgram(ctx context.Context, id int64) error {
	return s.store.DeleteProgram(ctx, id)
}

// CheckAffiliation validates the entity invariant for a faculty/program pair
// about to be persisted. Either side being unset skips the check.
func (s *Service) CheckAffiliation(ctx context.Context, facultyID, programID *int64) error {
	if facultyID == nil || programID == nil {
		return nil
	}
	program, err := s.store.GetProgram(ctx, *programID)
	if err != nil {
		if errors.Is(err, httpx.ErrNotFound) {
			return httpx.NewFieldError("program", "program does not exist")
		}
		return err
	}
	return ValidateEntityAffiliation(facultyID, &program)
}

// CheckUserAffiliations validates the user invariant for a pending
// faculties/programs assignment.
func (s *Service) CheckUserAffiliations(ctx context.Context, facultyIDs, programIDs []int64) error {
	programFaculties, err := s.store.FacultiesOfPrograms(ctx, programIDs)
	if err != nil {
		return err
	}
	return ValidateUserAffiliations(facultyIDs, programFaculties)
}
