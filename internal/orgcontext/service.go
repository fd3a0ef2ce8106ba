package orgcontext

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/atlas-ums/atlas-ums/internal/platform/httpx"
	"github.com/atlas-ums/atlas-ums/internal/rls"
	"github.com/atlas-ums/atlas-ums/internal/shared"
)

// FacultyRef is a faculty as seen by context selection.
type FacultyRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ProgramRef is a program as seen by context selection.
type ProgramRef struct {
	ID        int64  `json:"id"`
	FacultyID int64  `json:"faculty_id"`
	Name      string `json:"name"`
}

// Directory is the organization lookup surface the service needs.
type Directory interface {
	// ProgramsUnderFaculty lists programs of one faculty, ordered by id.
	ProgramsUnderFaculty(ctx context.Context, facultyID int64) ([]ProgramRef, error)
	// Faculties lists faculties; a nil filter means all.
	Faculties(ctx context.Context, ids []int64) ([]FacultyRef, error)
	// Programs lists programs under the given faculties; nil means all.
	Programs(ctx context.Context, facultyIDs []int64) ([]ProgramRef, error)
}

// Service implements the two context-switch operations.
type Service struct {
	directory Directory
	logger    *slog.Logger
}

// NewService constructs a Service.
func NewService(directory Directory, logger *slog.Logger) *Service {
	return &Service{directory: directory, logger: logger}
}

// SelectFaculty switches the session's selected faculty. An empty id clears
// both selections. On success the first program under the new faculty that
// the principal is authorized for is auto-selected; if none exists the
// program selection is cleared. Changing faculty cascades into program,
// never the other way around.
func (s *Service) SelectFaculty(ctx context.Context, p rls.Principal, sess *shared.Session, rawID string) error {
	if rawID == "" {
		storeSelection(sess, SessionKeyFaculty, nil)
		storeSelection(sess, SessionKeyProgram, nil)
		return nil
	}

	facultyID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: faculty id must be an integer", httpx.ErrValidation)
	}

	global := p.HasPerm(rls.PermAccessGlobal)
	if !global && !p.HasFaculty(facultyID) {
		return fmt.Errorf("%w: unauthorized faculty", httpx.ErrForbidden)
	}

	programs, err := s.directory.ProgramsUnderFaculty(ctx, facultyID)
	if err != nil {
		return fmt.Errorf("orgcontext: list programs: %w", err)
	}

	var programID *int64
	for _, prog := range programs {
		if global || p.HasProgram(prog.ID) {
			id := prog.ID
			programID = &id
			break
		}
	}

	storeSelection(sess, SessionKeyFaculty, &facultyID)
	storeSelection(sess, SessionKeyProgram, programID)

	if s.logger != nil {
		s.logger.Info("faculty selected",
			slog.Int64("user_id", p.UserID),
			slog.Int64("faculty_id", facultyID),
			slog.Bool("program_auto_selected", programID != nil))
	}
	return nil
}

// SelectProgram switches the session's selected program without touching the
// selected faculty. An empty id clears the program selection.
func (s *Service) SelectProgram(ctx context.Context, p rls.Principal, sess *shared.Session, rawID string) error {
	if rawID == "" {
		storeSelection(sess, SessionKeyProgram, nil)
		return nil
	}

	programID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: program id must be an integer", httpx.ErrValidation)
	}

	authorized := p.HasPerm(rls.PermAccessGlobal) || p.HasPerm(rls.PermAccessFacultyWide)
	if !authorized && !p.HasProgram(programID) {
		return fmt.Errorf("%w: unauthorized program", httpx.ErrForbidden)
	}

	storeSelection(sess, SessionKeyProgram, &programID)
	return nil
}

// Options returns the faculties and programs the principal may pick from:
// everything for global holders, the principal's own faculties (and their
// programs) otherwise.
func (s *Service) Options(ctx context.Context, p rls.Principal) ([]FacultyRef, []ProgramRef, error) {
	if p.HasPerm(rls.PermAccessGlobal) {
		faculties, err := s.directory.Faculties(ctx, nil)
		if err != nil {
			return nil, nil, err
		}
		programs, err := s.directory.Programs(ctx, nil)
		if err != nil {
			return nil, nil, err
		}
		return faculties, programs, nil
	}

	// An empty (non-nil) filter must stay empty: nil means "all" to the
	// directory, and a user with no faculties may pick from none.
	facultyIDs := p.FacultyIDs
	if facultyIDs == nil {
		facultyIDs = []int64{}
	}
	faculties, err := s.directory.Faculties(ctx, facultyIDs)
	if err != nil {
		return nil, nil, err
	}
	programs, err := s.directory.Programs(ctx, facultyIDs)
	if err != nil {
		return nil, nil, err
	}
	return faculties, programs, nil
}
