package organization

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atlas-ums/atlas-ums/internal/orgcontext"
	"github.com/atlas-ums/atlas-ums/internal/platform/db"
	"github.com/atlas-ums/atlas-ums/internal/platform/httpx"
)

// Repository provides PostgreSQL backed persistence for faculties and
// programs. It also implements orgcontext.Directory.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListFaculties returns all faculties ordered by name.
func (r *Repository) ListFaculties(ctx context.Context) ([]Faculty, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, created_at, updated_at FROM faculties ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanFaculties(rows)
}

// GetFaculty fetches one faculty.
func (r *Repository) GetFaculty(ctx context.Context, id int64) (Faculty, error) {
	var f Faculty
	err := r.pool.QueryRow(ctx, `SELECT id, name, created_at, updated_at FROM faculties WHERE id = $1`, id).
		Scan(&f.ID, &f.Name, &f.CreatedAt, &f.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Faculty{}, httpx.ErrNotFound
	}
	return f, err
}

// CreateFaculty inserts a faculty. Names are unique.
func (r *Repository) CreateFaculty(ctx context.Context, name string) (Faculty, error) {
	var f Faculty
	err := r.pool.QueryRow(ctx,
		`INSERT INTO faculties (name) VALUES ($1) RETURNING id, name, created_at, updated_at`, name).
		Scan(&f.ID, &f.Name, &f.CreatedAt, &f.UpdatedAt)
	if db.IsUniqueViolation(err) {
		return Faculty{}, httpx.ErrDuplicate
	}
	return f, err
}

// UpdateFaculty renames a faculty.
func (r *Repository) UpdateFaculty(ctx context.Context, id int64, name string) (Faculty, error) {
	var f Faculty
	err := r.pool.QueryRow(ctx,
		`UPDATE faculties SET name = $1, updated_at = NOW() WHERE id = $2 RETURNING id, name, created_at, updated_at`,
		name, id).
		Scan(&f.ID, &f.Name, &f.CreatedAt, &f.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Faculty{}, httpx.ErrNotFound
	}
	if db.IsUniqueViolation(err) {
		return Faculty{}, httpx.ErrDuplicate
	}
	return f, err
}

// DeleteFaculty removes a faculty. Deletion is protected while the faculty is
// still referenced by programs or domain entities.
func (r *Repository) DeleteFaculty(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM faculties WHERE id = $1`, id)
	if db.IsForeignKeyViolation(err) {
		return httpx.ErrProtected
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

// ListPrograms returns all programs ordered by name.
func (r *Repository) ListPrograms(ctx context.Context) ([]Program, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, faculty_id, created_at, updated_at FROM programs ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPrograms(rows)
}

// GetProgram fetches one program.
func (r *Repository) GetProgram(ctx context.Context, id int64) (Program, error) {
	var p Program
	err := r.pool.QueryRow(ctx, `SELECT id, name, faculty_id, created_at, updated_at FROM programs WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &p.FacultyID, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Program{}, httpx.ErrNotFound
	}
	return p, err
}

// CreateProgram inserts a program under a faculty.
func (r *Repository) CreateProgram(ctx context.Context, name string, facultyID int64) (Program, error) {
	var p Program
	err := r.pool.QueryRow(ctx,
		`INSERT INTO programs (name, faculty_id) VALUES ($1, $2) RETURNING id, name, faculty_id, created_at, updated_at`,
		name, facultyID).
		Scan(&p.ID, &p.Name, &p.FacultyID, &p.CreatedAt, &p.UpdatedAt)
	if db.IsForeignKeyViolation(err) {
		return Program{}, httpx.NewFieldError("faculty", "faculty does not exist")
	}
	return p, err
}

// UpdateProgram updates a program's name and faculty.
func (r *Repository) UpdateProgram(ctx context.Context, id int64, name string, facultyID int64) (Program, error) {
	var p Program
	err := r.pool.QueryRow(ctx,
		`UPDATE programs SET name = $1, faculty_id = $2, updated_at = NOW() WHERE id = $3
		 RETURNING id, name, faculty_id, created_at, updated_at`,
		name, facultyID, id).
		Scan(&p.ID, &p.Name, &p.FacultyID, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Program{}, httpx.ErrNotFound
	}
	if db.IsForeignKeyViolation(err) {
		return Program{}, httpx.NewFieldError("faculty", "faculty does not exist")
	}
	return p, err
}

// DeleteProgram removes a program; protected while referenced.
func (r *Repository) DeleteProgram(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM programs WHERE id = $1`, id)
	if db.IsForeignKeyViolation(err) {
		return httpx.ErrProtected
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

// ProgramsByIDs fetches the given programs.
func (r *Repository) ProgramsByIDs(ctx context.Context, ids []int64) ([]Program, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, faculty_id, created_at, updated_at FROM programs WHERE id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPrograms(rows)
}

// FacultiesOfPrograms returns the distinct faculties owning the given
// programs. The user affiliation invariant is checked against this set.
func (r *Repository) FacultiesOfPrograms(ctx context.Context, programIDs []int64) ([]Faculty, error) {
	if len(programIDs) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT f.id, f.name, f.created_at, f.updated_at
		FROM faculties f
		JOIN programs p ON p.faculty_id = f.id
		WHERE p.id = ANY($1)
		ORDER BY f.name`, programIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanFaculties(rows)
}

// ProgramsUnderFaculty implements orgcontext.Directory: programs of one
// faculty ordered by id, so the first row is the auto-selection candidate.
func (r *Repository) ProgramsUnderFaculty(ctx context.Context, facultyID int64) ([]orgcontext.ProgramRef, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, faculty_id, name FROM programs WHERE faculty_id = $1 ORDER BY id`, facultyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProgramRefs(rows)
}

// Faculties implements orgcontext.Directory. A nil filter lists all.
func (r *Repository) Faculties(ctx context.Context, ids []int64) ([]orgcontext.FacultyRef, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if ids == nil {
		rows, err = r.pool.Query(ctx, `SELECT id, name FROM faculties ORDER BY name`)
	} else {
		rows, err = r.pool.Query(ctx, `SELECT id, name FROM faculties WHERE id = ANY($1) ORDER BY name`, ids)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refs []orgcontext.FacultyRef
	for rows.Next() {
		var ref orgcontext.FacultyRef
		if err := rows.Scan(&ref.ID, &ref.Name); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

// Programs implements orgcontext.Directory. A nil faculty filter lists all.
func (r *Repository) Programs(ctx context.Context, facultyIDs []int64) ([]orgcontext.ProgramRef, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if facultyIDs == nil {
		rows, err = r.pool.Query(ctx, `SELECT id, faculty_id, name FROM programs ORDER BY name`)
	} else {
		rows, err = r.pool.Query(ctx, `SELECT id, faculty_id, name FROM programs WHERE faculty_id = ANY($1) ORDER BY name`, facultyIDs)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProgramRefs(rows)
}

func scanFaculties(rows pgx.Rows) ([]Faculty, error) {
	var faculties []Faculty
	for rows.Next() {
		var f Faculty
		if err := rows.Scan(&f.ID, &f.Name, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, err
		}
		faculties = append(faculties, f)
	}
	return faculties, rows.Err()
}

func scanPrograms(rows pgx.Rows) ([]Program, error) {
	var programs []Program
	for rows.Next() {
		var p Program
		if err := rows.Scan(&p.ID, &p.Name, &p.FacultyID, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		programs = append(programs, p)
	}
	return programs, rows.Err()
}

func scanProgramRefs(rows pgx.Rows) ([]orgcontext.ProgramRef, error) {
	var refs []orgcontext.ProgramRef
	for rows.Next() {
		var ref orgcontext.ProgramRef
		if err := rows.Scan(&ref.ID, &ref.FacultyID, &ref.Name); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}
