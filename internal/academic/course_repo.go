package academic

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atlas-ums/atlas-ums/internal/platform/db"
	"github.com/atlas-ums/atlas-ums/internal/platform/httpx"
	"github.com/atlas-ums/atlas-ums/internal/rls"
	"github.com/atlas-ums/atlas-ums/internal/shared"
)

const courseColumns = `courses.id, courses.name, courses.code, courses.credits,
	courses.faculty_id, courses.program_id, courses.created_at, courses.updated_at`

// CourseRepository provides predicate-filtered persistence for courses.
type CourseRepository struct {
	pool *pgxpool.Pool
}

// NewCourseRepository constructs a CourseRepository.
func NewCourseRepository(pool *pgxpool.Pool) *CourseRepository {
	return &CourseRepository{pool: pool}
}

// List returns visible courses with search and pagination.
func (r *CourseRepository) List(ctx context.Context, d rls.Decision, params shared.ListParams) ([]Course, int, error) {
	clause, args := d.Clause(1)
	where := "WHERE (" + clause + ")"
	if params.Search != "" {
		where += fmt.Sprintf(" AND (courses.name ILIKE $%d OR courses.code ILIKE $%d)", len(args)+1, len(args)+1)
		args = append(args, "%"+params.Search+"%")
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM courses "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf("SELECT %s FROM courses %s ORDER BY courses.name LIMIT $%d OFFSET $%d",
		courseColumns, where, len(args)+1, len(args)+2)
	args = append(args, params.PerPage, params.Offset())

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	courses, err := scanCourses(rows)
	return courses, total, err
}

// ListAll returns every visible course, for exports.
func (r *CourseRepository) ListAll(ctx context.Context, d rls.Decision) ([]Course, error) {
	clause, args := d.Clause(1)
	rows, err := r.pool.Query(ctx,
		fmt.Sprintf("SELECT %s FROM courses WHERE (%s) ORDER BY courses.name", courseColumns, clause), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCourses(rows)
}

// Get fetches one visible course.
func (r *CourseRepository) Get(ctx context.Context, d rls.Decision, id int64) (Course, error) {
	clause, args := d.Clause(1)
	query := fmt.Sprintf("SELECT %s FROM courses WHERE (%s) AND courses.id = $%d",
		courseColumns, clause, len(args)+1)
	args = append(args, id)

	c, err := scanCourse(r.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return Course{}, httpx.ErrNotFound
	}
	return c, err
}

// Create inserts a course.
func (r *CourseRepository) Create(ctx context.Context, c Course) (Course, error) {
	created, err := scanCourse(r.pool.QueryRow(ctx, fmt.Sprintf(`
		INSERT INTO courses (name, code, credits, faculty_id, program_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING %s`, courseColumns),
		c.Name, c.Code, c.Credits, c.FacultyID, c.ProgramID))
	if db.IsUniqueViolation(err) {
		return Course{}, httpx.ErrDuplicate
	}
	if db.IsForeignKeyViolation(err) {
		return Course{}, httpx.NewFieldError("faculty", "faculty or program does not exist")
	}
	return created, err
}

// Update rewrites a visible course.
func (r *CourseRepository) Update(ctx context.Context, d rls.Decision, c Course) (Course, error) {
	clause, args := d.Clause(6)
	query := fmt.Sprintf(`
		UPDATE courses SET name = $1, code = $2, credits = $3, faculty_id = $4, program_id = $5,
			updated_at = NOW()
		WHERE id = $%d AND (%s)
		RETURNING %s`, len(args)+6, clause, courseColumns)
	callArgs := append([]any{c.Name, c.Code, c.Credits, c.FacultyID, c.ProgramID}, args...)
	callArgs = append(callArgs, c.ID)

	updated, err := scanCourse(r.pool.QueryRow(ctx, query, callArgs...))
	if errors.Is(err, pgx.ErrNoRows) {
		return Course{}, httpx.ErrNotFound
	}
	if db.IsUniqueViolation(err) {
		return Course{}, httpx.ErrDuplicate
	}
	return updated, err
}

// Delete removes one visible course.
func (r *CourseRepository) Delete(ctx context.Context, d rls.Decision, id int64) error {
	clause, args := d.Clause(1)
	query := fmt.Sprintf("DELETE FROM courses WHERE (%s) AND id = $%d", clause, len(args)+1)
	args = append(args, id)

	tag, err := r.pool.Exec(ctx, query, args...)
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

// DeleteAll removes every visible course in one transaction.
func (r *CourseRepository) DeleteAll(ctx context.Context, d rls.Decision) (int64, error) {
	clause, args := d.Clause(1)
	var deleted int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, "DELETE FROM courses WHERE ("+clause+")", args...)
		if err != nil {
			return err
		}
		deleted = tag.RowsAffected()
		return nil
	})
	if db.IsForeignKeyViolation(err) {
		return 0, httpx.ErrProtected
	}
	return deleted, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCourse(row rowScanner) (Course, error) {
	var c Course
	err := row.Scan(&c.ID, &c.Name, &c.Code, &c.Credits, &c.FacultyID, &c.ProgramID, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func scanCourses(rows pgx.Rows) ([]Course, error) {
	var courses []Course
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, err
		}
		courses = append(courses, c)
	}
	return courses, rows.Err()
}
