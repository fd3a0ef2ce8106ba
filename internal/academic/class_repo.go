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

const classColumns = `classes.id, classes.name, classes.faculty_id, classes.program_id,
	classes.created_at, classes.updated_at`

// ClassRepository provides predicate-filtered persistence for classes and
// their student membership.
type ClassRepository struct {
	pool *pgxpool.Pool
}

// NewClassRepository constructs a ClassRepository.
func NewClassRepository(pool *pgxpool.Pool) *ClassRepository {
	return &ClassRepository{pool: pool}
}

// List returns visible classes with search and pagination.
func (r *ClassRepository) List(ctx context.Context, d rls.Decision, params shared.ListParams) ([]Class, int, error) {
	clause, args := d.Clause(1)
	where := "WHERE (" + clause + ")"
	if params.Search != "" {
		where += fmt.Sprintf(" AND classes.name ILIKE $%d", len(args)+1)
		args = append(args, "%"+params.Search+"%")
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM classes "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf("SELECT %s FROM classes %s ORDER BY classes.name LIMIT $%d OFFSET $%d",
		classColumns, where, len(args)+1, len(args)+2)
	args = append(args, params.PerPage, params.Offset())

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	classes, err := scanClasses(rows)
	if err != nil {
		return nil, 0, err
	}
	if err := r.loadStudents(ctx, classes); err != nil {
		return nil, 0, err
	}
	return classes, total, nil
}

// ListAll returns every visible class, for exports.
func (r *ClassRepository) ListAll(ctx context.Context, d rls.Decision) ([]Class, error) {
	clause, args := d.Clause(1)
	rows, err := r.pool.Query(ctx,
		fmt.Sprintf("SELECT %s FROM classes WHERE (%s) ORDER BY classes.name", classColumns, clause), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	classes, err := scanClasses(rows)
	if err != nil {
		return nil, err
	}
	return classes, r.loadStudents(ctx, classes)
}

// Get fetches one visible class.
func (r *ClassRepository) Get(ctx context.Context, d rls.Decision, id int64) (Class, error) {
	clause, args := d.Clause(1)
	query := fmt.Sprintf("SELECT %s FROM classes WHERE (%s) AND classes.id = $%d",
		classColumns, clause, len(args)+1)
	args = append(args, id)

	c, err := scanClass(r.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return Class{}, httpx.ErrNotFound
	}
	if err != nil {
		return Class{}, err
	}
	classes := []Class{c}
	if err := r.loadStudents(ctx, classes); err != nil {
		return Class{}, err
	}
	return classes[0], nil
}

// Create inserts a class and its membership in one transaction. A taken name
// gets a numeric suffix instead of failing.
func (r *ClassRepository) Create(ctx context.Context, c Class) (Class, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		name, err := r.availableName(ctx, tx, c)
		if err != nil {
			return err
		}
		created, err := scanClass(tx.QueryRow(ctx, fmt.Sprintf(`
			INSERT INTO classes (name, faculty_id, program_id)
			VALUES ($1, $2, $3)
			RETURNING %s`, classColumns),
			name, c.FacultyID, c.ProgramID))
		if err != nil {
			return err
		}
		created.StudentIDs = c.StudentIDs
		if err := setStudents(ctx, tx, created); err != nil {
			return err
		}
		c = created
		return nil
	})
	if db.IsForeignKeyViolation(err) {
		return Class{}, httpx.NewFieldError("faculty", "faculty or program does not exist")
	}
	if err != nil {
		return Class{}, err
	}
	return c, nil
}

// Update rewrites a visible class and replaces its membership.
func (r *ClassRepository) Update(ctx context.Context, d rls.Decision, c Class) (Class, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		name, err := r.availableName(ctx, tx, c)
		if err != nil {
			return err
		}
		clause, args := d.Clause(4)
		query := fmt.Sprintf(`
			UPDATE classes SET name = $1, faculty_id = $2, program_id = $3, updated_at = NOW()
			WHERE id = $%d AND (%s)
			RETURNING %s`, len(args)+4, clause, classColumns)
		callArgs := append([]any{name, c.FacultyID, c.ProgramID}, args...)
		callArgs = append(callArgs, c.ID)

		updated, err := scanClass(tx.QueryRow(ctx, query, callArgs...))
		if errors.Is(err, pgx.ErrNoRows) {
			return httpx.ErrNotFound
		}
		if err != nil {
			return err
		}
		updated.StudentIDs = c.StudentIDs
		if err := setStudents(ctx, tx, updated); err != nil {
			return err
		}
		c = updated
		return nil
	})
	if db.IsForeignKeyViolation(err) {
		return Class{}, httpx.NewFieldError("faculty", "faculty or program does not exist")
	}
	if err != nil {
		return Class{}, err
	}
	return c, nil
}

// Delete removes one visible class.
func (r *ClassRepository) Delete(ctx context.Context, d rls.Decision, id int64) error {
	clause, args := d.Clause(1)
	query := fmt.Sprintf("DELETE FROM classes WHERE (%s) AND id = $%d", clause, len(args)+1)
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

// DeleteAll removes every visible class in one transaction.
func (r *ClassRepository) DeleteAll(ctx context.Context, d rls.Decision) (int64, error) {
	clause, args := d.Clause(1)
	var deleted int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, "DELETE FROM classes WHERE ("+clause+")", args...)
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

// Collisions only count within one (faculty, program) pair: two programs may
// each have a "CS 2025". NULL affiliation compares as its own bucket, hence
// IS NOT DISTINCT FROM.
const classNameCollisionQuery = `
	SELECT name FROM classes
	WHERE (name = $1 OR name LIKE $1 || ' (%')
	AND id <> $2
	AND faculty_id IS NOT DISTINCT FROM $3
	AND program_id IS NOT DISTINCT FROM $4`

// availableName resolves name collisions inside the writing transaction. The
// class's own id is skipped so a no-op rename stays stable.
func (r *ClassRepository) availableName(ctx context.Context, tx pgx.Tx, c Class) (string, error) {
	rows, err := tx.Query(ctx, classNameCollisionQuery,
		c.Name, c.ID, c.FacultyID, c.ProgramID)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	taken := make(map[string]struct{})
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return "", err
		}
		taken[name] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	return DedupName(c.Name, taken), nil
}

func setStudents(ctx context.Context, tx pgx.Tx, c Class) error {
	if _, err := tx.Exec(ctx, `DELETE FROM class_students WHERE class_id = $1`, c.ID); err != nil {
		return err
	}
	for _, studentID := range c.StudentIDs {
		if _, err := tx.Exec(ctx,
			`INSERT INTO class_students (class_id, student_id) VALUES ($1, $2)`, c.ID, studentID); err != nil {
			if db.IsForeignKeyViolation(err) {
				return httpx.NewFieldError("students", fmt.Sprintf("student %d does not exist", studentID))
			}
			return err
		}
	}
	return nil
}

func (r *ClassRepository) loadStudents(ctx context.Context, classes []Class) error {
	if len(classes) == 0 {
		return nil
	}
	index := make(map[int64]*Class, len(classes))
	ids := make([]int64, 0, len(classes))
	for i := range classes {
		index[classes[i].ID] = &classes[i]
		ids = append(ids, classes[i].ID)
	}
	rows, err := r.pool.Query(ctx,
		`SELECT class_id, student_id FROM class_students WHERE class_id = ANY($1) ORDER BY student_id`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var classID, studentID int64
		if err := rows.Scan(&classID, &studentID); err != nil {
			return err
		}
		if c, ok := index[classID]; ok {
			c.StudentIDs = append(c.StudentIDs, studentID)
		}
	}
	return rows.Err()
}

func scanClass(row rowScanner) (Class, error) {
	var c Class
	err := row.Scan(&c.ID, &c.Name, &c.FacultyID, &c.ProgramID, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func scanClasses(rows pgx.Rows) ([]Class, error) {
	var classes []Class
	for rows.Next() {
		c, err := scanClass(rows)
		if err != nil {
			return nil, err
		}
		classes = append(classes, c)
	}
	return classes, rows.Err()
}
