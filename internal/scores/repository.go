package scores

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

const scoreColumns = `scores.id, scores.schedule_id, scores.student_id, scores.component,
	scores.value, scores.graded_by, scores.created_at, scores.updated_at`

// scoreFrom joins through the schedule to the owning course so the
// faculty/program predicate can reference it as "c".
const scoreFrom = `FROM scores
	JOIN schedules s ON s.id = scores.schedule_id
	JOIN courses c ON c.id = s.course_id`

// Repository provides predicate-filtered persistence for scores.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// List returns visible scores with pagination.
func (r *Repository) List(ctx context.Context, d rls.Decision, params shared.ListParams) ([]Score, int, error) {
	clause, args := d.Clause(1)
	where := "WHERE (" + clause + ")"
	if params.Search != "" {
		where += fmt.Sprintf(" AND scores.component ILIKE $%d", len(args)+1)
		args = append(args, "%"+params.Search+"%")
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) "+scoreFrom+" "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf("SELECT %s %s %s ORDER BY scores.schedule_id, scores.student_id LIMIT $%d OFFSET $%d",
		scoreColumns, scoreFrom, where, len(args)+1, len(args)+2)
	args = append(args, params.PerPage, params.Offset())

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	scores, err := scanScores(rows)
	return scores, total, err
}

// ListAll returns every visible score, for exports.
func (r *Repository) ListAll(ctx context.Context, d rls.Decision) ([]Score, error) {
	clause, args := d.Clause(1)
	query := fmt.Sprintf("SELECT %s %s WHERE (%s) ORDER BY scores.schedule_id, scores.student_id",
		scoreColumns, scoreFrom, clause)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanScores(rows)
}

// Get fetches one visible score.
func (r *Repository) Get(ctx context.Context, d rls.Decision, id int64) (Score, error) {
	clause, args := d.Clause(1)
	query := fmt.Sprintf("SELECT %s %s WHERE (%s) AND scores.id = $%d",
		scoreColumns, scoreFrom, clause, len(args)+1)
	args = append(args, id)

	s, err := scanScore(r.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return Score{}, httpx.ErrNotFound
	}
	return s, err
}

// Create inserts a score.
func (r *Repository) Create(ctx context.Context, s Score) (Score, error) {
	created, err := scanScore(r.pool.QueryRow(ctx, fmt.Sprintf(`
		INSERT INTO scores (schedule_id, student_id, component, value, graded_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING %s`, scoreColumns),
		s.ScheduleID, s.StudentID, s.Component, s.Value, s.GradedBy))
	if db.IsUniqueViolation(err) {
		return Score{}, httpx.ErrDuplicate
	}
	if db.IsForeignKeyViolation(err) {
		return Score{}, httpx.NewFieldError("schedule", "schedule or student does not exist")
	}
	return created, err
}

// Update rewrites a visible score.
func (r *Repository) Update(ctx context.Context, d rls.Decision, s Score) (Score, error) {
	clause, args := d.Clause(6)
	query := fmt.Sprintf(`
		UPDATE scores SET schedule_id = $1, student_id = $2, component = $3, value = $4,
			graded_by = $5, updated_at = NOW()
		FROM schedules s
		JOIN courses c ON c.id = s.course_id
		WHERE s.id = scores.schedule_id AND scores.id = $%d AND (%s)
		RETURNING %s`, len(args)+6, clause, scoreColumns)
	callArgs := append([]any{s.ScheduleID, s.StudentID, s.Component, s.Value, s.GradedBy}, args...)
	callArgs = append(callArgs, s.ID)

	updated, err := scanScore(r.pool.QueryRow(ctx, query, callArgs...))
	if errors.Is(err, pgx.ErrNoRows) {
		return Score{}, httpx.ErrNotFound
	}
	if db.IsUniqueViolation(err) {
		return Score{}, httpx.ErrDuplicate
	}
	return updated, err
}

// Delete removes one visible score.
func (r *Repository) Delete(ctx context.Context, d rls.Decision, id int64) error {
	clause, args := d.Clause(1)
	query := fmt.Sprintf(`
		DELETE FROM scores USING schedules s, courses c
		WHERE s.id = scores.schedule_id AND c.id = s.course_id AND (%s) AND scores.id = $%d`,
		clause, len(args)+1)
	args = append(args, id)

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

// DeleteAll removes every visible score in one transaction.
func (r *Repository) DeleteAll(ctx context.Context, d rls.Decision) (int64, error) {
	clause, args := d.Clause(1)
	var deleted int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			DELETE FROM scores USING schedules s, courses c
			WHERE s.id = scores.schedule_id AND c.id = s.course_id AND (`+clause+`)`, args...)
		if err != nil {
			return err
		}
		deleted = tag.RowsAffected()
		return nil
	})
	return deleted, err
}

// UpsertBatch writes a whole submission in one transaction. The batch either
// lands completely or not at all.
func (r *Repository) UpsertBatch(ctx context.Context, scores []Score) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		for _, s := range scores {
			_, err := tx.Exec(ctx, `
				INSERT INTO scores (schedule_id, student_id, component, value, graded_by)
				VALUES ($1, $2, $3, $4, $5)
				ON CONFLICT (schedule_id, student_id, component)
				DO UPDATE SET value = EXCLUDED.value, graded_by = EXCLUDED.graded_by, updated_at = NOW()`,
				s.ScheduleID, s.StudentID, s.Component, s.Value, s.GradedBy)
			if db.IsForeignKeyViolation(err) {
				return httpx.NewFieldError("student_id", fmt.Sprintf("student %d does not exist", s.StudentID))
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanScore(row rowScanner) (Score, error) {
	var s Score
	err := row.Scan(&s.ID, &s.ScheduleID, &s.StudentID, &s.Component, &s.Value, &s.GradedBy,
		&s.CreatedAt, &s.UpdatedAt)
	return s, err
}

func scanScores(rows pgx.Rows) ([]Score, error) {
	var scores []Score
	for rows.Next() {
		s, err := scanScore(rows)
		if err != nil {
			return nil, err
		}
		scores = append(scores, s)
	}
	return scores, rows.Err()
}
