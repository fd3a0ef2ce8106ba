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

const scheduleColumns = `schedules.id, schedules.course_id, schedules.class_id,
	schedules.professor_id, schedules.weekday, schedules.starts_at, schedules.ends_at,
	schedules.room, schedules.created_at, schedules.updated_at`

// scheduleFrom joins the owning course so the faculty/program predicate can
// reference it as "c".
const scheduleFrom = "FROM schedules JOIN courses c ON c.id = schedules.course_id"

// ScheduleRepository provides predicate-filtered persistence for schedules.
type ScheduleRepository struct {
	pool *pgxpool.Pool
}

// NewScheduleRepository constructs a ScheduleRepository.
func NewScheduleRepository(pool *pgxpool.Pool) *ScheduleRepository {
	return &ScheduleRepository{pool: pool}
}

// List returns visible schedules with pagination.
func (r *ScheduleRepository) List(ctx context.Context, d rls.Decision, params shared.ListParams) ([]Schedule, int, error) {
	clause, args := d.Clause(1)
	where := "WHERE (" + clause + ")"
	if params.Search != "" {
		where += fmt.Sprintf(" AND schedules.room ILIKE $%d", len(args)+1)
		args = append(args, "%"+params.Search+"%")
	}

	var total int
	if err := r.pool.QueryRow(ctx,
		"SELECT COUNT(*) "+scheduleFrom+" "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf("SELECT %s %s %s ORDER BY schedules.weekday, schedules.starts_at LIMIT $%d OFFSET $%d",
		scheduleColumns, scheduleFrom, where, len(args)+1, len(args)+2)
	args = append(args, params.PerPage, params.Offset())

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	schedules, err := scanSchedules(rows)
	return schedules, total, err
}

// ListAll returns every visible schedule, for exports.
func (r *ScheduleRepository) ListAll(ctx context.Context, d rls.Decision) ([]Schedule, error) {
	clause, args := d.Clause(1)
	query := fmt.Sprintf("SELECT %s %s WHERE (%s) ORDER BY schedules.weekday, schedules.starts_at",
		scheduleColumns, scheduleFrom, clause)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSchedules(rows)
}

// Get fetches one visible schedule.
func (r *ScheduleRepository) Get(ctx context.Context, d rls.Decision, id int64) (Schedule, error) {
	clause, args := d.Clause(1)
	query := fmt.Sprintf("SELECT %s %s WHERE (%s) AND schedules.id = $%d",
		scheduleColumns, scheduleFrom, clause, len(args)+1)
	args = append(args, id)

	s, err := scanSchedule(r.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return Schedule{}, httpx.ErrNotFound
	}
	return s, err
}

// Create inserts a schedule.
func (r *ScheduleRepository) Create(ctx context.Context, s Schedule) (Schedule, error) {
	created, err := scanSchedule(r.pool.QueryRow(ctx, fmt.Sprintf(`
		INSERT INTO schedules (course_id, class_id, professor_id, weekday, starts_at, ends_at, room)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING %s`, scheduleColumns),
		s.CourseID, s.ClassID, s.ProfessorID, s.Weekday, s.StartsAt, s.EndsAt, s.Room))
	if db.IsForeignKeyViolation(err) {
		return Schedule{}, httpx.NewFieldError("course", "course, class, or professor does not exist")
	}
	return created, err
}

// Update rewrites a visible schedule.
func (r *ScheduleRepository) Update(ctx context.Context, d rls.Decision, s Schedule) (Schedule, error) {
	clause, args := d.Clause(8)
	query := fmt.Sprintf(`
		UPDATE schedules SET course_id = $1, class_id = $2, professor_id = $3, weekday = $4,
			starts_at = $5, ends_at = $6, room = $7, updated_at = NOW()
		FROM courses c
		WHERE c.id = schedules.course_id AND schedules.id = $%d AND (%s)
		RETURNING %s`, len(args)+8, clause, scheduleColumns)
	callArgs := append([]any{s.CourseID, s.ClassID, s.ProfessorID, s.Weekday, s.StartsAt, s.EndsAt, s.Room}, args...)
	callArgs = append(callArgs, s.ID)

	updated, err := scanSchedule(r.pool.QueryRow(ctx, query, callArgs...))
	if errors.Is(err, pgx.ErrNoRows) {
		return Schedule{}, httpx.ErrNotFound
	}
	if db.IsForeignKeyViolation(err) {
		return Schedule{}, httpx.NewFieldError("course", "course, class, or professor does not exist")
	}
	return updated, err
}

// Delete removes one visible schedule.
func (r *ScheduleRepository) Delete(ctx context.Context, d rls.Decision, id int64) error {
	clause, args := d.Clause(1)
	query := fmt.Sprintf(
		"DELETE FROM schedules USING courses c WHERE c.id = schedules.course_id AND (%s) AND schedules.id = $%d",
		clause, len(args)+1)
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

// DeleteAll removes every visible schedule in one transaction.
func (r *ScheduleRepository) DeleteAll(ctx context.Context, d rls.Decision) (int64, error) {
	clause, args := d.Clause(1)
	var deleted int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			"DELETE FROM schedules USING courses c WHERE c.id = schedules.course_id AND ("+clause+")", args...)
		if err != nil {
			return err
		}
		deleted = tag.RowsAffected()
		return nil
	})
	return deleted, err
}

func scanSchedule(row rowScanner) (Schedule, error) {
	var s Schedule
	err := row.Scan(&s.ID, &s.CourseID, &s.ClassID, &s.ProfessorID, &s.Weekday,
		&s.StartsAt, &s.EndsAt, &s.Room, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

func scanSchedules(rows pgx.Rows) ([]Schedule, error) {
	var schedules []Schedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, s)
	}
	return schedules, rows.Err()
}
