package activities

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atlas-ums/atlas-ums/internal/platform/db"
	"github.com/atlas-ums/atlas-ums/internal/platform/httpx"
	"github.com/atlas-ums/atlas-ums/internal/rls"
	"github.com/atlas-ums/atlas-ums/internal/shared"
)

const activityColumns = `activities.id, activities.template_id, activities.title,
	activities.author_id, activities.faculty_id, activities.responses,
	activities.created_at, activities.updated_at`

// ActivityRepository provides predicate-filtered persistence for activities.
type ActivityRepository struct {
	pool *pgxpool.Pool
}

// NewActivityRepository constructs an ActivityRepository.
func NewActivityRepository(pool *pgxpool.Pool) *ActivityRepository {
	return &ActivityRepository{pool: pool}
}

// List returns visible activities with search and pagination.
func (r *ActivityRepository) List(ctx context.Context, d rls.Decision, params shared.ListParams) ([]Activity, int, error) {
	clause, args := d.Clause(1)
	where := "WHERE (" + clause + ")"
	if params.Search != "" {
		where += fmt.Sprintf(" AND activities.title ILIKE $%d", len(args)+1)
		args = append(args, "%"+params.Search+"%")
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM activities "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf("SELECT %s FROM activities %s ORDER BY activities.created_at DESC LIMIT $%d OFFSET $%d",
		activityColumns, where, len(args)+1, len(args)+2)
	args = append(args, params.PerPage, params.Offset())

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	activities, err := scanActivities(rows)
	return activities, total, err
}

// ListAll returns every visible activity, for exports.
func (r *ActivityRepository) ListAll(ctx context.Context, d rls.Decision) ([]Activity, error) {
	clause, args := d.Clause(1)
	rows, err := r.pool.Query(ctx,
		fmt.Sprintf("SELECT %s FROM activities WHERE (%s) ORDER BY activities.created_at DESC",
			activityColumns, clause), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanActivities(rows)
}

// Get fetches one visible activity.
func (r *ActivityRepository) Get(ctx context.Context, d rls.Decision, id int64) (Activity, error) {
	clause, args := d.Clause(1)
	query := fmt.Sprintf("SELECT %s FROM activities WHERE (%s) AND activities.id = $%d",
		activityColumns, clause, len(args)+1)
	args = append(args, id)

	a, err := scanActivity(r.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return Activity{}, httpx.ErrNotFound
	}
	return a, err
}

// Create inserts an activity.
func (r *ActivityRepository) Create(ctx context.Context, a Activity) (Activity, error) {
	responses, err := json.Marshal(a.Responses)
	if err != nil {
		return Activity{}, err
	}
	created, err := scanActivity(r.pool.QueryRow(ctx, fmt.Sprintf(`
		INSERT INTO activities (template_id, title, author_id, faculty_id, responses)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING %s`, activityColumns),
		a.TemplateID, a.Title, a.AuthorID, a.FacultyID, responses))
	if db.IsForeignKeyViolation(err) {
		return Activity{}, httpx.NewFieldError("template", "template or faculty does not exist")
	}
	return created, err
}

// Update rewrites a visible activity.
func (r *ActivityRepository) Update(ctx context.Context, d rls.Decision, a Activity) (Activity, error) {
	responses, err := json.Marshal(a.Responses)
	if err != nil {
		return Activity{}, err
	}
	clause, args := d.Clause(5)
	query := fmt.Sprintf(`
		UPDATE activities SET template_id = $1, title = $2, faculty_id = $3, responses = $4,
			updated_at = NOW()
		WHERE id = $%d AND (%s)
		RETURNING %s`, len(args)+5, clause, activityColumns)
	callArgs := append([]any{a.TemplateID, a.Title, a.FacultyID, responses}, args...)
	callArgs = append(callArgs, a.ID)

	updated, err := scanActivity(r.pool.QueryRow(ctx, query, callArgs...))
	if errors.Is(err, pgx.ErrNoRows) {
		return Activity{}, httpx.ErrNotFound
	}
	if db.IsForeignKeyViolation(err) {
		return Activity{}, httpx.NewFieldError("template", "template or faculty does not exist")
	}
	return updated, err
}

// Delete removes one visible activity.
func (r *ActivityRepository) Delete(ctx context.Context, d rls.Decision, id int64) error {
	clause, args := d.Clause(1)
	query := fmt.Sprintf("DELETE FROM activities WHERE (%s) AND id = $%d", clause, len(args)+1)
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

// DeleteAll removes every visible activity in one transaction.
func (r *ActivityRepository) DeleteAll(ctx context.Context, d rls.Decision) (int64, error) {
	clause, args := d.Clause(1)
	var deleted int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, "DELETE FROM activities WHERE ("+clause+")", args...)
		if err != nil {
			return err
		}
		deleted = tag.RowsAffected()
		return nil
	})
	return deleted, err
}

func scanActivity(row rowScanner) (Activity, error) {
	var (
		a         Activity
		responses []byte
	)
	err := row.Scan(&a.ID, &a.TemplateID, &a.Title, &a.AuthorID, &a.FacultyID, &responses,
		&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return Activity{}, err
	}
	if len(responses) > 0 {
		if err := json.Unmarshal(responses, &a.Responses); err != nil {
			return Activity{}, err
		}
	}
	return a, nil
}

func scanActivities(rows pgx.Rows) ([]Activity, error) {
	var activities []Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		activities = append(activities, a)
	}
	return activities, rows.Err()
}
