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

const templateColumns = `activity_templates.id, activity_templates.name,
	activity_templates.description, activity_templates.faculty_id, activity_templates.fields,
	activity_templates.created_at, activity_templates.updated_at`

// TemplateRepository provides predicate-filtered persistence for activity
// templates. The field schema rides in a jsonb column.
type TemplateRepository struct {
	pool *pgxpool.Pool
}

// NewTemplateRepository constructs a TemplateRepository.
func NewTemplateRepository(pool *pgxpool.Pool) *TemplateRepository {
	return &TemplateRepository{pool: pool}
}

// List returns visible templates with search and pagination.
func (r *TemplateRepository) List(ctx context.Context, d rls.Decision, params shared.ListParams) ([]ActivityTemplate, int, error) {
	clause, args := d.Clause(1)
	where := "WHERE (" + clause + ")"
	if params.Search != "" {
		where += fmt.Sprintf(" AND activity_templates.name ILIKE $%d", len(args)+1)
		args = append(args, "%"+params.Search+"%")
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM activity_templates "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf("SELECT %s FROM activity_templates %s ORDER BY activity_templates.name LIMIT $%d OFFSET $%d",
		templateColumns, where, len(args)+1, len(args)+2)
	args = append(args, params.PerPage, params.Offset())

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	templates, err := scanTemplates(rows)
	return templates, total, err
}

// ListAll returns every visible template, for exports.
func (r *TemplateRepository) ListAll(ctx context.Context, d rls.Decision) ([]ActivityTemplate, error) {
	clause, args := d.Clause(1)
	rows, err := r.pool.Query(ctx,
		fmt.Sprintf("SELECT %s FROM activity_templates WHERE (%s) ORDER BY activity_templates.name",
			templateColumns, clause), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTemplates(rows)
}

// Get fetches one visible template.
func (r *TemplateRepository) Get(ctx context.Context, d rls.Decision, id int64) (ActivityTemplate, error) {
	clause, args := d.Clause(1)
	query := fmt.Sprintf("SELECT %s FROM activity_templates WHERE (%s) AND activity_templates.id = $%d",
		templateColumns, clause, len(args)+1)
	args = append(args, id)

	t, err := scanTemplate(r.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return ActivityTemplate{}, httpx.ErrNotFound
	}
	return t, err
}

// Create inserts a template.
func (r *TemplateRepository) Create(ctx context.Context, t ActivityTemplate) (ActivityTemplate, error) {
	fields, err := json.Marshal(t.Fields)
	if err != nil {
		return ActivityTemplate{}, err
	}
	created, err := scanTemplate(r.pool.QueryRow(ctx, fmt.Sprintf(`
		INSERT INTO activity_templates (name, description, faculty_id, fields)
		VALUES ($1, $2, $3, $4)
		RETURNING %s`, templateColumns),
		t.Name, t.Description, t.FacultyID, fields))
	if db.IsUniqueViolation(err) {
		return ActivityTemplate{}, httpx.ErrDuplicate
	}
	if db.IsForeignKeyViolation(err) {
		return ActivityTemplate{}, httpx.NewFieldError("faculty", "faculty does not exist")
	}
	return created, err
}

// Update rewrites a visible template.
func (r *TemplateRepository) Update(ctx context.Context, d rls.Decision, t ActivityTemplate) (ActivityTemplate, error) {
	fields, err := json.Marshal(t.Fields)
	if err != nil {
		return ActivityTemplate{}, err
	}
	clause, args := d.Clause(5)
	query := fmt.Sprintf(`
		UPDATE activity_templates SET name = $1, description = $2, faculty_id = $3, fields = $4,
			updated_at = NOW()
		WHERE id = $%d AND (%s)
		RETURNING %s`, len(args)+5, clause, templateColumns)
	callArgs := append([]any{t.Name, t.Description, t.FacultyID, fields}, args...)
	callArgs = append(callArgs, t.ID)

	updated, err := scanTemplate(r.pool.QueryRow(ctx, query, callArgs...))
	if errors.Is(err, pgx.ErrNoRows) {
		return ActivityTemplate{}, httpx.ErrNotFound
	}
	if db.IsUniqueViolation(err) {
		return ActivityTemplate{}, httpx.ErrDuplicate
	}
	return updated, err
}

// Delete removes one visible template; protected while activities use it.
func (r *TemplateRepository) Delete(ctx context.Context, d rls.Decision, id int64) error {
	clause, args := d.Clause(1)
	query := fmt.Sprintf("DELETE FROM activity_templates WHERE (%s) AND id = $%d", clause, len(args)+1)
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

// DeleteAll removes every visible template in one transaction.
func (r *TemplateRepository) DeleteAll(ctx context.Context, d rls.Decision) (int64, error) {
	clause, args := d.Clause(1)
	var deleted int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, "DELETE FROM activity_templates WHERE ("+clause+")", args...)
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

func scanTemplate(row rowScanner) (ActivityTemplate, error) {
	var (
		t      ActivityTemplate
		fields []byte
	)
	err := row.Scan(&t.ID, &t.Name, &t.Description, &t.FacultyID, &fields, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return ActivityTemplate{}, err
	}
	if len(fields) > 0 {
		if err := json.Unmarshal(fields, &t.Fields); err != nil {
			return ActivityTemplate{}, err
		}
	}
	return t, nil
}

func scanTemplates(rows pgx.Rows) ([]ActivityTemplate, error) {
	var templates []ActivityTemplate
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}
