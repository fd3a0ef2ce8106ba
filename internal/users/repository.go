package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atlas-ums/atlas-ums/internal/platform/db"
	"github.com/atlas-ums/atlas-ums/internal/platform/httpx"
	"github.com/atlas-ums/atlas-ums/internal/shared"
)

const userColumns = `id, username, email, first_name, last_name, password_hash,
	is_active, is_superuser, created_at, updated_at`

// Repository provides PostgreSQL backed persistence for user accounts and
// their group/faculty/program assignments.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// List returns the users visible through the given predicate, with search and
// pagination applied on top.
func (r *Repository) List(ctx context.Context, clause string, clauseArgs []any, params shared.ListParams) ([]User, int, error) {
	where := "WHERE (" + clause + ")"
	args := append([]any{}, clauseArgs...)
	if params.Search != "" {
		where += fmt.Sprintf(
			" AND (username ILIKE $%d OR email ILIKE $%d OR first_name ILIKE $%d OR last_name ILIKE $%d)",
			len(args)+1, len(args)+1, len(args)+1, len(args)+1)
		args = append(args, "%"+params.Search+"%")
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM users "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf("SELECT %s FROM users %s ORDER BY username LIMIT $%d OFFSET $%d",
		userColumns, where, len(args)+1, len(args)+2)
	args = append(args, params.PerPage, params.Offset())

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	users, err := scanUsers(rows)
	if err != nil {
		return nil, 0, err
	}
	if err := r.loadAssignments(ctx, users); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// ListAll returns every user visible through the given predicate, for export.
func (r *Repository) ListAll(ctx context.Context, clause string, clauseArgs []any) ([]User, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE (%s) ORDER BY username", userColumns, clause)
	rows, err := r.pool.Query(ctx, query, clauseArgs...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users, err := scanUsers(rows)
	if err != nil {
		return nil, err
	}
	if err := r.loadAssignments(ctx, users); err != nil {
		return nil, err
	}
	return users, nil
}

// Get fetches one user through the visibility predicate. A row that exists
// but falls outside the predicate reads as not found.
func (r *Repository) Get(ctx context.Context, id int64, clause string, clauseArgs []any) (User, error) {
	args := append([]any{}, clauseArgs...)
	query := fmt.Sprintf("SELECT %s FROM users WHERE (%s) AND id = $%d", userColumns, clause, len(args)+1)
	args = append(args, id)

	u, err := scanUser(r.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, httpx.ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	users := []User{u}
	if err := r.loadAssignments(ctx, users); err != nil {
		return User{}, err
	}
	return users[0], nil
}

// GetByUsername fetches one active user by username for authentication.
func (r *Repository) GetByUsername(ctx context.Context, username string) (User, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE username = $1 AND is_active", userColumns)
	u, err := scanUser(r.pool.QueryRow(ctx, query, username))
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, httpx.ErrNotFound
	}
	return u, err
}

// GetByID fetches one user without a visibility predicate. Session principal
// loading uses this path.
func (r *Repository) GetByID(ctx context.Context, id int64) (User, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE id = $1", userColumns)
	u, err := scanUser(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, httpx.ErrNotFound
	}
	return u, err
}

// Create inserts a user and its assignments in one transaction.
func (r *Repository) Create(ctx context.Context, u User) (User, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, fmt.Sprintf(`
			INSERT INTO users (username, email, first_name, last_name, password_hash, is_active, is_superuser)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING %s`, userColumns),
			u.Username, u.Email, u.FirstName, u.LastName, u.PasswordHash, u.IsActive, u.IsSuperuser)
		created, err := scanUser(row)
		if err != nil {
			return err
		}
		created.GroupIDs = u.GroupIDs
		created.FacultyIDs = u.FacultyIDs
		created.ProgramIDs = u.ProgramIDs
		if err := setAssignments(ctx, tx, created); err != nil {
			return err
		}
		u = created
		return nil
	})
	if db.IsUniqueViolation(err) {
		return User{}, httpx.ErrDuplicate
	}
	if err != nil {
		return User{}, err
	}
	return u, nil
}

// Update rewrites a user row and replaces its assignments in one transaction.
// An empty PasswordHash keeps the stored one.
func (r *Repository) Update(ctx context.Context, u User) (User, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, fmt.Sprintf(`
			UPDATE users SET username = $1, email = $2, first_name = $3, last_name = $4,
				password_hash = COALESCE(NULLIF($5, ''), password_hash),
				is_active = $6, is_superuser = $7, updated_at = NOW()
			WHERE id = $8
			RETURNING %s`, userColumns),
			u.Username, u.Email, u.FirstName, u.LastName, u.PasswordHash, u.IsActive, u.IsSuperuser, u.ID)
		updated, err := scanUser(row)
		if errors.Is(err, pgx.ErrNoRows) {
			return httpx.ErrNotFound
		}
		if err != nil {
			return err
		}
		updated.GroupIDs = u.GroupIDs
		updated.FacultyIDs = u.FacultyIDs
		updated.ProgramIDs = u.ProgramIDs
		if err := setAssignments(ctx, tx, updated); err != nil {
			return err
		}
		u = updated
		return nil
	})
	if db.IsUniqueViolation(err) {
		return User{}, httpx.ErrDuplicate
	}
	if err != nil {
		return User{}, err
	}
	return u, nil
}

// Delete removes one user visible through the predicate.
func (r *Repository) Delete(ctx context.Context, id int64, clause string, clauseArgs []any) error {
	args := append([]any{}, clauseArgs...)
	query := fmt.Sprintf("DELETE FROM users WHERE (%s) AND id = $%d", clause, len(args)+1)
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

// DeleteAll removes every user visible through the predicate in one
// transaction and reports how many rows went away.
func (r *Repository) DeleteAll(ctx context.Context, clause string, clauseArgs []any) (int64, error) {
	var deleted int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, "DELETE FROM users WHERE ("+clause+")", clauseArgs...)
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

// AffiliationIDs returns the user's assigned faculty and program ids.
func (r *Repository) AffiliationIDs(ctx context.Context, userID int64) (facultyIDs, programIDs []int64, err error) {
	rows, err := r.pool.Query(ctx,
		`SELECT faculty_id FROM user_faculties WHERE user_id = $1 ORDER BY faculty_id`, userID)
	if err != nil {
		return nil, nil, err
	}
	facultyIDs, err = scanIDs(rows)
	if err != nil {
		return nil, nil, err
	}

	rows, err = r.pool.Query(ctx,
		`SELECT program_id FROM user_programs WHERE user_id = $1 ORDER BY program_id`, userID)
	if err != nil {
		return nil, nil, err
	}
	programIDs, err = scanIDs(rows)
	return facultyIDs, programIDs, err
}

func setAssignments(ctx context.Context, tx pgx.Tx, u User) error {
	type link struct {
		table, column string
		ids           []int64
	}
	links := []link{
		{"user_groups", "group_id", u.GroupIDs},
		{"user_faculties", "faculty_id", u.FacultyIDs},
		{"user_programs", "program_id", u.ProgramIDs},
	}
	for _, l := range links {
		if _, err := tx.Exec(ctx,
			fmt.Sprintf("DELETE FROM %s WHERE user_id = $1", l.table), u.ID); err != nil {
			return err
		}
		for _, id := range l.ids {
			if _, err := tx.Exec(ctx,
				fmt.Sprintf("INSERT INTO %s (user_id, %s) VALUES ($1, $2)", l.table, l.column),
				u.ID, id); err != nil {
				if db.IsForeignKeyViolation(err) {
					return httpx.NewFieldError(l.column, fmt.Sprintf("%s %d does not exist", l.column, id))
				}
				return err
			}
		}
	}
	return nil
}

func (r *Repository) loadAssignments(ctx context.Context, users []User) error {
	if len(users) == 0 {
		return nil
	}
	index := make(map[int64]*User, len(users))
	ids := make([]int64, 0, len(users))
	for i := range users {
		index[users[i].ID] = &users[i]
		ids = append(ids, users[i].ID)
	}

	type link struct {
		query  string
		assign func(u *User, id int64)
	}
	links := []link{
		{`SELECT user_id, group_id FROM user_groups WHERE user_id = ANY($1) ORDER BY group_id`,
			func(u *User, id int64) { u.GroupIDs = append(u.GroupIDs, id) }},
		{`SELECT user_id, faculty_id FROM user_faculties WHERE user_id = ANY($1) ORDER BY faculty_id`,
			func(u *User, id int64) { u.FacultyIDs = append(u.FacultyIDs, id) }},
		{`SELECT user_id, program_id FROM user_programs WHERE user_id = ANY($1) ORDER BY program_id`,
			func(u *User, id int64) { u.ProgramIDs = append(u.ProgramIDs, id) }},
	}
	for _, l := range links {
		rows, err := r.pool.Query(ctx, l.query, ids)
		if err != nil {
			return err
		}
		for rows.Next() {
			var userID, linkedID int64
			if err := rows.Scan(&userID, &linkedID); err != nil {
				rows.Close()
				return err
			}
			if u, ok := index[userID]; ok {
				l.assign(u, linkedID)
			}
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.FirstName, &u.LastName, &u.PasswordHash,
		&u.IsActive, &u.IsSuperuser, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func scanUsers(rows pgx.Rows) ([]User, error) {
	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func scanIDs(rows pgx.Rows) ([]int64, error) {
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
