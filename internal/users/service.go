package users

import (
	"context"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/atlas-ums/atlas-ums/internal/platform/httpx"
	"github.com/atlas-ums/atlas-ums/internal/rbac"
	"github.com/atlas-ums/atlas-ums/internal/rls"
	"github.com/atlas-ums/atlas-ums/internal/shared"
)

// Store is the persistence surface the service needs.
type Store interface {
	List(ctx context.Context, clause string, clauseArgs []any, params shared.ListParams) ([]User, int, error)
	ListAll(ctx context.Context, clause string, clauseArgs []any) ([]User, error)
	Get(ctx context.Context, id int64, clause string, clauseArgs []any) (User, error)
	Create(ctx context.Context, u User) (User, error)
	Update(ctx context.Context, u User) (User, error)
	Delete(ctx context.Context, id int64, clause string, clauseArgs []any) error
	DeleteAll(ctx context.Context, clause string, clauseArgs []any) (int64, error)
}

// Affiliations validates a pending faculties/programs assignment.
type Affiliations interface {
	CheckUserAffiliations(ctx context.Context, facultyIDs, programIDs []int64) error
}

// GroupDirectory exposes group membership; actors without superuser status may
// only hand out groups they belong to themselves.
type GroupDirectory interface {
	UserGroups(ctx context.Context, userID int64) ([]rbac.Group, error)
}

// Input carries the mutable fields of a user account.
type Input struct {
	Username    string  `json:"username" validate:"required,max=150"`
	Email       string  `json:"email" validate:"required,email"`
	FirstName   string  `json:"first_name" validate:"max=150"`
	LastName    string  `json:"last_name" validate:"max=150"`
	Password    string  `json:"password" validate:"omitempty,min=8"`
	IsActive    bool    `json:"is_active"`
	IsSuperuser bool    `json:"is_superuser"`
	GroupIDs    []int64 `json:"group_ids"`
	FacultyIDs  []int64 `json:"faculty_ids"`
	ProgramIDs  []int64 `json:"program_ids"`
}

// Service implements account management under row-level visibility.
type Service struct {
	store        Store
	affiliations Affiliations
	groups       GroupDirectory
}

// NewService constructs a Service.
func NewService(store Store, affiliations Affiliations, groups GroupDirectory) *Service {
	return &Service{store: store, affiliations: affiliations, groups: groups}
}

// List returns the users the calling principal may see.
func (s *Service) List(ctx context.Context, params shared.ListParams) ([]User, shared.Pagination, error) {
	p := rls.PrincipalFromContext(ctx)
	org := rls.OrgContextFromContext(ctx)
	clause, args := VisibilityClause(p, org, 1)

	users, total, err := s.store.List(ctx, clause, args, params)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return users, shared.NewPagination(params.Page, params.PerPage, total), nil
}

// ListAll returns the full visible set without pagination, for export.
func (s *Service) ListAll(ctx context.Context) ([]User, error) {
	p := rls.PrincipalFromContext(ctx)
	org := rls.OrgContextFromContext(ctx)
	clause, args := VisibilityClause(p, org, 1)
	return s.store.ListAll(ctx, clause, args)
}

// Get fetches one visible user.
func (s *Service) Get(ctx context.Context, id int64) (User, error) {
	p := rls.PrincipalFromContext(ctx)
	org := rls.OrgContextFromContext(ctx)
	clause, args := VisibilityClause(p, org, 1)
	return s.store.Get(ctx, id, clause, args)
}

// Create validates and inserts a new account.
func (s *Service) Create(ctx context.Context, in Input) (User, error) {
	if strings.TrimSpace(in.Password) == "" {
		return User{}, httpx.NewFieldError("password", "password is required")
	}
	u, err := s.prepare(ctx, User{}, in)
	if err != nil {
		return User{}, err
	}
	return s.store.Create(ctx, u)
}

// Update validates and rewrites an existing account. The target must be
// visible to the caller; an empty password keeps the current one.
func (s *Service) Update(ctx context.Context, id int64, in Input) (User, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return User{}, err
	}
	u, err := s.prepare(ctx, existing, in)
	if err != nil {
		return User{}, err
	}
	return s.store.Update(ctx, u)
}

// Delete removes one visible account.
func (s *Service) Delete(ctx context.Context, id int64) error {
	p := rls.PrincipalFromContext(ctx)
	org := rls.OrgContextFromContext(ctx)
	clause, args := VisibilityClause(p, org, 1)
	return s.store.Delete(ctx, id, clause, args)
}

// DeleteAll removes every account the caller may see, in one transaction.
func (s *Service) DeleteAll(ctx context.Context) (int64, error) {
	p := rls.PrincipalFromContext(ctx)
	org := rls.OrgContextFromContext(ctx)
	clause, args := VisibilityClause(p, org, 1)
	return s.store.DeleteAll(ctx, clause, args)
}

func (s *Service) prepare(ctx context.Context, base User, in Input) (User, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" {
		return User{}, httpx.NewFieldError("username", "username is required")
	}

	if err := s.affiliations.CheckUserAffiliations(ctx, in.FacultyIDs, in.ProgramIDs); err != nil {
		return User{}, err
	}
	if err := s.checkAssignableGroups(ctx, in.GroupIDs); err != nil {
		return User{}, err
	}

	actor := rls.PrincipalFromContext(ctx)
	if in.IsSuperuser && !actor.Superuser {
		return User{}, httpx.NewFieldError("is_superuser", "only superusers may grant superuser status")
	}

	base.Username = username
	base.Email = strings.TrimSpace(in.Email)
	base.FirstName = strings.TrimSpace(in.FirstName)
	base.LastName = strings.TrimSpace(in.LastName)
	base.IsActive = in.IsActive
	base.IsSuperuser = in.IsSuperuser
	base.GroupIDs = in.GroupIDs
	base.FacultyIDs = in.FacultyIDs
	base.ProgramIDs = in.ProgramIDs

	if in.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
		if err != nil {
			return User{}, err
		}
		base.PasswordHash = string(hash)
	} else {
		base.PasswordHash = ""
		if base.ID == 0 {
			return User{}, httpx.NewFieldError("password", "password is required")
		}
	}
	return base, nil
}

func (s *Service) checkAssignableGroups(ctx context.Context, groupIDs []int64) error {
	if len(groupIDs) == 0 {
		return nil
	}
	actor := rls.PrincipalFromContext(ctx)
	if actor.Superuser || actor.HasPerm(rls.PermAccessGlobal) {
		return nil
	}
	own, err := s.groups.UserGroups(ctx, actor.UserID)
	if err != nil {
		return err
	}
	allowed := make(map[int64]struct{}, len(own))
	for _, g := range own {
		allowed[g.ID] = struct{}{}
	}
	for _, id := range groupIDs {
		if _, ok := allowed[id]; !ok {
			return httpx.NewFieldError("groups", "you may only assign groups you belong to")
		}
	}
	return nil
}
