package rbac

import (
	"context"
	"fmt"
	"strings"

	"github.com/atlas-ums/atlas-ums/internal/platform/httpx"
)

// Service orchestrates group and permission-catalog operations.
type Service struct {
	repo *Repository
}

// NewService constructs a Service.
func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// ListGroups returns all groups ordered by name.
func (s *Service) ListGroups(ctx context.Context) ([]Group, error) {
	return s.repo.ListGroups(ctx)
}

// GetGroup fetches a group by id.
func (s *Service) GetGroup(ctx context.Context, id int64) (Group, error) {
	if id <= 0 {
		return Group{}, httpx.ErrNotFound
	}
	return s.repo.GetGroup(ctx, id)
}

// CreateGroup inserts a new group.
func (s *Service) CreateGroup(ctx context.Context, name string) (Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Group{}, httpx.NewFieldError("name", "group name is required")
	}
	return s.repo.CreateGroup(ctx, name)
}

// DeleteGroup removes a group.
func (s *Service) DeleteGroup(ctx context.Context, id int64) error {
	return s.repo.DeleteGroup(ctx, id)
}

// ListPermissions returns the persisted catalog.
func (s *Service) ListPermissions(ctx context.Context) ([]Permission, error) {
	return s.repo.ListPermissions(ctx)
}

// SetGroupPermissions replaces the permission set of a group.
func (s *Service) SetGroupPermissions(ctx context.Context, groupID int64, permissionIDs []int64) error {
	if _, err := s.repo.GetGroup(ctx, groupID); err != nil {
		return err
	}
	return s.repo.SetGroupPermissions(ctx, groupID, permissionIDs)
}

// GroupPermissions lists the permissions of a group.
func (s *Service) GroupPermissions(ctx context.Context, groupID int64) ([]Permission, error) {
	return s.repo.GroupPermissions(ctx, groupID)
}

// AssignGroup links a user to a group.
func (s *Service) AssignGroup(ctx context.Context, userID, groupID int64) error {
	return s.repo.AssignGroup(ctx, userID, groupID)
}

// RemoveGroup unlinks a user from a group.
func (s *Service) RemoveGroup(ctx context.Context, userID, groupID int64) error {
	return s.repo.RemoveGroup(ctx, userID, groupID)
}

// UserGroups lists the groups a user belongs to.
func (s *Service) UserGroups(ctx context.Context, userID int64) ([]Group, error) {
	return s.repo.UserGroups(ctx, userID)
}

// EffectivePermissions returns all permission codes a user holds.
func (s *Service) EffectivePermissions(ctx context.Context, userID int64) ([]string, error) {
	return s.repo.UserEffectivePermissions(ctx, userID)
}

// SeedCatalog upserts every known permission into the catalog table so group
// editing always sees the full set.
func (s *Service) SeedCatalog(ctx context.Context) error {
	for _, perm := range Catalog() {
		if _, err := s.repo.EnsurePermission(ctx, perm.Code, perm.Name); err != nil {
			return fmt.Errorf("rbac: seed %s: %w", perm.Code, err)
		}
	}
	return nil
}
