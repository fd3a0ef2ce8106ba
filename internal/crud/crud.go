// Package crud provides the generic management surface shared by every
// RLS-scoped model: predicate-filtered listing and export, point lookups,
// permission-gated mutations, and bulk deletion, all funnelled through one
// visibility decision per request.
package crud

import (
	"context"

	"github.com/atlas-ums/atlas-ums/internal/rls"
	"github.com/atlas-ums/atlas-ums/internal/shared"
)

// Entity is a persisted row with a numeric identity.
type Entity interface {
	EntityID() int64
}

// Repository is the persistence surface a model plugs into the generic
// resource. Every read and destructive operation receives the resolved
// visibility decision and must apply its predicate.
type Repository[T Entity] interface {
	List(ctx context.Context, d rls.Decision, params shared.ListParams) ([]T, int, error)
	ListAll(ctx context.Context, d rls.Decision) ([]T, error)
	Get(ctx context.Context, d rls.Decision, id int64) (T, error)
	Create(ctx context.Context, entity T) (T, error)
	Update(ctx context.Context, d rls.Decision, entity T) (T, error)
	Delete(ctx context.Context, d rls.Decision, id int64) error
	DeleteAll(ctx context.Context, d rls.Decision) (int64, error)
}

// Binder turns a validated form into an entity ready to persist. existing is
// nil on create. Binders enforce domain invariants (affiliation consistency)
// and stamp the session's organizational selection via InjectOrg.
type Binder[T Entity, F any] func(ctx context.Context, d rls.Decision, form F, existing *T) (T, error)

// InjectOrg stamps the session's organizational selection onto an entity's
// affiliation. Affiliation never comes from the request body: whatever the
// caller submits, the entity lands in the currently selected faculty and
// program, or unaffiliated when nothing is selected. This holds for every
// tier, superusers included.
func InjectOrg(org rls.OrgContext, facultyID, programID **int64) {
	*facultyID = cloneID(org.FacultyID)
	*programID = cloneID(org.ProgramID)
}

func cloneID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
