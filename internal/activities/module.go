package activities

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atlas-ums/atlas-ums/internal/crud"
	"github.com/atlas-ums/atlas-ums/internal/platform/httpx"
	"github.com/atlas-ums/atlas-ums/internal/rbac"
	"github.com/atlas-ums/atlas-ums/internal/rls"
)

// AffiliationChecker validates a faculty assignment before a write commits.
type AffiliationChecker interface {
	CheckAffiliation(ctx context.Context, facultyID, programID *int64) error
}

// TemplateForm carries the mutable fields of a template. Affiliation is
// stamped from the session selection, never submitted.
type TemplateForm struct {
	Name        string          `json:"name" validate:"required,max=255"`
	Description string          `json:"description" validate:"max=2000"`
	Fields      []TemplateField `json:"fields" validate:"required,dive"`
}

// ActivityForm carries the mutable fields of an activity.
type ActivityForm struct {
	TemplateID int64          `json:"template_id" validate:"required,gt=0"`
	Title      string         `json:"title" validate:"required,max=255"`
	Responses  map[string]any `json:"responses"`
}

// Scopes holds the registered visibility scopes of the activities models.
type Scopes struct {
	Template rls.Scope
	Activity rls.Scope
}

// RegisterScopes declares the activities models. Activities fall back to an
// author owner predicate; templates are faculty-affiliated reference forms.
func RegisterScopes(reg *rls.Registry) Scopes {
	return Scopes{
		Template: reg.MustRegister(rls.Scope{
			Model:         "activities.activitytemplate",
			Table:         "activity_templates",
			FacultyColumn: "activity_templates.faculty_id",
		}),
		Activity: reg.MustRegister(rls.Scope{
			Model:         "activities.activity",
			Table:         "activities",
			FacultyColumn: "activities.faculty_id",
			Owner:         activityOwner,
		}),
	}
}

func activityOwner(userID int64, next int) (string, []any) {
	return fmt.Sprintf("activities.author_id = $%d", next), []any{userID}
}

// Module bundles the two activities resources.
type Module struct {
	Templates  *crud.Resource[ActivityTemplate, TemplateForm]
	Activities *crud.Resource[Activity, ActivityForm]
}

// NewModule registers the scopes and assembles the resources.
func NewModule(logger *slog.Logger, pool *pgxpool.Pool, reg *rls.Registry, affiliations AffiliationChecker, gate rbac.Middleware) *Module {
	scopes := RegisterScopes(reg)
	templates := NewTemplateRepository(pool)

	return &Module{
		Templates: crud.NewResource(crud.Config[ActivityTemplate, TemplateForm]{
			Logger:        logger,
			Scope:         scopes.Template,
			Perms:         rbac.PermsFor("activities", "activitytemplate"),
			Path:          "activity-templates",
			CollectionKey: "templates",
			Repo:          templates,
			Bind:          bindTemplate(affiliations),
			Gate:          gate,
		}),
		Activities: crud.NewResource(crud.Config[Activity, ActivityForm]{
			Logger:        logger,
			Scope:         scopes.Activity,
			Perms:         rbac.PermsFor("activities", "activity"),
			Path:          "activities",
			CollectionKey: "activities",
			Repo:          NewActivityRepository(pool),
			Bind:          bindActivity(templates, affiliations),
			Gate:          gate,
		}),
	}
}

// Routes mounts the activities resources.
func (m *Module) Routes(r chi.Router) {
	m.Templates.Routes(r)
	m.Activities.Routes(r)
}

func bindTemplate(affiliations AffiliationChecker) crud.Binder[ActivityTemplate, TemplateForm] {
	return func(ctx context.Context, d rls.Decision, form TemplateForm, existing *ActivityTemplate) (ActivityTemplate, error) {
		if err := ValidateFields(form.Fields); err != nil {
			return ActivityTemplate{}, err
		}
		t := ActivityTemplate{
			Name:        form.Name,
			Description: form.Description,
			Fields:      form.Fields,
		}
		if existing != nil {
			t.ID = existing.ID
		}
		var programID *int64
		crud.InjectOrg(rls.OrgContextFromContext(ctx), &t.FacultyID, &programID)
		if err := affiliations.CheckAffiliation(ctx, t.FacultyID, nil); err != nil {
			return ActivityTemplate{}, err
		}
		return t, nil
	}
}

// TemplateSource fetches the template an activity is filled against.
type TemplateSource interface {
	Get(ctx context.Context, d rls.Decision, id int64) (ActivityTemplate, error)
}

func bindActivity(templates TemplateSource, affiliations AffiliationChecker) crud.Binder[Activity, ActivityForm] {
	return func(ctx context.Context, d rls.Decision, form ActivityForm, existing *Activity) (Activity, error) {
		// The template lookup deliberately bypasses the caller's tier: filling
		// a template requires knowing its schema, not managing it.
		p := rls.PrincipalFromContext(ctx)
		template, err := templates.Get(ctx, rls.Decision{Tier: rls.TierAll, UserID: p.UserID}, form.TemplateID)
		if err != nil {
			if errors.Is(err, httpx.ErrNotFound) {
				return Activity{}, httpx.NewFieldError("template_id", "template does not exist")
			}
			return Activity{}, err
		}
		if err := ValidateResponses(template.Fields, form.Responses); err != nil {
			return Activity{}, err
		}

		a := Activity{
			TemplateID: form.TemplateID,
			Title:      form.Title,
			Responses:  form.Responses,
		}
		if existing != nil {
			a.ID = existing.ID
			a.AuthorID = existing.AuthorID
		} else {
			a.AuthorID = p.UserID
		}
		var programID *int64
		crud.InjectOrg(rls.OrgContextFromContext(ctx), &a.FacultyID, &programID)
		if err := affiliations.CheckAffiliation(ctx, a.FacultyID, nil); err != nil {
			return Activity{}, err
		}
		return a, nil
	}
}
