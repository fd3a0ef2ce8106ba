package academic

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atlas-ums/atlas-ums/internal/crud"
	"github.com/atlas-ums/atlas-ums/internal/rbac"
	"github.com/atlas-ums/atlas-ums/internal/rls"
)

// Module bundles the three academic resources.
type Module struct {
	Courses   *crud.Resource[Course, CourseForm]
	Classes   *crud.Resource[Class, ClassForm]
	Schedules *crud.Resource[Schedule, ScheduleForm]
}

// NewModule registers the academic scopes and assembles the resources.
func NewModule(logger *slog.Logger, pool *pgxpool.Pool, reg *rls.Registry, affiliations AffiliationChecker, gate rbac.Middleware) *Module {
	scopes := RegisterScopes(reg)

	return &Module{
		Courses: crud.NewResource(crud.Config[Course, CourseForm]{
			Logger:        logger,
			Scope:         scopes.Course,
			Perms:         rbac.PermsFor("academic", "course"),
			Path:          "courses",
			CollectionKey: "courses",
			Repo:          NewCourseRepository(pool),
			Bind:          bindCourse(affiliations),
			Gate:          gate,
		}),
		Classes: crud.NewResource(crud.Config[Class, ClassForm]{
			Logger:        logger,
			Scope:         scopes.Class,
			Perms:         rbac.PermsFor("academic", "class"),
			Path:          "classes",
			CollectionKey: "classes",
			Repo:          NewClassRepository(pool),
			Bind:          bindClass(affiliations),
			Gate:          gate,
		}),
		Schedules: crud.NewResource(crud.Config[Schedule, ScheduleForm]{
			Logger:        logger,
			Scope:         scopes.Schedule,
			Perms:         rbac.PermsFor("academic", "schedule"),
			Path:          "schedules",
			CollectionKey: "schedules",
			Repo:          NewScheduleRepository(pool),
			Bind:          bindSchedule(),
			Gate:          gate,
		}),
	}
}

// Routes mounts all academic resources.
func (m *Module) Routes(r chi.Router) {
	m.Courses.Routes(r)
	m.Classes.Routes(r)
	m.Schedules.Routes(r)
}
