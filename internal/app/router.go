package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/atlas-ums/atlas-ums/internal/academic"
	"github.com/atlas-ums/atlas-ums/internal/activities"
	"github.com/atlas-ums/atlas-ums/internal/auth"
	"github.com/atlas-ums/atlas-ums/internal/organization"
	"github.com/atlas-ums/atlas-ums/internal/orgcontext"
	"github.com/atlas-ums/atlas-ums/internal/rbac"
	"github.com/atlas-ums/atlas-ums/internal/scores"
	"github.com/atlas-ums/atlas-ums/internal/shared"
	"github.com/atlas-ums/atlas-ums/internal/users"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Principal      *auth.Middleware

	AuthHandler         *auth.Handler
	OrgContextHandler   *orgcontext.Handler
	OrganizationHandler *organization.Handler
	UsersHandler        *users.Handler
	RBACHandler         *rbac.Handler
	Academic            *academic.Module
	Activities          *activities.Module
	Scores              *scores.Module
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Principal:      params.Principal.ResolvePrincipal,
		CSRFExempt:     []string{"/auth/login"},
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/auth", params.AuthHandler.Routes)
	params.OrgContextHandler.Routes(r)
	params.OrganizationHandler.Routes(r)
	params.UsersHandler.Routes(r)
	params.RBACHandler.Routes(r)
	params.Academic.Routes(r)
	params.Activities.Routes(r)
	params.Scores.Routes(r)

	return r
}
