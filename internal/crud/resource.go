package crud

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/atlas-ums/atlas-ums/internal/export"
	"github.com/atlas-ums/atlas-ums/internal/platform/httpx"
	"github.com/atlas-ums/atlas-ums/internal/rbac"
	"github.com/atlas-ums/atlas-ums/internal/rls"
	"github.com/atlas-ums/atlas-ums/internal/shared"
)

// Config assembles a Resource.
type Config[T Entity, F any] struct {
	Logger *slog.Logger
	// Scope is the model's registered RLS scope.
	Scope rls.Scope
	// Perms are the four model permissions gating the surface.
	Perms rbac.ModelPerms
	// Path is the route base, e.g. "courses".
	Path string
	// CollectionKey is the json key wrapping listings, e.g. "courses".
	CollectionKey string
	Repo          Repository[T]
	Bind          Binder[T, F]
	Gate          rbac.Middleware
}

// Resource is the generic HTTP surface for one RLS-scoped model.
type Resource[T Entity, F any] struct {
	cfg Config[T, F]
}

// NewResource constructs a Resource.
func NewResource[T Entity, F any](cfg Config[T, F]) *Resource[T, F] {
	return &Resource[T, F]{cfg: cfg}
}

// Routes mounts the resource endpoints. Reads answer for everyone; a caller
// without any model permission gets an empty collection, not a refusal.
// Mutations are hard gated.
func (rs *Resource[T, F]) Routes(r chi.Router) {
	r.Route("/"+rs.cfg.Path, func(r chi.Router) {
		r.Get("/", rs.List)
		r.Get("/export.csv", rs.Export)
		r.Get("/{id}", rs.Get)
		r.With(rs.cfg.Gate.Require(rs.cfg.Perms.Add)).Post("/", rs.Create)
		r.With(rs.cfg.Gate.Require(rs.cfg.Perms.Change)).Put("/{id}", rs.Update)
		r.With(rs.cfg.Gate.Require(rs.cfg.Perms.Delete)).Delete("/{id}", rs.Delete)
		r.With(rs.cfg.Gate.Require(rs.cfg.Perms.Delete)).Delete("/", rs.DeleteAll)
	})
}

func (rs *Resource[T, F]) decision(r *http.Request) rls.Decision {
	p := rls.PrincipalFromContext(r.Context())
	org := rls.OrgContextFromContext(r.Context())
	return rls.Resolve(p, rs.cfg.Scope, org)
}

func (rs *Resource[T, F]) mayRead(r *http.Request) bool {
	p := rls.PrincipalFromContext(r.Context())
	return p.HasPerm(rs.cfg.Perms.View) || p.HasPerm(rs.cfg.Perms.Change) || p.HasPerm(rs.cfg.Perms.Delete)
}

// List handles GET /{path}.
func (rs *Resource[T, F]) List(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("format") == "csv" {
		rs.Export(w, r)
		return
	}
	p := rls.PrincipalFromContext(r.Context())
	if !rs.mayRead(r) {
		httpx.JSON(w, http.StatusOK, map[string]any{
			rs.cfg.CollectionKey: []T{},
			"pagination":         shared.NewPagination(1, 0, 0),
		})
		return
	}

	params := listParams(r)
	items, total, err := rs.cfg.Repo.List(r.Context(), rs.decision(r), params)
	if err != nil {
		rs.cfg.Logger.Error("list "+rs.cfg.Path, slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if items == nil {
		items = []T{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		rs.cfg.CollectionKey: items,
		"pagination":         shared.NewPagination(params.Page, params.PerPage, total),
		"can": map[string]bool{
			"add":    p.HasPerm(rs.cfg.Perms.Add),
			"change": p.HasPerm(rs.cfg.Perms.Change),
			"delete": p.HasPerm(rs.cfg.Perms.Delete),
		},
	})
}

// Export handles GET /{path}/export.csv through the same visibility decision
// as List.
func (rs *Resource[T, F]) Export(w http.ResponseWriter, r *http.Request) {
	if !rs.mayRead(r) {
		if err := export.CSV(w, rs.cfg.Path+".csv", []T{}); err != nil {
			rs.cfg.Logger.Error("export "+rs.cfg.Path, slog.Any("error", err))
		}
		return
	}
	items, err := rs.cfg.Repo.ListAll(r.Context(), rs.decision(r))
	if err != nil {
		rs.cfg.Logger.Error("export "+rs.cfg.Path, slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if err := export.CSV(w, rs.cfg.Path+".csv", items); err != nil {
		rs.cfg.Logger.Error("export "+rs.cfg.Path, slog.Any("error", err))
	}
}

// Get handles GET /{path}/{id}. Rows outside the caller's visibility read as
// absent.
func (rs *Resource[T, F]) Get(w http.ResponseWriter, r *http.Request) {
	if !rs.mayRead(r) {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	item, err := rs.cfg.Repo.Get(r.Context(), rs.decision(r), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

// Create handles POST /{path}.
func (rs *Resource[T, F]) Create(w http.ResponseWriter, r *http.Request) {
	form, ok := rs.decodeForm(w, r)
	if !ok {
		return
	}
	entity, err := rs.cfg.Bind(r.Context(), rs.decision(r), form, nil)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	created, err := rs.cfg.Repo.Create(r.Context(), entity)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

// Update handles PUT /{path}/{id}.
func (rs *Resource[T, F]) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	d := rs.decision(r)
	existing, err := rs.cfg.Repo.Get(r.Context(), d, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	form, ok := rs.decodeForm(w, r)
	if !ok {
		return
	}
	entity, err := rs.cfg.Bind(r.Context(), d, form, &existing)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	updated, err := rs.cfg.Repo.Update(r.Context(), d, entity)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

// Delete handles DELETE /{path}/{id}.
func (rs *Resource[T, F]) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := rs.cfg.Repo.Delete(r.Context(), rs.decision(r), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteAll handles DELETE /{path}: removes every row the caller may see in
// one transaction and reports the count.
func (rs *Resource[T, F]) DeleteAll(w http.ResponseWriter, r *http.Request) {
	deleted, err := rs.cfg.Repo.DeleteAll(r.Context(), rs.decision(r))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": deleted})
}

func (rs *Resource[T, F]) decodeForm(w http.ResponseWriter, r *http.Request) (F, bool) {
	var form F
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return form, false
	}
	if err := httpx.ValidateStruct(form); err != nil {
		httpx.RespondError(w, err)
		return form, false
	}
	return form, true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid id")
		return 0, false
	}
	return id, true
}

func listParams(r *http.Request) shared.ListParams {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 || perPage > 100 {
		perPage = 20
	}
	return shared.ListParams{Page: page, PerPage: perPage, Search: q.Get("search")}
}
