package users

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

// Handler exposes account management endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	mw      rbac.Middleware
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, mw rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, mw: mw}
}

// Routes mounts the user endpoints. Listing answers 200 for everyone and
// simply comes back empty for callers without a model permission; mutations
// are hard gated.
func (h *Handler) Routes(r chi.Router) {
	perms := rbac.PermsFor("users", "user")

	r.Route("/users", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/{id}", h.Get)
		r.With(h.mw.Require(perms.Add)).Post("/", h.Create)
		r.With(h.mw.Require(perms.Change)).Put("/{id}", h.Update)
		r.With(h.mw.Require(perms.Delete)).Delete("/{id}", h.Delete)
		r.With(h.mw.Require(perms.Delete)).Delete("/", h.DeleteAll)
	})
}

// List handles GET /users. With format=csv it streams the full visible set.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("format") == "csv" {
		h.exportCSV(w, r)
		return
	}
	p := rls.PrincipalFromContext(r.Context())
	perms := rbac.PermsFor("users", "user")
	if !p.HasPerm(perms.View) && !p.HasPerm(perms.Change) && !p.HasPerm(perms.Delete) {
		httpx.JSON(w, http.StatusOK, map[string]any{
			"users":      []User{},
			"pagination": shared.NewPagination(1, 0, 0),
		})
		return
	}

	params := listParams(r)
	users, pagination, err := h.service.List(r.Context(), params)
	if err != nil {
		h.logger.Error("list users", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if users == nil {
		users = []User{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"users":      users,
		"pagination": pagination,
		"can": map[string]bool{
			"add":    p.HasPerm(perms.Add),
			"change": p.HasPerm(perms.Change),
			"delete": p.HasPerm(perms.Delete),
		},
	})
}

func (h *Handler) exportCSV(w http.ResponseWriter, r *http.Request) {
	p := rls.PrincipalFromContext(r.Context())
	perms := rbac.PermsFor("users", "user")
	if !p.HasPerm(perms.View) && !p.HasPerm(perms.Change) && !p.HasPerm(perms.Delete) {
		if err := export.CSV(w, "users.csv", []User{}); err != nil {
			h.logger.Error("export users", slog.Any("error", err))
		}
		return
	}
	users, err := h.service.ListAll(r.Context())
	if err != nil {
		h.logger.Error("export users", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if err := export.CSV(w, "users.csv", users); err != nil {
		h.logger.Error("export users", slog.Any("error", err))
	}
}

// Get handles GET /users/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	p := rls.PrincipalFromContext(r.Context())
	perms := rbac.PermsFor("users", "user")
	if !p.HasPerm(perms.View) && !p.HasPerm(perms.Change) && !p.HasPerm(perms.Delete) {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid user id")
		return
	}
	user, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

// Create handles POST /users.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := httpx.ValidateStruct(in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	user, err := h.service.Create(r.Context(), in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, user)
}

// Update handles PUT /users/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid user id")
		return
	}
	var in Input
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := httpx.ValidateStruct(in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	user, err := h.service.Update(r.Context(), id, in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

// Delete handles DELETE /users/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid user id")
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteAll handles DELETE /users: bulk removal of every visible account.
func (h *Handler) DeleteAll(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.service.DeleteAll(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": deleted})
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
