package rbac

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/atlas-ums/atlas-ums/internal/platform/httpx"
)

// Handler exposes group and permission administration.
type Handler struct {
	logger  *slog.Logger
	service *Service
	mw      Middleware
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, mw Middleware) *Handler {
	return &Handler{logger: logger, service: service, mw: mw}
}

// Routes mounts the administration endpoints.
func (h *Handler) Routes(r chi.Router) {
	perms := PermsFor("rbac", "group")
	r.Route("/groups", func(r chi.Router) {
		r.With(h.mw.Require(perms.View)).Get("/", h.ListGroups)
		r.With(h.mw.Require(perms.Add)).Post("/", h.CreateGroup)
		r.With(h.mw.Require(perms.View)).Get("/{id}/permissions", h.GroupPermissions)
		r.With(h.mw.Require(perms.Change)).Put("/{id}/permissions", h.SetGroupPermissions)
		r.With(h.mw.Require(perms.Delete)).Delete("/{id}", h.DeleteGroup)
	})
	r.With(h.mw.Require(perms.View)).Get("/permissions", h.ListPermissions)
}

// ListGroups handles GET /groups.
func (h *Handler) ListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.service.ListGroups(r.Context())
	if err != nil {
		h.logger.Error("list groups", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"groups": groups})
}

// CreateGroup handles POST /groups.
func (h *Handler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	var form struct {
		Name string `json:"name" validate:"required,max=150"`
	}
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := httpx.ValidateStruct(form); err != nil {
		httpx.RespondError(w, err)
		return
	}

	group, err := h.service.CreateGroup(r.Context(), form.Name)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, group)
}

// DeleteGroup handles DELETE /groups/{id}.
func (h *Handler) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid group id")
		return
	}
	if err := h.service.DeleteGroup(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GroupPermissions handles GET /groups/{id}/permissions.
func (h *Handler) GroupPermissions(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid group id")
		return
	}
	perms, err := h.service.GroupPermissions(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"permissions": perms})
}

// SetGroupPermissions handles PUT /groups/{id}/permissions.
func (h *Handler) SetGroupPermissions(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid group id")
		return
	}
	var form struct {
		PermissionIDs []int64 `json:"permission_ids"`
	}
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.service.SetGroupPermissions(r.Context(), id, form.PermissionIDs); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListPermissions handles GET /permissions.
func (h *Handler) ListPermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := h.service.ListPermissions(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"permissions": perms})
}
