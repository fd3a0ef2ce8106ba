package organization

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/atlas-ums/atlas-ums/internal/platform/httpx"
	"github.com/atlas-ums/atlas-ums/internal/rbac"
)

// Handler exposes faculty/program administration. Reference data is
// administrator-managed and not RLS-scoped; plain permission gates apply.
type Handler struct {
	logger  *slog.Logger
	service *Service
	mw      rbac.Middleware
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, mw rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, mw: mw}
}

// Routes mounts the organization endpoints.
func (h *Handler) Routes(r chi.Router) {
	facultyPerms := rbac.PermsFor("organization", "faculty")
	programPerms := rbac.PermsFor("organization", "program")

	r.Route("/faculties", func(r chi.Router) {
		r.With(h.mw.Require(facultyPerms.View)).Get("/", h.ListFaculties)
		r.With(h.mw.Require(facultyPerms.Add)).Post("/", h.CreateFaculty)
		r.With(h.mw.Require(facultyPerms.Change)).Put("/{id}", h.UpdateFaculty)
		r.With(h.mw.Require(facultyPerms.Delete)).Delete("/{id}", h.DeleteFaculty)
	})
	r.Route("/programs", func(r chi.Router) {
		r.With(h.mw.Require(programPerms.View)).Get("/", h.ListPrograms)
		r.With(h.mw.Require(programPerms.Add)).Post("/", h.CreateProgram)
		r.With(h.mw.Require(programPerms.Change)).Put("/{id}", h.UpdateProgram)
		r.With(h.mw.Require(programPerms.Delete)).Delete("/{id}", h.DeleteProgram)
	})
}

type facultyForm struct {
	Name string `json:"name" validate:"required,max=255"`
}

type programForm struct {
	Name      string `json:"name" validate:"required,max=255"`
	FacultyID int64  `json:"faculty_id" validate:"required,gt=0"`
}

// ListFaculties handles GET /faculties.
func (h *Handler) ListFaculties(w http.ResponseWriter, r *http.Request) {
	faculties, err := h.service.ListFaculties(r.Context())
	if err != nil {
		h.logger.Error("list faculties", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"faculties": faculties})
}

// CreateFaculty handles POST /faculties.
func (h *Handler) CreateFaculty(w http.ResponseWriter, r *http.Request) {
	var form facultyForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := httpx.ValidateStruct(form); err != nil {
		httpx.RespondError(w, err)
		return
	}
	faculty, err := h.service.CreateFaculty(r.Context(), form.Name)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, faculty)
}

// UpdateFaculty handles PUT /faculties/{id}.
func (h *Handler) UpdateFaculty(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid faculty id")
		return
	}
	var form facultyForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := httpx.ValidateStruct(form); err != nil {
		httpx.RespondError(w, err)
		return
	}
	faculty, err := h.service.UpdateFaculty(r.Context(), id, form.Name)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, faculty)
}

// DeleteFaculty handles DELETE /faculties/{id}.
func (h *Handler) DeleteFaculty(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid faculty id")
		return
	}
	if err := h.service.DeleteFaculty(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListPrograms handles GET /programs.
func (h *Handler) ListPrograms(w http.ResponseWriter, r *http.Request) {
	programs, err := h.service.ListPrograms(r.Context())
	if err != nil {
		h.logger.Error("list programs", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"programs": programs})
}

// CreateProgram handles POST /programs.
func (h *Handler) CreateProgram(w http.ResponseWriter, r *http.Request) {
	var form programForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := httpx.ValidateStruct(form); err != nil {
		httpx.RespondError(w, err)
		return
	}
	program, err := h.service.CreateProgram(r.Context(), form.Name, form.FacultyID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, program)
}

// UpdateProgram handles PUT /programs/{id}.
func (h *Handler) UpdateProgram(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid program id")
		return
	}
	var form programForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := httpx.ValidateStruct(form); err != nil {
		httpx.RespondError(w, err)
		return
	}
	program, err := h.service.UpdateProgram(r.Context(), id, form.Name, form.FacultyID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, program)
}

// DeleteProgram handles DELETE /programs/{id}.
func (h *Handler) DeleteProgram(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid program id")
		return
	}
	if err := h.service.DeleteProgram(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
