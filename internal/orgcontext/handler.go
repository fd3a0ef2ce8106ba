package orgcontext

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/atlas-ums/atlas-ums/internal/platform/httpx"
	"github.com/atlas-ums/atlas-ums/internal/rls"
	"github.com/atlas-ums/atlas-ums/internal/shared"
)

// Handler exposes the context-switch endpoints. Both are POST-only: success
// redirects back to the referring page, authorization failures surface as a
// structured 403 since these are asynchronous session operations.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// Routes mounts the context endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/context", h.Show)
	r.Post("/context/faculty", h.SelectFaculty)
	r.Post("/context/program", h.SelectProgram)
}

// Show reports the current selection and the faculties/programs the user may
// switch to.
func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	p := rls.PrincipalFromContext(r.Context())
	if !p.IsAuthenticated() {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}

	faculties, programs, err := h.service.Options(r.Context(), p)
	if err != nil {
		h.logger.Error("context options", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	org := rls.OrgContextFromContext(r.Context())
	httpx.JSON(w, http.StatusOK, map[string]any{
		"selected_faculty": org.FacultyID,
		"selected_program": org.ProgramID,
		"faculties":        faculties,
		"programs":         programs,
	})
}

// SelectFaculty handles POST /context/faculty.
func (h *Handler) SelectFaculty(w http.ResponseWriter, r *http.Request) {
	h.selectWith(w, r, "faculty_id", h.service.SelectFaculty)
}

// SelectProgram handles POST /context/program.
func (h *Handler) SelectProgram(w http.ResponseWriter, r *http.Request) {
	h.selectWith(w, r, "program_id", h.service.SelectProgram)
}

func (h *Handler) selectWith(w http.ResponseWriter, r *http.Request, field string, apply func(ctx context.Context, p rls.Principal, sess *shared.Session, rawID string) error) {
	p := rls.PrincipalFromContext(r.Context())
	if !p.IsAuthenticated() {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}

	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}

	if err := r.ParseForm(); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed form body")
		return
	}

	if err := apply(r.Context(), p, sess, r.PostFormValue(field)); err != nil {
		httpx.RespondError(w, err)
		return
	}

	redirectBack(w, r)
}

func redirectBack(w http.ResponseWriter, r *http.Request) {
	target := r.Referer()
	if target == "" {
		target = "/"
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
