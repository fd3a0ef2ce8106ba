package scores

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atlas-ums/atlas-ums/internal/academic"
	"github.com/atlas-ums/atlas-ums/internal/crud"
	"github.com/atlas-ums/atlas-ums/internal/platform/httpx"
	"github.com/atlas-ums/atlas-ums/internal/rbac"
	"github.com/atlas-ums/atlas-ums/internal/rls"
	"github.com/atlas-ums/atlas-ums/internal/shared"
)

// RegisterScope declares the score model. Affiliation scoping reaches the
// owning course through the schedule join; the owner predicate matches the
// graded student and the teaching professor.
func RegisterScope(reg *rls.Registry) rls.Scope {
	return reg.MustRegister(rls.Scope{
		Model:         "scores.score",
		Table:         "scores",
		FacultyColumn: "c.faculty_id",
		ProgramColumn: "c.program_id",
		Owner:         scoreOwner,
	})
}

func scoreOwner(userID int64, next int) (string, []any) {
	clause := fmt.Sprintf("(scores.student_id = $%d OR s.professor_id = $%d)", next, next)
	return clause, []any{userID}
}

// ScoreForm carries the mutable fields of a single score.
type ScoreForm struct {
	ScheduleID int64   `json:"schedule_id" validate:"required,gt=0"`
	StudentID  int64   `json:"student_id" validate:"required,gt=0"`
	Component  string  `json:"component" validate:"required,max=64"`
	Value      float64 `json:"value" validate:"gte=0,lte=100"`
}

// Module bundles the score resource and the bulk submission endpoint.
type Module struct {
	Scores  *crud.Resource[Score, ScoreForm]
	service *Service
	logger  *slog.Logger
	gate    rbac.Middleware
}

// NewModule registers the scope and assembles the module.
func NewModule(logger *slog.Logger, pool *pgxpool.Pool, reg *rls.Registry, scheduleScope rls.Scope, schedules ScheduleSource, idempotency *shared.IdempotencyStore, gate rbac.Middleware) *Module {
	scope := RegisterScope(reg)
	repo := NewRepository(pool)

	return &Module{
		Scores: crud.NewResource(crud.Config[Score, ScoreForm]{
			Logger:        logger,
			Scope:         scope,
			Perms:         rbac.PermsFor("scores", "score"),
			Path:          "scores",
			CollectionKey: "scores",
			Repo:          repo,
			Bind:          bindScore,
			Gate:          gate,
		}),
		service: NewService(logger, repo, schedules, scheduleScope, idempotency),
		logger:  logger,
		gate:    gate,
	}
}

func bindScore(ctx context.Context, d rls.Decision, form ScoreForm, existing *Score) (Score, error) {
	s := Score{
		ScheduleID: form.ScheduleID,
		StudentID:  form.StudentID,
		Component:  form.Component,
		Value:      form.Value,
		GradedBy:   rls.PrincipalFromContext(ctx).UserID,
	}
	if existing != nil {
		s.ID = existing.ID
	}
	return s, nil
}

// Routes mounts the score endpoints.
func (m *Module) Routes(r chi.Router) {
	m.Scores.Routes(r)

	perms := rbac.PermsFor("scores", "score")
	r.With(m.gate.RequireAny(perms.Add, perms.Change)).Post("/scores/bulk", m.SubmitBatch)
}

// SubmitBatch handles POST /scores/bulk.
func (m *Module) SubmitBatch(w http.ResponseWriter, r *http.Request) {
	var form BatchForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := httpx.ValidateStruct(form); err != nil {
		httpx.RespondError(w, err)
		return
	}

	applied, err := m.service.SubmitBatch(r.Context(), r.Header.Get("Idempotency-Key"), form)
	if err != nil {
		if errors.Is(err, shared.ErrIdempotencyConflict) {
			httpx.Problem(w, http.StatusConflict, "Conflict", "this submission was already processed")
			return
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"applied": applied})
}

var _ ScheduleSource = (*academic.ScheduleRepository)(nil)
