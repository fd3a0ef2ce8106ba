package scores

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/atlas-ums/atlas-ums/internal/academic"
	"github.com/atlas-ums/atlas-ums/internal/platform/httpx"
	"github.com/atlas-ums/atlas-ums/internal/rls"
)

// BatchStore is the persistence surface bulk submission needs.
type BatchStore interface {
	UpsertBatch(ctx context.Context, scores []Score) error
}

// ScheduleSource resolves the schedule a batch grades against, under the
// caller's schedule visibility.
type ScheduleSource interface {
	Get(ctx context.Context, d rls.Decision, id int64) (academic.Schedule, error)
}

// IdempotencyChecker guards retried submissions. Delete releases a key whose
// batch failed to apply, so a corrected retry is not refused.
type IdempotencyChecker interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// BatchEntry is one student's result within a bulk submission.
type BatchEntry struct {
	StudentID int64   `json:"student_id" validate:"required,gt=0"`
	Value     float64 `json:"value" validate:"gte=0,lte=100"`
}

// BatchForm is a bulk score submission: one component of one schedule, graded
// for many students at once.
type BatchForm struct {
	ScheduleID int64        `json:"schedule_id" validate:"required,gt=0"`
	Component  string       `json:"component" validate:"required,max=64"`
	Entries    []BatchEntry `json:"entries" validate:"required,min=1,dive"`
}

// Service implements bulk score submission.
type Service struct {
	logger        *slog.Logger
	store         BatchStore
	schedules     ScheduleSource
	scheduleScope rls.Scope
	idempotency   IdempotencyChecker
}

// NewService constructs a Service.
func NewService(logger *slog.Logger, store BatchStore, schedules ScheduleSource, scheduleScope rls.Scope, idempotency IdempotencyChecker) *Service {
	return &Service{
		logger:        logger,
		store:         store,
		schedules:     schedules,
		scheduleScope: scheduleScope,
		idempotency:   idempotency,
	}
}

// SubmitBatch validates and applies a bulk submission in one transaction.
// The schedule must be visible to the caller; a repeated Idempotency-Key is
// rejected instead of applied twice.
func (s *Service) SubmitBatch(ctx context.Context, idempotencyKey string, form BatchForm) (int, error) {
	p := rls.PrincipalFromContext(ctx)
	org := rls.OrgContextFromContext(ctx)

	d := rls.Resolve(p, s.scheduleScope, org)
	if _, err := s.schedules.Get(ctx, d, form.ScheduleID); err != nil {
		if errors.Is(err, httpx.ErrNotFound) {
			return 0, fmt.Errorf("%w: schedule not visible", httpx.ErrNotFound)
		}
		return 0, err
	}

	seen := make(map[int64]struct{}, len(form.Entries))
	for _, e := range form.Entries {
		if _, dup := seen[e.StudentID]; dup {
			return 0, httpx.NewFieldError("entries", fmt.Sprintf("student %d listed twice", e.StudentID))
		}
		seen[e.StudentID] = struct{}{}
	}

	if idempotencyKey != "" && s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, idempotencyKey, "scores"); err != nil {
			return 0, err
		}
	}

	batch := make([]Score, 0, len(form.Entries))
	for _, e := range form.Entries {
		batch = append(batch, Score{
			ScheduleID: form.ScheduleID,
			StudentID:  e.StudentID,
			Component:  form.Component,
			Value:      e.Value,
			GradedBy:   p.UserID,
		})
	}
	if err := s.store.UpsertBatch(ctx, batch); err != nil {
		// Nothing was applied; release the key so the caller can retry.
		if idempotencyKey != "" && s.idempotency != nil {
			if delErr := s.idempotency.Delete(ctx, idempotencyKey); delErr != nil {
				s.logger.Error("release idempotency key",
					slog.String("key", idempotencyKey), slog.Any("error", delErr))
			}
		}
		return 0, err
	}

	s.logger.Info("scores submitted",
		slog.Int64("schedule_id", form.ScheduleID),
		slog.String("component", form.Component),
		slog.Int("count", len(batch)),
		slog.Int64("graded_by", p.UserID))
	return len(batch), nil
}
