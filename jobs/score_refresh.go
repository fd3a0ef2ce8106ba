package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Materialized views feeding the score summary endpoints. The per-schedule
// view aggregates averages per component; the per-student view rolls grades
// up across a student's schedules.
var scoreSummaryViews = []string{
	"mv_schedule_score_summary",
	"mv_student_score_summary",
}

// ScoreSummaryRefreshJob rebuilds the score summary materialized views after
// grading activity has settled.
type ScoreSummaryRefreshJob struct {
	Pool   *pgxpool.Pool
	Logger *slog.Logger
}

// NewScoreSummaryRefreshJob wires dependencies for the refresh handler.
func NewScoreSummaryRefreshJob(pool *pgxpool.Pool, logger *slog.Logger) *ScoreSummaryRefreshJob {
	return &ScoreSummaryRefreshJob{Pool: pool, Logger: logger}
}

// Handle processes score summary refresh tasks.
func (j *ScoreSummaryRefreshJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("score summary refresh: handler not configured")
	}
	if j.Pool == nil {
		return errors.New("score summary refresh: pool not configured")
	}
	var payload ScoreSummaryRefreshPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}

	logger := j.logger()
	started := time.Now()
	for _, view := range scoreSummaryViews {
		stmt := "REFRESH MATERIALIZED VIEW " + view
		if payload.Concurrently {
			stmt = "REFRESH MATERIALIZED VIEW CONCURRENTLY " + view
		}
		if _, err := j.Pool.Exec(ctx, stmt); err != nil {
			logger.Error("refresh view", slog.String("view", view), slog.Any("error", err))
			return err
		}
	}
	logger.Info("refreshed score summary views",
		slog.Int("views", len(scoreSummaryViews)),
		slog.Duration("duration", time.Since(started)))
	return nil
}

func (j *ScoreSummaryRefreshJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskScoreSummaryRefresh))
	}
	return slog.Default().With(slog.String("job", TaskScoreSummaryRefresh))
}
