package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"
)

// SessionStore is the pruning surface of the session audit repository.
type SessionStore interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// SessionPruneJob removes session audit rows past their expiry. Redis owns
// the live sessions and expires them itself; the Postgres audit copy needs
// an explicit sweep.
type SessionPruneJob struct {
	Sessions SessionStore
	Logger   *slog.Logger
}

// NewSessionPruneJob wires dependencies for the prune handler.
func NewSessionPruneJob(sessions SessionStore, logger *slog.Logger) *SessionPruneJob {
	return &SessionPruneJob{Sessions: sessions, Logger: logger}
}

// Handle processes session prune tasks.
func (j *SessionPruneJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Sessions == nil {
		return errors.New("session prune: handler not configured")
	}
	pruned, err := j.Sessions.DeleteExpired(ctx)
	if err != nil {
		j.logger().Error("prune sessions", slog.Any("error", err))
		return err
	}
	j.logger().Info("pruned expired sessions", slog.Int64("sessions", pruned))
	return nil
}

func (j *SessionPruneJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskSessionPrune))
	}
	return slog.Default().With(slog.String("job", TaskSessionPrune))
}
