package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
)

type stubSessions struct {
	pruned int64
	err    error
	calls  int
}

func (s *stubSessions) DeleteExpired(ctx context.Context) (int64, error) {
	s.calls++
	return s.pruned, s.err
}

func TestSessionPruneJobHandle(t *testing.T) {
	store := &stubSessions{pruned: 3}
	job := NewSessionPruneJob(store, nil)

	task, err := NewSessionPruneTask()
	require.NoError(t, err)

	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, 1, store.calls)
}

func TestSessionPruneJobPropagatesError(t *testing.T) {
	store := &stubSessions{err: errors.New("connection reset")}
	job := NewSessionPruneJob(store, nil)

	task, err := NewSessionPruneTask()
	require.NoError(t, err)

	require.Error(t, job.Handle(context.Background(), task))
}

func TestAffiliationScanRequiresPool(t *testing.T) {
	job := &AffiliationScanJob{}
	err := job.Handle(context.Background(), asynq.NewTask(TaskAffiliationScan, nil))
	require.Error(t, err)
}
