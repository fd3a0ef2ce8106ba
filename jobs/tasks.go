package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskAffiliationScan verifies faculty/program affiliation consistency.
	TaskAffiliationScan = "integrity:affiliation_scan"
	// TaskScoreSummaryRefresh rebuilds the score summary materialized views.
	TaskScoreSummaryRefresh = "scores:summary_refresh"
	// TaskSessionPrune removes expired session audit rows.
	TaskSessionPrune = "sessions:prune"
)

// AffiliationScanPayload narrows the scan to specific models. An empty list
// scans everything.
type AffiliationScanPayload struct {
	Models []string `json:"models"`
}

// NewAffiliationScanTask constructs an Asynq task for the integrity scan.
func NewAffiliationScanTask(payload AffiliationScanPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAffiliationScan, body, asynq.Queue(QueueDefault)), nil
}

// ScoreSummaryRefreshPayload configures the summary refresh run.
type ScoreSummaryRefreshPayload struct {
	Concurrently bool `json:"concurrently"`
}

// NewScoreSummaryRefreshTask constructs an Asynq task for the view refresh.
func NewScoreSummaryRefreshTask(payload ScoreSummaryRefreshPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskScoreSummaryRefresh, body, asynq.Queue(QueueDefault)), nil
}

// NewSessionPruneTask constructs an Asynq task for session pruning.
func NewSessionPruneTask() (*asynq.Task, error) {
	return asynq.NewTask(TaskSessionPrune, nil, asynq.Queue(QueueDefault)), nil
}
