package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atlas-ums/atlas-ums/internal/shared"
)

// AffiliationScanJob sweeps affiliated rows for faculty/program mismatches.
// The invariant every write path enforces is that a row's program belongs to
// the row's faculty; direct database edits and imports can still break it,
// so the nightly scan records any offender in the audit log.
type AffiliationScanJob struct {
	Pool   *pgxpool.Pool
	Audit  *shared.AuditLogger
	Logger *slog.Logger
	clock  func() time.Time
}

// NewAffiliationScanJob wires dependencies for the scan handler.
func NewAffiliationScanJob(pool *pgxpool.Pool, audit *shared.AuditLogger, logger *slog.Logger) *AffiliationScanJob {
	return &AffiliationScanJob{
		Pool:   pool,
		Audit:  audit,
		Logger: logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

type affiliationScan struct {
	model string
	query string
}

// Each query returns (row id, declared faculty, faculty owning the program).
var affiliationScans = []affiliationScan{
	{
		model: "academic.course",
		query: `SELECT c.id, c.faculty_id, p.faculty_id
		        FROM courses c
		        JOIN programs p ON p.id = c.program_id
		        WHERE c.faculty_id IS NOT NULL AND c.faculty_id <> p.faculty_id`,
	},
	{
		model: "academic.class",
		query: `SELECT cl.id, cl.faculty_id, p.faculty_id
		        FROM classes cl
		        JOIN programs p ON p.id = cl.program_id
		        WHERE cl.faculty_id IS NOT NULL AND cl.faculty_id <> p.faculty_id`,
	},
	{
		model: "users.user",
		query: `SELECT DISTINCT up.user_id, p.faculty_id, p.faculty_id
		        FROM user_programs up
		        JOIN programs p ON p.id = up.program_id
		        WHERE NOT EXISTS (
		            SELECT 1 FROM user_faculties uf
		            WHERE uf.user_id = up.user_id AND uf.faculty_id = p.faculty_id
		        )`,
	},
}

// Handle processes affiliation scan tasks.
func (j *AffiliationScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("affiliation scan: handler not configured")
	}
	if j.Pool == nil {
		return errors.New("affiliation scan: pool not configured")
	}
	var payload AffiliationScanPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}

	wanted := make(map[string]struct{}, len(payload.Models))
	for _, m := range payload.Models {
		wanted[m] = struct{}{}
	}

	logger := j.logger()
	started := j.now()
	offenders := 0
	for _, scan := range affiliationScans {
		if len(wanted) > 0 {
			if _, ok := wanted[scan.model]; !ok {
				continue
			}
		}
		n, err := j.runScan(ctx, scan)
		if err != nil {
			logger.Error("affiliation scan failed", slog.String("model", scan.model), slog.Any("error", err))
			return err
		}
		offenders += n
	}

	logger.Info("completed affiliation scan",
		slog.Int("offenders", offenders),
		slog.Duration("duration", time.Since(started)))
	return nil
}

func (j *AffiliationScanJob) runScan(ctx context.Context, scan affiliationScan) (int, error) {
	rows, err := j.Pool.Query(ctx, scan.query)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	type offender struct {
		id             int64
		rowFaculty     int64
		programFaculty int64
	}
	found := make([]offender, 0)
	for rows.Next() {
		var o offender
		if err := rows.Scan(&o.id, &o.rowFaculty, &o.programFaculty); err != nil {
			return 0, err
		}
		found = append(found, o)
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}

	for _, o := range found {
		if j.Audit == nil {
			continue
		}
		err := j.Audit.Record(ctx, shared.AuditLog{
			Action:   "integrity.affiliation_mismatch",
			Entity:   scan.model,
			EntityID: fmt.Sprintf("%d", o.id),
			Meta: map[string]any{
				"faculty_id":         o.rowFaculty,
				"program_faculty_id": o.programFaculty,
			},
			At: j.now(),
		})
		if err != nil {
			return len(found), err
		}
	}
	return len(found), nil
}

func (j *AffiliationScanJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskAffiliationScan))
	}
	return slog.Default().With(slog.String("job", TaskAffiliationScan))
}

func (j *AffiliationScanJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
