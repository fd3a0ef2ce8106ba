package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atlas-ums/atlas-ums/internal/app"
	"github.com/atlas-ums/atlas-ums/internal/auth"
	"github.com/atlas-ums/atlas-ums/internal/shared"
	"github.com/atlas-ums/atlas-ums/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := pgxpool.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	auditLogger := shared.NewAuditLogger(pool)
	authRepo := auth.NewRepository(pool)

	scanJob := jobs.NewAffiliationScanJob(pool, auditLogger, logger)
	refreshJob := jobs.NewScoreSummaryRefreshJob(pool, logger)
	pruneJob := jobs.NewSessionPruneJob(authRepo, logger)

	scanTask, err := jobs.NewAffiliationScanTask(jobs.AffiliationScanPayload{})
	if err != nil {
		logger.Error("build affiliation scan task", slog.Any("error", err))
		os.Exit(1)
	}
	refreshTask, err := jobs.NewScoreSummaryRefreshTask(jobs.ScoreSummaryRefreshPayload{Concurrently: true})
	if err != nil {
		logger.Error("build score refresh task", slog.Any("error", err))
		os.Exit(1)
	}
	pruneTask, err := jobs.NewSessionPruneTask()
	if err != nil {
		logger.Error("build session prune task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskAffiliationScan, Handler: scanJob.Handle},
			{Type: jobs.TaskScoreSummaryRefresh, Handler: refreshJob.Handle},
			{Type: jobs.TaskSessionPrune, Handler: pruneJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "15 1 * * *", Task: scanTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "45 1 * * *", Task: refreshTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "0 3 * * *", Task: pruneTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
