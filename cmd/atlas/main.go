package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/atlas-ums/atlas-ums/internal/academic"
	"github.com/atlas-ums/atlas-ums/internal/activities"
	"github.com/atlas-ums/atlas-ums/internal/app"
	"github.com/atlas-ums/atlas-ums/internal/auth"
	"github.com/atlas-ums/atlas-ums/internal/organization"
	"github.com/atlas-ums/atlas-ums/internal/orgcontext"
	"github.com/atlas-ums/atlas-ums/internal/rbac"
	"github.com/atlas-ums/atlas-ums/internal/rls"
	"github.com/atlas-ums/atlas-ums/internal/scores"
	"github.com/atlas-ums/atlas-ums/internal/shared"
	"github.com/atlas-ums/atlas-ums/internal/users"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	dbpool, err := pgxpool.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "atlas_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)

	rbacRepo := rbac.NewRepository(dbpool)
	rbacService := rbac.NewService(rbacRepo)
	if err := rbacService.SeedCatalog(ctx); err != nil {
		logger.Error("seed permission catalog", slog.Any("error", err))
		os.Exit(1)
	}
	rbacMiddleware := rbac.Middleware{Logger: logger}

	orgRepo := organization.NewRepository(dbpool)
	orgService := organization.NewService(orgRepo)

	usersRepo := users.NewRepository(dbpool)
	usersService := users.NewService(usersRepo, orgService, rbacService)

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(usersRepo, authRepo)
	principal := auth.NewMiddleware(logger, usersRepo, rbacService)

	orgctxService := orgcontext.NewService(orgRepo, logger)

	registry := rls.NewRegistry()
	academicModule := academic.NewModule(logger, dbpool, registry, orgService, rbacMiddleware)
	activitiesModule := activities.NewModule(logger, dbpool, registry, orgService, rbacMiddleware)

	scheduleScope, ok := registry.Scope("academic.schedule")
	if !ok {
		logger.Error("schedule scope not registered")
		os.Exit(1)
	}
	scoresModule := scores.NewModule(logger, dbpool, registry, scheduleScope,
		academic.NewScheduleRepository(dbpool), idempotencyStore, rbacMiddleware)

	router := app.NewRouter(app.RouterParams{
		Logger:              logger,
		Config:              cfg,
		SessionManager:      sessionManager,
		CSRFManager:         csrfManager,
		Principal:           principal,
		AuthHandler:         auth.NewHandler(logger, authService, sessionManager, csrfManager),
		OrgContextHandler:   orgcontext.NewHandler(logger, orgctxService),
		OrganizationHandler: organization.NewHandler(logger, orgService, rbacMiddleware),
		UsersHandler:        users.NewHandler(logger, usersService, rbacMiddleware),
		RBACHandler:         rbac.NewHandler(logger, rbacService, rbacMiddleware),
		Academic:            academicModule,
		Activities:          activitiesModule,
		Scores:              scoresModule,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
}
