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

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/keystone-admin/keystone/internal/app"
	"github.com/keystone-admin/keystone/internal/auth"
	"github.com/keystone-admin/keystone/internal/authz"
	"github.com/keystone-admin/keystone/internal/authz/gate"
	"github.com/keystone-admin/keystone/internal/departments"
	"github.com/keystone-admin/keystone/internal/jobtitles"
	"github.com/keystone-admin/keystone/internal/observability"
	"github.com/keystone-admin/keystone/internal/permits"
	"github.com/keystone-admin/keystone/internal/platform/cache"
	"github.com/keystone-admin/keystone/internal/platform/db"
	"github.com/keystone-admin/keystone/internal/revision"
	revisionhttp "github.com/keystone-admin/keystone/internal/revision/http"
	"github.com/keystone-admin/keystone/internal/roles"
	"github.com/keystone-admin/keystone/internal/shared"
	"github.com/keystone-admin/keystone/internal/users"
	"github.com/keystone-admin/keystone/jobs"
)

type exportEnqueuer struct {
	client *jobs.Client
}

func (e exportEnqueuer) Enqueue(ctx context.Context, entityType, entityID, requestedBy, locale string) error {
	_, err := e.client.EnqueueHistoryExport(ctx, jobs.HistoryExportPayload{
		EntityType:  entityType,
		EntityID:    entityID,
		RequestedBy: requestedBy,
		Locale:      locale,
	})
	return err
}

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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	// cache.New hands back a usable client even when the ping fails; sessions
	// and snapshots degrade per request until Redis returns.
	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable at startup", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "keystone_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	catalog := authz.NewCatalog()
	evaluator := authz.NewEvaluator(catalog)
	snapshots := authz.NewSnapshotStore(redisClient, cfg.SnapshotTTL)

	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(authRepo, snapshots)
	tokenIssuer := auth.NewTokenIssuer(cfg.TokenSecret, cfg.TokenTTL)
	authHandler := auth.NewHandler(logger, authService, sessionManager, csrfManager, tokenIssuer)

	metrics := observability.NewMetrics()

	recorder := revision.NewRecorder(pool).WithObserver(metrics.ObserveRevision)
	revisionRepo := revision.NewPGRepository(pool)
	reader := revision.NewReader(revisionRepo)

	exportClient := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := exportClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()

	departmentsService := departments.NewService(departments.NewRepository(pool), recorder, evaluator)
	departmentsHandler := departments.NewHandler(logger, departmentsService,
		revisionhttp.NewHandler(logger, reader, departments.EntityType))

	permitsService := permits.NewService(permits.NewRepository(pool), recorder, evaluator)
	permitsHandler := permits.NewHandler(logger, permitsService,
		revisionhttp.NewHandler(logger, reader, permits.EntityType))

	jobTitlesService := jobtitles.NewService(jobtitles.NewRepository(pool), recorder, evaluator)
	jobTitlesHandler := jobtitles.NewHandler(logger, jobTitlesService,
		revisionhttp.NewHandler(logger, reader, jobtitles.EntityType))

	usersService := users.NewService(users.NewRepository(pool), recorder, snapshots, catalog, evaluator)
	usersHandler := users.NewHandler(logger, usersService,
		revisionhttp.NewHandler(logger, reader, users.EntityType))

	rolesService := roles.NewService(roles.NewRepository(pool), recorder, snapshots, catalog, evaluator)
	rolesHandler := roles.NewHandler(logger, rolesService,
		revisionhttp.NewHandler(logger, reader, roles.EntityType))

	timelineHandler := revisionhttp.NewTimelineHandler(logger, reader, exportEnqueuer{client: exportClient})

	gateMiddleware := gate.Middleware{
		Gate:     gate.New(gate.DefaultTable(), evaluator),
		Actor:    shared.ActorFromContext,
		Logger:   logger,
		Observer: metrics.ObserveGateDecision,
	}

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		SessionManager:     sessionManager,
		CSRFManager:        csrfManager,
		Actors:             authService,
		Tokens:             tokenIssuer,
		AuthHandler:        authHandler,
		DepartmentsHandler: departmentsHandler,
		PermitsHandler:     permitsHandler,
		JobTitlesHandler:   jobTitlesHandler,
		UsersHandler:       usersHandler,
		RolesHandler:       rolesHandler,
		TimelineHandler:    timelineHandler,
		GateMiddleware:     gateMiddleware,
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("server listening", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server run", slog.Any("error", err))
		os.Exit(1)
	}
}
