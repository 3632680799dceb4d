package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/billdesk/internal/config"
	"github.com/mamadbah2/billdesk/internal/events"
	"github.com/mamadbah2/billdesk/internal/repository/mongodb"
	"github.com/mamadbah2/billdesk/internal/repository/sheets"
	"github.com/mamadbah2/billdesk/internal/scheduler"
	"github.com/mamadbah2/billdesk/internal/server/handlers"
	"github.com/mamadbah2/billdesk/internal/server/router"
	draftingsvc "github.com/mamadbah2/billdesk/internal/service/drafting"
	reportingsvc "github.com/mamadbah2/billdesk/internal/service/reporting"
	workspacesvc "github.com/mamadbah2/billdesk/internal/service/workspace"
	"github.com/mamadbah2/billdesk/internal/session"
	"github.com/mamadbah2/billdesk/pkg/clients/billingapi"
	"github.com/mamadbah2/billdesk/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Server.LogLevel))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var mongoRepo *mongodb.MongoDBRepository
	if cfg.MongoDB.Enabled() {
		mongoRepo, err = mongodb.NewMongoDBRepository(ctx, cfg.MongoDB.URI, cfg.MongoDB.DBName)
		if err != nil {
			baseLogger.Fatal("failed to init mongodb repository", zap.Error(err))
		}
		defer func() {
			if err := mongoRepo.Close(context.Background()); err != nil {
				baseLogger.Error("failed to close mongodb connection", zap.Error(err))
			}
		}()
	}

	var storage session.Storage
	switch cfg.Session.Storage {
	case config.StorageMongo:
		if mongoRepo == nil {
			baseLogger.Fatal("session storage is mongo but MONGODB_URI is empty")
		}
		storage = mongoRepo
	default:
		storage = session.NewFileStorage(cfg.Session.FilePath)
	}

	apiClient := billingapi.NewClient(cfg.API)
	broker := events.NewStoreBroker()
	sessionMgr := session.NewManager(apiClient, storage, broker, baseLogger.Named("session"))
	apiClient.SetTokenSource(sessionMgr)

	snap := sessionMgr.Resume(ctx)
	baseLogger.Info("session restored",
		zap.String("state", string(snap.State)),
		zap.String("store_id", snap.StoreID()))

	workspace := workspacesvc.NewService(apiClient, sessionMgr, baseLogger.Named("svc.workspace"))
	defer workspace.Close()
	drafting := draftingsvc.NewService(apiClient, sessionMgr, workspace, baseLogger.Named("svc.drafting"))

	var sheet reportingsvc.RowWriter
	if cfg.Sheets.Enabled() {
		exporter, err := sheets.NewDashboardExporter(ctx, cfg.Sheets, baseLogger.Named("repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init sheets exporter", zap.Error(err))
		}
		sheet = exporter
	} else {
		baseLogger.Warn("google sheets credentials missing, dashboard export to sheets disabled")
	}
	var snapshots reportingsvc.SnapshotStore
	if mongoRepo != nil {
		snapshots = mongoRepo
	}
	reporting := reportingsvc.NewService(apiClient, sessionMgr, sheet, snapshots, baseLogger.Named("svc.reporting"))

	sched, err := scheduler.NewScheduler(cfg.Reporting, reporting, sessionMgr, baseLogger.Named("scheduler"))
	if err != nil {
		baseLogger.Fatal("failed to init scheduler", zap.Error(err))
	}
	if err := sched.Start(); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	handler := handlers.NewHandler(sessionMgr, apiClient, workspace, drafting, reporting, baseLogger.Named("handlers"))
	engine := router.New(handler, baseLogger.Named("router"))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}
