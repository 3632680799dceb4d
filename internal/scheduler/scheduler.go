package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/billdesk/internal/config"
	"github.com/mamadbah2/billdesk/internal/domain/models"
	"github.com/mamadbah2/billdesk/internal/session"
)

const jobTimeout = 2 * time.Minute

// DashboardSnapshotter takes a dashboard snapshot of the current store.
type DashboardSnapshotter interface {
	SnapshotDashboard(ctx context.Context) (*models.DashboardSnapshot, error)
}

// StoreRefresher reloads the stores the operator may act on.
type StoreRefresher interface {
	Snapshot() session.Snapshot
	FetchAvailableStores(ctx context.Context) (session.Snapshot, error)
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron      *cron.Cron
	reporting DashboardSnapshotter
	stores    StoreRefresher
	cfg       config.ReportingConfig
	logger    *zap.Logger
}

// NewScheduler creates a new scheduler instance running in the configured timezone.
func NewScheduler(cfg config.ReportingConfig, reporting DashboardSnapshotter, stores StoreRefresher, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %s: %w", cfg.Timezone, err)
	}

	// Standard 5-field cron (min, hour, dom, month, dow).
	c := cron.New(cron.WithLocation(loc))

	return &Scheduler{
		cron:      c,
		reporting: reporting,
		stores:    stores,
		cfg:       cfg,
		logger:    logger,
	}, nil
}

// Start registers the jobs and starts the scheduler.
func (s *Scheduler) Start() error {
	s.logger.Info("starting scheduler",
		zap.String("dashboard_schedule", s.cfg.CronSchedule),
		zap.String("store_refresh_schedule", s.cfg.StoreRefreshSchedule))

	if _, err := s.cron.AddFunc(s.cfg.CronSchedule, s.snapshotDashboard); err != nil {
		return fmt.Errorf("schedule dashboard snapshot: %w", err)
	}
	if s.cfg.StoreRefreshSchedule != "" {
		if _, err := s.cron.AddFunc(s.cfg.StoreRefreshSchedule, s.refreshStores); err != nil {
			return fmt.Errorf("schedule store refresh: %w", err)
		}
	}

	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) snapshotDashboard() {
	if s.stores != nil {
		snap := s.stores.Snapshot()
		if !snap.Authenticated() || snap.CurrentStore == nil {
			s.logger.Debug("skipping dashboard snapshot, no active store")
			return
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	snapshot, err := s.reporting.SnapshotDashboard(ctx)
	if err != nil {
		s.logger.Error("failed to snapshot dashboard", zap.Error(err))
		return
	}
	s.logger.Info("dashboard snapshot exported", zap.String("store_id", snapshot.Store.ID))
}

func (s *Scheduler) refreshStores() {
	if s.stores == nil || !s.stores.Snapshot().Authenticated() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	snap, err := s.stores.FetchAvailableStores(ctx)
	if err != nil {
		if errors.Is(err, session.ErrNotAuthenticated) {
			return
		}
		s.logger.Error("failed to refresh stores", zap.Error(err))
		return
	}
	s.logger.Debug("stores refreshed", zap.Int("count", len(snap.AvailableStores)))
}
