package reporting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/billdesk/internal/billing"
	"github.com/mamadbah2/billdesk/internal/domain/models"
	"github.com/mamadbah2/billdesk/internal/events"
	"github.com/mamadbah2/billdesk/internal/session"
)

const (
	dateLayout         = "2006-01-02"
	dashboardDataRange = "Dashboard!A:J"
)

// ErrNoStoreSelected is returned when the dashboard is requested without a store.
var ErrNoStoreSelected = errors.New("reporting: no store selected")

// DashboardAPI loads the dashboard of a store.
type DashboardAPI interface {
	Dashboard(ctx context.Context, storeID string) (*models.DashboardSummary, error)
}

// Session is the read side of the session manager.
type Session interface {
	Snapshot() session.Snapshot
	Broker() *events.StoreBroker
}

// RowWriter appends spreadsheet rows.
type RowWriter interface {
	WriteRow(ctx context.Context, sheetRange string, values []interface{}) error
}

// SnapshotStore keeps dashboard snapshots.
type SnapshotStore interface {
	SaveDashboardSnapshot(ctx context.Context, snapshot models.DashboardSnapshot) error
}

// Service exposes the store dashboard and its periodic export.
type Service struct {
	api       DashboardAPI
	session   Session
	sheet     RowWriter
	snapshots SnapshotStore
	logger    *zap.Logger
	now       func() time.Time
}

// NewService wires a new reporting service instance. sheet and snapshots are
// optional; a nil value disables that export.
func NewService(api DashboardAPI, sess Session, sheet RowWriter, snapshots SnapshotStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		api:       api,
		session:   sess,
		sheet:     sheet,
		snapshots: snapshots,
		logger:    logger,
		now:       time.Now,
	}
}

// Dashboard loads the summary of the current store. A response that arrives
// after the store changed is discarded.
func (s *Service) Dashboard(ctx context.Context) (*models.DashboardSummary, error) {
	summary, _, err := s.load(ctx)
	return summary, err
}

func (s *Service) load(ctx context.Context) (*models.DashboardSummary, *models.Store, error) {
	gen := s.session.Broker().Generation()
	snap := s.session.Snapshot()
	if !snap.Authenticated() {
		return nil, nil, session.ErrNotAuthenticated
	}
	if snap.CurrentStore == nil {
		return nil, nil, ErrNoStoreSelected
	}

	summary, err := s.api.Dashboard(ctx, snap.CurrentStore.ID)
	if err != nil {
		return nil, nil, err
	}
	if !s.session.Broker().Current(gen) {
		s.logger.Info("discarding stale dashboard", zap.String("store_id", snap.CurrentStore.ID))
		return nil, nil, events.ErrStaleStore
	}
	return summary, snap.CurrentStore, nil
}

// SnapshotDashboard loads the current dashboard and hands it to every
// configured export. Export failures are joined and returned after all
// exports were attempted.
func (s *Service) SnapshotDashboard(ctx context.Context) (*models.DashboardSnapshot, error) {
	summary, store, err := s.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load dashboard: %w", err)
	}

	now := s.now().UTC()
	snapshot := &models.DashboardSnapshot{
		Store:     *store,
		Summary:   *summary,
		TakenAt:   now,
		CreatedAt: now,
	}

	var joined error
	if s.sheet != nil {
		if err := s.sheet.WriteRow(ctx, dashboardDataRange, Row(*snapshot)); err != nil {
			joined = errors.Join(joined, fmt.Errorf("export dashboard row: %w", err))
		}
	}
	if s.snapshots != nil {
		if err := s.snapshots.SaveDashboardSnapshot(ctx, *snapshot); err != nil {
			joined = errors.Join(joined, fmt.Errorf("save dashboard snapshot: %w", err))
		}
	}

	s.logger.Info("dashboard snapshot taken",
		zap.String("store_id", store.ID),
		zap.String("total_sales", snapshot.Summary.TotalSales),
		zap.Bool("exported", joined == nil))

	return snapshot, joined
}

// Row renders a snapshot as a spreadsheet row.
func Row(snapshot models.DashboardSnapshot) []interface{} {
	sum := snapshot.Summary
	return []interface{}{
		snapshot.TakenAt.Format(dateLayout),
		snapshot.Store.Code,
		snapshot.Store.Name,
		billing.Format(billing.Parse(sum.TotalSales)),
		billing.Format(billing.Parse(sum.TotalPurchases)),
		sum.InvoiceCount,
		sum.PurchaseCount,
		sum.CustomerCount,
		sum.ProductCount,
		sum.LowStockProducts,
	}
}
