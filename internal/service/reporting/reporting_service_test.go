package reporting

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/billdesk/internal/domain/models"
	"github.com/mamadbah2/billdesk/internal/events"
	"github.com/mamadbah2/billdesk/internal/session"
)

type stubAuth struct{}

func (stubAuth) Login(context.Context, models.Credentials) (*models.LoginResponse, error) {
	return &models.LoginResponse{Token: "tok", User: models.User{ID: "u", Store: &models.Store{ID: "s1", Code: "MAIN", Name: "Main Road"}}}, nil
}

func (stubAuth) ListStores(context.Context) ([]models.Store, error) { return nil, nil }

type stubDashboard struct {
	summary models.DashboardSummary
	hook    func()
}

func (s *stubDashboard) Dashboard(_ context.Context, storeID string) (*models.DashboardSummary, error) {
	if s.hook != nil {
		s.hook()
	}
	out := s.summary
	out.StoreID = storeID
	return &out, nil
}

type captureSheet struct {
	ranges []string
	rows   [][]interface{}
}

func (c *captureSheet) WriteRow(_ context.Context, sheetRange string, values []interface{}) error {
	c.ranges = append(c.ranges, sheetRange)
	c.rows = append(c.rows, values)
	return nil
}

type failingStore struct{}

func (failingStore) SaveDashboardSnapshot(context.Context, models.DashboardSnapshot) error {
	return errors.New("mongo down")
}

func loggedIn(t *testing.T) *session.Manager {
	t.Helper()
	mgr := session.NewManager(stubAuth{}, nil, events.NewStoreBroker(), nil)
	_, err := mgr.Login(context.Background(), models.Credentials{})
	require.NoError(t, err)
	return mgr
}

func TestSnapshotDashboardWritesRow(t *testing.T) {
	api := &stubDashboard{summary: models.DashboardSummary{TotalSales: "1520.5", TotalPurchases: "abc", InvoiceCount: 12, LowStockProducts: 2}}
	sheet := &captureSheet{}
	svc := NewService(api, loggedIn(t), sheet, nil, nil)
	svc.now = func() time.Time { return time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC) }

	snapshot, err := svc.SnapshotDashboard(context.Background())
	require.NoError(t, err)
	require.Equal(t, "s1", snapshot.Summary.StoreID)

	require.Equal(t, []string{dashboardDataRange}, sheet.ranges)
	require.Equal(t, []interface{}{"2026-03-14", "MAIN", "Main Road", "1520.50", "0.00", 12, 0, 0, 0, 2}, sheet.rows[0])
}

func TestSnapshotDashboardJoinsExportErrors(t *testing.T) {
	sheet := &captureSheet{}
	svc := NewService(&stubDashboard{}, loggedIn(t), sheet, failingStore{}, nil)

	snapshot, err := svc.SnapshotDashboard(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "mongo down")
	require.NotNil(t, snapshot)
	require.Len(t, sheet.rows, 1)
}

func TestDashboardDiscardsStaleResponse(t *testing.T) {
	mgr := loggedIn(t)
	api := &stubDashboard{}
	api.hook = func() {
		_, err := mgr.SelectStore(context.Background(), models.Store{ID: "s2"})
		require.NoError(t, err)
	}
	svc := NewService(api, mgr, nil, nil, nil)

	_, err := svc.Dashboard(context.Background())
	require.ErrorIs(t, err, events.ErrStaleStore)
}

func TestDashboardRequiresStore(t *testing.T) {
	mgr := session.NewManager(stubAuth{}, nil, nil, nil)
	svc := NewService(&stubDashboard{}, mgr, nil, nil, nil)

	_, err := svc.Dashboard(context.Background())
	require.ErrorIs(t, err, session.ErrNotAuthenticated)
}
