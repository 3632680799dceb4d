package scheduler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/billdesk/internal/config"
	"github.com/mamadbah2/billdesk/internal/domain/models"
	"github.com/mamadbah2/billdesk/internal/session"
)

type countingReporter struct{ calls int }

func (c *countingReporter) SnapshotDashboard(context.Context) (*models.DashboardSnapshot, error) {
	c.calls++
	return &models.DashboardSnapshot{Store: models.Store{ID: "s1"}}, nil
}

type fakeStores struct {
	snap    session.Snapshot
	fetches int
}

func (f *fakeStores) Snapshot() session.Snapshot { return f.snap }

func (f *fakeStores) FetchAvailableStores(context.Context) (session.Snapshot, error) {
	f.fetches++
	return f.snap, nil
}

func newTestScheduler(t *testing.T, reporter DashboardSnapshotter, stores StoreRefresher) *Scheduler {
	t.Helper()
	s, err := NewScheduler(config.ReportingConfig{CronSchedule: "0 20 * * *", StoreRefreshSchedule: "*/15 * * * *", Timezone: "UTC"}, reporter, stores, nil)
	require.NoError(t, err)
	return s
}

func TestJobsSkipWithoutActiveStore(t *testing.T) {
	reporter := &countingReporter{}
	stores := &fakeStores{snap: session.Snapshot{State: session.StateAnonymous}}
	s := newTestScheduler(t, reporter, stores)

	s.snapshotDashboard()
	s.refreshStores()
	require.Zero(t, reporter.calls)
	require.Zero(t, stores.fetches)

	stores.snap = session.Snapshot{State: session.StateAuthenticated}
	s.snapshotDashboard()
	s.refreshStores()
	require.Zero(t, reporter.calls)
	require.Equal(t, 1, stores.fetches)

	stores.snap.CurrentStore = &models.Store{ID: "s1"}
	s.snapshotDashboard()
	require.Equal(t, 1, reporter.calls)
}

func TestStartRejectsInvalidSchedule(t *testing.T) {
	s, err := NewScheduler(config.ReportingConfig{CronSchedule: "not a cron", Timezone: "UTC"}, &countingReporter{}, &fakeStores{}, nil)
	require.NoError(t, err)
	require.Error(t, s.Start())

	_, err = NewScheduler(config.ReportingConfig{CronSchedule: "0 20 * * *", Timezone: "Nowhere/Land"}, &countingReporter{}, &fakeStores{}, nil)
	require.Error(t, err)
}

func TestStartAndStop(t *testing.T) {
	s := newTestScheduler(t, &countingReporter{}, &fakeStores{})
	require.NoError(t, s.Start())
	s.Stop()
}
