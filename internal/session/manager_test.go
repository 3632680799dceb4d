package session_test

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/billdesk/internal/domain/models"
	"github.com/mamadbah2/billdesk/internal/events"
	"github.com/mamadbah2/billdesk/internal/session"
	"github.com/mamadbah2/billdesk/pkg/clients/billingapi"
)

type memoryStorage struct {
	mu     sync.Mutex
	values map[string]string
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{values: make(map[string]string)}
}

func (s *memoryStorage) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *memoryStorage) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *memoryStorage) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.values, k)
	}
	return nil
}

type fakeAuth struct {
	login     *models.LoginResponse
	loginErr  error
	stores    []models.Store
	storesErr error
	// entered and release, when set, hold Login until the test lets it answer.
	entered chan struct{}
	release chan struct{}
}

func (f *fakeAuth) Login(context.Context, models.Credentials) (*models.LoginResponse, error) {
	if f.entered != nil {
		close(f.entered)
		<-f.release
	}
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return f.login, nil
}

func (f *fakeAuth) ListStores(context.Context) ([]models.Store, error) {
	return f.stores, f.storesErr
}

// gatedStorage blocks the first write of currentStore until released.
type gatedStorage struct {
	*memoryStorage
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (g *gatedStorage) Set(ctx context.Context, key, value string) error {
	if key == session.KeyCurrentStore {
		g.once.Do(func() {
			close(g.entered)
			<-g.release
		})
	}
	return g.memoryStorage.Set(ctx, key, value)
}

type recorder struct {
	events []events.StoreChanged
}

func newManager(t *testing.T, auth *fakeAuth, storage session.Storage) (*session.Manager, *recorder) {
	t.Helper()
	broker := events.NewStoreBroker()
	rec := &recorder{}
	broker.Subscribe(func(ev events.StoreChanged) { rec.events = append(rec.events, ev) })
	return session.NewManager(auth, storage, broker, nil), rec
}

var (
	storeA = models.Store{ID: "store-a", Name: "Andheri", Code: "AND", OrganizationID: "org-1"}
	storeB = models.Store{ID: "store-b", Name: "Bandra", Code: "BAN", OrganizationID: "org-1"}
	admin  = models.User{ID: "u-1", Name: "Ravi", Email: "ravi@example.com", Role: models.RoleOrgAdmin, OrganizationID: "org-1"}
)

func TestLoginPersistsAndAutoSelectsSingleStore(t *testing.T) {
	ctx := context.Background()
	storage := newMemoryStorage()
	auth := &fakeAuth{login: &models.LoginResponse{Token: "tok", User: admin}, stores: []models.Store{storeA}}
	mgr, rec := newManager(t, auth, storage)

	snap, err := mgr.Login(ctx, models.Credentials{Email: admin.Email, Password: "pw"})
	require.NoError(t, err)
	require.Equal(t, session.StateAuthenticated, snap.State)
	require.Equal(t, "store-a", snap.StoreID())
	require.Equal(t, "tok", storage.values[session.KeyToken])
	require.Contains(t, storage.values[session.KeyUser], `"id":"u-1"`)
	require.Contains(t, storage.values[session.KeyCurrentStore], `"id":"store-a"`)
	require.Equal(t, "tok", mgr.Token())
	require.Len(t, rec.events, 1)
	require.Equal(t, "store-a", rec.events[0].Store.ID)

	snap, err = mgr.FetchAvailableStores(ctx)
	require.NoError(t, err)
	require.Equal(t, "store-a", snap.StoreID())
	require.Len(t, rec.events, 1)
}

func TestLoginSucceedsWhenStoreListFails(t *testing.T) {
	auth := &fakeAuth{login: &models.LoginResponse{Token: "tok", User: admin}, storesErr: errors.New("connection refused")}
	mgr, rec := newManager(t, auth, newMemoryStorage())

	snap, err := mgr.Login(context.Background(), models.Credentials{})
	require.NoError(t, err)
	require.True(t, snap.Authenticated())
	require.Nil(t, snap.CurrentStore)
	require.Empty(t, rec.events)
}

func TestFetchAvailableStoresKeepsChoiceWhenSeveral(t *testing.T) {
	ctx := context.Background()
	auth := &fakeAuth{login: &models.LoginResponse{Token: "tok", User: admin}, stores: []models.Store{storeA, storeB}}
	mgr, rec := newManager(t, auth, newMemoryStorage())

	_, err := mgr.Login(ctx, models.Credentials{})
	require.NoError(t, err)

	snap, err := mgr.FetchAvailableStores(ctx)
	require.NoError(t, err)
	require.Nil(t, snap.CurrentStore)
	require.Len(t, snap.AvailableStores, 2)
	require.Empty(t, rec.events)
}

func TestLoginSelectsImplicitStore(t *testing.T) {
	ctx := context.Background()
	cashier := models.User{ID: "u-2", Role: "cashier", Store: &storeB}
	storage := newMemoryStorage()
	mgr, rec := newManager(t, &fakeAuth{login: &models.LoginResponse{Token: "tok", User: cashier}}, storage)

	snap, err := mgr.Login(ctx, models.Credentials{})
	require.NoError(t, err)
	require.Equal(t, "store-b", snap.StoreID())
	require.Len(t, rec.events, 1)
	require.Contains(t, storage.values[session.KeyCurrentStore], `"id":"store-b"`)
}

func TestLoginFailureStaysAnonymousWithServerMessage(t *testing.T) {
	auth := &fakeAuth{loginErr: &billingapi.APIError{StatusCode: 401, Message: "Invalid email or password"}}
	storage := newMemoryStorage()
	mgr, _ := newManager(t, auth, storage)

	_, err := mgr.Login(context.Background(), models.Credentials{Email: "x", Password: "y"})
	require.Error(t, err)
	require.Equal(t, "Invalid email or password", billingapi.Message(err))
	require.Equal(t, session.StateAnonymous, mgr.Snapshot().State)
	require.Empty(t, storage.values)
}

func TestSelectStoreRequiresAuthentication(t *testing.T) {
	mgr, rec := newManager(t, &fakeAuth{}, newMemoryStorage())

	_, err := mgr.SelectStore(context.Background(), storeA)
	require.ErrorIs(t, err, session.ErrNotAuthenticated)
	require.Empty(t, rec.events)

	_, err = mgr.FetchAvailableStores(context.Background())
	require.ErrorIs(t, err, session.ErrNotAuthenticated)
}

func TestSelectStoreSwitchPersistsAndEmitsOnce(t *testing.T) {
	ctx := context.Background()
	storage := newMemoryStorage()
	mgr, rec := newManager(t, &fakeAuth{login: &models.LoginResponse{Token: "tok", User: admin}}, storage)

	_, err := mgr.Login(ctx, models.Credentials{})
	require.NoError(t, err)
	_, err = mgr.SelectStore(ctx, storeA)
	require.NoError(t, err)
	rec.events = nil

	snap, err := mgr.SelectStore(ctx, storeB)
	require.NoError(t, err)
	require.Equal(t, "store-b", snap.StoreID())
	require.Len(t, rec.events, 1)
	require.Equal(t, "store-b", rec.events[0].Store.ID)

	var persisted models.Store
	require.NoError(t, json.Unmarshal([]byte(storage.values[session.KeyCurrentStore]), &persisted))
	require.Equal(t, storeB, persisted)

	_, err = mgr.SelectStore(ctx, models.Store{})
	require.ErrorIs(t, err, session.ErrInvalidStore)
}

func TestSelectStoreByID(t *testing.T) {
	ctx := context.Background()
	mgr, _ := newManager(t, &fakeAuth{login: &models.LoginResponse{Token: "tok", User: admin}, stores: []models.Store{storeA, storeB}}, newMemoryStorage())

	snap, err := mgr.Login(ctx, models.Credentials{})
	require.NoError(t, err)
	require.Len(t, snap.AvailableStores, 2)

	snap, err = mgr.SelectStoreByID(ctx, "store-b")
	require.NoError(t, err)
	require.Equal(t, "Bandra", snap.CurrentStore.Name)

	_, err = mgr.SelectStoreByID(ctx, "store-z")
	require.ErrorIs(t, err, session.ErrInvalidStore)
}

func TestLogoutClearsEverythingAndRehydrateStaysAnonymous(t *testing.T) {
	ctx := context.Background()
	storage := newMemoryStorage()
	auth := &fakeAuth{login: &models.LoginResponse{Token: "tok", User: admin}, stores: []models.Store{storeA}}
	mgr, rec := newManager(t, auth, storage)

	_, err := mgr.Login(ctx, models.Credentials{})
	require.NoError(t, err)
	_, err = mgr.FetchAvailableStores(ctx)
	require.NoError(t, err)

	snap := mgr.Logout(ctx)
	require.Equal(t, session.StateAnonymous, snap.State)
	require.Nil(t, snap.User)
	require.Nil(t, snap.CurrentStore)
	require.Empty(t, snap.AvailableStores)
	require.Empty(t, mgr.Token())
	require.Empty(t, storage.values)
	require.Len(t, rec.events, 2)
	require.Nil(t, rec.events[1].Store)

	mgr.Logout(ctx)
	require.Len(t, rec.events, 2)

	fresh, _ := newManager(t, auth, storage)
	require.Equal(t, session.StateAnonymous, fresh.Rehydrate(ctx).State)
}

func TestRehydrateRestoresPersistedSession(t *testing.T) {
	ctx := context.Background()
	storage := newMemoryStorage()
	first, _ := newManager(t, &fakeAuth{login: &models.LoginResponse{Token: "tok", User: admin}}, storage)
	_, err := first.Login(ctx, models.Credentials{})
	require.NoError(t, err)
	_, err = first.SelectStore(ctx, storeA)
	require.NoError(t, err)

	second, _ := newManager(t, &fakeAuth{}, storage)
	snap := second.Rehydrate(ctx)
	require.True(t, snap.Authenticated())
	require.Equal(t, "u-1", snap.User.ID)
	require.Equal(t, "store-a", snap.StoreID())
	require.Equal(t, "tok", second.Token())
}

func TestRehydrateDiscardsMalformedState(t *testing.T) {
	ctx := context.Background()

	storage := newMemoryStorage()
	storage.values[session.KeyToken] = "tok"
	storage.values[session.KeyUser] = "{not json"
	mgr, _ := newManager(t, &fakeAuth{}, storage)
	require.Equal(t, session.StateAnonymous, mgr.Rehydrate(ctx).State)
	require.Empty(t, storage.values)

	storage.values[session.KeyToken] = "tok"
	storage.values[session.KeyUser] = `{"id":"u-1"}`
	storage.values[session.KeyCurrentStore] = `[]`
	snap := mgr.Rehydrate(ctx)
	require.True(t, snap.Authenticated())
	require.Nil(t, snap.CurrentStore)
	require.NotContains(t, storage.values, session.KeyCurrentStore)
}

func TestFileStorageRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	storage := session.NewFileStorage(path)

	_, ok, err := storage.Get(ctx, session.KeyToken)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, storage.Set(ctx, session.KeyToken, "tok"))
	require.NoError(t, storage.Set(ctx, session.KeyUser, `{"id":"u-1"}`))

	reopened := session.NewFileStorage(path)
	value, ok, err := reopened.Get(ctx, session.KeyUser)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, `{"id":"u-1"}`, value)

	require.NoError(t, reopened.Delete(ctx, session.KeyToken, session.KeyUser))
	_, ok, err = storage.Get(ctx, session.KeyToken)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestLoginRejectsEmptyToken(t *testing.T) {
	mgr, _ := newManager(t, &fakeAuth{login: &models.LoginResponse{User: admin}}, newMemoryStorage())
	_, err := mgr.Login(context.Background(), models.Credentials{})
	require.Error(t, err)
	require.False(t, errors.Is(err, session.ErrLoginInProgress))
	require.Equal(t, session.StateAnonymous, mgr.Snapshot().State)
}

func TestConcurrentSelectionsAgreeOnLastStore(t *testing.T) {
	ctx := context.Background()
	storage := &gatedStorage{
		memoryStorage: newMemoryStorage(),
		entered:       make(chan struct{}),
		release:       make(chan struct{}),
	}
	mgr, rec := newManager(t, &fakeAuth{login: &models.LoginResponse{Token: "tok", User: admin}}, storage)
	_, err := mgr.Login(ctx, models.Credentials{})
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := mgr.SelectStore(ctx, storeA)
		require.NoError(t, err)
	}()
	<-storage.entered

	go func() {
		defer wg.Done()
		_, err := mgr.SelectStore(ctx, storeB)
		require.NoError(t, err)
	}()
	time.Sleep(20 * time.Millisecond)
	close(storage.release)
	wg.Wait()

	require.Equal(t, "store-b", mgr.Snapshot().StoreID())

	var persisted models.Store
	require.NoError(t, json.Unmarshal([]byte(storage.values[session.KeyCurrentStore]), &persisted))
	require.Equal(t, "store-b", persisted.ID)

	require.Len(t, rec.events, 2)
	last := rec.events[len(rec.events)-1]
	require.Equal(t, "store-b", last.Store.ID)
	require.Equal(t, mgr.Broker().Generation(), last.Generation)

	fresh, _ := newManager(t, &fakeAuth{}, storage.memoryStorage)
	require.Equal(t, "store-b", fresh.Rehydrate(ctx).StoreID())
}

func TestLogoutCancelsPendingLogin(t *testing.T) {
	ctx := context.Background()
	storage := newMemoryStorage()
	auth := &fakeAuth{
		login:   &models.LoginResponse{Token: "tok", User: models.User{ID: "u-2", Store: &storeA}},
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	mgr, rec := newManager(t, auth, storage)

	done := make(chan error, 1)
	go func() {
		_, err := mgr.Login(ctx, models.Credentials{})
		done <- err
	}()
	<-auth.entered
	require.Equal(t, session.StateAuthenticating, mgr.Snapshot().State)

	_, err := mgr.Login(ctx, models.Credentials{})
	require.ErrorIs(t, err, session.ErrLoginInProgress)

	mgr.Logout(ctx)
	close(auth.release)

	require.ErrorIs(t, <-done, session.ErrLoginCancelled)
	snap := mgr.Snapshot()
	require.Equal(t, session.StateAnonymous, snap.State)
	require.Empty(t, mgr.Token())
	require.Empty(t, storage.values)
	require.Empty(t, rec.events)
}

func TestResumeLoadsAvailableStores(t *testing.T) {
	ctx := context.Background()
	storage := newMemoryStorage()
	first, _ := newManager(t, &fakeAuth{login: &models.LoginResponse{Token: "tok", User: admin}}, storage)
	_, err := first.Login(ctx, models.Credentials{})
	require.NoError(t, err)
	_, err = first.SelectStore(ctx, storeA)
	require.NoError(t, err)

	second, rec := newManager(t, &fakeAuth{stores: []models.Store{storeA, storeB}}, storage)
	snap := second.Resume(ctx)
	require.Equal(t, "store-a", snap.StoreID())
	require.Len(t, snap.AvailableStores, 2)
	require.Empty(t, rec.events)

	snap, err = second.SelectStoreByID(ctx, "store-b")
	require.NoError(t, err)
	require.Equal(t, "store-b", snap.StoreID())

	anonymous, _ := newManager(t, &fakeAuth{stores: []models.Store{storeA}}, newMemoryStorage())
	require.Equal(t, session.StateAnonymous, anonymous.Resume(ctx).State)
}
