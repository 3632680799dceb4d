package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/mamadbah2/billdesk/internal/domain/models"
	"github.com/mamadbah2/billdesk/internal/events"
)

// State is the authentication state of the session.
type State string

const (
	StateAnonymous      State = "anonymous"
	StateAuthenticating State = "authenticating"
	StateAuthenticated  State = "authenticated"
)

var (
	// ErrNotAuthenticated is returned by operations that need a logged-in user.
	ErrNotAuthenticated = errors.New("session: not authenticated")
	// ErrLoginInProgress is returned when a login is already awaiting the server.
	ErrLoginInProgress = errors.New("session: login already in progress")
	// ErrInvalidStore is returned when selecting a store without an id.
	ErrInvalidStore = errors.New("session: store id is required")
	// ErrLoginCancelled is returned by a login overtaken by a logout.
	ErrLoginCancelled = errors.New("session: login cancelled")
)

// Authenticator is the part of the billing API the session depends on.
type Authenticator interface {
	Login(ctx context.Context, creds models.Credentials) (*models.LoginResponse, error)
	ListStores(ctx context.Context) ([]models.Store, error)
}

// Snapshot is a read-only copy of the session.
type Snapshot struct {
	State           State          `json:"state"`
	Token           string         `json:"-"`
	User            *models.User   `json:"user,omitempty"`
	CurrentStore    *models.Store  `json:"current_store,omitempty"`
	AvailableStores []models.Store `json:"available_stores"`
	Generation      uint64         `json:"generation"`
}

// Authenticated reports whether a user is logged in.
func (s Snapshot) Authenticated() bool {
	return s.State == StateAuthenticated
}

// StoreID returns the selected store id, or "" when none is selected.
func (s Snapshot) StoreID() string {
	if s.CurrentStore == nil {
		return ""
	}
	return s.CurrentStore.ID
}

// Manager owns the session. Every mutation goes through Login, SelectStore,
// FetchAvailableStores, Logout or Rehydrate; readers get snapshots.
type Manager struct {
	api     Authenticator
	storage Storage
	broker  *events.StoreBroker
	logger  *zap.Logger

	// transition is held across a state change, its persistence and its
	// broadcast, so memory, storage and the last event name the same store.
	transition sync.Mutex

	mu      sync.RWMutex
	state   State
	token   string
	user    *models.User
	store   *models.Store
	stores  []models.Store
	attempt uint64
}

// NewManager builds an anonymous session manager.
func NewManager(api Authenticator, storage Storage, broker *events.StoreBroker, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if broker == nil {
		broker = events.NewStoreBroker()
	}
	return &Manager{
		api:     api,
		storage: storage,
		broker:  broker,
		logger:  logger,
		state:   StateAnonymous,
	}
}

// Broker exposes the store-change channel.
func (m *Manager) Broker() *events.StoreBroker {
	return m.broker
}

// Token implements billingapi.TokenSource.
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

// Snapshot returns a copy of the current session.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked()
}

func (m *Manager) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:           m.state,
		Token:           m.token,
		AvailableStores: append([]models.Store(nil), m.stores...),
		Generation:      m.broker.Generation(),
	}
	if m.user != nil {
		u := *m.user
		if u.Store != nil {
			s := *u.Store
			u.Store = &s
		}
		snap.User = &u
	}
	if m.store != nil {
		s := *m.store
		snap.CurrentStore = &s
	}
	return snap
}

// Login checks credentials with the server. On success the token and user are
// persisted, the user's implicit store, if any, is selected and the available
// stores are loaded. On failure the previous state is restored and the server
// error is returned unchanged. A Logout while the server is answering wins.
func (m *Manager) Login(ctx context.Context, creds models.Credentials) (Snapshot, error) {
	m.mu.Lock()
	if m.state == StateAuthenticating {
		m.mu.Unlock()
		return Snapshot{}, ErrLoginInProgress
	}
	prev := m.state
	m.state = StateAuthenticating
	m.attempt++
	attempt := m.attempt
	m.mu.Unlock()

	resp, loginErr := m.api.Login(ctx, creds)
	if loginErr == nil && (resp == nil || strings.TrimSpace(resp.Token) == "") {
		loginErr = errors.New("session: login response carried no token")
	}

	if err := m.completeLogin(ctx, creds, attempt, prev, resp, loginErr); err != nil {
		return Snapshot{}, err
	}

	snap, err := m.FetchAvailableStores(ctx)
	if err != nil {
		m.logger.Warn("load available stores after login failed", zap.Error(err))
		return m.Snapshot(), nil
	}
	return snap, nil
}

func (m *Manager) completeLogin(ctx context.Context, creds models.Credentials, attempt uint64, prev State, resp *models.LoginResponse, loginErr error) error {
	m.transition.Lock()
	defer m.transition.Unlock()

	m.mu.Lock()
	current := m.state == StateAuthenticating && m.attempt == attempt
	if loginErr != nil || !current {
		if current {
			m.state = prev
		}
		m.mu.Unlock()
		if loginErr == nil {
			loginErr = ErrLoginCancelled
		}
		m.logger.Info("login rejected", zap.String("email", creds.Email), zap.Error(loginErr))
		return loginErr
	}

	user := resp.User
	hadStore := m.store != nil
	m.state = StateAuthenticated
	m.token = resp.Token
	m.user = &user
	m.store = nil
	m.stores = nil
	m.mu.Unlock()

	m.persistJSON(ctx, KeyUser, user)
	m.persist(ctx, KeyToken, resp.Token)
	m.forget(ctx, KeyCurrentStore)

	m.logger.Info("login succeeded", zap.String("user_id", user.ID), zap.String("role", user.Role))

	if user.Store != nil && user.Store.ID != "" {
		return m.selectStore(ctx, *user.Store)
	}
	if hadStore {
		m.broker.Publish(nil)
	}
	return nil
}

// SelectStore makes store the current store, persists it and broadcasts the
// change to every subscriber.
func (m *Manager) SelectStore(ctx context.Context, store models.Store) (Snapshot, error) {
	if store.ID == "" {
		return Snapshot{}, ErrInvalidStore
	}

	m.transition.Lock()
	defer m.transition.Unlock()

	if err := m.selectStore(ctx, store); err != nil {
		return Snapshot{}, err
	}
	return m.Snapshot(), nil
}

// selectStore requires m.transition to be held.
func (m *Manager) selectStore(ctx context.Context, store models.Store) error {
	m.mu.Lock()
	if m.state != StateAuthenticated {
		m.mu.Unlock()
		return ErrNotAuthenticated
	}
	selected := store
	m.store = &selected
	m.mu.Unlock()

	m.persistJSON(ctx, KeyCurrentStore, store)

	ev := m.broker.Publish(&store)
	m.logger.Info("store selected",
		zap.String("store_id", store.ID),
		zap.String("store_code", store.Code),
		zap.Uint64("generation", ev.Generation))
	return nil
}

// SelectStoreByID selects one of the available stores.
func (m *Manager) SelectStoreByID(ctx context.Context, id string) (Snapshot, error) {
	snap := m.Snapshot()
	if !snap.Authenticated() {
		return Snapshot{}, ErrNotAuthenticated
	}
	for _, store := range snap.AvailableStores {
		if store.ID == id {
			return m.SelectStore(ctx, store)
		}
	}
	if snap.User != nil && snap.User.Store != nil && snap.User.Store.ID == id {
		return m.SelectStore(ctx, *snap.User.Store)
	}
	return Snapshot{}, fmt.Errorf("%w: %q is not an available store", ErrInvalidStore, id)
}

// FetchAvailableStores loads the stores the user may act on. When exactly one
// store comes back and none is selected yet, it is selected automatically.
func (m *Manager) FetchAvailableStores(ctx context.Context) (Snapshot, error) {
	if !m.Snapshot().Authenticated() {
		return Snapshot{}, ErrNotAuthenticated
	}

	stores, err := m.api.ListStores(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("fetch available stores: %w", err)
	}

	m.transition.Lock()
	defer m.transition.Unlock()

	m.mu.Lock()
	if m.state != StateAuthenticated {
		m.mu.Unlock()
		return Snapshot{}, ErrNotAuthenticated
	}
	m.stores = append([]models.Store(nil), stores...)
	autoSelect := len(stores) == 1 && m.store == nil
	m.mu.Unlock()

	if autoSelect {
		if err := m.selectStore(ctx, stores[0]); err != nil {
			return Snapshot{}, err
		}
	}
	return m.Snapshot(), nil
}

// Logout clears the session in memory and in storage. It is idempotent, and
// cancels a login that is still waiting for the server.
func (m *Manager) Logout(ctx context.Context) Snapshot {
	m.transition.Lock()
	defer m.transition.Unlock()

	m.mu.Lock()
	hadStore := m.store != nil
	m.state = StateAnonymous
	m.token = ""
	m.user = nil
	m.store = nil
	m.stores = nil
	m.mu.Unlock()

	m.forget(ctx, allKeys...)

	if hadStore {
		m.broker.Publish(nil)
	}
	m.logger.Info("logged out")
	return m.Snapshot()
}

// Rehydrate restores a persisted session. Missing or malformed token/user
// entries leave the session anonymous; a malformed store entry is dropped.
// It makes no network call and publishes nothing.
func (m *Manager) Rehydrate(ctx context.Context) Snapshot {
	m.transition.Lock()
	defer m.transition.Unlock()

	token, okToken := m.load(ctx, KeyToken)
	rawUser, okUser := m.load(ctx, KeyUser)

	var user models.User
	if !okToken || strings.TrimSpace(token) == "" || !okUser || json.Unmarshal([]byte(rawUser), &user) != nil {
		if okToken || okUser {
			m.logger.Warn("discarding incomplete persisted session")
			m.forget(ctx, allKeys...)
		}
		return m.Snapshot()
	}

	var store *models.Store
	if rawStore, ok := m.load(ctx, KeyCurrentStore); ok {
		var s models.Store
		if err := json.Unmarshal([]byte(rawStore), &s); err != nil || s.ID == "" {
			m.logger.Warn("discarding malformed persisted store")
			m.forget(ctx, KeyCurrentStore)
		} else {
			store = &s
		}
	}

	m.mu.Lock()
	m.state = StateAuthenticated
	m.token = token
	m.user = &user
	m.store = store
	m.stores = nil
	m.mu.Unlock()

	m.logger.Info("session restored", zap.String("user_id", user.ID), zap.Bool("store_selected", store != nil))
	return m.Snapshot()
}

// Resume rehydrates the persisted session and, when it is authenticated,
// reloads the available stores. A failed reload is logged and the restored
// session is kept.
func (m *Manager) Resume(ctx context.Context) Snapshot {
	snap := m.Rehydrate(ctx)
	if !snap.Authenticated() {
		return snap
	}
	refreshed, err := m.FetchAvailableStores(ctx)
	if err != nil {
		m.logger.Warn("load available stores after restore failed", zap.Error(err))
		return m.Snapshot()
	}
	return refreshed
}

func (m *Manager) load(ctx context.Context, key string) (string, bool) {
	if m.storage == nil {
		return "", false
	}
	value, ok, err := m.storage.Get(ctx, key)
	if err != nil {
		m.logger.Warn("read persisted session key failed", zap.String("key", key), zap.Error(err))
		return "", false
	}
	return value, ok
}

func (m *Manager) persist(ctx context.Context, key, value string) {
	if m.storage == nil {
		return
	}
	if err := m.storage.Set(ctx, key, value); err != nil {
		m.logger.Warn("persist session key failed", zap.String("key", key), zap.Error(err))
	}
}

func (m *Manager) persistJSON(ctx context.Context, key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		m.logger.Warn("encode session key failed", zap.String("key", key), zap.Error(err))
		return
	}
	m.persist(ctx, key, string(data))
}

func (m *Manager) forget(ctx context.Context, keys ...string) {
	if m.storage == nil {
		return
	}
	if err := m.storage.Delete(ctx, keys...); err != nil {
		m.logger.Warn("clear persisted session failed", zap.Strings("keys", keys), zap.Error(err))
	}
}
