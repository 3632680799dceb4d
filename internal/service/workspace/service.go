package workspace

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mamadbah2/billdesk/internal/domain/models"
	"github.com/mamadbah2/billdesk/internal/events"
	"github.com/mamadbah2/billdesk/internal/service/drafting"
	"github.com/mamadbah2/billdesk/internal/session"
	"github.com/mamadbah2/billdesk/pkg/clients/billingapi"
)

var (
	// ErrNoStoreSelected is returned by store-scoped operations before a store is chosen.
	ErrNoStoreSelected = errors.New("workspace: no store selected")
	// ErrUnsupportedResource is returned for collections the workspace does not serve.
	ErrUnsupportedResource = errors.New("workspace: unsupported resource")
	// ErrNoPendingDelete is returned when confirming without a requested deletion.
	ErrNoPendingDelete = errors.New("workspace: no deletion awaiting confirmation")
)

// API is the subset of the billing client the workspace uses.
type API interface {
	ListProducts(ctx context.Context, storeID string) ([]models.Product, error)
	CreateProduct(ctx context.Context, product models.Product) (*models.Product, error)
	ListVendors(ctx context.Context, storeID string) ([]models.Vendor, error)
	CreateVendor(ctx context.Context, vendor models.Vendor) (*models.Vendor, error)
	ListCustomers(ctx context.Context, storeID string) ([]models.Customer, error)
	CreateCustomer(ctx context.Context, customer models.Customer) (*models.Customer, error)
	ListInvoices(ctx context.Context, storeID string) ([]models.Invoice, error)
	ListPurchases(ctx context.Context, storeID string) ([]models.Purchase, error)
	ListUsers(ctx context.Context, storeID string) ([]models.User, error)
	Delete(ctx context.Context, resource billingapi.Resource, id string) error
}

// Session is the read side of the session manager.
type Session interface {
	Snapshot() session.Snapshot
	Broker() *events.StoreBroker
}

type cachedList struct {
	generation uint64
	items      any
}

// Service serves store-scoped lists to the operator views. Lists are cached
// per store generation and every store change empties the cache.
type Service struct {
	api     API
	session Session
	logger  *zap.Logger

	unsubscribe func()

	mu      sync.Mutex
	cache   map[billingapi.Resource]cachedList
	pending *PendingDelete
}

// NewService wires a workspace and subscribes it to store changes.
func NewService(api API, sess Session, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		api:     api,
		session: sess,
		logger:  logger,
		cache:   make(map[billingapi.Resource]cachedList),
	}
	s.unsubscribe = sess.Broker().Subscribe(s.onStoreChanged)
	return s
}

// Close stops listening for store changes.
func (s *Service) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

func (s *Service) onStoreChanged(ev events.StoreChanged) {
	s.mu.Lock()
	s.cache = make(map[billingapi.Resource]cachedList)
	dropped := s.pending
	s.pending = nil
	s.mu.Unlock()

	storeID := ""
	if ev.Store != nil {
		storeID = ev.Store.ID
	}
	fields := []zap.Field{zap.String("store_id", storeID), zap.Uint64("generation", ev.Generation)}
	if dropped != nil {
		fields = append(fields, zap.String("dropped_delete", fmt.Sprintf("%s/%s", dropped.Resource, dropped.ID)))
	}
	s.logger.Debug("store changed, workspace reset", fields...)
}

// scope captures the generation before reading the snapshot, so a change
// racing with the read can only make the request look stale, never fresh.
func (s *Service) scope() (session.Snapshot, uint64, error) {
	gen := s.session.Broker().Generation()
	snap := s.session.Snapshot()
	if !snap.Authenticated() {
		return snap, gen, session.ErrNotAuthenticated
	}
	if snap.StoreID() == "" {
		return snap, gen, ErrNoStoreSelected
	}
	return snap, gen, nil
}

func load[T any](ctx context.Context, s *Service, resource billingapi.Resource, refresh bool, fetch func(context.Context, string) ([]T, error)) ([]T, error) {
	snap, gen, err := s.scope()
	if err != nil {
		return nil, err
	}

	if !refresh {
		s.mu.Lock()
		entry, ok := s.cache[resource]
		s.mu.Unlock()
		if ok && entry.generation == gen {
			return entry.items.([]T), nil
		}
	}

	items, err := fetch(ctx, snap.StoreID())
	if err != nil {
		return nil, err
	}

	if !s.session.Broker().Current(gen) {
		s.logger.Info("discarding stale list",
			zap.String("resource", string(resource)),
			zap.String("store_id", snap.StoreID()),
			zap.Uint64("generation", gen))
		return nil, events.ErrStaleStore
	}

	if items == nil {
		items = []T{}
	}

	s.mu.Lock()
	s.cache[resource] = cachedList{generation: gen, items: items}
	s.mu.Unlock()

	return items, nil
}

func (s *Service) Products(ctx context.Context) ([]models.Product, error) {
	return load(ctx, s, billingapi.ResourceProducts, false, s.api.ListProducts)
}

func (s *Service) Vendors(ctx context.Context) ([]models.Vendor, error) {
	return load(ctx, s, billingapi.ResourceVendors, false, s.api.ListVendors)
}

func (s *Service) Customers(ctx context.Context) ([]models.Customer, error) {
	return load(ctx, s, billingapi.ResourceCustomers, false, s.api.ListCustomers)
}

func (s *Service) Invoices(ctx context.Context) ([]models.Invoice, error) {
	return load(ctx, s, billingapi.ResourceInvoices, false, s.api.ListInvoices)
}

func (s *Service) Purchases(ctx context.Context) ([]models.Purchase, error) {
	return load(ctx, s, billingapi.ResourcePurchases, false, s.api.ListPurchases)
}

func (s *Service) Users(ctx context.Context) ([]models.User, error) {
	return load(ctx, s, billingapi.ResourceUsers, false, s.api.ListUsers)
}

// List returns the cached or freshly loaded collection for resource.
func (s *Service) List(ctx context.Context, resource billingapi.Resource, refresh bool) (any, error) {
	switch resource {
	case billingapi.ResourceProducts:
		return load(ctx, s, resource, refresh, s.api.ListProducts)
	case billingapi.ResourceVendors:
		return load(ctx, s, resource, refresh, s.api.ListVendors)
	case billingapi.ResourceCustomers:
		return load(ctx, s, resource, refresh, s.api.ListCustomers)
	case billingapi.ResourceInvoices:
		return load(ctx, s, resource, refresh, s.api.ListInvoices)
	case billingapi.ResourcePurchases:
		return load(ctx, s, resource, refresh, s.api.ListPurchases)
	case billingapi.ResourceUsers:
		return load(ctx, s, resource, refresh, s.api.ListUsers)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedResource, resource)
	}
}

// Invalidate drops the cached collection so the next read reloads it.
func (s *Service) Invalidate(resource billingapi.Resource) {
	s.mu.Lock()
	delete(s.cache, resource)
	s.mu.Unlock()
}

// InvoiceForm is the reference data an invoice form needs.
type InvoiceForm struct {
	Customers []models.Customer `json:"customers"`
	Products  []models.Product  `json:"products"`
}

// PurchaseForm is the reference data a purchase form needs.
type PurchaseForm struct {
	Vendors  []models.Vendor  `json:"vendors"`
	Products []models.Product `json:"products"`
}

// LoadInvoiceForm loads customers and products concurrently.
func (s *Service) LoadInvoiceForm(ctx context.Context) (InvoiceForm, error) {
	var form InvoiceForm
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		form.Customers, err = s.Customers(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		form.Products, err = s.Products(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return InvoiceForm{}, err
	}
	return form, nil
}

// LoadPurchaseForm loads vendors and products concurrently.
func (s *Service) LoadPurchaseForm(ctx context.Context) (PurchaseForm, error) {
	var form PurchaseForm
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		form.Vendors, err = s.Vendors(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		form.Products, err = s.Products(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return PurchaseForm{}, err
	}
	return form, nil
}

// CreateProduct creates a product in the current store.
func (s *Service) CreateProduct(ctx context.Context, product models.Product) (*models.Product, error) {
	if err := drafting.ValidateStruct(product); err != nil {
		return nil, err
	}
	snap, _, err := s.scope()
	if err != nil {
		return nil, err
	}
	product.StoreID = snap.StoreID()

	created, err := s.api.CreateProduct(ctx, product)
	if err != nil {
		return nil, err
	}
	s.Invalidate(billingapi.ResourceProducts)
	return created, nil
}

// CreateVendor creates a vendor in the current store.
func (s *Service) CreateVendor(ctx context.Context, vendor models.Vendor) (*models.Vendor, error) {
	if err := drafting.ValidateStruct(vendor); err != nil {
		return nil, err
	}
	snap, _, err := s.scope()
	if err != nil {
		return nil, err
	}
	vendor.StoreID = snap.StoreID()

	created, err := s.api.CreateVendor(ctx, vendor)
	if err != nil {
		return nil, err
	}
	s.Invalidate(billingapi.ResourceVendors)
	return created, nil
}

// CreateCustomer creates a customer in the current store.
func (s *Service) CreateCustomer(ctx context.Context, customer models.Customer) (*models.Customer, error) {
	if err := drafting.ValidateStruct(customer); err != nil {
		return nil, err
	}
	snap, _, err := s.scope()
	if err != nil {
		return nil, err
	}
	customer.StoreID = snap.StoreID()

	created, err := s.api.CreateCustomer(ctx, customer)
	if err != nil {
		return nil, err
	}
	s.Invalidate(billingapi.ResourceCustomers)
	return created, nil
}
