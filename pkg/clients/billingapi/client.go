package billingapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/mamadbah2/billdesk/internal/config"
	"github.com/mamadbah2/billdesk/internal/domain/models"
)

// Resource names a REST collection of the billing API.
type Resource string

const (
	ResourceProducts  Resource = "products"
	ResourceVendors   Resource = "vendors"
	ResourceCustomers Resource = "customers"
	ResourcePurchases Resource = "purchases"
	ResourceInvoices  Resource = "invoices"
	ResourceStores    Resource = "stores"
	ResourceUsers     Resource = "users"
)

// Singular is the key mutating requests wrap their payload in.
func (r Resource) Singular() string {
	return strings.TrimSuffix(string(r), "s")
}

// ParseResource validates a collection name.
func ParseResource(name string) (Resource, bool) {
	switch r := Resource(strings.ToLower(name)); r {
	case ResourceProducts, ResourceVendors, ResourceCustomers, ResourcePurchases, ResourceInvoices, ResourceStores, ResourceUsers:
		return r, true
	default:
		return "", false
	}
}

// TokenSource supplies the bearer token for authenticated calls.
type TokenSource interface {
	Token() string
}

// Client exposes the billing API operations used by the application.
type Client interface {
	Login(ctx context.Context, creds models.Credentials) (*models.LoginResponse, error)
	CheckOnboarding(ctx context.Context) (*models.OnboardingStatus, error)
	Onboard(ctx context.Context, req models.OnboardRequest) (*models.LoginResponse, error)

	ListStores(ctx context.Context) ([]models.Store, error)
	ListProducts(ctx context.Context, storeID string) ([]models.Product, error)
	CreateProduct(ctx context.Context, product models.Product) (*models.Product, error)
	ListVendors(ctx context.Context, storeID string) ([]models.Vendor, error)
	CreateVendor(ctx context.Context, vendor models.Vendor) (*models.Vendor, error)
	ListCustomers(ctx context.Context, storeID string) ([]models.Customer, error)
	CreateCustomer(ctx context.Context, customer models.Customer) (*models.Customer, error)
	ListInvoices(ctx context.Context, storeID string) ([]models.Invoice, error)
	CreateInvoice(ctx context.Context, invoice models.Invoice) (*models.Invoice, error)
	ListPurchases(ctx context.Context, storeID string) ([]models.Purchase, error)
	CreatePurchase(ctx context.Context, purchase models.Purchase) (*models.Purchase, error)
	ListUsers(ctx context.Context, storeID string) ([]models.User, error)
	CreateUser(ctx context.Context, user models.UserInput) (*models.User, error)
	Delete(ctx context.Context, resource Resource, id string) error
	Dashboard(ctx context.Context, storeID string) (*models.DashboardSummary, error)
}

// APIClient is a resty-backed implementation of Client.
type APIClient struct {
	httpClient *resty.Client

	mu     sync.RWMutex
	tokens TokenSource
}

// NewClient builds a billing API client using the provided configuration values.
func NewClient(cfg config.APIConfig) *APIClient {
	c := &APIClient{}

	restyClient := resty.New()
	restyClient.
		SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetTimeout(cfg.Timeout).
		OnBeforeRequest(func(_ *resty.Client, r *resty.Request) error {
			r.SetHeader("X-Request-ID", uuid.NewString())
			if token := c.token(); token != "" {
				r.SetAuthToken(token)
			}
			return nil
		})

	c.httpClient = restyClient
	return c
}

// SetTokenSource wires the source of the bearer token.
func (c *APIClient) SetTokenSource(src TokenSource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens = src
}

func (c *APIClient) token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.tokens == nil {
		return ""
	}
	return c.tokens.Token()
}

func (c *APIClient) Login(ctx context.Context, creds models.Credentials) (*models.LoginResponse, error) {
	out := new(models.LoginResponse)
	if err := c.send(ctx, resty.MethodPost, "login", map[string]any{"user": creds}, nil, out); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	return out, nil
}

func (c *APIClient) CheckOnboarding(ctx context.Context) (*models.OnboardingStatus, error) {
	out := new(models.OnboardingStatus)
	if err := c.send(ctx, resty.MethodGet, "check_onboarding", nil, nil, out); err != nil {
		return nil, fmt.Errorf("check onboarding: %w", err)
	}
	return out, nil
}

func (c *APIClient) Onboard(ctx context.Context, req models.OnboardRequest) (*models.LoginResponse, error) {
	out := new(models.LoginResponse)
	if err := c.send(ctx, resty.MethodPost, "onboard", map[string]any{"onboard": req}, nil, out); err != nil {
		return nil, fmt.Errorf("onboard: %w", err)
	}
	return out, nil
}

func (c *APIClient) ListStores(ctx context.Context) ([]models.Store, error) {
	return list[models.Store](ctx, c, ResourceStores, "")
}

func (c *APIClient) ListProducts(ctx context.Context, storeID string) ([]models.Product, error) {
	return list[models.Product](ctx, c, ResourceProducts, storeID)
}

func (c *APIClient) CreateProduct(ctx context.Context, product models.Product) (*models.Product, error) {
	return create[models.Product](ctx, c, ResourceProducts, product)
}

func (c *APIClient) ListVendors(ctx context.Context, storeID string) ([]models.Vendor, error) {
	return list[models.Vendor](ctx, c, ResourceVendors, storeID)
}

func (c *APIClient) CreateVendor(ctx context.Context, vendor models.Vendor) (*models.Vendor, error) {
	return create[models.Vendor](ctx, c, ResourceVendors, vendor)
}

func (c *APIClient) ListCustomers(ctx context.Context, storeID string) ([]models.Customer, error) {
	return list[models.Customer](ctx, c, ResourceCustomers, storeID)
}

func (c *APIClient) CreateCustomer(ctx context.Context, customer models.Customer) (*models.Customer, error) {
	return create[models.Customer](ctx, c, ResourceCustomers, customer)
}

func (c *APIClient) ListInvoices(ctx context.Context, storeID string) ([]models.Invoice, error) {
	return list[models.Invoice](ctx, c, ResourceInvoices, storeID)
}

func (c *APIClient) CreateInvoice(ctx context.Context, invoice models.Invoice) (*models.Invoice, error) {
	return create[models.Invoice](ctx, c, ResourceInvoices, invoice)
}

func (c *APIClient) ListPurchases(ctx context.Context, storeID string) ([]models.Purchase, error) {
	return list[models.Purchase](ctx, c, ResourcePurchases, storeID)
}

func (c *APIClient) CreatePurchase(ctx context.Context, purchase models.Purchase) (*models.Purchase, error) {
	return create[models.Purchase](ctx, c, ResourcePurchases, purchase)
}

func (c *APIClient) ListUsers(ctx context.Context, storeID string) ([]models.User, error) {
	return list[models.User](ctx, c, ResourceUsers, storeID)
}

func (c *APIClient) CreateUser(ctx context.Context, user models.UserInput) (*models.User, error) {
	return create[models.User](ctx, c, ResourceUsers, user)
}

func (c *APIClient) Delete(ctx context.Context, resource Resource, id string) error {
	if id == "" {
		return fmt.Errorf("delete %s: id must not be empty", resource.Singular())
	}
	if err := c.send(ctx, resty.MethodDelete, fmt.Sprintf("%s/%s", resource, id), nil, nil, nil); err != nil {
		return fmt.Errorf("delete %s %s: %w", resource.Singular(), id, err)
	}
	return nil
}

func (c *APIClient) Dashboard(ctx context.Context, storeID string) (*models.DashboardSummary, error) {
	raw := new(json.RawMessage)
	if err := c.send(ctx, resty.MethodGet, "dashboard", nil, storeQuery(storeID), raw); err != nil {
		return nil, fmt.Errorf("load dashboard: %w", err)
	}
	out := new(models.DashboardSummary)
	if err := decodeObject(*raw, "dashboard", out); err != nil {
		return nil, fmt.Errorf("decode dashboard: %w", err)
	}
	if out.StoreID == "" {
		out.StoreID = storeID
	}
	return out, nil
}

func list[T any](ctx context.Context, c *APIClient, resource Resource, storeID string) ([]T, error) {
	raw := new(json.RawMessage)
	if err := c.send(ctx, resty.MethodGet, string(resource), nil, storeQuery(storeID), raw); err != nil {
		return nil, fmt.Errorf("list %s: %w", resource, err)
	}

	var items []T
	if err := decodeList(*raw, string(resource), &items); err != nil {
		return nil, fmt.Errorf("decode %s: %w", resource, err)
	}
	return items, nil
}

func create[T any](ctx context.Context, c *APIClient, resource Resource, payload any) (*T, error) {
	key := resource.Singular()
	raw := new(json.RawMessage)
	if err := c.send(ctx, resty.MethodPost, string(resource), map[string]any{key: payload}, nil, raw); err != nil {
		return nil, fmt.Errorf("create %s: %w", key, err)
	}

	out := new(T)
	if err := decodeObject(*raw, key, out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return out, nil
}

func (c *APIClient) send(ctx context.Context, method, path string, body any, query map[string]string, out any) error {
	apiErr := new(errorBody)
	req := c.httpClient.R().
		SetContext(ctx).
		SetError(apiErr)
	if body != nil {
		req.SetBody(body)
	}
	if len(query) > 0 {
		req.SetQueryParams(query)
	}
	if out != nil {
		req.SetResult(out)
	}

	resp, err := req.Execute(method, path)
	if resp != nil && resp.IsError() {
		return newAPIError(resp.StatusCode(), apiErr)
	}
	return err
}

func storeQuery(storeID string) map[string]string {
	if storeID == "" {
		return nil
	}
	return map[string]string{"store_id": storeID}
}

// decodeList accepts either a bare array or an object keyed by the collection name.
func decodeList(raw json.RawMessage, key string, out any) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if trimmed[0] == '[' {
		return json.Unmarshal(trimmed, out)
	}

	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &wrapped); err != nil {
		return err
	}
	inner, ok := wrapped[key]
	if !ok {
		inner, ok = wrapped["data"]
	}
	if !ok {
		return fmt.Errorf("response has no %q collection", key)
	}
	return json.Unmarshal(inner, out)
}

// decodeObject accepts either a bare object or one wrapped in the singular key.
func decodeObject(raw json.RawMessage, key string, out any) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &wrapped); err == nil {
		if inner, ok := wrapped[key]; ok && len(wrapped) == 1 {
			return json.Unmarshal(inner, out)
		}
	}
	return json.Unmarshal(trimmed, out)
}
