package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/mamadbah2/billdesk/internal/domain/models"
	"github.com/mamadbah2/billdesk/internal/events"
	"github.com/mamadbah2/billdesk/internal/service/drafting"
	"github.com/mamadbah2/billdesk/internal/service/reporting"
	"github.com/mamadbah2/billdesk/internal/service/workspace"
	"github.com/mamadbah2/billdesk/internal/session"
	"github.com/mamadbah2/billdesk/pkg/clients/billingapi"
)

// SessionService is the session state machine as seen by the HTTP layer.
type SessionService interface {
	Snapshot() session.Snapshot
	Login(ctx context.Context, creds models.Credentials) (session.Snapshot, error)
	Logout(ctx context.Context) session.Snapshot
	FetchAvailableStores(ctx context.Context) (session.Snapshot, error)
	SelectStoreByID(ctx context.Context, id string) (session.Snapshot, error)
}

// OnboardingAPI covers the unauthenticated onboarding endpoints.
type OnboardingAPI interface {
	CheckOnboarding(ctx context.Context) (*models.OnboardingStatus, error)
	Onboard(ctx context.Context, req models.OnboardRequest) (*models.LoginResponse, error)
}

// WorkspaceService serves store-scoped lists, creates and deletions.
type WorkspaceService interface {
	List(ctx context.Context, resource billingapi.Resource, refresh bool) (any, error)
	LoadInvoiceForm(ctx context.Context) (workspace.InvoiceForm, error)
	LoadPurchaseForm(ctx context.Context) (workspace.PurchaseForm, error)
	CreateProduct(ctx context.Context, product models.Product) (*models.Product, error)
	CreateVendor(ctx context.Context, vendor models.Vendor) (*models.Vendor, error)
	CreateCustomer(ctx context.Context, customer models.Customer) (*models.Customer, error)
	RequestDelete(resource billingapi.Resource, id string) (workspace.PendingDelete, error)
	PendingDeletion() (workspace.PendingDelete, bool)
	ConfirmDelete(ctx context.Context) (workspace.PendingDelete, error)
	CancelDelete()
}

// DraftingService submits documents and users.
type DraftingService interface {
	SubmitInvoice(ctx context.Context, draft drafting.InvoiceDraft) (*models.Invoice, error)
	SubmitPurchase(ctx context.Context, draft drafting.PurchaseDraft) (*models.Purchase, error)
	CreateUser(ctx context.Context, input models.UserInput) (*models.User, error)
}

// ReportingService loads and exports the dashboard.
type ReportingService interface {
	Dashboard(ctx context.Context) (*models.DashboardSummary, error)
	SnapshotDashboard(ctx context.Context) (*models.DashboardSnapshot, error)
}

// Handler adapts the services to gin.
type Handler struct {
	session    SessionService
	onboarding OnboardingAPI
	workspace  WorkspaceService
	drafting   DraftingService
	reporting  ReportingService
	logger     *zap.Logger
}

// NewHandler constructs the HTTP handler adapter.
func NewHandler(sess SessionService, onboarding OnboardingAPI, ws WorkspaceService, drafts DraftingService, reports ReportingService, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		session:    sess,
		onboarding: onboarding,
		workspace:  ws,
		drafting:   drafts,
		reporting:  reports,
		logger:     logger,
	}
}

// fail maps an error onto a status code and a user-visible message.
func (h *Handler) fail(c *gin.Context, op string, err error) {
	status := http.StatusBadGateway
	body := gin.H{"error": billingapi.Message(err)}

	var (
		apiErr *billingapi.APIError
		verr   *drafting.ValidationError
	)
	switch {
	case errors.As(err, &verr):
		status = http.StatusUnprocessableEntity
		body = gin.H{"error": "validation failed", "errors": verr.Fields}
	case errors.Is(err, drafting.ErrPasswordMismatch):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, session.ErrNotAuthenticated):
		status = http.StatusUnauthorized
	case errors.Is(err, session.ErrInvalidStore):
		status = http.StatusBadRequest
	case errors.Is(err, session.ErrLoginInProgress),
		errors.Is(err, session.ErrLoginCancelled),
		errors.Is(err, events.ErrStaleStore),
		errors.Is(err, workspace.ErrNoStoreSelected),
		errors.Is(err, drafting.ErrNoStoreSelected),
		errors.Is(err, reporting.ErrNoStoreSelected):
		status = http.StatusConflict
	case errors.Is(err, workspace.ErrUnsupportedResource),
		errors.Is(err, workspace.ErrNoPendingDelete):
		status = http.StatusNotFound
	case errors.As(err, &apiErr):
		status = apiErr.StatusCode
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error(op+" failed", zap.Error(err))
	} else {
		h.logger.Warn(op+" rejected", zap.Int("status", status), zap.Error(err))
	}
	c.JSON(status, body)
}

// badRequest answers a failed bind. Binding tag failures are reported per
// field like any other validation error.
func (h *Handler) badRequest(c *gin.Context, op string, err error) {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		h.fail(c, op, drafting.FromBinding(err))
		return
	}
	h.logger.Warn("invalid "+op+" payload", zap.Error(err))
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
}
