package drafting

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mamadbah2/billdesk/internal/billing"
	"github.com/mamadbah2/billdesk/internal/domain/models"
	"github.com/mamadbah2/billdesk/internal/session"
	"github.com/mamadbah2/billdesk/pkg/clients/billingapi"
)

// API is the subset of the billing client used to submit forms.
type API interface {
	CreateInvoice(ctx context.Context, invoice models.Invoice) (*models.Invoice, error)
	CreatePurchase(ctx context.Context, purchase models.Purchase) (*models.Purchase, error)
	CreateUser(ctx context.Context, user models.UserInput) (*models.User, error)
}

// Session is the read side of the session manager.
type Session interface {
	Snapshot() session.Snapshot
}

// Invalidator drops cached lists after a successful submission.
type Invalidator interface {
	Invalidate(resource billingapi.Resource)
}

// ErrNoStoreSelected is returned when a document is submitted without a store.
var ErrNoStoreSelected = errors.New("drafting: no store selected")

// Form is the billing part shared by invoices and purchases.
type Form struct {
	Lines    []billing.LineItem   `json:"lines"`
	Discount billing.DiscountSpec `json:"discount"`
	Roundoff billing.RoundoffSpec `json:"roundoff"`
}

// InvoiceDraft is an invoice form before submission.
type InvoiceDraft struct {
	Form
	CustomerID string `json:"customer_id"`
	Date       string `json:"invoice_date"`
	Notes      string `json:"notes"`
}

// PurchaseDraft is a purchase form before submission.
type PurchaseDraft struct {
	Form
	VendorID string `json:"vendor_id"`
	Date     string `json:"purchase_date"`
	Notes    string `json:"notes"`
}

// Preview is what a form shows while it is being edited.
type Preview struct {
	Totals          billing.FormattedTotals `json:"totals"`
	IncompleteLines []int                   `json:"incomplete_lines"`
	CanSubmit       bool                    `json:"can_submit"`
}

// PreviewForm computes the live totals of a form.
func PreviewForm(form Form) Preview {
	incomplete := billing.IncompleteLines(form.Lines)
	if incomplete == nil {
		incomplete = []int{}
	}
	return Preview{
		Totals:          billing.Compute(form.Lines, form.Discount, form.Roundoff).Formatted(),
		IncompleteLines: incomplete,
		CanSubmit:       billing.CanSubmit(form.Lines),
	}
}

// Service validates and submits invoices, purchases and users.
type Service struct {
	api         API
	session     Session
	invalidator Invalidator
	logger      *zap.Logger
}

// NewService wires a drafting service. invalidator may be nil.
func NewService(api API, sess Session, invalidator Invalidator, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{api: api, session: sess, invalidator: invalidator, logger: logger}
}

// SubmitInvoice validates the draft, derives its totals and creates it in the
// current store.
func (s *Service) SubmitInvoice(ctx context.Context, draft InvoiceDraft) (*models.Invoice, error) {
	v := &ValidationError{}
	v.Require("customer_id", draft.CustomerID)
	validateForm(v, draft.Form)
	if err := v.Err(); err != nil {
		return nil, err
	}

	storeID, err := s.storeID()
	if err != nil {
		return nil, err
	}

	totals := billing.Compute(draft.Lines, draft.Discount, draft.Roundoff).Formatted()
	invoice := models.Invoice{
		StoreID:        storeID,
		CustomerID:     draft.CustomerID,
		Date:           draft.Date,
		Items:          documentLines(draft.Lines),
		DiscountType:   string(draft.Discount.Type),
		DiscountValue:  strings.TrimSpace(draft.Discount.Value),
		DiscountAmount: totals.DiscountAmount,
		Roundoff:       totals.Roundoff,
		Subtotal:       totals.Subtotal,
		GrandTotal:     totals.GrandTotal,
		Notes:          draft.Notes,
	}

	created, err := s.api.CreateInvoice(ctx, invoice)
	if err != nil {
		return nil, err
	}

	s.invalidate(billingapi.ResourceInvoices, billingapi.ResourceProducts)
	s.logger.Info("invoice submitted",
		zap.String("store_id", storeID),
		zap.String("customer_id", draft.CustomerID),
		zap.String("grand_total", totals.GrandTotal))
	return created, nil
}

// SubmitPurchase validates the draft, derives its totals and creates it in the
// current store.
func (s *Service) SubmitPurchase(ctx context.Context, draft PurchaseDraft) (*models.Purchase, error) {
	v := &ValidationError{}
	v.Require("vendor_id", draft.VendorID)
	validateForm(v, draft.Form)
	if err := v.Err(); err != nil {
		return nil, err
	}

	storeID, err := s.storeID()
	if err != nil {
		return nil, err
	}

	totals := billing.Compute(draft.Lines, draft.Discount, draft.Roundoff).Formatted()
	purchase := models.Purchase{
		StoreID:        storeID,
		VendorID:       draft.VendorID,
		Date:           draft.Date,
		Items:          documentLines(draft.Lines),
		DiscountType:   string(draft.Discount.Type),
		DiscountValue:  strings.TrimSpace(draft.Discount.Value),
		DiscountAmount: totals.DiscountAmount,
		Roundoff:       totals.Roundoff,
		Subtotal:       totals.Subtotal,
		GrandTotal:     totals.GrandTotal,
		Notes:          draft.Notes,
	}

	created, err := s.api.CreatePurchase(ctx, purchase)
	if err != nil {
		return nil, err
	}

	s.invalidate(billingapi.ResourcePurchases, billingapi.ResourceProducts)
	s.logger.Info("purchase submitted",
		zap.String("store_id", storeID),
		zap.String("vendor_id", draft.VendorID),
		zap.String("grand_total", totals.GrandTotal))
	return created, nil
}

// CreateUser checks the user form locally and creates the user. Without an
// explicit store the user is attached to the current store.
func (s *Service) CreateUser(ctx context.Context, input models.UserInput) (*models.User, error) {
	if err := ValidateStruct(input); err != nil {
		return nil, err
	}

	snap := s.session.Snapshot()
	if !snap.Authenticated() {
		return nil, session.ErrNotAuthenticated
	}
	if input.StoreID == "" {
		input.StoreID = snap.StoreID()
	}

	created, err := s.api.CreateUser(ctx, input)
	if err != nil {
		return nil, err
	}
	s.invalidate(billingapi.ResourceUsers)
	return created, nil
}

func (s *Service) storeID() (string, error) {
	snap := s.session.Snapshot()
	if !snap.Authenticated() {
		return "", session.ErrNotAuthenticated
	}
	if snap.StoreID() == "" {
		return "", ErrNoStoreSelected
	}
	return snap.StoreID(), nil
}

func (s *Service) invalidate(resources ...billingapi.Resource) {
	if s.invalidator == nil {
		return
	}
	for _, r := range resources {
		s.invalidator.Invalidate(r)
	}
}

func validateForm(v *ValidationError, form Form) {
	if !billing.CanSubmit(form.Lines) {
		v.Add("lines", "must include at least one product")
		return
	}
	for i, line := range form.Lines {
		if line.Complete() && line.Quantity <= 0 {
			v.Add(fmt.Sprintf("lines[%d].quantity", i), "must be greater than 0")
		}
	}
}

func documentLines(lines []billing.LineItem) []models.DocumentLine {
	out := make([]models.DocumentLine, 0, len(lines))
	for _, line := range billing.CompleteLines(lines) {
		out = append(out, models.DocumentLine{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: billing.Format(billing.Parse(line.UnitPrice)),
			Total:     billing.Format(line.Total()),
		})
	}
	return out
}
