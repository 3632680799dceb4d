package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mamadbah2/billdesk/internal/service/drafting"
)

// Totals previews the derived totals of a form. Malformed amounts count as zero.
func (h *Handler) Totals(c *gin.Context) {
	var form drafting.Form
	if err := c.ShouldBindJSON(&form); err != nil {
		h.badRequest(c, "totals", err)
		return
	}
	c.JSON(http.StatusOK, drafting.PreviewForm(form))
}

// InvoiceForm loads customers and products for the invoice form.
func (h *Handler) InvoiceForm(c *gin.Context) {
	form, err := h.workspace.LoadInvoiceForm(c.Request.Context())
	if err != nil {
		h.fail(c, "load invoice form", err)
		return
	}
	c.JSON(http.StatusOK, form)
}

// PurchaseForm loads vendors and products for the purchase form.
func (h *Handler) PurchaseForm(c *gin.Context) {
	form, err := h.workspace.LoadPurchaseForm(c.Request.Context())
	if err != nil {
		h.fail(c, "load purchase form", err)
		return
	}
	c.JSON(http.StatusOK, form)
}

// SubmitInvoice validates and creates an invoice.
func (h *Handler) SubmitInvoice(c *gin.Context) {
	var draft drafting.InvoiceDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		h.badRequest(c, "invoice", err)
		return
	}

	invoice, err := h.drafting.SubmitInvoice(c.Request.Context(), draft)
	if err != nil {
		h.fail(c, "submit invoice", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"invoice": invoice})
}

// SubmitPurchase validates and creates a purchase.
func (h *Handler) SubmitPurchase(c *gin.Context) {
	var draft drafting.PurchaseDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		h.badRequest(c, "purchase", err)
		return
	}

	purchase, err := h.drafting.SubmitPurchase(c.Request.Context(), draft)
	if err != nil {
		h.fail(c, "submit purchase", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"purchase": purchase})
}

// Dashboard returns the current store's dashboard.
func (h *Handler) Dashboard(c *gin.Context) {
	summary, err := h.reporting.Dashboard(c.Request.Context())
	if err != nil {
		h.fail(c, "load dashboard", err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// SnapshotDashboard exports the dashboard on demand.
func (h *Handler) SnapshotDashboard(c *gin.Context) {
	snapshot, err := h.reporting.SnapshotDashboard(c.Request.Context())
	if err != nil && snapshot == nil {
		h.fail(c, "snapshot dashboard", err)
		return
	}
	if err != nil {
		h.logger.Warn("dashboard export incomplete")
		c.JSON(http.StatusMultiStatus, gin.H{"snapshot": snapshot, "error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, snapshot)
}
