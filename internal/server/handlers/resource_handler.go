package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mamadbah2/billdesk/internal/domain/models"
	"github.com/mamadbah2/billdesk/internal/service/workspace"
	"github.com/mamadbah2/billdesk/pkg/clients/billingapi"
)

func (h *Handler) resource(c *gin.Context) (billingapi.Resource, bool) {
	resource, ok := billingapi.ParseResource(c.Param("resource"))
	if !ok || resource == billingapi.ResourceStores {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown resource"})
		return "", false
	}
	return resource, true
}

// List returns a store-scoped collection.
func (h *Handler) List(c *gin.Context) {
	resource, ok := h.resource(c)
	if !ok {
		return
	}

	items, err := h.workspace.List(c.Request.Context(), resource, c.Query("refresh") == "true")
	if err != nil {
		h.fail(c, "list "+string(resource), err)
		return
	}
	c.JSON(http.StatusOK, gin.H{string(resource): items})
}

// Create adds a product, vendor, customer or user. Invoices and purchases go
// through their own endpoints so their totals are derived here.
func (h *Handler) Create(c *gin.Context) {
	resource, ok := h.resource(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	op := "create " + resource.Singular()

	var (
		created any
		err     error
	)
	switch resource {
	case billingapi.ResourceProducts:
		var in models.Product
		if err := c.ShouldBindJSON(&in); err != nil {
			h.badRequest(c, op, err)
			return
		}
		created, err = h.workspace.CreateProduct(ctx, in)
	case billingapi.ResourceVendors:
		var in models.Vendor
		if err := c.ShouldBindJSON(&in); err != nil {
			h.badRequest(c, op, err)
			return
		}
		created, err = h.workspace.CreateVendor(ctx, in)
	case billingapi.ResourceCustomers:
		var in models.Customer
		if err := c.ShouldBindJSON(&in); err != nil {
			h.badRequest(c, op, err)
			return
		}
		created, err = h.workspace.CreateCustomer(ctx, in)
	case billingapi.ResourceUsers:
		var in models.UserInput
		if err := c.ShouldBindJSON(&in); err != nil {
			h.badRequest(c, op, err)
			return
		}
		created, err = h.drafting.CreateUser(ctx, in)
	default:
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "use the dedicated endpoint for " + string(resource)})
		return
	}

	if err != nil {
		h.fail(c, op, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{resource.Singular(): created})
}

// RequestDelete opens a delete confirmation.
func (h *Handler) RequestDelete(c *gin.Context) {
	resource, ok := h.resource(c)
	if !ok {
		return
	}

	pending, err := h.workspace.RequestDelete(resource, c.Param("id"))
	if err != nil {
		h.fail(c, "request delete", err)
		return
	}
	c.JSON(http.StatusAccepted, pending)
}

// PendingDeletion returns the open delete confirmation.
func (h *Handler) PendingDeletion(c *gin.Context) {
	pending, ok := h.workspace.PendingDeletion()
	if !ok {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, pending)
}

// ConfirmDelete executes the pending delete. On failure the confirmation
// stays open and is returned alongside the error.
func (h *Handler) ConfirmDelete(c *gin.Context) {
	pending, err := h.workspace.ConfirmDelete(c.Request.Context())
	if err != nil {
		if errors.Is(err, workspace.ErrNoPendingDelete) || pending.ID == "" {
			h.fail(c, "confirm delete", err)
			return
		}
		status := http.StatusBadGateway
		var apiErr *billingapi.APIError
		if errors.As(err, &apiErr) {
			status = apiErr.StatusCode
		}
		c.JSON(status, gin.H{"error": pending.Error, "pending": pending})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": pending})
}

// CancelDelete closes the confirmation.
func (h *Handler) CancelDelete(c *gin.Context) {
	h.workspace.CancelDelete()
	c.Status(http.StatusNoContent)
}
