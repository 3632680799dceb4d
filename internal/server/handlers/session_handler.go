package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mamadbah2/billdesk/internal/domain/models"
)

// Session returns the current session snapshot.
func (h *Handler) Session(c *gin.Context) {
	c.JSON(http.StatusOK, h.session.Snapshot())
}

// Login checks credentials against the billing API.
func (h *Handler) Login(c *gin.Context) {
	var creds models.Credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		h.badRequest(c, "login", err)
		return
	}

	snap, err := h.session.Login(c.Request.Context(), creds)
	if err != nil {
		h.fail(c, "login", err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// Logout clears the session.
func (h *Handler) Logout(c *gin.Context) {
	c.JSON(http.StatusOK, h.session.Logout(c.Request.Context()))
}

// Stores fetches the stores the user may act on.
func (h *Handler) Stores(c *gin.Context) {
	snap, err := h.session.FetchAvailableStores(c.Request.Context())
	if err != nil {
		h.fail(c, "fetch stores", err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

type selectStoreRequest struct {
	StoreID string `json:"store_id" binding:"required"`
}

// SelectStore switches the current store.
func (h *Handler) SelectStore(c *gin.Context) {
	var req selectStoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "select store", err)
		return
	}

	snap, err := h.session.SelectStoreByID(c.Request.Context(), req.StoreID)
	if err != nil {
		h.fail(c, "select store", err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// Onboarding reports whether the organization is onboarded.
func (h *Handler) Onboarding(c *gin.Context) {
	status, err := h.onboarding.CheckOnboarding(c.Request.Context())
	if err != nil {
		h.fail(c, "check onboarding", err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// Onboard creates the organization, its first store and its admin.
func (h *Handler) Onboard(c *gin.Context) {
	var req models.OnboardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "onboard", err)
		return
	}

	resp, err := h.onboarding.Onboard(c.Request.Context(), req)
	if err != nil {
		h.fail(c, "onboard", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"onboarded": true, "user": resp.User})
}
