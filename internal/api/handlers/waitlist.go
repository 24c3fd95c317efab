package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pawsuite/resort-api/internal/waitlist"
)

type joinWaitlistRequest struct {
	CustomerID   string `json:"customerId" binding:"required"`
	ServiceID    string `json:"serviceId" binding:"required"`
	StartDate    string `json:"startDate" binding:"required"`
	EndDate      string `json:"endDate" binding:"required"`
	NumberOfPets int    `json:"numberOfPets" binding:"required,min=1"`
	ContactEmail string `json:"contactEmail" binding:"required,email"`
	ContactPhone string `json:"contactPhone" binding:"required"`
	Notes        string `json:"notes"`
}

// JoinWaitlist enrolls a customer for a contended service/date bucket.
// Positions are FIFO: the first request for a range gets first refusal when
// a slot frees up.
//
//	POST /api/v1/waitlist
func (h *Handler) JoinWaitlist(c *gin.Context) {
	tenantID := c.GetString("tenant_id")

	var req joinWaitlistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	start, err := parseDate(req.StartDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid startDate"})
		return
	}
	end, err := parseDate(req.EndDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid endDate"})
		return
	}

	entry, err := h.waitlist.Join(c.Request.Context(), &waitlist.JoinRequest{
		TenantID:     tenantID,
		CustomerID:   req.CustomerID,
		ServiceID:    req.ServiceID,
		StartDate:    start,
		EndDate:      end,
		NumberOfPets: req.NumberOfPets,
		ContactEmail: req.ContactEmail,
		ContactPhone: req.ContactPhone,
		Notes:        req.Notes,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	success(c, http.StatusCreated, entry)
}

// ListWaitlist returns the open (waiting or notified) entries for a service.
//
//	GET /api/v1/waitlist?serviceId=
func (h *Handler) ListWaitlist(c *gin.Context) {
	tenantID := c.GetString("tenant_id")

	entries, err := h.waitlist.List(c.Request.Context(), tenantID, c.Query("serviceId"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	success(c, http.StatusOK, gin.H{"entries": entries})
}

// ConvertWaitlistEntry marks a notified entry as converted after the customer
// confirmed and their reservation was created.
//
//	POST /api/v1/waitlist/:id/convert
func (h *Handler) ConvertWaitlistEntry(c *gin.Context) {
	tenantID := c.GetString("tenant_id")

	if err := h.waitlist.Convert(c.Request.Context(), c.Param("id"), tenantID); err != nil {
		h.respondError(c, err)
		return
	}

	success(c, http.StatusOK, gin.H{"converted": true})
}
