package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type suggestAlternativesRequest struct {
	ServiceID    string `json:"serviceId" binding:"required"`
	StartDate    string `json:"startDate" binding:"required"`
	EndDate      string `json:"endDate" binding:"required"`
	NumberOfPets int    `json:"numberOfPets" binding:"required,min=1"`
	MaxResults   int    `json:"maxResults" binding:"required,min=1"`
}

// SuggestAlternatives ranks nearby free date ranges when the requested one is
// taken. An empty suggestion list is a normal answer; the UI falls back to
// the waitlist offer.
//
//	POST /api/v1/availability/alternatives
func (h *Handler) SuggestAlternatives(c *gin.Context) {
	tenantID := c.GetString("tenant_id")

	var req suggestAlternativesRequest
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

	resp, err := h.advisor.Suggest(c.Request.Context(), tenantID, req.ServiceID, start, end, req.NumberOfPets, req.MaxResults)
	if err != nil {
		h.respondError(c, err)
		return
	}

	success(c, http.StatusOK, resp)
}
