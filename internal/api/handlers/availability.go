package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pawsuite/resort-api/internal/availability"
)

// GetAvailability answers whether one resource is free over a date or range.
//
//	GET /api/v1/resources/availability?resourceId=&date=|startDate=&endDate=
func (h *Handler) GetAvailability(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	resourceID := c.Query("resourceId")

	query, err := queryFromParams(c.Query("date"), c.Query("startDate"), c.Query("endDate"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.checker.Check(c.Request.Context(), tenantID, resourceID, query)
	if err != nil {
		h.respondError(c, err)
		return
	}

	data := gin.H{
		"resourceId":            result.ResourceID,
		"checkStartDate":        result.Window.Start,
		"checkEndDate":          result.Window.End,
		"isAvailable":           result.IsAvailable,
		"occupyingReservations": result.Occupying,
	}
	if date := c.Query("date"); date != "" {
		data["checkDate"] = date
	}
	if result.Degraded {
		data["degraded"] = true
	}

	success(c, http.StatusOK, data)
}

type batchAvailabilityRequest struct {
	Resources []string `json:"resources" binding:"required"`
	Date      string   `json:"date"`
	StartDate string   `json:"startDate"`
	EndDate   string   `json:"endDate"`
}

// BatchAvailability checks many resources against one window in a single
// store round trip. Output order matches the request's resources order.
//
//	POST /api/v1/resources/availability/batch
func (h *Handler) BatchAvailability(c *gin.Context) {
	tenantID := c.GetString("tenant_id")

	var req batchAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	query, err := queryFromParams(req.Date, req.StartDate, req.EndDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	batch, err := h.checker.CheckBatch(c.Request.Context(), tenantID, req.Resources, query)
	if err != nil {
		h.respondError(c, err)
		return
	}

	data := gin.H{
		"checkStartDate": batch.Window.Start,
		"checkEndDate":   batch.Window.End,
		"resources":      batch.Results,
	}
	if batch.Degraded {
		data["degraded"] = true
	}

	success(c, http.StatusOK, data)
}

// queryFromParams builds an availability query from raw request strings,
// reporting which field failed to parse so the UI can highlight it.
func queryFromParams(date, startDate, endDate string) (availability.Query, error) {
	var q availability.Query

	if date != "" {
		t, err := parseDate(date)
		if err != nil {
			return q, fmt.Errorf("invalid date %q", date)
		}
		q.Date = &t
	}
	if startDate != "" {
		t, err := parseDate(startDate)
		if err != nil {
			return q, fmt.Errorf("invalid startDate %q", startDate)
		}
		q.StartDate = &t
	}
	if endDate != "" {
		t, err := parseDate(endDate)
		if err != nil {
			return q, fmt.Errorf("invalid endDate %q", endDate)
		}
		q.EndDate = &t
	}
	return q, nil
}
