package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pawsuite/resort-api/internal/availability"
	"github.com/pawsuite/resort-api/internal/db"
)

type createReservationRequest struct {
	ResourceID string `json:"resourceId" binding:"required"`
	CustomerID string `json:"customerId" binding:"required"`
	PetID      string `json:"petId" binding:"required"`
	ServiceID  string `json:"serviceId" binding:"required"`
	StartDate  string `json:"startDate" binding:"required"`
	EndDate    string `json:"endDate" binding:"required"`
	Status     string `json:"status" binding:"omitempty,oneof=pending confirmed pending_payment"`
	Notes      string `json:"notes"`
}

// CreateReservation is the authoritative booking write. The overlap predicate
// runs again inside the insert transaction, so a stale availability read can
// never produce a double booking; conflicts come back as 409 with the
// blocking reservations attached.
func (h *Handler) CreateReservation(c *gin.Context) {
	tenantID := c.GetString("tenant_id")

	var req createReservationRequest
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
	if end.Before(start) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "endDate must not be before startDate"})
		return
	}

	status := db.StatusPending
	if req.Status != "" {
		status = db.ReservationStatus(req.Status)
	}

	reservation := &db.Reservation{
		ID:         uuid.New().String(),
		TenantID:   tenantID,
		ResourceID: req.ResourceID,
		CustomerID: req.CustomerID,
		PetID:      req.PetID,
		ServiceID:  req.ServiceID,
		StartDate:  start,
		EndDate:    end,
		Status:     status,
		Notes:      req.Notes,
	}

	conflicts, err := h.reservations.CreateReservation(c.Request.Context(), reservation)
	if errors.Is(err, db.ErrReservationConflict) {
		if h.metrics != nil {
			h.metrics.RecordReservationConflict(tenantID)
		}
		c.JSON(http.StatusConflict, gin.H{
			"error":                 "Resource is already reserved for the requested dates",
			"occupyingReservations": conflictSummaries(conflicts),
		})
		return
	}
	if err != nil {
		h.logger.Error("Failed to create reservation", zap.Error(err), zap.String("tenant_id", tenantID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create reservation"})
		return
	}

	h.logger.Info("Reservation created",
		zap.String("reservation_id", reservation.ID),
		zap.String("tenant_id", tenantID),
		zap.String("resource_id", reservation.ResourceID),
	)
	if h.metrics != nil {
		h.metrics.RecordReservationCreated(tenantID)
	}

	success(c, http.StatusCreated, reservation)
}

func (h *Handler) GetReservation(c *gin.Context) {
	tenantID := c.GetString("tenant_id")

	reservation, err := h.reservations.GetReservation(c.Request.Context(), c.Param("id"), tenantID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	success(c, http.StatusOK, reservation)
}

func (h *Handler) ListReservations(c *gin.Context) {
	tenantID := c.GetString("tenant_id")

	// Pagination
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	offset := (page - 1) * limit

	reservations, err := h.reservations.GetReservationsByTenant(c.Request.Context(), tenantID, limit, offset)
	if err != nil {
		h.logger.Error("Failed to list reservations", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	total, _ := h.reservations.CountReservationsByTenant(c.Request.Context(), tenantID)

	success(c, http.StatusOK, gin.H{
		"reservations": reservations,
		"pagination": gin.H{
			"page":  page,
			"limit": limit,
			"total": total,
		},
	})
}

// CancelReservation transitions a reservation to cancelled and offers the
// freed slot to the waitlist. Promotion failure is logged, not surfaced: the
// cancellation itself already committed, and the expiry sweep will retry the
// bucket.
func (h *Handler) CancelReservation(c *gin.Context) {
	reservation, ok := h.transition(c, db.StatusCancelled)
	if !ok {
		return
	}

	if h.waitlist != nil {
		if err := h.waitlist.HandleCancellation(c.Request.Context(), reservation); err != nil {
			h.logger.Error("Waitlist promotion after cancellation failed",
				zap.Error(err),
				zap.String("reservation_id", reservation.ID),
			)
		}
	}

	success(c, http.StatusOK, reservation)
}

func (h *Handler) CheckInReservation(c *gin.Context) {
	if reservation, ok := h.transition(c, db.StatusCheckedIn); ok {
		success(c, http.StatusOK, reservation)
	}
}

func (h *Handler) CheckOutReservation(c *gin.Context) {
	if reservation, ok := h.transition(c, db.StatusCheckedOut); ok {
		success(c, http.StatusOK, reservation)
	}
}

// transition loads the reservation, validates the lifecycle step, and
// persists the new status. The update is a compare-and-swap against the
// status just validated, so two concurrent transitions (say cancel and
// check-in both reading confirmed) cannot both win; the loser gets a 409.
// Store failures on this write path always surface.
func (h *Handler) transition(c *gin.Context, next db.ReservationStatus) (*db.Reservation, bool) {
	tenantID := c.GetString("tenant_id")
	id := c.Param("id")

	reservation, err := h.reservations.GetReservation(c.Request.Context(), id, tenantID)
	if err != nil {
		h.respondError(c, err)
		return nil, false
	}

	if !reservation.Status.CanTransitionTo(next) {
		c.JSON(http.StatusConflict, gin.H{
			"error": "Cannot move reservation from " + string(reservation.Status) + " to " + string(next),
		})
		return nil, false
	}

	err = h.reservations.UpdateReservationStatus(c.Request.Context(), id, tenantID, reservation.Status, next)
	if errors.Is(err, db.ErrInvalidTransition) {
		c.JSON(http.StatusConflict, gin.H{
			"error": "Reservation status changed concurrently, reload and retry",
		})
		return nil, false
	}
	if err != nil {
		h.logger.Error("Failed to update reservation status",
			zap.Error(err),
			zap.String("reservation_id", id),
			zap.String("status", string(next)),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update reservation"})
		return nil, false
	}

	reservation.Status = next
	reservation.UpdatedAt = time.Now()
	return reservation, true
}

func conflictSummaries(conflicts []*db.Reservation) []availability.Conflict {
	out := make([]availability.Conflict, 0, len(conflicts))
	for _, res := range conflicts {
		out = append(out, availability.Conflict{
			ReservationID: res.ID,
			CustomerID:    res.CustomerID,
			PetID:         res.PetID,
			ServiceID:     res.ServiceID,
			StartDate:     res.StartDate,
			EndDate:       res.EndDate,
			Status:        res.Status,
		})
	}
	return out
}
