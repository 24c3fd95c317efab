package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ListResources returns the tenant's active bookable units.
//
//	GET /api/v1/resources
func (h *Handler) ListResources(c *gin.Context) {
	tenantID := c.GetString("tenant_id")

	resources, err := h.resources.ResourcesByTenant(c.Request.Context(), tenantID)
	if err != nil {
		h.logger.Error("Failed to list resources", zap.Error(err), zap.String("tenant_id", tenantID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	success(c, http.StatusOK, gin.H{"resources": resources})
}
