package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pawsuite/resort-api/internal/alternatives"
	"github.com/pawsuite/resort-api/internal/availability"
	"github.com/pawsuite/resort-api/internal/db"
	"github.com/pawsuite/resort-api/internal/metrics"
	"github.com/pawsuite/resort-api/internal/waitlist"
)

// ReservationStore is the write/read reservation surface the handlers need.
// *db.Repository satisfies it; handler tests use fakes.
type ReservationStore interface {
	CreateReservation(ctx context.Context, res *db.Reservation) ([]*db.Reservation, error)
	GetReservation(ctx context.Context, id, tenantID string) (*db.Reservation, error)
	GetReservationsByTenant(ctx context.Context, tenantID string, limit, offset int) ([]*db.Reservation, error)
	CountReservationsByTenant(ctx context.Context, tenantID string) (int, error)
	UpdateReservationStatus(ctx context.Context, id, tenantID string, from, to db.ReservationStatus) error
}

type ResourceStore interface {
	ResourcesByTenant(ctx context.Context, tenantID string) ([]*db.Resource, error)
}

type Pinger interface {
	Ping() error
}

type Handler struct {
	checker      *availability.Checker
	advisor      *alternatives.Advisor
	waitlist     *waitlist.Service
	reservations ReservationStore
	resources    ResourceStore
	health       Pinger
	metrics      *metrics.Collector
	logger       *zap.Logger
}

func NewHandler(
	checker *availability.Checker,
	advisor *alternatives.Advisor,
	waitlistSvc *waitlist.Service,
	reservations ReservationStore,
	resources ResourceStore,
	health Pinger,
	collector *metrics.Collector,
	logger *zap.Logger,
) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		checker:      checker,
		advisor:      advisor,
		waitlist:     waitlistSvc,
		reservations: reservations,
		resources:    resources,
		health:       health,
		metrics:      collector,
		logger:       logger,
	}
}

func success(c *gin.Context, code int, data interface{}) {
	c.JSON(code, gin.H{"status": "success", "data": data})
}

// respondError maps domain errors to HTTP statuses: authorization failures
// surface as 401, validation as 400, everything unexpected as a logged 500.
func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, availability.ErrMissingTenant) || errors.Is(err, waitlist.ErrMissingTenant):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Tenant context required"})
	case errors.Is(err, db.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.Is(err, db.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case isBadRequest(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logger.Error("Internal error", zap.Error(err), zap.String("path", c.FullPath()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

func isBadRequest(err error) bool {
	for _, candidate := range []error{
		availability.ErrMissingResource,
		availability.ErrNoResources,
		availability.ErrInvalidQuery,
		availability.ErrInvalidRange,
		alternatives.ErrMissingService,
		alternatives.ErrInvalidLimit,
		alternatives.ErrInvalidPets,
		waitlist.ErrMissingCustomer,
		waitlist.ErrMissingService,
		waitlist.ErrInvalidContact,
		waitlist.ErrInvalidRange,
		waitlist.ErrInvalidPets,
	} {
		if errors.Is(err, candidate) {
			return true
		}
	}
	return false
}

// parseDate accepts the two formats the UI sends: a plain calendar date or a
// full RFC3339 timestamp. Plain dates resolve in the server's local zone,
// matching the full-day window expansion.
func parseDate(value string) (time.Time, error) {
	if t, err := time.ParseInLocation("2006-01-02", value, time.Local); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, value)
}
