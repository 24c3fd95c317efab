// Package availability implements the advisory resource-availability core:
// overlap detection against the reservation store for one resource or a batch.
// Checks are read-only; the authoritative conflict check runs inside the
// reservation write transaction using the same predicate.
package availability

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/pawsuite/resort-api/internal/db"
	"github.com/pawsuite/resort-api/internal/metrics"
)

// ReservationSource is the read-side store contract the checker depends on.
// *db.Repository satisfies it; tests substitute a fake.
type ReservationSource interface {
	FindOverlapping(ctx context.Context, tenantID string, resourceIDs []string, start, end time.Time, statuses []db.ReservationStatus) ([]*db.Reservation, error)
}

// Conflict is the reservation summary surfaced to staff when a resource is
// occupied: just enough identity to act on, not the whole record.
type Conflict struct {
	ReservationID string               `json:"reservationId"`
	CustomerID    string               `json:"customerId"`
	PetID         string               `json:"petId"`
	ServiceID     string               `json:"serviceId"`
	StartDate     time.Time            `json:"startDate"`
	EndDate       time.Time            `json:"endDate"`
	Status        db.ReservationStatus `json:"status"`
}

type Result struct {
	ResourceID  string     `json:"resourceId"`
	Window      Window     `json:"-"`
	IsAvailable bool       `json:"isAvailable"`
	Occupying   []Conflict `json:"occupyingReservations"`

	// Degraded marks a result produced while the store was unreachable. The
	// resource is reported available so the booking flow stays usable; the
	// write-time re-check still catches any real conflict.
	Degraded bool `json:"degraded,omitempty"`
}

type BatchResult struct {
	Window   Window
	Results  []Result
	Degraded bool
}

type Checker struct {
	source  ReservationSource
	active  []db.ReservationStatus
	logger  *zap.Logger
	metrics *metrics.Collector
}

// NewChecker builds a checker over the given source. A nil status set falls
// back to db.ActiveStatuses; metrics may be nil in tests.
func NewChecker(source ReservationSource, active []db.ReservationStatus, logger *zap.Logger, collector *metrics.Collector) *Checker {
	if active == nil {
		active = db.ActiveStatuses
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Checker{
		source:  source,
		active:  active,
		logger:  logger,
		metrics: collector,
	}
}

// Check reports whether a single resource is free over the query window,
// together with the occupying reservations when it is not.
func (c *Checker) Check(ctx context.Context, tenantID, resourceID string, q Query) (*Result, error) {
	if tenantID == "" {
		return nil, ErrMissingTenant
	}
	if resourceID == "" {
		return nil, ErrMissingResource
	}

	batch, err := c.CheckBatch(ctx, tenantID, []string{resourceID}, q)
	if err != nil {
		return nil, err
	}
	return &batch.Results[0], nil
}

// CheckBatch evaluates many resources against one window with a single store
// query, partitioning the overlap set per resource. Output order matches the
// input resourceIDs order exactly so callers can zip results positionally;
// resources with no reservations at all still appear, available.
func (c *Checker) CheckBatch(ctx context.Context, tenantID string, resourceIDs []string, q Query) (*BatchResult, error) {
	if tenantID == "" {
		return nil, ErrMissingTenant
	}
	if len(resourceIDs) == 0 {
		return nil, ErrNoResources
	}
	for _, id := range resourceIDs {
		if id == "" {
			return nil, ErrMissingResource
		}
	}

	window, err := q.Window()
	if err != nil {
		return nil, err
	}

	overlapping, err := c.source.FindOverlapping(ctx, tenantID, resourceIDs, window.Start, window.End, c.active)
	if err != nil {
		// Degraded mode: a store failure on this read path reports everything
		// available, flagged. Any false "available" is caught by the re-check
		// inside the reservation write transaction.
		c.logger.Warn("availability lookup failed, degrading to available",
			zap.Error(err),
			zap.String("tenant_id", tenantID),
			zap.Int("resource_count", len(resourceIDs)),
		)
		if c.metrics != nil {
			c.metrics.RecordDegradedCheck(tenantID)
		}
		return c.degradedResult(tenantID, resourceIDs, window), nil
	}

	byResource := make(map[string][]Conflict, len(resourceIDs))
	for _, res := range overlapping {
		byResource[res.ResourceID] = append(byResource[res.ResourceID], Conflict{
			ReservationID: res.ID,
			CustomerID:    res.CustomerID,
			PetID:         res.PetID,
			ServiceID:     res.ServiceID,
			StartDate:     res.StartDate,
			EndDate:       res.EndDate,
			Status:        res.Status,
		})
	}

	batch := &BatchResult{Window: window, Results: make([]Result, 0, len(resourceIDs))}
	for _, id := range resourceIDs {
		conflicts := byResource[id]
		if conflicts == nil {
			conflicts = []Conflict{}
		}
		result := Result{
			ResourceID:  id,
			Window:      window,
			IsAvailable: len(conflicts) == 0,
			Occupying:   conflicts,
		}
		batch.Results = append(batch.Results, result)
		if c.metrics != nil {
			c.metrics.RecordAvailabilityCheck(tenantID, result.IsAvailable)
		}
	}
	if c.metrics != nil {
		c.metrics.RecordBatchSize(len(resourceIDs))
	}
	return batch, nil
}

func (c *Checker) degradedResult(tenantID string, resourceIDs []string, window Window) *BatchResult {
	batch := &BatchResult{Window: window, Degraded: true, Results: make([]Result, 0, len(resourceIDs))}
	for _, id := range resourceIDs {
		batch.Results = append(batch.Results, Result{
			ResourceID:  id,
			Window:      window,
			IsAvailable: true,
			Occupying:   []Conflict{},
			Degraded:    true,
		})
	}
	return batch
}
