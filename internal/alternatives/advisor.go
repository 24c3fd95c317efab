// Package alternatives ranks nearby date ranges when a requested boarding
// range is unavailable, so the front desk can offer the closest (and then
// cheapest) options instead of a flat "no".
package alternatives

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/pawsuite/resort-api/internal/availability"
	"github.com/pawsuite/resort-api/internal/db"
	"github.com/pawsuite/resort-api/internal/metrics"
)

var (
	ErrMissingService = errors.New("service id is required")
	ErrInvalidLimit   = errors.New("maxResults must be positive")
	ErrInvalidPets    = errors.New("numberOfPets must be positive")
)

// BatchChecker is the slice of the availability checker the advisor needs.
type BatchChecker interface {
	CheckBatch(ctx context.Context, tenantID string, resourceIDs []string, q availability.Query) (*availability.BatchResult, error)
}

// ResourceSource yields the bookable resource pool for a service.
// Satisfied by *db.Repository and by CachedPool.
type ResourceSource interface {
	ResourcesByService(ctx context.Context, tenantID, serviceID string) ([]*db.Resource, error)
}

// ServiceCatalog resolves the service record whose base rate anchors pricing.
type ServiceCatalog interface {
	GetService(ctx context.Context, id, tenantID string) (*db.Service, error)
}

type Suggestion struct {
	StartDate      time.Time `json:"startDate"`
	EndDate        time.Time `json:"endDate"`
	AvailableCount int       `json:"availableCount"`
	Price          float64   `json:"price"`
	Savings        float64   `json:"savings,omitempty"`
	Reason         string    `json:"reason"`
	Recommended    bool      `json:"recommended,omitempty"`

	distance int
}

type Response struct {
	RequestedAvailable bool         `json:"requestedAvailable"`
	Suggestions        []Suggestion `json:"suggestions"`
}

type Advisor struct {
	checker  BatchChecker
	pool     ResourceSource
	catalog  ServiceCatalog
	scanDays int
	logger   *zap.Logger
	metrics  *metrics.Collector
	now      func() time.Time
}

func NewAdvisor(checker BatchChecker, pool ResourceSource, catalog ServiceCatalog, scanDays int, logger *zap.Logger, collector *metrics.Collector) *Advisor {
	if scanDays <= 0 {
		scanDays = 7
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Advisor{
		checker:  checker,
		pool:     pool,
		catalog:  catalog,
		scanDays: scanDays,
		logger:   logger,
		metrics:  collector,
		now:      time.Now,
	}
}

// Suggest scans a bounded window of nearby ranges with the requested duration
// and returns those with enough free resources, sorted by calendar distance
// from the requested start, then price. An empty list is a normal outcome
// (callers fall back to the waitlist offer), never an error.
func (a *Advisor) Suggest(ctx context.Context, tenantID, serviceID string, start, end time.Time, numberOfPets, maxResults int) (*Response, error) {
	if tenantID == "" {
		return nil, availability.ErrMissingTenant
	}
	if serviceID == "" {
		return nil, ErrMissingService
	}
	if maxResults <= 0 {
		return nil, ErrInvalidLimit
	}
	if numberOfPets <= 0 {
		return nil, ErrInvalidPets
	}
	if end.Before(start) {
		return nil, availability.ErrInvalidRange
	}

	svc, err := a.catalog.GetService(ctx, serviceID, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve service: %w", err)
	}

	resources, err := a.pool.ResourcesByService(ctx, tenantID, serviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load resource pool: %w", err)
	}
	if len(resources) == 0 {
		return &Response{Suggestions: []Suggestion{}}, nil
	}

	resourceIDs := make([]string, len(resources))
	rates := make(map[string]float64, len(resources))
	for i, res := range resources {
		resourceIDs[i] = res.ID
		rate := res.NightlyRate
		if rate <= 0 {
			rate = svc.BaseRate
		}
		rates[res.ID] = rate
	}

	requested := availability.Window{Start: start, End: end}
	nights := requested.Nights()
	requestedPrice := svc.BaseRate * float64(nights)

	requestedCount, _, err := a.countAvailable(ctx, tenantID, resourceIDs, requested, rates)
	if err != nil {
		return nil, err
	}

	resp := &Response{
		RequestedAvailable: requestedCount >= numberOfPets,
		Suggestions:        []Suggestion{},
	}
	if resp.RequestedAvailable {
		return resp, nil
	}

	now := a.now()
	for d := 1; d <= a.scanDays; d++ {
		for _, offset := range []int{-d, d} {
			candidate := requested.Shift(offset)
			if candidate.Start.Before(now) {
				continue
			}

			count, cheapest, err := a.countAvailable(ctx, tenantID, resourceIDs, candidate, rates)
			if err != nil {
				return nil, err
			}
			if count < numberOfPets {
				continue
			}

			price := cheapest * float64(nights)
			s := Suggestion{
				StartDate:      candidate.Start,
				EndDate:        candidate.End,
				AvailableCount: count,
				Price:          price,
				Reason:         describeOffset(offset),
				distance:       d,
			}
			if savings := requestedPrice - price; savings > 0 {
				s.Savings = savings
			}
			resp.Suggestions = append(resp.Suggestions, s)
		}
	}

	sort.SliceStable(resp.Suggestions, func(i, j int) bool {
		a, b := resp.Suggestions[i], resp.Suggestions[j]
		if a.distance != b.distance {
			return a.distance < b.distance
		}
		if a.Price != b.Price {
			return a.Price < b.Price
		}
		return a.StartDate.Before(b.StartDate)
	})

	if len(resp.Suggestions) > maxResults {
		resp.Suggestions = resp.Suggestions[:maxResults]
	}
	if len(resp.Suggestions) > 0 {
		resp.Suggestions[0].Recommended = true
		resp.Suggestions[0].Reason = "closest available date"
	}

	if a.metrics != nil {
		a.metrics.RecordAlternatives(len(resp.Suggestions))
	}
	return resp, nil
}

// countAvailable runs one batch check over the pool and returns how many
// resources are free in the window plus the cheapest free nightly rate.
// Degraded batches report zero availability: suggestions must never be built
// on defaulted data, unlike the direct availability endpoints.
func (a *Advisor) countAvailable(ctx context.Context, tenantID string, resourceIDs []string, w availability.Window, rates map[string]float64) (int, float64, error) {
	q := availability.Query{StartDate: &w.Start, EndDate: &w.End}
	batch, err := a.checker.CheckBatch(ctx, tenantID, resourceIDs, q)
	if err != nil {
		return 0, 0, err
	}
	if batch.Degraded {
		a.logger.Warn("skipping candidate range, availability degraded",
			zap.String("tenant_id", tenantID),
			zap.Time("start", w.Start),
		)
		return 0, 0, nil
	}

	count := 0
	cheapest := 0.0
	for _, result := range batch.Results {
		if !result.IsAvailable {
			continue
		}
		count++
		if rate := rates[result.ResourceID]; cheapest == 0 || rate < cheapest {
			cheapest = rate
		}
	}
	return count, cheapest, nil
}

func describeOffset(days int) string {
	unit := "days"
	if days == -1 || days == 1 {
		unit = "day"
	}
	if days < 0 {
		return fmt.Sprintf("%d %s before requested dates", -days, unit)
	}
	return fmt.Sprintf("%d %s after requested dates", days, unit)
}
