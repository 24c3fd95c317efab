package alternatives

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pawsuite/resort-api/internal/db"
	"github.com/pawsuite/resort-api/internal/storage/redis"
)

// CachedPool fronts the resource inventory with a short-lived redis cache.
// The advisor hits the pool once per request but the pool changes rarely, so
// a few minutes of staleness is fine; the availability check itself always
// goes to the store.
type CachedPool struct {
	source ResourceSource
	cache  *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewCachedPool(source ResourceSource, cache *redis.Client, ttl time.Duration, logger *zap.Logger) *CachedPool {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedPool{source: source, cache: cache, ttl: ttl, logger: logger}
}

func (p *CachedPool) ResourcesByService(ctx context.Context, tenantID, serviceID string) ([]*db.Resource, error) {
	key := fmt.Sprintf("resources:pool:%s:%s", tenantID, serviceID)

	if p.cache != nil {
		var cached []*db.Resource
		if err := p.cache.GetJSON(ctx, key, &cached); err == nil {
			return cached, nil
		}
	}

	resources, err := p.source.ResourcesByService(ctx, tenantID, serviceID)
	if err != nil {
		return nil, err
	}

	if p.cache != nil {
		if err := p.cache.SetJSON(ctx, key, resources, p.ttl); err != nil {
			p.logger.Debug("failed to cache resource pool", zap.Error(err), zap.String("key", key))
		}
	}
	return resources, nil
}
