package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aradsms/golang_services/internal/core_domain"
	"github.com/aradsms/golang_services/internal/dispatch_service/domain"
)

const keyPrefix = "dispatch:integrations"

// IntegrationRepository caches FindActive results of another repository.
// Redis failures fall through to the underlying store.
type IntegrationRepository struct {
	next   domain.IntegrationRepository
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewIntegrationRepository(next domain.IntegrationRepository, client *redis.Client, ttl time.Duration, logger *slog.Logger) *IntegrationRepository {
	return &IntegrationRepository{
		next:   next,
		client: client,
		ttl:    ttl,
		logger: logger.With("component", "integration_cache"),
	}
}

func cacheKey(f domain.IntegrationFilter) string {
	return fmt.Sprintf("%s:%s:%s:%s:%s:%s", keyPrefix, f.OrganizationID, f.EnvironmentID, f.ChannelType, f.ProviderID, f.Identifier)
}

func (r *IntegrationRepository) FindActive(ctx context.Context, filter domain.IntegrationFilter) ([]*core_domain.Integration, error) {
	key := cacheKey(filter)

	cached, err := r.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var out []*core_domain.Integration
		if err := json.Unmarshal(cached, &out); err == nil {
			cacheLookups.WithLabelValues("hit").Inc()
			return out, nil
		}
		r.logger.WarnContext(ctx, "Discarding undecodable cache entry", "key", key)
	case errors.Is(err, redis.Nil):
	default:
		r.logger.WarnContext(ctx, "Integration cache read failed", "error", err, "key", key)
	}
	cacheLookups.WithLabelValues("miss").Inc()

	out, err := r.next.FindActive(ctx, filter)
	if err != nil {
		return nil, err
	}

	encoded, err := json.Marshal(out)
	if err != nil {
		r.logger.WarnContext(ctx, "Failed to encode integrations for cache", "error", err)
		return out, nil
	}
	if err := r.client.Set(ctx, key, encoded, r.ttl).Err(); err != nil {
		r.logger.WarnContext(ctx, "Integration cache write failed", "error", err, "key", key)
	}
	return out, nil
}
