package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aradsms/golang_services/internal/core_domain"
	"github.com/aradsms/golang_services/internal/dispatch_service/domain"
)

// Recipient is the resolved subscriber plus its optional tenant.
type Recipient struct {
	Subscriber *core_domain.Subscriber
	Tenant     *core_domain.Tenant
	// TenantMissing is set when the job referenced a tenant that could not be loaded.
	TenantMissing bool
}

type RecipientResolver struct {
	subscribers domain.SubscriberRepository
	tenants     domain.TenantRepository
	logger      *slog.Logger
}

func NewRecipientResolver(subscribers domain.SubscriberRepository, tenants domain.TenantRepository, logger *slog.Logger) *RecipientResolver {
	return &RecipientResolver{
		subscribers: subscribers,
		tenants:     tenants,
		logger:      logger.With("component", "recipient_resolver"),
	}
}

// Resolve loads the job's subscriber and tenant. A missing subscriber is
// ErrRecipientNotFound. Tenant problems never fail the call.
func (r *RecipientResolver) Resolve(ctx context.Context, job *core_domain.Job) (*Recipient, error) {
	sub, err := r.subscribers.FindBySubscriberID(ctx, job.EnvironmentID, job.SubscriberID)
	if err != nil {
		return nil, fmt.Errorf("resolving subscriber: %w", err)
	}
	if sub == nil {
		return nil, domain.ErrRecipientNotFound
	}

	rec := &Recipient{Subscriber: sub}
	if job.Tenant == nil || job.Tenant.Identifier == "" {
		return rec, nil
	}

	tenant, err := r.tenants.FindByIdentifier(ctx, job.EnvironmentID, job.Tenant.Identifier)
	if err != nil {
		r.logger.WarnContext(ctx, "Tenant lookup failed, rendering without tenant",
			"error", err, "job_id", job.ID, "tenant", job.Tenant.Identifier)
		rec.TenantMissing = true
		return rec, nil
	}
	if tenant == nil {
		r.logger.WarnContext(ctx, "Tenant not found, rendering without tenant", "job_id", job.ID, "tenant", job.Tenant.Identifier)
		rec.TenantMissing = true
		return rec, nil
	}
	rec.Tenant = tenant
	return rec, nil
}

// BuildRenderContext is the data handed to templates: payload keys at the
// top level, then subscriber, step and tenant, which win on key clashes.
func BuildRenderContext(job *core_domain.Job, rec *Recipient) map[string]any {
	data := make(map[string]any, len(job.Payload)+3)
	for k, v := range job.Payload {
		data[k] = v
	}
	if rec != nil && rec.Subscriber != nil {
		data["subscriber"] = toMap(rec.Subscriber)
	}

	events := job.DigestEvents
	if events == nil {
		events = []map[string]any{}
	}
	data["step"] = map[string]any{
		"digest":      len(job.DigestEvents) > 0,
		"events":      events,
		"total_count": len(job.DigestEvents),
	}

	if rec != nil && rec.Tenant != nil {
		data["tenant"] = toMap(rec.Tenant)
	}
	return data
}

// toMap flattens v into its JSON field names so templates and CEL
// expressions address fields the way the API exposes them.
func toMap(v any) map[string]any {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil
	}
	return out
}
