package domain

import (
	"context"

	"github.com/aradsms/golang_services/internal/core_domain"
)

// SubscriberRepository loads recipients. Absent subscribers return (nil, nil).
type SubscriberRepository interface {
	FindBySubscriberID(ctx context.Context, environmentID, subscriberID string) (*core_domain.Subscriber, error)
}

// TenantRepository loads tenants. Absent tenants return (nil, nil).
type TenantRepository interface {
	FindByIdentifier(ctx context.Context, environmentID, identifier string) (*core_domain.Tenant, error)
}

// IntegrationFilter narrows the active integrations considered for one candidate.
type IntegrationFilter struct {
	OrganizationID string
	EnvironmentID  string
	ChannelType    core_domain.ChannelType
	ProviderID     core_domain.ProviderID
	// Identifier, when set, pins the lookup to one integration.
	Identifier string
}

// IntegrationRepository returns active integrations matching a filter, in no
// particular order.
type IntegrationRepository interface {
	FindActive(ctx context.Context, filter IntegrationFilter) ([]*core_domain.Integration, error)
}

// MessageRepository persists dispatch attempts. Messages are never deleted.
type MessageRepository interface {
	Create(ctx context.Context, msg *core_domain.Message) (*core_domain.Message, error)
	UpdateStatus(ctx context.Context, id string, status core_domain.MessageStatus, providerMessageID *string, errorText *string) error
	GetByID(ctx context.Context, id string) (*core_domain.Message, error)
}

// ExecutionDetailRepository is the append-only audit store.
type ExecutionDetailRepository interface {
	Create(ctx context.Context, detail *core_domain.ExecutionDetail) error
	ListByJob(ctx context.Context, jobID string) ([]*core_domain.ExecutionDetail, error)
}
