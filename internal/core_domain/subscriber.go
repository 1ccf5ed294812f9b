package core_domain

import "time"

// ChannelCredentials are the provider-specific addressing fields of a
// subscriber's channel.
type ChannelCredentials struct {
	DeviceTokens []string `json:"device_tokens,omitempty"`
	WebhookURL   string   `json:"webhook_url,omitempty"`
	Channel      string   `json:"channel,omitempty"`
}

// ChannelCredential ties a set of credentials to a provider and, optionally,
// to a specific integration.
type ChannelCredential struct {
	ProviderID            ProviderID         `json:"provider_id"`
	IntegrationIdentifier *string            `json:"integration_identifier,omitempty"`
	Credentials           ChannelCredentials `json:"credentials"`
}

// Subscriber is the recipient of a notification.
type Subscriber struct {
	ID             string              `json:"id"`
	SubscriberID   string              `json:"subscriber_id"` // external identifier supplied by the customer
	OrganizationID string              `json:"organization_id"`
	EnvironmentID  string              `json:"environment_id"`
	FirstName      string              `json:"first_name,omitempty"`
	LastName       string              `json:"last_name,omitempty"`
	Email          string              `json:"email,omitempty"`
	Phone          string              `json:"phone,omitempty"`
	Locale         string              `json:"locale,omitempty"`
	Data           map[string]any      `json:"data,omitempty"`
	Channels       []ChannelCredential `json:"channels,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// Tenant is contextual data merged into the render context.
type Tenant struct {
	ID            string         `json:"id"`
	Identifier    string         `json:"identifier"`
	EnvironmentID string         `json:"environment_id"`
	Name          string         `json:"name"`
	Data          map[string]any `json:"data,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}
