package core_domain

import "time"

// Integration is a configured provider endpoint scoped to an environment.
type Integration struct {
	ID             string            `json:"id"`
	Identifier     string            `json:"identifier"`
	OrganizationID string            `json:"organization_id"`
	EnvironmentID  string            `json:"environment_id"`
	ChannelType    ChannelType       `json:"channel_type"`
	ProviderID     ProviderID        `json:"provider_id"`
	Name           string            `json:"name"`
	Active         bool              `json:"active"`
	Primary        bool              `json:"primary"`
	Priority       int               `json:"priority"` // lower is preferred
	Credentials    map[string]string `json:"credentials,omitempty"`
	// Conditions are CEL expressions over the job's tenant. All must hold for
	// the integration to be selected.
	Conditions []string  `json:"conditions,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// IsConditional reports whether the integration only applies to some tenants.
func (i *Integration) IsConditional() bool {
	return len(i.Conditions) > 0
}
