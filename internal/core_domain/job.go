package core_domain

import "strings"

// TenantRef points a job at a tenant by its identifier.
type TenantRef struct {
	Identifier string `json:"identifier" validate:"required"`
}

// StepTemplate holds the raw, unrendered templates of a workflow step.
type StepTemplate struct {
	ID      string `json:"id,omitempty"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// ProviderOverrides are job-level overrides for a single provider.
// Targets, when non-empty, replace the subscriber's stored targets.
type ProviderOverrides struct {
	Targets []string       `json:"targets,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}

// Job is one execution of a workflow step for one subscriber. It is owned by
// the workflow engine and treated as read-only by the dispatcher.
type Job struct {
	ID             string                           `json:"id" validate:"required"`
	NotificationID string                           `json:"notification_id" validate:"required"`
	TemplateID     string                           `json:"template_id"`
	StepID         string                           `json:"step_id"`
	TransactionID  string                           `json:"transaction_id" validate:"required"`
	OrganizationID string                           `json:"organization_id" validate:"required"`
	EnvironmentID  string                           `json:"environment_id" validate:"required"`
	SubscriberID   string                           `json:"subscriber_id" validate:"required"`
	Tenant         *TenantRef                       `json:"tenant,omitempty" validate:"omitempty"`
	ChannelType    ChannelType                      `json:"channel_type" validate:"required,oneof=push email sms chat in_app"`
	Step           StepTemplate                     `json:"step"`
	Payload        map[string]any                   `json:"payload,omitempty"`
	Overrides      map[ProviderID]ProviderOverrides `json:"overrides,omitempty"`
	DigestEvents   []map[string]any                 `json:"digest_events,omitempty"`
}

// OverrideTargets returns the non-blank override targets configured for
// providerID, or nil when there are none.
func (j *Job) OverrideTargets(providerID ProviderID) []string {
	if j.Overrides == nil {
		return nil
	}
	o, ok := j.Overrides[providerID]
	if !ok {
		return nil
	}
	return CleanTargets(o.Targets)
}

// CleanTargets trims targets and drops blank entries. It returns nil when
// nothing is left.
func CleanTargets(targets []string) []string {
	var out []string
	for _, t := range targets {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
