package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/aradsms/golang_services/internal/core_domain"
)

// SendRequest carries everything an adapter needs for one dispatch.
type SendRequest struct {
	MessageID   string
	Targets     []string
	Title       string
	Content     string
	Payload     map[string]any
	Overrides   core_domain.ProviderOverrides
	Subscriber  *core_domain.Subscriber
	Step        core_domain.StepTemplate
	Credentials map[string]string // from the selected integration
}

// SendResult is the provider's acknowledgement.
type SendResult struct {
	ID   string    `json:"id"`
	Date time.Time `json:"date"`
	Raw  any       `json:"raw,omitempty"`
}

// Adapter is the uniform send capability implemented once per provider.
type Adapter interface {
	ID() core_domain.ProviderID
	ChannelType() core_domain.ChannelType
	Send(ctx context.Context, req SendRequest) (*SendResult, error)
}

// ProviderError is returned by adapters when the provider rejects a request.
// Exported fields serialize into the audit trail.
type ProviderError struct {
	Provider   core_domain.ProviderID `json:"provider"`
	StatusCode int                    `json:"status_code,omitempty"`
	Code       string                 `json:"code,omitempty"`
	Body       string                 `json:"body,omitempty"`
	// Delivered lists the targets that accepted the message before the failure.
	Delivered []string `json:"delivered,omitempty"`
	Err       error    `json:"-"`
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("%s provider error", e.Provider)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(": status %d", e.StatusCode)
	}
	if e.Code != "" {
		msg += ", code " + e.Code
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProviderError) Unwrap() error { return e.Err }

// credential returns the first non-empty credential among keys.
func credential(creds map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := creds[k]; v != "" {
			return v
		}
	}
	return ""
}

// mergeData layers override data on top of the job payload.
func mergeData(payload map[string]any, overrides map[string]any) map[string]any {
	if len(payload) == 0 && len(overrides) == 0 {
		return nil
	}
	out := make(map[string]any, len(payload)+len(overrides))
	for k, v := range payload {
		out[k] = v
	}
	for k, v := range overrides {
		out[k] = v
	}
	return out
}
