package provider

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/aradsms/golang_services/internal/core_domain"
)

// MockProvider is a simulated provider for development environments.
type MockProvider struct {
	logger         *slog.Logger
	id             core_domain.ProviderID
	channel        core_domain.ChannelType
	FailSend       bool          // Control whether Send should simulate failure
	SimulatedDelay time.Duration // To simulate network latency
}

// NewMockProvider creates a new MockProvider.
func NewMockProvider(logger *slog.Logger, id core_domain.ProviderID, channel core_domain.ChannelType, failSend bool, delay time.Duration) *MockProvider {
	return &MockProvider{
		logger:         logger.With("provider", id),
		id:             id,
		channel:        channel,
		FailSend:       failSend,
		SimulatedDelay: delay,
	}
}

func (p *MockProvider) ID() core_domain.ProviderID { return p.id }

func (p *MockProvider) ChannelType() core_domain.ChannelType { return p.channel }

// Send simulates a provider call.
func (p *MockProvider) Send(ctx context.Context, req SendRequest) (*SendResult, error) {
	p.logger.InfoContext(ctx, "MockProvider: Send called",
		"message_id", req.MessageID,
		"targets", len(req.Targets),
		"content_length", len(req.Content))

	if p.SimulatedDelay > 0 {
		select {
		case <-time.After(p.SimulatedDelay):
		case <-ctx.Done():
			return nil, &ProviderError{Provider: p.id, Err: ctx.Err()}
		}
	}

	if p.FailSend {
		p.logger.WarnContext(ctx, "mock provider simulated send failure", "message_id", req.MessageID)
		return nil, &ProviderError{Provider: p.id, Code: "FAILED_MOCK", Err: errors.New("mock provider simulated send failure")}
	}

	id := "mock-" + uuid.NewString()
	return &SendResult{
		ID:   id,
		Date: time.Now().UTC(),
		Raw:  map[string]any{"status": "SENT_MOCK_OK", "targets": req.Targets},
	}, nil
}
