package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/aradsms/golang_services/internal/core_domain"
	"github.com/aradsms/golang_services/internal/dispatch_service/domain"
	"github.com/aradsms/golang_services/internal/dispatch_service/provider"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- Mocks ---

type MockSubscriberRepository struct {
	mock.Mock
}

func (m *MockSubscriberRepository) FindBySubscriberID(ctx context.Context, environmentID, subscriberID string) (*core_domain.Subscriber, error) {
	args := m.Called(ctx, environmentID, subscriberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*core_domain.Subscriber), args.Error(1)
}

type MockTenantRepository struct {
	mock.Mock
}

func (m *MockTenantRepository) FindByIdentifier(ctx context.Context, environmentID, identifier string) (*core_domain.Tenant, error) {
	args := m.Called(ctx, environmentID, identifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*core_domain.Tenant), args.Error(1)
}

type MockIntegrationRepository struct {
	mock.Mock
}

func (m *MockIntegrationRepository) FindActive(ctx context.Context, filter domain.IntegrationFilter) ([]*core_domain.Integration, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*core_domain.Integration), args.Error(1)
}

// --- In-memory stores ---

// memIntegrations serves integrations keyed by provider id.
type memIntegrations struct {
	byProvider map[core_domain.ProviderID][]*core_domain.Integration
	err        error
}

func (m *memIntegrations) FindActive(_ context.Context, f domain.IntegrationFilter) ([]*core_domain.Integration, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []*core_domain.Integration
	for _, in := range m.byProvider[f.ProviderID] {
		if f.Identifier != "" && in.Identifier != f.Identifier {
			continue
		}
		out = append(out, in)
	}
	return out, nil
}

type memMessages struct {
	mu        sync.Mutex
	created   []*core_domain.Message
	createErr error
}

func (m *memMessages) Create(_ context.Context, msg *core_domain.Message) (*core_domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return nil, m.createErr
	}
	cp := *msg
	cp.ID = uuid.NewString()
	cp.CreatedAt = time.Now().UTC()
	m.created = append(m.created, &cp)
	return &cp, nil
}

func (m *memMessages) UpdateStatus(_ context.Context, id string, status core_domain.MessageStatus, providerMessageID *string, errorText *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.created {
		if msg.ID == id {
			msg.Status = status
			msg.ProviderMessageID = providerMessageID
			msg.ErrorText = errorText
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *memMessages) GetByID(_ context.Context, id string) (*core_domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.created {
		if msg.ID == id {
			return msg, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memMessages) byProvider(id core_domain.ProviderID) []*core_domain.Message {
	var out []*core_domain.Message
	for _, msg := range m.created {
		if msg.ProviderID == id {
			out = append(out, msg)
		}
	}
	return out
}

// memDetails captures the audit trail in write order. failOn makes writes of
// the listed detail codes fail.
type memDetails struct {
	mu      sync.Mutex
	details []*core_domain.ExecutionDetail
	failOn  map[core_domain.DetailCode]bool
	ctxErrs []error
}

func (m *memDetails) Create(ctx context.Context, d *core_domain.ExecutionDetail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ctxErrs = append(m.ctxErrs, ctx.Err())
	if m.failOn[d.Detail] {
		return errors.New("audit store unavailable")
	}
	cp := *d
	m.details = append(m.details, &cp)
	return nil
}

func (m *memDetails) ListByJob(_ context.Context, jobID string) ([]*core_domain.ExecutionDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*core_domain.ExecutionDetail
	for _, d := range m.details {
		if d.JobID == jobID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *memDetails) codes() []core_domain.DetailCode {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]core_domain.DetailCode, 0, len(m.details))
	for _, d := range m.details {
		out = append(out, d.Detail)
	}
	return out
}

func (m *memDetails) find(code core_domain.DetailCode) []*core_domain.ExecutionDetail {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*core_domain.ExecutionDetail
	for _, d := range m.details {
		if d.Detail == code {
			out = append(out, d)
		}
	}
	return out
}

// recordingAdapter is a provider adapter that records requests.
type recordingAdapter struct {
	id       core_domain.ProviderID
	channel  core_domain.ChannelType
	err      error
	block    bool // wait for ctx cancellation
	mu       sync.Mutex
	requests []provider.SendRequest
}

func (a *recordingAdapter) ID() core_domain.ProviderID           { return a.id }
func (a *recordingAdapter) ChannelType() core_domain.ChannelType { return a.channel }

func (a *recordingAdapter) Send(ctx context.Context, req provider.SendRequest) (*provider.SendResult, error) {
	a.mu.Lock()
	a.requests = append(a.requests, req)
	a.mu.Unlock()
	if a.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if a.err != nil {
		return nil, a.err
	}
	return &provider.SendResult{ID: "prov-" + req.MessageID, Date: time.Now().UTC(), Raw: map[string]any{"accepted": len(req.Targets)}}, nil
}

func (a *recordingAdapter) sent() []provider.SendRequest {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]provider.SendRequest(nil), a.requests...)
}
