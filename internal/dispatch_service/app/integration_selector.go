package app

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/aradsms/golang_services/internal/core_domain"
	"github.com/aradsms/golang_services/internal/dispatch_service/domain"
)

// IntegrationQuery identifies the integration wanted for one candidate.
type IntegrationQuery struct {
	OrganizationID string
	EnvironmentID  string
	ChannelType    core_domain.ChannelType
	ProviderID     core_domain.ProviderID
	Identifier     string // from the channel credential, optional
	Tenant         *core_domain.Tenant
}

// IntegrationSelector picks the active integration for a candidate, applying
// tenant conditions written in CEL.
type IntegrationSelector struct {
	repo   domain.IntegrationRepository
	env    *cel.Env
	logger *slog.Logger

	mu       sync.RWMutex
	programs map[string]cel.Program
}

func NewIntegrationSelector(repo domain.IntegrationRepository, logger *slog.Logger) (*IntegrationSelector, error) {
	env, err := cel.NewEnv(cel.Variable("tenant", cel.DynType))
	if err != nil {
		return nil, fmt.Errorf("creating CEL environment: %w", err)
	}
	return &IntegrationSelector{
		repo:     repo,
		env:      env,
		logger:   logger.With("component", "integration_selector"),
		programs: make(map[string]cel.Program),
	}, nil
}

// Select returns the best matching active integration, or (nil, nil) when none qualifies.
func (s *IntegrationSelector) Select(ctx context.Context, q IntegrationQuery) (*core_domain.Integration, error) {
	found, err := s.repo.FindActive(ctx, domain.IntegrationFilter{
		OrganizationID: q.OrganizationID,
		EnvironmentID:  q.EnvironmentID,
		ChannelType:    q.ChannelType,
		ProviderID:     q.ProviderID,
		Identifier:     q.Identifier,
	})
	if err != nil {
		return nil, fmt.Errorf("finding active integrations: %w", err)
	}

	candidates := make([]*core_domain.Integration, 0, len(found))
	for _, in := range found {
		if in == nil || !in.Active {
			continue
		}
		candidates = append(candidates, in)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Primary != b.Primary {
			return a.Primary
		}
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})

	var tenantVars map[string]any
	if q.Tenant != nil {
		tenantVars = toMap(q.Tenant)
	}
	for _, in := range candidates {
		if s.matches(ctx, in, tenantVars) {
			return in, nil
		}
	}
	return nil, nil
}

func (s *IntegrationSelector) matches(ctx context.Context, in *core_domain.Integration, tenant map[string]any) bool {
	if !in.IsConditional() {
		return true
	}
	if tenant == nil {
		return false
	}
	for _, expr := range in.Conditions {
		prog, err := s.program(expr)
		if err != nil {
			s.logger.WarnContext(ctx, "Skipping integration with invalid condition",
				"integration_id", in.ID, "condition", expr, "error", err)
			return false
		}
		out, _, err := prog.Eval(map[string]any{"tenant": tenant})
		if err != nil {
			s.logger.DebugContext(ctx, "Integration condition evaluation failed",
				"integration_id", in.ID, "condition", expr, "error", err)
			return false
		}
		if ok, isBool := out.Value().(bool); !isBool || !ok {
			return false
		}
	}
	return true
}

func (s *IntegrationSelector) program(expr string) (cel.Program, error) {
	expr = strings.TrimSpace(expr)
	s.mu.RLock()
	prog, ok := s.programs[expr]
	s.mu.RUnlock()
	if ok {
		return prog, nil
	}

	ast, iss := s.env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, iss.Err()
	}
	prog, err := s.env.Program(ast)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.programs[expr] = prog
	s.mu.Unlock()
	return prog, nil
}
