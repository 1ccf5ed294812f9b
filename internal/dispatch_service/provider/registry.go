package provider

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aradsms/golang_services/internal/core_domain"
)

// Registry is the closed provider id -> adapter table built once at startup.
type Registry struct {
	adapters map[core_domain.ProviderID]Adapter
}

// NewRegistry indexes adapters by id. Every adapter is instrumented.
func NewRegistry(adapters ...Adapter) (*Registry, error) {
	r := &Registry{adapters: make(map[core_domain.ProviderID]Adapter, len(adapters))}
	for _, a := range adapters {
		if a == nil {
			continue
		}
		if _, dup := r.adapters[a.ID()]; dup {
			return nil, fmt.Errorf("duplicate provider adapter %q", a.ID())
		}
		r.adapters[a.ID()] = instrumented{Adapter: a}
	}
	return r, nil
}

// Get returns the adapter registered for id.
func (r *Registry) Get(id core_domain.ProviderID) (Adapter, bool) {
	a, ok := r.adapters[id]
	return a, ok
}

// IDs lists the registered provider ids.
func (r *Registry) IDs() []core_domain.ProviderID {
	out := make([]core_domain.ProviderID, 0, len(r.adapters))
	for id := range r.adapters {
		out = append(out, id)
	}
	return out
}

type instrumented struct {
	Adapter
}

func (i instrumented) Send(ctx context.Context, req SendRequest) (*SendResult, error) {
	timer := prometheus.NewTimer(providerRequestDurationHist.WithLabelValues(i.ID().String()))
	defer timer.ObserveDuration()

	res, err := i.Adapter.Send(ctx, req)
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	providerRequestsCounter.WithLabelValues(i.ID().String(), outcome).Inc()
	return res, err
}
