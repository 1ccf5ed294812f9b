package app

import (
	"github.com/aradsms/golang_services/internal/core_domain"
	"github.com/aradsms/golang_services/internal/dispatch_service/domain"
)

// Candidate is one subscriber channel credential eligible for a job's channel.
type Candidate struct {
	Credential core_domain.ChannelCredential
	Targets    []string // stored targets, empty strings removed
}

// EnumerateCandidates keeps the credentials whose provider belongs to spec,
// in the subscriber's stored order.
func EnumerateCandidates(channels []core_domain.ChannelCredential, spec domain.ChannelSpec) []Candidate {
	var out []Candidate
	for _, ch := range channels {
		if !spec.Accepts(ch.ProviderID) {
			continue
		}
		out = append(out, Candidate{Credential: ch, Targets: spec.TargetsOf(ch.ProviderID, ch.Credentials)})
	}
	return out
}
