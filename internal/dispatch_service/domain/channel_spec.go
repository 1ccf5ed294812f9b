package domain

import (
	"strings"

	"github.com/aradsms/golang_services/internal/core_domain"
)

// ChannelSpec describes how one channel type addresses its providers.
type ChannelSpec struct {
	Type      core_domain.ChannelType
	Providers []core_domain.ProviderID
	// Targets extracts the identifiers providerID can deliver to.
	Targets func(providerID core_domain.ProviderID, creds core_domain.ChannelCredentials) []string
}

// Accepts reports whether providerID belongs to this channel's provider family.
func (s ChannelSpec) Accepts(providerID core_domain.ProviderID) bool {
	for _, p := range s.Providers {
		if p == providerID {
			return true
		}
	}
	return false
}

// TargetsOf returns the non-empty target identifiers of creds for providerID.
func (s ChannelSpec) TargetsOf(providerID core_domain.ProviderID, creds core_domain.ChannelCredentials) []string {
	if s.Targets == nil {
		return nil
	}
	return core_domain.CleanTargets(s.Targets(providerID, creds))
}

// PushSpec addresses push providers by device token.
func PushSpec(providers ...core_domain.ProviderID) ChannelSpec {
	return ChannelSpec{
		Type:      core_domain.ChannelPush,
		Providers: providers,
		Targets: func(_ core_domain.ProviderID, c core_domain.ChannelCredentials) []string {
			return c.DeviceTokens
		},
	}
}

// ChatSpec addresses Telegram by chat id and other chat providers by webhook
// URL, falling back to the channel id.
func ChatSpec(providers ...core_domain.ProviderID) ChannelSpec {
	return ChannelSpec{
		Type:      core_domain.ChannelChat,
		Providers: providers,
		Targets: func(providerID core_domain.ProviderID, c core_domain.ChannelCredentials) []string {
			if providerID == core_domain.ProviderTelegram {
				return []string{c.Channel}
			}
			if strings.TrimSpace(c.WebhookURL) != "" {
				return []string{c.WebhookURL}
			}
			return []string{c.Channel}
		},
	}
}

// ChannelSpecs indexes specs by channel type.
type ChannelSpecs map[core_domain.ChannelType]ChannelSpec

// DefaultChannelSpecs registers every channel type the service can dispatch.
func DefaultChannelSpecs() ChannelSpecs {
	return ChannelSpecs{
		core_domain.ChannelPush: PushSpec(core_domain.ProviderFCM, core_domain.ProviderExpo, core_domain.ProviderMockPush),
		core_domain.ChannelChat: ChatSpec(core_domain.ProviderTelegram, core_domain.ProviderMockChat),
	}
}
