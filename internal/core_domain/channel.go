package core_domain

// ChannelType is the delivery medium a workflow step targets.
type ChannelType string

const (
	ChannelPush  ChannelType = "push"
	ChannelEmail ChannelType = "email"
	ChannelSMS   ChannelType = "sms"
	ChannelChat  ChannelType = "chat"
	ChannelInApp ChannelType = "in_app"
)

// ProviderID identifies a concrete vendor implementation within a channel type.
type ProviderID string

const (
	ProviderFCM      ProviderID = "fcm"
	ProviderExpo     ProviderID = "expo"
	ProviderTelegram ProviderID = "telegram"
	ProviderMockPush ProviderID = "mock-push"
	ProviderMockChat ProviderID = "mock-chat"
)

func (c ChannelType) String() string { return string(c) }

func (p ProviderID) String() string { return string(p) }
