package core_domain

import "time"

// DetailCode names the state transition an ExecutionDetail records.
type DetailCode string

const (
	DetailRecipientNotFound       DetailCode = "RecipientNotFound"
	DetailTenantNotFound          DetailCode = "TenantNotFound"
	DetailTemplateError           DetailCode = "TemplateError"
	DetailNoActiveChannel         DetailCode = "NoActiveChannel"
	DetailMissingTargetIdentifier DetailCode = "MissingTargetIdentifier"
	DetailNoActiveIntegration     DetailCode = "NoActiveIntegration"
	DetailSelectedIntegration     DetailCode = "SelectedIntegration"
	DetailMessageCreated          DetailCode = "MessageCreated"
	DetailMessageCreationFailed   DetailCode = "MessageCreationFailed"
	DetailMessageSent             DetailCode = "MessageSent"
	DetailProviderError           DetailCode = "ProviderError"
	DetailNotificationError       DetailCode = "NotificationError"
)

// DetailSource says who produced the information in an ExecutionDetail.
type DetailSource string

const (
	SourceInternal    DetailSource = "internal"
	SourceCredentials DetailSource = "credentials"
	SourcePayload     DetailSource = "payload"
	SourceProvider    DetailSource = "provider"
)

// DetailStatus is the outcome carried by an ExecutionDetail.
type DetailStatus string

const (
	DetailStatusPending DetailStatus = "pending"
	DetailStatusSuccess DetailStatus = "success"
	DetailStatusFailed  DetailStatus = "failed"
	DetailStatusWarning DetailStatus = "warning"
)

// ExecutionDetail is an immutable, append-only audit record of one step in
// processing a job.
type ExecutionDetail struct {
	ID             string       `json:"id"`
	JobID          string       `json:"job_id"`
	NotificationID string       `json:"notification_id"`
	SubscriberID   string       `json:"subscriber_id"`
	OrganizationID string       `json:"organization_id"`
	EnvironmentID  string       `json:"environment_id"`
	TransactionID  string       `json:"transaction_id"`
	MessageID      *string      `json:"message_id,omitempty"`
	ProviderID     *ProviderID  `json:"provider_id,omitempty"`
	ChannelType    ChannelType  `json:"channel_type"`
	Detail         DetailCode   `json:"detail"`
	Source         DetailSource `json:"source"`
	Status         DetailStatus `json:"status"`
	IsTest         bool         `json:"is_test"`
	IsRetry        bool         `json:"is_retry"`
	Raw            *string      `json:"raw,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
}

// IsTerminal reports whether the detail closes the lifecycle of a message.
func (d *ExecutionDetail) IsTerminal() bool {
	return d.Status == DetailStatusSuccess || d.Status == DetailStatusFailed
}
