package core_domain

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// MessageStatus is the lifecycle state of one dispatch attempt.
type MessageStatus string

const (
	MessageStatusPending MessageStatus = "pending"
	MessageStatusSuccess MessageStatus = "success"
	MessageStatusFailed  MessageStatus = "failed"
)

// Value implements the driver.Valuer interface for MessageStatus.
func (ms MessageStatus) Value() (driver.Value, error) {
	return string(ms), nil
}

// Scan implements the sql.Scanner interface for MessageStatus.
func (ms *MessageStatus) Scan(value interface{}) error {
	strVal, ok := value.(string)
	if !ok {
		bytesVal, ok := value.([]byte)
		if !ok {
			return fmt.Errorf("failed to scan MessageStatus: value is not string or []byte, it is %T", value)
		}
		strVal = string(bytesVal)
	}
	switch MessageStatus(strVal) {
	case MessageStatusPending, MessageStatusSuccess, MessageStatusFailed:
		*ms = MessageStatus(strVal)
		return nil
	default:
		return fmt.Errorf("unknown MessageStatus value: %s", strVal)
	}
}

// Message is the durable record of one dispatch attempt to one provider for
// one job. Messages are never deleted.
type Message struct {
	ID                string                           `json:"id"`
	JobID             string                           `json:"job_id"`
	NotificationID    string                           `json:"notification_id"`
	TemplateID        string                           `json:"template_id,omitempty"`
	TransactionID     string                           `json:"transaction_id"`
	OrganizationID    string                           `json:"organization_id"`
	EnvironmentID     string                           `json:"environment_id"`
	SubscriberID      string                           `json:"subscriber_id"`
	ChannelType       ChannelType                      `json:"channel_type"`
	ProviderID        ProviderID                       `json:"provider_id"`
	IntegrationID     string                           `json:"integration_id"`
	Title             string                           `json:"title"`
	Content           *string                          `json:"content,omitempty"` // nil when content retention is off
	Targets           []string                         `json:"targets"`
	Payload           map[string]any                   `json:"payload,omitempty"`
	Overrides         map[ProviderID]ProviderOverrides `json:"overrides,omitempty"`
	Status            MessageStatus                    `json:"status"`
	ProviderMessageID *string                          `json:"provider_message_id,omitempty"`
	ErrorText         *string                          `json:"error_text,omitempty"`
	CreatedAt         time.Time                        `json:"created_at"`
	UpdatedAt         time.Time                        `json:"updated_at"`
}
