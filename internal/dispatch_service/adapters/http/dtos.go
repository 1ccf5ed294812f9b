package http

import (
	"encoding/json"
	"time"

	"github.com/aradsms/golang_services/internal/core_domain"
)

// GenericErrorResponse is the body of every non-2xx response.
type GenericErrorResponse struct {
	Error string `json:"error"`
}

// ExecutionDetailResponse is one audit event. Raw is embedded as JSON when it parses.
type ExecutionDetailResponse struct {
	ID          string                   `json:"id"`
	MessageID   *string                  `json:"message_id,omitempty"`
	ProviderID  *core_domain.ProviderID  `json:"provider_id,omitempty"`
	ChannelType core_domain.ChannelType  `json:"channel_type"`
	Detail      core_domain.DetailCode   `json:"detail"`
	Source      core_domain.DetailSource `json:"source"`
	Status      core_domain.DetailStatus `json:"status"`
	IsTest      bool                     `json:"is_test"`
	IsRetry     bool                     `json:"is_retry"`
	Raw         json.RawMessage          `json:"raw,omitempty"`
	CreatedAt   time.Time                `json:"created_at"`
}

// JobExecutionResponse is the audit trail of one job. MessageStatuses is
// derived from the terminal event of each message.
type JobExecutionResponse struct {
	JobID           string                               `json:"job_id"`
	Details         []ExecutionDetailResponse            `json:"details"`
	MessageStatuses map[string]core_domain.MessageStatus `json:"message_statuses"`
}

// MessageResponse is the read-only view of a message.
type MessageResponse struct {
	ID                string                    `json:"id"`
	JobID             string                    `json:"job_id"`
	TransactionID     string                    `json:"transaction_id"`
	SubscriberID      string                    `json:"subscriber_id"`
	ChannelType       core_domain.ChannelType   `json:"channel_type"`
	ProviderID        core_domain.ProviderID    `json:"provider_id"`
	IntegrationID     string                    `json:"integration_id"`
	Title             string                    `json:"title"`
	Content           *string                   `json:"content"`
	Targets           []string                  `json:"targets"`
	Status            core_domain.MessageStatus `json:"status"`
	ProviderMessageID *string                   `json:"provider_message_id,omitempty"`
	ErrorText         *string                   `json:"error_text,omitempty"`
	CreatedAt         time.Time                 `json:"created_at"`
	UpdatedAt         time.Time                 `json:"updated_at"`
}

func toExecutionDetailResponse(d *core_domain.ExecutionDetail) ExecutionDetailResponse {
	resp := ExecutionDetailResponse{
		ID:          d.ID,
		MessageID:   d.MessageID,
		ProviderID:  d.ProviderID,
		ChannelType: d.ChannelType,
		Detail:      d.Detail,
		Source:      d.Source,
		Status:      d.Status,
		IsTest:      d.IsTest,
		IsRetry:     d.IsRetry,
		CreatedAt:   d.CreatedAt,
	}
	if d.Raw != nil {
		if json.Valid([]byte(*d.Raw)) {
			resp.Raw = json.RawMessage(*d.Raw)
		} else {
			quoted, _ := json.Marshal(*d.Raw)
			resp.Raw = quoted
		}
	}
	return resp
}

func toMessageResponse(m *core_domain.Message) MessageResponse {
	return MessageResponse{
		ID:                m.ID,
		JobID:             m.JobID,
		TransactionID:     m.TransactionID,
		SubscriberID:      m.SubscriberID,
		ChannelType:       m.ChannelType,
		ProviderID:        m.ProviderID,
		IntegrationID:     m.IntegrationID,
		Title:             m.Title,
		Content:           m.Content,
		Targets:           m.Targets,
		Status:            m.Status,
		ProviderMessageID: m.ProviderMessageID,
		ErrorText:         m.ErrorText,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

// messageStatuses maps each message id in details to the status its events imply.
func messageStatuses(details []*core_domain.ExecutionDetail) map[string]core_domain.MessageStatus {
	out := make(map[string]core_domain.MessageStatus)
	for _, d := range details {
		if d.MessageID == nil {
			continue
		}
		id := *d.MessageID
		switch d.Status {
		case core_domain.DetailStatusSuccess:
			out[id] = core_domain.MessageStatusSuccess
		case core_domain.DetailStatusFailed:
			out[id] = core_domain.MessageStatusFailed
		default:
			if _, seen := out[id]; !seen {
				out[id] = core_domain.MessageStatusPending
			}
		}
	}
	return out
}
