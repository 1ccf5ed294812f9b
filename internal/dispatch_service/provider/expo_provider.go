package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aradsms/golang_services/internal/core_domain"
)

// ExpoProvider sends push notifications through the Expo push service.
type ExpoProvider struct {
	logger     *slog.Logger
	httpClient *http.Client
	baseURL    string
}

func NewExpoProvider(logger *slog.Logger, baseURL string, httpClient *http.Client) *ExpoProvider {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &ExpoProvider{
		logger:     logger.With("provider", core_domain.ProviderExpo),
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

type ExpoPushMessage struct {
	To    []string       `json:"to"`
	Title string         `json:"title,omitempty"`
	Body  string         `json:"body"`
	Data  map[string]any `json:"data,omitempty"`
}

type ExpoPushTicket struct {
	Status  string         `json:"status"`
	ID      string         `json:"id,omitempty"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

type ExpoPushResponse struct {
	Data   []ExpoPushTicket `json:"data"`
	Errors []struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"errors,omitempty"`
}

func (p *ExpoProvider) ID() core_domain.ProviderID { return core_domain.ProviderExpo }

func (p *ExpoProvider) ChannelType() core_domain.ChannelType { return core_domain.ChannelPush }

func (p *ExpoProvider) Send(ctx context.Context, req SendRequest) (*SendResult, error) {
	reqBytes, err := json.Marshal(ExpoPushMessage{
		To:    req.Targets,
		Title: req.Title,
		Body:  req.Content,
		Data:  mergeData(req.Payload, req.Overrides.Data),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal Expo request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/--/api/v2/push/send", bytes.NewReader(reqBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create Expo HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	// The access token is optional unless enhanced push security is enabled.
	if token := credential(req.Credentials, "api_key", "access_token"); token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	httpResp, err := p.httpClient.Do(httpReq)
	if err != nil {
		p.logger.ErrorContext(ctx, "Failed to send request to Expo", "error", err, "message_id", req.MessageID)
		return nil, &ProviderError{Provider: p.ID(), Err: err}
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &ProviderError{Provider: p.ID(), StatusCode: httpResp.StatusCode, Err: fmt.Errorf("reading response body: %w", err)}
	}
	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, &ProviderError{Provider: p.ID(), StatusCode: httpResp.StatusCode, Body: truncate(string(respBody), 512)}
	}

	var parsed ExpoPushResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, &ProviderError{Provider: p.ID(), StatusCode: httpResp.StatusCode, Body: truncate(string(respBody), 512), Err: fmt.Errorf("unparseable response: %w", err)}
	}
	if len(parsed.Errors) > 0 {
		return nil, &ProviderError{Provider: p.ID(), StatusCode: httpResp.StatusCode, Code: parsed.Errors[0].Code, Body: parsed.Errors[0].Message}
	}

	var firstID string
	var okCount int
	var lastErr ExpoPushTicket
	for _, ticket := range parsed.Data {
		if ticket.Status == "ok" {
			okCount++
			if firstID == "" {
				firstID = ticket.ID
			}
			continue
		}
		lastErr = ticket
	}
	if okCount == 0 && len(parsed.Data) > 0 {
		code, _ := lastErr.Details["error"].(string)
		return nil, &ProviderError{Provider: p.ID(), StatusCode: httpResp.StatusCode, Code: code, Body: lastErr.Message}
	}

	p.logger.InfoContext(ctx, "Push sent via Expo", "tickets", len(parsed.Data), "ok", okCount, "message_id", req.MessageID)
	return &SendResult{ID: firstID, Date: time.Now().UTC(), Raw: parsed}, nil
}
