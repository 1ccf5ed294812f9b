package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aradsms/golang_services/internal/core_domain"
)

// FCMProvider sends push notifications through the FCM HTTP API.
type FCMProvider struct {
	logger     *slog.Logger
	httpClient *http.Client
	baseURL    string
}

func NewFCMProvider(logger *slog.Logger, baseURL string, httpClient *http.Client) *FCMProvider {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &FCMProvider{
		logger:     logger.With("provider", core_domain.ProviderFCM),
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// FCMSendRequestBody is the multicast request accepted by /fcm/send.
type FCMSendRequestBody struct {
	RegistrationIDs []string        `json:"registration_ids"`
	Notification    FCMNotification `json:"notification"`
	Data            map[string]any  `json:"data,omitempty"`
}

type FCMNotification struct {
	Title string `json:"title,omitempty"`
	Body  string `json:"body"`
}

// FCMSendResponse is the multicast response.
type FCMSendResponse struct {
	MulticastID int64           `json:"multicast_id"`
	Success     int             `json:"success"`
	Failure     int             `json:"failure"`
	Results     []FCMSendResult `json:"results"`
}

type FCMSendResult struct {
	MessageID string `json:"message_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

func (p *FCMProvider) ID() core_domain.ProviderID { return core_domain.ProviderFCM }

func (p *FCMProvider) ChannelType() core_domain.ChannelType { return core_domain.ChannelPush }

func (p *FCMProvider) Send(ctx context.Context, req SendRequest) (*SendResult, error) {
	serverKey := credential(req.Credentials, "secret_key", "server_key", "api_key")
	if serverKey == "" {
		return nil, &ProviderError{Provider: p.ID(), Code: "missing_credentials", Err: fmt.Errorf("integration has no server key")}
	}

	body := FCMSendRequestBody{
		RegistrationIDs: req.Targets,
		Notification:    FCMNotification{Title: req.Title, Body: req.Content},
		Data:            mergeData(req.Payload, req.Overrides.Data),
	}
	reqBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal FCM request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/fcm/send", bytes.NewReader(reqBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create FCM HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "key="+serverKey)

	p.logger.DebugContext(ctx, "Sending HTTP request to FCM", "message_id", req.MessageID, "targets", len(req.Targets))

	httpResp, err := p.httpClient.Do(httpReq)
	if err != nil {
		p.logger.ErrorContext(ctx, "Failed to send request to FCM", "error", err, "message_id", req.MessageID)
		return nil, &ProviderError{Provider: p.ID(), Err: err}
	}
	defer httpResp.Body.Close()

	respBody, readErr := io.ReadAll(httpResp.Body)
	if readErr != nil {
		return nil, &ProviderError{Provider: p.ID(), StatusCode: httpResp.StatusCode, Err: fmt.Errorf("reading response body: %w", readErr)}
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		p.logger.WarnContext(ctx, "FCM send failed", "status_code", httpResp.StatusCode, "message_id", req.MessageID)
		return nil, &ProviderError{Provider: p.ID(), StatusCode: httpResp.StatusCode, Body: truncate(string(respBody), 512)}
	}

	var parsed FCMSendResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, &ProviderError{Provider: p.ID(), StatusCode: httpResp.StatusCode, Body: truncate(string(respBody), 512), Err: fmt.Errorf("unparseable response: %w", err)}
	}

	if parsed.Success == 0 && parsed.Failure > 0 {
		code := ""
		if len(parsed.Results) > 0 {
			code = parsed.Results[0].Error
		}
		return nil, &ProviderError{Provider: p.ID(), StatusCode: httpResp.StatusCode, Code: code, Body: truncate(string(respBody), 512)}
	}

	p.logger.InfoContext(ctx, "Push sent via FCM", "multicast_id", parsed.MulticastID, "success", parsed.Success, "failure", parsed.Failure, "message_id", req.MessageID)
	return &SendResult{
		ID:   strconv.FormatInt(parsed.MulticastID, 10),
		Date: time.Now().UTC(),
		Raw:  parsed,
	}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
