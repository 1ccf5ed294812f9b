package provider

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/aradsms/golang_services/internal/core_domain"
)

// TelegramProvider delivers chat messages through a Telegram bot. Targets are
// chat ids; the bot token comes from the integration credentials.
type TelegramProvider struct {
	logger     *slog.Logger
	apiURL     string
	httpClient *http.Client

	mu   sync.Mutex
	bots map[string]*tele.Bot // by token
}

func NewTelegramProvider(logger *slog.Logger, apiURL string, httpClient *http.Client) *TelegramProvider {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &TelegramProvider{
		logger:     logger.With("provider", core_domain.ProviderTelegram),
		apiURL:     strings.TrimRight(apiURL, "/"),
		httpClient: httpClient,
		bots:       make(map[string]*tele.Bot),
	}
}

func (p *TelegramProvider) ID() core_domain.ProviderID { return core_domain.ProviderTelegram }

func (p *TelegramProvider) ChannelType() core_domain.ChannelType { return core_domain.ChannelChat }

func (p *TelegramProvider) bot(token string) (*tele.Bot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if b, ok := p.bots[token]; ok {
		return b, nil
	}
	b, err := tele.NewBot(tele.Settings{
		URL:     p.apiURL,
		Token:   token,
		Client:  p.httpClient,
		Offline: true, // no getMe round trip; the bot only sends
	})
	if err != nil {
		return nil, err
	}
	p.bots[token] = b
	return b, nil
}

func (p *TelegramProvider) Send(ctx context.Context, req SendRequest) (*SendResult, error) {
	token := credential(req.Credentials, "api_key", "token")
	if token == "" {
		return nil, &ProviderError{Provider: p.ID(), Code: "missing_credentials", Err: fmt.Errorf("integration has no bot token")}
	}
	b, err := p.bot(token)
	if err != nil {
		return nil, &ProviderError{Provider: p.ID(), Err: err}
	}

	text := req.Content
	if req.Title != "" {
		text = req.Title + "\n" + req.Content
	}

	var (
		sent      []int
		delivered []string
	)
	for _, target := range req.Targets {
		if err := ctx.Err(); err != nil {
			return nil, &ProviderError{Provider: p.ID(), Delivered: delivered, Err: err}
		}
		chatID, err := strconv.ParseInt(strings.TrimSpace(target), 10, 64)
		if err != nil {
			return nil, &ProviderError{Provider: p.ID(), Code: "invalid_chat_id", Delivered: delivered, Err: fmt.Errorf("target %q: %w", target, err)}
		}
		msg, err := b.Send(tele.ChatID(chatID), text)
		if err != nil {
			p.logger.WarnContext(ctx, "Telegram send failed", "chat_id", chatID, "delivered", len(delivered), "error", err, "message_id", req.MessageID)
			return nil, &ProviderError{Provider: p.ID(), Delivered: delivered, Err: err}
		}
		sent = append(sent, msg.ID)
		delivered = append(delivered, target)
	}

	result := &SendResult{Date: time.Now().UTC(), Raw: map[string]any{"message_ids": sent}}
	if len(sent) > 0 {
		result.ID = strconv.Itoa(sent[len(sent)-1])
	}
	p.logger.InfoContext(ctx, "Chat message sent via Telegram", "chats", len(sent), "message_id", req.MessageID)
	return result, nil
}
