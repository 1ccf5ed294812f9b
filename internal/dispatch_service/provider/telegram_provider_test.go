package provider

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTelegramProvider_Send_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/botbot-token/sendMessage"), r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), "Title")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":42,"date":1700000000,"chat":{"id":123,"type":"private"}}}`))
	}))
	defer server.Close()

	p := NewTelegramProvider(testLogger(), server.URL, server.Client())
	res, err := p.Send(context.Background(), SendRequest{
		Targets:     []string{"123"},
		Title:       "Title",
		Content:     "Body",
		Credentials: map[string]string{"api_key": "bot-token"},
	})
	require.NoError(t, err)
	assert.Equal(t, "42", res.ID)
}

func TestTelegramProvider_Send_InvalidChatID(t *testing.T) {
	p := NewTelegramProvider(testLogger(), "http://unused", nil)

	_, err := p.Send(context.Background(), SendRequest{
		Targets:     []string{"https://hooks.example/abc"},
		Credentials: map[string]string{"api_key": "bot-token"},
	})
	var perr *ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "invalid_chat_id", perr.Code)
}

func TestTelegramProvider_Send_MissingToken(t *testing.T) {
	p := NewTelegramProvider(testLogger(), "http://unused", nil)

	_, err := p.Send(context.Background(), SendRequest{Targets: []string{"1"}})
	var perr *ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "missing_credentials", perr.Code)
}

func TestTelegramProvider_Send_PartialDeliveryReported(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if calls.Add(1) == 1 {
			_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":7,"date":1700000000,"chat":{"id":111,"type":"private"}}}`))
			return
		}
		_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`))
	}))
	defer server.Close()

	p := NewTelegramProvider(testLogger(), server.URL, server.Client())
	_, err := p.Send(context.Background(), SendRequest{
		Targets:     []string{"111", "222"},
		Content:     "Body",
		Credentials: map[string]string{"api_key": "bot-token"},
	})
	var perr *ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, []string{"111"}, perr.Delivered)
	assert.EqualValues(t, 2, calls.Load())
}
