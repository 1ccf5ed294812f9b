package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpoProvider_Send_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/--/api/v2/push/send", r.URL.Path)
		assert.Equal(t, "Bearer expo-token", r.Header.Get("Authorization"))

		var msg ExpoPushMessage
		require.NoError(t, json.NewDecoder(r.Body).Decode(&msg))
		assert.Equal(t, []string{"ExponentPushToken[a]"}, msg.To)
		assert.Equal(t, "Body", msg.Body)

		_, _ = w.Write([]byte(`{"data":[{"status":"ok","id":"ticket-1"}]}`))
	}))
	defer server.Close()

	p := NewExpoProvider(testLogger(), server.URL, server.Client())
	res, err := p.Send(context.Background(), SendRequest{
		Targets:     []string{"ExponentPushToken[a]"},
		Title:       "Title",
		Content:     "Body",
		Credentials: map[string]string{"api_key": "expo-token"},
	})
	require.NoError(t, err)
	assert.Equal(t, "ticket-1", res.ID)
}

func TestExpoProvider_Send_TicketError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"data":[{"status":"error","message":"not a valid token","details":{"error":"DeviceNotRegistered"}}]}`))
	}))
	defer server.Close()

	p := NewExpoProvider(testLogger(), server.URL, server.Client())
	_, err := p.Send(context.Background(), SendRequest{Targets: []string{"bad"}})

	var perr *ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "DeviceNotRegistered", perr.Code)
	assert.Equal(t, "not a valid token", perr.Body)
}

func TestExpoProvider_Send_RequestError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"errors":[{"code":"VALIDATION_ERROR","message":"to is required"}]}`))
	}))
	defer server.Close()

	p := NewExpoProvider(testLogger(), server.URL, server.Client())
	_, err := p.Send(context.Background(), SendRequest{})

	var perr *ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "VALIDATION_ERROR", perr.Code)
}
