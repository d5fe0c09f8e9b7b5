package modelclient

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskpilot/taskpilot/src/aisdk"
)

func testClient(serverURL string) *Client {
	return NewClient(Config{
		APIKey:     "test-key",
		BaseURL:    serverURL,
		Model:      "test/model",
		RetryCount: 2,
		RetryDelay: time.Millisecond,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func TestCreateChatCompletion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req aisdk.ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test/model", req.Model, "client fills the configured model")

		json.NewEncoder(w).Encode(aisdk.ChatCompletionResponse{
			Choices: []aisdk.Choice{{Message: aisdk.Message{Role: "assistant", Content: "hello"}}},
		})
	}))
	defer server.Close()

	client := testClient(server.URL)
	resp, err := client.CreateChatCompletion(context.Background(), &aisdk.ChatCompletionRequest{
		Messages: []*aisdk.Message{{Role: "user", Content: "hi"}},
	})
	require.NoError(t, err)
	require.Len(t, resp.Choices, 1)
	assert.Equal(t, "hello", resp.Choices[0].Message.Content)
}

func TestRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(aisdk.ChatCompletionResponse{
			Choices: []aisdk.Choice{{Message: aisdk.Message{Role: "assistant", Content: "ok"}}},
		})
	}))
	defer server.Close()

	client := testClient(server.URL)
	resp, err := client.CreateChatCompletion(context.Background(), &aisdk.ChatCompletionRequest{})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Choices[0].Message.Content)
	assert.EqualValues(t, 2, calls.Load())
}

func TestClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]interface{}{"message": "bad key", "code": "invalid_api_key"},
		})
	}))
	defer server.Close()

	client := testClient(server.URL)
	_, err := client.CreateChatCompletion(context.Background(), &aisdk.ChatCompletionRequest{})
	require.Error(t, err)
	assert.EqualValues(t, 1, calls.Load())

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsAuthError())
	assert.False(t, apiErr.IsRetryable())
}

func TestRateLimitErrorDetails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]interface{}{"message": "slow down", "code": "rate_limit_exceeded"},
		})
	}))
	defer server.Close()

	client := testClient(server.URL)
	_, err := client.CreateChatCompletion(context.Background(), &aisdk.ChatCompletionRequest{})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsRateLimit())
	assert.Equal(t, "30", apiErr.Details["retry_after"])
}
