package genai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rental-genie/internal/common/logger"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	return NewClient(&Config{
		BaseURL:    baseURL,
		APIKey:     "test-key",
		Timeout:    2 * time.Second,
		MaxRetries: 2,
	}, logger.NewTestLogger(t))
}

func TestExtract_ReturnsRawPayload(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/ai/extract-tenant-info", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")

		var req ExtractionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "I am 25", req.Message)

		w.Write([]byte(`{"fields": {"age": {"value": "25", "confidence": 0.9}}}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	raw, err := client.Extract(context.Background(), &ExtractionRequest{Message: "I am 25"})

	require.NoError(t, err)
	assert.Equal(t, "Bearer test-key", gotAuth)

	var payload ExtractionResponse
	require.NoError(t, json.Unmarshal(raw, &payload))
	assert.Equal(t, "25", payload.Fields["age"].Value)
}

func TestGenerate_ReturnsReplyText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/ai/generate", r.URL.Path)

		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.NotEmpty(t, req["system"])
		assert.Equal(t, "hello", req["input"])

		json.NewEncoder(w).Encode(map[string]string{"response": "Bonjour!"})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	reply, err := client.Generate(context.Background(), "be helpful", "hello")

	require.NoError(t, err)
	assert.Equal(t, "Bonjour!", reply)
}

func TestGenerate_EmptyResponseIsAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"response": ""})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.Generate(context.Background(), "system", "hello")

	assert.ErrorIs(t, err, ErrReplyFailed)
}

func TestPost_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"response": "recovered"})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	reply, err := client.Generate(context.Background(), "system", "hello")

	require.NoError(t, err)
	assert.Equal(t, "recovered", reply)
	assert.Equal(t, int32(3), calls.Load())
}

func TestPost_ExhaustedRetries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.Extract(context.Background(), &ExtractionRequest{Message: "hi"})

	assert.ErrorIs(t, err, ErrExtractionFailed)
}

func TestPost_TimeoutReportedAsTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		json.NewEncoder(w).Encode(map[string]string{"response": "too late"})
	}))
	defer server.Close()

	client := NewClient(&Config{
		BaseURL:    server.URL,
		Timeout:    50 * time.Millisecond,
		MaxRetries: 1,
	}, logger.NewTestLogger(t))

	_, err := client.Generate(context.Background(), "system", "hello")

	assert.ErrorIs(t, err, ErrGenAITimeout)
}
