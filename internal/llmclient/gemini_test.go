package llmclient

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
	"go.uber.org/zap"

	"github.com/formpilot/formpilot-cli/internal/config"
)

func geminiBody(text string) string {
	return `{"candidates":[{"content":{"parts":[{"text":` + mustQuote(text) + `}]},"finishReason":"STOP"}],` +
		`"usageMetadata":{"promptTokenCount":10,"candidatesTokenCount":5,"totalTokenCount":15}}`
}

func mustQuote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func testLLMConfig(t *testing.T, endpoint string) config.LLMConfig {
	t.Setenv("TEST_GEMINI_KEY", "test-key")
	return config.LLMConfig{
		Provider:    "gemini",
		Model:       "gemini-2.0-flash",
		APIKeyEnv:   "TEST_GEMINI_KEY",
		Endpoint:    endpoint,
		MaxTokens:   512,
		Temperature: 0.2,
		Timeout:     5 * time.Second,
		MaxRetries:  2,
	}
}

func TestGeminiGenerate(t *testing.T) {
	var captured geminiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		assert.Contains(t, r.URL.Path, "gemini-2.0-flash:generateContent")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Write([]byte(geminiBody(`{"summary":"ok"}`)))
	}))
	defer srv.Close()

	client, err := NewGemini(testLLMConfig(t, srv.URL), zap.NewNop())
	require.NoError(t, err)

	got, err := client.Generate(context.Background(), Request{
		SystemPrompt: "You fill forms.",
		UserPrompt:   "Fill this one.",
		ForceJSON:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"summary":"ok"}`, got)

	require.NotNil(t, captured.SystemInstruction)
	assert.Equal(t, "You fill forms.", captured.SystemInstruction.Parts[0].Text)
	assert.Equal(t, "application/json", captured.GenerationConfig.ResponseMimeType)
	assert.Equal(t, 512, captured.GenerationConfig.MaxOutputTokens)
}

func TestGeminiRetriesTransientErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(geminiBody("recovered")))
	}))
	defer srv.Close()

	client, err := NewGemini(testLLMConfig(t, srv.URL), zap.NewNop())
	require.NoError(t, err)

	got, err := client.Generate(context.Background(), Request{UserPrompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "recovered", got)
	assert.Equal(t, int32(2), hits.Load())
}

func TestGeminiDoesNotRetryClientErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"bad request"}`))
	}))
	defer srv.Close()

	client, err := NewGemini(testLLMConfig(t, srv.URL), zap.NewNop())
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), Request{UserPrompt: "hi"})
	require.Error(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

func TestGeminiRejectsSafetyBlocks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[{"content":{"parts":[]},"finishReason":"SAFETY"}]}`))
	}))
	defer srv.Close()

	client, err := NewGemini(testLLMConfig(t, srv.URL), zap.NewNop())
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), Request{UserPrompt: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SAFETY")
}

func TestGeminiRequiresAPIKey(t *testing.T) {
	cfg := testLLMConfig(t, "https://example.invalid")
	cfg.APIKeyEnv = "DEFINITELY_UNSET_KEY_VAR"

	_, err := NewGemini(cfg, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DEFINITELY_UNSET_KEY_VAR")
}

func TestNewFactory(t *testing.T) {
	t.Setenv("TEST_GEMINI_KEY", "k")
	cfg := config.LLMConfig{Provider: "gemini", Model: "m", APIKeyEnv: "TEST_GEMINI_KEY"}

	client, err := New(cfg, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &Gemini{}, client)

	cfg.Provider = "openai"
	_, err = New(cfg, zap.NewNop())
	require.Error(t, err)
}
