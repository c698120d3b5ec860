package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/formpilot/formpilot-cli/internal/config"
)

// Gemini talks to the Google Generative Language API.
type Gemini struct {
	apiKey     string
	endpoint   string
	maxRetries uint64
	cfg        config.LLMConfig
	httpClient *http.Client
	log        *zap.Logger
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
	Role  string       `json:"role,omitempty"`
}

type geminiSystemInstruction struct {
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature      float64 `json:"temperature"`
	ResponseMimeType string  `json:"response_mime_type,omitempty"`
	MaxOutputTokens  int     `json:"maxOutputTokens,omitempty"`
}

type geminiRequest struct {
	Contents          []geminiContent          `json:"contents"`
	SystemInstruction *geminiSystemInstruction `json:"system_instruction,omitempty"`
	GenerationConfig  geminiGenerationConfig   `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

// NewGemini builds a Gemini client. The API key is read from the
// environment variable the config names; a missing key is a hard error so
// misconfiguration surfaces at startup, not mid-session.
func NewGemini(cfg config.LLMConfig, log *zap.Logger) (*Gemini, error) {
	if log == nil {
		log = zap.NewNop()
	}
	key := cfg.APIKey()
	if key == "" {
		return nil, fmt.Errorf("gemini API key not set (export %s)", cfg.APIKeyEnv)
	}

	endpoint := strings.TrimSuffix(cfg.Endpoint, "/")
	if !strings.Contains(endpoint, ":generateContent") {
		endpoint = fmt.Sprintf("%s/models/%s:generateContent", endpoint, cfg.Model)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &Gemini{
		apiKey:     key,
		endpoint:   endpoint,
		maxRetries: uint64(cfg.MaxRetries),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		log:        log.Named("llm.gemini"),
	}, nil
}

// Generate sends the request and returns the first candidate's text.
// Transient API failures are retried with exponential backoff; malformed
// responses and safety blocks are permanent.
func (g *Gemini) Generate(ctx context.Context, req Request) (string, error) {
	body, err := json.Marshal(g.buildPayload(req))
	if err != nil {
		return "", fmt.Errorf("marshal request payload: %w", err)
	}

	b := backoff.NewExponentialBackOff()
	b.MaxInterval = 30 * time.Second

	var text string
	operation := func() error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("create HTTP request: %w", err))
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("x-goog-api-key", g.apiKey)

		start := time.Now()
		resp, err := g.httpClient.Do(httpReq)
		if err != nil {
			g.log.Warn("Network error during generation, retrying", zap.Error(err))
			return fmt.Errorf("execute HTTP request: %w", err)
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response body: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return g.statusError(resp.StatusCode, respBody)
		}

		var payload geminiResponse
		if err := json.Unmarshal(respBody, &payload); err != nil {
			return backoff.Permanent(fmt.Errorf("decode response payload: %w", err))
		}
		if len(payload.Candidates) == 0 {
			return backoff.Permanent(fmt.Errorf("gemini returned no candidates"))
		}
		candidate := payload.Candidates[0]
		if len(candidate.Content.Parts) == 0 {
			if candidate.FinishReason == "SAFETY" || candidate.FinishReason == "BLOCKLIST" {
				return backoff.Permanent(fmt.Errorf("gemini blocked the request (reason: %s)", candidate.FinishReason))
			}
			return fmt.Errorf("gemini returned empty content parts (reason: %s)", candidate.FinishReason)
		}

		g.log.Debug("Generation complete",
			zap.Duration("duration", time.Since(start)),
			zap.Int("prompt_tokens", payload.UsageMetadata.PromptTokenCount),
			zap.Int("completion_tokens", payload.UsageMetadata.CandidatesTokenCount))

		text = candidate.Content.Parts[0].Text
		return nil
	}

	retry := backoff.WithContext(backoff.WithMaxRetries(b, g.maxRetries), ctx)
	if err := backoff.Retry(operation, retry); err != nil {
		return "", err
	}
	return text, nil
}

func (g *Gemini) buildPayload(req Request) geminiRequest {
	gen := geminiGenerationConfig{
		Temperature:     g.cfg.Temperature,
		MaxOutputTokens: g.cfg.MaxTokens,
	}
	if req.ForceJSON {
		gen.ResponseMimeType = "application/json"
	}

	payload := geminiRequest{
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: req.UserPrompt}}},
		},
		GenerationConfig: gen,
	}
	if req.SystemPrompt != "" {
		payload.SystemInstruction = &geminiSystemInstruction{
			Parts: []geminiPart{{Text: req.SystemPrompt}},
		}
	}
	return payload
}

func (g *Gemini) statusError(statusCode int, body []byte) error {
	err := fmt.Errorf("gemini API error: status %d, body: %s", statusCode, string(body))
	switch statusCode {
	case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusServiceUnavailable:
		g.log.Warn("Transient API error, retrying", zap.Int("status", statusCode))
		return err
	default:
		g.log.Error("Permanent API error", zap.Int("status", statusCode), zap.String("body", string(body)))
		return backoff.Permanent(err)
	}
}
