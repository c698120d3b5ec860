// Package llmclient provides the model transport behind plan generation
// and dropdown option selection.
package llmclient

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/formpilot/formpilot-cli/internal/config"
)

// Request carries one generation call. ForceJSON asks the provider to emit
// a bare JSON document instead of prose.
type Request struct {
	SystemPrompt string
	UserPrompt   string
	ForceJSON    bool
}

// Client generates a text completion for a request.
type Client interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// New builds the client for the configured provider.
func New(cfg config.LLMConfig, log *zap.Logger) (Client, error) {
	switch cfg.Provider {
	case "gemini":
		return NewGemini(cfg, log)
	default:
		return nil, fmt.Errorf("unsupported LLM provider %q (supported: gemini)", cfg.Provider)
	}
}
