package planner

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/formpilot/formpilot-cli/internal/engine"
	"github.com/formpilot/formpilot-cli/internal/llmclient"
)

// OptionService answers dropdown option-selection queries with model
// reasoning. The engine verifies membership and falls back to fuzzy
// matching, so this service only has to return its best guess.
type OptionService struct {
	client      llmclient.Client
	userContext string
	log         *zap.Logger
}

// NewOptionService builds the service. userContext is forwarded into every
// prompt so answers can draw on who is filling the form.
func NewOptionService(client llmclient.Client, userContext string, log *zap.Logger) *OptionService {
	if log == nil {
		log = zap.NewNop()
	}
	return &OptionService{client: client, userContext: userContext, log: log.Named("options")}
}

// PickOption implements engine.OptionPicker.
func (s *OptionService) PickOption(ctx context.Context, req engine.OptionRequest) (string, error) {
	if len(req.Options) == 0 {
		return "", nil
	}
	if len(req.Options) == 1 {
		return req.Options[0], nil
	}

	var list strings.Builder
	for _, opt := range req.Options {
		list.WriteString("- ")
		list.WriteString(opt)
		list.WriteByte('\n')
	}
	userInfo := ""
	if s.userContext != "" {
		userInfo = "\n\nUser information for context:\n" + s.userContext
	}
	prompt := fmt.Sprintf(optionPromptTemplate,
		req.FieldName, req.TargetValue, strings.TrimRight(list.String(), "\n"), userInfo)

	raw, err := s.client.Generate(ctx, llmclient.Request{UserPrompt: prompt})
	if err != nil {
		return "", fmt.Errorf("option selection: %w", err)
	}
	answer := strings.TrimSpace(strings.Trim(strings.TrimSpace(raw), `"`))
	if answer == "" {
		return "", nil
	}

	// The model is instructed to echo an option verbatim, but variations
	// happen; map the answer back onto a harvested option before trusting it.
	for _, opt := range req.Options {
		if opt == answer {
			return opt, nil
		}
	}
	lower := strings.ToLower(answer)
	for _, opt := range req.Options {
		if strings.ToLower(opt) == lower {
			return opt, nil
		}
	}
	for _, opt := range req.Options {
		ol := strings.ToLower(opt)
		if strings.Contains(ol, lower) || strings.Contains(lower, ol) {
			return opt, nil
		}
	}

	s.log.Warn("Model chose an option not present in the dropdown",
		zap.String("field", req.FieldName), zap.String("answer", answer))
	return "", nil
}
