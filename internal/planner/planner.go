// Package planner turns a page inventory into a validated interaction plan
// and answers dropdown option-selection queries, both through the LLM
// client.
package planner

import (
	"context"
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/formpilot/formpilot-cli/api/schemas"
	"github.com/formpilot/formpilot-cli/internal/llmclient"
	"github.com/formpilot/formpilot-cli/internal/plan"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Planner generates interaction plans.
type Planner struct {
	client llmclient.Client
	log    *zap.Logger
}

// New builds a Planner over the given client.
func New(client llmclient.Client, log *zap.Logger) *Planner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Planner{client: client, log: log.Named("planner")}
}

// GeneratePlan asks the model for the next round's plan. userContext is the
// caller-supplied description of the person and data to fill with; filled
// lists fields already committed so the model does not re-plan them.
func (p *Planner) GeneratePlan(ctx context.Context, inv *schemas.PageInventory, userContext string, filled schemas.FilledFields) (*schemas.Plan, error) {
	inventoryJSON, err := json.MarshalIndent(inv, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal page inventory: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("Here is the current page inventory:\n")
	sb.Write(inventoryJSON)
	if len(filled) > 0 {
		filledJSON, _ := json.MarshalIndent(filled, "", "  ")
		sb.WriteString("\n\nFields already filled in earlier rounds (do not plan steps for these):\n")
		sb.Write(filledJSON)
	}
	if userContext != "" {
		sb.WriteString("\n\nAdditional instructions:\n")
		sb.WriteString(userContext)
	}

	raw, err := p.client.Generate(ctx, llmclient.Request{
		SystemPrompt: planSystemPrompt + "\n\n" + planOutputSchema,
		UserPrompt:   sb.String(),
		ForceJSON:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("generate plan: %w", err)
	}

	parsed, err := plan.Parse(raw)
	if err != nil {
		p.log.Warn("Model returned an unparseable plan",
			zap.Error(err), zap.Int("response_len", len(raw)))
		return nil, err
	}

	p.log.Info("Plan generated",
		zap.String("status", string(parsed.Status)),
		zap.Int("steps", len(parsed.Steps)),
		zap.String("summary", parsed.Summary))
	return parsed, nil
}
