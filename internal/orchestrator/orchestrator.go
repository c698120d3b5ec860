// Package orchestrator drives the snapshot → plan → execute loop until the
// flow confirms, blocks, or the round budget runs out.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/formpilot/formpilot-cli/api/schemas"
	"github.com/formpilot/formpilot-cli/internal/config"
	"github.com/formpilot/formpilot-cli/internal/dom"
	"github.com/formpilot/formpilot-cli/internal/plan"
)

const defaultMaxRounds = 4

// Session is the browser surface the orchestrator itself needs; everything
// step-level lives behind the executor.
type Session interface {
	ID() string
	Navigate(ctx context.Context, url string) error
	HTML(ctx context.Context) (string, error)
	URL(ctx context.Context) (string, error)
}

// PlanSource produces the next round's plan from the current inventory.
type PlanSource interface {
	GeneratePlan(ctx context.Context, inv *schemas.PageInventory, userContext string, filled schemas.FilledFields) (*schemas.Plan, error)
}

// PlanExecutor runs a plan and reads back field state. BindInventory hands
// the executor the round's inventory so stale plan selectors can be
// re-resolved through each element's alternate locators.
type PlanExecutor interface {
	Execute(ctx context.Context, p *schemas.Plan, filled schemas.FilledFields) (schemas.FilledFields, []schemas.StepOutcome, error)
	SeedFilled(ctx context.Context, inv *schemas.PageInventory) schemas.FilledFields
	BindInventory(inv *schemas.PageInventory)
}

// Result summarizes one interaction session.
type Result struct {
	Status      schemas.PlanStatus
	Summary     string
	Assumptions []string
	Rounds      int
	Filled      schemas.FilledFields
	Traces      []schemas.ExecutionTrace
}

// Orchestrator owns one interaction session end to end.
type Orchestrator struct {
	session   Session
	extractor *dom.Extractor
	plans     PlanSource
	executor  PlanExecutor
	cfg       config.EngineConfig
	log       *zap.Logger
	now       func() time.Time
}

// New wires an orchestrator over its collaborators.
func New(session Session, plans PlanSource, executor PlanExecutor, cfg config.EngineConfig, log *zap.Logger) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{
		session:   session,
		extractor: dom.NewExtractor(log),
		plans:     plans,
		executor:  executor,
		cfg:       cfg,
		log:       log.Named("orchestrator"),
		now:       time.Now,
	}
}

// Run navigates to targetURL (when given) and loops planning rounds until a
// terminal status. The returned Result is valid even when err is non-nil:
// it carries the traces of every round that ran.
func (o *Orchestrator) Run(ctx context.Context, targetURL, userContext string) (*Result, error) {
	result := &Result{Status: schemas.StatusPending, Filled: schemas.FilledFields{}}

	if targetURL != "" {
		if err := o.session.Navigate(ctx, targetURL); err != nil {
			result.Status = schemas.StatusError
			return result, fmt.Errorf("navigate to %q: %w", targetURL, err)
		}
	}

	maxRounds := o.cfg.MaxPlanRounds
	if maxRounds <= 0 {
		maxRounds = defaultMaxRounds
	}

	for round := 1; round <= maxRounds; round++ {
		result.Rounds = round

		inv, err := o.snapshot(ctx)
		if err != nil {
			result.Status = schemas.StatusError
			return result, err
		}

		o.executor.BindInventory(inv)

		// Values already on the page count as filled, so a fresh run
		// against a half-completed form does not redo earlier work.
		for sel, val := range o.executor.SeedFilled(ctx, inv) {
			if _, ok := result.Filled[sel]; !ok {
				result.Filled[sel] = val
			}
		}

		p, err := o.generatePlan(ctx, inv, userContext, result.Filled)
		if err != nil {
			result.Status = schemas.StatusError
			return result, err
		}
		// Demotion and fixture substitution work on a copy; the validated
		// plan itself stays untouched.
		p = p.Clone()
		result.Summary = p.Summary
		result.Assumptions = p.Assumptions

		if p.Status == schemas.StatusConfirmed && len(p.Steps) > 0 && inv.FieldCount() > 0 {
			// A confirmation that still ships steps is optimistic; run the
			// steps and look again.
			o.log.Info("Demoting premature confirmation to pending",
				zap.Int("round", round), zap.Int("steps", len(p.Steps)))
			p.Status = schemas.StatusPending
		}

		switch p.Status {
		case schemas.StatusConfirmed:
			o.log.Info("Flow confirmed", zap.Int("round", round), zap.String("summary", p.Summary))
			result.Status = schemas.StatusConfirmed
			return result, nil
		case schemas.StatusBlocked, schemas.StatusError:
			o.log.Warn("Planner cannot progress",
				zap.Int("round", round), zap.String("status", string(p.Status)),
				zap.Strings("assumptions", p.Assumptions))
			result.Status = p.Status
			return result, nil
		}

		if len(p.Steps) == 0 {
			o.log.Info("Planner produced no steps; stopping", zap.Int("round", round))
			return result, nil
		}

		o.substituteUploadFixture(p)

		trace := schemas.ExecutionTrace{
			SessionID: o.session.ID(),
			Round:     round,
			URL:       inv.URL,
			Summary:   p.Summary,
			Status:    p.Status,
			StartedAt: o.now(),
		}
		filled, outcomes, execErr := o.executor.Execute(ctx, p, result.Filled)
		trace.Steps = outcomes
		result.Filled = filled
		result.Traces = append(result.Traces, trace)

		if werr := o.writeTrace(&trace); werr != nil {
			o.log.Warn("Failed to write execution trace", zap.Error(werr))
		}
		if execErr != nil {
			result.Status = schemas.StatusError
			return result, execErr
		}

		o.log.Info("Round executed",
			zap.Int("round", round), zap.Int("steps", len(outcomes)),
			zap.Int("filled_fields", len(result.Filled)))
	}

	o.log.Warn("Round budget exhausted without confirmation", zap.Int("rounds", maxRounds))
	return result, nil
}

func (o *Orchestrator) snapshot(ctx context.Context) (*schemas.PageInventory, error) {
	snapshot, err := o.session.HTML(ctx)
	if err != nil {
		return nil, fmt.Errorf("capture DOM snapshot: %w", err)
	}
	doc, err := dom.Parse(snapshot)
	if err != nil {
		return nil, fmt.Errorf("parse DOM snapshot: %w", err)
	}
	inv, err := o.extractor.Extract(doc)
	if err != nil {
		return nil, fmt.Errorf("extract page inventory: %w", err)
	}
	if url, uerr := o.session.URL(ctx); uerr == nil {
		inv.URL = url
	}
	return inv, nil
}

// generatePlan retries once when the model's output fails to parse; a second
// malformed response aborts the session.
func (o *Orchestrator) generatePlan(ctx context.Context, inv *schemas.PageInventory, userContext string, filled schemas.FilledFields) (*schemas.Plan, error) {
	p, err := o.plans.GeneratePlan(ctx, inv, userContext, filled)
	var parseErr *plan.ParseError
	if errors.As(err, &parseErr) {
		o.log.Warn("Plan response unparseable; requesting a fresh plan", zap.Error(err))
		p, err = o.plans.GeneratePlan(ctx, inv, userContext, filled)
	}
	if err != nil {
		return nil, fmt.Errorf("generate plan: %w", err)
	}
	return p, nil
}

// substituteUploadFixture rewrites upload step values to the configured
// fixture file; planners have no way to know local paths.
func (o *Orchestrator) substituteUploadFixture(p *schemas.Plan) {
	if o.cfg.UploadFixture == "" {
		return
	}
	for i := range p.Steps {
		if p.Steps[i].Action == schemas.ActionUploadFile {
			p.Steps[i].Value = o.cfg.UploadFixture
		}
	}
}
