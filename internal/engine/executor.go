package engine

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/formpilot/formpilot-cli/api/schemas"
	"github.com/formpilot/formpilot-cli/internal/config"
	"github.com/formpilot/formpilot-cli/internal/match"
	"github.com/formpilot/formpilot-cli/internal/selector"
)

const (
	defaultStepTimeout  = 30 * time.Second
	defaultSubmitDelay  = 5 * time.Second
	defaultWaitMillis   = 1000
	defaultOpenTimeout  = time.Second
	postCommitSettleGap = 500 * time.Millisecond
)

// submitKeywords mark a click target as a probable form submission; the
// executor inserts a settle delay before such clicks so pending validation
// and async field commits land first.
var submitKeywords = []string{"submit", "application", "apply"}

type handlerFunc func(ctx context.Context, step schemas.Step) (stepNote, error)

// stepNote carries a handler's annotation for the trace. warn downgrades the
// outcome from ok to warning without failing the plan.
type stepNote struct {
	text string
	warn bool
}

// Executor runs validated plans step by step. It is not safe for concurrent
// use; one executor drives one page.
type Executor struct {
	page     Page
	resolver *selector.Resolver
	matcher  *match.Matcher
	picker   OptionPicker
	cfg      config.EngineConfig
	log      *zap.Logger

	// inv is the element inventory of the current planning round, bound by
	// BindInventory; resolveStep consults it when a plan selector is stale.
	inv *schemas.PageInventory

	handlers map[schemas.Action]handlerFunc
}

// NewExecutor wires an executor over a live page. picker may be nil, in
// which case dropdown options are chosen by fuzzy matching alone.
func NewExecutor(page Page, res *selector.Resolver, m *match.Matcher, picker OptionPicker, cfg config.EngineConfig, log *zap.Logger) *Executor {
	if log == nil {
		log = zap.NewNop()
	}
	if res == nil {
		res = selector.New(log)
	}
	e := &Executor{
		page:     page,
		resolver: res,
		matcher:  m,
		picker:   picker,
		cfg:      cfg,
		log:      log,
	}
	e.handlers = map[schemas.Action]handlerFunc{
		schemas.ActionGoto:            e.handleGoto,
		schemas.ActionClick:           e.handleClick,
		schemas.ActionFill:            e.handleFill,
		schemas.ActionPress:           e.handlePress,
		schemas.ActionSelectOption:    e.handleSelectOption,
		schemas.ActionCheck:           e.handleCheck,
		schemas.ActionUncheck:         e.handleUncheck,
		schemas.ActionWaitForSelector: e.handleWaitForSelector,
		schemas.ActionWaitForTimeout:  e.handleWaitForTimeout,
		schemas.ActionUploadFile:      e.handleUpload,
	}
	return e
}

// Execute runs every step of the plan in order. It returns the updated
// filled-fields ledger, the per-step trace, and the first hard failure. The
// input ledger is never mutated.
func (e *Executor) Execute(ctx context.Context, p *schemas.Plan, filled schemas.FilledFields) (schemas.FilledFields, []schemas.StepOutcome, error) {
	filled = filled.Clone()
	outcomes := make([]schemas.StepOutcome, 0, len(p.Steps))

	for i, step := range p.Steps {
		outcome := schemas.StepOutcome{
			Index:    i,
			Action:   step.Action,
			Selector: step.Selector,
			Value:    step.Value,
		}

		if e.alreadySatisfied(step, filled) {
			outcome.Result = schemas.ResultSkipped
			outcome.Note = "field already holds a matching value"
			outcomes = append(outcomes, outcome)
			e.log.Info("Skipping redundant write",
				zap.Int("step", i), zap.String("selector", step.Selector))
			continue
		}

		if step.Action == schemas.ActionClick && suggestsSubmission(step) {
			e.log.Info("Submission control detected; letting the page settle",
				zap.Int("step", i), zap.String("selector", step.Selector))
			if err := e.page.Sleep(ctx, e.submitDelay()); err != nil {
				return filled, outcomes, &StepError{Index: i, Action: step.Action, Selector: step.Selector, Err: err}
			}
		}

		handler, ok := e.handlers[step.Action]
		if !ok {
			err := fmt.Errorf("unsupported action %q", step.Action)
			outcome.Result = schemas.ResultFailed
			outcome.Note = err.Error()
			outcomes = append(outcomes, outcome)
			return filled, outcomes, &StepError{Index: i, Action: step.Action, Selector: step.Selector, Err: err}
		}

		start := time.Now()
		stepCtx, cancel := context.WithTimeout(ctx, e.stepTimeout())
		note, err := handler(stepCtx, step)
		cancel()
		outcome.Elapsed = time.Since(start).Seconds()

		if err != nil {
			outcome.Result = schemas.ResultFailed
			outcome.Note = err.Error()
			outcomes = append(outcomes, outcome)
			e.log.Error("Step failed",
				zap.Int("step", i), zap.String("action", string(step.Action)),
				zap.String("selector", step.Selector), zap.Error(err))
			return filled, outcomes, &StepError{Index: i, Action: step.Action, Selector: step.Selector, Err: err}
		}

		outcome.Result = schemas.ResultOK
		if note.warn {
			outcome.Result = schemas.ResultWarning
		}
		outcome.Note = note.text
		outcomes = append(outcomes, outcome)

		if step.Action == schemas.ActionFill || step.Action == schemas.ActionSelectOption {
			e.recordFilled(ctx, step, filled)
		}

		e.log.Debug("Step completed",
			zap.Int("step", i), zap.String("action", string(step.Action)),
			zap.String("result", string(outcome.Result)),
			zap.Duration("elapsed", time.Since(start)))
	}

	return filled, outcomes, nil
}

// alreadySatisfied suppresses a write when a prior round confirmed a
// matching value into an overlapping selector. A step with an empty value is
// satisfied by any recorded value for that field.
func (e *Executor) alreadySatisfied(step schemas.Step, filled schemas.FilledFields) bool {
	if step.Action != schemas.ActionFill && step.Action != schemas.ActionSelectOption {
		return false
	}
	for sel, val := range filled {
		if !selectorsOverlap(sel, step.Selector) {
			continue
		}
		if step.Value == "" || match.Overlaps(val, step.Value) {
			return true
		}
	}
	return false
}

func selectorsOverlap(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return a == b || strings.Contains(a, b) || strings.Contains(b, a)
}

func suggestsSubmission(step schemas.Step) bool {
	sel := strings.ToLower(step.Selector)
	val := strings.ToLower(step.Value)
	for _, kw := range submitKeywords {
		if strings.Contains(sel, kw) || strings.Contains(val, kw) {
			return true
		}
	}
	return false
}

// recordFilled re-reads the committed value and upserts it into the ledger
// under the plan's own selector string. Failures to read back are tolerated;
// the step value stands in for the live one.
func (e *Executor) recordFilled(ctx context.Context, step schemas.Step, filled schemas.FilledFields) {
	value := step.Value
	if res, err := e.resolveStep(ctx, step.Selector); err == nil {
		if live, rerr := e.page.ReadValue(ctx, res.Selector); rerr == nil && live != "" {
			value = live
		}
	}
	if value != "" {
		filled[step.Selector] = value
	}
}

func (e *Executor) stepTimeout() time.Duration {
	if e.cfg.StepTimeout > 0 {
		return e.cfg.StepTimeout
	}
	return defaultStepTimeout
}

func (e *Executor) submitDelay() time.Duration {
	if e.cfg.SubmitDelay > 0 {
		return e.cfg.SubmitDelay
	}
	return defaultSubmitDelay
}

func (e *Executor) openTimeout() time.Duration {
	if e.cfg.DropdownOpenTimeout > 0 {
		return e.cfg.DropdownOpenTimeout
	}
	return defaultOpenTimeout
}

func (e *Executor) handleGoto(ctx context.Context, step schemas.Step) (stepNote, error) {
	target := step.Value
	if target == "" {
		target = step.Selector
	}
	if target == "" {
		return stepNote{}, fmt.Errorf("goto requires a URL in value or selector")
	}
	return stepNote{}, e.page.Navigate(ctx, target)
}

func (e *Executor) handleClick(ctx context.Context, step schemas.Step) (stepNote, error) {
	res, err := e.resolveStep(ctx, step.Selector)
	if err != nil {
		return stepNote{}, err
	}
	if err := e.page.Click(ctx, res.Selector); err != nil {
		if ferr := e.page.ForceClick(ctx, res.Selector); ferr != nil {
			return stepNote{}, fmt.Errorf("click failed: %w", err)
		}
		return stepNote{text: "forced click after standard click failed", warn: true}, nil
	}
	return stepNote{}, nil
}

func (e *Executor) handleFill(ctx context.Context, step schemas.Step) (stepNote, error) {
	res, err := e.resolveStep(ctx, step.Selector)
	if err != nil {
		return stepNote{}, err
	}
	// Numeric inputs reject keystroke sequences like "5+" that planners
	// sometimes emit; a scripted value assignment sidesteps the widget's
	// input filtering while still firing the framework events.
	if typ, ok, _ := e.page.Attribute(ctx, res.Selector, "type"); ok && strings.EqualFold(typ, "number") {
		if err := e.page.SetValueJS(ctx, res.Selector, step.Value); err != nil {
			return stepNote{}, err
		}
		return stepNote{text: "value set via script (number input)"}, nil
	}
	return stepNote{}, e.page.Fill(ctx, res.Selector, step.Value)
}

func (e *Executor) handlePress(ctx context.Context, step schemas.Step) (stepNote, error) {
	res, err := e.resolveStep(ctx, step.Selector)
	if err != nil {
		return stepNote{}, err
	}
	if step.Value == "" {
		// A press without a key is treated as a click on the target.
		if err := e.page.Click(ctx, res.Selector); err != nil {
			return stepNote{}, err
		}
		return stepNote{text: "no key given; clicked the target instead", warn: true}, nil
	}
	return stepNote{}, e.page.Press(ctx, res.Selector, step.Value)
}

func (e *Executor) handleCheck(ctx context.Context, step schemas.Step) (stepNote, error) {
	return e.setCheckedState(ctx, step, true)
}

func (e *Executor) handleUncheck(ctx context.Context, step schemas.Step) (stepNote, error) {
	return e.setCheckedState(ctx, step, false)
}

func (e *Executor) setCheckedState(ctx context.Context, step schemas.Step, checked bool) (stepNote, error) {
	res, err := e.resolveStep(ctx, step.Selector)
	if err == nil {
		return stepNote{}, e.page.SetChecked(ctx, res.Selector, checked)
	}

	// Custom checkbox widgets often hide the input; clicking the labelled
	// text toggles them when the input itself cannot be located.
	if label := hasTextArgument(step.Selector); label != "" {
		labelSel := fmt.Sprintf(`//label[contains(normalize-space(.), %q)]`, label)
		if n, cerr := e.page.CountMatches(ctx, labelSel); cerr == nil && n > 0 {
			if cerr := e.page.Click(ctx, labelSel); cerr == nil {
				return stepNote{text: "toggled via label text", warn: true}, nil
			}
		}
	}
	return stepNote{}, err
}

// hasTextArgument extracts the literal from a :has-text('...') pseudo-class,
// which some planners emit even though it is not standard CSS.
func hasTextArgument(sel string) string {
	idx := strings.Index(sel, ":has-text(")
	if idx < 0 {
		return ""
	}
	rest := sel[idx+len(":has-text("):]
	end := strings.IndexByte(rest, ')')
	if end < 0 {
		return ""
	}
	return strings.Trim(rest[:end], `'"`)
}

func (e *Executor) handleWaitForSelector(ctx context.Context, step schemas.Step) (stepNote, error) {
	state := strings.ToLower(strings.TrimSpace(step.Value))
	if state == "" {
		state = "visible"
	}
	switch state {
	case "attached", "detached", "visible", "hidden":
	default:
		return stepNote{}, fmt.Errorf("unknown wait state %q", step.Value)
	}
	return stepNote{}, e.page.WaitFor(ctx, step.Selector, state, e.stepTimeout())
}

func (e *Executor) handleWaitForTimeout(ctx context.Context, step schemas.Step) (stepNote, error) {
	ms := defaultWaitMillis
	if raw := strings.TrimSpace(step.Value); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return stepNote{}, fmt.Errorf("wait_for_timeout value %q is not an integer millisecond count", step.Value)
		}
		ms = parsed
	}
	if ms < 0 {
		return stepNote{}, fmt.Errorf("wait_for_timeout value %q is negative", step.Value)
	}
	return stepNote{}, e.page.Sleep(ctx, time.Duration(ms)*time.Millisecond)
}
