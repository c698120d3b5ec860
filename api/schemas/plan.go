package schemas

import "slices"

// PlanStatus is the planner's assessment of the interaction session.
type PlanStatus string

const (
	StatusPending   PlanStatus = "pending"
	StatusConfirmed PlanStatus = "confirmed"
	StatusBlocked   PlanStatus = "blocked"
	StatusError     PlanStatus = "error"
)

// ValidStatuses enumerates every accepted plan status.
var ValidStatuses = map[PlanStatus]bool{
	StatusPending:   true,
	StatusConfirmed: true,
	StatusBlocked:   true,
	StatusError:     true,
}

// Action is a closed enumeration of the step kinds the engine can execute.
type Action string

const (
	ActionGoto            Action = "goto"
	ActionClick           Action = "click"
	ActionFill            Action = "fill"
	ActionPress           Action = "press"
	ActionSelectOption    Action = "select_option"
	ActionCheck           Action = "check"
	ActionUncheck         Action = "uncheck"
	ActionWaitForSelector Action = "wait_for_selector"
	ActionWaitForTimeout  Action = "wait_for_timeout"
	ActionUploadFile      Action = "upload_file"
)

// ValidActions enumerates every accepted step action.
var ValidActions = map[Action]bool{
	ActionGoto:            true,
	ActionClick:           true,
	ActionFill:            true,
	ActionPress:           true,
	ActionSelectOption:    true,
	ActionCheck:           true,
	ActionUncheck:         true,
	ActionWaitForSelector: true,
	ActionWaitForTimeout:  true,
	ActionUploadFile:      true,
}

// RequiresSelector reports whether the action needs a non-empty selector.
// Only pure timed waits operate without a target element.
func (a Action) RequiresSelector() bool {
	return a != ActionWaitForTimeout
}

// Step is a single instruction within a plan. Steps are immutable after
// validation.
type Step struct {
	Action   Action `json:"action"`
	Selector string `json:"selector,omitempty"`
	Value    string `json:"value,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// Plan is a validated, immutable action plan produced by the plan-generation
// service. A pending plan always carries at least one step; confirmed and
// blocked plans may be empty. Callers that need to adjust a plan work on a
// Clone.
type Plan struct {
	Summary     string     `json:"summary"`
	Status      PlanStatus `json:"status"`
	Assumptions []string   `json:"assumptions"`
	Steps       []Step     `json:"steps"`
}

// Clone returns an independent copy of the plan.
func (p *Plan) Clone() *Plan {
	c := *p
	c.Assumptions = slices.Clone(p.Assumptions)
	c.Steps = slices.Clone(p.Steps)
	return &c
}
