package schemas

import "time"

// StepResult is the terminal state of one executed step.
type StepResult string

const (
	ResultOK      StepResult = "ok"
	ResultSkipped StepResult = "skipped"
	ResultWarning StepResult = "warning"
	ResultFailed  StepResult = "failed"
)

// StepOutcome records what happened to a single plan step. The ordered
// sequence of outcomes forms the machine-readable execution trace.
type StepOutcome struct {
	Index    int        `json:"index"`
	Action   Action     `json:"action"`
	Selector string     `json:"selector,omitempty"`
	Value    string     `json:"value,omitempty"`
	Result   StepResult `json:"result"`
	Note     string     `json:"note,omitempty"`
	Elapsed  float64    `json:"elapsed_sec"`
}

// ExecutionTrace is the audit artifact for one planning round.
type ExecutionTrace struct {
	SessionID string        `json:"session_id"`
	Round     int           `json:"round"`
	URL       string        `json:"url,omitempty"`
	Summary   string        `json:"summary,omitempty"`
	Status    PlanStatus    `json:"status,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	Steps     []StepOutcome `json:"steps"`
}

// FilledFields maps a selector string to the last value confirmed written
// into that field. It grows monotonically within one interaction session and
// is used to suppress redundant writes across planning rounds.
type FilledFields map[string]string

// Clone returns an independent copy, never nil.
func (f FilledFields) Clone() FilledFields {
	out := make(FilledFields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}
