// Package plan parses and validates action plans returned by the
// plan-generation service. Anything that survives Parse is structurally
// sound; malformed payloads are rejected, never repaired beyond stripping
// code-fence decoration.
package plan

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/formpilot/formpilot-cli/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// jsonBlockRegex pulls the JSON object out of a response that may be wrapped
// in markdown code fences or surrounded by prose.
var jsonBlockRegex = regexp.MustCompile("(?s)(?:```json\\s*|)(\\{.*\\})(?:```|)")

// ParseError reports a malformed or invalid plan payload.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid plan: %s: %v", e.Reason, e.Err)
	}
	return "invalid plan: " + e.Reason
}

func (e *ParseError) Unwrap() error { return e.Err }

func parseErrorf(format string, args ...interface{}) *ParseError {
	return &ParseError{Reason: fmt.Sprintf(format, args...)}
}

// flexString accepts a JSON string, number, or bool, normalizing to a
// string. Planners emit wait timeouts as bare numbers.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*f = ""
		return nil
	}
	if len(s) > 0 && s[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*f = flexString(v)
		return nil
	}
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		*f = flexString(s)
		return nil
	}
	if s == "true" || s == "false" {
		*f = flexString(s)
		return nil
	}
	return fmt.Errorf("value must be a string, number, or bool, got %s", s)
}

type rawStep struct {
	Action   string     `json:"action"`
	Selector flexString `json:"selector"`
	Value    flexString `json:"value"`
	Reason   string     `json:"reason"`
}

type rawPlan struct {
	Summary     string    `json:"summary"`
	Status      string    `json:"status"`
	Assumptions []string  `json:"assumptions"`
	Steps       []rawStep `json:"steps"`
}

// Parse turns a raw service response into a validated, immutable Plan. The
// payload may wrap the plan under a "plan" key or be the plan object
// directly.
func Parse(raw string) (*schemas.Plan, error) {
	body := stripCodeFence(raw)
	if body == "" {
		return nil, parseErrorf("payload contains no JSON object")
	}

	var envelope struct {
		Plan jsoniter.RawMessage `json:"plan"`
	}
	if err := json.UnmarshalFromString(body, &envelope); err != nil {
		return nil, &ParseError{Reason: "payload is not well-formed JSON", Err: err}
	}
	if len(envelope.Plan) > 0 && string(envelope.Plan) != "null" {
		body = string(envelope.Plan)
	}

	var rp rawPlan
	if err := json.UnmarshalFromString(body, &rp); err != nil {
		return nil, &ParseError{Reason: "plan payload has a malformed field", Err: err}
	}

	return validate(&rp)
}

func validate(rp *rawPlan) (*schemas.Plan, error) {
	if strings.TrimSpace(rp.Summary) == "" {
		return nil, parseErrorf("summary must be a non-empty string")
	}

	status := schemas.PlanStatus(rp.Status)
	if !schemas.ValidStatuses[status] {
		return nil, parseErrorf("status %q is not one of pending, confirmed, blocked, error", rp.Status)
	}

	if status == schemas.StatusPending && len(rp.Steps) == 0 {
		return nil, parseErrorf("a pending plan must contain at least one step")
	}

	steps := make([]schemas.Step, 0, len(rp.Steps))
	for i, rs := range rp.Steps {
		action := schemas.Action(rs.Action)
		if !schemas.ValidActions[action] {
			return nil, parseErrorf("step %d: unknown action %q", i, rs.Action)
		}
		selector := strings.TrimSpace(string(rs.Selector))
		if action.RequiresSelector() && selector == "" {
			return nil, parseErrorf("step %d: action %q requires a selector", i, action)
		}
		steps = append(steps, schemas.Step{
			Action:   action,
			Selector: selector,
			Value:    string(rs.Value),
			Reason:   strings.TrimSpace(rs.Reason),
		})
	}

	assumptions := make([]string, len(rp.Assumptions))
	copy(assumptions, rp.Assumptions)

	return &schemas.Plan{
		Summary:     strings.TrimSpace(rp.Summary),
		Status:      status,
		Assumptions: assumptions,
		Steps:       steps,
	}, nil
}

// stripCodeFence extracts the outermost JSON object from the payload,
// tolerating markdown fences and leading or trailing prose.
func stripCodeFence(raw string) string {
	match := jsonBlockRegex.FindStringSubmatch(strings.TrimSpace(raw))
	if len(match) < 2 {
		return ""
	}
	return strings.TrimSpace(match[1])
}
