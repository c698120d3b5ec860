package plan

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formpilot/formpilot-cli/api/schemas"
)

const validPayload = `{
	"plan": {
		"summary": "Fill the application form",
		"status": "pending",
		"assumptions": ["resume already uploaded"],
		"steps": [
			{"action": "fill", "selector": "#email", "value": "a@b.c", "reason": "email field"},
			{"action": "click", "selector": "button[type=submit]"}
		]
	}
}`

func TestParseValidPlan(t *testing.T) {
	p, err := Parse(validPayload)
	require.NoError(t, err)

	assert.Equal(t, "Fill the application form", p.Summary)
	assert.Equal(t, schemas.StatusPending, p.Status)
	assert.Equal(t, []string{"resume already uploaded"}, p.Assumptions)
	require.Len(t, p.Steps, 2)
	assert.Equal(t, schemas.ActionFill, p.Steps[0].Action)
	assert.Equal(t, "#email", p.Steps[0].Selector)
}

func TestParseStripsCodeFence(t *testing.T) {
	fenced := "Here is the plan:\n```json\n" + validPayload + "\n```\nLet me know."
	p, err := Parse(fenced)
	require.NoError(t, err)
	assert.Len(t, p.Steps, 2)
}

func TestParseBarePlanObject(t *testing.T) {
	p, err := Parse(`{"summary": "s", "status": "confirmed", "assumptions": [], "steps": []}`)
	require.NoError(t, err)
	assert.Equal(t, schemas.StatusConfirmed, p.Status)
	assert.Empty(t, p.Steps)
}

func TestParseNumericTimeoutValue(t *testing.T) {
	p, err := Parse(`{"summary": "s", "status": "pending", "steps": [
		{"action": "wait_for_timeout", "value": 1500}
	]}`)
	require.NoError(t, err)
	require.Len(t, p.Steps, 1)
	assert.Equal(t, "1500", p.Steps[0].Value)
}

func TestParseRejections(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"not json", "the dog ate the plan"},
		{"empty summary", `{"summary": "  ", "status": "pending", "steps": [{"action":"click","selector":"#x"}]}`},
		{"unknown status", `{"summary": "s", "status": "maybe", "steps": []}`},
		{"pending without steps", `{"summary": "s", "status": "pending", "steps": []}`},
		{"unknown action", `{"summary": "s", "status": "pending", "steps": [{"action":"hover","selector":"#x"}]}`},
		{"missing selector", `{"summary": "s", "status": "pending", "steps": [{"action":"fill","value":"x"}]}`},
		{"assumptions not a list", `{"summary": "s", "status": "confirmed", "assumptions": "none", "steps": []}`},
		{"steps not a list", `{"summary": "s", "status": "confirmed", "steps": "click stuff"}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.payload)
			require.Error(t, err)

			var pe *ParseError
			assert.True(t, errors.As(err, &pe), "expected a ParseError, got %T", err)
		})
	}
}

func TestParseWaitForTimeoutNeedsNoSelector(t *testing.T) {
	p, err := Parse(`{"summary": "s", "status": "pending", "steps": [
		{"action": "wait_for_timeout", "value": "2000"}
	]}`)
	require.NoError(t, err)
	assert.Empty(t, p.Steps[0].Selector)
}

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripCodeFence("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFence(`{"a":1}`))
	assert.Empty(t, stripCodeFence("no objects here"))
}
