package selector

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formpilot/formpilot-cli/api/schemas"
)

// fakeQuerier answers CountMatches from a fixed table and records the order
// selectors were tried in.
type fakeQuerier struct {
	counts map[string]int
	errs   map[string]error
	tried  []string
}

func (f *fakeQuerier) CountMatches(_ context.Context, sel string) (int, error) {
	f.tried = append(f.tried, sel)
	if err, ok := f.errs[sel]; ok {
		return 0, err
	}
	return f.counts[sel], nil
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in    string
		out   string
		fixed bool
	}{
		{"#123abc", `[id="123abc"]`, true},
		{"#4242", `[id="4242"]`, true},
		{"#email", "#email", false},
		{"button.submit", "button.submit", false},
		{"#", "#", false},
		{"  #9lives  ", `[id="9lives"]`, true},
	}
	for _, tc := range tests {
		got, fixed := Normalize(tc.in)
		assert.Equal(t, tc.out, got, "input %q", tc.in)
		assert.Equal(t, tc.fixed, fixed, "input %q", tc.in)
	}
}

func TestResolveDigitIDRewrite(t *testing.T) {
	page := &fakeQuerier{counts: map[string]int{`[id="123abc"]`: 1}}

	res, err := New(nil).Resolve(context.Background(), page, "#123abc")
	require.NoError(t, err)
	assert.Equal(t, `[id="123abc"]`, res.Selector)
	assert.False(t, res.Ambiguous)
}

func TestResolveUnresolved(t *testing.T) {
	page := &fakeQuerier{}

	_, err := New(nil).Resolve(context.Background(), page, "#missing")
	require.Error(t, err)

	var ue *UnresolvedError
	require.True(t, errors.As(err, &ue))
	assert.Contains(t, ue.Tried, "#missing")
}

func TestResolveAmbiguousUsesFirst(t *testing.T) {
	page := &fakeQuerier{counts: map[string]int{".row input": 3}}

	res, err := New(nil).Resolve(context.Background(), page, ".row input")
	require.NoError(t, err)
	assert.True(t, res.Ambiguous)
	assert.Equal(t, 3, res.Matches)
}

func TestResolveElementPriorityOrder(t *testing.T) {
	el := schemas.Element{
		Role:           schemas.RoleInput,
		Tag:            "input",
		ID:             "email",
		Name:           "email_addr",
		AriaAttributes: map[string]string{"aria-label": "Email"},
		XPath:          "/html[1]/body[1]/input[1]",
	}

	// Every candidate matches; the id must win.
	page := &fakeQuerier{counts: map[string]int{
		"#email":                 1,
		`[name="email_addr"]`:    1,
		`[aria-label="Email"]`:   1,
		"/html[1]/body[1]/input[1]": 1,
	}}

	res, err := New(nil).ResolveElement(context.Background(), page, el)
	require.NoError(t, err)
	assert.Equal(t, StrategyID, res.Strategy)
	assert.Equal(t, "#email", res.Selector)
	assert.Equal(t, []string{"#email"}, page.tried, "resolution stops at the first hit")
}

func TestResolveElementFallsThroughChain(t *testing.T) {
	el := schemas.Element{
		Role:  schemas.RoleButton,
		Tag:   "button",
		ID:    "stale-id",
		Text:  "Apply now",
		XPath: "/html[1]/body[1]/button[1]",
	}

	page := &fakeQuerier{counts: map[string]int{
		`//button[normalize-space(.)="Apply now"]`: 1,
	}}

	res, err := New(nil).ResolveElement(context.Background(), page, el)
	require.NoError(t, err)
	assert.Equal(t, StrategyText, res.Strategy)
}

func TestResolveElementSurvivesQuerierErrors(t *testing.T) {
	el := schemas.Element{
		Tag:   "input",
		ID:    "a",
		XPath: "/html[1]/body[1]/input[1]",
	}
	page := &fakeQuerier{
		errs:   map[string]error{"#a": errors.New("evaluation failed")},
		counts: map[string]int{"/html[1]/body[1]/input[1]": 1},
	}

	res, err := New(nil).ResolveElement(context.Background(), page, el)
	require.NoError(t, err)
	assert.Equal(t, StrategyPath, res.Strategy)
}

func TestTextXPathSkipsQuotedText(t *testing.T) {
	assert.Empty(t, textXPath("button", `say "hi"`))
}
