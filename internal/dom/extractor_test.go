package dom

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formpilot/formpilot-cli/api/schemas"
)

func extractHTML(t *testing.T, snapshot string) *schemas.PageInventory {
	t.Helper()
	doc, err := Parse(snapshot)
	require.NoError(t, err)
	inv, err := NewExtractor(nil).Extract(doc)
	require.NoError(t, err)
	return inv
}

func TestExtractNilRoot(t *testing.T) {
	_, err := NewExtractor(nil).Extract(nil)
	assert.Error(t, err)
}

func TestExtractFormAndStandalone(t *testing.T) {
	inv := extractHTML(t, `
		<html><body>
			<form id="apply" action="/submit" method="post">
				<input id="email" name="email" type="email" placeholder="you@example.com">
				<textarea name="cover"></textarea>
				<input type="submit" value="Apply now">
			</form>
			<input id="search" type="text">
			<button id="menu">Menu</button>
			<a href="/jobs">All jobs</a>
		</body></html>`)

	require.Len(t, inv.Forms, 1)
	form := inv.Forms[0]
	assert.Equal(t, "apply", form.FormID)
	assert.Equal(t, "POST", form.Method)

	require.Len(t, form.Inputs, 2)
	assert.Equal(t, schemas.RoleInput, form.Inputs[0].Role)
	assert.Equal(t, "email", form.Inputs[0].Type)
	assert.Equal(t, "apply", form.Inputs[0].FormID)
	assert.Equal(t, schemas.RoleTextarea, form.Inputs[1].Role)

	require.Len(t, form.Buttons, 1)
	assert.Equal(t, "Apply now", form.Buttons[0].Text, "submit inputs are buttons")

	require.Len(t, inv.Standalone.Inputs, 1)
	assert.Equal(t, "search", inv.Standalone.Inputs[0].ID)
	require.Len(t, inv.Standalone.Buttons, 1)
	require.Len(t, inv.Standalone.Links, 1)
	assert.Equal(t, "All jobs", inv.Standalone.Links[0].Text)
}

func TestExtractVisibilityIsTransitive(t *testing.T) {
	inv := extractHTML(t, `
		<html><body>
			<div style="display:none">
				<div><input id="buried" type="text"></div>
			</div>
			<div style="opacity: 0.5">
				<input id="faded" type="text">
			</div>
			<input type="hidden" name="csrf">
			<input id="gone" type="text" hidden>
			<input id="kept" type="text">
		</body></html>`)

	require.Len(t, inv.Standalone.Inputs, 2)
	assert.Equal(t, "faded", inv.Standalone.Inputs[0].ID, "opacity below 1 but above 0 stays visible")
	assert.Equal(t, "kept", inv.Standalone.Inputs[1].ID)
}

func TestExtractSelectPreviewBounds(t *testing.T) {
	var sb strings.Builder
	sb.WriteString(`<html><body><select id="country">`)
	for i := 0; i < 40; i++ {
		fmt.Fprintf(&sb, `<option value="c%d">Country %d</option>`, i, i)
	}
	sb.WriteString(`</select></body></html>`)

	inv := extractHTML(t, sb.String())
	require.Len(t, inv.Standalone.Selects, 1)

	sel := inv.Standalone.Selects[0]
	assert.Len(t, sel.Options, maxSelectOptions)
	assert.Equal(t, 40, sel.OptionCount)
	assert.True(t, sel.HasMoreOptions)
	assert.Empty(t, sel.Text, "select text is nulled in favor of the option preview")
	assert.Equal(t, "c0", sel.Options[0].Value)
}

func TestExtractSelectSmallOptionList(t *testing.T) {
	inv := extractHTML(t, `<html><body>
		<select name="yn"><option>Yes</option><option>No</option></select>
	</body></html>`)

	require.Len(t, inv.Standalone.Selects, 1)
	sel := inv.Standalone.Selects[0]
	assert.Len(t, sel.Options, 2)
	assert.Equal(t, 2, sel.OptionCount)
	assert.False(t, sel.HasMoreOptions)
	assert.Equal(t, "Yes", sel.Options[0].Value, "missing value attribute falls back to text")
}

func TestFormIdentityStableAcrossExtractions(t *testing.T) {
	page := `<html><body>
		<form action="/a" method="post"><input name="x"></form>
		<form action="/b" method="post"><input name="y"></form>
	</body></html>`

	first := extractHTML(t, page)
	second := extractHTML(t, page)

	require.Len(t, first.Forms, 2)
	require.Len(t, second.Forms, 2)
	assert.Equal(t, first.Forms[0].FormID, second.Forms[0].FormID)
	assert.Equal(t, first.Forms[1].FormID, second.Forms[1].FormID)
	assert.NotEqual(t, first.Forms[0].FormID, first.Forms[1].FormID,
		"distinct forms must not collide")
	assert.True(t, strings.HasPrefix(first.Forms[0].FormID, "form-"))
}

func TestExtractClickableHeuristics(t *testing.T) {
	inv := extractHTML(t, `<html><body>
		<div role="button" id="fake">Apply</div>
		<span class="btn-primary" id="styled">Go</span>
		<div onclick="next()" id="scripted">Next</div>
		<div id="plain">Just text</div>
	</body></html>`)

	ids := make([]string, 0, len(inv.Standalone.Clickables))
	for _, el := range inv.Standalone.Clickables {
		ids = append(ids, el.ID)
	}
	assert.ElementsMatch(t, []string{"fake", "styled", "scripted"}, ids)
}

func TestExtractAriaAttributes(t *testing.T) {
	inv := extractHTML(t, `<html><body>
		<input id="combo" role="combobox" aria-expanded="false" aria-haspopup="listbox">
	</body></html>`)

	require.Len(t, inv.Standalone.Inputs, 1)
	aria := inv.Standalone.Inputs[0].AriaAttributes
	assert.Equal(t, "combobox", aria["role"])
	assert.Equal(t, "false", aria["aria-expanded"])
	assert.Equal(t, "listbox", aria["aria-haspopup"])
}

func TestStyleHides(t *testing.T) {
	tests := []struct {
		style  string
		hidden bool
	}{
		{"display:none", true},
		{"display : none ; color: red", true},
		{"visibility:hidden", true},
		{"opacity:0", true},
		{"opacity: 0.0", true},
		{"opacity:0.5", false},
		{"display:block", false},
		{"", false},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.hidden, styleHides(tc.style), "style %q", tc.style)
	}
}

func TestTruncateKeepsRuneBoundary(t *testing.T) {
	// 63 ASCII bytes put the 2-byte "é" astride the cut position; a byte
	// slice there would emit an invalid UTF-8 tail.
	s := strings.Repeat("a", maxTextLength-1) + "équipe"

	got := truncate(s)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("a", maxTextLength-1)+"...", got)
	assert.Equal(t, strings.Repeat("a", 10), truncate(strings.Repeat("a", 10)))
}
