package dom

import (
	"testing"

	"github.com/antchfx/htmlquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

func fieldByID(t *testing.T, root *html.Node, id string) *html.Node {
	t.Helper()
	for _, n := range htmlquery.Find(root, "//input | //textarea | //select") {
		if htmlquery.SelectAttr(n, "id") == id {
			return n
		}
	}
	t.Fatalf("no field with id %q", id)
	return nil
}

func TestResolveLabelExplicitFor(t *testing.T) {
	doc, err := Parse(`<html><body>
		<label for="email">Email address *</label>
		<input id="email" type="email">
	</body></html>`)
	require.NoError(t, err)

	assert.Equal(t, "Email address", resolveLabel(doc, fieldByID(t, doc, "email")))
}

func TestResolveLabelWrapping(t *testing.T) {
	doc, err := Parse(`<html><body>
		<label>Full name <input id="name" type="text"></label>
	</body></html>`)
	require.NoError(t, err)

	assert.Equal(t, "Full name", resolveLabel(doc, fieldByID(t, doc, "name")))
}

func TestResolveLabelPrecedingSibling(t *testing.T) {
	doc, err := Parse(`<html><body><div>
		<label>Phone number:</label>
		<input id="phone" type="tel">
	</div></body></html>`)
	require.NoError(t, err)

	assert.Equal(t, "Phone number", resolveLabel(doc, fieldByID(t, doc, "phone")))
}

func TestResolveLabelParentPrecedingSibling(t *testing.T) {
	doc, err := Parse(`<html><body>
		<div><label>Years of experience ✱</label></div>
		<div><input id="years" type="number"></div>
	</body></html>`)
	require.NoError(t, err)

	assert.Equal(t, "Years of experience", resolveLabel(doc, fieldByID(t, doc, "years")))
}

func TestResolveLabelAriaFallback(t *testing.T) {
	doc, err := Parse(`<html><body>
		<input id="q" type="search" aria-label="Search jobs">
	</body></html>`)
	require.NoError(t, err)

	assert.Equal(t, "Search jobs", resolveLabel(doc, fieldByID(t, doc, "q")))
}

func TestResolveLabelExplicitForWinsOverSibling(t *testing.T) {
	doc, err := Parse(`<html><body><div>
		<label>Wrong one</label>
		<input id="city" type="text">
		<label for="city">City</label>
	</div></body></html>`)
	require.NoError(t, err)

	assert.Equal(t, "City", resolveLabel(doc, fieldByID(t, doc, "city")))
}

func TestResolveLabelNone(t *testing.T) {
	doc, err := Parse(`<html><body><input id="bare" type="text"></body></html>`)
	require.NoError(t, err)

	assert.Empty(t, resolveLabel(doc, fieldByID(t, doc, "bare")))
}

func TestMapLabels(t *testing.T) {
	doc, err := Parse(`<html><body>
		<label for="a">First</label><input id="a">
		<label>Second <input name="b"></label>
		<input id="c">
	</body></html>`)
	require.NoError(t, err)

	labels := MapLabels(doc)
	assert.Equal(t, "First", labels["a"])
	assert.Equal(t, "Second", labels["b"])
	_, ok := labels["c"]
	assert.False(t, ok, "unlabeled fields are omitted")
}
