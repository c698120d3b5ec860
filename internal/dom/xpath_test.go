package dom

import (
	"testing"

	"github.com/antchfx/htmlquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

func parseAndFind(t *testing.T, snapshot, query string) *html.Node {
	t.Helper()
	doc, err := Parse(snapshot)
	require.NoError(t, err)
	node := htmlquery.FindOne(doc, query)
	require.NotNil(t, node, "query %q found nothing", query)
	return node
}

func TestGenerateUniqueXPathNil(t *testing.T) {
	assert.Empty(t, GenerateUniqueXPath(nil))
}

func TestGenerateUniqueXPathAnchorsOnID(t *testing.T) {
	node := parseAndFind(t, `<html><body>
		<div id="container"><p><span>target</span></p></div>
	</body></html>`, "//span")

	xpath := GenerateUniqueXPath(node)
	assert.Equal(t, `//*[@id='container']/p[1]/span[1]`, xpath)
}

func TestGenerateUniqueXPathSiblingIndices(t *testing.T) {
	node := parseAndFind(t, `<html><body>
		<ul><li>a</li><li>b</li><li>c</li></ul>
	</body></html>`, "//li[2]")

	xpath := GenerateUniqueXPath(node)
	assert.Equal(t, "/html[1]/body[1]/ul[1]/li[2]", xpath)
}

func TestGenerateUniqueXPathRoundTrips(t *testing.T) {
	snapshot := `<html><body>
		<form><div><input type="text"></div><div><input type="email"></div></form>
	</body></html>`
	doc, err := Parse(snapshot)
	require.NoError(t, err)

	for _, node := range htmlquery.Find(doc, "//input") {
		xpath := GenerateUniqueXPath(node)
		found := htmlquery.FindOne(doc, xpath)
		assert.Same(t, node, found, "xpath %q must resolve back to its node", xpath)
	}
}
