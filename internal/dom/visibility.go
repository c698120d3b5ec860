package dom

import (
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// isHiddenNode reports whether a node hides itself (and therefore its whole
// subtree): the hidden attribute, input type=hidden, aria-hidden, or an
// inline style declaring display:none, visibility:hidden, or opacity:0.
// Traversal prunes at hidden nodes, which is what makes the check transitive
// over ancestors.
func isHiddenNode(n *html.Node) bool {
	for _, attr := range n.Attr {
		if attr.Key == "hidden" {
			return true
		}
	}
	if htmlquery.SelectAttr(n, "aria-hidden") == "true" {
		return true
	}
	if strings.EqualFold(n.Data, "input") &&
		strings.EqualFold(htmlquery.SelectAttr(n, "type"), "hidden") {
		return true
	}
	return styleHides(htmlquery.SelectAttr(n, "style"))
}

// styleHides parses an inline style attribute and reports whether any
// declaration hides the element. Declarations are matched individually so
// that opacity:0.5 does not false-positive on opacity:0.
func styleHides(style string) bool {
	if style == "" {
		return false
	}
	for _, decl := range strings.Split(style, ";") {
		name, value, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		name = strings.ToLower(strings.TrimSpace(name))
		value = strings.ToLower(strings.TrimSpace(value))
		switch name {
		case "display":
			if value == "none" {
				return true
			}
		case "visibility":
			if value == "hidden" {
				return true
			}
		case "opacity":
			if value == "0" || value == "0.0" || value == "0%" {
				return true
			}
		}
	}
	return false
}
