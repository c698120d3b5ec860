package dom

import (
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// resolveLabel finds the human-readable label for a field. Strategies in
// priority order, first non-empty result wins:
//  1. an explicit label[for] matching the field's id
//  2. a label wrapping the field
//  3. a label child of the field's parent that precedes the field
//  4. a label among the parent's preceding siblings, or nested inside one
//  5. the field's own aria-label
//
// An empty result means "no label", never an error.
func resolveLabel(root, field *html.Node) string {
	if id := htmlquery.SelectAttr(field, "id"); id != "" {
		if text := labelForID(root, id); text != "" {
			return text
		}
	}

	if text := wrappingLabel(field); text != "" {
		return text
	}

	if text := precedingSiblingLabel(field); text != "" {
		return text
	}

	if text := parentSiblingLabel(field); text != "" {
		return text
	}

	return cleanLabelText(htmlquery.SelectAttr(field, "aria-label"))
}

func labelForID(root *html.Node, id string) string {
	for _, label := range htmlquery.Find(root, "//label") {
		if htmlquery.SelectAttr(label, "for") == id {
			return cleanLabelText(htmlquery.InnerText(label))
		}
	}
	return ""
}

func wrappingLabel(field *html.Node) string {
	for n := field.Parent; n != nil; n = n.Parent {
		if n.Type != html.ElementNode {
			continue
		}
		switch strings.ToLower(n.Data) {
		case "label":
			return cleanLabelText(htmlquery.InnerText(n))
		case "form", "body":
			return ""
		}
	}
	return ""
}

// precedingSiblingLabel scans the field's earlier siblings, nearest first.
func precedingSiblingLabel(field *html.Node) string {
	for prev := field.PrevSibling; prev != nil; prev = prev.PrevSibling {
		if prev.Type != html.ElementNode {
			continue
		}
		if strings.EqualFold(prev.Data, "label") {
			return cleanLabelText(htmlquery.InnerText(prev))
		}
	}
	return ""
}

// parentSiblingLabel covers layouts where the label sits in a block before
// the field's container, either directly or nested.
func parentSiblingLabel(field *html.Node) string {
	parent := field.Parent
	if parent == nil {
		return ""
	}
	for prev := parent.PrevSibling; prev != nil; prev = prev.PrevSibling {
		if prev.Type != html.ElementNode {
			continue
		}
		if strings.EqualFold(prev.Data, "label") {
			return cleanLabelText(htmlquery.InnerText(prev))
		}
		if nested := htmlquery.FindOne(prev, ".//label"); nested != nil {
			return cleanLabelText(htmlquery.InnerText(nested))
		}
	}
	return ""
}

// MapLabels resolves a label for every labelable field in the snapshot,
// keyed by the field's id, or its name when no id is present. Fields with
// neither identifier or no resolvable label are omitted.
func MapLabels(root *html.Node) map[string]string {
	labels := make(map[string]string)
	for _, field := range htmlquery.Find(root, "//input | //textarea | //select") {
		key := htmlquery.SelectAttr(field, "id")
		if key == "" {
			key = htmlquery.SelectAttr(field, "name")
		}
		if key == "" {
			continue
		}
		if _, seen := labels[key]; seen {
			continue
		}
		if text := resolveLabel(root, field); text != "" {
			labels[key] = text
		}
	}
	return labels
}

// cleanLabelText trims whitespace and strips required-field decoration.
func cleanLabelText(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimRight(s, "*✱:")
	return strings.TrimSpace(s)
}
