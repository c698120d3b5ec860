// Package dom converts raw HTML snapshots into the normalized semantic
// element inventory the planner consumes. Extraction is read-only and
// recomputed on every snapshot; nothing here touches the live page.
package dom

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/antchfx/htmlquery"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/formpilot/formpilot-cli/api/schemas"
)

const (
	// maxSelectOptions bounds the option preview embedded in the inventory.
	// OptionCount and HasMoreOptions always reflect the true count.
	maxSelectOptions = 10
	// maxTextLength truncates descriptive text so the inventory stays small.
	maxTextLength = 64
	// maxPerCategory caps each element category to keep pathological pages
	// from producing unbounded inventories.
	maxPerCategory = 100
)

// Extractor walks a parsed DOM snapshot and emits a PageInventory.
type Extractor struct {
	log *zap.Logger
}

// NewExtractor returns an Extractor. A nil logger is replaced with a no-op.
func NewExtractor(log *zap.Logger) *Extractor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Extractor{log: log}
}

// Parse parses an HTML snapshot into a document node.
func Parse(snapshot string) (*html.Node, error) {
	doc, err := htmlquery.Parse(strings.NewReader(snapshot))
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Extract walks the snapshot rooted at doc and returns the semantic element
// inventory. Individual malformed nodes are skipped, never fatal; only a nil
// root is an error.
func (e *Extractor) Extract(doc *html.Node) (*schemas.PageInventory, error) {
	if doc == nil {
		return nil, errors.New("dom root is unavailable")
	}

	inv := &schemas.PageInventory{}
	if title := htmlquery.FindOne(doc, "//title"); title != nil {
		inv.Title = strings.TrimSpace(htmlquery.InnerText(title))
	}

	w := &walker{extractor: e, root: doc, inv: inv}
	w.walk(doc, nil)

	e.log.Debug("Extracted page inventory",
		zap.Int("forms", len(inv.Forms)),
		zap.Int("standalone_inputs", len(inv.Standalone.Inputs)),
		zap.Int("standalone_buttons", len(inv.Standalone.Buttons)),
		zap.Int("fields", inv.FieldCount()))
	return inv, nil
}

// walker carries traversal state for one extraction pass.
type walker struct {
	extractor *Extractor
	root      *html.Node
	inv       *schemas.PageInventory
}

// walk descends the tree. An effectively hidden node hides its whole
// subtree, so traversal prunes there rather than re-checking ancestors per
// element. form, when non-nil, is the enclosing form being populated.
func (w *walker) walk(n *html.Node, form *schemas.Form) {
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if child.Type != html.ElementNode {
			continue
		}
		if isHiddenNode(child) {
			continue
		}

		tag := strings.ToLower(child.Data)
		if tag == "form" {
			f := w.newForm(child)
			w.walk(child, f)
			w.inv.Forms = append(w.inv.Forms, *f)
			continue
		}

		descend := w.classify(child, tag, form)
		if descend {
			w.walk(child, form)
		}
	}
}

func (w *walker) newForm(n *html.Node) *schemas.Form {
	action := htmlquery.SelectAttr(n, "action")
	method := strings.ToUpper(htmlquery.SelectAttr(n, "method"))
	if method == "" {
		method = "GET"
	}
	return &schemas.Form{
		FormID: formIdentity(n, action, method),
		Action: action,
		Method: method,
	}
}

// classify routes a node into its inventory category. It returns whether the
// traversal should descend into the node's children.
func (w *walker) classify(n *html.Node, tag string, form *schemas.Form) bool {
	switch tag {
	case "input":
		inputType := strings.ToLower(htmlquery.SelectAttr(n, "type"))
		switch inputType {
		case "submit", "button", "reset":
			w.addButton(n, form)
		default:
			w.addInput(n, schemas.RoleInput, form)
		}
		return false
	case "textarea":
		w.addInput(n, schemas.RoleTextarea, form)
		return false
	case "select":
		w.addSelect(n, form)
		// Options are materialized here; never walk into a select.
		return false
	case "button":
		w.addButton(n, form)
		return false
	case "label":
		w.addLabel(n, form)
		// A label may wrap the control it names.
		return true
	case "a":
		if htmlquery.SelectAttr(n, "href") != "" {
			w.addLink(n)
			return true
		}
	}

	if isClickableNode(n) {
		w.addClickable(n)
	}
	return true
}

// isClickableNode catches scripted widgets that are neither links nor
// buttons but still behave like one.
func isClickableNode(n *html.Node) bool {
	if htmlquery.SelectAttr(n, "onclick") != "" {
		return true
	}
	switch htmlquery.SelectAttr(n, "role") {
	case "button", "menuitem", "tab", "option", "combobox":
		return true
	}
	class := strings.ToLower(htmlquery.SelectAttr(n, "class"))
	return strings.Contains(class, "btn") || strings.Contains(class, "button") ||
		strings.Contains(class, "dropdown-toggle")
}

func (w *walker) addInput(n *html.Node, role schemas.ElementRole, form *schemas.Form) {
	el := w.buildElement(n, role, form)
	el.Label = resolveLabel(w.root, n)
	if form != nil {
		if len(form.Inputs) < maxPerCategory {
			form.Inputs = append(form.Inputs, el)
		}
		return
	}
	if len(w.inv.Standalone.Inputs) < maxPerCategory {
		w.inv.Standalone.Inputs = append(w.inv.Standalone.Inputs, el)
	}
}

func (w *walker) addSelect(n *html.Node, form *schemas.Form) {
	el := w.buildElement(n, schemas.RoleSelect, form)
	el.Label = resolveLabel(w.root, n)
	// The concatenated option text would dominate the inventory, so the
	// select's own text is dropped in favor of the bounded option preview.
	el.Text = ""
	el.Options, el.OptionCount = extractOptions(n)
	el.HasMoreOptions = el.OptionCount > len(el.Options)

	if form != nil {
		if len(form.Selects) < maxPerCategory {
			form.Selects = append(form.Selects, el)
		}
		return
	}
	if len(w.inv.Standalone.Selects) < maxPerCategory {
		w.inv.Standalone.Selects = append(w.inv.Standalone.Selects, el)
	}
}

func (w *walker) addButton(n *html.Node, form *schemas.Form) {
	el := w.buildElement(n, schemas.RoleButton, form)
	if el.Text == "" {
		// Input-style buttons carry their caption in the value attribute.
		el.Text = truncate(htmlquery.SelectAttr(n, "value"))
	}
	if form != nil {
		if len(form.Buttons) < maxPerCategory {
			form.Buttons = append(form.Buttons, el)
		}
		return
	}
	if len(w.inv.Standalone.Buttons) < maxPerCategory {
		w.inv.Standalone.Buttons = append(w.inv.Standalone.Buttons, el)
	}
}

func (w *walker) addLabel(n *html.Node, form *schemas.Form) {
	el := w.buildElement(n, schemas.RoleLabel, form)
	if form != nil {
		if len(form.Labels) < maxPerCategory {
			form.Labels = append(form.Labels, el)
		}
		return
	}
	if len(w.inv.Standalone.Labels) < maxPerCategory {
		w.inv.Standalone.Labels = append(w.inv.Standalone.Labels, el)
	}
}

func (w *walker) addLink(n *html.Node) {
	el := w.buildElement(n, schemas.RoleLink, nil)
	if el.Text == "" {
		return // anchors without text are navigation noise
	}
	if len(w.inv.Standalone.Links) < maxPerCategory {
		w.inv.Standalone.Links = append(w.inv.Standalone.Links, el)
	}
}

func (w *walker) addClickable(n *html.Node) {
	el := w.buildElement(n, schemas.RoleClickable, nil)
	if len(w.inv.Standalone.Clickables) < maxPerCategory {
		w.inv.Standalone.Clickables = append(w.inv.Standalone.Clickables, el)
	}
}

func (w *walker) buildElement(n *html.Node, role schemas.ElementRole, form *schemas.Form) schemas.Element {
	el := schemas.Element{
		Role:        role,
		Tag:         strings.ToLower(n.Data),
		ID:          htmlquery.SelectAttr(n, "id"),
		Name:        htmlquery.SelectAttr(n, "name"),
		Placeholder: htmlquery.SelectAttr(n, "placeholder"),
		Text:        truncate(strings.TrimSpace(htmlquery.InnerText(n))),
		XPath:       GenerateUniqueXPath(n),
	}
	if form != nil {
		el.FormID = form.FormID
	}

	if el.Tag == "input" {
		el.Type = strings.ToLower(htmlquery.SelectAttr(n, "type"))
		if el.Type == "" {
			el.Type = "text"
		}
	}

	if class := htmlquery.SelectAttr(n, "class"); class != "" {
		el.ClassList = strings.Fields(class)
	}

	for _, attr := range n.Attr {
		if strings.HasPrefix(attr.Key, "aria-") || attr.Key == "role" {
			if el.AriaAttributes == nil {
				el.AriaAttributes = make(map[string]string)
			}
			el.AriaAttributes[attr.Key] = attr.Val
		}
	}
	return el
}

// extractOptions returns the bounded option preview and the true count of
// visible options. Options hidden directly or via a disabled optgroup are
// still counted but flagged by omission from the preview only when hidden.
func extractOptions(selectNode *html.Node) ([]schemas.SelectOption, int) {
	var preview []schemas.SelectOption
	count := 0
	for _, node := range htmlquery.Find(selectNode, ".//option") {
		if isHiddenNode(node) {
			continue
		}
		text := strings.TrimSpace(htmlquery.InnerText(node))
		value := htmlquery.SelectAttr(node, "value")
		if value == "" {
			value = text
		}
		count++
		if len(preview) < maxSelectOptions {
			preview = append(preview, schemas.SelectOption{Value: value, Text: text})
		}
	}
	return preview, count
}

// truncate caps s at maxTextLength bytes, backing up to a rune boundary so
// the cut never leaves an invalid UTF-8 tail in the inventory.
func truncate(s string) string {
	if len(s) <= maxTextLength {
		return s
	}
	cut := maxTextLength
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
