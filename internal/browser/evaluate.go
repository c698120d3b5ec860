package browser

import (
	"context"
	"fmt"

	"github.com/chromedp/chromedp"
)

// queryFnJS resolves a selector (CSS or XPath) to a node list inside the
// page. Shared prelude for every JS-backed helper below.
const queryFnJS = `function __q(sel, root) {
	root = root || document;
	if (sel.startsWith('/') || sel.startsWith('(')) {
		const out = [];
		const res = document.evaluate(sel, root, null, XPathResult.ORDERED_NODE_SNAPSHOT_TYPE, null);
		for (let i = 0; i < res.snapshotLength; i++) out.push(res.snapshotItem(i));
		return out;
	}
	return Array.from(root.querySelectorAll(sel));
}
function __visible(el) {
	if (!el) return false;
	const style = window.getComputedStyle(el);
	if (style.display === 'none' || style.visibility === 'hidden') return false;
	return el.offsetParent !== null || el.getClientRects().length > 0;
}`

// Evaluate runs a JavaScript expression in the page, decoding the result
// into out (which may be nil).
func (s *Session) Evaluate(ctx context.Context, expr string, out interface{}) error {
	return s.runActions(ctx, chromedp.Evaluate(expr, out))
}

// CountMatches returns how many nodes the selector matches.
func (s *Session) CountMatches(ctx context.Context, sel string) (int, error) {
	script := fmt.Sprintf(`(() => { %s; return __q(%q).length; })()`, queryFnJS, sel)
	var count int
	if err := s.Evaluate(ctx, script, &count); err != nil {
		return 0, fmt.Errorf("counting matches for %q: %w", sel, err)
	}
	return count, nil
}

// IsVisible reports whether the first matched node is rendered.
func (s *Session) IsVisible(ctx context.Context, sel string) (bool, error) {
	script := fmt.Sprintf(`(() => { %s; return __visible(__q(%q)[0]); })()`, queryFnJS, sel)
	var visible bool
	if err := s.Evaluate(ctx, script, &visible); err != nil {
		return false, err
	}
	return visible, nil
}

// ReadValue returns the current value of the first matched node: the value
// property for inputs, textareas, and selects, otherwise the trimmed text.
func (s *Session) ReadValue(ctx context.Context, sel string) (string, error) {
	script := fmt.Sprintf(`(() => {
		%s;
		const el = __q(%q)[0];
		if (!el) return "";
		if (el.value !== undefined && el.value !== null) return String(el.value);
		return (el.textContent || "").trim();
	})()`, queryFnJS, sel)
	var value string
	if err := s.Evaluate(ctx, script, &value); err != nil {
		return "", fmt.Errorf("reading value of %q: %w", sel, err)
	}
	return value, nil
}

// SelectedText returns the label of the selected option of a native select,
// or the element's value when it is not a select.
func (s *Session) SelectedText(ctx context.Context, sel string) (string, error) {
	script := fmt.Sprintf(`(() => {
		%s;
		const el = __q(%q)[0];
		if (!el) return "";
		if (el.tagName === 'SELECT' && el.selectedIndex >= 0) {
			return (el.options[el.selectedIndex].textContent || "").trim();
		}
		if (el.value !== undefined && el.value !== null) return String(el.value);
		return (el.textContent || "").trim();
	})()`, queryFnJS, sel)
	var text string
	if err := s.Evaluate(ctx, script, &text); err != nil {
		return "", err
	}
	return text, nil
}

// TextContent returns the trimmed text of the first matched node.
func (s *Session) TextContent(ctx context.Context, sel string) (string, error) {
	script := fmt.Sprintf(`(() => {
		%s;
		const el = __q(%q)[0];
		return el ? (el.textContent || "").trim() : "";
	})()`, queryFnJS, sel)
	var text string
	if err := s.Evaluate(ctx, script, &text); err != nil {
		return "", err
	}
	return text, nil
}

// Attribute returns the named attribute of the first matched node and
// whether it was present.
func (s *Session) Attribute(ctx context.Context, sel, name string) (string, bool, error) {
	script := fmt.Sprintf(`(() => {
		%s;
		const el = __q(%q)[0];
		if (!el || !el.hasAttribute(%q)) return null;
		return el.getAttribute(%q);
	})()`, queryFnJS, sel, name, name)
	var value *string
	if err := s.Evaluate(ctx, script, &value); err != nil {
		return "", false, err
	}
	if value == nil {
		return "", false, nil
	}
	return *value, true, nil
}

// TagName returns the lowercase tag name of the first matched node.
func (s *Session) TagName(ctx context.Context, sel string) (string, error) {
	script := fmt.Sprintf(`(() => {
		%s;
		const el = __q(%q)[0];
		return el ? el.tagName.toLowerCase() : "";
	})()`, queryFnJS, sel)
	var tag string
	if err := s.Evaluate(ctx, script, &tag); err != nil {
		return "", err
	}
	return tag, nil
}

// VisibleTexts collects the trimmed text of every visible node matching sel,
// scoped to the first node matching scope when scope is non-empty. Results
// are de-duplicated and bounded.
func (s *Session) VisibleTexts(ctx context.Context, scope, sel string) ([]string, error) {
	script := fmt.Sprintf(`(() => {
		%s;
		let root = document;
		const scopeSel = %q;
		if (scopeSel) {
			root = __q(scopeSel)[0];
			if (!root) return [];
		}
		const seen = new Set();
		const out = [];
		for (const el of __q(%q, root)) {
			if (!__visible(el)) continue;
			const text = (el.textContent || "").trim();
			if (!text || seen.has(text)) continue;
			seen.add(text);
			out.push(text);
			if (out.length >= 100) break;
		}
		return out;
	})()`, queryFnJS, scope, sel)
	var texts []string
	if err := s.Evaluate(ctx, script, &texts); err != nil {
		return nil, fmt.Errorf("collecting visible texts for %q: %w", sel, err)
	}
	return texts, nil
}

// ForceClick clicks via the DOM API, bypassing hit testing. Escalation path
// for widgets that swallow synthetic pointer events.
func (s *Session) ForceClick(ctx context.Context, sel string) error {
	script := fmt.Sprintf(`(() => {
		%s;
		const el = __q(%q)[0];
		if (!el) return false;
		el.click();
		return true;
	})()`, queryFnJS, sel)
	var ok bool
	if err := s.Evaluate(ctx, script, &ok); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("force click found no node for %q", sel)
	}
	return nil
}

// SetValueJS writes the value property directly and dispatches input and
// change events. Needed for number inputs and as the last rung of the
// dropdown escalation ladder.
func (s *Session) SetValueJS(ctx context.Context, sel, value string) error {
	script := fmt.Sprintf(`(() => {
		%s;
		const el = __q(%q)[0];
		if (!el) return false;
		el.value = %q;
		el.dispatchEvent(new Event('input', { bubbles: true }));
		el.dispatchEvent(new Event('change', { bubbles: true }));
		return true;
	})()`, queryFnJS, sel, value)
	var ok bool
	if err := s.Evaluate(ctx, script, &ok); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no node for %q", sel)
	}
	return nil
}

// DispatchInputEvents fires synthetic input and change events on the node.
func (s *Session) DispatchInputEvents(ctx context.Context, sel string) error {
	script := fmt.Sprintf(`(() => {
		%s;
		const el = __q(%q)[0];
		if (!el) return false;
		el.dispatchEvent(new Event('input', { bubbles: true }));
		el.dispatchEvent(new Event('change', { bubbles: true }));
		return true;
	})()`, queryFnJS, sel)
	var ok bool
	if err := s.Evaluate(ctx, script, &ok); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no node for %q", sel)
	}
	return nil
}

// SelectByValue selects the option whose value attribute matches, returning
// whether a matching option existed.
func (s *Session) SelectByValue(ctx context.Context, sel, value string) (bool, error) {
	return s.selectOption(ctx, sel, value, "value")
}

// SelectByLabel selects the option whose visible text matches, first
// exactly, then by containment.
func (s *Session) SelectByLabel(ctx context.Context, sel, label string) (bool, error) {
	return s.selectOption(ctx, sel, label, "label")
}

func (s *Session) selectOption(ctx context.Context, sel, target, mode string) (bool, error) {
	script := fmt.Sprintf(`(() => {
		%s;
		const el = __q(%q)[0];
		if (!el || el.tagName !== 'SELECT') return false;
		const target = %q;
		const wanted = target.trim().toLowerCase();
		const mode = %q;
		let index = -1;
		for (let i = 0; i < el.options.length; i++) {
			const opt = el.options[i];
			const key = mode === 'value' ? (opt.value || "") : (opt.textContent || "");
			if (key.trim().toLowerCase() === wanted) { index = i; break; }
		}
		if (index < 0 && mode === 'label') {
			for (let i = 0; i < el.options.length; i++) {
				const key = (el.options[i].textContent || "").trim().toLowerCase();
				if (key.includes(wanted) || wanted.includes(key)) { index = i; break; }
			}
		}
		if (index < 0) return false;
		el.selectedIndex = index;
		el.dispatchEvent(new Event('input', { bubbles: true }));
		el.dispatchEvent(new Event('change', { bubbles: true }));
		return true;
	})()`, queryFnJS, sel, target, mode)
	var ok bool
	if err := s.Evaluate(ctx, script, &ok); err != nil {
		return false, fmt.Errorf("selecting option in %q: %w", sel, err)
	}
	return ok, nil
}

// SetChecked drives a checkbox or radio into the requested state and fires
// a change event when the state actually flipped.
func (s *Session) SetChecked(ctx context.Context, sel string, checked bool) error {
	script := fmt.Sprintf(`(() => {
		%s;
		const el = __q(%q)[0];
		if (!el) return false;
		if (el.checked !== %t) {
			el.checked = %t;
			el.dispatchEvent(new Event('change', { bubbles: true }));
		}
		return true;
	})()`, queryFnJS, sel, checked, checked)
	var ok bool
	if err := s.Evaluate(ctx, script, &ok); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no node for %q", sel)
	}
	return nil
}
