package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/formpilot/formpilot-cli/api/schemas"
	"github.com/formpilot/formpilot-cli/internal/selector"
)

// BindInventory attaches the current round's element inventory. When a plan
// selector no longer matches a live node, resolution falls back to the
// inventory element's alternate locators. The binding lasts until the next
// call; the orchestrator rebinds after every snapshot.
func (e *Executor) BindInventory(inv *schemas.PageInventory) {
	e.inv = inv
}

// resolveStep resolves a plan-supplied selector. The raw selector is tried
// first; if it matches nothing and the bound inventory knows the element,
// the element's full candidate chain (id, name, aria-label, text, path)
// takes over, so a selector staled by a DOM mutation mid-round still lands
// on the right node.
func (e *Executor) resolveStep(ctx context.Context, sel string) (selector.Resolution, error) {
	res, err := e.resolver.Resolve(ctx, e.page, sel)
	if err == nil {
		return res, nil
	}
	var unresolved *selector.UnresolvedError
	if !errors.As(err, &unresolved) || e.inv == nil {
		return res, err
	}
	el, ok := inventoryElementFor(e.inv, sel)
	if !ok {
		return res, err
	}
	res, rerr := e.resolver.ResolveElement(ctx, e.page, el)
	if rerr != nil {
		return selector.Resolution{}, err
	}
	e.log.Warn("Stale selector recovered via inventory locator",
		zap.String("selector", sel),
		zap.String("resolved", res.Selector),
		zap.String("strategy", string(res.Strategy)))
	return res, nil
}

// inventoryElementFor finds the inventory element a plan selector refers
// to. Plans build selectors from the inventory, so the match is exact
// against the locator forms an element can produce.
func inventoryElementFor(inv *schemas.PageInventory, sel string) (schemas.Element, bool) {
	sel = strings.TrimSpace(sel)
	var found schemas.Element
	var ok bool
	scan := func(els []schemas.Element) {
		if ok {
			return
		}
		for _, el := range els {
			if elementClaims(el, sel) {
				found, ok = el, true
				return
			}
		}
	}
	for _, f := range inv.Forms {
		scan(f.Inputs)
		scan(f.Selects)
		scan(f.Buttons)
	}
	scan(inv.Standalone.Inputs)
	scan(inv.Standalone.Selects)
	scan(inv.Standalone.Buttons)
	scan(inv.Standalone.Links)
	scan(inv.Standalone.Clickables)
	return found, ok
}

func elementClaims(el schemas.Element, sel string) bool {
	if el.ID != "" {
		if idSel, _ := selector.Normalize("#" + el.ID); sel == idSel || sel == "#"+el.ID {
			return true
		}
	}
	if el.Name != "" {
		switch sel {
		case fmt.Sprintf(`[name="%s"]`, el.Name),
			fmt.Sprintf(`%s[name="%s"]`, el.Tag, el.Name):
			return true
		}
	}
	if aria := el.AriaAttributes["aria-label"]; aria != "" && sel == fmt.Sprintf(`[aria-label="%s"]`, aria) {
		return true
	}
	return el.XPath != "" && sel == el.XPath
}
