package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/formpilot/formpilot-cli/api/schemas"
	"github.com/formpilot/formpilot-cli/internal/selector"
)

// SeedFilled reads the live values of the inventory's fields into a fresh
// ledger using the executor's own page.
func (e *Executor) SeedFilled(ctx context.Context, inv *schemas.PageInventory) schemas.FilledFields {
	return ExtractFilledFields(ctx, e.page, inv)
}

// skipSnapshotTypes are input types whose values are not user data worth
// carrying across rounds.
var skipSnapshotTypes = map[string]bool{
	"submit": true,
	"button": true,
	"reset":  true,
	"file":   true,
	"hidden": true,
}

// ExtractFilledFields reads the current value of every fillable field in
// the inventory. The result seeds the cross-round ledger so re-planned
// steps against already-populated fields are skipped instead of re-run.
func ExtractFilledFields(ctx context.Context, page Page, inv *schemas.PageInventory) schemas.FilledFields {
	filled := make(schemas.FilledFields)
	if inv == nil {
		return filled
	}

	record := func(el schemas.Element, isSelect bool) {
		sel := fieldSelector(el)
		if sel == "" || skipSnapshotTypes[strings.ToLower(el.Type)] {
			return
		}
		var value string
		var err error
		if isSelect {
			value, err = page.SelectedText(ctx, sel)
			if err != nil || strings.TrimSpace(value) == "" {
				value, err = page.ReadValue(ctx, sel)
			}
		} else {
			value, err = page.ReadValue(ctx, sel)
		}
		if err == nil && strings.TrimSpace(value) != "" {
			filled[sel] = strings.TrimSpace(value)
		}
	}

	for _, f := range inv.Forms {
		for _, el := range f.Inputs {
			record(el, false)
		}
		for _, el := range f.Selects {
			record(el, true)
		}
	}
	for _, el := range inv.Standalone.Inputs {
		record(el, false)
	}
	for _, el := range inv.Standalone.Selects {
		record(el, true)
	}
	return filled
}

// fieldSelector builds the stable selector a field is keyed by in the
// ledger: id first, then name. Fields with neither are not tracked, because
// their XPath keys would churn with every DOM mutation.
func fieldSelector(el schemas.Element) string {
	if el.ID != "" {
		sel, _ := selector.Normalize("#" + el.ID)
		return sel
	}
	if el.Name != "" {
		return fmt.Sprintf(`[name="%s"]`, el.Name)
	}
	return ""
}
