// Package engine executes validated interaction plans against a live page.
// It owns the per-step dispatch, the idempotence filter that suppresses
// redundant writes across planning rounds, and the dropdown resolution
// machine that commits values into custom select widgets.
package engine

import (
	"context"
	"time"
)

// Page is the browser capability surface the executor drives. It is the
// method set of browser.Session; tests substitute a scripted fake.
type Page interface {
	Navigate(ctx context.Context, url string) error
	Click(ctx context.Context, sel string) error
	ForceClick(ctx context.Context, sel string) error
	Fill(ctx context.Context, sel, value string) error
	Clear(ctx context.Context, sel string) error
	Press(ctx context.Context, sel, key string) error
	KeyPress(ctx context.Context, key string) error
	Focus(ctx context.Context, sel string) error
	SetUploadFiles(ctx context.Context, sel string, files []string) error
	WaitFor(ctx context.Context, sel, state string, timeout time.Duration) error
	Sleep(ctx context.Context, d time.Duration) error

	CountMatches(ctx context.Context, sel string) (int, error)
	IsVisible(ctx context.Context, sel string) (bool, error)
	ReadValue(ctx context.Context, sel string) (string, error)
	SelectedText(ctx context.Context, sel string) (string, error)
	TextContent(ctx context.Context, sel string) (string, error)
	Attribute(ctx context.Context, sel, name string) (string, bool, error)
	TagName(ctx context.Context, sel string) (string, error)
	VisibleTexts(ctx context.Context, scope, sel string) ([]string, error)

	SetValueJS(ctx context.Context, sel, value string) error
	DispatchInputEvents(ctx context.Context, sel string) error
	SelectByValue(ctx context.Context, sel, value string) (bool, error)
	SelectByLabel(ctx context.Context, sel, label string) (bool, error)
	SetChecked(ctx context.Context, sel string, checked bool) error
}

// OptionRequest describes one dropdown-option decision.
type OptionRequest struct {
	FieldName   string
	TargetValue string
	Options     []string
}

// OptionPicker chooses the option text that best answers a request. An
// empty choice means no option fits; implementations return an error only
// for transport failures, which callers treat as "fall back to fuzzy".
type OptionPicker interface {
	PickOption(ctx context.Context, req OptionRequest) (string, error)
}
