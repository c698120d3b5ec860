package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// fakePage is a scripted Page for executor tests. Maps hold canned answers
// keyed by selector; every interaction is appended to calls for assertions.
type fakePage struct {
	mu    sync.Mutex
	calls []string

	counts      map[string]int
	countErrs   map[string]error
	visible     map[string]bool
	values      map[string]string
	selected    map[string]string
	texts       map[string]string
	tags        map[string]string
	attrs       map[string]map[string]string
	optionTexts map[string][]string // keyed by scope + "|" + sel

	clickErrs     map[string]error
	forceErrs     map[string]error
	waitVisible   map[string]bool
	uploadErrs    map[string]error
	byValueOK     map[string]bool
	byLabelOK     map[string]bool
	navErr        error
	onClick       func(sel string)
	onFill        func(sel, value string)
}

func newFakePage() *fakePage {
	return &fakePage{
		counts:      map[string]int{},
		countErrs:   map[string]error{},
		visible:     map[string]bool{},
		values:      map[string]string{},
		selected:    map[string]string{},
		texts:       map[string]string{},
		tags:        map[string]string{},
		attrs:       map[string]map[string]string{},
		optionTexts: map[string][]string{},
		clickErrs:   map[string]error{},
		forceErrs:   map[string]error{},
		waitVisible: map[string]bool{},
		uploadErrs:  map[string]error{},
		byValueOK:   map[string]bool{},
		byLabelOK:   map[string]bool{},
	}
}

func (f *fakePage) record(format string, args ...any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

func (f *fakePage) called(prefix string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}

func (f *fakePage) callIndex(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			return i
		}
	}
	return -1
}

func (f *fakePage) Navigate(_ context.Context, url string) error {
	f.record("Navigate(%s)", url)
	return f.navErr
}

func (f *fakePage) Click(_ context.Context, sel string) error {
	f.record("Click(%s)", sel)
	if err := f.clickErrs[sel]; err != nil {
		return err
	}
	if f.onClick != nil {
		f.onClick(sel)
	}
	return nil
}

func (f *fakePage) ForceClick(_ context.Context, sel string) error {
	f.record("ForceClick(%s)", sel)
	if err := f.forceErrs[sel]; err != nil {
		return err
	}
	if f.onClick != nil {
		f.onClick(sel)
	}
	return nil
}

func (f *fakePage) Fill(_ context.Context, sel, value string) error {
	f.record("Fill(%s, %s)", sel, value)
	f.values[sel] = value
	if f.onFill != nil {
		f.onFill(sel, value)
	}
	return nil
}

func (f *fakePage) Clear(_ context.Context, sel string) error {
	f.record("Clear(%s)", sel)
	f.values[sel] = ""
	return nil
}

func (f *fakePage) Press(_ context.Context, sel, key string) error {
	f.record("Press(%s, %s)", sel, key)
	return nil
}

func (f *fakePage) KeyPress(_ context.Context, key string) error {
	f.record("KeyPress(%s)", key)
	return nil
}

func (f *fakePage) Focus(_ context.Context, sel string) error {
	f.record("Focus(%s)", sel)
	return nil
}

func (f *fakePage) SetUploadFiles(_ context.Context, sel string, files []string) error {
	f.record("SetUploadFiles(%s, %s)", sel, strings.Join(files, ","))
	return f.uploadErrs[sel]
}

func (f *fakePage) WaitFor(_ context.Context, sel, state string, _ time.Duration) error {
	f.record("WaitFor(%s, %s)", sel, state)
	if state == "visible" && !f.waitVisible[sel] {
		return fmt.Errorf("timeout waiting for %s", sel)
	}
	return nil
}

func (f *fakePage) Sleep(_ context.Context, d time.Duration) error {
	f.record("Sleep(%s)", d)
	return nil
}

func (f *fakePage) CountMatches(_ context.Context, sel string) (int, error) {
	if err := f.countErrs[sel]; err != nil {
		return 0, err
	}
	return f.counts[sel], nil
}

func (f *fakePage) IsVisible(_ context.Context, sel string) (bool, error) {
	if v, ok := f.visible[sel]; ok {
		return v, nil
	}
	return f.counts[sel] > 0, nil
}

func (f *fakePage) ReadValue(_ context.Context, sel string) (string, error) {
	return f.values[sel], nil
}

func (f *fakePage) SelectedText(_ context.Context, sel string) (string, error) {
	return f.selected[sel], nil
}

func (f *fakePage) TextContent(_ context.Context, sel string) (string, error) {
	return f.texts[sel], nil
}

func (f *fakePage) Attribute(_ context.Context, sel, name string) (string, bool, error) {
	if m, ok := f.attrs[sel]; ok {
		v, present := m[name]
		return v, present, nil
	}
	return "", false, nil
}

func (f *fakePage) TagName(_ context.Context, sel string) (string, error) {
	if tag, ok := f.tags[sel]; ok {
		return tag, nil
	}
	return "input", nil
}

func (f *fakePage) VisibleTexts(_ context.Context, scope, sel string) ([]string, error) {
	return f.optionTexts[scope+"|"+sel], nil
}

func (f *fakePage) SetValueJS(_ context.Context, sel, value string) error {
	f.record("SetValueJS(%s, %s)", sel, value)
	f.values[sel] = value
	return nil
}

func (f *fakePage) DispatchInputEvents(_ context.Context, sel string) error {
	f.record("DispatchInputEvents(%s)", sel)
	return nil
}

func (f *fakePage) SelectByValue(_ context.Context, sel, value string) (bool, error) {
	f.record("SelectByValue(%s, %s)", sel, value)
	if f.byValueOK[sel] {
		f.values[sel] = value
		return true, nil
	}
	return false, nil
}

func (f *fakePage) SelectByLabel(_ context.Context, sel, label string) (bool, error) {
	f.record("SelectByLabel(%s, %s)", sel, label)
	if f.byLabelOK[sel] {
		f.values[sel] = label
		return true, nil
	}
	return false, nil
}

func (f *fakePage) SetChecked(_ context.Context, sel string, checked bool) error {
	f.record("SetChecked(%s, %t)", sel, checked)
	return nil
}
