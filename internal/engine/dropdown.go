package engine

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/formpilot/formpilot-cli/api/schemas"
	"github.com/formpilot/formpilot-cli/internal/match"
)

const (
	dropdownSettle = 300 * time.Millisecond
	searchSettle   = 400 * time.Millisecond
)

// dropdownContainerSelectors surface the floating panel a custom select
// renders its options into. Ordered from strongest signal to weakest.
var dropdownContainerSelectors = []string{
	`[role="listbox"]`,
	`[role="menu"]`,
	`[role="combobox"]`,
	`.dropdown-menu`,
	`.select-dropdown`,
	`[data-testid*="dropdown"]`,
	`[class*="dropdown"]`,
	`[class*="menu"]`,
}

// dropdownOptionSelectors locate individual option rows, again strongest
// first: explicit ARIA roles, then the class-name conventions of the common
// widget libraries.
var dropdownOptionSelectors = []string{
	`[role="option"]`,
	`li[role="option"]`,
	`div[role="option"]`,
	`span[role="option"]`,
	`li`,
	`div[class*="option"]`,
	`[class*="option"]`,
	`[class*="dropdown-item"]`,
	`[class*="select-option"]`,
	`[class*="menu-item"]`,
	`div[class*="item"]`,
	`span[class*="item"]`,
}

// searchInputSelectors find the type-to-filter input some widgets embed in
// their panel.
var searchInputSelectors = []string{
	`input[type="search"]`,
	`input[type="text"]`,
	`input[placeholder*="search" i]`,
	`input[placeholder*="filter" i]`,
	`input[placeholder*="type" i]`,
	`[class*="search"] input`,
	`[class*="filter"] input`,
	`input`,
}

// dropdownNoiseWords mark harvested texts that are widget chrome, not
// options.
var dropdownNoiseWords = []string{"search", "filter", "loading", "no results"}

// handleSelectOption commits a value into a select-like field. Native
// <select> elements take the fast path; everything else goes through the
// custom-widget resolution machine.
func (e *Executor) handleSelectOption(ctx context.Context, step schemas.Step) (stepNote, error) {
	if step.Value == "" {
		return stepNote{}, fmt.Errorf("select_option requires a value")
	}
	res, err := e.resolveStep(ctx, step.Selector)
	if err != nil {
		return stepNote{}, err
	}

	tag, err := e.page.TagName(ctx, res.Selector)
	if err != nil {
		tag = ""
	}
	if strings.EqualFold(tag, "select") {
		return e.selectNative(ctx, res.Selector, step.Value)
	}

	// Short-circuit: a value committed in an earlier round survives
	// re-planning, and reopening the widget would risk clearing it.
	if existing, rerr := e.page.ReadValue(ctx, res.Selector); rerr == nil && strings.TrimSpace(existing) != "" {
		return stepNote{text: "field already has a value: " + truncateNote(existing)}, nil
	}

	d := &dropdown{exec: e, field: res.Selector, tag: tag, target: step.Value}
	return d.run(ctx)
}

func (e *Executor) selectNative(ctx context.Context, sel, value string) (stepNote, error) {
	ok, err := e.page.SelectByValue(ctx, sel, value)
	if err != nil {
		return stepNote{}, err
	}
	if ok {
		return stepNote{}, nil
	}
	ok, err = e.page.SelectByLabel(ctx, sel, value)
	if err != nil {
		return stepNote{}, err
	}
	if ok {
		return stepNote{text: "matched option by visible label"}, nil
	}
	return stepNote{}, fmt.Errorf("no option in %q matches %q", sel, value)
}

// dropdown holds the state of one custom-widget selection attempt.
type dropdown struct {
	exec   *Executor
	field  string
	tag    string
	target string

	container   string
	searchInput string
	combobox    bool
	options     []string
	surfaced    bool
}

func (d *dropdown) run(ctx context.Context) (stepNote, error) {
	d.open(ctx)
	d.locate(ctx)
	d.options = d.collectOptions(ctx)

	if d.searchInput != "" {
		return d.selectViaSearch(ctx)
	}

	if len(d.options) == 0 {
		// Nothing harvested; a literal text click still works for widgets
		// whose rows match none of the option selectors.
		if err := d.clickOptionText(ctx, d.target); err == nil {
			return d.verifyCommit(ctx, d.target)
		}
		return d.fallbackToText(ctx, "no visible options after opening")
	}

	choice := d.chooseOption(ctx)
	if choice == "" {
		return d.fallbackToText(ctx, fmt.Sprintf("no option matches %q", d.target))
	}
	if err := d.clickOptionText(ctx, choice); err != nil {
		if note, werr := d.directWrite(ctx, choice); werr == nil {
			return note, nil
		}
		return d.fallbackToText(ctx, "option could not be clicked")
	}
	return d.verifyCommit(ctx, choice)
}

// open clicks the trigger and waits briefly for any known container to
// surface. Not surfacing is a warning, not a failure: some widgets render
// their options inline.
func (d *dropdown) open(ctx context.Context) {
	e := d.exec
	if err := e.page.Click(ctx, d.field); err != nil {
		if ferr := e.page.ForceClick(ctx, d.field); ferr != nil {
			e.log.Debug("Dropdown trigger click failed",
				zap.String("selector", d.field), zap.Error(err))
		}
	}
	for _, c := range dropdownContainerSelectors {
		if err := e.page.WaitFor(ctx, c, "visible", e.openTimeout()); err == nil {
			d.surfaced = true
			return
		}
	}
	_ = e.page.Sleep(ctx, dropdownSettle)
	e.log.Warn("No dropdown container surfaced after opening",
		zap.String("selector", d.field))
}

// locate pins down the visible container, detects combobox semantics, and
// finds an embedded search input if there is one.
func (d *dropdown) locate(ctx context.Context) {
	e := d.exec
	for _, c := range dropdownContainerSelectors {
		n, err := e.page.CountMatches(ctx, c)
		if err != nil || n == 0 {
			continue
		}
		if vis, verr := e.page.IsVisible(ctx, c); verr == nil && vis {
			d.container = c
			break
		}
	}

	if role, ok, _ := e.page.Attribute(ctx, d.field, "role"); ok && strings.EqualFold(role, "combobox") {
		d.combobox = true
	}
	if d.container == `[role="combobox"]` {
		d.combobox = true
	}

	d.searchInput = d.findSearchInput(ctx)
	if d.searchInput == "" && d.combobox {
		// A combobox filters through the trigger field itself.
		d.searchInput = d.field
	}
}

func (d *dropdown) findSearchInput(ctx context.Context) string {
	if d.container == "" {
		return ""
	}
	e := d.exec
	for _, s := range searchInputSelectors {
		scoped := d.container + " " + s
		n, err := e.page.CountMatches(ctx, scoped)
		if err != nil || n == 0 {
			continue
		}
		if vis, verr := e.page.IsVisible(ctx, scoped); verr != nil || !vis {
			continue
		}
		if d.sameAsField(ctx, scoped) {
			continue
		}
		return scoped
	}
	return ""
}

// sameAsField guards against mistaking the trigger for its own search input.
func (d *dropdown) sameAsField(ctx context.Context, sel string) bool {
	e := d.exec
	fid, fok, _ := e.page.Attribute(ctx, d.field, "id")
	sid, sok, _ := e.page.Attribute(ctx, sel, "id")
	return fok && sok && fid != "" && fid == sid
}

func (d *dropdown) collectOptions(ctx context.Context) []string {
	e := d.exec
	var scopes []string
	if d.container != "" {
		scopes = append(scopes, d.container)
	}
	scopes = append(scopes, "")

	for _, scope := range scopes {
		for _, optSel := range dropdownOptionSelectors {
			texts, err := e.page.VisibleTexts(ctx, scope, optSel)
			if err != nil {
				continue
			}
			if texts = filterNoise(texts); len(texts) > 0 {
				return texts
			}
		}
	}
	return nil
}

func filterNoise(texts []string) []string {
	out := texts[:0]
	for _, t := range texts {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		lower := strings.ToLower(t)
		noisy := false
		for _, w := range dropdownNoiseWords {
			if strings.Contains(lower, w) {
				noisy = true
				break
			}
		}
		if !noisy {
			out = append(out, t)
		}
	}
	return out
}

// chooseOption asks the semantic picker first and falls back to fuzzy
// matching. A picker choice is honored only when it names a harvested
// option verbatim.
func (d *dropdown) chooseOption(ctx context.Context) string {
	e := d.exec
	if e.picker != nil && len(d.options) > 0 {
		choice, err := e.picker.PickOption(ctx, OptionRequest{
			FieldName:   d.field,
			TargetValue: d.target,
			Options:     d.options,
		})
		if err != nil {
			e.log.Warn("Option picker failed; falling back to fuzzy matching", zap.Error(err))
		} else if choice != "" && slices.Contains(d.options, choice) {
			return choice
		}
	}
	if e.matcher != nil {
		choice, ratio, ok := e.matcher.Pick(d.target, d.options)
		if ok {
			e.log.Debug("Fuzzy-matched option",
				zap.String("target", d.target), zap.String("choice", choice),
				zap.Float64("score", ratio))
		}
		return choice
	}
	choice, _ := match.BestMatch(d.target, d.options)
	return choice
}

// clickOptionText walks the option locators for the given text and
// escalates click → forced click → keyboard on each visible candidate.
func (d *dropdown) clickOptionText(ctx context.Context, text string) error {
	e := d.exec
	for _, optSel := range optionLocators(text) {
		n, err := e.page.CountMatches(ctx, optSel)
		if err != nil || n == 0 {
			continue
		}
		if vis, verr := e.page.IsVisible(ctx, optSel); verr != nil || !vis {
			continue
		}
		if err := e.page.Click(ctx, optSel); err == nil {
			return nil
		}
		if err := e.page.ForceClick(ctx, optSel); err == nil {
			return nil
		}
		if err := d.keyboardSelect(ctx, optSel); err == nil {
			return nil
		}
	}
	return fmt.Errorf("no clickable option labelled %q", text)
}

func optionLocators(text string) []string {
	// XPath 1.0 string literals cannot contain the quote that delimits
	// them; such texts get no locators and fall through to direct write.
	if strings.Contains(text, `"`) {
		return nil
	}
	return []string{
		fmt.Sprintf(`//*[@role="option"][contains(normalize-space(.), %q)]`, text),
		fmt.Sprintf(`//li[contains(normalize-space(.), %q)]`, text),
		fmt.Sprintf(`//*[contains(@class, "option")][contains(normalize-space(.), %q)]`, text),
		fmt.Sprintf(`//*[normalize-space(text())=%q]`, text),
	}
}

func (d *dropdown) keyboardSelect(ctx context.Context, optSel string) error {
	e := d.exec
	if d.searchInput != "" {
		if err := e.page.Focus(ctx, d.searchInput); err != nil {
			return err
		}
		for range 5 {
			if err := e.page.KeyPress(ctx, "ArrowDown"); err != nil {
				return err
			}
		}
		return e.page.KeyPress(ctx, "Enter")
	}
	if err := e.page.Focus(ctx, optSel); err != nil {
		return err
	}
	return e.page.KeyPress(ctx, "Enter")
}

// selectViaSearch types the best-matching text into the filter input and
// commits with Enter, falling back to an explicit option click when the
// read-back does not confirm.
func (d *dropdown) selectViaSearch(ctx context.Context) (stepNote, error) {
	e := d.exec
	query := d.target
	if choice := d.chooseOption(ctx); choice != "" {
		query = choice
	}

	if err := e.page.Click(ctx, d.searchInput); err != nil {
		if ferr := e.page.Focus(ctx, d.searchInput); ferr != nil {
			return stepNote{}, fmt.Errorf("search input unreachable: %w", err)
		}
	}
	_ = e.page.Clear(ctx, d.searchInput)
	if err := e.page.Fill(ctx, d.searchInput, query); err != nil {
		return stepNote{}, err
	}
	_ = e.page.Sleep(ctx, searchSettle)
	if err := e.page.Press(ctx, d.searchInput, "Enter"); err != nil {
		return stepNote{}, err
	}
	_ = e.page.Sleep(ctx, postCommitSettleGap)

	if d.readBack(ctx, query) {
		return stepNote{text: "selected via search input: " + truncateNote(query)}, nil
	}
	if err := d.clickOptionText(ctx, query); err == nil {
		return d.verifyCommit(ctx, query)
	}
	return stepNote{text: "typed " + truncateNote(query) + " into search input; commit unverified", warn: true}, nil
}

// verifyCommit re-reads the field and, when the value did not land, retries
// the escalation chain once before conceding to the text fallback.
func (d *dropdown) verifyCommit(ctx context.Context, choice string) (stepNote, error) {
	e := d.exec
	_ = e.page.Sleep(ctx, postCommitSettleGap)
	if d.readBack(ctx, choice) {
		return d.done(choice)
	}

	_ = e.page.KeyPress(ctx, "Escape")
	if err := e.page.Click(ctx, d.field); err != nil {
		_ = e.page.ForceClick(ctx, d.field)
	}
	if err := d.clickOptionText(ctx, choice); err != nil {
		if note, werr := d.directWrite(ctx, choice); werr == nil {
			return note, nil
		}
		return d.fallbackToText(ctx, "selection did not commit")
	}
	_ = e.page.Sleep(ctx, postCommitSettleGap)
	if d.readBack(ctx, choice) {
		return d.done(choice)
	}
	return d.fallbackToText(ctx, "selection did not commit")
}

// readBack verifies the commit by bidirectional containment against both
// the clicked option and the originally requested value.
func (d *dropdown) readBack(ctx context.Context, choice string) bool {
	current, err := d.exec.page.ReadValue(ctx, d.field)
	if err != nil || strings.TrimSpace(current) == "" {
		return false
	}
	return match.Overlaps(current, choice) || match.Overlaps(current, d.target)
}

func (d *dropdown) done(choice string) (stepNote, error) {
	if !d.surfaced {
		return stepNote{text: "selected " + truncateNote(choice) + " (no dropdown container surfaced)", warn: true}, nil
	}
	return stepNote{text: "selected " + truncateNote(choice)}, nil
}

// directWrite closes the panel and writes the choice straight into the
// field, firing the input events frameworks listen for.
func (d *dropdown) directWrite(ctx context.Context, choice string) (stepNote, error) {
	e := d.exec
	_ = e.page.KeyPress(ctx, "Escape")
	if err := e.page.Click(ctx, d.field); err != nil {
		_ = e.page.ForceClick(ctx, d.field)
	}
	if err := e.page.Fill(ctx, d.field, choice); err != nil {
		return stepNote{}, err
	}
	_ = e.page.Press(ctx, d.field, "Enter")
	if err := e.page.DispatchInputEvents(ctx, d.field); err != nil {
		return stepNote{}, err
	}
	_ = e.page.Sleep(ctx, postCommitSettleGap)
	if !d.readBack(ctx, choice) {
		return stepNote{}, fmt.Errorf("direct write did not commit %q", choice)
	}
	return stepNote{text: "value written directly after option click failed", warn: true}, nil
}

var freeTextInputTypes = map[string]bool{
	"":       true,
	"text":   true,
	"email":  true,
	"tel":    true,
	"search": true,
	"url":    true,
}

// fallbackToText converts an unresolvable dropdown into a plain text write
// when the underlying element accepts free text at all.
func (d *dropdown) fallbackToText(ctx context.Context, reason string) (stepNote, error) {
	e := d.exec
	if !d.acceptsFreeText(ctx) {
		return stepNote{}, fmt.Errorf("could not select %q: %s", d.target, reason)
	}
	_ = e.page.KeyPress(ctx, "Escape")
	if err := e.page.Fill(ctx, d.field, d.target); err != nil {
		return stepNote{}, fmt.Errorf("could not select %q (%s) and text fallback failed: %w", d.target, reason, err)
	}
	_ = e.page.Press(ctx, d.field, "Enter")
	_ = e.page.DispatchInputEvents(ctx, d.field)
	e.log.Warn("Dropdown fell back to free-text entry",
		zap.String("selector", d.field), zap.String("reason", reason))
	return stepNote{text: "typed value as free text: " + reason, warn: true}, nil
}

func (d *dropdown) acceptsFreeText(ctx context.Context) bool {
	tag := strings.ToLower(d.tag)
	if tag == "textarea" {
		return true
	}
	if tag != "input" {
		return false
	}
	typ, _, _ := d.exec.page.Attribute(ctx, d.field, "type")
	if !freeTextInputTypes[strings.ToLower(typ)] {
		return false
	}
	_, readonly, _ := d.exec.page.Attribute(ctx, d.field, "readonly")
	return !readonly
}

func truncateNote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= 48 {
		return s
	}
	cut := 48
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
