package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"go.uber.org/zap"
)

// keyAliases maps plan-level key names onto CDP key strings.
var keyAliases = map[string]string{
	"enter":      kb.Enter,
	"return":     kb.Enter,
	"tab":        kb.Tab,
	"escape":     kb.Escape,
	"esc":        kb.Escape,
	"backspace":  kb.Backspace,
	"delete":     kb.Delete,
	"space":      " ",
	"arrowdown":  kb.ArrowDown,
	"arrowup":    kb.ArrowUp,
	"arrowleft":  kb.ArrowLeft,
	"arrowright": kb.ArrowRight,
	"pagedown":   kb.PageDown,
	"pageup":     kb.PageUp,
	"home":       kb.Home,
	"end":        kb.End,
}

// resolveKey translates a key name such as "Enter" or "ArrowDown" into the
// raw key string chromedp expects. Unknown names pass through unchanged so
// single characters still work.
func resolveKey(name string) string {
	if mapped, ok := keyAliases[strings.ToLower(strings.TrimSpace(name))]; ok {
		return mapped
	}
	return name
}

// Click scrolls the element into view and clicks it.
func (s *Session) Click(ctx context.Context, sel string) error {
	s.log.Debug("Clicking element", zap.String("selector", sel))
	err := s.runActions(ctx,
		chromedp.ScrollIntoView(sel, queryOpt(sel)),
		chromedp.WaitVisible(sel, queryOpt(sel)),
		chromedp.Click(sel, queryOpt(sel)),
	)
	if err != nil {
		return fmt.Errorf("click failed for %q: %w", sel, err)
	}
	return nil
}

// Fill clears the element and types the value into it.
func (s *Session) Fill(ctx context.Context, sel, value string) error {
	s.log.Debug("Filling element", zap.String("selector", sel), zap.Int("value_length", len(value)))
	err := s.runActions(ctx,
		chromedp.ScrollIntoView(sel, queryOpt(sel)),
		chromedp.WaitVisible(sel, queryOpt(sel)),
		chromedp.Clear(sel, queryOpt(sel)),
		chromedp.SendKeys(sel, value, queryOpt(sel)),
	)
	if err != nil {
		return fmt.Errorf("fill failed for %q: %w", sel, err)
	}
	return nil
}

// Clear empties a text-capable element.
func (s *Session) Clear(ctx context.Context, sel string) error {
	if err := s.runActions(ctx, chromedp.Clear(sel, queryOpt(sel))); err != nil {
		return fmt.Errorf("clear failed for %q: %w", sel, err)
	}
	return nil
}

// Press sends a named key to the element.
func (s *Session) Press(ctx context.Context, sel, key string) error {
	s.log.Debug("Pressing key", zap.String("selector", sel), zap.String("key", key))
	err := s.runActions(ctx,
		chromedp.WaitVisible(sel, queryOpt(sel)),
		chromedp.SendKeys(sel, resolveKey(key), queryOpt(sel)),
	)
	if err != nil {
		return fmt.Errorf("press %q failed for %q: %w", key, sel, err)
	}
	return nil
}

// KeyPress sends a key to whatever currently has focus.
func (s *Session) KeyPress(ctx context.Context, key string) error {
	if err := s.runActions(ctx, chromedp.KeyEvent(resolveKey(key))); err != nil {
		return fmt.Errorf("key event %q failed: %w", key, err)
	}
	return nil
}

// Focus moves focus to the element.
func (s *Session) Focus(ctx context.Context, sel string) error {
	if err := s.runActions(ctx, chromedp.Focus(sel, queryOpt(sel))); err != nil {
		return fmt.Errorf("focus failed for %q: %w", sel, err)
	}
	return nil
}

// SetUploadFiles attaches local files to a file input.
func (s *Session) SetUploadFiles(ctx context.Context, sel string, files []string) error {
	s.log.Debug("Uploading files", zap.String("selector", sel), zap.Strings("files", files))
	if err := s.runActions(ctx, chromedp.SetUploadFiles(sel, files, queryOpt(sel))); err != nil {
		return fmt.Errorf("upload failed for %q: %w", sel, err)
	}
	return nil
}

// Element states accepted by WaitFor.
const (
	WaitAttached = "attached"
	WaitDetached = "detached"
	WaitVisible  = "visible"
	WaitHidden   = "hidden"
)

// WaitFor blocks until the element reaches the requested state or the
// timeout elapses. Every wait is bounded.
func (s *Session) WaitFor(ctx context.Context, sel, state string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var action chromedp.Action
	switch state {
	case WaitAttached:
		action = chromedp.WaitReady(sel, queryOpt(sel))
	case WaitDetached:
		action = chromedp.WaitNotPresent(sel, queryOpt(sel))
	case WaitHidden:
		action = chromedp.WaitNotVisible(sel, queryOpt(sel))
	default:
		action = chromedp.WaitVisible(sel, queryOpt(sel))
	}

	if err := s.runActions(waitCtx, action); err != nil {
		return fmt.Errorf("waiting for %q to be %s: %w", sel, state, err)
	}
	return nil
}
