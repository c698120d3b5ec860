package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/formpilot/formpilot-cli/internal/config"
)

// Session wraps one browser tab. All methods are safe to call sequentially;
// the engine owns the session exclusively for the duration of a step.
type Session struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc
	cfg    config.BrowserConfig
	log    *zap.Logger
}

// ID returns the session identifier used in traces and logs.
func (s *Session) ID() string { return s.id }

// Close releases the tab.
func (s *Session) Close() {
	if s.cancel != nil {
		s.cancel()
	}
}

// runActions executes chromedp actions honoring both the session lifetime
// and the caller's deadline.
func (s *Session) runActions(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := CombineContext(s.ctx, ctx)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

// isXPath reports whether a selector string is XPath rather than CSS.
func isXPath(sel string) bool {
	return len(sel) > 0 && (sel[0] == '/' || sel[0] == '(')
}

// queryOpt picks the chromedp query strategy for a selector.
func queryOpt(sel string) chromedp.QueryOption {
	if isXPath(sel) {
		return chromedp.BySearch
	}
	return chromedp.ByQuery
}

// Navigate loads the URL and waits for the page to settle.
func (s *Session) Navigate(ctx context.Context, url string) error {
	s.log.Debug("Navigating", zap.String("url", url))

	timeout := s.cfg.NavigationTimeout
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	navCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := s.runActions(navCtx, chromedp.Navigate(url)); err != nil {
		if navCtx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("navigation timed out after %s: %w", timeout, err)
		}
		return fmt.Errorf("navigation failed: %w", err)
	}

	if err := s.Stabilize(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.log.Warn("Page stabilization failed after navigation (non-critical).", zap.Error(err))
	}
	return nil
}

// Stabilize waits for the DOM to be ready plus a short quiet period, bounded
// by the configured stabilization budget.
func (s *Session) Stabilize(ctx context.Context) error {
	budget := s.cfg.StabilizationBudget
	if budget <= 0 {
		budget = 10 * time.Second
	}
	quiet := s.cfg.StabilizationQuiet
	if quiet <= 0 {
		quiet = 500 * time.Millisecond
	}

	stabCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	if err := s.runActions(stabCtx, chromedp.WaitReady("body", chromedp.ByQuery)); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.log.Debug("WaitReady failed during stabilization.", zap.Error(err))
	}
	return s.runActions(stabCtx, chromedp.Sleep(quiet))
}

// HTML returns the serialized DOM of the current page.
func (s *Session) HTML(ctx context.Context) (string, error) {
	var content string
	if err := s.runActions(ctx, chromedp.OuterHTML("html", &content, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("capturing page HTML: %w", err)
	}
	return content, nil
}

// URL returns the current page location.
func (s *Session) URL(ctx context.Context) (string, error) {
	var loc string
	if err := s.runActions(ctx, chromedp.Location(&loc)); err != nil {
		return "", err
	}
	return loc, nil
}

// Sleep pauses for the given duration, honoring cancellation.
func (s *Session) Sleep(ctx context.Context, d time.Duration) error {
	return s.runActions(ctx, chromedp.Sleep(d))
}
