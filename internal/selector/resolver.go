// Package selector turns abstract locators into concrete selectors that
// match exactly one live DOM node. Candidate strategies are tried in a fixed
// priority order; each strategy is an independent entry in the chain so a
// failing one simply yields to the next.
package selector

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/formpilot/formpilot-cli/api/schemas"
)

// PageQuerier is the minimal browser capability resolution needs.
type PageQuerier interface {
	// CountMatches returns how many live nodes the selector matches.
	// Selectors starting with "/", "//", or "(" are XPath, otherwise CSS.
	CountMatches(ctx context.Context, sel string) (int, error)
}

// UnresolvedError reports that no candidate locator matched a live node.
type UnresolvedError struct {
	Target string
	Tried  []string
}

func (e *UnresolvedError) Error() string {
	return fmt.Sprintf("no live node matches %q (tried %s)", e.Target, strings.Join(e.Tried, ", "))
}

// Strategy names the candidate kind that produced a resolution.
type Strategy string

const (
	StrategyID        Strategy = "id"
	StrategyName      Strategy = "name"
	StrategyAriaLabel Strategy = "aria-label"
	StrategyText      Strategy = "text"
	StrategyPath      Strategy = "path"
	StrategyRaw       Strategy = "raw"
)

// Resolution is a concrete handle to a live node. When a candidate matched
// several nodes the first is used and Ambiguous is set; callers log this as
// a non-fatal note.
type Resolution struct {
	Selector  string
	Strategy  Strategy
	Matches   int
	Ambiguous bool
}

type candidate struct {
	strategy Strategy
	selector string
}

// Resolver tries candidate locators against the live page.
type Resolver struct {
	log *zap.Logger
}

// New returns a Resolver. A nil logger is replaced with a no-op.
func New(log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{log: log}
}

// Normalize auto-corrects selectors that are syntactically invalid CSS: an
// id token starting with a digit becomes an attribute-equality selector.
// The second return reports whether a rewrite happened.
func Normalize(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if len(raw) > 1 && raw[0] == '#' && unicode.IsDigit(rune(raw[1])) {
		return fmt.Sprintf(`[id="%s"]`, raw[1:]), true
	}
	return raw, false
}

// Resolve resolves a plan-supplied selector string against the live page.
func (r *Resolver) Resolve(ctx context.Context, page PageQuerier, raw string) (Resolution, error) {
	normalized, fixed := Normalize(raw)
	if fixed {
		r.log.Warn("Corrected invalid CSS selector",
			zap.String("from", raw), zap.String("to", normalized))
	}
	return r.try(ctx, page, raw, []candidate{{StrategyRaw, normalized}})
}

// ResolveElement resolves an extracted element via its full candidate chain:
// id, name, aria-label, stable visible text, then the structural path.
func (r *Resolver) ResolveElement(ctx context.Context, page PageQuerier, el schemas.Element) (Resolution, error) {
	var candidates []candidate
	if el.ID != "" {
		sel, _ := Normalize("#" + el.ID)
		candidates = append(candidates, candidate{StrategyID, sel})
	}
	if el.Name != "" {
		candidates = append(candidates, candidate{StrategyName, attrSelector("name", el.Name)})
	}
	if aria := el.AriaAttributes["aria-label"]; aria != "" {
		candidates = append(candidates, candidate{StrategyAriaLabel, attrSelector("aria-label", aria)})
	}
	if el.Text != "" && el.Tag != "" && !strings.HasSuffix(el.Text, "...") {
		candidates = append(candidates, candidate{StrategyText, textXPath(el.Tag, el.Text)})
	}
	if el.XPath != "" {
		candidates = append(candidates, candidate{StrategyPath, el.XPath})
	}

	target := el.XPath
	if target == "" {
		target = el.Tag
	}
	return r.try(ctx, page, target, candidates)
}

func (r *Resolver) try(ctx context.Context, page PageQuerier, target string, candidates []candidate) (Resolution, error) {
	tried := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if c.selector == "" {
			continue
		}
		tried = append(tried, c.selector)

		count, err := page.CountMatches(ctx, c.selector)
		if err != nil {
			r.log.Debug("Candidate selector errored",
				zap.String("selector", c.selector), zap.Error(err))
			continue
		}
		if count == 0 {
			continue
		}

		res := Resolution{
			Selector:  c.selector,
			Strategy:  c.strategy,
			Matches:   count,
			Ambiguous: count > 1,
		}
		if res.Ambiguous {
			r.log.Warn("Selector matched multiple nodes; using the first",
				zap.String("selector", c.selector), zap.Int("matches", count))
		}
		return res, nil
	}
	return Resolution{}, &UnresolvedError{Target: target, Tried: tried}
}

func attrSelector(attr, value string) string {
	return fmt.Sprintf(`[%s="%s"]`, attr, strings.ReplaceAll(value, `"`, `\"`))
}

func textXPath(tag, text string) string {
	// XPath 1.0 has no escape for quotes inside literals; skip candidates
	// that would need one.
	if strings.Contains(text, `"`) {
		return ""
	}
	return fmt.Sprintf(`//%s[normalize-space(.)="%s"]`, tag, text)
}
