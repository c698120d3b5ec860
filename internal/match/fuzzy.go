// Package match ranks candidate option strings against a requested value.
// It combines a character-level similarity ratio with rule-based boosts for
// containment, semantic-equivalence groups, and key discriminator words, so
// that e.g. "prefer not to say" pairs with "Decline to self-identify".
package match

import (
	"strings"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/formpilot/formpilot-cli/internal/config"
)

// semanticGroups are sets of phrases treated as equivalent answers. A target
// and an option that land in the same group score at least 0.85.
var semanticGroups = [][]string{
	{
		"prefer not to say", "decline to self", "decline to answer",
		"prefer not to answer", "do not wish to answer", "no response",
		"not specified", "unspecified", "other",
	},
	{"yes", "y", "true", "agree", "accept", "confirm"},
	{"no", "n", "false", "disagree", "decline", "reject", "deny"},
	{
		"other", "others", "other (please specify)", "other (specify)",
		"not listed", "none of the above",
	},
}

// keyWords are discriminators for opt-out style answers; sharing one between
// target and option scores at least 0.75.
var keyWords = []string{"prefer", "decline", "not", "other", "none", "unspecified"}

// Similarity returns a difflib-style ratio in [0,1]: twice the number of
// matching characters divided by the total length of both strings.
func Similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}
	dmp := diffmatchpatch.New()
	var common int
	for _, d := range dmp.DiffMain(a, b, false) {
		if d.Type == diffmatchpatch.DiffEqual {
			common += utf8.RuneCountInString(d.Text)
		}
	}
	total := utf8.RuneCountInString(a) + utf8.RuneCountInString(b)
	return 2.0 * float64(common) / float64(total)
}

func findGroup(lower string) []string {
	for _, group := range semanticGroups {
		for _, phrase := range group {
			if strings.Contains(lower, phrase) {
				return group
			}
		}
	}
	return nil
}

// Score rates a single option against the target, boosts included.
func Score(target, option string) float64 {
	targetLower := strings.ToLower(target)
	optionLower := strings.ToLower(option)
	return score(targetLower, optionLower, findGroup(targetLower))
}

func score(targetLower, optionLower string, targetGroup []string) float64 {
	ratio := Similarity(targetLower, optionLower)

	if targetGroup != nil {
		for _, phrase := range targetGroup {
			if strings.Contains(optionLower, phrase) {
				ratio = max(ratio, 0.85)
				break
			}
		}
	}

	if strings.Contains(optionLower, targetLower) || strings.Contains(targetLower, optionLower) {
		ratio = max(ratio, 0.8)
	}

	for _, word := range keyWords {
		if strings.Contains(targetLower, word) && strings.Contains(optionLower, word) {
			ratio = max(ratio, 0.75)
			break
		}
	}

	return ratio
}

// BestMatch returns the highest-scoring option and its score. An empty
// candidate list yields ("", 0).
func BestMatch(target string, options []string) (string, float64) {
	if len(options) == 0 {
		return "", 0.0
	}

	targetLower := strings.ToLower(target)
	targetGroup := findGroup(targetLower)

	var best string
	bestRatio := 0.0
	for _, option := range options {
		if ratio := score(targetLower, strings.ToLower(option), targetGroup); ratio > bestRatio {
			bestRatio = ratio
			best = option
		}
	}
	return best, bestRatio
}

// Matcher applies the configured selection policy on top of BestMatch.
type Matcher struct {
	cfg config.MatcherConfig
}

// NewMatcher builds a Matcher with the given thresholds.
func NewMatcher(cfg config.MatcherConfig) *Matcher {
	return &Matcher{cfg: cfg}
}

// Pick chooses an option for the target value. When the best score falls
// below the low-confidence threshold it additionally tries the literal word
// "other" and prefers that candidate if it clears its own threshold. Returns
// ok=false when nothing reaches the minimum score.
func (m *Matcher) Pick(target string, options []string) (choice string, ratio float64, ok bool) {
	choice, ratio = BestMatch(target, options)
	if ratio < m.cfg.LowConfidence {
		if other, otherRatio := BestMatch("other", options); otherRatio >= m.cfg.OtherThreshold {
			choice, ratio = other, otherRatio
		}
	}
	if choice == "" || ratio < m.cfg.MinScore {
		return "", ratio, false
	}
	return choice, ratio, true
}

// Overlaps reports whether two values semantically overlap: equal, or one
// contains the other, case-insensitively. Used for idempotence checks and
// dropdown commit verification.
func Overlaps(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	al, bl := strings.ToLower(strings.TrimSpace(a)), strings.ToLower(strings.TrimSpace(b))
	return strings.Contains(al, bl) || strings.Contains(bl, al)
}
