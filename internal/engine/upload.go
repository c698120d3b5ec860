package engine

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/formpilot/formpilot-cli/api/schemas"
)

// handleUpload attaches a file to an upload control. File inputs are
// routinely hidden behind styled drop zones, so the planner's selector is
// only the first rung of a fallback chain that ends at the page's sole
// visible (or first) file input.
func (e *Executor) handleUpload(ctx context.Context, step schemas.Step) (stepNote, error) {
	if step.Value == "" {
		return stepNote{}, fmt.Errorf("upload_file requires a file path in value")
	}
	files := []string{step.Value}

	if res, err := e.resolveStep(ctx, step.Selector); err == nil {
		if uerr := e.page.SetUploadFiles(ctx, res.Selector, files); uerr == nil {
			return stepNote{}, nil
		}
	}

	for _, c := range e.uploadFallbacks(step.Selector) {
		n, err := e.page.CountMatches(ctx, c.sel)
		if err != nil || n == 0 {
			continue
		}
		if err := e.page.SetUploadFiles(ctx, c.sel, files); err != nil {
			e.log.Debug("Upload fallback failed",
				zap.String("strategy", c.strategy), zap.String("selector", c.sel), zap.Error(err))
			continue
		}
		return stepNote{text: "file attached via " + c.strategy + " fallback", warn: true}, nil
	}
	return stepNote{}, fmt.Errorf("no file input accepted the upload for %q", step.Selector)
}

type uploadCandidate struct {
	strategy string
	sel      string
}

// uploadFallbacks derives progressively looser file-input locators from the
// plan's selector.
func (e *Executor) uploadFallbacks(raw string) []uploadCandidate {
	var out []uploadCandidate

	if label := hasTextArgument(raw); label != "" {
		out = append(out, uploadCandidate{
			strategy: "label",
			sel:      fmt.Sprintf(`//label[contains(normalize-space(.), %q)]//input[@type="file"]`, label),
		})
	}
	if token := identifierToken(raw); token != "" {
		out = append(out,
			uploadCandidate{"name", fmt.Sprintf(`input[type="file"][name*="%s"]`, token)},
			uploadCandidate{"id", fmt.Sprintf(`input[type="file"][id*="%s"]`, token)},
		)
	}
	out = append(out,
		uploadCandidate{"xpath", `//input[@type="file"]`},
		uploadCandidate{"any", `input[type="file"]`},
	)
	return out
}

// identifierToken pulls a bare word out of a simple id/name selector so it
// can seed substring fallbacks. Compound selectors yield nothing.
func identifierToken(sel string) string {
	sel = strings.TrimSpace(sel)
	sel = strings.TrimPrefix(sel, "#")
	if sel == "" || strings.ContainsAny(sel, " >[]():.,#") {
		return ""
	}
	return sel
}
