package orchestrator

import (
	"fmt"
	"os"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"

	"github.com/formpilot/formpilot-cli/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// writeTrace persists one round's trace as a JSON artifact. An empty
// TraceDir disables persistence.
func (o *Orchestrator) writeTrace(trace *schemas.ExecutionTrace) error {
	if o.cfg.TraceDir == "" {
		return nil
	}
	if err := os.MkdirAll(o.cfg.TraceDir, 0o755); err != nil {
		return fmt.Errorf("create trace dir: %w", err)
	}

	data, err := json.MarshalIndent(trace, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal trace: %w", err)
	}

	name := fmt.Sprintf("trace-%s-round%d.json", trace.SessionID, trace.Round)
	path := filepath.Join(o.cfg.TraceDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write trace file: %w", err)
	}
	return nil
}
