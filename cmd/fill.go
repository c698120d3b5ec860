package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/formpilot/formpilot-cli/api/schemas"
	"github.com/formpilot/formpilot-cli/internal/browser"
	"github.com/formpilot/formpilot-cli/internal/config"
	"github.com/formpilot/formpilot-cli/internal/engine"
	"github.com/formpilot/formpilot-cli/internal/llmclient"
	"github.com/formpilot/formpilot-cli/internal/match"
	"github.com/formpilot/formpilot-cli/internal/observability"
	"github.com/formpilot/formpilot-cli/internal/orchestrator"
	"github.com/formpilot/formpilot-cli/internal/planner"
	"github.com/formpilot/formpilot-cli/internal/selector"
)

// newFillCmd creates the `fill` command, the main entry point: open the
// target URL, plan interactions round by round, and execute them.
func newFillCmd() *cobra.Command {
	fillCmd := &cobra.Command{
		Use:   "fill <url>",
		Short: "Plan and execute form interactions against a target page",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := viper.BindPFlag("browser.headless", cmd.Flags().Lookup("headless")); err != nil {
				return err
			}
			if err := viper.BindPFlag("engine.max_plan_rounds", cmd.Flags().Lookup("rounds")); err != nil {
				return err
			}
			if err := viper.BindPFlag("engine.upload_fixture", cmd.Flags().Lookup("upload")); err != nil {
				return err
			}
			return viper.BindPFlag("engine.trace_dir", cmd.Flags().Lookup("trace-dir"))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := config.NewConfigFromViper(viper.GetViper())
			if err != nil {
				return fmt.Errorf("finalizing config with flag overrides: %w", err)
			}

			target := args[0]
			if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
				target = "https://" + target
			}

			userContext, err := loadUserContext(cmd)
			if err != nil {
				return err
			}

			client, err := llmclient.New(cfg.LLM, logger)
			if err != nil {
				return err
			}

			manager := browser.NewManager(cfg.Browser, logger)
			defer manager.Shutdown()

			session, err := manager.NewSession(ctx)
			if err != nil {
				return fmt.Errorf("starting browser session: %w", err)
			}
			defer manager.CloseSession(session)

			logger.Info("Starting form interaction session",
				zap.String("sessionID", session.ID()),
				zap.String("target", target),
				zap.Int("max_rounds", cfg.Engine.MaxPlanRounds))

			matcher := match.NewMatcher(cfg.Matcher)
			picker := planner.NewOptionService(client, userContext, logger)
			executor := engine.NewExecutor(session, selector.New(logger), matcher, picker, cfg.Engine, logger)
			orch := orchestrator.New(session, planner.New(client, logger), executor, cfg.Engine, logger)

			result, err := orch.Run(ctx, target, userContext)
			printResult(cmd, result)
			if err != nil {
				return err
			}
			if result.Status == schemas.StatusBlocked || result.Status == schemas.StatusError {
				return fmt.Errorf("session ended with status %q", result.Status)
			}
			return nil
		},
	}

	fillCmd.Flags().StringP("context", "C", "", "instructions and data for filling the form")
	fillCmd.Flags().String("context-file", "", "file containing the fill instructions")
	fillCmd.Flags().Bool("headless", true, "run the browser headless")
	fillCmd.Flags().Int("rounds", 4, "maximum planning rounds")
	fillCmd.Flags().String("upload", "", "file to substitute into upload steps")
	fillCmd.Flags().String("trace-dir", "", "directory for per-round execution traces")
	return fillCmd
}

func loadUserContext(cmd *cobra.Command) (string, error) {
	inline, _ := cmd.Flags().GetString("context")
	file, _ := cmd.Flags().GetString("context-file")
	if file == "" {
		return inline, nil
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return "", fmt.Errorf("reading context file: %w", err)
	}
	if inline != "" {
		return inline + "\n" + string(data), nil
	}
	return string(data), nil
}

func printResult(cmd *cobra.Command, result *orchestrator.Result) {
	if result == nil {
		return
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "status:  %s\n", result.Status)
	fmt.Fprintf(out, "rounds:  %d\n", result.Rounds)
	if result.Summary != "" {
		fmt.Fprintf(out, "summary: %s\n", result.Summary)
	}
	for _, a := range result.Assumptions {
		fmt.Fprintf(out, "note:    %s\n", a)
	}
	if len(result.Filled) > 0 {
		fmt.Fprintf(out, "filled:  %d fields\n", len(result.Filled))
	}
}
